package server

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"playx/internal/db"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	maxArchiveBytes   = 100 << 20 // 100 MiB
	maxExtractedBytes = 512 << 20
	entryFileName     = "index.html"
	stagingDirName    = ".staging"
)

var errEntryFileMissing = errors.New("Index HTML not found")

// handleUploadVersion turns an uploaded zip archive into a new playable
// GameVersion. The archive is extracted and verified in a staging
// directory and only renamed into the served tree once the version row
// is committed, so a crash never leaves a servable-but-unregistered
// directory behind.
func (s *Server) handleUploadVersion(c *gin.Context) {
	var param slugParam
	if !bindURI(c, &param) {
		return
	}
	game, ok := s.requireOwnedGame(c, param.Slug)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxArchiveBytes+(1<<20))
	file, err := c.FormFile("file")
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "a zip file is required")
		return
	}
	if !strings.HasSuffix(strings.ToLower(file.Filename), ".zip") {
		respondMessage(c, http.StatusBadRequest, "file must be a .zip archive")
		return
	}
	if file.Size <= 0 {
		respondMessage(c, http.StatusBadRequest, "file is empty")
		return
	}
	if file.Size > maxArchiveBytes {
		respondMessage(c, http.StatusBadRequest, "file exceeds the 100 MiB limit")
		return
	}

	// Uploads for the same game are serialized so two requests cannot
	// both claim the same version label.
	lock := s.gameLock(game.ID)
	lock.Lock()
	defer lock.Unlock()

	staging, entryPath, err := s.stageArchive(c, file, game.Slug)
	if err != nil {
		if staging != "" {
			_ = os.RemoveAll(staging)
		}
		if errors.Is(err, errEntryFileMissing) {
			respondMessage(c, http.StatusBadRequest, errEntryFileMissing.Error())
			return
		}
		log.Printf("version staging failed slug=%s err=%v", game.Slug, err)
		respondStatusText(c, http.StatusInternalServerError)
		return
	}

	var version db.GameVersion
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db.GameVersion{}).Where("game_id = ?", game.ID).Count(&count).Error; err != nil {
			return err
		}
		label := strconv.FormatInt(count+1, 10)
		version = db.GameVersion{
			Version: label,
			GameID:  game.ID,
			Path:    "/games/" + game.Slug + "/" + label + "/" + entryPath,
		}
		return tx.Create(&version).Error
	})
	if err != nil {
		_ = os.RemoveAll(staging)
		log.Printf("version insert failed slug=%s err=%v", game.Slug, err)
		respondStatusText(c, http.StatusInternalServerError)
		return
	}

	final := filepath.Join(s.cfg.PublicDir, "games", game.Slug, version.Version)
	if err := s.promoteStaging(staging, final); err != nil {
		// The row is already visible, take it back out.
		if delErr := s.db.Delete(&db.GameVersion{}, version.ID).Error; delErr != nil {
			log.Printf("version rollback failed id=%d err=%v", version.ID, delErr)
		}
		_ = os.RemoveAll(staging)
		log.Printf("version promote failed slug=%s version=%s err=%v", game.Slug, version.Version, err)
		respondStatusText(c, http.StatusInternalServerError)
		return
	}

	if err := db.RecordEvent(s.db, "version.created", currentUser(c).ID, gin.H{
		"gameId":  game.ID,
		"slug":    game.Slug,
		"version": version.Version,
	}); err != nil {
		log.Printf("audit event failed type=version.created err=%v", err)
	}

	parent := gamePayload{
		ID:          game.ID,
		Title:       game.Title,
		Slug:        game.Slug,
		Description: game.Description,
		Image:       game.Image,
		UserID:      game.UserID,
		CreatedAt:   game.CreatedAt,
		UpdatedAt:   game.UpdatedAt,
	}
	respondData(c, http.StatusCreated, versionPayload{
		ID:        version.ID,
		Version:   version.Version,
		Path:      version.Path,
		GameID:    version.GameID,
		CreatedAt: version.CreatedAt,
		Game:      &parent,
	})
}

// stageArchive writes the upload into a fresh staging directory,
// extracts it there, and verifies the entry file. It returns the
// staging directory and the entry file's path relative to it.
func (s *Server) stageArchive(c *gin.Context, file *multipart.FileHeader, slug string) (string, string, error) {
	stagingRoot := filepath.Join(s.cfg.PublicDir, "games", stagingDirName)
	if err := os.MkdirAll(stagingRoot, 0o755); err != nil {
		return "", "", err
	}
	staging, err := os.MkdirTemp(stagingRoot, slug+"-")
	if err != nil {
		return "", "", err
	}

	archivePath := filepath.Join(staging, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, archivePath); err != nil {
		return staging, "", err
	}
	if err := extractArchive(archivePath, staging); err != nil {
		return staging, "", err
	}
	if err := os.Remove(archivePath); err != nil {
		return staging, "", err
	}

	entryPath, ok := findEntryFile(staging)
	if !ok {
		return staging, "", errEntryFileMissing
	}
	return staging, entryPath, nil
}

// extractArchive unpacks a zip file into dest, refusing entries that
// would escape it and capping the total decompressed size.
func extractArchive(archivePath, dest string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer reader.Close()

	var total int64
	for _, entry := range reader.File {
		name := filepath.FromSlash(entry.Name)
		if !filepath.IsLocal(name) {
			return fmt.Errorf("archive entry escapes destination: %s", entry.Name)
		}
		target := filepath.Join(dest, name)
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		total += int64(entry.UncompressedSize64)
		if total > maxExtractedBytes {
			return errors.New("archive contents exceed the extraction limit")
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := extractFile(entry, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(entry *zip.File, target string) error {
	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer dst.Close()

	// LimitReader guards against entries that lie about their size.
	if _, err := io.Copy(dst, io.LimitReader(src, maxExtractedBytes+1)); err != nil {
		return err
	}
	return nil
}

// findEntryFile scans root for index.html, case-insensitively and at any
// depth, preferring the shallowest match. The returned path is relative
// to root with forward slashes, suitable for a served URL.
func findEntryFile(root string) (string, bool) {
	var best string
	bestDepth := -1
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if !strings.EqualFold(d.Name(), entryFileName) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		depth := strings.Count(rel, string(filepath.Separator))
		if bestDepth == -1 || depth < bestDepth {
			best = rel
			bestDepth = depth
		}
		return nil
	})
	if bestDepth == -1 {
		return "", false
	}
	return filepath.ToSlash(best), true
}

// promoteStaging renames the verified staging directory into its served
// location under the public games root.
func (s *Server) promoteStaging(staging, final string) error {
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return err
	}
	return os.Rename(staging, final)
}

// sweepStaging clears crash residue left under the staging root. Staged
// directories are never served, so anything found here is garbage.
func (s *Server) sweepStaging() {
	stagingRoot := filepath.Join(s.cfg.PublicDir, "games", stagingDirName)
	entries, err := os.ReadDir(stagingRoot)
	if err != nil {
		return
	}
	for _, entry := range entries {
		path := filepath.Join(stagingRoot, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			log.Printf("staging sweep failed path=%s err=%v", path, err)
		}
	}
}

func (s *Server) gameLock(gameID uint) *sync.Mutex {
	s.uploadMu.Lock()
	defer s.uploadMu.Unlock()
	lock, ok := s.uploadLocks[gameID]
	if !ok {
		lock = &sync.Mutex{}
		s.uploadLocks[gameID] = lock
	}
	return lock
}

type versionIDParam struct {
	ID uint `uri:"id" binding:"required"`
}

// handleDeleteVersion removes a version's database row and its extracted
// directory.
func (s *Server) handleDeleteVersion(c *gin.Context) {
	var param versionIDParam
	if !bindURI(c, &param) {
		return
	}
	var version db.GameVersion
	err := s.db.Preload("Game").Where("id = ?", param.ID).First(&version).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondStatusText(c, http.StatusNotFound)
			return
		}
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	if version.Game == nil {
		respondStatusText(c, http.StatusNotFound)
		return
	}
	requester := currentUser(c)
	if version.Game.UserID != requester.ID && !isAdmin(requester) {
		respondStatusText(c, http.StatusForbidden)
		return
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("game_version_id = ?", version.ID).Delete(&db.Score{}).Error; err != nil {
			return err
		}
		return tx.Delete(&db.GameVersion{}, version.ID).Error
	})
	if err != nil {
		log.Printf("version delete failed id=%d err=%v", version.ID, err)
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	dir := filepath.Join(s.cfg.PublicDir, "games", version.Game.Slug, version.Version)
	if err := os.RemoveAll(dir); err != nil {
		log.Printf("version dir removal failed dir=%s err=%v", dir, err)
	}
	if err := db.RecordEvent(s.db, "version.deleted", currentUser(c).ID, gin.H{
		"gameId":  version.GameID,
		"slug":    version.Game.Slug,
		"version": version.Version,
	}); err != nil {
		log.Printf("audit event failed type=version.deleted err=%v", err)
	}
	c.Status(http.StatusNoContent)
}
