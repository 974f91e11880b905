package server

import (
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"playx/internal/db"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// popularityExpr ranks games by the sum of every score across all of
// their versions, computed store-side so ordering is correct across
// pages rather than within one.
const popularityExpr = "(SELECT COALESCE(SUM(s.score), 0) FROM scores s " +
	"JOIN game_versions gv ON gv.id = s.game_version_id WHERE gv.game_id = games.id)"

type gamePayload struct {
	ID           uint      `json:"id"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	Image        string    `json:"image"`
	UserID       string    `json:"userId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	TotalPlayers int64     `json:"totalPlayers"`
	ScoreCount   int64     `json:"scoreCount"`
}

type versionPayload struct {
	ID        uint           `json:"id"`
	Version   string         `json:"version"`
	Path      string         `json:"path"`
	GameID    uint           `json:"gameId"`
	CreatedAt time.Time      `json:"createdAt"`
	Game      *gamePayload   `json:"game,omitempty"`
	Scores    []scorePayload `json:"scores,omitempty"`
}

type slugParam struct {
	Slug string `uri:"slug" binding:"required"`
}

type listGamesQuery struct {
	Search  string `form:"search"`
	UserID  string `form:"userId"`
	SortBy  string `form:"sortBy" binding:"omitempty,oneof=title popularity createdAt"`
	SortDir string `form:"sortDir" binding:"omitempty,oneof=asc desc"`
}

func (s *Server) handleListGames(c *gin.Context) {
	var query listGamesQuery
	if !bindQuery(c, &query) {
		return
	}
	page, pageSize := parsePagination(c)

	base := s.db.Model(&db.Game{})
	if search := strings.TrimSpace(query.Search); search != "" {
		base = base.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if query.UserID != "" {
		base = base.Where("user_id = ?", query.UserID)
	} else {
		// The public catalog hides games nobody can play yet.
		base = base.Where("EXISTS (SELECT 1 FROM game_versions gv WHERE gv.game_id = games.id)")
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		log.Printf("game count failed err=%v", err)
		respondStatusText(c, http.StatusInternalServerError)
		return
	}

	direction := "DESC"
	if query.SortDir == "asc" {
		direction = "ASC"
	}
	var order string
	switch query.SortBy {
	case "title":
		order = "title " + direction
	case "popularity":
		order = popularityExpr + " " + direction
	default:
		order = "created_at " + direction
	}

	var games []db.Game
	err := base.Session(&gorm.Session{}).
		Order(order).
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&games).Error
	if err != nil {
		log.Printf("game list failed err=%v", err)
		respondStatusText(c, http.StatusInternalServerError)
		return
	}

	payloads, err := s.gamePayloads(games)
	if err != nil {
		log.Printf("game aggregates failed err=%v", err)
		respondStatusText(c, http.StatusInternalServerError)
		return
	}

	meta := buildPageMeta(page, pageSize, total)
	c.JSON(http.StatusOK, gin.H{
		"data":        payloads,
		"page":        meta.Page,
		"pageSize":    meta.PageSize,
		"totalPage":   meta.TotalPage,
		"isFirstPage": meta.IsFirstPage,
		"isLastPage":  meta.IsLastPage,
	})
}

// gamePayloads decorates a page of games with their score aggregates in
// a single grouped query.
func (s *Server) gamePayloads(games []db.Game) ([]gamePayload, error) {
	payloads := make([]gamePayload, 0, len(games))
	if len(games) == 0 {
		return payloads, nil
	}
	ids := make([]uint, 0, len(games))
	for i := range games {
		ids = append(ids, games[i].ID)
	}
	type aggregate struct {
		GameID       uint
		TotalPlayers int64
		ScoreCount   int64
	}
	var aggregates []aggregate
	err := s.db.Raw(
		"SELECT gv.game_id AS game_id, COUNT(DISTINCT s.user_id) AS total_players, "+
			"COALESCE(SUM(s.score), 0) AS score_count "+
			"FROM scores s JOIN game_versions gv ON gv.id = s.game_version_id "+
			"WHERE gv.game_id IN ? GROUP BY gv.game_id", ids).
		Scan(&aggregates).Error
	if err != nil {
		return nil, err
	}
	byGame := make(map[uint]aggregate, len(aggregates))
	for _, agg := range aggregates {
		byGame[agg.GameID] = agg
	}
	for i := range games {
		game := &games[i]
		agg := byGame[game.ID]
		payloads = append(payloads, gamePayload{
			ID:           game.ID,
			Title:        game.Title,
			Slug:         game.Slug,
			Description:  game.Description,
			Image:        game.Image,
			UserID:       game.UserID,
			CreatedAt:    game.CreatedAt,
			UpdatedAt:    game.UpdatedAt,
			TotalPlayers: agg.TotalPlayers,
			ScoreCount:   agg.ScoreCount,
		})
	}
	return payloads, nil
}

func (s *Server) handleGetGame(c *gin.Context) {
	var param slugParam
	if !bindURI(c, &param) {
		return
	}
	var game db.Game
	err := s.db.Where("slug = ?", param.Slug).
		Preload("Versions", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("id DESC")
		}).
		Preload("Versions.Scores", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("score DESC")
		}).
		Preload("Versions.Scores.User").
		First(&game).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondStatusText(c, http.StatusNotFound)
			return
		}
		log.Printf("game fetch failed slug=%s err=%v", param.Slug, err)
		respondStatusText(c, http.StatusInternalServerError)
		return
	}

	var owner db.User
	if err := s.db.Where("id = ?", game.UserID).First(&owner).Error; err != nil &&
		!errors.Is(err, gorm.ErrRecordNotFound) {
		respondStatusText(c, http.StatusInternalServerError)
		return
	}

	versions := make([]versionPayload, 0, len(game.Versions))
	for i := range game.Versions {
		version := &game.Versions[i]
		scores := make([]scorePayload, 0, len(version.Scores))
		for j := range version.Scores {
			scores = append(scores, scorePayloadFrom(&version.Scores[j]))
		}
		versions = append(versions, versionPayload{
			ID:        version.ID,
			Version:   version.Version,
			Path:      version.Path,
			GameID:    version.GameID,
			CreatedAt: version.CreatedAt,
			Scores:    scores,
		})
	}
	respondData(c, http.StatusOK, gin.H{
		"id":          game.ID,
		"title":       game.Title,
		"slug":        game.Slug,
		"description": game.Description,
		"image":       game.Image,
		"userId":      game.UserID,
		"createdAt":   game.CreatedAt,
		"updatedAt":   game.UpdatedAt,
		"versions":    versions,
		"user":        userPayloadFrom(&owner),
	})
}

func (s *Server) handleGameStats(c *gin.Context) {
	user := currentUser(c)

	var totalGames int64
	if err := s.db.Model(&db.Game{}).Where("user_id = ?", user.ID).Count(&totalGames).Error; err != nil {
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	var totalScores int64
	err := s.db.Raw(
		"SELECT COALESCE(SUM(s.score), 0) FROM scores s "+
			"JOIN game_versions gv ON gv.id = s.game_version_id "+
			"JOIN games g ON g.id = gv.game_id "+
			"WHERE g.user_id = ? AND g.deleted_at IS NULL", user.ID).
		Scan(&totalScores).Error
	if err != nil {
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	respondData(c, http.StatusOK, gin.H{
		"totalGames":  totalGames,
		"totalScores": totalScores,
	})
}

type createGameRequest struct {
	Title       string                `form:"title" binding:"required,title"`
	Description string                `form:"description"`
	Image       *multipart.FileHeader `form:"image"`
}

var createGameMessages = bindMessages{
	"Title": {"required": "title is required", "title": "title is invalid"},
}

func (s *Server) handleCreateGame(c *gin.Context) {
	var req createGameRequest
	if !bindForm(c, &req, createGameMessages, "invalid game") {
		return
	}
	title, _ := validateTitle(req.Title)
	description, err := validateDescription(req.Description)
	if err != nil {
		respondMessage(c, http.StatusBadRequest, err.Error())
		return
	}
	user := currentUser(c)

	titleSlug := slugFromTitle(title)
	if titleSlug == "" {
		respondMessage(c, http.StatusBadRequest, "title must contain letters or digits")
		return
	}
	var existing db.Game
	if err := s.db.Unscoped().Where("slug = ?", titleSlug).First(&existing).Error; err == nil {
		respondMessage(c, http.StatusBadRequest, "Title must be unique")
		return
	}

	fileName := ""
	if req.Image != nil {
		fileName, err = s.saveImage(c, req.Image)
		if err != nil {
			respondMessage(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	game := db.Game{
		Title:       title,
		Slug:        titleSlug,
		Description: description,
		Image:       fileName,
		UserID:      user.ID,
	}
	if err := s.db.Create(&game).Error; err != nil {
		if isUniqueViolation(err) {
			respondMessage(c, http.StatusBadRequest, "Title must be unique")
			return
		}
		log.Printf("game create failed slug=%s err=%v", titleSlug, err)
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	if err := db.RecordEvent(s.db, "game.created", user.ID, gin.H{
		"gameId": game.ID,
		"slug":   game.Slug,
	}); err != nil {
		log.Printf("audit event failed type=game.created err=%v", err)
	}
	respondData(c, http.StatusCreated, gamePayload{
		ID:          game.ID,
		Title:       game.Title,
		Slug:        game.Slug,
		Description: game.Description,
		Image:       game.Image,
		UserID:      game.UserID,
		CreatedAt:   game.CreatedAt,
		UpdatedAt:   game.UpdatedAt,
	})
}

type updateGameRequest struct {
	Title       string                `form:"title" binding:"omitempty,title"`
	Description string                `form:"description"`
	Image       *multipart.FileHeader `form:"image"`
}

func (s *Server) handleUpdateGame(c *gin.Context) {
	var param slugParam
	if !bindURI(c, &param) {
		return
	}
	game, ok := s.requireOwnedGame(c, param.Slug)
	if !ok {
		return
	}

	var req updateGameRequest
	if !bindForm(c, &req, bindMessages{
		"Title": {"title": "title is invalid"},
	}, "invalid game update") {
		return
	}

	updates := map[string]any{}
	if req.Title != "" {
		// The slug is derived once at creation and never changes, so
		// retitling does not move the game's URL or its files.
		title, _ := validateTitle(req.Title)
		updates["title"] = title
	}
	if strings.TrimSpace(req.Description) != "" {
		description, err := validateDescription(req.Description)
		if err != nil {
			respondMessage(c, http.StatusBadRequest, err.Error())
			return
		}
		updates["description"] = description
	}
	if req.Image != nil {
		fileName, err := s.saveImage(c, req.Image)
		if err != nil {
			respondMessage(c, http.StatusBadRequest, err.Error())
			return
		}
		updates["image"] = fileName
	}
	if len(updates) > 0 {
		if err := s.db.Model(&db.Game{}).Where("id = ?", game.ID).Updates(updates).Error; err != nil {
			log.Printf("game update failed slug=%s err=%v", game.Slug, err)
			respondStatusText(c, http.StatusInternalServerError)
			return
		}
	}
	if err := s.db.Where("id = ?", game.ID).First(game).Error; err != nil {
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	respondData(c, http.StatusOK, gamePayload{
		ID:          game.ID,
		Title:       game.Title,
		Slug:        game.Slug,
		Description: game.Description,
		Image:       game.Image,
		UserID:      game.UserID,
		CreatedAt:   game.CreatedAt,
		UpdatedAt:   game.UpdatedAt,
	})
}

func (s *Server) handleDeleteGame(c *gin.Context) {
	var param slugParam
	if !bindURI(c, &param) {
		return
	}
	game, ok := s.requireOwnedGame(c, param.Slug)
	if !ok {
		return
	}
	if err := s.deleteGameCascade(game); err != nil {
		log.Printf("game delete failed slug=%s err=%v", game.Slug, err)
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	if err := db.RecordEvent(s.db, "game.deleted", currentUser(c).ID, gin.H{
		"gameId": game.ID,
		"slug":   game.Slug,
	}); err != nil {
		log.Printf("audit event failed type=game.deleted err=%v", err)
	}
	c.Status(http.StatusNoContent)
}

// requireOwnedGame loads a game by slug and enforces the ownership rule
// shared by every mutating game route: 404 when the game is missing,
// 403 when the requester is neither its developer nor an admin.
func (s *Server) requireOwnedGame(c *gin.Context, slug string) (*db.Game, bool) {
	var game db.Game
	if err := s.db.Where("slug = ?", slug).First(&game).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondStatusText(c, http.StatusNotFound)
			return nil, false
		}
		respondStatusText(c, http.StatusInternalServerError)
		return nil, false
	}
	user := currentUser(c)
	if game.UserID != user.ID && !isAdmin(user) {
		respondStatusText(c, http.StatusForbidden)
		return nil, false
	}
	return &game, true
}

// deleteGameCascade removes a game, its versions and scores, and the
// extracted directory tree under the public games root.
func (s *Server) deleteGameCascade(game *db.Game) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var versionIDs []uint
		if err := tx.Model(&db.GameVersion{}).Where("game_id = ?", game.ID).
			Pluck("id", &versionIDs).Error; err != nil {
			return err
		}
		if len(versionIDs) > 0 {
			if err := tx.Where("game_version_id IN ?", versionIDs).Delete(&db.Score{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("game_id = ?", game.ID).Delete(&db.GameVersion{}).Error; err != nil {
			return err
		}
		return tx.Delete(game).Error
	})
	if err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(s.cfg.PublicDir, "games", game.Slug))
}
