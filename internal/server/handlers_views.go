package server

import (
	"errors"
	"log"
	"net/http"

	"playx/internal/db"
	"playx/internal/web"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const homeCatalogSize = 12

func (s *Server) handleHome(c *gin.Context) {
	var games []db.Game
	err := s.db.
		Where("EXISTS (SELECT 1 FROM game_versions gv WHERE gv.game_id = games.id)").
		Order("created_at DESC").
		Limit(homeCatalogSize).
		Find(&games).Error
	if err != nil {
		log.Printf("home catalog failed err=%v", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	payloads, err := s.gamePayloads(games)
	if err != nil {
		log.Printf("home aggregates failed err=%v", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	cards := make([]web.GameCard, 0, len(payloads))
	for _, payload := range payloads {
		cards = append(cards, web.GameCard{
			Title:        payload.Title,
			Slug:         payload.Slug,
			Description:  payload.Description,
			Image:        payload.Image,
			TotalPlayers: payload.TotalPlayers,
			ScoreCount:   payload.ScoreCount,
		})
	}
	templ.Handler(web.Home(viewUserName(c), cards)).ServeHTTP(c.Writer, c.Request)
}

func (s *Server) handlePlayView(c *gin.Context) {
	slug := c.Param("slug")
	var game db.Game
	if err := s.db.Where("slug = ?", slug).First(&game).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.Redirect(http.StatusFound, "/")
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}
	var latest db.GameVersion
	if err := s.db.Where("game_id = ?", game.ID).Order("id DESC").First(&latest).Error; err != nil {
		log.Printf("play view missing version slug=%s", slug)
		c.Redirect(http.StatusFound, "/")
		return
	}
	templ.Handler(web.Play(viewUserName(c), web.PlayData{
		Title:       game.Title,
		Slug:        game.Slug,
		Description: game.Description,
		EntryPath:   latest.Path,
		VersionID:   latest.ID,
		Version:     latest.Version,
	})).ServeHTTP(c.Writer, c.Request)
}

func (s *Server) handleLoginView(c *gin.Context) {
	if currentUser(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	templ.Handler(web.Login()).ServeHTTP(c.Writer, c.Request)
}

func (s *Server) handleRegisterView(c *gin.Context) {
	if currentUser(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	templ.Handler(web.Register()).ServeHTTP(c.Writer, c.Request)
}

func (s *Server) handleDeveloperView(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	role, ok := ParseRole(user.Role)
	if !ok || !Can(role, ActionPublishGames) {
		c.Redirect(http.StatusFound, "/")
		return
	}
	templ.Handler(web.Developer(user.Name, user.ID)).ServeHTTP(c.Writer, c.Request)
}

func viewUserName(c *gin.Context) string {
	if user := currentUser(c); user != nil {
		return user.Name
	}
	return ""
}
