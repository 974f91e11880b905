package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"playx/internal/db"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type scorePayload struct {
	ID            uint         `json:"id"`
	UserID        string       `json:"userId"`
	GameVersionID uint         `json:"gameVersionId"`
	Score         int          `json:"score"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
	User          *userPayload `json:"user,omitempty"`
}

func scorePayloadFrom(score *db.Score) scorePayload {
	payload := scorePayload{
		ID:            score.ID,
		UserID:        score.UserID,
		GameVersionID: score.GameVersionID,
		Score:         score.Score,
		CreatedAt:     score.CreatedAt,
		UpdatedAt:     score.UpdatedAt,
	}
	if score.User != nil {
		user := userPayloadFrom(score.User)
		payload.User = &user
	}
	return payload
}

// handleListScores returns the leaderboard for a game's latest version.
func (s *Server) handleListScores(c *gin.Context) {
	var param slugParam
	if !bindURI(c, &param) {
		return
	}
	var game db.Game
	if err := s.db.Where("slug = ?", param.Slug).First(&game).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondStatusText(c, http.StatusNotFound)
			return
		}
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	var latest db.GameVersion
	err := s.db.Where("game_id = ?", game.ID).Order("id DESC").First(&latest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No playable build yet, so no leaderboard either.
			respondStatusText(c, http.StatusNotFound)
			return
		}
		respondStatusText(c, http.StatusInternalServerError)
		return
	}

	var scores []db.Score
	err = s.db.Where("game_version_id = ?", latest.ID).
		Order("score DESC").
		Preload("User").
		Find(&scores).Error
	if err != nil {
		log.Printf("score list failed slug=%s err=%v", param.Slug, err)
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	payloads := make([]scorePayload, 0, len(scores))
	for i := range scores {
		payloads = append(payloads, scorePayloadFrom(&scores[i]))
	}
	respondData(c, http.StatusOK, payloads)
}

type createScoreRequest struct {
	GameVersionID uint `json:"gameVersionId" binding:"required"`
	Score         int  `json:"score" binding:"required,gt=0"`
}

var createScoreMessages = bindMessages{
	"GameVersionID": {"required": "gameVersionId is required"},
	"Score":         {"required": "score is required", "gt": "score must be a positive number"},
}

// handleCreateScore upserts the requester's score for one game version.
// Re-submission replaces the stored value, it never accumulates.
func (s *Server) handleCreateScore(c *gin.Context) {
	var param slugParam
	if !bindURI(c, &param) {
		return
	}
	var req createScoreRequest
	if !bindJSON(c, &req, createScoreMessages, "invalid score") {
		return
	}
	if req.Score > maxScoreValue {
		respondMessage(c, http.StatusBadRequest, "score is out of range")
		return
	}
	user := currentUser(c)

	var game db.Game
	if err := s.db.Where("slug = ?", param.Slug).First(&game).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondStatusText(c, http.StatusNotFound)
			return
		}
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	var version db.GameVersion
	err := s.db.Where("id = ? AND game_id = ?", req.GameVersionID, game.ID).First(&version).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondStatusText(c, http.StatusNotFound)
			return
		}
		respondStatusText(c, http.StatusInternalServerError)
		return
	}

	score := db.Score{
		UserID:        user.ID,
		GameVersionID: version.ID,
		Score:         req.Score,
	}
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_version_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{"score": req.Score, "updated_at": time.Now().UTC()}),
	}).Create(&score).Error
	if err != nil {
		log.Printf("score upsert failed user=%s version=%d err=%v", user.ID, version.ID, err)
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	// The upserted row id is not reported on conflict, so read it back.
	var stored db.Score
	if err := s.db.Where("user_id = ? AND game_version_id = ?", user.ID, version.ID).
		First(&stored).Error; err != nil {
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	respondData(c, http.StatusOK, scorePayloadFrom(&stored))
}
