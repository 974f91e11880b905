package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"playx/internal/db"

	"github.com/gin-gonic/gin"
)

type eventPayload struct {
	ID        uint            `json:"id"`
	Type      string          `json:"type"`
	ActorID   string          `json:"actorId,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// handleListEvents returns the newest audit events for the admin
// dashboard.
func (s *Server) handleListEvents(c *gin.Context) {
	limit := 50
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			limit = value
		}
	}
	events, err := db.RecentEvents(s.db, limit)
	if err != nil {
		log.Printf("event list failed err=%v", err)
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	payloads := make([]eventPayload, 0, len(events))
	for _, event := range events {
		payloads = append(payloads, eventPayload{
			ID:        event.ID,
			Type:      event.Type,
			ActorID:   event.ActorID,
			Payload:   json.RawMessage(event.Payload),
			CreatedAt: event.CreatedAt,
		})
	}
	respondData(c, http.StatusOK, payloads)
}
