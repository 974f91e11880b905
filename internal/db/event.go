package db

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event is an audit record for account and catalog changes.
type Event struct {
	ID        uint           `gorm:"primaryKey"`
	Type      string         `gorm:"size:64;not null;index"`
	ActorID   string         `gorm:"size:36;index"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}

// RecordEvent appends an audit event. Audit writes never fail the
// operation being audited, so errors are returned for logging only.
func RecordEvent(conn *gorm.DB, eventType, actorID string, payload any) error {
	if conn == nil {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.Create(&Event{
		Type:    eventType,
		ActorID: actorID,
		Payload: datatypes.JSON(raw),
	}).Error
}

// RecentEvents returns the newest audit events, capped at limit.
func RecentEvents(conn *gorm.DB, limit int) ([]Event, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var events []Event
	err := conn.Order("id DESC").Limit(limit).Find(&events).Error
	return events, err
}
