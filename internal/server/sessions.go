package server

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"time"

	"playx/internal/db"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const sessionCookieName = "playx_session"

type sessionStore struct {
	db  *gorm.DB
	ttl time.Duration
}

func newSessionStore(conn *gorm.DB, ttl time.Duration) *sessionStore {
	if ttl <= 0 {
		ttl = 24 * 7 * time.Hour
	}
	return &sessionStore{db: conn, ttl: ttl}
}

// Create stores a new session row for the user and sets the cookie.
func (s *sessionStore) Create(c *gin.Context, userID string) (db.Session, error) {
	session := db.Session{
		Token:     newSessionToken(),
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(s.ttl),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if err := s.db.Create(&session).Error; err != nil {
		return db.Session{}, err
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ttl.Seconds()),
	})
	return session, nil
}

// Resolve returns the session and its user for the request cookie, or
// nothing when the cookie is absent, unknown, or expired.
func (s *sessionStore) Resolve(c *gin.Context) (*db.Session, *db.User) {
	cookie, err := c.Request.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}
	var session db.Session
	if err := s.db.Where("token = ?", cookie.Value).First(&session).Error; err != nil {
		return nil, nil
	}
	if time.Now().UTC().After(session.ExpiresAt) {
		_ = s.db.Delete(&session).Error
		return nil, nil
	}
	var user db.User
	if err := s.db.Where("id = ?", session.UserID).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		// Session outlived its user; drop it.
		_ = s.db.Delete(&session).Error
		return nil, nil
	}
	return &session, &user
}

// Destroy removes the request's session row and expires the cookie.
func (s *sessionStore) Destroy(c *gin.Context) {
	if cookie, err := c.Request.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		_ = s.db.Where("token = ?", cookie.Value).Delete(&db.Session{}).Error
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// RevokeUser deletes every session for a user, e.g. after a ban.
func (s *sessionStore) RevokeUser(userID string) error {
	return s.db.Where("user_id = ?", userID).Delete(&db.Session{}).Error
}

func newSessionToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("sess-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("%x", buf)
}
