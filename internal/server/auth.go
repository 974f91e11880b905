package server

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"playx/internal/db"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required,accountname"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,password"`
	Role     string `json:"role" binding:"omitempty,signuprole"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

var registerMessages = bindMessages{
	"Name":     {"required": "name is required", "accountname": "name is invalid"},
	"Email":    {"required": "email is required", "email": "email is invalid"},
	"Password": {"required": "password is required", "password": "password must be 5 to 72 characters"},
	"Role":     {"signuprole": "role must be user or developer"},
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req, registerMessages, "invalid registration") {
		return
	}
	name, _ := validateAccountName(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	role := RoleUser
	if req.Role != "" {
		role, _ = ParseRole(req.Role)
	}

	var existing db.User
	err := s.db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		respondMessage(c, http.StatusBadRequest, "User already exist")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("register lookup failed email=%s err=%v", email, err)
		respondStatusText(c, http.StatusInternalServerError)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("password hash failed err=%v", err)
		respondStatusText(c, http.StatusInternalServerError)
		return
	}

	user := db.User{
		ID:    uuid.NewString(),
		Name:  name,
		Email: email,
		Role:  role.String(),
	}
	account := db.Account{
		ID:         uuid.NewString(),
		ProviderID: db.ProviderCredential,
		UserID:     user.ID,
		Password:   string(hash),
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&account).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			respondMessage(c, http.StatusBadRequest, "User already exist")
			return
		}
		log.Printf("register failed email=%s err=%v", email, err)
		respondStatusText(c, http.StatusInternalServerError)
		return
	}

	if err := s.signIn(c, &user); err != nil {
		log.Printf("post-register sign-in failed user=%s err=%v", user.ID, err)
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	respondData(c, http.StatusCreated, userPayloadFrom(&user))
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req, bindMessages{
		"Email":    {"required": "email is required", "email": "email is invalid"},
		"Password": {"required": "password is required"},
	}, "invalid credentials") {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user db.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondMessage(c, http.StatusUnauthorized, "invalid email or password")
			return
		}
		log.Printf("login lookup failed email=%s err=%v", email, err)
		respondStatusText(c, http.StatusInternalServerError)
		return
	}

	var account db.Account
	err := s.db.Where("user_id = ? AND provider_id = ?", user.ID, db.ProviderCredential).
		First(&account).Error
	if err != nil {
		respondMessage(c, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.Password)) != nil {
		respondMessage(c, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if user.Banned {
		message := "account is banned"
		if user.BanReason != "" {
			message += ": " + user.BanReason
		}
		respondMessage(c, http.StatusForbidden, message)
		return
	}

	if err := s.signIn(c, &user); err != nil {
		log.Printf("sign-in failed user=%s err=%v", user.ID, err)
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	respondData(c, http.StatusOK, userPayloadFrom(&user))
}

// signIn creates the session, sets the cookie, and stamps lastLoginAt.
func (s *Server) signIn(c *gin.Context, user *db.User) error {
	if _, err := s.sessions.Create(c, user.ID); err != nil {
		return err
	}
	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := s.db.Model(&db.User{}).Where("id = ?", user.ID).
		Update("last_login_at", now).Error; err != nil {
		return err
	}
	if err := db.RecordEvent(s.db, "user.signed_in", user.ID, gin.H{"email": user.Email}); err != nil {
		log.Printf("audit event failed type=user.signed_in err=%v", err)
	}
	return nil
}

func (s *Server) handleLogout(c *gin.Context) {
	s.sessions.Destroy(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSession(c *gin.Context) {
	session, user := s.sessions.Resolve(c)
	if user == nil {
		respondData(c, http.StatusOK, nil)
		return
	}
	respondData(c, http.StatusOK, gin.H{
		"user": userPayloadFrom(user),
		"session": gin.H{
			"expiresAt": session.ExpiresAt,
			"createdAt": session.CreatedAt,
		},
	})
}
