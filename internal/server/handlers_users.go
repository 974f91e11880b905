package server

import (
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"playx/internal/db"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type userPayload struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	EmailVerified bool       `json:"emailVerified"`
	Image         string     `json:"image"`
	Role          string     `json:"role"`
	Banned        bool       `json:"banned"`
	BanReason     string     `json:"banReason,omitempty"`
	LastLoginAt   *time.Time `json:"lastLoginAt"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func userPayloadFrom(user *db.User) userPayload {
	return userPayload{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		Image:         user.Image,
		Role:          user.Role,
		Banned:        user.Banned,
		BanReason:     user.BanReason,
		LastLoginAt:   user.LastLoginAt,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}

type userIDParam struct {
	ID string `uri:"id" binding:"required"`
}

func (s *Server) handleListUsers(c *gin.Context) {
	var users []db.User
	if err := s.db.Order("created_at ASC").Find(&users).Error; err != nil {
		log.Printf("user list failed err=%v", err)
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	payloads := make([]userPayload, 0, len(users))
	for i := range users {
		payloads = append(payloads, userPayloadFrom(&users[i]))
	}
	respondData(c, http.StatusOK, payloads)
}

type roleCount struct {
	Role  string `json:"role"`
	Total int64  `json:"total"`
}

type statusCount struct {
	Status string `json:"status"`
	Total  int64  `json:"total"`
}

func (s *Server) handleUserStats(c *gin.Context) {
	var totalUsers, bannedUsers int64
	if err := s.db.Model(&db.User{}).Count(&totalUsers).Error; err != nil {
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	if err := s.db.Model(&db.User{}).Where("banned = ?", true).Count(&bannedUsers).Error; err != nil {
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	roles := make([]roleCount, 0, len(rolesByName))
	for _, role := range []Role{RoleUser, RoleDeveloper, RoleAdmin} {
		var total int64
		if err := s.db.Model(&db.User{}).Where("role = ?", role.String()).Count(&total).Error; err != nil {
			respondStatusText(c, http.StatusInternalServerError)
			return
		}
		roles = append(roles, roleCount{Role: role.String(), Total: total})
	}
	var totalGames int64
	if err := s.db.Model(&db.Game{}).Count(&totalGames).Error; err != nil {
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	var totalScores int64
	if err := s.db.Model(&db.Score{}).
		Select("COALESCE(SUM(score), 0)").Scan(&totalScores).Error; err != nil {
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	respondData(c, http.StatusOK, gin.H{
		"totalUsers":  totalUsers,
		"bannedUsers": bannedUsers,
		"roles":       roles,
		"status": []statusCount{
			{Status: "active", Total: totalUsers - bannedUsers},
			{Status: "banned", Total: bannedUsers},
		},
		"totalGames":  totalGames,
		"totalScores": totalScores,
	})
}

func (s *Server) handleGetUser(c *gin.Context) {
	var param userIDParam
	if !bindURI(c, &param) {
		return
	}
	requester := currentUser(c)

	var user db.User
	if err := s.db.Where("id = ?", param.ID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondStatusText(c, http.StatusNotFound)
			return
		}
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	if param.ID != requester.ID && !isAdmin(requester) {
		respondStatusText(c, http.StatusForbidden)
		return
	}
	respondData(c, http.StatusOK, userPayloadFrom(&user))
}

type createUserRequest struct {
	Name     string `json:"name" binding:"required,accountname"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,password"`
	Role     string `json:"role" binding:"required,anyrole"`
}

func (s *Server) handleCreateUser(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req, bindMessages{
		"Name":     {"required": "name is required", "accountname": "name is invalid"},
		"Email":    {"required": "email is required", "email": "email is invalid"},
		"Password": {"required": "password is required", "password": "password must be 5 to 72 characters"},
		"Role":     {"required": "role is required", "anyrole": "role must be user, developer or admin"},
	}, "invalid user") {
		return
	}
	name, _ := validateAccountName(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var existing db.User
	if err := s.db.Where("email = ?", email).First(&existing).Error; err == nil {
		respondMessage(c, http.StatusBadRequest, "User already exist")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	user := db.User{
		ID:    uuid.NewString(),
		Name:  name,
		Email: email,
		Role:  req.Role,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&db.Account{
			ID:         uuid.NewString(),
			ProviderID: db.ProviderCredential,
			UserID:     user.ID,
			Password:   string(hash),
		}).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			respondMessage(c, http.StatusBadRequest, "User already exist")
			return
		}
		log.Printf("user create failed email=%s err=%v", email, err)
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	if err := db.RecordEvent(s.db, "user.created", currentUser(c).ID, gin.H{
		"userId": user.ID,
		"role":   user.Role,
	}); err != nil {
		log.Printf("audit event failed type=user.created err=%v", err)
	}
	respondData(c, http.StatusCreated, userPayloadFrom(&user))
}

type patchUserRequest struct {
	Name  string                `form:"name" binding:"omitempty,accountname"`
	Role  string                `form:"role" binding:"omitempty,anyrole"`
	Image *multipart.FileHeader `form:"image"`
}

func (s *Server) handlePatchUser(c *gin.Context) {
	var param userIDParam
	if !bindURI(c, &param) {
		return
	}
	requester := currentUser(c)

	var user db.User
	if err := s.db.Where("id = ?", param.ID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondStatusText(c, http.StatusNotFound)
			return
		}
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	if param.ID != requester.ID && !isAdmin(requester) {
		respondStatusText(c, http.StatusForbidden)
		return
	}

	var req patchUserRequest
	if !bindForm(c, &req, bindMessages{
		"Name": {"accountname": "name is invalid"},
		"Role": {"anyrole": "role must be user, developer or admin"},
	}, "invalid user update") {
		return
	}

	updates := map[string]any{}
	if req.Name != "" {
		name, _ := validateAccountName(req.Name)
		updates["name"] = name
	}
	if req.Role != "" {
		if !isAdmin(requester) {
			respondStatusText(c, http.StatusForbidden)
			return
		}
		updates["role"] = req.Role
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
		if err := s.db.Model(&db.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			log.Printf("user update failed user=%s err=%v", user.ID, err)
			respondStatusText(c, http.StatusInternalServerError)
			return
		}
	}
	if err := s.db.Where("id = ?", user.ID).First(&user).Error; err != nil {
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	respondData(c, http.StatusOK, userPayloadFrom(&user))
}

func (s *Server) handleDeleteUser(c *gin.Context) {
	var param userIDParam
	if !bindURI(c, &param) {
		return
	}
	requester := currentUser(c)
	if param.ID != requester.ID && !isAdmin(requester) {
		respondStatusText(c, http.StatusForbidden)
		return
	}

	var user db.User
	if err := s.db.Where("id = ?", param.ID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondStatusText(c, http.StatusNotFound)
			return
		}
		respondStatusText(c, http.StatusInternalServerError)
		return
	}

	// A developer's catalog goes with the account, extracted trees included.
	var games []db.Game
	if err := s.db.Where("user_id = ?", user.ID).Find(&games).Error; err != nil {
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	for i := range games {
		if err := s.deleteGameCascade(&games[i]); err != nil {
			log.Printf("game cascade failed game=%s err=%v", games[i].Slug, err)
			respondStatusText(c, http.StatusInternalServerError)
			return
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&db.Session{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&db.Account{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&db.Score{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		log.Printf("user delete failed user=%s err=%v", user.ID, err)
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	if err := db.RecordEvent(s.db, "user.deleted", requester.ID, gin.H{"userId": user.ID}); err != nil {
		log.Printf("audit event failed type=user.deleted err=%v", err)
	}
	c.Status(http.StatusNoContent)
}

type banRequest struct {
	Reason string `json:"reason" binding:"required,max=280"`
}

func (s *Server) handleBanUser(c *gin.Context) {
	var param userIDParam
	if !bindURI(c, &param) {
		return
	}
	requester := currentUser(c)
	if param.ID == requester.ID {
		respondMessage(c, http.StatusBadRequest, "you cannot ban yourself")
		return
	}
	var req banRequest
	if !bindJSON(c, &req, bindMessages{
		"Reason": {"required": "reason is required", "max": "reason must be at most 280 characters"},
	}, "invalid ban request") {
		return
	}

	var user db.User
	if err := s.db.Where("id = ?", param.ID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondStatusText(c, http.StatusNotFound)
			return
		}
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	err := s.db.Model(&db.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"banned":     true,
		"ban_reason": strings.TrimSpace(req.Reason),
	}).Error
	if err != nil {
		log.Printf("ban failed user=%s err=%v", user.ID, err)
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	if err := s.sessions.RevokeUser(user.ID); err != nil {
		log.Printf("session revoke failed user=%s err=%v", user.ID, err)
	}
	if err := db.RecordEvent(s.db, "user.banned", requester.ID, gin.H{
		"userId": user.ID,
		"reason": req.Reason,
	}); err != nil {
		log.Printf("audit event failed type=user.banned err=%v", err)
	}
	user.Banned = true
	user.BanReason = strings.TrimSpace(req.Reason)
	respondData(c, http.StatusOK, userPayloadFrom(&user))
}

func (s *Server) handleUnbanUser(c *gin.Context) {
	var param userIDParam
	if !bindURI(c, &param) {
		return
	}
	var user db.User
	if err := s.db.Where("id = ?", param.ID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondStatusText(c, http.StatusNotFound)
			return
		}
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	err := s.db.Model(&db.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"banned":     false,
		"ban_reason": "",
	}).Error
	if err != nil {
		log.Printf("unban failed user=%s err=%v", user.ID, err)
		respondStatusText(c, http.StatusInternalServerError)
		return
	}
	if err := db.RecordEvent(s.db, "user.unbanned", currentUser(c).ID, gin.H{
		"userId": user.ID,
	}); err != nil {
		log.Printf("audit event failed type=user.unbanned err=%v", err)
	}
	user.Banned = false
	user.BanReason = ""
	respondData(c, http.StatusOK, userPayloadFrom(&user))
}

func isAdmin(user *db.User) bool {
	role, ok := ParseRole(user.Role)
	return ok && role == RoleAdmin
}
