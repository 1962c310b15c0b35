package api

import (
	"net/http"
	"strings"
	"time"

	"agentmarket/server/internal/auth"
	"agentmarket/server/internal/models"
	"agentmarket/server/internal/profiles"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RegisterRequest represents a signup request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name"`
}

// Register creates a user account and issues a token.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing models.User
	if err := h.db.First(&existing, "email = ?", req.Email).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create account"})
		return
	}

	now := time.Now()
	user := &models.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.db.Create(user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create account"})
		return
	}

	profile, err := h.profiles.Ensure(c.Request.Context(), user.ID, req.FullName)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.jwt.GenerateToken(c.Request.Context(), user.ID, user.Email, profile.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":   token,
		"user_id": user.ID,
		"role":    profile.Role,
	})
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates a user and issues a token.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.First(&user, "email = ?", req.Email).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	// Profiles are created lazily: a first login after an out-of-band
	// signup still gets one.
	profile, err := h.profiles.Ensure(c.Request.Context(), user.ID, "")
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.jwt.GenerateToken(c.Request.Context(), user.ID, user.Email, profile.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"user_id":   user.ID,
		"role":      profile.Role,
		"dashboard": profiles.DashboardPathFor(profile.Role),
	})
}

// Refresh exchanges the caller's current token for a fresh one with a
// new expiry. The presented token must still be valid.
func (h *Handler) Refresh(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

	refreshed, err := h.jwt.RefreshToken(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": refreshed})
}

// Me returns the caller's profile and dashboard path.
func (h *Handler) Me(c *gin.Context) {
	caller := auth.FromGin(c)

	profile, err := h.profiles.Ensure(c.Request.Context(), caller.UserID, "")
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":   profile,
		"dashboard": profiles.DashboardPathFor(profile.Role),
	})
}
