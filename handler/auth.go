package handler

import (
	"errors"
	"net/http"

	"github.com/SachinGupta0206/saas-contracts-dashboard/middleware"
	"github.com/SachinGupta0206/saas-contracts-dashboard/model"
	"github.com/SachinGupta0206/saas-contracts-dashboard/pkg/logger"
	"github.com/SachinGupta0206/saas-contracts-dashboard/service"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	sessions *service.SessionStore
}

func NewAuthHandler(sessions *service.SessionStore) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string         `json:"token"`
	User  model.Identity `json:"user"`
}

// Login signs in with the shared password
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ctx := c.Request.Context()
	identity, err := h.sessions.SignIn(ctx, req.Username, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		logger.Warn(ctx, "login rejected", "username", req.Username)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		logger.Error(ctx, "login failed", "username", req.Username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start session"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token: h.sessions.Token(),
		User:  identity,
	})
}

// Logout ends the session
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.SignOut(c.Request.Context()); err != nil {
		// Memory is already cleared; the token no longer authenticates.
		logger.Error(c.Request.Context(), "failed to clear persisted session", "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

// GetCurrentUser returns the signed-in identity
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not signed in"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": identity})
}
