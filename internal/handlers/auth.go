package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/fuckdb/fuckdb-backend/internal/apierr"
	"github.com/fuckdb/fuckdb-backend/internal/services"
	"github.com/fuckdb/fuckdb-backend/internal/types"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid signup payload: %v", err))
		return
	}
	user := &types.User{Email: req.Email, Password: req.Password, FullName: req.FullName}
	created, err := h.authService.Signup(c.Request.Context(), user)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, "account created", gin.H{"user": created})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid login payload: %v", err))
		return
	}
	access, refresh, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondError(c, err)
		return
	}
	// Session cookie for the web app; the body carries both tokens for API
	// clients.
	c.SetCookie("session", access, 0, "/", "", false, true)
	RespondOK(c, "logged in", gin.H{
		"access_token":  access,
		"refresh_token": refresh,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context()); err != nil {
		RespondError(c, err)
		return
	}
	c.SetCookie("session", "", -1, "/", "", false, true)
	RespondOK(c, "logged out", nil)
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.Me(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, "", gin.H{"user": user})
}
