package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hopelink/internal/auth"
	"hopelink/internal/config"
	"hopelink/internal/models"
	"hopelink/internal/storage"
)

// AuthHandler serves registration, login and profile lookup.
type AuthHandler struct {
	users  *storage.UserRepository
	config *config.Config
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(users *storage.UserRepository, cfg *config.Config) *AuthHandler {
	return &AuthHandler{users: users, config: cfg}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *models.User `json:"user"`
}

// Register creates a caregiver account and returns an access token.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	existing, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "Failed to check existing user"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "Email already registered"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "Failed to create account"})
		return
	}

	user := &models.User{
		Email:        req.Email,
		Name:         req.Name,
		Phone:        req.Phone,
		PasswordHash: hash,
	}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "Failed to create account"})
		return
	}

	h.respondWithToken(c, http.StatusCreated, user)
}

// Login verifies credentials and returns an access token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "Failed to look up user"})
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: "Invalid email or password"})
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

// Me returns the authenticated caregiver's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), currentUserID(c))
	if err != nil || user == nil {
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: "Invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: user})
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, err := auth.NewToken(h.config.JWTSecret, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "Failed to issue token"})
		return
	}
	c.JSON(status, Response{Success: true, Data: tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	}})
}
