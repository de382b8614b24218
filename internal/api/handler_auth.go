package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smart-factory-backend/internal/auth"
	"smart-factory-backend/internal/model"
	"smart-factory-backend/internal/mw"
)

type signupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Signup handles POST /auth/signup. Self-service accounts always get the
// operator role; elevated roles come from seeding or operations.
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	user := model.User{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         model.RoleOperator,
	}
	if err := h.store.CreateUser(c.Request.Context(), &user); err != nil {
		abortStoreError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login and issues a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil || !auth.VerifyPassword(req.Password, user.PasswordHash) {
		// Same response for unknown email and wrong password.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "bad credentials"})
		return
	}

	token, err := auth.NewToken(h.jwtSecret, user.ID, user.Role, h.tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	user, ok := mw.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, user)
}
