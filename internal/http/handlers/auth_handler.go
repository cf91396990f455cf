// Auth HTTP handlers.
//
// This file exposes the sign-up and login endpoints:
//   - POST /auth/register
//   - POST /auth/login
//
// Both return the directory record (without the password hash) on success.
// Login failures against an existing identity count toward a temporary
// lockout; a locked identity gets 423 with a stable error code regardless of
// whether the password was correct.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sparkchat/sparkd/internal/domain"
	"github.com/sparkchat/sparkd/internal/services"
)

// RegisterRequest is the JSON payload for creating an account.
type RegisterRequest struct {
	Phone          string `json:"phone" binding:"required" example:"+380501234567"`
	FirstName      string `json:"firstName" binding:"required" example:"Olena"`
	LastName       string `json:"lastName" example:"Kovalenko"`
	Username       string `json:"username" example:"olena"`
	Password       string `json:"password" binding:"required" example:"s3cret"`
	PasswordRepeat string `json:"passwordRepeat" binding:"required" example:"s3cret"`
	AvatarURL      string `json:"avatarUrl"`
}

// LoginRequest is the JSON payload for logging in.
type LoginRequest struct {
	Phone    string `json:"phone" binding:"required" example:"+380501234567"`
	Password string `json:"password" binding:"required" example:"s3cret"`
}

// AuthResponse wraps the authenticated user record.
type AuthResponse struct {
	User *domain.User `json:"user"`
}

// Register godoc
// @ID          register
// @Summary     Create an account
// @Description Registers a phone number in the shared directory and returns the new profile.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.RegisterRequest  true  "Sign-up payload"
// @Success     201  {object}  handlers.AuthResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     409  {object}  handlers.ErrorResponse  "Phone or username taken"
// @Router      /auth/register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phone, firstName and password are required")
		return
	}

	u, err := h.auth.Register(c.Request.Context(), services.RegisterInput{
		Phone:          req.Phone,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Username:       req.Username,
		Password:       req.Password,
		PasswordRepeat: req.PasswordRepeat,
		AvatarURL:      req.AvatarURL,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, AuthResponse{User: sanitizeUser(u)})
}

// Login godoc
// @ID          login
// @Summary     Log in with phone and password
// @Description Verifies credentials against the directory. Repeated failures temporarily lock the identity.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.LoginRequest  true  "Login payload"
// @Success     200  {object}  handlers.AuthResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid credentials"
// @Failure     423  {object}  handlers.ErrorResponse  "Identity locked"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phone and password are required")
		return
	}

	u, err := h.auth.Login(c.Request.Context(), req.Phone, req.Password)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, AuthResponse{User: sanitizeUser(u)})
}
