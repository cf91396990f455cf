// Profile HTTP handlers.
//
// This file exposes the viewer's own directory record:
//   - GET  /profile        (fetch)
//   - PUT  /profile        (partial update, absent fields stay untouched)
//   - POST /profile/stars  (top up the star balance)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sparkchat/sparkd/internal/services"
)

// UpdateProfileRequest is the JSON payload for a partial profile update.
// Pointer fields distinguish "clear this value" from "leave it alone".
type UpdateProfileRequest struct {
	FirstName    *string `json:"firstName"`
	LastName     *string `json:"lastName"`
	Username     *string `json:"username"`
	Bio          *string `json:"bio"`
	AvatarURL    *string `json:"avatarUrl"`
	StatusEmoji  *string `json:"statusEmoji"`
	Wallpaper    *string `json:"wallpaper"`
	MessagePrice *int    `json:"messagePrice"`
	IsPremium    *bool   `json:"isPremium"`
}

// AddStarsRequest is the JSON payload for a star top-up.
type AddStarsRequest struct {
	Amount int `json:"amount" binding:"required" example:"100"`
}

// GetProfile godoc
// @ID          getProfile
// @Summary     Get the viewer's profile
// @Tags        Profile
// @Produce     json
// @Param       X-User-ID  header  string  true  "Viewer phone number"  example(+380501234567)
// @Success     200  {object}  domain.User
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown viewer"
// @Router      /profile [get]
func (h *Handlers) GetProfile(c *gin.Context) {
	viewer, okv := requireViewer(c)
	if !okv {
		return
	}
	u, err := h.profiles.Get(c.Request.Context(), viewer)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, sanitizeUser(u))
}

// UpdateProfile godoc
// @ID          updateProfile
// @Summary     Update the viewer's profile
// @Description Merges the provided fields into the directory record. Username uniqueness is case-folded.
// @Tags        Profile
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  true  "Viewer phone number"  example(+380501234567)
// @Param       body       body    handlers.UpdateProfileRequest  true  "Fields to update"
// @Success     200  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     409  {object}  handlers.ErrorResponse  "Username taken"
// @Router      /profile [put]
func (h *Handlers) UpdateProfile(c *gin.Context) {
	viewer, okv := requireViewer(c)
	if !okv {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	u, err := h.profiles.Update(c.Request.Context(), viewer, services.UpdateProfileInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Username:     req.Username,
		Bio:          req.Bio,
		AvatarURL:    req.AvatarURL,
		StatusEmoji:  req.StatusEmoji,
		Wallpaper:    req.Wallpaper,
		MessagePrice: req.MessagePrice,
		IsPremium:    req.IsPremium,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, sanitizeUser(u))
}

// AddStars godoc
// @ID          addStars
// @Summary     Top up the star balance
// @Tags        Profile
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  true  "Viewer phone number"  example(+380501234567)
// @Param       body       body    handlers.AddStarsRequest  true  "Amount to add"
// @Success     200  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid amount"
// @Router      /profile/stars [post]
func (h *Handlers) AddStars(c *gin.Context) {
	viewer, okv := requireViewer(c)
	if !okv {
		return
	}

	var req AddStarsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "amount required")
		return
	}

	u, err := h.profiles.AddStars(c.Request.Context(), viewer, req.Amount)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, sanitizeUser(u))
}
