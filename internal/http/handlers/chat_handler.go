// Chat HTTP handlers.
//
// This file exposes REST endpoints for the viewer's chat list:
//   - GET  /chats            (current projected chat list)
//   - POST /chats            (create a local channel or group)
//   - POST /chats/{id}/read  (mark a conversation read)
//
// The chat list is served from the viewer's session snapshot; the first GET
// for a viewer starts their reconciler, which keeps the projection fresh in
// the background from then on.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sparkchat/sparkd/internal/domain"
	"github.com/sparkchat/sparkd/internal/services"
)

// CreateChatRequest is the JSON payload for the channel/group wizard.
type CreateChatRequest struct {
	// Name is the channel or group title.
	Name string `json:"name" binding:"required,min=1,max=255" example:"Go Kyiv"`
	// Type selects "channel" (default) or "group".
	Type        string `json:"type" example:"channel"`
	Description string `json:"description"`
	AvatarURL   string `json:"avatarUrl"`
	// Link becomes a t.me/ short link when set.
	Link    string `json:"link" example:"gokyiv"`
	Privacy string `json:"privacy" example:"public"`
}

// ListChatsResponse wraps the viewer's projected chat list.
type ListChatsResponse struct {
	Chats []domain.Chat `json:"chats"`
}

// ListChats godoc
// @ID          listChats
// @Summary     List the viewer's chats
// @Description Returns the projected chat list: bot chats first, then conversations by recency.
// @Tags        Chats
// @Produce     json
// @Param       X-User-ID  header  string  true  "Viewer phone number"  example(+380501234567)
// @Success     200  {object}  handlers.ListChatsResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Router      /chats [get]
func (h *Handlers) ListChats(c *gin.Context) {
	viewer, okv := requireViewer(c)
	if !okv {
		return
	}
	sess := h.sessions.Session(viewer)
	ok(c, http.StatusOK, ListChatsResponse{Chats: sess.Snapshot()})
}

// CreateChat godoc
// @ID          createChat
// @Summary     Create a channel or group
// @Description Creates a local channel/group visible to this viewer. It becomes shared once someone posts into it.
// @Tags        Chats
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  true  "Viewer phone number"  example(+380501234567)
// @Param       body       body    handlers.CreateChatRequest  true  "Chat payload"
// @Success     201  {object}  domain.Chat
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Router      /chats [post]
func (h *Handlers) CreateChat(c *gin.Context) {
	viewer, okv := requireViewer(c)
	if !okv {
		return
	}

	var req CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required (1-255 chars)")
		return
	}

	sess := h.sessions.Session(viewer)
	chat := sess.CreateLocalChat(services.CreateChatInput{
		Name:        strings.TrimSpace(req.Name),
		Type:        req.Type,
		Description: req.Description,
		AvatarURL:   req.AvatarURL,
		Link:        req.Link,
		Privacy:     req.Privacy,
	})
	ok(c, http.StatusCreated, chat)
}

// MarkChatRead godoc
// @ID          markChatRead
// @Summary     Mark a conversation read
// @Description Flags every unread message from the partner in this chat as read.
// @Tags        Chats
// @Param       X-User-ID  header  string  true  "Viewer phone number"  example(+380501234567)
// @Param       id         path    string  true  "Chat ID (partner phone, bot id, or synthetic id)"
// @Success     204  {string}  string  "No Content"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Router      /chats/{id}/read [post]
func (h *Handlers) MarkChatRead(c *gin.Context) {
	viewer, okv := requireViewer(c)
	if !okv {
		return
	}
	if err := h.messages.MarkChatRead(c.Request.Context(), viewer, c.Param("id")); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}
