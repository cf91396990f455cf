// Message HTTP handlers.
//
// This file exposes REST endpoints for the shared message log:
//   - POST   /chats/{id}/messages  (send a message into a conversation)
//   - GET    /chats/{id}/messages  (list paginated messages for a chat)
//   - DELETE /messages/{id}        (sender-only removal)
//
// Idempotency: if the client supplies an Idempotency-Key header and a
// previous successful send exists for (viewer, chat, key), the handler
// returns the recorded message and sets `Idempotency-Replayed: true`.
//
// Paid messages: sending to a receiver with a message price returns 409
// with the price until the client retries with confirm=true; the retry
// transfers the stars and appends the message atomically.
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sparkchat/sparkd/internal/domain"
	"github.com/sparkchat/sparkd/internal/http/middleware"
	"github.com/sparkchat/sparkd/internal/repo"
	"github.com/sparkchat/sparkd/internal/services"
)

// SendMessageRequest is the JSON payload for posting into a chat.
type SendMessageRequest struct {
	// Type defaults to "text". One of: text, image, sticker, gift.
	Type string `json:"type" example:"text"`
	// Text is required for text messages.
	Text string `json:"text" example:"Привет!"`
	// ImageURL is required for image messages.
	ImageURL string `json:"imageUrl"`
	// Confirm acknowledges the receiver's message price.
	Confirm bool `json:"confirm"`
}

// SendMessageResponse is the JSON envelope for an appended message.
type SendMessageResponse struct {
	Message *domain.Message `json:"message"`
}

// ListMessagesResponse contains a page of chat messages and pagination metadata.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// SendMessage godoc
// @ID          sendMessage
// @Summary     Send a message
// @Description Appends a message to the conversation. Text sent to the AI bot also schedules an assistant reply.
// @Description Supports idempotency via the Idempotency-Key header (same key, same result).
// @Tags        Messages
// @Accept      json
// @Produce     json
// @Param       X-User-ID        header  string  true   "Viewer phone number"  example(+380501234567)
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries"
// @Param       id               path    string  true   "Chat ID (partner phone, bot id, or synthetic id)"
// @Param       body             body    handlers.SendMessageRequest  true  "Message payload"
// @Success     201  {object}  handlers.SendMessageResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     402  {object}  handlers.ErrorResponse  "Not enough stars"
// @Failure     409  {object}  handlers.ErrorResponse  "Confirmation required (price in body)"
// @Router      /chats/{id}/messages [post]
func (h *Handlers) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	viewer, okv := requireViewer(c)
	if !okv {
		return
	}
	chatID := c.Param("id")

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	// Replay path: a recorded result for (viewer, chat, key) short-circuits
	// the send entirely, so retries never double-charge a paid message.
	idemKey, hasKey := middleware.GetIdempotencyKey(c)
	if hasKey {
		if rec, err := repo.GetIdempotency(ctx, h.st.DB(), viewer, chatID, idemKey, time.Now().UTC()); err == nil && rec != nil {
			if prev, err2 := repo.FindMessageByID(h.st, rec.MessageID); err2 == nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, http.StatusCreated, SendMessageResponse{Message: prev})
				return
			}
		}
	}

	m, err := h.messages.Send(ctx, services.SendInput{
		Sender:   viewer,
		ChatID:   chatID,
		Type:     req.Type,
		Text:     strings.TrimSpace(req.Text),
		ImageURL: req.ImageURL,
		Confirm:  req.Confirm,
	})
	if err != nil {
		failService(c, err)
		return
	}

	// Store path, best effort. A failed record only loses replay detection.
	if hasKey {
		_, _ = repo.CreateIdempotency(ctx, h.st.DB(), viewer, chatID, idemKey, m.ID, http.StatusCreated, 24*time.Hour)
	}

	ok(c, http.StatusCreated, SendMessageResponse{Message: m})
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List messages in a chat
// @Description Returns a paginated slice of the conversation between the viewer and the chat partner.
// @Tags        Messages
// @Produce     json
// @Param       X-User-ID  header  string  true   "Viewer phone number"  example(+380501234567)
// @Param       id         path    string  true   "Chat ID"
// @Param       page       query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListMessagesResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Router      /chats/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	viewer, okv := requireViewer(c)
	if !okv {
		return
	}
	page, pageSize := clampPagination(c)

	items, total, err := h.messages.ListPage(c.Request.Context(), viewer, c.Param("id"), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListMessagesResponse{
		Messages: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// DeleteMessage godoc
// @ID          deleteMessage
// @Summary     Delete a message
// @Description Removes a message from the shared log. Only the sender may delete it.
// @Tags        Messages
// @Param       X-User-ID  header  string  true  "Viewer phone number"  example(+380501234567)
// @Param       id         path    string  true  "Message ID"
// @Success     204  {string}  string  "No Content"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the sender"
// @Failure     404  {object}  handlers.ErrorResponse  "Message not found"
// @Router      /messages/{id} [delete]
func (h *Handlers) DeleteMessage(c *gin.Context) {
	viewer, okv := requireViewer(c)
	if !okv {
		return
	}
	if err := h.messages.Delete(c.Request.Context(), viewer, c.Param("id")); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}
