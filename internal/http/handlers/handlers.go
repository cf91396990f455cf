// Handler wiring and shared request plumbing.
//
// Handlers are transport-thin: they validate and normalize inputs, delegate
// to application services, and translate service errors into the HTTP error
// taxonomy. The viewer identity travels in the X-User-ID header (the phone
// number established at login); endpoints other than registration and login
// reject requests without it.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sparkchat/sparkd/internal/domain"
	"github.com/sparkchat/sparkd/internal/repo"
	"github.com/sparkchat/sparkd/internal/services"
	"github.com/sparkchat/sparkd/internal/store"
	"github.com/sparkchat/sparkd/internal/utils"
)

// Handlers groups the HTTP endpoints for auth, chats, messages, profile,
// and directory search.
type Handlers struct {
	auth     *services.AuthService
	profiles *services.ProfileService
	messages *services.MessageService
	sessions *services.SessionManager
	st       *store.Store
}

// New constructs a Handlers instance bound to the given services.
func New(auth *services.AuthService, profiles *services.ProfileService, messages *services.MessageService, sessions *services.SessionManager, st *store.Store) *Handlers {
	return &Handlers{
		auth:     auth,
		profiles: profiles,
		messages: messages,
		sessions: sessions,
		st:       st,
	}
}

// viewerID extracts the authenticated viewer from the Gin context (set by
// upstream middleware) or the X-User-ID header. Returns false when no
// identity is present.
func viewerID(c *gin.Context) (string, bool) {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	if h := c.GetHeader("X-User-ID"); h != "" {
		return h, true
	}
	return "", false
}

// requireViewer is the common guard for endpoints that need an identity.
// It writes a 401 and returns false when the header is missing.
func requireViewer(c *gin.Context) (string, bool) {
	v, ok := viewerID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "X-User-ID header required")
	}
	return v, ok
}

// sanitizeUser strips server-only fields before a user record leaves the API.
func sanitizeUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	out := *u
	out.PasswordHash = ""
	return &out
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// failService maps a service error onto the HTTP error taxonomy. It covers
// the sentinels shared by several endpoints; handlers deal with their own
// endpoint-specific errors before falling back here.
func failService(c *gin.Context, err error) {
	var locked *services.LockedError
	var confirm *services.ConfirmationRequiredError

	switch {
	case errors.As(err, &locked):
		fail(c, http.StatusLocked, ErrCodeLocked, "too many failed attempts, try again later")
	case errors.As(err, &confirm):
		failWithPrice(c, http.StatusConflict, ErrCodeConfirmationRequired,
			"this message costs stars, resend with confirm=true", confirm.Price)
	case errors.Is(err, services.ErrInsufficientStars):
		fail(c, http.StatusPaymentRequired, ErrCodePaymentRequired, "not enough stars to send this message")
	case errors.Is(err, services.ErrBadCredentials):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid phone or password")
	case errors.Is(err, services.ErrUserExists):
		fail(c, http.StatusConflict, ErrCodeConflict, "phone number already registered")
	case errors.Is(err, services.ErrUsernameTaken):
		fail(c, http.StatusConflict, ErrCodeConflict, "username already taken")
	case errors.Is(err, services.ErrNotSender):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "only the sender can delete a message")
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrChatNotFound),
		errors.Is(err, services.ErrMessageNotFound),
		errors.Is(err, repo.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "resource not found")
	case errors.Is(err, services.ErrInvalidPhone),
		errors.Is(err, services.ErrFirstNameRequired),
		errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, services.ErrPasswordMismatch),
		errors.Is(err, services.ErrEmptyMessage),
		errors.Is(err, services.ErrTooLong),
		errors.Is(err, services.ErrInvalidAmount):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
