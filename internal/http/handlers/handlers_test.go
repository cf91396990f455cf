package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/sparkchat/sparkd/internal/domain"
	"github.com/sparkchat/sparkd/internal/services"
)

func ctxWithRequest(t *testing.T, target string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func TestViewerID_SourcesAndPrecedence(t *testing.T) {
	c, _ := ctxWithRequest(t, "/")

	if v, ok := viewerID(c); ok || v != "" {
		t.Fatalf("expected no identity, got %q", v)
	}

	c.Request.Header.Set("X-User-ID", "+380501112233")
	if v, ok := viewerID(c); !ok || v != "+380501112233" {
		t.Fatalf("header identity: %q ok=%v", v, ok)
	}

	// Context identity set by upstream middleware wins over the header.
	c.Set("userID", "+380671114455")
	if v, _ := viewerID(c); v != "+380671114455" {
		t.Fatalf("context identity should win, got %q", v)
	}
}

func TestRequireViewer_WritesUnauthorized(t *testing.T) {
	c, w := ctxWithRequest(t, "/")

	if _, ok := requireViewer(c); ok {
		t.Fatal("expected missing identity")
	}
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if body.Code != ErrCodeUnauthorized {
		t.Fatalf("code = %q", body.Code)
	}
}

func TestSanitizeUser_StripsPasswordHash(t *testing.T) {
	u := &domain.User{PhoneNumber: "+380501112233", PasswordHash: "secret"}
	out := sanitizeUser(u)
	if out.PasswordHash != "" {
		t.Fatal("hash survived sanitize")
	}
	if u.PasswordHash != "secret" {
		t.Fatal("sanitize mutated the input")
	}
	if sanitizeUser(nil) != nil {
		t.Fatal("nil should stay nil")
	}
}

func TestClampPagination(t *testing.T) {
	cases := []struct {
		query      string
		page, size int
	}{
		{"", 1, 20},
		{"?page=3&page_size=50", 3, 50},
		{"?page=-1&page_size=0", 1, 1},
		{"?page_size=9999", 1, 100},
		{"?page=x&page_size=y", 1, 20},
	}
	for _, tc := range cases {
		c, _ := ctxWithRequest(t, "/"+tc.query)
		p, s := clampPagination(c)
		if p != tc.page || s != tc.size {
			t.Errorf("clampPagination(%q) = (%d,%d), want (%d,%d)", tc.query, p, s, tc.page, tc.size)
		}
	}
}

func TestFailService_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"locked", &services.LockedError{}, http.StatusLocked, ErrCodeLocked},
		{"confirmation", &services.ConfirmationRequiredError{Price: 7}, http.StatusConflict, ErrCodeConfirmationRequired},
		{"insufficient stars", services.ErrInsufficientStars, http.StatusPaymentRequired, ErrCodePaymentRequired},
		{"bad credentials", services.ErrBadCredentials, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"user exists", services.ErrUserExists, http.StatusConflict, ErrCodeConflict},
		{"username taken", services.ErrUsernameTaken, http.StatusConflict, ErrCodeConflict},
		{"not sender", services.ErrNotSender, http.StatusForbidden, ErrCodeForbidden},
		{"user not found", services.ErrUserNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"message not found", services.ErrMessageNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"invalid phone", services.ErrInvalidPhone, http.StatusBadRequest, ErrCodeBadRequest},
		{"too long", services.ErrTooLong, http.StatusBadRequest, ErrCodeBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, w := ctxWithRequest(t, "/")
			failService(c, tc.err)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d", w.Code, tc.status)
			}
			var body ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("bad json: %v", err)
			}
			if body.Code != tc.code {
				t.Fatalf("code = %q, want %q", body.Code, tc.code)
			}
		})
	}
}

func TestFailService_ConfirmationCarriesPrice(t *testing.T) {
	c, w := ctxWithRequest(t, "/")
	failService(c, &services.ConfirmationRequiredError{Price: 42})

	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if body.Price != 42 {
		t.Fatalf("price = %d, want 42", body.Price)
	}
}
