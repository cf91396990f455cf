// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable: clients branch on them for
// programmatic error handling, while the accompanying message stays
// human-readable. Generic codes mirror common HTTP status semantics;
// domain-specific codes cover outcomes a status alone cannot convey
// (a paid message awaiting confirmation, a locked login identity).
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeLocked               = "login_locked"
	ErrCodePaymentRequired      = "insufficient_stars"
	ErrCodeConfirmationRequired = "confirmation_required"
	ErrCodeSendFailed           = "send_failed"
	ErrCodeListFailed           = "list_failed"
	ErrCodeMethodNotAllowed     = "method_not_allowed"
)
