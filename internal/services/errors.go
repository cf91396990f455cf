// Package services defines the business logic for accounts, chats, and
// messages. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked
// by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import (
	"errors"
	"fmt"
	"time"
)

// Account-related errors.
var (
	// ErrInvalidPhone is returned when a phone number does not look like
	// a country-coded number.
	ErrInvalidPhone = errors.New("invalid phone number")

	// ErrUserExists indicates the phone number is already registered.
	ErrUserExists = errors.New("user already exists")

	// ErrUserNotFound indicates that no account exists for the phone number.
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameTaken indicates another account already claims the username.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrFirstNameRequired is returned when registration omits a first name.
	ErrFirstNameRequired = errors.New("first name is required")

	// ErrPasswordTooShort is returned when a password is under four characters.
	ErrPasswordTooShort = errors.New("password too short")

	// ErrPasswordMismatch is returned when the password confirmation differs.
	ErrPasswordMismatch = errors.New("passwords do not match")

	// ErrBadCredentials indicates a wrong password for an existing account.
	ErrBadCredentials = errors.New("bad credentials")
)

// Chat and message errors.
var (
	// ErrChatNotFound indicates that the requested chat does not exist
	// for the current viewer.
	ErrChatNotFound = errors.New("chat not found")

	// ErrEmptyMessage is returned when a send request carries no content.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrTooLong is returned when message text exceeds the configured limit.
	ErrTooLong = errors.New("message too long")

	// ErrMessageNotFound indicates that the requested message does not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrNotSender is returned when a viewer tries to delete a message
	// they did not author.
	ErrNotSender = errors.New("only the sender can delete a message")

	// ErrInsufficientStars indicates the sender cannot cover the
	// receiver's message price. Nothing is debited or appended.
	ErrInsufficientStars = errors.New("insufficient stars")

	// ErrInvalidAmount is returned for non-positive star amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// LockedError is returned when login attempts are blocked for an
// identity until the given time.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.UTC().Format(time.RFC3339))
}

// ConfirmationRequiredError is returned when a send targets a priced
// receiver and the request did not carry the confirmation flag. The
// price is echoed so the caller can prompt.
type ConfirmationRequiredError struct {
	Price int
}

func (e *ConfirmationRequiredError) Error() string {
	return fmt.Sprintf("sending costs %d stars, confirmation required", e.Price)
}
