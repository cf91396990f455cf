// Package services – AuthService
//
// This file implements AuthService, which owns registration, login, and
// the failed-attempt lockout guard. Passwords are stored as bcrypt
// hashes in the shared directory document. A configured admin identity
// is bootstrapped on its first successful login.
package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sparkchat/sparkd/internal/domain"
	"github.com/sparkchat/sparkd/internal/repo"
	"github.com/sparkchat/sparkd/internal/store"
)

// AuthService provides registration and login over the shared
// directory and the login guard document.
type AuthService struct {
	Store *store.Store

	// Lockout policy.
	MaxAttempts   int
	BlockDuration time.Duration

	// Admin bootstrap identity. Empty disables the path.
	AdminPhone    string
	AdminPassword string

	// BcryptCost defaults to bcrypt.DefaultCost when zero.
	BcryptCost int

	// Now is overridable in tests; defaults to time.Now.
	Now func() time.Time
}

// RegisterInput carries the fields collected during sign-up.
type RegisterInput struct {
	Phone          string
	FirstName      string
	LastName       string
	Username       string
	Password       string
	PasswordRepeat string
	AvatarURL      string
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) cost() int {
	if s.BcryptCost > 0 {
		return s.BcryptCost
	}
	return bcrypt.DefaultCost
}

// Register creates a new directory record for the given phone number.
// The phone must be country-coded, the password at least four
// characters and confirmed, and the username (if any) free.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	tr := otel.Tracer("services/AuthService")
	_, span := tr.Start(ctx, "Register",
		trace.WithAttributes(attribute.String("user.phone", redactPhone(in.Phone))),
	)
	defer span.End()

	phone := strings.TrimSpace(in.Phone)
	if !validPhone(phone) {
		return nil, ErrInvalidPhone
	}
	if strings.TrimSpace(in.FirstName) == "" {
		return nil, ErrFirstNameRequired
	}
	if utf8.RuneCountInString(in.Password) < 4 {
		return nil, ErrPasswordTooShort
	}
	if in.Password != in.PasswordRepeat {
		return nil, ErrPasswordMismatch
	}

	if _, err := repo.FindUserByPhone(s.Store, phone); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	if in.Username != "" {
		taken, err := repo.UsernameExists(s.Store, in.Username, phone)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrUsernameTaken
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost())
	if err != nil {
		return nil, err
	}

	u := domain.User{
		PhoneNumber:  phone,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Username:     strings.TrimSpace(in.Username),
		AvatarURL:    in.AvatarURL,
		Stars:        0,
		Bio:          "Using Spark Chat ✨",
		PasswordHash: string(hash),
	}
	if u.AvatarURL == "" {
		u.AvatarURL = defaultAvatarURL(u.DisplayName())
	}
	if err := repo.UpsertUser(s.Store, u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login authenticates phone/password against the directory. Failures
// count toward the lockout guard; the fifth consecutive failure blocks
// the identity for the configured window.
func (s *AuthService) Login(ctx context.Context, phone, password string) (*domain.User, error) {
	tr := otel.Tracer("services/AuthService")
	_, span := tr.Start(ctx, "Login",
		trace.WithAttributes(attribute.String("user.phone", redactPhone(phone))),
	)
	defer span.End()

	phone = strings.TrimSpace(phone)
	now := s.now()

	guard, err := repo.GuardState(s.Store, phone)
	if err != nil {
		return nil, err
	}
	if guard.Blocked(now) {
		return nil, &LockedError{Until: time.UnixMilli(guard.BlockUntil)}
	}

	if s.AdminPhone != "" && phone == s.AdminPhone {
		return s.adminLogin(password, now)
	}

	u, err := repo.FindUserByPhone(s.Store, phone)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, s.recordFailure(phone, now)
	}

	if err := repo.ResetGuard(s.Store, phone); err != nil {
		return nil, err
	}
	return u, nil
}

// adminLogin verifies the configured admin password and bootstraps the
// dev account on first use.
func (s *AuthService) adminLogin(password string, now time.Time) (*domain.User, error) {
	if password != s.AdminPassword {
		return nil, s.recordFailure(s.AdminPhone, now)
	}
	if err := repo.ResetGuard(s.Store, s.AdminPhone); err != nil {
		return nil, err
	}

	if u, err := repo.FindUserByPhone(s.Store, s.AdminPhone); err == nil {
		if !u.IsDev {
			u.IsDev = true
			if err := repo.UpsertUser(s.Store, *u); err != nil {
				return nil, err
			}
		}
		return u, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.AdminPassword), s.cost())
	if err != nil {
		return nil, err
	}
	admin := domain.User{
		PhoneNumber:  s.AdminPhone,
		FirstName:    "Dev",
		Username:     "admin",
		AvatarURL:    "https://ui-avatars.com/api/?name=Dev&background=000&color=fff",
		IsPremium:    true,
		Stars:        10000,
		Bio:          "Разработчик Spark Chat",
		IsDev:        true,
		PasswordHash: string(hash),
	}
	if err := repo.UpsertUser(s.Store, admin); err != nil {
		return nil, err
	}
	return &admin, nil
}

func (s *AuthService) recordFailure(phone string, now time.Time) error {
	maxAttempts := s.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	block := s.BlockDuration
	if block <= 0 {
		block = 5 * time.Minute
	}
	entry, err := repo.RecordLoginFailure(s.Store, phone, maxAttempts, block, now)
	if err != nil {
		return err
	}
	if entry.Blocked(now) {
		return &LockedError{Until: time.UnixMilli(entry.BlockUntil)}
	}
	return ErrBadCredentials
}

// validPhone accepts country-coded numbers: a leading plus and at
// least five digits.
func validPhone(phone string) bool {
	if !strings.HasPrefix(phone, "+") {
		return false
	}
	digits := 0
	for _, r := range phone[1:] {
		if unicode.IsDigit(r) {
			digits++
			continue
		}
		if r != ' ' && r != '-' {
			return false
		}
	}
	return digits >= 5
}

// defaultAvatarURL builds the placeholder avatar used when none is
// uploaded.
func defaultAvatarURL(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random"
}

// redactPhone keeps only the last two digits for span attributes and
// logs.
func redactPhone(phone string) string {
	if len(phone) <= 2 {
		return "***"
	}
	return "***" + phone[len(phone)-2:]
}
