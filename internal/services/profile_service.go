// Package services – ProfileService
//
// This file implements ProfileService, which owns profile edits and the
// star balance top-up. Edits are full-record merges over the directory
// document; only the owner's record is touched.
package services

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sparkchat/sparkd/internal/domain"
	"github.com/sparkchat/sparkd/internal/repo"
	"github.com/sparkchat/sparkd/internal/store"
)

// ProfileService provides profile reads and owner-only mutations.
type ProfileService struct {
	Store *store.Store
}

// UpdateProfileInput carries optional profile fields; nil pointers
// leave the stored value untouched.
type UpdateProfileInput struct {
	FirstName    *string
	LastName     *string
	Username     *string
	Bio          *string
	AvatarURL    *string
	StatusEmoji  *string
	Wallpaper    *string
	MessagePrice *int
	IsPremium    *bool
}

// Get returns the directory record for phone.
func (s *ProfileService) Get(ctx context.Context, phone string) (*domain.User, error) {
	tr := otel.Tracer("services/ProfileService")
	_, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.String("user.phone", redactPhone(phone))),
	)
	defer span.End()

	u, err := repo.FindUserByPhone(s.Store, phone)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// Update merges in into the viewer's record and writes it back.
// Username uniqueness is enforced against the rest of the directory;
// a negative message price is rejected.
func (s *ProfileService) Update(ctx context.Context, phone string, in UpdateProfileInput) (*domain.User, error) {
	tr := otel.Tracer("services/ProfileService")
	_, span := tr.Start(ctx, "Update",
		trace.WithAttributes(attribute.String("user.phone", redactPhone(phone))),
	)
	defer span.End()

	u, err := repo.FindUserByPhone(s.Store, phone)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if name != "" {
			taken, err := repo.UsernameExists(s.Store, name, phone)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, ErrUsernameTaken
			}
		}
		u.Username = name
	}
	if in.FirstName != nil {
		name := strings.TrimSpace(*in.FirstName)
		if name == "" {
			return nil, ErrFirstNameRequired
		}
		u.FirstName = name
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Bio != nil {
		u.Bio = *in.Bio
	}
	if in.AvatarURL != nil {
		u.AvatarURL = *in.AvatarURL
	}
	if in.StatusEmoji != nil {
		u.StatusEmoji = *in.StatusEmoji
	}
	if in.Wallpaper != nil {
		u.Wallpaper = *in.Wallpaper
	}
	if in.MessagePrice != nil {
		if *in.MessagePrice < 0 {
			return nil, ErrInvalidAmount
		}
		u.MessagePrice = *in.MessagePrice
	}
	if in.IsPremium != nil {
		u.IsPremium = *in.IsPremium
	}

	if err := repo.UpsertUser(s.Store, *u); err != nil {
		return nil, err
	}
	return u, nil
}

// AddStars credits amount stars to the viewer's balance and returns
// the updated record.
func (s *ProfileService) AddStars(ctx context.Context, phone string, amount int) (*domain.User, error) {
	tr := otel.Tracer("services/ProfileService")
	_, span := tr.Start(ctx, "AddStars",
		trace.WithAttributes(
			attribute.String("user.phone", redactPhone(phone)),
			attribute.Int("stars.amount", amount),
		),
	)
	defer span.End()

	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	err := repo.CreditStars(s.Store, phone, amount)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return repo.FindUserByPhone(s.Store, phone)
}
