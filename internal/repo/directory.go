// Package repo implements the data access layer over the shared
// document store. This file provides repository functions for the user
// directory document.
//
// Error semantics:
//   - ErrNotFound when a phone number has no record.
//   - ErrInsufficientFunds when a transfer would take a balance below zero.
//   - store.ErrConflict only after all CAS retries are exhausted.
package repo

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"

	"github.com/sparkchat/sparkd/internal/domain"
	"github.com/sparkchat/sparkd/internal/store"
)

// ErrInsufficientFunds indicates the paying side cannot cover the
// requested star amount. The directory is left untouched.
var ErrInsufficientFunds = errors.New("insufficient funds")

var usernameFold = cases.Fold()

// FoldUsername normalizes a username for uniqueness comparison.
func FoldUsername(s string) string {
	return usernameFold.String(strings.TrimSpace(s))
}

// ListUsers returns the whole directory in stored order.
func ListUsers(st *store.Store) ([]domain.User, error) {
	var users []domain.User
	_, err := st.Get(store.KeyUsers, &users)
	return users, err
}

// FindUserByPhone returns the record for phone or ErrNotFound.
func FindUserByPhone(st *store.Store, phone string) (*domain.User, error) {
	users, err := ListUsers(st)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].PhoneNumber == phone {
			u := users[i]
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

// UsernameExists reports whether username is already claimed by a user
// other than exceptPhone. Comparison is Unicode case-folded.
func UsernameExists(st *store.Store, username, exceptPhone string) (bool, error) {
	want := FoldUsername(username)
	if want == "" {
		return false, nil
	}
	users, err := ListUsers(st)
	if err != nil {
		return false, err
	}
	for i := range users {
		if users[i].PhoneNumber == exceptPhone {
			continue
		}
		if FoldUsername(users[i].Username) == want {
			return true, nil
		}
	}
	return false, nil
}

// UpsertUser writes u into the directory: an existing record with the
// same phone number is replaced in place (keeping its position), a new
// one is appended.
func UpsertUser(st *store.Store, u domain.User) error {
	return mutateDoc(st, store.KeyUsers, func(users []domain.User) ([]domain.User, error) {
		for i := range users {
			if users[i].PhoneNumber == u.PhoneNumber {
				users[i] = u
				return users, nil
			}
		}
		return append(users, u), nil
	})
}

// CreditStars adds delta stars to the user's balance. Negative deltas
// that would push the balance below zero fail with
// ErrInsufficientFunds.
func CreditStars(st *store.Store, phone string, delta int) error {
	return mutateDoc(st, store.KeyUsers, func(users []domain.User) ([]domain.User, error) {
		for i := range users {
			if users[i].PhoneNumber != phone {
				continue
			}
			if users[i].Stars+delta < 0 {
				return nil, ErrInsufficientFunds
			}
			users[i].Stars += delta
			return users, nil
		}
		return nil, ErrNotFound
	})
}

// TransferStars moves amount stars from one user to another in a
// single document write, so the debit and the credit land together or
// not at all.
func TransferStars(st *store.Store, fromPhone, toPhone string, amount int) error {
	if amount <= 0 {
		return nil
	}
	return mutateDoc(st, store.KeyUsers, func(users []domain.User) ([]domain.User, error) {
		from, to := -1, -1
		for i := range users {
			switch users[i].PhoneNumber {
			case fromPhone:
				from = i
			case toPhone:
				to = i
			}
		}
		if from < 0 || to < 0 {
			return nil, ErrNotFound
		}
		if users[from].Stars < amount {
			return nil, ErrInsufficientFunds
		}
		users[from].Stars -= amount
		users[to].Stars += amount
		return users, nil
	})
}
