// Package repo implements the data access layer over the shared
// document store. This file provides repository functions for the
// login guard document that tracks failed attempts per identity.
package repo

import (
	"time"

	"github.com/sparkchat/sparkd/internal/store"
)

// GuardEntry is the per-phone lockout state stored in the guard
// document. BlockUntil is unix milliseconds; zero means not blocked.
type GuardEntry struct {
	Attempts   int   `json:"attempts"`
	BlockUntil int64 `json:"blockUntil,omitempty"`
}

// Blocked reports whether the entry still blocks logins at now.
func (g GuardEntry) Blocked(now time.Time) bool {
	return g.BlockUntil > now.UnixMilli()
}

// GuardState returns the lockout entry for phone. An unknown phone
// yields the zero entry.
func GuardState(st *store.Store, phone string) (GuardEntry, error) {
	var guard map[string]GuardEntry
	if _, err := st.Get(store.KeyAuthGuard, &guard); err != nil {
		return GuardEntry{}, err
	}
	return guard[phone], nil
}

// RecordLoginFailure bumps the attempt counter for phone and, once
// maxAttempts is reached, starts a block window and resets the
// counter. It returns the entry as written.
func RecordLoginFailure(st *store.Store, phone string, maxAttempts int, block time.Duration, now time.Time) (GuardEntry, error) {
	var written GuardEntry
	err := mutateDoc(st, store.KeyAuthGuard, func(guard map[string]GuardEntry) (map[string]GuardEntry, error) {
		if guard == nil {
			guard = make(map[string]GuardEntry)
		}
		e := guard[phone]
		e.Attempts++
		if e.Attempts >= maxAttempts {
			e.Attempts = 0
			e.BlockUntil = now.Add(block).UnixMilli()
		}
		guard[phone] = e
		written = e
		return guard, nil
	})
	return written, err
}

// ResetGuard clears the lockout entry for phone after a successful
// login. Resetting an unknown phone is a no-op.
func ResetGuard(st *store.Store, phone string) error {
	return mutateDoc(st, store.KeyAuthGuard, func(guard map[string]GuardEntry) (map[string]GuardEntry, error) {
		if _, ok := guard[phone]; !ok {
			return guard, nil
		}
		delete(guard, phone)
		return guard, nil
	})
}
