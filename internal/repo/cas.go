// Package repo implements the data access layer over the shared
// document store. Each repository file owns one logical document and
// follows the "thin repository" approach: no business logic, only
// whole-document reads and compare-and-swap mutations.
package repo

import (
	"errors"

	"github.com/sparkchat/sparkd/internal/store"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("not found")

// casRetries bounds how many times a read-modify-write cycle is
// retried when another session wins the race. Documents here are
// small and contention is low, so a handful of attempts suffices.
const casRetries = 8

// mutateDoc runs one read-modify-write cycle against the document at
// key, retrying on version conflicts. mutate receives the current
// document value and returns the replacement.
func mutateDoc[T any](st *store.Store, key string, mutate func(T) (T, error)) error {
	var lastErr error
	for i := 0; i < casRetries; i++ {
		var cur T
		ver, err := st.Get(key, &cur)
		if err != nil {
			return err
		}
		next, err := mutate(cur)
		if err != nil {
			return err
		}
		err = st.CompareAndSwap(key, next, ver)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return err
		}
		lastErr = err
	}
	return lastErr
}
