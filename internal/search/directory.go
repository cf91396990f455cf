// Package search implements the sidebar's global user search: a
// deterministic, dependency-light substring match over the directory.
//
//   - No logging in the library (callers decide how/what to log)
//   - Unicode-aware normalization: case folding plus diacritic removal,
//     so "Olena" finds "Ölena" and "олена" finds "Олена"
//   - Deterministic ordering (directory order), stable across calls
package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sparkchat/sparkd/internal/domain"
)

var (
	fold     = cases.Fold()
	deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Normalize lowercases s with full Unicode case folding and strips
// combining marks. Used for both the query and the indexed fields.
func Normalize(s string) string {
	s = fold.String(strings.TrimSpace(s))
	out, _, err := transform.String(deaccent, s)
	if err != nil {
		return s
	}
	return out
}

// matches reports whether the normalized query occurs in any of the
// user's searchable fields.
func matches(u domain.User, q string) bool {
	if q == "" {
		return false
	}
	if strings.Contains(Normalize(u.Username), q) {
		return true
	}
	if strings.Contains(Normalize(u.DisplayName()), q) {
		return true
	}
	return strings.Contains(u.PhoneNumber, q)
}

// Users returns directory records matching query, excluding the viewer
// themselves. limit <= 0 means no cap. Results keep directory order.
func Users(users []domain.User, query, exceptPhone string, limit int) []domain.User {
	q := Normalize(query)
	if q == "" {
		return []domain.User{}
	}
	out := make([]domain.User, 0, 8)
	for _, u := range users {
		if u.PhoneNumber == exceptPhone {
			continue
		}
		if !matches(u, q) {
			continue
		}
		out = append(out, u)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
