// Directory search handler.
//
//   - GET /users?q=  (global user search for the sidebar)
//
// Matching is Unicode-aware (case folding plus diacritic stripping) across
// username, display name, and raw phone number. The viewer is excluded from
// their own results.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sparkchat/sparkd/internal/domain"
	"github.com/sparkchat/sparkd/internal/repo"
	"github.com/sparkchat/sparkd/internal/search"
	"github.com/sparkchat/sparkd/internal/utils"
)

// maxSearchResults caps a single search response.
const maxSearchResults = 50

// SearchUsersResponse wraps directory search hits.
type SearchUsersResponse struct {
	Users []domain.User `json:"users"`
}

// SearchUsers godoc
// @ID          searchUsers
// @Summary     Search the user directory
// @Description Substring search over usernames, display names, and phone numbers. A blank query returns no hits.
// @Tags        Users
// @Produce     json
// @Param       X-User-ID  header  string  true   "Viewer phone number"  example(+380501234567)
// @Param       q          query   string  true   "Search query"
// @Param       limit      query   int     false  "Max results"  maximum(50) default(50)
// @Success     200  {object}  handlers.SearchUsersResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Router      /users [get]
func (h *Handlers) SearchUsers(c *gin.Context) {
	viewer, okv := requireViewer(c)
	if !okv {
		return
	}

	limit := utils.AtoiDefault(c.Query("limit"), maxSearchResults)
	if limit < 1 || limit > maxSearchResults {
		limit = maxSearchResults
	}

	users, err := repo.ListUsers(h.st)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	hits := search.Users(users, c.Query("q"), viewer, limit)
	out := make([]domain.User, 0, len(hits))
	for i := range hits {
		out = append(out, *sanitizeUser(&hits[i]))
	}
	ok(c, http.StatusOK, SearchUsersResponse{Users: out})
}
