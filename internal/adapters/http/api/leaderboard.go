package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/elorank/internal/adapters/repository"
)

// LeaderboardDependencies returns the top standings with dense ranks.
type LeaderboardDependencies interface {
	TopN(ctx context.Context, n int) ([]Entry, error)
}

// LeaderboardHandler serves GET /leaderboard?limit=N.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a leaderboard handler capping limit at maxLimit.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetLeaderboard writes up to limit standings entries, best first.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	n, code := h.limit(r.URL.Query().Get("limit"))
	if code != "" {
		writeError(w, http.StatusBadRequest, code, NewKind(op, ErrBadRequest))
		return
	}

	entries, err := h.deps.TopN(r.Context(), n)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, entries)
	case errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// limit parses the limit parameter; a non-empty code names the rejection.
func (h *LeaderboardHandler) limit(raw string) (int, string) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, "bad_request"
	}
	if n > h.maxLimit {
		return 0, "limit_exceeded"
	}
	return n, ""
}
