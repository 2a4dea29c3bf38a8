package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/elorank/internal/domain/identifier"
)

// RankDependencies looks up the standings entry of a single item.
type RankDependencies interface {
	Rank(ctx context.Context, id string) (Entry, error)
}

// RankHandler serves GET /rank/{id}.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank answers with the dense rank, rating and matchup count of the
// item. Ids that cannot have been assigned are rejected before the lookup.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id, ok := strings.CutPrefix(r.URL.Path, "/rank/")
	if !ok || id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if _, err := identifier.Decode(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", WrapKind("rank", ErrBadRequest, err))
		return
	}

	entry, err := h.deps.Rank(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, entry)
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
