// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/elorank/internal/adapters/repository"
	"github.com/okian/elorank/internal/domain/model"
	"github.com/okian/elorank/internal/domain/types"
)

// DefaultMaxLeaderboardLimit caps GET /leaderboard when no limit is configured.
const DefaultMaxLeaderboardLimit = 100

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	VoteDependencies
	LeaderboardDependencies
	RankDependencies
	StatsProvider
}

// Entry mirrors the read shape returned by standings queries.
type Entry = types.Entry

// Server wires HTTP routes for the ranking API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	voteHandler        *VoteHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
}

// NewServer creates a new API server with all handlers. A maxLimit below 1
// falls back to DefaultMaxLeaderboardLimit.
func NewServer(deps Dependencies, maxLimit int) *Server {
	if maxLimit < 1 {
		maxLimit = DefaultMaxLeaderboardLimit
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		voteHandler:        NewVoteHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/pair", MetricsMiddleware(s.voteHandler.HandleGetPair, "pair"))
	mux.HandleFunc("/vote", MetricsMiddleware(s.voteHandler.HandlePostVote, "vote"))
	mux.HandleFunc("/skip", MetricsMiddleware(s.voteHandler.HandlePostSkip, "skip"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
}

// pairResponse is the pair awaiting a vote.
type pairResponse struct {
	Left  model.ItemView `json:"left"`
	Right model.ItemView `json:"right"`
}

type ackResponse struct {
	Status    string        `json:"status"`
	Duplicate bool          `json:"duplicate"`
	Next      *pairResponse `json:"next,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound translates the store's not-found error to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
