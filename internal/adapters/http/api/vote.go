package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/elorank/internal/adapters/mq/queue"
	"github.com/okian/elorank/internal/adapters/persistence"
	service "github.com/okian/elorank/internal/app"
	"github.com/okian/elorank/internal/domain/dedupe"
	"github.com/okian/elorank/internal/domain/model"
)

// VoteDependencies defines what the pair, vote and skip handlers need.
type VoteDependencies interface {
	dedupe.Deduper

	// Submit queues a vote or skip and waits for the next pair.
	Submit(ctx context.Context, c model.Command) (model.Result, error)
	CurrentPair(ctx context.Context) (model.ItemView, model.ItemView, error)
}

// voteRequest mirrors the body of POST /vote. Left and Right name the pair the
// vote was cast on, as served by GET /pair; both or neither must be set.
type voteRequest struct {
	VoteID string `json:"vote_id"`
	Winner *int   `json:"winner"`
	Left   string `json:"left"`
	Right  string `json:"right"`
}

func (v voteRequest) validate() error {
	switch {
	case v.Winner == nil:
		return errors.New("missing winner")
	case *v.Winner != 0 && *v.Winner != 1:
		return errors.New("invalid winner; must be 0 or 1")
	case strings.Contains(v.VoteID, "\n"):
		return errors.New("invalid vote_id")
	case (v.Left == "") != (v.Right == ""):
		return errors.New("left and right must be given together")
	}
	return nil
}

func (v voteRequest) command() model.Command {
	return model.Command{
		Kind:   model.CommandVote,
		Winner: *v.Winner,
		VoteID: v.VoteID,
		Expect: model.Pair{v.Left, v.Right},
	}
}

// VoteHandler serves the pair under vote and accepts votes and skips.
type VoteHandler struct {
	deps VoteDependencies
}

// NewVoteHandler creates a new vote handler.
func NewVoteHandler(deps VoteDependencies) *VoteHandler {
	return &VoteHandler{deps: deps}
}

// HandleGetPair handles GET /pair requests.
func (h *VoteHandler) HandleGetPair(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_pair"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	left, right, err := h.deps.CurrentPair(r.Context())
	if err != nil {
		h.writeSubmitError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, pairResponse{Left: left, Right: right})
}

// HandlePostVote handles POST /vote requests.
func (h *VoteHandler) HandlePostVote(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_vote"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// Idempotency check - mark as seen first
	if req.VoteID != "" && h.deps.SeenAndRecord(r.Context(), req.VoteID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	res, err := h.deps.Submit(r.Context(), req.command())
	if err == nil {
		err = res.Err
	}
	if err != nil {
		// A vote still in flight keeps its id; the service releases it if
		// the vote fails. Anything else changed nothing and can be retried.
		if req.VoteID != "" && !errors.Is(err, service.ErrPending) {
			h.deps.Unrecord(r.Context(), req.VoteID)
		}
		h.writeSubmitError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{
		Status: "accepted",
		Next:   &pairResponse{Left: res.Left, Right: res.Right},
	})
}

// HandlePostSkip handles POST /skip requests.
func (h *VoteHandler) HandlePostSkip(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_skip"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	res, err := h.deps.Submit(r.Context(), model.Command{Kind: model.CommandSkip})
	if err == nil {
		err = res.Err
	}
	if err != nil {
		h.writeSubmitError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{
		Status: "skipped",
		Next:   &pairResponse{Left: res.Left, Right: res.Right},
	})
}

func (h *VoteHandler) writeSubmitError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, queue.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, service.ErrStalePair):
		writeError(w, http.StatusConflict, "stale_pair", WrapKind(op, ErrConflict, err))
	case errors.Is(err, service.ErrPending):
		writeError(w, http.StatusServiceUnavailable, "pending", WrapKind(op, ErrUnavailable, err))
	case errors.Is(err, service.ErrInvalidWinner):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, persistence.ErrPersistence),
		errors.Is(err, service.ErrNotStarted),
		errors.Is(err, service.ErrNoPair),
		errors.Is(err, queue.ErrQueueClosed),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
