package api

import (
	"context"
	"net/http"

	"github.com/okian/paxstats/internal/domain/types"
)

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps Dependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps Dependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /leaderboard?location=&region=&window=&limit=.
// A missing limit means the configured maximum.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	limit, err := intParam(r, "limit")
	if err != nil {
		writeFailure(w, WrapKind(op, err, errInvalid("limit")))
		return
	}
	q := queryOf(r)
	serveView(w, r, h.deps, op, func(ctx context.Context) (types.Leaderboards, error) {
		return h.deps.Leaderboards(ctx, q, limit)
	})
}
