package api

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const (
	defaultRefreshReason = "api"
	maxRefreshBody       = 4 << 10
)

type refreshRequest struct {
	Reason string `json:"reason"`
}

type refreshResponse struct {
	Status      string `json:"status"`
	ID          string `json:"id"`
	RequestedAt string `json:"requested_at"`
}

// RefreshHandler queues dataset refreshes.
type RefreshHandler struct {
	deps Dependencies
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(deps Dependencies) *RefreshHandler {
	return &RefreshHandler{deps: deps}
}

// HandlePostRefresh handles POST /refresh. The body is optional.
func (h *RefreshHandler) HandlePostRefresh(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_refresh"
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRefreshBody))
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	var req refreshRequest
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeFailure(w, WrapKind(op, ErrBadRequest, err))
			return
		}
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = defaultRefreshReason
	}

	ticket, err := h.deps.RequestRefresh(r.Context(), reason)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, refreshResponse{
		Status:      "accepted",
		ID:          ticket.ID,
		RequestedAt: ticket.RequestedAt.UTC().Format(time.RFC3339),
	})
}
