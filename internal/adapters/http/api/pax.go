package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/paxstats/internal/domain/types"
)

// PaxHandler serves per-PAX statistics.
type PaxHandler struct {
	deps Dependencies
}

// NewPaxHandler creates a new pax handler.
func NewPaxHandler(deps Dependencies) *PaxHandler {
	return &PaxHandler{deps: deps}
}

// HandleListPax handles GET /pax?location=&region=&window=.
func (h *PaxHandler) HandleListPax(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_pax"
	q := queryOf(r)
	serveView(w, r, h.deps, op, func(ctx context.Context) ([]types.PersonStats, error) {
		return h.deps.PaxStats(ctx, q)
	})
}

// HandleGetPerson handles GET /pax/{name}.
func (h *PaxHandler) HandleGetPerson(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_person"
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	q := queryOf(r)
	serveView(w, r, h.deps, op, func(ctx context.Context) (types.PersonDetail, error) {
		return h.deps.Person(ctx, name, q)
	})
}
