package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/paxstats/internal/domain/types"
)

// ReportsHandler serves the monthly rollup, family tree, Q grid, yearly
// wrap-up and region list.
type ReportsHandler struct {
	deps Dependencies
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(deps Dependencies) *ReportsHandler {
	return &ReportsHandler{deps: deps}
}

// HandleGetMonthly handles GET /monthly?location=&region=.
func (h *ReportsHandler) HandleGetMonthly(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_monthly"
	q := queryOf(r)
	serveView(w, r, h.deps, op, func(ctx context.Context) ([]types.MonthSummary, error) {
		return h.deps.Monthly(ctx, q)
	})
}

// HandleGetFamilyTree handles GET /family-tree.
func (h *ReportsHandler) HandleGetFamilyTree(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_family_tree"
	serveView(w, r, h.deps, op, h.deps.FamilyTree)
}

// HandleGetQGrid handles GET /q-grid?location=&region=&from=&to=.
func (h *ReportsHandler) HandleGetQGrid(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_q_grid"
	v := r.URL.Query()
	serveView(w, r, h.deps, op, func(ctx context.Context) (types.QGrid, error) {
		return h.deps.QGrid(ctx, v.Get("location"), v.Get("region"), v.Get("from"), v.Get("to"))
	})
}

// HandleGetWrapped handles GET /wrapped/{name}?year=.
func (h *ReportsHandler) HandleGetWrapped(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_wrapped"
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	year, err := intParam(r, "year")
	if err != nil {
		writeFailure(w, WrapKind(op, err, errInvalid("year")))
		return
	}
	serveView(w, r, h.deps, op, func(ctx context.Context) (types.Wrapped, error) {
		return h.deps.Wrapped(ctx, name, year)
	})
}

// HandleGetRegions handles GET /regions.
func (h *ReportsHandler) HandleGetRegions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Regions(r.Context()))
}
