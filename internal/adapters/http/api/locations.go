package api

import (
	"context"
	"net/http"

	"github.com/okian/paxstats/internal/domain/types"
)

// LocationsHandler serves AO statistics.
type LocationsHandler struct {
	deps Dependencies
}

// NewLocationsHandler creates a new locations handler.
func NewLocationsHandler(deps Dependencies) *LocationsHandler {
	return &LocationsHandler{deps: deps}
}

// HandleGetLocationStats handles GET /locations/stats?location=&region=&window=.
func (h *LocationsHandler) HandleGetLocationStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_location_stats"
	q := queryOf(r)
	serveView(w, r, h.deps, op, func(ctx context.Context) (types.LocationReport, error) {
		return h.deps.LocationStats(ctx, q)
	})
}
