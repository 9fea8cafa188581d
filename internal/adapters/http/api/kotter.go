package api

import (
	"context"
	"net/http"

	service "github.com/okian/paxstats/internal/app"
	"github.com/okian/paxstats/internal/domain/types"
)

// KotterHandler serves the inactivity report.
type KotterHandler struct {
	deps Dependencies
}

// NewKotterHandler creates a new kotter handler.
func NewKotterHandler(deps Dependencies) *KotterHandler {
	return &KotterHandler{deps: deps}
}

// HandleGetKotter handles GET /kotter?location=&region=&sort=&threshold=.
func (h *KotterHandler) HandleGetKotter(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_kotter"
	threshold, err := intParam(r, "threshold")
	if err != nil {
		writeFailure(w, WrapKind(op, err, errInvalid("threshold")))
		return
	}
	v := r.URL.Query()
	q := service.KotterQuery{
		Location:  v.Get("location"),
		Region:    v.Get("region"),
		Sort:      v.Get("sort"),
		Threshold: threshold,
	}
	serveView(w, r, h.deps, op, func(ctx context.Context) ([]types.KotterEntry, error) {
		return h.deps.Kotter(ctx, q)
	})
}
