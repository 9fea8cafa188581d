// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	service "github.com/okian/paxstats/internal/app"
	"github.com/okian/paxstats/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Version identifies the data reads are computed from and is sent as the ETag.
	Version(ctx context.Context) (string, error)

	LocationStats(ctx context.Context, q service.Query) (types.LocationReport, error)
	PaxStats(ctx context.Context, q service.Query) ([]types.PersonStats, error)
	Person(ctx context.Context, name string, q service.Query) (types.PersonDetail, error)
	Leaderboards(ctx context.Context, q service.Query, limit int) (types.Leaderboards, error)
	Kotter(ctx context.Context, q service.KotterQuery) ([]types.KotterEntry, error)
	Monthly(ctx context.Context, q service.Query) ([]types.MonthSummary, error)
	FamilyTree(ctx context.Context) (types.FamilyTree, error)
	QGrid(ctx context.Context, location, region, from, to string) (types.QGrid, error)
	Wrapped(ctx context.Context, name string, year int) (types.Wrapped, error)
	Regions(ctx context.Context) []types.Region

	// RequestRefresh queues a re-fetch. Returns service.ErrBusy on backpressure.
	RequestRefresh(ctx context.Context, reason string) (types.RefreshTicket, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	locationsHandler   *LocationsHandler
	paxHandler         *PaxHandler
	leaderboardHandler *LeaderboardHandler
	kotterHandler      *KotterHandler
	reportsHandler     *ReportsHandler
	refreshHandler     *RefreshHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		locationsHandler:   NewLocationsHandler(deps),
		paxHandler:         NewPaxHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		kotterHandler:      NewKotterHandler(deps),
		reportsHandler:     NewReportsHandler(deps),
		refreshHandler:     NewRefreshHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /locations/stats", MetricsMiddleware(s.locationsHandler.HandleGetLocationStats, "locations_stats"))
	mux.HandleFunc("GET /pax", MetricsMiddleware(s.paxHandler.HandleListPax, "pax"))
	mux.HandleFunc("GET /pax/{name}", MetricsMiddleware(s.paxHandler.HandleGetPerson, "pax_detail"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /kotter", MetricsMiddleware(s.kotterHandler.HandleGetKotter, "kotter"))
	mux.HandleFunc("GET /monthly", MetricsMiddleware(s.reportsHandler.HandleGetMonthly, "monthly"))
	mux.HandleFunc("GET /family-tree", MetricsMiddleware(s.reportsHandler.HandleGetFamilyTree, "family_tree"))
	mux.HandleFunc("GET /q-grid", MetricsMiddleware(s.reportsHandler.HandleGetQGrid, "q_grid"))
	mux.HandleFunc("GET /wrapped/{name}", MetricsMiddleware(s.reportsHandler.HandleGetWrapped, "wrapped"))
	mux.HandleFunc("GET /regions", MetricsMiddleware(s.reportsHandler.HandleGetRegions, "regions"))
	mux.HandleFunc("POST /refresh", MetricsMiddleware(s.refreshHandler.HandlePostRefresh, "refresh"))
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

// writeFailure maps err to a status and writes it.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}

// queryOf reads the common location, region and window parameters.
func queryOf(r *http.Request) service.Query {
	v := r.URL.Query()
	return service.Query{
		Location: v.Get("location"),
		Region:   v.Get("region"),
		Window:   v.Get("window"),
	}
}

// intParam parses an optional non-negative integer parameter. Missing means 0.
func intParam(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, ErrBadRequest
	}
	return n, nil
}

// serveView answers with the result of fn tagged with the snapshot version.
// A matching If-None-Match short-circuits to 304 before fn runs.
func serveView[T any](w http.ResponseWriter, r *http.Request, deps Dependencies, op string, fn func(ctx context.Context) (T, error)) {
	ctx := r.Context()
	version, err := deps.Version(ctx)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	etag := strconv.Quote(version)
	w.Header().Set("ETag", etag)
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	v, err := fn(ctx)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
