package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/okian/paxstats/internal/domain/filter"
	"github.com/okian/paxstats/internal/domain/model"
	"github.com/okian/paxstats/internal/domain/ranking"
	"github.com/okian/paxstats/internal/domain/stats"
	"github.com/okian/paxstats/internal/domain/types"
)

// Query narrows a view to a location and/or region and a time window.
// Empty fields mean no restriction.
type Query struct {
	Location string
	Region   string
	Window   string
}

// KotterQuery parameterizes the inactivity report. Zero Threshold uses the
// configured default; empty Sort means most recent first.
type KotterQuery struct {
	Location  string
	Region    string
	Sort      string
	Threshold int
}

func (s *Service) selectEvents(snap *model.Snapshot, q Query) ([]model.Backblast, filter.Scope, error) {
	scope, err := s.regions.Resolve(q.Location, q.Region)
	if err != nil {
		return nil, nil, err
	}
	window, err := filter.ParseWindow(q.Window)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidParam, err)
	}
	return filter.Apply(snap.Events, scope, window, s.today()), scope, nil
}

// LocationStats summarizes the selected events and splits them per AO.
func (s *Service) LocationStats(ctx context.Context, q Query) (types.LocationReport, error) {
	var out types.LocationReport
	err := s.view(ctx, "locations", func(_ context.Context, snap *model.Snapshot) error {
		events, _, err := s.selectEvents(snap, q)
		if err != nil {
			return err
		}
		out.Summary = stats.LocationStats(events)
		out.Locations = stats.LocationBreakdown(events, stats.WithNames(snap))
		return nil
	})
	return out, err
}

// LocationBreakdown returns per-AO stats for the selected events.
func (s *Service) LocationBreakdown(ctx context.Context, q Query) ([]types.LocationStats, error) {
	var out []types.LocationStats
	err := s.view(ctx, "location_breakdown", func(_ context.Context, snap *model.Snapshot) error {
		events, _, err := s.selectEvents(snap, q)
		if err != nil {
			return err
		}
		out = stats.LocationBreakdown(events, stats.WithNames(snap))
		return nil
	})
	return out, err
}

// PaxStats returns per-PAX stats in attendance order.
func (s *Service) PaxStats(ctx context.Context, q Query) ([]types.PersonStats, error) {
	var out []types.PersonStats
	err := s.view(ctx, "pax", func(_ context.Context, snap *model.Snapshot) error {
		events, _, err := s.selectEvents(snap, q)
		if err != nil {
			return err
		}
		byID := stats.PersonStats(events, s.today(), stats.WithNames(snap))
		out = make([]types.PersonStats, 0, len(byID))
		for _, ps := range byID {
			out = append(out, ps)
		}
		slices.SortFunc(out, ranking.ByAttendance)
		return nil
	})
	return out, err
}

// Person returns the detail view for one PAX. Known PAX with no posts in
// the selection get zero stats; unknown names fail with ErrUnknownPerson.
func (s *Service) Person(ctx context.Context, name string, q Query) (types.PersonDetail, error) {
	var out types.PersonDetail
	err := s.view(ctx, "person", func(_ context.Context, snap *model.Snapshot) error {
		id := model.NormalizePerson(name)
		if id == "" || !snap.Known(id) {
			return fmt.Errorf("%w: %q", ErrUnknownPerson, name)
		}
		events, _, err := s.selectEvents(snap, q)
		if err != nil {
			return err
		}
		detail, ok := stats.Person(events, id, s.today(),
			stats.WithNames(snap),
			stats.WithBuddyWindow(s.buddyWindow),
		)
		if !ok {
			detail = types.PersonDetail{
				PersonStats: types.PersonStats{ID: id, Name: snap.Name(id), VisitedLocations: []model.LocationID{}},
				Buddies:     []types.Buddy{},
			}
		}
		detail.Invitees = []string{}
		for _, p := range snap.People {
			if p.InvitedBy == id && p.ID != id {
				detail.Invitees = append(detail.Invitees, p.Name)
			}
		}
		slices.Sort(detail.Invitees)
		if rec, ok := snap.Person(id); ok {
			if rec.InvitedBy != "" {
				detail.InvitedBy = snap.Name(rec.InvitedBy)
			}
			detail.Email = rec.Email
			detail.PhotoURL = rec.PhotoURL
		}
		out = detail
		return nil
	})
	return out, err
}

// Leaderboards ranks the selected PAX. Non-positive or oversized limits are
// clamped to the configured maximum.
func (s *Service) Leaderboards(ctx context.Context, q Query, limit int) (types.Leaderboards, error) {
	if limit <= 0 || limit > s.maxLimit {
		limit = s.maxLimit
	}
	var out types.Leaderboards
	err := s.view(ctx, "leaderboards", func(_ context.Context, snap *model.Snapshot) error {
		events, _, err := s.selectEvents(snap, q)
		if err != nil {
			return err
		}
		byID := stats.PersonStats(events, s.today(), stats.WithNames(snap))
		out = stats.Leaderboards(byID, stats.WithLimit(limit))
		return nil
	})
	return out, err
}

// Kotter lists PAX who have not posted within the threshold.
func (s *Service) Kotter(ctx context.Context, q KotterQuery) ([]types.KotterEntry, error) {
	sortMode := strings.ToLower(strings.TrimSpace(q.Sort))
	if sortMode == "" {
		sortMode = ranking.KotterRecent
	}
	if !ranking.ValidKotterOrder(sortMode) {
		return nil, fmt.Errorf("%w: sort %q", ErrInvalidParam, q.Sort)
	}
	if q.Threshold < 0 {
		return nil, fmt.Errorf("%w: threshold %d", ErrInvalidParam, q.Threshold)
	}
	threshold := q.Threshold
	if threshold == 0 {
		threshold = s.kotterThreshold
	}

	var out []types.KotterEntry
	err := s.view(ctx, "kotter", func(_ context.Context, snap *model.Snapshot) error {
		scope, err := s.regions.Resolve(q.Location, q.Region)
		if err != nil {
			return err
		}
		out = stats.Kotter(snap.Events, s.today(),
			stats.WithNames(snap),
			stats.WithScope(scope),
			stats.WithThreshold(threshold),
			stats.WithMaxDays(s.kotterMaxDays),
			stats.WithBuddyWindow(s.buddyWindow),
			stats.WithSort(sortMode),
		)
		return nil
	})
	return out, err
}

// Monthly returns the month-by-month rollup of the selected locations.
// Lifetime counts and FNG status always look at every location.
func (s *Service) Monthly(ctx context.Context, q Query) ([]types.MonthSummary, error) {
	var out []types.MonthSummary
	err := s.view(ctx, "monthly", func(_ context.Context, snap *model.Snapshot) error {
		scope, err := s.regions.Resolve(q.Location, q.Region)
		if err != nil {
			return err
		}
		out = stats.Monthly(snap.Events, scope,
			stats.WithNames(snap),
			stats.WithMilestoneStep(s.milestoneStep),
		)
		return nil
	})
	return out, err
}

// FamilyTree builds the invite tree of every PAX record.
func (s *Service) FamilyTree(ctx context.Context) (types.FamilyTree, error) {
	var out types.FamilyTree
	err := s.view(ctx, "family_tree", func(_ context.Context, snap *model.Snapshot) error {
		out = stats.FamilyTree(snap.People, stats.WithNames(snap))
		return nil
	})
	return out, err
}

// QGrid lays out who led where between from and to, both "YYYY-MM-DD" and
// both optional.
func (s *Service) QGrid(ctx context.Context, location, region, from, to string) (types.QGrid, error) {
	window, err := filter.Range(from, to)
	if err != nil {
		return types.QGrid{}, fmt.Errorf("%w: %w", ErrInvalidParam, err)
	}
	var out types.QGrid
	err = s.view(ctx, "q_grid", func(_ context.Context, snap *model.Snapshot) error {
		scope, err := s.regions.Resolve(location, region)
		if err != nil {
			return err
		}
		out = stats.QGrid(snap.Events, scope, window.From, window.To, stats.WithNames(snap))
		return nil
	})
	return out, err
}

// Wrapped returns a PAX's yearly retrospective. A zero year means the
// current one.
func (s *Service) Wrapped(ctx context.Context, name string, year int) (types.Wrapped, error) {
	if year == 0 {
		year = s.today().Year()
	}
	if year < 1 || year > 9999 {
		return types.Wrapped{}, fmt.Errorf("%w: year %d", ErrInvalidParam, year)
	}
	var out types.Wrapped
	err := s.view(ctx, "wrapped", func(_ context.Context, snap *model.Snapshot) error {
		id := model.NormalizePerson(name)
		if id == "" || !snap.Known(id) {
			return fmt.Errorf("%w: %q", ErrUnknownPerson, name)
		}
		out = stats.Wrapped(snap.Events, id, year, stats.WithNames(snap))
		return nil
	})
	return out, err
}

// Regions lists the configured regions.
func (s *Service) Regions(_ context.Context) []types.Region {
	return s.regions.List()
}

