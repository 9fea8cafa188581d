package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/paxstats/internal/domain/model"
	"github.com/okian/paxstats/pkg/metrics"
)

const kindPostgres = "postgres"

const (
	selectBackblasts = `SELECT id, ao, bd_date, pax, qs FROM backblasts;`
	selectPax        = `SELECT name, invited_by, email, photo_url FROM pax;`
)

// PostgresSource reads both datasets from the backblasts and pax tables.
//
//	backblasts(id text, ao text, bd_date date, pax text[], qs text[])
//	pax(name text, invited_by text, email text, photo_url text)
type PostgresSource struct {
	db *pgxpool.Pool
}

// NewPostgresSource connects a pool to dsn.
func NewPostgresSource(ctx context.Context, dsn string) (*PostgresSource, error) {
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: connect postgres: %w", ErrFetch, err)
	}
	return &PostgresSource{db: db}, nil
}

// Close releases the pool.
func (s *PostgresSource) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// Events reads every backblast row.
func (s *PostgresSource) Events(ctx context.Context) (out []model.RawEvent, err error) {
	ctx, done := s.observe(ctx, DatasetEvents)
	defer func() { done(err) }()

	rows, err := s.db.Query(ctx, selectBackblasts)
	if err != nil {
		return nil, fmt.Errorf("%w: events: %w", ErrFetch, err)
	}
	out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.RawEvent, error) {
		var (
			e    model.RawEvent
			date time.Time
			qs   []string
		)
		if err := row.Scan(&e.ID, &e.Location, &date, &e.Participants, &qs); err != nil {
			return e, err
		}
		e.Date = date.Format(model.DateLayout)
		e.Leaders = qs
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: events: rows scan: %w", ErrFetch, err)
	}
	return out, nil
}

// People reads every pax row.
func (s *PostgresSource) People(ctx context.Context) (out []model.RawPerson, err error) {
	ctx, done := s.observe(ctx, DatasetPeople)
	defer func() { done(err) }()

	rows, err := s.db.Query(ctx, selectPax)
	if err != nil {
		return nil, fmt.Errorf("%w: people: %w", ErrFetch, err)
	}
	out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.RawPerson, error) {
		var (
			p                          model.RawPerson
			invitedBy, email, photoURL *string
		)
		if err := row.Scan(&p.Name, &invitedBy, &email, &photoURL); err != nil {
			return p, err
		}
		p.InvitedBy = deref(invitedBy)
		p.Email = deref(email)
		p.PhotoURL = deref(photoURL)
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: people: rows scan: %w", ErrFetch, err)
	}
	return out, nil
}

func (s *PostgresSource) observe(ctx context.Context, dataset string) (context.Context, func(error)) {
	ctx, span := startSpan(ctx, kindPostgres, dataset)
	start := time.Now()
	return ctx, func(err error) {
		metrics.RecordFetch(kindPostgres, dataset, float64(time.Since(start).Milliseconds()))
		if err != nil {
			metrics.RecordFetchError(kindPostgres, dataset)
		}
		endSpan(span, err)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
