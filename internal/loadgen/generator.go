package loadgen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/okian/paxstats/internal/domain/model"
	"github.com/okian/paxstats/pkg/logger"
)

// Generate builds a dataset from cfg. The same seed always yields the same
// dataset; event IDs are derived from the seed too.
func Generate(ctx context.Context, cfg GenerateConfig) (Dataset, error) {
	cfg = withDefaults(cfg)
	if cfg.People < 1 || cfg.Locations < 1 || cfg.Events < 0 || cfg.Days < 1 {
		return Dataset{}, fmt.Errorf("invalid generator sizes: people=%d locations=%d events=%d days=%d",
			cfg.People, cfg.Locations, cfg.Events, cfg.Days)
	}

	f := gofakeit.New(cfg.Seed)
	title := cases.Title(language.English)

	people := generatePeople(f, title, cfg)
	locations := uniqueNames(f, cfg.Locations, locationKey, func() string { return "The " + title.String(f.Noun()) })

	events := make([]model.RawEvent, 0, cfg.Events)
	start := model.DateOf(cfg.End).AddDate(0, 0, -(cfg.Days - 1))
	for range cfg.Events {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		events = append(events, generateEvent(f, cfg, start, locations, people))
	}
	slices.SortStableFunc(events, func(a, b model.RawEvent) int {
		if c := strings.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return strings.Compare(a.Location, b.Location)
	})

	logger.Get().Info(ctx, "generated dataset",
		logger.Int("people", len(people)),
		logger.Int("locations", len(locations)),
		logger.Int("events", len(events)))
	return Dataset{Events: events, People: people}, nil
}

func withDefaults(cfg GenerateConfig) GenerateConfig {
	if cfg.People == 0 {
		cfg.People = DefaultPeople
	}
	if cfg.Locations == 0 {
		cfg.Locations = DefaultLocations
	}
	if cfg.Days == 0 {
		cfg.Days = DefaultDays
	}
	if cfg.MaxPax <= 0 {
		cfg.MaxPax = DefaultMaxPax
	}
	if cfg.End.IsZero() {
		cfg.End = time.Now().UTC()
	}
	return cfg
}

// generatePeople names PAX F3-style ("Adjective Animal") and links each one,
// at InviteRate, to someone generated before them so invites never cycle.
func generatePeople(f *gofakeit.Faker, title cases.Caser, cfg GenerateConfig) []model.RawPerson {
	names := uniqueNames(f, cfg.People, personKey, func() string {
		return title.String(f.Adjective() + " " + f.Animal())
	})
	people := make([]model.RawPerson, len(names))
	for i, name := range names {
		p := model.RawPerson{Name: name, Email: f.Email()}
		if f.Float64Range(0, 1) < 0.5 {
			p.PhotoURL = f.URL()
		}
		if i > 0 && f.Float64Range(0, 1) < cfg.InviteRate {
			p.InvitedBy = names[f.IntRange(0, i-1)]
		}
		people[i] = p
	}
	return people
}

func generateEvent(f *gofakeit.Faker, cfg GenerateConfig, start time.Time, locations []string, people []model.RawPerson) model.RawEvent {
	n := f.IntRange(1, min(cfg.MaxPax, len(people)))
	idx := make([]int, len(people))
	for i := range idx {
		idx[i] = i
	}
	f.ShuffleInts(idx)

	pax := make([]string, n)
	for i := range n {
		pax[i] = people[idx[i]].Name
	}
	qs := 1
	if n > 1 && f.Float64Range(0, 1) < coLeaderRate {
		qs = 2
	}

	id, err := uuid.NewRandomFromReader(f.Rand)
	if err != nil {
		id = uuid.New()
	}
	return model.RawEvent{
		ID:           id.String(),
		Location:     locations[f.IntRange(0, len(locations)-1)],
		Date:         start.AddDate(0, 0, f.IntRange(0, cfg.Days-1)).Format(time.DateOnly),
		Participants: pax,
		Leaders:      slices.Clone(pax[:qs]),
	}
}

func personKey(name string) string { return string(model.NormalizePerson(name)) }
func locationKey(name string) string { return string(model.NormalizeLocation(name)) }

// uniqueNames draws n names from next, suffixing a number when the
// normalized form collides with one already taken.
func uniqueNames(f *gofakeit.Faker, n int, key func(string) string, next func() string) []string {
	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	for len(out) < n {
		name := next()
		if _, dup := seen[key(name)]; dup {
			name += " " + strconv.Itoa(f.IntRange(2, 99))
		}
		k := key(name)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, name)
	}
	return out
}

// WriteDataset writes the events and people arrays as JSON files, creating
// parent directories as needed.
func WriteDataset(ds Dataset, eventsFile, peopleFile string) error {
	if err := writeJSON(eventsFile, ds.Events); err != nil {
		return fmt.Errorf("write events: %w", err)
	}
	if err := writeJSON(peopleFile, ds.People); err != nil {
		return fmt.Errorf("write people: %w", err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, dirPermission); err != nil {
			return err
		}
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), filePermission)
}
