package source

import (
	"context"
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"

	"github.com/okian/paxstats/internal/domain/model"
	"github.com/okian/paxstats/pkg/metrics"
)

const kindFile = "file"

// FileSource reads both datasets from JSON files, as written by
// backblast-gen or exported from upstream.
type FileSource struct {
	eventsFile string
	peopleFile string
}

// NewFileSource creates a file source. peopleFile may be empty.
func NewFileSource(eventsFile, peopleFile string) *FileSource {
	return &FileSource{eventsFile: eventsFile, peopleFile: peopleFile}
}

// Events reads the backblast file.
func (s *FileSource) Events(ctx context.Context) ([]model.RawEvent, error) {
	var out []model.RawEvent
	if err := readJSON(ctx, DatasetEvents, s.eventsFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// People reads the PAX file.
func (s *FileSource) People(ctx context.Context) ([]model.RawPerson, error) {
	if s.peopleFile == "" {
		return []model.RawPerson{}, nil
	}
	var out []model.RawPerson
	if err := readJSON(ctx, DatasetPeople, s.peopleFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func readJSON(ctx context.Context, dataset, path string, dst any) (err error) {
	_, span := startSpan(ctx, kindFile, dataset)
	defer func() { endSpan(span, err) }()

	start := time.Now()
	defer func() {
		metrics.RecordFetch(kindFile, dataset, float64(time.Since(start).Milliseconds()))
		if err != nil {
			metrics.RecordFetchError(kindFile, dataset)
		}
	}()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFetch, dataset, err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFetch, dataset, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("%w: %s: decode %s: %w", ErrFetch, dataset, path, err)
	}
	return nil
}
