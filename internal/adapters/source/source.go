// Package source fetches raw backblast and PAX records from upstream.
package source

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/paxstats/internal/domain/model"
)

// ErrFetch wraps every failure to read from upstream, so callers can tell a
// failed fetch from an empty dataset.
var ErrFetch = errors.New("fetch failed")

// Dataset names used in metrics and spans.
const (
	DatasetEvents = "events"
	DatasetPeople = "people"
)

// Source delivers the full dataset. Each call returns a complete snapshot of
// one dataset; there is no paging.
type Source interface {
	Events(ctx context.Context) ([]model.RawEvent, error)
	People(ctx context.Context) ([]model.RawPerson, error)
}

var tracer = otel.Tracer("paxstats/source")

func startSpan(ctx context.Context, kind, dataset string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "source."+kind+"."+dataset)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
