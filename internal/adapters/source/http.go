package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/okian/paxstats/internal/domain/model"
	"github.com/okian/paxstats/pkg/logger"
	"github.com/okian/paxstats/pkg/metrics"
)

const (
	kindHTTP = "http"

	defaultHTTPTimeout  = 15 * time.Second
	defaultHTTPAttempts = 4
	defaultHTTPBackoff  = 250 * time.Millisecond
	maxBodyBytes        = 64 << 20
)

// HTTPSource reads both datasets from JSON endpoints. Network errors and 5xx
// responses are retried with exponential backoff; 4xx responses are not.
type HTTPSource struct {
	client     *http.Client
	eventsURL  string
	peopleURL  string
	eventsPath string
	peoplePath string
	timeout    time.Duration
	attempts   uint
	backoff    time.Duration
	logger     logger.Logger
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		if c != nil {
			s.client = c
		}
	}
}

// WithPaths sets gjson paths locating the record arrays inside the response
// envelopes. An empty path means the body is the array.
func WithPaths(events, people string) HTTPOption {
	return func(s *HTTPSource) {
		s.eventsPath = events
		s.peoplePath = people
	}
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRetry sets the number of attempts and the initial backoff delay.
func WithRetry(attempts int, backoff time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		if attempts > 0 {
			s.attempts = uint(attempts)
		}
		if backoff > 0 {
			s.backoff = backoff
		}
	}
}

// WithHTTPLogger sets the logger.
func WithHTTPLogger(l logger.Logger) HTTPOption {
	return func(s *HTTPSource) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewHTTPSource creates a source reading from the two endpoints.
func NewHTTPSource(eventsURL, peopleURL string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		client:    &http.Client{},
		eventsURL: eventsURL,
		peopleURL: peopleURL,
		timeout:   defaultHTTPTimeout,
		attempts:  defaultHTTPAttempts,
		backoff:   defaultHTTPBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("source.http")
	}
	return s
}

// Events fetches the backblast list.
func (s *HTTPSource) Events(ctx context.Context) ([]model.RawEvent, error) {
	var out []model.RawEvent
	if err := s.fetch(ctx, DatasetEvents, s.eventsURL, s.eventsPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// People fetches the PAX list. An empty URL yields no people.
func (s *HTTPSource) People(ctx context.Context) ([]model.RawPerson, error) {
	if s.peopleURL == "" {
		return []model.RawPerson{}, nil
	}
	var out []model.RawPerson
	if err := s.fetch(ctx, DatasetPeople, s.peopleURL, s.peoplePath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *HTTPSource) fetch(ctx context.Context, dataset, url, path string, dst any) (err error) {
	ctx, span := startSpan(ctx, kindHTTP, dataset)
	defer func() { endSpan(span, err) }()

	start := time.Now()
	defer func() {
		metrics.RecordFetch(kindHTTP, dataset, float64(time.Since(start).Milliseconds()))
		if err != nil {
			metrics.RecordFetchError(kindHTTP, dataset)
		}
	}()

	var body []byte
	err = retry.Do(
		func() error {
			b, err := s.get(ctx, url)
			if err != nil {
				return err
			}
			body = b
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.backoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			metrics.RecordFetchRetry(kindHTTP, dataset)
			s.logger.Warn(ctx, "fetch attempt failed",
				logger.String("dataset", dataset),
				logger.Int("attempt", int(n)+1),
				logger.Error(err))
		}),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFetch, dataset, err)
	}

	if path != "" {
		res := gjson.GetBytes(body, path)
		if !res.Exists() {
			return fmt.Errorf("%w: %s: path %q not found in response", ErrFetch, dataset, path)
		}
		body = []byte(res.Raw)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %s: decode: %w", ErrFetch, dataset, err)
	}
	return nil
}

func (s *HTTPSource) get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			s.logger.Debug(ctx, "failed to close response body", logger.Error(cerr))
		}
	}()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%s returned %d", url, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, retry.Unrecoverable(fmt.Errorf("%s returned %d", url, resp.StatusCode))
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}
