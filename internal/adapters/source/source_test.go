package source_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	source "github.com/okian/paxstats/internal/adapters/source"
	"github.com/okian/paxstats/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const eventsJSON = `[
  {"id": "1", "ao": "The Forge", "date": "2024-01-01", "pax": ["Abe", "Bo"], "q": "Abe"},
  {"id": "2", "location": "Swamp", "date": "2024-01-02", "participants": ["Bo"], "leaders": []}
]`

const peopleJSON = `[
  {"name": "Abe"},
  {"name": "Bo", "invitedBy": "Abe", "email": "bo@example.com"}
]`

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileSource(t *testing.T) {
	ctx := context.Background()

	Convey("Given JSON files on disk", t, func() {
		src := source.NewFileSource(writeFile(t, "events.json", eventsJSON), writeFile(t, "pax.json", peopleJSON))

		Convey("When events are read", func() {
			events, err := src.Events(ctx)

			Convey("Then both field spellings decode", func() {
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 2)
				So(events[0].Location, ShouldEqual, "The Forge")
				So(events[0].Participants, ShouldResemble, []string{"Abe", "Bo"})
				So(events[0].Leaders, ShouldResemble, []string{"Abe"})
				So(events[1].Location, ShouldEqual, "Swamp")
			})
		})

		Convey("When people are read", func() {
			people, err := src.People(ctx)
			So(err, ShouldBeNil)
			So(len(people), ShouldEqual, 2)
			So(people[1].InvitedBy, ShouldEqual, "Abe")
		})
	})

	Convey("Given a missing file", t, func() {
		src := source.NewFileSource(filepath.Join(t.TempDir(), "nope.json"), "")

		Convey("Then the failure is a fetch error", func() {
			_, err := src.Events(ctx)
			So(errors.Is(err, source.ErrFetch), ShouldBeTrue)
		})

		Convey("Then no people file means no people", func() {
			people, err := src.People(ctx)
			So(err, ShouldBeNil)
			So(people, ShouldBeEmpty)
		})
	})

	Convey("Given a malformed file", t, func() {
		src := source.NewFileSource(writeFile(t, "events.json", `{"not": "a list"`), "")
		_, err := src.Events(ctx)
		So(errors.Is(err, source.ErrFetch), ShouldBeTrue)
	})
}

func TestHTTPSource(t *testing.T) {
	ctx := context.Background()

	Convey("Given an upstream that wraps records in an envelope", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			switch r.URL.Path {
			case "/events":
				_, _ = io.WriteString(w, `{"data": {"backblasts": `+eventsJSON+`}}`)
			case "/pax":
				_, _ = io.WriteString(w, peopleJSON)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer srv.Close()

		src := source.NewHTTPSource(srv.URL+"/events", srv.URL+"/pax",
			source.WithPaths("data.backblasts", ""),
			source.WithRetry(3, time.Millisecond),
		)

		Convey("When events are fetched after a transient failure", func() {
			events, err := src.Events(ctx)

			Convey("Then the request is retried and the envelope unwrapped", func() {
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 2)
				So(calls.Load(), ShouldEqual, 2)
			})
		})

		Convey("When people are fetched", func() {
			calls.Store(1)
			people, err := src.People(ctx)
			So(err, ShouldBeNil)
			So(people[0].Name, ShouldEqual, "Abe")
		})
	})

	Convey("Given an upstream that rejects the request", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		src := source.NewHTTPSource(srv.URL, "", source.WithRetry(4, time.Millisecond))
		_, err := src.Events(ctx)

		Convey("Then it fails fast with a fetch error", func() {
			So(errors.Is(err, source.ErrFetch), ShouldBeTrue)
			So(calls.Load(), ShouldEqual, 1)
		})
	})

	Convey("Given an upstream that keeps failing", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		src := source.NewHTTPSource(srv.URL, "", source.WithRetry(3, time.Millisecond))
		_, err := src.Events(ctx)

		Convey("Then every attempt is used", func() {
			So(errors.Is(err, source.ErrFetch), ShouldBeTrue)
			So(calls.Load(), ShouldEqual, 3)
		})
	})

	Convey("Given an envelope without the configured path", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"items": []}`)
		}))
		defer srv.Close()

		src := source.NewHTTPSource(srv.URL, "", source.WithPaths("data", ""))
		_, err := src.Events(ctx)
		So(errors.Is(err, source.ErrFetch), ShouldBeTrue)
	})
}
