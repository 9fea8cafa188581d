package repository

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/paxstats/internal/domain/ingest"
	"github.com/okian/paxstats/internal/domain/model"
	"github.com/okian/paxstats/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakeSource struct {
	calls  atomic.Int32
	delay  time.Duration
	fail   atomic.Bool
	events []model.RawEvent
}

func (f *fakeSource) Events(ctx context.Context) ([]model.RawEvent, error) {
	f.calls.Add(1)
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if f.fail.Load() {
		return nil, errors.New("upstream down")
	}
	return f.events, nil
}

func (f *fakeSource) People(context.Context) ([]model.RawPerson, error) {
	return []model.RawPerson{{Name: "Abe"}}, nil
}

func sampleEvents() []model.RawEvent {
	return []model.RawEvent{
		{ID: "1", Location: "Forge", Date: "2024-01-01", Participants: []string{"Abe", "Bo"}, Leaders: []string{"Abe"}},
		{ID: "2", Location: "Forge", Date: "2024-01-08", Participants: []string{"Abe"}},
	}
}

func TestLoader(t *testing.T) {
	ctx := context.Background()

	Convey("Given a loader over a slow source", t, func() {
		src := &fakeSource{delay: 20 * time.Millisecond, events: sampleEvents()}
		l := NewLoader(ctx, src)
		defer l.Close()

		Convey("When many callers ask for the snapshot at once", func() {
			var wg sync.WaitGroup
			versions := make([]string, 10)
			for i := range versions {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					s, err := l.Snapshot(ctx)
					if err == nil {
						versions[i] = s.Version
					}
				}(i)
			}
			wg.Wait()

			Convey("Then the source is fetched once and everyone gets the same data", func() {
				So(src.calls.Load(), ShouldEqual, 1)
				for _, v := range versions {
					So(v, ShouldEqual, versions[0])
					So(v, ShouldNotBeEmpty)
				}
			})

			Convey("Then later calls are served from memory", func() {
				_, err := l.Snapshot(ctx)
				So(err, ShouldBeNil)
				So(src.calls.Load(), ShouldEqual, 1)
			})
		})

		Convey("When a refresh fails after a successful load", func() {
			first, err := l.Snapshot(ctx)
			So(err, ShouldBeNil)
			src.fail.Store(true)
			_, err = l.Refresh(ctx)

			Convey("Then the error is distinct and the old snapshot keeps serving", func() {
				So(errors.Is(err, ErrUnavailable), ShouldBeTrue)
				cur, ok := l.Current()
				So(ok, ShouldBeTrue)
				So(cur.Version, ShouldEqual, first.Version)
			})
		})

		Convey("When a refresh succeeds with new data", func() {
			first, _ := l.Snapshot(ctx)
			src.events = append(sampleEvents(), model.RawEvent{ID: "3", Location: "Swamp", Date: "2024-01-09", Participants: []string{"Cy"}})
			next, err := l.Refresh(ctx)

			Convey("Then the snapshot is replaced", func() {
				So(err, ShouldBeNil)
				So(next.Version, ShouldNotEqual, first.Version)
				cur, _ := l.Current()
				So(cur.Version, ShouldEqual, next.Version)
				So(len(cur.Events), ShouldEqual, 3)
			})
		})
	})

	Convey("Given a source that fails from the start", t, func() {
		src := &fakeSource{events: sampleEvents()}
		src.fail.Store(true)
		l := NewLoader(ctx, src)
		defer l.Close()

		_, err := l.Snapshot(ctx)

		Convey("Then the caller sees the source as unavailable", func() {
			So(errors.Is(err, ErrUnavailable), ShouldBeTrue)
			_, ok := l.Current()
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a store that already holds a snapshot", t, func() {
		store := NewMemoryStore()
		stored := ingest.Ingest(ctx, sampleEvents(), nil)
		So(store.Save(ctx, stored), ShouldBeNil)

		src := &fakeSource{events: sampleEvents()}
		l := NewLoader(ctx, src, WithStore(store))
		defer l.Close()

		s, err := l.Snapshot(ctx)

		Convey("Then the source is not touched", func() {
			So(err, ShouldBeNil)
			So(s.Version, ShouldEqual, stored.Version)
			So(src.calls.Load(), ShouldEqual, 0)
		})
	})
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty memory store", t, func() {
		s := NewMemoryStore()

		Convey("Then nothing loads", func() {
			_, ok, err := s.Load(ctx)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("When a snapshot is saved", func() {
			So(s.Save(ctx, model.Snapshot{Version: "v1"}), ShouldBeNil)
			So(s.Save(ctx, model.Snapshot{Version: "v2"}), ShouldBeNil)

			Convey("Then the latest one loads", func() {
				snap, ok, err := s.Load(ctx)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(snap.Version, ShouldEqual, "v2")
			})
		})
	})
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a redis store", t, func() {
		db, mock := redismock.NewClientMock()
		s := NewRedisStore(db, "test")
		snap := ingest.Ingest(ctx, sampleEvents(), nil)
		payload, err := encodeSnapshot(snap)
		So(err, ShouldBeNil)

		Convey("When the key holds a snapshot", func() {
			mock.ExpectGet("test:snapshot").SetVal(string(payload))
			got, ok, err := s.Load(ctx)

			Convey("Then it decodes", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(got.Version, ShouldEqual, snap.Version)
				So(len(got.Events), ShouldEqual, 2)
				So(got.Events[0].Date.Equal(snap.Events[0].Date), ShouldBeTrue)
				So(got.Names["abe"], ShouldEqual, "Abe")
				So(mock.ExpectationsWereMet(), ShouldBeNil)
			})
		})

		Convey("When the key is missing", func() {
			mock.ExpectGet("test:snapshot").RedisNil()
			_, ok, err := s.Load(ctx)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("When redis fails", func() {
			mock.ExpectGet("test:snapshot").SetErr(errors.New("connection refused"))
			_, _, err := s.Load(ctx)
			So(errors.Is(err, ErrStore), ShouldBeTrue)
		})

		Convey("When the payload is garbage", func() {
			mock.ExpectGet("test:snapshot").SetVal("\xc1")
			_, _, err := s.Load(ctx)
			So(errors.Is(err, ErrStore), ShouldBeTrue)
		})

		Convey("When a snapshot is saved", func() {
			mock.ExpectSet("test:snapshot", payload, 0).SetVal("OK")
			err := s.Save(ctx, snap)

			Convey("Then the encoded bytes are written", func() {
				So(err, ShouldBeNil)
				So(mock.ExpectationsWereMet(), ShouldBeNil)
			})
		})

		Convey("When the write fails", func() {
			mock.ExpectSet("test:snapshot", payload, 0).SetErr(redis.ErrClosed)
			So(errors.Is(s.Save(ctx, snap), ErrStore), ShouldBeTrue)
		})
	})
}
