package loadgen_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/paxstats/internal/adapters/http/api"
	"github.com/okian/paxstats/internal/adapters/repository"
	"github.com/okian/paxstats/internal/adapters/source"
	service "github.com/okian/paxstats/internal/app"
	"github.com/okian/paxstats/internal/domain/ingest"
	"github.com/okian/paxstats/internal/domain/model"
	"github.com/okian/paxstats/internal/domain/types"
	"github.com/okian/paxstats/internal/loadgen"
	"github.com/okian/paxstats/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

var end = time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

func smallConfig(seed int64) loadgen.GenerateConfig {
	return loadgen.GenerateConfig{
		Seed:       seed,
		People:     40,
		Locations:  3,
		Events:     150,
		Days:       90,
		End:        end,
		MaxPax:     12,
		InviteRate: 0.8,
	}
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()

	Convey("Given a seeded generator", t, func() {
		ds, err := loadgen.Generate(ctx, smallConfig(7))
		So(err, ShouldBeNil)

		Convey("Then it produces the requested sizes", func() {
			So(len(ds.People), ShouldEqual, 40)
			So(len(ds.Events), ShouldEqual, 150)
		})

		Convey("Then the same seed gives the same dataset", func() {
			again, err := loadgen.Generate(ctx, smallConfig(7))
			So(err, ShouldBeNil)
			So(again, ShouldResemble, ds)
		})

		Convey("Then inviters were generated before their invitees", func() {
			pos := map[string]int{}
			for i, p := range ds.People {
				pos[p.Name] = i
			}
			for i, p := range ds.People {
				if p.InvitedBy == "" {
					continue
				}
				j, ok := pos[p.InvitedBy]
				So(ok, ShouldBeTrue)
				So(j, ShouldBeLessThan, i)
			}
		})

		Convey("Then every event is well formed", func() {
			first := end.AddDate(0, 0, -89).Format(time.DateOnly)
			last := end.Format(time.DateOnly)
			for _, e := range ds.Events {
				So(e.Date, ShouldBeGreaterThanOrEqualTo, first)
				So(e.Date, ShouldBeLessThanOrEqualTo, last)
				So(len(e.Participants), ShouldBeBetweenOrEqual, 1, 12)
				So(len(e.Leaders), ShouldBeBetweenOrEqual, 1, 2)
				for _, q := range e.Leaders {
					So(e.Participants, ShouldContain, q)
				}
			}
		})

		Convey("Then ingestion keeps everything", func() {
			snap := ingest.Ingest(ctx, ds.Events, ds.People)
			So(snap.Report.SkippedTotal(), ShouldEqual, 0)
			So(len(snap.Events), ShouldEqual, 150)
			So(len(snap.People), ShouldEqual, 40)
		})
	})

	Convey("Given sizes that cannot work", t, func() {
		cfg := smallConfig(1)
		cfg.Events = -1
		_, err := loadgen.Generate(ctx, cfg)
		So(err, ShouldNotBeNil)
	})
}

func TestWriteDataset(t *testing.T) {
	Convey("Given a generated dataset written to disk", t, func() {
		ctx := context.Background()
		ds, err := loadgen.Generate(ctx, smallConfig(3))
		So(err, ShouldBeNil)

		dir := filepath.Join(t.TempDir(), "data")
		eventsFile := filepath.Join(dir, "backblasts.json")
		peopleFile := filepath.Join(dir, "pax.json")
		So(loadgen.WriteDataset(ds, eventsFile, peopleFile), ShouldBeNil)

		Convey("Then a file source reads it back", func() {
			src := source.NewFileSource(eventsFile, peopleFile)
			events, err := src.Events(ctx)
			So(err, ShouldBeNil)
			So(len(events), ShouldEqual, len(ds.Events))
			people, err := src.People(ctx)
			So(err, ShouldBeNil)
			So(people, ShouldResemble, ds.People)
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given a running service over a generated dataset", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cfg := smallConfig(11)
		cfg.End = time.Now().UTC()
		ds, err := loadgen.Generate(ctx, cfg)
		So(err, ShouldBeNil)
		dir := t.TempDir()
		eventsFile := filepath.Join(dir, "backblasts.json")
		peopleFile := filepath.Join(dir, "pax.json")
		So(loadgen.WriteDataset(ds, eventsFile, peopleFile), ShouldBeNil)

		loader := repository.NewLoader(ctx, source.NewFileSource(eventsFile, peopleFile))
		defer func() { _ = loader.Close() }()
		svc := service.New(loader)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When the verifier refreshes and checks the views", func() {
			report, err := loadgen.Verify(ctx, loadgen.VerifyConfig{
				BaseURL:         srv.URL,
				Refresh:         true,
				RefreshWait:     5 * time.Second,
				TopN:            20,
				KotterThreshold: 14,
			})

			Convey("Then every check passes", func() {
				So(err, ShouldBeNil)
				So(report.Failed(), ShouldBeEmpty)
				So(report.Passed(), ShouldBeTrue)
				So(report.Version, ShouldNotBeEmpty)
			})

			Convey("Then the report can be written", func() {
				path := filepath.Join(dir, "report.json")
				So(loadgen.WriteReport(report, path), ShouldBeNil)
				b, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				var back loadgen.Report
				So(json.Unmarshal(b, &back), ShouldBeNil)
				So(len(back.Checks), ShouldEqual, len(report.Checks))
			})
		})
	})

	Convey("Given a service whose leaderboard is out of order", t, func() {
		boards := types.Leaderboards{
			Leaderboard: []types.LeaderboardEntry{
				{Rank: 1, PersonStats: types.PersonStats{ID: model.PersonID("a"), TotalEvents: 1}},
				{Rank: 2, PersonStats: types.PersonStats{ID: model.PersonID("b"), TotalEvents: 5}},
			},
			NeverLed: []types.LeaderboardEntry{
				{Rank: 1, PersonStats: types.PersonStats{ID: model.PersonID("a"), TotalEvents: 1, TotalLeaderEvents: 1}},
			},
		}
		mux := http.NewServeMux()
		mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
		mux.HandleFunc("GET /leaderboard", func(w http.ResponseWriter, _ *http.Request) { _ = json.NewEncoder(w).Encode(boards) })
		mux.HandleFunc("GET /kotter", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("[]")) })
		srv := httptest.NewServer(mux)
		defer srv.Close()

		report, err := loadgen.Verify(context.Background(), loadgen.VerifyConfig{BaseURL: srv.URL})

		Convey("Then the broken checks fail", func() {
			So(err, ShouldBeNil)
			So(report.Passed(), ShouldBeFalse)
			var names []string
			for _, c := range report.Failed() {
				names = append(names, c.Name)
			}
			So(names, ShouldContain, "leaderboard ordered")
			So(names, ShouldContain, "never_led never led")
		})
	})

	Convey("Given no service at all", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		_, err := loadgen.Verify(context.Background(), loadgen.VerifyConfig{BaseURL: srv.URL, Timeout: time.Second})

		Convey("Then verification errors out", func() {
			So(err, ShouldNotBeNil)
		})
	})
}
