// Command backblast-gen writes synthetic backblast and PAX datasets and
// checks the views a running paxstats instance serves over them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/okian/paxstats/internal/loadgen"
	"github.com/okian/paxstats/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "backblast-gen",
		Usage: "generate synthetic F3 datasets and verify a running paxstats",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-format", Value: "text", Usage: "text or json"},
			&cli.StringFlag{Name: "log-level", Value: "info"},
		},
		Before: func(c *cli.Context) error {
			if err := logger.Init(logger.WithFormat(c.String("log-format")), logger.WithWriter(c.App.ErrWriter)); err != nil {
				return err
			}
			return logger.SetLevelString(c.String("log-level"))
		},
		Commands: []*cli.Command{
			generateCommand(),
			verifyCommand(),
		},
	}
}

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "write backblasts and PAX JSON files",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "seed", Value: time.Now().UnixNano(), DefaultText: "current time"},
			&cli.IntFlag{Name: "people", Value: loadgen.DefaultPeople},
			&cli.IntFlag{Name: "locations", Value: loadgen.DefaultLocations},
			&cli.IntFlag{Name: "events", Value: loadgen.DefaultEvents},
			&cli.IntFlag{Name: "days", Value: loadgen.DefaultDays, Usage: "spread events over this many days ending today"},
			&cli.IntFlag{Name: "max-pax", Value: loadgen.DefaultMaxPax},
			&cli.Float64Flag{Name: "invite-rate", Value: loadgen.DefaultInviteRate},
			&cli.StringFlag{Name: "events-file", Value: "data/backblasts.json"},
			&cli.StringFlag{Name: "people-file", Value: "data/pax.json"},
		},
		Action: func(c *cli.Context) error {
			ds, err := loadgen.Generate(c.Context, loadgen.GenerateConfig{
				Seed:       c.Int64("seed"),
				People:     c.Int("people"),
				Locations:  c.Int("locations"),
				Events:     c.Int("events"),
				Days:       c.Int("days"),
				MaxPax:     c.Int("max-pax"),
				InviteRate: c.Float64("invite-rate"),
			})
			if err != nil {
				return err
			}
			if err := loadgen.WriteDataset(ds, c.String("events-file"), c.String("people-file")); err != nil {
				return err
			}
			logger.Get().Info(c.Context, "dataset written",
				logger.String("events", c.String("events-file")),
				logger.String("people", c.String("people-file")),
				logger.Int64("seed", c.Int64("seed")))
			return nil
		},
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "check leaderboard and kotter invariants on a running service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:9080", EnvVars: []string{"PAXSTATS_URL"}},
			&cli.DurationFlag{Name: "timeout", Value: loadgen.DefaultTimeout},
			&cli.BoolFlag{Name: "refresh", Usage: "reload the dataset before checking"},
			&cli.DurationFlag{Name: "refresh-wait", Value: loadgen.DefaultRefreshWait},
			&cli.IntFlag{Name: "top", Value: loadgen.DefaultTopN},
			&cli.StringFlag{Name: "window", Usage: `e.g. "30d", "year:2024"`},
			&cli.IntFlag{Name: "kotter-threshold", Value: 14},
			&cli.StringFlag{Name: "report", Usage: "write the JSON report here"},
		},
		Action: func(c *cli.Context) error {
			report, err := loadgen.Verify(c.Context, loadgen.VerifyConfig{
				BaseURL:         c.String("url"),
				Timeout:         c.Duration("timeout"),
				Refresh:         c.Bool("refresh"),
				RefreshWait:     c.Duration("refresh-wait"),
				TopN:            c.Int("top"),
				Window:          c.String("window"),
				KotterThreshold: c.Int("kotter-threshold"),
			})
			if err != nil {
				return err
			}
			if path := c.String("report"); path != "" {
				if err := loadgen.WriteReport(report, path); err != nil {
					return err
				}
			}
			for _, f := range report.Failed() {
				logger.Get().Error(c.Context, "check failed", logger.String("check", f.Name), logger.String("detail", f.Detail))
			}
			if !report.Passed() {
				return cli.Exit(fmt.Sprintf("%d of %d checks failed", len(report.Failed()), len(report.Checks)), 1)
			}
			logger.Get().Info(c.Context, "all checks passed",
				logger.Int("checks", len(report.Checks)),
				logger.Duration("took", report.Duration))
			return nil
		},
	}
}
