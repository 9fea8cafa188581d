package loadgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	json "github.com/goccy/go-json"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/okian/paxstats/internal/domain/ranking"
	"github.com/okian/paxstats/internal/domain/types"
	"github.com/okian/paxstats/pkg/logger"
)

// errStale means the service has not published a snapshot newer than the
// refresh request yet.
var errStale = errors.New("snapshot not refreshed yet")

// Verify runs the checks against the service at cfg.BaseURL. The returned
// error covers failures to talk to the service; failed checks are recorded
// in the report.
func Verify(ctx context.Context, cfg VerifyConfig) (*Report, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RefreshWait <= 0 {
		cfg.RefreshWait = DefaultRefreshWait
	}
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	log := logger.Get().Named("verify")
	c := newClient(cfg.BaseURL, cfg.Timeout)
	report := &Report{BaseURL: cfg.BaseURL, StartedAt: time.Now()}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	status, _, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return report, fmt.Errorf("service health check failed: %w", err)
	}
	report.add("health", status == http.StatusOK, "status "+strconv.Itoa(status))

	if cfg.Refresh {
		version, err := refresh(ctx, c, cfg.RefreshWait)
		report.add("refresh", err == nil, errDetail(err))
		if err != nil {
			log.Warn(ctx, "refresh did not complete", logger.Error(err))
		}
		report.Version = version
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(cfg.TopN))
	if cfg.Window != "" {
		q.Set("window", cfg.Window)
	}
	var boards types.Leaderboards
	if err := c.getJSON(ctx, "/leaderboard?"+q.Encode(), &boards); err != nil {
		return report, err
	}
	checkLeaderboards(report, boards, cfg.TopN)

	kq := url.Values{}
	if cfg.KotterThreshold > 0 {
		kq.Set("threshold", strconv.Itoa(cfg.KotterThreshold))
	}
	var kotter []types.KotterEntry
	if err := c.getJSON(ctx, "/kotter?"+kq.Encode(), &kotter); err != nil {
		return report, err
	}
	checkKotter(report, kotter, cfg.KotterThreshold)

	log.Info(ctx, "verification finished",
		logger.Int("checks", len(report.Checks)),
		logger.Int("failed", len(report.Failed())))
	return report, nil
}

// refresh queues a reload and polls /stats until the snapshot was fetched
// after the request. It returns the new snapshot version.
func refresh(ctx context.Context, c *client, wait time.Duration) (string, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/refresh", map[string]string{"reason": "verify"})
	if err != nil {
		return "", err
	}
	if status != http.StatusAccepted {
		return "", fmt.Errorf("POST /refresh returned %d", status)
	}
	requestedAt, err := time.Parse(time.RFC3339, gjson.GetBytes(body, "requested_at").String())
	if err != nil {
		return "", fmt.Errorf("parse requested_at: %w", err)
	}

	var version string
	err = retry.Do(func() error {
		_, stats, err := c.do(ctx, http.MethodGet, "/stats", nil)
		if err != nil {
			return err
		}
		snap := gjson.GetBytes(stats, "snapshot")
		fetchedAt, err := time.Parse(time.RFC3339Nano, snap.Get("fetchedAt").String())
		if err != nil || fetchedAt.Before(requestedAt) {
			return errStale
		}
		version = snap.Get("version").String()
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(uint(max(1, wait/refreshPollInterval))),
		retry.Delay(refreshPollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	return version, err
}

func checkLeaderboards(r *Report, b types.Leaderboards, limit int) {
	views := []struct {
		name    string
		entries []types.LeaderboardEntry
		order   ranking.Compare
	}{
		{"leaderboard", b.Leaderboard, ranking.ByAttendance},
		{"top_leaders", b.TopLeaders, ranking.ByLeaderRateDesc},
		{"bottom_leaders", b.BottomLeaders, ranking.ByLeaderRateAsc},
		{"never_led", b.NeverLed, ranking.ByTotalEvents},
	}
	for _, v := range views {
		r.add(v.name+" ordered", ranking.IsSorted(v.entries, v.order), "")
		r.add(v.name+" ranks", ranksContiguous(v.entries), "")
		r.add(v.name+" limit", len(v.entries) <= limit, fmt.Sprintf("%d entries", len(v.entries)))
	}

	led := func(e types.LeaderboardEntry) bool { return e.TotalLeaderEvents > 0 }
	r.add("top_leaders all led", lo.EveryBy(b.TopLeaders, led), "")
	r.add("bottom_leaders all led", lo.EveryBy(b.BottomLeaders, led), "")
	r.add("never_led never led", lo.EveryBy(b.NeverLed, func(e types.LeaderboardEntry) bool { return !led(e) }), "")

	seen := make(map[string]struct{}, len(b.TopLeaders))
	for _, e := range b.TopLeaders {
		seen[string(e.ID)] = struct{}{}
	}
	overlap := 0
	for _, e := range b.NeverLed {
		if _, ok := seen[string(e.ID)]; ok {
			overlap++
		}
	}
	r.add("led and never_led disjoint", overlap == 0, fmt.Sprintf("%d shared", overlap))
}

func checkKotter(r *Report, entries []types.KotterEntry, threshold int) {
	order := ranking.KotterOrder(ranking.KotterRecent)
	sorted := true
	for i := 1; i < len(entries); i++ {
		if order(entries[i-1], entries[i]) > 0 {
			sorted = false
			break
		}
	}
	r.add("kotter ordered", sorted, "")
	if threshold > 0 {
		r.add("kotter threshold", lo.EveryBy(entries, func(e types.KotterEntry) bool { return e.DaysSinceLast >= threshold }),
			"threshold "+strconv.Itoa(threshold))
	}
}

func ranksContiguous(entries []types.LeaderboardEntry) bool {
	for i, e := range entries {
		if e.Rank != i+1 {
			return false
		}
	}
	return true
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// WriteReport writes r as indented JSON.
func WriteReport(r *Report, path string) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(b, '\n'), filePermission); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
