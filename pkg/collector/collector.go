// Package collector orchestrates one archive prediction scan: load the
// learned history, derive the cadence profile, generate candidates for
// the hours of interest, confirm them against the archive, save the new
// frames and write the updated history back.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/radarwatch-dev/radarwatch/pkg/history"
	"github.com/radarwatch-dev/radarwatch/pkg/interval"
	"github.com/radarwatch-dev/radarwatch/pkg/predict"
	"github.com/radarwatch-dev/radarwatch/pkg/probe"
	"github.com/radarwatch-dev/radarwatch/pkg/store"
	"github.com/radarwatch-dev/radarwatch/pkg/timeofday"
)

// Options configures a scan run.
type Options struct {
	Fetcher              probe.Fetcher
	Logger               *slog.Logger
	Clock                func() time.Time // nil means time.Now
	HistoryPath          string           // "" disables persistence
	SaveDir              string           // "" disables saving payloads
	Product              string           // used in saved filenames
	ToleranceSeconds     int
	WindowSeconds        int
	MaxSteps             int
	MaxConsecutiveMisses int
	IncludeVariants      bool
}

// ScanReport summarizes a finished run.
type ScanReport struct {
	Reference  timeofday.TimeOfDay
	Hits       []probe.Result
	Candidates int
	Probed     int
	Saved      int
	Duplicates int
}

// Run performs one complete scan. The hours of interest are the current
// and previous UTC hour, matching the archive's publishing behavior: a
// frame never appears more than an hour after its timestamp.
func Run(ctx context.Context, opts Options) (ScanReport, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	if opts.Fetcher == nil {
		return ScanReport{}, fmt.Errorf("collector: fetcher is required")
	}

	wallNow := clock().UTC()
	now, err := timeofday.FromClock(wallNow.Hour(), wallNow.Minute(), wallNow.Second())
	if err != nil {
		return ScanReport{}, fmt.Errorf("collector: reading clock: %w", err)
	}

	hist := history.Load(opts.HistoryPath, logger)
	reference, ok := hist.Reference()
	if !ok {
		// Nothing learned yet: anchor on the current time and let the scan
		// walk backward for recent frames.
		reference = now
		logger.Info("no history, anchoring on current time", "reference", reference.Clock())
	}

	profile := interval.DeriveProfile(hist.Timestamps())
	logger.Debug("cadence profile",
		"short_base", profile.ShortBase,
		"long_base", profile.LongBase,
		"history_entries", hist.Len())

	gen := predict.NewGenerator(profile, opts.IncludeVariants)
	if opts.WindowSeconds > 0 {
		gen.WindowSeconds = opts.WindowSeconds
	}
	if opts.MaxSteps > 0 {
		gen.MaxSteps = opts.MaxSteps
	}

	candidates := gen.Candidates(now, reference)
	candidates = predict.FilterHours(candidates, targetHours(now))
	candidates = dropKnown(candidates, hist, reference, now, ok)
	logger.Info("candidates generated",
		"count", len(candidates),
		"reference", reference.Clock(),
		"now", now.Clock())

	prober := probe.NewProber(opts.Fetcher, opts.ToleranceSeconds, logger)
	scanner := probe.NewScanner(prober, opts.MaxConsecutiveMisses, logger)
	hits := scanner.Scan(ctx, candidates)

	report := ScanReport{
		Reference:  reference,
		Hits:       hits,
		Candidates: len(candidates),
		Probed:     scanner.Probed(),
	}

	for _, hit := range hits {
		hist.Add(hit.Actual)
		if opts.SaveDir == "" {
			continue
		}
		filename := fmt.Sprintf("%s_radar_mosdac_%s%s", opts.Product, hit.Actual.String(), extensionFor(hit.Payload.ContentType))
		saved, err := store.Save(opts.SaveDir, filename, hit.Payload.Data, logger)
		if err != nil {
			logger.Warn("saving frame failed", "timestamp", hit.Actual.String(), "error", err)
			continue
		}
		if saved.Duplicate {
			report.Duplicates++
		} else {
			report.Saved++
		}
	}

	if len(hits) > 0 {
		hist.SetReference(hits[len(hits)-1].Actual)
	}
	if opts.HistoryPath != "" && hist.Dirty() {
		if err := hist.Save(opts.HistoryPath, wallNow, logger); err != nil {
			// Only the learned update is lost; the downloads are on disk.
			logger.Warn("history save failed", "path", opts.HistoryPath, "error", err)
		}
	}

	return report, nil
}

// dropKnown removes candidates that cannot yield new data: timestamps
// already confirmed in the history, and everything at or before a
// reference that lies in the past. Probing runs oldest-first with a
// consecutive-miss cutoff, so leaving stale backfill candidates in place
// would end a scan before it ever reached the frames it was predicting.
func dropKnown(candidates []timeofday.TimeOfDay, hist *history.History, reference, now timeofday.TimeOfDay, hasRef bool) []timeofday.TimeOfDay {
	known := make(map[timeofday.TimeOfDay]bool, hist.Len())
	for _, ts := range hist.Timestamps() {
		known[ts] = true
	}
	skipBackfill := hasRef && reference <= now

	out := candidates[:0]
	for _, c := range candidates {
		if known[c] {
			continue
		}
		if skipBackfill && c <= reference {
			continue
		}
		out = append(out, c)
	}
	return out
}

// targetHours is the previous and current hour, wrapping at midnight.
func targetHours(now timeofday.TimeOfDay) []int {
	hour := now.Hour()
	prev := hour - 1
	if prev < 0 {
		prev = 23
	}
	return []int{prev, hour}
}

func extensionFor(contentType string) string {
	if contentType == "image/png" {
		return ".png"
	}
	return ".gif"
}

// SaveDirFor maps a product name to its directory under the save root.
func SaveDirFor(saveRoot, product string) string {
	return filepath.Join(saveRoot, product)
}
