// Package main implements the radarwatch CLI: collect Doppler weather
// radar composites from their fixed URLs and hunt the timestamped
// archive for frames the site never links to.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/radarwatch-dev/radarwatch/pkg/archive"
	"github.com/radarwatch-dev/radarwatch/pkg/collector"
	"github.com/radarwatch-dev/radarwatch/pkg/config"
	"github.com/radarwatch-dev/radarwatch/pkg/probe"
	"github.com/radarwatch-dev/radarwatch/pkg/probecache"
	"github.com/radarwatch-dev/radarwatch/pkg/report"
	"github.com/radarwatch-dev/radarwatch/pkg/scheduler"
	"github.com/radarwatch-dev/radarwatch/pkg/static"
)

var (
	configPath = flag.String("config", "", "Path to YAML config (or set RADARWATCH_CONFIG)")
	saveRoot   = flag.String("save-root", "", "Override the save root directory")
	noCache    = flag.Bool("no-cache", false, "Disable the probe result cache")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Show version")
)

const usage = `Usage: %s [flags] <command>

Commands:
  scan     Probe the timestamped archive for new frames
  fetch    Download the latest composite from every static product URL
  watch    Run fetch+scan now and then on the configured interval
  report   Summarize the collected images per product
  cleanup  Delete collected images older than the retention window

Flags:
`

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *version {
		fmt.Println("radarwatch v1.2.0")
		return
	}

	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		os.Exit(1)
	}
	command := args[0]

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	if *configPath == "" {
		*configPath = os.Getenv("RADARWATCH_CONFIG")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("loading config failed", "path", *configPath, "error", err)
		os.Exit(1)
	}
	if *saveRoot != "" {
		cfg.SaveRoot = *saveRoot
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, command, cfg, logger); err != nil {
		logger.Error("command failed", "command", command, "error", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, cfg config.Config, logger *slog.Logger) error {
	switch command {
	case "scan":
		return runScan(ctx, cfg, logger)
	case "fetch":
		return runFetch(ctx, cfg, logger)
	case "watch":
		return runWatch(ctx, cfg, logger)
	case "report":
		return runReport(cfg)
	case "cleanup":
		return runCleanup(cfg, logger)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// dateSegment is today's segment of the archive filename, e.g.
// 28JUL2025, unless the config pins one.
func dateSegment(cfg config.Config) string {
	if cfg.Archive.DateSegment != "" {
		return cfg.Archive.DateSegment
	}
	return strings.ToUpper(time.Now().UTC().Format("02Jan2006"))
}

// buildFetcher assembles the archive client and, unless disabled, wraps
// it in the persisted probe cache. The returned closer flushes the cache
// snapshot; it is a no-op when caching is off.
func buildFetcher(ctx context.Context, cfg config.Config, segment string, logger *slog.Logger) (probe.Fetcher, func(), error) {
	client, err := archive.NewClient(archive.Config{
		BaseURL:     cfg.Archive.BaseURL,
		Product:     cfg.Archive.Product,
		DateSegment: segment,
		Suffix:      cfg.Archive.Suffix,
		Timeout:     cfg.ProbeTimeout(),
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	if *noCache || cfg.CacheDir == "" {
		return client, func() {}, nil
	}

	// Keyed per day: yesterday's confirmations are useless against
	// today's archive path.
	cache, err := probecache.New(ctx, cfg.CacheDir, cfg.Archive.Product+"_"+segment, 24*time.Hour, logger)
	if err != nil {
		logger.Warn("probe cache unavailable, continuing without", "error", err)
		return client, func() {}, nil
	}
	closer := func() {
		if err := cache.Close(); err != nil {
			logger.Warn("closing probe cache failed", "error", err)
		}
	}
	return probecache.NewFetcher(client, cache), closer, nil
}

func runScan(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	segment := dateSegment(cfg)
	fetcher, closeCache, err := buildFetcher(ctx, cfg, segment, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	rep, err := collector.Run(ctx, collector.Options{
		Fetcher:              fetcher,
		Logger:               logger,
		HistoryPath:          cfg.HistoryPath,
		SaveDir:              collector.SaveDirFor(cfg.SaveRoot, cfg.ScanProduct),
		Product:              cfg.ScanProduct,
		ToleranceSeconds:     cfg.Scan.ToleranceSeconds,
		WindowSeconds:        cfg.Scan.WindowSeconds,
		MaxSteps:             cfg.Scan.MaxSteps,
		MaxConsecutiveMisses: cfg.Scan.MaxConsecutiveMisses,
		IncludeVariants:      cfg.Scan.IncludeVariants,
	})
	if err != nil {
		return err
	}
	printScan(rep)
	return nil
}

func printScan(rep collector.ScanReport) {
	bold := color.New(color.Bold)
	bold.Printf("Archive scan: reference %s\n", rep.Reference.Clock())
	fmt.Printf("  candidates %d, probed %d\n", rep.Candidates, rep.Probed)
	if len(rep.Hits) == 0 {
		color.New(color.FgYellow).Println("  no new frames found")
		return
	}
	for _, hit := range rep.Hits {
		marker := color.GreenString("hit")
		if !hit.Exact() {
			marker = color.CyanString("near")
		}
		fmt.Printf("  %s %s (candidate %s)\n", marker, hit.Actual.Clock(), hit.Candidate.Clock())
	}
	fmt.Printf("  saved %d, duplicates %d\n", rep.Saved, rep.Duplicates)
}

// buildProducts expands the configured static URLs plus the WMS MAXZ
// layer into downloadable products.
func buildProducts(cfg config.Config) ([]static.Product, error) {
	names := make([]string, 0, len(cfg.Products))
	for name := range cfg.Products {
		names = append(names, name)
	}
	sort.Strings(names)

	products := make([]static.Product, 0, len(names)+1)
	for _, name := range names {
		products = append(products, static.Product{
			Name: name,
			URL:  cfg.Products[name],
			Dir:  collector.SaveDirFor(cfg.SaveRoot, name),
		})
	}
	if cfg.WMS.Endpoint != "" {
		wmsURL, err := static.WMSURL(cfg.WMS.Endpoint, static.DefaultWMSParams(cfg.WMS.Layers))
		if err != nil {
			return nil, err
		}
		products = append(products, static.Product{
			Name: "maxz",
			URL:  wmsURL,
			Dir:  collector.SaveDirFor(cfg.SaveRoot, "maxz"),
		})
	}
	return products, nil
}

func runFetch(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	products, err := buildProducts(cfg)
	if err != nil {
		return err
	}

	downloader := static.NewDownloader(cfg.FetchTimeout(), logger)
	outcomes := downloader.DownloadAll(ctx, products)

	failed := 0
	for _, o := range outcomes {
		switch {
		case !o.OK():
			failed++
			fmt.Printf("  %s %s: %v\n", color.RedString("fail"), o.Product, o.Err)
		case o.Duplicate:
			fmt.Printf("  %s %s: unchanged\n", color.YellowString("dup "), o.Product)
		default:
			fmt.Printf("  %s %s: %s (%s)\n", color.GreenString("ok  "), o.Product, o.Path, report.FormatSize(int64(o.Bytes)))
		}
	}
	if failed == len(outcomes) && failed > 0 {
		return fmt.Errorf("all %d products failed", failed)
	}
	return nil
}

func runWatch(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("watch loop starting", "interval", cfg.WatchInterval())
	err := scheduler.New(cfg.WatchInterval(), logger).Run(ctx, func(ctx context.Context) error {
		if err := runFetch(ctx, cfg, logger); err != nil {
			logger.Error("fetch cycle failed", "error", err)
		}
		return runScan(ctx, cfg, logger)
	})
	if ctx.Err() != nil {
		logger.Info("watch loop stopped")
		return nil
	}
	return err
}

func runReport(cfg config.Config) error {
	summary, err := report.Analyze(cfg.SaveRoot)
	if err != nil {
		return err
	}
	fmt.Print(report.Render(summary))
	return nil
}

func runCleanup(cfg config.Config, logger *slog.Logger) error {
	result, err := report.Cleanup(cfg.SaveRoot, cfg.CleanupKeep(), time.Now())
	if err != nil {
		return err
	}
	logger.Info("cleanup finished",
		"removed", result.Removed,
		"freed", report.FormatSize(result.BytesFreed),
		"keep", cfg.CleanupKeep())
	fmt.Printf("Removed %d files, freed %s\n", result.Removed, report.FormatSize(result.BytesFreed))
	return nil
}
