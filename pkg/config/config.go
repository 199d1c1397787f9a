// Package config loads the run configuration: where the radar products
// live, how the archive URL template is shaped, and the knobs of the
// prediction scan. Everything is an explicit value handed to the
// routines that need it; nothing here is process-global state.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Archive names the externally supplied segments of the timestamped
// archive URL. The calendar date lives here, never in code.
type Archive struct {
	BaseURL     string `yaml:"base_url"`
	Product     string `yaml:"product"`
	DateSegment string `yaml:"date_segment"`
	Suffix      string `yaml:"suffix"`
}

// WMS points at the map server rendering the high-resolution MAXZ
// composite.
type WMS struct {
	Endpoint string `yaml:"endpoint"`
	Layers   string `yaml:"layers"`
}

// Scan holds the prediction-scan knobs.
type Scan struct {
	ToleranceSeconds     int  `yaml:"tolerance_seconds"`
	WindowSeconds        int  `yaml:"window_seconds"`
	MaxSteps             int  `yaml:"max_steps"`
	MaxConsecutiveMisses int  `yaml:"max_consecutive_misses"`
	IncludeVariants      bool `yaml:"include_variants"`
}

// Config is the whole radarwatch configuration file. Durations are plain
// seconds/minutes in YAML to keep hand-editing simple.
type Config struct {
	SaveRoot             string            `yaml:"save_root"`
	HistoryPath          string            `yaml:"history_path"`
	CacheDir             string            `yaml:"cache_dir"`
	ScanProduct          string            `yaml:"scan_product"`
	Products             map[string]string `yaml:"products"`
	Archive              Archive           `yaml:"archive"`
	WMS                  WMS               `yaml:"wms"`
	Scan                 Scan              `yaml:"scan"`
	FetchTimeoutSeconds  int               `yaml:"fetch_timeout_seconds"`
	ProbeTimeoutSeconds  int               `yaml:"probe_timeout_seconds"`
	WatchIntervalMinutes int               `yaml:"watch_interval_minutes"`
	CleanupKeepDays      int               `yaml:"cleanup_keep_days"`
}

// FetchTimeout is the per-request bound for static downloads.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// ProbeTimeout is the per-request bound for archive probes.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

// WatchInterval is the period of the watch loop.
func (c Config) WatchInterval() time.Duration {
	return time.Duration(c.WatchIntervalMinutes) * time.Minute
}

// CleanupKeep is how long collected frames are retained.
func (c Config) CleanupKeep() time.Duration {
	return time.Duration(c.CleanupKeepDays) * 24 * time.Hour
}

// Default returns the built-in configuration matching the Kerala radar
// deployment the collector was written for.
func Default() Config {
	const radarHost = "http://117.221.70.132"
	const imageHost = radarHost + "/dwr/radar/images"
	return Config{
		SaveRoot:    "radar_images",
		HistoryPath: "radar_images/history.json",
		ScanProduct: "kochi",
		Products: map[string]string{
			"caz": imageHost + "/caz_koc.gif",
			"ppz": imageHost + "/ppz_koc.gif",
			"ppi": imageHost + "/ppi_koc.gif",
			"zdr": imageHost + "/zdr_koc.gif",
			"vp2": imageHost + "/vp2_koc.gif",
			"3ds": imageHost + "/3ds_koc.gif",
		},
		Archive: Archive{
			BaseURL:     "https://mosdac.gov.in/look/DWR/RCTLS/2025/28JUL/",
			Product:     "RCTLS",
			DateSegment: "28JUL2025",
			Suffix:      "L2B_STD_MAXZ",
		},
		WMS: WMS{
			Endpoint: radarHost + "/geoserver/dwr_kochi/wms",
			Layers:   "dwr_kochi:maxz_image",
		},
		Scan: Scan{
			ToleranceSeconds:     20,
			WindowSeconds:        7200,
			MaxSteps:             100,
			MaxConsecutiveMisses: 5,
			IncludeVariants:      true,
		},
		FetchTimeoutSeconds:  15,
		ProbeTimeoutSeconds:  5,
		WatchIntervalMinutes: 60,
		CleanupKeepDays:      7,
	}
}

// Load reads a YAML configuration file over the defaults. An empty or
// missing path just yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	// yaml.v3 merges into a pre-populated map; a configured product list
	// must replace the defaults, not extend them.
	cfg.Products = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.SaveRoot == "" {
		c.SaveRoot = def.SaveRoot
	}
	if c.HistoryPath == "" {
		c.HistoryPath = def.HistoryPath
	}
	if c.ScanProduct == "" {
		c.ScanProduct = def.ScanProduct
	}
	if len(c.Products) == 0 {
		c.Products = def.Products
	}
	if c.WMS.Endpoint == "" {
		c.WMS = def.WMS
	}
	if c.Scan.ToleranceSeconds <= 0 {
		c.Scan.ToleranceSeconds = def.Scan.ToleranceSeconds
	}
	if c.Scan.WindowSeconds <= 0 {
		c.Scan.WindowSeconds = def.Scan.WindowSeconds
	}
	if c.Scan.MaxSteps <= 0 {
		c.Scan.MaxSteps = def.Scan.MaxSteps
	}
	if c.Scan.MaxConsecutiveMisses <= 0 {
		c.Scan.MaxConsecutiveMisses = def.Scan.MaxConsecutiveMisses
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = def.FetchTimeoutSeconds
	}
	if c.ProbeTimeoutSeconds <= 0 {
		c.ProbeTimeoutSeconds = def.ProbeTimeoutSeconds
	}
	if c.WatchIntervalMinutes <= 0 {
		c.WatchIntervalMinutes = def.WatchIntervalMinutes
	}
	if c.CleanupKeepDays <= 0 {
		c.CleanupKeepDays = def.CleanupKeepDays
	}
}

func (c *Config) validate() error {
	if c.Archive.BaseURL == "" {
		return fmt.Errorf("config: archive.base_url is required")
	}
	if c.Archive.Product == "" {
		return fmt.Errorf("config: archive.product is required")
	}
	return nil
}
