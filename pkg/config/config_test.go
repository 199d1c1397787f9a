package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingPathYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	def := Default()
	if cfg.SaveRoot != def.SaveRoot || cfg.Scan.ToleranceSeconds != def.Scan.ToleranceSeconds {
		t.Errorf("missing file did not yield defaults: %+v", cfg)
	}
	if len(cfg.Products) != 6 {
		t.Errorf("default products = %d, want 6", len(cfg.Products))
	}
	if cfg.WMS.Layers != "dwr_kochi:maxz_image" {
		t.Errorf("WMS layers = %s", cfg.WMS.Layers)
	}
}

func TestDefaultArchiveDatesAgree(t *testing.T) {
	// The archive nests the calendar date twice: the base URL ends in the
	// per-day directory yyyy/ddMON/ and every filename embeds ddMONyyyy.
	// The defaults must name the same day in both places or no probe URL
	// can ever resolve.
	cfg := Default()
	seg := cfg.Archive.DateSegment
	if len(seg) != len("28JUL2025") {
		t.Fatalf("DateSegment = %q, want ddMONyyyy form", seg)
	}
	day, month, year := seg[:2], seg[2:5], seg[5:]
	wantDir := "/" + year + "/" + day + month + "/"
	if !strings.HasSuffix(cfg.Archive.BaseURL, wantDir) {
		t.Errorf("BaseURL %q does not end in %q from DateSegment %q", cfg.Archive.BaseURL, wantDir, seg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	raw := `
save_root: /data/radar
scan_product: kochi
archive:
  base_url: https://example.org/look/DWR/RCTLS/2025/28JUL/
  product: RCTLS
  date_segment: 28JUL2025
  suffix: L2B_STD_MAXZ
scan:
  tolerance_seconds: 10
  window_seconds: 3600
  include_variants: false
probe_timeout_seconds: 8
products:
  caz: http://example.org/caz.gif
`
	path := filepath.Join(t.TempDir(), "radarwatch.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o640); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.SaveRoot != "/data/radar" {
		t.Errorf("SaveRoot = %s", cfg.SaveRoot)
	}
	if cfg.Archive.DateSegment != "28JUL2025" {
		t.Errorf("DateSegment = %s", cfg.Archive.DateSegment)
	}
	if cfg.Scan.ToleranceSeconds != 10 || cfg.Scan.WindowSeconds != 3600 {
		t.Errorf("Scan = %+v", cfg.Scan)
	}
	if cfg.ProbeTimeout() != 8*time.Second {
		t.Errorf("ProbeTimeout = %v, want 8s", cfg.ProbeTimeout())
	}
	// Untouched knobs keep their defaults.
	if cfg.Scan.MaxConsecutiveMisses != 5 {
		t.Errorf("MaxConsecutiveMisses = %d, want default 5", cfg.Scan.MaxConsecutiveMisses)
	}
	if cfg.WatchInterval() != time.Hour {
		t.Errorf("WatchInterval = %v, want default 1h", cfg.WatchInterval())
	}
	if len(cfg.Products) != 1 {
		t.Errorf("Products = %v, want the single configured entry", cfg.Products)
	}
}

func TestLoadRejectsMissingArchive(t *testing.T) {
	raw := `
archive:
  base_url: ""
  product: ""
`
	path := filepath.Join(t.TempDir(), "radarwatch.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o640); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load accepted a config without archive settings")
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radarwatch.yaml")
	if err := os.WriteFile(path, []byte(":\nnot yaml: ["), 0o640); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load accepted malformed YAML")
	}
}
