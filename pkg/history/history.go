// Package history persists the set of archive timestamps ever confirmed
// valid, plus the single reference timestamp candidate generation anchors
// on. The record is the only state that outlives a run: loaded at start,
// appended to as probes confirm new data, written back at the end.
package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/radarwatch-dev/radarwatch/pkg/timeofday"
)

// record is the on-disk shape. Whole-record semantics: load everything,
// mutate in memory, write everything back.
type record struct {
	Timestamps    []string `json:"timestamps"`
	LastReference string   `json:"last_reference"`
	UpdatedAt     string   `json:"updated_at"`
}

// History is the in-memory form: sorted unique confirmed timestamps and
// the designated reference. Not safe for concurrent use; concurrent
// runs of the driver would race on the backing file, which this design
// does not attempt to solve.
type History struct {
	timestamps []timeofday.TimeOfDay
	reference  timeofday.TimeOfDay
	hasRef     bool
	dirty      bool
}

// Timestamps returns the confirmed timestamps in ascending order.
func (h *History) Timestamps() []timeofday.TimeOfDay {
	out := make([]timeofday.TimeOfDay, len(h.timestamps))
	copy(out, h.timestamps)
	return out
}

// Reference returns the anchor timestamp and whether one is recorded.
// With no explicit reference the newest confirmed timestamp stands in.
func (h *History) Reference() (timeofday.TimeOfDay, bool) {
	if h.hasRef {
		return h.reference, true
	}
	if n := len(h.timestamps); n > 0 {
		return h.timestamps[n-1], true
	}
	return 0, false
}

// SetReference records an explicit reference override.
func (h *History) SetReference(ts timeofday.TimeOfDay) {
	if h.hasRef && h.reference == ts {
		return
	}
	h.reference = ts
	h.hasRef = true
	h.dirty = true
}

// Add inserts a confirmed timestamp, keeping the set sorted and unique.
func (h *History) Add(ts timeofday.TimeOfDay) {
	i := sort.Search(len(h.timestamps), func(i int) bool { return h.timestamps[i] >= ts })
	if i < len(h.timestamps) && h.timestamps[i] == ts {
		return
	}
	h.timestamps = append(h.timestamps, 0)
	copy(h.timestamps[i+1:], h.timestamps[i:])
	h.timestamps[i] = ts
	h.dirty = true
}

// Len returns the number of confirmed timestamps.
func (h *History) Len() int { return len(h.timestamps) }

// Dirty reports whether the history changed since it was loaded.
func (h *History) Dirty() bool { return h.dirty }

// Load reads the record at path. A missing or unreadable file is not an
// error: the learned history is an optimization, so the caller gets an
// empty History and the built-in defaults take over.
func Load(path string, logger *slog.Logger) *History {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("history unreadable, starting from defaults", "path", path, "error", err)
		}
		return &History{}
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		logger.Warn("history corrupt, starting from defaults", "path", path, "error", err)
		return &History{}
	}

	h := &History{}
	for _, text := range rec.Timestamps {
		ts, err := timeofday.Parse(text)
		if err != nil {
			logger.Warn("discarding malformed history entry", "entry", text, "error", err)
			continue
		}
		h.Add(ts)
	}
	if rec.LastReference != "" {
		if ref, err := timeofday.Parse(rec.LastReference); err == nil {
			h.reference = ref
			h.hasRef = true
		} else {
			logger.Warn("discarding malformed history reference", "entry", rec.LastReference, "error", err)
		}
	}
	h.dirty = false
	logger.Debug("history loaded", "path", path, "entries", h.Len())
	return h
}

// Save writes the record to path via a temp file and atomic rename. A
// failure loses only the learned history update, never the run's
// downloads, so callers log the returned error and carry on.
func (h *History) Save(path string, now time.Time, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	rec := record{
		Timestamps: make([]string, 0, len(h.timestamps)),
		UpdatedAt:  now.UTC().Format(time.RFC3339),
	}
	for _, ts := range h.timestamps {
		rec.Timestamps = append(rec.Timestamps, ts.String())
	}
	if ref, ok := h.Reference(); ok {
		rec.LastReference = ref.String()
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating history directory: %w", err)
		}
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o640); err != nil {
		return fmt.Errorf("writing temp history file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		if removeErr := os.Remove(tempPath); removeErr != nil && !os.IsNotExist(removeErr) {
			logger.Debug("failed to remove temp history file", "error", removeErr)
		}
		return fmt.Errorf("replacing history file: %w", err)
	}

	h.dirty = false
	logger.Debug("history saved", "path", path, "entries", h.Len())
	return nil
}
