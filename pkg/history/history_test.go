package history

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/radarwatch-dev/radarwatch/pkg/timeofday"
)

func mustParse(t *testing.T, text string) timeofday.TimeOfDay {
	t.Helper()
	tod, err := timeofday.Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q) returned error: %v", text, err)
	}
	return tod
}

func TestAddKeepsSortedUniqueOrder(t *testing.T) {
	h := &History{}
	for _, text := range []string{"152541", "151023", "151300", "151023"} {
		h.Add(mustParse(t, text))
	}
	got := h.Timestamps()
	want := []string{"151023", "151300", "152541"}
	if len(got) != len(want) {
		t.Fatalf("Len = %d, want %d", len(got), len(want))
	}
	for i, text := range want {
		if got[i].String() != text {
			t.Errorf("timestamps[%d] = %s, want %s", i, got[i], text)
		}
	}
	if !h.Dirty() {
		t.Error("Add did not mark history dirty")
	}
}

func TestReferenceFallsBackToNewest(t *testing.T) {
	h := &History{}
	if _, ok := h.Reference(); ok {
		t.Error("empty history reported a reference")
	}

	h.Add(mustParse(t, "151023"))
	h.Add(mustParse(t, "152541"))
	ref, ok := h.Reference()
	if !ok || ref.String() != "152541" {
		t.Errorf("Reference = %v/%v, want newest 152541", ref, ok)
	}

	h.SetReference(mustParse(t, "151300"))
	ref, ok = h.Reference()
	if !ok || ref.String() != "151300" {
		t.Errorf("Reference after override = %v/%v, want 151300", ref, ok)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "history.json")

	h := &History{}
	h.Add(mustParse(t, "151023"))
	h.Add(mustParse(t, "152541"))
	h.SetReference(mustParse(t, "152541"))

	if err := h.Save(path, time.Date(2025, 7, 28, 15, 30, 0, 0, time.UTC), slog.Default()); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if h.Dirty() {
		t.Error("Save did not clear dirty flag")
	}

	loaded := Load(path, slog.Default())
	if loaded.Len() != 2 {
		t.Fatalf("loaded Len = %d, want 2", loaded.Len())
	}
	ref, ok := loaded.Reference()
	if !ok || ref.String() != "152541" {
		t.Errorf("loaded reference = %v/%v, want 152541", ref, ok)
	}
	if loaded.Dirty() {
		t.Error("freshly loaded history reported dirty")
	}
}

func TestLoadMissingFileYieldsEmptyHistory(t *testing.T) {
	h := Load(filepath.Join(t.TempDir(), "absent.json"), slog.Default())
	if h.Len() != 0 {
		t.Errorf("missing file produced %d entries", h.Len())
	}
	if _, ok := h.Reference(); ok {
		t.Error("missing file produced a reference")
	}
}

func TestLoadCorruptFileYieldsEmptyHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o640); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}
	if h := Load(path, slog.Default()); h.Len() != 0 {
		t.Errorf("corrupt file produced %d entries", h.Len())
	}
}

func TestLoadDiscardsMalformedEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	raw := `{"timestamps":["151023","999999","garbage","152541"],"last_reference":"152541","updated_at":"2025-07-28T15:30:00Z"}`
	if err := os.WriteFile(path, []byte(raw), 0o640); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}
	h := Load(path, slog.Default())
	if h.Len() != 2 {
		t.Errorf("loaded %d entries, want the 2 valid ones", h.Len())
	}
}
