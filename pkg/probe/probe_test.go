package probe

import (
	"context"
	"errors"
	"log/slog"
	"testing"

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

// fakeFetcher reports success for a fixed set of timestamps and records
// the order of fetches it sees.
type fakeFetcher struct {
	present map[string]Payload
	errAt   map[string]error
	seen    []string
}

func (f *fakeFetcher) Fetch(_ context.Context, ts timeofday.TimeOfDay) (Payload, bool, error) {
	text := ts.String()
	f.seen = append(f.seen, text)
	if err, ok := f.errAt[text]; ok {
		return Payload{}, false, err
	}
	if p, ok := f.present[text]; ok {
		return p, true, nil
	}
	return Payload{}, false, nil
}

func gifPayload() Payload {
	return Payload{Data: []byte("GIF89a_fake_radar_frame"), ContentType: "image/gif"}
}

func TestProbeExactMatchFirst(t *testing.T) {
	f := &fakeFetcher{present: map[string]Payload{"132322": gifPayload()}}
	p := NewProber(f, 20, slog.Default())

	res := p.Probe(context.Background(), mustParse(t, "132322"))
	if !res.Found || !res.Exact() {
		t.Fatalf("expected exact match, got %+v", res)
	}
	if len(f.seen) != 1 {
		t.Errorf("exact hit should need one fetch, saw %d", len(f.seen))
	}
}

func TestProbeToleranceFindsNearbyTimestamp(t *testing.T) {
	// Only 13:23:30 exists; candidate 13:23:22 is 8 seconds off.
	f := &fakeFetcher{present: map[string]Payload{"132330": gifPayload()}}
	p := NewProber(f, 20, slog.Default())

	res := p.Probe(context.Background(), mustParse(t, "132322"))
	if !res.Found {
		t.Fatal("expected a tolerance match")
	}
	if res.Actual.String() != "132330" {
		t.Errorf("Actual = %s, want 132330", res.Actual)
	}
	if res.Exact() {
		t.Error("match at +8s must not report as exact")
	}
}

func TestProbeScansNearestFirst(t *testing.T) {
	f := &fakeFetcher{present: map[string]Payload{}}
	p := NewProber(f, 3, slog.Default())

	p.Probe(context.Background(), mustParse(t, "120000"))

	want := []string{"120000", "115959", "120001", "115958", "120002", "115957", "120003"}
	if len(f.seen) != len(want) {
		t.Fatalf("fetched %v, want %v", f.seen, want)
	}
	for i, ts := range want {
		if f.seen[i] != ts {
			t.Errorf("fetch %d = %s, want %s", i, f.seen[i], ts)
		}
	}
}

func TestProbeReturnsClosestReachableOffset(t *testing.T) {
	// +2 and -5 both exist; the closer one must win.
	f := &fakeFetcher{present: map[string]Payload{
		"120002": gifPayload(),
		"115955": gifPayload(),
	}}
	p := NewProber(f, 20, slog.Default())

	res := p.Probe(context.Background(), mustParse(t, "120000"))
	if !res.Found || res.Actual.String() != "120002" {
		t.Errorf("Actual = %+v, want match at 120002", res)
	}
}

func TestProbeSkipsOffsetsOutsideDay(t *testing.T) {
	f := &fakeFetcher{present: map[string]Payload{}}
	p := NewProber(f, 5, slog.Default())

	p.Probe(context.Background(), mustParse(t, "000002"))
	for _, ts := range f.seen {
		if _, err := timeofday.Parse(ts); err != nil {
			t.Errorf("probed invalid timestamp %q", ts)
		}
	}
	// Offsets -3, -4 and -5 would go below midnight and must be skipped:
	// exact + 2 reachable negatives + 5 positives.
	if len(f.seen) != 8 {
		t.Errorf("fetched %d offsets, want 8: %v", len(f.seen), f.seen)
	}
}

func TestProbeTransportErrorDegradesToMiss(t *testing.T) {
	// The exact offset errors out, but +1 succeeds; the scan must carry on.
	f := &fakeFetcher{
		present: map[string]Payload{"120001": gifPayload()},
		errAt:   map[string]error{"120000": errors.New("connection refused")},
	}
	p := NewProber(f, 20, slog.Default())

	res := p.Probe(context.Background(), mustParse(t, "120000"))
	if !res.Found || res.Actual.String() != "120001" {
		t.Errorf("transport error aborted the scan: %+v", res)
	}
}

func TestProbeRejectsMarkupPayloads(t *testing.T) {
	cases := []Payload{
		{Data: []byte("<!DOCTYPE html><html></html>"), ContentType: "image/gif"},
		{Data: []byte("<html><body>missing</body></html>"), ContentType: "image/gif"},
		{Data: []byte("GIF89a"), ContentType: "text/html; charset=utf-8"},
		{Data: []byte("  \n<!doctype html>"), ContentType: ""},
	}
	for i, payload := range cases {
		f := &fakeFetcher{present: map[string]Payload{"120000": payload}}
		p := NewProber(f, 0, slog.Default())
		if res := p.Probe(context.Background(), mustParse(t, "120000")); res.Found {
			t.Errorf("case %d: markup payload reported as found", i)
		}
	}
}

func TestProbeZeroToleranceExactOnly(t *testing.T) {
	f := &fakeFetcher{present: map[string]Payload{"120001": gifPayload()}}
	p := NewProber(f, 0, slog.Default())

	if res := p.Probe(context.Background(), mustParse(t, "120000")); res.Found {
		t.Error("zero tolerance must not match a neighboring timestamp")
	}
	if len(f.seen) != 1 {
		t.Errorf("zero tolerance probed %d offsets, want 1", len(f.seen))
	}
}
