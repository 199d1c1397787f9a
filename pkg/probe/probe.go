// Package probe confirms candidate timestamps against the archive with a
// tolerance-widened scan: a candidate counts as present if the archive
// holds an image at the exact second or at any offset within the
// tolerance window around it.
package probe

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"github.com/radarwatch-dev/radarwatch/pkg/timeofday"
)

// DefaultToleranceSeconds is the conventional half-width of the offset
// scan around a candidate.
const DefaultToleranceSeconds = 20

// Payload is the raw bytes and content type returned by a successful
// fetch.
type Payload struct {
	Data        []byte
	ContentType string
}

// Fetcher answers whether the archive holds an image for a single exact
// timestamp. A false return with a nil error means the archive responded
// but has nothing there; transport errors are reported separately so the
// caller can degrade them to a miss.
type Fetcher interface {
	Fetch(ctx context.Context, ts timeofday.TimeOfDay) (Payload, bool, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, ts timeofday.TimeOfDay) (Payload, bool, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, ts timeofday.TimeOfDay) (Payload, bool, error) {
	return f(ctx, ts)
}

// Result is the outcome of probing one candidate. Actual may differ from
// Candidate by up to the prober's tolerance.
type Result struct {
	Candidate timeofday.TimeOfDay
	Actual    timeofday.TimeOfDay
	Payload   Payload
	Found     bool
}

// Exact reports whether the match landed on the candidate itself rather
// than a tolerance offset.
func (r Result) Exact() bool { return r.Found && r.Actual == r.Candidate }

// Prober performs the tolerance-widened scan for a single candidate.
type Prober struct {
	fetcher   Fetcher
	logger    *slog.Logger
	tolerance int
}

// NewProber returns a Prober with the given tolerance in seconds; a
// non-positive tolerance probes the exact candidate only.
func NewProber(fetcher Fetcher, toleranceSeconds int, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{fetcher: fetcher, tolerance: toleranceSeconds, logger: logger}
}

// Probe checks the candidate and then nearby offsets, nearest first (-k
// before +k at equal distance), stopping at the first hit. Offsets that
// leave the valid day are skipped. A transport failure at one offset
// counts as a miss at that offset only; the scan continues, and only
// exhausting the whole range yields Found == false.
//
// A flat -N..+N sweep would hit the far edge of the window first;
// nearest-first keeps the expected probe count low since real jitter
// clusters close to the candidate.
func (p *Prober) Probe(ctx context.Context, candidate timeofday.TimeOfDay) Result {
	if res, ok := p.tryOffset(ctx, candidate, 0); ok {
		return res
	}
	for k := 1; k <= p.tolerance; k++ {
		if err := ctx.Err(); err != nil {
			break
		}
		for _, offset := range [2]int{-k, +k} {
			if res, ok := p.tryOffset(ctx, candidate, offset); ok {
				return res
			}
		}
	}
	return Result{Candidate: candidate}
}

func (p *Prober) tryOffset(ctx context.Context, candidate timeofday.TimeOfDay, offset int) (Result, bool) {
	target, err := timeofday.FromSeconds(candidate.Seconds() + offset)
	if err != nil {
		return Result{}, false
	}

	payload, found, err := p.fetcher.Fetch(ctx, target)
	if err != nil {
		// Transport failure degrades to a miss at this offset.
		p.logger.Debug("probe fetch failed", "timestamp", target.String(), "offset", offset, "error", err)
		return Result{}, false
	}
	if !found || isMarkup(payload) {
		return Result{}, false
	}
	return Result{Candidate: candidate, Actual: target, Payload: payload, Found: true}, true
}

// isMarkup rejects HTML error and placeholder pages that some mirrors
// serve with HTTP 200 in place of a missing image.
func isMarkup(p Payload) bool {
	if strings.Contains(strings.ToLower(p.ContentType), "text/html") {
		return true
	}
	trimmed := bytes.TrimLeft(p.Data, " \t\r\n")
	for _, prefix := range [][]byte{[]byte("<!DOCTYPE"), []byte("<!doctype"), []byte("<html"), []byte("<HTML")} {
		if bytes.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}
