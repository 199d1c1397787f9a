package probe

import (
	"context"
	"log/slog"

	"github.com/radarwatch-dev/radarwatch/pkg/timeofday"
)

// DefaultMaxConsecutiveMisses is how many candidates in a row may come up
// empty before a scan gives up on the remaining set.
const DefaultMaxConsecutiveMisses = 5

// Scanner drives a Prober across an ordered candidate set, giving up
// early once too many candidates in a row come up empty. The cutoff
// bounds worst-case probe volume when the source is offline or the
// cadence has drifted.
type Scanner struct {
	prober     *Prober
	logger     *slog.Logger
	maxMisses  int
	lastProbed int
}

// NewScanner returns a Scanner with the given consecutive-miss cutoff; a
// non-positive cutoff disables early exit.
func NewScanner(prober *Prober, maxConsecutiveMisses int, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{prober: prober, maxMisses: maxConsecutiveMisses, logger: logger}
}

// Scan probes candidates in order and returns the successful results.
// Each hit resets the consecutive-miss counter; reaching the cutoff stops
// the scan before the remaining candidates are probed.
func (s *Scanner) Scan(ctx context.Context, candidates []timeofday.TimeOfDay) []Result {
	var hits []Result
	misses := 0
	s.lastProbed = 0

	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			s.logger.Info("scan cancelled", "probed", i, "found", len(hits))
			break
		}

		res := s.prober.Probe(ctx, candidate)
		s.lastProbed = i + 1
		if res.Found {
			misses = 0
			hits = append(hits, res)
			s.logger.Info("candidate confirmed",
				"candidate", candidate.String(),
				"actual", res.Actual.String(),
				"exact", res.Exact(),
				"bytes", len(res.Payload.Data))
			continue
		}

		misses++
		s.logger.Debug("candidate missing", "candidate", candidate.String(), "consecutive_misses", misses)
		if s.maxMisses > 0 && misses >= s.maxMisses {
			s.logger.Info("giving up after consecutive misses",
				"misses", misses,
				"probed", i+1,
				"remaining", len(candidates)-i-1)
			break
		}
	}
	return hits
}

// Probed reports how many candidates the most recent Scan call examined
// before returning.
func (s *Scanner) Probed() int { return s.lastProbed }
