// Package predict generates candidate archive timestamps by walking the
// short/long publication cadence outward from the last confirmed
// reference timestamp.
package predict

import (
	"sort"

	"github.com/radarwatch-dev/radarwatch/pkg/interval"
	"github.com/radarwatch-dev/radarwatch/pkg/timeofday"
)

const (
	// DefaultWindowSeconds bounds how far from "now" candidates may sit.
	DefaultWindowSeconds = 7200
	// DefaultMaxSteps bounds each walk direction regardless of window.
	DefaultMaxSteps = 100
)

// Generator produces candidate timestamps from a cadence profile.
type Generator struct {
	Profile         interval.Profile
	WindowSeconds   int
	MaxSteps        int
	IncludeVariants bool
}

// NewGenerator returns a Generator with the conventional window and step
// bounds applied.
func NewGenerator(profile interval.Profile, includeVariants bool) *Generator {
	return &Generator{
		Profile:         profile,
		WindowSeconds:   DefaultWindowSeconds,
		MaxSteps:        DefaultMaxSteps,
		IncludeVariants: includeVariants,
	}
}

// Candidates walks forward and/or backward from reference, alternating
// short and long intervals, and returns the deduplicated ascending set of
// timestamps inside the closed window [now-window, now+window]. A walk
// that never enters the window yields an empty set; that is not an error.
//
// Direction choice: a reference already older than the window only needs a
// forward walk and a reference beyond the window's future edge only needs
// a backward one, which avoids probing far outside the span of interest.
func (g *Generator) Candidates(now, reference timeofday.TimeOfDay) []timeofday.TimeOfDay {
	nowSec := now.Seconds()
	refSec := reference.Seconds()

	forward := refSec <= nowSec+g.WindowSeconds
	backward := refSec >= nowSec-g.WindowSeconds

	seconds := []int{refSec}
	if forward {
		seconds = append(seconds, g.walk(refSec, nowSec, +1)...)
	}
	if backward {
		seconds = append(seconds, g.walk(refSec, nowSec, -1)...)
	}

	lo, hi := nowSec-g.WindowSeconds, nowSec+g.WindowSeconds
	seen := make(map[int]bool, len(seconds))
	var out []timeofday.TimeOfDay
	for _, sec := range seconds {
		if sec < lo || sec > hi || seen[sec] {
			continue
		}
		seen[sec] = true
		tod, err := timeofday.FromSeconds(sec)
		if err != nil {
			continue
		}
		out = append(out, tod)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// walk alternates short and long intervals starting with short, moving in
// the given direction until it leaves the window, wraps past midnight, or
// exhausts MaxSteps. Variant durations replace the base on the observed
// cadence: every 3rd short step and every 4th long step.
func (g *Generator) walk(refSec, nowSec, direction int) []int {
	var out []int
	cur := refSec
	useShort := true
	limit := nowSec + direction*g.WindowSeconds

	for step := 0; step < g.MaxSteps; step++ {
		var dur int
		if useShort {
			dur = g.Profile.ShortBase
			if g.IncludeVariants && step%3 == 2 && len(g.Profile.ShortVariants) > 0 {
				dur = g.Profile.ShortVariants[step%len(g.Profile.ShortVariants)]
			}
		} else {
			dur = g.Profile.LongBase
			if g.IncludeVariants && step%4 == 1 && len(g.Profile.LongVariants) > 0 {
				dur = g.Profile.LongVariants[step%len(g.Profile.LongVariants)]
			}
		}
		useShort = !useShort

		cur += direction * dur
		if cur < 0 || cur >= timeofday.SecondsPerDay {
			break
		}
		out = append(out, cur)
		if (direction > 0 && cur > limit) || (direction < 0 && cur < limit) {
			break
		}
	}
	return out
}

// FilterHours restricts candidates to the given hour buckets, preserving
// order. Callers typically pass the previous and current hour.
func FilterHours(candidates []timeofday.TimeOfDay, hours []int) []timeofday.TimeOfDay {
	want := make(map[int]bool, len(hours))
	for _, h := range hours {
		want[h] = true
	}
	var out []timeofday.TimeOfDay
	for _, c := range candidates {
		if want[c.Hour()] {
			out = append(out, c)
		}
	}
	return out
}
