// Package interval models the near-periodic publication cadence of the
// radar archive: alternating short (~158s) and long (~761s) gaps with a
// small amount of jitter around each.
package interval

import (
	"sort"

	"github.com/radarwatch-dev/radarwatch/pkg/timeofday"
)

const (
	// DefaultShortBase and DefaultLongBase are the cadence values observed
	// in historical archive listings.
	DefaultShortBase = 158
	DefaultLongBase  = 761

	// shortLongThreshold partitions observed deltas into the two classes.
	shortLongThreshold = 400

	// variantSpread is how far from the base a bucket member may sit and
	// still count as an accepted jitter variant.
	variantSpread = 20
)

// Profile holds the two base durations plus the jitter variants accepted
// around each. All values are in seconds.
type Profile struct {
	ShortBase     int
	LongBase      int
	ShortVariants []int
	LongVariants  []int
}

// DefaultProfile returns the static cadence observed in real archive data.
func DefaultProfile() Profile {
	return Profile{
		ShortBase:     DefaultShortBase,
		LongBase:      DefaultLongBase,
		ShortVariants: []int{158, 157, 159},
		LongVariants:  []int{761, 744, 778},
	}
}

// DeriveProfile recomputes the cadence from previously confirmed
// timestamps. Fewer than two entries yields the defaults. Consecutive
// deltas are partitioned at 400s into short and long buckets; each base is
// the most frequent bucket member, with the smallest value winning ties so
// the derivation stays deterministic. An empty bucket falls back to the
// corresponding default base.
func DeriveProfile(history []timeofday.TimeOfDay) Profile {
	if len(history) < 2 {
		return DefaultProfile()
	}

	sorted := make([]int, len(history))
	for i, t := range history {
		sorted[i] = t.Seconds()
	}
	sort.Ints(sorted)

	var short, long []int
	for i := 1; i < len(sorted); i++ {
		delta := sorted[i] - sorted[i-1]
		if delta <= 0 {
			// Duplicate or non-increasing entries carry no cadence signal.
			continue
		}
		if delta < shortLongThreshold {
			short = append(short, delta)
		} else {
			long = append(long, delta)
		}
	}

	shortBase := mostFrequent(short, DefaultShortBase)
	longBase := mostFrequent(long, DefaultLongBase)

	return Profile{
		ShortBase:     shortBase,
		LongBase:      longBase,
		ShortVariants: variantsNear(short, shortBase),
		LongVariants:  variantsNear(long, longBase),
	}
}

// mostFrequent returns the modal value of the bucket, smallest value on a
// tie, or fallback when the bucket is empty.
func mostFrequent(bucket []int, fallback int) int {
	if len(bucket) == 0 {
		return fallback
	}
	counts := make(map[int]int, len(bucket))
	for _, v := range bucket {
		counts[v]++
	}
	best, bestCount := 0, 0
	for v, n := range counts {
		if n > bestCount || (n == bestCount && v < best) {
			best, bestCount = v, n
		}
	}
	return best
}

// variantsNear collects bucket members within the accepted spread of the
// base, deduplicated and sorted. The base itself is always a member.
func variantsNear(bucket []int, base int) []int {
	seen := map[int]bool{base: true}
	variants := []int{base}
	for _, v := range bucket {
		if seen[v] {
			continue
		}
		if v >= base-variantSpread && v <= base+variantSpread {
			seen[v] = true
			variants = append(variants, v)
		}
	}
	sort.Ints(variants)
	return variants
}
