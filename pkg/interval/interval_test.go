package interval

import (
	"reflect"
	"testing"

	"github.com/radarwatch-dev/radarwatch/pkg/timeofday"
)

func mustParse(t *testing.T, texts ...string) []timeofday.TimeOfDay {
	t.Helper()
	out := make([]timeofday.TimeOfDay, 0, len(texts))
	for _, text := range texts {
		tod, err := timeofday.Parse(text)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", text, err)
		}
		out = append(out, tod)
	}
	return out
}

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile()
	if p.ShortBase != 158 || p.LongBase != 761 {
		t.Errorf("DefaultProfile bases = %d/%d, want 158/761", p.ShortBase, p.LongBase)
	}
	if !reflect.DeepEqual(p.ShortVariants, []int{158, 157, 159}) {
		t.Errorf("ShortVariants = %v", p.ShortVariants)
	}
	if !reflect.DeepEqual(p.LongVariants, []int{761, 744, 778}) {
		t.Errorf("LongVariants = %v", p.LongVariants)
	}
}

func TestDeriveProfileSmallHistory(t *testing.T) {
	want := DefaultProfile()
	if got := DeriveProfile(nil); !reflect.DeepEqual(got, want) {
		t.Errorf("DeriveProfile(nil) = %+v, want defaults", got)
	}
	if got := DeriveProfile(mustParse(t, "120000")); !reflect.DeepEqual(got, want) {
		t.Errorf("DeriveProfile(1 entry) = %+v, want defaults", got)
	}
}

func TestDeriveProfileBuckets(t *testing.T) {
	// Seconds-domain deltas: 15:13:00-15:10:23 = 157 (short, < 400) and
	// 15:25:41-15:13:00 = 761 (long).
	p := DeriveProfile(mustParse(t, "151023", "151300", "152541"))
	if p.ShortBase != 157 {
		t.Errorf("ShortBase = %d, want 157", p.ShortBase)
	}
	if p.LongBase != 761 {
		t.Errorf("LongBase = %d, want 761", p.LongBase)
	}
	if !reflect.DeepEqual(p.ShortVariants, []int{157}) {
		t.Errorf("ShortVariants = %v, want [157]", p.ShortVariants)
	}
	if !reflect.DeepEqual(p.LongVariants, []int{761}) {
		t.Errorf("LongVariants = %v, want [761]", p.LongVariants)
	}
}

func TestDeriveProfileEmptyBucketFallsBack(t *testing.T) {
	// Only long deltas: short bucket empty, short side stays at defaults.
	p := DeriveProfile(mustParse(t, "100000", "101301", "102602"))
	if p.ShortBase != DefaultShortBase {
		t.Errorf("ShortBase = %d, want default %d", p.ShortBase, DefaultShortBase)
	}
	if !reflect.DeepEqual(p.ShortVariants, []int{DefaultShortBase}) {
		t.Errorf("ShortVariants = %v, want [%d]", p.ShortVariants, DefaultShortBase)
	}
	if p.LongBase != 781 {
		t.Errorf("LongBase = %d, want 781", p.LongBase)
	}
}

func TestDeriveProfileModeAndTieBreak(t *testing.T) {
	// Short deltas: 158, 158, 160; long deltas: 761, 763, 761, 763.
	// The long bucket ties at two appearances each; smallest value wins.
	history := mustParse(t,
		"100000", "100238", "100516", "100756", // +158 +158 +160
		"102037", "103320", "104601", "105844", // +761 +763 +761 +763
	)
	p := DeriveProfile(history)
	if p.ShortBase != 158 {
		t.Errorf("ShortBase = %d, want 158", p.ShortBase)
	}
	if p.LongBase != 761 {
		t.Errorf("LongBase = %d, want smallest tie 761", p.LongBase)
	}
	if !reflect.DeepEqual(p.ShortVariants, []int{158, 160}) {
		t.Errorf("ShortVariants = %v, want [158 160]", p.ShortVariants)
	}
	if !reflect.DeepEqual(p.LongVariants, []int{761, 763}) {
		t.Errorf("LongVariants = %v, want [761 763]", p.LongVariants)
	}
}

func TestDeriveProfileDeterministic(t *testing.T) {
	history := mustParse(t, "100000", "100238", "100516", "101757", "101935")
	first := DeriveProfile(history)
	for range 10 {
		if got := DeriveProfile(history); !reflect.DeepEqual(got, first) {
			t.Fatalf("DeriveProfile not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestDeriveProfileIgnoresDuplicates(t *testing.T) {
	// Duplicate timestamps produce a zero delta which carries no signal.
	p := DeriveProfile(mustParse(t, "100000", "100000", "100300"))
	if p.ShortBase != 180 {
		t.Errorf("ShortBase = %d, want 180", p.ShortBase)
	}
}
