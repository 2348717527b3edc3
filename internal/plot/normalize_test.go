package plot

import (
	"math"
	"testing"
)

func TestNormalizeSentinels(t *testing.T) {
	for _, db := range []float64{-60, 0, -61, -160, math.Inf(-1)} {
		if got := Normalize(db); got != 0 {
			t.Fatalf("Normalize(%v) = %v, want 0", db, got)
		}
	}
}

func TestNormalizeMonotonicWithinRange(t *testing.T) {
	prev := Normalize(-60)
	for db := -59.9; db < 0; db += 0.1 {
		got := Normalize(db)
		if got < prev {
			t.Fatalf("Normalize(%v) = %v dropped below previous %v", db, got, prev)
		}
		if got < 0 || got > 1 {
			t.Fatalf("Normalize(%v) = %v outside [0,1]", db, got)
		}
		prev = got
	}
}

func TestNormalizeKnownValue(t *testing.T) {
	floor := math.Pow(10, -3)
	want := math.Sqrt((math.Pow(10, -1) - floor) / (1 - floor))
	if got := Normalize(-20); math.Abs(got-want) > 1e-12 {
		t.Fatalf("Normalize(-20) = %v, want %v", got, want)
	}
	if got := Normalize(-1e-9); got < 0.999 {
		t.Fatalf("Normalize just below 0 dB = %v, want ~1", got)
	}
}

func TestNormalizeRejectsNonFinite(t *testing.T) {
	for _, db := range []float64{math.NaN(), math.Inf(1)} {
		if got := Normalize(db); got != 0 {
			t.Fatalf("Normalize(%v) = %v, want 0", db, got)
		}
	}
	if got := Normalize(6); got != 1 {
		t.Fatalf("Normalize(+6 dB) = %v, want clipped to 1", got)
	}
}
