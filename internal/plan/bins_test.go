package plan

import (
	"errors"
	"testing"
)

func mustSizing(t *testing.T, durationMs, rate, bps int) Sizing {
	t.Helper()
	s, err := NewSizing(durationMs, rate, bps)
	if err != nil {
		t.Fatalf("NewSizing failed: %v", err)
	}
	return s
}

func TestNewBinsConvertsHzToIndices(t *testing.T) {
	// 4096 samples at 4096 Hz: one bin per Hz.
	s := mustSizing(t, 1000, 8000, 4)

	b, err := NewBins(100, 250, 10, AggregateAverage, s)
	if err != nil {
		t.Fatalf("NewBins failed: %v", err)
	}
	if b.WidthIndices != 100 || b.StartIndex != 250 || b.Count != 10 {
		t.Fatalf("unexpected bins %+v", b)
	}
	if b.Aggregation != AggregateAverage {
		t.Fatalf("expected average aggregation, got %s", b.Aggregation)
	}

	edges := b.Edges(s)
	if len(edges) != 10 {
		t.Fatalf("expected 10 edges, got %d", len(edges))
	}
	if edges[0] != 250 || edges[3] != 550 {
		t.Fatalf("unexpected edges %v", edges)
	}
}

func TestNewBinsTruncates(t *testing.T) {
	// 4096 samples at 1366 Hz: ~0.3335 Hz per bin.
	s := mustSizing(t, 3000, 2050, 2)

	b, err := NewBins(100, 0, 10, AggregateMax, s)
	if err != nil {
		t.Fatalf("NewBins failed: %v", err)
	}
	if b.WidthIndices != 299 {
		t.Fatalf("expected 299 indices per band, got %d", b.WidthIndices)
	}
}

func TestNewBinsRejectsInvalidPlans(t *testing.T) {
	s := mustSizing(t, 1000, 8000, 4)

	cases := []struct {
		name  string
		width float64
		start float64
		count int
		agg   Aggregation
	}{
		{name: "zero bins", width: 100, count: 0},
		{name: "zero width", width: 0, count: 10},
		{name: "negative start", width: 100, start: -1, count: 10},
		{name: "narrower than a bin", width: 0.5, count: 10},
		{name: "unknown aggregation", width: 100, count: 10, agg: Aggregation(7)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewBins(tc.width, tc.start, tc.count, tc.agg, s); !errors.Is(err, ErrSizing) {
				t.Fatalf("expected ErrSizing, got %v", err)
			}
		})
	}
}

func TestBinsValidate(t *testing.T) {
	if err := (Bins{StartIndex: 0, WidthIndices: 5, Count: 3}).Validate(); err != nil {
		t.Fatalf("expected valid bins, got %v", err)
	}
	if err := (Bins{WidthIndices: 5, Count: 0}).Validate(); !errors.Is(err, ErrSizing) {
		t.Fatalf("expected ErrSizing for zero count, got %v", err)
	}
	if err := (Bins{WidthIndices: 0, Count: 3}).Validate(); !errors.Is(err, ErrSizing) {
		t.Fatalf("expected ErrSizing for zero width, got %v", err)
	}
}

func TestParseAggregation(t *testing.T) {
	cases := map[string]Aggregation{
		"max":     AggregateMax,
		"MAX":     AggregateMax,
		"":        AggregateMax,
		"average": AggregateAverage,
		" avg ":   AggregateAverage,
	}
	for raw, want := range cases {
		got, err := ParseAggregation(raw)
		if err != nil {
			t.Fatalf("ParseAggregation(%q) failed: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseAggregation(%q) = %s, want %s", raw, got, want)
		}
	}

	if _, err := ParseAggregation("median"); !errors.Is(err, ErrSizing) {
		t.Fatalf("expected ErrSizing for median, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	s := mustSizing(t, 1000, 8000, 4)
	b, err := NewBins(100, 0, 3, AggregateMax, s)
	if err != nil {
		t.Fatalf("NewBins failed: %v", err)
	}

	sum := Summarize(s, b)
	if sum.BlockBytes != 16384 || sum.ResolutionHz != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if len(sum.EdgesHz) != 3 || sum.EdgesHz[2] != 200 {
		t.Fatalf("unexpected edges %v", sum.EdgesHz)
	}

	text, err := b.Aggregation.MarshalText()
	if err != nil || string(text) != "max" {
		t.Fatalf("expected aggregation to marshal as max, got %q (%v)", text, err)
	}
}
