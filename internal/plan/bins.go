package plan

import (
	"fmt"
	"strings"
)

// Aggregation selects how the spectrum bins inside one band are reduced.
type Aggregation int

const (
	AggregateMax Aggregation = iota
	AggregateAverage
)

func (a Aggregation) String() string {
	switch a {
	case AggregateMax:
		return "max"
	case AggregateAverage:
		return "average"
	default:
		return fmt.Sprintf("aggregation(%d)", int(a))
	}
}

func (a Aggregation) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Aggregation) UnmarshalText(text []byte) error {
	parsed, err := ParseAggregation(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAggregation accepts "max", "average" and "avg", case-insensitively.
func ParseAggregation(raw string) (Aggregation, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "max", "":
		return AggregateMax, nil
	case "average", "avg", "mean":
		return AggregateAverage, nil
	default:
		return 0, sizingErr("aggregation", fmt.Sprintf("unknown mode %q", raw))
	}
}

// Bins describes the frequency bands in spectrum indices.
type Bins struct {
	StartIndex   int         `json:"start_index"`
	WidthIndices int         `json:"width_indices"`
	Count        int         `json:"count"`
	Aggregation  Aggregation `json:"aggregation"`
}

// NewBins converts band settings given in Hz into spectrum indices using the
// frequency resolution of s. Indices are truncated toward zero.
func NewBins(widthHz, startHz float64, count int, agg Aggregation, s Sizing) (Bins, error) {
	if count < 1 {
		return Bins{}, sizingErr("bins", fmt.Sprintf("must be at least 1, got %d", count))
	}
	if widthHz <= 0 {
		return Bins{}, sizingErr("bin_width_hz", fmt.Sprintf("must be positive, got %g", widthHz))
	}
	if startHz < 0 {
		return Bins{}, sizingErr("start_hz", fmt.Sprintf("must not be negative, got %g", startHz))
	}
	if agg != AggregateMax && agg != AggregateAverage {
		return Bins{}, sizingErr("aggregation", agg.String())
	}

	res := s.Resolution()
	if res <= 0 {
		return Bins{}, sizingErr("bin_width_hz", "sizing has no frequency resolution")
	}

	b := Bins{
		StartIndex:   int(startHz * float64(s.BlockLengthSamples) / float64(s.SampleRateHz)),
		WidthIndices: int(widthHz * float64(s.BlockLengthSamples) / float64(s.SampleRateHz)),
		Count:        count,
		Aggregation:  agg,
	}
	if b.WidthIndices < 1 {
		return Bins{}, sizingErr("bin_width_hz", fmt.Sprintf("%g Hz is narrower than one %.3f Hz bin", widthHz, res))
	}

	return b, nil
}

// Validate checks the index form directly, for plans that were not built by NewBins.
func (b Bins) Validate() error {
	if b.Count < 1 {
		return sizingErr("bins", fmt.Sprintf("must be at least 1, got %d", b.Count))
	}
	if b.WidthIndices < 1 {
		return sizingErr("bin_width", fmt.Sprintf("must be at least 1 index, got %d", b.WidthIndices))
	}
	if b.StartIndex < 0 {
		return sizingErr("start_index", fmt.Sprintf("must not be negative, got %d", b.StartIndex))
	}
	return nil
}

// Edges returns the lower edge in Hz of every band.
func (b Bins) Edges(s Sizing) []float64 {
	res := s.Resolution()
	edges := make([]float64, b.Count)
	for x := range edges {
		edges[x] = float64(b.StartIndex+b.WidthIndices*x) * res
	}
	return edges
}
