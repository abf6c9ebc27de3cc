package spectrum

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sjawhar/fft-analyzer/internal/plan"
)

// Aggregate reduces s into b.Count bands and writes them to dst, growing it
// only when its capacity is too small.
//
// Band x covers spectrum indices [low, high] with
// low = StartIndex + WidthIndices*x and high = low + WidthIndices - 1.
// A band that runs past the end is cut at the last index; a band that starts
// past the end, and every band after it, is 0.
func Aggregate(dst []float64, s Spectrum, b plan.Bins) ([]float64, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	if cap(dst) < b.Count {
		dst = make([]float64, b.Count)
	}
	dst = dst[:b.Count]

	last := len(s) - 1
	for x := 0; x < b.Count; x++ {
		low := b.StartIndex + b.WidthIndices*x
		if low > last {
			clear(dst[x:])
			break
		}

		high := low + b.WidthIndices - 1
		if high > last {
			high = last
		}

		v, err := reduce(s[low:high+1], b.Aggregation)
		if err != nil {
			return nil, &AggregationError{Band: x, Low: low, High: high}
		}
		dst[x] = v
	}

	return dst, nil
}

func reduce(band []float64, agg plan.Aggregation) (float64, error) {
	if len(band) == 0 {
		return 0, ErrAggregation
	}
	if agg == plan.AggregateAverage {
		return stat.Mean(band, nil), nil
	}
	return floats.Max(band), nil
}
