package spectrum

import (
	"errors"
	"math"
	"testing"
)

func sine(n int, sampleRate, freq, amplitude float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
	}
	return out
}

func TestAnalyzerPeakAtSineFrequency(t *testing.T) {
	cases := []struct {
		name string
		n    int
		fs   float64
		f0   float64
	}{
		{name: "integer bin", n: 4096, fs: 4096, f0: 440},
		{name: "fractional bin", n: 4096, fs: 1366, f0: 200},
		{name: "short block", n: 256, fs: 8000, f0: 1000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := NewAnalyzer(DSPTransformer{}, tc.n, WindowRectangular)
			if err != nil {
				t.Fatalf("NewAnalyzer failed: %v", err)
			}

			spec, err := a.Analyze(sine(tc.n, tc.fs, tc.f0, 1000))
			if err != nil {
				t.Fatalf("Analyze failed: %v", err)
			}
			if len(spec) != tc.n/2+1 {
				t.Fatalf("expected %d bins, got %d", tc.n/2+1, len(spec))
			}

			want := int(math.Round(tc.f0 * float64(tc.n) / tc.fs))
			if got := spec.Peak(); got < want-1 || got > want+1 {
				t.Fatalf("expected peak near bin %d, got %d", want, got)
			}
			for k, m := range spec {
				if m < 0 || math.IsNaN(m) {
					t.Fatalf("bin %d has invalid magnitude %v", k, m)
				}
			}
		})
	}
}

func TestAnalyzerSingleSidedAmplitude(t *testing.T) {
	const n = 1024
	a, err := NewAnalyzer(DSPTransformer{}, n, WindowRectangular)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}

	// 64 whole cycles: all energy lands in bin 64.
	spec, err := a.Analyze(sine(n, n, 64, 0.5))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if math.Abs(spec[64]-0.5) > 1e-9 {
		t.Fatalf("expected amplitude 0.5 at bin 64, got %v", spec[64])
	}
}

func TestAnalyzerDoesNotDoubleDCOrNyquist(t *testing.T) {
	const n = 8
	ones := TransformerFunc(func(samples, re, im []float64) error {
		for k := range samples {
			re[k] = float64(len(samples))
			im[k] = 0
		}
		return nil
	})

	a, err := NewAnalyzer(ones, n, WindowRectangular)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}

	spec, err := a.Analyze(make([]float64, n))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	want := []float64{1, 2, 2, 2, 1}
	for k := range want {
		if spec[k] != want[k] {
			t.Fatalf("bin %d: expected %v, got %v (spectrum %v)", k, want[k], spec[k], spec)
		}
	}
}

func TestAnalyzerDCAndNyquistSignals(t *testing.T) {
	const n = 16
	a, err := NewAnalyzer(DSPTransformer{}, n, WindowRectangular)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}

	dc := make([]float64, n)
	for i := range dc {
		dc[i] = 3
	}
	spec, err := a.Analyze(dc)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if math.Abs(spec.DC()-3) > 1e-9 {
		t.Fatalf("expected DC 3, got %v", spec.DC())
	}

	alt := make([]float64, n)
	for i := range alt {
		alt[i] = 1
		if i%2 == 1 {
			alt[i] = -1
		}
	}
	spec, err = a.Analyze(alt)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if math.Abs(spec[n/2]-1) > 1e-9 {
		t.Fatalf("expected Nyquist magnitude 1, got %v", spec[n/2])
	}
}

func TestAnalyzerTransformErrors(t *testing.T) {
	a, err := NewAnalyzer(DSPTransformer{}, 6, WindowRectangular)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}

	_, err = a.Analyze(make([]float64, 6))
	if !errors.Is(err, ErrTransform) {
		t.Fatalf("expected ErrTransform, got %v", err)
	}
	if !errors.Is(err, ErrNotPowerOfTwo) {
		t.Fatalf("expected wrapped ErrNotPowerOfTwo, got %v", err)
	}

	b, err := NewAnalyzer(DSPTransformer{}, 8, WindowRectangular)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}
	var te *TransformError
	if _, err := b.Analyze(make([]float64, 4)); !errors.As(err, &te) {
		t.Fatalf("expected *TransformError for short block, got %v", err)
	}
	if te.Length != 4 {
		t.Fatalf("expected length 4 in error, got %d", te.Length)
	}
}

func TestAnalyzerHannWindowKeepsPeak(t *testing.T) {
	const n = 2048
	a, err := NewAnalyzer(DSPTransformer{}, n, WindowHann)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}

	spec, err := a.Analyze(sine(n, 8000, 1234, 1))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	want := int(math.Round(1234 * n / 8000.0))
	if got := spec.Peak(); got < want-1 || got > want+1 {
		t.Fatalf("expected peak near bin %d, got %d", want, got)
	}
}

func TestNewAnalyzerRejectsBadArguments(t *testing.T) {
	if _, err := NewAnalyzer(nil, 8, WindowRectangular); err == nil {
		t.Fatal("expected error for nil transformer")
	}
	if _, err := NewAnalyzer(DSPTransformer{}, 1, WindowRectangular); err == nil {
		t.Fatal("expected error for block length 1")
	}
	if _, err := NewAnalyzer(DSPTransformer{}, 8, Window("kaiser")); err == nil {
		t.Fatal("expected error for unknown window")
	}
}

func TestParseWindow(t *testing.T) {
	for raw, want := range map[string]Window{"": WindowRectangular, "none": WindowRectangular, "Hann": WindowHann} {
		got, err := ParseWindow(raw)
		if err != nil || got != want {
			t.Fatalf("ParseWindow(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := ParseWindow("kaiser"); err == nil {
		t.Fatal("expected error for kaiser")
	}
}
