package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sjawhar/fft-analyzer/internal/audio"
	"github.com/sjawhar/fft-analyzer/internal/plan"
	"github.com/sjawhar/fft-analyzer/internal/spectrum"
)

const DefaultReadTimeout = 100 * time.Millisecond

type Options struct {
	// SessionID names the session in storage and on disk. Empty means a
	// timestamp taken when Run starts.
	SessionID string

	Sizing   plan.Sizing
	Bins     plan.Bins
	Analyzer *spectrum.Analyzer
	Device   Device

	// Persister is optional. PersistBits is the stored sample depth and
	// defaults to the capture depth.
	Persister   Persister
	PersistBits int
	Convert     Converter

	Store   Store
	Events  EventBroadcaster
	Sink    ResultSink
	Metrics *Metrics

	Blocks         int
	ReadTimeout    time.Duration
	SessionTimeout time.Duration
}

// Loop captures Blocks consecutive blocks from a device, analyses each one
// and optionally persists the raw audio. Buffers are sized once in New.
type Loop struct {
	opts  Options
	edges []float64

	raw     []byte
	out     []byte
	samples []float64
	bands   []float64

	state State
}

func New(opts Options) (*Loop, error) {
	if opts.Device == nil {
		return nil, fmt.Errorf("capture: device is required")
	}
	if opts.Analyzer == nil {
		return nil, fmt.Errorf("capture: analyzer is required")
	}
	if opts.Analyzer.BlockLength() != opts.Sizing.BlockLengthSamples {
		return nil, fmt.Errorf("capture: analyzer block length %d does not match plan %d", opts.Analyzer.BlockLength(), opts.Sizing.BlockLengthSamples)
	}
	if err := opts.Bins.Validate(); err != nil {
		return nil, err
	}
	if opts.Blocks <= 0 {
		opts.Blocks = 1
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}

	blockBytes := opts.Sizing.BlockBytes()
	l := &Loop{
		opts:    opts,
		edges:   opts.Bins.Edges(opts.Sizing),
		raw:     make([]byte, blockBytes),
		samples: make([]float64, opts.Sizing.BlockLengthSamples),
		bands:   make([]float64, opts.Bins.Count),
	}

	if opts.Persister != nil {
		captureBits := opts.Sizing.BytesPerSample * 8
		if l.opts.PersistBits == 0 {
			l.opts.PersistBits = captureBits
		}
		if l.opts.Convert == nil {
			conv, err := converterFor(captureBits, l.opts.PersistBits)
			if err != nil {
				return nil, err
			}
			l.opts.Convert = conv
		}
		l.out = make([]byte, opts.Sizing.BlockLengthSamples*l.opts.PersistBits/8)
	}

	return l, nil
}

func converterFor(captureBits, persistBits int) (Converter, error) {
	switch {
	case captureBits == persistBits:
		return func(dst, src []byte) (int, error) { return copy(dst, src), nil }, nil
	case captureBits == 32 && persistBits == 16:
		return audio.Snip16, nil
	default:
		return nil, fmt.Errorf("capture: cannot persist %d-bit capture as %d-bit audio", captureBits, persistBits)
	}
}

// State is the state the loop is in, or the terminal state of the last Run.
func (l *Loop) State() State { return l.state }

// TargetSamples is the number of samples a session consumes before it is done.
func (l *Loop) TargetSamples() int {
	return l.opts.Sizing.BlockLengthSamples * l.opts.Blocks
}

// Run executes one capture session. The device is released when the session
// fails; after a successful session the caller still owns it.
func (l *Loop) Run(ctx context.Context) (Report, error) {
	if l.opts.SessionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.SessionTimeout)
		defer cancel()
	}

	startedAt := time.Now().UTC()
	report := Report{SessionID: l.opts.SessionID}
	if report.SessionID == "" {
		report.SessionID = startedAt.Format("20060102150405")
	}
	l.state = StateIdle

	if err := l.startSession(report.SessionID, startedAt); err != nil {
		l.state = StateFailed
		report.State = StateFailed
		return report, err
	}

	runErr := l.capture(ctx, &report)
	if runErr != nil {
		l.state = StateFailed
	} else {
		l.state = StateDone
	}

	report.State = l.state
	report.Elapsed = time.Since(startedAt)
	l.endSession(&report, startedAt)
	l.opts.Metrics.session(report.State, report.Elapsed)

	return report, runErr
}

func (l *Loop) startSession(sessionID string, startedAt time.Time) error {
	if l.opts.Store != nil {
		if err := l.opts.Store.CreateSession(sessionID, startedAt, l.opts.Sizing); err != nil {
			return fmt.Errorf("create session: %w", err)
		}
	}

	if l.opts.Persister != nil {
		header := audio.BuildHeader(l.opts.Sizing.SampleRateHz, l.opts.PersistBits, 1, l.TargetSamples())
		if err := l.opts.Persister.StartSession(sessionID, header); err != nil {
			if l.opts.Store != nil {
				_ = l.opts.Store.EndSession(sessionID, time.Now().UTC(), SessionEnd{Status: StateFailed.String()})
			}
			return fmt.Errorf("start audio session: %w", err)
		}
	}

	if l.opts.Events != nil {
		l.opts.Events.BroadcastSessionStarted(sessionID, l.opts.Sizing, l.opts.Bins)
	}
	return nil
}

// endSession closes the audio file and records the outcome. A partially
// written file is left for the persister to deal with.
func (l *Loop) endSession(report *Report, startedAt time.Time) {
	if l.opts.Persister != nil {
		path, err := l.opts.Persister.EndSession()
		if err != nil {
			log.Printf("warning: session %s: end audio session: %v", report.SessionID, err)
		}
		report.AudioPath = path
	}

	if l.opts.Store != nil {
		end := SessionEnd{
			Status:    report.State.String(),
			Blocks:    report.Blocks,
			Skipped:   report.Skipped,
			AudioPath: report.AudioPath,
		}
		if err := l.opts.Store.EndSession(report.SessionID, startedAt.Add(report.Elapsed), end); err != nil {
			log.Printf("warning: session %s: end session: %v", report.SessionID, err)
		}
	}

	if l.opts.Events != nil {
		l.opts.Events.BroadcastSessionEnded(report.SessionID, report.State.String(), report.Elapsed)
	}
}

func (l *Loop) capture(ctx context.Context, report *Report) error {
	target := l.TargetSamples()
	filled := 0

	for report.SamplesConsumed < target {
		l.state = StateCapturing

		outcome, n, err := l.poll(ctx, filled)
		switch outcome {
		case Fatal:
			if releaseErr := l.opts.Device.Release(); releaseErr != nil {
				log.Printf("warning: session %s: release device: %v", report.SessionID, releaseErr)
			}
			return err
		case Partial:
			filled += n
			report.Partials++
			l.opts.Metrics.partial()
			continue
		}

		filled = 0
		if err := l.handleBlock(report); err != nil {
			return err
		}
		report.Blocks++
		report.SamplesConsumed += l.opts.Sizing.BlockLengthSamples
	}

	return nil
}

// poll asks the device for the rest of the current block.
func (l *Loop) poll(ctx context.Context, filled int) (Outcome, int, error) {
	if err := ctx.Err(); err != nil {
		return Fatal, 0, fmt.Errorf("capture interrupted: %w", err)
	}

	want := len(l.raw) - filled
	n, err := l.opts.Device.RequestBlock(ctx, l.raw[filled:], l.opts.ReadTimeout)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Fatal, 0, fmt.Errorf("capture interrupted: %w", ctxErr)
		}
		return Fatal, 0, fmt.Errorf("%w: %w", ErrDeviceFatal, err)
	}
	if n < 0 || n > want {
		return Fatal, 0, fmt.Errorf("%w: delivered %d bytes into a %d byte window", ErrDeviceFatal, n, want)
	}
	if n < want {
		return Partial, n, nil
	}
	return Delivered, n, nil
}

func (l *Loop) handleBlock(report *Report) error {
	block := report.Blocks
	started := time.Now()

	l.state = StateAnalyzing
	result, err := l.analyze(report.SessionID, block)
	switch {
	case errors.Is(err, spectrum.ErrTransform), errors.Is(err, audio.ErrFormat):
		log.Printf("error: session %s block %d: analysis skipped: %v", report.SessionID, block, err)
		report.Skipped++
		l.opts.Metrics.transformError()
	case err != nil:
		return err
	default:
		if l.opts.Store != nil {
			if err := l.opts.Store.AppendBands(report.SessionID, block, result.Edges, result.Bands); err != nil {
				return fmt.Errorf("append bands: %w", err)
			}
		}
		if l.opts.Sink != nil {
			l.opts.Sink.OnBands(result)
		}
		if l.opts.Events != nil {
			l.opts.Events.BroadcastBands(result)
		}
		report.LastBands = append(report.LastBands[:0], result.Bands...)
	}
	l.opts.Metrics.block(time.Since(started))

	if l.opts.Persister == nil {
		return nil
	}

	l.state = StatePersisting
	n, err := l.opts.Convert(l.out, l.raw)
	if err != nil {
		if errors.Is(err, audio.ErrFormat) {
			log.Printf("warning: session %s block %d: not persisted: %v", report.SessionID, block, err)
			report.Unpersisted++
			l.opts.Metrics.formatError()
			return nil
		}
		return fmt.Errorf("convert block %d: %w", block, err)
	}
	if err := l.opts.Persister.Append(l.out[:n]); err != nil {
		return fmt.Errorf("persist block %d: %w", block, err)
	}
	return nil
}

func (l *Loop) analyze(sessionID string, block int) (BlockResult, error) {
	n, err := audio.DecodeSamples(l.samples, l.raw, l.opts.Sizing.BytesPerSample)
	if err != nil {
		return BlockResult{}, err
	}

	mags, err := l.opts.Analyzer.Analyze(l.samples[:n])
	if err != nil {
		return BlockResult{}, err
	}

	bands, err := spectrum.Aggregate(l.bands, mags, l.opts.Bins)
	if err != nil {
		return BlockResult{}, fmt.Errorf("block %d: %w", block, err)
	}
	l.bands = bands

	peakHz := 0.0
	if peak := mags.Peak(); peak > 0 {
		peakHz = float64(peak) * l.opts.Sizing.Resolution()
	}

	return BlockResult{
		SessionID: sessionID,
		Block:     block,
		Edges:     l.edges,
		Bands:     bands,
		DC:        mags.DC(),
		PeakHz:    peakHz,
		At:        time.Now().UTC(),
	}, nil
}
