package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sjawhar/fft-analyzer/internal/audio"
	"github.com/sjawhar/fft-analyzer/internal/plan"
	"github.com/sjawhar/fft-analyzer/internal/spectrum"
)

// EnvPrefix is the namespace prefix for all fft-analyzer environment variables.
const EnvPrefix = "FFT_ANALYZER_"

// SourceMic selects the default PortAudio input. Any other source is a path
// to a WAV file.
const SourceMic = "mic"

// Config holds all application configuration.
type Config struct {
	RecordTimeMs  int     `yaml:"record_time_ms"`
	SampleRateHz  int     `yaml:"sample_rate_hz"`
	SampleRates   []int   `yaml:"sample_rates"`
	CaptureBits   int     `yaml:"capture_bits"`
	BitsPerSample int     `yaml:"bits_per_sample"`
	BinWidthHz    float64 `yaml:"bin_width_hz"`
	StartHz       float64 `yaml:"start_hz"`
	Bins          int     `yaml:"bins"`
	Aggregation   string  `yaml:"aggregation"`
	Window        string  `yaml:"window"`

	Blocks         int    `yaml:"blocks"`
	Rounds         int    `yaml:"rounds"`
	ReadTimeout    string `yaml:"read_timeout"`
	SessionTimeout string `yaml:"session_timeout"`
	Source         string `yaml:"source"`

	Persist               bool   `yaml:"persist"`
	AudioDir              string `yaml:"audio_dir"`
	DBPath                string `yaml:"db_path"`
	ListenAddr            string `yaml:"listen_addr"`
	GDriveFolderID        string `yaml:"gdrive_folder_id"`
	GoogleCredentialsFile string `yaml:"google_credentials_file"`
}

func defaults() Config {
	return Config{
		RecordTimeMs:          1000,
		SampleRateHz:          8000,
		SampleRates:           []int{16000, 44100, 48000},
		CaptureBits:           32,
		BitsPerSample:         16,
		BinWidthHz:            100,
		StartHz:               0,
		Bins:                  10,
		Aggregation:           "max",
		Window:                string(spectrum.WindowRectangular),
		Blocks:                1,
		Rounds:                5,
		ReadTimeout:           "100ms",
		SessionTimeout:        "30s",
		Source:                SourceMic,
		Persist:               true,
		AudioDir:              "data/audio",
		DBPath:                "data/fft-analyzer.db",
		GoogleCredentialsFile: "./service-account.json",
	}
}

// Load reads configuration from a YAML file (if it exists), applies
// environment variable overrides, and validates the result.
// It returns the config, any validation warnings, and an error if the file
// exists but cannot be read or parsed.
func Load(path string) (Config, []string, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, nil, fmt.Errorf("read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)

	warnings := validate(&cfg)
	return cfg, warnings, nil
}

// Plan builds the sizing and band plans for a capture at rateHz. Settings
// that leave no usable plan, including zero bins, come back as a
// plan.SizingError.
func (c *Config) Plan(rateHz int) (plan.Sizing, plan.Bins, error) {
	sizing, err := plan.NewSizing(c.RecordTimeMs, rateHz, c.CaptureBits/8)
	if err != nil {
		return plan.Sizing{}, plan.Bins{}, err
	}
	return c.withBins(sizing)
}

// FilePlan plans blocks for a recording at its own rate and depth. The
// record time is capped at the length of the recording.
func (c *Config) FilePlan(info audio.HeaderInfo) (plan.Sizing, plan.Bins, error) {
	durationMs := c.RecordTimeMs
	if info.SampleRate > 0 {
		if fileMs := info.Frames() * 1000 / info.SampleRate; fileMs < durationMs {
			durationMs = fileMs
		}
	}

	sizing, err := plan.ForFixedRate(durationMs, info.SampleRate, info.BitsPerSample/8)
	if err != nil {
		return plan.Sizing{}, plan.Bins{}, err
	}
	return c.withBins(sizing)
}

func (c *Config) withBins(sizing plan.Sizing) (plan.Sizing, plan.Bins, error) {
	agg, err := plan.ParseAggregation(c.Aggregation)
	if err != nil {
		return plan.Sizing{}, plan.Bins{}, err
	}

	bins, err := plan.NewBins(c.BinWidthHz, c.StartHz, c.Bins, agg, sizing)
	if err != nil {
		return plan.Sizing{}, plan.Bins{}, err
	}
	return sizing, bins, nil
}

// ParsedWindow returns Window as a spectrum.Window, falling back to
// rectangular if the value is invalid.
func (c *Config) ParsedWindow() spectrum.Window {
	w, err := spectrum.ParseWindow(c.Window)
	if err != nil {
		return spectrum.WindowRectangular
	}
	return w
}

// ParsedReadTimeout returns ReadTimeout as a time.Duration,
// falling back to 100ms if the value is invalid.
func (c *Config) ParsedReadTimeout() time.Duration {
	d, err := time.ParseDuration(c.ReadTimeout)
	if err != nil || d <= 0 {
		return 100 * time.Millisecond
	}
	return d
}

// ParsedSessionTimeout returns SessionTimeout as a time.Duration. "0"
// disables the limit; an invalid value falls back to 30s.
func (c *Config) ParsedSessionTimeout() time.Duration {
	d, err := time.ParseDuration(c.SessionTimeout)
	if err != nil || d < 0 {
		return 30 * time.Second
	}
	return d
}

// UsesMic reports whether capture reads from the microphone.
func (c *Config) UsesMic() bool {
	return c.Source == "" || strings.EqualFold(c.Source, SourceMic)
}

// SampleRateCandidates returns a deduplicated ordered list of sample rates
// to try: preferred rate first, then configured alternatives, then defaults.
func (c *Config) SampleRateCandidates() []int {
	hardcoded := []int{8000, 16000, 44100, 48000}

	combined := make([]int, 0, 1+len(c.SampleRates)+len(hardcoded))
	combined = append(combined, c.SampleRateHz)
	combined = append(combined, c.SampleRates...)
	combined = append(combined, hardcoded...)

	seen := make(map[int]struct{}, len(combined))
	result := make([]int, 0, len(combined))
	for _, rate := range combined {
		if rate <= 0 {
			continue
		}
		if _, ok := seen[rate]; ok {
			continue
		}
		seen[rate] = struct{}{}
		result = append(result, rate)
	}
	return result
}

func applyEnvOverrides(cfg *Config) {
	envInt("RECORD_TIME_MS", &cfg.RecordTimeMs)
	envInt("SAMPLE_RATE_HZ", &cfg.SampleRateHz)
	if v := os.Getenv(EnvPrefix + "SAMPLE_RATES"); v != "" {
		cfg.SampleRates = parseSampleRates(v)
	}
	envInt("CAPTURE_BITS", &cfg.CaptureBits)
	envInt("BITS_PER_SAMPLE", &cfg.BitsPerSample)
	envFloat("BIN_WIDTH_HZ", &cfg.BinWidthHz)
	envFloat("START_HZ", &cfg.StartHz)
	envInt("BINS", &cfg.Bins)
	envString("AGGREGATION", &cfg.Aggregation)
	envString("WINDOW", &cfg.Window)
	envInt("BLOCKS", &cfg.Blocks)
	envInt("ROUNDS", &cfg.Rounds)
	envString("READ_TIMEOUT", &cfg.ReadTimeout)
	envString("SESSION_TIMEOUT", &cfg.SessionTimeout)
	envString("SOURCE", &cfg.Source)
	if v := os.Getenv(EnvPrefix + "PERSIST"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.Persist = b
		}
	}
	envString("AUDIO_DIR", &cfg.AudioDir)
	envString("DB_PATH", &cfg.DBPath)
	envString("LISTEN_ADDR", &cfg.ListenAddr)
	envString("GDRIVE_FOLDER_ID", &cfg.GDriveFolderID)
	envString("GOOGLE_CREDENTIALS_FILE", &cfg.GoogleCredentialsFile)
}

func envString(key string, dst *string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = v
	}
}

// envInt keeps the current value when the variable does not parse. Range
// checks happen in validate and plan.
func envInt(key string, dst *int) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			*dst = f
		}
	}
}

// validate fixes values that have a safe fallback and reports them. Values
// that decide the block plan are left alone for Plan to reject.
func validate(cfg *Config) []string {
	var warnings []string

	if _, err := time.ParseDuration(cfg.ReadTimeout); err != nil {
		warnings = append(warnings, fmt.Sprintf("Invalid read_timeout %q, using default 100ms.", cfg.ReadTimeout))
	}
	if _, err := time.ParseDuration(cfg.SessionTimeout); err != nil {
		warnings = append(warnings, fmt.Sprintf("Invalid session_timeout %q, using default 30s.", cfg.SessionTimeout))
	}
	if _, err := spectrum.ParseWindow(cfg.Window); err != nil {
		warnings = append(warnings, fmt.Sprintf("Unknown window %q, using rectangular.", cfg.Window))
		cfg.Window = string(spectrum.WindowRectangular)
	}

	switch cfg.CaptureBits {
	case 8, 16, 32:
	default:
		warnings = append(warnings, fmt.Sprintf("Unsupported capture_bits %d, using 32.", cfg.CaptureBits))
		cfg.CaptureBits = 32
	}
	if cfg.BitsPerSample != cfg.CaptureBits && !(cfg.CaptureBits == 32 && cfg.BitsPerSample == 16) {
		warnings = append(warnings, fmt.Sprintf("Cannot store %d-bit capture as %d-bit audio, storing %d-bit.", cfg.CaptureBits, cfg.BitsPerSample, cfg.CaptureBits))
		cfg.BitsPerSample = cfg.CaptureBits
	}

	if cfg.Blocks < 1 {
		warnings = append(warnings, fmt.Sprintf("Invalid blocks %d, capturing 1 block per session.", cfg.Blocks))
		cfg.Blocks = 1
	}
	if cfg.Rounds < 1 {
		warnings = append(warnings, fmt.Sprintf("Invalid rounds %d, running 1 round.", cfg.Rounds))
		cfg.Rounds = 1
	}

	if !cfg.UsesMic() && !strings.HasSuffix(strings.ToLower(cfg.Source), ".wav") {
		warnings = append(warnings, fmt.Sprintf("Source %q is neither %q nor a .wav file.", cfg.Source, SourceMic))
	}
	if cfg.GDriveFolderID != "" && cfg.GoogleCredentialsFile == "" {
		warnings = append(warnings, "gdrive_folder_id is set without google_credentials_file, Drive upload is disabled.")
	}

	return warnings
}

func parseSampleRates(raw string) []int {
	parts := strings.Split(raw, ",")
	seen := make(map[int]struct{}, len(parts))
	result := make([]int, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		rate, err := strconv.Atoi(trimmed)
		if err != nil || rate <= 0 {
			continue
		}
		if _, ok := seen[rate]; ok {
			continue
		}
		seen[rate] = struct{}{}
		result = append(result, rate)
	}

	return result
}
