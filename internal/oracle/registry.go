package oracle

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrOracleExists   = errors.New("oracle kind already registered")
	ErrOracleNotFound = errors.New("oracle kind not found")
)

// Spec describes an oracle by kind plus the parameters that kind reads.
type Spec struct {
	Kind string `yaml:"kind" env:"KIND" json:"kind"`

	// fraction
	Targets string `yaml:"targets" env:"TARGETS" json:"targets,omitempty"`

	// composition
	Preset   string             `yaml:"preset" env:"PRESET" json:"preset,omitempty"`
	Weights  map[string]float64 `yaml:"weights" json:"weights,omitempty"`
	Bias     float64            `yaml:"bias" env:"BIAS" json:"bias,omitempty"`
	Logistic bool               `yaml:"logistic" env:"LOGISTIC" json:"logistic,omitempty"`

	// http
	URL           string        `yaml:"url" env:"URL" json:"url,omitempty"`
	ResultPath    string        `yaml:"result_path" env:"RESULT_PATH" json:"result_path,omitempty"`
	BatchSize     int           `yaml:"batch_size" env:"BATCH_SIZE" json:"batch_size,omitempty"`
	RatePerSecond float64       `yaml:"rate_per_second" env:"RATE_PER_SECOND" json:"rate_per_second,omitempty"`
	Burst         int           `yaml:"burst" env:"BURST" json:"burst,omitempty"`
	Timeout       time.Duration `yaml:"timeout" env:"TIMEOUT" json:"timeout,omitempty"`

	// Round rounds scores to this many decimals; 0 leaves them untouched.
	Round int `yaml:"round" env:"ROUND" json:"round,omitempty"`
}

type Factory func(spec Spec) (Oracle, error)

var registry = struct {
	mu sync.RWMutex
	m  map[string]Factory
}{
	m: make(map[string]Factory),
}

func init() {
	mustRegister("fraction", buildFraction)
	mustRegister("composition", buildComposition)
	mustRegister("http", buildHTTP)
}

func Register(kind string, factory Factory) error {
	if kind == "" {
		return errors.New("oracle kind is required")
	}
	if factory == nil {
		return errors.New("oracle factory is required")
	}
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, exists := registry.m[kind]; exists {
		return fmt.Errorf("%w: %s", ErrOracleExists, kind)
	}
	registry.m[kind] = factory
	return nil
}

func mustRegister(kind string, factory Factory) {
	if err := Register(kind, factory); err != nil {
		panic(err)
	}
}

// Kinds lists the registered oracle kinds in sorted order.
func Kinds() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	out := make([]string, 0, len(registry.m))
	for kind := range registry.m {
		out = append(out, kind)
	}
	sort.Strings(out)
	return out
}

// Build constructs the oracle described by spec, applying rounding when
// requested.
func Build(spec Spec) (Oracle, error) {
	registry.mu.RLock()
	factory, ok := registry.m[spec.Kind]
	registry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrOracleNotFound, spec.Kind)
	}
	o, err := factory(spec)
	if err != nil {
		return nil, fmt.Errorf("build %s oracle: %w", spec.Kind, err)
	}
	if spec.Round > 0 {
		o = Rounded{Inner: o, Decimals: spec.Round}
	}
	return o, nil
}

func buildFraction(spec Spec) (Oracle, error) {
	if spec.Targets == "" {
		return nil, errors.New("targets are required")
	}
	return PerSequence(Fraction{Targets: spec.Targets}.Score), nil
}

func buildComposition(spec Spec) (Oracle, error) {
	weights := make(map[byte]float64)
	if spec.Preset != "" {
		preset, ok := compositionPresets[spec.Preset]
		if !ok {
			return nil, fmt.Errorf("unknown composition preset %q", spec.Preset)
		}
		for k, v := range preset() {
			weights[k] = v
		}
	}
	for symbol, w := range spec.Weights {
		if len(symbol) != 1 {
			return nil, fmt.Errorf("weight key %q must be a single symbol", symbol)
		}
		weights[symbol[0]] = w
	}
	if len(weights) == 0 {
		return nil, errors.New("preset or weights are required")
	}
	return PerSequence(Composition{Weights: weights, Bias: spec.Bias, Logistic: spec.Logistic}.Score), nil
}

func buildHTTP(spec Spec) (Oracle, error) {
	if spec.URL == "" {
		return nil, errors.New("url is required")
	}
	h := &HTTP{
		URL:        spec.URL,
		ResultPath: spec.ResultPath,
		BatchSize:  spec.BatchSize,
		Client:     &http.Client{Timeout: spec.Timeout},
	}
	if spec.RatePerSecond > 0 {
		burst := spec.Burst
		if burst <= 0 {
			burst = 1
		}
		h.Limiter = rate.NewLimiter(rate.Limit(spec.RatePerSecond), burst)
	}
	return h, nil
}
