// Package config loads run configuration from defaults, an optional YAML
// file and AMPCLIMB_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"ampclimb/internal/climb"
	"ampclimb/internal/mutate"
	"ampclimb/internal/oracle"
	"ampclimb/internal/storage"
)

const EnvPrefix = "AMPCLIMB_"

type Sampled struct {
	Positions   []int `yaml:"positions" env:"POSITIONS" envSeparator:"," validate:"dive,gte=0"`
	Completions int   `yaml:"completions" env:"COMPLETIONS" validate:"gte=0"`
	Patience    int   `yaml:"patience" env:"PATIENCE" validate:"gte=0"`
}

type Store struct {
	Kind string `yaml:"kind" env:"KIND" validate:"oneof=memory sqlite"`
	Path string `yaml:"path" env:"PATH"`
}

type Cache struct {
	Kind string `yaml:"kind" env:"KIND" validate:"oneof=none memory badger"`
	// Size caps the in-memory cache; 0 uses the package default.
	Size int    `yaml:"size" env:"SIZE" validate:"gte=0"`
	Dir  string `yaml:"dir" env:"DIR"`
}

type Config struct {
	Alphabet        string  `yaml:"alphabet" env:"ALPHABET" validate:"required"`
	ChangeMultiple  bool    `yaml:"change_multiple" env:"CHANGE_MULTIPLE"`
	EpochBudget     int     `yaml:"epoch_budget" env:"EPOCH_BUDGET" validate:"gt=0"`
	Strategy        string  `yaml:"strategy" env:"STRATEGY" validate:"oneof=exhaustive sampled"`
	Sampled         Sampled `yaml:"sampled" envPrefix:"SAMPLED_"`
	Workers         int     `yaml:"workers" env:"WORKERS" validate:"gte=0"`
	Seed            int64   `yaml:"seed" env:"SEED"`
	SerializeOracle bool    `yaml:"serialize_oracle" env:"SERIALIZE_ORACLE"`

	Oracle oracle.Spec `yaml:"oracle" envPrefix:"ORACLE_"`
	Store  Store       `yaml:"store" envPrefix:"STORE_"`
	Cache  Cache       `yaml:"cache" envPrefix:"CACHE_"`

	ArtifactsDir string `yaml:"artifacts_dir" env:"ARTIFACTS_DIR"`
	LogLevel     string `yaml:"log_level" env:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn warning error"`
	LogJSON      bool   `yaml:"log_json" env:"LOG_JSON"`
	MetricsAddr  string `yaml:"metrics_addr" env:"METRICS_ADDR"`
}

func Default() Config {
	return Config{
		Alphabet:    mutate.DefaultSymbols,
		EpochBudget: 100,
		Strategy:    string(climb.StrategyExhaustive),
		Sampled:     Sampled{Completions: 10},
		Seed:        1,
		Oracle:      oracle.Spec{Kind: "composition", Preset: "cationic", Logistic: true},
		Store:       Store{Kind: storage.DefaultStoreKind(), Path: "ampclimb.db"},
		Cache:       Cache{Kind: "memory"},
		LogLevel:    "info",
	}
}

var validate = validator.New()

// Load applies path (if non-empty) and the environment on top of Default and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: decode %s: %v", climb.ErrConfiguration, path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("%w: parse env: %v", climb.ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and that the alphabet is usable.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", climb.ErrConfiguration, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", climb.ErrConfiguration, err)
	}
	if _, err := mutate.NewAlphabet(c.Alphabet); err != nil {
		return fmt.Errorf("%w: %v", climb.ErrConfiguration, err)
	}
	if c.Strategy == string(climb.StrategySampled) && c.Sampled.Completions == 0 {
		return fmt.Errorf("%w: sampled strategy needs completions > 0", climb.ErrConfiguration)
	}
	if c.Oracle.Kind == "" {
		return fmt.Errorf("%w: oracle kind is required", climb.ErrConfiguration)
	}
	return nil
}

// ClimbConfig converts c into the optimizer configuration.
func (c Config) ClimbConfig() (climb.Config, error) {
	alphabet, err := mutate.NewAlphabet(c.Alphabet)
	if err != nil {
		return climb.Config{}, fmt.Errorf("%w: %v", climb.ErrConfiguration, err)
	}
	return climb.Config{
		Alphabet:       alphabet,
		ChangeMultiple: c.ChangeMultiple,
		EpochBudget:    c.EpochBudget,
		Strategy:       climb.Strategy(c.Strategy),
		Positions:      append([]int(nil), c.Sampled.Positions...),
		Completions:    c.Sampled.Completions,
		Patience:       c.Sampled.Patience,
	}, nil
}
