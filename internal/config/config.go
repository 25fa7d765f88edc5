// Package config loads the weight grid and engine settings from a JSON file.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"sync"

	"github.com/jaminalder/codex-kinarow/internal/domain"
	"github.com/jaminalder/codex-kinarow/internal/search"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Config struct {
	Addr          string  `json:"addr"`
	LogLevel      string  `json:"log_level"`
	Weights       [][]int `json:"weights"`
	WeightFactorX int     `json:"weight_factor_x"`
	WeightFactorO int     `json:"weight_factor_o"`
	AiDepth       int     `json:"ai_depth"`
	AiPrune       bool    `json:"ai_prune"`
	AiMemoize     bool    `json:"ai_memoize"`
	TableSize     int     `json:"table_size"`
}

// Default is a classic 3x3 game with uniform weights, searched to full depth.
func Default() Config {
	return Config{
		Addr:          ":8080",
		LogLevel:      "info",
		Weights:       domain.UniformWeights(3, 1),
		WeightFactorX: 1,
		WeightFactorO: 1,
		AiDepth:       9,
		AiMemoize:     true,
		TableSize:     search.DefaultTableSize,
	}
}

// Load reads path over the defaults. An empty path returns Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Wrapf(err, "decode config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// Validate checks that the config can build a board and a search.
func (c Config) Validate() error {
	if _, err := c.NewBoard(); err != nil {
		return err
	}
	if c.AiDepth < 0 {
		return errors.Errorf("ai_depth must be >= 0, got %d", c.AiDepth)
	}
	if c.TableSize < 0 {
		return errors.Errorf("table_size must be >= 0, got %d", c.TableSize)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log_level")
	}
	return nil
}

// NewBoard returns the starting board for a game played with this config.
func (c Config) NewBoard() (domain.Board, error) {
	policy := domain.WithWeightPolicy(domain.FactorPolicy{X: c.WeightFactorX, O: c.WeightFactorO})
	b, err := domain.NewBoard(c.Weights, policy)
	if err != nil {
		return domain.Board{}, errors.Wrap(err, "weights")
	}
	return b, nil
}

// Level returns the zerolog level, info when unset.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Store holds the live config; new games pick up the value current at creation.
type Store struct {
	mu     sync.RWMutex
	config Config
}

func NewStore(cfg Config) *Store {
	return &Store{config: cfg}
}

func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Update replaces the config after validating it.
func (s *Store) Update(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
	return nil
}

// Reload reads path and swaps it in. On error the current config stays.
func (s *Store) Reload(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return s.Get(), err
	}
	if err := s.Update(cfg); err != nil {
		return s.Get(), err
	}
	return cfg, nil
}
