// Package config loads the configuration surface spec.md §6 defines: the
// exact set of keys the core recognises, nothing more. Values come from
// environment variables (optionally via a .env file) with an optional YAML
// file supplying the strategy roster and basket symbol list that the
// multi-strategy engine needs to boot.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// MemoryMode gates the Episodic Memory Store's write access.
type MemoryMode string

const (
	ModeAnalysis MemoryMode = "ANALYSIS"
	ModeTraining MemoryMode = "TRAINING"
)

// Config is the complete configuration surface the core recognises.
type Config struct {
	DataDir string // root for results/, training_data/, cache dirs

	HoldingDays                 int        // H in the trainer
	MaxPositions                int        // basket size cap
	PositionSize                float64    // per-entry fraction of cash
	InitialCash                 float64    // per-strategy starting cash
	HeartbeatIntervalS          float64    // engine heartbeat cadence
	MaxRestarts                 int        // supervisor ceiling
	CacheTTLS                   int        // TTL tier expiry
	MemoryMode                  MemoryMode // ANALYSIS / TRAINING
	EnableSmallModelRouting     bool       // cmd/trainer builds an LLM router only when true

	LogLevel string
}

// StrategyRoster is the YAML-loaded list of strategies and basket symbols.
// Not part of spec.md's configuration table: the spec is silent on how a
// multi-strategy engine learns which strategies and symbols to run, and a
// complete implementation needs somewhere for that to live.
type StrategyRoster struct {
	Strategies []StrategyConfig `yaml:"strategies"`
	Basket     []string         `yaml:"basket"`
}

// StrategyConfig names one strategy instance. cmd/engine uses only ID: Name
// and InitialCash are parsed but not applied, and every strategy starts with
// Config.InitialCash.
type StrategyConfig struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	InitialCash float64 `yaml:"initial_cash"`
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// Load reads configuration from environment variables, with an optional
// .env file and a CLI-flag data-dir override taking priority over the
// environment in that order (highest first): dataDirOverride, env var,
// default.
func Load(dataDirOverride ...string) (*Config, error) {
	_ = godotenv.Load()

	var dataDir string
	if len(dataDirOverride) > 0 && dataDirOverride[0] != "" {
		dataDir = dataDirOverride[0]
	} else {
		dataDir = getEnv("CHRONOTRADER_DATA_DIR", "")
		if dataDir == "" {
			dataDir = "./data"
		}
	}
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	cfg := &Config{
		DataDir:                 absDataDir,
		HoldingDays:             getEnvInt("CHRONOTRADER_HOLDING_DAYS", 5),
		MaxPositions:            getEnvInt("CHRONOTRADER_MAX_POSITIONS", 5),
		PositionSize:            getEnvFloat("CHRONOTRADER_POSITION_SIZE", 0.2),
		InitialCash:             getEnvFloat("CHRONOTRADER_INITIAL_CASH", 100000),
		HeartbeatIntervalS:      getEnvFloat("CHRONOTRADER_HEARTBEAT_INTERVAL_S", 30),
		MaxRestarts:             getEnvInt("CHRONOTRADER_MAX_RESTARTS", 3),
		CacheTTLS:               getEnvInt("CHRONOTRADER_CACHE_TTL_S", 300),
		MemoryMode:              MemoryMode(getEnv("CHRONOTRADER_MEMORY_MODE", string(ModeAnalysis))),
		EnableSmallModelRouting: getEnvBool("CHRONOTRADER_ENABLE_SMALL_MODEL_ROUTING", true),
		LogLevel:                getEnv("CHRONOTRADER_LOG_LEVEL", "info"),
	}

	if cfg.MemoryMode != ModeAnalysis && cfg.MemoryMode != ModeTraining {
		return nil, fmt.Errorf("invalid memory_mode %q: must be ANALYSIS or TRAINING", cfg.MemoryMode)
	}

	return cfg, nil
}

// HeartbeatInterval returns HeartbeatIntervalS as a time.Duration.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalS * float64(time.Second))
}

// CacheTTL returns CacheTTLS as a time.Duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLS) * time.Second
}

// LoadStrategyRoster reads the YAML strategy/basket file at path.
func LoadStrategyRoster(path string) (*StrategyRoster, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy roster %s: %w", path, err)
	}
	var roster StrategyRoster
	if err := yaml.Unmarshal(b, &roster); err != nil {
		return nil, fmt.Errorf("parse strategy roster %s: %w", path, err)
	}
	return &roster, nil
}
