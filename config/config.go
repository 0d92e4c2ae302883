package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"qtally/cbits"
)

// Config holds qtally settings. Values come from the YAML file, then
// QTALLY_* environment variables (a .env file in the working directory is
// loaded first), then command line flags.
type Config struct {
	BitOrder string    `yaml:"bit_order"`
	Shots    int       `yaml:"shots"`
	Seed     int64     `yaml:"seed"`
	Memory   bool      `yaml:"memory"`
	Backend  string    `yaml:"backend"`
	SetupDir string    `yaml:"setup_dir"`
	Log      LogConfig `yaml:"log"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// DefaultConfig returns the settings written on first run.
func DefaultConfig() Config {
	return Config{
		BitOrder: cbits.LittleEndian.String(),
		Shots:    2000,
		Seed:     100,
		Memory:   true,
		Backend:  "local_simulator",
		SetupDir: "",
		Log:      LogConfig{Level: "info", Pretty: true},
	}
}

// DefaultPath is ~/.qtally/qtally.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".qtally", "qtally.yaml"), nil
}

// Load reads the config at path, creating it with defaults when it does not
// exist. An empty path means DefaultPath. Fields missing from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}
	// Load .env file if it exists
	_ = godotenv.Load()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return nil, err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.SetupDir == "" {
		cfg.SetupDir = filepath.Dir(path)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func createDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) applyEnv() {
	c.BitOrder = getEnv("QTALLY_BIT_ORDER", c.BitOrder)
	c.Shots = getEnvAsInt("QTALLY_SHOTS", c.Shots)
	c.Seed = int64(getEnvAsInt("QTALLY_SEED", int(c.Seed)))
	c.Backend = getEnv("QTALLY_BACKEND", c.Backend)
	c.SetupDir = getEnv("QTALLY_SETUP_DIR", c.SetupDir)
	c.Log.Level = getEnv("QTALLY_LOG_LEVEL", c.Log.Level)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Shots <= 0 {
		return fmt.Errorf("shots must be positive, got %d", c.Shots)
	}
	if _, err := cbits.ParseBitOrder(c.BitOrder); err != nil {
		return err
	}
	if c.Backend == "" {
		return fmt.Errorf("backend is required")
	}
	return nil
}

// Order returns the configured bit order. Validate has already accepted it.
func (c *Config) Order() cbits.BitOrder {
	o, _ := cbits.ParseBitOrder(c.BitOrder)
	return o
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
