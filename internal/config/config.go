package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"mailcannon/internal/catalog"
)

const placeholderAPIKey = "YOUR_API_KEY_HERE"

var requiredFileKeys = []string{"theseus_base_url", "api_key", "tags", "skus"}

type Config struct {
	ConfigPath string
	OutputDir  string
	DBPath     string

	TheseusBaseURL string
	APIKey         string
	Tags           []string
	SKUs           []string

	TimeoutMs int
	DelayMs   int

	envErrs []error
}

// LoadEnv reads .env and the process environment only. Commands that never
// talk to the order API use it to find the output directory and ledger.
func LoadEnv() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ConfigPath: getEnv("MAIL_CANNON_CONFIG", filepath.Join(cwd, "config.json")),
		OutputDir:  getEnv("MAIL_CANNON_OUTPUT_DIR", filepath.Join(cwd, "logs")),
		DBPath:     getEnv("MAIL_CANNON_DB_PATH", filepath.Join(cwd, "data", "mailcannon.db")),
	}
	if cfg.TimeoutMs, err = getEnvInt("MAIL_CANNON_TIMEOUT_MS", 120000); err != nil {
		cfg.envErrs = append(cfg.envErrs, err)
	}
	if cfg.DelayMs, err = getEnvInt("MAIL_CANNON_DELAY_MS", 500); err != nil {
		cfg.envErrs = append(cfg.envErrs, err)
	}
	return cfg, nil
}

// Load reads the config file at path (JSON or YAML, picked by extension) on
// top of the environment. An empty path falls back to MAIL_CANNON_CONFIG or
// ./config.json. Env vars MAIL_CANNON_API_KEY and MAIL_CANNON_BASE_URL win
// over the file.
func Load(path string) (Config, error) {
	cfg, err := LoadEnv()
	if err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(path) != "" {
		cfg.ConfigPath = path
	}

	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		return Config{}, fmt.Errorf("config file not found: %s", cfg.ConfigPath)
	}

	v := viper.New()
	v.SetConfigFile(cfg.ConfigPath)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", cfg.ConfigPath, err)
	}

	var missing []string
	for _, key := range requiredFileKeys {
		if !v.IsSet(key) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("config missing keys: %s", strings.Join(missing, ", "))
	}

	cfg.TheseusBaseURL = getEnv("MAIL_CANNON_BASE_URL", v.GetString("theseus_base_url"))
	cfg.APIKey = getEnv("MAIL_CANNON_API_KEY", v.GetString("api_key"))
	cfg.Tags = v.GetStringSlice("tags")
	cfg.SKUs = v.GetStringSlice("skus")

	return cfg, nil
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	errs := append([]error(nil), c.envErrs...)
	if err := c.Require("theseus_base_url", c.TheseusBaseURL); err != nil {
		errs = append(errs, err)
	}
	if err := c.Require("api_key", c.APIKey); err != nil {
		errs = append(errs, err)
	} else if strings.TrimSpace(c.APIKey) == placeholderAPIKey {
		errs = append(errs, errors.New("set your real api_key before running"))
	}
	if _, err := catalog.New(c.SKUs); err != nil {
		errs = append(errs, err)
	}
	if c.TimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("MAIL_CANNON_TIMEOUT_MS must be positive, got %d", c.TimeoutMs))
	}
	if c.DelayMs < 0 {
		errs = append(errs, fmt.Errorf("MAIL_CANNON_DELAY_MS must not be negative, got %d", c.DelayMs))
	}
	return errors.Join(errs...)
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required setting: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(getEnv(key, ""))
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback, fmt.Errorf("%s must be a whole number of milliseconds, got %q", key, value)
	}
	return parsed, nil
}
