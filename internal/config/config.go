// Package config handles paper-fetcher configuration: the JSON config file
// under the user's config directory, the institutions YAML, and .env
// overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

const (
	// BaseDirName is the dot-directory under the user's home.
	BaseDirName = ".paper-fetcher"

	ConfigFile       = "config.json"
	InstitutionsFile = "institutions.yml"
	SessionsFile     = "sessions.json"
	CacheDirName     = "cache"
	PapersDirName    = "papers"
	HistoryDBFile    = "history.db"
)

// Default politeness window between requests to one host.
const (
	DefaultDelayMin = 2 * time.Second
	DefaultDelayMax = 5 * time.Second
)

// Config is the persisted configuration.
type Config struct {
	Email        string  `json:"email,omitempty"`       // Required by Unpaywall and NCBI polite pools
	Institution  string  `json:"institution,omitempty"` // Selected institution from institutions.yml
	OutputDir    string  `json:"output_dir,omitempty"`  // Where fetched PDFs land
	CacheDir     string  `json:"cache_dir,omitempty"`
	DelayMinSecs float64 `json:"request_delay_min,omitempty"`
	DelayMaxSecs float64 `json:"request_delay_max,omitempty"`

	// S2APIKey raises Semantic Scholar rate limits; loaded from env, never
	// persisted to the config file.
	S2APIKey string `json:"-"`

	baseDir string
}

// BaseDir returns the config root (~/.paper-fetcher unless overridden).
func (c *Config) BaseDir() string { return c.baseDir }

// ConfigPath returns the path to config.json.
func (c *Config) ConfigPath() string { return filepath.Join(c.baseDir, ConfigFile) }

// InstitutionsPath returns the path to institutions.yml.
func (c *Config) InstitutionsPath() string { return filepath.Join(c.baseDir, InstitutionsFile) }

// SessionsPath returns the path to the persisted proxy sessions.
func (c *Config) SessionsPath() string { return filepath.Join(c.baseDir, SessionsFile) }

// CachePath returns the result cache directory.
func (c *Config) CachePath() string {
	if c.CacheDir != "" {
		return c.CacheDir
	}
	return filepath.Join(c.baseDir, CacheDirName)
}

// PapersPath returns the PDF output directory.
func (c *Config) PapersPath() string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	return filepath.Join(c.baseDir, PapersDirName)
}

// HistoryDBPath returns the search history database path.
func (c *Config) HistoryDBPath() string { return filepath.Join(c.baseDir, HistoryDBFile) }

// DelayMin returns the configured minimum inter-request delay.
func (c *Config) DelayMin() time.Duration {
	if c.DelayMinSecs <= 0 {
		return DefaultDelayMin
	}
	return time.Duration(c.DelayMinSecs * float64(time.Second))
}

// DelayMax returns the configured maximum inter-request delay.
func (c *Config) DelayMax() time.Duration {
	if c.DelayMaxSecs <= 0 {
		return DefaultDelayMax
	}
	return time.Duration(c.DelayMaxSecs * float64(time.Second))
}

// DefaultBaseDir returns ~/.paper-fetcher.
func DefaultBaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, BaseDirName), nil
}

// Load reads configuration from baseDir, falling back to defaults when the
// file is absent. A .env file in the working directory (if present) and the
// process environment supply overrides for email and API keys.
func Load(baseDir string) (*Config, error) {
	cfg := &Config{baseDir: baseDir}

	data, err := os.ReadFile(cfg.ConfigPath())
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	if v := os.Getenv("PAPER_FETCHER_EMAIL"); v != "" {
		cfg.Email = v
	}
	if v := os.Getenv("S2_API_KEY"); v != "" {
		cfg.S2APIKey = v
	}

	return cfg, nil
}

// Save writes the configuration to its config file.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.baseDir, 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(c.ConfigPath(), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// EnsureDirs creates the directories the fetcher writes to.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.baseDir, c.CachePath(), c.PapersPath()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}
