package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"

	VisionGenAI = "genai"
	VisionMock  = "mock"
)

// Config is the klarity.toml shape after env overlays.
type Config struct {
	Name        string   `toml:"name" env:"KLARITY_NAME"`
	Addr        string   `toml:"addr" env:"KLARITY_ADDR"`
	CorsOrigins []string `toml:"cors_origins" env:"KLARITY_CORS_ORIGINS" envSeparator:","`
	EnvFiles    []string `toml:"env_files"`
	CatalogPath string   `toml:"catalog_path" env:"KLARITY_CATALOG_PATH"`

	Links  LinkConfig   `toml:"links"`
	Store  StoreConfig  `toml:"store"`
	Vision VisionConfig `toml:"vision"`
	Auth   AuthConfig   `toml:"auth"`
}

type LinkConfig struct {
	BaseURL string `toml:"base_url" env:"KLARITY_LINK_BASE_URL"`
	TTL     string `toml:"ttl" env:"KLARITY_LINK_TTL"`
}

type StoreConfig struct {
	Driver string `toml:"driver" env:"KLARITY_STORE_DRIVER"`
	Path   string `toml:"path" env:"KLARITY_STORE_PATH"`
}

type VisionConfig struct {
	Provider  string `toml:"provider" env:"KLARITY_VISION_PROVIDER"`
	Model     string `toml:"model" env:"KLARITY_VISION_MODEL"`
	APIKey    string `toml:"api_key" env:"GEMINI_API_KEY"`
	Timeout   string `toml:"timeout" env:"KLARITY_VISION_TIMEOUT"`
	MockDelay string `toml:"mock_delay" env:"KLARITY_VISION_MOCK_DELAY"`
	MaxTokens int32  `toml:"max_tokens" env:"KLARITY_VISION_MAX_TOKENS"`
}

// AuthConfig selects how dashboard access codes are checked: a bcrypt hash
// wins over a plaintext code; with neither, any non-empty code is accepted.
type AuthConfig struct {
	AccessCodeHash string `toml:"access_code_hash" env:"KLARITY_ACCESS_CODE_HASH"`
	AccessCode     string `toml:"access_code" env:"KLARITY_ACCESS_CODE"`
	SessionTTL     string `toml:"session_ttl" env:"KLARITY_SESSION_TTL"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Name:        "klarity",
		Addr:        ":8080",
		CorsOrigins: []string{"http://localhost:5173"},
		Links: LinkConfig{
			BaseURL: "https://klarity.app",
			TTL:     "360h",
		},
		Store: StoreConfig{
			Driver: StoreMemory,
			Path:   filepath.Join("local", "klarity.db"),
		},
		Vision: VisionConfig{
			Provider:  VisionMock,
			Model:     "gemini-2.5-flash",
			Timeout:   "60s",
			MockDelay: "1500ms",
			MaxTokens: 1000,
		},
		Auth: AuthConfig{
			SessionTTL: "12h",
		},
	}
}

// Load reads path over Default, then applies env files and process env.
// An empty path skips the file and only applies env overlays.
func Load(path string) (Config, error) {
	cfg := Default()
	baseDir := "."
	if strings.TrimSpace(path) != "" {
		if err := loadToml(path, &cfg); err != nil {
			return Config{}, err
		}
		baseDir = filepath.Dir(path)
	}
	if err := applyEnv(&cfg, baseDir, os.Environ()); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

// applyEnv layers env files under the process environment; process values win.
func applyEnv(cfg *Config, baseDir string, environ []string) error {
	merged := map[string]string{}
	for _, name := range cfg.EnvFiles {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !filepath.IsAbs(name) {
			name = filepath.Join(baseDir, name)
		}
		vars, err := godotenv.Read(name)
		if err != nil {
			return fmt.Errorf("env file load failed (%s): %w", name, err)
		}
		for k, v := range vars {
			merged[k] = v
		}
	}
	for k, v := range env.ToMap(environ) {
		merged[k] = v
	}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: merged}); err != nil {
		return fmt.Errorf("config env overlay failed: %w", err)
	}
	return nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("config missing name")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("config missing addr")
	}
	if !strings.HasPrefix(cfg.Links.BaseURL, "http://") && !strings.HasPrefix(cfg.Links.BaseURL, "https://") {
		return fmt.Errorf("links.base_url must be an http(s) url, got %q", cfg.Links.BaseURL)
	}
	if _, err := cfg.LinkTTL(); err != nil {
		return err
	}
	if _, err := cfg.SessionTTL(); err != nil {
		return err
	}
	if h := cfg.Auth.AccessCodeHash; h != "" && !strings.HasPrefix(h, "$2") {
		return fmt.Errorf("auth.access_code_hash must be a bcrypt hash")
	}
	switch cfg.Store.Driver {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(cfg.Store.Path) == "" {
			return fmt.Errorf("store.path required for sqlite driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", cfg.Store.Driver)
	}
	switch cfg.Vision.Provider {
	case VisionMock:
		if _, err := parsePositive("vision.mock_delay", cfg.Vision.MockDelay, true); err != nil {
			return err
		}
	case VisionGenAI:
		if strings.TrimSpace(cfg.Vision.APIKey) == "" {
			return fmt.Errorf("vision.api_key (or GEMINI_API_KEY) required for genai provider")
		}
		if strings.TrimSpace(cfg.Vision.Model) == "" {
			return fmt.Errorf("vision.model required for genai provider")
		}
	default:
		return fmt.Errorf("unknown vision.provider %q", cfg.Vision.Provider)
	}
	if _, err := cfg.VisionTimeout(); err != nil {
		return err
	}
	return nil
}

func (c Config) LinkTTL() (time.Duration, error) {
	return parsePositive("links.ttl", c.Links.TTL, false)
}

func (c Config) SessionTTL() (time.Duration, error) {
	return parsePositive("auth.session_ttl", c.Auth.SessionTTL, false)
}

func (c Config) VisionTimeout() (time.Duration, error) {
	return parsePositive("vision.timeout", c.Vision.Timeout, false)
}

func (c Config) MockDelay() time.Duration {
	d, _ := parsePositive("vision.mock_delay", c.Vision.MockDelay, true)
	return d
}

func parsePositive(key, raw string, allowZero bool) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" && allowZero {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("%s must be positive, got %s", key, raw)
	}
	return d, nil
}
