package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/XiaoConstantine/dspy-go/pkg/logging"
	"github.com/go-playground/validator/v10"
)

// Config represents the patchpilot configuration.
type Config struct {
	Provider    string        `json:"provider" toml:"provider" validate:"required"`
	Model       string        `json:"model" toml:"model" validate:"required"`
	Temperature float64       `json:"temperature" toml:"temperature" validate:"gte=0,lte=2"`
	Review      ReviewConfig  `json:"review" toml:"review"`
	Tests       FeatureConfig `json:"tests" toml:"tests"`
	Docs        FeatureConfig `json:"docs" toml:"docs"`
	Prompt      PromptConfig  `json:"prompt" toml:"prompt"`
	Privacy     PrivacyConfig `json:"privacy" toml:"privacy"`
	Cache       CacheConfig   `json:"cache" toml:"cache"`
}

// ReviewConfig bounds what is sent to and accepted from the model.
type ReviewConfig struct {
	MaxPatchChars   int      `json:"maxPatchChars" toml:"maxPatchChars" validate:"gt=0"`
	MaxComments     int      `json:"maxComments" toml:"maxComments" validate:"gt=0"`
	TargetGlobs     []string `json:"targetGlobs" toml:"targetGlobs"`
	MaxOutputTokens int      `json:"maxOutputTokens" toml:"maxOutputTokens" validate:"gt=0"`
}

// FeatureConfig toggles one kind of generated file.
type FeatureConfig struct {
	Enabled bool `json:"enabled" toml:"enabled"`
}

// PromptConfig controls the optional context added to the prompt.
type PromptConfig struct {
	AddendumPath string `json:"addendumPath" toml:"addendumPath"`
	ReadmePath   string `json:"readmePath" toml:"readmePath"`
	ReadmeChars  int    `json:"readmeChars" toml:"readmeChars" validate:"gte=0"`
}

// PrivacyConfig controls redaction before patches leave the process.
type PrivacyConfig struct {
	RedactSecrets bool     `json:"redactSecrets" toml:"redactSecrets"`
	RedactPaths   []string `json:"redactPaths,omitempty" toml:"redactPaths,omitempty"`
}

// CacheConfig controls caching of completion responses.
type CacheConfig struct {
	Enabled    bool   `json:"enabled" toml:"enabled"`
	Dir        string `json:"dir,omitempty" toml:"dir,omitempty"`
	TTLSeconds int    `json:"ttlSeconds" toml:"ttlSeconds" validate:"gte=0"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Provider:    "openai",
		Model:       "gpt-4o-mini",
		Temperature: 0.2,
		Review: ReviewConfig{
			MaxPatchChars:   20000,
			MaxComments:     30,
			TargetGlobs:     []string{"src/**", "lib/**"},
			MaxOutputTokens: 4096,
		},
		Tests: FeatureConfig{Enabled: true},
		Docs:  FeatureConfig{Enabled: true},
		Prompt: PromptConfig{
			AddendumPath: ".github/patchpilot.md",
			ReadmePath:   "README.md",
			ReadmeChars:  4000,
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
			RedactPaths:   []string{"**/.env", "**/*secrets*"},
		},
		Cache: CacheConfig{
			Enabled:    false,
			TTLSeconds: 86400,
		},
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RepoConfigPaths are the repository-local config files, in lookup order.
var RepoConfigPaths = []string{".github/patchpilot.json", ".github/patchpilot.toml"}

// ConfigDir returns the platform-appropriate config directory for patchpilot.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "patchpilot"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "patchpilot"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "patchpilot"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "patchpilot"), nil
	default:
		return filepath.Join(home, ".config", "patchpilot"), nil
	}
}

// ConfigPath returns the full path to the user config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// FindPath returns the config file a run uses: explicit, then
// PATCHPILOT_CONFIG, then the first existing repository-local file, then the
// user config file. The returned path may not exist.
func FindPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if v := os.Getenv("PATCHPILOT_CONFIG"); v != "" {
		return v, nil
	}
	for _, p := range RepoConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return ConfigPath()
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadFile decodes path on top of the defaults, so keys absent from the file
// keep their default values. found is false when the file does not exist.
func LoadFile(path string) (cfg Config, found bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), false, nil
		}
		return Config{}, false, fmt.Errorf("reading config file: %w", err)
	}
	cfg = Default()
	if isTOML(path) {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return Config{}, true, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		return cfg, true, nil
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, true, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, true, nil
}

// Save writes cfg to path as TOML or JSON depending on the extension.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		data = append(data, '\n')
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set)
// and uses SetField keys.
func Load(ctx context.Context, path string, overrides map[string]string) (Config, error) {
	logger := logging.GetLogger()
	cfg, found, err := LoadFile(path)
	switch {
	case err != nil:
		logger.Debug(ctx, "Ignoring config file, using defaults: %v", err)
		cfg = Default()
	case !found:
		logger.Debug(ctx, "No config file at %s, using defaults", path)
	default:
		if verr := cfg.Validate(); verr != nil {
			logger.Debug(ctx, "Ignoring config file %s, using defaults: %v", path, verr)
			cfg = Default()
		}
	}

	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKeys maps environment variables to SetField keys.
var envKeys = []struct{ env, key string }{
	{"PATCHPILOT_PROVIDER", "provider"},
	{"PATCHPILOT_MODEL", "model"},
	{"PATCHPILOT_TEMPERATURE", "temperature"},
	{"PATCHPILOT_MAX_PATCH_CHARS", "review.maxPatchChars"},
	{"PATCHPILOT_MAX_COMMENTS", "review.maxComments"},
	{"PATCHPILOT_TARGET_GLOBS", "review.targetGlobs"},
	{"PATCHPILOT_MAX_OUTPUT_TOKENS", "review.maxOutputTokens"},
	{"PATCHPILOT_TESTS_ENABLED", "tests.enabled"},
	{"PATCHPILOT_DOCS_ENABLED", "docs.enabled"},
	{"PATCHPILOT_REDACT_SECRETS", "privacy.redactSecrets"},
	{"PATCHPILOT_CACHE", "cache.enabled"},
}

func mergeEnv(cfg *Config) error {
	for _, e := range envKeys {
		v := os.Getenv(e.env)
		if v == "" {
			continue
		}
		if err := SetField(cfg, e.key, v); err != nil {
			return fmt.Errorf("%s: %w", e.env, err)
		}
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	for key, v := range overrides {
		if v == "" {
			continue
		}
		if err := SetField(cfg, key, v); err != nil {
			return err
		}
	}
	return nil
}

// Keys lists every key accepted by SetField.
func Keys() []string {
	return []string{
		"provider", "model", "temperature",
		"review.maxPatchChars", "review.maxComments", "review.targetGlobs", "review.maxOutputTokens",
		"tests.enabled", "docs.enabled",
		"prompt.addendumPath", "prompt.readmePath", "prompt.readmeChars",
		"privacy.redactSecrets", "privacy.redactPaths",
		"cache.enabled", "cache.dir", "cache.ttlSeconds",
	}
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "provider":
		cfg.Provider = value
	case "model":
		cfg.Model = value
	case "temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("temperature must be a number: %w", err)
		}
		cfg.Temperature = f
	case "review.maxPatchChars":
		return setInt(&cfg.Review.MaxPatchChars, key, value)
	case "review.maxComments":
		return setInt(&cfg.Review.MaxComments, key, value)
	case "review.targetGlobs":
		cfg.Review.TargetGlobs = splitList(value)
	case "review.maxOutputTokens":
		return setInt(&cfg.Review.MaxOutputTokens, key, value)
	case "tests.enabled":
		return setBool(&cfg.Tests.Enabled, key, value)
	case "docs.enabled":
		return setBool(&cfg.Docs.Enabled, key, value)
	case "prompt.addendumPath":
		cfg.Prompt.AddendumPath = value
	case "prompt.readmePath":
		cfg.Prompt.ReadmePath = value
	case "prompt.readmeChars":
		return setInt(&cfg.Prompt.ReadmeChars, key, value)
	case "privacy.redactSecrets":
		return setBool(&cfg.Privacy.RedactSecrets, key, value)
	case "privacy.redactPaths":
		cfg.Privacy.RedactPaths = splitList(value)
	case "cache.enabled":
		return setBool(&cfg.Cache.Enabled, key, value)
	case "cache.dir":
		cfg.Cache.Dir = value
	case "cache.ttlSeconds":
		return setInt(&cfg.Cache.TTLSeconds, key, value)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	*dst = b
	return nil
}

// splitList parses a comma-separated list, dropping empty entries. An empty
// list is valid and matches every path.
func splitList(value string) []string {
	out := []string{}
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
