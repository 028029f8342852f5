package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config captures the client settings for the cookbook API.
type Config struct {
	APIURL          string
	Timeout         time.Duration
	CredentialsPath string
	RefreshPath     string

	// UnprotectedPaths replaces the client's built-in allow-list when set.
	UnprotectedPaths []string
	// CoalesceRefresh shares one refresh between concurrent 401s. On by
	// default; refresh tokens are single use.
	CoalesceRefresh  bool

	LogLevel  string
	LogFormat string
}

const (
	defaultConfigPath      = "~/.config/cookbook/config.toml"
	defaultCredentialsPath = "~/.local/share/cookbook/credentials.toml"
	defaultAPIURL          = "http://127.0.0.1:8080/api"
	defaultRefreshPath     = "/Users/refresh"
	defaultTimeoutMS       = 10000
	defaultLogLevel        = "info"
	defaultLogFormat       = "text"
)

// Environment variables applied on top of the file.
const (
	EnvAPIURL    = "COOKBOOK_API_URL"
	EnvTimeoutMS = "COOKBOOK_TIMEOUT_MS"
	EnvLogLevel  = "COOKBOOK_LOG_LEVEL"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIURL:          defaultAPIURL,
		Timeout:         defaultTimeoutMS * time.Millisecond,
		CredentialsPath: mustExpand(defaultCredentialsPath),
		RefreshPath:     defaultRefreshPath,
		CoalesceRefresh: true,
		LogLevel:        defaultLogLevel,
		LogFormat:       defaultLogFormat,
	}
}

// Load locates and parses the cookbook config, falling back to defaults when
// missing, then applies environment overrides.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return applyEnv(cfg)
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL           string   `toml:"api_url"`
		TimeoutMS        int      `toml:"timeout_ms"`
		CredentialsPath  string   `toml:"credentials_path"`
		RefreshPath      string   `toml:"refresh_path"`
		UnprotectedPaths []string `toml:"unprotected_paths"`
		CoalesceRefresh  *bool    `toml:"coalesce_refresh"`
		LogLevel         string   `toml:"log_level"`
		LogFormat        string   `toml:"log_format"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	if raw.TimeoutMS > 0 {
		cfg.Timeout = time.Duration(raw.TimeoutMS) * time.Millisecond
	}
	if v := strings.TrimSpace(raw.CredentialsPath); v != "" {
		cfg.CredentialsPath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.RefreshPath); v != "" {
		cfg.RefreshPath = v
	}
	if paths := cleanPaths(raw.UnprotectedPaths); len(paths) > 0 {
		cfg.UnprotectedPaths = paths
	}
	if raw.CoalesceRefresh != nil {
		cfg.CoalesceRefresh = *raw.CoalesceRefresh
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.LogFormat); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}

	return applyEnv(cfg)
}

// LoadEnv reads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		resolved, err := expandPath(p)
		if err != nil {
			return err
		}
		if err := godotenv.Load(resolved); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", resolved, err)
		}
	}
	return nil
}

func applyEnv(cfg Config) (Config, error) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTimeoutMS)); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return Config{}, fmt.Errorf("%s must be a positive integer, got %q", EnvTimeoutMS, v)
		}
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	return cfg, nil
}

func cleanPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
