package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Service contains the master switches for automatic overlay loading.
type Service struct {
	Enabled           bool `toml:"enabled"`
	ShowNotifications bool `toml:"show_notifications"`
}

// Dandanplay contains configuration for the remote danmaku API.
type Dandanplay struct {
	BaseURL           string  `toml:"base_url"`
	AppID             string  `toml:"app_id"`
	AppSecret         string  `toml:"app_secret"`
	Username          string  `toml:"username"`
	Password          string  `toml:"password"`
	WithRelated       bool    `toml:"with_related"`
	RequestTimeout    int     `toml:"request_timeout"`
	UserAgent         string  `toml:"user_agent"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Overlay contains the subtitle compositor sizing.
type Overlay struct {
	ScrollDuration int    `toml:"scroll_duration"`
	MaxComments    int    `toml:"max_comments"`
	FontName       string `toml:"font_name"`
	FontSize       int    `toml:"font_size"`
	ScrollLanes    int    `toml:"scroll_lanes"`
	TopLanes       int    `toml:"top_lanes"`
	BottomLanes    int    `toml:"bottom_lanes"`
}

// Paths contains directory configuration.
type Paths struct {
	ProfileDir string `toml:"profile_dir"`
	LogDir     string `toml:"log_dir"`
}

// Player contains configuration for the host player adapter.
type Player struct {
	MPVSocket string `toml:"mpv_socket"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// History contains configuration for the playback history store.
type History struct {
	Enabled       bool `toml:"enabled"`
	RetentionDays int  `toml:"retention_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for danmaku.
//
// Configuration sections by subsystem:
//   - Service: master enable switch and user-visible notices
//   - Dandanplay: remote API endpoint, credentials, and pacing
//   - Overlay: compositor lanes, durations, and caps
//   - Paths: profile and log directories
//   - Player: mpv IPC socket
//   - Notifications: optional ntfy mirror of player notices
//   - History: sqlite playback history
//   - Logging: log format and level
type Config struct {
	Service       Service       `toml:"service"`
	Dandanplay    Dandanplay    `toml:"dandanplay"`
	Overlay       Overlay       `toml:"overlay"`
	Paths         Paths         `toml:"paths"`
	Player        Player        `toml:"player"`
	Notifications Notifications `toml:"notifications"`
	History       History       `toml:"history"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPathLiteral)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPathLiteral)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(defaultProjectConfigFileName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the profile and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ProfileDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// TokenPath returns the cached login token location.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Paths.ProfileDir, defaultTokenFileName)
}

// HistoryPath returns the sqlite playback history location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.ProfileDir, defaultHistoryFileName)
}

// DaemonLockPath returns the single-instance lock file location.
func (c *Config) DaemonLockPath() string {
	return filepath.Join(c.Paths.ProfileDir, defaultDaemonLockFileName)
}

// DaemonSocketPath returns the control socket location.
func (c *Config) DaemonSocketPath() string {
	return filepath.Join(c.Paths.ProfileDir, defaultDaemonSocketFileName)
}

// DaemonLogPath returns the daemon log file location.
func (c *Config) DaemonLogPath() string {
	return filepath.Join(c.Paths.LogDir, defaultDaemonLogFileName)
}

// RequestTimeout returns the remote API timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Dandanplay.RequestTimeout) * time.Second
}

// HasCredentials reports whether all login credentials are configured.
func (c *Config) HasCredentials() bool {
	d := c.Dandanplay
	return d.AppID != "" && d.AppSecret != "" && d.Username != "" && d.Password != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
