package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDandanplay()
	c.normalizeOverlay()
	c.normalizePlayer()
	c.normalizeNotifications()
	c.normalizeHistory()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ProfileDir) == "" {
		c.Paths.ProfileDir = defaultProfileDir
	}
	if c.Paths.ProfileDir, err = expandPath(strings.TrimSpace(c.Paths.ProfileDir)); err != nil {
		return fmt.Errorf("paths.profile_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func envFallback(value *string, key string) {
	*value = strings.TrimSpace(*value)
	if *value != "" {
		return
	}
	if env, ok := os.LookupEnv(key); ok {
		*value = strings.TrimSpace(env)
	}
}

func (c *Config) normalizeDandanplay() {
	envFallback(&c.Dandanplay.AppID, "DANDANPLAY_APP_ID")
	envFallback(&c.Dandanplay.AppSecret, "DANDANPLAY_APP_SECRET")
	envFallback(&c.Dandanplay.Username, "DANDANPLAY_USERNAME")
	// Passwords may legitimately carry surrounding spaces.
	if c.Dandanplay.Password == "" {
		if env, ok := os.LookupEnv("DANDANPLAY_PASSWORD"); ok {
			c.Dandanplay.Password = env
		}
	}
	c.Dandanplay.BaseURL = strings.TrimRight(strings.TrimSpace(c.Dandanplay.BaseURL), "/")
	if c.Dandanplay.BaseURL == "" {
		c.Dandanplay.BaseURL = defaultDandanplayBaseURL
	}
	c.Dandanplay.UserAgent = strings.TrimSpace(c.Dandanplay.UserAgent)
	if c.Dandanplay.UserAgent == "" {
		c.Dandanplay.UserAgent = defaultDandanplayUserAgent
	}
	if c.Dandanplay.RequestTimeout <= 0 {
		c.Dandanplay.RequestTimeout = defaultRequestTimeout
	}
	if c.Dandanplay.RequestsPerSecond <= 0 {
		c.Dandanplay.RequestsPerSecond = defaultRequestsPerSecond
	}
}

func (c *Config) normalizeOverlay() {
	if c.Overlay.ScrollDuration < minScrollDuration {
		c.Overlay.ScrollDuration = minScrollDuration
	}
	if c.Overlay.MaxComments < 0 {
		c.Overlay.MaxComments = 0
	}
	c.Overlay.FontName = strings.TrimSpace(c.Overlay.FontName)
	if c.Overlay.FontName == "" {
		c.Overlay.FontName = defaultFontName
	}
	if c.Overlay.FontSize <= 0 {
		c.Overlay.FontSize = defaultFontSize
	}
	if c.Overlay.ScrollLanes <= 0 {
		c.Overlay.ScrollLanes = defaultScrollLanes
	}
	if c.Overlay.TopLanes <= 0 {
		c.Overlay.TopLanes = defaultTopLanes
	}
	if c.Overlay.BottomLanes <= 0 {
		c.Overlay.BottomLanes = defaultBottomLanes
	}
}

func (c *Config) normalizePlayer() {
	c.Player.MPVSocket = strings.TrimSpace(c.Player.MPVSocket)
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeHistory() {
	if c.History.RetentionDays < 0 {
		c.History.RetentionDays = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
