package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDandanplay(); err != nil {
		return err
	}
	if err := c.validateOverlay(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDandanplay() error {
	parsed, err := url.Parse(c.Dandanplay.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("dandanplay.base_url must be an absolute URL, got %q", c.Dandanplay.BaseURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("dandanplay.base_url must use http or https, got %q", parsed.Scheme)
	}
	return nil
}

func (c *Config) validateOverlay() error {
	if c.Overlay.FontSize > 400 {
		return fmt.Errorf("overlay.font_size must be at most 400, got %d", c.Overlay.FontSize)
	}
	if c.Overlay.ScrollLanes > 64 || c.Overlay.TopLanes > 64 || c.Overlay.BottomLanes > 64 {
		return errors.New("overlay lane counts must be at most 64")
	}
	if strings.ContainsAny(c.Overlay.FontName, ",\r\n") {
		return fmt.Errorf("overlay.font_name must not contain commas or line breaks, got %q", c.Overlay.FontName)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if strings.HasPrefix(topic, "http://") || strings.HasPrefix(topic, "https://") {
		if _, err := url.Parse(topic); err != nil {
			return fmt.Errorf("notifications.ntfy_topic: %w", err)
		}
		return nil
	}
	return errors.New("notifications.ntfy_topic must be a full http(s) URL")
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}
