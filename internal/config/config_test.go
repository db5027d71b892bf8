package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"danmaku/internal/config"
)

func clearDandanplayEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DANDANPLAY_APP_ID", "DANDANPLAY_APP_SECRET", "DANDANPLAY_USERNAME", "DANDANPLAY_PASSWORD"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearDandanplayEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "danmaku", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantProfile := filepath.Join(tempHome, ".local", "share", "danmaku")
	if cfg.Paths.ProfileDir != wantProfile {
		t.Fatalf("unexpected profile dir: got %q want %q", cfg.Paths.ProfileDir, wantProfile)
	}
	if cfg.TokenPath() != filepath.Join(wantProfile, "token.json") {
		t.Fatalf("unexpected token path %q", cfg.TokenPath())
	}
	if !cfg.Service.Enabled || !cfg.Service.ShowNotifications {
		t.Fatal("expected service and notifications enabled by default")
	}
	if cfg.Dandanplay.BaseURL != "https://api.dandanplay.net" {
		t.Fatalf("unexpected base url %q", cfg.Dandanplay.BaseURL)
	}
	if !cfg.Dandanplay.WithRelated {
		t.Fatal("expected with_related default true")
	}
	if cfg.Overlay.ScrollDuration != 6 || cfg.Overlay.MaxComments != 3000 {
		t.Fatalf("unexpected overlay defaults: %+v", cfg.Overlay)
	}
	if cfg.Overlay.ScrollLanes != 12 || cfg.Overlay.TopLanes != 5 || cfg.Overlay.BottomLanes != 5 {
		t.Fatalf("unexpected lane defaults: %+v", cfg.Overlay)
	}
	if cfg.HasCredentials() {
		t.Fatal("expected no credentials by default")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.ProfileDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearDandanplayEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "danmaku.toml")

	type payload struct {
		Service struct {
			Enabled bool `toml:"enabled"`
		} `toml:"service"`
		Dandanplay struct {
			BaseURL string `toml:"base_url"`
			AppID   string `toml:"app_id"`
		} `toml:"dandanplay"`
		Overlay struct {
			ScrollDuration int `toml:"scroll_duration"`
			MaxComments    int `toml:"max_comments"`
		} `toml:"overlay"`
		Paths struct {
			ProfileDir string `toml:"profile_dir"`
		} `toml:"paths"`
	}
	custom := payload{}
	custom.Service.Enabled = false
	custom.Dandanplay.BaseURL = "https://example.com/api/"
	custom.Dandanplay.AppID = "  app  "
	custom.Overlay.ScrollDuration = 2
	custom.Overlay.MaxComments = -5
	custom.Paths.ProfileDir = filepath.Join(tempDir, "profile")

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Service.Enabled {
		t.Fatal("expected service disabled from file")
	}
	if cfg.Dandanplay.BaseURL != "https://example.com/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Dandanplay.BaseURL)
	}
	if cfg.Dandanplay.AppID != "app" {
		t.Fatalf("expected trimmed app id, got %q", cfg.Dandanplay.AppID)
	}
	if cfg.Overlay.ScrollDuration != 4 {
		t.Fatalf("expected scroll duration floor of 4, got %d", cfg.Overlay.ScrollDuration)
	}
	if cfg.Overlay.MaxComments != 0 {
		t.Fatalf("expected negative max comments normalized to 0, got %d", cfg.Overlay.MaxComments)
	}
	if cfg.Paths.ProfileDir != filepath.Join(tempDir, "profile") {
		t.Fatalf("unexpected profile dir %q", cfg.Paths.ProfileDir)
	}
}

func TestEnvVarsFillMissingCredentials(t *testing.T) {
	clearDandanplayEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DANDANPLAY_APP_ID", "env-app")
	t.Setenv("DANDANPLAY_APP_SECRET", "env-secret")
	t.Setenv("DANDANPLAY_USERNAME", "env-user")
	t.Setenv("DANDANPLAY_PASSWORD", " spaced ")

	configPath := filepath.Join(t.TempDir(), "danmaku.toml")
	if err := os.WriteFile(configPath, []byte("[dandanplay]\nusername = \"file-user\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Dandanplay.Username != "file-user" {
		t.Fatalf("expected file username to win, got %q", cfg.Dandanplay.Username)
	}
	if cfg.Dandanplay.AppID != "env-app" || cfg.Dandanplay.AppSecret != "env-secret" {
		t.Fatalf("expected env app credentials, got %+v", cfg.Dandanplay)
	}
	if cfg.Dandanplay.Password != " spaced " {
		t.Fatalf("expected password preserved verbatim, got %q", cfg.Dandanplay.Password)
	}
	if !cfg.HasCredentials() {
		t.Fatal("expected full credentials")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"relative base url", func(c *config.Config) { c.Dandanplay.BaseURL = "api.dandanplay.net" }, "dandanplay.base_url"},
		{"ftp base url", func(c *config.Config) { c.Dandanplay.BaseURL = "ftp://example.com" }, "http or https"},
		{"bare ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "danmaku" }, "ntfy_topic"},
		{"unknown level", func(c *config.Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"huge lanes", func(c *config.Config) { c.Overlay.ScrollLanes = 500 }, "lane counts"},
		{"font name with comma", func(c *config.Config) { c.Overlay.FontName = "Sans,1,&H00FFFFFF" }, "overlay.font_name"},
		{"font name with newline", func(c *config.Config) { c.Overlay.FontName = "Sans\n[Events]" }, "overlay.font_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	clearDandanplayEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Overlay.ScrollDuration != 6 || cfg.Player.MPVSocket != "/tmp/mpvsocket" {
		t.Fatalf("unexpected sample values: %+v %+v", cfg.Overlay, cfg.Player)
	}
}

func TestHolderSnapshotIsolation(t *testing.T) {
	cfg := config.Default()
	holder := config.NewHolder(&cfg)

	cfg.Overlay.MaxComments = 1
	snap := holder.Snapshot()
	if snap.Overlay.MaxComments != 3000 {
		t.Fatalf("holder should copy on store, got %d", snap.Overlay.MaxComments)
	}

	next := config.Default()
	next.Service.Enabled = false
	holder.Store(&next)
	if holder.Snapshot().Service.Enabled {
		t.Fatal("expected swapped config")
	}
	if !snap.Service.Enabled {
		t.Fatal("earlier snapshot must not change")
	}
}
