// Package config provides configuration loading for pagenav using TOML.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// HTTP fetching settings
type Fetcher struct {
	UserAgent      string `json:"userAgent"`
	TimeoutSeconds int    `json:"timeoutSeconds"` // 0 = no timeout
	ChromePath     string `json:"chromePath"`
	RenderNative   bool   `json:"renderNative"` // native loads through headless Chrome
}

// Loader settings: timings and interception exclusions
type Loader struct {
	FadeDelayMs      int      `json:"fadeDelayMs"`
	ReinitDelayMs    int      `json:"reinitDelayMs"`
	InitDelayMs      int      `json:"initDelayMs"`
	AdminPrefix      string   `json:"adminPrefix"`
	NeverIntercept   []string `json:"neverIntercept"`
	LoginPath        string   `json:"loginPath"`
	LoginFormID      string   `json:"loginFormID"`
	SelfManagedForms []string `json:"selfManagedForms"`
}

// FadeDelay is FadeDelayMs as a duration.
func (l Loader) FadeDelay() time.Duration { return time.Duration(l.FadeDelayMs) * time.Millisecond }

// ReinitDelay is ReinitDelayMs as a duration.
func (l Loader) ReinitDelay() time.Duration {
	return time.Duration(l.ReinitDelayMs) * time.Millisecond
}

// InitDelay is InitDelayMs as a duration.
func (l Loader) InitDelay() time.Duration { return time.Duration(l.InitDelayMs) * time.Millisecond }

// Script execution settings
type Scripts struct {
	Execute bool `json:"execute"` // run page scripts in the embedded VM
}

// Session settings
type Session struct {
	RestoreSession bool `json:"restoreSession"`
}

// Log settings
type Log struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text or json
}

// Config is the main configuration struct
type Config struct {
	Fetcher Fetcher `json:"fetcher"`
	Loader  Loader  `json:"loader"`
	Scripts Scripts `json:"scripts"`
	Session Session `json:"session"`
	Log     Log     `json:"log"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Fetcher: Fetcher{
			UserAgent:      "pagenav/1.0 (Headless Navigator)",
			TimeoutSeconds: 0,
		},
		Loader: Loader{
			FadeDelayMs:      150,
			ReinitDelayMs:    200,
			InitDelayMs:      100,
			AdminPrefix:      "/admin",
			NeverIntercept:   []string{"/download/", "/logout"},
			LoginPath:        "/login",
			LoginFormID:      "loginForm",
			SelfManagedForms: []string{"editProfileForm", "changePasswordForm"},
		},
		Scripts: Scripts{
			Execute: true,
		},
		Session: Session{
			RestoreSession: false,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// configDir returns the configuration directory path.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pagenav"), nil
}

// ConfigPath returns the path to the user's config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads configuration, layering user config on top of defaults.
// Returns the default config if no user config exists.
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return Default(), nil
	}
	return LoadFile(configPath)
}

// LoadFile is Load for an explicit path. A missing file yields defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	userCfg, meta, err := loadFromTOML(path)
	if err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	return merge(cfg, userCfg, meta), nil
}

// loadFromTOML loads a TOML config file and returns the config.
func loadFromTOML(path string) (*Config, toml.MetaData, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, meta, fmt.Errorf("parsing config TOML: %w", err)
	}
	return &cfg, meta, nil
}

// merge layers user config on top of defaults. Strings, numbers and lists
// override when non-zero; booleans override when the key is present.
func merge(defaults, user *Config, meta toml.MetaData) *Config {
	result := *defaults

	// Fetcher
	mergeString(&result.Fetcher.UserAgent, user.Fetcher.UserAgent)
	if meta.IsDefined("fetcher", "timeoutSeconds") {
		result.Fetcher.TimeoutSeconds = user.Fetcher.TimeoutSeconds
	}
	mergeString(&result.Fetcher.ChromePath, user.Fetcher.ChromePath)
	if meta.IsDefined("fetcher", "renderNative") {
		result.Fetcher.RenderNative = user.Fetcher.RenderNative
	}

	// Loader
	mergeInt(&result.Loader.FadeDelayMs, user.Loader.FadeDelayMs)
	mergeInt(&result.Loader.ReinitDelayMs, user.Loader.ReinitDelayMs)
	mergeInt(&result.Loader.InitDelayMs, user.Loader.InitDelayMs)
	mergeString(&result.Loader.AdminPrefix, user.Loader.AdminPrefix)
	mergeString(&result.Loader.LoginPath, user.Loader.LoginPath)
	mergeString(&result.Loader.LoginFormID, user.Loader.LoginFormID)
	if user.Loader.NeverIntercept != nil {
		result.Loader.NeverIntercept = user.Loader.NeverIntercept
	}
	if user.Loader.SelfManagedForms != nil {
		result.Loader.SelfManagedForms = user.Loader.SelfManagedForms
	}

	// Scripts
	if meta.IsDefined("scripts", "execute") {
		result.Scripts.Execute = user.Scripts.Execute
	}

	// Session
	if meta.IsDefined("session", "restoreSession") {
		result.Session.RestoreSession = user.Session.RestoreSession
	}

	// Log
	mergeString(&result.Log.Level, user.Log.Level)
	mergeString(&result.Log.Format, user.Log.Format)

	return &result
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func mergeInt(dst *int, src int) {
	if src != 0 {
		*dst = src
	}
}

// SlogLevel returns the configured log level. LOG_LEVEL in the
// environment wins over the file.
func (c *Config) SlogLevel() slog.Level {
	name := c.Log.Level
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		name = env
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// DefaultTOML returns the default configuration as a TOML string.
// Used for --init-config to generate a user config file.
func DefaultTOML() string {
	return `# pagenav configuration
# Save to ~/.config/pagenav/config.toml and customize
# Only include settings you want to change from defaults

# HTTP fetching settings
[fetcher]
userAgent = "pagenav/1.0 (Headless Navigator)"
timeoutSeconds = 0            # 0 = wait as long as the server takes
chromePath = ""               # Path to Chrome/Chromium (empty = auto-detect)
renderNative = false          # Render full page loads through headless Chrome

# Dynamic loader
[loader]
fadeDelayMs = 150             # Fade-out before new content appears
reinitDelayMs = 200           # Wait after the swap before page initializers run
initDelayMs = 100             # Wait before first-load initializers run
adminPrefix = "/admin"        # Paths under it are never loaded dynamically
neverIntercept = ["/download/", "/logout"]
loginPath = "/login"
loginFormID = "loginForm"
selfManagedForms = ["editProfileForm", "changePasswordForm"]

# Page scripts
[scripts]
execute = true                # Run page scripts in the embedded JavaScript VM

# Session settings
[session]
restoreSession = false        # Restore previous history on startup

# Logging (LOG_LEVEL overrides level)
[log]
level = "info"                # debug, info, warn, error
format = "text"               # text or json
`
}
