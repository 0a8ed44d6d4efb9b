package config

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const Version = "0.1.0"

// Credentials holds secrets loaded from credentials.toml.
type Credentials struct {
	DiscordToken string `toml:"discord_token"`
}

// LoadCredentials reads credentials.toml. Returns an empty Credentials if
// the file does not exist. Warns if the file has insecure permissions.
func LoadCredentials() (*Credentials, error) {
	path, err := CredentialsPath()
	if err != nil {
		return &Credentials{}, nil
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return &Credentials{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat credentials: %w", err)
	}

	// Warn on insecure permissions (anything beyond owner read/write).
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		slog.Warn("credentials file has insecure permissions",
			"path", path, "mode", fmt.Sprintf("%04o", perm))
	}

	creds := &Credentials{}
	if _, err := toml.DecodeFile(path, creds); err != nil {
		return nil, fmt.Errorf("decode credentials %s: %w", path, err)
	}
	return creds, nil
}

// SaveCredentials writes credentials.toml with 0600 permissions.
func SaveCredentials(creds *Credentials) error {
	path, err := CredentialsPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(creds); err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), fs.FileMode(0o600)); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

type Config struct {
	DBPath   string `toml:"db_path"`
	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`

	Daemon  DaemonConfig  `toml:"daemon"`
	Discord DiscordConfig `toml:"discord"`
	Worker  WorkerConfig  `toml:"worker"`

	// Resolved at runtime (not in TOML).
	BaseDir string `toml:"-"`
}

type DaemonConfig struct {
	PollInterval string `toml:"poll_interval"`
	PIDFile      string `toml:"pid_file"`
}

type DiscordConfig struct {
	Token string `toml:"token"`
}

// WorkerConfig describes the external command-line AI tool the daemon
// shells out to for every job.
type WorkerConfig struct {
	Tool        string `toml:"tool"`
	DisplayName string `toml:"display_name"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.BaseDir = filepath.Dir(path)
	// Snapshot the token from the config file before credentials/env are merged in.
	fileToken := cfg.Discord.Token
	applyDefaults(cfg)
	applyCredentialsAndEnv(cfg)
	warnTokenInFile(fileToken)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	resolvePaths(cfg)
	return cfg, nil
}

// LoadMinimal loads config without running validate(). Used by `claw init`
// where the worker tool may not be configured yet.
func LoadMinimal(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.BaseDir = filepath.Dir(path)
	applyDefaults(cfg)
	applyCredentialsAndEnv(cfg)
	resolvePaths(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.DBPath == "" {
		if d, err := DataDir(); err == nil {
			cfg.DBPath = filepath.Join(d, "claw.db")
		} else {
			cfg.DBPath = "claw.db"
		}
	}
	if cfg.LogFile == "" {
		if d, err := StateDir(); err == nil {
			cfg.LogFile = filepath.Join(d, "claw.log")
		} else {
			cfg.LogFile = "claw.log"
		}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Daemon.PollInterval == "" {
		cfg.Daemon.PollInterval = "5s"
	}
	if cfg.Daemon.PIDFile == "" {
		if d, err := StateDir(); err == nil {
			cfg.Daemon.PIDFile = filepath.Join(d, "claw.pid")
		} else {
			cfg.Daemon.PIDFile = "claw.pid"
		}
	}
	if cfg.Worker.Tool == "" {
		cfg.Worker.Tool = "gemini"
	}
	if cfg.Worker.DisplayName == "" {
		cfg.Worker.DisplayName = displayNameFor(cfg.Worker.Tool)
	}
}

// applyCredentialsAndEnv merges the Discord token from credentials.toml and
// then from the environment. Priority (highest → lowest):
// DISCORD_TOKEN env > credentials.toml > config file.
func applyCredentialsAndEnv(cfg *Config) {
	creds, err := LoadCredentials()
	if err != nil {
		slog.Warn("failed to load credentials", "error", err)
	}
	if creds != nil && creds.DiscordToken != "" {
		cfg.Discord.Token = creds.DiscordToken
	}
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		cfg.Discord.Token = v
	}
}

// warnTokenInFile warns only when the token was literally written in
// config.toml. It receives the value as it was before credentials.toml and
// env vars were merged, so tokens from credentials.toml don't trigger a
// false positive.
func warnTokenInFile(fileToken string) {
	if fileToken != "" {
		slog.Warn("discord token found in config file; prefer credentials.toml or DISCORD_TOKEN env var")
	}
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Worker.Tool) == "" {
		return fmt.Errorf("worker.tool is required")
	}
	if strings.ContainsAny(cfg.Worker.Tool, " \t") {
		return fmt.Errorf("invalid worker.tool %q: must be a bare executable name or path", cfg.Worker.Tool)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log_level: %q", cfg.LogLevel)
	}
	d, err := time.ParseDuration(cfg.Daemon.PollInterval)
	if err != nil {
		return fmt.Errorf("invalid daemon.poll_interval %q: %w", cfg.Daemon.PollInterval, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid daemon.poll_interval %q: must be positive", cfg.Daemon.PollInterval)
	}
	return nil
}

func resolvePaths(cfg *Config) {
	cfg.DBPath = absPath(cfg.BaseDir, cfg.DBPath)
	cfg.Daemon.PIDFile = absPath(cfg.BaseDir, cfg.Daemon.PIDFile)
	if cfg.LogFile != "" {
		cfg.LogFile = absPath(cfg.BaseDir, cfg.LogFile)
	}
}

func absPath(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// PollInterval returns the parsed scheduler tick period.
// Config validation guarantees the value parses.
func (cfg *Config) PollInterval() time.Duration {
	d, err := time.ParseDuration(cfg.Daemon.PollInterval)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// ProxyURL returns the HTTP(S) proxy from the environment, read the way the
// rest of the process will use it. Empty string means direct connection.
func ProxyURL() string {
	for _, key := range []string{"HTTP_PROXY", "http_proxy", "HTTPS_PROXY", "https_proxy"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func (cfg *Config) SlogLevel() slog.Level {
	switch cfg.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func displayNameFor(tool string) string {
	base := filepath.Base(tool)
	if base == "" {
		return tool
	}
	return strings.ToUpper(base[:1]) + base[1:]
}
