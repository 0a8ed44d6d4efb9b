package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "claw.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmp, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(tmp, "state"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("DISCORD_TOKEN", "")

	path := writeConfig(t, tmp, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Worker.Tool != "gemini" {
		t.Fatalf("expected default tool gemini, got %q", cfg.Worker.Tool)
	}
	if cfg.Worker.DisplayName != "Gemini" {
		t.Fatalf("expected derived display name, got %q", cfg.Worker.DisplayName)
	}
	if cfg.Daemon.PollInterval != "5s" {
		t.Fatalf("expected default poll interval 5s, got %q", cfg.Daemon.PollInterval)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected default log level info, got %q", cfg.LogLevel)
	}
	if !strings.HasSuffix(cfg.DBPath, "claw.db") {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if !filepath.IsAbs(cfg.DBPath) {
		t.Fatalf("expected absolute db path, got %q", cfg.DBPath)
	}
	if got := cfg.PollInterval(); got != 5*time.Second {
		t.Fatalf("PollInterval() = %v", got)
	}
}

func TestLoadEnvTokenWinsOverConfig(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("DISCORD_TOKEN", "env-token")

	path := writeConfig(t, tmp, "[discord]\ntoken = \"file-token\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Discord.Token != "env-token" {
		t.Fatalf("expected env token to win, got %q", cfg.Discord.Token)
	}
}

func TestLoadCredentialsFileProvidesToken(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("DISCORD_TOKEN", "")

	if err := SaveCredentials(&Credentials{DiscordToken: "creds-token"}); err != nil {
		t.Fatalf("save credentials: %v", err)
	}

	path := writeConfig(t, tmp, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Discord.Token != "creds-token" {
		t.Fatalf("expected credentials token, got %q", cfg.Discord.Token)
	}
}

func TestSaveCredentialsSetsRestrictivePermissions(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))

	if err := SaveCredentials(&Credentials{DiscordToken: "secret"}); err != nil {
		t.Fatalf("save credentials: %v", err)
	}

	path, err := CredentialsPath()
	if err != nil {
		t.Fatalf("credentials path: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat credentials: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %04o", perm)
	}
}

func TestLoadRejectsInvalidPollInterval(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("DISCORD_TOKEN", "")

	path := writeConfig(t, tmp, "[daemon]\npoll_interval = \"soon\"\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unparseable poll_interval")
	}

	path = writeConfig(t, tmp, "[daemon]\npoll_interval = \"-5s\"\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for negative poll_interval")
	}
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("DISCORD_TOKEN", "")

	path := writeConfig(t, tmp, "log_level = \"loud\"\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unsupported log level")
	}
}

func TestLoadRejectsToolWithWhitespace(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("DISCORD_TOKEN", "")

	path := writeConfig(t, tmp, "[worker]\ntool = \"gemini --fast\"\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for tool with embedded arguments")
	}
}

func TestLoadResolvesRelativePathsAgainstConfigDir(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("DISCORD_TOKEN", "")

	path := writeConfig(t, tmp, "db_path = \"data/claw.db\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := filepath.Join(tmp, "data", "claw.db")
	if cfg.DBPath != want {
		t.Fatalf("expected %q, got %q", want, cfg.DBPath)
	}
}

func TestProxyURLPrecedence(t *testing.T) {
	t.Setenv("HTTP_PROXY", "http-proxy")
	t.Setenv("http_proxy", "lower-http")
	t.Setenv("HTTPS_PROXY", "https-proxy")
	t.Setenv("https_proxy", "")

	if got := ProxyURL(); got != "http-proxy" {
		t.Fatalf("expected HTTP_PROXY to win, got %q", got)
	}

	t.Setenv("HTTP_PROXY", "")
	if got := ProxyURL(); got != "lower-http" {
		t.Fatalf("expected http_proxy next, got %q", got)
	}

	t.Setenv("http_proxy", "")
	if got := ProxyURL(); got != "https-proxy" {
		t.Fatalf("expected HTTPS_PROXY next, got %q", got)
	}
}

func TestDisplayNameFor(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"gemini":         "Gemini",
		"claude":         "Claude",
		"/opt/bin/codex": "Codex",
		"my-custom-tool": "My-custom-tool",
	}
	for tool, want := range cases {
		if got := displayNameFor(tool); got != want {
			t.Fatalf("displayNameFor(%q) = %q, want %q", tool, got, want)
		}
	}
}

func TestSlogLevelMapping(t *testing.T) {
	t.Parallel()

	cfg := &Config{LogLevel: "debug"}
	if cfg.SlogLevel().String() != "DEBUG" {
		t.Fatalf("unexpected level for debug: %v", cfg.SlogLevel())
	}
	cfg.LogLevel = "error"
	if cfg.SlogLevel().String() != "ERROR" {
		t.Fatalf("unexpected level for error: %v", cfg.SlogLevel())
	}
	cfg.LogLevel = ""
	if cfg.SlogLevel().String() != "INFO" {
		t.Fatalf("unexpected default level: %v", cfg.SlogLevel())
	}
}
