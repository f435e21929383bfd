package confloader

import (
	"os"
	"path/filepath"
	"testing"
)

type testConfig struct {
	Discord struct {
		Token   string `koanf:"token"`
		GuildID uint64 `koanf:"guild_id"`
		RoleID  uint64 `koanf:"role_id"`
	} `koanf:"discord"`
	Snapshot struct {
		Path          string `koanf:"path"`
		EncryptionKey string `koanf:"encryption_key"`
	} `koanf:"snapshot"`
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "discord:\n  token: file-token\n  guild_id: 42\nsnapshot:\n  path: /var/lib/rolegate/state.epd\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	var cfg testConfig
	l := NewLoader(WithConfigFile(path))
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Discord.Token != "file-token" {
		t.Errorf("token = %q, want file-token", cfg.Discord.Token)
	}
	if cfg.Discord.GuildID != 42 {
		t.Errorf("guild_id = %d, want 42", cfg.Discord.GuildID)
	}
	if cfg.Snapshot.Path != "/var/lib/rolegate/state.epd" {
		t.Errorf("path = %q", cfg.Snapshot.Path)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("discord:\n  token: file-token\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ROLEGATE_DISCORD_TOKEN", "env-token")

	var cfg testConfig
	l := NewLoader(WithConfigFile(path))
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Discord.Token != "env-token" {
		t.Errorf("token = %q, want env-token (env must win)", cfg.Discord.Token)
	}
}

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("ROLEGATE_SNAPSHOT_PATH", "custom.epd")

	var cfg testConfig
	l := NewLoader()
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Snapshot.Path != "custom.epd" {
		t.Errorf("path = %q, want custom.epd", cfg.Snapshot.Path)
	}
	if !l.IsLoaded() {
		t.Error("IsLoaded() = false after Load")
	}
}

func TestEnvUnderscoreKeys(t *testing.T) {
	// Keys with underscores of their own must keep them: only the
	// first underscore separates the section from the key.
	t.Setenv("ROLEGATE_DISCORD_GUILD_ID", "42")
	t.Setenv("ROLEGATE_DISCORD_ROLE_ID", "7")
	t.Setenv("ROLEGATE_SNAPSHOT_ENCRYPTION_KEY", "abcd")

	var cfg testConfig
	l := NewLoader()
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Discord.GuildID != 42 {
		t.Errorf("guild_id via env = %d, want 42", cfg.Discord.GuildID)
	}
	if cfg.Discord.RoleID != 7 {
		t.Errorf("role_id via env = %d, want 7", cfg.Discord.RoleID)
	}
	if cfg.Snapshot.EncryptionKey != "abcd" {
		t.Errorf("encryption_key via env = %q, want abcd", cfg.Snapshot.EncryptionKey)
	}
}

func TestEnvUnderscoreKeyOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("discord:\n  guild_id: 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ROLEGATE_DISCORD_GUILD_ID", "42")

	var cfg testConfig
	l := NewLoader(WithConfigFile(path))
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Discord.GuildID != 42 {
		t.Errorf("guild_id = %d, want 42 (env must win)", cfg.Discord.GuildID)
	}
}

func TestLoadMissingFile(t *testing.T) {
	var cfg testConfig
	l := NewLoader(WithConfigFile("/nonexistent/config.yaml"))
	if err := l.Load(&cfg); err == nil {
		t.Error("Load with missing file succeeded, want error")
	}
}

func TestLoadMap(t *testing.T) {
	l := NewLoader()
	if err := l.LoadMap(map[string]any{"discord.token": "map-token"}); err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	if got := l.GetString("discord.token"); got != "map-token" {
		t.Errorf("GetString = %q, want map-token", got)
	}
}

func TestCustomEnvPrefix(t *testing.T) {
	t.Setenv("RGTEST_DISCORD_TOKEN", "prefixed")

	var cfg testConfig
	l := NewLoader(WithEnvPrefix("RGTEST_"))
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Discord.Token != "prefixed" {
		t.Errorf("token = %q, want prefixed", cfg.Discord.Token)
	}
}
