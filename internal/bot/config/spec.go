// Package config defines the bot configuration structure.
package config

import "time"

// BotConfig is the root configuration for rolegate.
type BotConfig struct {
	Discord  DiscordSection  `koanf:"discord"`
	Activity ActivitySection `koanf:"activity"`
	Snapshot SnapshotSection `koanf:"snapshot"`
	Metrics  MetricsSection  `koanf:"metrics"`
	Log      LogSection      `koanf:"log"`
}

// DiscordSection configures the platform connection and the role to grant.
type DiscordSection struct {
	// Token is the bot token used for both the gateway and the REST API.
	Token string `koanf:"token"`

	// GuildID is the guild whose members are tracked.
	GuildID uint64 `koanf:"guild_id"`

	// RoleID is the role granted once the activity requirement is met.
	RoleID uint64 `koanf:"role_id"`
}

// ActivitySection configures the grant decision logic.
type ActivitySection struct {
	// Requirement is the number of counted messages needed for a grant.
	Requirement uint64 `koanf:"requirement"`

	// Cooldown is the minimum spacing between counted messages.
	// Messages arriving sooner are ignored entirely. Must be a whole
	// number of seconds; zero disables the cooldown.
	Cooldown time.Duration `koanf:"cooldown"`

	// Shards is the shard count of the in-memory store. Zero means
	// the store default.
	Shards int `koanf:"shards"`
}

// SnapshotSection configures optional snapshot persistence.
type SnapshotSection struct {
	// Interval is the time between periodic snapshots. Zero disables
	// persistence entirely; counters then live only in memory.
	Interval time.Duration `koanf:"interval"`

	// Path is the snapshot file location.
	Path string `koanf:"path"`

	// EncryptionKey, when set, seals the snapshot record region at
	// rest. Hex-encoded 32-byte key.
	EncryptionKey string `koanf:"encryption_key"`
}

// MetricsSection configures the Prometheus listener.
type MetricsSection struct {
	// Addr is the metrics listen address. Empty disables the listener.
	Addr string `koanf:"addr"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
