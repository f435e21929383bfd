// Package config defines the bot configuration structure.
package config

import "time"

// Default configuration values.
const (
	DefaultRequirement = 60
	DefaultCooldown    = 60 * time.Second

	DefaultSnapshotPath = "rolegate.epd"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default bot configuration.
//
// Persistence is off by default (Snapshot.Interval zero): per-user
// counters stay in memory unless the operator opts in.
func Default() *BotConfig {
	return &BotConfig{
		Activity: ActivitySection{
			Requirement: DefaultRequirement,
			Cooldown:    DefaultCooldown,
		},
		Snapshot: SnapshotSection{
			Path: DefaultSnapshotPath,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
