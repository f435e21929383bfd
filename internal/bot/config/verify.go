// Package config defines the bot configuration structure.
package config

import (
	"encoding/hex"
	"time"

	"github.com/yndnr/rolegate/internal/core/domain"
)

// Verify validates the configuration. Startup must not proceed with a
// broken configuration, so every failure is a ConfigurationError.
func Verify(cfg *BotConfig) error {
	if err := verifyDiscord(&cfg.Discord); err != nil {
		return err
	}
	if err := verifyActivity(&cfg.Activity); err != nil {
		return err
	}
	return verifySnapshot(&cfg.Snapshot)
}

func verifyDiscord(cfg *DiscordSection) error {
	if cfg.Token == "" {
		return domain.ErrConfigMissing.WithDetails("discord.token")
	}
	if cfg.GuildID == 0 {
		return domain.ErrConfigMissing.WithDetails("discord.guild_id")
	}
	if cfg.RoleID == 0 {
		return domain.ErrConfigMissing.WithDetails("discord.role_id")
	}
	return nil
}

func verifyActivity(cfg *ActivitySection) error {
	if cfg.Requirement == 0 {
		return domain.ErrConfigInvalid.WithDetails("activity.requirement must be at least 1")
	}
	if cfg.Cooldown < 0 {
		return domain.ErrConfigInvalid.WithDetails("activity.cooldown must not be negative")
	}
	// The tracker works in whole seconds; a sub-second cooldown would
	// silently truncate. Zero is fine and disables the cooldown.
	if cfg.Cooldown%time.Second != 0 {
		return domain.ErrConfigInvalid.WithDetails("activity.cooldown must be a whole number of seconds")
	}
	if cfg.Shards < 0 {
		return domain.ErrConfigInvalid.WithDetails("activity.shards must not be negative")
	}
	return nil
}

func verifySnapshot(cfg *SnapshotSection) error {
	if cfg.Interval < 0 {
		return domain.ErrConfigInvalid.WithDetails("snapshot.interval must not be negative")
	}
	if cfg.Interval > 0 && cfg.Path == "" {
		return domain.ErrConfigMissing.WithDetails("snapshot.path")
	}
	if cfg.EncryptionKey != "" {
		key, err := hex.DecodeString(cfg.EncryptionKey)
		if err != nil {
			return domain.ErrConfigInvalid.WithDetails("snapshot.encryption_key must be hex").WithCause(err)
		}
		if len(key) != 32 {
			return domain.ErrConfigInvalid.WithDetails("snapshot.encryption_key must decode to 32 bytes")
		}
	}
	return nil
}

// DecodedKey returns the decoded snapshot key, or nil when sealing
// is not configured. Verify must have passed first.
func (s *SnapshotSection) DecodedKey() []byte {
	if s.EncryptionKey == "" {
		return nil
	}
	key, err := hex.DecodeString(s.EncryptionKey)
	if err != nil {
		return nil
	}
	return key
}
