// Package config defines the bot configuration structure.
package config

import "strings"

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for logging configuration without exposing secrets.
func Sanitize(cfg *BotConfig) *BotConfig {
	sanitized := *cfg

	if sanitized.Discord.Token != "" {
		sanitized.Discord.Token = maskSecret(sanitized.Discord.Token)
	}
	if sanitized.Snapshot.EncryptionKey != "" {
		sanitized.Snapshot.EncryptionKey = maskSecret(sanitized.Snapshot.EncryptionKey)
	}

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
