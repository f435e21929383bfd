// Package config provides bot configuration for rolegate.
//
// This package defines the bot configuration structure and validation:
//
//   - spec.go: BotConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Business validation (required credentials, key format)
//   - sanitize.go: Log sanitization (hide sensitive values)
//
// Configuration is loaded via internal/infra/confloader and supports
// multiple sources: files and environment variables.
package config
