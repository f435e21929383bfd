// Package logger provides structured logging for rolegate.
//
// All process logging goes through this package: JSON by default,
// level-filtered, with automatic redaction of credential-looking
// attribute keys so the bot token can never leak into log output.
package logger
