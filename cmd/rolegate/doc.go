// Package main provides the entry point for rolegate.
//
// rolegate is a privacy-focused activity bot: it counts messages per
// guild member (never their content) and grants a configured role once
// a member has sent enough messages, spaced by a minimum cooldown.
//
// Usage:
//
//	rolegate [flags]
//	rolegate --config /path/to/config.yaml
//	rolegate version
//
// All settings can also come from ROLEGATE_-prefixed environment
// variables, e.g. ROLEGATE_DISCORD_TOKEN. Counters live in memory
// only unless a snapshot interval is configured.
package main
