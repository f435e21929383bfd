// Package discord implements the platform REST client for role
// assignment.
//
// The client covers exactly one endpoint: adding a role to a guild
// member. The add is idempotent on the platform side, so the caller
// may safely repeat it. 429 responses are waited out per their
// Retry-After before retrying; every grant carries an audit-log
// reason so moderators can see why the bot acted.
package discord
