// Package gateway maintains the platform gateway connection and feeds
// message events into the activity tracker.
//
// The Client identifies with the guild-messages intent only and never
// decodes message content: an event is reduced to (guild, user,
// timestamp, sender-has-role) before anything else sees it. The
// timestamp comes from the message snowflake, not the local clock.
//
// The Pump couples a Client (or any EventSource) to the tracker and
// granter. It is the only place where the drop rules live: events from
// other guilds and events whose sender already holds the target role
// never reach the tracker.
package gateway
