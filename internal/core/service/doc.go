// Package service provides domain services for rolegate.
//
// The Granter is the only service: it sits between the activity
// tracker (which decides WHO gets the role) and the platform REST
// client (which actually adds it), buffering and rate-pacing so that
// message ingestion never blocks on the network.
package service
