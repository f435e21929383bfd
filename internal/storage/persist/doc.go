// Package persist schedules snapshot persistence for the activity
// tracker.
//
// The scheduler walks a fixed lifecycle:
//
//	Idle → Loading → Running → Flushing → Terminated
//
// On startup it loads the previous snapshot (an unreadable file is
// logged and ignored, never fatal), then snapshots the tracker at the
// configured interval, and performs one final flush on shutdown.
// Writes use the temp-write-then-rename idiom so the on-disk file is
// never observed half-written.
//
// Whether persistence happens at all is a Strategy variant chosen at
// wiring time; the ingestion hot path is identical in both modes.
package persist
