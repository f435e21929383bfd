// Package shutdown provides signal-driven graceful shutdown.
//
// The process registers hooks in startup order (gateway, granter,
// persistence scheduler, metrics server); on SIGINT/SIGTERM they run
// in reverse, so the event stream stops before the final snapshot
// flush and nothing is written mid-ingestion.
package shutdown
