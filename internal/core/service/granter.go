// Package service provides domain services for rolegate.
package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/rolegate/internal/core/domain"
	"github.com/yndnr/rolegate/internal/telemetry/logger"
	"github.com/yndnr/rolegate/internal/telemetry/metric"
)

// RoleAssigner performs the actual role addition against the platform.
type RoleAssigner interface {
	// AssignRole adds roleID to the guild member. Must be idempotent.
	AssignRole(ctx context.Context, guildID, userID, roleID uint64) error
}

// Default Granter tuning.
const (
	// DefaultQueueSize bounds how many pending grants can pile up
	// before new ones are dropped. Grants are idempotent and rare,
	// so a modest buffer suffices.
	DefaultQueueSize = 256

	// DefaultGrantsPerSecond paces role-add calls well under the
	// platform's per-route rate limit.
	DefaultGrantsPerSecond = 2
)

// Granter consumes grant decisions on a buffered queue and turns them
// into role additions, paced by a rate limiter. It decouples the
// ingestion hot path from platform REST latency: RecordMessage never
// waits on the network.
type Granter struct {
	assigner RoleAssigner
	roleID   uint64
	queue    chan domain.GrantDecision
	limiter  *rate.Limiter
	log      logger.Logger
	metrics  *metric.Metrics

	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

// GranterOption configures a Granter.
type GranterOption func(*Granter)

// WithQueueSize sets the pending-grant buffer size.
func WithQueueSize(n int) GranterOption {
	return func(g *Granter) {
		if n > 0 {
			g.queue = make(chan domain.GrantDecision, n)
		}
	}
}

// WithRateLimit sets the maximum sustained grants per second.
func WithRateLimit(perSecond float64) GranterOption {
	return func(g *Granter) {
		if perSecond > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithGranterLogger sets the logger.
func WithGranterLogger(log logger.Logger) GranterOption {
	return func(g *Granter) {
		g.log = log
	}
}

// WithGranterMetrics attaches grant metrics.
func WithGranterMetrics(m *metric.Metrics) GranterOption {
	return func(g *Granter) {
		g.metrics = m
	}
}

// NewGranter creates a Granter that assigns roleID via the given
// assigner.
func NewGranter(assigner RoleAssigner, roleID uint64, opts ...GranterOption) *Granter {
	g := &Granter{
		assigner: assigner,
		roleID:   roleID,
		queue:    make(chan domain.GrantDecision, DefaultQueueSize),
		limiter:  rate.NewLimiter(rate.Limit(DefaultGrantsPerSecond), 1),
		log:      logger.Default(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Start launches the grant worker. Safe to call once.
func (g *Granter) Start(ctx context.Context) {
	g.startOnce.Do(func() {
		g.wg.Add(1)
		go g.run(ctx)
	})
}

// Submit enqueues a grant decision without blocking. When the queue is
// full the decision is dropped and logged; the member keeps their
// Granted marker in the store, so the role can still be added manually
// or on the next operator restart via snapshot inspection.
func (g *Granter) Submit(decision domain.GrantDecision) bool {
	select {
	case g.queue <- decision:
		return true
	default:
		g.log.Error("grant queue full, dropping decision",
			"guild_id", decision.GuildID,
			"user_id", decision.UserID)
		if g.metrics != nil {
			g.metrics.GrantsFailed.Inc()
		}
		return false
	}
}

// Close stops accepting decisions and drains the queue. It returns
// once every pending grant has been attempted or ctx expires.
func (g *Granter) Close(ctx context.Context) error {
	g.closeOnce.Do(func() {
		close(g.queue)
	})

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of queued decisions. Used in tests and
// for the shutdown log line.
func (g *Granter) Pending() int {
	return len(g.queue)
}

func (g *Granter) run(ctx context.Context) {
	defer g.wg.Done()

	for decision := range g.queue {
		// When ctx is gone Wait fails immediately; the drain then
		// proceeds unpaced rather than dropping grants on the floor.
		_ = g.limiter.Wait(ctx)
		g.assign(ctx, decision)
	}
}

func (g *Granter) assign(ctx context.Context, decision domain.GrantDecision) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 60*time.Second)
	defer cancel()

	err := g.assigner.AssignRole(callCtx, decision.GuildID, decision.UserID, g.roleID)
	if err != nil {
		// Never fatal: the Granted marker is already set, so this
		// member will not retrigger. Operators see it in the log.
		g.log.Error("could not add role",
			"guild_id", decision.GuildID,
			"user_id", decision.UserID,
			"role_id", g.roleID,
			"error", err)
		if g.metrics != nil {
			g.metrics.GrantsFailed.Inc()
		}
		return
	}

	g.log.Info("role granted",
		"guild_id", decision.GuildID,
		"user_id", decision.UserID,
		"role_id", g.roleID)
	if g.metrics != nil {
		g.metrics.GrantsIssued.Inc()
	}
}
