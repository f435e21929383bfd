package gateway

import (
	"context"

	"github.com/yndnr/rolegate/internal/core/domain"
	"github.com/yndnr/rolegate/internal/telemetry/logger"
	"github.com/yndnr/rolegate/internal/telemetry/metric"
)

// EventSource delivers decoded message events. Implemented by Client;
// tests supply their own.
type EventSource interface {
	Events() <-chan domain.MessageEvent
}

// Recorder is the tracker-facing side of the pump.
type Recorder interface {
	RecordMessage(guildID, userID uint64, ts int64) (domain.GrantDecision, domain.RecordOutcome)
}

// Submitter is the granter-facing side of the pump.
type Submitter interface {
	Submit(decision domain.GrantDecision) bool
}

// Pump couples source → tracker → granter. It owns no state: every
// event is either dropped (wrong guild, sender already has the role)
// or handed to the tracker, and any resulting decision is submitted.
type Pump struct {
	source  EventSource
	tracker Recorder
	granter Submitter
	guildID uint64
	log     logger.Logger
	metrics *metric.Metrics
}

// PumpOption configures a Pump.
type PumpOption func(*Pump)

// WithPumpLogger sets the logger.
func WithPumpLogger(log logger.Logger) PumpOption {
	return func(p *Pump) {
		p.log = log
	}
}

// WithPumpMetrics attaches event metrics.
func WithPumpMetrics(m *metric.Metrics) PumpOption {
	return func(p *Pump) {
		p.metrics = m
	}
}

// NewPump creates a Pump for the given guild.
func NewPump(source EventSource, tracker Recorder, granter Submitter, guildID uint64, opts ...PumpOption) *Pump {
	p := &Pump{
		source:  source,
		tracker: tracker,
		granter: granter,
		guildID: guildID,
		log:     logger.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Run consumes events until the source channel closes or ctx is
// canceled.
func (p *Pump) Run(ctx context.Context) {
	events := p.source.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			p.handle(ev)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pump) handle(ev domain.MessageEvent) {
	if p.metrics != nil {
		p.metrics.EventsReceived.Inc()
	}

	if ev.GuildID != p.guildID || ev.SenderHasRole {
		if p.metrics != nil {
			p.metrics.EventsSkipped.Inc()
		}
		return
	}

	decision, outcome := p.tracker.RecordMessage(ev.GuildID, ev.UserID, ev.Timestamp)
	if p.metrics != nil {
		if outcome.Counted() {
			p.metrics.EventsCounted.Inc()
		} else {
			p.metrics.EventsIgnored.Inc()
		}
	}
	if outcome != domain.OutcomeGranted {
		return
	}

	p.log.Info("activity requirement met",
		"guild_id", decision.GuildID,
		"user_id", decision.UserID)
	p.granter.Submit(decision)
}
