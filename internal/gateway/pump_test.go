package gateway

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/rolegate/internal/core/domain"
	"github.com/yndnr/rolegate/internal/telemetry/metric"
	"github.com/yndnr/rolegate/internal/tracker"
)

// chanSource adapts a plain channel to the EventSource interface.
type chanSource chan domain.MessageEvent

func (c chanSource) Events() <-chan domain.MessageEvent { return c }

// captureGranter records submitted decisions.
type captureGranter struct {
	decisions []domain.GrantDecision
}

func (g *captureGranter) Submit(d domain.GrantDecision) bool {
	g.decisions = append(g.decisions, d)
	return true
}

func runPump(t *testing.T, trk Recorder, granter Submitter, guildID uint64, events ...domain.MessageEvent) {
	t.Helper()

	src := make(chanSource, len(events))
	for _, ev := range events {
		src <- ev
	}
	close(src)

	p := NewPump(src, trk, granter, guildID)

	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pump did not drain events")
	}
}

func TestPump_FiresGrantAtRequirement(t *testing.T) {
	trk := tracker.New(tracker.Config{Requirement: 2, Cooldown: 10})
	granter := &captureGranter{}

	runPump(t, trk, granter, 1,
		domain.MessageEvent{GuildID: 1, UserID: 7, Timestamp: 100},
		domain.MessageEvent{GuildID: 1, UserID: 7, Timestamp: 200},
	)

	if len(granter.decisions) != 1 {
		t.Fatalf("decisions = %d, want 1", len(granter.decisions))
	}
	if d := granter.decisions[0]; d.GuildID != 1 || d.UserID != 7 {
		t.Errorf("decision = %+v, want guild 1 user 7", d)
	}
}

func TestPump_DropsSenderWithRole(t *testing.T) {
	trk := tracker.New(tracker.Config{Requirement: 1, Cooldown: 1})
	granter := &captureGranter{}

	runPump(t, trk, granter, 1,
		domain.MessageEvent{GuildID: 1, UserID: 7, Timestamp: 100, SenderHasRole: true},
	)

	if len(granter.decisions) != 0 {
		t.Errorf("decisions = %d, want 0 (sender already has role)", len(granter.decisions))
	}
	if trk.Count() != 0 {
		t.Errorf("tracker count = %d, want 0 (event must not reach tracker)", trk.Count())
	}
}

func TestPump_DropsOtherGuilds(t *testing.T) {
	trk := tracker.New(tracker.Config{Requirement: 1, Cooldown: 1})
	granter := &captureGranter{}

	runPump(t, trk, granter, 1,
		domain.MessageEvent{GuildID: 2, UserID: 7, Timestamp: 100},
	)

	if trk.Count() != 0 {
		t.Errorf("tracker count = %d, want 0 (other guild)", trk.Count())
	}
}

func TestPump_CooldownSuppressesCounting(t *testing.T) {
	trk := tracker.New(tracker.Config{Requirement: 2, Cooldown: 60})
	granter := &captureGranter{}

	// Second message lands inside the cooldown window and must not
	// advance the count, so the requirement is never met.
	runPump(t, trk, granter, 1,
		domain.MessageEvent{GuildID: 1, UserID: 7, Timestamp: 100},
		domain.MessageEvent{GuildID: 1, UserID: 7, Timestamp: 130},
	)

	if len(granter.decisions) != 0 {
		t.Errorf("decisions = %d, want 0", len(granter.decisions))
	}
}

func TestPump_CountsAndIgnoresEvents(t *testing.T) {
	trk := tracker.New(tracker.Config{Requirement: 10, Cooldown: 60})
	granter := &captureGranter{}
	m := metric.New()

	src := make(chanSource, 3)
	src <- domain.MessageEvent{GuildID: 1, UserID: 7, Timestamp: 100}
	src <- domain.MessageEvent{GuildID: 1, UserID: 7, Timestamp: 130} // inside cooldown
	src <- domain.MessageEvent{GuildID: 1, UserID: 8, Timestamp: 100, SenderHasRole: true}
	close(src)

	p := NewPump(src, trk, granter, 1, WithPumpMetrics(m))

	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pump did not drain events")
	}

	body := scrapeMetrics(t, m)
	for _, want := range []string{
		"rolegate_events_received_total 3",
		"rolegate_events_counted_total 1",
		"rolegate_events_ignored_total 1",
		"rolegate_events_skipped_total 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func scrapeMetrics(t *testing.T, m *metric.Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(data)
}

func TestPump_StopsOnContextCancel(t *testing.T) {
	src := make(chanSource)
	p := NewPump(src, tracker.New(tracker.Config{}), &captureGranter{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pump did not stop on context cancel")
	}
}
