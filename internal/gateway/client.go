package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yndnr/rolegate/internal/core/domain"
	"github.com/yndnr/rolegate/internal/telemetry/logger"
)

// DefaultGatewayURL is the platform gateway endpoint.
const DefaultGatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"

// Reconnect backoff bounds.
const (
	backoffInitial = time.Second
	backoffMax     = time.Minute
)

// Client maintains a gateway connection and emits MessageEvents. It
// identifies with the guild-messages intent only, heartbeats per the
// server's HELLO, and reconnects with exponential backoff when the
// connection drops.
type Client struct {
	url     string
	token   string
	roleID  uint64
	events  chan domain.MessageEvent
	log     logger.Logger
	dialer  *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn

	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Client.
type Option func(*Client)

// WithGatewayURL overrides the gateway endpoint. Used in tests.
func WithGatewayURL(url string) Option {
	return func(c *Client) {
		c.url = url
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(log logger.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithEventBuffer sets the event channel capacity.
func WithEventBuffer(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.events = make(chan domain.MessageEvent, n)
		}
	}
}

// NewClient creates a gateway client. roleID is the target role; the
// client marks events whose sender already holds it so downstream can
// drop them without a tracker lookup.
func NewClient(token string, roleID uint64, opts ...Option) *Client {
	c := &Client{
		url:    DefaultGatewayURL,
		token:  token,
		roleID: roleID,
		events: make(chan domain.MessageEvent, 1024),
		log:    logger.Default(),
		dialer: websocket.DefaultDialer,
		done:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Events returns the stream of decoded message events. The channel is
// closed when Run returns.
func (c *Client) Events() <-chan domain.MessageEvent {
	return c.events
}

// Run connects and consumes the gateway until Close is called or ctx
// is canceled. Connection drops are retried with exponential backoff;
// an authentication rejection is fatal.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)

	backoff := backoffInitial
	for {
		start := time.Now()
		err := c.session(ctx)

		select {
		case <-c.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if domain.IsDomainError(err, domain.ErrGatewayAuth.Code) {
			return err
		}

		// A session that lived a while earns a fresh backoff.
		if time.Since(start) > backoffMax {
			backoff = backoffInitial
		}

		c.log.Warn("gateway session ended, reconnecting",
			"error", err,
			"backoff", backoff)

		select {
		case <-time.After(backoff):
		case <-c.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}

		backoff *= 2
		if backoff > backoffMax {
			backoff = backoffMax
		}
	}
}

// Close tears down the connection and stops reconnecting.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		if c.conn != nil {
			// Normal closure tells the platform not to resume.
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(5*time.Second))
			_ = c.conn.Close()
		}
		c.mu.Unlock()
	})
}

// session runs one connect-identify-consume cycle. It returns when the
// connection breaks for any reason.
func (c *Client) session(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	conn, _, err := c.dialer.DialContext(dialCtx, c.url, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}
	defer conn.Close()

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	// The server speaks first: HELLO carries the heartbeat interval.
	var hello payload
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("read hello: %w", err)
	}
	if hello.Op != opHello {
		return fmt.Errorf("expected HELLO, got op %d", hello.Op)
	}
	var hd helloData
	if err := json.Unmarshal(hello.D, &hd); err != nil {
		return fmt.Errorf("decode hello: %w", err)
	}
	interval := time.Duration(hd.HeartbeatInterval) * time.Millisecond
	if interval <= 0 {
		return fmt.Errorf("invalid heartbeat interval %d", hd.HeartbeatInterval)
	}

	// Writes come from both this goroutine and the heartbeat loop;
	// gorilla allows only one concurrent writer.
	var writeMu sync.Mutex
	writeJSON := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}

	identify, err := json.Marshal(identifyData{
		Token:   c.token,
		Intents: intentGuildMessages,
		Properties: identifyProperties{
			OS:      "linux",
			Browser: "rolegate",
			Device:  "rolegate",
		},
	})
	if err != nil {
		return fmt.Errorf("marshal identify: %w", err)
	}
	if err := writeJSON(payload{Op: opIdentify, D: identify}); err != nil {
		return fmt.Errorf("send identify: %w", err)
	}

	c.log.Info("gateway connected", "heartbeat_interval", interval)

	var seq seqTracker
	hbDone := make(chan struct{})
	hbErr := make(chan error, 1)
	defer close(hbDone)
	go c.heartbeat(interval, &seq, writeJSON, hbDone, hbErr)

	for {
		var p payload
		if err := conn.ReadJSON(&p); err != nil {
			select {
			case herr := <-hbErr:
				return herr
			default:
			}
			if websocket.IsCloseError(err, 4004) {
				return domain.ErrGatewayAuth.WithCause(err)
			}
			return domain.ErrGatewayClosed.WithCause(err)
		}

		if p.S != 0 {
			seq.store(p.S)
		}

		switch p.Op {
		case opDispatch:
			if p.T != eventMessageCreate {
				continue
			}
			var mc messageCreateData
			if err := json.Unmarshal(p.D, &mc); err != nil {
				c.log.Warn("undecodable message event, skipping", "error", err)
				continue
			}
			select {
			case c.events <- mc.event(c.roleID):
			case <-c.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}

		case opHeartbeat:
			// Server requested an immediate beat.
			if err := writeJSON(payload{Op: opHeartbeat, D: seq.json()}); err != nil {
				return fmt.Errorf("send requested heartbeat: %w", err)
			}

		case opHeartbeatACK:
			seq.ack()

		case opReconnect, opInvalidSession:
			return domain.ErrGatewayClosed.WithDetails(fmt.Sprintf("server sent op %d", p.Op))
		}
	}
}

// heartbeat sends a beat every interval and closes the connection if
// the previous beat was never acknowledged (zombie connection).
func (c *Client) heartbeat(interval time.Duration, seq *seqTracker, write func(any) error, done chan struct{}, errc chan error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !seq.acked() {
				errc <- domain.ErrGatewayClosed.WithDetails("heartbeat not acknowledged")
				c.mu.Lock()
				if c.conn != nil {
					_ = c.conn.Close()
				}
				c.mu.Unlock()
				return
			}
			seq.beat()
			if err := write(payload{Op: opHeartbeat, D: seq.json()}); err != nil {
				return
			}
		case <-done:
			return
		case <-c.done:
			return
		}
	}
}

// seqTracker holds the last dispatch sequence and heartbeat ACK state.
type seqTracker struct {
	mu      sync.Mutex
	seq     int64
	pending bool
}

func (s *seqTracker) store(v int64) {
	s.mu.Lock()
	s.seq = v
	s.mu.Unlock()
}

func (s *seqTracker) beat() {
	s.mu.Lock()
	s.pending = true
	s.mu.Unlock()
}

func (s *seqTracker) ack() {
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()
}

func (s *seqTracker) acked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.pending
}

// json renders the sequence as a heartbeat payload: the number, or
// null before the first dispatch.
func (s *seqTracker) json() json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq == 0 {
		return json.RawMessage("null")
	}
	return json.RawMessage(fmt.Sprintf("%d", s.seq))
}
