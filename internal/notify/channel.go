// Package notify maintains the realtime push channel: one long-lived
// transport per logged-in user, delivering an ordered, de-duplicated stream
// of notification events to subscribers. Transport failures are absorbed
// into a reconnect state machine and never surface as fatal errors.
package notify

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/TheFastest599/flowtrack/internal/events"
	"github.com/TheFastest599/flowtrack/internal/model"
)

// ConnState is the channel's connection lifecycle state.
type ConnState string

const (
	StateClosed       ConnState = "closed"
	StateConnecting   ConnState = "connecting"
	StateOpen         ConnState = "open"
	StateReconnecting ConnState = "reconnecting"
)

// Event is one received notification tagged with its arrival order.
type Event struct {
	Notification model.Notification
	ReceivedAt   time.Time
}

// Channel manages one realtime push connection per logged-in user.
//
// State transitions: closed -> connecting -> open; open -> reconnecting on
// transport error; reconnecting -> open once the transport recovers; closed
// only on explicit Disconnect. The transport library owns the backoff wait
// between reconnect attempts.
type Channel struct {
	url           string
	logger        *slog.Logger
	reconnectWait time.Duration

	mu         sync.Mutex
	state      ConnState
	userID     string
	retryCount int
	lastErr    string
	sub        *events.NATSSubscriber
	cancelSub  func()
	feed       []Event             // most recent first
	seen       map[string]struct{} // event IDs delivered this connection lifetime

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// Option configures a Channel.
type Option func(*Channel)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Channel) { c.logger = l }
}

// WithReconnectWait overrides the delay between reconnect attempts.
func WithReconnectWait(d time.Duration) Option {
	return func(c *Channel) { c.reconnectWait = d }
}

// New creates a disconnected channel that will dial the given NATS URL.
func New(url string, opts ...Option) *Channel {
	c := &Channel{
		url:           url,
		logger:        slog.Default(),
		reconnectWait: time.Second,
		state:         StateClosed,
		subs:          make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect opens the push transport scoped to userID. It is a no-op when a
// live connection for the same user already exists; a connection for a
// different user is torn down first. Dial failures do not surface: the
// transport retries in the background and the channel reports its state.
func (c *Channel) Connect(userID string) error {
	c.mu.Lock()
	if c.sub != nil && c.userID == userID && c.state != StateClosed {
		c.mu.Unlock()
		return nil
	}
	if c.sub != nil {
		c.teardownLocked()
	}
	c.state = StateConnecting
	c.userID = userID
	c.retryCount = 0
	c.lastErr = ""
	c.seen = make(map[string]struct{})
	c.mu.Unlock()

	sub, err := events.NewNATSSubscriber(c.url,
		nats.ReconnectWait(c.reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.onTransportError(err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			c.onTransportRecovered()
		}),
	)
	if err != nil {
		// Only malformed options/URLs land here; connection refusals are
		// retried in the background.
		c.mu.Lock()
		c.state = StateReconnecting
		c.lastErr = err.Error()
		c.mu.Unlock()
		return err
	}

	msgs, cancel, err := sub.Subscribe(events.NotifySubject(userID))
	if err != nil {
		sub.Close()
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		return err
	}
	go func() {
		for raw := range msgs {
			c.receive(raw)
		}
	}()

	c.mu.Lock()
	c.sub = sub
	c.cancelSub = cancel
	if sub.Connected() {
		c.state = StateOpen
	}
	c.mu.Unlock()
	return nil
}

// Disconnect closes the transport. Idempotent.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
}

// teardownLocked closes the transport and marks the channel closed.
// Caller holds c.mu.
func (c *Channel) teardownLocked() {
	if c.cancelSub != nil {
		c.cancelSub()
		c.cancelSub = nil
	}
	if c.sub != nil {
		c.sub.Close()
		c.sub = nil
	}
	c.state = StateClosed
}

// State returns the current connection state.
func (c *Channel) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// UserID returns the subject the channel is scoped to, "" when closed.
func (c *Channel) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// LastError returns the most recent transport or parse error, for
// observability only.
func (c *Channel) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// RetryCount returns how many times the transport has dropped since Connect.
func (c *Channel) RetryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retryCount
}

// Events returns a snapshot of received notifications, most recent first.
func (c *Channel) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.feed))
	copy(out, c.feed)
	return out
}

// Clear empties the in-memory feed. The dedup set is untouched: an already
// delivered event ID is not re-delivered within this connection lifetime.
func (c *Channel) Clear() {
	c.mu.Lock()
	c.feed = nil
	c.mu.Unlock()
}

// Subscribe registers an observer for newly delivered events. The returned
// cancel function unregisters it.
func (c *Channel) Subscribe(fn func(Event)) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()
	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Channel) onTransportError(err error) {
	c.mu.Lock()
	if c.state == StateClosed {
		// Explicit Disconnect also fires the handler; stay closed.
		c.mu.Unlock()
		return
	}
	c.state = StateReconnecting
	c.retryCount++
	if err != nil {
		c.lastErr = err.Error()
	}
	c.mu.Unlock()
	c.logger.Warn("notify: transport dropped, reconnecting", "error", err)
}

func (c *Channel) onTransportRecovered() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateOpen
	c.mu.Unlock()
	c.logger.Info("notify: transport reconnected")
}

// receive parses and delivers one raw message. A parse failure drops the
// message and records the error without closing the connection. Delivery is
// at most once per event ID within a connection lifetime.
func (c *Channel) receive(raw []byte) {
	var n model.Notification
	if err := json.Unmarshal(raw, &n); err != nil || n.ID == "" {
		c.mu.Lock()
		c.lastErr = "unparseable notification payload"
		c.mu.Unlock()
		c.logger.Warn("notify: dropping unparseable message", "error", err)
		return
	}

	ev := Event{Notification: n, ReceivedAt: time.Now()}

	c.mu.Lock()
	if c.state == StateConnecting {
		// First delivery confirms the transport is live.
		c.state = StateOpen
	}
	if _, dup := c.seen[n.ID]; dup {
		c.mu.Unlock()
		return
	}
	c.seen[n.ID] = struct{}{}
	c.feed = append([]Event{ev}, c.feed...)
	c.mu.Unlock()

	c.subMu.Lock()
	fns := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
