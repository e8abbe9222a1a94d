package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSPublisher emits JSON-encoded events on NATS subjects. Publishing is
// fire-and-forget; the server treats event emission as best-effort.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher dials the given NATS URL.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	return p.conn.Publish(topic, data)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// NATSSubscriber consumes events from NATS subjects. The connection retries
// forever, including the initial dial, so a subscriber created while the
// broker is down comes up once the broker does. Callers append nats.Option
// values for handlers or tighter reconnect timing.
type NATSSubscriber struct {
	conn *nats.Conn
}

// NewNATSSubscriber dials url with unlimited reconnects.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	opts = append([]nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.RetryOnFailedConnect(true),
	}, opts...)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSSubscriber{conn: nc}, nil
}

// Connected reports whether the transport is currently up.
func (s *NATSSubscriber) Connected() bool {
	return s.conn.IsConnected()
}

// Subscribe delivers raw payloads for topic (NATS wildcards like
// "flowtrack.>" work) on the returned channel. A slow consumer loses
// messages rather than stalling the transport. The cancel function
// unsubscribes and closes the channel; it is safe to call twice.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan []byte, func(), error) {
	msgs := make(chan *nats.Msg, 64)
	sub, err := s.conn.ChanSubscribe(topic, msgs)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	// When the transport is up, make sure the server has registered the
	// subscription before we return, so publishes on other connections are
	// routed to it. A pending (retrying) connection replays the
	// subscription on connect instead.
	if s.conn.IsConnected() {
		if err := s.conn.Flush(); err != nil {
			_ = sub.Unsubscribe()
			return nil, nil, fmt.Errorf("flushing subscription: %w", err)
		}
	}

	out := make(chan []byte, 64)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- m.Data:
				case <-done:
					return
				default:
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = sub.Unsubscribe()
			close(done)
		})
	}
	return out, cancel, nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
