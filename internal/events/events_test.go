package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"

	"github.com/TheFastest599/flowtrack/internal/model"
)

// startTestNATS starts an embedded NATS server and returns its client URL.
func startTestNATS(t *testing.T) string {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

func TestNotifySubject(t *testing.T) {
	if got := NotifySubject("u1"); got != "flowtrack.notify.u1" {
		t.Errorf("NotifySubject = %q", got)
	}
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	sub, err := NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(NotifySubject("u1"))
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer cancel()

	notif := &model.Notification{ID: "n1", UserID: "u1", Type: "task_moved", Message: "Task moved"}
	if err := pub.Publish(context.Background(), NotifySubject("u1"), notif); err != nil {
		t.Fatalf("publishing: %v", err)
	}

	select {
	case raw := <-ch:
		var got model.Notification
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("decoding: %v", err)
		}
		if got.ID != "n1" || got.UserID != "u1" {
			t.Errorf("got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestSubjectScoping(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	sub, err := NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(NotifySubject("u1"))
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer cancel()

	// A message for another user must not be delivered.
	if err := pub.Publish(context.Background(), NotifySubject("u2"), &model.Notification{ID: "other"}); err != nil {
		t.Fatalf("publishing: %v", err)
	}
	if err := pub.Publish(context.Background(), NotifySubject("u1"), &model.Notification{ID: "mine"}); err != nil {
		t.Fatalf("publishing: %v", err)
	}

	select {
	case raw := <-ch:
		var got model.Notification
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("decoding: %v", err)
		}
		if got.ID != "mine" {
			t.Errorf("received %q, want only the scoped message", got.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestSubscribeCancelIdempotent(t *testing.T) {
	url := startTestNATS(t)

	sub, err := NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe("flowtrack.>")
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}

	cancel()
	cancel() // double cancel must not panic

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after cancel")
	}
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	if err := p.Publish(context.Background(), TopicTaskMoved, nil); err != nil {
		t.Errorf("Publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
