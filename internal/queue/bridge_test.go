package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/domain"
)

// fakeAck implements amqp091.Acknowledger, standing in for the broker.
type fakeAck struct {
	mu       sync.Mutex
	acked    []uint64
	nacked   []uint64
	requeued map[uint64]bool
}

func newFakeAck() *fakeAck {
	return &fakeAck{requeued: make(map[uint64]bool)}
}

func (f *fakeAck) Ack(tag uint64, multiple bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAck) Nack(tag uint64, multiple, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacked = append(f.nacked, tag)
	f.requeued[tag] = requeue
	return nil
}

func (f *fakeAck) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func delivery(ack *fakeAck, tag uint64, body string) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: []byte(body)}
}

func TestDispatchHandlerIsolation(t *testing.T) {
	b := NewBridge("amqp://unused", time.Second)
	ack := newFakeAck()

	var handled []string
	handler := func(ctx context.Context, env domain.Envelope) error {
		if env.ID == "m1" {
			return errors.New("downstream failure")
		}
		handled = append(handled, env.ID)
		return nil
	}
	s := subscription{queue: "chat-messages", handler: handler}

	b.dispatch(s, delivery(ack, 1, `{"id":"m1","content":"boom"}`))
	b.dispatch(s, delivery(ack, 2, `{"id":"m2","content":"ok"}`))

	if len(ack.nacked) != 1 || ack.nacked[0] != 1 {
		t.Errorf("nacked = %v, want [1]", ack.nacked)
	}
	if !ack.requeued[1] {
		t.Error("failed message not requeued for redelivery")
	}
	if len(ack.acked) != 1 || ack.acked[0] != 2 {
		t.Errorf("acked = %v, want [2]", ack.acked)
	}
	if len(handled) != 1 || handled[0] != "m2" {
		t.Errorf("handled = %v, want side effect of m2 exactly once", handled)
	}
}

func TestDispatchMalformedPayload(t *testing.T) {
	b := NewBridge("amqp://unused", time.Second)
	ack := newFakeAck()

	called := false
	s := subscription{queue: "chat-messages", handler: func(ctx context.Context, env domain.Envelope) error {
		called = true
		return nil
	}}

	b.dispatch(s, delivery(ack, 7, `{not json`))

	if called {
		t.Error("handler invoked for malformed payload")
	}
	if len(ack.nacked) != 1 || !ack.requeued[7] {
		t.Errorf("malformed payload not nacked for redelivery: nacked=%v", ack.nacked)
	}
}

func TestConnectExhaustsAttempts(t *testing.T) {
	b := NewBridge("amqp://unreachable", time.Second)
	attempts := 0
	dialErr := errors.New("connection refused")
	b.dial = func(url string) (*amqp.Connection, error) {
		attempts++
		return nil, dialErr
	}

	err := b.Connect(context.Background(), 3, time.Millisecond)
	if err == nil {
		t.Fatal("Connect succeeded with an unreachable broker")
	}
	if !errors.Is(err, dialErr) {
		t.Errorf("Connect error = %v, want wrapped dial error", err)
	}
	if attempts != 3 {
		t.Errorf("dial attempts = %d, want 3", attempts)
	}
	if b.CurrentState() != StateDisconnected {
		t.Errorf("state = %s after exhaustion, want disconnected", b.CurrentState())
	}
}

func TestConnectHonorsContextCancel(t *testing.T) {
	b := NewBridge("amqp://unreachable", time.Second)
	b.dial = func(url string) (*amqp.Connection, error) {
		return nil, errors.New("refused")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Connect(ctx, 10, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Connect error = %v, want context.Canceled", err)
	}
}

func TestRegisterHandlerDeferredUntilConnect(t *testing.T) {
	b := NewBridge("amqp://unused", time.Second)

	err := b.RegisterHandler(context.Background(), "notifications", func(ctx context.Context, env domain.Envelope) error {
		return nil
	})
	if err != nil {
		t.Fatalf("RegisterHandler before Connect failed: %v", err)
	}
	b.mu.Lock()
	n := len(b.subs)
	b.mu.Unlock()
	if n != 1 {
		t.Errorf("registered subscriptions = %d, want 1 pending", n)
	}
}

func TestPublishFailsFastWhenClosed(t *testing.T) {
	b := NewBridge("amqp://unused", time.Second)

	// Never connected: unavailable from the start.
	if err := b.Publish(context.Background(), "chat-messages", []byte("{}")); !errors.Is(err, domain.ErrBridgeUnavailable) {
		t.Errorf("Publish before Connect = %v, want ErrBridgeUnavailable", err)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := b.Publish(context.Background(), "chat-messages", []byte("{}")); !errors.Is(err, domain.ErrBridgeUnavailable) {
		t.Errorf("Publish after Close = %v, want ErrBridgeUnavailable", err)
	}
	if b.CurrentState() != StateDisconnected {
		t.Errorf("state = %s after Close, want disconnected", b.CurrentState())
	}
}

func TestStateString(t *testing.T) {
	if StateDisconnected.String() != "disconnected" ||
		StateConnecting.String() != "connecting" ||
		StateConnected.String() != "connected" {
		t.Error("unexpected state names")
	}
}
