// Package queue bridges the AMQP broker into the relay: resilient
// connection setup, ordered subscriptions and per-message ack/nack
// dispatch.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/domain"
)

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return "disconnected"
}

// Handler consumes one parsed envelope. A returned error is a negative
// acknowledgment: the broker redelivers the message.
type Handler func(ctx context.Context, env domain.Envelope) error

type subscription struct {
	queue   string
	handler Handler
}

// Bridge owns the broker connection lifecycle. Two channels are kept:
// one for outbound publishes, one for inbound consumes. Consumes use
// client-individual acknowledgment, giving at-least-once delivery with
// handler isolation.
type Bridge struct {
	url         string
	callTimeout time.Duration

	// dial is swappable for tests.
	dial func(url string) (*amqp.Connection, error)

	mu        sync.Mutex
	state     State
	available bool
	conn      *amqp.Connection
	pubCh     *amqp.Channel
	subCh     *amqp.Channel
	subs      []subscription
}

func NewBridge(url string, callTimeout time.Duration) *Bridge {
	return &Bridge{
		url:         url,
		callTimeout: callTimeout,
		dial:        amqp.Dial,
	}
}

// Connect dials the broker, retrying up to maxAttempts with backoff
// between attempts. Exhausting the attempts is fatal to the caller: the
// process cannot serve its purpose without the broker. On success every
// handler registered so far is subscribed, in registration order.
func (b *Bridge) Connect(ctx context.Context, maxAttempts int, backoff time.Duration) error {
	b.mu.Lock()
	b.state = StateConnecting
	b.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		conn, err := b.dial(b.url)
		if err == nil {
			if err = b.setUp(ctx, conn); err == nil {
				log.Info().Str("module", "queue.bridge").Int("attempt", attempt).Msg("broker connected")
				return nil
			}
			_ = conn.Close()
		}
		lastErr = err
		log.Warn().Str("module", "queue.bridge").Int("attempt", attempt).Int("max", maxAttempts).Err(err).
			Msg("broker connect failed")

		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			b.setState(StateDisconnected)
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	b.setState(StateDisconnected)
	return fmt.Errorf("broker unreachable after %d attempts: %w", maxAttempts, lastErr)
}

func (b *Bridge) setUp(ctx context.Context, conn *amqp.Connection) error {
	pubCh, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open publish channel: %w", err)
	}
	subCh, err := conn.Channel()
	if err != nil {
		_ = pubCh.Close()
		return fmt.Errorf("open consume channel: %w", err)
	}

	b.mu.Lock()
	b.conn = conn
	b.pubCh = pubCh
	b.subCh = subCh
	b.state = StateConnected
	b.available = true
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		if err := b.subscribe(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// RegisterHandler binds a handler to a named queue. When already
// connected the subscription starts immediately; otherwise it is
// established by Connect, in registration order.
func (b *Bridge) RegisterHandler(ctx context.Context, queueName string, handler Handler) error {
	s := subscription{queue: queueName, handler: handler}

	b.mu.Lock()
	b.subs = append(b.subs, s)
	connected := b.state == StateConnected
	b.mu.Unlock()

	if !connected {
		return nil
	}
	return b.subscribe(ctx, s)
}

func (b *Bridge) subscribe(ctx context.Context, s subscription) error {
	b.mu.Lock()
	ch := b.subCh
	b.mu.Unlock()
	if ch == nil {
		return domain.ErrBridgeUnavailable
	}

	if _, err := ch.QueueDeclare(s.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", s.queue, err)
	}
	deliveries, err := ch.ConsumeWithContext(ctx, s.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue %s: %w", s.queue, err)
	}

	go b.consumeLoop(s, deliveries)
	log.Info().Str("module", "queue.bridge").Str("queue", s.queue).Msg("subscription established")
	return nil
}

// consumeLoop processes one subscription's deliveries sequentially,
// preserving the broker's per-queue order: a message is acked or nacked
// before the next one is dispatched.
func (b *Bridge) consumeLoop(s subscription, deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		b.dispatch(s, d)
	}
	log.Info().Str("module", "queue.bridge").Str("queue", s.queue).Msg("delivery stream closed")
}

// dispatch parses and handles one delivery. A malformed payload or a
// failing handler is negative-acknowledged for redelivery; it never
// stops the loop.
func (b *Bridge) dispatch(s subscription, d amqp.Delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), b.callTimeout)
	defer cancel()

	var env domain.Envelope
	if err := json.Unmarshal(d.Body, &env); err != nil {
		log.Error().Str("module", "queue.bridge").Str("queue", s.queue).Err(err).
			Msg("malformed envelope, nacking")
		if err := d.Nack(false, true); err != nil {
			log.Error().Str("module", "queue.bridge").Err(err).Msg("nack failed")
		}
		return
	}

	if err := s.handler(ctx, env); err != nil {
		log.Error().Str("module", "queue.bridge").Str("queue", s.queue).Str("msg", env.ID).Err(err).
			Msg("handler failed, nacking")
		if err := d.Nack(false, true); err != nil {
			log.Error().Str("module", "queue.bridge").Err(err).Msg("nack failed")
		}
		return
	}
	if err := d.Ack(false); err != nil {
		log.Error().Str("module", "queue.bridge").Str("queue", s.queue).Str("msg", env.ID).Err(err).
			Msg("ack failed")
	}
}

// Publish sends a payload to a named queue on the outbound channel.
// Fails fast once the bridge is closed.
func (b *Bridge) Publish(ctx context.Context, queueName string, body []byte) error {
	b.mu.Lock()
	ch := b.pubCh
	available := b.available
	b.mu.Unlock()
	if !available || ch == nil {
		return domain.ErrBridgeUnavailable
	}

	err := ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queueName, err)
	}
	return nil
}

// Close tears down both channels and the connection. Subsequent
// publishes fail fast with ErrBridgeUnavailable instead of hanging.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.available = false
	b.state = StateDisconnected

	var firstErr error
	for _, ch := range []*amqp.Channel{b.pubCh, b.subCh} {
		if ch != nil {
			if err := ch.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	b.pubCh, b.subCh = nil, nil
	if b.conn != nil {
		if err := b.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		b.conn = nil
	}
	log.Info().Str("module", "queue.bridge").Msg("bridge closed")
	return firstErr
}

func (b *Bridge) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// CurrentState reports the bridge's connection state.
func (b *Bridge) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
