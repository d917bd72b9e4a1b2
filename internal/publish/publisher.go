package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"github.com/Behodler/yield-strategy-router/internal/event"
	"github.com/Behodler/yield-strategy-router/internal/ledger"
	"github.com/Behodler/yield-strategy-router/internal/observability"
)

// Publisher publishes the audit stream to NATS for downstream consumers.
// Subjects follow the pattern: ysr.events.{event_type}.{asset}
type Publisher struct {
	js      jetstream.JetStream
	input   <-chan Message
	metrics *observability.Metrics
	log     zerolog.Logger
}

// Message is one event ready for outbound publishing.
type Message struct {
	Sequence  int64       `json:"sequence"`
	EventID   string      `json:"event_id"`
	EventType string      `json:"event_type"`
	Asset     *string     `json:"asset,omitempty"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewPublisher(js jetstream.JetStream, input <-chan Message, metrics *observability.Metrics, log zerolog.Logger) *Publisher {
	return &Publisher{
		js:      js,
		input:   input,
		metrics: metrics,
		log:     log.With().Str("component", "publisher").Logger(),
	}
}

// Run starts the publisher loop. Blocks until ctx is cancelled or the input
// channel closes.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-p.input:
			if !ok {
				return nil
			}

			if err := p.publish(ctx, msg); err != nil {
				// Non-fatal: downstream consumers can query the event
				// log directly.
				p.log.Warn().Err(err).Int64("sequence", msg.Sequence).Msg("outbound publish failed")
				continue
			}
			if p.metrics != nil {
				p.metrics.PublishSent.WithLabelValues(msg.EventType).Inc()
			}
		}
	}
}

func (p *Publisher) publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	subject := fmt.Sprintf("ysr.events.%s", msg.EventType)
	if msg.Asset != nil {
		subject = fmt.Sprintf("%s.%s", subject, *msg.Asset)
	}

	_, err = p.js.Publish(ctx, subject, data)
	return err
}

// EnsureStream creates or updates the outbound events stream.
func EnsureStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "YSR_EVENTS",
		Subjects:  []string{"ysr.events.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create outbound stream: %w", err)
	}
	return nil
}

// ChannelSink adapts the router's sink interface to the publisher channel.
// Sends are non-blocking: when the channel is full the event is dropped and
// counted, never stalling the ops loop.
type ChannelSink struct {
	ch      chan<- Message
	metrics *observability.Metrics
}

func NewChannelSink(ch chan<- Message, metrics *observability.Metrics) *ChannelSink {
	return &ChannelSink{ch: ch, metrics: metrics}
}

func (s *ChannelSink) Record(env event.Envelope, ev event.Event, batch *ledger.Batch) error {
	msg := Message{
		Sequence:  env.Sequence,
		EventID:   env.EventID.String(),
		EventType: env.EventType.String(),
		Asset:     env.Asset,
		Payload:   ev,
		Timestamp: env.Timestamp,
	}

	select {
	case s.ch <- msg:
	default:
		if s.metrics != nil {
			s.metrics.PublishDrops.Inc()
		}
	}
	return nil
}
