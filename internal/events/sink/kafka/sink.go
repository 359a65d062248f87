// Package kafka mirrors appended events onto a Kafka topic for downstream
// consumers. The sink decorates another store: the store remains the local
// source of truth, the topic is advisory fan-out.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/twmb/franz-go/pkg/kgo"

	"lanegate/internal/events"
	id "lanegate/pkg/domain"
	"lanegate/pkg/platform/circuit"
)

// probeInterval is how many records are dropped between probes while the
// produce circuit is open.
const probeInterval = 32

// Sink wraps a store and produces every appended event as JSON.
type Sink struct {
	next    events.Store
	client  *kgo.Client
	topic   string
	logger  *slog.Logger
	breaker *circuit.Breaker
	skipped atomic.Uint64
}

// New connects to the brokers and wraps next.
func New(next events.Store, brokers []string, topic string, logger *slog.Logger) (*Sink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	return &Sink{
		next:    next,
		client:  client,
		topic:   topic,
		logger:  logger,
		breaker: circuit.New("kafka-sink", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(3)),
	}, nil
}

// Append writes to the underlying store, then produces asynchronously. A
// produce failure is logged, never propagated: eventing must not block the
// protocol path.
func (s *Sink) Append(ctx context.Context, event events.Event) error {
	if err := s.next.Append(ctx, event); err != nil {
		return err
	}

	// While the breaker is open the broker is known-bad; drop most records
	// rather than pile them into the client's buffer, but let every Nth one
	// through as a probe so recovery can close the circuit.
	if s.breaker.IsOpen() && s.skipped.Add(1)%probeInterval != 0 {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	record := &kgo.Record{
		Key:   []byte(event.Sender),
		Value: payload,
	}
	s.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			s.logger.Warn("kafka produce failed", "event_id", event.ID, "error", err)
			if _, change := s.breaker.RecordFailure(); change.Opened {
				s.logger.Warn("kafka sink circuit opened", "topic", s.topic)
			}
			return
		}
		if _, change := s.breaker.RecordSuccess(); change.Closed {
			s.logger.Info("kafka sink circuit closed", "topic", s.topic)
		}
	})
	return nil
}

func (s *Sink) ListByLane(ctx context.Context, srcDomain id.DomainID, sender, receiver id.AppID) ([]events.Event, error) {
	return s.next.ListByLane(ctx, srcDomain, sender, receiver)
}

// Close flushes buffered records and releases the client.
func (s *Sink) Close(ctx context.Context) error {
	if err := s.client.Flush(ctx); err != nil {
		return err
	}
	s.client.Close()
	return nil
}
