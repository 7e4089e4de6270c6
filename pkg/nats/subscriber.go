package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"planhub-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler processes one event. A returned error triggers redelivery.
type EventHandler func(ctx context.Context, event events.BaseEvent) error

type Subscriber struct {
	nc        *nats.Conn
	js        jetstream.JetStream
	consumers []jetstream.ConsumeContext
}

func NewSubscriber(url string) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, js: js}, nil
}

// Subscribe binds a durable consumer so restarts resume where they left off.
func (s *Subscriber) Subscribe(ctx context.Context, subject, durableName string, handler EventHandler) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    5,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		event, err := DecodeEvent(msg.Subject(), msg.Data())
		if err != nil {
			log.Printf("Error decoding event on %s: %v", msg.Subject(), err)
			// Malformed payloads never become valid, drop them.
			_ = msg.Term()
			return
		}

		if err := handler(ctx, event); err != nil {
			log.Printf("Handler failed for event %s: %v", msg.Subject(), err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	s.consumers = append(s.consumers, cc)
	log.Printf("Subscribed to %s with durable %s", subject, durableName)
	return nil
}

// DecodeEvent accepts the envelope written by Publisher. The subject is the
// fallback for the type when the envelope omits it.
func DecodeEvent(subject string, data []byte) (events.BaseEvent, error) {
	var event events.BaseEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return events.BaseEvent{}, err
	}
	if event.Type == "" {
		event.Type = strings.TrimPrefix(subject, subjectPrefix)
	}
	if event.Data == nil {
		event.Data = map[string]interface{}{}
	}
	return event, nil
}

func (s *Subscriber) Close() {
	for _, cc := range s.consumers {
		cc.Stop()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
