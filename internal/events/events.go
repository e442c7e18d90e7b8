package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	BillCreated        = "bill.created"
	ExchangeCreated    = "exchange.created"
	SettingsUpdated    = "settings.updated"
	CategoryCreated    = "category.created"
	CategoryUpdated    = "category.updated"
	CategoryDeleted    = "category.deleted"
	SubcategoryCreated = "subcategory.created"
	SubcategoryUpdated = "subcategory.updated"
	SubcategoryDeleted = "subcategory.deleted"

	DefaultChannelPrefix = "billing:events:"
	allSuffix            = "all"
)

type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Table         string          `json:"table"`
	RecordID      int64           `json:"record_id,omitempty"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// New builds an event with a fresh id. A payload that fails to encode is dropped.
func New(eventType, table string, recordID int64, payload any) Event {
	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Table:     table,
		RecordID:  recordID,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			log.Printf("Dropping payload of %s event: %v", eventType, err)
		} else {
			event.Payload = raw
		}
	}
	return event
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, types ...string) (<-chan Event, error)
}

// RedisBus fans events out over redis pub/sub: once on the per-type channel and once on the "all" channel.
type RedisBus struct {
	redis  *redis.Client
	prefix string
}

func NewRedisBus(client *redis.Client, prefix string) *RedisBus {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &RedisBus{redis: client, prefix: prefix}
}

func (b *RedisBus) Channel(eventType string) string {
	return b.prefix + eventType
}

func (b *RedisBus) Publish(ctx context.Context, event Event) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redis.Publish(ctx, b.Channel(event.Type), eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	if err := b.redis.Publish(ctx, b.Channel(allSuffix), eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish to all channel: %w", err)
	}

	return nil
}

// Subscribe streams events of the given types, or every event when none are named.
// The returned channel closes when ctx is done.
func (b *RedisBus) Subscribe(ctx context.Context, types ...string) (<-chan Event, error) {
	channels := make([]string, 0, len(types))
	for _, t := range types {
		channels = append(channels, b.Channel(t))
	}
	if len(channels) == 0 {
		channels = append(channels, b.Channel(allSuffix))
	}

	pubsub := b.redis.Subscribe(ctx, channels...)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("Skipping malformed event on %s: %v", msg.Channel, err)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
