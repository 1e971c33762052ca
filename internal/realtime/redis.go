package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"carshop-display-backend/internal/model"
	"carshop-display-backend/internal/slots"
)

// inbound classifies a message read from the channel.
type inbound int

const (
	inboundSkip inbound = iota
	inboundEvent
	inboundCatalog
)

// RedisChannel carries screen updates and catalog notices between backend instances over Redis pub/sub.
// Messages published by this instance are recognised by their origin and skipped on the way back in.
type RedisChannel struct {
	client    *redis.Client
	channel   string
	origin    string
	now       func() time.Time
	onCatalog func(ctx context.Context)
}

// NewRedisChannel creates a channel with a fresh origin id.
func NewRedisChannel(client *redis.Client, channel string) *RedisChannel {
	return &RedisChannel{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// OnCatalogChanged registers fn to run when another instance changes the service catalog.
// It must be called before Subscribe.
func (c *RedisChannel) OnCatalogChanged(fn func(ctx context.Context)) {
	c.onCatalog = fn
}

// Publish announces a confirmed change.
func (c *RedisChannel) Publish(ctx context.Context, update model.ScreenUpdate) error {
	update.Origin = c.origin
	if update.SentAt.IsZero() {
		update.SentAt = c.now()
	}
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal screen update: %w", err)
	}
	if err := c.client.Publish(ctx, c.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish screen update: %w", err)
	}
	return nil
}

// PublishCatalogChanged tells the other instances to reload the service catalog.
func (c *RedisChannel) PublishCatalogChanged(ctx context.Context) error {
	data, err := json.Marshal(model.CatalogNotice{
		Type:   model.NoticeCatalogChanged,
		Origin: c.origin,
		SentAt: c.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal catalog notice: %w", err)
	}
	if err := c.client.Publish(ctx, c.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish catalog notice: %w", err)
	}
	return nil
}

// Subscribe listens on the channel and returns the inbound event queue.
// The queue is closed when ctx is done or the subscription ends.
func (c *RedisChannel) Subscribe(ctx context.Context) <-chan slots.Event {
	pubsub := c.client.Subscribe(ctx, c.channel)
	out := make(chan slots.Event, 64)
	go func() {
		defer pubsub.Close()
		c.consume(ctx, pubsub.Channel(), out)
	}()
	log.Printf("[Realtime] Listening for screen updates on %q", c.channel)
	return out
}

func (c *RedisChannel) consume(ctx context.Context, msgs <-chan *redis.Message, out chan<- slots.Event) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			ev, kind, err := c.decode([]byte(msg.Payload))
			if err != nil {
				log.Printf("[Realtime] Failed to parse screen update: %v", err)
				continue
			}
			switch kind {
			case inboundCatalog:
				if c.onCatalog != nil {
					c.onCatalog(ctx)
				}
			case inboundEvent:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// decode turns one wire message into a reconciler event or a catalog notice.
// Messages this instance sent and notices of unknown type are skipped.
func (c *RedisChannel) decode(data []byte) (slots.Event, inbound, error) {
	var update model.ScreenUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return slots.Event{}, inboundSkip, err
	}
	if update.Origin != "" && update.Origin == c.origin {
		return slots.Event{}, inboundSkip, nil
	}
	switch update.Type {
	case "":
	case model.NoticeCatalogChanged:
		return slots.Event{}, inboundCatalog, nil
	default:
		return slots.Event{}, inboundSkip, nil
	}

	screenID := update.ScreenID
	if screenID == "" && update.Payload != nil {
		screenID = update.Payload.ScreenID
		if screenID == "" {
			screenID = update.Payload.ID
		}
	}
	if screenID == "" {
		return slots.Event{}, inboundSkip, fmt.Errorf("%w: update without screen id", model.ErrData)
	}

	at := update.SentAt
	if at.IsZero() {
		at = c.now()
	}
	if update.Payload == nil {
		return slots.Remove(screenID, at, slots.SourceRemote), inboundEvent, nil
	}
	rec := update.Payload.Record()
	if rec == nil {
		return slots.Remove(screenID, at, slots.SourceRemote), inboundEvent, nil
	}
	return slots.Assign(screenID, *rec, at, slots.SourceRemote), inboundEvent, nil
}
