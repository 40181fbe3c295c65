package service

import (
	"context"

	"insightdocs-be/internal/pkg/logger"
	"insightdocs-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IEventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IEventSubscriber interface {
	Subscribe(ctx context.Context, eventType string, durableName string, handler events.Handler) error
}

// InProcessEventBus carries domain events inside one process when NATS is
// not reachable. Topics are event types; there is no durability.
type InProcessEventBus struct {
	pubSub *gochannel.GoChannel
	logger logger.ILogger
}

func NewInProcessEventBus(log logger.ILogger) *InProcessEventBus {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NopLogger{},
	)
	return &InProcessEventBus{
		pubSub: pubSub,
		logger: log,
	}
}

func (b *InProcessEventBus) Publish(ctx context.Context, event events.Event) error {
	data, err := events.Marshal(event)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.SetContext(ctx)
	return b.pubSub.Publish(event.EventType(), msg)
}

// Subscribe ignores durableName; every subscriber gets every event of the type.
func (b *InProcessEventBus) Subscribe(ctx context.Context, eventType string, durableName string, handler events.Handler) error {
	messages, err := b.pubSub.Subscribe(ctx, eventType)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			b.process(msg, eventType, handler)
		}
	}()
	return nil
}

// process always acks: gochannel redelivers a nacked message immediately,
// which would spin on a handler that keeps failing.
func (b *InProcessEventBus) process(msg *message.Message, eventType string, handler events.Handler) {
	defer msg.Ack()

	event, err := events.Unmarshal(msg.Payload)
	if err != nil {
		b.logger.Error("EVENT_BUS", "Dropping undecodable event", map[string]interface{}{
			"topic": eventType,
			"error": err,
		})
		return
	}

	if err := handler(context.Background(), event); err != nil {
		b.logger.Error("EVENT_BUS", "Event handler failed", map[string]interface{}{
			"topic": eventType,
			"error": err,
		})
	}
}

func (b *InProcessEventBus) Close() error {
	return b.pubSub.Close()
}
