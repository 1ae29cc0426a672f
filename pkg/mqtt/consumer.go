package mqtt

import (
	"context"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Handler processes one inbound message for a topic.
type Handler func(topic string, message mqtt.Message) error

// IConsumer subscribes to a topic and dispatches messages to a handler.
type IConsumer interface {
	Consume(ctx context.Context)
	SetHandler(h Handler)
}

type Consumer struct {
	client  mqtt.Client
	topic   string
	handler Handler
	log     *zap.Logger
}

func NewConsumer(client mqtt.Client, topic string, handler Handler, log *zap.Logger) *Consumer {
	return &Consumer{client: client, topic: topic, handler: handler, log: log}
}

func (c *Consumer) SetHandler(h Handler) {
	c.handler = h
}

// Observation topics carry gauge samples the persistence layer must not
// drop, so they get QoS 1. Everything else stays at 0.
func qosFor(topic string) byte {
	if strings.HasPrefix(strings.TrimSpace(topic), "air/observations") {
		return 1
	}
	return 0
}

// Consume subscribes and blocks until the context is cancelled.
func (c *Consumer) Consume(ctx context.Context) {
	token := c.client.Subscribe(
		c.topic,
		qosFor(c.topic),
		func(_ mqtt.Client, message mqtt.Message) {
			if c.handler == nil {
				c.log.Warn("no handler set", zap.String("topic", c.topic))
				return
			}
			if err := c.handler(message.Topic(), message); err != nil {
				c.log.Error("message handler failed", zap.String("topic", message.Topic()), zap.Error(err))
			}
		},
	)
	if token.Wait() && token.Error() != nil {
		c.log.Error("subscribe failed", zap.String("topic", c.topic), zap.Error(token.Error()))
		return
	}

	c.log.Info("subscribed", zap.String("topic", c.topic))

	<-ctx.Done()

	unsub := c.client.Unsubscribe(c.topic)
	unsub.Wait()
}
