package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// PayloadHandler processes one message body
type PayloadHandler func(ctx context.Context, payload []byte) error

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth redelivering; the message is acked and logged
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Consumer routes subscribed topics to payload handlers
type Consumer struct {
	router     *message.Router
	subscriber message.Subscriber
	logger     *slog.Logger
}

func NewConsumer(subscriber message.Subscriber, logger *slog.Logger) (*Consumer, error) {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	router.AddMiddleware(
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 100 * time.Millisecond,
			Logger:          watermill.NewSlogLogger(logger),
		}.Middleware,
	)

	return &Consumer{router: router, subscriber: subscriber, logger: logger}, nil
}

// Handle subscribes handler to topic. Must be called before Run.
func (c *Consumer) Handle(name, topic string, handler PayloadHandler) {
	c.router.AddNoPublisherHandler(name, topic, c.subscriber, func(msg *message.Message) error {
		err := handler(msg.Context(), msg.Payload)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			c.logger.Warn("Dropping message", "handler", name, "message_id", msg.UUID, "error", err)
			return nil
		}
		return err
	})
}

// Run blocks until ctx is cancelled or Close is called
func (c *Consumer) Run(ctx context.Context) error {
	return c.router.Run(ctx)
}

// Running is closed once all handlers are subscribed
func (c *Consumer) Running() chan struct{} {
	return c.router.Running()
}

func (c *Consumer) Close() error {
	return c.router.Close()
}
