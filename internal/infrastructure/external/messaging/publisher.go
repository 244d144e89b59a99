package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/garyjia/purchase-approval/internal/application/port"
	"github.com/garyjia/purchase-approval/internal/domain/event"
)

// SubjectPrefix is prepended to the event type to form the subject
const SubjectPrefix = "notifications.purchase."

// Config holds NATS connection settings
type Config struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	FlushTimeout  time.Duration
}

// conn is the subset of *nats.Conn the publisher needs
type conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Drain() error
	IsConnected() bool
}

// Publisher forwards transition events to NATS as JSON
type Publisher struct {
	conn         conn
	flushTimeout time.Duration
	logger       *zap.Logger
}

// Connect dials the server. Reconnection is handled by the client library.
func Connect(cfg Config, logger *zap.Logger) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	if cfg.Name == "" {
		cfg.Name = "purchase-approval"
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	logger.Info("Connected to NATS", zap.String("url", nc.ConnectedUrl()))
	return newPublisher(nc, cfg.FlushTimeout, logger), nil
}

func newPublisher(c conn, flushTimeout time.Duration, logger *zap.Logger) *Publisher {
	if flushTimeout <= 0 {
		flushTimeout = time.Second
	}
	return &Publisher{
		conn:         c,
		flushTimeout: flushTimeout,
		logger:       logger,
	}
}

// Subject returns the subject an event type is published on
func Subject(t event.Type) string {
	return SubjectPrefix + string(t)
}

// Publish implements port.EventPublisher
func (p *Publisher) Publish(ctx context.Context, evt *event.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	subject := Subject(evt.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Error("Failed to publish event",
			zap.String("subject", subject),
			zap.Int64("request_id", evt.RequestID),
			zap.Error(err))
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}

	p.logger.Debug("Event published",
		zap.String("subject", subject),
		zap.String("event_id", evt.ID),
		zap.Int64("request_id", evt.RequestID))
	return nil
}

// HealthCheck reports whether the connection is up
func (p *Publisher) HealthCheck() error {
	if !p.conn.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

// Close flushes pending messages and drains the connection
func (p *Publisher) Close() error {
	if err := p.conn.FlushTimeout(p.flushTimeout); err != nil {
		p.logger.Warn("NATS flush failed", zap.Error(err))
	}
	return p.conn.Drain()
}

// Verify interface compliance
var _ port.EventPublisher = (*Publisher)(nil)
