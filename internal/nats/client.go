package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/careercoach/coach/internal/config"
)

// DuplicateWindow is how long JetStream remembers message ids. Billing and
// usage publishers set ids, so a retried publish inside the window is dropped.
const DuplicateWindow = 10 * time.Minute

// Streams are the JetStream streams the service relies on. Billing events are
// a work queue consumed once; usage events are retained for downstream readers.
var Streams = []jetstream.StreamConfig{
	{
		Name:       StreamBilling,
		Subjects:   []string{SubjectBillingSubscription},
		Retention:  jetstream.WorkQueuePolicy,
		MaxAge:     7 * 24 * time.Hour,
		Duplicates: DuplicateWindow,
	},
	{
		Name:       StreamEvents,
		Subjects:   []string{SubjectUsageRecorded},
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     90 * 24 * time.Hour,
		Duplicates: DuplicateWindow,
	},
}

// Client wraps a NATS connection with JetStream support.
type Client struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// NewClient connects as name and ensures every stream in Streams exists.
func NewClient(ctx context.Context, cfg config.NATSConfig, name string) (*Client, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("NATS reconnected", "url", c.ConnectedUrlRedacted())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	for _, sc := range Streams {
		if _, err := js.CreateOrUpdateStream(ctx, sc); err != nil {
			nc.Close()
			return nil, fmt.Errorf("ensuring stream %s: %w", sc.Name, err)
		}
	}

	slog.Info("connected to NATS", "url", nc.ConnectedUrlRedacted(), "name", name)
	return &Client{conn: nc, js: js}, nil
}

func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

// HealthCheck is the readiness probe for the connection.
func (c *Client) HealthCheck(_ context.Context) error {
	if !c.conn.IsConnected() {
		return fmt.Errorf("nats connection status: %s", c.conn.Status())
	}
	return nil
}

// Close drains pending publishes and subscriptions, then closes.
func (c *Client) Close() {
	if err := c.conn.Drain(); err != nil {
		slog.Warn("draining NATS connection", "error", err)
	}
}
