package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/construo/opsportal/internal/core/domain"
)

const queueGroup = "activity-recorders"

// Consumer drains the audit subject into a persistent store. Entries carry
// their own ids, so redelivery after a crash stays idempotent.
type Consumer struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

func NewConsumer(conn *nats.Conn, subject string, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{conn: conn, subject: subject, logger: logger}
}

// Run blocks until ctx is cancelled, handing each decoded entry to handler.
// Handler errors are logged and the message dropped; the broker owns no
// redelivery state for core NATS subscriptions.
func (c *Consumer) Run(ctx context.Context, handler func(context.Context, domain.ActivityEntry) error) error {
	sub, err := c.conn.QueueSubscribe(c.subject, queueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		var entry domain.ActivityEntry
		if err := json.Unmarshal(msg.Data, &entry); err != nil {
			c.logger.Warn("activity_decode_failed", "error", err)
			return
		}

		handlerCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := handler(handlerCtx, entry); err != nil {
			c.logger.Error("activity_store_failed", "entry_id", entry.ID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := c.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := c.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
