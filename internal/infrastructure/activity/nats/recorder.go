package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/construo/opsportal/internal/core/domain"
	"github.com/construo/opsportal/internal/infrastructure/resilience"
)

// Recorder publishes activity entries to the audit subject. Recording is
// fire-and-forget: a broken broker degrades the audit trail, never a mutation.
type Recorder struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
	logger   *slog.Logger
}

func NewRecorder(conn *nats.Conn, subject string, executor *resilience.Executor, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		conn:     conn,
		subject:  subject,
		executor: executor,
		logger:   logger,
	}
}

func (r *Recorder) Record(ctx context.Context, entry domain.ActivityEntry) {
	payload, err := json.Marshal(entry)
	if err != nil {
		r.logger.Warn("activity_marshal_failed", "entry_id", entry.ID, "error", err)
		return
	}

	publish := func(context.Context) error {
		if err := r.conn.Publish(r.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if r.executor != nil {
		err = r.executor.Execute(ctx, "activity.publish", publish, classifyBrokerError)
	} else {
		err = publish(ctx)
	}
	if err != nil {
		r.logger.Warn("activity_publish_failed",
			"entry_id", entry.ID,
			"module", entry.Module,
			"action", entry.Action,
			"error", err,
		)
	}
}
