package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/construo/opsportal/internal/core/domain"
)

// ActivityRepository persists recorded activity entries. It runs outside the
// unit of work: the activity worker owns its own connection.
type ActivityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Insert(ctx context.Context, entry domain.ActivityEntry) error {
	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal activity metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO activity_log (id, user_id, module, action, entity_id, metadata, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO NOTHING
`, entry.ID, entry.UserID, entry.Module, entry.Action, entry.EntityID, metadataJSON, entry.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert activity entry: %w", err)
	}
	return nil
}
