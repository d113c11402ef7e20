package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/construo/opsportal/internal/core/domain"
)

type CategoryFolderRepository struct {
	q querier
}

func NewCategoryFolderRepository(q querier) *CategoryFolderRepository {
	return &CategoryFolderRepository{q: q}
}

func (r *CategoryFolderRepository) Create(ctx context.Context, folder *domain.CategoryFolder) error {
	_, err := r.q.ExecContext(ctx, `
INSERT INTO category_folders (id, startup_folder_id, kind, linked_entity_id, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		folder.ID, folder.StartupFolderID, string(folder.Kind), nullableString(folder.LinkedEntityID),
		string(folder.Status), folder.CreatedAt, folder.UpdatedAt,
	)
	return mapWriteError("insert category folder", err)
}

func (r *CategoryFolderRepository) GetByID(ctx context.Context, id string) (*domain.CategoryFolder, error) {
	folder, err := scanCategoryFolder(r.q.QueryRowContext(ctx, `
SELECT id, startup_folder_id, kind, linked_entity_id, status, created_at, updated_at
FROM category_folders
WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get category folder", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan category folder: %w", err)
	}
	return folder, nil
}

func (r *CategoryFolderRepository) GetByEntity(
	ctx context.Context,
	startupFolderID string,
	kind domain.FolderKind,
	entityID string,
) (*domain.CategoryFolder, error) {
	folder, err := scanCategoryFolder(r.q.QueryRowContext(ctx, `
SELECT id, startup_folder_id, kind, linked_entity_id, status, created_at, updated_at
FROM category_folders
WHERE startup_folder_id = $1 AND kind = $2 AND linked_entity_id = $3`,
		startupFolderID, string(kind), entityID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get category folder by entity",
				fmt.Errorf("%s %s", kind, entityID))
		}
		return nil, fmt.Errorf("scan category folder: %w", err)
	}
	return folder, nil
}

func (r *CategoryFolderRepository) ListByStartupFolder(ctx context.Context, startupFolderID string) ([]domain.CategoryFolder, error) {
	rows, err := r.q.QueryContext(ctx, `
SELECT id, startup_folder_id, kind, linked_entity_id, status, created_at, updated_at
FROM category_folders
WHERE startup_folder_id = $1
ORDER BY created_at`, startupFolderID)
	if err != nil {
		return nil, fmt.Errorf("list category folders: %w", err)
	}
	defer rows.Close()

	var out []domain.CategoryFolder
	for rows.Next() {
		folder, err := scanCategoryFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category folder: %w", err)
		}
		out = append(out, *folder)
	}
	return out, rows.Err()
}

func (r *CategoryFolderRepository) UpdateStatus(ctx context.Context, id string, status domain.ReviewStatus) error {
	res, err := r.q.ExecContext(ctx, `
UPDATE category_folders SET status = $2, updated_at = $3 WHERE id = $1
`, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update folder status: %w", err)
	}
	return requireRow(res, "update folder status", id)
}

func (r *CategoryFolderRepository) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM category_folders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category folder: %w", err)
	}
	return requireRow(res, "delete category folder", id)
}

func scanCategoryFolder(row rowScanner) (*domain.CategoryFolder, error) {
	var folder domain.CategoryFolder
	var kind, status string
	var linked sql.NullString
	if err := row.Scan(
		&folder.ID, &folder.StartupFolderID, &kind, &linked,
		&status, &folder.CreatedAt, &folder.UpdatedAt,
	); err != nil {
		return nil, err
	}
	folder.Kind = domain.FolderKind(kind)
	folder.Status = domain.ReviewStatus(status)
	if linked.Valid {
		folder.LinkedEntityID = linked.String
	}
	return &folder, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
