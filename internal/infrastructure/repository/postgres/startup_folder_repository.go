package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/construo/opsportal/internal/core/domain"
)

type StartupFolderRepository struct {
	q querier
}

func NewStartupFolderRepository(q querier) *StartupFolderRepository {
	return &StartupFolderRepository{q: q}
}

func (r *StartupFolderRepository) Create(ctx context.Context, folder *domain.StartupFolder) error {
	_, err := r.q.ExecContext(ctx, `
INSERT INTO startup_folders (id, company_id, name, type, extended_duration, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, folder.ID, folder.CompanyID, folder.Name, string(folder.Type), folder.ExtendedDuration, folder.CreatedAt)
	return mapWriteError("insert startup folder", err)
}

func (r *StartupFolderRepository) GetByID(ctx context.Context, id string, forUpdate bool) (*domain.StartupFolder, error) {
	query := `
SELECT id, company_id, name, type, extended_duration, created_at
FROM startup_folders
WHERE id = $1`
	if forUpdate {
		query += `
FOR UPDATE`
	}

	folder, err := scanStartupFolder(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get startup folder", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan startup folder: %w", err)
	}
	return folder, nil
}

func (r *StartupFolderRepository) GetActive(ctx context.Context, companyID string, folderType domain.StartupFolderType) (*domain.StartupFolder, error) {
	folder, err := scanStartupFolder(r.q.QueryRowContext(ctx, `
SELECT id, company_id, name, type, extended_duration, created_at
FROM startup_folders
WHERE company_id = $1 AND type = $2`, companyID, string(folderType)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get active startup folder",
				fmt.Errorf("company %s type %s", companyID, folderType))
		}
		return nil, fmt.Errorf("scan startup folder: %w", err)
	}
	return folder, nil
}

func (r *StartupFolderRepository) ListByCompany(ctx context.Context, companyID string) ([]domain.StartupFolder, error) {
	rows, err := r.q.QueryContext(ctx, `
SELECT id, company_id, name, type, extended_duration, created_at
FROM startup_folders
WHERE company_id = $1
ORDER BY created_at`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list startup folders: %w", err)
	}
	defer rows.Close()

	var out []domain.StartupFolder
	for rows.Next() {
		folder, err := scanStartupFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan startup folder: %w", err)
		}
		out = append(out, *folder)
	}
	return out, rows.Err()
}

func (r *StartupFolderRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id FROM startup_folders ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list startup folder ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan startup folder id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *StartupFolderRepository) Rename(ctx context.Context, id, name string) error {
	res, err := r.q.ExecContext(ctx, `UPDATE startup_folders SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("rename startup folder: %w", err)
	}
	return requireRow(res, "rename startup folder", id)
}

func (r *StartupFolderRepository) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM startup_folders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete startup folder: %w", err)
	}
	return requireRow(res, "delete startup folder", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStartupFolder(row rowScanner) (*domain.StartupFolder, error) {
	var folder domain.StartupFolder
	var folderType string
	if err := row.Scan(
		&folder.ID, &folder.CompanyID, &folder.Name, &folderType,
		&folder.ExtendedDuration, &folder.CreatedAt,
	); err != nil {
		return nil, err
	}
	folder.Type = domain.StartupFolderType(folderType)
	return &folder, nil
}

// requireRow maps zero affected rows to a typed not-found error.
func requireRow(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, operation, fmt.Errorf("id %s", id))
	}
	return nil
}
