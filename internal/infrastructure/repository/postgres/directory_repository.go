package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/construo/opsportal/internal/core/domain"
)

// DirectoryRepository reads the portal-owned worker/vehicle tables. The
// compliance core never writes them.
type DirectoryRepository struct {
	q querier
}

func NewDirectoryRepository(q querier) *DirectoryRepository {
	return &DirectoryRepository{q: q}
}

func (r *DirectoryRepository) GetWorker(ctx context.Context, id string) (*domain.Worker, error) {
	var worker domain.Worker
	err := r.q.QueryRowContext(ctx, `
SELECT id, company_id, full_name, active FROM workers WHERE id = $1
`, id).Scan(&worker.ID, &worker.CompanyID, &worker.FullName, &worker.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get worker", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan worker: %w", err)
	}
	return &worker, nil
}

func (r *DirectoryRepository) GetVehicle(ctx context.Context, id string) (*domain.Vehicle, error) {
	var vehicle domain.Vehicle
	err := r.q.QueryRowContext(ctx, `
SELECT id, company_id, plate, active FROM vehicles WHERE id = $1
`, id).Scan(&vehicle.ID, &vehicle.CompanyID, &vehicle.Plate, &vehicle.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get vehicle", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan vehicle: %w", err)
	}
	return &vehicle, nil
}

func (r *DirectoryRepository) ListActiveWorkerIDs(ctx context.Context, companyID string) ([]string, error) {
	return r.listIDs(ctx, `SELECT id FROM workers WHERE company_id = $1 AND active ORDER BY id`, companyID)
}

func (r *DirectoryRepository) ListActiveVehicleIDs(ctx context.Context, companyID string) ([]string, error) {
	return r.listIDs(ctx, `SELECT id FROM vehicles WHERE company_id = $1 AND active ORDER BY id`, companyID)
}

func (r *DirectoryRepository) listIDs(ctx context.Context, query, companyID string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("list directory ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan directory id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
