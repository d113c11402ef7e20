package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/construo/opsportal/internal/core/domain"
	"github.com/construo/opsportal/internal/core/ports"
)

// SweepUseCase converges lapsed approvals. Expiration is otherwise evaluated
// lazily at read time; the sweep exists so folders nobody reads still settle.
type SweepUseCase struct {
	uow ports.UnitOfWork
}

func NewSweepUseCase(uow ports.UnitOfWork) *SweepUseCase {
	return &SweepUseCase{uow: uow}
}

// Sweep marks approved documents with elapsed expiration dates as EXPIRED and
// re-aggregates their folders, one transaction per dossier so a failure in one
// company's data never rolls back another's.
func (uc *SweepUseCase) Sweep(ctx context.Context, now time.Time) (*ports.SweepResult, error) {
	var ids []string
	err := uc.uow.Execute(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		ids, err = tx.StartupFolders().ListIDs(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list startup folders: %w", err)
	}

	result := &ports.SweepResult{}
	for _, id := range ids {
		if err := uc.sweepOne(ctx, id, now, result); err != nil {
			return nil, fmt.Errorf("sweep dossier %s: %w", id, err)
		}
	}
	return result, nil
}

func (uc *SweepUseCase) sweepOne(ctx context.Context, startupFolderID string, now time.Time, result *ports.SweepResult) error {
	return uc.uow.Execute(ctx, func(ctx context.Context, tx ports.Tx) error {
		if _, err := tx.StartupFolders().GetByID(ctx, startupFolderID, true); err != nil {
			// Deleted between listing and sweeping; nothing to converge.
			if domain.IsKind(err, domain.ErrNotFound) {
				return nil
			}
			return err
		}

		lapsed, err := tx.Documents().ListLapsedApproved(ctx, startupFolderID, now)
		if err != nil {
			return err
		}
		if len(lapsed) == 0 {
			return nil
		}

		touched := make(map[string]bool)
		for _, doc := range lapsed {
			if err := tx.Documents().UpdateStatus(ctx, doc.ID, domain.StatusExpired, doc.ReviewNote); err != nil {
				return err
			}
			result.DocumentsExpired++
			touched[doc.FolderID] = true
		}
		for folderID := range touched {
			if err := reaggregateFolder(ctx, tx, folderID, now); err != nil {
				return err
			}
			result.FoldersUpdated++
		}
		return nil
	})
}
