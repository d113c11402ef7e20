package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/construo/opsportal/internal/core/domain"
	"github.com/construo/opsportal/internal/core/ports"
)

type LinkingUseCase struct {
	uow      ports.UnitOfWork
	authz    ports.Authorizer
	activity ports.ActivityLog
	blob     ports.BlobStorage
}

func NewLinkingUseCase(
	uow ports.UnitOfWork,
	authz ports.Authorizer,
	activity ports.ActivityLog,
	blob ports.BlobStorage,
) *LinkingUseCase {
	return &LinkingUseCase{uow: uow, authz: authz, activity: activity, blob: blob}
}

// Link attaches a worker or vehicle to a dossier by creating its category
// folder. The startup-folder row lock plus the unique (dossier, kind, entity)
// index guarantee exactly one winner under concurrent attempts.
func (uc *LinkingUseCase) Link(
	ctx context.Context,
	session domain.Session,
	startupFolderID string,
	kind domain.FolderKind,
	entityID string,
) (*domain.CategoryFolder, error) {
	if !kind.Linked() {
		return nil, domain.WrapError(domain.ErrValidation, "link entity",
			fmt.Errorf("%s folders are not linkable", kind))
	}
	if err := requireCapability(ctx, uc.authz, session, domain.CapabilityManageFolders, "link entity"); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var folder *domain.CategoryFolder

	err := uc.uow.Execute(ctx, func(ctx context.Context, tx ports.Tx) error {
		root, err := tx.StartupFolders().GetByID(ctx, startupFolderID, true)
		if err != nil {
			return err
		}
		if root.CompanyID != session.CompanyID {
			return domain.WrapError(domain.ErrForbidden, "link entity",
				fmt.Errorf("dossier %s belongs to another company", startupFolderID))
		}
		if err := uc.verifyEntity(ctx, tx, root.CompanyID, kind, entityID); err != nil {
			return err
		}

		existing, err := tx.Folders().GetByEntity(ctx, startupFolderID, kind, entityID)
		if err != nil && !domain.IsKind(err, domain.ErrNotFound) {
			return err
		}
		if existing != nil {
			return domain.WrapError(domain.ErrConflict, "link entity",
				fmt.Errorf("%s %s is already linked to dossier %s", kind, entityID, startupFolderID))
		}

		folder = &domain.CategoryFolder{
			ID:              uuid.NewString(),
			StartupFolderID: startupFolderID,
			Kind:            kind,
			LinkedEntityID:  entityID,
			Status:          domain.StatusDraft,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return tx.Folders().Create(ctx, folder)
	})
	if err != nil {
		return nil, err
	}

	uc.activity.Record(ctx, newActivity(session, "link.create", folder.ID, map[string]string{
		"kind":      string(kind),
		"entity_id": entityID,
	}))
	return folder, nil
}

func (uc *LinkingUseCase) verifyEntity(
	ctx context.Context,
	tx ports.Tx,
	companyID string,
	kind domain.FolderKind,
	entityID string,
) error {
	switch kind {
	case domain.KindWorker:
		worker, err := tx.Directory().GetWorker(ctx, entityID)
		if err != nil {
			return err
		}
		if worker.CompanyID != companyID {
			return domain.WrapError(domain.ErrForbidden, "link entity",
				fmt.Errorf("worker %s belongs to another company", entityID))
		}
		if !worker.Active {
			return domain.WrapError(domain.ErrValidation, "link entity",
				fmt.Errorf("worker %s is inactive", entityID))
		}
	case domain.KindVehicle:
		vehicle, err := tx.Directory().GetVehicle(ctx, entityID)
		if err != nil {
			return err
		}
		if vehicle.CompanyID != companyID {
			return domain.WrapError(domain.ErrForbidden, "link entity",
				fmt.Errorf("vehicle %s belongs to another company", entityID))
		}
		if !vehicle.Active {
			return domain.WrapError(domain.ErrValidation, "link entity",
				fmt.Errorf("vehicle %s is inactive", entityID))
		}
	}
	return nil
}

// Unlink removes the entity's category folder with all its documents and
// histories in one transaction, and returns the freed entity ids so callers
// can re-offer them elsewhere.
func (uc *LinkingUseCase) Unlink(
	ctx context.Context,
	session domain.Session,
	startupFolderID string,
	kind domain.FolderKind,
	entityID string,
) ([]string, error) {
	if !kind.Linked() {
		return nil, domain.WrapError(domain.ErrValidation, "unlink entity",
			fmt.Errorf("%s folders are not linkable", kind))
	}
	if err := requireCapability(ctx, uc.authz, session, domain.CapabilityManageFolders, "unlink entity"); err != nil {
		return nil, err
	}

	var orphanedURLs []string
	err := uc.uow.Execute(ctx, func(ctx context.Context, tx ports.Tx) error {
		root, err := tx.StartupFolders().GetByID(ctx, startupFolderID, true)
		if err != nil {
			return err
		}
		if root.CompanyID != session.CompanyID {
			return domain.WrapError(domain.ErrForbidden, "unlink entity",
				fmt.Errorf("dossier %s belongs to another company", startupFolderID))
		}

		folder, err := tx.Folders().GetByEntity(ctx, startupFolderID, kind, entityID)
		if err != nil {
			return err
		}
		docs, err := tx.Documents().ListByFolder(ctx, folder.ID)
		if err != nil {
			return err
		}
		for _, d := range docs {
			if d.URL != "" {
				orphanedURLs = append(orphanedURLs, d.URL)
			}
		}
		if err := tx.Documents().DeleteHistoryByFolder(ctx, folder.ID); err != nil {
			return err
		}
		if err := tx.Documents().DeleteByFolder(ctx, folder.ID); err != nil {
			return err
		}
		return tx.Folders().Delete(ctx, folder.ID)
	})
	if err != nil {
		return nil, err
	}

	for _, url := range orphanedURLs {
		if err := uc.blob.Delete(ctx, url); err != nil {
			slog.Warn("orphaned blob not deleted", "url", url, "error", err)
		}
	}
	uc.activity.Record(ctx, newActivity(session, "link.remove", startupFolderID, map[string]string{
		"kind":      string(kind),
		"entity_id": entityID,
	}))
	return []string{entityID}, nil
}

// ListCandidates returns the linked and still-eligible entity sets in one
// transaction, so a concurrent link cannot make the two sets overlap.
func (uc *LinkingUseCase) ListCandidates(
	ctx context.Context,
	session domain.Session,
	startupFolderID string,
	kind domain.FolderKind,
) (*domain.LinkCandidates, error) {
	if !kind.Linked() {
		return nil, domain.WrapError(domain.ErrValidation, "list link candidates",
			fmt.Errorf("%s folders are not linkable", kind))
	}

	var out *domain.LinkCandidates
	err := uc.uow.Execute(ctx, func(ctx context.Context, tx ports.Tx) error {
		root, err := tx.StartupFolders().GetByID(ctx, startupFolderID, false)
		if err != nil {
			return err
		}
		if root.CompanyID != session.CompanyID {
			return domain.WrapError(domain.ErrForbidden, "list link candidates",
				fmt.Errorf("dossier %s belongs to another company", startupFolderID))
		}

		folders, err := tx.Folders().ListByStartupFolder(ctx, startupFolderID)
		if err != nil {
			return err
		}
		linked := make([]domain.LinkedEntity, 0)
		linkedIDs := make(map[string]bool)
		for _, f := range folders {
			if f.Kind != kind || f.LinkedEntityID == "" {
				continue
			}
			linked = append(linked, domain.LinkedEntity{
				EntityID: f.LinkedEntityID,
				FolderID: f.ID,
				Status:   f.Status,
			})
			linkedIDs[f.LinkedEntityID] = true
		}

		var activeIDs []string
		switch kind {
		case domain.KindWorker:
			activeIDs, err = tx.Directory().ListActiveWorkerIDs(ctx, root.CompanyID)
		case domain.KindVehicle:
			activeIDs, err = tx.Directory().ListActiveVehicleIDs(ctx, root.CompanyID)
		}
		if err != nil {
			return err
		}

		eligible := make([]string, 0, len(activeIDs))
		for _, id := range activeIDs {
			if !linkedIDs[id] {
				eligible = append(eligible, id)
			}
		}
		out = &domain.LinkCandidates{Linked: linked, Eligible: eligible}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
