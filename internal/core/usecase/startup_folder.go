package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/construo/opsportal/internal/core/domain"
	"github.com/construo/opsportal/internal/core/ports"
)

const activityModule = "startup_folders"

type StartupFolderUseCase struct {
	uow              ports.UnitOfWork
	authz            ports.Authorizer
	activity         ports.ActivityLog
	blob             ports.BlobStorage
	checklist        domain.Checklist
	seedPlaceholders bool
}

func NewStartupFolderUseCase(
	uow ports.UnitOfWork,
	authz ports.Authorizer,
	activity ports.ActivityLog,
	blob ports.BlobStorage,
	checklist domain.Checklist,
	seedPlaceholders bool,
) *StartupFolderUseCase {
	return &StartupFolderUseCase{
		uow:              uow,
		authz:            authz,
		activity:         activity,
		blob:             blob,
		checklist:        checklist,
		seedPlaceholders: seedPlaceholders,
	}
}

func (uc *StartupFolderUseCase) Create(
	ctx context.Context,
	session domain.Session,
	in ports.CreateStartupFolderInput,
) (*domain.StartupFolder, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.WrapError(domain.ErrValidation, "create startup folder", fmt.Errorf("name is required"))
	}
	if in.CompanyID != session.CompanyID {
		return nil, domain.WrapError(domain.ErrForbidden, "create startup folder",
			fmt.Errorf("company %s does not belong to the session", in.CompanyID))
	}
	if err := requireCapability(ctx, uc.authz, session, domain.CapabilityManageFolders, "create startup folder"); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	folder := &domain.StartupFolder{
		ID:               uuid.NewString(),
		CompanyID:        in.CompanyID,
		Name:             strings.TrimSpace(in.Name),
		Type:             in.Type,
		ExtendedDuration: in.ExtendedDuration,
		CreatedAt:        now,
	}

	err := uc.uow.Execute(ctx, func(ctx context.Context, tx ports.Tx) error {
		existing, err := tx.StartupFolders().GetActive(ctx, in.CompanyID, in.Type)
		if err != nil && !domain.IsKind(err, domain.ErrNotFound) {
			return fmt.Errorf("check active dossier: %w", err)
		}
		if existing != nil {
			return domain.WrapError(domain.ErrConflict, "create startup folder",
				fmt.Errorf("company %s already has an active %s dossier", in.CompanyID, in.Type))
		}

		if err := tx.StartupFolders().Create(ctx, folder); err != nil {
			return fmt.Errorf("insert startup folder: %w", err)
		}

		// Basic and safety-and-health folders exist from day one; worker and
		// vehicle folders appear on linking.
		for _, kind := range []domain.FolderKind{domain.KindBasic, domain.KindSafetyAndHealth} {
			if err := uc.seedFolder(ctx, tx, session, folder, kind, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.activity.Record(ctx, newActivity(session, "startup_folder.create", folder.ID, map[string]string{
		"type": string(folder.Type),
		"name": folder.Name,
	}))
	return folder, nil
}

func (uc *StartupFolderUseCase) seedFolder(
	ctx context.Context,
	tx ports.Tx,
	session domain.Session,
	root *domain.StartupFolder,
	kind domain.FolderKind,
	now time.Time,
) error {
	category := &domain.CategoryFolder{
		ID:              uuid.NewString(),
		StartupFolderID: root.ID,
		Kind:            kind,
		Status:          domain.StatusDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := tx.Folders().Create(ctx, category); err != nil {
		return fmt.Errorf("seed %s folder: %w", kind, err)
	}
	if !uc.seedPlaceholders {
		return nil
	}

	for _, dt := range uc.checklist.RequiredFor(kind) {
		placeholder := &domain.Document{
			ID:               uuid.NewString(),
			FolderID:         category.ID,
			DocumentType:     dt,
			Name:             string(dt),
			Status:           domain.StatusDraft,
			RegistrationDate: now,
			UploadedByID:     session.UserID,
			UploadedAt:       now,
			UpdatedAt:        now,
		}
		if err := tx.Documents().Create(ctx, placeholder); err != nil {
			return fmt.Errorf("seed %s placeholder: %w", dt, err)
		}
	}
	return nil
}

func (uc *StartupFolderUseCase) Rename(
	ctx context.Context,
	session domain.Session,
	startupFolderID, name string,
) (*domain.StartupFolder, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.WrapError(domain.ErrValidation, "rename startup folder", fmt.Errorf("name is required"))
	}
	if err := requireCapability(ctx, uc.authz, session, domain.CapabilityManageFolders, "rename startup folder"); err != nil {
		return nil, err
	}

	var folder *domain.StartupFolder
	err := uc.uow.Execute(ctx, func(ctx context.Context, tx ports.Tx) error {
		loaded, err := tx.StartupFolders().GetByID(ctx, startupFolderID, false)
		if err != nil {
			return err
		}
		if loaded.CompanyID != session.CompanyID {
			return domain.WrapError(domain.ErrForbidden, "rename startup folder",
				fmt.Errorf("dossier %s belongs to another company", startupFolderID))
		}
		if err := tx.StartupFolders().Rename(ctx, startupFolderID, strings.TrimSpace(name)); err != nil {
			return err
		}
		loaded.Name = strings.TrimSpace(name)
		folder = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.activity.Record(ctx, newActivity(session, "startup_folder.rename", startupFolderID, map[string]string{
		"name": folder.Name,
	}))
	return folder, nil
}

// Delete removes the dossier and everything under it, depth first: histories,
// then documents, then category folders, then the root, all in one
// transaction. Blob cleanup happens after commit and is best-effort.
func (uc *StartupFolderUseCase) Delete(ctx context.Context, session domain.Session, startupFolderID string) error {
	if err := requireCapability(ctx, uc.authz, session, domain.CapabilityManageFolders, "delete startup folder"); err != nil {
		return err
	}

	var orphanedURLs []string
	err := uc.uow.Execute(ctx, func(ctx context.Context, tx ports.Tx) error {
		root, err := tx.StartupFolders().GetByID(ctx, startupFolderID, true)
		if err != nil {
			return err
		}
		if root.CompanyID != session.CompanyID {
			return domain.WrapError(domain.ErrForbidden, "delete startup folder",
				fmt.Errorf("dossier %s belongs to another company", startupFolderID))
		}

		folders, err := tx.Folders().ListByStartupFolder(ctx, startupFolderID)
		if err != nil {
			return err
		}
		for _, cf := range folders {
			docs, err := tx.Documents().ListByFolder(ctx, cf.ID)
			if err != nil {
				return err
			}
			for _, d := range docs {
				if d.URL != "" {
					orphanedURLs = append(orphanedURLs, d.URL)
				}
			}
			if err := tx.Documents().DeleteHistoryByFolder(ctx, cf.ID); err != nil {
				return err
			}
			if err := tx.Documents().DeleteByFolder(ctx, cf.ID); err != nil {
				return err
			}
			if err := tx.Folders().Delete(ctx, cf.ID); err != nil {
				return err
			}
		}
		return tx.StartupFolders().Delete(ctx, startupFolderID)
	})
	if err != nil {
		return err
	}

	for _, url := range orphanedURLs {
		if err := uc.blob.Delete(ctx, url); err != nil {
			slog.Warn("orphaned blob not deleted", "url", url, "error", err)
		}
	}
	uc.activity.Record(ctx, newActivity(session, "startup_folder.delete", startupFolderID, nil))
	return nil
}

// Get loads the dossier read model. Reads converge lazy expiration: any folder
// whose recomputed status differs from the stored one is persisted within the
// same transaction.
func (uc *StartupFolderUseCase) Get(
	ctx context.Context,
	session domain.Session,
	startupFolderID string,
) (*domain.StartupFolderView, error) {
	now := time.Now().UTC()
	var view *domain.StartupFolderView

	err := uc.uow.Execute(ctx, func(ctx context.Context, tx ports.Tx) error {
		root, err := tx.StartupFolders().GetByID(ctx, startupFolderID, false)
		if err != nil {
			return err
		}
		if root.CompanyID != session.CompanyID {
			return domain.WrapError(domain.ErrForbidden, "get startup folder",
				fmt.Errorf("dossier %s belongs to another company", startupFolderID))
		}

		folders, err := tx.Folders().ListByStartupFolder(ctx, startupFolderID)
		if err != nil {
			return err
		}

		views := make([]domain.FolderView, 0, len(folders))
		statuses := make([]domain.ReviewStatus, 0, len(folders))
		for _, cf := range folders {
			docs, err := tx.Documents().ListByFolder(ctx, cf.ID)
			if err != nil {
				return err
			}
			fresh := domain.AggregateStatus(docs, now)
			if fresh != cf.Status {
				if err := tx.Folders().UpdateStatus(ctx, cf.ID, fresh); err != nil {
					return err
				}
				cf.Status = fresh
			}
			views = append(views, domain.FolderView{
				Folder:    cf,
				Documents: docs,
				Slots:     domain.BuildSlots(uc.checklist.RequiredFor(cf.Kind), docs, now),
			})
			statuses = append(statuses, fresh)
		}

		view = &domain.StartupFolderView{
			StartupFolder: *root,
			Folders:       views,
			RolledUp:      domain.RollUp(statuses),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func requireCapability(
	ctx context.Context,
	authz ports.Authorizer,
	session domain.Session,
	capability, operation string,
) error {
	ok, err := authz.HasPermission(ctx, session.UserID, capability)
	if err != nil {
		return fmt.Errorf("%s: check permission: %w", operation, err)
	}
	if !ok {
		return domain.WrapError(domain.ErrForbidden, operation,
			fmt.Errorf("user %s lacks %s", session.UserID, capability))
	}
	return nil
}

func newActivity(session domain.Session, action, entityID string, metadata map[string]string) domain.ActivityEntry {
	return domain.ActivityEntry{
		ID:         uuid.NewString(),
		UserID:     session.UserID,
		Module:     activityModule,
		Action:     action,
		EntityID:   entityID,
		Metadata:   metadata,
		OccurredAt: time.Now().UTC(),
	}
}
