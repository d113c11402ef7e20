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

type DocumentUseCase struct {
	uow      ports.UnitOfWork
	authz    ports.Authorizer
	activity ports.ActivityLog
	blob     ports.BlobStorage
}

func NewDocumentUseCase(
	uow ports.UnitOfWork,
	authz ports.Authorizer,
	activity ports.ActivityLog,
	blob ports.BlobStorage,
) *DocumentUseCase {
	return &DocumentUseCase{uow: uow, authz: authz, activity: activity, blob: blob}
}

func (uc *DocumentUseCase) Create(
	ctx context.Context,
	session domain.Session,
	in ports.CreateDocumentInput,
) (*domain.Document, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.WrapError(domain.ErrValidation, "create document", fmt.Errorf("name is required"))
	}
	if !in.Scaffolded && in.URL == "" {
		return nil, domain.WrapError(domain.ErrValidation, "create document", fmt.Errorf("url is required"))
	}
	if err := requireCapability(ctx, uc.authz, session, domain.CapabilityManageFolders, "create document"); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var doc *domain.Document

	err := uc.uow.Execute(ctx, func(ctx context.Context, tx ports.Tx) error {
		folder, err := tx.Folders().GetByID(ctx, in.FolderID)
		if err != nil {
			return err
		}
		root, err := tx.StartupFolders().GetByID(ctx, folder.StartupFolderID, true)
		if err != nil {
			return err
		}
		if root.CompanyID != session.CompanyID {
			return domain.WrapError(domain.ErrForbidden, "create document",
				fmt.Errorf("folder %s belongs to another company", in.FolderID))
		}

		// An approved dossier is closed for new material until re-opened.
		rootStatus, err := rolledUpStatus(ctx, tx, folder.StartupFolderID)
		if err != nil {
			return err
		}
		if rootStatus == domain.StatusApproved {
			return domain.WrapError(domain.ErrForbidden, "create document",
				fmt.Errorf("startup folder %s is approved", folder.StartupFolderID))
		}

		// So is an approved folder: adding a document would re-aggregate it
		// away from APPROVED without anyone having undone the review.
		if folder.Status == domain.StatusApproved {
			return domain.WrapError(domain.ErrConflict, "create document",
				fmt.Errorf("cannot add documents to an approved folder"))
		}

		docType, err := domain.ParseDocumentType(folder.Kind, in.DocumentType)
		if err != nil {
			return err
		}

		status := domain.StatusSubmitted
		if in.Scaffolded {
			status = domain.StatusDraft
		}
		doc = &domain.Document{
			ID:               uuid.NewString(),
			FolderID:         folder.ID,
			DocumentType:     docType,
			Name:             strings.TrimSpace(in.Name),
			URL:              in.URL,
			MimeType:         in.MimeType,
			Size:             in.Size,
			Status:           status,
			ExpirationDate:   in.ExpirationDate,
			RegistrationDate: now,
			UploadedByID:     session.UserID,
			UploadedAt:       now,
			UpdatedAt:        now,
		}
		if err := tx.Documents().Create(ctx, doc); err != nil {
			return err
		}
		return reaggregateFolder(ctx, tx, folder.ID, now)
	})
	if err != nil {
		return nil, err
	}

	uc.activity.Record(ctx, newActivity(session, "document.create", doc.ID, map[string]string{
		"folder_id": doc.FolderID,
		"type":      string(doc.DocumentType),
	}))
	return doc, nil
}

func (uc *DocumentUseCase) Update(
	ctx context.Context,
	session domain.Session,
	in ports.UpdateDocumentInput,
) (*domain.Document, error) {
	if err := requireCapability(ctx, uc.authz, session, domain.CapabilityManageFolders, "update document"); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var doc *domain.Document
	var supersededURL string

	err := uc.uow.Execute(ctx, func(ctx context.Context, tx ports.Tx) error {
		loaded, err := tx.Documents().GetByID(ctx, in.DocumentID)
		if err != nil {
			return err
		}
		folder, err := tx.Folders().GetByID(ctx, loaded.FolderID)
		if err != nil {
			return err
		}
		root, err := tx.StartupFolders().GetByID(ctx, folder.StartupFolderID, true)
		if err != nil {
			return err
		}
		if root.CompanyID != session.CompanyID {
			return domain.WrapError(domain.ErrForbidden, "update document",
				fmt.Errorf("document %s belongs to another company", in.DocumentID))
		}
		if folder.Status == domain.StatusApproved {
			return domain.WrapError(domain.ErrConflict, "update document",
				fmt.Errorf("cannot modify documents in an approved folder"))
		}

		// The revision counter tracks content replacements only; metadata
		// re-saves leave it untouched.
		if in.NewURL != nil && *in.NewURL != loaded.URL {
			history := &domain.DocumentHistory{
				ID:           uuid.NewString(),
				DocumentID:   loaded.ID,
				PreviousURL:  loaded.URL,
				PreviousName: loaded.Name,
				ModifiedByID: session.UserID,
				ModifiedAt:   now,
			}
			if err := tx.Documents().AppendHistory(ctx, history); err != nil {
				return err
			}
			supersededURL = loaded.URL
			loaded.URL = *in.NewURL
			loaded.RevisionCount++
		}
		if in.NewName != nil && strings.TrimSpace(*in.NewName) != "" {
			loaded.Name = strings.TrimSpace(*in.NewName)
		}
		switch {
		case in.ClearExpiration:
			loaded.ExpirationDate = nil
		case in.NewExpiration != nil:
			loaded.ExpirationDate = in.NewExpiration
		}

		loaded.Status = domain.StatusDraft
		loaded.ReviewNote = ""
		loaded.UpdatedAt = now
		if err := tx.Documents().Update(ctx, loaded); err != nil {
			return err
		}
		doc = loaded
		return reaggregateFolder(ctx, tx, folder.ID, now)
	})
	if err != nil {
		return nil, err
	}

	if supersededURL != "" {
		if err := uc.blob.Delete(ctx, supersededURL); err != nil {
			slog.Warn("superseded blob not deleted", "url", supersededURL, "error", err)
		}
	}
	uc.activity.Record(ctx, newActivity(session, "document.update", doc.ID, map[string]string{
		"revision": fmt.Sprintf("%d", doc.RevisionCount),
	}))
	return doc, nil
}

func (uc *DocumentUseCase) Review(
	ctx context.Context,
	session domain.Session,
	documentID string,
	decision domain.ReviewDecision,
	reason string,
) (*domain.Document, error) {
	if err := requireCapability(ctx, uc.authz, session, domain.CapabilityReviewDocuments, "review document"); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var doc *domain.Document

	err := uc.uow.Execute(ctx, func(ctx context.Context, tx ports.Tx) error {
		loaded, err := tx.Documents().GetByID(ctx, documentID)
		if err != nil {
			return err
		}
		folder, err := tx.Folders().GetByID(ctx, loaded.FolderID)
		if err != nil {
			return err
		}
		root, err := tx.StartupFolders().GetByID(ctx, folder.StartupFolderID, true)
		if err != nil {
			return err
		}
		if root.CompanyID != session.CompanyID {
			return domain.WrapError(domain.ErrForbidden, "review document",
				fmt.Errorf("document %s belongs to another company", documentID))
		}

		next, err := domain.ApplyDecision(loaded.Status, decision)
		if err != nil {
			return err
		}
		if err := tx.Documents().UpdateStatus(ctx, documentID, next, reason); err != nil {
			return err
		}
		loaded.Status = next
		loaded.ReviewNote = reason
		loaded.UpdatedAt = now
		doc = loaded
		return reaggregateFolder(ctx, tx, folder.ID, now)
	})
	if err != nil {
		return nil, err
	}

	uc.activity.Record(ctx, newActivity(session, "document.review", documentID, map[string]string{
		"decision": string(decision),
		"status":   string(doc.Status),
	}))
	return doc, nil
}

// reaggregateFolder recomputes and persists the owning folder's status from
// its current documents. Every document mutation routes through here inside
// its own transaction; folder status is never written anywhere else.
func reaggregateFolder(ctx context.Context, tx ports.Tx, folderID string, now time.Time) error {
	docs, err := tx.Documents().ListByFolder(ctx, folderID)
	if err != nil {
		return fmt.Errorf("reload folder documents: %w", err)
	}
	return tx.Folders().UpdateStatus(ctx, folderID, domain.AggregateStatus(docs, now))
}

func rolledUpStatus(ctx context.Context, tx ports.Tx, startupFolderID string) (domain.ReviewStatus, error) {
	folders, err := tx.Folders().ListByStartupFolder(ctx, startupFolderID)
	if err != nil {
		return "", fmt.Errorf("list category folders: %w", err)
	}
	statuses := make([]domain.ReviewStatus, 0, len(folders))
	for _, f := range folders {
		statuses = append(statuses, f.Status)
	}
	return domain.RollUp(statuses), nil
}
