package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/construo/opsportal/internal/core/domain"
	"github.com/construo/opsportal/internal/core/ports"
)

// ReportUseCase builds the read-only company compliance roll-up. Statuses are
// recomputed fresh against the clock; nothing is persisted here.
type ReportUseCase struct {
	uow       ports.UnitOfWork
	authz     ports.Authorizer
	checklist domain.Checklist
}

func NewReportUseCase(uow ports.UnitOfWork, authz ports.Authorizer, checklist domain.Checklist) *ReportUseCase {
	return &ReportUseCase{uow: uow, authz: authz, checklist: checklist}
}

func (uc *ReportUseCase) CompanyReport(
	ctx context.Context,
	session domain.Session,
	companyID string,
) (*domain.CompanyComplianceReport, error) {
	if companyID != session.CompanyID {
		return nil, domain.WrapError(domain.ErrForbidden, "company report",
			fmt.Errorf("company %s does not belong to the session", companyID))
	}
	if err := requireCapability(ctx, uc.authz, session, domain.CapabilityViewReports, "company report"); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	report := &domain.CompanyComplianceReport{
		CompanyID:   companyID,
		GeneratedAt: now,
	}

	err := uc.uow.Execute(ctx, func(ctx context.Context, tx ports.Tx) error {
		roots, err := tx.StartupFolders().ListByCompany(ctx, companyID)
		if err != nil {
			return err
		}

		dossierStatuses := make([]domain.ReviewStatus, 0, len(roots))
		for _, root := range roots {
			folders, err := tx.Folders().ListByStartupFolder(ctx, root.ID)
			if err != nil {
				return err
			}

			folderReports := make([]domain.FolderReport, 0, len(folders))
			folderStatuses := make([]domain.ReviewStatus, 0, len(folders))
			for _, cf := range folders {
				docs, err := tx.Documents().ListByFolder(ctx, cf.ID)
				if err != nil {
					return err
				}
				required := uc.checklist.RequiredFor(cf.Kind)
				slots := domain.BuildSlots(required, docs, now)

				var missing []domain.DocumentType
				for _, slot := range slots {
					if slot.Status == domain.StatusNotUploaded {
						missing = append(missing, slot.DocumentType)
					}
				}

				status := domain.AggregateStatus(docs, now)
				folderReports = append(folderReports, domain.FolderReport{
					FolderID:       cf.ID,
					Kind:           cf.Kind,
					LinkedEntityID: cf.LinkedEntityID,
					Status:         status,
					Documents:      slots,
					MissingTypes:   missing,
				})
				folderStatuses = append(folderStatuses, status)
			}

			dossierStatus := domain.RollUp(folderStatuses)
			report.Dossiers = append(report.Dossiers, domain.StartupFolderReport{
				StartupFolder: root,
				Status:        dossierStatus,
				Folders:       folderReports,
			})
			dossierStatuses = append(dossierStatuses, dossierStatus)
		}

		report.Status = domain.RollUp(dossierStatuses)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
