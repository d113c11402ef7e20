package ports

import (
	"context"
	"time"

	"github.com/construo/opsportal/internal/core/domain"
)

// CreateStartupFolderInput carries the payload for opening a new dossier.
type CreateStartupFolderInput struct {
	CompanyID        string
	Type             domain.StartupFolderType
	Name             string
	ExtendedDuration bool
}

// CreateDocumentInput carries a recorded upload: the blob is already in
// storage and URL is its opaque reference.
type CreateDocumentInput struct {
	FolderID       string
	DocumentType   string
	Name           string
	URL            string
	Size           int64
	MimeType       string
	ExpirationDate *time.Time
	// Scaffolded marks documents created while seeding a folder from the
	// checklist; they start DRAFT instead of SUBMITTED.
	Scaffolded bool
}

// UpdateDocumentInput carries a partial document edit; nil fields are left
// untouched.
type UpdateDocumentInput struct {
	DocumentID      string
	NewURL          *string
	NewName         *string
	NewExpiration   *time.Time
	ClearExpiration bool
}

// StartupFolderService manages the root dossier lifecycle.
type StartupFolderService interface {
	Create(ctx context.Context, session domain.Session, in CreateStartupFolderInput) (*domain.StartupFolder, error)
	Rename(ctx context.Context, session domain.Session, startupFolderID, name string) (*domain.StartupFolder, error)
	Delete(ctx context.Context, session domain.Session, startupFolderID string) error
	Get(ctx context.Context, session domain.Session, startupFolderID string) (*domain.StartupFolderView, error)
}

// DocumentService manages documents inside category folders.
type DocumentService interface {
	Create(ctx context.Context, session domain.Session, in CreateDocumentInput) (*domain.Document, error)
	Update(ctx context.Context, session domain.Session, in UpdateDocumentInput) (*domain.Document, error)
	Review(ctx context.Context, session domain.Session, documentID string, decision domain.ReviewDecision, reason string) (*domain.Document, error)
}

// LinkingService attaches and detaches workers/vehicles.
type LinkingService interface {
	Link(ctx context.Context, session domain.Session, startupFolderID string, kind domain.FolderKind, entityID string) (*domain.CategoryFolder, error)
	Unlink(ctx context.Context, session domain.Session, startupFolderID string, kind domain.FolderKind, entityID string) ([]string, error)
	ListCandidates(ctx context.Context, session domain.Session, startupFolderID string, kind domain.FolderKind) (*domain.LinkCandidates, error)
}

// SweepResult reports what an expiration sweep touched.
type SweepResult struct {
	DocumentsExpired int
	FoldersUpdated   int
}

// ExpirationSweeper converges folders whose approved documents have lapsed.
type ExpirationSweeper interface {
	Sweep(ctx context.Context, now time.Time) (*SweepResult, error)
}

// ComplianceReporter builds the company-level roll-up.
type ComplianceReporter interface {
	CompanyReport(ctx context.Context, session domain.Session, companyID string) (*domain.CompanyComplianceReport, error)
}
