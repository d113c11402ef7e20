package ports

import (
	"context"
	"io"
	"time"

	"github.com/construo/opsportal/internal/core/domain"
)

// UnitOfWork runs fn inside one database transaction. The transaction commits
// when fn returns nil and rolls back otherwise; partial writes never survive.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx bundles the repositories bound to one open transaction.
type Tx interface {
	StartupFolders() StartupFolderRepository
	Folders() CategoryFolderRepository
	Documents() DocumentRepository
	Directory() DirectoryRepository
}

// StartupFolderRepository persists root dossiers.
type StartupFolderRepository interface {
	Create(ctx context.Context, folder *domain.StartupFolder) error
	// GetByID loads the dossier; forUpdate takes a write-intent row lock to
	// serialize concurrent link/unlink/aggregation on the same aggregate.
	GetByID(ctx context.Context, id string, forUpdate bool) (*domain.StartupFolder, error)
	GetActive(ctx context.Context, companyID string, folderType domain.StartupFolderType) (*domain.StartupFolder, error)
	ListByCompany(ctx context.Context, companyID string) ([]domain.StartupFolder, error)
	ListIDs(ctx context.Context) ([]string, error)
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
}

// CategoryFolderRepository persists category folders.
type CategoryFolderRepository interface {
	Create(ctx context.Context, folder *domain.CategoryFolder) error
	GetByID(ctx context.Context, id string) (*domain.CategoryFolder, error)
	GetByEntity(ctx context.Context, startupFolderID string, kind domain.FolderKind, entityID string) (*domain.CategoryFolder, error)
	ListByStartupFolder(ctx context.Context, startupFolderID string) ([]domain.CategoryFolder, error)
	UpdateStatus(ctx context.Context, id string, status domain.ReviewStatus) error
	Delete(ctx context.Context, id string) error
}

// DocumentRepository persists documents and their supersession history.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByFolder(ctx context.Context, folderID string) ([]domain.Document, error)
	Update(ctx context.Context, doc *domain.Document) error
	UpdateStatus(ctx context.Context, id string, status domain.ReviewStatus, note string) error
	AppendHistory(ctx context.Context, entry *domain.DocumentHistory) error
	ListHistory(ctx context.Context, documentID string) ([]domain.DocumentHistory, error)
	DeleteByFolder(ctx context.Context, folderID string) error
	DeleteHistoryByFolder(ctx context.Context, folderID string) error
	ListLapsedApproved(ctx context.Context, startupFolderID string, now time.Time) ([]domain.Document, error)
}

// DirectoryRepository reads the portal's worker/vehicle directory.
type DirectoryRepository interface {
	GetWorker(ctx context.Context, id string) (*domain.Worker, error)
	GetVehicle(ctx context.Context, id string) (*domain.Vehicle, error)
	ListActiveWorkerIDs(ctx context.Context, companyID string) ([]string, error)
	ListActiveVehicleIDs(ctx context.Context, companyID string) ([]string, error)
}

// BlobStorage stores document content. The transaction that records a URL
// never overlaps a Put; Delete is best-effort on replacement.
type BlobStorage interface {
	Put(ctx context.Context, key string, data io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

// ActivityLog records audit entries fire-and-forget: implementations log
// failures and never propagate them.
type ActivityLog interface {
	Record(ctx context.Context, entry domain.ActivityEntry)
}

// ActivityStore persists recorded activity entries (worker side).
type ActivityStore interface {
	Insert(ctx context.Context, entry domain.ActivityEntry) error
}

// Authorizer answers capability checks for a user. Role computation happens
// elsewhere in the portal; the core consumes booleans.
type Authorizer interface {
	HasPermission(ctx context.Context, userID, capability string) (bool, error)
}
