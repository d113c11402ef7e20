package usecase

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/construo/opsportal/internal/core/domain"
	"github.com/construo/opsportal/internal/core/ports"
)

// memoryStore is a shared in-memory backing for the fake unit of work. It is
// deliberately not transactional: tests that care about rollback assert on the
// error path instead.
type memoryStore struct {
	startupFolders map[string]*domain.StartupFolder
	folders        []*domain.CategoryFolder
	documents      []*domain.Document
	histories      []*domain.DocumentHistory
	workers        map[string]*domain.Worker
	vehicles       map[string]*domain.Vehicle
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		startupFolders: make(map[string]*domain.StartupFolder),
		workers:        make(map[string]*domain.Worker),
		vehicles:       make(map[string]*domain.Vehicle),
	}
}

type fakeUnitOfWork struct {
	store   *memoryStore
	execErr error
}

func (u *fakeUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	if u.execErr != nil {
		return u.execErr
	}
	return fn(ctx, &fakeTx{store: u.store})
}

type fakeTx struct {
	store *memoryStore
}

func (t *fakeTx) StartupFolders() ports.StartupFolderRepository { return &fakeStartupFolderRepo{t.store} }
func (t *fakeTx) Folders() ports.CategoryFolderRepository       { return &fakeFolderRepo{t.store} }
func (t *fakeTx) Documents() ports.DocumentRepository           { return &fakeDocumentRepo{t.store} }
func (t *fakeTx) Directory() ports.DirectoryRepository          { return &fakeDirectoryRepo{t.store} }

type fakeStartupFolderRepo struct{ store *memoryStore }

func (r *fakeStartupFolderRepo) Create(_ context.Context, folder *domain.StartupFolder) error {
	copied := *folder
	r.store.startupFolders[folder.ID] = &copied
	return nil
}

func (r *fakeStartupFolderRepo) GetByID(_ context.Context, id string, _ bool) (*domain.StartupFolder, error) {
	folder, ok := r.store.startupFolders[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get startup folder", fmt.Errorf("id %s", id))
	}
	copied := *folder
	return &copied, nil
}

func (r *fakeStartupFolderRepo) GetActive(_ context.Context, companyID string, folderType domain.StartupFolderType) (*domain.StartupFolder, error) {
	for _, f := range r.store.startupFolders {
		if f.CompanyID == companyID && f.Type == folderType {
			copied := *f
			return &copied, nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get active startup folder", fmt.Errorf("company %s", companyID))
}

func (r *fakeStartupFolderRepo) ListByCompany(_ context.Context, companyID string) ([]domain.StartupFolder, error) {
	var out []domain.StartupFolder
	for _, f := range r.store.startupFolders {
		if f.CompanyID == companyID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r *fakeStartupFolderRepo) ListIDs(_ context.Context) ([]string, error) {
	var ids []string
	for id := range r.store.startupFolders {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *fakeStartupFolderRepo) Rename(_ context.Context, id, name string) error {
	folder, ok := r.store.startupFolders[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "rename startup folder", fmt.Errorf("id %s", id))
	}
	folder.Name = name
	return nil
}

func (r *fakeStartupFolderRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.store.startupFolders[id]; !ok {
		return domain.WrapError(domain.ErrNotFound, "delete startup folder", fmt.Errorf("id %s", id))
	}
	delete(r.store.startupFolders, id)
	return nil
}

type fakeFolderRepo struct{ store *memoryStore }

func (r *fakeFolderRepo) Create(_ context.Context, folder *domain.CategoryFolder) error {
	for _, f := range r.store.folders {
		if folder.LinkedEntityID != "" &&
			f.StartupFolderID == folder.StartupFolderID &&
			f.Kind == folder.Kind &&
			f.LinkedEntityID == folder.LinkedEntityID {
			return domain.WrapError(domain.ErrConflict, "insert category folder",
				fmt.Errorf("duplicate link %s/%s", folder.Kind, folder.LinkedEntityID))
		}
	}
	copied := *folder
	r.store.folders = append(r.store.folders, &copied)
	return nil
}

func (r *fakeFolderRepo) GetByID(_ context.Context, id string) (*domain.CategoryFolder, error) {
	for _, f := range r.store.folders {
		if f.ID == id {
			copied := *f
			return &copied, nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get category folder", fmt.Errorf("id %s", id))
}

func (r *fakeFolderRepo) GetByEntity(_ context.Context, startupFolderID string, kind domain.FolderKind, entityID string) (*domain.CategoryFolder, error) {
	for _, f := range r.store.folders {
		if f.StartupFolderID == startupFolderID && f.Kind == kind && f.LinkedEntityID == entityID {
			copied := *f
			return &copied, nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get category folder by entity",
		fmt.Errorf("%s %s", kind, entityID))
}

func (r *fakeFolderRepo) ListByStartupFolder(_ context.Context, startupFolderID string) ([]domain.CategoryFolder, error) {
	var out []domain.CategoryFolder
	for _, f := range r.store.folders {
		if f.StartupFolderID == startupFolderID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r *fakeFolderRepo) UpdateStatus(_ context.Context, id string, status domain.ReviewStatus) error {
	for _, f := range r.store.folders {
		if f.ID == id {
			f.Status = status
			f.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return domain.WrapError(domain.ErrNotFound, "update folder status", fmt.Errorf("id %s", id))
}

func (r *fakeFolderRepo) Delete(_ context.Context, id string) error {
	for i, f := range r.store.folders {
		if f.ID == id {
			r.store.folders = append(r.store.folders[:i], r.store.folders[i+1:]...)
			return nil
		}
	}
	return domain.WrapError(domain.ErrNotFound, "delete category folder", fmt.Errorf("id %s", id))
}

type fakeDocumentRepo struct{ store *memoryStore }

func (r *fakeDocumentRepo) Create(_ context.Context, doc *domain.Document) error {
	copied := *doc
	r.store.documents = append(r.store.documents, &copied)
	return nil
}

func (r *fakeDocumentRepo) GetByID(_ context.Context, id string) (*domain.Document, error) {
	for _, d := range r.store.documents {
		if d.ID == id {
			copied := *d
			return &copied, nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get document", fmt.Errorf("id %s", id))
}

func (r *fakeDocumentRepo) ListByFolder(_ context.Context, folderID string) ([]domain.Document, error) {
	var out []domain.Document
	for _, d := range r.store.documents {
		if d.FolderID == folderID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *fakeDocumentRepo) Update(_ context.Context, doc *domain.Document) error {
	for i, d := range r.store.documents {
		if d.ID == doc.ID {
			copied := *doc
			r.store.documents[i] = &copied
			return nil
		}
	}
	return domain.WrapError(domain.ErrNotFound, "update document", fmt.Errorf("id %s", doc.ID))
}

func (r *fakeDocumentRepo) UpdateStatus(_ context.Context, id string, status domain.ReviewStatus, note string) error {
	for _, d := range r.store.documents {
		if d.ID == id {
			d.Status = status
			d.ReviewNote = note
			d.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return domain.WrapError(domain.ErrNotFound, "update document status", fmt.Errorf("id %s", id))
}

func (r *fakeDocumentRepo) AppendHistory(_ context.Context, entry *domain.DocumentHistory) error {
	copied := *entry
	r.store.histories = append(r.store.histories, &copied)
	return nil
}

func (r *fakeDocumentRepo) ListHistory(_ context.Context, documentID string) ([]domain.DocumentHistory, error) {
	var out []domain.DocumentHistory
	for _, h := range r.store.histories {
		if h.DocumentID == documentID {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (r *fakeDocumentRepo) DeleteByFolder(_ context.Context, folderID string) error {
	kept := r.store.documents[:0]
	for _, d := range r.store.documents {
		if d.FolderID != folderID {
			kept = append(kept, d)
		}
	}
	r.store.documents = kept
	return nil
}

func (r *fakeDocumentRepo) DeleteHistoryByFolder(_ context.Context, folderID string) error {
	docIDs := make(map[string]bool)
	for _, d := range r.store.documents {
		if d.FolderID == folderID {
			docIDs[d.ID] = true
		}
	}
	kept := r.store.histories[:0]
	for _, h := range r.store.histories {
		if !docIDs[h.DocumentID] {
			kept = append(kept, h)
		}
	}
	r.store.histories = kept
	return nil
}

func (r *fakeDocumentRepo) ListLapsedApproved(_ context.Context, startupFolderID string, now time.Time) ([]domain.Document, error) {
	folderIDs := make(map[string]bool)
	for _, f := range r.store.folders {
		if f.StartupFolderID == startupFolderID {
			folderIDs[f.ID] = true
		}
	}
	var out []domain.Document
	for _, d := range r.store.documents {
		if folderIDs[d.FolderID] && d.Status == domain.StatusApproved && d.Expired(now) {
			out = append(out, *d)
		}
	}
	return out, nil
}

type fakeDirectoryRepo struct{ store *memoryStore }

func (r *fakeDirectoryRepo) GetWorker(_ context.Context, id string) (*domain.Worker, error) {
	worker, ok := r.store.workers[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get worker", fmt.Errorf("id %s", id))
	}
	copied := *worker
	return &copied, nil
}

func (r *fakeDirectoryRepo) GetVehicle(_ context.Context, id string) (*domain.Vehicle, error) {
	vehicle, ok := r.store.vehicles[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get vehicle", fmt.Errorf("id %s", id))
	}
	copied := *vehicle
	return &copied, nil
}

func (r *fakeDirectoryRepo) ListActiveWorkerIDs(_ context.Context, companyID string) ([]string, error) {
	var ids []string
	for _, w := range r.store.workers {
		if w.CompanyID == companyID && w.Active {
			ids = append(ids, w.ID)
		}
	}
	return ids, nil
}

func (r *fakeDirectoryRepo) ListActiveVehicleIDs(_ context.Context, companyID string) ([]string, error) {
	var ids []string
	for _, v := range r.store.vehicles {
		if v.CompanyID == companyID && v.Active {
			ids = append(ids, v.ID)
		}
	}
	return ids, nil
}

type fakeAuthorizer struct {
	denied map[string]bool
	err    error
}

func (a *fakeAuthorizer) HasPermission(_ context.Context, _ string, capability string) (bool, error) {
	if a.err != nil {
		return false, a.err
	}
	return !a.denied[capability], nil
}

type fakeActivityLog struct {
	entries []domain.ActivityEntry
}

func (l *fakeActivityLog) Record(_ context.Context, entry domain.ActivityEntry) {
	l.entries = append(l.entries, entry)
}

type fakeBlobStorage struct {
	deleted   []string
	deleteErr error
}

func (b *fakeBlobStorage) Put(_ context.Context, key string, _ io.Reader) (string, error) {
	return "blob://" + key, nil
}

func (b *fakeBlobStorage) Delete(_ context.Context, url string) error {
	if b.deleteErr != nil {
		return b.deleteErr
	}
	b.deleted = append(b.deleted, url)
	return nil
}

// env bundles the fakes every usecase test needs.
type env struct {
	store    *memoryStore
	uow      *fakeUnitOfWork
	authz    *fakeAuthorizer
	activity *fakeActivityLog
	blob     *fakeBlobStorage
}

func newEnv() *env {
	store := newMemoryStore()
	return &env{
		store:    store,
		uow:      &fakeUnitOfWork{store: store},
		authz:    &fakeAuthorizer{denied: make(map[string]bool)},
		activity: &fakeActivityLog{},
		blob:     &fakeBlobStorage{},
	}
}

func testChecklist() domain.Checklist {
	return domain.Checklist{
		Required: map[domain.FolderKind][]domain.DocumentType{
			domain.KindBasic:           {domain.DocContract, domain.DocInsurance},
			domain.KindSafetyAndHealth: {domain.DocRiskAssessment},
			domain.KindWorker:          {domain.DocIDCard, domain.DocMedicalExam},
			domain.KindVehicle:         {domain.DocVehicleRegistration, domain.DocVehicleInsurance},
		},
	}
}

func (e *env) startupFolderUC(seedPlaceholders bool) *StartupFolderUseCase {
	return NewStartupFolderUseCase(e.uow, e.authz, e.activity, e.blob, testChecklist(), seedPlaceholders)
}

func (e *env) documentUC() *DocumentUseCase {
	return NewDocumentUseCase(e.uow, e.authz, e.activity, e.blob)
}

func (e *env) linkingUC() *LinkingUseCase {
	return NewLinkingUseCase(e.uow, e.authz, e.activity, e.blob)
}

// seedDossier inserts a dossier with its basic and safety folders directly
// into the store, bypassing the create operation.
func (e *env) seedDossier(id, companyID string) {
	now := time.Now().UTC()
	e.store.startupFolders[id] = &domain.StartupFolder{
		ID:        id,
		CompanyID: companyID,
		Name:      "dossier " + id,
		Type:      domain.TypeOrdinary,
		CreatedAt: now,
	}
	for i, kind := range []domain.FolderKind{domain.KindBasic, domain.KindSafetyAndHealth} {
		e.store.folders = append(e.store.folders, &domain.CategoryFolder{
			ID:              fmt.Sprintf("%s-cf%d", id, i),
			StartupFolderID: id,
			Kind:            kind,
			Status:          domain.StatusDraft,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
}

func (e *env) seedFolder(id, startupFolderID string, kind domain.FolderKind, entityID string, status domain.ReviewStatus) {
	now := time.Now().UTC()
	e.store.folders = append(e.store.folders, &domain.CategoryFolder{
		ID:              id,
		StartupFolderID: startupFolderID,
		Kind:            kind,
		LinkedEntityID:  entityID,
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}

func (e *env) seedDocument(id, folderID string, docType domain.DocumentType, status domain.ReviewStatus, url string) *domain.Document {
	now := time.Now().UTC()
	doc := &domain.Document{
		ID:               id,
		FolderID:         folderID,
		DocumentType:     docType,
		Name:             string(docType),
		URL:              url,
		Status:           status,
		RegistrationDate: now,
		UploadedByID:     "uploader",
		UploadedAt:       now,
		UpdatedAt:        now,
	}
	e.store.documents = append(e.store.documents, doc)
	return doc
}

func (e *env) folderStatus(id string) domain.ReviewStatus {
	for _, f := range e.store.folders {
		if f.ID == id {
			return f.Status
		}
	}
	return ""
}

var testSession = domain.Session{UserID: "user-1", CompanyID: "company-1"}
