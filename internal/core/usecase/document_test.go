package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/construo/opsportal/internal/core/domain"
	"github.com/construo/opsportal/internal/core/ports"
)

func TestCreateDocumentStartsSubmitted(t *testing.T) {
	e := newEnv()
	e.seedDossier("sf-1", "company-1")
	uc := e.documentUC()

	doc, err := uc.Create(context.Background(), testSession, ports.CreateDocumentInput{
		FolderID:     "sf-1-cf0",
		DocumentType: "CONTRACT",
		Name:         "contract.pdf",
		URL:          "blob://contract",
		MimeType:     "application/pdf",
		Size:         1024,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if doc.Status != domain.StatusSubmitted {
		t.Fatalf("status = %s, want SUBMITTED", doc.Status)
	}
	if doc.RevisionCount != 0 {
		t.Fatalf("fresh document revision = %d, want 0", doc.RevisionCount)
	}
	// A lone submitted document leaves the folder submitted.
	if e.folderStatus("sf-1-cf0") != domain.StatusSubmitted {
		t.Fatalf("folder status = %s, want SUBMITTED", e.folderStatus("sf-1-cf0"))
	}
}

func TestCreateDocumentUnknownFolder(t *testing.T) {
	e := newEnv()
	uc := e.documentUC()

	_, err := uc.Create(context.Background(), testSession, ports.CreateDocumentInput{
		FolderID:     "missing",
		DocumentType: "CONTRACT",
		Name:         "contract.pdf",
		URL:          "blob://contract",
	})
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateDocumentTypeScopedToKind(t *testing.T) {
	e := newEnv()
	e.seedDossier("sf-1", "company-1")
	uc := e.documentUC()

	_, err := uc.Create(context.Background(), testSession, ports.CreateDocumentInput{
		FolderID:     "sf-1-cf0", // basic folder
		DocumentType: "CIRCULATION_PERMIT",
		Name:         "permit.pdf",
		URL:          "blob://permit",
	})
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestCreateDocumentInApprovedDossierForbidden(t *testing.T) {
	e := newEnv()
	e.seedDossier("sf-1", "company-1")
	// Both seeded folders approved: the rolled-up dossier status is APPROVED.
	for _, f := range e.store.folders {
		f.Status = domain.StatusApproved
	}
	uc := e.documentUC()

	_, err := uc.Create(context.Background(), testSession, ports.CreateDocumentInput{
		FolderID:     "sf-1-cf0",
		DocumentType: "CONTRACT",
		Name:         "contract.pdf",
		URL:          "blob://contract",
	})
	if !domain.IsKind(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if len(e.store.documents) != 0 {
		t.Fatalf("no document may leak into an approved dossier")
	}
}

func TestCreateDocumentInApprovedFolderConflict(t *testing.T) {
	e := newEnv()
	e.seedDossier("sf-1", "company-1")
	// Only the basic folder is approved; the safety folder stays DRAFT, so
	// the dossier roll-up alone would not block the create.
	e.seedDocument("doc-1", "sf-1-cf0", domain.DocContract, domain.StatusApproved, "blob://c")
	for _, f := range e.store.folders {
		if f.ID == "sf-1-cf0" {
			f.Status = domain.StatusApproved
		}
	}
	uc := e.documentUC()

	_, err := uc.Create(context.Background(), testSession, ports.CreateDocumentInput{
		FolderID:     "sf-1-cf0",
		DocumentType: "INSURANCE",
		Name:         "insurance.pdf",
		URL:          "blob://ins",
	})
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if len(e.store.documents) != 1 {
		t.Fatalf("documents = %d, want the approved one only", len(e.store.documents))
	}
	if e.folderStatus("sf-1-cf0") != domain.StatusApproved {
		t.Fatalf("folder status = %s, approval must not be reopened", e.folderStatus("sf-1-cf0"))
	}
}

func TestUpdateDocumentInApprovedFolderConflict(t *testing.T) {
	e := newEnv()
	e.seedDossier("sf-1", "company-1")
	e.seedFolder("vf-1", "sf-1", domain.KindVehicle, "vehicle-1", domain.StatusApproved)
	e.seedDocument("doc-1", "vf-1", domain.DocVehicleInsurance, domain.StatusApproved, "blob://v1")
	uc := e.documentUC()

	newName := "renamed.pdf"
	_, err := uc.Update(context.Background(), testSession, ports.UpdateDocumentInput{
		DocumentID: "doc-1",
		NewName:    &newName,
	})
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if e.folderStatus("vf-1") != domain.StatusApproved {
		t.Fatalf("approved folder status must not change on rejected edit")
	}
	if e.store.documents[0].Name != string(domain.DocVehicleInsurance) {
		t.Fatalf("no partial edit may leak through")
	}
}

func TestUpdateDocumentSameURLKeepsRevision(t *testing.T) {
	e := newEnv()
	e.seedDossier("sf-1", "company-1")
	e.seedFolder("vf-1", "sf-1", domain.KindVehicle, "vehicle-1", domain.StatusSubmitted)
	e.seedDocument("doc-1", "vf-1", domain.DocVehicleInsurance, domain.StatusSubmitted, "blob://v1")
	uc := e.documentUC()

	sameURL := "blob://v1"
	newName := "metadata-only.pdf"
	doc, err := uc.Update(context.Background(), testSession, ports.UpdateDocumentInput{
		DocumentID: "doc-1",
		NewURL:     &sameURL,
		NewName:    &newName,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if doc.RevisionCount != 0 {
		t.Fatalf("revision = %d, want 0 for unchanged url", doc.RevisionCount)
	}
	if len(e.store.histories) != 0 {
		t.Fatalf("no history for metadata-only update, got %d entries", len(e.store.histories))
	}
	if doc.Status != domain.StatusDraft {
		t.Fatalf("status = %s, want DRAFT after update", doc.Status)
	}
}

func TestUpdateDocumentNewURLBumpsRevisionOnce(t *testing.T) {
	e := newEnv()
	e.seedDossier("sf-1", "company-1")
	e.seedFolder("vf-1", "sf-1", domain.KindVehicle, "vehicle-1", domain.StatusSubmitted)
	e.seedDocument("doc-1", "vf-1", domain.DocVehicleInsurance, domain.StatusSubmitted, "blob://v1")
	uc := e.documentUC()

	newURL := "blob://v2"
	doc, err := uc.Update(context.Background(), testSession, ports.UpdateDocumentInput{
		DocumentID: "doc-1",
		NewURL:     &newURL,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if doc.RevisionCount != 1 {
		t.Fatalf("revision = %d, want 1", doc.RevisionCount)
	}
	if len(e.store.histories) != 1 {
		t.Fatalf("history entries = %d, want exactly 1", len(e.store.histories))
	}
	h := e.store.histories[0]
	if h.PreviousURL != "blob://v1" || h.PreviousName != string(domain.DocVehicleInsurance) {
		t.Fatalf("history captured %q/%q, want superseded pair", h.PreviousURL, h.PreviousName)
	}
	if len(e.blob.deleted) != 1 || e.blob.deleted[0] != "blob://v1" {
		t.Fatalf("expected best-effort delete of superseded blob, got %v", e.blob.deleted)
	}
	// Folder re-aggregates: the lone document went back to draft.
	if e.folderStatus("vf-1") != domain.StatusDraft {
		t.Fatalf("folder status = %s, want DRAFT", e.folderStatus("vf-1"))
	}
}

func TestUpdateDocumentBlobDeleteFailureIsNotFatal(t *testing.T) {
	e := newEnv()
	e.seedDossier("sf-1", "company-1")
	e.seedFolder("vf-1", "sf-1", domain.KindVehicle, "vehicle-1", domain.StatusSubmitted)
	e.seedDocument("doc-1", "vf-1", domain.DocVehicleInsurance, domain.StatusSubmitted, "blob://v1")
	e.blob.deleteErr = context.DeadlineExceeded
	uc := e.documentUC()

	newURL := "blob://v2"
	doc, err := uc.Update(context.Background(), testSession, ports.UpdateDocumentInput{
		DocumentID: "doc-1",
		NewURL:     &newURL,
	})
	if err != nil {
		t.Fatalf("Update() must not fail on blob cleanup, got %v", err)
	}
	if doc.URL != "blob://v2" {
		t.Fatalf("url not updated")
	}
}

func TestReviewDocumentApproveAggregatesFolder(t *testing.T) {
	e := newEnv()
	e.seedDossier("sf-1", "company-1")
	e.seedFolder("vf-1", "sf-1", domain.KindVehicle, "vehicle-1", domain.StatusSubmitted)
	e.seedDocument("doc-1", "vf-1", domain.DocEquipmentFile, domain.StatusApproved, "blob://eq")
	e.seedDocument("doc-2", "vf-1", domain.DocVehicleInsurance, domain.StatusSubmitted, "blob://ins")
	uc := e.documentUC()

	doc, err := uc.Review(context.Background(), testSession, "doc-2", domain.DecisionApprove, "")
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if doc.Status != domain.StatusApproved {
		t.Fatalf("status = %s, want APPROVED", doc.Status)
	}
	if e.folderStatus("vf-1") != domain.StatusApproved {
		t.Fatalf("folder status = %s, want APPROVED", e.folderStatus("vf-1"))
	}
}

func TestReviewDocumentRejectRecordsReason(t *testing.T) {
	e := newEnv()
	e.seedDossier("sf-1", "company-1")
	e.seedFolder("vf-1", "sf-1", domain.KindVehicle, "vehicle-1", domain.StatusSubmitted)
	e.seedDocument("doc-1", "vf-1", domain.DocVehicleInsurance, domain.StatusSubmitted, "blob://ins")
	uc := e.documentUC()

	doc, err := uc.Review(context.Background(), testSession, "doc-1", domain.DecisionReject, "illegible scan")
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if doc.Status != domain.StatusRejected || doc.ReviewNote != "illegible scan" {
		t.Fatalf("got %s/%q, want REJECTED with reason", doc.Status, doc.ReviewNote)
	}
	if e.folderStatus("vf-1") != domain.StatusRejected {
		t.Fatalf("folder status = %s, want REJECTED", e.folderStatus("vf-1"))
	}
}

func TestReviewDocumentUndoReopensApproval(t *testing.T) {
	e := newEnv()
	e.seedDossier("sf-1", "company-1")
	e.seedFolder("vf-1", "sf-1", domain.KindVehicle, "vehicle-1", domain.StatusApproved)
	e.seedDocument("doc-1", "vf-1", domain.DocVehicleInsurance, domain.StatusApproved, "blob://ins")
	uc := e.documentUC()

	doc, err := uc.Review(context.Background(), testSession, "doc-1", domain.DecisionUndo, "")
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if doc.Status != domain.StatusSubmitted {
		t.Fatalf("status = %s, want SUBMITTED", doc.Status)
	}
	if e.folderStatus("vf-1") != domain.StatusSubmitted {
		t.Fatalf("folder status = %s, want SUBMITTED after undo", e.folderStatus("vf-1"))
	}
}

func TestReviewDocumentRequiresReviewCapability(t *testing.T) {
	e := newEnv()
	e.seedDossier("sf-1", "company-1")
	e.seedFolder("vf-1", "sf-1", domain.KindVehicle, "vehicle-1", domain.StatusSubmitted)
	e.seedDocument("doc-1", "vf-1", domain.DocVehicleInsurance, domain.StatusSubmitted, "blob://ins")
	e.authz.denied[domain.CapabilityReviewDocuments] = true
	uc := e.documentUC()

	_, err := uc.Review(context.Background(), testSession, "doc-1", domain.DecisionApprove, "")
	if !domain.IsKind(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestUpdateDocumentExpirationDate(t *testing.T) {
	e := newEnv()
	e.seedDossier("sf-1", "company-1")
	e.seedFolder("vf-1", "sf-1", domain.KindVehicle, "vehicle-1", domain.StatusSubmitted)
	e.seedDocument("doc-1", "vf-1", domain.DocVehicleInsurance, domain.StatusSubmitted, "blob://ins")
	uc := e.documentUC()

	exp := time.Now().UTC().Add(30 * 24 * time.Hour)
	doc, err := uc.Update(context.Background(), testSession, ports.UpdateDocumentInput{
		DocumentID:    "doc-1",
		NewExpiration: &exp,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if doc.ExpirationDate == nil || !doc.ExpirationDate.Equal(exp) {
		t.Fatalf("expiration not applied")
	}

	doc, err = uc.Update(context.Background(), testSession, ports.UpdateDocumentInput{
		DocumentID:      "doc-1",
		ClearExpiration: true,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if doc.ExpirationDate != nil {
		t.Fatalf("expiration not cleared")
	}
}
