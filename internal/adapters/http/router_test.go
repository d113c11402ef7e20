package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/construo/opsportal/internal/core/domain"
	"github.com/construo/opsportal/internal/core/ports"
)

const testSecret = "test-secret"

type fakeStartupFolderService struct {
	created   *ports.CreateStartupFolderInput
	createErr error
	getErr    error
	deleteErr error
}

func (f *fakeStartupFolderService) Create(_ context.Context, _ domain.Session, in ports.CreateStartupFolderInput) (*domain.StartupFolder, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = &in
	return &domain.StartupFolder{ID: "sf-1", CompanyID: in.CompanyID, Name: in.Name, Type: in.Type}, nil
}

func (f *fakeStartupFolderService) Rename(_ context.Context, _ domain.Session, id, name string) (*domain.StartupFolder, error) {
	return &domain.StartupFolder{ID: id, Name: name}, nil
}

func (f *fakeStartupFolderService) Delete(context.Context, domain.Session, string) error {
	return f.deleteErr
}

func (f *fakeStartupFolderService) Get(_ context.Context, _ domain.Session, id string) (*domain.StartupFolderView, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &domain.StartupFolderView{
		StartupFolder: domain.StartupFolder{ID: id},
		RolledUp:      domain.StatusDraft,
	}, nil
}

type fakeDocumentService struct {
	created   *ports.CreateDocumentInput
	createErr error
	reviewed  domain.ReviewDecision
}

func (f *fakeDocumentService) Create(_ context.Context, _ domain.Session, in ports.CreateDocumentInput) (*domain.Document, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = &in
	return &domain.Document{ID: "doc-1", FolderID: in.FolderID, URL: in.URL}, nil
}

func (f *fakeDocumentService) Update(_ context.Context, _ domain.Session, in ports.UpdateDocumentInput) (*domain.Document, error) {
	return &domain.Document{ID: in.DocumentID}, nil
}

func (f *fakeDocumentService) Review(_ context.Context, _ domain.Session, id string, decision domain.ReviewDecision, _ string) (*domain.Document, error) {
	f.reviewed = decision
	return &domain.Document{ID: id, Status: domain.StatusApproved}, nil
}

type fakeLinkingService struct {
	linkErr error
}

func (f *fakeLinkingService) Link(_ context.Context, _ domain.Session, _ string, kind domain.FolderKind, entityID string) (*domain.CategoryFolder, error) {
	if f.linkErr != nil {
		return nil, f.linkErr
	}
	return &domain.CategoryFolder{ID: "cf-1", Kind: kind, LinkedEntityID: entityID}, nil
}

func (f *fakeLinkingService) Unlink(context.Context, domain.Session, string, domain.FolderKind, string) ([]string, error) {
	return []string{"w-1"}, nil
}

func (f *fakeLinkingService) ListCandidates(context.Context, domain.Session, string, domain.FolderKind) (*domain.LinkCandidates, error) {
	return &domain.LinkCandidates{Eligible: []string{"w-2"}}, nil
}

type fakeReporter struct{}

func (fakeReporter) CompanyReport(_ context.Context, _ domain.Session, companyID string) (*domain.CompanyComplianceReport, error) {
	return &domain.CompanyComplianceReport{
		CompanyID:   companyID,
		GeneratedAt: time.Now().UTC(),
		Status:      domain.StatusDraft,
	}, nil
}

type fakeSweeper struct{}

func (fakeSweeper) Sweep(context.Context, time.Time) (*ports.SweepResult, error) {
	return &ports.SweepResult{DocumentsExpired: 2, FoldersUpdated: 1}, nil
}

type fakeBlobStorage struct {
	puts    []string
	deleted []string
	putErr  error
}

func (f *fakeBlobStorage) Put(_ context.Context, key string, _ io.Reader) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	url := "blob://" + key
	f.puts = append(f.puts, url)
	return url, nil
}

func (f *fakeBlobStorage) Delete(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

type routerFixture struct {
	handler http.Handler
	folders *fakeStartupFolderService
	docs    *fakeDocumentService
	linking *fakeLinkingService
	blobs   *fakeBlobStorage
}

func newFixture(t *testing.T, opts Options) *routerFixture {
	t.Helper()
	folders := &fakeStartupFolderService{}
	docs := &fakeDocumentService{}
	linking := &fakeLinkingService{}
	blobs := &fakeBlobStorage{}

	if opts.JWTSecret == "" {
		opts.JWTSecret = testSecret
	}
	router := NewRouter(folders, docs, linking, fakeReporter{}, fakeSweeper{}, blobs, nil, nil, opts)
	return &routerFixture{
		handler: router.Handler(),
		folders: folders,
		docs:    docs,
		linking: linking,
		blobs:   blobs,
	}
}

func authedRequest(t *testing.T, method, target string, body *bytes.Buffer) *http.Request {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	token, err := GenerateToken(testSecret, "user-1", "company-1",
		[]string{domain.CapabilityManageFolders, domain.CapabilityReviewDocuments, domain.CapabilityViewReports},
		time.Hour,
	)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestRequestWithoutTokenIsRejected(t *testing.T) {
	fx := newFixture(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/v1/startup-folders/sf-1", nil)
	res := httptest.NewRecorder()
	fx.handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.Code)
	}
}

func TestCreateStartupFolderUsesSessionCompany(t *testing.T) {
	fx := newFixture(t, Options{})

	body := bytes.NewBufferString(`{"name":"Obra Norte","type":"ORDINARY"}`)
	req := authedRequest(t, http.MethodPost, "/v1/startup-folders", body)
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	fx.handler.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", res.Code, res.Body.String())
	}
	if fx.folders.created == nil || fx.folders.created.CompanyID != "company-1" {
		t.Fatalf("company id not taken from session: %+v", fx.folders.created)
	}
}

func TestCreateStartupFolderRejectsUnknownType(t *testing.T) {
	fx := newFixture(t, Options{})

	body := bytes.NewBufferString(`{"name":"Obra","type":"WEEKLY"}`)
	req := authedRequest(t, http.MethodPost, "/v1/startup-folders", body)
	res := httptest.NewRecorder()
	fx.handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
}

func TestErrorKindsMapToStatusCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", domain.WrapError(domain.ErrNotFound, "get", fmt.Errorf("gone")), http.StatusNotFound},
		{"conflict", domain.WrapError(domain.ErrConflict, "create", fmt.Errorf("dup")), http.StatusConflict},
		{"forbidden", domain.WrapError(domain.ErrForbidden, "create", fmt.Errorf("sealed")), http.StatusForbidden},
		{"internal", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFixture(t, Options{})
			fx.folders.getErr = tc.err

			req := authedRequest(t, http.MethodGet, "/v1/startup-folders/sf-1", nil)
			res := httptest.NewRecorder()
			fx.handler.ServeHTTP(res, req)

			if res.Code != tc.want {
				t.Fatalf("status = %d, want %d", res.Code, tc.want)
			}
		})
	}
}

func TestInternalErrorBodyIsOpaque(t *testing.T) {
	fx := newFixture(t, Options{})
	fx.folders.getErr = fmt.Errorf("pq: connection refused at 10.0.0.5")

	req := authedRequest(t, http.MethodGet, "/v1/startup-folders/sf-1", nil)
	res := httptest.NewRecorder()
	fx.handler.ServeHTTP(res, req)

	if strings.Contains(res.Body.String(), "10.0.0.5") {
		t.Fatalf("internal error details leaked: %s", res.Body.String())
	}
}

func TestUploadDocumentStoresBlobBeforeCreate(t *testing.T) {
	fx := newFixture(t, Options{})

	body, contentType := multipartUpload(t, "contract.pdf", "CONTRACT", "payload")
	req := authedRequest(t, http.MethodPost, "/v1/folders/cf-1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	fx.handler.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", res.Code, res.Body.String())
	}
	if len(fx.blobs.puts) != 1 {
		t.Fatalf("blob puts = %d, want 1", len(fx.blobs.puts))
	}
	if fx.docs.created == nil || fx.docs.created.URL != fx.blobs.puts[0] {
		t.Fatalf("document create did not receive stored blob url")
	}
	if len(fx.blobs.deleted) != 0 {
		t.Fatalf("unexpected blob cleanup on success")
	}
}

func TestUploadDocumentCleansUpBlobOnServiceError(t *testing.T) {
	fx := newFixture(t, Options{})
	fx.docs.createErr = domain.WrapError(domain.ErrConflict, "create document", fmt.Errorf("folder sealed"))

	body, contentType := multipartUpload(t, "contract.pdf", "CONTRACT", "payload")
	req := authedRequest(t, http.MethodPost, "/v1/folders/cf-1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	fx.handler.ServeHTTP(res, req)

	if res.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", res.Code)
	}
	if len(fx.blobs.deleted) != 1 {
		t.Fatalf("expected orphaned blob to be deleted, got %v", fx.blobs.deleted)
	}
}

func TestReviewDocumentRejectsUnknownDecision(t *testing.T) {
	fx := newFixture(t, Options{})

	body := bytes.NewBufferString(`{"decision":"ESCALATE"}`)
	req := authedRequest(t, http.MethodPost, "/v1/documents/doc-1/review", body)
	res := httptest.NewRecorder()
	fx.handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
}

func TestReviewDocumentAppliesDecision(t *testing.T) {
	fx := newFixture(t, Options{})

	body := bytes.NewBufferString(`{"decision":"APPROVE"}`)
	req := authedRequest(t, http.MethodPost, "/v1/documents/doc-1/review", body)
	res := httptest.NewRecorder()
	fx.handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", res.Code, res.Body.String())
	}
	if fx.docs.reviewed != domain.DecisionApprove {
		t.Fatalf("decision = %s", fx.docs.reviewed)
	}
}

func TestLinkCandidatesRequireValidKind(t *testing.T) {
	fx := newFixture(t, Options{})

	req := authedRequest(t, http.MethodGet, "/v1/startup-folders/sf-1/link-candidates?kind=PETS", nil)
	res := httptest.NewRecorder()
	fx.handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
}

func TestUnlinkReturnsRemovedEntities(t *testing.T) {
	fx := newFixture(t, Options{})

	req := authedRequest(t, http.MethodDelete, "/v1/startup-folders/sf-1/links/WORKER/w-1", nil)
	res := httptest.NewRecorder()
	fx.handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", res.Code, res.Body.String())
	}
	var resp map[string][]string
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp["unlinked"]) != 1 || resp["unlinked"][0] != "w-1" {
		t.Fatalf("unlinked = %v", resp["unlinked"])
	}
}

func TestExpireSweepReturnsResult(t *testing.T) {
	fx := newFixture(t, Options{})

	req := authedRequest(t, http.MethodPost, "/v1/admin/expire-sweep", nil)
	res := httptest.NewRecorder()
	fx.handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", res.Code, res.Body.String())
	}
	var result ports.SweepResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.DocumentsExpired != 2 {
		t.Fatalf("documents expired = %d", result.DocumentsExpired)
	}
}

func TestExpireSweepRequiresManageCapability(t *testing.T) {
	fx := newFixture(t, Options{})

	token, err := GenerateToken(testSecret, "user-1", "company-1",
		[]string{domain.CapabilityViewReports}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/expire-sweep", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	fx.handler.ServeHTTP(res, req)

	if res.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", res.Code)
	}
}

func TestHealthzIsPublic(t *testing.T) {
	fx := newFixture(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	fx.handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}
}

func multipartUpload(t *testing.T, filename, docType, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.WriteField("document_type", docType); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}
