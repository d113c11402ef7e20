package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/construo/opsportal/internal/core/domain"
)

type DocumentRepository struct {
	q querier
}

func NewDocumentRepository(q querier) *DocumentRepository {
	return &DocumentRepository{q: q}
}

const documentColumns = `id, folder_id, document_type, name, url, mime_type, size, status, review_note,
	expiration_date, registration_date, revision_count, uploaded_by_id, uploaded_at, updated_at`

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.q.ExecContext(ctx, `
INSERT INTO documents (
	id, folder_id, document_type, name, url, mime_type, size, status, review_note,
	expiration_date, registration_date, revision_count, uploaded_by_id, uploaded_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`,
		doc.ID, doc.FolderID, string(doc.DocumentType), doc.Name, doc.URL, doc.MimeType, doc.Size,
		string(doc.Status), doc.ReviewNote, doc.ExpirationDate, doc.RegistrationDate,
		doc.RevisionCount, doc.UploadedByID, doc.UploadedAt, doc.UpdatedAt,
	)
	return mapWriteError("insert document", err)
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := scanDocument(r.q.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get document", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) ListByFolder(ctx context.Context, folderID string) ([]domain.Document, error) {
	rows, err := r.q.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE folder_id = $1
ORDER BY registration_date`, folderID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *doc)
	}
	return out, rows.Err()
}

func (r *DocumentRepository) Update(ctx context.Context, doc *domain.Document) error {
	res, err := r.q.ExecContext(ctx, `
UPDATE documents
SET name = $2, url = $3, status = $4, review_note = $5, expiration_date = $6,
	revision_count = $7, updated_at = $8
WHERE id = $1
`,
		doc.ID, doc.Name, doc.URL, string(doc.Status), doc.ReviewNote,
		doc.ExpirationDate, doc.RevisionCount, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return requireRow(res, "update document", doc.ID)
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.ReviewStatus, note string) error {
	res, err := r.q.ExecContext(ctx, `
UPDATE documents
SET status = $2, review_note = $3, updated_at = $4
WHERE id = $1
`, id, string(status), note, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireRow(res, "update document status", id)
}

func (r *DocumentRepository) AppendHistory(ctx context.Context, entry *domain.DocumentHistory) error {
	_, err := r.q.ExecContext(ctx, `
INSERT INTO document_histories (id, document_id, previous_url, previous_name, modified_by_id, modified_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, entry.ID, entry.DocumentID, entry.PreviousURL, entry.PreviousName, entry.ModifiedByID, entry.ModifiedAt)
	return mapWriteError("insert document history", err)
}

func (r *DocumentRepository) ListHistory(ctx context.Context, documentID string) ([]domain.DocumentHistory, error) {
	rows, err := r.q.QueryContext(ctx, `
SELECT id, document_id, previous_url, previous_name, modified_by_id, modified_at
FROM document_histories
WHERE document_id = $1
ORDER BY modified_at`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document history: %w", err)
	}
	defer rows.Close()

	var out []domain.DocumentHistory
	for rows.Next() {
		var h domain.DocumentHistory
		if err := rows.Scan(&h.ID, &h.DocumentID, &h.PreviousURL, &h.PreviousName, &h.ModifiedByID, &h.ModifiedAt); err != nil {
			return nil, fmt.Errorf("scan document history: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *DocumentRepository) DeleteByFolder(ctx context.Context, folderID string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM documents WHERE folder_id = $1`, folderID); err != nil {
		return fmt.Errorf("delete documents by folder: %w", err)
	}
	return nil
}

func (r *DocumentRepository) DeleteHistoryByFolder(ctx context.Context, folderID string) error {
	_, err := r.q.ExecContext(ctx, `
DELETE FROM document_histories
WHERE document_id IN (SELECT id FROM documents WHERE folder_id = $1)
`, folderID)
	if err != nil {
		return fmt.Errorf("delete histories by folder: %w", err)
	}
	return nil
}

func (r *DocumentRepository) ListLapsedApproved(ctx context.Context, startupFolderID string, now time.Time) ([]domain.Document, error) {
	rows, err := r.q.QueryContext(ctx, `
SELECT d.id, d.folder_id, d.document_type, d.name, d.url, d.mime_type, d.size, d.status, d.review_note,
	d.expiration_date, d.registration_date, d.revision_count, d.uploaded_by_id, d.uploaded_at, d.updated_at
FROM documents d
JOIN category_folders cf ON cf.id = d.folder_id
WHERE cf.startup_folder_id = $1
	AND d.status = $2
	AND d.expiration_date IS NOT NULL
	AND d.expiration_date < $3
`, startupFolderID, string(domain.StatusApproved), now)
	if err != nil {
		return nil, fmt.Errorf("list lapsed documents: %w", err)
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *doc)
	}
	return out, rows.Err()
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var docType, status string
	var expiration sql.NullTime
	if err := row.Scan(
		&doc.ID, &doc.FolderID, &docType, &doc.Name, &doc.URL, &doc.MimeType, &doc.Size,
		&status, &doc.ReviewNote, &expiration, &doc.RegistrationDate,
		&doc.RevisionCount, &doc.UploadedByID, &doc.UploadedAt, &doc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	doc.DocumentType = domain.DocumentType(docType)
	doc.Status = domain.ReviewStatus(status)
	if expiration.Valid {
		t := expiration.Time
		doc.ExpirationDate = &t
	}
	return &doc, nil
}
