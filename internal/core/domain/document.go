package domain

import (
	"fmt"
	"time"
)

type DocumentType string

// Basic employment documents.
const (
	DocContract   DocumentType = "CONTRACT"
	DocInsurance  DocumentType = "INSURANCE"
	DocPPEReceipt DocumentType = "PPE_RECEIPT"
)

// Per-worker documents.
const (
	DocIDCard              DocumentType = "ID_CARD"
	DocMedicalExam         DocumentType = "MEDICAL_EXAM"
	DocSocialSecurity      DocumentType = "SOCIAL_SECURITY"
	DocTrainingCertificate DocumentType = "TRAINING_CERTIFICATE"
)

// Per-vehicle documents.
const (
	DocVehicleRegistration DocumentType = "VEHICLE_REGISTRATION"
	DocCirculationPermit   DocumentType = "CIRCULATION_PERMIT"
	DocVehicleInsurance    DocumentType = "VEHICLE_INSURANCE"
	DocTechnicalReview     DocumentType = "TECHNICAL_REVIEW"
	DocEquipmentFile       DocumentType = "EQUIPMENT_FILE"
)

// Safety-and-health / environmental documents.
const (
	DocRiskAssessment      DocumentType = "RISK_ASSESSMENT"
	DocEmergencyPlan       DocumentType = "EMERGENCY_PLAN"
	DocEnvironmentalPermit DocumentType = "ENVIRONMENTAL_PERMIT"
	DocWasteManagementPlan DocumentType = "WASTE_MANAGEMENT_PLAN"
)

var documentTypesByKind = map[FolderKind][]DocumentType{
	KindBasic:           {DocContract, DocInsurance, DocPPEReceipt},
	KindWorker:          {DocIDCard, DocMedicalExam, DocSocialSecurity, DocTrainingCertificate},
	KindVehicle:         {DocVehicleRegistration, DocCirculationPermit, DocVehicleInsurance, DocTechnicalReview, DocEquipmentFile},
	KindSafetyAndHealth: {DocRiskAssessment, DocEmergencyPlan, DocEnvironmentalPermit, DocWasteManagementPlan},
}

// DocumentTypesForKind returns the closed set of document types a folder kind accepts.
func DocumentTypesForKind(kind FolderKind) []DocumentType {
	return documentTypesByKind[kind]
}

// ParseDocumentType validates a raw document type against the folder kind's enum.
func ParseDocumentType(kind FolderKind, raw string) (DocumentType, error) {
	for _, dt := range documentTypesByKind[kind] {
		if string(dt) == raw {
			return dt, nil
		}
	}
	return "", WrapError(ErrValidation, "parse document type",
		fmt.Errorf("type %q is not valid for %s folders", raw, kind))
}

type Document struct {
	ID               string       `json:"id"`
	FolderID         string       `json:"folder_id"`
	DocumentType     DocumentType `json:"document_type"`
	Name             string       `json:"name"`
	URL              string       `json:"url"`
	MimeType         string       `json:"mime_type,omitempty"`
	Size             int64        `json:"size,omitempty"`
	Status           ReviewStatus `json:"status"`
	ReviewNote       string       `json:"review_note,omitempty"`
	ExpirationDate   *time.Time   `json:"expiration_date,omitempty"`
	RegistrationDate time.Time    `json:"registration_date"`
	RevisionCount    int          `json:"revision_count"`
	UploadedByID     string       `json:"uploaded_by_id"`
	UploadedAt       time.Time    `json:"uploaded_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Expired reports whether the document's expiration date has elapsed.
func (d Document) Expired(now time.Time) bool {
	return d.ExpirationDate != nil && d.ExpirationDate.Before(now)
}

// EffectiveStatus folds lazy expiration into the stored status: an approved
// document whose expiration date has elapsed counts as expired without any
// clock-driven process having touched the row.
func (d Document) EffectiveStatus(now time.Time) ReviewStatus {
	if d.Status == StatusApproved && d.Expired(now) {
		return StatusExpired
	}
	return d.Status
}

// DocumentHistory is an append-only record of a superseded (url, name) pair.
type DocumentHistory struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	PreviousURL  string    `json:"previous_url"`
	PreviousName string    `json:"previous_name"`
	ModifiedByID string    `json:"modified_by_id"`
	ModifiedAt   time.Time `json:"modified_at"`
}
