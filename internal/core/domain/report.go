package domain

import "time"

// FolderReport summarizes one category folder for compliance reporting.
type FolderReport struct {
	FolderID       string         `json:"folder_id"`
	Kind           FolderKind     `json:"kind"`
	LinkedEntityID string         `json:"linked_entity_id,omitempty"`
	Status         ReviewStatus   `json:"status"`
	Documents      []DocumentSlot `json:"documents"`
	MissingTypes   []DocumentType `json:"missing_types,omitempty"`
}

// StartupFolderReport rolls one dossier up from its folder reports.
type StartupFolderReport struct {
	StartupFolder StartupFolder  `json:"startup_folder"`
	Status        ReviewStatus   `json:"status"`
	Folders       []FolderReport `json:"folders"`
}

// CompanyComplianceReport is the company-level roll-up consumed by reporting
// surfaces and the workbook exporter.
type CompanyComplianceReport struct {
	CompanyID   string                `json:"company_id"`
	GeneratedAt time.Time             `json:"generated_at"`
	Status      ReviewStatus          `json:"status"`
	Dossiers    []StartupFolderReport `json:"dossiers"`
}
