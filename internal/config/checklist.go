package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/construo/opsportal/internal/core/domain"
)

type checklistFile struct {
	Required map[string][]string `yaml:"required"`
}

// LoadChecklist reads the required-document checklist from path. An empty
// path yields the built-in default.
func LoadChecklist(path string) (domain.Checklist, error) {
	if path == "" {
		return DefaultChecklist(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Checklist{}, fmt.Errorf("read checklist: %w", err)
	}

	var file checklistFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return domain.Checklist{}, fmt.Errorf("parse checklist: %w", err)
	}

	required := make(map[domain.FolderKind][]domain.DocumentType, len(file.Required))
	for rawKind, rawTypes := range file.Required {
		kind, err := domain.ParseFolderKind(rawKind)
		if err != nil {
			return domain.Checklist{}, fmt.Errorf("checklist kind %q: %w", rawKind, err)
		}
		types := make([]domain.DocumentType, 0, len(rawTypes))
		for _, rawType := range rawTypes {
			docType, err := domain.ParseDocumentType(kind, rawType)
			if err != nil {
				return domain.Checklist{}, fmt.Errorf("checklist type %q for kind %s: %w", rawType, kind, err)
			}
			types = append(types, docType)
		}
		required[kind] = types
	}
	return domain.Checklist{Required: required}, nil
}

// DefaultChecklist requires every known document type for its kind.
func DefaultChecklist() domain.Checklist {
	return domain.Checklist{
		Required: map[domain.FolderKind][]domain.DocumentType{
			domain.KindBasic: {
				domain.DocContract,
				domain.DocInsurance,
				domain.DocPPEReceipt,
			},
			domain.KindWorker: {
				domain.DocIDCard,
				domain.DocMedicalExam,
				domain.DocSocialSecurity,
				domain.DocTrainingCertificate,
			},
			domain.KindVehicle: {
				domain.DocVehicleRegistration,
				domain.DocCirculationPermit,
				domain.DocVehicleInsurance,
				domain.DocTechnicalReview,
			},
			domain.KindSafetyAndHealth: {
				domain.DocRiskAssessment,
				domain.DocEmergencyPlan,
			},
		},
	}
}
