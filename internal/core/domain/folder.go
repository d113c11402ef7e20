package domain

import (
	"fmt"
	"time"
)

type FolderKind string

const (
	KindBasic           FolderKind = "BASIC"
	KindWorker          FolderKind = "WORKER"
	KindVehicle         FolderKind = "VEHICLE"
	KindSafetyAndHealth FolderKind = "SAFETY_AND_HEALTH"
)

func ParseFolderKind(raw string) (FolderKind, error) {
	switch FolderKind(raw) {
	case KindBasic, KindWorker, KindVehicle, KindSafetyAndHealth:
		return FolderKind(raw), nil
	default:
		return "", WrapError(ErrValidation, "parse folder kind", fmt.Errorf("unknown kind %q", raw))
	}
}

// Linked reports whether folders of this kind carry an external entity link.
func (k FolderKind) Linked() bool {
	return k == KindWorker || k == KindVehicle
}

type StartupFolderType string

const (
	TypeOrdinary         StartupFolderType = "ORDINARY"
	TypeExtendedDuration StartupFolderType = "EXTENDED_DURATION"
)

func ParseStartupFolderType(raw string) (StartupFolderType, error) {
	switch StartupFolderType(raw) {
	case TypeOrdinary, TypeExtendedDuration:
		return StartupFolderType(raw), nil
	default:
		return "", WrapError(ErrValidation, "parse startup folder type", fmt.Errorf("unknown type %q", raw))
	}
}

// StartupFolder is the root onboarding dossier for a contractor company.
// It carries no persisted status of its own; the root view is rolled up from
// its category folders.
type StartupFolder struct {
	ID               string            `json:"id"`
	CompanyID        string            `json:"company_id"`
	Name             string            `json:"name"`
	Type             StartupFolderType `json:"type"`
	ExtendedDuration bool              `json:"extended_duration"`
	CreatedAt        time.Time         `json:"created_at"`
}

// CategoryFolder is the tagged variant behind the four folder categories:
// kind discriminates, LinkedEntityID is set only for WORKER/VEHICLE folders.
type CategoryFolder struct {
	ID              string       `json:"id"`
	StartupFolderID string       `json:"startup_folder_id"`
	Kind            FolderKind   `json:"kind"`
	LinkedEntityID  string       `json:"linked_entity_id,omitempty"`
	Status          ReviewStatus `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Worker is a directory record owned by the wider portal; the compliance core
// only reads it for link eligibility checks.
type Worker struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	FullName  string `json:"full_name"`
	Active    bool   `json:"active"`
}

type Vehicle struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Plate     string `json:"plate"`
	Active    bool   `json:"active"`
}

// LinkedEntity pairs an already-linked entity with its folder's status.
type LinkedEntity struct {
	EntityID string       `json:"entity_id"`
	FolderID string       `json:"folder_id"`
	Status   ReviewStatus `json:"status"`
}

// LinkCandidates is the one-transaction listing used to drive selection UIs:
// the two sets are disjoint by construction.
type LinkCandidates struct {
	Linked   []LinkedEntity `json:"linked"`
	Eligible []string       `json:"eligible"`
}

// DocumentSlot is the read-model view of one required checklist position.
// Empty slots surface as NOT_UPLOADED without any document row existing.
type DocumentSlot struct {
	DocumentType DocumentType `json:"document_type"`
	Status       ReviewStatus `json:"status"`
	Document     *Document    `json:"document,omitempty"`
}

// FolderView is a category folder with its documents and required-slot view.
type FolderView struct {
	Folder    CategoryFolder `json:"folder"`
	Documents []Document     `json:"documents"`
	Slots     []DocumentSlot `json:"slots"`
}

// StartupFolderView is the root read model: the dossier, its folders, and the
// rolled-up status across them.
type StartupFolderView struct {
	StartupFolder StartupFolder `json:"startup_folder"`
	Folders       []FolderView  `json:"folders"`
	RolledUp      ReviewStatus  `json:"rolled_up_status"`
}

// BuildSlots merges a folder's documents into its required checklist types.
// Documents outside the checklist are appended after the required slots.
func BuildSlots(required []DocumentType, docs []Document, now time.Time) []DocumentSlot {
	slots := make([]DocumentSlot, 0, len(required))
	seen := make(map[string]bool, len(docs))

	for _, dt := range required {
		slot := DocumentSlot{DocumentType: dt, Status: StatusNotUploaded}
		for i := range docs {
			if docs[i].DocumentType == dt {
				doc := docs[i]
				slot.Status = doc.EffectiveStatus(now)
				slot.Document = &doc
				seen[doc.ID] = true
				break
			}
		}
		slots = append(slots, slot)
	}

	for i := range docs {
		if seen[docs[i].ID] {
			continue
		}
		doc := docs[i]
		slots = append(slots, DocumentSlot{
			DocumentType: doc.DocumentType,
			Status:       doc.EffectiveStatus(now),
			Document:     &doc,
		})
	}
	return slots
}
