package domain

// Checklist names the mandatory document types per folder kind. It is static
// configuration: missing entries mean the kind has no required slots.
type Checklist struct {
	Required map[FolderKind][]DocumentType
}

func (c Checklist) RequiredFor(kind FolderKind) []DocumentType {
	return c.Required[kind]
}

// Capabilities consumed by the core as boolean checks. Role computation is the
// portal's concern.
const (
	CapabilityManageFolders   = "startup_folders.manage"
	CapabilityReviewDocuments = "startup_folders.review"
	CapabilityViewReports     = "startup_folders.view_reports"
)
