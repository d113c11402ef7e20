// Package excel renders compliance reports as xlsx workbooks, one sheet per
// dossier plus a summary sheet.
package excel

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/construo/opsportal/internal/core/domain"
)

const (
	summarySheet = "Summary"
	dateLayout   = "2006-01-02"
)

type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

// Export writes the workbook for report to w.
func (e *Exporter) Export(report *domain.CompanyComplianceReport, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := e.writeSummary(f, report); err != nil {
		return err
	}
	for i := range report.Dossiers {
		if err := e.writeDossier(f, &report.Dossiers[i], i); err != nil {
			return err
		}
	}

	// The default sheet becomes the summary.
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (e *Exporter) writeSummary(f *excelize.File, report *domain.CompanyComplianceReport) error {
	rows := [][]any{
		{"Company", report.CompanyID},
		{"Generated", report.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Overall status", string(report.Status)},
		{},
		{"Dossier", "Type", "Status", "Folders"},
	}
	for _, dossier := range report.Dossiers {
		rows = append(rows, []any{
			dossier.StartupFolder.Name,
			string(dossier.StartupFolder.Type),
			string(dossier.Status),
			len(dossier.Folders),
		})
	}
	if err := writeRows(f, "Sheet1", rows); err != nil {
		return err
	}
	return f.SetColWidth("Sheet1", "A", "D", 24)
}

func (e *Exporter) writeDossier(f *excelize.File, dossier *domain.StartupFolderReport, index int) error {
	sheet := fmt.Sprintf("%d %s", index+1, sanitizeSheetName(dossier.StartupFolder.Name))
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %q: %w", sheet, err)
	}

	rows := [][]any{
		{"Dossier", dossier.StartupFolder.Name, "Status", string(dossier.Status)},
		{},
		{"Folder kind", "Linked entity", "Document type", "Document", "Status", "Expires", "Revision"},
	}
	for _, folder := range dossier.Folders {
		for _, slot := range folder.Documents {
			row := []any{
				string(folder.Kind),
				folder.LinkedEntityID,
				string(slot.DocumentType),
			}
			if slot.Document != nil {
				expires := ""
				if slot.Document.ExpirationDate != nil {
					expires = slot.Document.ExpirationDate.UTC().Format(dateLayout)
				}
				row = append(row, slot.Document.Name, string(slot.Status), expires, slot.Document.RevisionCount)
			} else {
				row = append(row, "", string(slot.Status), "", "")
			}
			rows = append(rows, row)
		}
		for _, missing := range folder.MissingTypes {
			rows = append(rows, []any{
				string(folder.Kind), folder.LinkedEntityID, string(missing),
				"", string(domain.StatusNotUploaded), "", "",
			})
		}
	}

	if err := writeRows(f, sheet, rows); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", "G", 22)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d on %q: %w", i+1, sheet, err)
		}
	}
	return nil
}

// sanitizeSheetName keeps names inside the xlsx 31-char limit and strips the
// characters the format forbids.
func sanitizeSheetName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			continue
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return "Dossier"
	}
	if len(out) > 28 {
		out = out[:28]
	}
	return string(out)
}
