package httpadapter

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/construo/opsportal/internal/core/domain"
)

func (rt *Router) companyReport(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}

	report, err := rt.reporter.CompanyReport(r.Context(), session, chi.URLParam(r, "companyID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "xlsx" {
		if rt.exporter == nil {
			writeJSON(w, http.StatusNotImplemented, errorBody{Error: "workbook export is not enabled"})
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(
			"attachment; filename=%q",
			fmt.Sprintf("compliance-%s-%s.xlsx", report.CompanyID, report.GeneratedAt.UTC().Format("20060102")),
		))
		if err := rt.exporter.Export(report, w); err != nil {
			// Headers are already on the wire; all we can do is log.
			slog.Error("report_export_failed",
				"request_id", requestIDFromContext(r.Context()),
				"company_id", report.CompanyID,
				"error", err,
			)
			return
		}
		if rt.metrics != nil {
			rt.metrics.RecordReportGenerated(rt.opts.ServiceName, "xlsx")
		}
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordReportGenerated(rt.opts.ServiceName, "json")
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) expireSweep(w http.ResponseWriter, r *http.Request) {
	if _, ok := sessionFromContext(r.Context()); !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}
	// The sweep touches every company's rows, so a plain session is not enough.
	if !hasCapability(r.Context(), domain.CapabilityManageFolders) {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
		return
	}

	result, err := rt.sweeper.Sweep(r.Context(), time.Now().UTC())
	rt.recordOperation("sweep", "expire", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordExpiredDocuments(rt.opts.ServiceName, "sweep", result.DocumentsExpired)
	}
	writeJSON(w, http.StatusOK, result)
}
