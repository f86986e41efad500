package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xelth-com/eckpunchgo/internal/services/printer"
	"go.uber.org/zap"
)

// ResetRequest wipes the ledger. Confirm must literally be "RESET".
type ResetRequest struct {
	Confirm       string `json:"confirm" validate:"required,eq=RESET"`
	KeepDirectory bool   `json:"keepDirectory"`
}

func (r *Router) exportCSV(w http.ResponseWriter, req *http.Request) {
	r.serveExport(w, req, r.deps.Exporter.CSV, "text/csv")
}

func (r *Router) exportXLSX(w http.ResponseWriter, req *http.Request) {
	r.serveExport(w, req, r.deps.Exporter.XLSX, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

func (r *Router) serveExport(w http.ResponseWriter, req *http.Request, run func(from, to *time.Time) (string, error), contentType string) {
	from, to, ok := parseRange(w, req)
	if !ok {
		return
	}
	path, err := run(from, to)
	if err != nil {
		r.respondStoreError(w, err)
		return
	}
	if path == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, req, path)
}

func (r *Router) runBackup(w http.ResponseWriter, req *http.Request) {
	dir, err := r.deps.Backup.DailyBackup(req.Context())
	if err != nil {
		r.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"path": dir})
}

func (r *Router) resetAll(w http.ResponseWriter, req *http.Request) {
	var body ResetRequest
	if !r.decode(w, req, &body) {
		return
	}
	if err := r.deps.Store.ResetAll(body.KeepDirectory); err != nil {
		r.respondStoreError(w, err)
		return
	}
	r.log.Warn("ledger reset by operator", zap.Bool("keep_directory", body.KeepDirectory))
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) badgeSheet(w http.ResponseWriter, req *http.Request) {
	employees, err := r.deps.Store.Employees()
	if err != nil {
		r.respondStoreError(w, err)
		return
	}

	pdfBytes, err := printer.GenerateBadgeSheet(employees, printer.DefaultSheet)
	if errors.Is(err, printer.ErrNoEmployees) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate PDF: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\"badges.pdf\"")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdfBytes)))
	w.Write(pdfBytes)
}

func (r *Router) odooSync(w http.ResponseWriter, req *http.Request) {
	if r.deps.Odoo == nil || !r.deps.Odoo.Enabled() {
		respondError(w, http.StatusServiceUnavailable, "Odoo sync is not configured")
		return
	}
	res, err := r.deps.Odoo.SyncNow()
	if err != nil {
		r.log.Error("manual Odoo sync failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, res)
}
