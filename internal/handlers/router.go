package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/xelth-com/eckpunchgo/internal/backup"
	"github.com/xelth-com/eckpunchgo/internal/buildinfo"
	"github.com/xelth-com/eckpunchgo/internal/export"
	"github.com/xelth-com/eckpunchgo/internal/kiosk"
	"github.com/xelth-com/eckpunchgo/internal/ledger"
	"github.com/xelth-com/eckpunchgo/internal/middleware"
	"github.com/xelth-com/eckpunchgo/internal/services/odoo"
	"github.com/xelth-com/eckpunchgo/internal/websocket"
	"go.uber.org/zap"
)

// AuthConfig holds the single operator account
type AuthConfig struct {
	JWTSecret         string
	AdminUsername     string
	AdminPasswordHash string
}

// Deps are the components the API exposes. Odoo may be nil.
type Deps struct {
	Store    *ledger.Store
	Terminal *kiosk.Terminal
	Exporter *export.Exporter
	Backup   *backup.Manager
	Hub      *websocket.Hub
	Odoo     *odoo.SyncService
	Auth     AuthConfig
}

// Router wraps the mux router and the kiosk components
type Router struct {
	*mux.Router
	deps     Deps
	validate *validator.Validate
	log      *zap.Logger
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(deps Deps, log *zap.Logger) *Router {
	r := &Router{
		Router:   mux.NewRouter(),
		deps:     deps,
		validate: validator.New(),
		log:      log.Named("http"),
	}

	r.HandleFunc("/health", r.healthCheck).Methods("GET")
	r.HandleFunc("/auth/login", r.login).Methods("POST")
	r.HandleFunc("/ws", r.serveWs).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.RequestLogger(r.log), middleware.AuthMiddleware(deps.Auth.JWTSecret))

	// Punches
	api.HandleFunc("/punches/today", r.punchesToday).Methods("GET")
	api.HandleFunc("/punches/last/{badge}", r.lastPunch).Methods("GET")
	api.HandleFunc("/punches", r.punchesRange).Methods("GET")
	api.HandleFunc("/punches", r.createPunch).Methods("POST")
	api.HandleFunc("/stats", r.stats).Methods("GET")

	// Directory
	api.HandleFunc("/employees", r.listEmployees).Methods("GET")
	api.HandleFunc("/employees/by-badge/{badge}", r.employeeByBadge).Methods("GET")
	api.HandleFunc("/employees/{code}", r.getEmployee).Methods("GET")
	api.HandleFunc("/employees/{code}", r.putEmployee).Methods("PUT")
	api.HandleFunc("/employees/{code}/badge", r.bindBadge).Methods("PUT")
	api.HandleFunc("/employees/{code}/badge", r.unbindBadge).Methods("DELETE")

	// Export, backup and maintenance
	api.HandleFunc("/export/csv", r.exportCSV).Methods("GET")
	api.HandleFunc("/export/xlsx", r.exportXLSX).Methods("GET")
	api.HandleFunc("/backup", r.runBackup).Methods("POST")
	api.HandleFunc("/maintenance/reset", r.resetAll).Methods("POST")
	api.HandleFunc("/badges.pdf", r.badgeSheet).Methods("GET")
	api.HandleFunc("/odoo/sync", r.odooSync).Methods("POST")

	return r
}

// healthCheck returns the health status of the kiosk
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	degraded := r.deps.Store.Degraded()
	status := "ok"
	if degraded {
		status = "degraded"
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   status,
		"degraded": degraded,
		"build":    buildinfo.Current(),
	})
}

func (r *Router) serveWs(w http.ResponseWriter, req *http.Request) {
	websocket.ServeWs(r.deps.Hub, w, req)
}

// decode reads a JSON body into dst and runs struct validation on it
func (r *Router) decode(w http.ResponseWriter, req *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(req.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	if err := r.validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+" failed "+fe.Tag())
	}
	return "Validation failed: " + strings.Join(parts, ", ")
}

// respondStoreError maps ledger and terminal errors onto status codes
func (r *Router) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsValidation(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrNoMatchingEmployee), errors.Is(err, kiosk.ErrUnknownBadge):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, kiosk.ErrInactiveEmployee):
		respondError(w, http.StatusConflict, err.Error())
	default:
		r.log.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Internal error")
	}
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
