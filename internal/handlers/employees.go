package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/xelth-com/eckpunchgo/internal/ledger"
)

// EmployeeRequest creates or updates a directory entry
type EmployeeRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	Surname   string `json:"surname" validate:"max=100"`
	Active    *bool  `json:"active"`
}

// BadgeRequest binds a badge to an employee
type BadgeRequest struct {
	BadgeID string `json:"badgeId" validate:"required,max=128"`
}

func (r *Router) listEmployees(w http.ResponseWriter, req *http.Request) {
	employees, err := r.deps.Store.Employees()
	if err != nil {
		r.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, employees)
}

func (r *Router) getEmployee(w http.ResponseWriter, req *http.Request) {
	emp, err := r.deps.Store.EmployeeByCode(mux.Vars(req)["code"])
	if err != nil {
		r.respondStoreError(w, err)
		return
	}
	if emp == nil {
		r.respondStoreError(w, ledger.ErrNoMatchingEmployee)
		return
	}
	respondJSON(w, http.StatusOK, emp)
}

func (r *Router) employeeByBadge(w http.ResponseWriter, req *http.Request) {
	emp, err := r.deps.Store.EmployeeByBadge(mux.Vars(req)["badge"])
	if err != nil {
		r.respondStoreError(w, err)
		return
	}
	if emp == nil {
		r.respondStoreError(w, ledger.ErrNoMatchingEmployee)
		return
	}
	respondJSON(w, http.StatusOK, emp)
}

func (r *Router) putEmployee(w http.ResponseWriter, req *http.Request) {
	var body EmployeeRequest
	if !r.decode(w, req, &body) {
		return
	}

	emp, err := r.deps.Store.UpsertEmployee(mux.Vars(req)["code"], body.FirstName, body.Surname)
	if err != nil {
		r.respondStoreError(w, err)
		return
	}
	if body.Active != nil && *body.Active != emp.Active {
		if err := r.deps.Store.SetActive(emp.Code, *body.Active); err != nil {
			r.respondStoreError(w, err)
			return
		}
		emp.Active = *body.Active
	}
	respondJSON(w, http.StatusOK, emp)
}

func (r *Router) bindBadge(w http.ResponseWriter, req *http.Request) {
	var body BadgeRequest
	if !r.decode(w, req, &body) {
		return
	}

	code := mux.Vars(req)["code"]
	if err := r.deps.Store.BindBadge(code, body.BadgeID); err != nil {
		r.respondStoreError(w, err)
		return
	}
	emp, err := r.deps.Store.EmployeeByCode(code)
	if err != nil {
		r.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, emp)
}

func (r *Router) unbindBadge(w http.ResponseWriter, req *http.Request) {
	if err := r.deps.Store.UnbindBadge(mux.Vars(req)["code"]); err != nil {
		r.respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
