package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/xelth-com/eckpunchgo/internal/models"
)

// PunchRequest records a punch by hand. Without a movement the kiosk
// alternation decides it, exactly as for a scanned badge.
type PunchRequest struct {
	BadgeID   string          `json:"badgeId" validate:"required,max=128"`
	Movement  models.Movement `json:"movement" validate:"omitempty,oneof=entrata uscita"`
	FirstName string          `json:"firstName" validate:"max=100"`
	Surname   string          `json:"surname" validate:"max=100"`
}

func (r *Router) punchesToday(w http.ResponseWriter, req *http.Request) {
	punches, err := r.deps.Store.Today()
	if err != nil {
		r.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, punches)
}

func (r *Router) punchesRange(w http.ResponseWriter, req *http.Request) {
	from, to, ok := parseRange(w, req)
	if !ok {
		return
	}
	now := time.Now()
	if to == nil {
		to = &now
	}
	if from == nil {
		f := startOfDay(*to)
		from = &f
	}
	punches, err := r.deps.Store.Range(*from, *to)
	if err != nil {
		r.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, punches)
}

func (r *Router) lastPunch(w http.ResponseWriter, req *http.Request) {
	p, err := r.deps.Store.LastForBadge(mux.Vars(req)["badge"])
	if err != nil {
		r.respondStoreError(w, err)
		return
	}
	if p == nil {
		respondError(w, http.StatusNotFound, "No punches for badge")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (r *Router) createPunch(w http.ResponseWriter, req *http.Request) {
	var body PunchRequest
	if !r.decode(w, req, &body) {
		return
	}

	var (
		p   *models.Punch
		err error
	)
	if body.Movement == "" {
		p, err = r.deps.Terminal.Punch(body.BadgeID)
	} else {
		p, err = r.deps.Store.RecordPunch(body.BadgeID, body.Movement, body.FirstName, body.Surname)
	}
	if err != nil {
		r.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (r *Router) stats(w http.ResponseWriter, req *http.Request) {
	st, err := r.deps.Store.Stats()
	if err != nil {
		r.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

// parseRange reads optional from/to query parameters. Both accept RFC 3339
// or a plain local date; a plain "to" date covers the whole day.
func parseRange(w http.ResponseWriter, req *http.Request) (*time.Time, *time.Time, bool) {
	q := req.URL.Query()
	from, err := parseBound(q.Get("from"), false)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid from: "+err.Error())
		return nil, nil, false
	}
	to, err := parseBound(q.Get("to"), true)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid to: "+err.Error())
		return nil, nil, false
	}
	if from != nil && to != nil && from.After(*to) {
		respondError(w, http.StatusBadRequest, "from must not be after to")
		return nil, nil, false
	}
	return from, to, true
}

func parseBound(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	d, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		d = d.Add(24*time.Hour - time.Nanosecond)
	}
	return &d, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
