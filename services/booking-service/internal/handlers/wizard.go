package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/citaplus/citaplus/libs/apperr"
	"github.com/citaplus/citaplus/libs/httpx"
	"github.com/citaplus/citaplus/services/booking-service/internal/analytics"
	"github.com/citaplus/citaplus/services/booking-service/internal/availability"
	"github.com/citaplus/citaplus/services/booking-service/internal/clock"
	"github.com/citaplus/citaplus/services/booking-service/internal/messages"
	"github.com/citaplus/citaplus/services/booking-service/internal/model"
	"github.com/citaplus/citaplus/services/booking-service/internal/sessions"
	"github.com/citaplus/citaplus/services/booking-service/internal/wizard"
	"github.com/go-chi/chi/v5"
)

// Appointments reads stored appointments for the wizard and the listing.
type Appointments interface {
	Get(ctx context.Context, clientID, id string) (model.Appointment, error)
	ListByClient(ctx context.Context, clientID string, limit int) ([]model.Appointment, error)
	BusyIntervals(ctx context.Context, employeeID string, from, to time.Time, excludeID string) ([]model.Interval, error)
}

type WizardConfig struct {
	Sessions     *sessions.Store
	Catalog      wizard.Catalog
	Booker       wizard.Booker
	Appointments Appointments
	Tracker      analytics.Tracker
	Messages     *messages.Catalog
	Logger       *slog.Logger
}

type WizardHandler struct {
	cfg WizardConfig
	now func() time.Time
}

func NewWizardHandler(cfg WizardConfig) *WizardHandler {
	return &WizardHandler{cfg: cfg, now: time.Now}
}

// Routes mounts the session endpoints under /api/v1/wizard/sessions.
func (h *WizardHandler) Routes(r chi.Router) {
	r.Post("/", h.Open)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.View)
		r.Delete("/", h.Close)
		r.Post("/select", h.Select)
		r.Post("/next", h.Next)
		r.Post("/back", h.Back)
		r.Get("/slots", h.Slots)
	})
}

type stepView struct {
	Step      wizard.Step `json:"step"`
	Completed bool        `json:"completed"`
}

type sessionView struct {
	SessionID   string             `json:"sessionId"`
	Step        wizard.Step        `json:"step"`
	Steps       []stepView         `json:"steps"`
	Selection   wizard.Selection   `json:"selection"`
	Choices     *wizard.Choices    `json:"choices,omitempty"`
	Appointment *model.Appointment `json:"appointment,omitempty"`
	Editing     bool               `json:"editing"`
	Messages    []wizard.Message   `json:"messages"`
}

func clientID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(httpx.UserIDHeader))
}

func (h *WizardHandler) Open(w http.ResponseWriter, r *http.Request) {
	var pre wizard.Preselection
	if err := httpx.DecodeJSON(r, &pre); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	client := clientID(r)

	if id := strings.TrimSpace(pre.AppointmentID); id != "" {
		appt, err := h.cfg.Appointments.Get(ctx, client, id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		pre = prefillFromAppointment(pre, appt)
	}

	translator := h.cfg.Messages.Translator(r.Header.Get("Accept-Language"))
	sess := h.cfg.Sessions.Create(client, func(id string, notifier wizard.Notifier) *wizard.Wizard {
		wz := wizard.New(wizard.Deps{
			Catalog:    h.cfg.Catalog,
			Booker:     h.cfg.Booker,
			Notifier:   notifier,
			Translator: translator,
			Tracker:    h.cfg.Tracker,
			Logger:     h.cfg.Logger.With("session_id", id),
		}, wizard.Config{
			SessionID:    id,
			ClientID:     client,
			Preselection: pre,
			OnClose:      func() { h.cfg.Sessions.Delete(id) },
		})
		wz.Open(ctx)
		return wz
	})
	h.cfg.Logger.Info("wizard session opened", "session_id", sess.ID, "client_id", client)
	h.render(w, r, sess, http.StatusCreated)
}

// prefillFromAppointment fills the ids the caller left out from the stored
// appointment being edited.
func prefillFromAppointment(pre wizard.Preselection, appt model.Appointment) wizard.Preselection {
	fill := func(dst *string, v string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = v
		}
	}
	fill(&pre.BusinessID, appt.BusinessID)
	fill(&pre.LocationID, appt.LocationID)
	fill(&pre.ServiceID, appt.ServiceID)
	fill(&pre.EmployeeID, appt.EmployeeID)
	fill(&pre.Date, appt.StartTime.In(clock.Zone).Format(clock.DateLayout))
	fill(&pre.StartTime, clock.Format(appt.StartTime))
	fill(&pre.Notes, appt.Notes)
	return pre
}

func (h *WizardHandler) session(w http.ResponseWriter, r *http.Request) (*sessions.Session, bool) {
	sess, err := h.cfg.Sessions.Get(chi.URLParam(r, "id"), clientID(r))
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (h *WizardHandler) View(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.render(w, r, sess, http.StatusOK)
}

type selectRequest struct {
	Field wizard.Field `json:"field"`
	Value string       `json:"value"`
}

func (h *WizardHandler) Select(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	var err error
	sess.Do(func(wz *wizard.Wizard) { err = wz.Select(r.Context(), req.Field, req.Value) })
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.render(w, r, sess, http.StatusOK)
}

func (h *WizardHandler) Next(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Do(func(wz *wizard.Wizard) { wz.Next(r.Context()) })
	h.render(w, r, sess, http.StatusOK)
}

func (h *WizardHandler) Back(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Do(func(wz *wizard.Wizard) { wz.Back(r.Context()) })
	h.render(w, r, sess, http.StatusOK)
}

func (h *WizardHandler) Close(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Do(func(wz *wizard.Wizard) { wz.Close(r.Context()) })
	w.WriteHeader(http.StatusNoContent)
}

type slotsResponse struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

// Slots suggests start times for the selected location, service and
// employee on the requested date.
func (h *WizardHandler) Slots(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var (
		sel     wizard.Selection
		editing string
	)
	sess.Do(func(wz *wizard.Wizard) {
		sel = wz.Selection()
		editing = wz.EditingID()
	})

	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		raw = sel.Date
	}
	date, err := clock.ParseDate(raw)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	resp := slotsResponse{Date: date.Format(clock.DateLayout), Slots: []string{}}
	if sel.Location == nil {
		httpx.WriteJSON(w, http.StatusOK, resp)
		return
	}

	var busy []model.Interval
	if sel.EmployeeID != "" {
		busy, err = h.cfg.Appointments.BusyIntervals(r.Context(), sel.EmployeeID, date, date.AddDate(0, 0, 1), editing)
		if err != nil {
			h.cfg.Logger.Error("busy intervals lookup failed", "err", err, "session_id", sess.ID)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
	}
	duration := availability.DefaultDuration
	if sel.Service != nil && sel.Service.DurationMinutes > 0 {
		duration = time.Duration(sel.Service.DurationMinutes) * time.Minute
	}
	resp.Slots = availability.Suggest(sel.Location.Hours, date, duration, busy, h.now())
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *WizardHandler) render(w http.ResponseWriter, r *http.Request, sess *sessions.Session, status int) {
	view := sessionView{SessionID: sess.ID}
	sess.Do(func(wz *wizard.Wizard) {
		view.Step = wz.Step()
		view.Selection = wz.Selection()
		view.Appointment = wz.Appointment()
		view.Editing = wz.Editing()
		for _, s := range wz.VisibleSteps() {
			view.Steps = append(view.Steps, stepView{Step: s, Completed: wz.Completed(s)})
		}
		choices, err := wz.Choices(r.Context())
		if err != nil {
			h.cfg.Logger.Warn("wizard choices unavailable", "err", err, "session_id", sess.ID, "step", view.Step)
			return
		}
		view.Choices = &choices
	})
	view.Messages = sess.Drain()
	httpx.WriteJSON(w, status, view)
}

func (h *WizardHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, sessions.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, apperr.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.cfg.Logger.Error("wizard request failed", "err", err, "request_id", httpx.RequestIDFromContext(r.Context()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
