// Package wizard drives a multi-step appointment booking session.
//
// A Wizard is not safe for concurrent use; callers serialize actions per
// session.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/citaplus/citaplus/libs/apperr"
	"github.com/citaplus/citaplus/services/booking-service/internal/analytics"
	"github.com/citaplus/citaplus/services/booking-service/internal/clock"
	"github.com/citaplus/citaplus/services/booking-service/internal/model"
	"github.com/citaplus/citaplus/services/booking-service/internal/writer"
)

var ErrUnknownField = fmt.Errorf("%w: unknown field", apperr.ErrValidation)

// Preselection carries ids supplied from outside the wizard, for example a
// search result or an appointment being edited.
type Preselection struct {
	BusinessID    string `json:"businessId,omitempty"`
	LocationID    string `json:"locationId,omitempty"`
	ServiceID     string `json:"serviceId,omitempty"`
	EmployeeID    string `json:"employeeId,omitempty"`
	AppointmentID string `json:"appointmentId,omitempty"`
	Date          string `json:"date,omitempty"`
	StartTime     string `json:"startTime,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// Selection is the wizard state. Records are hydrated copies of the selected
// ids and may be nil when the lookup failed.
type Selection struct {
	BusinessID         string `json:"businessId,omitempty"`
	LocationID         string `json:"locationId,omitempty"`
	ServiceID          string `json:"serviceId,omitempty"`
	EmployeeID         string `json:"employeeId,omitempty"`
	EmployeeBusinessID string `json:"employeeBusinessId,omitempty"`
	Date               string `json:"date,omitempty"`
	StartTime          string `json:"startTime,omitempty"`
	Notes              string `json:"notes,omitempty"`

	Business         *model.Business `json:"business,omitempty"`
	Location         *model.Location `json:"location,omitempty"`
	Service          *model.Service  `json:"service,omitempty"`
	Employee         *model.Employee `json:"employee,omitempty"`
	EmployeeBusiness *model.Business `json:"employeeBusiness,omitempty"`
}

// EffectiveBusinessID is the business the appointment will belong to.
func (s Selection) EffectiveBusinessID() string {
	if s.EmployeeBusinessID != "" {
		return s.EmployeeBusinessID
	}
	return s.BusinessID
}

type Deps struct {
	Catalog    Catalog
	Booker     Booker
	Notifier   Notifier
	Translator Translator
	Tracker    analytics.Tracker
	Logger     *slog.Logger
}

type Config struct {
	SessionID    string
	ClientID     string
	Preselection Preselection
	OnClose      func()
}

type Wizard struct {
	deps Deps
	cfg  Config

	sel                Selection
	step               Step
	businessHidden     bool
	employeeBusinesses []model.Business
	appointment        *model.Appointment

	initial                   Selection
	initialStep               Step
	initialEmployeeBusinesses []model.Business
}

func New(deps Deps, cfg Config) *Wizard {
	if deps.Tracker == nil {
		deps.Tracker = analytics.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Wizard{deps: deps, cfg: cfg, step: StepBusiness}
}

// Open applies the preselection, hydrates the referenced records, checks
// employee compatibility and positions the wizard on its first step.
func (w *Wizard) Open(ctx context.Context) {
	pre := w.cfg.Preselection
	w.sel = Selection{
		BusinessID: strings.TrimSpace(pre.BusinessID),
		LocationID: strings.TrimSpace(pre.LocationID),
		ServiceID:  strings.TrimSpace(pre.ServiceID),
		EmployeeID: strings.TrimSpace(pre.EmployeeID),
		Date:       strings.TrimSpace(pre.Date),
		StartTime:  strings.TrimSpace(pre.StartTime),
		Notes:      pre.Notes,
	}
	w.businessHidden = w.sel.BusinessID != ""
	w.employeeBusinesses = nil
	w.appointment = nil

	w.sel.Business = w.lookupBusiness(ctx, w.sel.BusinessID)
	w.sel.Location = w.lookupLocation(ctx, w.sel.LocationID)
	w.sel.Service = w.lookupService(ctx, w.sel.ServiceID)
	w.sel.Employee = w.lookupEmployee(ctx, w.sel.EmployeeID)

	if svc := w.sel.Service; svc != nil {
		if w.sel.BusinessID == "" {
			w.sel.BusinessID = svc.BusinessID
			w.sel.Business = w.lookupBusiness(ctx, svc.BusinessID)
		}
		if w.sel.LocationID == "" && svc.LocationID != "" {
			w.sel.LocationID = svc.LocationID
			w.sel.Location = w.lookupLocation(ctx, svc.LocationID)
		}
	}

	if w.sel.EmployeeID != "" && w.sel.ServiceID != "" {
		offers, err := w.deps.Catalog.EmployeeOffersService(ctx, w.sel.EmployeeID, w.sel.ServiceID)
		switch {
		case err != nil:
			w.deps.Logger.Warn("employee service check failed", "err", err, "employee_id", w.sel.EmployeeID)
		case !offers:
			w.clearEmployee()
			w.notify(ctx, LevelError, MsgEmployeeServiceMismatch, "")
		}
	}
	if w.sel.EmployeeID != "" {
		businesses, err := w.deps.Catalog.EmployeeBusinesses(ctx, w.sel.EmployeeID)
		switch {
		case err != nil:
			w.deps.Logger.Warn("employee businesses lookup failed", "err", err, "employee_id", w.sel.EmployeeID)
		case len(businesses) == 0:
			w.clearEmployee()
			w.notify(ctx, LevelError, MsgEmployeeWithoutBusiness, "")
		default:
			w.applyEmployeeBusinesses(businesses)
		}
	}

	w.step = w.startStep()
	w.initial = w.sel
	w.initialStep = w.step
	w.initialEmployeeBusinesses = w.employeeBusinesses

	w.track(ctx, analytics.EventStarted, "")
}

func (w *Wizard) startStep() Step {
	s := w.sel
	switch {
	case s.EmployeeID != "" && w.needsEmployeeBusiness():
		return StepEmployeeBusiness
	case s.EmployeeID != "" && s.ServiceID != "":
		return StepDateTime
	case s.EmployeeID != "":
		return StepService
	case s.ServiceID != "":
		return StepEmployee
	case s.BusinessID != "" && s.LocationID != "":
		return StepService
	case s.BusinessID != "":
		return StepLocation
	default:
		return StepBusiness
	}
}

// Select sets one field. A changed value clears every selection below it and
// moves the wizard back to the step owning the field when it is already
// past it. Re-selecting the current value is a no-op.
func (w *Wizard) Select(ctx context.Context, field Field, value string) error {
	if w.step == StepSuccess {
		return nil
	}
	if field != FieldNotes {
		value = strings.TrimSpace(value)
	}
	switch field {
	case FieldBusiness:
		if value == w.sel.BusinessID {
			return nil
		}
		w.resetFrom(StepLocation)
		w.sel.Notes = ""
		w.sel.BusinessID = value
		w.sel.Business = w.lookupBusiness(ctx, value)
	case FieldLocation:
		if value == w.sel.LocationID {
			return nil
		}
		w.resetFrom(StepService)
		w.sel.LocationID = value
		w.sel.Location = w.lookupLocation(ctx, value)
	case FieldService:
		if value == w.sel.ServiceID {
			return nil
		}
		employeeID, employee := w.sel.EmployeeID, w.sel.Employee
		w.resetFrom(StepEmployee)
		w.sel.ServiceID = value
		w.sel.Service = w.lookupService(ctx, value)
		if employeeID != "" && value != "" && w.offers(ctx, employeeID, value) {
			w.sel.EmployeeID, w.sel.Employee = employeeID, employee
		}
	case FieldEmployee:
		if value == w.sel.EmployeeID {
			return nil
		}
		w.resetFrom(StepEmployeeBusiness)
		w.employeeBusinesses = nil
		w.sel.EmployeeID = value
		w.sel.Employee = w.lookupEmployee(ctx, value)
	case FieldEmployeeBusiness:
		if value == w.sel.EmployeeBusinessID {
			return nil
		}
		w.resetFrom(StepDateTime)
		w.sel.EmployeeBusinessID = value
		w.sel.EmployeeBusiness = nil
		if i := slices.IndexFunc(w.employeeBusinesses, func(b model.Business) bool { return b.ID == value }); i >= 0 {
			b := w.employeeBusinesses[i]
			w.sel.EmployeeBusiness = &b
		} else if value != "" {
			w.sel.EmployeeBusiness = w.lookupBusiness(ctx, value)
		}
	case FieldDate:
		if value == w.sel.Date {
			return nil
		}
		w.sel.Date = value
		w.sel.StartTime = ""
	case FieldStartTime:
		w.sel.StartTime = value
		return nil
	case FieldNotes:
		w.sel.Notes = value
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	w.rewindTo(field.Step())
	return nil
}

// rewindTo moves the wizard back to step, or the first visible step after
// it, when the wizard is currently further along.
func (w *Wizard) rewindTo(step Step) {
	if w.step.Index() <= step.Index() {
		return
	}
	i := step.Index()
	for i < w.step.Index() && !w.visible(Steps[i]) {
		i++
	}
	w.step = Steps[i]
}

func (w *Wizard) offers(ctx context.Context, employeeID, serviceID string) bool {
	ok, err := w.deps.Catalog.EmployeeOffersService(ctx, employeeID, serviceID)
	if err != nil {
		w.deps.Logger.Warn("employee service check failed", "err", err, "employee_id", employeeID)
		return false
	}
	return ok
}

// resetFrom clears the selections owned by step and every later step.
func (w *Wizard) resetFrom(step Step) {
	switch step {
	case StepLocation:
		w.sel.LocationID, w.sel.Location = "", nil
		fallthrough
	case StepService:
		w.sel.ServiceID, w.sel.Service = "", nil
		fallthrough
	case StepEmployee:
		w.sel.EmployeeID, w.sel.Employee = "", nil
		w.employeeBusinesses = nil
		fallthrough
	case StepEmployeeBusiness:
		w.sel.EmployeeBusinessID, w.sel.EmployeeBusiness = "", nil
		fallthrough
	case StepDateTime:
		w.sel.Date, w.sel.StartTime = "", ""
	}
}

// Next validates the current step and moves forward. On confirmation it
// writes the appointment.
func (w *Wizard) Next(ctx context.Context) {
	switch w.step {
	case StepSuccess:
		return
	case StepConfirmation:
		w.Confirm(ctx)
		return
	}
	if key := w.missing(w.step); key != "" {
		w.notify(ctx, LevelError, key, "")
		return
	}

	done := w.step
	switch {
	case w.step == StepEmployee, w.step == StepService && w.sel.EmployeeID != "":
		if !w.resolveEmployeeBusinesses(ctx) {
			return
		}
		if w.needsEmployeeBusinessStep() {
			w.step = StepEmployeeBusiness
		} else {
			w.step = StepDateTime
		}
	case w.step == StepEmployeeBusiness:
		if w.sel.ServiceID == "" {
			w.step = StepService
		} else {
			w.step = StepDateTime
		}
	default:
		next := min(w.step.Index()+1, StepConfirmation.Index())
		w.step = Steps[next]
	}
	w.track(ctx, analytics.EventStepCompleted, done)
}

// Back moves to the previous visible step, never before the first one.
func (w *Wizard) Back(ctx context.Context) {
	if w.step == StepSuccess {
		return
	}
	first := w.firstVisible().Index()
	i := w.step.Index() - 1
	for i > first && !w.visible(Steps[i]) {
		i--
	}
	w.step = Steps[max(i, first)]
}

// Close abandons the session: state returns to the preselected values and
// the close callback runs.
func (w *Wizard) Close(ctx context.Context) {
	if w.step != StepSuccess {
		w.track(ctx, analytics.EventAbandoned, w.step)
	}
	w.sel = w.initial
	w.step = w.initialStep
	w.employeeBusinesses = w.initialEmployeeBusinesses
	w.appointment = nil
	if w.cfg.OnClose != nil {
		w.cfg.OnClose()
	}
}

// Confirm writes the appointment from the confirmation step. It reports
// whether the write succeeded; failures are notified and keep the step.
func (w *Wizard) Confirm(ctx context.Context) bool {
	if w.step != StepConfirmation {
		return false
	}
	if !w.employeeBusinessSettled(ctx) {
		return false
	}
	in := writer.Input{
		AppointmentID:      w.EditingID(),
		SessionID:          w.cfg.SessionID,
		ClientID:           w.cfg.ClientID,
		BusinessID:         w.sel.BusinessID,
		EmployeeBusinessID: w.sel.EmployeeBusinessID,
		LocationID:         w.sel.LocationID,
		ServiceID:          w.sel.ServiceID,
		EmployeeID:         w.sel.EmployeeID,
		Date:               w.sel.Date,
		StartTime:          w.sel.StartTime,
		Notes:              w.sel.Notes,
	}
	if svc := w.sel.Service; svc != nil {
		in.DurationMinutes = svc.DurationMinutes
		in.Price = svc.Price
		in.Currency = svc.Currency
	}

	appt, err := w.deps.Booker.Write(ctx, in)
	if err != nil {
		w.notifyWriteError(ctx, err)
		return false
	}
	w.appointment = &appt
	w.track(ctx, analytics.EventStepCompleted, StepConfirmation)
	w.step = StepSuccess
	if in.AppointmentID != "" {
		w.notify(ctx, LevelSuccess, MsgUpdated, "")
	} else {
		w.notify(ctx, LevelSuccess, MsgBooked, "")
	}
	return true
}

func (w *Wizard) notifyWriteError(ctx context.Context, err error) {
	if be, ok := writer.AsBackend(err); ok {
		w.notify(ctx, LevelError, MsgSaveFailed, be.Message())
		return
	}
	switch {
	case errors.Is(err, writer.ErrMissingClient):
		w.notify(ctx, LevelError, MsgMissingClient, "")
	case errors.Is(err, clock.ErrInvalidTime):
		w.notify(ctx, LevelError, MsgInvalidTime, "")
	case errors.Is(err, clock.ErrInvalidDate):
		w.notify(ctx, LevelError, MsgInvalidDate, "")
	default:
		w.deps.Logger.Warn("appointment rejected", "err", err, "session_id", w.cfg.SessionID)
		w.notify(ctx, LevelError, MsgSaveFailed, "")
	}
}

// Completed reports whether step has its data filled in. It depends only on
// the current state, not on navigation history.
func (w *Wizard) Completed(step Step) bool {
	s := w.sel
	switch step {
	case StepBusiness:
		return s.BusinessID != ""
	case StepLocation:
		return s.LocationID != ""
	case StepService:
		return s.ServiceID != ""
	case StepEmployee:
		return s.EmployeeID != ""
	case StepEmployeeBusiness:
		return s.EmployeeBusinessID != ""
	case StepDateTime:
		return s.Date != "" && s.StartTime != ""
	case StepConfirmation, StepSuccess:
		return w.appointment != nil
	}
	return false
}

func (w *Wizard) Step() Step { return w.step }
func (w *Wizard) Selection() Selection { return w.sel }
func (w *Wizard) Appointment() *model.Appointment { return w.appointment }
func (w *Wizard) EmployeeBusinesses() []model.Business { return w.employeeBusinesses }
func (w *Wizard) Editing() bool { return w.EditingID() != "" }

// EditingID is the id of the appointment being edited, if any.
func (w *Wizard) EditingID() string { return strings.TrimSpace(w.cfg.Preselection.AppointmentID) }

// VisibleSteps lists the steps shown to the user in order.
func (w *Wizard) VisibleSteps() []Step {
	out := make([]Step, 0, len(Steps))
	for _, s := range Steps {
		if w.visible(s) {
			out = append(out, s)
		}
	}
	return out
}

func (w *Wizard) visible(s Step) bool {
	switch s {
	case StepBusiness:
		return !w.businessHidden
	case StepEmployeeBusiness:
		return w.needsEmployeeBusinessStep()
	}
	return true
}

func (w *Wizard) firstVisible() Step {
	if w.businessHidden {
		return StepLocation
	}
	return StepBusiness
}

func (w *Wizard) missing(step Step) string {
	if w.Completed(step) {
		return ""
	}
	switch step {
	case StepBusiness:
		return MsgBusinessRequired
	case StepLocation:
		return MsgLocationRequired
	case StepService:
		return MsgServiceRequired
	case StepEmployee:
		return MsgEmployeeRequired
	case StepEmployeeBusiness:
		return MsgEmployeeBusinessRequired
	case StepDateTime:
		return MsgDateTimeRequired
	}
	return ""
}

// resolveEmployeeBusinesses loads the selected employee's businesses and
// reports whether the wizard may continue.
func (w *Wizard) resolveEmployeeBusinesses(ctx context.Context) bool {
	businesses, err := w.deps.Catalog.EmployeeBusinesses(ctx, w.sel.EmployeeID)
	if err != nil {
		w.deps.Logger.Error("employee businesses lookup failed", "err", err, "employee_id", w.sel.EmployeeID)
		w.notify(ctx, LevelError, MsgEmployeeBusinessesFailed, "")
		return false
	}
	if len(businesses) == 0 {
		w.employeeBusinesses = nil
		w.notify(ctx, LevelError, MsgEmployeeWithoutBusiness, "")
		return false
	}
	w.applyEmployeeBusinesses(businesses)
	return true
}

// applyEmployeeBusinesses auto-selects a sole business and keeps an existing
// choice only when it is still among several.
func (w *Wizard) applyEmployeeBusinesses(businesses []model.Business) {
	w.employeeBusinesses = businesses
	if len(businesses) == 1 {
		b := businesses[0]
		w.sel.EmployeeBusinessID = b.ID
		w.sel.EmployeeBusiness = &b
		if w.sel.BusinessID == "" {
			w.sel.BusinessID = b.ID
			w.sel.Business = &b
		}
		return
	}
	current := w.sel.EmployeeBusinessID
	if current == "" {
		current = w.sel.BusinessID
	}
	w.sel.EmployeeBusinessID, w.sel.EmployeeBusiness = "", nil
	for _, b := range businesses {
		if b.ID == current {
			w.sel.EmployeeBusinessID = b.ID
			w.sel.EmployeeBusiness = &b
			break
		}
	}
}

// employeeBusinessSettled re-checks the employee's businesses when they were
// never resolved, and sends the wizard back when a choice is still owed.
func (w *Wizard) employeeBusinessSettled(ctx context.Context) bool {
	if w.sel.EmployeeID == "" {
		return true
	}
	if w.employeeBusinesses == nil && !w.resolveEmployeeBusinesses(ctx) {
		w.step = StepEmployee
		return false
	}
	if w.needsEmployeeBusiness() {
		w.step = StepEmployeeBusiness
		w.notify(ctx, LevelError, MsgEmployeeBusinessRequired, "")
		return false
	}
	return true
}

func (w *Wizard) needsEmployeeBusinessStep() bool {
	return len(w.employeeBusinesses) >= 2
}

func (w *Wizard) needsEmployeeBusiness() bool {
	return w.needsEmployeeBusinessStep() && w.sel.EmployeeBusinessID == ""
}

func (w *Wizard) clearEmployee() {
	w.sel.EmployeeID, w.sel.Employee = "", nil
	w.sel.EmployeeBusinessID, w.sel.EmployeeBusiness = "", nil
	w.employeeBusinesses = nil
}

func (w *Wizard) notify(ctx context.Context, level Level, key, detail string) {
	if w.deps.Notifier == nil {
		return
	}
	text := key
	if w.deps.Translator != nil {
		text = w.deps.Translator.Translate(key)
	}
	if detail != "" {
		text = text + ": " + detail
	}
	w.deps.Notifier.Notify(ctx, Message{Level: level, Key: key, Detail: detail, Text: text})
}

func (w *Wizard) track(ctx context.Context, name string, step Step) {
	w.deps.Tracker.Track(ctx, analytics.Event{
		Name:       name,
		SessionID:  w.cfg.SessionID,
		ClientID:   w.cfg.ClientID,
		BusinessID: w.sel.EffectiveBusinessID(),
		ServiceID:  w.sel.ServiceID,
		EmployeeID: w.sel.EmployeeID,
		LocationID: w.sel.LocationID,
		Step:       string(step),
	})
}
