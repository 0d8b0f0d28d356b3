package wizard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/citaplus/citaplus/libs/apperr"
	"github.com/citaplus/citaplus/services/booking-service/internal/analytics"
	"github.com/citaplus/citaplus/services/booking-service/internal/model"
	"github.com/citaplus/citaplus/services/booking-service/internal/writer"
	"github.com/shopspring/decimal"
)

type fakeCatalog struct {
	businesses map[string]model.Business
	locations  map[string]model.Location
	services   map[string]model.Service
	employees  map[string]model.Employee
	// employee id -> business ids
	links map[string][]string
	// employee id -> service ids
	offers map[string][]string
}

func newCatalog() *fakeCatalog {
	return &fakeCatalog{
		businesses: map[string]model.Business{
			"B1": {ID: "B1", Name: "Barberia Uno", IsActive: true},
			"B2": {ID: "B2", Name: "Spa Dos", IsActive: true},
			"B3": {ID: "B3", Name: "Salon Tres", IsActive: true},
		},
		locations: map[string]model.Location{
			"L1": {ID: "L1", BusinessID: "B1", Name: "Centro", IsActive: true},
			"L2": {ID: "L2", BusinessID: "B2", Name: "Norte", IsActive: true},
		},
		services: map[string]model.Service{
			"S1": {ID: "S1", BusinessID: "B1", Name: "Corte", DurationMinutes: 60, Price: decimal.RequireFromString("30000"), Currency: "COP", IsActive: true},
			"S2": {ID: "S2", BusinessID: "B2", LocationID: "L2", Name: "Masaje", DurationMinutes: 90, Price: decimal.RequireFromString("80000"), Currency: "COP", IsActive: true},
		},
		employees: map[string]model.Employee{
			"E1": {ID: "E1", FullName: "Ana"},
			"E2": {ID: "E2", FullName: "Luis"},
			"E3": {ID: "E3", FullName: "Marta"},
		},
		links: map[string][]string{
			"E1": {"B1"},
			"E2": {"B1", "B2"},
		},
		offers: map[string][]string{
			"E1": {"S1"},
			"E2": {"S1", "S2"},
			"E3": {"S1"},
		},
	}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, apperr.ErrNotFound)
}

func (c *fakeCatalog) Business(_ context.Context, id string) (model.Business, error) {
	if b, ok := c.businesses[id]; ok {
		return b, nil
	}
	return model.Business{}, notFound("business", id)
}

func (c *fakeCatalog) Location(_ context.Context, id string) (model.Location, error) {
	if l, ok := c.locations[id]; ok {
		return l, nil
	}
	return model.Location{}, notFound("location", id)
}

func (c *fakeCatalog) Service(_ context.Context, id string) (model.Service, error) {
	if s, ok := c.services[id]; ok {
		return s, nil
	}
	return model.Service{}, notFound("service", id)
}

func (c *fakeCatalog) Employee(_ context.Context, id string) (model.Employee, error) {
	if e, ok := c.employees[id]; ok {
		return e, nil
	}
	return model.Employee{}, notFound("employee", id)
}

func (c *fakeCatalog) EmployeeBusinesses(_ context.Context, employeeID string) ([]model.Business, error) {
	var out []model.Business
	for _, id := range c.links[employeeID] {
		out = append(out, c.businesses[id])
	}
	return out, nil
}

func (c *fakeCatalog) EmployeeOffersService(_ context.Context, employeeID, serviceID string) (bool, error) {
	return slices.Contains(c.offers[employeeID], serviceID), nil
}

func (c *fakeCatalog) Locations(_ context.Context, businessID string) ([]model.Location, error) {
	var out []model.Location
	for _, l := range c.locations {
		if l.BusinessID == businessID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (c *fakeCatalog) Services(_ context.Context, businessID, _ string) ([]model.Service, error) {
	var out []model.Service
	for _, s := range c.services {
		if s.BusinessID == businessID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *fakeCatalog) Employees(_ context.Context, serviceID, _ string) ([]model.Employee, error) {
	var out []model.Employee
	for id, offered := range c.offers {
		if slices.Contains(offered, serviceID) {
			out = append(out, c.employees[id])
		}
	}
	return out, nil
}

type memoryStore struct {
	appointments []model.Appointment
	err          error
}

func (s *memoryStore) Create(_ context.Context, appt *model.Appointment) error {
	if s.err != nil {
		return s.err
	}
	appt.ID = fmt.Sprintf("appt-%d", len(s.appointments)+1)
	s.appointments = append(s.appointments, *appt)
	return nil
}

func (s *memoryStore) Update(_ context.Context, appt *model.Appointment) error {
	if s.err != nil {
		return s.err
	}
	for i := range s.appointments {
		if s.appointments[i].ID == appt.ID {
			appt.Status = s.appointments[i].Status
			appt.CreatedAt = s.appointments[i].CreatedAt
			s.appointments[i] = *appt
			return nil
		}
	}
	return errors.New("appointment not found")
}

type inbox struct {
	messages []Message
}

func (n *inbox) Notify(_ context.Context, msg Message) {
	n.messages = append(n.messages, msg)
}

func (n *inbox) last() Message {
	if len(n.messages) == 0 {
		return Message{}
	}
	return n.messages[len(n.messages)-1]
}

type upperTranslator map[string]string

func (t upperTranslator) Translate(key string) string {
	if v, ok := t[key]; ok {
		return v
	}
	return key
}

type harness struct {
	catalog *fakeCatalog
	store   *memoryStore
	inbox   *inbox
	tracker *analytics.Recorder
	closed  int
}

func newHarness() *harness {
	return &harness{
		catalog: newCatalog(),
		store:   &memoryStore{},
		inbox:   &inbox{},
		tracker: &analytics.Recorder{},
	}
}

func (h *harness) open(pre Preselection) *Wizard {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := New(Deps{
		Catalog:    h.catalog,
		Booker:     writer.New(h.store, h.tracker, logger),
		Notifier:   h.inbox,
		Translator: upperTranslator{MsgSaveFailed: "Could not save the appointment"},
		Tracker:    h.tracker,
		Logger:     logger,
	}, Config{
		SessionID:    "sess-1",
		ClientID:     "client-1",
		Preselection: pre,
		OnClose:      func() { h.closed++ },
	})
	w.Open(context.Background())
	return w
}
