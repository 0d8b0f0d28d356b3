package wizard

import (
	"context"

	"github.com/citaplus/citaplus/services/booking-service/internal/model"
)

// Hydration failures leave the record nil; the id stays selected.

func (w *Wizard) lookupBusiness(ctx context.Context, id string) *model.Business {
	if id == "" {
		return nil
	}
	b, err := w.deps.Catalog.Business(ctx, id)
	if err != nil {
		w.deps.Logger.Debug("business hydration failed", "err", err, "business_id", id)
		return nil
	}
	return &b
}

func (w *Wizard) lookupLocation(ctx context.Context, id string) *model.Location {
	if id == "" {
		return nil
	}
	l, err := w.deps.Catalog.Location(ctx, id)
	if err != nil {
		w.deps.Logger.Debug("location hydration failed", "err", err, "location_id", id)
		return nil
	}
	return &l
}

func (w *Wizard) lookupService(ctx context.Context, id string) *model.Service {
	if id == "" {
		return nil
	}
	s, err := w.deps.Catalog.Service(ctx, id)
	if err != nil {
		w.deps.Logger.Debug("service hydration failed", "err", err, "service_id", id)
		return nil
	}
	return &s
}

func (w *Wizard) lookupEmployee(ctx context.Context, id string) *model.Employee {
	if id == "" {
		return nil
	}
	e, err := w.deps.Catalog.Employee(ctx, id)
	if err != nil {
		w.deps.Logger.Debug("employee hydration failed", "err", err, "employee_id", id)
		return nil
	}
	return &e
}

// Choices holds the options offered on the current step.
type Choices struct {
	Locations  []model.Location `json:"locations,omitempty"`
	Services   []model.Service  `json:"services,omitempty"`
	Employees  []model.Employee `json:"employees,omitempty"`
	Businesses []model.Business `json:"businesses,omitempty"`
}

// Choices lists what can be picked on the current step. The business step
// has no choices here; businesses come from search.
func (w *Wizard) Choices(ctx context.Context) (Choices, error) {
	var (
		c   Choices
		err error
	)
	switch w.step {
	case StepLocation:
		c.Locations, err = w.deps.Catalog.Locations(ctx, w.sel.EffectiveBusinessID())
	case StepService:
		c.Services, err = w.deps.Catalog.Services(ctx, w.sel.EffectiveBusinessID(), w.sel.LocationID)
	case StepEmployee:
		c.Employees, err = w.deps.Catalog.Employees(ctx, w.sel.ServiceID, w.sel.LocationID)
	case StepEmployeeBusiness:
		c.Businesses = w.employeeBusinesses
	}
	return c, err
}
