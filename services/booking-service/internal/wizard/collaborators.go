package wizard

import (
	"context"

	"github.com/citaplus/citaplus/services/booking-service/internal/model"
	"github.com/citaplus/citaplus/services/booking-service/internal/writer"
)

// Catalog reads the business catalog. Lookups by id return an error wrapping
// apperr.ErrNotFound for unknown or inactive records.
type Catalog interface {
	Business(ctx context.Context, id string) (model.Business, error)
	Location(ctx context.Context, id string) (model.Location, error)
	Service(ctx context.Context, id string) (model.Service, error)
	Employee(ctx context.Context, id string) (model.Employee, error)

	// EmployeeBusinesses lists the active businesses the employee has an
	// approved, active link to.
	EmployeeBusinesses(ctx context.Context, employeeID string) ([]model.Business, error)
	EmployeeOffersService(ctx context.Context, employeeID, serviceID string) (bool, error)

	Locations(ctx context.Context, businessID string) ([]model.Location, error)
	Services(ctx context.Context, businessID, locationID string) ([]model.Service, error)
	Employees(ctx context.Context, serviceID, locationID string) ([]model.Employee, error)
}

// Booker persists the final selection.
type Booker interface {
	Write(ctx context.Context, in writer.Input) (model.Appointment, error)
}

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Message is a user-facing notification. Key indexes the message catalog;
// Text is the translated key with Detail appended.
type Message struct {
	Level  Level  `json:"level"`
	Key    string `json:"key"`
	Detail string `json:"detail,omitempty"`
	Text   string `json:"text"`
}

type Notifier interface {
	Notify(ctx context.Context, msg Message)
}

type Translator interface {
	Translate(key string) string
}

// Message catalog keys.
const (
	MsgBusinessRequired         = "wizard.validation.business_required"
	MsgLocationRequired         = "wizard.validation.location_required"
	MsgServiceRequired          = "wizard.validation.service_required"
	MsgEmployeeRequired         = "wizard.validation.employee_required"
	MsgEmployeeBusinessRequired = "wizard.validation.employee_business_required"
	MsgDateTimeRequired         = "wizard.validation.datetime_required"
	MsgInvalidTime              = "wizard.validation.invalid_time"
	MsgInvalidDate              = "wizard.validation.invalid_date"
	MsgMissingClient            = "wizard.error.missing_client"
	MsgEmployeeServiceMismatch  = "wizard.error.employee_service_mismatch"
	MsgEmployeeWithoutBusiness  = "wizard.error.employee_without_business"
	MsgEmployeeBusinessesFailed = "wizard.error.employee_businesses_unavailable"
	MsgSaveFailed               = "wizard.error.save_failed"
	MsgBooked                   = "wizard.success.booked"
	MsgUpdated                  = "wizard.success.updated"
)
