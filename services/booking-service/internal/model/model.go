package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Business struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CategoryID  string `json:"categoryId,omitempty"`
	IsActive    bool   `json:"isActive"`
}

type Location struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"businessId"`
	Name       string    `json:"name"`
	Address    string    `json:"address,omitempty"`
	CityID     string    `json:"cityId,omitempty"`
	City       string    `json:"city,omitempty"`
	Region     string    `json:"region,omitempty"`
	Hours      WeekHours `json:"hours,omitempty"`
	IsActive   bool      `json:"isActive"`
}

// Service.LocationID is empty when the service is offered at every location
// of the business. DurationMinutes is zero when unknown.
type Service struct {
	ID              string          `json:"id"`
	BusinessID      string          `json:"businessId"`
	LocationID      string          `json:"locationId,omitempty"`
	Name            string          `json:"name"`
	DurationMinutes int             `json:"durationMinutes,omitempty"`
	Price           decimal.Decimal `json:"price"`
	Currency        string          `json:"currency"`
	Category        string          `json:"category,omitempty"`
	IsActive        bool            `json:"isActive"`
}

type Employee struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
}

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

type Appointment struct {
	ID         string          `json:"id"`
	ClientID   string          `json:"clientId"`
	BusinessID string          `json:"businessId"`
	ServiceID  string          `json:"serviceId"`
	LocationID string          `json:"locationId,omitempty"`
	EmployeeID string          `json:"employeeId,omitempty"`
	StartTime  time.Time       `json:"startTime"`
	EndTime    time.Time       `json:"endTime"`
	Status     string          `json:"status"`
	Price      decimal.Decimal `json:"price"`
	Currency   string          `json:"currency,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Interval is a half-open [Start, End) span.
type Interval struct {
	Start time.Time
	End   time.Time
}
