package storage

import (
	"context"
	"fmt"

	"github.com/citaplus/citaplus/libs/apperr"
	"github.com/citaplus/citaplus/libs/db"
	"github.com/citaplus/citaplus/services/booking-service/internal/model"
	"github.com/citaplus/citaplus/services/booking-service/internal/wizard"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// CatalogRepository reads the active catalog for the booking wizard.
type CatalogRepository struct {
	pool *db.Pool
}

var _ wizard.Catalog = (*CatalogRepository)(nil)

func NewCatalogRepository(pool *db.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func one[T any](kind, id string, rows pgx.Rows, err error, scan pgx.RowToFunc[T]) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	v, err := pgx.CollectExactlyOneRow(rows, scan)
	if db.IsNotFound(err) {
		return zero, fmt.Errorf("%s %s: %w", kind, id, apperr.ErrNotFound)
	}
	if err != nil {
		return zero, fmt.Errorf("load %s %s: %w", kind, id, err)
	}
	return v, nil
}

const businessColumns = `b.id::text, b.name, COALESCE(b.description, ''), COALESCE(b.category_id::text, ''), b.is_active`

func scanBusiness(row pgx.CollectableRow) (model.Business, error) {
	var b model.Business
	err := row.Scan(&b.ID, &b.Name, &b.Description, &b.CategoryID, &b.IsActive)
	return b, err
}

func (r *CatalogRepository) Business(ctx context.Context, id string) (model.Business, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+businessColumns+`
		FROM businesses b
		WHERE b.id::text = $1 AND b.is_active
	`, id)
	return one("business", id, rows, err, scanBusiness)
}

const locationColumns = `id::text, business_id::text, name, COALESCE(address, ''), COALESCE(city_id::text, ''),
	COALESCE(city, ''), COALESCE(region, ''), hours, is_active`

func scanLocation(row pgx.CollectableRow) (model.Location, error) {
	var (
		l     model.Location
		hours []byte
	)
	if err := row.Scan(&l.ID, &l.BusinessID, &l.Name, &l.Address, &l.CityID, &l.City, &l.Region, &hours, &l.IsActive); err != nil {
		return model.Location{}, err
	}
	h, err := model.DecodeHours(hours)
	if err != nil {
		return model.Location{}, fmt.Errorf("location %s: %w", l.ID, err)
	}
	l.Hours = h
	return l, nil
}

func (r *CatalogRepository) Location(ctx context.Context, id string) (model.Location, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+locationColumns+`
		FROM locations
		WHERE id::text = $1 AND is_active
	`, id)
	return one("location", id, rows, err, scanLocation)
}

func (r *CatalogRepository) Locations(ctx context.Context, businessID string) ([]model.Location, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+locationColumns+`
		FROM locations
		WHERE business_id::text = $1 AND is_active
		ORDER BY name, id
	`, businessID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanLocation)
}

const serviceColumns = `id::text, business_id::text, COALESCE(location_id::text, ''), name,
	COALESCE(duration_minutes, 0), price::text, currency, COALESCE(category, ''), is_active`

func scanService(row pgx.CollectableRow) (model.Service, error) {
	var (
		s     model.Service
		price string
	)
	if err := row.Scan(&s.ID, &s.BusinessID, &s.LocationID, &s.Name, &s.DurationMinutes, &price, &s.Currency, &s.Category, &s.IsActive); err != nil {
		return model.Service{}, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return model.Service{}, fmt.Errorf("service %s price: %w", s.ID, err)
	}
	s.Price = p
	return s, nil
}

func (r *CatalogRepository) Service(ctx context.Context, id string) (model.Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE id::text = $1 AND is_active
	`, id)
	return one("service", id, rows, err, scanService)
}

// Services lists the business's services offered at locationID, including
// services available at every location. An empty locationID lists all.
func (r *CatalogRepository) Services(ctx context.Context, businessID, locationID string) ([]model.Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE business_id::text = $1
			AND is_active
			AND ($2 = '' OR location_id IS NULL OR location_id::text = $2)
		ORDER BY name, id
	`, businessID, locationID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanService)
}

func scanEmployee(row pgx.CollectableRow) (model.Employee, error) {
	var e model.Employee
	err := row.Scan(&e.ID, &e.FullName)
	return e, err
}

func (r *CatalogRepository) Employee(ctx context.Context, id string) (model.Employee, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, full_name
		FROM employees
		WHERE id::text = $1
	`, id)
	return one("employee", id, rows, err, scanEmployee)
}

// Employees lists employees who offer the service at locationID and hold an
// approved, active link to the service's business.
func (r *CatalogRepository) Employees(ctx context.Context, serviceID, locationID string) ([]model.Employee, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT e.id::text, e.full_name
		FROM employee_services es
		JOIN services s ON s.id = es.service_id AND s.is_active
		JOIN employees e ON e.id = es.employee_id
		JOIN employee_businesses eb ON eb.employee_id = e.id
			AND eb.business_id = s.business_id
			AND eb.status = 'approved'
			AND eb.is_active
		WHERE es.service_id::text = $1
			AND es.is_active
			AND ($2 = '' OR es.location_id IS NULL OR es.location_id::text = $2)
		ORDER BY e.full_name, e.id::text
	`, serviceID, locationID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanEmployee)
}

func (r *CatalogRepository) EmployeeBusinesses(ctx context.Context, employeeID string) ([]model.Business, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+businessColumns+`
		FROM employee_businesses eb
		JOIN businesses b ON b.id = eb.business_id AND b.is_active
		WHERE eb.employee_id::text = $1
			AND eb.status = 'approved'
			AND eb.is_active
		ORDER BY b.name, b.id
	`, employeeID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanBusiness)
}

func (r *CatalogRepository) EmployeeOffersService(ctx context.Context, employeeID, serviceID string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM employee_services
			WHERE employee_id::text = $1 AND service_id::text = $2 AND is_active
		)
	`, employeeID, serviceID).Scan(&ok)
	return ok, err
}
