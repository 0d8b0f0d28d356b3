package storage

import (
	"context"
	"strings"

	"github.com/citaplus/citaplus/libs/db"
	"github.com/citaplus/citaplus/services/search-service/internal/resolver"
	"github.com/jackc/pgx/v5"
)

// Repository is the read-only catalog view used by the resolver.
// Ids travel as text and are cast to uuid in SQL.
type Repository struct {
	pool *db.Pool
}

var _ resolver.Store = (*Repository)(nil)

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// likePattern turns a search term into an ILIKE substring pattern.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(term)) + "%"
}

func likePatterns(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, likePattern(n))
	}
	return out
}

func (r *Repository) ids(ctx context.Context, sql string, args ...any) ([]string, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *Repository) CityIDsByName(ctx context.Context, names []string) ([]string, error) {
	return r.ids(ctx, `
		SELECT id::text FROM cities
		WHERE name ILIKE ANY($1::text[])
		ORDER BY name
	`, likePatterns(names))
}

func (r *Repository) RegionIDsByName(ctx context.Context, names []string) ([]string, error) {
	return r.ids(ctx, `
		SELECT id::text FROM regions
		WHERE name ILIKE ANY($1::text[])
		ORDER BY name
	`, likePatterns(names))
}

func (r *Repository) LocationsInArea(ctx context.Context, f resolver.GeoFilter) ([]resolver.Location, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.id::text, l.business_id::text, COALESCE(l.city_id::text, '')
		FROM locations l
		JOIN businesses b ON b.id = l.business_id AND b.is_active
		WHERE l.is_active
			AND (
				$1
				OR l.city_id = ANY($2::text[]::uuid[])
				OR l.region_id = ANY($3::text[]::uuid[])
				OR l.city ILIKE ANY($4::text[])
				OR l.region ILIKE ANY($5::text[])
			)
		ORDER BY l.created_at, l.id
	`, f.Empty(), nonNil(f.CityIDs), nonNil(f.RegionIDs), likePatterns(f.CityNames), likePatterns(f.RegionNames))
	if err != nil {
		return nil, err
	}
	return scanLocations(rows)
}

func (r *Repository) BusinessIDsByName(ctx context.Context, term string) ([]string, error) {
	return r.ids(ctx, `
		SELECT id::text FROM businesses
		WHERE is_active AND name ILIKE $1
		ORDER BY created_at, id
	`, likePattern(term))
}

func (r *Repository) ServicesByName(ctx context.Context, term string) ([]resolver.Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id::text, s.business_id::text
		FROM services s
		JOIN businesses b ON b.id = s.business_id AND b.is_active
		WHERE s.is_active AND s.name ILIKE $1
		ORDER BY s.created_at, s.id
	`, likePattern(term))
	if err != nil {
		return nil, err
	}
	return scanServices(rows)
}

func (r *Repository) CategoryIDsByName(ctx context.Context, term string) ([]string, error) {
	return r.ids(ctx, `
		SELECT id::text FROM business_categories
		WHERE name ILIKE $1
		ORDER BY name
	`, likePattern(term))
}

func (r *Repository) BusinessIDsByCategory(ctx context.Context, categoryIDs []string) ([]string, error) {
	return r.ids(ctx, `
		SELECT id::text FROM businesses
		WHERE is_active AND category_id = ANY($1::text[]::uuid[])
		ORDER BY created_at, id
	`, nonNil(categoryIDs))
}

func (r *Repository) EmployeeIDsByName(ctx context.Context, term string) ([]string, error) {
	return r.ids(ctx, `
		SELECT id::text FROM employees
		WHERE full_name ILIKE $1
		ORDER BY full_name, id
	`, likePattern(term))
}

func (r *Repository) EmployeeLinksByEmployee(ctx context.Context, employeeIDs []string) ([]resolver.EmployeeLink, error) {
	return r.employeeLinks(ctx, "employee_id", employeeIDs)
}

func (r *Repository) EmployeeLinksByBusiness(ctx context.Context, businessIDs []string) ([]resolver.EmployeeLink, error) {
	return r.employeeLinks(ctx, "business_id", businessIDs)
}

// employeeLinks filters approved active links by column, which is never user input.
func (r *Repository) employeeLinks(ctx context.Context, column string, ids []string) ([]resolver.EmployeeLink, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT employee_id::text, business_id::text
		FROM employee_businesses
		WHERE status = 'approved' AND is_active
			AND `+column+` = ANY($1::text[]::uuid[])
		ORDER BY created_at, employee_id
	`, nonNil(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []resolver.EmployeeLink
	for rows.Next() {
		var l resolver.EmployeeLink
		if err := rows.Scan(&l.EmployeeID, &l.BusinessID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repository) EmployeeServiceLinksByService(ctx context.Context, serviceIDs []string) ([]resolver.EmployeeServiceLink, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT employee_id::text, service_id::text, COALESCE(location_id::text, '')
		FROM employee_services
		WHERE is_active AND service_id = ANY($1::text[]::uuid[])
		ORDER BY created_at, employee_id
	`, nonNil(serviceIDs))
	if err != nil {
		return nil, err
	}
	return scanServiceLinks(rows)
}

func (r *Repository) EmployeeServiceLinksByBusiness(ctx context.Context, businessIDs []string) ([]resolver.EmployeeServiceLink, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT es.employee_id::text, es.service_id::text, COALESCE(es.location_id::text, '')
		FROM employee_services es
		JOIN services s ON s.id = es.service_id
		WHERE es.is_active AND s.business_id = ANY($1::text[]::uuid[])
	`, nonNil(businessIDs))
	if err != nil {
		return nil, err
	}
	return scanServiceLinks(rows)
}

func (r *Repository) ActiveServices(ctx context.Context, businessIDs []string) ([]resolver.Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, business_id::text
		FROM services
		WHERE is_active AND business_id = ANY($1::text[]::uuid[])
	`, nonNil(businessIDs))
	if err != nil {
		return nil, err
	}
	return scanServices(rows)
}

func (r *Repository) ActiveLocations(ctx context.Context, businessIDs []string) ([]resolver.Location, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, business_id::text, COALESCE(city_id::text, '')
		FROM locations
		WHERE is_active AND business_id = ANY($1::text[]::uuid[])
	`, nonNil(businessIDs))
	if err != nil {
		return nil, err
	}
	return scanLocations(rows)
}

func (r *Repository) BusinessSummaries(ctx context.Context, ids []string) ([]resolver.BusinessSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.id::text, b.name, COALESCE(b.description, ''), COALESCE(b.category_id::text, ''),
			COALESCE(c.name, ''), COALESCE(b.logo_url, '')
		FROM businesses b
		LEFT JOIN business_categories c ON c.id = b.category_id
		WHERE b.is_active AND b.id = ANY($1::text[]::uuid[])
	`, nonNil(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []resolver.BusinessSummary
	for rows.Next() {
		var b resolver.BusinessSummary
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.CategoryID, &b.CategoryName, &b.LogoURL); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) RatingStats(ctx context.Context, businessIDs []string) (map[string]resolver.RatingStats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT business_id::text, average_rating::float8, review_count
		FROM business_rating_stats
		WHERE business_id = ANY($1::text[]::uuid[])
	`, nonNil(businessIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]resolver.RatingStats{}
	for rows.Next() {
		var id string
		var s resolver.RatingStats
		if err := rows.Scan(&id, &s.AverageRating, &s.ReviewCount); err != nil {
			return nil, err
		}
		out[id] = s
	}
	return out, rows.Err()
}

func (r *Repository) CityNames(ctx context.Context, cityIDs []string) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, name FROM cities WHERE id = ANY($1::text[]::uuid[])
	`, nonNil(cityIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = name
	}
	return out, rows.Err()
}

func scanLocations(rows pgx.Rows) ([]resolver.Location, error) {
	defer rows.Close()
	var out []resolver.Location
	for rows.Next() {
		var l resolver.Location
		if err := rows.Scan(&l.ID, &l.BusinessID, &l.CityID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanServices(rows pgx.Rows) ([]resolver.Service, error) {
	defer rows.Close()
	var out []resolver.Service
	for rows.Next() {
		var s resolver.Service
		if err := rows.Scan(&s.ID, &s.BusinessID); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanServiceLinks(rows pgx.Rows) ([]resolver.EmployeeServiceLink, error) {
	defer rows.Close()
	var out []resolver.EmployeeServiceLink
	for rows.Next() {
		var l resolver.EmployeeServiceLink
		if err := rows.Scan(&l.EmployeeID, &l.ServiceID, &l.LocationID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// nonNil keeps pgx from encoding a nil slice as SQL NULL, which ANY() treats as unknown.
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
