package resolver

import "context"

// Store is the read model behind the resolver. Name matching is a
// case-insensitive substring match. Methods returning ids keep a stable order.
type Store interface {
	// CityIDsByName and RegionIDsByName map free-text names to ids.
	CityIDsByName(ctx context.Context, names []string) ([]string, error)
	RegionIDsByName(ctx context.Context, names []string) ([]string, error)
	// LocationsInArea returns active locations of active businesses matching f.
	LocationsInArea(ctx context.Context, f GeoFilter) ([]Location, error)

	BusinessIDsByName(ctx context.Context, term string) ([]string, error)
	ServicesByName(ctx context.Context, term string) ([]Service, error)
	CategoryIDsByName(ctx context.Context, term string) ([]string, error)
	BusinessIDsByCategory(ctx context.Context, categoryIDs []string) ([]string, error)
	EmployeeIDsByName(ctx context.Context, term string) ([]string, error)
	// EmployeeLinksByEmployee returns approved active links of the given employees.
	EmployeeLinksByEmployee(ctx context.Context, employeeIDs []string) ([]EmployeeLink, error)
	// EmployeeServiceLinksByService returns active links for the given services.
	EmployeeServiceLinksByService(ctx context.Context, serviceIDs []string) ([]EmployeeServiceLink, error)

	ActiveServices(ctx context.Context, businessIDs []string) ([]Service, error)
	ActiveLocations(ctx context.Context, businessIDs []string) ([]Location, error)
	EmployeeLinksByBusiness(ctx context.Context, businessIDs []string) ([]EmployeeLink, error)
	// EmployeeServiceLinksByBusiness returns active links whose service belongs to one of businessIDs.
	EmployeeServiceLinksByBusiness(ctx context.Context, businessIDs []string) ([]EmployeeServiceLink, error)

	// BusinessSummaries returns active businesses among ids, in any order.
	BusinessSummaries(ctx context.Context, ids []string) ([]BusinessSummary, error)
	RatingStats(ctx context.Context, businessIDs []string) (map[string]RatingStats, error)
	CityNames(ctx context.Context, cityIDs []string) (map[string]string, error)
}
