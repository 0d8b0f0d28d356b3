package resolver

import "strings"

type SearchType string

const (
	TypeInitial    SearchType = "initial"
	TypeBusinesses SearchType = "businesses"
	TypeServices   SearchType = "services"
	TypeCategories SearchType = "categories"
	TypeUsers      SearchType = "users"
	TypeAll        SearchType = "all"
)

func (t SearchType) Valid() bool {
	switch t {
	case TypeInitial, TypeBusinesses, TypeServices, TypeCategories, TypeUsers, TypeAll:
		return true
	}
	return false
}

// MatchSource names the signal that made a business a candidate.
type MatchSource string

const (
	SourceBusiness MatchSource = "business"
	SourceService  MatchSource = "service"
	SourceCategory MatchSource = "category"
	SourceUser     MatchSource = "user"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Request struct {
	Type                SearchType `json:"type"`
	Term                string     `json:"term"`
	PreferredRegionID   string     `json:"preferredRegionId,omitempty"`
	PreferredRegionName string     `json:"preferredRegionName,omitempty"`
	PreferredCityID     string     `json:"preferredCityId,omitempty"`
	PreferredCityName   string     `json:"preferredCityName,omitempty"`
	// ClientID identifies the caller. It does not affect filtering.
	ClientID           string   `json:"clientId,omitempty"`
	Page               int      `json:"page"`
	PageSize           int      `json:"pageSize"`
	ExcludeBusinessIDs []string `json:"excludeBusinessIds,omitempty"`
	MinRating          *float64 `json:"minRating,omitempty"`
	MinReviewCount     *int     `json:"minReviewCount,omitempty"`
}

// Normalize fills defaults. A blank term always means an initial listing.
func (r Request) Normalize() Request {
	r.Term = strings.TrimSpace(r.Term)
	if r.Type == "" || r.Term == "" {
		r.Type = TypeInitial
	}
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize <= 0 {
		r.PageSize = DefaultPageSize
	}
	if r.PageSize > MaxPageSize {
		r.PageSize = MaxPageSize
	}
	return r
}

type BusinessSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	CategoryID   string `json:"categoryId,omitempty"`
	CategoryName string `json:"categoryName,omitempty"`
	LogoURL      string `json:"logoUrl,omitempty"`
}

type RatingStats struct {
	AverageRating float64 `json:"averageRating"`
	ReviewCount   int     `json:"reviewCount"`
}

type Response struct {
	Businesses               []BusinessSummary        `json:"businesses"`
	Total                    int                      `json:"total"`
	LocationsCountMap        map[string]int           `json:"locationsCountMap"`
	CityBusinessIDs          []string                 `json:"cityBusinessIds"`
	CityLocationIDs          []string                 `json:"cityLocationIds"`
	CityNameMap              map[string]string        `json:"cityNameMap"`
	MatchSourcesByBusinessID map[string][]MatchSource `json:"matchSourcesByBusinessId"`
	RatingStatsByBusinessID  map[string]RatingStats   `json:"ratingStatsByBusinessId"`
}

// GeoFilter selects locations by normalized id or by legacy free text.
// An empty filter selects every active location.
type GeoFilter struct {
	CityIDs     []string
	RegionIDs   []string
	CityNames   []string
	RegionNames []string
}

func (f GeoFilter) Empty() bool {
	return len(f.CityIDs) == 0 && len(f.RegionIDs) == 0 && len(f.CityNames) == 0 && len(f.RegionNames) == 0
}

// Location is an active location row as seen by the resolver.
type Location struct {
	ID         string
	BusinessID string
	CityID     string
}

type Service struct {
	ID         string
	BusinessID string
}

// EmployeeLink is an approved and active employee-business association.
type EmployeeLink struct {
	EmployeeID string
	BusinessID string
}

// EmployeeServiceLink is an active employee-service association. An empty
// LocationID means the employee performs the service at any location.
type EmployeeServiceLink struct {
	EmployeeID string
	ServiceID  string
	LocationID string
}
