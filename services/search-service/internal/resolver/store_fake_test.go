package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/citaplus/citaplus/services/search-service/internal/geo"
)

type fakeBusiness struct {
	ID, Name, CategoryID string
	Inactive             bool
}

type fakeLocation struct {
	ID, BusinessID   string
	CityID, RegionID string
	CityText, Region string
	Inactive         bool
}

type fakeService struct {
	ID, BusinessID, Name string
	Inactive             bool
}

type fakeEmployeeLink struct {
	EmployeeID, BusinessID, Status string
	Inactive                       bool
}

type fakeServiceLink struct {
	EmployeeID, ServiceID, LocationID string
	Inactive                          bool
}

// fakeStore is an in-memory catalog. failOn names a method that returns an error.
type fakeStore struct {
	cities          map[string]string
	regions         map[string]string
	categories      map[string]string
	employees       map[string]string
	businesses      []fakeBusiness
	locations       []fakeLocation
	services        []fakeService
	employeeLinks   []fakeEmployeeLink
	serviceLinks    []fakeServiceLink
	ratings         map[string]RatingStats
	failOn          string
	summaryRequests [][]string
}

func (s *fakeStore) fail(method string) error {
	if s.failOn == method {
		return fmt.Errorf("%s: connection reset", method)
	}
	return nil
}

func contains(haystack, term string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(term))
}

func in(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func (s *fakeStore) business(id string) (fakeBusiness, bool) {
	for _, b := range s.businesses {
		if b.ID == id {
			return b, true
		}
	}
	return fakeBusiness{}, false
}

func (s *fakeStore) activeBusiness(id string) bool {
	b, ok := s.business(id)
	return ok && !b.Inactive
}

func idsByName(m map[string]string, names []string) []string {
	var out []string
	for id, n := range m {
		if geo.Contains(n, names) {
			out = append(out, id)
		}
	}
	return out
}

func (s *fakeStore) CityIDsByName(_ context.Context, names []string) ([]string, error) {
	if err := s.fail("CityIDsByName"); err != nil {
		return nil, err
	}
	return idsByName(s.cities, names), nil
}

func (s *fakeStore) RegionIDsByName(_ context.Context, names []string) ([]string, error) {
	if err := s.fail("RegionIDsByName"); err != nil {
		return nil, err
	}
	return idsByName(s.regions, names), nil
}

func (s *fakeStore) LocationsInArea(_ context.Context, f GeoFilter) ([]Location, error) {
	if err := s.fail("LocationsInArea"); err != nil {
		return nil, err
	}
	var out []Location
	for _, l := range s.locations {
		if l.Inactive || !s.activeBusiness(l.BusinessID) {
			continue
		}
		match := f.Empty() ||
			in(f.CityIDs, l.CityID) || in(f.RegionIDs, l.RegionID) ||
			(len(f.CityNames) > 0 && geo.Contains(l.CityText, f.CityNames)) ||
			(len(f.RegionNames) > 0 && geo.Contains(l.Region, f.RegionNames))
		if match {
			out = append(out, Location{ID: l.ID, BusinessID: l.BusinessID, CityID: l.CityID})
		}
	}
	return out, nil
}

func (s *fakeStore) BusinessIDsByName(_ context.Context, term string) ([]string, error) {
	if err := s.fail("BusinessIDsByName"); err != nil {
		return nil, err
	}
	var out []string
	for _, b := range s.businesses {
		if !b.Inactive && contains(b.Name, term) {
			out = append(out, b.ID)
		}
	}
	return out, nil
}

func (s *fakeStore) ServicesByName(_ context.Context, term string) ([]Service, error) {
	if err := s.fail("ServicesByName"); err != nil {
		return nil, err
	}
	var out []Service
	for _, sv := range s.services {
		if !sv.Inactive && contains(sv.Name, term) {
			out = append(out, Service{ID: sv.ID, BusinessID: sv.BusinessID})
		}
	}
	return out, nil
}

func (s *fakeStore) CategoryIDsByName(_ context.Context, term string) ([]string, error) {
	if err := s.fail("CategoryIDsByName"); err != nil {
		return nil, err
	}
	var out []string
	for id, name := range s.categories {
		if contains(name, term) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *fakeStore) BusinessIDsByCategory(_ context.Context, categoryIDs []string) ([]string, error) {
	var out []string
	for _, b := range s.businesses {
		if !b.Inactive && in(categoryIDs, b.CategoryID) {
			out = append(out, b.ID)
		}
	}
	return out, nil
}

func (s *fakeStore) EmployeeIDsByName(_ context.Context, term string) ([]string, error) {
	if err := s.fail("EmployeeIDsByName"); err != nil {
		return nil, err
	}
	var out []string
	for id, name := range s.employees {
		if contains(name, term) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *fakeStore) approvedLinks(match func(fakeEmployeeLink) bool) []EmployeeLink {
	var out []EmployeeLink
	for _, l := range s.employeeLinks {
		if !l.Inactive && l.Status == "approved" && match(l) {
			out = append(out, EmployeeLink{EmployeeID: l.EmployeeID, BusinessID: l.BusinessID})
		}
	}
	return out
}

func (s *fakeStore) EmployeeLinksByEmployee(_ context.Context, employeeIDs []string) ([]EmployeeLink, error) {
	return s.approvedLinks(func(l fakeEmployeeLink) bool { return in(employeeIDs, l.EmployeeID) }), nil
}

func (s *fakeStore) EmployeeLinksByBusiness(_ context.Context, businessIDs []string) ([]EmployeeLink, error) {
	if err := s.fail("EmployeeLinksByBusiness"); err != nil {
		return nil, err
	}
	return s.approvedLinks(func(l fakeEmployeeLink) bool { return in(businessIDs, l.BusinessID) }), nil
}

func (s *fakeStore) activeServiceLinks(match func(fakeServiceLink) bool) []EmployeeServiceLink {
	var out []EmployeeServiceLink
	for _, l := range s.serviceLinks {
		if !l.Inactive && match(l) {
			out = append(out, EmployeeServiceLink{EmployeeID: l.EmployeeID, ServiceID: l.ServiceID, LocationID: l.LocationID})
		}
	}
	return out
}

func (s *fakeStore) EmployeeServiceLinksByService(_ context.Context, serviceIDs []string) ([]EmployeeServiceLink, error) {
	return s.activeServiceLinks(func(l fakeServiceLink) bool { return in(serviceIDs, l.ServiceID) }), nil
}

func (s *fakeStore) EmployeeServiceLinksByBusiness(_ context.Context, businessIDs []string) ([]EmployeeServiceLink, error) {
	if err := s.fail("EmployeeServiceLinksByBusiness"); err != nil {
		return nil, err
	}
	owner := map[string]string{}
	for _, sv := range s.services {
		owner[sv.ID] = sv.BusinessID
	}
	return s.activeServiceLinks(func(l fakeServiceLink) bool { return in(businessIDs, owner[l.ServiceID]) }), nil
}

func (s *fakeStore) ActiveServices(_ context.Context, businessIDs []string) ([]Service, error) {
	if err := s.fail("ActiveServices"); err != nil {
		return nil, err
	}
	var out []Service
	for _, sv := range s.services {
		if !sv.Inactive && in(businessIDs, sv.BusinessID) {
			out = append(out, Service{ID: sv.ID, BusinessID: sv.BusinessID})
		}
	}
	return out, nil
}

func (s *fakeStore) ActiveLocations(_ context.Context, businessIDs []string) ([]Location, error) {
	if err := s.fail("ActiveLocations"); err != nil {
		return nil, err
	}
	var out []Location
	for _, l := range s.locations {
		if !l.Inactive && in(businessIDs, l.BusinessID) {
			out = append(out, Location{ID: l.ID, BusinessID: l.BusinessID, CityID: l.CityID})
		}
	}
	return out, nil
}

func (s *fakeStore) BusinessSummaries(_ context.Context, ids []string) ([]BusinessSummary, error) {
	if err := s.fail("BusinessSummaries"); err != nil {
		return nil, err
	}
	s.summaryRequests = append(s.summaryRequests, ids)
	var out []BusinessSummary
	for _, b := range s.businesses {
		if !b.Inactive && in(ids, b.ID) {
			out = append(out, BusinessSummary{ID: b.ID, Name: b.Name, CategoryID: b.CategoryID})
		}
	}
	return out, nil
}

func (s *fakeStore) RatingStats(_ context.Context, ids []string) (map[string]RatingStats, error) {
	if err := s.fail("RatingStats"); err != nil {
		return nil, err
	}
	out := map[string]RatingStats{}
	for _, id := range ids {
		if st, ok := s.ratings[id]; ok {
			out[id] = st
		}
	}
	return out, nil
}

func (s *fakeStore) CityNames(_ context.Context, ids []string) (map[string]string, error) {
	if err := s.fail("CityNames"); err != nil {
		return nil, err
	}
	out := map[string]string{}
	for _, id := range ids {
		if n, ok := s.cities[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}
