// Package resolver decides which businesses in an area match a search and
// can actually be booked.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/citaplus/citaplus/services/search-service/internal/geo"
	"golang.org/x/sync/errgroup"
)

type Resolver struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// area is the city-relevant slice of the catalog.
type area struct {
	businessIDs []string
	locationIDs []string
	locations   []Location
	business    map[string]struct{}
	location    map[string]struct{}
}

func (r *Resolver) Resolve(ctx context.Context, req Request) (Response, error) {
	req = req.Normalize()

	a, err := r.resolveArea(ctx, req)
	if err != nil {
		return Response{}, fmt.Errorf("resolve area: %w", err)
	}

	candidates, sources, err := r.candidates(ctx, req, a)
	if err != nil {
		return Response{}, fmt.Errorf("candidates: %w", err)
	}
	candidates = keep(candidates, a.business)

	bookable, err := r.Bookable(ctx, candidates)
	if err != nil {
		return Response{}, fmt.Errorf("bookability: %w", err)
	}
	candidates = keep(candidates, bookable)

	var stats map[string]RatingStats
	if req.MinRating != nil || req.MinReviewCount != nil {
		stats, err = r.store.RatingStats(ctx, candidates)
		if err != nil {
			return Response{}, fmt.Errorf("rating stats: %w", err)
		}
		candidates = filterByRating(candidates, stats, req.MinRating, req.MinReviewCount)
	}

	candidates = drop(candidates, req.ExcludeBusinessIDs)

	summaries, err := r.store.BusinessSummaries(ctx, candidates)
	if err != nil {
		return Response{}, fmt.Errorf("business summaries: %w", err)
	}
	ordered := orderSummaries(candidates, summaries)
	if req.Type == TypeInitial {
		sort.SliceStable(ordered, func(i, j int) bool {
			return strings.ToLower(ordered[i].Name) < strings.ToLower(ordered[j].Name)
		})
	}

	// Exclusions already remove the earlier pages, so the window starts at the top.
	page := req.Page
	if len(req.ExcludeBusinessIDs) > 0 {
		page = 1
	}
	p := Paginate(ordered, page, req.PageSize)

	resp := Response{
		Businesses:               p.Items,
		Total:                    p.Total,
		LocationsCountMap:        map[string]int{},
		CityBusinessIDs:          a.businessIDs,
		CityLocationIDs:          a.locationIDs,
		CityNameMap:              map[string]string{},
		MatchSourcesByBusinessID: map[string][]MatchSource{},
		RatingStatsByBusinessID:  map[string]RatingStats{},
	}
	if resp.Businesses == nil {
		resp.Businesses = []BusinessSummary{}
	}
	if err := r.decorate(ctx, &resp, a, sources, stats); err != nil {
		return Response{}, err
	}
	return resp, nil
}

func (r *Resolver) resolveArea(ctx context.Context, req Request) (area, error) {
	var f GeoFilter
	if id := strings.TrimSpace(req.PreferredCityID); id != "" {
		f.CityIDs = append(f.CityIDs, id)
	}
	if names := geo.Variants(req.PreferredCityName); len(names) > 0 {
		f.CityNames = names
		ids, err := r.store.CityIDsByName(ctx, names)
		if err != nil {
			r.logger.Warn("city name lookup failed, matching on text only", "err", err)
		}
		f.CityIDs = appendUnique(f.CityIDs, ids...)
	}
	// A city is the narrower preference; the region only applies without one.
	cityGiven := len(f.CityIDs) > 0 || len(f.CityNames) > 0
	if id := strings.TrimSpace(req.PreferredRegionID); id != "" && !cityGiven {
		f.RegionIDs = append(f.RegionIDs, id)
	}
	if names := geo.Variants(req.PreferredRegionName); len(names) > 0 && !cityGiven {
		f.RegionNames = names
		ids, err := r.store.RegionIDsByName(ctx, names)
		if err != nil {
			r.logger.Warn("region name lookup failed, matching on text only", "err", err)
		}
		f.RegionIDs = appendUnique(f.RegionIDs, ids...)
	}

	locs, err := r.store.LocationsInArea(ctx, f)
	if err != nil {
		return area{}, err
	}
	a := area{
		locations: locs,
		business:  map[string]struct{}{},
		location:  map[string]struct{}{},
	}
	for _, l := range locs {
		if _, ok := a.location[l.ID]; !ok {
			a.location[l.ID] = struct{}{}
			a.locationIDs = append(a.locationIDs, l.ID)
		}
		if _, ok := a.business[l.BusinessID]; !ok {
			a.business[l.BusinessID] = struct{}{}
			a.businessIDs = append(a.businessIDs, l.BusinessID)
		}
	}
	if a.businessIDs == nil {
		a.businessIDs = []string{}
	}
	if a.locationIDs == nil {
		a.locationIDs = []string{}
	}
	return a, nil
}

// candidates returns business ids in discovery order plus the sources that
// matched each one.
func (r *Resolver) candidates(ctx context.Context, req Request, a area) ([]string, map[string][]MatchSource, error) {
	sources := map[string][]MatchSource{}
	switch req.Type {
	case TypeInitial:
		return append([]string(nil), a.businessIDs...), sources, nil
	case TypeAll:
		var byName, byService, byCategory, byUser []string
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) { byName, err = r.store.BusinessIDsByName(gctx, req.Term); return })
		g.Go(func() (err error) { byService, err = r.matchServices(gctx, req.Term, a); return })
		g.Go(func() (err error) { byCategory, err = r.matchCategories(gctx, req.Term); return })
		g.Go(func() (err error) { byUser, err = r.matchUsers(gctx, req.Term); return })
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}
		var ids []string
		for _, set := range []struct {
			src MatchSource
			ids []string
		}{
			{SourceBusiness, byName},
			{SourceService, byService},
			{SourceCategory, byCategory},
			{SourceUser, byUser},
		} {
			for _, id := range set.ids {
				if _, seen := sources[id]; !seen {
					ids = append(ids, id)
				}
				sources[id] = appendSource(sources[id], set.src)
			}
		}
		return ids, sources, nil
	}

	var (
		ids []string
		src MatchSource
		err error
	)
	switch req.Type {
	case TypeBusinesses:
		ids, err = r.store.BusinessIDsByName(ctx, req.Term)
		src = SourceBusiness
	case TypeServices:
		ids, err = r.matchServices(ctx, req.Term, a)
		src = SourceService
	case TypeCategories:
		ids, err = r.matchCategories(ctx, req.Term)
		src = SourceCategory
	case TypeUsers:
		ids, err = r.matchUsers(ctx, req.Term)
		src = SourceUser
	default:
		return nil, nil, fmt.Errorf("unknown search type %q", req.Type)
	}
	if err != nil {
		return nil, nil, err
	}
	ids = unique(ids)
	for _, id := range ids {
		sources[id] = []MatchSource{src}
	}
	return ids, sources, nil
}

// matchServices finds businesses owning a matching service that some employee
// performs inside the area, or at any location.
func (r *Resolver) matchServices(ctx context.Context, term string, a area) ([]string, error) {
	services, err := r.store.ServicesByName(ctx, term)
	if err != nil || len(services) == 0 {
		return nil, err
	}
	owner := make(map[string]string, len(services))
	ids := make([]string, 0, len(services))
	for _, s := range services {
		owner[s.ID] = s.BusinessID
		ids = append(ids, s.ID)
	}
	links, err := r.store.EmployeeServiceLinksByService(ctx, ids)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, l := range links {
		if l.LocationID != "" {
			if _, ok := a.location[l.LocationID]; !ok {
				continue
			}
		}
		if b, ok := owner[l.ServiceID]; ok {
			out = append(out, b)
		}
	}
	return unique(out), nil
}

func (r *Resolver) matchCategories(ctx context.Context, term string) ([]string, error) {
	cats, err := r.store.CategoryIDsByName(ctx, term)
	if err != nil || len(cats) == 0 {
		return nil, err
	}
	ids, err := r.store.BusinessIDsByCategory(ctx, cats)
	return unique(ids), err
}

func (r *Resolver) matchUsers(ctx context.Context, term string) ([]string, error) {
	employees, err := r.store.EmployeeIDsByName(ctx, term)
	if err != nil || len(employees) == 0 {
		return nil, err
	}
	links, err := r.store.EmployeeLinksByEmployee(ctx, employees)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, l.BusinessID)
	}
	return unique(out), nil
}

// Bookable returns the subset of businessIDs with at least one active service
// performed by an approved active employee at one of the business's active
// locations, or at any location when the business has one.
func (r *Resolver) Bookable(ctx context.Context, businessIDs []string) (map[string]struct{}, error) {
	out := map[string]struct{}{}
	if len(businessIDs) == 0 {
		return out, nil
	}

	var (
		services  []Service
		locations []Location
		employees []EmployeeLink
		links     []EmployeeServiceLink
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { services, err = r.store.ActiveServices(gctx, businessIDs); return })
	g.Go(func() (err error) { locations, err = r.store.ActiveLocations(gctx, businessIDs); return })
	g.Go(func() (err error) { employees, err = r.store.EmployeeLinksByBusiness(gctx, businessIDs); return })
	g.Go(func() (err error) { links, err = r.store.EmployeeServiceLinksByBusiness(gctx, businessIDs); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	serviceOwner := make(map[string]string, len(services))
	for _, s := range services {
		serviceOwner[s.ID] = s.BusinessID
	}
	locationOwner := make(map[string]string, len(locations))
	hasLocation := map[string]bool{}
	for _, l := range locations {
		locationOwner[l.ID] = l.BusinessID
		hasLocation[l.BusinessID] = true
	}
	approved := make(map[EmployeeLink]bool, len(employees))
	for _, e := range employees {
		approved[e] = true
	}

	for _, l := range links {
		b, ok := serviceOwner[l.ServiceID]
		if !ok || !approved[EmployeeLink{EmployeeID: l.EmployeeID, BusinessID: b}] {
			continue
		}
		if l.LocationID == "" {
			if hasLocation[b] {
				out[b] = struct{}{}
			}
			continue
		}
		if locationOwner[l.LocationID] == b {
			out[b] = struct{}{}
		}
	}
	return out, nil
}

func (r *Resolver) decorate(ctx context.Context, resp *Response, a area, sources map[string][]MatchSource, stats map[string]RatingStats) error {
	if len(resp.Businesses) == 0 {
		return nil
	}
	ids := make([]string, 0, len(resp.Businesses))
	onPage := map[string]struct{}{}
	for _, b := range resp.Businesses {
		ids = append(ids, b.ID)
		onPage[b.ID] = struct{}{}
		if src := sources[b.ID]; len(src) > 0 {
			resp.MatchSourcesByBusinessID[b.ID] = src
		}
	}

	var cityIDs []string
	for _, l := range a.locations {
		if _, ok := onPage[l.BusinessID]; !ok {
			continue
		}
		resp.LocationsCountMap[l.BusinessID]++
		if l.CityID != "" {
			cityIDs = appendUnique(cityIDs, l.CityID)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if stats == nil {
		g.Go(func() (err error) { stats, err = r.store.RatingStats(gctx, ids); return })
	}
	var names map[string]string
	if len(cityIDs) > 0 {
		g.Go(func() (err error) { names, err = r.store.CityNames(gctx, cityIDs); return })
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("decorate page: %w", err)
	}
	for _, id := range ids {
		resp.RatingStatsByBusinessID[id] = stats[id]
	}
	for id, name := range names {
		resp.CityNameMap[id] = name
	}
	return nil
}

func filterByRating(ids []string, stats map[string]RatingStats, minRating *float64, minReviews *int) []string {
	out := ids[:0:0]
	for _, id := range ids {
		s := stats[id]
		if minRating != nil && s.AverageRating < *minRating {
			continue
		}
		if minReviews != nil && s.ReviewCount < *minReviews {
			continue
		}
		out = append(out, id)
	}
	return out
}

func orderSummaries(ids []string, summaries []BusinessSummary) []BusinessSummary {
	byID := make(map[string]BusinessSummary, len(summaries))
	for _, s := range summaries {
		byID[s.ID] = s
	}
	out := make([]BusinessSummary, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

func keep[V any](ids []string, set map[string]V) []string {
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func drop(ids, excluded []string) []string {
	if len(excluded) == 0 {
		return ids
	}
	skip := make(map[string]struct{}, len(excluded))
	for _, id := range excluded {
		skip[id] = struct{}{}
	}
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := skip[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func unique(ids []string) []string {
	return appendUnique(nil, ids...)
}

func appendUnique(dst []string, ids ...string) []string {
	seen := make(map[string]struct{}, len(dst)+len(ids))
	for _, id := range dst {
		seen[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		dst = append(dst, id)
	}
	return dst
}

func appendSource(list []MatchSource, s MatchSource) []MatchSource {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
