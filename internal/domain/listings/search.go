package listings

import (
	"strings"
	"time"

	"stayfinder/internal/domain/shared/daterange"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
	maxSearchPage      = 10000
)

// SearchParams describe catalog filters and paging options.
type SearchParams struct {
	Location     string
	CheckIn      time.Time
	CheckOut     time.Time
	Guests       int
	PriceMin     int64
	PriceMax     int64
	PropertyType PropertyType
	States       []ListingState
	Page         int
	Limit        int
}

// Normalized returns a sanitized copy of params.
func (p SearchParams) Normalized() SearchParams {
	normalized := p
	normalized.Location = strings.TrimSpace(normalized.Location)
	normalized.PropertyType = PropertyType(strings.ToLower(strings.TrimSpace(string(normalized.PropertyType))))
	normalized.CheckIn = normalizeDate(normalized.CheckIn)
	normalized.CheckOut = normalizeDate(normalized.CheckOut)
	if normalized.CheckIn.IsZero() || normalized.CheckOut.IsZero() || !normalized.CheckOut.After(normalized.CheckIn) {
		normalized.CheckIn = time.Time{}
		normalized.CheckOut = time.Time{}
	}
	if normalized.Guests < 0 {
		normalized.Guests = 0
	}
	if normalized.PriceMin < 0 {
		normalized.PriceMin = 0
	}
	if normalized.PriceMax < 0 || (normalized.PriceMax > 0 && normalized.PriceMax < normalized.PriceMin) {
		normalized.PriceMax = 0
	}
	if normalized.Page < 1 {
		normalized.Page = 1
	}
	if normalized.Page > maxSearchPage {
		normalized.Page = maxSearchPage
	}
	if normalized.Limit <= 0 {
		normalized.Limit = defaultSearchLimit
	}
	if normalized.Limit > maxSearchLimit {
		normalized.Limit = maxSearchLimit
	}
	return normalized
}

// Range reports the requested stay when both dates are set.
func (p SearchParams) Range() (daterange.DateRange, bool) {
	if p.CheckIn.IsZero() || p.CheckOut.IsZero() {
		return daterange.DateRange{}, false
	}
	return daterange.DateRange{CheckIn: p.CheckIn, CheckOut: p.CheckOut}, true
}

func (p SearchParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Matches applies the filters to a single listing. Params must be normalized.
// A listing with any blocked window touching the requested stay is excluded.
func (p SearchParams) Matches(l *Listing) bool {
	if l == nil {
		return false
	}
	if p.Location != "" {
		needle := strings.ToLower(p.Location)
		hit := false
		for _, field := range []string{l.Location.Address, l.Location.City, l.Location.State, l.Location.Country} {
			if strings.Contains(strings.ToLower(field), needle) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if p.PriceMin > 0 && l.Rates.Base < p.PriceMin {
		return false
	}
	if p.PriceMax > 0 && l.Rates.Base > p.PriceMax {
		return false
	}
	if p.PropertyType != "" && l.PropertyType != p.PropertyType {
		return false
	}
	if p.Guests > 0 && l.MaxGuests < p.Guests {
		return false
	}
	if len(p.States) > 0 {
		allowed := false
		for _, state := range p.States {
			if l.State == state {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	if dr, ok := p.Range(); ok && l.HasBlockedOverlap(dr) {
		return false
	}
	return true
}

func normalizeTokens(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		key := strings.ToLower(token)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, token)
	}
	return out
}

func normalizeDate(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	y, m, d := value.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SearchResult wraps search hits with paging meta.
type SearchResult struct {
	Items      []*Listing
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// NewSearchResult fills in paging meta for a page of items.
func NewSearchResult(items []*Listing, total int, params SearchParams) SearchResult {
	pages := 0
	if params.Limit > 0 {
		pages = (total + params.Limit - 1) / params.Limit
	}
	return SearchResult{Items: items, Total: total, Page: params.Page, Limit: params.Limit, TotalPages: pages}
}
