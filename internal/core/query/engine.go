// Package query evaluates lead filters, orderings and pages over a LeadStore.
package query

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"salesforge-api/internal/adapters/persistence/repositories"
	"salesforge-api/internal/core/domain"
)

const (
	// MaxPageSize bounds a single page
	MaxPageSize = 1000
	// RecentWindow is how far back a lead counts as recent in statistics
	RecentWindow = 30 * 24 * time.Hour
)

// Page is one slice of an ordered query result
type Page struct {
	Items        []domain.Lead
	TotalMatches int64
	TotalPages   int
	Page         int
	Size         int
	First        bool
	Last         bool
	Empty        bool
}

// Engine runs lead queries against a store, pushing work down when the store can do it
type Engine struct {
	store repositories.LeadStore
	now   func() time.Time
}

// NewEngine creates a query engine. A nil clock means time.Now.
func NewEngine(store repositories.LeadStore, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{store: store, now: now}
}

// Query returns page number page (zero-based) of size items matching filter
func (e *Engine) Query(ctx context.Context, filter domain.LeadFilter, page, size int) (*Page, error) {
	if err := validate(&filter, page, size); err != nil {
		return nil, err
	}

	var (
		items []domain.Lead
		total int64
	)
	offset := pageOffset(page, size)

	if searcher, ok := e.store.(repositories.LeadSearcher); ok {
		var err error
		items, total, err = searcher.SearchLeads(ctx, filter, offset, size)
		if err != nil {
			return nil, err
		}
	} else {
		matches, err := e.collect(ctx, filter)
		if err != nil {
			return nil, err
		}
		sortLeads(matches, filter.Sort)
		total = int64(len(matches))
		items = window(matches, offset, size)
	}

	return newPage(items, total, page, size), nil
}

// Statistics counts every lead by status and source in one pass
func (e *Engine) Statistics(ctx context.Context) (*domain.LeadStatistics, error) {
	now := e.now().UTC()
	since := now.Add(-RecentWindow)

	if counter, ok := e.store.(repositories.LeadCounter); ok {
		return counter.CountLeads(ctx, since)
	}

	stats := domain.NewLeadStatistics(now)
	err := e.store.Scan(ctx, func(l domain.Lead) bool {
		stats.ByStatus[l.Status]++
		stats.BySource[l.Source]++
		stats.Total++
		if !l.CreatedAt.Before(since) {
			stats.Recent++
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func validate(filter *domain.LeadFilter, page, size int) error {
	switch {
	case size <= 0:
		return fmt.Errorf("%w: size must be greater than zero", domain.ErrInvalidQuery)
	case size > MaxPageSize:
		return fmt.Errorf("%w: size must not exceed %d", domain.ErrInvalidQuery, MaxPageSize)
	case page < 0:
		return fmt.Errorf("%w: page must not be negative", domain.ErrInvalidQuery)
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedFrom.After(*filter.CreatedTo) {
		return fmt.Errorf("%w: startDate is after endDate", domain.ErrInvalidQuery)
	}
	if filter.Sort.Key == "" {
		filter.Sort = domain.DefaultLeadSort
	}
	if _, ok := lessByKey[filter.Sort.Key]; !ok {
		return fmt.Errorf("%w: unsupported sort key %q", domain.ErrInvalidQuery, filter.Sort.Key)
	}
	return nil
}

func (e *Engine) collect(ctx context.Context, filter domain.LeadFilter) ([]domain.Lead, error) {
	match := compile(filter)
	var matches []domain.Lead
	err := e.store.Scan(ctx, func(l domain.Lead) bool {
		if match(&l) {
			matches = append(matches, l)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// compile turns the active criteria of filter into one conjunctive predicate
func compile(filter domain.LeadFilter) func(*domain.Lead) bool {
	var preds []func(*domain.Lead) bool

	if filter.Status != nil {
		status := *filter.Status
		preds = append(preds, func(l *domain.Lead) bool { return l.Status == status })
	}
	if filter.Source != nil {
		source := *filter.Source
		preds = append(preds, func(l *domain.Lead) bool { return l.Source == source })
	}
	if term := strings.ToLower(filter.SearchTerm()); term != "" {
		preds = append(preds, func(l *domain.Lead) bool {
			return strings.Contains(strings.ToLower(l.CompanyName), term) ||
				strings.Contains(strings.ToLower(l.ContactName), term) ||
				strings.Contains(strings.ToLower(l.Email), term)
		})
	}
	if filter.CreatedFrom != nil {
		from := *filter.CreatedFrom
		preds = append(preds, func(l *domain.Lead) bool { return !l.CreatedAt.Before(from) })
	}
	if filter.CreatedTo != nil {
		to := *filter.CreatedTo
		preds = append(preds, func(l *domain.Lead) bool { return !l.CreatedAt.After(to) })
	}

	return func(l *domain.Lead) bool {
		for _, p := range preds {
			if !p(l) {
				return false
			}
		}
		return true
	}
}

// lessByKey compares two leads on one attribute; -1, 0 or 1
var lessByKey = map[domain.SortKey]func(a, b *domain.Lead) int{
	domain.SortCreatedAt:   func(a, b *domain.Lead) int { return a.CreatedAt.Compare(b.CreatedAt) },
	domain.SortUpdatedAt:   func(a, b *domain.Lead) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
	domain.SortCompanyName: func(a, b *domain.Lead) int { return foldCompare(a.CompanyName, b.CompanyName) },
	domain.SortContactName: func(a, b *domain.Lead) int { return foldCompare(a.ContactName, b.ContactName) },
	domain.SortEmail:       func(a, b *domain.Lead) int { return foldCompare(a.Email, b.Email) },
	domain.SortStatus:      func(a, b *domain.Lead) int { return strings.Compare(string(a.Status), string(b.Status)) },
	domain.SortSource:      func(a, b *domain.Lead) int { return strings.Compare(string(a.Source), string(b.Source)) },
	domain.SortID:          func(a, b *domain.Lead) int { return compareID(a.ID, b.ID) },
}

func sortLeads(leads []domain.Lead, s domain.LeadSort) {
	cmp := lessByKey[s.Key]
	sort.SliceStable(leads, func(i, j int) bool {
		c := cmp(&leads[i], &leads[j])
		if s.Desc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		return leads[i].ID < leads[j].ID
	})
}

func foldCompare(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareID(a, b uint) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// pageOffset is page*size, saturating at math.MaxInt so far pages land past the end
func pageOffset(page, size int) int {
	if size > 0 && page > math.MaxInt/size {
		return math.MaxInt
	}
	return page * size
}

func window(leads []domain.Lead, offset, size int) []domain.Lead {
	if offset < 0 || offset >= len(leads) {
		return []domain.Lead{}
	}
	end := len(leads)
	if size < end-offset {
		end = offset + size
	}
	out := make([]domain.Lead, end-offset)
	copy(out, leads[offset:end])
	return out
}

func newPage(items []domain.Lead, total int64, page, size int) *Page {
	if items == nil {
		items = []domain.Lead{}
	}
	totalPages := int((total + int64(size) - 1) / int64(size))
	return &Page{
		Items:        items,
		TotalMatches: total,
		TotalPages:   totalPages,
		Page:         page,
		Size:         size,
		First:        page == 0,
		Last:         page >= totalPages-1,
		Empty:        len(items) == 0,
	}
}
