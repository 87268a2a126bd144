package query

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"salesforge-api/internal/adapters/persistence/repositories"
	"salesforge-api/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// fixedClock hands out base, base+1m, base+2m, ...
type fixedClock struct{ n int }

func (c *fixedClock) Now() time.Time {
	t := base.Add(time.Duration(c.n) * time.Minute)
	c.n++
	return t
}

func seed(t *testing.T, store *repositories.MemoryLeadStore, leads ...domain.Lead) []domain.Lead {
	t.Helper()
	out := make([]domain.Lead, 0, len(leads))
	for i := range leads {
		l := leads[i]
		require.NoError(t, store.Insert(context.Background(), &l))
		out = append(out, l)
	}
	return out
}

func lead(company, contact, email string, status domain.LeadStatus, source domain.LeadSource) domain.Lead {
	return domain.Lead{
		CompanyName: company,
		ContactName: contact,
		Email:       email,
		Status:      status,
		Source:      source,
		OwnerID:     1,
	}
}

func ids(leads []domain.Lead) []uint {
	out := make([]uint, 0, len(leads))
	for _, l := range leads {
		out = append(out, l.ID)
	}
	return out
}

func newFixture(t *testing.T, n int) (*Engine, *repositories.MemoryLeadStore) {
	t.Helper()
	clock := &fixedClock{}
	store := repositories.NewMemoryLeadStore(clock.Now)
	statuses := domain.LeadStatuses
	sources := domain.LeadSources
	for i := 0; i < n; i++ {
		seed(t, store, lead(
			fmt.Sprintf("Company %02d", i),
			fmt.Sprintf("Contact %02d", i),
			fmt.Sprintf("c%02d@example.com", i),
			statuses[i%len(statuses)],
			sources[i%len(sources)],
		))
	}
	return NewEngine(store, func() time.Time { return base.Add(24 * time.Hour) }), store
}

func TestQuery_StatusFilterScenario(t *testing.T) {
	store := repositories.NewMemoryLeadStore((&fixedClock{}).Now)
	seeded := seed(t, store,
		lead("A Corp", "Ann", "ann@a.com", domain.StatusNew, domain.SourceWebsite),
		lead("B Corp", "Bob", "bob@b.com", domain.StatusQualified, domain.SourceReferral),
	)
	engine := NewEngine(store, nil)

	status := domain.StatusNew
	page, err := engine.Query(context.Background(), domain.LeadFilter{Status: &status}, 0, 10)
	require.NoError(t, err)

	assert.Equal(t, []uint{seeded[0].ID}, ids(page.Items))
	assert.Equal(t, int64(1), page.TotalMatches)
	assert.Equal(t, 1, page.TotalPages)
	assert.True(t, page.First)
	assert.True(t, page.Last)
}

func TestQuery_DefaultOrderIsNewestFirstWithIDTieBreak(t *testing.T) {
	same := func() time.Time { return base }
	store := repositories.NewMemoryLeadStore(same)
	seed(t, store,
		lead("A", "a", "a@x.io", domain.StatusNew, domain.SourceOther),
		lead("B", "b", "b@x.io", domain.StatusNew, domain.SourceOther),
		lead("C", "c", "c@x.io", domain.StatusNew, domain.SourceOther),
	)
	engine := NewEngine(store, nil)

	page, err := engine.Query(context.Background(), domain.LeadFilter{}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2, 3}, ids(page.Items))

	engine2, _ := newFixture(t, 3)
	page, err = engine2.Query(context.Background(), domain.LeadFilter{}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{3, 2, 1}, ids(page.Items))
}

func TestQuery_IsIdempotent(t *testing.T) {
	engine, _ := newFixture(t, 23)
	filter := domain.LeadFilter{Search: "company", Sort: domain.LeadSort{Key: domain.SortStatus}}

	first, err := engine.Query(context.Background(), filter, 1, 5)
	require.NoError(t, err)
	second, err := engine.Query(context.Background(), filter, 1, 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestQuery_PaginationIsComplete(t *testing.T) {
	engine, _ := newFixture(t, 23)
	ctx := context.Background()

	for _, sort := range []domain.LeadSort{
		domain.DefaultLeadSort,
		{Key: domain.SortStatus},
		{Key: domain.SortSource, Desc: true},
		{Key: domain.SortCompanyName, Desc: true},
	} {
		filter := domain.LeadFilter{Sort: sort}
		full, err := engine.Query(ctx, filter, 0, MaxPageSize)
		require.NoError(t, err)
		require.Len(t, full.Items, 23)

		first, err := engine.Query(ctx, filter, 0, 4)
		require.NoError(t, err)
		assert.Equal(t, 6, first.TotalPages)

		var collected []uint
		seen := map[uint]bool{}
		for p := 0; p < first.TotalPages; p++ {
			page, err := engine.Query(ctx, filter, p, 4)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(page.Items), 4)
			for _, l := range page.Items {
				assert.False(t, seen[l.ID], "duplicate id %d", l.ID)
				seen[l.ID] = true
				collected = append(collected, l.ID)
			}
		}
		assert.Equal(t, ids(full.Items), collected, "sort %s", sort)
	}
}

func TestQuery_PageBeyondEndIsEmpty(t *testing.T) {
	engine, _ := newFixture(t, 7)

	page, err := engine.Query(context.Background(), domain.LeadFilter{}, 0, 3)
	require.NoError(t, err)
	require.Equal(t, 3, page.TotalPages)

	out, err := engine.Query(context.Background(), domain.LeadFilter{}, page.TotalPages, 3)
	require.NoError(t, err)
	assert.Empty(t, out.Items)
	assert.NotNil(t, out.Items)
	assert.Equal(t, int64(7), out.TotalMatches)
	assert.Equal(t, 3, out.TotalPages)
	assert.True(t, out.Empty)
	assert.True(t, out.Last)
}

func TestQuery_HugePageNumberIsEmptyWithTotals(t *testing.T) {
	engine, _ := newFixture(t, 5)

	tests := []struct {
		name string
		page int
		size int
	}{
		{"product wraps to zero", 1 << 62, 4},
		{"product wraps negative", math.MaxInt64/2 + 1, 2},
		{"max page", math.MaxInt, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := engine.Query(context.Background(), domain.LeadFilter{}, tt.page, tt.size)
			require.NoError(t, err)
			assert.Empty(t, out.Items)
			assert.Equal(t, int64(5), out.TotalMatches)
			assert.Equal(t, tt.page, out.Page)
			assert.True(t, out.Empty)
			assert.True(t, out.Last)
			assert.False(t, out.First)
		})
	}
}

func TestPageOffsetSaturates(t *testing.T) {
	assert.Equal(t, 12, pageOffset(3, 4))
	assert.Equal(t, 0, pageOffset(0, MaxPageSize))
	assert.Equal(t, math.MaxInt, pageOffset(1<<62, 4))
	assert.Equal(t, math.MaxInt, pageOffset(math.MaxInt, MaxPageSize))
}

func TestQuery_EmptyStore(t *testing.T) {
	engine := NewEngine(repositories.NewMemoryLeadStore(nil), nil)

	page, err := engine.Query(context.Background(), domain.LeadFilter{}, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), page.TotalMatches)
	assert.Equal(t, 0, page.TotalPages)
	assert.Empty(t, page.Items)
	assert.True(t, page.First)
	assert.True(t, page.Last)
}

func TestQuery_InvalidParameters(t *testing.T) {
	engine, _ := newFixture(t, 1)
	from := base.Add(time.Hour)
	to := base

	tests := []struct {
		name   string
		filter domain.LeadFilter
		page   int
		size   int
	}{
		{"zero size", domain.LeadFilter{}, 0, 0},
		{"negative size", domain.LeadFilter{}, 0, -1},
		{"oversized", domain.LeadFilter{}, 0, MaxPageSize + 1},
		{"negative page", domain.LeadFilter{}, -1, 10},
		{"inverted range", domain.LeadFilter{CreatedFrom: &from, CreatedTo: &to}, 0, 10},
		{"bad sort", domain.LeadFilter{Sort: domain.LeadSort{Key: "password"}}, 0, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Query(context.Background(), tt.filter, tt.page, tt.size)
			assert.ErrorIs(t, err, domain.ErrInvalidQuery)
		})
	}
}

func TestQuery_SearchIsTrimmedAndCaseInsensitive(t *testing.T) {
	store := repositories.NewMemoryLeadStore((&fixedClock{}).Now)
	seed(t, store,
		lead("Globex", "Hank Scorpio", "hank@globex.com", domain.StatusNew, domain.SourceWebsite),
		lead("Initech", "Bill", "bill@initech.com", domain.StatusNew, domain.SourceWebsite),
		lead("Acme", "Wile", "wile@GLOBEX.net", domain.StatusLost, domain.SourceEmail),
	)
	engine := NewEngine(store, nil)
	ctx := context.Background()

	page, err := engine.Query(ctx, domain.LeadFilter{Search: "  globex "}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{3, 1}, ids(page.Items))

	page, err = engine.Query(ctx, domain.LeadFilter{Search: "SCORPIO"}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, ids(page.Items))

	page, err = engine.Query(ctx, domain.LeadFilter{Search: "   "}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalMatches)
}

func TestQuery_CriteriaAreConjunctive(t *testing.T) {
	store := repositories.NewMemoryLeadStore((&fixedClock{}).Now)
	seed(t, store,
		lead("Globex", "Hank", "hank@globex.com", domain.StatusNew, domain.SourceWebsite),
		lead("Globex East", "Mindy", "mindy@globex.com", domain.StatusNew, domain.SourceReferral),
		lead("Initech", "Bill", "bill@initech.com", domain.StatusNew, domain.SourceWebsite),
	)
	engine := NewEngine(store, nil)

	source := domain.SourceWebsite
	status := domain.StatusNew
	page, err := engine.Query(context.Background(), domain.LeadFilter{
		Status: &status,
		Source: &source,
		Search: "globex",
	}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, ids(page.Items))
}

func TestQuery_DateRangeIsInclusive(t *testing.T) {
	engine, _ := newFixture(t, 5)
	from := base.Add(1 * time.Minute)
	to := base.Add(3 * time.Minute)

	page, err := engine.Query(context.Background(), domain.LeadFilter{
		CreatedFrom: &from,
		CreatedTo:   &to,
		Sort:        domain.LeadSort{Key: domain.SortID},
	}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{2, 3, 4}, ids(page.Items))
}

func TestQuery_DeletedLeadDisappears(t *testing.T) {
	engine, store := newFixture(t, 3)
	ctx := context.Background()

	require.NoError(t, store.Delete(ctx, 2))
	page, err := engine.Query(ctx, domain.LeadFilter{}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{3, 1}, ids(page.Items))
}

func TestStatistics_SinglePassCounts(t *testing.T) {
	clock := &fixedClock{}
	store := repositories.NewMemoryLeadStore(clock.Now)
	seed(t, store,
		lead("A", "a", "a@x.io", domain.StatusNew, domain.SourceWebsite),
		lead("B", "b", "b@x.io", domain.StatusNew, domain.SourceReferral),
		lead("C", "c", "c@x.io", domain.StatusLost, domain.SourceWebsite),
	)

	now := base.Add(RecentWindow).Add(90 * time.Second)
	stats, err := NewEngine(store, func() time.Time { return now }).Statistics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.ByStatus[domain.StatusNew])
	assert.Equal(t, int64(1), stats.ByStatus[domain.StatusLost])
	assert.Equal(t, int64(0), stats.ByStatus[domain.StatusConverted])
	assert.Len(t, stats.ByStatus, len(domain.LeadStatuses))
	assert.Len(t, stats.BySource, len(domain.LeadSources))
	assert.Equal(t, int64(2), stats.BySource[domain.SourceWebsite])
	assert.Equal(t, int64(3), stats.Total)
	// only the lead created at base+2m falls inside the window
	assert.Equal(t, int64(1), stats.Recent)
	assert.Equal(t, now, stats.GeneratedAt)
}

type pushdownStore struct {
	*repositories.MemoryLeadStore
	gotFilter domain.LeadFilter
	gotOffset int
	gotLimit  int
	since     time.Time
	err       error
}

func (s *pushdownStore) SearchLeads(_ context.Context, filter domain.LeadFilter, offset, limit int) ([]domain.Lead, int64, error) {
	s.gotFilter, s.gotOffset, s.gotLimit = filter, offset, limit
	if s.err != nil {
		return nil, 0, s.err
	}
	return []domain.Lead{{ID: 9}}, 11, nil
}

func (s *pushdownStore) CountLeads(_ context.Context, since time.Time) (*domain.LeadStatistics, error) {
	s.since = since
	return domain.NewLeadStatistics(since), nil
}

func TestQuery_PushesDownToSearcher(t *testing.T) {
	store := &pushdownStore{MemoryLeadStore: repositories.NewMemoryLeadStore(nil)}
	engine := NewEngine(store, func() time.Time { return base })

	page, err := engine.Query(context.Background(), domain.LeadFilter{Search: "x"}, 2, 5)
	require.NoError(t, err)

	assert.Equal(t, 10, store.gotOffset)
	assert.Equal(t, 5, store.gotLimit)
	assert.Equal(t, domain.DefaultLeadSort, store.gotFilter.Sort)
	assert.Equal(t, int64(11), page.TotalMatches)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.Last)

	_, err = engine.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, base.Add(-RecentWindow), store.since)
}

func TestQuery_HugePageIsPushedDownSaturated(t *testing.T) {
	store := &pushdownStore{MemoryLeadStore: repositories.NewMemoryLeadStore(nil)}
	engine := NewEngine(store, nil)

	_, err := engine.Query(context.Background(), domain.LeadFilter{}, 1<<62, 4)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, store.gotOffset)
	assert.Equal(t, 4, store.gotLimit)
}

func TestQuery_PropagatesStoreUnavailable(t *testing.T) {
	outage := fmt.Errorf("%w: connection refused", domain.ErrStoreUnavailable)
	store := &pushdownStore{MemoryLeadStore: repositories.NewMemoryLeadStore(nil), err: outage}

	_, err := NewEngine(store, nil).Query(context.Background(), domain.LeadFilter{}, 0, 5)
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
}
