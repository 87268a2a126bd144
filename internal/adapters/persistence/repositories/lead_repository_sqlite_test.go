package repositories

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"salesforge-api/internal/adapters/persistence/models"
	"salesforge-api/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "salesforge.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

func newSQLiteLeads(t *testing.T, now func() time.Time) *LeadRepository {
	t.Helper()
	return NewLeadRepository(openSQLite(t)).WithClock(now)
}

// insertAll stores leads in order; with a stepClock lead i is created at start+i seconds
func insertAll(t *testing.T, repo *LeadRepository, leads ...*domain.Lead) {
	t.Helper()
	for _, l := range leads {
		require.NoError(t, repo.Insert(context.Background(), l))
	}
}

func leadIDs(leads []domain.Lead) []uint {
	out := make([]uint, 0, len(leads))
	for _, l := range leads {
		out = append(out, l.ID)
	}
	return out
}

func TestLeadRepository_InsertAndGet(t *testing.T) {
	repo := newSQLiteLeads(t, (&stepClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}).Now)
	ctx := context.Background()

	a, b := newLead("Acme"), newLead("Globex")
	a.ID = 99
	insertAll(t, repo, a, b)
	assert.Equal(t, uint(1), a.ID)
	assert.Equal(t, uint(2), b.ID)
	assert.Equal(t, a.CreatedAt, a.UpdatedAt)

	got, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Globex", got.CompanyName)
	assert.Equal(t, domain.StatusNew, got.Status)
	assert.True(t, got.CreatedAt.Equal(b.CreatedAt))

	_, err = repo.Get(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLeadRepository_TimestampsHaveMillisecondPrecision(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 123456789, time.UTC)
	repo := newSQLiteLeads(t, func() time.Time { return now })
	ctx := context.Background()

	lead := newLead("Acme")
	insertAll(t, repo, lead)
	assert.Equal(t, 123000000, lead.CreatedAt.Nanosecond())

	stored, err := repo.Get(ctx, lead.ID)
	require.NoError(t, err)
	assert.True(t, stored.CreatedAt.Equal(lead.CreatedAt), "stored %s, returned %s", stored.CreatedAt, lead.CreatedAt)

	now = now.Add(time.Second + 987654*time.Nanosecond)
	updated, err := repo.Update(ctx, lead.ID, func(l *domain.Lead) error {
		l.Status = domain.StatusContacted
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 124000000, updated.UpdatedAt.Nanosecond())

	stored, err = repo.Get(ctx, lead.ID)
	require.NoError(t, err)
	assert.True(t, stored.UpdatedAt.Equal(updated.UpdatedAt))
}

func TestLeadRepository_UpdateKeepsIdentityAndRefreshesUpdatedAt(t *testing.T) {
	clock := &stepClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	repo := newSQLiteLeads(t, clock.Now)
	ctx := context.Background()

	lead := newLead("Acme")
	insertAll(t, repo, lead)

	updated, err := repo.Update(ctx, lead.ID, func(l *domain.Lead) error {
		l.ID = 500
		l.OwnerID = 9
		l.CreatedAt = time.Time{}
		l.CompanyName = "Acme Rockets"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, lead.ID, updated.ID)
	assert.Equal(t, lead.OwnerID, updated.OwnerID)
	assert.True(t, updated.CreatedAt.Equal(lead.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(lead.UpdatedAt))

	stored, err := repo.Get(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Rockets", stored.CompanyName)
	assert.Equal(t, uint(1), stored.OwnerID)

	_, err = repo.Get(ctx, 500)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLeadRepository_UpdateAbortsOnMutateError(t *testing.T) {
	repo := newSQLiteLeads(t, (&stepClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}).Now)
	ctx := context.Background()

	lead := newLead("Acme")
	insertAll(t, repo, lead)

	rejected := errors.New("rejected")
	_, err := repo.Update(ctx, lead.ID, func(l *domain.Lead) error {
		l.CompanyName = "changed"
		return rejected
	})
	assert.Same(t, rejected, err)

	stored, err := repo.Get(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", stored.CompanyName)
	assert.True(t, stored.UpdatedAt.Equal(lead.UpdatedAt))

	called := false
	_, err = repo.Update(ctx, 404, func(*domain.Lead) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, called)
}

func TestLeadRepository_UpdatedAtNeverPrecedesCreatedAt(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := newSQLiteLeads(t, func() time.Time { return now })
	ctx := context.Background()

	lead := newLead("Acme")
	insertAll(t, repo, lead)

	now = now.Add(-time.Hour)
	updated, err := repo.Update(ctx, lead.ID, func(l *domain.Lead) error {
		l.Phone = "555-0100"
		return nil
	})
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.Equal(updated.CreatedAt))
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
}

func TestLeadRepository_Delete(t *testing.T) {
	repo := newSQLiteLeads(t, time.Now)
	ctx := context.Background()

	lead := newLead("Acme")
	insertAll(t, repo, lead)

	require.NoError(t, repo.Delete(ctx, lead.ID))
	assert.ErrorIs(t, repo.Delete(ctx, lead.ID), domain.ErrNotFound)

	_, err := repo.Get(ctx, lead.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLeadRepository_ScanVisitsInIDOrderAndStopsEarly(t *testing.T) {
	repo := newSQLiteLeads(t, (&stepClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}).Now)
	ctx := context.Background()
	insertAll(t, repo, newLead("A"), newLead("B"), newLead("C"), newLead("D"))

	var all []uint
	require.NoError(t, repo.Scan(ctx, func(l domain.Lead) bool {
		all = append(all, l.ID)
		return true
	}))
	assert.Equal(t, []uint{1, 2, 3, 4}, all)

	var visited []uint
	require.NoError(t, repo.Scan(ctx, func(l domain.Lead) bool {
		visited = append(visited, l.ID)
		return len(visited) < 2
	}))
	assert.Equal(t, []uint{1, 2}, visited)
}

func searchFixture(t *testing.T) (*LeadRepository, time.Time) {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := newSQLiteLeads(t, (&stepClock{t: start}).Now)

	companies := []string{"Alpha", "Bravo 50% off", "Charlie", "Delta_x", "Echo", "Foxtrot", "Golf"}
	for i, company := range companies {
		l := newLead(company)
		if i%3 == 0 {
			l.Status = domain.StatusLost
		}
		insertAll(t, repo, l)
	}
	return repo, start
}

func TestLeadRepository_SearchLeadsPagesWithTotals(t *testing.T) {
	repo, _ := searchFixture(t)
	ctx := context.Background()
	filter := domain.LeadFilter{Sort: domain.DefaultLeadSort}

	leads, total, err := repo.SearchLeads(ctx, filter, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	assert.Equal(t, []uint{7, 6, 5}, leadIDs(leads))

	leads, total, err = repo.SearchLeads(ctx, filter, 6, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	assert.Equal(t, []uint{1}, leadIDs(leads))

	for _, offset := range []int{7, math.MaxInt, -1, math.MinInt} {
		leads, total, err = repo.SearchLeads(ctx, filter, offset, 3)
		require.NoError(t, err, "offset %d", offset)
		assert.Empty(t, leads, "offset %d", offset)
		assert.NotNil(t, leads, "offset %d", offset)
		assert.Equal(t, int64(7), total, "offset %d", offset)
	}
}

func TestLeadRepository_SearchLeadsFilters(t *testing.T) {
	repo, start := searchFixture(t)
	ctx := context.Background()
	byID := domain.LeadSort{Key: domain.SortID}

	lost := domain.StatusLost
	from := start.Add(2 * time.Second)
	to := start.Add(4 * time.Second)

	tests := []struct {
		name   string
		filter domain.LeadFilter
		want   []uint
	}{
		{"status", domain.LeadFilter{Status: &lost}, []uint{1, 4, 7}},
		{"percent is literal", domain.LeadFilter{Search: "%"}, []uint{2}},
		{"underscore is literal", domain.LeadFilter{Search: "_"}, []uint{4}},
		{"case insensitive", domain.LeadFilter{Search: "  BRAVO 50% "}, []uint{2}},
		{"email matches", domain.LeadFilter{Search: "C@EXAMPLE"}, []uint{1, 2, 3, 4, 5, 6, 7}},
		{"inclusive date range", domain.LeadFilter{CreatedFrom: &from, CreatedTo: &to}, []uint{2, 3, 4}},
		{"conjunctive", domain.LeadFilter{Status: &lost, CreatedFrom: &from, CreatedTo: &to}, []uint{4}},
		{"no match", domain.LeadFilter{Search: "zulu"}, []uint{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.Sort = byID
			leads, total, err := repo.SearchLeads(ctx, tt.filter, 0, 50)
			require.NoError(t, err)
			assert.Equal(t, tt.want, leadIDs(leads))
			assert.Equal(t, int64(len(tt.want)), total)
		})
	}
}

func TestLeadRepository_SearchLeadsBreaksTiesByID(t *testing.T) {
	same := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := newSQLiteLeads(t, func() time.Time { return same })
	insertAll(t, repo, newLead("C"), newLead("A"), newLead("B"))

	leads, _, err := repo.SearchLeads(context.Background(), domain.LeadFilter{Sort: domain.DefaultLeadSort}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2, 3}, leadIDs(leads))

	leads, _, err = repo.SearchLeads(context.Background(), domain.LeadFilter{
		Sort: domain.LeadSort{Key: domain.SortStatus, Desc: true},
	}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2, 3}, leadIDs(leads))

	leads, _, err = repo.SearchLeads(context.Background(), domain.LeadFilter{
		Sort: domain.LeadSort{Key: domain.SortCompanyName},
	}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{2, 3, 1}, leadIDs(leads))
}

func TestLeadRepository_CountLeads(t *testing.T) {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	repo := newSQLiteLeads(t, func() time.Time { return now })
	ctx := context.Background()

	stats, err := repo.CountLeads(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, stats.ByStatus, len(domain.LeadStatuses))
	assert.Len(t, stats.BySource, len(domain.LeadSources))
	assert.Equal(t, int64(0), stats.Total)
	assert.Equal(t, int64(0), stats.Recent)

	old := newLead("Old")
	old.Status = domain.StatusLost
	old.Source = domain.SourceReferral
	insertAll(t, repo, old)

	now = now.Add(48 * time.Hour)
	insertAll(t, repo, newLead("Fresh"), newLead("Fresher"))

	stats, err = repo.CountLeads(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, stats.ByStatus, len(domain.LeadStatuses))
	assert.Len(t, stats.BySource, len(domain.LeadSources))
	assert.Equal(t, int64(2), stats.ByStatus[domain.StatusNew])
	assert.Equal(t, int64(1), stats.ByStatus[domain.StatusLost])
	assert.Equal(t, int64(0), stats.ByStatus[domain.StatusConverted])
	assert.Equal(t, int64(2), stats.BySource[domain.SourceOther])
	assert.Equal(t, int64(1), stats.BySource[domain.SourceReferral])
	assert.Equal(t, int64(0), stats.BySource[domain.SourceWebsite])
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Recent)
	assert.True(t, stats.GeneratedAt.Equal(now))
}

func TestLeadRepository_Ping(t *testing.T) {
	repo := newSQLiteLeads(t, time.Now)
	assert.NoError(t, repo.Ping(context.Background()))
}

func TestUserRepository_SQLite(t *testing.T) {
	users := NewUserRepository(openSQLite(t))
	ctx := context.Background()

	admin := &domain.User{Email: "  Admin@Example.COM ", PasswordHash: "hash", Role: domain.RoleAdmin, Active: true}
	require.NoError(t, users.Create(ctx, admin))
	assert.NotZero(t, admin.ID)
	assert.Equal(t, "admin@example.com", admin.Email)

	dup := &domain.User{Email: "ADMIN@example.com", PasswordHash: "hash", Role: domain.RoleSalesRep, Active: true}
	assert.ErrorIs(t, users.Create(ctx, dup), domain.ErrDuplicateEntry)

	got, err := users.GetByEmail(ctx, "admin@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)
	assert.Equal(t, domain.RoleAdmin, got.Role)
	assert.True(t, got.Active)

	got, err = users.GetByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", got.Email)

	_, err = users.GetByID(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = users.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	exists, err := users.ExistsByEmail(ctx, " ADMIN@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = users.ExistsByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	n, err := users.CountByRole(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = users.CountByRole(ctx, domain.RoleSalesRep)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
