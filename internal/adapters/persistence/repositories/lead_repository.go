package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"salesforge-api/internal/adapters/persistence/models"
	"salesforge-api/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	scanBatchSize = 500
	// timestampPrecision matches the DATETIME(3) columns of the MySQL schema
	timestampPrecision = time.Millisecond
)

// sortColumns whitelists ORDER BY columns per sort key
var sortColumns = map[domain.SortKey]string{
	domain.SortCreatedAt:   "created_at",
	domain.SortUpdatedAt:   "updated_at",
	domain.SortCompanyName: "company_name",
	domain.SortContactName: "contact_name",
	domain.SortEmail:       "email",
	domain.SortStatus:      "status",
	domain.SortSource:      "source",
	domain.SortID:          "id",
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// LeadRepository implements LeadStore, LeadSearcher and LeadCounter on GORM
type LeadRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db, now: time.Now}
}

// WithClock replaces the timestamp source
func (r *LeadRepository) WithClock(now func() time.Time) *LeadRepository {
	r.now = now
	return r
}

func (r *LeadRepository) timestamp() time.Time {
	return r.now().UTC().Truncate(timestampPrecision)
}

// Insert creates a new lead
func (r *LeadRepository) Insert(ctx context.Context, lead *domain.Lead) error {
	now := r.timestamp()
	lead.ID = 0
	lead.CreatedAt = now
	lead.UpdatedAt = now

	row := models.LeadFromDomain(lead)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return translateError(err)
	}
	lead.ID = row.ID
	return nil
}

// Get gets a lead by ID
func (r *LeadRepository) Get(ctx context.Context, id uint) (*domain.Lead, error) {
	var row models.Lead
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, translateError(err)
	}
	lead := row.ToDomain()
	return &lead, nil
}

// Update locks the row, applies mutate and saves it in one transaction
func (r *LeadRepository) Update(ctx context.Context, id uint, mutate func(*domain.Lead) error) (*domain.Lead, error) {
	var (
		updated   domain.Lead
		mutateErr error
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.Lead
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&row).Error
		if err != nil {
			return err
		}

		lead := row.ToDomain()
		if mutateErr = mutate(&lead); mutateErr != nil {
			return mutateErr
		}

		// identity and creation time stay with the stored row
		lead.ID = row.ID
		lead.OwnerID = row.OwnerID
		lead.CreatedAt = row.CreatedAt
		lead.UpdatedAt = r.timestamp()
		if lead.UpdatedAt.Before(lead.CreatedAt) {
			lead.UpdatedAt = lead.CreatedAt
		}

		if err := tx.Save(models.LeadFromDomain(&lead)).Error; err != nil {
			return err
		}
		updated = lead
		return nil
	})
	if mutateErr != nil {
		return nil, mutateErr
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &updated, nil
}

// Delete hard-deletes a lead
func (r *LeadRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Lead{})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var errStopScan = errors.New("scan stopped")

// Scan visits every lead in primary key order, one batch at a time
func (r *LeadRepository) Scan(ctx context.Context, visit func(domain.Lead) bool) error {
	var rows []models.Lead
	result := r.db.WithContext(ctx).FindInBatches(&rows, scanBatchSize, func(tx *gorm.DB, batch int) error {
		for i := range rows {
			if !visit(rows[i].ToDomain()) {
				return errStopScan
			}
		}
		return nil
	})
	if result.Error != nil && !errors.Is(result.Error, errStopScan) {
		return translateError(result.Error)
	}
	return nil
}

// SearchLeads filters, orders and pages in SQL
func (r *LeadRepository) SearchLeads(ctx context.Context, filter domain.LeadFilter, offset, limit int) ([]domain.Lead, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Model(&models.Lead{}).Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}
	if total == 0 || offset < 0 || int64(offset) >= total {
		return []domain.Lead{}, total, nil
	}

	var rows []models.Lead
	err := r.filtered(ctx, filter).
		Order(orderClause(filter.Sort)).
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, translateError(err)
	}

	leads := make([]domain.Lead, 0, len(rows))
	for i := range rows {
		leads = append(leads, rows[i].ToDomain())
	}
	return leads, total, nil
}

// CountLeads aggregates by status and source with GROUP BY
func (r *LeadRepository) CountLeads(ctx context.Context, recentSince time.Time) (*domain.LeadStatistics, error) {
	stats := domain.NewLeadStatistics(r.now().UTC())

	type statusCount struct {
		Status string
		Count  int64
	}
	var byStatus []statusCount
	err := r.db.WithContext(ctx).Model(&models.Lead{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&byStatus).Error
	if err != nil {
		return nil, translateError(err)
	}
	for _, sc := range byStatus {
		stats.ByStatus[domain.LeadStatus(sc.Status)] = sc.Count
		stats.Total += sc.Count
	}

	type sourceCount struct {
		Source string
		Count  int64
	}
	var bySource []sourceCount
	err = r.db.WithContext(ctx).Model(&models.Lead{}).
		Select("source, COUNT(*) AS count").
		Group("source").
		Scan(&bySource).Error
	if err != nil {
		return nil, translateError(err)
	}
	for _, sc := range bySource {
		stats.BySource[domain.LeadSource(sc.Source)] = sc.Count
	}

	err = r.db.WithContext(ctx).Model(&models.Lead{}).
		Where("created_at >= ?", recentSince).
		Count(&stats.Recent).Error
	if err != nil {
		return nil, translateError(err)
	}
	return stats, nil
}

// Ping checks the database connection
func (r *LeadRepository) Ping(ctx context.Context) error {
	return ping(ctx, r.db)
}

// filtered returns a fresh query scoped to filter; GORM chains are not reusable after Count
func (r *LeadRepository) filtered(ctx context.Context, filter domain.LeadFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Lead{})
	if filter.Status != nil {
		q = q.Where("status = ?", string(*filter.Status))
	}
	if filter.Source != nil {
		q = q.Where("source = ?", string(*filter.Source))
	}
	if filter.CreatedFrom != nil {
		q = q.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		q = q.Where("created_at <= ?", *filter.CreatedTo)
	}
	if term := filter.SearchTerm(); term != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
		q = q.Where(
			"(LOWER(company_name) LIKE ? ESCAPE '!' OR LOWER(contact_name) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!')",
			pattern, pattern, pattern,
		)
	}
	return q
}

func orderClause(s domain.LeadSort) string {
	column, ok := sortColumns[s.Key]
	if !ok {
		s = domain.DefaultLeadSort
		column = sortColumns[s.Key]
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	if column == "id" {
		return "id " + dir
	}
	return column + " " + dir + ", id ASC"
}
