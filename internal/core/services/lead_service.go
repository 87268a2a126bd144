package services

import (
	"context"
	"errors"

	"salesforge-api/internal/adapters/persistence/repositories"
	"salesforge-api/internal/core/domain"
	"salesforge-api/internal/core/query"
	"salesforge-api/internal/pkg/metrics"

	"go.uber.org/zap"
)

// LeadService enforces the access policy and business rules around the lead store
type LeadService struct {
	store  repositories.LeadStore
	engine *query.Engine
	users  repositories.UserRepository
	log    *zap.Logger
}

// NewLeadService creates a new lead service
func NewLeadService(store repositories.LeadStore, engine *query.Engine, log *zap.Logger) *LeadService {
	return &LeadService{
		store:  store,
		engine: engine,
		log:    log,
	}
}

// WithOwners lets Owners resolve lead owners from users
func (s *LeadService) WithOwners(users repositories.UserRepository) *LeadService {
	s.users = users
	return s
}

// Owners looks up the owner of each lead once, keyed by user ID.
// Owners that are gone or cannot be read are left out of the map.
func (s *LeadService) Owners(ctx context.Context, leads ...domain.Lead) map[uint]*domain.User {
	owners := make(map[uint]*domain.User)
	if s.users == nil {
		return owners
	}

	tried := make(map[uint]bool)
	for i := range leads {
		id := leads[i].OwnerID
		if id == 0 || tried[id] {
			continue
		}
		tried[id] = true

		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				s.log.Warn("Failed to load lead owner", zap.Uint("owner_id", id), zap.Error(err))
			}
			continue
		}
		owners[id] = user
	}
	return owners
}

// Create validates input and inserts a lead owned by p
func (s *LeadService) Create(ctx context.Context, p domain.Principal, input domain.LeadInput) (lead *domain.Lead, err error) {
	defer func() { s.record(domain.OpCreateLead, err) }()

	if err := authorize(p, domain.OpCreateLead); err != nil {
		return nil, err
	}

	lead = &domain.Lead{OwnerID: p.ID}
	if err := input.Apply(lead); err != nil {
		return nil, err
	}
	if err := s.store.Insert(ctx, lead); err != nil {
		return nil, err
	}

	s.log.Info("Lead created", zap.Uint("lead_id", lead.ID), zap.Uint("owner_id", p.ID))
	return lead, nil
}

// Get returns one lead
func (s *LeadService) Get(ctx context.Context, p domain.Principal, id uint) (lead *domain.Lead, err error) {
	defer func() { s.record(domain.OpReadLead, err) }()

	if err := authorize(p, domain.OpReadLead); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// Update replaces every client-writable field of a lead
func (s *LeadService) Update(ctx context.Context, p domain.Principal, id uint, input domain.LeadInput) (lead *domain.Lead, err error) {
	defer func() { s.record(domain.OpUpdateLead, err) }()

	if err := authorize(p, domain.OpUpdateLead); err != nil {
		return nil, err
	}

	// reject bad input before touching the store
	var scratch domain.Lead
	if err := input.Apply(&scratch); err != nil {
		return nil, err
	}

	lead, err = s.store.Update(ctx, id, func(l *domain.Lead) error {
		return input.Apply(l)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Lead updated", zap.Uint("lead_id", id), zap.Uint("by", p.ID))
	return lead, nil
}

// Patch applies the supplied fields and re-validates the merged lead inside the atomic update.
// An empty patch returns the lead unchanged.
func (s *LeadService) Patch(ctx context.Context, p domain.Principal, id uint, patch domain.LeadPatch) (lead *domain.Lead, err error) {
	defer func() { s.record(domain.OpUpdateLead, err) }()

	if err := authorize(p, domain.OpUpdateLead); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return s.store.Get(ctx, id)
	}

	lead, err = s.store.Update(ctx, id, func(l *domain.Lead) error {
		return patch.Apply(l)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Lead patched", zap.Uint("lead_id", id), zap.Uint("by", p.ID))
	return lead, nil
}

// Delete removes a lead for good. Permission is checked before existence.
func (s *LeadService) Delete(ctx context.Context, p domain.Principal, id uint) (err error) {
	defer func() { s.record(domain.OpDeleteLead, err) }()

	if err := authorize(p, domain.OpDeleteLead); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info("Lead deleted", zap.Uint("lead_id", id), zap.Uint("by", p.ID))
	return nil
}

// Search runs a filtered, ordered, paginated query
func (s *LeadService) Search(ctx context.Context, p domain.Principal, filter domain.LeadFilter, page, size int) (result *query.Page, err error) {
	defer func() { s.record(domain.OpSearchLead, err) }()

	if err := authorize(p, domain.OpSearchLead); err != nil {
		return nil, err
	}
	return s.engine.Query(ctx, filter, page, size)
}

// Statistics aggregates the whole store
func (s *LeadService) Statistics(ctx context.Context, p domain.Principal) (stats *domain.LeadStatistics, err error) {
	defer func() { s.record(domain.OpViewStatistics, err) }()

	if err := authorize(p, domain.OpViewStatistics); err != nil {
		return nil, err
	}
	return s.engine.Statistics(ctx)
}

// CountByStatus returns the number of leads per status, every status present
func (s *LeadService) CountByStatus(ctx context.Context, p domain.Principal) (map[domain.LeadStatus]int64, error) {
	stats, err := s.Statistics(ctx, p)
	if err != nil {
		return nil, err
	}
	return stats.ByStatus, nil
}

func authorize(p domain.Principal, op domain.Operation) error {
	if !domain.Authorize(p.Role, op) {
		return domain.ErrForbidden
	}
	return nil
}

func (s *LeadService) record(op domain.Operation, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrForbidden):
		result = "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		result = "not_found"
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidQuery):
		result = "invalid"
	default:
		result = "error"
		s.log.Error("Lead operation failed", zap.String("operation", op.String()), zap.Error(err))
	}
	metrics.RecordLeadOperation(op.String(), result)
}
