package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"salesforge-api/internal/adapters/http/middleware"
	"salesforge-api/internal/core/domain"
	"salesforge-api/internal/core/query"
	"salesforge-api/internal/core/services"
	"salesforge-api/internal/pkg/pagination"
	"salesforge-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// localDateTime is the ISO local date-time layout sent by the web client
const localDateTime = "2006-01-02T15:04:05"

// LeadHandler handles lead endpoints
type LeadHandler struct {
	leadService *services.LeadService
	log         *zap.Logger
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leadService *services.LeadService, log *zap.Logger) *LeadHandler {
	return &LeadHandler{
		leadService: leadService,
		log:         log,
	}
}

// LeadRequest represents the create and full update body
type LeadRequest struct {
	CompanyName string `json:"companyName"`
	ContactName string `json:"contactName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Status      string `json:"status"`
	Source      string `json:"source"`
}

func (r *LeadRequest) toInput() domain.LeadInput {
	return domain.LeadInput{
		CompanyName: r.CompanyName,
		ContactName: r.ContactName,
		Email:       r.Email,
		Phone:       r.Phone,
		Status:      r.Status,
		Source:      r.Source,
	}
}

// LeadPatchRequest represents a partial update; absent fields stay unchanged
type LeadPatchRequest struct {
	CompanyName *string `json:"companyName"`
	ContactName *string `json:"contactName"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	Status      *string `json:"status"`
	Source      *string `json:"source"`
}

// LeadResponse is the JSON form of a lead
type LeadResponse struct {
	ID          uint           `json:"id"`
	CompanyName string         `json:"companyName"`
	ContactName string         `json:"contactName"`
	Email       string         `json:"email"`
	Phone       string         `json:"phone,omitempty"`
	Status      string         `json:"status"`
	Source      string         `json:"source"`
	OwnerID     uint           `json:"ownerId"`
	Owner       *OwnerResponse `json:"owner,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// OwnerResponse is the user a lead belongs to
type OwnerResponse struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

func toLeadResponse(l *domain.Lead, owners map[uint]*domain.User) LeadResponse {
	resp := LeadResponse{
		ID:          l.ID,
		CompanyName: l.CompanyName,
		ContactName: l.ContactName,
		Email:       l.Email,
		Phone:       l.Phone,
		Status:      string(l.Status),
		Source:      string(l.Source),
		OwnerID:     l.OwnerID,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
	if u, ok := owners[l.OwnerID]; ok {
		resp.Owner = &OwnerResponse{
			ID:        u.ID,
			Email:     u.Email,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Role:      string(u.Role),
		}
	}
	return resp
}

// StatsResponse is the dashboard aggregate
type StatsResponse struct {
	ByStatus    map[string]int64 `json:"byStatus"`
	BySource    map[string]int64 `json:"bySource"`
	TotalLeads  int64            `json:"totalLeads"`
	RecentLeads int64            `json:"recentLeads"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

// List handles lead listing with filters
// @Summary List leads
// @Description Filter, search, sort and paginate leads
// @Tags Leads
// @Produce json
// @Security BearerAuth
// @Param page query int false "Zero-based page" default(0)
// @Param size query int false "Page size (1-1000)" default(20)
// @Param status query string false "Lead status"
// @Param source query string false "Lead source"
// @Param search query string false "Case-insensitive text in company, contact or email"
// @Param startDate query string false "Created at or after (2006-01-02T15:04:05 or RFC 3339)"
// @Param endDate query string false "Created at or before (2006-01-02T15:04:05 or RFC 3339)"
// @Param sort query string false "key[,asc|desc], e.g. companyName,asc"
// @Success 200 {object} pagination.Response
// @Failure 400 {object} response.ErrorBody
// @Failure 401 {object} response.ErrorBody
// @Router /leads [get]
func (h *LeadHandler) List(c *fiber.Ctx) error {
	filter, params, err := h.parseFilter(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	filter.Search = c.Query("search")
	return h.search(c, filter, params, "")
}

// Search handles the free-text search alias
// @Summary Search leads
// @Description Search leads by company, contact or email
// @Tags Leads
// @Produce json
// @Security BearerAuth
// @Param q query string true "Search term"
// @Param page query int false "Zero-based page" default(0)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} pagination.Response
// @Failure 400 {object} response.ErrorBody
// @Router /leads/search [get]
func (h *LeadHandler) Search(c *fiber.Ctx) error {
	term := strings.TrimSpace(c.Query("q"))
	if term == "" {
		return response.BadRequest(c, "Search term q is required")
	}

	filter, params, err := h.parseFilter(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	filter.Search = term
	return h.search(c, filter, params, term)
}

// ByStatus lists leads of one status
// @Summary List leads by status
// @Tags Leads
// @Produce json
// @Security BearerAuth
// @Param status path string true "Lead status"
// @Success 200 {object} pagination.Response
// @Failure 400 {object} response.ErrorBody
// @Router /leads/status/{status} [get]
func (h *LeadHandler) ByStatus(c *fiber.Ctx) error {
	status, err := domain.ParseLeadStatus(c.Params("status"))
	if err != nil {
		return response.BadRequest(c, "Invalid lead status")
	}

	filter, params, err := h.parseFilter(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	filter.Status = &status
	return h.search(c, filter, params, "")
}

// BySource lists leads of one source
// @Summary List leads by source
// @Tags Leads
// @Produce json
// @Security BearerAuth
// @Param source path string true "Lead source"
// @Success 200 {object} pagination.Response
// @Failure 400 {object} response.ErrorBody
// @Router /leads/source/{source} [get]
func (h *LeadHandler) BySource(c *fiber.Ctx) error {
	source, err := domain.ParseLeadSource(c.Params("source"))
	if err != nil {
		return response.BadRequest(c, "Invalid lead source")
	}

	filter, params, err := h.parseFilter(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	filter.Source = &source
	return h.search(c, filter, params, "")
}

// Stats returns lead statistics
// @Summary Lead statistics
// @Description Counts by status and source, total and created in the last 30 days
// @Tags Leads
// @Produce json
// @Security BearerAuth
// @Success 200 {object} StatsResponse
// @Router /leads/stats [get]
func (h *LeadHandler) Stats(c *fiber.Ctx) error {
	principal, _ := middleware.GetPrincipal(c)

	stats, err := h.leadService.Statistics(c.UserContext(), principal)
	if err != nil {
		return respondError(c, h.log, err)
	}

	resp := StatsResponse{
		ByStatus:    make(map[string]int64, len(stats.ByStatus)),
		BySource:    make(map[string]int64, len(stats.BySource)),
		TotalLeads:  stats.Total,
		RecentLeads: stats.Recent,
		GeneratedAt: stats.GeneratedAt,
	}
	for k, v := range stats.ByStatus {
		resp.ByStatus[string(k)] = v
	}
	for k, v := range stats.BySource {
		resp.BySource[string(k)] = v
	}
	return response.OK(c, resp)
}

// Count returns the number of leads per status
// @Summary Lead count by status
// @Tags Leads
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]int64
// @Router /leads/count [get]
func (h *LeadHandler) Count(c *fiber.Ctx) error {
	principal, _ := middleware.GetPrincipal(c)

	counts, err := h.leadService.CountByStatus(c.UserContext(), principal)
	if err != nil {
		return respondError(c, h.log, err)
	}

	out := make(map[string]int64, len(counts))
	for k, v := range counts {
		out[string(k)] = v
	}
	return response.OK(c, out)
}

// Get returns one lead
// @Summary Get lead by ID
// @Tags Leads
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Success 200 {object} LeadResponse
// @Failure 404 {object} response.ErrorBody
// @Router /leads/{id} [get]
func (h *LeadHandler) Get(c *fiber.Ctx) error {
	id, err := leadID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid lead ID")
	}
	principal, _ := middleware.GetPrincipal(c)

	lead, err := h.leadService.Get(c.UserContext(), principal, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.OK(c, h.leadResponse(c, lead))
}

// Create creates a lead
// @Summary Create lead
// @Description Status defaults to NEW and source to OTHER
// @Tags Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body LeadRequest true "Lead"
// @Success 201 {object} LeadResponse
// @Failure 400 {object} response.ErrorBody
// @Router /leads [post]
func (h *LeadHandler) Create(c *fiber.Ctx) error {
	var req LeadRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	principal, _ := middleware.GetPrincipal(c)

	lead, err := h.leadService.Create(c.UserContext(), principal, req.toInput())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Created(c, h.leadResponse(c, lead))
}

// Update replaces a lead
// @Summary Update lead
// @Tags Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Param body body LeadRequest true "Lead"
// @Success 200 {object} LeadResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /leads/{id} [put]
func (h *LeadHandler) Update(c *fiber.Ctx) error {
	id, err := leadID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid lead ID")
	}
	var req LeadRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	principal, _ := middleware.GetPrincipal(c)

	lead, err := h.leadService.Update(c.UserContext(), principal, id, req.toInput())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.OK(c, h.leadResponse(c, lead))
}

// Patch partially updates a lead
// @Summary Partially update lead
// @Tags Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Param body body LeadPatchRequest true "Fields to change"
// @Success 200 {object} LeadResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /leads/{id} [patch]
func (h *LeadHandler) Patch(c *fiber.Ctx) error {
	id, err := leadID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid lead ID")
	}
	var req LeadPatchRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	principal, _ := middleware.GetPrincipal(c)

	lead, err := h.leadService.Patch(c.UserContext(), principal, id, domain.LeadPatch{
		CompanyName: req.CompanyName,
		ContactName: req.ContactName,
		Email:       req.Email,
		Phone:       req.Phone,
		Status:      req.Status,
		Source:      req.Source,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.OK(c, h.leadResponse(c, lead))
}

// Delete removes a lead
// @Summary Delete lead
// @Description ADMIN only
// @Tags Leads
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Success 204
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /leads/{id} [delete]
func (h *LeadHandler) Delete(c *fiber.Ctx) error {
	id, err := leadID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid lead ID")
	}
	principal, _ := middleware.GetPrincipal(c)

	if err := h.leadService.Delete(c.UserContext(), principal, id); err != nil {
		return respondError(c, h.log, err)
	}
	return response.NoContent(c)
}

func (h *LeadHandler) search(c *fiber.Ctx, filter domain.LeadFilter, params *pagination.Params, term string) error {
	principal, _ := middleware.GetPrincipal(c)

	page, err := h.leadService.Search(c.UserContext(), principal, filter, params.Page, params.Size)
	if err != nil {
		return respondError(c, h.log, err)
	}
	owners := h.leadService.Owners(c.UserContext(), page.Items...)
	return response.OK(c, toPageResponse(page, filter.Sort, term, owners))
}

// parseFilter reads pagination, sort, status, source and the date range from the query string
func (h *LeadHandler) parseFilter(c *fiber.Ctx) (domain.LeadFilter, *pagination.Params, error) {
	var filter domain.LeadFilter

	params, err := pagination.GetParams(c)
	if err != nil {
		return filter, nil, err
	}
	filter.Sort = params.Sort

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, err := domain.ParseLeadStatus(raw)
		if err != nil {
			return filter, nil, fmt.Errorf("%w: %v", domain.ErrInvalidQuery, err)
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(c.Query("source")); raw != "" {
		source, err := domain.ParseLeadSource(raw)
		if err != nil {
			return filter, nil, fmt.Errorf("%w: %v", domain.ErrInvalidQuery, err)
		}
		filter.Source = &source
	}

	if filter.CreatedFrom, err = parseDate(c.Query("startDate"), "startDate"); err != nil {
		return filter, nil, err
	}
	if filter.CreatedTo, err = parseDate(c.Query("endDate"), "endDate"); err != nil {
		return filter, nil, err
	}
	return filter, params, nil
}

func parseDate(raw, name string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	if t, err := time.ParseInLocation(localDateTime, raw, time.UTC); err == nil {
		return &t, nil
	}
	return nil, fmt.Errorf("%w: %s must be an ISO date-time", domain.ErrInvalidQuery, name)
}

func leadID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", c.Params("id"))
	}
	return uint(id), nil
}

func (h *LeadHandler) leadResponse(c *fiber.Ctx, lead *domain.Lead) LeadResponse {
	return toLeadResponse(lead, h.leadService.Owners(c.UserContext(), *lead))
}

func toPageResponse(page *query.Page, sort domain.LeadSort, term string, owners map[uint]*domain.User) pagination.Response {
	content := make([]LeadResponse, 0, len(page.Items))
	for i := range page.Items {
		content = append(content, toLeadResponse(&page.Items[i], owners))
	}
	if sort.Key == "" {
		sort = domain.DefaultLeadSort
	}

	return pagination.Response{
		Content:          content,
		TotalElements:    page.TotalMatches,
		TotalPages:       page.TotalPages,
		NumberOfElements: len(content),
		First:            page.First,
		Last:             page.Last,
		Empty:            page.Empty,
		Pageable: pagination.Pageable{
			PageNumber: page.Page,
			PageSize:   page.Size,
			Sort:       sort.String(),
		},
		SearchTerm: term,
	}
}
