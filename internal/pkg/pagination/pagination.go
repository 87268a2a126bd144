package pagination

import (
	"fmt"
	"strconv"
	"strings"

	"salesforge-api/internal/core/domain"

	"github.com/gofiber/fiber/v2"
)

// Params represents pagination parameters
type Params struct {
	Page int
	Size int
	Sort domain.LeadSort
}

// DefaultSize is the default number of items per page
const DefaultSize = 20

// GetParams extracts zero-based page, size and sort from the request.
// Range checks are left to the query engine; only unparsable values fail here.
func GetParams(c *fiber.Ctx) (*Params, error) {
	page, err := intQuery(c, "page", 0)
	if err != nil {
		return nil, err
	}
	size, err := intQuery(c, "size", DefaultSize)
	if err != nil {
		return nil, err
	}
	sort, err := ParseSort(c.Query("sort"))
	if err != nil {
		return nil, err
	}

	return &Params{
		Page: page,
		Size: size,
		Sort: sort,
	}, nil
}

// ParseSort reads "key" or "key,asc|desc". An empty value yields the default order.
func ParseSort(raw string) (domain.LeadSort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.DefaultLeadSort, nil
	}

	key, dir, _ := strings.Cut(raw, ",")
	sort := domain.LeadSort{}
	for _, k := range domain.SortKeys {
		if strings.EqualFold(string(k), strings.TrimSpace(key)) {
			sort.Key = k
		}
	}
	if sort.Key == "" {
		return sort, fmt.Errorf("%w: unsupported sort key %q", domain.ErrInvalidQuery, key)
	}

	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc":
	case "desc":
		sort.Desc = true
	default:
		return sort, fmt.Errorf("%w: sort direction must be asc or desc", domain.ErrInvalidQuery)
	}
	return sort, nil
}

func intQuery(c *fiber.Ctx, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidQuery, key)
	}
	return v, nil
}

// Pageable echoes the request that produced a page
type Pageable struct {
	PageNumber int    `json:"pageNumber"`
	PageSize   int    `json:"pageSize"`
	Sort       string `json:"sort"`
}

// Response represents paginated response
type Response struct {
	Content          interface{} `json:"content"`
	TotalElements    int64       `json:"totalElements"`
	TotalPages       int         `json:"totalPages"`
	NumberOfElements int         `json:"numberOfElements"`
	First            bool        `json:"first"`
	Last             bool        `json:"last"`
	Empty            bool        `json:"empty"`
	Pageable         Pageable    `json:"pageable"`
	SearchTerm       string      `json:"searchTerm,omitempty"`
}
