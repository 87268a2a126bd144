package domain

import (
	"regexp"
	"strings"
	"time"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsEmail checks the basic local@domain.tld shape.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// LeadInput carries the client-writable fields of a lead for create and full update.
// Status and Source are raw strings so that bad values surface as field errors.
type LeadInput struct {
	CompanyName string
	ContactName string
	Email       string
	Phone       string
	Status      string
	Source      string
}

// LeadPatch carries the fields of a partial update; nil means "leave unchanged".
type LeadPatch struct {
	CompanyName *string
	ContactName *string
	Email       *string
	Phone       *string
	Status      *string
	Source      *string
}

// IsEmpty reports whether the patch changes nothing.
func (p *LeadPatch) IsEmpty() bool {
	return p.CompanyName == nil && p.ContactName == nil && p.Email == nil &&
		p.Phone == nil && p.Status == nil && p.Source == nil
}

// Apply copies the input onto l, defaulting status to NEW and source to OTHER.
func (in *LeadInput) Apply(l *Lead) error {
	verr := NewValidationError()

	l.CompanyName = strings.TrimSpace(in.CompanyName)
	l.ContactName = strings.TrimSpace(in.ContactName)
	l.Email = strings.TrimSpace(in.Email)
	l.Phone = strings.TrimSpace(in.Phone)

	l.Status = StatusNew
	if strings.TrimSpace(in.Status) != "" {
		st, err := ParseLeadStatus(in.Status)
		if err != nil {
			verr.Add("status", "must be one of NEW, CONTACTED, QUALIFIED, LOST, CONVERTED")
		}
		l.Status = st
	}

	l.Source = SourceOther
	if strings.TrimSpace(in.Source) != "" {
		src, err := ParseLeadSource(in.Source)
		if err != nil {
			verr.Add("source", "must be one of WEBSITE, REFERRAL, COLD_CALL, EMAIL, TRADE_SHOW, SOCIAL_MEDIA, OTHER")
		}
		l.Source = src
	}

	validateLead(l, verr)
	return verr.OrNil()
}

// Apply merges the supplied fields into l and re-validates the result.
func (p *LeadPatch) Apply(l *Lead) error {
	verr := NewValidationError()

	if p.CompanyName != nil {
		l.CompanyName = strings.TrimSpace(*p.CompanyName)
	}
	if p.ContactName != nil {
		l.ContactName = strings.TrimSpace(*p.ContactName)
	}
	if p.Email != nil {
		l.Email = strings.TrimSpace(*p.Email)
	}
	if p.Phone != nil {
		l.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.Status != nil {
		st, err := ParseLeadStatus(*p.Status)
		if err != nil {
			verr.Add("status", "must be one of NEW, CONTACTED, QUALIFIED, LOST, CONVERTED")
		} else {
			l.Status = st
		}
	}
	if p.Source != nil {
		src, err := ParseLeadSource(*p.Source)
		if err != nil {
			verr.Add("source", "must be one of WEBSITE, REFERRAL, COLD_CALL, EMAIL, TRADE_SHOW, SOCIAL_MEDIA, OTHER")
		} else {
			l.Source = src
		}
	}

	validateLead(l, verr)
	return verr.OrNil()
}

func validateLead(l *Lead, verr *ValidationError) {
	if l.CompanyName == "" {
		verr.Add("companyName", "is required")
	}
	if l.ContactName == "" {
		verr.Add("contactName", "is required")
	}
	switch {
	case l.Email == "":
		verr.Add("email", "is required")
	case !IsEmail(l.Email):
		verr.Add("email", "must be a valid email address")
	}
}

// SortKey names a lead attribute usable for ordering.
type SortKey string

const (
	SortCreatedAt   SortKey = "createdAt"
	SortUpdatedAt   SortKey = "updatedAt"
	SortCompanyName SortKey = "companyName"
	SortContactName SortKey = "contactName"
	SortEmail       SortKey = "email"
	SortStatus      SortKey = "status"
	SortSource      SortKey = "source"
	SortID          SortKey = "id"
)

// SortKeys lists the accepted sort keys.
var SortKeys = []SortKey{
	SortCreatedAt, SortUpdatedAt, SortCompanyName, SortContactName,
	SortEmail, SortStatus, SortSource, SortID,
}

// LeadSort orders query results; ties are always broken by ascending id.
type LeadSort struct {
	Key  SortKey
	Desc bool
}

// DefaultLeadSort is newest first.
var DefaultLeadSort = LeadSort{Key: SortCreatedAt, Desc: true}

func (s LeadSort) String() string {
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return string(s.Key) + ": " + dir
}

// LeadFilter holds the optional, conjunctive criteria of a lead query.
type LeadFilter struct {
	Status      *LeadStatus
	Source      *LeadSource
	Search      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Sort        LeadSort
}

// SearchTerm returns the trimmed search text; empty means no search criterion.
func (f *LeadFilter) SearchTerm() string {
	return strings.TrimSpace(f.Search)
}
