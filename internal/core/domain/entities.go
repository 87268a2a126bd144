package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role represents user role in the system
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleSalesRep Role = "SALES_REP"
)

// Roles lists every role the policy knows about.
var Roles = []Role{RoleAdmin, RoleSalesRep}

// ParseRole converts a stored or submitted role string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleAdmin, RoleSalesRep:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// User represents a user in the domain layer
type User struct {
	ID           uint
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName joins first and last name, falling back to the email.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// Principal is the authenticated identity attached to a single request.
type Principal struct {
	ID          uint
	Email       string
	DisplayName string
	Role        Role
}

// PrincipalFromUser snapshots the identity and role of u.
func PrincipalFromUser(u *User) Principal {
	return Principal{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName(),
		Role:        u.Role,
	}
}

// LeadStatus is the pipeline stage of a lead
type LeadStatus string

const (
	StatusNew       LeadStatus = "NEW"
	StatusContacted LeadStatus = "CONTACTED"
	StatusQualified LeadStatus = "QUALIFIED"
	StatusLost      LeadStatus = "LOST"
	StatusConverted LeadStatus = "CONVERTED"
)

// LeadStatuses is the closed set of statuses in display order.
var LeadStatuses = []LeadStatus{StatusNew, StatusContacted, StatusQualified, StatusLost, StatusConverted}

// ParseLeadStatus accepts any letter case.
func ParseLeadStatus(s string) (LeadStatus, error) {
	v := LeadStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range LeadStatuses {
		if st == v {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown lead status %q", s)
}

// LeadSource is where a lead came from
type LeadSource string

const (
	SourceWebsite     LeadSource = "WEBSITE"
	SourceReferral    LeadSource = "REFERRAL"
	SourceColdCall    LeadSource = "COLD_CALL"
	SourceEmail       LeadSource = "EMAIL"
	SourceTradeShow   LeadSource = "TRADE_SHOW"
	SourceSocialMedia LeadSource = "SOCIAL_MEDIA"
	SourceOther       LeadSource = "OTHER"
)

// LeadSources is the closed set of sources in display order.
var LeadSources = []LeadSource{
	SourceWebsite, SourceReferral, SourceColdCall, SourceEmail,
	SourceTradeShow, SourceSocialMedia, SourceOther,
}

// ParseLeadSource accepts any letter case.
func ParseLeadSource(s string) (LeadSource, error) {
	v := LeadSource(strings.ToUpper(strings.TrimSpace(s)))
	for _, src := range LeadSources {
		if src == v {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown lead source %q", s)
}

// Lead represents a sales lead
type Lead struct {
	ID          uint
	CompanyName string
	ContactName string
	Email       string
	Phone       string
	Status      LeadStatus
	Source      LeadSource
	OwnerID     uint
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LeadStatistics aggregates lead counts for dashboards
type LeadStatistics struct {
	ByStatus    map[LeadStatus]int64
	BySource    map[LeadSource]int64
	Total       int64
	Recent      int64
	GeneratedAt time.Time
}

// NewLeadStatistics returns statistics with every enum key present at zero.
func NewLeadStatistics(now time.Time) *LeadStatistics {
	stats := &LeadStatistics{
		ByStatus:    make(map[LeadStatus]int64, len(LeadStatuses)),
		BySource:    make(map[LeadSource]int64, len(LeadSources)),
		GeneratedAt: now,
	}
	for _, st := range LeadStatuses {
		stats.ByStatus[st] = 0
	}
	for _, src := range LeadSources {
		stats.BySource[src] = 0
	}
	return stats
}
