package models

import (
	"time"

	"salesforge-api/internal/core/domain"

	"gorm.io/gorm"
)

// User represents users table
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;size:100;not null" json:"email"`
	FirstName string    `gorm:"size:100" json:"first_name"`
	LastName  string    `gorm:"size:100" json:"last_name"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Role      string    `gorm:"size:20;not null" json:"role"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// ToDomain converts the row into a domain user. Unknown roles are kept verbatim
// so the access policy denies them.
func (u *User) ToDomain() *domain.User {
	role, err := domain.ParseRole(u.Role)
	if err != nil {
		role = domain.Role(u.Role)
	}
	return &domain.User{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.Password,
		Role:         role,
		Active:       u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// UserFromDomain builds a row from a domain user
func UserFromDomain(u *domain.User) *User {
	return &User{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Password:  u.PasswordHash,
		Role:      string(u.Role),
		IsActive:  u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Lead represents leads table.
// Timestamps are assigned by the lead repository, not by GORM hooks.
type Lead struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CompanyName string    `gorm:"size:255;not null" json:"company_name"`
	ContactName string    `gorm:"size:255;not null" json:"contact_name"`
	Email       string    `gorm:"size:255;not null" json:"email"`
	Phone       string    `gorm:"size:50" json:"phone"`
	Status      string    `gorm:"size:20;not null;index" json:"status"`
	Source      string    `gorm:"size:20;not null;index" json:"source"`
	OwnerID     uint      `gorm:"index;not null" json:"owner_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime:false;index;not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false;not null" json:"updated_at"`
}

func (Lead) TableName() string {
	return "leads"
}

// ToDomain converts the row into a domain lead
func (l *Lead) ToDomain() domain.Lead {
	return domain.Lead{
		ID:          l.ID,
		CompanyName: l.CompanyName,
		ContactName: l.ContactName,
		Email:       l.Email,
		Phone:       l.Phone,
		Status:      domain.LeadStatus(l.Status),
		Source:      domain.LeadSource(l.Source),
		OwnerID:     l.OwnerID,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

// LeadFromDomain builds a row from a domain lead
func LeadFromDomain(l *domain.Lead) *Lead {
	return &Lead{
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
}

// AutoMigrate runs auto migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Lead{},
	)
}
