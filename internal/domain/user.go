package domain

import (
	"time"

	"gorm.io/gorm"
)

// User represents an admin or staff account allowed to read leads
type User struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Username       string     `gorm:"uniqueIndex;not null" json:"username"`
	Email          string     `gorm:"uniqueIndex;not null" json:"email"`
	HashedPassword string     `gorm:"not null" json:"-"`
	FullName       *string    `json:"fullName,omitempty"`
	IsActive       bool       `gorm:"default:true" json:"isActive"`
	IsAdmin        bool       `gorm:"default:false" json:"isAdmin"`
	IsStaff        bool       `gorm:"default:false" json:"isStaff"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	LastLogin      *time.Time `json:"lastLogin,omitempty"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// CanReadLeads reports whether the account may use the admin contact routes
func (u *User) CanReadLeads() bool {
	return u.IsActive && (u.IsAdmin || u.IsStaff)
}

// BeforeCreate hook
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate hook
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now().UTC()
	return nil
}
