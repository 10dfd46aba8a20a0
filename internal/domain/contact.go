package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the verification state of a contact record
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusVerified
}

// InquiryType is the kind of engagement a lead asks for
type InquiryType string

const (
	InquiryDemo         InquiryType = "demo"
	InquiryAudit        InquiryType = "audit"
	InquiryEnterprise   InquiryType = "enterprise"
	InquiryConsultation InquiryType = "consultation"
)

// InquiryTypes lists the accepted inquiry types
var InquiryTypes = []InquiryType{InquiryDemo, InquiryAudit, InquiryEnterprise, InquiryConsultation}

// Valid reports whether t is a known inquiry type
func (t InquiryType) Valid() bool {
	for _, known := range InquiryTypes {
		if t == known {
			return true
		}
	}
	return false
}

// OrDefault returns t, or demo when t is empty
func (t InquiryType) OrDefault() InquiryType {
	if strings.TrimSpace(string(t)) == "" {
		return InquiryDemo
	}
	return t
}

// Profile holds the free-text fields a submitter fills in
type Profile struct {
	Name        string      `json:"name"`
	Company     string      `json:"company"`
	Role        string      `json:"role"`
	Problem     string      `json:"problem"`
	InquiryType InquiryType `json:"inquiryType"`
	Email       string      `json:"email,omitempty"`
}

// Normalized returns a copy with whitespace trimmed, the email lowercased
// and the inquiry type defaulted.
func (p Profile) Normalized() Profile {
	return Profile{
		Name:        strings.TrimSpace(p.Name),
		Company:     strings.TrimSpace(p.Company),
		Role:        strings.TrimSpace(p.Role),
		Problem:     strings.TrimSpace(p.Problem),
		InquiryType: InquiryType(strings.ToLower(strings.TrimSpace(string(p.InquiryType)))).OrDefault(),
		Email:       strings.ToLower(strings.TrimSpace(p.Email)),
	}
}

// IsZero reports whether no profile field was supplied
func (p Profile) IsZero() bool {
	return strings.TrimSpace(p.Name) == "" && strings.TrimSpace(p.Company) == "" &&
		strings.TrimSpace(p.Role) == "" && strings.TrimSpace(p.Problem) == "" &&
		strings.TrimSpace(string(p.InquiryType)) == "" && strings.TrimSpace(p.Email) == ""
}

// Contact represents a lead captured by the contact form
type Contact struct {
	ID             string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name           string      `gorm:"not null" json:"name"`
	Company        string      `gorm:"not null" json:"company"`
	Role           string      `gorm:"not null" json:"role"`
	Problem        string      `gorm:"type:text;not null" json:"problem"`
	Email          *string     `json:"email,omitempty"`
	ContactChannel string      `gorm:"not null;index" json:"contactChannel"`
	InquiryType    InquiryType `gorm:"type:varchar(32);default:'demo'" json:"inquiryType"`
	Status         Status      `gorm:"type:varchar(16);default:'pending'" json:"status"`
	OTPSecret      *string     `gorm:"column:otp_secret" json:"-"`
	OTPExpiry      *time.Time  `gorm:"column:otp_expiry" json:"otpExpiry,omitempty"`
	OTPVerified    bool        `gorm:"column:otp_verified;not null;default:false;index" json:"otpVerified"`
	SubmittedAt    time.Time   `gorm:"not null;index" json:"submittedAt"`
	UpdatedAt      *time.Time  `json:"updatedAt,omitempty"`
}

// TableName specifies the table name for Contact
func (Contact) TableName() string {
	return "contacts"
}

// BeforeCreate hook
func (c *Contact) BeforeCreate(tx *gorm.DB) error {
	c.ApplyDefaults(time.Now().UTC())
	return nil
}

// ApplyDefaults fills the id, timestamps, status and inquiry type of a
// record that is about to be created.
func (c *Contact) ApplyDefaults(now time.Time) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.SubmittedAt.IsZero() {
		c.SubmittedAt = now
	}
	if c.Status == "" {
		c.Status = StatusPending
	}
	c.InquiryType = c.InquiryType.OrDefault()
}

// Profile returns the submitter fields of the record
func (c *Contact) Profile() Profile {
	p := Profile{
		Name:        c.Name,
		Company:     c.Company,
		Role:        c.Role,
		Problem:     c.Problem,
		InquiryType: c.InquiryType,
	}
	if c.Email != nil {
		p.Email = *c.Email
	}
	return p
}

// SetProfile copies the submitter fields onto the record
func (c *Contact) SetProfile(p Profile) {
	c.Name = p.Name
	c.Company = p.Company
	c.Role = p.Role
	c.Problem = p.Problem
	c.InquiryType = p.InquiryType.OrDefault()
	c.Email = nil
	if p.Email != "" {
		email := p.Email
		c.Email = &email
	}
}

// HasLocalSecret reports whether the record carries a locally hashed code
func (c *Contact) HasLocalSecret() bool {
	return c.OTPSecret != nil && *c.OTPSecret != ""
}

// Clone returns a deep copy of the record
func (c *Contact) Clone() *Contact {
	out := *c
	if c.Email != nil {
		v := *c.Email
		out.Email = &v
	}
	if c.OTPSecret != nil {
		v := *c.OTPSecret
		out.OTPSecret = &v
	}
	if c.OTPExpiry != nil {
		v := *c.OTPExpiry
		out.OTPExpiry = &v
	}
	if c.UpdatedAt != nil {
		v := *c.UpdatedAt
		out.UpdatedAt = &v
	}
	return &out
}
