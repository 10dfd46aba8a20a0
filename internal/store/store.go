// Package store persists contact records behind a repository interface with
// a gorm-backed implementation and an in-memory one for development.
package store

import (
	"context"
	"errors"
	"time"

	"algoforce/internal/domain"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("contact not found")
	// ErrConflict is returned when a guarded update finds the record already verified.
	ErrConflict = errors.New("contact already verified")
)

// Filter selects records for Find. Zero fields do not constrain the query.
type Filter struct {
	Channel        string
	SubmittedSince time.Time
	Verified       *bool
	Limit          int
}

// Changes describes an update by id. Nil fields are left untouched.
type Changes struct {
	Status      *domain.Status
	OTPVerified *bool
	Profile     *domain.Profile

	// RequireUnverified makes the update apply only while otp_verified is false.
	RequireUnverified bool
}

// ContactRepository is the persistence collaborator of the contact workflow.
type ContactRepository interface {
	Create(ctx context.Context, c *domain.Contact) error
	// Find returns matching records, most recently submitted first.
	Find(ctx context.Context, f Filter) ([]domain.Contact, error)
	Get(ctx context.Context, id string) (*domain.Contact, error)
	Update(ctx context.Context, id string, ch Changes) (*domain.Contact, error)
	Ping(ctx context.Context) error
}

// Bool returns a pointer to b, for Filter.Verified and Changes.OTPVerified.
func Bool(b bool) *bool {
	return &b
}
