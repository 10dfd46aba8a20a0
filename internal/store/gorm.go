package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"algoforce/internal/domain"
	"algoforce/internal/metrics"
)

// GormContactStore stores contacts in a SQL database through gorm.
type GormContactStore struct {
	db *gorm.DB
}

// NewGormContactStore wraps an opened and migrated gorm handle.
func NewGormContactStore(db *gorm.DB) *GormContactStore {
	return &GormContactStore{db: db}
}

func (s *GormContactStore) observe(op string, start time.Time, err error) {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		err = nil
	}
	metrics.RecordDBQuery(op, time.Since(start), err)
}

// Create inserts a new record
func (s *GormContactStore) Create(ctx context.Context, c *domain.Contact) (err error) {
	defer func(start time.Time) { s.observe("contact_create", start, err) }(time.Now())
	return s.db.WithContext(ctx).Create(c).Error
}

// Find returns records matching f, newest first
func (s *GormContactStore) Find(ctx context.Context, f Filter) (out []domain.Contact, err error) {
	defer func(start time.Time) { s.observe("contact_find", start, err) }(time.Now())

	query := s.db.WithContext(ctx).Model(&domain.Contact{})
	if f.Channel != "" {
		query = query.Where("contact_channel = ?", f.Channel)
	}
	if !f.SubmittedSince.IsZero() {
		query = query.Where("submitted_at >= ?", f.SubmittedSince.UTC())
	}
	if f.Verified != nil {
		query = query.Where("otp_verified = ?", *f.Verified)
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}

	if err := query.Order("submitted_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the record with the given id
func (s *GormContactStore) Get(ctx context.Context, id string) (_ *domain.Contact, err error) {
	defer func(start time.Time) { s.observe("contact_get", start, err) }(time.Now())

	var c domain.Contact
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Update applies ch to the record with the given id in a single statement
func (s *GormContactStore) Update(ctx context.Context, id string, ch Changes) (_ *domain.Contact, err error) {
	defer func(start time.Time) { s.observe("contact_update", start, err) }(time.Now())

	values := map[string]any{"updated_at": time.Now().UTC()}
	if ch.Status != nil {
		values["status"] = *ch.Status
	}
	if ch.OTPVerified != nil {
		values["otp_verified"] = *ch.OTPVerified
	}
	if p := ch.Profile; p != nil {
		values["name"] = p.Name
		values["company"] = p.Company
		values["role"] = p.Role
		values["problem"] = p.Problem
		values["inquiry_type"] = p.InquiryType.OrDefault()
		if p.Email != "" {
			values["email"] = p.Email
		}
	}

	query := s.db.WithContext(ctx).Model(&domain.Contact{}).Where("id = ?", id)
	if ch.RequireUnverified {
		query = query.Where("otp_verified = ?", false)
	}

	result := query.Updates(values)
	if result.Error != nil {
		return nil, result.Error
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 && ch.RequireUnverified {
		return nil, ErrConflict
	}
	return updated, nil
}

// Ping checks the database connection
func (s *GormContactStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
