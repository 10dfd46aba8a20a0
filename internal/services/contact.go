package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"algoforce/internal/domain"
	"algoforce/internal/metrics"
	"algoforce/internal/otp"
	"algoforce/internal/store"
	apperrors "algoforce/pkg/errors"
)

const (
	defaultResubmitWindow = 24 * time.Hour
	defaultRetryWindow    = 5 * time.Minute

	msgServerError = "Server error. Please try again later."
)

// Options tunes the contact workflow. Zero values select the defaults.
type Options struct {
	Now            func() time.Time
	ResubmitWindow time.Duration
	RetryWindow    time.Duration
	// Debug appends provider and store detail to delivery and persistence messages.
	Debug bool
}

// SubmitInput is a request for a verification code. A zero Profile means
// only the channel was sent; the profile then arrives with the code.
type SubmitInput struct {
	Channel string
	Profile domain.Profile
}

// VerifyInput is a code submitted for verification. A non-nil Profile must
// be complete and is saved with the verified record.
type VerifyInput struct {
	Channel string
	Code    string
	Profile *domain.Profile
}

// VerifyResult identifies the verified lead
type VerifyResult struct {
	ContactID string
	Name      string
}

// ContactService implements the OTP-gated contact workflow and the
// administrative contact operations.
type ContactService struct {
	repo           store.ContactRepository
	strategy       otp.Strategy
	now            func() time.Time
	resubmitWindow time.Duration
	retryWindow    time.Duration
	debug          bool
	locks          *keyedMutex
}

// NewContactService creates a new contact service
func NewContactService(repo store.ContactRepository, strategy otp.Strategy, opts Options) *ContactService {
	s := &ContactService{
		repo:           repo,
		strategy:       strategy,
		now:            opts.Now,
		resubmitWindow: opts.ResubmitWindow,
		retryWindow:    opts.RetryWindow,
		debug:          opts.Debug,
		locks:          newKeyedMutex(),
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.resubmitWindow <= 0 {
		s.resubmitWindow = defaultResubmitWindow
	}
	if s.retryWindow <= 0 {
		s.retryWindow = defaultRetryWindow
	}
	return s
}

// ChannelKind is the kind of contact channel codes are sent to
func (s *ContactService) ChannelKind() domain.ChannelKind {
	return s.strategy.Channel()
}

// RequestCode validates a submission, enforces the per-channel windows,
// delivers a code and creates the pending record.
func (s *ContactService) RequestCode(ctx context.Context, in SubmitInput) error {
	kind := s.strategy.Channel()
	channel := normalizeChannel(kind, in.Channel)
	withProfile := !in.Profile.IsZero()
	profile := in.Profile.Normalized()
	if kind == domain.ChannelEmail && profile.Email == "" {
		profile.Email = channel
	}

	log.Printf("[CONTACT] RequestCode: channel=%s, withProfile=%v", channel, withProfile)

	var v validator
	v.channel(kind, channel)
	if withProfile {
		v.profile(profile)
	}
	if err := v.result(); err != nil {
		log.Printf("[CONTACT] RequestCode rejected: %v", err)
		metrics.RecordOTPRequest(s.strategy.Name(), "rejected")
		return err
	}

	unlock := s.locks.Lock(channel)
	defer unlock()

	now := s.now()

	recent, err := s.repo.Find(ctx, store.Filter{
		Channel:        channel,
		SubmittedSince: now.Add(-s.resubmitWindow),
		Limit:          1,
	})
	if err != nil {
		return s.persistenceError("RequestCode", err)
	}
	if len(recent) > 0 {
		log.Printf("[CONTACT] RequestCode rejected: %s submitted at %s", channel, recent[0].SubmittedAt.Format(time.RFC3339))
		metrics.RecordOTPRequest(s.strategy.Name(), "rate_limited")
		return apperrors.RateLimited("You have already submitted a request recently. We will get back to you soon.")
	}

	pending, err := s.repo.Find(ctx, store.Filter{
		Channel:        channel,
		SubmittedSince: now.Add(-s.retryWindow),
		Verified:       store.Bool(false),
		Limit:          1,
	})
	if err != nil {
		return s.persistenceError("RequestCode", err)
	}
	if len(pending) > 0 {
		log.Printf("[CONTACT] RequestCode rejected: unverified request for %s is still fresh", channel)
		metrics.RecordOTPRequest(s.strategy.Name(), "rate_limited")
		return apperrors.RateLimited(fmt.Sprintf("Please wait %s before requesting a new OTP.", humanDuration(s.retryWindow)))
	}

	secret, err := s.strategy.Issue(ctx, channel, profile.Name, now)
	if err != nil {
		metrics.RecordOTPRequest(s.strategy.Name(), "delivery_error")
		return s.strategyError("RequestCode", err)
	}

	c := &domain.Contact{
		ContactChannel: channel,
		Status:         domain.StatusPending,
		SubmittedAt:    now,
	}
	c.SetProfile(profile)
	if secret != nil {
		hash := secret.Hash
		expiry := secret.ExpiresAt
		c.OTPSecret = &hash
		c.OTPExpiry = &expiry
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return s.persistenceError("RequestCode", err)
	}

	log.Printf("[CONTACT] RequestCode successful: id=%s, channel=%s, strategy=%s", c.ID, channel, s.strategy.Name())
	metrics.RecordOTPRequest(s.strategy.Name(), "sent")
	return nil
}

// VerifyAndSave checks a code against the newest pending record for the
// channel and marks it verified.
func (s *ContactService) VerifyAndSave(ctx context.Context, in VerifyInput) (*VerifyResult, error) {
	kind := s.strategy.Channel()
	channel := normalizeChannel(kind, in.Channel)
	code := strings.TrimSpace(in.Code)

	var profile *domain.Profile
	if in.Profile != nil {
		p := in.Profile.Normalized()
		if kind == domain.ChannelEmail && p.Email == "" {
			p.Email = channel
		}
		profile = &p
	}

	log.Printf("[CONTACT] VerifyAndSave: channel=%s, withProfile=%v", channel, profile != nil)

	var v validator
	v.channel(kind, channel)
	v.code(code)
	if profile != nil {
		v.profile(*profile)
	}
	if err := v.result(); err != nil {
		log.Printf("[CONTACT] VerifyAndSave rejected: %v", err)
		metrics.RecordOTPVerified(false)
		return nil, err
	}

	unlock := s.locks.Lock(channel)
	defer unlock()

	now := s.now()

	// Only the newest record for the channel can be verified.
	records, err := s.repo.Find(ctx, store.Filter{Channel: channel, Limit: 1})
	if err != nil {
		return nil, s.persistenceError("VerifyAndSave", err)
	}
	if len(records) == 0 {
		metrics.RecordOTPVerified(false)
		log.Printf("[CONTACT] VerifyAndSave rejected: no pending record for %s", channel)
		return nil, unknownChannel(kind)
	}
	c := &records[0]
	if c.OTPVerified {
		metrics.RecordOTPVerified(false)
		log.Printf("[CONTACT] VerifyAndSave rejected: %s already verified (id=%s)", channel, c.ID)
		return nil, alreadyVerified(kind)
	}

	recent, err := s.repo.Find(ctx, store.Filter{
		Channel:        channel,
		SubmittedSince: now.Add(-s.resubmitWindow),
		Verified:       store.Bool(true),
		Limit:          1,
	})
	if err != nil {
		return nil, s.persistenceError("VerifyAndSave", err)
	}
	if len(recent) > 0 {
		metrics.RecordOTPVerified(false)
		log.Printf("[CONTACT] VerifyAndSave rejected: %s verified at %s", channel, recent[0].SubmittedAt.Format(time.RFC3339))
		return nil, apperrors.RateLimited("You have already submitted a request recently. We will get back to you soon.")
	}

	if err := s.strategy.Check(ctx, c, code, now); err != nil {
		log.Printf("[CONTACT] VerifyAndSave failed: contact id=%s: %v", c.ID, err)
		metrics.RecordOTPVerified(false)
		return nil, s.strategyError("VerifyAndSave", err)
	}

	verified := domain.StatusVerified
	updated, err := s.repo.Update(ctx, c.ID, store.Changes{
		Status:            &verified,
		OTPVerified:       store.Bool(true),
		Profile:           profile,
		RequireUnverified: true,
	})
	if errors.Is(err, store.ErrConflict) {
		log.Printf("[CONTACT] VerifyAndSave lost race: contact id=%s already verified", c.ID)
		metrics.RecordOTPVerified(false)
		return nil, alreadyVerified(kind)
	}
	if err != nil {
		return nil, s.persistenceError("VerifyAndSave", err)
	}

	log.Printf("[CONTACT] VerifyAndSave successful: id=%s, name=%s", updated.ID, updated.Name)
	metrics.RecordOTPVerified(true)
	metrics.RecordLeadVerified(string(updated.InquiryType))

	return &VerifyResult{ContactID: updated.ID, Name: updated.Name}, nil
}

func unknownChannel(kind domain.ChannelKind) error {
	if kind == domain.ChannelEmail {
		return apperrors.Validation("Invalid email or OTP already verified")
	}
	return apperrors.Validation("Invalid phone number or OTP already verified")
}

// List returns every contact, newest first
func (s *ContactService) List(ctx context.Context) ([]domain.Contact, error) {
	contacts, err := s.repo.Find(ctx, store.Filter{})
	if err != nil {
		return nil, s.persistenceError("List", err)
	}
	log.Printf("[CONTACT] List successful: returned %d contacts", len(contacts))
	return contacts, nil
}

// Get returns one contact by id
func (s *ContactService) Get(ctx context.Context, id string) (*domain.Contact, error) {
	c, err := s.repo.Get(ctx, strings.TrimSpace(id))
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("Contact not found")
	}
	if err != nil {
		return nil, s.persistenceError("Get", err)
	}
	return c, nil
}

// UpdateStatus sets the status of a contact. A verified contact never
// returns to pending.
func (s *ContactService) UpdateStatus(ctx context.Context, id, status string) (*domain.Contact, error) {
	next, err := validateStatus(status)
	if err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.StatusVerified && next == domain.StatusPending {
		log.Printf("[CONTACT] UpdateStatus rejected: contact id=%s is verified", current.ID)
		return nil, apperrors.Validation("A verified contact cannot be moved back to pending")
	}

	// A verified status closes the code workflow for the record too.
	changes := store.Changes{Status: &next}
	if next == domain.StatusVerified {
		changes.OTPVerified = store.Bool(true)
	}
	updated, err := s.repo.Update(ctx, current.ID, changes)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("Contact not found")
	}
	if err != nil {
		return nil, s.persistenceError("UpdateStatus", err)
	}

	log.Printf("[CONTACT] UpdateStatus successful: id=%s, status=%s", updated.ID, updated.Status)
	return updated, nil
}

func alreadyVerifiedMessage(kind domain.ChannelKind) string {
	if kind == domain.ChannelEmail {
		return "This email address has already been verified"
	}
	return "This phone number has already been verified"
}

func alreadyVerified(kind domain.ChannelKind) error {
	return apperrors.AlreadyVerified(alreadyVerifiedMessage(kind))
}

// strategyError converts strategy failures into application errors
func (s *ContactService) strategyError(op string, err error) error {
	var dErr *otp.DeliveryError
	switch {
	case errors.Is(err, otp.ErrInvalidCode):
		if s.strategy.Name() == "hosted" {
			return apperrors.Wrap(apperrors.ErrCodeValidation, "Invalid or expired OTP", err)
		}
		return apperrors.Wrap(apperrors.ErrCodeValidation, "Invalid OTP code", err)
	case errors.Is(err, otp.ErrExpired):
		return apperrors.Wrap(apperrors.ErrCodeValidation, "OTP has expired. Please request a new one.", err)
	case errors.Is(err, otp.ErrAlreadyVerified):
		return apperrors.Wrap(apperrors.ErrCodeAlreadyVerified, alreadyVerifiedMessage(s.strategy.Channel()), err)
	case errors.Is(err, otp.ErrInvalidRecipient):
		return apperrors.Wrap(apperrors.ErrCodeValidation, "Invalid phone number format", err)
	case errors.Is(err, otp.ErrRateLimited):
		return apperrors.Wrap(apperrors.ErrCodeRateLimited, "Rate limit exceeded. Please try again later", err)
	case errors.As(err, &dErr):
		log.Printf("[CONTACT] %s delivery failed: %v", op, err)
		return apperrors.Delivery(s.detail(dErr.Message, dErr.Err), err)
	default:
		log.Printf("[CONTACT] %s failed: %v", op, err)
		return apperrors.Internal(s.detail(msgServerError, err), err)
	}
}

func (s *ContactService) persistenceError(op string, err error) error {
	log.Printf("[CONTACT] %s failed: store error: %v", op, err)
	return apperrors.Persistence(s.detail(msgServerError, err), err)
}

// detail appends the cause to message in debug mode
func (s *ContactService) detail(message string, cause error) string {
	if !s.debug || cause == nil {
		return message
	}
	return fmt.Sprintf("%s (%v)", message, cause)
}

// humanDuration renders windows like "5 minutes" or "1 hour"
func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return plural(int(d.Round(time.Second)/time.Second), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
