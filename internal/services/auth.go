package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	goa "goa.design/goa/v3/pkg"
	"gorm.io/gorm"

	"algoforce/internal/domain"
	"algoforce/internal/metrics"
	"algoforce/internal/util"
	apperrors "algoforce/pkg/errors"
)

type userContextKey struct{}

// WithUser stores the authenticated admin user in ctx
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the authenticated admin user, if any
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(*domain.User)
	return user, ok && user != nil
}

// LoginResult is returned by a successful login
type LoginResult struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int    `json:"expiresIn"`
}

// CreateUserInput describes a new admin account
type CreateUserInput struct {
	Username string
	Email    string
	Password string
	FullName string
	IsAdmin  bool
	IsStaff  bool
}

// AuthService authenticates the staff and admin accounts allowed to read leads
type AuthService struct {
	db     *gorm.DB
	tokens *util.TokenManager
	expiry time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(db *gorm.DB, tokens *util.TokenManager, expiry time.Duration) *AuthService {
	return &AuthService{db: db, tokens: tokens, expiry: expiry}
}

// Login exchanges credentials for a bearer token
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	log.Printf("[AUTH] Login attempt for user: %s", username)

	if username == "" || password == "" {
		metrics.RecordAuthAttempt(false)
		return nil, apperrors.Validation("Username and password are required")
	}

	var user domain.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		metrics.RecordAuthAttempt(false)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[AUTH] Login failed: user '%s' not found", username)
			return nil, apperrors.Unauthorized("Incorrect username or password")
		}
		log.Printf("[AUTH] Login failed: database error for user '%s': %v", username, err)
		return nil, apperrors.Persistence(msgServerError, err)
	}

	if !util.CheckPasswordHash(password, user.HashedPassword) {
		log.Printf("[AUTH] Login failed: invalid password for user '%s'", username)
		metrics.RecordAuthAttempt(false)
		return nil, apperrors.Unauthorized("Incorrect username or password")
	}

	if !user.CanReadLeads() {
		log.Printf("[AUTH] Login failed: user '%s' is inactive or lacks staff access", username)
		metrics.RecordAuthAttempt(false)
		return nil, apperrors.Unauthorized("User account is inactive")
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		log.Printf("[AUTH] Warning: failed to record last login for '%s': %v", username, err)
	}

	token, err := s.tokens.GenerateToken(&user)
	if err != nil {
		log.Printf("[AUTH] Login failed: token generation error for user '%s': %v", username, err)
		return nil, apperrors.Internal(msgServerError, err)
	}

	log.Printf("[AUTH] Login successful for user '%s' (id=%d, admin=%v, staff=%v)", username, user.ID, user.IsAdmin, user.IsStaff)
	metrics.RecordAuthAttempt(true)

	return &LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.expiry.Seconds()),
	}, nil
}

// Authenticate resolves a bearer token to an active staff or admin user
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid or expired token")
	}

	var user domain.User
	if err := s.db.WithContext(ctx).Where("username = ?", claims.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Unauthorized("User not found")
		}
		return nil, apperrors.Persistence(msgServerError, err)
	}

	if !user.CanReadLeads() {
		return nil, apperrors.Unauthorized("Insufficient permissions")
	}
	return &user, nil
}

// CreateUser adds an admin account. Usernames and emails must be unique.
func (s *AuthService) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	password := strings.TrimSpace(in.Password)

	log.Printf("[AUTH] CreateUser request: username=%s, email=%s", username, email)

	var v validator
	v.required("username", username, "Username is required")
	if v.required("email", email, "Email is required") {
		v.check(goa.ValidateFormat("email", email, goa.FormatEmail), "Valid email is required")
	}
	if v.required("password", password, "Password is required") && len(password) < 8 {
		v.check(goa.InvalidLengthError("password", password, len(password), 8, true), "Password must be at least 8 characters")
	}
	if err := v.result(); err != nil {
		return nil, err
	}

	var existing domain.User
	err := s.db.WithContext(ctx).Where("username = ? OR email = ?", username, email).First(&existing).Error
	if err == nil {
		if existing.Username == username {
			return nil, apperrors.Validation("Username already registered")
		}
		return nil, apperrors.Validation("Email already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Persistence(msgServerError, err)
	}

	hashed, err := util.HashPassword(password)
	if err != nil {
		return nil, apperrors.Internal(msgServerError, err)
	}

	user := domain.User{
		Username:       username,
		Email:          email,
		HashedPassword: hashed,
		IsActive:       true,
		IsAdmin:        in.IsAdmin,
		IsStaff:        in.IsStaff,
	}
	if name := strings.TrimSpace(in.FullName); name != "" {
		user.FullName = &name
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		log.Printf("[AUTH] CreateUser failed: database error: %v", err)
		return nil, apperrors.Persistence(fmt.Sprintf("failed to create user %s", username), err)
	}

	log.Printf("[AUTH] CreateUser successful: username=%s, id=%d", username, user.ID)
	return &user, nil
}
