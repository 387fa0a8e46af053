package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/salonhub/internal/database"
	"github.com/charlesng35/salonhub/internal/models"
	"github.com/charlesng35/salonhub/internal/services"
	"github.com/charlesng35/salonhub/internal/tenant"
	"github.com/charlesng35/salonhub/pkg/crypto"
	"github.com/charlesng35/salonhub/pkg/logger"
	"github.com/charlesng35/salonhub/pkg/metrics"
)

var (
	// ErrInvalidCredentials covers unknown emails, inactive accounts and wrong
	// passwords alike.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrEmailNotVerified is returned when a role that requires a verified
	// email logs in before confirming it.
	ErrEmailNotVerified = errors.New("auth: email not verified")
)

// schemaPools resolves schema names to pools. *database.Registry satisfies it.
type schemaPools interface {
	Get(ctx context.Context, schema string) (*gorm.DB, error)
}

// LoginResult is a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Staff     *models.Staff
	Identity  tenant.Identity
}

// LoginOption customises LoginService behaviour.
type LoginOption func(*LoginService)

// WithLoginClock injects a custom clock primarily for testing.
func WithLoginClock(clock func() time.Time) LoginOption {
	return func(s *LoginService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithLoginNaming overrides the schema naming convention.
func WithLoginNaming(naming tenant.Naming) LoginOption {
	return func(s *LoginService) {
		s.naming = naming
	}
}

// LoginService authenticates staff against their tenant's account schema and
// issues session tokens.
type LoginService struct {
	directory  *services.DirectoryService
	reconciler *services.Reconciler
	pools      schemaPools
	tokens     *JWTService
	naming     tenant.Naming
	now        func() time.Time
	log        *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewLoginService constructs a LoginService.
func NewLoginService(directory *services.DirectoryService, reconciler *services.Reconciler, pools schemaPools, tokens *JWTService, opts ...LoginOption) (*LoginService, error) {
	if directory == nil || reconciler == nil || pools == nil || tokens == nil {
		return nil, errors.New("login service: directory, reconciler, pools and tokens are required")
	}

	service := &LoginService{
		directory:  directory,
		reconciler: reconciler,
		pools:      pools,
		tokens:     tokens,
		naming:     tenant.DefaultNaming(),
		now:        func() time.Time { return time.Now().UTC() },
		log:        logger.WithModule("login"),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Login resolves the tenant for email through the directory, falling back to
// a reconciliation scan when the directory has no entry, then verifies the
// password and issues a session token.
func (s *LoginService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	result, err := s.login(ctx, email, password)
	switch {
	case err == nil:
		metrics.AuthAttempts.WithLabelValues("success").Inc()
	case errors.Is(err, ErrInvalidCredentials):
		metrics.AuthAttempts.WithLabelValues("invalid").Inc()
	case errors.Is(err, ErrEmailNotVerified):
		metrics.AuthAttempts.WithLabelValues("unverified").Inc()
	default:
		metrics.AuthAttempts.WithLabelValues("error").Inc()
	}
	return result, err
}

func (s *LoginService) login(ctx context.Context, email, password string) (*LoginResult, error) {
	entry, err := s.resolve(ctx, email)
	if err != nil {
		if errors.Is(err, services.ErrDirectoryEntryNotFound) {
			return nil, s.reject(password)
		}
		return nil, err
	}

	slug, err := tenant.ParseSlug(entry.TenantSlug)
	if err != nil {
		s.log.Warn("directory entry carries an invalid tenant", zap.String("tenant", entry.TenantSlug))
		return nil, s.reject(password)
	}
	id := s.naming.Identity(slug)

	db, err := s.pools.Get(ctx, id.AccountSchema)
	if err != nil {
		if errors.Is(err, database.ErrSchemaNotFound) {
			return nil, s.reject(password)
		}
		return nil, err
	}

	var found []models.Staff
	if err := db.Where("email = ? AND is_active = ?", entry.Email, true).Limit(1).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("login: load account: %w", err)
	}
	if len(found) == 0 {
		return nil, s.reject(password)
	}
	staff := found[0]

	if !crypto.VerifyPassword(staff.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if models.RequiresVerifiedEmail(staff.Role) && !staff.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	token, expiresAt, err := s.tokens.GenerateAccessToken(AccessTokenInput{
		StaffID:   staff.ID,
		Email:     staff.Email,
		Tenant:    id.Slug,
		Role:      staff.Role,
		FirstName: staff.FirstName,
		LastName:  staff.LastName,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := db.Model(&models.Staff{}).Where("id = ?", staff.ID).Update("last_login", now).Error; err != nil {
		return nil, fmt.Errorf("login: stamp last login: %w", err)
	}
	staff.LastLoginAt = &now

	if err := s.directory.TouchLastLogin(ctx, staff.Email, now); err != nil {
		s.log.Warn("failed to stamp directory last login", logger.Tenant(string(id.Slug)), zap.Error(err))
	}

	return &LoginResult{Token: token, ExpiresAt: expiresAt, Staff: &staff, Identity: id}, nil
}

func (s *LoginService) resolve(ctx context.Context, email string) (*models.DirectoryEntry, error) {
	entry, err := s.directory.Find(ctx, email)
	if errors.Is(err, services.ErrDirectoryEntryNotFound) {
		return s.reconciler.Reconcile(ctx, email)
	}
	return entry, err
}

// reject burns a password comparison so unknown emails cost as much as wrong
// passwords, then returns ErrInvalidCredentials.
func (s *LoginService) reject(password string) error {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = crypto.HashPassword("salonhub-dummy-password")
	})
	crypto.VerifyPassword(s.dummyHash, password)
	return ErrInvalidCredentials
}
