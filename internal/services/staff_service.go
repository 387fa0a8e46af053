package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/salonhub/internal/database"
	"github.com/charlesng35/salonhub/internal/models"
	"github.com/charlesng35/salonhub/internal/tenant"
	"github.com/charlesng35/salonhub/pkg/crypto"
	"github.com/charlesng35/salonhub/pkg/logger"
	"github.com/charlesng35/salonhub/pkg/validator"
)

const (
	defaultResetTTL        = 5 * time.Minute
	routedTokenSecretBytes = 32
)

// RegisterOwnerInput describes a new tenant and its owner account.
type RegisterOwnerInput struct {
	BusinessName string `validate:"required,notblank,max=120"`
	FirstName    string `validate:"required,notblank,max=100"`
	LastName     string `validate:"required,notblank,max=100"`
	Email        string `validate:"required,email,max=255"`
	Password     string `validate:"required,min=6,max=72"`
}

// Registration is the outcome of RegisterOwner. VerificationToken is the raw
// token the owner must present to VerifyEmail.
type Registration struct {
	Identity          tenant.Identity
	Staff             *models.Staff
	VerificationToken string
}

// AcceptInvitationInput holds the account fields supplied with an invitation token.
type AcceptInvitationInput struct {
	FirstName string `validate:"required,notblank,max=100"`
	LastName  string `validate:"required,notblank,max=100"`
	Password  string `validate:"required,min=6,max=72"`
	Phone     string `validate:"omitempty,max=20,phone"`
}

// StaffOption customises StaffService behaviour.
type StaffOption func(*StaffService)

// WithStaffClock injects a custom clock primarily for testing.
func WithStaffClock(clock func() time.Time) StaffOption {
	return func(s *StaffService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithPasswordResetTTL overrides how long a reset token stays valid.
func WithPasswordResetTTL(d time.Duration) StaffOption {
	return func(s *StaffService) {
		if d > 0 {
			s.resetTTL = d
		}
	}
}

// StaffService manages staff accounts inside tenant account schemas and keeps
// the central directory in step with them.
type StaffService struct {
	pools       schemaPools
	provisioner *Provisioner
	directory   *DirectoryService
	invites     *InviteService
	resetTTL    time.Duration
	now         func() time.Time
	log         *zap.Logger
}

// NewStaffService constructs a StaffService.
func NewStaffService(pools schemaPools, provisioner *Provisioner, directory *DirectoryService, invites *InviteService, opts ...StaffOption) (*StaffService, error) {
	if pools == nil || provisioner == nil || directory == nil || invites == nil {
		return nil, errors.New("staff service: pools, provisioner, directory and invites are required")
	}

	service := &StaffService{
		pools:       pools,
		provisioner: provisioner,
		directory:   directory,
		invites:     invites,
		resetTTL:    defaultResetTTL,
		now:         func() time.Time { return time.Now().UTC() },
		log:         logger.WithModule("staff"),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// RegisterOwner provisions a tenant for the business and creates its owner
// with an unverified email. The email must not already route to a tenant and
// the derived slug must be free; of concurrent registrations for one slug only
// one gets past the provisioner claim.
func (s *StaffService) RegisterOwner(ctx context.Context, input RegisterOwnerInput) (*Registration, error) {
	input.Email = normaliseEmail(input.Email)
	if err := validator.ValidateStruct(input); err != nil {
		return nil, err
	}

	if _, err := s.directory.Find(ctx, input.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrDirectoryEntryNotFound) {
		return nil, err
	}

	id, err := s.provisioner.Create(ctx, input.BusinessName)
	if err != nil {
		return nil, err
	}

	passwordHash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("staff service: hash password: %w", err)
	}
	token, err := routedToken(id.Slug)
	if err != nil {
		return nil, err
	}

	staff := &models.Staff{
		FirstName:         strings.TrimSpace(input.FirstName),
		LastName:          strings.TrimSpace(input.LastName),
		Email:             input.Email,
		PasswordHash:      passwordHash,
		Role:              models.RoleOwner,
		EmailVerified:     false,
		VerificationToken: crypto.HashToken(token),
		IsActive:          true,
	}
	if err := s.createStaff(ctx, id, staff); err != nil {
		return nil, err
	}

	if err := s.directory.Upsert(ctx, directoryEntryFor(id, staff)); err != nil {
		s.compensateStaff(ctx, id, staff)
		return nil, err
	}

	s.log.Info("owner registered", logger.Tenant(string(id.Slug)), zap.String("staff_id", staff.ID))
	return &Registration{Identity: id, Staff: staff, VerificationToken: token}, nil
}

// VerifyEmail confirms the address behind a verification token.
func (s *StaffService) VerifyEmail(ctx context.Context, token string) error {
	id, secretHash, ok := s.routeToken(token)
	if !ok {
		return ErrVerificationInvalid
	}

	db, err := s.pools.Get(ctx, id.AccountSchema)
	if err != nil {
		return ErrVerificationInvalid
	}

	result := db.Model(&models.Staff{}).
		Where("verification_token = ? AND email_verified = ?", secretHash, false).
		Updates(map[string]any{"email_verified": true, "verification_token": "", "updated_at": s.now()})
	if result.Error != nil {
		return fmt.Errorf("staff service: verify email: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrVerificationInvalid
	}
	return nil
}

// RegisterFromInvitation creates an auto-verified account from an invitation.
// The email must not already route to any tenant. The account write, the
// directory write and the acceptance are independent; a failure after the
// account exists deletes it again so the invitation can be retried with the
// same token.
func (s *StaffService) RegisterFromInvitation(ctx context.Context, token string, input AcceptInvitationInput) (*models.Staff, tenant.Identity, error) {
	if err := validator.ValidateStruct(input); err != nil {
		return nil, tenant.Identity{}, err
	}

	invite, err := s.invites.Resolve(ctx, token)
	if err != nil {
		return nil, tenant.Identity{}, err
	}

	slug, err := tenant.ParseSlug(invite.TenantSlug)
	if err != nil {
		return nil, tenant.Identity{}, ErrInvitationInvalid
	}
	id := s.provisioner.Naming().Identity(slug)
	if id.AccountSchema != invite.AccountSchema {
		return nil, tenant.Identity{}, ErrInvitationInvalid
	}

	if _, err := s.directory.Find(ctx, invite.Email); err == nil {
		return nil, id, ErrEmailTaken
	} else if !errors.Is(err, ErrDirectoryEntryNotFound) {
		return nil, id, err
	}

	passwordHash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, id, fmt.Errorf("staff service: hash password: %w", err)
	}

	staff := &models.Staff{
		FirstName:     strings.TrimSpace(input.FirstName),
		LastName:      strings.TrimSpace(input.LastName),
		Email:         invite.Email,
		PasswordHash:  passwordHash,
		Role:          invite.Role,
		EmailVerified: true,
		IsActive:      true,
		Phone:         strings.TrimSpace(input.Phone),
	}
	if err := s.createStaff(ctx, id, staff); err != nil {
		// The tenant was deprovisioned after the invitation was resolved.
		if errors.Is(err, database.ErrSchemaNotFound) {
			return nil, id, ErrInvitationInvalid
		}
		return nil, id, err
	}

	if err := s.directory.Upsert(ctx, directoryEntryFor(id, staff)); err != nil {
		s.compensateStaff(ctx, id, staff)
		return nil, id, err
	}

	if err := s.invites.Accept(ctx, token); err != nil {
		s.compensateStaff(ctx, id, staff)
		if derr := s.directory.Deactivate(context.WithoutCancel(ctx), staff.Email, string(id.Slug)); derr != nil {
			s.log.Error("failed to deactivate directory entry after lost acceptance", zap.Error(derr))
		}
		return nil, id, err
	}

	s.log.Info("invitation accepted",
		logger.Tenant(string(id.Slug)),
		zap.String("invitation_id", invite.ID),
		zap.String("staff_id", staff.ID),
	)
	return staff, id, nil
}

// ListTeam returns the tenant's active staff ordered by creation time.
func (s *StaffService) ListTeam(ctx context.Context, id tenant.Identity) ([]models.Staff, error) {
	db, err := s.pools.Get(ctx, id.AccountSchema)
	if err != nil {
		return nil, err
	}

	var team []models.Staff
	if err := db.Where("is_active = ?", true).Order("created_at").Find(&team).Error; err != nil {
		return nil, fmt.Errorf("staff service: list team: %w", err)
	}
	return team, nil
}

// Get returns one staff member of the tenant.
func (s *StaffService) Get(ctx context.Context, id tenant.Identity, staffID string) (*models.Staff, error) {
	db, err := s.pools.Get(ctx, id.AccountSchema)
	if err != nil {
		return nil, err
	}

	var staff models.Staff
	if err := db.Where("id = ?", staffID).First(&staff).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStaffNotFound
		}
		return nil, fmt.Errorf("staff service: get staff: %w", err)
	}
	return &staff, nil
}

// Deactivate soft deletes a staff member and hides its directory entry.
func (s *StaffService) Deactivate(ctx context.Context, id tenant.Identity, staffID, actorID string) error {
	if staffID == actorID {
		return ErrCannotDeactivateSelf
	}

	staff, err := s.Get(ctx, id, staffID)
	if err != nil {
		return err
	}
	if staff.Role == models.RoleOwner {
		return ErrCannotDeactivateOwner
	}

	db, err := s.pools.Get(ctx, id.AccountSchema)
	if err != nil {
		return err
	}
	if err := db.Model(&models.Staff{}).
		Where("id = ?", staff.ID).
		Updates(map[string]any{"is_active": false, "updated_at": s.now()}).Error; err != nil {
		return fmt.Errorf("staff service: deactivate: %w", err)
	}

	if err := s.directory.Deactivate(ctx, staff.Email, string(id.Slug)); err != nil {
		s.log.Warn("failed to deactivate directory entry", logger.Tenant(string(id.Slug)), zap.Error(err))
	}
	return nil
}

// RequestPasswordReset stores a short lived reset token for email and returns
// it. Unknown emails return an empty token and no error.
func (s *StaffService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	entry, err := s.directory.Find(ctx, email)
	if errors.Is(err, ErrDirectoryEntryNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	slug, err := tenant.ParseSlug(entry.TenantSlug)
	if err != nil {
		return "", nil
	}
	id := s.provisioner.Naming().Identity(slug)

	db, err := s.pools.Get(ctx, id.AccountSchema)
	if err != nil {
		return "", err
	}

	token, err := routedToken(slug)
	if err != nil {
		return "", err
	}

	result := db.Model(&models.Staff{}).
		Where("email = ? AND is_active = ?", entry.Email, true).
		Updates(map[string]any{
			"reset_token":   crypto.HashToken(token),
			"reset_expires": s.now().Add(s.resetTTL),
			"reset_used":    false,
			"updated_at":    s.now(),
		})
	if result.Error != nil {
		return "", fmt.Errorf("staff service: store reset token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return "", nil
	}
	return token, nil
}

// ResetPassword replaces the password behind a valid reset token. The token is
// consumed by the same conditional update.
func (s *StaffService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validator.ValidateVar(newPassword, validator.PasswordRule); err != nil {
		return err
	}

	id, secretHash, ok := s.routeToken(token)
	if !ok {
		return ErrResetTokenInvalid
	}

	db, err := s.pools.Get(ctx, id.AccountSchema)
	if err != nil {
		return ErrResetTokenInvalid
	}

	passwordHash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("staff service: hash password: %w", err)
	}

	now := s.now()
	result := db.Model(&models.Staff{}).
		Where("reset_token = ? AND reset_used = ? AND reset_expires > ? AND is_active = ?", secretHash, false, now, true).
		Updates(map[string]any{
			"password":    passwordHash,
			"reset_used":  true,
			"reset_token": "",
			"updated_at":  now,
		})
	if result.Error != nil {
		return fmt.Errorf("staff service: reset password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrResetTokenInvalid
	}
	return nil
}

func (s *StaffService) createStaff(ctx context.Context, id tenant.Identity, staff *models.Staff) error {
	db, err := s.pools.Get(ctx, id.AccountSchema)
	if err != nil {
		return err
	}
	if err := db.Create(staff).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("staff service: create staff: %w", err)
	}
	return nil
}

// compensateStaff removes an account whose follow-up writes failed.
func (s *StaffService) compensateStaff(ctx context.Context, id tenant.Identity, staff *models.Staff) {
	db, err := s.pools.Get(context.WithoutCancel(ctx), id.AccountSchema)
	if err == nil {
		err = db.Where("id = ?", staff.ID).Delete(&models.Staff{}).Error
	}
	if err != nil {
		s.log.Error("failed to remove orphaned staff account",
			logger.Tenant(string(id.Slug)),
			zap.String("staff_id", staff.ID),
			zap.Error(err),
		)
		return
	}
	s.log.Warn("removed staff account after failed follow-up write",
		logger.Tenant(string(id.Slug)),
		zap.String("staff_id", staff.ID),
	)
}

// routeToken splits a routed token into the tenant it belongs to and the
// stored hash of the secret part.
func (s *StaffService) routeToken(token string) (tenant.Identity, string, bool) {
	rawSlug, _, ok := splitRoutedToken(token)
	if !ok {
		return tenant.Identity{}, "", false
	}
	slug, err := tenant.ParseSlug(rawSlug)
	if err != nil {
		return tenant.Identity{}, "", false
	}
	return s.provisioner.Naming().Identity(slug), crypto.HashToken(strings.TrimSpace(token)), true
}

// routedToken prefixes a random secret with the tenant slug so the token can
// be resolved without scanning every account schema.
func routedToken(slug tenant.Slug) (string, error) {
	secret, err := crypto.GenerateHexToken(routedTokenSecretBytes)
	if err != nil {
		return "", fmt.Errorf("staff service: generate token: %w", err)
	}
	return string(slug) + "." + secret, nil
}

func directoryEntryFor(id tenant.Identity, staff *models.Staff) models.DirectoryEntry {
	return models.DirectoryEntry{
		Email:         staff.Email,
		FirstName:     staff.FirstName,
		LastName:      staff.LastName,
		TenantSlug:    string(id.Slug),
		AccountSchema: id.AccountSchema,
		Role:          staff.Role,
	}
}
