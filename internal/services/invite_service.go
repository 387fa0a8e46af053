package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/salonhub/internal/models"
	"github.com/charlesng35/salonhub/internal/tenant"
	"github.com/charlesng35/salonhub/pkg/crypto"
	"github.com/charlesng35/salonhub/pkg/logger"
	"github.com/charlesng35/salonhub/pkg/validator"
)

const (
	defaultInviteExpiry     = 7 * 24 * time.Hour
	defaultInviteTokenBytes = 32
)

// InviteOption customises InviteService behaviour.
type InviteOption func(*InviteService)

// WithInviteBaseURL configures the base URL used to create invite hyperlinks.
func WithInviteBaseURL(url string) InviteOption {
	return func(s *InviteService) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

// WithInviteExpiry overrides the invite token lifetime.
func WithInviteExpiry(d time.Duration) InviteOption {
	return func(s *InviteService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithInviteTokenSize adjusts the random token length in bytes.
func WithInviteTokenSize(size int) InviteOption {
	return func(s *InviteService) {
		if size > 0 {
			s.tokenLength = size
		}
	}
}

// WithInviteClock injects a custom clock primarily for testing.
func WithInviteClock(clock func() time.Time) InviteOption {
	return func(s *InviteService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// InviteService issues and consumes single-use staff invitations. Invitations
// live in the central schema and are never deleted.
type InviteService struct {
	pools       schemaPools
	central     string
	baseURL     string
	expiry      time.Duration
	tokenLength int
	now         func() time.Time
	log         *zap.Logger
}

// NewInviteService constructs an InviteService with the provided dependencies.
func NewInviteService(pools schemaPools, centralSchema string, opts ...InviteOption) (*InviteService, error) {
	if pools == nil {
		return nil, errors.New("invite service: pools are required")
	}
	if centralSchema == "" {
		return nil, errors.New("invite service: central schema is required")
	}

	service := &InviteService{
		pools:       pools,
		central:     centralSchema,
		expiry:      defaultInviteExpiry,
		tokenLength: defaultInviteTokenBytes,
		now:         func() time.Time { return time.Now().UTC() },
		log:         logger.WithModule("invitations"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Issue creates an invitation for email into the tenant's account schema and
// returns the raw token together with the invitation link. Only the token's
// hash is stored. Emails that already route to a tenant cannot be invited.
func (s *InviteService) Issue(ctx context.Context, id tenant.Identity, email, role, invitedBy string) (*models.Invitation, string, string, error) {
	email = normaliseEmail(email)
	if err := validator.ValidateVar(email, "required,email"); err != nil {
		return nil, "", "", fmt.Errorf("invite service: %w", err)
	}
	if !models.IsValidRole(role) || role == models.RoleOwner {
		return nil, "", "", fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	db, err := s.pools.Get(ctx, s.central)
	if err != nil {
		return nil, "", "", err
	}

	var routed int64
	if err := db.Model(&models.DirectoryEntry{}).
		Where("email = ? AND is_active = ?", email, true).
		Count(&routed).Error; err != nil {
		return nil, "", "", fmt.Errorf("invite service: check directory: %w", err)
	}
	if routed > 0 {
		return nil, "", "", ErrEmailTaken
	}

	now := s.now()
	var pending int64
	if err := db.Model(&models.Invitation{}).
		Where("email = ? AND tenant_slug = ? AND accepted = ? AND expires_at > ?", email, string(id.Slug), false, now).
		Count(&pending).Error; err != nil {
		return nil, "", "", fmt.Errorf("invite service: check pending: %w", err)
	}
	if pending > 0 {
		return nil, "", "", ErrInvitationPending
	}

	rawToken, err := crypto.GenerateHexToken(s.tokenLength)
	if err != nil {
		return nil, "", "", fmt.Errorf("invite service: generate token: %w", err)
	}

	invite := models.Invitation{
		Email:         email,
		TenantSlug:    string(id.Slug),
		AccountSchema: id.AccountSchema,
		Role:          role,
		TokenHash:     crypto.HashToken(rawToken),
		InvitedBy:     strings.TrimSpace(invitedBy),
		ExpiresAt:     now.Add(s.expiry),
	}
	if err := db.Create(&invite).Error; err != nil {
		return nil, "", "", fmt.Errorf("invite service: create invite: %w", err)
	}

	s.log.Info("invitation issued",
		logger.Tenant(invite.TenantSlug),
		zap.String("invitation_id", invite.ID),
		zap.String("role", role),
	)
	return &invite, rawToken, s.inviteLink(rawToken), nil
}

// Resolve returns the invitation for token when it is unaccepted and unexpired.
// Every other state yields ErrInvitationInvalid.
func (s *InviteService) Resolve(ctx context.Context, token string) (*models.Invitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvitationInvalid
	}

	db, err := s.pools.Get(ctx, s.central)
	if err != nil {
		return nil, err
	}

	var invites []models.Invitation
	if err := db.
		Where("token_hash = ? AND accepted = ? AND expires_at > ?", crypto.HashToken(token), false, s.now()).
		Limit(1).
		Find(&invites).Error; err != nil {
		return nil, fmt.Errorf("invite service: find invite: %w", err)
	}
	if len(invites) == 0 {
		return nil, ErrInvitationInvalid
	}
	return &invites[0], nil
}

// Accept consumes token. The conditional update is the only synchronisation:
// of concurrent callers exactly one sees a changed row.
func (s *InviteService) Accept(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvitationInvalid
	}

	db, err := s.pools.Get(ctx, s.central)
	if err != nil {
		return err
	}

	now := s.now()
	result := db.Model(&models.Invitation{}).
		Where("token_hash = ? AND accepted = ? AND expires_at > ?", crypto.HashToken(token), false, now).
		Updates(map[string]any{"accepted": true, "accepted_at": now, "updated_at": now})
	if result.Error != nil {
		return fmt.Errorf("invite service: mark accepted: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInvitationInvalid
	}
	return nil
}

// ListPending returns the tenant's unaccepted, unexpired invitations, newest first.
func (s *InviteService) ListPending(ctx context.Context, slug tenant.Slug) ([]models.Invitation, error) {
	db, err := s.pools.Get(ctx, s.central)
	if err != nil {
		return nil, err
	}

	var invites []models.Invitation
	if err := db.
		Where("tenant_slug = ? AND accepted = ? AND expires_at > ?", string(slug), false, s.now()).
		Order("created_at DESC").
		Find(&invites).Error; err != nil {
		return nil, fmt.Errorf("invite service: list pending: %w", err)
	}
	return invites, nil
}

func (s *InviteService) inviteLink(token string) string {
	if s.baseURL == "" {
		return token
	}
	return fmt.Sprintf("%s?token=%s", s.baseURL, url.QueryEscape(token))
}
