package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/salonhub/internal/models"
	"github.com/charlesng35/salonhub/pkg/logger"
)

// DirectoryOption customises DirectoryService behaviour.
type DirectoryOption func(*DirectoryService)

// WithDirectoryClock injects a custom clock primarily for testing.
func WithDirectoryClock(clock func() time.Time) DirectoryOption {
	return func(s *DirectoryService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// DirectoryService maintains the central email to tenant routing table. Its
// writes are independent of tenant account writes; callers repair drift.
type DirectoryService struct {
	pools   schemaPools
	central string
	now     func() time.Time
	log     *zap.Logger
}

// NewDirectoryService constructs a DirectoryService over the central schema.
func NewDirectoryService(pools schemaPools, centralSchema string, opts ...DirectoryOption) (*DirectoryService, error) {
	if pools == nil {
		return nil, errors.New("directory service: pools are required")
	}
	if centralSchema == "" {
		return nil, errors.New("directory service: central schema is required")
	}

	service := &DirectoryService{
		pools:   pools,
		central: centralSchema,
		now:     func() time.Time { return time.Now().UTC() },
		log:     logger.WithModule("directory"),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Upsert inserts or updates the entry keyed by email. Name, role and routing
// fields take the latest value and the entry is reactivated. An active entry
// routing to another tenant is never taken over: Upsert returns ErrEmailTaken
// instead. Both steps are single conditional statements, so concurrent
// writers for one email cannot both win.
func (s *DirectoryService) Upsert(ctx context.Context, entry models.DirectoryEntry) error {
	entry.Email = normaliseEmail(entry.Email)
	if entry.Email == "" || entry.TenantSlug == "" || entry.AccountSchema == "" || entry.Role == "" {
		return errors.New("directory service: email, tenant, account schema and role are required")
	}

	db, err := s.pools.Get(ctx, s.central)
	if err != nil {
		return err
	}

	now := s.now()
	entry.IsActive = true
	entry.CreatedAt = now
	entry.UpdatedAt = now

	inserted := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(&entry)
	if inserted.Error != nil {
		return fmt.Errorf("directory service: upsert %s: %w", entry.Email, inserted.Error)
	}
	if inserted.RowsAffected == 1 {
		return nil
	}

	updated := db.Model(&models.DirectoryEntry{}).
		Where("email = ? AND (is_active = ? OR tenant_slug = ?)", entry.Email, false, entry.TenantSlug).
		Updates(map[string]any{
			"first_name":     entry.FirstName,
			"last_name":      entry.LastName,
			"tenant_slug":    entry.TenantSlug,
			"account_schema": entry.AccountSchema,
			"role":           entry.Role,
			"is_active":      true,
			"updated_at":     now,
		})
	if updated.Error != nil {
		return fmt.Errorf("directory service: upsert %s: %w", entry.Email, updated.Error)
	}
	if updated.RowsAffected == 0 {
		s.log.Warn("directory entry routes to another tenant", logger.Tenant(entry.TenantSlug))
		return ErrEmailTaken
	}
	return nil
}

// Find returns the active entry for email.
func (s *DirectoryService) Find(ctx context.Context, email string) (*models.DirectoryEntry, error) {
	email = normaliseEmail(email)
	if email == "" {
		return nil, ErrDirectoryEntryNotFound
	}

	db, err := s.pools.Get(ctx, s.central)
	if err != nil {
		return nil, err
	}

	var entry models.DirectoryEntry
	if err := db.Where("email = ? AND is_active = ?", email, true).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDirectoryEntryNotFound
		}
		return nil, fmt.Errorf("directory service: find %s: %w", email, err)
	}
	return &entry, nil
}

// TouchLastLogin stamps the entry's last login time.
func (s *DirectoryService) TouchLastLogin(ctx context.Context, email string, at time.Time) error {
	db, err := s.pools.Get(ctx, s.central)
	if err != nil {
		return err
	}
	return db.Model(&models.DirectoryEntry{}).
		Where("email = ?", normaliseEmail(email)).
		Updates(map[string]any{"last_login_at": at, "updated_at": s.now()}).Error
}

// Deactivate hides the entry for email when it still routes to slug.
func (s *DirectoryService) Deactivate(ctx context.Context, email, slug string) error {
	db, err := s.pools.Get(ctx, s.central)
	if err != nil {
		return err
	}
	return db.Model(&models.DirectoryEntry{}).
		Where("email = ? AND tenant_slug = ?", normaliseEmail(email), slug).
		Updates(map[string]any{"is_active": false, "updated_at": s.now()}).Error
}

// DeactivateTenant hides every entry routing to slug and returns how many changed.
func (s *DirectoryService) DeactivateTenant(ctx context.Context, slug string) (int64, error) {
	db, err := s.pools.Get(ctx, s.central)
	if err != nil {
		return 0, err
	}
	result := db.Model(&models.DirectoryEntry{}).
		Where("tenant_slug = ? AND is_active = ?", slug, true).
		Updates(map[string]any{"is_active": false, "updated_at": s.now()})
	if result.Error != nil {
		return 0, fmt.Errorf("directory service: deactivate tenant %s: %w", slug, result.Error)
	}
	if result.RowsAffected > 0 {
		s.log.Info("directory entries deactivated", logger.Tenant(slug), zap.Int64("count", result.RowsAffected))
	}
	return result.RowsAffected, nil
}
