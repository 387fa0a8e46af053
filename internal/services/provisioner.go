package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/salonhub/internal/models"
	"github.com/charlesng35/salonhub/internal/schema"
	"github.com/charlesng35/salonhub/internal/tenant"
	"github.com/charlesng35/salonhub/pkg/logger"
	"github.com/charlesng35/salonhub/pkg/metrics"
)

// schemaServer is the subset of database.Server the data plane services need.
type schemaServer interface {
	CreateSchema(ctx context.Context, schema string) error
	DropSchema(ctx context.Context, schema string) error
	ListSchemas(ctx context.Context, like string) ([]string, error)
}

// poolRegistry resolves and evicts schema pools. *database.Registry satisfies it.
type poolRegistry interface {
	schemaPools
	Drop(schema string) bool
}

// schemaEnsurer runs structural repairs. *schema.Guardian satisfies it.
type schemaEnsurer interface {
	Ensure(ctx context.Context, name string, kind schema.Kind) (schema.Report, error)
	Forget(name string)
}

// ProvisionerOption customises Provisioner behaviour.
type ProvisionerOption func(*Provisioner)

// WithProvisionerClock injects a custom clock primarily for testing.
func WithProvisionerClock(clock func() time.Time) ProvisionerOption {
	return func(p *Provisioner) {
		if clock != nil {
			p.now = clock
		}
	}
}

// WithProvisionerNaming overrides the schema naming convention.
func WithProvisionerNaming(naming tenant.Naming) ProvisionerOption {
	return func(p *Provisioner) {
		p.naming = naming
	}
}

// Provisioner creates tenants as a recorded sequence of steps. The tenants
// marker in the central schema moves provisioning -> ready, or to failed with
// the last error, so crashed runs can be found and resumed. Each run first
// claims the marker and only settles the attempt it claimed. Nothing is
// rolled back on failure, and a deleted marker is never reused.
type Provisioner struct {
	server    schemaServer
	pools     poolRegistry
	guardian  schemaEnsurer
	directory *DirectoryService
	central   string
	naming    tenant.Naming
	now       func() time.Time
	log       *zap.Logger
}

// NewProvisioner constructs a Provisioner.
func NewProvisioner(server schemaServer, pools poolRegistry, guardian schemaEnsurer, directory *DirectoryService, centralSchema string, opts ...ProvisionerOption) (*Provisioner, error) {
	if server == nil || pools == nil || guardian == nil || directory == nil {
		return nil, errors.New("provisioner: server, pools, guardian and directory are required")
	}
	if centralSchema == "" {
		return nil, errors.New("provisioner: central schema is required")
	}

	p := &Provisioner{
		server:    server,
		pools:     pools,
		guardian:  guardian,
		directory: directory,
		central:   centralSchema,
		naming:    tenant.DefaultNaming(),
		now:       func() time.Time { return time.Now().UTC() },
		log:       logger.WithModule("provisioner"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Naming exposes the naming convention used to derive schema names.
func (p *Provisioner) Naming() tenant.Naming {
	return p.naming
}

// errTenantReady reports that a claim found the tenant already provisioned.
var errTenantReady = errors.New("tenant: already ready")

// Provision derives the tenant slug from businessName, creates both schemas
// and repairs them. Calling it again for a ready slug repairs the schemas and
// leaves the marker alone. Deleted slugs return ErrTenantRetired and slugs
// another run is provisioning return ErrTenantExists.
func (p *Provisioner) Provision(ctx context.Context, businessName string) (tenant.Identity, error) {
	id, err := p.provision(ctx, businessName)
	if errors.Is(err, errTenantReady) {
		if err := p.build(ctx, id); err != nil {
			p.log.Warn("repair of ready tenant failed", logger.Tenant(string(id.Slug)), zap.Error(err))
			return id, fmt.Errorf("provision %s: %w", id.Slug, err)
		}
		return id, nil
	}
	return id, err
}

// Create provisions a tenant that must not exist yet. Exactly one of any
// number of concurrent callers for the same slug succeeds; the others, and
// any caller for a ready or deleted slug, get ErrTenantExists. A failed
// tenant can be created again.
func (p *Provisioner) Create(ctx context.Context, businessName string) (tenant.Identity, error) {
	id, err := p.provision(ctx, businessName)
	if errors.Is(err, errTenantReady) {
		return id, ErrTenantExists
	}
	return id, err
}

func (p *Provisioner) provision(ctx context.Context, businessName string) (tenant.Identity, error) {
	slug, err := tenant.Normalize(businessName)
	if err != nil {
		return tenant.Identity{}, err
	}
	id := p.naming.Identity(slug)

	central, err := p.pools.Get(ctx, p.central)
	if err != nil {
		return id, err
	}

	attempt, err := p.claim(central, id, businessName)
	if err != nil {
		return id, err
	}
	return id, p.run(ctx, central, id, attempt)
}

// run builds a tenant whose marker this run owns at attempt.
func (p *Provisioner) run(ctx context.Context, central *gorm.DB, id tenant.Identity, attempt int) error {
	if err := p.build(ctx, id); err != nil {
		_ = p.settle(central, id.Slug, attempt, models.TenantFailed, err.Error())
		metrics.TenantsProvisioned.WithLabelValues("failed").Inc()
		p.log.Error("tenant provisioning failed", logger.Tenant(string(id.Slug)), zap.Int("attempt", attempt), zap.Error(err))
		return fmt.Errorf("provision %s: %w", id.Slug, err)
	}

	if err := p.settle(central, id.Slug, attempt, models.TenantReady, ""); err != nil {
		return fmt.Errorf("provision %s: mark ready: %w", id.Slug, err)
	}

	metrics.TenantsProvisioned.WithLabelValues("ready").Inc()
	p.log.Info("tenant provisioned",
		logger.Tenant(string(id.Slug)),
		zap.String("business_schema", id.BusinessSchema),
		zap.String("account_schema", id.AccountSchema),
		zap.Int("attempt", attempt),
	)
	return nil
}

// claim takes ownership of the marker before any schema is touched and
// returns the attempt this run owns. A new slug is inserted and a failed
// marker is taken over; both are single conditional statements, so
// concurrent claims for one slug have one winner.
func (p *Provisioner) claim(central *gorm.DB, id tenant.Identity, businessName string) (int, error) {
	now := p.now()
	record := models.TenantRecord{
		Slug:           string(id.Slug),
		BusinessName:   businessName,
		BusinessSchema: id.BusinessSchema,
		AccountSchema:  id.AccountSchema,
		Status:         models.TenantProvisioning,
		Attempts:       1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	result := central.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoNothing: true,
	}).Create(&record)
	if result.Error != nil {
		return 0, fmt.Errorf("provision %s: record marker: %w", id.Slug, result.Error)
	}
	if result.RowsAffected == 1 {
		return 1, nil
	}

	var existing models.TenantRecord
	if err := central.Where("slug = ?", string(id.Slug)).First(&existing).Error; err != nil {
		return 0, fmt.Errorf("provision %s: read marker: %w", id.Slug, err)
	}

	switch existing.Status {
	case models.TenantReady:
		return 0, errTenantReady
	case models.TenantDeleted:
		return 0, ErrTenantRetired
	case models.TenantFailed:
		owned, err := p.takeOver(central, existing, "status = ?", models.TenantFailed)
		if err != nil {
			return 0, fmt.Errorf("provision %s: %w", id.Slug, err)
		}
		if owned {
			return existing.Attempts + 1, nil
		}
	}
	return 0, ErrTenantExists
}

// takeOver moves a marker back to provisioning when it is still at the attempt
// the caller read and matches cond. It reports whether this run owns it now.
func (p *Provisioner) takeOver(central *gorm.DB, record models.TenantRecord, cond string, args ...any) (bool, error) {
	result := central.Model(&models.TenantRecord{}).
		Where("slug = ? AND attempts = ?", record.Slug, record.Attempts).
		Where(cond, args...).
		Updates(map[string]any{
			"status":     models.TenantProvisioning,
			"attempts":   record.Attempts + 1,
			"last_error": "",
			"updated_at": p.now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("claim marker: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (p *Provisioner) build(ctx context.Context, id tenant.Identity) error {
	for _, name := range []string{id.BusinessSchema, id.AccountSchema} {
		if err := p.server.CreateSchema(ctx, name); err != nil {
			return err
		}
	}

	targets := []struct {
		name string
		kind schema.Kind
	}{
		{id.BusinessSchema, schema.KindBusiness},
		{id.AccountSchema, schema.KindAccount},
	}
	for _, target := range targets {
		p.guardian.Forget(target.name)
		report, err := p.guardian.Ensure(ctx, target.name, target.kind)
		if err != nil {
			return err
		}
		if err := report.Err(); err != nil {
			return err
		}
	}
	return nil
}

// settle moves a marker this run owns out of provisioning. A marker that was
// taken over by a later attempt is left alone. It uses a fresh context so a
// cancelled request still leaves an accurate marker behind.
func (p *Provisioner) settle(central *gorm.DB, slug tenant.Slug, attempt int, status models.TenantStatus, lastError string) error {
	result := central.WithContext(context.Background()).
		Model(&models.TenantRecord{}).
		Where("slug = ? AND status = ? AND attempts = ?", string(slug), models.TenantProvisioning, attempt).
		Updates(map[string]any{"status": status, "last_error": lastError, "updated_at": p.now()})
	if result.Error != nil {
		p.log.Error("failed to update tenant marker", logger.Tenant(string(slug)), zap.String("status", string(status)), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected == 0 {
		p.log.Warn("tenant marker owned by a later attempt", logger.Tenant(string(slug)), zap.Int("attempt", attempt), zap.String("status", string(status)))
	}
	return nil
}

// Lookup returns the provisioning record for slug.
func (p *Provisioner) Lookup(ctx context.Context, slug tenant.Slug) (*models.TenantRecord, error) {
	central, err := p.pools.Get(ctx, p.central)
	if err != nil {
		return nil, err
	}

	var record models.TenantRecord
	if err := central.Where("slug = ?", string(slug)).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("provisioner: lookup %s: %w", slug, err)
	}
	return &record, nil
}

// IsReady reports whether slug finished provisioning. Partial tenants are not ready.
func (p *Provisioner) IsReady(ctx context.Context, slug tenant.Slug) (bool, error) {
	record, err := p.Lookup(ctx, slug)
	if errors.Is(err, ErrTenantNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return record.Status == models.TenantReady, nil
}

// ReadySlugs returns the set of tenants that finished provisioning.
func (p *Provisioner) ReadySlugs(ctx context.Context) (map[tenant.Slug]struct{}, error) {
	records, err := p.list(ctx, models.TenantReady)
	if err != nil {
		return nil, err
	}
	ready := make(map[tenant.Slug]struct{}, len(records))
	for _, record := range records {
		ready[tenant.Slug(record.Slug)] = struct{}{}
	}
	return ready, nil
}

// Resume re-runs provisioning for tenants left in provisioning or failed for
// longer than olderThan. It returns how many tenants reached ready.
func (p *Provisioner) Resume(ctx context.Context, olderThan time.Duration) (int, error) {
	central, err := p.pools.Get(ctx, p.central)
	if err != nil {
		return 0, err
	}

	var stuck []models.TenantRecord
	cutoff := p.now().Add(-olderThan)
	if err := central.
		Where("status IN ? AND updated_at < ?", []models.TenantStatus{models.TenantProvisioning, models.TenantFailed}, cutoff).
		Order("slug").
		Find(&stuck).Error; err != nil {
		return 0, fmt.Errorf("provisioner: list stuck tenants: %w", err)
	}

	var errs error
	resumed := 0
	for _, record := range stuck {
		slug, err := tenant.ParseSlug(record.Slug)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		owned, err := p.takeOver(central, record, "status IN ? AND updated_at < ?",
			[]models.TenantStatus{models.TenantProvisioning, models.TenantFailed}, cutoff)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("resume %s: %w", slug, err))
			continue
		}
		if !owned {
			continue
		}
		if err := p.run(ctx, central, p.naming.Identity(slug), record.Attempts+1); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		resumed++
	}

	if len(stuck) > 0 {
		p.log.Info("resumed stuck tenants", zap.Int("found", len(stuck)), zap.Int("ready", resumed))
	}
	return resumed, errs
}

// Deprovision removes a tenant: directory entries are deactivated and pending
// invitations expired first so the tenant becomes unreachable, then pools are
// evicted and both schemas dropped. The slug stays retired afterwards.
func (p *Provisioner) Deprovision(ctx context.Context, slug tenant.Slug) error {
	id := p.naming.Identity(slug)

	central, err := p.pools.Get(ctx, p.central)
	if err != nil {
		return err
	}

	if _, err := p.directory.DeactivateTenant(ctx, string(slug)); err != nil {
		return err
	}

	now := p.now()
	expired := central.Model(&models.Invitation{}).
		Where("tenant_slug = ? AND accepted = ? AND expires_at > ?", string(slug), false, now).
		Update("expires_at", now)
	if expired.Error != nil {
		return fmt.Errorf("deprovision %s: expire invitations: %w", slug, expired.Error)
	}

	if err := central.Model(&models.TenantRecord{}).
		Where("slug = ?", string(slug)).
		Updates(map[string]any{"status": models.TenantDeleted, "last_error": "", "updated_at": now}).Error; err != nil {
		return fmt.Errorf("deprovision %s: retire marker: %w", slug, err)
	}

	var errs error
	for _, name := range []string{id.BusinessSchema, id.AccountSchema} {
		p.pools.Drop(name)
		p.guardian.Forget(name)
		errs = multierr.Append(errs, p.server.DropSchema(ctx, name))
	}
	if errs != nil {
		return fmt.Errorf("deprovision %s: %w", slug, errs)
	}

	p.log.Info("tenant deprovisioned", logger.Tenant(string(slug)), zap.Int64("invitations_expired", expired.RowsAffected))
	return nil
}

// RepairAll runs the full repair plan over every ready tenant, bypassing the
// guard memo. It returns how many schemas were repaired cleanly.
func (p *Provisioner) RepairAll(ctx context.Context) (int, error) {
	records, err := p.list(ctx, models.TenantReady)
	if err != nil {
		return 0, err
	}

	var errs error
	clean := 0
	for _, record := range records {
		slug, err := tenant.ParseSlug(record.Slug)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		id := p.naming.Identity(slug)
		for name, kind := range map[string]schema.Kind{id.BusinessSchema: schema.KindBusiness, id.AccountSchema: schema.KindAccount} {
			p.guardian.Forget(name)
			report, err := p.guardian.Ensure(ctx, name, kind)
			if err == nil {
				err = report.Err()
			}
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			clean++
		}
	}
	return clean, errs
}

func (p *Provisioner) list(ctx context.Context, status models.TenantStatus) ([]models.TenantRecord, error) {
	central, err := p.pools.Get(ctx, p.central)
	if err != nil {
		return nil, err
	}
	var records []models.TenantRecord
	if err := central.Where("status = ?", status).Order("slug").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("provisioner: list %s tenants: %w", status, err)
	}
	return records, nil
}
