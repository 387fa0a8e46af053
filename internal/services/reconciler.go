package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/charlesng35/salonhub/internal/models"
	"github.com/charlesng35/salonhub/internal/tenant"
	"github.com/charlesng35/salonhub/pkg/logger"
	"github.com/charlesng35/salonhub/pkg/metrics"
)

// Reconciler repairs the central directory from tenant account schemas. It is
// the login fallback for emails the directory does not know.
type Reconciler struct {
	server      schemaServer
	pools       schemaPools
	directory   *DirectoryService
	provisioner *Provisioner
	log         *zap.Logger
}

// NewReconciler constructs a Reconciler.
func NewReconciler(server schemaServer, pools schemaPools, directory *DirectoryService, provisioner *Provisioner) (*Reconciler, error) {
	if server == nil || pools == nil || directory == nil || provisioner == nil {
		return nil, errors.New("reconciler: server, pools, directory and provisioner are required")
	}
	return &Reconciler{
		server:      server,
		pools:       pools,
		directory:   directory,
		provisioner: provisioner,
		log:         logger.WithModule("reconciler"),
	}, nil
}

type reconcileMatch struct {
	id    tenant.Identity
	staff models.Staff
}

// Reconcile scans every ready tenant's account schema for an active account
// with email. Exactly one match is written back to the directory and returned;
// no match or several matches yield ErrDirectoryEntryNotFound.
func (r *Reconciler) Reconcile(ctx context.Context, email string) (*models.DirectoryEntry, error) {
	email = normaliseEmail(email)
	if email == "" {
		return nil, ErrDirectoryEntryNotFound
	}

	naming := r.provisioner.Naming()
	names, err := r.server.ListSchemas(ctx, naming.AccountSchemaPattern())
	if err != nil {
		return nil, fmt.Errorf("reconciler: list account schemas: %w", err)
	}

	ready, err := r.provisioner.ReadySlugs(ctx)
	if err != nil {
		return nil, err
	}

	var matches []reconcileMatch
	for _, name := range names {
		slug, ok := naming.SlugFromAccountSchema(name)
		if !ok {
			continue
		}
		if _, ok := ready[slug]; !ok {
			continue
		}

		db, err := r.pools.Get(ctx, name)
		if err != nil {
			r.log.Warn("skipping unreachable account schema", logger.Schema(name), zap.Error(err))
			continue
		}

		var found []models.Staff
		if err := db.Where("email = ? AND is_active = ?", email, true).Limit(1).Find(&found).Error; err != nil {
			r.log.Warn("skipping unreadable account schema", logger.Schema(name), zap.Error(err))
			continue
		}
		if len(found) == 1 {
			matches = append(matches, reconcileMatch{id: naming.Identity(slug), staff: found[0]})
		}
	}

	switch len(matches) {
	case 0:
		metrics.DirectoryReconciliations.WithLabelValues("missing").Inc()
		return nil, ErrDirectoryEntryNotFound
	case 1:
	default:
		metrics.DirectoryReconciliations.WithLabelValues("ambiguous").Inc()
		tenants := make([]string, 0, len(matches))
		for _, match := range matches {
			tenants = append(tenants, string(match.id.Slug))
		}
		r.log.Warn("email found in several tenants, directory not repaired", zap.Strings("tenants", tenants))
		return nil, ErrDirectoryEntryNotFound
	}

	match := matches[0]
	entry := directoryEntryFor(match.id, &match.staff)
	if err := r.directory.Upsert(ctx, entry); err != nil {
		return nil, err
	}

	metrics.DirectoryReconciliations.WithLabelValues("repaired").Inc()
	r.log.Info("directory entry repaired from account schema", logger.Tenant(string(match.id.Slug)))

	repaired, err := r.directory.Find(ctx, email)
	if err != nil {
		return nil, err
	}
	return repaired, nil
}
