package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/salonhub/internal/database"
	"github.com/charlesng35/salonhub/internal/database/testutil"
	"github.com/charlesng35/salonhub/internal/models"
	"github.com/charlesng35/salonhub/internal/schema"
	"github.com/charlesng35/salonhub/internal/tenant"
	"github.com/charlesng35/salonhub/pkg/crypto"
)

const testCentralSchema = "central"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// switchablePools fails Get for one schema while fail is set, after letting
// the next grace calls through.
type switchablePools struct {
	inner  schemaPools
	schema string
	fail   atomic.Bool
	grace  atomic.Int32
}

var errPoolsDown = errors.New("pools down")

func (p *switchablePools) Get(ctx context.Context, name string) (*gorm.DB, error) {
	if p.fail.Load() && name == p.schema && p.grace.Add(-1) < 0 {
		return nil, errPoolsDown
	}
	return p.inner.Get(ctx, name)
}

// flakyEnsurer wraps a Guardian and injects a failed step while fail is set.
type flakyEnsurer struct {
	inner *schema.Guardian
	fail  atomic.Bool
}

func (f *flakyEnsurer) Ensure(ctx context.Context, name string, kind schema.Kind) (schema.Report, error) {
	if f.fail.Load() && kind == schema.KindAccount {
		return schema.Report{
			Schema:  name,
			Kind:    kind,
			Results: []schema.StepResult{{Step: "create table staff", Err: errors.New("disk full")}},
		}, nil
	}
	return f.inner.Ensure(ctx, name, kind)
}

func (f *flakyEnsurer) Forget(name string) { f.inner.Forget(name) }

type harness struct {
	server      database.Server
	registry    *database.Registry
	guardian    *flakyEnsurer
	directory   *DirectoryService
	dirPools    *switchablePools
	provisioner *Provisioner
	invites     *InviteService
	staff       *StaffService
	reconciler  *Reconciler
	clock       *testClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	server := testutil.MustOpenServer(t)
	require.NoError(t, server.CreateSchema(ctx, testCentralSchema))

	registry, err := database.NewRegistry(server)
	require.NoError(t, err)
	t.Cleanup(func() { _ = registry.Close() })

	guardian, err := schema.NewGuardian(registry, schema.WithInterval(0))
	require.NoError(t, err)
	report, err := guardian.Ensure(ctx, testCentralSchema, schema.KindCentral)
	require.NoError(t, err)
	require.NoError(t, report.Err())

	clock := newTestClock()
	h := &harness{
		server:   server,
		registry: registry,
		guardian: &flakyEnsurer{inner: guardian},
		dirPools: &switchablePools{inner: registry, schema: testCentralSchema},
		clock:    clock,
	}

	h.directory, err = NewDirectoryService(h.dirPools, testCentralSchema, WithDirectoryClock(clock.Now))
	require.NoError(t, err)

	h.provisioner, err = NewProvisioner(server, registry, h.guardian, h.directory, testCentralSchema, WithProvisionerClock(clock.Now))
	require.NoError(t, err)

	h.invites, err = NewInviteService(registry, testCentralSchema, WithInviteClock(clock.Now), WithInviteBaseURL("https://app.example.com/invite/"))
	require.NoError(t, err)

	h.staff, err = NewStaffService(registry, h.provisioner, h.directory, h.invites, WithStaffClock(clock.Now))
	require.NoError(t, err)

	h.reconciler, err = NewReconciler(server, registry, h.directory, h.provisioner)
	require.NoError(t, err)

	return h
}

func (h *harness) provision(t *testing.T, businessName string) tenant.Identity {
	t.Helper()
	id, err := h.provisioner.Provision(context.Background(), businessName)
	require.NoError(t, err)
	return id
}

func (h *harness) accountDB(t *testing.T, id tenant.Identity) *gorm.DB {
	t.Helper()
	db, err := h.registry.Get(context.Background(), id.AccountSchema)
	require.NoError(t, err)
	return db
}

func (h *harness) centralDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := h.registry.Get(context.Background(), testCentralSchema)
	require.NoError(t, err)
	return db
}

// insertStaff writes an account row directly, bypassing the directory.
func (h *harness) insertStaff(t *testing.T, id tenant.Identity, email, role, password string) *models.Staff {
	t.Helper()
	hash, err := crypto.HashPassword(password)
	require.NoError(t, err)

	staff := &models.Staff{
		FirstName:     "Test",
		LastName:      "Member",
		Email:         email,
		PasswordHash:  hash,
		Role:          role,
		EmailVerified: true,
		IsActive:      true,
	}
	require.NoError(t, h.accountDB(t, id).Create(staff).Error)
	return staff
}
