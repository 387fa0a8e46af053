package schema

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/salonhub/internal/database"
	"github.com/charlesng35/salonhub/internal/database/testutil"
	"github.com/charlesng35/salonhub/internal/models"
)

type legacyStaff struct {
	ID                string `gorm:"primaryKey;size:36"`
	FirstName         string
	LastName          string
	Email             string `gorm:"uniqueIndex"`
	Password          string
	Role              string
	EmailVerified     bool
	VerificationToken string
	IsActive          bool
	LastLogin         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (legacyStaff) TableName() string { return "staff" }

type legacyBooking struct {
	ID          string `gorm:"primaryKey;size:36"`
	CustomerID  string
	Duration    int
	BookingDate time.Time
	Status      int
	Price       float64
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (legacyBooking) TableName() string { return "bookings" }

func newGuardian(t *testing.T, schemas []string, opts ...Option) (*Guardian, *database.Registry) {
	t.Helper()
	registry := testutil.MustOpenRegistry(t, schemas)
	guardian, err := NewGuardian(registry, append([]Option{WithInterval(0)}, opts...)...)
	require.NoError(t, err)
	return guardian, registry
}

func TestEnsureCreatesEveryTable(t *testing.T) {
	guardian, registry := newGuardian(t, []string{"tenant_a", "tenant_a_management", "central"})
	ctx := context.Background()

	cases := map[string]Kind{
		"tenant_a":            KindBusiness,
		"tenant_a_management": KindAccount,
		"central":             KindCentral,
	}
	for schema, kind := range cases {
		report, err := guardian.Ensure(ctx, schema, kind)
		require.NoError(t, err)
		require.True(t, report.OK(), "%s: %v", schema, report.Err())
		require.NoError(t, report.Err())
	}

	business, err := registry.Get(ctx, "tenant_a")
	require.NoError(t, err)
	for _, table := range []string{"bookings", "services", "opening_hours", "salon_info", "notification_settings", "customers"} {
		require.True(t, business.Migrator().HasTable(table), table)
	}

	account, err := registry.Get(ctx, "tenant_a_management")
	require.NoError(t, err)
	require.True(t, account.Migrator().HasTable("staff"))
	require.True(t, account.Migrator().HasTable("resource"))

	central, err := registry.Get(ctx, "central")
	require.NoError(t, err)
	for _, table := range []string{"staff_directory", "invitations", "tenants"} {
		require.True(t, central.Migrator().HasTable(table), table)
	}
}

func TestEnsureIsIdempotentAndKeepsData(t *testing.T) {
	guardian, registry := newGuardian(t, []string{"tenant_a"})
	ctx := context.Background()

	_, err := guardian.Ensure(ctx, "tenant_a", KindBusiness)
	require.NoError(t, err)

	db, err := registry.Get(ctx, "tenant_a")
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Booking{CustomerID: "c1", Duration: 30, BookingDate: time.Now(), Service: "cut"}).Error)

	for i := 0; i < 3; i++ {
		report, err := guardian.Ensure(ctx, "tenant_a", KindBusiness)
		require.NoError(t, err)
		require.True(t, report.OK())
	}

	var count int64
	require.NoError(t, db.Model(&models.Booking{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestEnsureRepairsLegacyAccountSchema(t *testing.T) {
	guardian, registry := newGuardian(t, []string{"tenant_a_management"})
	ctx := context.Background()

	db, err := registry.Get(ctx, "tenant_a_management")
	require.NoError(t, err)
	require.NoError(t, db.Migrator().CreateTable(&legacyStaff{}))
	require.NoError(t, db.Create(&legacyStaff{ID: "s1", Email: "a@x.com", Password: "hash", Role: "owner", IsActive: true}).Error)
	require.False(t, db.Migrator().HasColumn(&models.Staff{}, "reset_token"))

	report, err := guardian.Ensure(ctx, "tenant_a_management", KindAccount)
	require.NoError(t, err)
	require.True(t, report.OK(), "%v", report.Err())

	for _, column := range []string{"profile_image", "phone", "reset_token", "reset_expires", "reset_used"} {
		require.True(t, db.Migrator().HasColumn(&models.Staff{}, column), column)
	}

	var staff models.Staff
	require.NoError(t, db.First(&staff, "id = ?", "s1").Error)
	require.Equal(t, "a@x.com", staff.Email)
	require.False(t, staff.ResetUsed)
}

func TestEnsureRepairsLegacyBookings(t *testing.T) {
	guardian, registry := newGuardian(t, []string{"tenant_a"})
	ctx := context.Background()

	db, err := registry.Get(ctx, "tenant_a")
	require.NoError(t, err)
	require.NoError(t, db.Migrator().CreateTable(&legacyBooking{}))

	report, err := guardian.Ensure(ctx, "tenant_a", KindBusiness)
	require.NoError(t, err)
	require.True(t, report.OK(), "%v", report.Err())
	require.True(t, db.Migrator().HasColumn(&models.Booking{}, "stylist_id"))
	require.True(t, db.Migrator().HasColumn(&models.Booking{}, "service"))
}

func TestEnsureContinuesPastFailedSteps(t *testing.T) {
	boom := errors.New("boom")
	var ran []string
	step := func(name string, err error) Step {
		return Step{Name: name, Apply: func(*gorm.DB) error {
			ran = append(ran, name)
			return err
		}}
	}

	guardian, _ := newGuardian(t, []string{"tenant_a"}, WithPlan(KindBusiness, []Step{
		step("first", nil),
		step("broken", boom),
		step("last", nil),
	}))

	report, err := guardian.Ensure(context.Background(), "tenant_a", KindBusiness)
	require.NoError(t, err)
	require.Equal(t, []string{"first", "broken", "last"}, ran)
	require.Len(t, report.Results, 3)
	require.False(t, report.OK())
	require.Len(t, report.Failed(), 1)
	require.Equal(t, "broken", report.Failed()[0].Step)

	require.ErrorIs(t, report.Err(), ErrRepairIncomplete)
	require.ErrorIs(t, report.Err(), boom)
}

func TestEnsureMemoisesCleanRepairs(t *testing.T) {
	calls := 0
	plan := []Step{{Name: "count", Apply: func(*gorm.DB) error {
		calls++
		return nil
	}}}

	registry := testutil.MustOpenRegistry(t, []string{"tenant_a"})
	guardian, err := NewGuardian(registry, WithInterval(time.Minute), WithPlan(KindBusiness, plan))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = guardian.Ensure(ctx, "tenant_a", KindBusiness)
	require.NoError(t, err)
	report, err := guardian.Ensure(ctx, "tenant_a", KindBusiness)
	require.NoError(t, err)
	require.True(t, report.Cached)
	require.Equal(t, 1, calls)

	guardian.Forget("tenant_a")
	report, err = guardian.Ensure(ctx, "tenant_a", KindBusiness)
	require.NoError(t, err)
	require.False(t, report.Cached)
	require.Equal(t, 2, calls)
}

func TestEnsureDoesNotMemoiseFailures(t *testing.T) {
	calls := 0
	plan := []Step{{Name: "fail", Apply: func(*gorm.DB) error {
		calls++
		return errors.New("nope")
	}}}

	registry := testutil.MustOpenRegistry(t, []string{"tenant_a"})
	guardian, err := NewGuardian(registry, WithInterval(time.Minute), WithPlan(KindBusiness, plan))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := guardian.Ensure(context.Background(), "tenant_a", KindBusiness)
		require.NoError(t, err)
	}
	require.Equal(t, 2, calls)
}

func TestEnsureFailsWhenSchemaUnavailable(t *testing.T) {
	guardian, _ := newGuardian(t, nil)

	_, err := guardian.Ensure(context.Background(), "tenant_missing", KindBusiness)
	require.ErrorIs(t, err, database.ErrSchemaNotFound)

	_, err = guardian.Ensure(context.Background(), "tenant_missing", Kind("reports"))
	require.ErrorIs(t, err, ErrUnknownKind)
}
