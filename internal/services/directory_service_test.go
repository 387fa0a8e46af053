package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/salonhub/internal/models"
)

func TestDirectoryUpsertAndFind(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	entry := models.DirectoryEntry{
		Email:         " A@X.com ",
		FirstName:     "Anna",
		LastName:      "Owner",
		TenantSlug:    "silk_salon",
		AccountSchema: "tenant_silk_salon_management",
		Role:          models.RoleOwner,
	}
	require.NoError(t, h.directory.Upsert(ctx, entry))

	found, err := h.directory.Find(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "a@x.com", found.Email)
	require.Equal(t, "silk_salon", found.TenantSlug)
	require.True(t, found.IsActive)

	entry.Role = models.RoleAdmin
	entry.FirstName = "Anne"
	require.NoError(t, h.directory.Upsert(ctx, entry))

	found, err = h.directory.Find(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, found.Role)
	require.Equal(t, "Anne", found.FirstName)

	var count int64
	require.NoError(t, h.centralDB(t).Model(&models.DirectoryEntry{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestDirectoryUpsertReactivates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	entry := models.DirectoryEntry{Email: "b@x.com", TenantSlug: "silk_salon", AccountSchema: "tenant_silk_salon_management", Role: models.RoleStylist}
	require.NoError(t, h.directory.Upsert(ctx, entry))
	require.NoError(t, h.directory.Deactivate(ctx, "b@x.com", "silk_salon"))

	_, err := h.directory.Find(ctx, "b@x.com")
	require.ErrorIs(t, err, ErrDirectoryEntryNotFound)

	require.NoError(t, h.directory.Upsert(ctx, entry))
	found, err := h.directory.Find(ctx, "b@x.com")
	require.NoError(t, err)
	require.True(t, found.IsActive)
}

func TestDirectoryUpsertKeepsActiveEntryOfAnotherTenant(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.directory.Upsert(ctx, models.DirectoryEntry{Email: "d@x.com", TenantSlug: "silk_salon", AccountSchema: "tenant_silk_salon_management", Role: models.RoleOwner}))

	err := h.directory.Upsert(ctx, models.DirectoryEntry{Email: "d@x.com", TenantSlug: "velvet", AccountSchema: "tenant_velvet_management", Role: models.RoleStylist})
	require.ErrorIs(t, err, ErrEmailTaken)

	found, err := h.directory.Find(ctx, "d@x.com")
	require.NoError(t, err)
	require.Equal(t, "silk_salon", found.TenantSlug)
	require.Equal(t, models.RoleOwner, found.Role)

	// Once the first tenant lets go of the email another tenant may claim it.
	require.NoError(t, h.directory.Deactivate(ctx, "d@x.com", "silk_salon"))
	require.NoError(t, h.directory.Upsert(ctx, models.DirectoryEntry{Email: "d@x.com", TenantSlug: "velvet", AccountSchema: "tenant_velvet_management", Role: models.RoleStylist}))
	found, err = h.directory.Find(ctx, "d@x.com")
	require.NoError(t, err)
	require.Equal(t, "velvet", found.TenantSlug)
}

func TestDirectoryConcurrentUpsertsHaveOneTenant(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	slugs := []string{"alpha", "beta", "gamma", "delta"}
	errs := make([]error, len(slugs))
	var wg sync.WaitGroup
	for i, slug := range slugs {
		wg.Add(1)
		go func(i int, slug string) {
			defer wg.Done()
			errs[i] = h.directory.Upsert(ctx, models.DirectoryEntry{
				Email:         "race@x.com",
				TenantSlug:    slug,
				AccountSchema: "tenant_" + slug + "_management",
				Role:          models.RoleStylist,
			})
		}(i, slug)
	}
	wg.Wait()

	winners := 0
	var winner string
	for i, err := range errs {
		if err == nil {
			winners++
			winner = slugs[i]
			continue
		}
		require.ErrorIs(t, err, ErrEmailTaken)
	}
	require.Equal(t, 1, winners)

	found, err := h.directory.Find(ctx, "race@x.com")
	require.NoError(t, err)
	require.Equal(t, winner, found.TenantSlug)
}

func TestDirectoryDeactivateOnlyTouchesMatchingTenant(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.directory.Upsert(ctx, models.DirectoryEntry{Email: "c@x.com", TenantSlug: "velvet", AccountSchema: "tenant_velvet_management", Role: models.RoleStylist}))
	require.NoError(t, h.directory.Deactivate(ctx, "c@x.com", "silk_salon"))

	_, err := h.directory.Find(ctx, "c@x.com")
	require.NoError(t, err)
}

func TestDirectoryDeactivateTenantAndTouch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, email := range []string{"a@x.com", "b@x.com"} {
		require.NoError(t, h.directory.Upsert(ctx, models.DirectoryEntry{Email: email, TenantSlug: "silk_salon", AccountSchema: "tenant_silk_salon_management", Role: models.RoleStylist}))
	}
	require.NoError(t, h.directory.Upsert(ctx, models.DirectoryEntry{Email: "z@x.com", TenantSlug: "velvet", AccountSchema: "tenant_velvet_management", Role: models.RoleOwner}))

	at := h.clock.Now().Add(time.Hour)
	require.NoError(t, h.directory.TouchLastLogin(ctx, "z@x.com", at))
	found, err := h.directory.Find(ctx, "z@x.com")
	require.NoError(t, err)
	require.NotNil(t, found.LastLoginAt)
	require.True(t, found.LastLoginAt.Equal(at))

	changed, err := h.directory.DeactivateTenant(ctx, "silk_salon")
	require.NoError(t, err)
	require.EqualValues(t, 2, changed)

	_, err = h.directory.Find(ctx, "a@x.com")
	require.ErrorIs(t, err, ErrDirectoryEntryNotFound)
	_, err = h.directory.Find(ctx, "z@x.com")
	require.NoError(t, err)
}

func TestDirectoryUpsertValidatesEntry(t *testing.T) {
	h := newHarness(t)
	require.Error(t, h.directory.Upsert(context.Background(), models.DirectoryEntry{Email: "a@x.com"}))

	_, err := h.directory.Find(context.Background(), "")
	require.ErrorIs(t, err, ErrDirectoryEntryNotFound)
}
