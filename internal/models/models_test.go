package models

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBaseModelBeforeCreateGeneratesID(t *testing.T) {
	var first, second BaseModel
	require.NoError(t, first.BeforeCreate(nil))
	require.NoError(t, second.BeforeCreate(nil))

	parsed, err := uuid.Parse(first.ID)
	require.NoError(t, err)
	require.Equal(t, uuid.Version(7), parsed.Version())
	require.Less(t, first.ID, second.ID, "ids are time ordered")

	keep := BaseModel{ID: "legacy-staff-1"}
	require.NoError(t, keep.BeforeCreate(nil))
	require.Equal(t, "legacy-staff-1", keep.ID)

	tooLong := BaseModel{ID: strings.Repeat("x", 37)}
	require.Error(t, tooLong.BeforeCreate(nil))
}

func TestEmbeddedModelsUseBaseBeforeCreate(t *testing.T) {
	cases := []struct {
		name  string
		model func() *BaseModel
	}{
		{"staff", func() *BaseModel { return &(&Staff{}).BaseModel }},
		{"resource", func() *BaseModel { return &(&Resource{}).BaseModel }},
		{"invitation", func() *BaseModel { return &(&Invitation{}).BaseModel }},
		{"booking", func() *BaseModel { return &(&Booking{}).BaseModel }},
		{"customer", func() *BaseModel { return &(&Customer{}).BaseModel }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			base := tc.model()
			require.NoError(t, base.BeforeCreate(nil))
			require.NotEmpty(t, base.ID)
		})
	}
}

func TestTableNames(t *testing.T) {
	require.Equal(t, "staff_directory", DirectoryEntry{}.TableName())
	require.Equal(t, "tenants", TenantRecord{}.TableName())
	require.Equal(t, "staff", Staff{}.TableName())
	require.Equal(t, "resource", Resource{}.TableName())
	require.Equal(t, "opening_hours", OpeningHours{}.TableName())
}

func TestRoles(t *testing.T) {
	for _, role := range []string{RoleOwner, RoleAdmin, RoleStylist, RoleReception} {
		require.True(t, IsValidRole(role), role)
	}
	require.False(t, IsValidRole("root"))

	require.True(t, RequiresVerifiedEmail(RoleOwner))
	require.False(t, RequiresVerifiedEmail(RoleStylist))

	require.True(t, CanManageTeam(RoleAdmin))
	require.False(t, CanManageTeam(RoleReception))
}
