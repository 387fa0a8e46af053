package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitLevels(t *testing.T) {
	t.Cleanup(Replace(zap.NewNop()))

	require.NoError(t, Init("debug", "json"))
	require.True(t, Logger().Core().Enabled(zap.DebugLevel))

	require.NoError(t, Init("verbose", "console"))
	require.False(t, Logger().Core().Enabled(zap.DebugLevel), "unknown level falls back to info")
	require.True(t, Logger().Core().Enabled(zap.InfoLevel))
}

func TestReplaceRestoresPrevious(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	restore := Replace(zap.New(core))

	WithModule("registry").Info("pool opened", Schema("tenant_silk_salon"))
	restore()
	WithModule("registry").Info("dropped by nop logger")

	entries := recorded.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "registry", fields["module"])
	require.Equal(t, "tenant_silk_salon", fields["schema"])
}

func TestTenantAndStaffFields(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	t.Cleanup(Replace(zap.New(core)))

	Logger().Debug("invite accepted", Tenant("silk_salon"), Staff("staff-42"))

	entries := recorded.FilterMessage("invite accepted").All()
	require.Len(t, entries, 1)
	require.Equal(t, "silk_salon", entries[0].ContextMap()["tenant"])
	require.Equal(t, "staff-42", entries[0].ContextMap()["staff_id"])
}
