package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	iauth "github.com/charlesng35/salonhub/internal/auth"
	"github.com/charlesng35/salonhub/internal/database"
	"github.com/charlesng35/salonhub/internal/database/testutil"
	"github.com/charlesng35/salonhub/internal/models"
	"github.com/charlesng35/salonhub/internal/schema"
	"github.com/charlesng35/salonhub/internal/tenant"
	"github.com/charlesng35/salonhub/pkg/response"
)

type recordingEnsurer struct {
	calls []string
	err   error
}

func (r *recordingEnsurer) Ensure(_ context.Context, name string, kind schema.Kind) (schema.Report, error) {
	r.calls = append(r.calls, fmt.Sprintf("%s:%s", kind, name))
	return schema.Report{Schema: name, Kind: kind}, r.err
}

func newTestJWT(t *testing.T) *iauth.JWTService {
	t.Helper()
	svc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "secret", Issuer: "test-suite"})
	require.NoError(t, err)
	return svc
}

func issueToken(t *testing.T, svc *iauth.JWTService, slug, role string) string {
	t.Helper()
	token, _, err := svc.GenerateAccessToken(iauth.AccessTokenInput{
		StaffID: "staff-1",
		Email:   "owner@example.com",
		Tenant:  tenant.Slug(slug),
		Role:    role,
	})
	require.NoError(t, err)
	return token
}

// forgeToken signs arbitrary claims with the suite secret, bypassing the
// checks GenerateAccessToken applies.
func forgeToken(t *testing.T, claims gojwt.MapClaims) string {
	t.Helper()
	claims["iss"] = "test-suite"
	claims["exp"] = gojwt.NewNumericDate(time.Now().Add(time.Hour))
	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return signed
}

func guardedRouter(jwt *iauth.JWTService, ensurer SchemaEnsurer) *gin.Engine {
	r := gin.New()
	r.GET("/secure", TenantGuard(jwt, ensurer, tenant.DefaultNaming()), func(c *gin.Context) {
		id, _ := TenantFromContext(c)
		claims, _ := ClaimsFromContext(c)
		c.JSON(http.StatusOK, gin.H{
			"staff_id":        StaffIDFromContext(c),
			"business_schema": id.BusinessSchema,
			"account_schema":  id.AccountSchema,
			"email":           claims.Email,
		})
	})
	return r
}

func serve(r *gin.Engine, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestTenantGuardAttachesRoutingContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwt := newTestJWT(t)
	ensurer := &recordingEnsurer{}
	r := guardedRouter(jwt, ensurer)

	w := serve(r, issueToken(t, jwt, "glow_studio", models.RoleOwner))
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "staff-1", payload["staff_id"])
	require.Equal(t, "tenant_glow_studio", payload["business_schema"])
	require.Equal(t, "tenant_glow_studio_management", payload["account_schema"])
	require.Equal(t, "owner@example.com", payload["email"])
	require.Equal(t, []string{
		"business:tenant_glow_studio",
		"account:tenant_glow_studio_management",
	}, ensurer.calls)
}

func TestTenantGuardRejectsBadTokens(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwt := newTestJWT(t)
	ensurer := &recordingEnsurer{}
	r := guardedRouter(jwt, ensurer)

	other, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "other", Issuer: "test-suite"})
	require.NoError(t, err)

	cases := map[string]string{
		"missing":        "",
		"garbage":        "not-a-token",
		"wrong secret":   issueToken(t, other, "glow_studio", models.RoleOwner),
		"malformed slug": forgeToken(t, gojwt.MapClaims{"sid": "staff-1", "tenant": "Glow Studio; DROP", "role": "owner"}),
		"unknown role":   forgeToken(t, gojwt.MapClaims{"sid": "staff-1", "tenant": "glow_studio", "role": "manager"}),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			w := serve(r, token)
			require.Equal(t, http.StatusUnauthorized, w.Code)
			require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
		})
	}
	require.Empty(t, ensurer.calls)
}

func TestTenantGuardMapsSchemaErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwt := newTestJWT(t)
	token := issueToken(t, jwt, "glow_studio", models.RoleStylist)

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"missing schema", fmt.Errorf("open: %w", database.ErrSchemaNotFound), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"server down", fmt.Errorf("open: %w", database.ErrConnectivity), http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := guardedRouter(jwt, &recordingEnsurer{err: tc.err})
			w := serve(r, token)
			require.Equal(t, tc.status, w.Code)

			var payload response.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
			require.False(t, payload.Success)
			require.Equal(t, tc.code, payload.Error.Code)
		})
	}
}

func TestTenantGuardCreatesMissingTables(t *testing.T) {
	gin.SetMode(gin.TestMode)
	id := tenant.DefaultNaming().Identity("glow_studio")
	registry := testutil.MustOpenRegistry(t, []string{id.BusinessSchema, id.AccountSchema})
	guardian, err := schema.NewGuardian(registry)
	require.NoError(t, err)

	jwt := newTestJWT(t)
	r := guardedRouter(jwt, guardian)

	w := serve(r, issueToken(t, jwt, "glow_studio", models.RoleOwner))
	require.Equal(t, http.StatusOK, w.Code)

	db, err := registry.Get(context.Background(), id.AccountSchema)
	require.NoError(t, err)
	require.True(t, db.Migrator().HasTable(&models.Staff{}))
	require.True(t, db.Migrator().HasColumn(&models.Staff{}, "reset_token"))

	business, err := registry.Get(context.Background(), id.BusinessSchema)
	require.NoError(t, err)
	require.True(t, business.Migrator().HasTable(&models.Booking{}))
}

func TestTenantGuardUnknownTenant(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := testutil.MustOpenRegistry(t, nil)
	guardian, err := schema.NewGuardian(registry)
	require.NoError(t, err)

	jwt := newTestJWT(t)
	w := serve(guardedRouter(jwt, guardian), issueToken(t, jwt, "deleted_salon", models.RoleOwner))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
