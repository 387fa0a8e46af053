package middleware

import (
	"context"
	stdErrors "errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/charlesng35/salonhub/internal/auth"
	"github.com/charlesng35/salonhub/internal/database"
	"github.com/charlesng35/salonhub/internal/schema"
	"github.com/charlesng35/salonhub/internal/tenant"
	"github.com/charlesng35/salonhub/pkg/errors"
	"github.com/charlesng35/salonhub/pkg/logger"
	"github.com/charlesng35/salonhub/pkg/response"
)

const (
	CtxClaimsKey   = "authClaims"
	CtxStaffIDKey  = "staffID"
	CtxTenantKey   = "tenantIdentity"
	CtxRoleKey     = "staffRole"
	bearerPrefix   = "Bearer "
	authLoggerName = "tenant-guard"
)

// SchemaEnsurer repairs a tenant schema before the request reaches a handler.
type SchemaEnsurer interface {
	Ensure(ctx context.Context, schemaName string, kind schema.Kind) (schema.Report, error)
}

// TenantGuard authenticates the bearer token, resolves the tenant it names and
// makes sure both tenant schemas are structurally current. Handlers behind the
// guard read the routing context with TenantFromContext and StaffIDFromContext.
func TenantGuard(jwt *iauth.JWTService, guardian SchemaEnsurer, naming tenant.Naming) gin.HandlerFunc {
	log := logger.WithModule(authLoggerName)

	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) <= len(bearerPrefix) || !strings.EqualFold(authz[:len(bearerPrefix)], bearerPrefix) {
			unauthorized(c)
			return
		}

		claims, err := jwt.ValidateAccessToken(strings.TrimSpace(authz[len(bearerPrefix):]))
		if err != nil {
			unauthorized(c)
			return
		}

		slug, err := claims.Slug()
		if err != nil {
			unauthorized(c)
			return
		}
		id := naming.Identity(slug)

		for _, target := range []struct {
			name string
			kind schema.Kind
		}{
			{id.BusinessSchema, schema.KindBusiness},
			{id.AccountSchema, schema.KindAccount},
		} {
			report, err := guardian.Ensure(c.Request.Context(), target.name, target.kind)
			if err != nil {
				switch {
				case stdErrors.Is(err, database.ErrSchemaNotFound):
					log.Info("token names a missing tenant schema", logger.Tenant(slug.String()), logger.Schema(target.name))
					unauthorized(c)
				case stdErrors.Is(err, database.ErrConnectivity):
					response.Error(c, errors.ErrConnectivity.WithInternal(err))
					c.Abort()
				default:
					response.Error(c, errors.ErrInternalServer.WithInternal(err))
					c.Abort()
				}
				return
			}
			if repairErr := report.Err(); repairErr != nil {
				log.Warn("continuing with partially repaired schema",
					logger.Schema(target.name),
					zap.Error(repairErr),
				)
			}
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxStaffIDKey, claims.StaffID)
		c.Set(CtxRoleKey, claims.Role)
		c.Set(CtxTenantKey, id)

		c.Next()
	}
}

// ClaimsFromContext returns the validated token claims set by TenantGuard.
func ClaimsFromContext(c *gin.Context) (*iauth.Claims, bool) {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*iauth.Claims)
	return claims, ok
}

// TenantFromContext returns the tenant routing context set by TenantGuard.
func TenantFromContext(c *gin.Context) (tenant.Identity, bool) {
	v, ok := c.Get(CtxTenantKey)
	if !ok {
		return tenant.Identity{}, false
	}
	id, ok := v.(tenant.Identity)
	return id, ok
}

// StaffIDFromContext returns the authenticated staff member's id.
func StaffIDFromContext(c *gin.Context) string {
	return c.GetString(CtxStaffIDKey)
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	response.Error(c, errors.ErrUnauthorized)
	c.Abort()
}
