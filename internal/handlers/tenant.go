package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/salonhub/internal/services"
	"github.com/charlesng35/salonhub/pkg/logger"
	"github.com/charlesng35/salonhub/pkg/response"
)

// TenantHandler exposes tenant lifecycle operations to the tenant owner.
type TenantHandler struct {
	provisioner *services.Provisioner
}

func NewTenantHandler(provisioner *services.Provisioner) (*TenantHandler, error) {
	if provisioner == nil {
		return nil, errors.New("tenant handler: provisioner is required")
	}
	return &TenantHandler{provisioner: provisioner}, nil
}

// DELETE /api/dashboard/tenant drops both tenant schemas. Issued tokens stop
// working because the tenant guard no longer finds the schemas.
func (h *TenantHandler) Delete(c *gin.Context) {
	id, staffID, ok := routing(c)
	if !ok {
		return
	}

	if err := h.provisioner.Deprovision(requestContext(c), id.Slug); err != nil {
		fail(c, err)
		return
	}

	logger.WithModule("http").Info("tenant deleted by owner",
		logger.Tenant(id.Slug.String()),
		zap.String("staff_id", staffID),
	)
	response.Success(c, http.StatusOK, gin.H{"deleted": true, "tenant": id.Slug.String()})
}
