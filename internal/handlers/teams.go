package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/salonhub/internal/services"
	"github.com/charlesng35/salonhub/pkg/response"
)

// TeamHandler serves the dashboard's view of the tenant's staff.
type TeamHandler struct {
	staff *services.StaffService
}

func NewTeamHandler(staff *services.StaffService) (*TeamHandler, error) {
	if staff == nil {
		return nil, errors.New("team handler: staff service is required")
	}
	return &TeamHandler{staff: staff}, nil
}

type meResponse struct {
	Tenant string   `json:"tenant"`
	Staff  staffDTO `json:"staff"`
}

// GET /api/dashboard/me
func (h *TeamHandler) Me(c *gin.Context) {
	id, staffID, ok := routing(c)
	if !ok {
		return
	}

	staff, err := h.staff.Get(requestContext(c), id, staffID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, meResponse{Tenant: id.Slug.String(), Staff: toStaffDTO(staff)})
}

// GET /api/dashboard/team
func (h *TeamHandler) List(c *gin.Context) {
	id, _, ok := routing(c)
	if !ok {
		return
	}

	team, err := h.staff.ListTeam(requestContext(c), id)
	if err != nil {
		fail(c, err)
		return
	}

	dtos := make([]staffDTO, 0, len(team))
	for i := range team {
		dtos = append(dtos, toStaffDTO(&team[i]))
	}
	response.Success(c, http.StatusOK, dtos)
}

// DELETE /api/dashboard/team/:id
func (h *TeamHandler) Deactivate(c *gin.Context) {
	id, staffID, ok := routing(c)
	if !ok {
		return
	}

	if err := h.staff.Deactivate(requestContext(c), id, c.Param("id"), staffID); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deactivated": true})
}
