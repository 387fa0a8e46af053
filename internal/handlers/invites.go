package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/salonhub/internal/models"
	"github.com/charlesng35/salonhub/internal/services"
	appErrors "github.com/charlesng35/salonhub/pkg/errors"
	"github.com/charlesng35/salonhub/pkg/response"
)

// InviteHandler issues invitations from the dashboard and redeems them on the
// public auth routes.
type InviteHandler struct {
	invites *services.InviteService
	staff   *services.StaffService
}

func NewInviteHandler(invites *services.InviteService, staff *services.StaffService) (*InviteHandler, error) {
	if invites == nil || staff == nil {
		return nil, errors.New("invite handler: invite and staff services are required")
	}
	return &InviteHandler{invites: invites, staff: staff}, nil
}

type createInviteRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Role  string `json:"role" validate:"required,oneof=admin stylist reception"`
}

type acceptInviteRequest struct {
	Token     string `json:"token" validate:"required,notblank"`
	FirstName string `json:"first_name" validate:"required,notblank,max=100"`
	LastName  string `json:"last_name" validate:"required,notblank,max=100"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	Phone     string `json:"phone" validate:"omitempty,max=20,phone"`
}

type inviteDTO struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Tenant    string    `json:"tenant"`
	InvitedBy string    `json:"invited_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toInviteDTO(inv *models.Invitation) inviteDTO {
	return inviteDTO{
		ID:        inv.ID,
		Email:     inv.Email,
		Role:      inv.Role,
		Tenant:    inv.TenantSlug,
		InvitedBy: inv.InvitedBy,
		CreatedAt: inv.CreatedAt,
		ExpiresAt: inv.ExpiresAt,
	}
}

type inviteCreatedResponse struct {
	Invite inviteDTO `json:"invite"`
	Token  string    `json:"token"`
	Link   string    `json:"link"`
}

type inviteInfoResponse struct {
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Tenant    string    `json:"tenant"`
	ExpiresAt time.Time `json:"expires_at"`
}

type inviteAcceptedResponse struct {
	Tenant string   `json:"tenant"`
	Staff  staffDTO `json:"staff"`
}

// POST /api/dashboard/team/invitations
func (h *InviteHandler) Create(c *gin.Context) {
	id, staffID, ok := routing(c)
	if !ok {
		return
	}

	var req createInviteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	invite, token, link, err := h.invites.Issue(requestContext(c), id, req.Email, req.Role, staffID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, inviteCreatedResponse{
		Invite: toInviteDTO(invite),
		Token:  token,
		Link:   link,
	})
}

// GET /api/dashboard/team/invitations
func (h *InviteHandler) List(c *gin.Context) {
	id, _, ok := routing(c)
	if !ok {
		return
	}

	invites, err := h.invites.ListPending(requestContext(c), id.Slug)
	if err != nil {
		fail(c, err)
		return
	}

	dtos := make([]inviteDTO, 0, len(invites))
	for i := range invites {
		dtos = append(dtos, toInviteDTO(&invites[i]))
	}
	response.Success(c, http.StatusOK, dtos)
}

// GET /api/auth/invitation?token=
func (h *InviteHandler) Lookup(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.NewBadRequest("token is required"))
		return
	}

	invite, err := h.invites.Resolve(requestContext(c), token)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, inviteInfoResponse{
		Email:     invite.Email,
		Role:      invite.Role,
		Tenant:    invite.TenantSlug,
		ExpiresAt: invite.ExpiresAt,
	})
}

// POST /api/auth/invitation/accept
func (h *InviteHandler) Accept(c *gin.Context) {
	var req acceptInviteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	staff, id, err := h.staff.RegisterFromInvitation(requestContext(c), req.Token, services.AcceptInvitationInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
		Phone:     req.Phone,
	})
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, inviteAcceptedResponse{
		Tenant: id.Slug.String(),
		Staff:  toStaffDTO(staff),
	})
}
