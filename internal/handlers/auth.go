package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/charlesng35/salonhub/internal/auth"
	"github.com/charlesng35/salonhub/internal/models"
	"github.com/charlesng35/salonhub/internal/services"
	"github.com/charlesng35/salonhub/pkg/logger"
	"github.com/charlesng35/salonhub/pkg/response"
)

// AuthHandler serves the public account endpoints: registration, login,
// email verification and password reset.
type AuthHandler struct {
	staff        *services.StaffService
	login        *iauth.LoginService
	exposeTokens bool
	log          *zap.Logger
}

// AuthHandlerOption customises AuthHandler behaviour.
type AuthHandlerOption func(*AuthHandler)

// WithExposedTokens makes register and forgot-password return the raw
// verification and reset tokens. Only meant for development without outbound
// email.
func WithExposedTokens(expose bool) AuthHandlerOption {
	return func(h *AuthHandler) {
		h.exposeTokens = expose
	}
}

func NewAuthHandler(staff *services.StaffService, login *iauth.LoginService, opts ...AuthHandlerOption) (*AuthHandler, error) {
	if staff == nil || login == nil {
		return nil, errors.New("auth handler: staff and login services are required")
	}
	h := &AuthHandler{staff: staff, login: login, log: logger.WithModule("http")}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

type registerRequest struct {
	BusinessName string `json:"business_name" validate:"required,notblank,max=120"`
	FirstName    string `json:"first_name" validate:"required,notblank,max=100"`
	LastName     string `json:"last_name" validate:"required,notblank,max=100"`
	Email        string `json:"email" validate:"required,email,max=255"`
	Password     string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenRequest struct {
	Token string `json:"token" validate:"required,notblank"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required,notblank"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type staffDTO struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Role          string     `json:"role"`
	Phone         string     `json:"phone,omitempty"`
	EmailVerified bool       `json:"email_verified"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toStaffDTO(s *models.Staff) staffDTO {
	return staffDTO{
		ID:            s.ID,
		Email:         s.Email,
		FirstName:     s.FirstName,
		LastName:      s.LastName,
		Role:          s.Role,
		Phone:         s.Phone,
		EmailVerified: s.EmailVerified,
		LastLoginAt:   s.LastLoginAt,
		CreatedAt:     s.CreatedAt,
	}
}

type registerResponse struct {
	Tenant            string   `json:"tenant"`
	Staff             staffDTO `json:"staff"`
	VerificationToken string   `json:"verification_token,omitempty"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Tenant    string    `json:"tenant"`
	Staff     staffDTO  `json:"staff"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	reg, err := h.staff.RegisterOwner(requestContext(c), services.RegisterOwnerInput{
		BusinessName: req.BusinessName,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Password:     req.Password,
	})
	if err != nil {
		fail(c, err)
		return
	}

	h.log.Debug("verification token issued",
		logger.Tenant(reg.Identity.Slug.String()),
		zap.String("email", reg.Staff.Email),
		zap.String("token", reg.VerificationToken),
	)

	resp := registerResponse{Tenant: reg.Identity.Slug.String(), Staff: toStaffDTO(reg.Staff)}
	if h.exposeTokens {
		resp.VerificationToken = reg.VerificationToken
	}
	response.Success(c, http.StatusCreated, resp)
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.login.Login(requestContext(c), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, loginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Tenant:    result.Identity.Slug.String(),
		Staff:     toStaffDTO(result.Staff),
	})
}

// POST /api/auth/verify-email
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req tokenRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.staff.VerifyEmail(requestContext(c), req.Token); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"verified": true})
}

// POST /api/auth/forgot-password always answers 202 so the endpoint cannot be
// used to probe which emails are registered.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	token, err := h.staff.RequestPasswordReset(requestContext(c), req.Email)
	if err != nil {
		fail(c, err)
		return
	}

	payload := gin.H{"requested": true}
	if token != "" {
		h.log.Debug("password reset token issued", zap.String("email", req.Email), zap.String("token", token))
		if h.exposeTokens {
			payload["reset_token"] = token
		}
	}
	response.Success(c, http.StatusAccepted, payload)
}

// POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.staff.ResetPassword(requestContext(c), req.Token, req.Password); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reset": true})
}
