package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/salonhub/internal/api"
	"github.com/charlesng35/salonhub/internal/app"
	iauth "github.com/charlesng35/salonhub/internal/auth"
	"github.com/charlesng35/salonhub/internal/database"
	sharedtestutil "github.com/charlesng35/salonhub/internal/database/testutil"
	"github.com/charlesng35/salonhub/internal/middleware"
	"github.com/charlesng35/salonhub/internal/schema"
	"github.com/charlesng35/salonhub/internal/services"
	"github.com/charlesng35/salonhub/pkg/response"
)

// CentralSchema is the central schema name used by every test environment.
const CentralSchema = "central"

// Env encapsulates a fully-wired API instance backed by sqlite schema files in
// a temporary directory.
type Env struct {
	T           *testing.T
	Config      *app.Config
	Server      database.Server
	Registry    *database.Registry
	Guardian    *schema.Guardian
	Provisioner *services.Provisioner
	Staff       *services.StaffService
	Invites     *services.InviteService
	JWT         *iauth.JWTService
	Router      *gin.Engine
}

// EnvOption customises the configuration before the stack is wired.
type EnvOption func(*app.Config)

// WithRateLimit overrides the auth route rate limit.
func WithRateLimit(requests int, window time.Duration) EnvOption {
	return func(cfg *app.Config) {
		cfg.Server.RateLimit = app.RateLimitConfig{Requests: requests, Window: window}
	}
}

// NewEnv provisions a fresh handler test environment with the central schema
// prepared and tokens exposed in responses.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	cfg := &app.Config{
		Server: app.ServerConfig{
			RequestTimeout: 10 * time.Second,
			RateLimit:      app.RateLimitConfig{Requests: 1000, Window: time.Minute},
		},
		Tenancy: app.TenancyConfig{
			CentralSchema: CentralSchema,
			GuardInterval: time.Minute,
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
			Invitation: app.InvitationSettings{
				TTL:        24 * time.Hour,
				TokenBytes: 32,
				BaseURL:    "https://app.example.com/join",
			},
			PasswordResetTTL: 5 * time.Minute,
			ExposeTokens:     true,
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	env := &Env{T: t, Config: cfg}
	ctx := context.Background()

	env.Registry = sharedtestutil.MustOpenRegistry(t, []string{CentralSchema})
	env.Server = env.Registry.Server()

	var err error
	env.Guardian, err = schema.NewGuardian(env.Registry, schema.WithInterval(cfg.Tenancy.GuardInterval))
	require.NoError(t, err)
	report, err := env.Guardian.Ensure(ctx, CentralSchema, schema.KindCentral)
	require.NoError(t, err)
	require.True(t, report.OK())

	directory, err := services.NewDirectoryService(env.Registry, CentralSchema)
	require.NoError(t, err)

	env.Provisioner, err = services.NewProvisioner(env.Server, env.Registry, env.Guardian, directory, CentralSchema)
	require.NoError(t, err)

	env.Invites, err = services.NewInviteService(env.Registry, CentralSchema,
		services.WithInviteBaseURL(cfg.Auth.Invitation.BaseURL),
		services.WithInviteExpiry(cfg.Auth.Invitation.TTL),
	)
	require.NoError(t, err)

	env.Staff, err = services.NewStaffService(env.Registry, env.Provisioner, directory, env.Invites,
		services.WithPasswordResetTTL(cfg.Auth.PasswordResetTTL))
	require.NoError(t, err)

	reconciler, err := services.NewReconciler(env.Server, env.Registry, directory, env.Provisioner)
	require.NoError(t, err)

	env.JWT, err = iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	login, err := iauth.NewLoginService(directory, reconciler, env.Registry, env.JWT)
	require.NoError(t, err)

	env.Router, err = api.NewRouter(api.Dependencies{
		Config:      cfg,
		JWT:         env.JWT,
		Login:       login,
		Guardian:    env.Guardian,
		Pools:       env.Registry,
		Staff:       env.Staff,
		Invites:     env.Invites,
		Provisioner: env.Provisioner,
		RateStore:   middleware.NewMemoryRateStore(time.Minute),
	})
	require.NoError(t, err)

	return env
}

// StaffPayload captures the staff fields returned from auth and team endpoints.
type StaffPayload struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Role          string `json:"role"`
	Phone         string `json:"phone"`
	EmailVerified bool   `json:"email_verified"`
}

// Registration mirrors the POST /api/auth/register payload.
type Registration struct {
	Tenant            string       `json:"tenant"`
	Staff             StaffPayload `json:"staff"`
	VerificationToken string       `json:"verification_token"`
}

// LoginResult mirrors the POST /api/auth/login payload.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Tenant    string       `json:"tenant"`
	Staff     StaffPayload `json:"staff"`
}

// RegisterOwner registers a business and its owner and returns the payload.
func (e *Env) RegisterOwner(business, email, password string) Registration {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/register", map[string]string{
		"business_name": business,
		"first_name":    "Olivia",
		"last_name":     "Owner",
		"email":         email,
		"password":      password,
	}, "")
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	var reg Registration
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &reg)
	require.NotEmpty(e.T, reg.VerificationToken)
	return reg
}

// VerifyEmail confirms a verification token.
func (e *Env) VerifyEmail(token string) {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/verify-email", map[string]string{"token": token}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())
}

// RegisterVerifiedOwner registers an owner, verifies the email and logs in.
func (e *Env) RegisterVerifiedOwner(business, email, password string) LoginResult {
	e.T.Helper()

	reg := e.RegisterOwner(business, email, password)
	e.VerifyEmail(reg.VerificationToken)
	return e.Login(email, password)
}

// Login authenticates and returns the issued token.
func (e *Env) Login(email, password string) LoginResult {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.Token)
	return result
}

// InviteAndAccept issues an invitation with the inviter's token and redeems it.
func (e *Env) InviteAndAccept(inviterToken, email, role, password string) StaffPayload {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/dashboard/team/invitations", map[string]string{
		"email": email,
		"role":  role,
	}, inviterToken)
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Token string `json:"token"`
	}
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &created)

	w = e.Request(http.MethodPost, "/api/auth/invitation/accept", map[string]string{
		"token":      created.Token,
		"first_name": "Sam",
		"last_name":  "Stylist",
		"password":   password,
	}, "")
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	var accepted struct {
		Staff StaffPayload `json:"staff"`
	}
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &accepted)
	return accepted.Staff
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON
// encoding and the bearer token automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	buf := bytes.NewBuffer(nil)
	if body != nil {
		switch v := body.(type) {
		case string:
			buf.WriteString(v)
		default:
			data, err := json.Marshal(body)
			require.NoError(e.T, err)
			buf = bytes.NewBuffer(data)
		}
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
