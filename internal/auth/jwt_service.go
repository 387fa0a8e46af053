package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/charlesng35/salonhub/internal/models"
	"github.com/charlesng35/salonhub/internal/tenant"
)

// DefaultAccessTokenTTL is the session lifetime when none is configured.
const DefaultAccessTokenTTL = 7 * 24 * time.Hour

// ErrInvalidToken wraps every reason a session token is refused. The jwt
// library error stays in the chain for callers that care which check failed.
var ErrInvalidToken = errors.New("jwt: invalid session token")

// JWTConfig bundles the configuration required to build a JWTService.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
	Clock          func() time.Time
}

// Claims is the session payload. It names the tenant so the tenant guard can
// route the request without a directory lookup. Tokens are stateless and can
// only be revoked by rotating the signing secret.
type Claims struct {
	StaffID   string `json:"sid"`
	Email     string `json:"email"`
	Tenant    string `json:"tenant"`
	Role      string `json:"role"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	jwt.RegisteredClaims
}

// Slug returns the validated tenant slug carried by the token.
func (c *Claims) Slug() (tenant.Slug, error) {
	return tenant.ParseSlug(c.Tenant)
}

// AccessTokenInput describes the staff member a session is issued to.
type AccessTokenInput struct {
	StaffID   string
	Email     string
	Tenant    tenant.Slug
	Role      string
	FirstName string
	LastName  string
}

// JWTService signs and verifies HS256 session tokens.
type JWTService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: secret must be provided")
	}

	svc := &JWTService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.AccessTokenTTL,
		now:    cfg.Clock,
	}
	if svc.ttl <= 0 {
		svc.ttl = DefaultAccessTokenTTL
	}
	if svc.now == nil {
		svc.now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(svc.now),
		jwt.WithExpirationRequired(),
	}
	if svc.issuer != "" {
		opts = append(opts, jwt.WithIssuer(svc.issuer))
	}
	svc.parser = jwt.NewParser(opts...)

	return svc, nil
}

// TTL reports the lifetime of issued tokens.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// GenerateAccessToken issues a signed session token and returns its expiry.
func (s *JWTService) GenerateAccessToken(input AccessTokenInput) (string, time.Time, error) {
	if input.StaffID == "" {
		return "", time.Time{}, errors.New("jwt: staff id is required")
	}
	if _, err := tenant.ParseSlug(input.Tenant.String()); err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: %w", err)
	}
	if !models.IsValidRole(input.Role) {
		return "", time.Time{}, fmt.Errorf("jwt: unknown role %q", input.Role)
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)

	claims := &Claims{
		StaffID:   input.StaffID,
		Email:     input.Email,
		Tenant:    input.Tenant.String(),
		Role:      input.Role,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   input.StaffID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken verifies signature, expiry and issuer, then checks the
// token still names a staff member, a well formed tenant and a known role.
func (s *JWTService) ValidateAccessToken(raw string) (*Claims, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	var claims Claims
	if _, err := s.parser.ParseWithClaims(raw, &claims, s.signingKey); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.StaffID == "" {
		return nil, fmt.Errorf("%w: missing staff claim", ErrInvalidToken)
	}
	if _, err := claims.Slug(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !models.IsValidRole(claims.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	return &claims, nil
}

func (s *JWTService) signingKey(*jwt.Token) (any, error) {
	return s.secret, nil
}
