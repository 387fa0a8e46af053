package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.Error(t, err)
	require.EqualError(t, err, "jwt: secret must be provided")
}

func TestNewJWTServiceDefaultsToSevenDays(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "s"})
	require.NoError(t, err)
	require.Equal(t, 7*24*time.Hour, svc.TTL())
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	svc, err := NewJWTService(JWTConfig{
		Secret: "super-secret",
		Issuer: "salonhub",
		Clock:  now,
	})
	require.NoError(t, err)

	token, expiresAt, err := svc.GenerateAccessToken(AccessTokenInput{
		StaffID:   "staff-123",
		Email:     "a@x.com",
		Tenant:    "silk_salon",
		Role:      "owner",
		FirstName: "Anna",
		LastName:  "Owner",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.True(t, expiresAt.Equal(current.Add(7*24*time.Hour)))

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)

	require.Equal(t, "staff-123", claims.StaffID)
	require.Equal(t, "a@x.com", claims.Email)
	require.Equal(t, "silk_salon", claims.Tenant)
	require.Equal(t, "owner", claims.Role)
	require.Equal(t, "Anna", claims.FirstName)
	require.Equal(t, "salonhub", claims.Issuer)
	require.True(t, claims.IssuedAt.Time.Equal(current))
	require.True(t, claims.ExpiresAt.Time.Equal(expiresAt))
}

func TestGenerateAccessTokenRejectsIncompleteSessions(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "s"})
	require.NoError(t, err)

	cases := map[string]AccessTokenInput{
		"no staff":     {Tenant: "silk_salon", Role: "owner"},
		"no tenant":    {StaffID: "staff-1", Role: "owner"},
		"bad slug":     {StaffID: "staff-1", Tenant: "Silk Salon", Role: "owner"},
		"unknown role": {StaffID: "staff-1", Tenant: "silk_salon", Role: "manager"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := svc.GenerateAccessToken(input)
			require.Error(t, err)
		})
	}
}

func TestClaimsSlug(t *testing.T) {
	slug, err := (&Claims{Tenant: "silk_salon"}).Slug()
	require.NoError(t, err)
	require.Equal(t, "silk_salon", slug.String())

	_, err = (&Claims{Tenant: "../central"}).Slug()
	require.Error(t, err)
}

func TestValidateAccessTokenInvalidSignature(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC) }

	issuer, err := NewJWTService(JWTConfig{
		Secret:         "issuer-secret",
		AccessTokenTTL: time.Minute,
		Clock:          now,
	})
	require.NoError(t, err)

	token, _, err := issuer.GenerateAccessToken(AccessTokenInput{StaffID: "staff-123", Tenant: "silk_salon", Role: "stylist"})
	require.NoError(t, err)

	verifier, err := NewJWTService(JWTConfig{
		Secret:         "other-secret",
		AccessTokenTTL: time.Minute,
		Clock:          now,
	})
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.True(t, errors.Is(err, jwt.ErrTokenSignatureInvalid))
}

func TestValidateAccessTokenExpired(t *testing.T) {
	current := time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	svc, err := NewJWTService(JWTConfig{
		Secret:         "secret",
		AccessTokenTTL: time.Minute,
		Clock:          now,
	})
	require.NoError(t, err)

	token, _, err := svc.GenerateAccessToken(AccessTokenInput{StaffID: "staff-123", Tenant: "silk_salon", Role: "stylist"})
	require.NoError(t, err)

	// Move time forward beyond expiry.
	current = current.Add(2 * time.Minute)

	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestValidateAccessTokenRejectsOtherIssuer(t *testing.T) {
	issuer, err := NewJWTService(JWTConfig{Secret: "shared", Issuer: "elsewhere"})
	require.NoError(t, err)
	token, _, err := issuer.GenerateAccessToken(AccessTokenInput{StaffID: "staff-1", Tenant: "silk_salon", Role: "admin"})
	require.NoError(t, err)

	verifier, err := NewJWTService(JWTConfig{Secret: "shared", Issuer: "salonhub"})
	require.NoError(t, err)
	_, err = verifier.ValidateAccessToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}
