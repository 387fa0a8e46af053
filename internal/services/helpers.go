package services

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

// schemaPools resolves schema names to pools. *database.Registry satisfies it.
type schemaPools interface {
	Get(ctx context.Context, schema string) (*gorm.DB, error)
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// splitRoutedToken separates the tenant slug prefix from a routed token.
func splitRoutedToken(token string) (slug, secret string, ok bool) {
	slug, secret, ok = strings.Cut(strings.TrimSpace(token), ".")
	if !ok || slug == "" || secret == "" {
		return "", "", false
	}
	return slug, secret, true
}
