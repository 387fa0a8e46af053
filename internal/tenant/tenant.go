// Package tenant derives the validated identifiers every tenant-scoped schema
// name is built from. Nothing outside this package turns user input into a
// schema name.
package tenant

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// DefaultPrefix is prepended to a slug to form the business schema name.
	DefaultPrefix = "tenant_"
	// DefaultAccountSuffix is appended to the business schema to form the account schema.
	DefaultAccountSuffix = "_management"
	// MaxSlugLength bounds a normalised slug so derived schema names fit the
	// 63 character identifier limit of postgres and mysql.
	MaxSlugLength = 40

	maxIdentifierLength = 63
)

var (
	// ErrInvalidName is returned when a business name does not normalise into a usable slug.
	ErrInvalidName = errors.New("tenant: invalid business name")
	// ErrInvalidSlug is returned when a string is not a well formed slug.
	ErrInvalidSlug = errors.New("tenant: invalid slug")
	// ErrInvalidNaming is returned when the configured prefix or suffix is unusable.
	ErrInvalidNaming = errors.New("tenant: invalid naming convention")
)

var (
	slugPattern   = regexp.MustCompile(`^[a-z0-9]+(_[a-z0-9]+)*$`)
	separatorRun  = regexp.MustCompile(`[^a-z0-9]+`)
	affixPattern  = regexp.MustCompile(`^[a-z0-9_]*$`)
	prefixPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// Slug is a normalised tenant identifier. Values are only produced by Normalize
// and ParseSlug, so a Slug is always safe to embed in a schema name.
type Slug string

// String implements fmt.Stringer.
func (s Slug) String() string { return string(s) }

// Normalize lowercases the business name, collapses every run of characters
// outside [a-z0-9] into a single underscore and trims leading and trailing
// underscores. Names that normalise to nothing or exceed MaxSlugLength are
// rejected rather than truncated.
func Normalize(businessName string) (Slug, error) {
	lowered := strings.ToLower(strings.TrimSpace(businessName))
	collapsed := strings.Trim(separatorRun.ReplaceAllString(lowered, "_"), "_")

	if collapsed == "" {
		return "", fmt.Errorf("%w: no letters or digits", ErrInvalidName)
	}
	if len(collapsed) > MaxSlugLength {
		return "", fmt.Errorf("%w: %d characters once normalised, limit is %d", ErrInvalidName, len(collapsed), MaxSlugLength)
	}
	return Slug(collapsed), nil
}

// ParseSlug validates a slug read back from storage or a token claim.
func ParseSlug(value string) (Slug, error) {
	if len(value) == 0 || len(value) > MaxSlugLength || !slugPattern.MatchString(value) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlug, value)
	}
	return Slug(value), nil
}

// Identity is the immutable triple describing where a tenant's data lives.
type Identity struct {
	Slug           Slug   `json:"tenant"`
	BusinessSchema string `json:"business_schema"`
	AccountSchema  string `json:"account_schema"`
}

// Naming is the convention that maps slugs to schema names and back.
type Naming struct {
	Prefix        string
	AccountSuffix string
}

// DefaultNaming returns the tenant_<slug> / tenant_<slug>_management convention.
func DefaultNaming() Naming {
	return Naming{Prefix: DefaultPrefix, AccountSuffix: DefaultAccountSuffix}
}

// Validate ensures derived names are valid identifiers for every slug.
func (n Naming) Validate() error {
	if !prefixPattern.MatchString(n.Prefix) {
		return fmt.Errorf("%w: prefix %q must start with a letter and contain only [a-z0-9_]", ErrInvalidNaming, n.Prefix)
	}
	if n.AccountSuffix == "" || !affixPattern.MatchString(n.AccountSuffix) {
		return fmt.Errorf("%w: account suffix %q must be non-empty [a-z0-9_]", ErrInvalidNaming, n.AccountSuffix)
	}
	if len(n.Prefix)+MaxSlugLength+len(n.AccountSuffix) > maxIdentifierLength {
		return fmt.Errorf("%w: prefix and suffix leave no room for a %d character slug", ErrInvalidNaming, MaxSlugLength)
	}
	return nil
}

// Identity derives both schema names for slug.
func (n Naming) Identity(slug Slug) Identity {
	business := n.Prefix + string(slug)
	return Identity{
		Slug:           slug,
		BusinessSchema: business,
		AccountSchema:  business + n.AccountSuffix,
	}
}

// AccountSchemaPattern returns a SQL LIKE pattern matching every account schema.
// Underscores in the pattern are wildcards, so callers must still filter the
// result with SlugFromAccountSchema.
func (n Naming) AccountSchemaPattern() string {
	return n.Prefix + "%" + n.AccountSuffix
}

// SlugFromAccountSchema reverses Identity for account schema names.
func (n Naming) SlugFromAccountSchema(name string) (Slug, bool) {
	if !strings.HasPrefix(name, n.Prefix) || !strings.HasSuffix(name, n.AccountSuffix) {
		return "", false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(name, n.Prefix), n.AccountSuffix)
	slug, err := ParseSlug(inner)
	if err != nil {
		return "", false
	}
	return slug, true
}
