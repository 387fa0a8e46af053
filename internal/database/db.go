// Package database hosts the dialect specific schema servers and the
// Connection Registry that caches one pool per schema.
package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrConnectivity marks failures to reach the database server. Callers
	// surface it as unavailable and never retry it automatically.
	ErrConnectivity = errors.New("database: server unreachable")
	// ErrInvalidSchemaName is returned for names that are not safe identifiers.
	ErrInvalidSchemaName = errors.New("database: invalid schema name")
	// ErrSchemaNotFound is returned when opening a schema that was never created.
	ErrSchemaNotFound = errors.New("database: schema not found")
	// ErrRegistryClosed is returned by Registry.Get after Close.
	ErrRegistryClosed = errors.New("database: registry closed")
)

var schemaNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// Config contains database server options.
type Config struct {
	Driver   string
	Path     string // directory holding one file per schema when Driver == sqlite
	DSN      string // optional DSN override for postgres and mysql
	Host     string
	Port     int
	User     string
	Password string
	Name     string // postgres database hosting the schemas
	Options  map[string]string
}

// PoolOptions bounds the pool opened for every schema.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolOptions keeps per schema pools small since the number of
// schemas grows with the number of tenants.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxOpenConns:    2,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// adminConnectTimeout bounds the startup ping of a server's admin handle.
const adminConnectTimeout = 10 * time.Second

// AdminPoolOptions bounds the admin handle postgres and mysql servers use for
// schema DDL and catalog lookups.
func AdminPoolOptions() PoolOptions {
	return PoolOptions{
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// Server creates, lists and opens schemas on one database server.
type Server interface {
	Dialect() string
	OpenSchema(ctx context.Context, schema string, opts PoolOptions) (*gorm.DB, error)
	CreateSchema(ctx context.Context, schema string) error
	DropSchema(ctx context.Context, schema string) error
	// ListSchemas returns schema names matching a SQL LIKE pattern.
	ListSchemas(ctx context.Context, like string) ([]string, error)
	Close() error
}

// NewServer returns the Server for cfg.Driver.
func NewServer(cfg Config) (Server, error) {
	driver := strings.ToLower(cfg.Driver)
	if driver == "" {
		driver = "sqlite"
	}

	switch driver {
	case "sqlite":
		return newSQLiteServer(cfg)
	case "postgres", "postgresql":
		return newPostgresServer(cfg)
	case "mysql":
		return newMySQLServer(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// ValidateSchemaName rejects anything that is not a lowercase identifier.
func ValidateSchemaName(name string) error {
	if !schemaNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidSchemaName, name)
	}
	return nil
}

// IsUniqueViolation detects uniqueness constraint violations across vendors.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate")
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	}
}

// openPool opens a gorm handle, bounds its pool and verifies connectivity.
func openPool(ctx context.Context, dialector gorm.Dialector, schema string, opts PoolOptions) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, gormConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrConnectivity, schema, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrConnectivity, schema, err)
	}

	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", ErrConnectivity, schema, err)
	}

	return db, nil
}

// openAdmin opens a server's admin handle through the same bounds and ping as
// schema pools, so an unreachable server fails at startup with ErrConnectivity.
func openAdmin(dialector gorm.Dialector, name string) (*gorm.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), adminConnectTimeout)
	defer cancel()
	return openPool(ctx, dialector, name, AdminPoolOptions())
}

func closeGorm(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// likeMatcher turns a SQL LIKE pattern into an anchored regular expression.
func likeMatcher(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}
