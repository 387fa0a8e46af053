package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// postgresServer maps tenants to schemas inside one postgres database. Every
// schema pool pins its search_path so unqualified table names resolve inside it.
type postgresServer struct {
	admin *gorm.DB
	dsn   string
}

func newPostgresServer(cfg Config) (*postgresServer, error) {
	dsn, err := buildPostgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	admin, err := openAdmin(postgres.Open(dsn), "postgres admin")
	if err != nil {
		return nil, err
	}
	return &postgresServer{admin: admin, dsn: dsn}, nil
}

// newPostgresServerWithConn wraps an existing connection as the admin handle.
func newPostgresServerWithConn(conn *sql.DB, dsn string) (*postgresServer, error) {
	admin, err := openAdmin(postgres.New(postgres.Config{Conn: conn, DriverName: "postgres"}), "postgres admin")
	if err != nil {
		return nil, err
	}
	return &postgresServer{admin: admin, dsn: dsn}, nil
}

func (s *postgresServer) Dialect() string { return "postgres" }

func (s *postgresServer) OpenSchema(ctx context.Context, schema string, opts PoolOptions) (*gorm.DB, error) {
	if err := ValidateSchemaName(schema); err != nil {
		return nil, err
	}

	exists, err := s.schemaExists(ctx, schema)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, schema)
	}

	dsn, err := withSearchPath(s.dsn, schema)
	if err != nil {
		return nil, err
	}
	return openPool(ctx, postgres.Open(dsn), schema, opts)
}

func (s *postgresServer) schemaExists(ctx context.Context, schema string) (bool, error) {
	var count int64
	err := s.admin.WithContext(ctx).
		Raw("SELECT count(*) FROM information_schema.schemata WHERE schema_name = ?", schema).
		Scan(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: lookup schema %s: %w", ErrConnectivity, schema, err)
	}
	return count > 0, nil
}

func (s *postgresServer) CreateSchema(ctx context.Context, schema string) error {
	if err := ValidateSchemaName(schema); err != nil {
		return err
	}
	if err := s.admin.WithContext(ctx).Exec("CREATE SCHEMA IF NOT EXISTS " + quotePostgres(schema)).Error; err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}
	return nil
}

func (s *postgresServer) DropSchema(ctx context.Context, schema string) error {
	if err := ValidateSchemaName(schema); err != nil {
		return err
	}
	if err := s.admin.WithContext(ctx).Exec("DROP SCHEMA IF EXISTS " + quotePostgres(schema) + " CASCADE").Error; err != nil {
		return fmt.Errorf("drop schema %s: %w", schema, err)
	}
	return nil
}

func (s *postgresServer) ListSchemas(ctx context.Context, like string) ([]string, error) {
	rows, err := s.admin.WithContext(ctx).
		Raw("SELECT schema_name FROM information_schema.schemata WHERE schema_name LIKE ? ORDER BY schema_name", like).
		Rows()
	if err != nil {
		return nil, fmt.Errorf("%w: list schemas: %w", ErrConnectivity, err)
	}
	return scanNames(rows)
}

func (s *postgresServer) Close() error {
	return closeGorm(s.admin)
}

func quotePostgres(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

func withSearchPath(dsn, schema string) (string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse postgres dsn: %w", err)
		}
		q := u.Query()
		q.Set("search_path", schema)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}
	return dsn + " search_path=" + schema, nil
}

func buildPostgresDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("postgres configuration requires user and database name")
	}

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	params := []string{
		fmt.Sprintf("host=%s", host),
		fmt.Sprintf("port=%d", port),
		fmt.Sprintf("user=%s", cfg.User),
		fmt.Sprintf("dbname=%s", cfg.Name),
	}

	if cfg.Password != "" {
		params = append(params, fmt.Sprintf("password=%s", cfg.Password))
	}

	options := map[string]string{}
	for key, value := range cfg.Options {
		if key == "search_path" {
			continue
		}
		options[key] = value
	}

	if _, ok := options["sslmode"]; !ok {
		options["sslmode"] = "disable"
	}

	keys := make([]string, 0, len(options))
	for key := range options {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		params = append(params, fmt.Sprintf("%s=%s", key, options[key]))
	}

	return strings.Join(params, " "), nil
}

func scanNames(rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
