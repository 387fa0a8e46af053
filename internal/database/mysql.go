package database

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// mysqlServer maps every schema to a mysql database.
type mysqlServer struct {
	admin *gorm.DB
	cfg   Config
}

func newMySQLServer(cfg Config) (*mysqlServer, error) {
	dsn, err := buildMySQLDSN(cfg, "")
	if err != nil {
		return nil, err
	}
	admin, err := openAdmin(mysql.Open(dsn), "mysql admin")
	if err != nil {
		return nil, err
	}
	return &mysqlServer{admin: admin, cfg: cfg}, nil
}

func (s *mysqlServer) Dialect() string { return "mysql" }

func (s *mysqlServer) OpenSchema(ctx context.Context, schema string, opts PoolOptions) (*gorm.DB, error) {
	if err := ValidateSchemaName(schema); err != nil {
		return nil, err
	}

	names, err := s.ListSchemas(ctx, schema)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(names, schema) {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, schema)
	}

	dsn, err := buildMySQLDSN(s.cfg, schema)
	if err != nil {
		return nil, err
	}
	return openPool(ctx, mysql.Open(dsn), schema, opts)
}

func (s *mysqlServer) CreateSchema(ctx context.Context, schema string) error {
	if err := ValidateSchemaName(schema); err != nil {
		return err
	}
	stmt := "CREATE DATABASE IF NOT EXISTS " + quoteMySQL(schema) + " CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci"
	if err := s.admin.WithContext(ctx).Exec(stmt).Error; err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}
	return nil
}

func (s *mysqlServer) DropSchema(ctx context.Context, schema string) error {
	if err := ValidateSchemaName(schema); err != nil {
		return err
	}
	if err := s.admin.WithContext(ctx).Exec("DROP DATABASE IF EXISTS " + quoteMySQL(schema)).Error; err != nil {
		return fmt.Errorf("drop schema %s: %w", schema, err)
	}
	return nil
}

func (s *mysqlServer) ListSchemas(ctx context.Context, like string) ([]string, error) {
	rows, err := s.admin.WithContext(ctx).Raw("SHOW DATABASES LIKE ?", like).Rows()
	if err != nil {
		return nil, fmt.Errorf("%w: list schemas: %w", ErrConnectivity, err)
	}
	return scanNames(rows)
}

func (s *mysqlServer) Close() error {
	return closeGorm(s.admin)
}

func quoteMySQL(identifier string) string {
	return "`" + strings.ReplaceAll(identifier, "`", "``") + "`"
}

// buildMySQLDSN renders the server DSN pointed at database, or at no database
// when database is empty.
func buildMySQLDSN(cfg Config, database string) (string, error) {
	if cfg.DSN != "" {
		parsed, err := mysqldriver.ParseDSN(cfg.DSN)
		if err != nil {
			return "", fmt.Errorf("parse mysql dsn: %w", err)
		}
		parsed.DBName = database
		return parsed.FormatDSN(), nil
	}

	if cfg.User == "" {
		return "", fmt.Errorf("mysql configuration requires user")
	}

	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}

	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	mc := mysqldriver.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = host + ":" + strconv.Itoa(port)
	mc.DBName = database
	mc.ParseTime = true
	mc.Loc = time.Local
	mc.Params = map[string]string{"charset": "utf8mb4"}
	for key, value := range cfg.Options {
		mc.Params[key] = value
	}

	return mc.FormatDSN(), nil
}
