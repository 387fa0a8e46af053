package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const sqliteExt = ".db"

// sqliteServer maps every schema to its own database file in one directory.
type sqliteServer struct {
	dir string
}

func newSQLiteServer(cfg Config) (*sqliteServer, error) {
	dir := strings.TrimSpace(cfg.Path)
	if dir == "" {
		dir = filepath.Join("data", "schemas")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create sqlite directory: %w", ErrConnectivity, err)
	}
	return &sqliteServer{dir: dir}, nil
}

func (s *sqliteServer) Dialect() string { return "sqlite" }

func (s *sqliteServer) path(schema string) string {
	return filepath.Join(s.dir, schema+sqliteExt)
}

func (s *sqliteServer) OpenSchema(ctx context.Context, schema string, opts PoolOptions) (*gorm.DB, error) {
	if err := ValidateSchemaName(schema); err != nil {
		return nil, err
	}

	path := s.path(schema)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, schema)
		}
		return nil, fmt.Errorf("%w: stat %s: %w", ErrConnectivity, schema, err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000", filepath.ToSlash(path))
	return openPool(ctx, sqlite.Open(dsn), schema, opts)
}

func (s *sqliteServer) CreateSchema(_ context.Context, schema string) error {
	if err := ValidateSchemaName(schema); err != nil {
		return err
	}
	file, err := os.OpenFile(s.path(schema), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}
	return file.Close()
}

func (s *sqliteServer) DropSchema(_ context.Context, schema string) error {
	if err := ValidateSchemaName(schema); err != nil {
		return err
	}
	base := s.path(schema)
	for _, path := range []string{base, base + "-wal", base + "-shm"} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("drop schema %s: %w", schema, err)
		}
	}
	return nil
}

func (s *sqliteServer) ListSchemas(_ context.Context, like string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list schemas: %w", ErrConnectivity, err)
	}

	match := likeMatcher(like)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), sqliteExt) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), sqliteExt)
		if match.MatchString(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *sqliteServer) Close() error { return nil }
