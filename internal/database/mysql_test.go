package database

import (
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "salonhub", Password: "secret", Host: "db", Port: 3307}, "tenant_a")
	require.NoError(t, err)

	parsed, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "salonhub", parsed.User)
	require.Equal(t, "secret", parsed.Passwd)
	require.Equal(t, "db:3307", parsed.Addr)
	require.Equal(t, "tenant_a", parsed.DBName)
	require.True(t, parsed.ParseTime)
}

func TestBuildMySQLDSNOverrideSwapsDatabase(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{DSN: "root:pw@tcp(127.0.0.1:3306)/central?parseTime=true"}, "tenant_b")
	require.NoError(t, err)

	parsed, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "tenant_b", parsed.DBName)
	require.Equal(t, "root", parsed.User)
}

func TestBuildMySQLDSNRequiresUser(t *testing.T) {
	_, err := buildMySQLDSN(Config{}, "")
	require.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	require.False(t, IsUniqueViolation(nil))
	require.True(t, IsUniqueViolation(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	require.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: staff.email")))
	require.False(t, IsUniqueViolation(errors.New("connection refused")))
}

func TestQuoteMySQL(t *testing.T) {
	require.Equal(t, "`tenant_a`", quoteMySQL("tenant_a"))
}
