package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/alimtalk/internal/config"
)

func TestStatements_CoverAllTables(t *testing.T) {
	stmts, err := Statements()
	require.NoError(t, err)
	joined := strings.Join(stmts, "\n")
	for _, table := range []string{"template_requests", "generated_templates", "token_usage_stats", "embedding_cache", "policy_chunks"} {
		require.Contains(t, joined, "CREATE TABLE IF NOT EXISTS "+table)
	}
	for _, q := range stmts {
		require.NotEmpty(t, q)
		require.NotContains(t, q, ";")
	}
}

func TestDSN(t *testing.T) {
	require.Equal(t, "postgres://u@h/db", DSN(config.DatabaseConfig{DSN: "postgres://u@h/db"}))
	require.Equal(t,
		"host=localhost port=5432 user=app password=secret dbname=alimtalk sslmode=disable",
		DSN(config.DatabaseConfig{Host: "localhost", User: "app", Password: "secret", DBName: "alimtalk"}),
	)
}
