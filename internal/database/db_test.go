package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementsCoverEveryTable(t *testing.T) {
	stmts := Statements()
	require.Len(t, stmts, 6)

	for _, table := range []string{"accounts", "tenants", "event_instances", "ticket_types", "reservations", "audit_log"} {
		found := false
		for _, s := range stmts {
			if strings.Contains(s, "CREATE TABLE IF NOT EXISTS "+table+" ") {
				found = true
			}
		}
		assert.True(t, found, "missing table %s", table)
	}
	for _, s := range stmts {
		assert.False(t, strings.HasPrefix(s, "--"))
	}
}
