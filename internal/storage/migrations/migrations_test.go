package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/churn")
	require.NoError(t, err)
	assert.Equal(t, "churn", db)

	db, err = databaseFromDSN("clickhouse://localhost:9000/churn-dev")
	require.NoError(t, err)
	assert.Equal(t, "churn-dev", db)

	for _, dsn := range []string{
		"clickhouse://localhost:9000",
		"clickhouse://localhost:9000/",
		"clickhouse://localhost:9000/a/b",
		"clickhouse://localhost:9000/a`b",
	} {
		_, err := databaseFromDSN(dsn)
		assert.Error(t, err, dsn)
	}
}
