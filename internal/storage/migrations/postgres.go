// Package migrations applies the embedded schema to live databases.
package migrations

import (
	"context"
	"fmt"

	"churn-horizon-lab/internal/storage/postgres"
	"churn-horizon-lab/internal/storage/schema"
)

// RunPostgresMigrations applies the forecast_runs schema in file order.
// Every statement uses IF NOT EXISTS, so reruns are harmless.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	migrations, err := schema.Postgres()
	if err != nil {
		return err
	}

	for _, m := range migrations {
		for _, stmt := range m.Statements {
			if _, err := pool.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", m.Name, err)
			}
		}
	}
	return nil
}
