package system

import (
	"context"
	"fmt"

	"github.com/julianstephens/trendlit/internal/cli"
	"github.com/julianstephens/trendlit/internal/migration"
)

// migrator is implemented by both storage backends.
type migrator interface {
	PendingMigrations(ctx context.Context) ([]migration.Migration, error)
}

type MigrateCmd struct {
	DryRun bool `help:"List pending migrations without applying them."`
}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	m, ok := ctx.Store.(migrator)
	if !ok {
		return fmt.Errorf("storage backend does not support migrations")
	}

	pending, err := m.PendingMigrations(ctx.Background())
	if err != nil {
		return fmt.Errorf("failed to read migration state: %w", err)
	}
	if len(pending) == 0 {
		ctx.Println("No migrations to apply. Database is up to date.")
		return nil
	}

	for _, mig := range pending {
		ctx.Printf("  %03d %s\n", mig.Version, mig.Name)
	}
	if c.DryRun {
		ctx.Printf("\n%d migration(s) pending.\n", len(pending))
		return nil
	}

	// Snapshot before touching the schema
	ctx.PerformAutomaticBackup()

	if err := ctx.Store.Init(ctx.Background()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	ctx.Printf("\nSuccessfully applied %d migration(s).\n", len(pending))
	return nil
}
