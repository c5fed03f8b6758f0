package system

import (
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/trendlit/internal/backup"
	"github.com/julianstephens/trendlit/internal/cli"
	"github.com/julianstephens/trendlit/internal/llm"
)

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Println("Running diagnostics...")
	ctx.Println()

	hasError := false
	report := func(name string, err error) {
		if err != nil {
			ctx.Printf("❌ %s: FAIL\n", name)
			ctx.Printf("   Error: %v\n", err)
			hasError = true
			return
		}
		ctx.Printf("✓ %s: OK\n", name)
	}
	skip := func(name, why string) {
		ctx.Printf("⊘ %s: SKIPPED (%s)\n", name, why)
	}

	// Check 1: storage reachable
	dbErr := checkStorageReachable(ctx)
	report("Storage reachable", dbErr)

	// Checks 2-3 need a reachable database
	if dbErr == nil {
		pending, err := pendingMigrations(ctx)
		report("Schema version", err)
		if err == nil {
			report("Migrations complete", checkMigrationsComplete(pending))
		} else {
			skip("Migrations complete", "schema version unknown")
		}
	} else {
		skip("Schema version", "storage not reachable")
		skip("Migrations complete", "storage not reachable")
	}

	// Check 4: backups present (warning only)
	if ctx.IsSQLite() {
		if err := checkBackupsPresent(ctx); err != nil {
			ctx.Printf("⚠ Backups present: WARNING\n")
			ctx.Printf("   %v\n", err)
		} else {
			ctx.Printf("✓ Backups present: OK\n")
		}
	} else {
		skip("Backups present", "backups are only managed for SQLite")
	}

	// Check 5: detector thresholds
	report("Detector thresholds", ctx.Thresholds.Validate())

	// Check 6: LLM configuration; a missing key only blocks `propose`
	if err := checkLLMConfig(ctx); errors.Is(err, llm.ErrAPIKeyRequired) {
		ctx.Printf("⚠ LLM configuration: WARNING\n")
		ctx.Printf("   %v (goal proposals cannot be generated)\n", err)
	} else {
		report("LLM configuration", err)
	}

	// Check 7: clock sanity
	report("Clock", checkClock(ctx.Clock()()))

	ctx.Println()
	if hasError {
		return fmt.Errorf("one or more health checks failed")
	}
	ctx.Println("All checks passed.")
	return nil
}

func checkStorageReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(ctx.Background()); err != nil {
		return fmt.Errorf("failed to load storage: %w", err)
	}
	if _, err := ctx.Store.Stats(ctx.Background()); err != nil {
		return fmt.Errorf("failed to query storage: %w", err)
	}
	return nil
}

func pendingMigrations(ctx *cli.Context) (int, error) {
	m, ok := ctx.Store.(migrator)
	if !ok {
		return 0, nil
	}
	pending, err := m.PendingMigrations(ctx.Background())
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

func checkMigrationsComplete(pending int) error {
	if pending > 0 {
		return fmt.Errorf("%d migration(s) pending, run 'trendlit migrate'", pending)
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	backups, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with 'trendlit backup create'")
	}
	return nil
}

func checkLLMConfig(ctx *cli.Context) error {
	_, err := ctx.Generator()
	return err
}

func checkClock(now time.Time) error {
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	return nil
}
