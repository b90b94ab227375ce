package db

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrUsage is returned for an unknown or incomplete migrate command.
var ErrUsage = errors.New("invalid migrate command")

// RunMigrateCommand runs `firewatch migrate <action>` against the database
// at dbPath and writes human readable output to out.
func RunMigrateCommand(args []string, dbPath string, out io.Writer) error {
	if len(args) < 1 {
		PrintMigrateHelp(out)
		return ErrUsage
	}
	action := args[0]
	if action == "help" {
		PrintMigrateHelp(out)
		return nil
	}

	database, err := OpenDB(dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	migrations := MigrationsFS()

	switch action {
	case "up":
		if err := database.MigrateUp(migrations); err != nil {
			return err
		}
		fmt.Fprintln(out, "✓ All migrations applied successfully")
		return printVersion(database, out)

	case "down":
		if err := database.MigrateDown(migrations); err != nil {
			return err
		}
		fmt.Fprintln(out, "✓ Migration rolled back successfully")
		return printVersion(database, out)

	case "status":
		version, dirty, err := database.MigrateVersion(migrations)
		if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}
		latest, err := LatestMigrationVersion(migrations)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "=== Migration Status ===")
		fmt.Fprintf(out, "Database: %s\n", database.Path())
		fmt.Fprintf(out, "Current version: %d\n", version)
		fmt.Fprintf(out, "Latest version: %d\n", latest)
		fmt.Fprintf(out, "Dirty: %v\n", dirty)
		if dirty {
			fmt.Fprintln(out, "\n⚠️  WARNING: a migration failed mid-execution.")
			fmt.Fprintln(out, "Inspect the database, then run: firewatch migrate force <version>")
		} else if version < latest {
			fmt.Fprintf(out, "%d migration(s) pending; run: firewatch migrate up\n", latest-version)
		}
		return nil

	case "version":
		if len(args) < 2 {
			return fmt.Errorf("%w: usage: firewatch migrate version <version_number>", ErrUsage)
		}
		v, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version number %q: %w", args[1], err)
		}
		if err := database.MigrateTo(migrations, uint(v)); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Migrated to version %d successfully\n", v)
		return nil

	case "force":
		if len(args) < 2 {
			return fmt.Errorf("%w: usage: firewatch migrate force <version_number>", ErrUsage)
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version number %q: %w", args[1], err)
		}
		if err := database.MigrateForce(migrations, v); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Migration version forced to %d\n", v)
		return nil

	default:
		fmt.Fprintf(out, "Unknown migrate action: %s\n\n", action)
		PrintMigrateHelp(out)
		return ErrUsage
	}
}

func printVersion(database *DB, out io.Writer) error {
	version, dirty, err := database.MigrateVersion(MigrationsFS())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Current version: %d (dirty: %v)\n", version, dirty)
	return nil
}

// PrintMigrateHelp writes the migrate subcommand usage.
func PrintMigrateHelp(out io.Writer) {
	fmt.Fprint(out, `Usage: firewatch migrate <action> [args]

Actions:
  up                 apply all pending migrations
  down               roll back the most recent migration
  status             show the current and latest schema versions
  version <n>        migrate up or down to version n
  force <n>          set the version without running migrations (recovery)
  help               show this help
`)
}
