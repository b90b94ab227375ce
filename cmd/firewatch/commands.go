package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/firewatch/internal/config"
	"github.com/banshee-data/firewatch/internal/db"
	"github.com/banshee-data/firewatch/internal/history"
	"github.com/banshee-data/firewatch/internal/security"
)

// outputPath sanitises the file name of path and checks the result stays
// under the working or temp directory.
func outputPath(path string) (string, error) {
	clean := filepath.Join(filepath.Dir(path), security.SanitizeFilename(filepath.Base(path)))
	if err := security.ValidateOutputPath(clean); err != nil {
		return "", err
	}
	return clean, nil
}

// runMigrate handles `firewatch migrate [-db path] <action>`.
func runMigrate(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db", config.DefaultDBPath, "SQLite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return db.RunMigrateCommand(fs.Args(), *dbPath, stdout)
}

// runExport handles `firewatch export`: the stored readings as CSV, in the
// same format as the dashboard download.
func runExport(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db", config.DefaultDBPath, "SQLite database path")
	out := fs.String("o", "", "Output file, or - for stdout (default fire_detection_data_<epoch-ms>.csv)")
	limit := fs.Int("limit", 0, "Export only the newest N readings (0 for all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	records, err := database.LoadRecords(*limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(stderr, "No records to export")
		return nil
	}

	if *out == "-" {
		return history.WriteCSV(stdout, records)
	}
	path := *out
	if path == "" {
		path = history.ExportFilename(time.Now())
	}
	if path, err = outputPath(path); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := history.WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Exported %d readings to %s\n", len(records), path)
	return nil
}

// runBackup handles `firewatch backup`: a consistent copy of the database.
func runBackup(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db", config.DefaultDBPath, "SQLite database path")
	out := fs.String("o", "", "Backup file (default firewatch-backup-<unix>.db)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = db.BackupFilename(time.Now())
	}
	path, err := outputPath(path)
	if err != nil {
		return err
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Backup(path); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Backed up %s to %s\n", database.Path(), path)
	return nil
}
