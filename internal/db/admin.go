package db

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/firewatch/internal/monitoring"
)

// AttachAdminRoutes mounts a live SQL console at /debug/tailsql/ and a
// gzipped backup download at /debug/backup. Both are behind tsweb's debug
// access checks.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+filepath.Base(db.path), db.DB, &tailsql.DBOptions{
		Label: "Detection history",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(db.serveBackup))
	return nil
}

// BackupFilename names a backup taken at t.
func BackupFilename(t time.Time) string {
	return fmt.Sprintf("firewatch-backup-%d.db", t.Unix())
}

// Backup writes a consistent copy of the database to path with VACUUM INTO.
func (db *DB) Backup(path string) error {
	if _, err := db.Exec("VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}
	return nil
}

func (db *DB) serveBackup(w http.ResponseWriter, r *http.Request) {
	name := BackupFilename(time.Now())
	dir, err := os.MkdirTemp("", "firewatch-backup-")
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			monitoring.Logf("Failed to remove backup file: %v", err)
		}
	}()

	backupPath := filepath.Join(dir, name)
	if err := db.Backup(backupPath); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	backupFile, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	defer backupFile.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Encoding", "gzip")

	gz := gzip.NewWriter(w)
	defer gz.Close()
	if _, err := io.Copy(gz, backupFile); err != nil {
		monitoring.Logf("Failed to stream backup: %v", err)
	}
}
