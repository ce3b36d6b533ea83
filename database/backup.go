package database

import (
	"archive/zip"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/icodeforyou/malar-go/hours"
)

const (
	backupTimeLayout    = "20060102_150405"
	backupSuffix        = "_malar.db.zip"
	backupDatabaseEntry = "malar.db"
	backupManifestEntry = "manifest.json"
)

// BackupManifest is stored in every backup archive beside the database copy.
type BackupManifest struct {
	CreatedAt      time.Time  `json:"createdAt"`
	SchemaVersion  int        `json:"schemaVersion"`
	PriceIntervals int        `json:"priceIntervals"`
	Outages        int        `json:"outages"`
	OutageRuns     int        `json:"outageRuns"`
	LastOutageRun  *time.Time `json:"lastOutageRun,omitempty"`
}

type backupFile struct {
	path    string
	takenAt time.Time
}

func (d *Database) backupDir() string {
	return filepath.Join(filepath.Dir(d.path), "backups")
}

// Backup snapshots the database with VACUUM INTO and zips the snapshot
// together with a manifest of what it holds.
func (d *Database) Backup(ctx context.Context) (BackupManifest, error) {
	manifest, err := d.backupManifest(ctx, time.Now())
	if err != nil {
		return BackupManifest{}, err
	}

	dir := d.backupDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return BackupManifest{}, fmt.Errorf("create backup directory: %w", err)
	}

	name := manifest.CreatedAt.Format(backupTimeLayout) + backupSuffix
	snapshot := filepath.Join(dir, strings.TrimSuffix(name, ".zip"))
	if _, err := d.write.ExecContext(ctx, "VACUUM INTO ?", snapshot); err != nil {
		return BackupManifest{}, fmt.Errorf("snapshot database into %s: %w", snapshot, err)
	}
	defer func() {
		if err := os.Remove(snapshot); err != nil {
			d.logger.Warn("could not remove uncompressed snapshot", slog.String("path", snapshot), slog.Any("error", err))
		}
	}()

	archive := filepath.Join(dir, name)
	if err := writeBackupArchive(archive, snapshot, manifest); err != nil {
		_ = os.Remove(archive)
		return BackupManifest{}, err
	}

	d.logger.Info("database backup complete",
		slog.String("filename", archive),
		slog.Int("price_intervals", manifest.PriceIntervals),
		slog.Int("outages", manifest.Outages),
		slog.Int("outage_runs", manifest.OutageRuns))
	return manifest, nil
}

func (d *Database) backupManifest(ctx context.Context, now time.Time) (BackupManifest, error) {
	version, err := d.Version(ctx)
	if err != nil {
		return BackupManifest{}, err
	}
	m := BackupManifest{CreatedAt: now.In(hours.Stockholm()), SchemaVersion: version}

	var lastRun sql.NullInt64
	err = d.read.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM price_interval),
			(SELECT COUNT(*) FROM outage),
			(SELECT COUNT(*) FROM outage_run),
			(SELECT MAX(taken_at) FROM outage_run)`).
		Scan(&m.PriceIntervals, &m.Outages, &m.OutageRuns, &lastRun)
	if err != nil {
		return BackupManifest{}, fmt.Errorf("counting rows for backup manifest: %w", err)
	}
	if lastRun.Valid {
		t := time.Unix(lastRun.Int64, 0).In(hours.Stockholm())
		m.LastOutageRun = &t
	}
	return m, nil
}

func writeBackupArchive(archive, snapshot string, manifest BackupManifest) error {
	out, err := os.Create(archive)
	if err != nil {
		return fmt.Errorf("create backup archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	db, err := os.Open(snapshot)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer db.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     backupDatabaseEntry,
		Method:   zip.Deflate,
		Modified: manifest.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("add %s to archive: %w", backupDatabaseEntry, err)
	}
	if _, err := io.Copy(w, db); err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}

	w, err = zw.Create(backupManifestEntry)
	if err != nil {
		return fmt.Errorf("add %s to archive: %w", backupManifestEntry, err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(manifest); err != nil {
		return fmt.Errorf("write backup manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize backup archive: %w", err)
	}
	return out.Close()
}

// ReadBackupManifest returns the manifest stored in a backup archive.
func ReadBackupManifest(archive string) (BackupManifest, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return BackupManifest{}, fmt.Errorf("open backup archive: %w", err)
	}
	defer zr.Close()

	f, err := zr.Open(backupManifestEntry)
	if err != nil {
		return BackupManifest{}, fmt.Errorf("%s in %s: %w", backupManifestEntry, archive, err)
	}
	defer f.Close()

	var m BackupManifest
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return BackupManifest{}, fmt.Errorf("decode backup manifest: %w", err)
	}
	return m, nil
}

// listBackups returns the backup archives in dir, newest first.
func listBackups(dir string) ([]backupFile, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var backups []backupFile
	for _, e := range entries {
		stamp, ok := strings.CutSuffix(e.Name(), backupSuffix)
		if e.IsDir() || !ok {
			continue
		}
		t, err := time.ParseInLocation(backupTimeLayout, stamp, hours.Stockholm())
		if err != nil {
			continue
		}
		backups = append(backups, backupFile{path: filepath.Join(dir, e.Name()), takenAt: t})
	}

	slices.SortFunc(backups, func(a, b backupFile) int { return b.takenAt.Compare(a.takenAt) })
	return backups, nil
}

// PurgeBackups deletes archives older than retentionDays. The newest archive
// is always kept, however old.
func (d *Database) PurgeBackups(ctx context.Context, retentionDays int) error {
	if retentionDays < 1 {
		return nil
	}

	backups, err := listBackups(d.backupDir())
	if err != nil {
		return err
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for i, b := range backups {
		if i == 0 || !b.takenAt.Before(cutoff) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.Remove(b.path); err != nil {
			return fmt.Errorf("remove old backup %s: %w", b.path, err)
		}
		removed++
	}

	d.logger.Info("backup purge complete", slog.Int("removed", removed), slog.Int("kept", len(backups)-removed))
	return nil
}
