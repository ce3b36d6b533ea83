package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// LogEntryRow is one persisted log record. Module is the value of the
// record's top level "module" attribute, empty when it has none.
type LogEntryRow struct {
	Timestamp time.Time
	Level     int
	Module    string
	Message   string
	Attrs     string
}

// LogQuery selects log rows at or above MinLevel. An empty Module matches
// every module.
type LogQuery struct {
	MinLevel slog.Level
	Module   string
}

func (q LogQuery) where() (string, []any) {
	clauses := []string{"level >= ?"}
	args := []any{int(q.MinLevel)}
	if q.Module != "" {
		clauses = append(clauses, "module = ?")
		args = append(args, q.Module)
	}
	return strings.Join(clauses, " AND "), args
}

func (d *Database) SaveLogEntry(ctx context.Context, r LogEntryRow) error {
	_, err := d.write.ExecContext(ctx,
		`INSERT INTO log (logged_at, level, module, message, attrs) VALUES (?, ?, ?, ?, ?)`,
		r.Timestamp.UnixMilli(), r.Level, r.Module, r.Message, r.Attrs)
	if err != nil {
		return fmt.Errorf("saving log entry: %w", err)
	}
	return nil
}

// GetLogEntries returns one page of matching rows, newest first.
func (d *Database) GetLogEntries(ctx context.Context, q LogQuery, page, pageSize int) ([]LogEntryRow, error) {
	page = max(page, 1)
	if pageSize < 1 {
		pageSize = 10
	}

	where, args := q.where()
	rows, err := d.read.QueryContext(ctx,
		`SELECT logged_at, level, module, message, attrs FROM log WHERE `+where+` ORDER BY id DESC LIMIT ? OFFSET ?`,
		append(args, pageSize, (page-1)*pageSize)...)
	if err != nil {
		return nil, fmt.Errorf("fetching log entries: %w", err)
	}
	defer rows.Close()

	entries := []LogEntryRow{}
	for rows.Next() {
		var r LogEntryRow
		var ms int64
		if err := rows.Scan(&ms, &r.Level, &r.Module, &r.Message, &r.Attrs); err != nil {
			return nil, fmt.Errorf("scanning log row: %w", err)
		}
		r.Timestamp = time.UnixMilli(ms).UTC()
		entries = append(entries, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading log rows: %w", err)
	}
	return entries, nil
}

// LogModules lists the modules that have logged anything, sorted.
func (d *Database) LogModules(ctx context.Context) ([]string, error) {
	rows, err := d.read.QueryContext(ctx, `SELECT DISTINCT module FROM log WHERE module != '' ORDER BY module`)
	if err != nil {
		return nil, fmt.Errorf("fetching log modules: %w", err)
	}
	defer rows.Close()

	modules := []string{}
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scanning log module: %w", err)
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

// PurgeLog keeps the newest keep entries. keep < 1 leaves the log alone.
func (d *Database) PurgeLog(ctx context.Context, keep int) error {
	if keep < 1 {
		return nil
	}
	res, err := d.write.ExecContext(ctx,
		`DELETE FROM log WHERE id NOT IN (SELECT id FROM log ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return fmt.Errorf("purging log: %w", err)
	}
	n, _ := res.RowsAffected()
	d.logger.Debug("log purged", slog.Int64("removed", n), slog.Int("kept", keep))
	return nil
}
