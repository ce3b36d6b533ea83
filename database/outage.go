package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/icodeforyou/malar-go/hours"
	"github.com/icodeforyou/malar-go/types"
)

// SaveOutages records one scrape of the outage page taken at now. Outages seen
// before are updated in place, the ones never seen before are returned.
// Entries on one page that share a key are stored apart, numbered in page
// order, so every scraped entry has its own row.
func (d *Database) SaveOutages(ctx context.Context, outages []types.OutageRecord, now time.Time) ([]types.OutageRecord, error) {
	tx, err := d.write.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("start transaction for outages: %w", err)
	}
	defer tx.Rollback()

	var added []types.OutageRecord
	occurrences := make(map[string]int, len(outages))
	for _, o := range outages {
		key := o.Key()
		occurrences[key]++
		if n := occurrences[key]; n > 1 {
			key = fmt.Sprintf("%s#%d", key, n)
		}

		var id int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM outage WHERE outage_key = ?`, key).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			added = append(added, o)
		case err != nil:
			return nil, fmt.Errorf("looking up outage %q: %w", key, err)
		}

		locations, err := json.Marshal(o.Locations)
		if err != nil {
			return nil, fmt.Errorf("encoding locations of outage %q: %w", key, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO outage (outage_key, locations, service, status, starts_at, ends_at, affected_customers, first_seen, last_seen)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(outage_key) DO UPDATE SET
				status = excluded.status,
				ends_at = excluded.ends_at,
				affected_customers = excluded.affected_customers,
				last_seen = excluded.last_seen`,
			key,
			string(locations),
			o.Service.String(),
			o.Status.String(),
			o.Start.Unix(),
			o.End.Unix(),
			o.AffectedCustomers,
			now.Unix(),
			now.Unix())
		if err != nil {
			return nil, fmt.Errorf("saving outage %q: %w", key, err)
		}
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO outage_run (taken_at, outages) VALUES (?, ?)`, now.Unix(), len(outages))
	if err != nil {
		return nil, fmt.Errorf("saving outage run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit outages: %w", err)
	}

	d.logger.Debug("outages saved", slog.Int("total", len(outages)), slog.Int("new", len(added)))
	return added, nil
}

// GetLatestOutages returns the outages seen in the most recent scrape and the
// time it was taken. A zero time means no scrape has been saved yet.
func (d *Database) GetLatestOutages(ctx context.Context) ([]types.OutageRecord, time.Time, error) {
	var takenAt sql.NullInt64
	err := d.read.QueryRowContext(ctx, `SELECT MAX(taken_at) FROM outage_run`).Scan(&takenAt)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("fetching latest outage run: %w", err)
	}
	if !takenAt.Valid {
		return []types.OutageRecord{}, time.Time{}, nil
	}

	outages, err := d.queryOutages(ctx, `
		SELECT locations, service, status, starts_at, ends_at, affected_customers
		FROM outage
		WHERE last_seen = ?
		ORDER BY starts_at ASC, id ASC`, takenAt.Int64)
	if err != nil {
		return nil, time.Time{}, err
	}

	return outages, time.Unix(takenAt.Int64, 0).In(hours.Stockholm()), nil
}

// GetOutagesBetween returns every outage that started within [from, to].
func (d *Database) GetOutagesBetween(ctx context.Context, from, to time.Time) ([]types.OutageRecord, error) {
	return d.queryOutages(ctx, `
		SELECT locations, service, status, starts_at, ends_at, affected_customers
		FROM outage
		WHERE starts_at >= ? AND starts_at <= ?
		ORDER BY starts_at ASC, id ASC`, from.Unix(), to.Unix())
}

func (d *Database) PurgeOutages(ctx context.Context, retentionDays int) error {
	if err := d.purgeTable(ctx, "outage", "last_seen", retentionDays, time.Now()); err != nil {
		return err
	}
	return d.purgeTable(ctx, "outage_run", "taken_at", retentionDays, time.Now())
}

func (d *Database) queryOutages(ctx context.Context, query string, args ...any) ([]types.OutageRecord, error) {
	rows, err := d.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching outages: %w", err)
	}
	defer rows.Close()

	outages := []types.OutageRecord{}
	for rows.Next() {
		var o types.OutageRecord
		var locations, service, status string
		var start, end int64
		err := rows.Scan(&locations, &service, &status, &start, &end, &o.AffectedCustomers)
		if err != nil {
			return nil, fmt.Errorf("scanning outage row: %w", err)
		}
		if err := json.Unmarshal([]byte(locations), &o.Locations); err != nil {
			return nil, fmt.Errorf("decoding outage locations: %w", err)
		}
		if err := o.Service.UnmarshalText([]byte(service)); err != nil {
			return nil, err
		}
		if err := o.Status.UnmarshalText([]byte(status)); err != nil {
			return nil, err
		}
		o.Start = time.Unix(start, 0).In(hours.Stockholm())
		o.End = time.Unix(end, 0).In(hours.Stockholm())
		outages = append(outages, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading outage rows: %w", err)
	}

	return outages, nil
}
