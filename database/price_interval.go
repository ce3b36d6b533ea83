package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/icodeforyou/malar-go/hours"
	"github.com/icodeforyou/malar-go/types"
)

// SavePriceIntervals upserts the intervals for a sector. Source names the
// provider the prices came from.
func (d *Database) SavePriceIntervals(ctx context.Context, sector types.Sector, source string, intervals []types.PriceInterval) error {
	tx, err := d.write.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("start transaction for price intervals: %w", err)
	}
	defer tx.Rollback()

	for _, p := range intervals {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO price_interval (sector, starts_at, ends_at, price, source) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(sector, starts_at) DO UPDATE SET
				ends_at = excluded.ends_at,
				price = excluded.price,
				source = excluded.source`,
			sector.String(),
			p.Start.Unix(),
			p.End.Unix(),
			p.Price,
			source)
		if err != nil {
			return fmt.Errorf("saving price interval %s: %w", p.Start.Format(time.RFC3339), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit price intervals: %w", err)
	}
	return nil
}

// GetPriceIntervals returns the stored intervals for a sector starting within
// [from, to], ordered by start.
func (d *Database) GetPriceIntervals(ctx context.Context, sector types.Sector, from, to time.Time) ([]types.PriceInterval, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT starts_at, ends_at, price
		FROM price_interval
		WHERE sector = ? AND starts_at >= ? AND starts_at <= ?
		ORDER BY starts_at ASC`,
		sector.String(), from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("fetching price intervals: %w", err)
	}
	defer rows.Close()

	intervals := []types.PriceInterval{}
	for rows.Next() {
		p, err := scanPriceInterval(rows)
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading price interval rows: %w", err)
	}

	return intervals, nil
}

// GetPriceIntervalAt returns the stored interval for a sector that contains t.
// The boolean is false when no such interval is stored.
func (d *Database) GetPriceIntervalAt(ctx context.Context, sector types.Sector, t time.Time) (types.PriceInterval, bool, error) {
	row := d.read.QueryRowContext(ctx, `
		SELECT starts_at, ends_at, price
		FROM price_interval
		WHERE sector = ? AND starts_at <= ? AND ends_at > ?
		ORDER BY starts_at DESC
		LIMIT 1`,
		sector.String(), t.Unix(), t.Unix())

	p, err := scanPriceInterval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.PriceInterval{}, false, nil
	}
	if err != nil {
		return types.PriceInterval{}, false, err
	}
	return p, true, nil
}

func (d *Database) PurgePriceIntervals(ctx context.Context, retentionDays int) error {
	return d.purgeTable(ctx, "price_interval", "ends_at", retentionDays, time.Now())
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPriceInterval(s scanner) (types.PriceInterval, error) {
	var start, end int64
	var p types.PriceInterval
	if err := s.Scan(&start, &end, &p.Price); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("scanning price interval row: %w", err)
	}
	p.Start = time.Unix(start, 0).In(hours.Stockholm())
	p.End = time.Unix(end, 0).In(hours.Stockholm())
	return p, nil
}
