package store

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Seedable lists the reference tables Seed knows how to load, keyed by the
// CSV file name (without extension) expected in the fixture directory.
var Seedable = map[string][]string{
	"instruments":             {"code", "name"},
	"trading_calendar":        {"cal_date", "is_open"},
	"watchlist":               {"stock_code", "is_active"},
	"stock_ticks":             {"code", "name", "trade_date", "trade_time", "price", "open", "high", "low", "pre_close", "volume", "amount"},
	"stock_bars_5min":         {"code", "trade_date", "trade_time", "open", "high", "low", "close", "volume"},
	"stock_bars_daily":        {"code", "trade_date", "open", "high", "low", "close", "pre_close", "volume"},
	"stock_intraday_momentum": {"code", "trade_date", "trade_time", "main_action"},
	"stock_theme_rank":        {"stock_code", "trade_date", "all_themes"},
}

// SeedResult counts the rows loaded per table.
type SeedResult map[string]int

// SeedDir loads every <table>.csv file found in dir. Files for unknown
// tables are ignored. Each file must start with a header naming the
// table's columns (any order).
func SeedDir(ctx context.Context, db *sql.DB, dir string) (SeedResult, error) {
	res := SeedResult{}
	for table := range Seedable {
		path := filepath.Join(dir, table+".csv")
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return res, err
		}
		n, err := SeedTable(ctx, db, table, f)
		_ = f.Close()
		if err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}
		res[table] = n
	}
	return res, nil
}

// SeedTable inserts (or replaces) the CSV rows of r into table inside one
// transaction.
func SeedTable(ctx context.Context, db *sql.DB, table string, r io.Reader) (int, error) {
	allowed, ok := Seedable[table]
	if !ok {
		return 0, fmt.Errorf("table %q is not seedable", table)
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	for i, col := range header {
		header[i] = strings.TrimSpace(col)
		if !contains(allowed, header[i]) {
			return 0, fmt.Errorf("unknown column %q for %s", header[i], table)
		}
	}

	q := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		table, strings.Join(header, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(header)), ", "))

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, fmt.Errorf("line %d: %w", n+2, err)
		}
		args := make([]any, len(rec))
		for i, v := range rec {
			args[i] = strings.TrimSpace(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return n, fmt.Errorf("line %d: %w", n+2, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return n, err
	}
	return n, nil
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
