package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesReferenceTables(t *testing.T) {
	t.Parallel()

	db, err := Open(filepath.Join(t.TempDir(), "ref.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for table := range Seedable {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestSeedTable(t *testing.T) {
	t.Parallel()

	db, err := Open(filepath.Join(t.TempDir(), "ref.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	csv := "cal_date,is_open\n2025-03-03,1\n2025-03-04,1\n2025-03-08,0\n"
	n, err := SeedTable(context.Background(), db, "trading_calendar", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var open int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM trading_calendar WHERE is_open = 1`).Scan(&open))
	assert.Equal(t, 2, open)

	// Replaying the same file replaces rows instead of duplicating them.
	_, err = SeedTable(context.Background(), db, "trading_calendar", strings.NewReader(csv))
	require.NoError(t, err)
	var total int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM trading_calendar`).Scan(&total))
	assert.Equal(t, 3, total)
}

func TestSeedTableRejectsUnknownInput(t *testing.T) {
	t.Parallel()

	db, err := Open(filepath.Join(t.TempDir(), "ref.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = SeedTable(context.Background(), db, "positions", strings.NewReader("a\n1\n"))
	assert.Error(t, err)

	_, err = SeedTable(context.Background(), db, "watchlist", strings.NewReader("stock_code,evil\n1,2\n"))
	assert.ErrorContains(t, err, "unknown column")
}

func TestSeedDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "watchlist.csv"),
		[]byte("stock_code,is_active\n600001,1\n600002,0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "instruments.csv"),
		[]byte("code,name\n600001,Alpha\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.csv"), []byte("x\n"), 0o644))

	db, err := Open(filepath.Join(t.TempDir(), "ref.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	res, err := SeedDir(context.Background(), db, dir)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{"watchlist": 2, "instruments": 1}, res)
}
