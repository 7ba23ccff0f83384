package pit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/rustyeddy/intraday/market"
)

// MomentumTags returns the momentum rows of code dated date. Only dates
// before the as-of date are visible.
func (v *View) MomentumTags(ctx context.Context, code, date string) ([]market.MomentumTag, error) {
	pred, args := v.visible(market.Daily)
	rows, cancel, err := v.query(ctx, `SELECT code, trade_date, trade_time, main_action
		FROM stock_intraday_momentum
		WHERE code = ? AND trade_date = ? AND `+pred+`
		ORDER BY trade_time ASC`, append([]any{code, date}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("momentum for %s on %s: %w", code, date, err)
	}
	defer cancel()
	defer rows.Close()

	var out []market.MomentumTag
	for rows.Next() {
		var m market.MomentumTag
		var action string
		if err := rows.Scan(&m.Code, &m.Date, &m.Time, &action); err != nil {
			return nil, fmt.Errorf("momentum for %s on %s: %w", code, date, err)
		}
		m.Action = market.MainAction(action)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("momentum for %s on %s: %w", code, date, err)
	}
	return out, nil
}

// Themes returns code's latest visible theme ranking.
func (v *View) Themes(ctx context.Context, code string) (market.Themes, error) {
	ctx, cancel := v.withTimeout(ctx)
	defer cancel()

	pred, args := v.visible(market.Daily)
	var raw string
	err := v.s.db.QueryRowContext(ctx, `SELECT all_themes FROM stock_theme_rank
		WHERE stock_code = ? AND `+pred+` ORDER BY trade_date DESC LIMIT 1`,
		append([]any{code}, args...)...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("themes for %s: %w", code, ErrNoData)
	}
	if err != nil {
		return nil, fmt.Errorf("themes for %s: %w", code, err)
	}
	themes := market.ParseThemes(raw)
	if len(themes) == 0 {
		return nil, fmt.Errorf("themes for %s: %w", code, ErrNoData)
	}
	return themes, nil
}

// ThemePeers returns, sorted, the codes other than exclude whose latest
// visible theme ranking lists theme.
func (v *View) ThemePeers(ctx context.Context, theme, exclude string) ([]string, error) {
	if theme == "" {
		return nil, nil
	}
	pred, args := v.visible(market.Daily)
	rows, cancel, err := v.query(ctx, `SELECT r.stock_code, r.all_themes
		FROM stock_theme_rank r
		JOIN (SELECT stock_code, MAX(trade_date) AS latest FROM stock_theme_rank
		      WHERE `+pred+` GROUP BY stock_code) m
		  ON r.stock_code = m.stock_code AND r.trade_date = m.latest
		WHERE r.stock_code <> ? AND r.all_themes LIKE ?`,
		append(args, exclude, "%"+theme+"%")...)
	if err != nil {
		return nil, fmt.Errorf("peers of %s: %w", theme, err)
	}
	defer cancel()
	defer rows.Close()

	var out []string
	for rows.Next() {
		var code, raw string
		if err := rows.Scan(&code, &raw); err != nil {
			return nil, fmt.Errorf("peers of %s: %w", theme, err)
		}
		if market.ParseThemes(raw).Has(theme) {
			out = append(out, code)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("peers of %s: %w", theme, err)
	}
	sort.Strings(out)
	return out, nil
}

// Watchlist returns the active watch-list codes in code order. Membership
// is current state, not history.
func (v *View) Watchlist(ctx context.Context) ([]string, error) {
	rows, cancel, err := v.query(ctx,
		`SELECT stock_code FROM watchlist WHERE is_active = 1 ORDER BY stock_code`)
	if err != nil {
		return nil, fmt.Errorf("watchlist: %w", err)
	}
	defer cancel()
	defer rows.Close()

	var out []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("watchlist: %w", err)
		}
		out = append(out, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("watchlist: %w", err)
	}
	return out, nil
}

func (v *View) InWatchlist(ctx context.Context, code string) (bool, error) {
	ctx, cancel := v.withTimeout(ctx)
	defer cancel()

	var n int
	err := v.s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM watchlist WHERE stock_code = ? AND is_active = 1`, code).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("watchlist %s: %w", code, err)
	}
	return n > 0, nil
}

// InstrumentName looks code up in instruments, falling back to the name
// carried by its most recent visible tick.
func (v *View) InstrumentName(ctx context.Context, code string) (string, error) {
	qctx, cancel := v.withTimeout(ctx)
	defer cancel()

	var name string
	err := v.s.db.QueryRowContext(qctx, `SELECT name FROM instruments WHERE code = ?`, code).Scan(&name)
	if err == nil && name != "" {
		return name, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("instrument %s: %w", code, err)
	}
	bars, err := v.BarsBefore(ctx, code, market.Tick, 1)
	if err != nil {
		return "", err
	}
	if bars[0].Name == "" {
		return "", fmt.Errorf("instrument %s: %w", code, ErrNoData)
	}
	return bars[0].Name, nil
}
