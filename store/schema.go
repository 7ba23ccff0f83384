package store

// Schema holds the reference tables. They are filled by the upstream
// collectors; the engine only reads them.
const Schema = `
CREATE TABLE IF NOT EXISTS instruments (
	code TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS trading_calendar (
	cal_date TEXT PRIMARY KEY,
	is_open INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS watchlist (
	stock_code TEXT PRIMARY KEY,
	is_active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS stock_ticks (
	code TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	trade_date TEXT NOT NULL,
	trade_time TEXT NOT NULL,
	price TEXT NOT NULL,
	open TEXT NOT NULL,
	high TEXT NOT NULL,
	low TEXT NOT NULL,
	pre_close TEXT NOT NULL,
	volume INTEGER NOT NULL,
	amount TEXT NOT NULL DEFAULT '0',
	PRIMARY KEY (code, trade_date, trade_time)
);

CREATE TABLE IF NOT EXISTS stock_bars_5min (
	code TEXT NOT NULL,
	trade_date TEXT NOT NULL,
	trade_time TEXT NOT NULL,
	open TEXT NOT NULL,
	high TEXT NOT NULL,
	low TEXT NOT NULL,
	close TEXT NOT NULL,
	volume INTEGER NOT NULL,
	PRIMARY KEY (code, trade_date, trade_time)
);

CREATE TABLE IF NOT EXISTS stock_bars_daily (
	code TEXT NOT NULL,
	trade_date TEXT NOT NULL,
	open TEXT NOT NULL,
	high TEXT NOT NULL,
	low TEXT NOT NULL,
	close TEXT NOT NULL,
	pre_close TEXT NOT NULL,
	volume INTEGER NOT NULL,
	PRIMARY KEY (code, trade_date)
);

CREATE TABLE IF NOT EXISTS stock_intraday_momentum (
	code TEXT NOT NULL,
	trade_date TEXT NOT NULL,
	trade_time TEXT NOT NULL,
	main_action TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_momentum_code_date ON stock_intraday_momentum(code, trade_date);

CREATE TABLE IF NOT EXISTS stock_theme_rank (
	stock_code TEXT NOT NULL,
	trade_date TEXT NOT NULL,
	all_themes TEXT NOT NULL,
	PRIMARY KEY (stock_code, trade_date)
);
`
