package journal

const Schema = `
CREATE TABLE IF NOT EXISTS positions (
	strategy TEXT NOT NULL,
	stock_code TEXT NOT NULL,
	stock_name TEXT NOT NULL DEFAULT '',
	quantity INTEGER NOT NULL CHECK (quantity >= 0),
	avg_price TEXT NOT NULL,
	opened_date TEXT NOT NULL,
	last_buy_date TEXT NOT NULL,
	last_updated DATETIME NOT NULL,
	PRIMARY KEY (strategy, stock_code)
);

CREATE TABLE IF NOT EXISTS account_balances (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id TEXT NOT NULL,
	strategy TEXT NOT NULL,
	cash_after TEXT NOT NULL,
	reason TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_balances_account ON account_balances(account_id, strategy, id);

CREATE TABLE IF NOT EXISTS delivery_orders (
	order_id TEXT PRIMARY KEY,
	deal_date TEXT NOT NULL,
	deal_time TEXT NOT NULL,
	stock_code TEXT NOT NULL,
	stock_name TEXT NOT NULL DEFAULT '',
	side TEXT NOT NULL CHECK (side IN ('BUY', 'SELL')),
	price TEXT NOT NULL,
	qty INTEGER NOT NULL CHECK (qty > 0),
	amount TEXT NOT NULL,
	strategy TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	position_after INTEGER NOT NULL,
	cash_after TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_code ON delivery_orders(strategy, stock_code, deal_date);

CREATE TABLE IF NOT EXISTS strategy_evaluations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	strategy TEXT NOT NULL,
	trade_date TEXT NOT NULL,
	stock_code TEXT NOT NULL,
	stock_name TEXT NOT NULL DEFAULT '',
	side TEXT NOT NULL,
	eval_hour INTEGER NOT NULL,
	will_execute INTEGER NOT NULL,
	summary TEXT NOT NULL,
	execute_qty INTEGER NOT NULL DEFAULT 0,
	decided_by TEXT NOT NULL,
	trace TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE (strategy, trade_date, stock_code, side, eval_hour)
);

CREATE TABLE IF NOT EXISTS simulation_runs (
	run_id TEXT PRIMARY KEY,
	strategy TEXT NOT NULL,
	start_date TEXT NOT NULL,
	end_date TEXT NOT NULL,
	days INTEGER NOT NULL,
	ticks INTEGER NOT NULL,
	decisions INTEGER NOT NULL,
	buys INTEGER NOT NULL,
	sells INTEGER NOT NULL,
	start_cash TEXT NOT NULL,
	end_cash TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
`
