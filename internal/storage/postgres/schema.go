package postgres

var schema = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		name TEXT PRIMARY KEY,
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id BIGSERIAL PRIMARY KEY,
		session_id TEXT NOT NULL,
		level INTEGER NOT NULL,
		price INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		amplification INTEGER NOT NULL,
		sold_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS sales_level_sold_at_idx ON sales (level, sold_at)`,
	`CREATE TABLE IF NOT EXISTS sale_window_metrics (
		level INTEGER NOT NULL,
		window_size_seconds BIGINT NOT NULL,
		window_start_ts TIMESTAMPTZ NOT NULL,
		window_end_ts TIMESTAMPTZ NOT NULL,
		sale_count BIGINT NOT NULL,
		quantity BIGINT NOT NULL,
		volume BIGINT NOT NULL,
		min_price INTEGER NOT NULL,
		max_price INTEGER NOT NULL,
		avg_price DOUBLE PRECISION NOT NULL,
		sessions INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (level, window_size_seconds, window_start_ts)
	)`,
	`CREATE TABLE IF NOT EXISTS report_state (
		name TEXT PRIMARY KEY,
		last_processed_ms BIGINT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}
