package storage

import (
	"database/sql"
	"time"

	"dashboard-observer/src/helpers"
	"dashboard-observer/src/interfaces"
	"dashboard-observer/src/logger"
	"dashboard-observer/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
	now    func() time.Time
}

var _ interfaces.IDatabase = (*AsyncSQLiteDB)(nil)

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	if log == nil {
		log = logger.NewLogger(cfg, "SQLite")
	}
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
		now:    time.Now,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewDatabaseError("open sqlite", err)
	}

	if err := db.Ping(); err != nil {
		return helpers.NewDatabaseError("ping sqlite", err)
	}

	// a single writer avoids SQLITE_BUSY under concurrent saves
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
	queries := []string{
		`CREATE TABLE IF NOT EXISTS analytics_snapshots (
			run_id TEXT PRIMARY KEY,
			timeframe TEXT NOT NULL,
			date_range TEXT NOT NULL,
			tier TEXT NOT NULL,
			generation INTEGER,
			error TEXT,
			cached INTEGER,
			created_at INTEGER NOT NULL,
			record TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_tf_created ON analytics_snapshots (timeframe, created_at);`,
		`CREATE TABLE IF NOT EXISTS realtime_samples (
			timestamp INTEGER NOT NULL,
			online_users REAL,
			active_orders REAL,
			recent_sales REAL,
			conversion_rate REAL,
			synthetic INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_realtime_ts ON realtime_samples (timestamp);`,
	}

	for _, q := range queries {
		if _, err := d.DB.Exec(q); err != nil {
			return helpers.NewDatabaseError("create sqlite tables", err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveAnalyticsSnapshot(state *models.MAnalyticsState) error {
	if state == nil || state.Record == nil {
		return nil
	}

	row, err := encodeSnapshot(state)
	if err != nil {
		return helpers.NewDatabaseError("encode snapshot", err)
	}

	_, err = d.DB.Exec(`
		INSERT INTO analytics_snapshots (run_id, timeframe, date_range, tier, generation, error, cached, created_at, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id) DO UPDATE SET
			generation = excluded.generation,
			created_at = excluded.created_at
	`, row.RunID, row.Timeframe, row.DateRange, row.Tier, row.Generation, row.Error, row.Cached, row.CreatedAt, row.Record)
	if err != nil {
		return helpers.NewDatabaseError("save snapshot", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) LatestAnalyticsSnapshot(timeframe models.MTimeframe) (*models.MAnalyticsState, error) {
	var row snapshotRow
	err := d.DB.QueryRow(`
		SELECT run_id, timeframe, date_range, tier, generation, error, cached, created_at, record
		FROM analytics_snapshots
		WHERE timeframe = ?
		ORDER BY created_at DESC, generation DESC
		LIMIT 1
	`, string(timeframe)).Scan(&row.RunID, &row.Timeframe, &row.DateRange, &row.Tier, &row.Generation, &row.Error, &row.Cached, &row.CreatedAt, &row.Record)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewDatabaseError("load snapshot", err)
	}
	return decodeSnapshot(row)
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveRealtimeSample(s models.MRealtimeSample) error {
	_, err := d.DB.Exec(`
		INSERT INTO realtime_samples (timestamp, online_users, active_orders, recent_sales, conversion_rate, synthetic)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.Timestamp, s.Metrics.OnlineUsers, s.Metrics.ActiveOrders, s.Metrics.RecentSales, s.Metrics.ConversionRate, s.Synthetic)
	if err != nil {
		return helpers.NewDatabaseError("save realtime sample", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) RecentRealtimeSamples(limit int) ([]models.MRealtimeSample, error) {
	rows, err := d.DB.Query(`
		SELECT timestamp, online_users, active_orders, recent_sales, conversion_rate, synthetic
		FROM (
			SELECT rowid AS seq, * FROM realtime_samples ORDER BY timestamp DESC, seq DESC LIMIT ?
		) ORDER BY timestamp ASC, seq ASC
	`, limit)
	if err != nil {
		return nil, helpers.NewDatabaseError("load realtime samples", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) CleanupOldData() error {
	retentionDays := d.Config.Storage.DataRetentionDays
	if retentionDays <= 0 {
		return nil
	}
	cutoff := retentionCutoff(d.now(), retentionDays)

	res, err := d.DB.Exec("DELETE FROM analytics_snapshots WHERE created_at < ?", cutoff)
	if err != nil {
		return helpers.NewDatabaseError("cleanup analytics_snapshots", err)
	}
	snapshots, _ := res.RowsAffected()

	res, err = d.DB.Exec("DELETE FROM realtime_samples WHERE timestamp < ?", cutoff)
	if err != nil {
		return helpers.NewDatabaseError("cleanup realtime_samples", err)
	}
	samples, _ := res.RowsAffected()

	if snapshots+samples > 0 {
		d.Logger.Info("Cleanup removed %d snapshots and %d samples older than %d days", snapshots, samples, retentionDays)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

func scanSamples(rows *sql.Rows) ([]models.MRealtimeSample, error) {
	out := []models.MRealtimeSample{}
	for rows.Next() {
		var s models.MRealtimeSample
		if err := rows.Scan(&s.Timestamp, &s.Metrics.OnlineUsers, &s.Metrics.ActiveOrders, &s.Metrics.RecentSales, &s.Metrics.ConversionRate, &s.Synthetic); err != nil {
			return nil, helpers.NewDatabaseError("scan realtime sample", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, helpers.NewDatabaseError("iterate realtime samples", err)
	}
	return out, nil
}
