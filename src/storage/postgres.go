package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"dashboard-observer/src/helpers"
	"dashboard-observer/src/interfaces"
	"dashboard-observer/src/logger"
	"dashboard-observer/src/models"

	"github.com/lib/pq"
)

var unsafeSchemaChars = regexp.MustCompile(`[^a-z0-9_]+`)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
	now    func() time.Time
}

var _ interfaces.IDatabase = (*PostgresDB)(nil)

// -----------------------------------------------------------------------------

// NewPostgresDB keeps all tables in a schema named after the service (or the
// executable when the service has no name).
func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	if log == nil {
		log = logger.NewLogger(cfg, "PostgresDB")
	}

	name := cfg.Name
	if name == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to get executable name: %w", err)
		}
		name = strings.TrimSuffix(filepath.Base(exe), filepath.Ext(exe))
	}

	return &PostgresDB{
		Config: cfg,
		Schema: SchemaName(name),
		Logger: log,
		now:    time.Now,
	}, nil
}

// SchemaName lowercases name and replaces anything outside [a-z0-9_].
func SchemaName(name string) string {
	s := unsafeSchemaChars.ReplaceAllString(strings.ToLower(name), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "dashboard"
	}
	return s
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) table(name string) string {
	return pq.QuoteIdentifier(d.Schema) + "." + pq.QuoteIdentifier(name)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	db, err := sql.Open("postgres", d.Config.Storage.DBConnectionString)
	if err != nil {
		return helpers.NewDatabaseError("open postgres", err)
	}

	if err := db.Ping(); err != nil {
		return helpers.NewDatabaseError("ping postgres", err)
	}

	d.DB = db

	if _, err := d.DB.Exec(`CREATE SCHEMA IF NOT EXISTS ` + pq.QuoteIdentifier(d.Schema)); err != nil {
		return helpers.NewDatabaseError("create schema "+d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	queries := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			run_id TEXT PRIMARY KEY,
			timeframe TEXT NOT NULL,
			date_range TEXT NOT NULL,
			tier TEXT NOT NULL,
			generation BIGINT,
			error TEXT,
			cached BOOLEAN,
			created_at BIGINT NOT NULL,
			record JSONB NOT NULL
		);`, d.table("analytics_snapshots")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_snapshots_tf_created ON %s (timeframe, created_at);`, d.table("analytics_snapshots")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			timestamp BIGINT NOT NULL,
			online_users DOUBLE PRECISION,
			active_orders DOUBLE PRECISION,
			recent_sales DOUBLE PRECISION,
			conversion_rate DOUBLE PRECISION,
			synthetic BOOLEAN
		);`, d.table("realtime_samples")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_realtime_ts ON %s (timestamp);`, d.table("realtime_samples")),
	}

	for _, q := range queries {
		if _, err := d.DB.Exec(q); err != nil {
			return helpers.NewDatabaseError("create postgres tables", err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveAnalyticsSnapshot(state *models.MAnalyticsState) error {
	if state == nil || state.Record == nil {
		return nil
	}

	row, err := encodeSnapshot(state)
	if err != nil {
		return helpers.NewDatabaseError("encode snapshot", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (run_id, timeframe, date_range, tier, generation, error, cached, created_at, record)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id) DO UPDATE SET
			generation = EXCLUDED.generation,
			created_at = EXCLUDED.created_at
	`, d.table("analytics_snapshots"))

	if _, err := d.DB.Exec(query, row.RunID, row.Timeframe, row.DateRange, row.Tier, row.Generation, row.Error, row.Cached, row.CreatedAt, row.Record); err != nil {
		return helpers.NewDatabaseError("save snapshot", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) LatestAnalyticsSnapshot(timeframe models.MTimeframe) (*models.MAnalyticsState, error) {
	query := fmt.Sprintf(`
		SELECT run_id, timeframe, date_range, tier, generation, error, cached, created_at, record::text
		FROM %s
		WHERE timeframe = $1
		ORDER BY created_at DESC, generation DESC
		LIMIT 1
	`, d.table("analytics_snapshots"))

	var row snapshotRow
	err := d.DB.QueryRow(query, string(timeframe)).Scan(&row.RunID, &row.Timeframe, &row.DateRange, &row.Tier, &row.Generation, &row.Error, &row.Cached, &row.CreatedAt, &row.Record)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewDatabaseError("load snapshot", err)
	}
	return decodeSnapshot(row)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveRealtimeSample(s models.MRealtimeSample) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (timestamp, online_users, active_orders, recent_sales, conversion_rate, synthetic)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, d.table("realtime_samples"))

	if _, err := d.DB.Exec(query, s.Timestamp, s.Metrics.OnlineUsers, s.Metrics.ActiveOrders, s.Metrics.RecentSales, s.Metrics.ConversionRate, s.Synthetic); err != nil {
		return helpers.NewDatabaseError("save realtime sample", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) RecentRealtimeSamples(limit int) ([]models.MRealtimeSample, error) {
	query := fmt.Sprintf(`
		SELECT timestamp, online_users, active_orders, recent_sales, conversion_rate, synthetic
		FROM (
			SELECT * FROM %s ORDER BY timestamp DESC, id DESC LIMIT $1
		) AS recent
		ORDER BY timestamp ASC, id ASC
	`, d.table("realtime_samples"))

	rows, err := d.DB.Query(query, limit)
	if err != nil {
		return nil, helpers.NewDatabaseError("load realtime samples", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData() error {
	retentionDays := d.Config.Storage.DataRetentionDays
	if retentionDays <= 0 {
		return nil
	}
	cutoff := retentionCutoff(d.now(), retentionDays)

	if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM %s WHERE created_at < $1`, d.table("analytics_snapshots")), cutoff); err != nil {
		return helpers.NewDatabaseError("cleanup analytics_snapshots", err)
	}
	if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM %s WHERE timestamp < $1`, d.table("realtime_samples")), cutoff); err != nil {
		return helpers.NewDatabaseError("cleanup realtime_samples", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
