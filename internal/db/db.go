// Package db provides a pgxpool-based connection pool with prepared statement
// registration, health checking and schema migration.
package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keralaseva/deadline-alerts/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, cfg *config.Config) error {
	// A plain connection: the pool's AfterConnect would prepare statements
	// against tables that may not exist yet.
	conn, err := pgx.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Statements maps prepared statement names to SQL. Shared by the store layer.
var Statements = map[string]string{
	// Health
	"health_check": "SELECT 1",

	// Alert job: enumeration
	"list_user_ids":     "SELECT id::text FROM profiles",
	"list_alert_prefs":  "SELECT user_id::text, alert_before_days FROM user_alert_preferences",
	"get_alert_pref":    "SELECT user_id::text, alert_before_days FROM user_alert_preferences WHERE user_id = $1",
	"upsert_alert_pref": "INSERT INTO user_alert_preferences (user_id, alert_before_days) VALUES ($1, $2) ON CONFLICT (user_id) DO UPDATE SET alert_before_days = EXCLUDED.alert_before_days, updated_at = NOW()",
	"profile_is_admin":  "SELECT COALESCE(is_admin, false) FROM profiles WHERE id = $1",

	// Alert job: eligibility (hosted Postgres function)
	"match_scholarships": "SELECT scholarship_id::text, name, deadline, days_until_due FROM get_matching_scholarships($1)",

	// Notifications
	"insert_notification":     "INSERT INTO notifications (user_id, scholarship_id, message, is_read) VALUES ($1, $2, $3, false) ON CONFLICT (user_id, scholarship_id) DO NOTHING",
	"list_user_notifications": "SELECT id, scholarship_id::text, message, is_read, created_at FROM notifications WHERE user_id = $1 ORDER BY created_at DESC",
	"mark_notification_read":  "UPDATE notifications SET is_read = true WHERE id = $1 AND user_id = $2",
}

// registerPreparedStatements registers all statements the API and job use.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	for name, sql := range Statements {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
