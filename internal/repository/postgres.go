package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// PostgresKV предоставляет хранилище состояния пользователей в PostgreSQL.
type PostgresKV struct {
	pool *pgxpool.Pool
}

// NewPostgresKV создаёт хранилище и инициализирует схему БД через миграции.
func NewPostgresKV(dsn string) (*PostgresKV, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresKV{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresKV) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations/postgres"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresKV) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// Serialization failure и deadlock безопасно повторять целиком.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					if !sleepCtx(ctx, delays[i]) {
						return ctx.Err()
					}
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				if !sleepCtx(ctx, delays[i]) {
					return ctx.Err()
				}
				continue
			}
		}

		break
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresKV) Close() error {
	r.pool.Close()
	return nil
}

// Get читает значения и версию пользователя в одном снимке.
func (r *PostgresKV) Get(ctx context.Context, userID int64) (map[string]string, int64, error) {
	var (
		values  map[string]string
		version int64
	)

	err := r.withRetry(ctx, func() error {
		var err error
		values, version, err = r.get(ctx, userID)
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	return values, version, nil
}

func (r *PostgresKV) get(ctx context.Context, userID int64) (map[string]string, int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var version int64
	err = tx.QueryRow(ctx,
		`SELECT version FROM user_versions WHERE user_id = $1`,
		userID,
	).Scan(&version)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, fmt.Errorf("select version: %w", err)
	}

	rows, err := tx.Query(ctx,
		`SELECT key, value FROM user_kv WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("select values: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, 0, fmt.Errorf("scan value: %w", err)
		}
		values[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("commit tx: %w", err)
	}

	return values, version, nil
}

// Put записывает значения, если версия пользователя равна version.
func (r *PostgresKV) Put(ctx context.Context, userID int64, version int64, values map[string]string) error {
	return r.withRetry(ctx, func() error {
		return r.put(ctx, userID, version, values)
	})
}

func (r *PostgresKV) put(ctx context.Context, userID int64, version int64, values map[string]string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if version == 0 {
		_, err = tx.Exec(ctx,
			`INSERT INTO user_versions (user_id, version) VALUES ($1, 1)`,
			userID,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return ErrVersionConflict
			}
			return fmt.Errorf("insert version: %w", err)
		}
	} else {
		cmdTag, err := tx.Exec(ctx,
			`UPDATE user_versions SET version = version + 1 WHERE user_id = $1 AND version = $2`,
			userID, version,
		)
		if err != nil {
			return fmt.Errorf("update version: %w", err)
		}
		if cmdTag.RowsAffected() != 1 {
			return ErrVersionConflict
		}
	}

	batch := &pgx.Batch{}
	for key, value := range values {
		batch.Queue(
			`INSERT INTO user_kv (user_id, key, value, updated_at) VALUES ($1, $2, $3, now())
			 ON CONFLICT (user_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
			userID, key, value,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert values: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}
