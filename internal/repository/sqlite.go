package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteKV хранит состояние пользователей в файле SQLite.
type SQLiteKV struct {
	db *sql.DB
}

// NewSQLiteKV открывает базу SQLite в режиме WAL и применяет миграции.
// Путь ":memory:" создаёт временную базу в памяти.
func NewSQLiteKV(path string) (*SQLiteKV, error) {
	dsn := path
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve path: %w", err)
		}
		dsn = absPath
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite допускает одного писателя; кроме того, каждое соединение
	// с ":memory:" видит собственную базу.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	r := &SQLiteKV{db: db}

	if err := r.runMigrations(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return r, nil
}

func (r *SQLiteKV) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, r.db, "migrations/sqlite"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает соединение с базой.
func (r *SQLiteKV) Close() error {
	return r.db.Close()
}

// Get читает значения и версию пользователя.
func (r *SQLiteKV) Get(ctx context.Context, userID int64) (map[string]string, int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var version int64
	err = tx.QueryRowContext(ctx,
		`SELECT version FROM user_versions WHERE user_id = ?`,
		userID,
	).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("select version: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT key, value FROM user_kv WHERE user_id = ?`,
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

	return values, version, nil
}

// Put записывает значения, если версия пользователя равна version.
func (r *SQLiteKV) Put(ctx context.Context, userID int64, version int64, values map[string]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var res sql.Result
	if version == 0 {
		res, err = tx.ExecContext(ctx,
			`INSERT INTO user_versions (user_id, version) VALUES (?, 1) ON CONFLICT (user_id) DO NOTHING`,
			userID,
		)
	} else {
		res, err = tx.ExecContext(ctx,
			`UPDATE user_versions SET version = version + 1 WHERE user_id = ? AND version = ?`,
			userID, version,
		)
	}
	if err != nil {
		return fmt.Errorf("update version: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected != 1 {
		return ErrVersionConflict
	}

	for key, value := range values {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO user_kv (user_id, key, value) VALUES (?, ?, ?)
			 ON CONFLICT (user_id, key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')`,
			userID, key, value,
		)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}
