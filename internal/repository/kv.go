// Package repository содержит хранилища состояния пользователей.
//
// Состояние хранится как набор строковых пар ключ/значение на пользователя
// (раскладка ключей описана в layout.go) плюс номер версии, который
// увеличивается при каждой записи. Запись принимается, только если версия
// не изменилась с момента чтения.
package repository

import (
	"context"
	"errors"
)

var (
	// ErrVersionConflict возвращается, если состояние пользователя изменилось после чтения.
	ErrVersionConflict = errors.New("user state version conflict")
	// ErrUnknownDriver возвращается для неподдерживаемого типа хранилища.
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// KV описывает постоянное хранилище пар ключ/значение пользователей.
type KV interface {
	// Get возвращает все значения пользователя и текущую версию (0, если записей не было).
	Get(ctx context.Context, userID int64) (map[string]string, int64, error)
	// Put атомарно записывает значения и переводит версию из version в version+1.
	Put(ctx context.Context, userID int64, version int64, values map[string]string) error
	Close() error
}

// Open создаёт хранилище указанного типа.
func Open(driver, dsn string) (KV, error) {
	switch driver {
	case "postgres":
		return NewPostgresKV(dsn)
	case "sqlite":
		return NewSQLiteKV(dsn)
	case "memory":
		return NewMemoryKV(), nil
	default:
		return nil, ErrUnknownDriver
	}
}
