package repository

import (
	"context"
	"fmt"

	"github.com/mmeshcher/coin-rewards/internal/model"
)

// StateRepository читает и сохраняет model.UserState поверх KV.
type StateRepository struct {
	kv KV
}

// NewStateRepository создаёт репозиторий состояния над указанным хранилищем.
func NewStateRepository(kv KV) *StateRepository {
	return &StateRepository{kv: kv}
}

// Load возвращает состояние пользователя и версию, с которой оно было прочитано.
func (r *StateRepository) Load(ctx context.Context, userID int64) (*model.UserState, int64, error) {
	values, version, err := r.kv.Get(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("load state: %w", err)
	}

	s, err := DecodeState(values)
	if err != nil {
		return nil, 0, err
	}

	return s, version, nil
}

// Save записывает только изменившиеся ключи. Если изменений нет, хранилище не трогается.
func (r *StateRepository) Save(ctx context.Context, userID, version int64, before, after *model.UserState) error {
	oldValues, err := EncodeState(before)
	if err != nil {
		return err
	}
	newValues, err := EncodeState(after)
	if err != nil {
		return err
	}

	changes := Diff(oldValues, newValues)
	if len(changes) == 0 {
		return nil
	}

	if err := r.kv.Put(ctx, userID, version, changes); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Close закрывает хранилище.
func (r *StateRepository) Close() error {
	return r.kv.Close()
}
