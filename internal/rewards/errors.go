// Package rewards реализует правила начисления и списания монет: баланс,
// паузу между рекламными наградами, серию ежедневных бонусов, каталог заданий
// и очередь заявок на вывод. Пакет не выполняет ввод-вывод: все функции
// работают над model.UserState, сохранением занимается вызывающая сторона.
package rewards

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAlreadyClaimed возвращается при повторном получении ежедневного бонуса в тот же день.
	ErrAlreadyClaimed = errors.New("daily bonus already claimed today")
	// ErrUnknownTask возвращается, если задания нет в каталоге.
	ErrUnknownTask = errors.New("unknown task")
	// ErrMissingIdentifier возвращается, если платёжный идентификатор пуст.
	ErrMissingIdentifier = errors.New("payout identifier is required")
	// ErrBelowMinimum возвращается, если сумма вывода меньше минимальной.
	ErrBelowMinimum = errors.New("withdrawal amount is below minimum")
	// ErrInsufficientBalance возвращается при попытке вывести больше, чем есть на балансе.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrAdServiceUnavailable возвращается, пока рекламная сеть не готова.
	ErrAdServiceUnavailable = errors.New("ad service unavailable")
	// ErrAdPlaybackFailed возвращается, если реклама не была досмотрена.
	ErrAdPlaybackFailed = errors.New("ad playback failed")
	// ErrAdInFlight возвращается, если показ рекламы для пользователя уже выполняется.
	ErrAdInFlight = errors.New("ad request already in progress")
	// ErrCooldownActive возвращается, пока не истекла пауза между рекламными наградами.
	ErrCooldownActive = errors.New("ad cooldown active")
)

// CooldownError сообщает, сколько осталось до окончания паузы.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: %s remaining", ErrCooldownActive, e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error {
	return ErrCooldownActive
}
