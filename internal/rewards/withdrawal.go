package rewards

import (
	"strings"
	"time"

	"github.com/mmeshcher/coin-rewards/internal/model"
)

// MinWithdrawal задаёт минимальную сумму заявки на вывод.
const MinWithdrawal int64 = 100

// ValidateWithdrawal проверяет заявку в порядке: идентификатор, минимум, баланс.
func ValidateWithdrawal(amount int64, payoutID string, balance int64) error {
	if strings.TrimSpace(payoutID) == "" {
		return ErrMissingIdentifier
	}
	if amount < MinWithdrawal {
		return ErrBelowMinimum
	}
	if amount > balance {
		return ErrInsufficientBalance
	}
	return nil
}

// RequestWithdrawal создаёт заявку в статусе pending, добавляет её в начало
// списка и списывает сумму с баланса.
func RequestWithdrawal(s *model.UserState, amount int64, payoutID, id string, now time.Time) (model.WithdrawalRequest, error) {
	if err := ValidateWithdrawal(amount, payoutID, s.Balance); err != nil {
		return model.WithdrawalRequest{}, err
	}

	w := model.WithdrawalRequest{
		ID:               id,
		Amount:           amount,
		PayoutIdentifier: strings.TrimSpace(payoutID),
		Status:           model.WithdrawalStatusPending,
		CreatedAt:        now,
	}

	s.Withdrawals = append([]model.WithdrawalRequest{w}, s.Withdrawals...)
	Debit(s, amount)

	return w, nil
}
