package rewards

import "github.com/mmeshcher/coin-rewards/internal/model"

// Credit начисляет монеты на баланс и в счётчик всех заработанных монет.
func Credit(s *model.UserState, amount int64) {
	if amount <= 0 {
		return
	}
	s.Balance += amount
	s.TotalEarned += amount
}

// Debit списывает монеты с баланса. Баланс не опускается ниже нуля;
// TotalEarned не уменьшается.
func Debit(s *model.UserState, amount int64) {
	if amount <= 0 {
		return
	}
	s.Balance -= amount
	if s.Balance < 0 {
		s.Balance = 0
	}
}
