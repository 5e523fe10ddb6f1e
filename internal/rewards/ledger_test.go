package rewards

import (
	"testing"

	"github.com/mmeshcher/coin-rewards/internal/model"
)

func TestDebitClampsAtZero(t *testing.T) {
	for _, balance := range []int64{0, 1, 50, 99, 100, 101, 1000} {
		for _, amount := range []int64{1, 50, 100, 1000} {
			s := &model.UserState{Account: model.Account{Balance: balance, TotalEarned: 7}}
			Debit(s, amount)

			want := balance - amount
			if want < 0 {
				want = 0
			}
			if s.Balance != want {
				t.Fatalf("Debit(%d) on %d = %d, want %d", amount, balance, s.Balance, want)
			}
			if s.TotalEarned != 7 {
				t.Fatalf("Debit must not touch TotalEarned, got %d", s.TotalEarned)
			}
		}
	}
}

func TestCreditOrderIndependent(t *testing.T) {
	amounts := []int64{1, 5, 10, 15, 3}

	forward := &model.UserState{}
	for _, a := range amounts {
		Credit(forward, a)
	}

	backward := &model.UserState{}
	for i := len(amounts) - 1; i >= 0; i-- {
		Credit(backward, amounts[i])
	}

	if forward.Balance != 34 || forward.TotalEarned != 34 {
		t.Fatalf("forward = %+v, want balance and total 34", forward.Account)
	}
	if forward.Account != backward.Account {
		t.Fatalf("credit order changed result: %+v vs %+v", forward.Account, backward.Account)
	}
}

func TestCreditIgnoresNonPositive(t *testing.T) {
	s := &model.UserState{Account: model.Account{Balance: 10, TotalEarned: 10}}
	Credit(s, 0)
	Credit(s, -5)
	if s.Balance != 10 || s.TotalEarned != 10 {
		t.Fatalf("unexpected account %+v", s.Account)
	}
}
