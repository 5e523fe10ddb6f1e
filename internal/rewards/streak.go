package rewards

import (
	"time"

	"github.com/mmeshcher/coin-rewards/internal/model"
)

const (
	// DailyBaseBonus начисляется за первый день серии.
	DailyBaseBonus int64 = 5
	// DailyMaxExtra ограничивает надбавку за продолжение серии.
	DailyMaxExtra int64 = 10
)

// DailyBonus возвращает размер бонуса для дня серии: 5 в первый день,
// затем +1 за каждый день, не больше 15.
func DailyBonus(streak int64) int64 {
	extra := streak - 1
	if extra < 0 {
		extra = 0
	}
	if extra > DailyMaxExtra {
		extra = DailyMaxExtra
	}
	return DailyBaseBonus + extra
}

// DateKey форматирует календарную дату момента t в его часовом поясе.
func DateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

func previousDateKey(t time.Time) string {
	y, m, d := t.Date()
	return time.Date(y, m, d-1, 12, 0, 0, 0, time.UTC).Format(time.DateOnly)
}

// CanClaimDaily сообщает, доступен ли бонус в календарный день today.
func CanClaimDaily(s *model.UserState, today time.Time) bool {
	return s.LastClaimDate != DateKey(today)
}

// ClaimDaily выдаёт ежедневный бонус. Серия продолжается, только если
// предыдущее получение было ровно вчера, иначе начинается заново.
func ClaimDaily(s *model.UserState, today time.Time) (model.ClaimResult, error) {
	todayKey := DateKey(today)
	if s.LastClaimDate == todayKey {
		return model.ClaimResult{}, ErrAlreadyClaimed
	}

	streak := int64(1)
	if s.LastClaimDate != "" && s.LastClaimDate == previousDateKey(today) {
		streak = s.Streak + 1
	}

	bonus := DailyBonus(streak)
	Credit(s, bonus)
	s.LastClaimDate = todayKey
	s.Streak = streak

	return model.ClaimResult{
		Streak:  streak,
		Bonus:   bonus,
		Balance: s.Balance,
	}, nil
}
