package rewards

import (
	"time"

	"github.com/mmeshcher/coin-rewards/internal/model"
)

const (
	// CooldownDuration задаёт минимальный интервал между рекламными наградами.
	CooldownDuration = 60 * time.Second
	// AdRewardAmount начисляется за один досмотренный ролик.
	AdRewardAmount int64 = 1
)

// AdStatusAt вычисляет состояние ворот только по сохранённому времени последнего просмотра.
func AdStatusAt(s *model.UserState, now time.Time) model.AdStatus {
	remaining := CooldownRemaining(s, now)
	if remaining <= 0 {
		return model.AdStatus{State: model.AdStateReady}
	}

	secs := int64(remaining / time.Second)
	if remaining%time.Second != 0 {
		secs++
	}

	return model.AdStatus{
		State:            model.AdStateCooldown,
		Remaining:        remaining,
		RemainingSeconds: secs,
	}
}

// CooldownRemaining возвращает остаток паузы; ноль или отрицательное значение означает готовность.
func CooldownRemaining(s *model.UserState, now time.Time) time.Duration {
	if s.LastAdWatch == nil {
		return 0
	}

	// Отметка из будущего (часы переведены назад) не держит паузу:
	// ворота готовы, а следующий просмотр перезапишет отметку текущим временем.
	if now.Before(*s.LastAdWatch) {
		return 0
	}
	return CooldownDuration - now.Sub(*s.LastAdWatch)
}

// CheckAdReady возвращает *CooldownError, если ворота находятся в паузе.
func CheckAdReady(s *model.UserState, now time.Time) error {
	if remaining := CooldownRemaining(s, now); remaining > 0 {
		return &CooldownError{Remaining: remaining}
	}
	return nil
}

// RewardAd применяет сигнал об успешном просмотре: начисляет награду,
// увеличивает счётчик просмотров и запоминает время. В паузе ничего не меняет.
func RewardAd(s *model.UserState, now time.Time) (model.AdReward, error) {
	if err := CheckAdReady(s, now); err != nil {
		return model.AdReward{}, err
	}

	Credit(s, AdRewardAmount)
	s.AdsWatched++
	watchedAt := now
	s.LastAdWatch = &watchedAt

	return model.AdReward{
		Reward:     AdRewardAmount,
		AdsWatched: s.AdsWatched,
		Balance:    s.Balance,
	}, nil
}
