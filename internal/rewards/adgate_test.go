package rewards

import (
	"errors"
	"testing"
	"time"

	"github.com/mmeshcher/coin-rewards/internal/model"
)

func TestRewardAd_CreditsAndStartsCooldown(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	s := &model.UserState{}

	res, err := RewardAd(s, now)
	if err != nil {
		t.Fatalf("RewardAd error: %v", err)
	}
	if res.Reward != 1 || s.Balance != 1 || s.TotalEarned != 1 || s.AdsWatched != 1 {
		t.Fatalf("unexpected state after reward: %+v", s)
	}
	if s.LastAdWatch == nil || !s.LastAdWatch.Equal(now) {
		t.Fatalf("LastAdWatch = %v, want %v", s.LastAdWatch, now)
	}

	status := AdStatusAt(s, now)
	if status.State != model.AdStateCooldown || status.Remaining != CooldownDuration {
		t.Fatalf("status = %+v, want full cooldown", status)
	}
}

func TestRewardAd_RejectedDuringCooldown(t *testing.T) {
	start := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	s := &model.UserState{}
	if _, err := RewardAd(s, start); err != nil {
		t.Fatalf("first reward: %v", err)
	}
	before := s.Clone()

	_, err := RewardAd(s, start.Add(30*time.Second))
	if !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive, got %v", err)
	}

	var cdErr *CooldownError
	if !errors.As(err, &cdErr) || cdErr.Remaining != 30*time.Second {
		t.Fatalf("expected 30s remaining, got %v", err)
	}
	if s.Balance != before.Balance || s.AdsWatched != before.AdsWatched || !s.LastAdWatch.Equal(*before.LastAdWatch) {
		t.Fatalf("state changed during cooldown: %+v", s)
	}
}

func TestAdStatusAt_ReloadConsistency(t *testing.T) {
	last := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	s := &model.UserState{AdRewardState: model.AdRewardState{LastAdWatch: &last}}

	tests := []struct {
		name      string
		elapsed   time.Duration
		state     model.AdState
		remaining time.Duration
		seconds   int64
	}{
		{name: "10s after", elapsed: 10 * time.Second, state: model.AdStateCooldown, remaining: 50 * time.Second, seconds: 50},
		{name: "partial second", elapsed: 59*time.Second + 500*time.Millisecond, state: model.AdStateCooldown, remaining: 500 * time.Millisecond, seconds: 1},
		{name: "exactly expired", elapsed: CooldownDuration, state: model.AdStateReady},
		{name: "long ago", elapsed: time.Hour, state: model.AdStateReady},
		{name: "clock moved back", elapsed: -time.Hour, state: model.AdStateReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdStatusAt(s, last.Add(tt.elapsed))
			if got.State != tt.state {
				t.Fatalf("state = %s, want %s", got.State, tt.state)
			}
			if got.Remaining != tt.remaining {
				t.Fatalf("remaining = %v, want %v", got.Remaining, tt.remaining)
			}
			if got.RemainingSeconds != tt.seconds {
				t.Fatalf("remaining seconds = %d, want %d", got.RemainingSeconds, tt.seconds)
			}
		})
	}
}

func TestAdStatusAt_NeverWatched(t *testing.T) {
	if got := AdStatusAt(&model.UserState{}, time.Now()); got.State != model.AdStateReady {
		t.Fatalf("state = %s, want ready", got.State)
	}
}

func TestRewardAd_FutureTimestamp(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)

	for _, elapsed := range []time.Duration{0, 61 * time.Second, 30 * time.Minute} {
		s := &model.UserState{AdRewardState: model.AdRewardState{LastAdWatch: &future}}
		at := now.Add(elapsed)

		if got := AdStatusAt(s, at); got.State != model.AdStateReady {
			t.Fatalf("at +%v: state = %s, want ready", elapsed, got.State)
		}
		if err := CheckAdReady(s, at); err != nil {
			t.Fatalf("at +%v: CheckAdReady error: %v", elapsed, err)
		}

		if _, err := RewardAd(s, at); err != nil {
			t.Fatalf("at +%v: RewardAd error: %v", elapsed, err)
		}
		if !s.LastAdWatch.Equal(at) {
			t.Fatalf("at +%v: LastAdWatch = %v, want %v", elapsed, s.LastAdWatch, at)
		}
		if got := AdStatusAt(s, at.Add(10*time.Second)); got.State != model.AdStateCooldown || got.RemainingSeconds != 50 {
			t.Fatalf("at +%v: status after reward = %+v, want 50s cooldown", elapsed, got)
		}
	}
}
