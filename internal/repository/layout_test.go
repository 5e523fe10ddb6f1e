package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/coin-rewards/internal/model"
)

func TestDecodeState_DefaultsAndLenientNumbers(t *testing.T) {
	s, err := DecodeState(map[string]string{
		KeyBalance:         "abc",
		KeyTotalEarned:     " 42 ",
		KeyLastAdWatch:     "not a time",
		"task_2_completed": "true",
		"task_3_completed": "false",
		"task_x_completed": "true",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(0), s.Balance)
	assert.Equal(t, int64(42), s.TotalEarned)
	assert.Nil(t, s.LastAdWatch)
	assert.Equal(t, map[int]bool{2: true}, s.CompletedTasks)
	assert.Empty(t, s.Withdrawals)
}

func TestDecodeState_CorruptWithdrawals(t *testing.T) {
	_, err := DecodeState(map[string]string{KeyWithdrawals: "{broken"})
	require.Error(t, err)
}

func TestEncodeDecodeKeepsLayout(t *testing.T) {
	last := time.Date(2026, 10, 19, 8, 1, 2, 345000000, time.UTC)
	s := &model.UserState{
		Account:         model.Account{Balance: 400, TotalEarned: 500},
		AdRewardState:   model.AdRewardState{AdsWatched: 3, LastAdWatch: &last},
		DailyClaimState: model.DailyClaimState{LastClaimDate: "2026-10-19", Streak: 2},
		TasksCompleted:  1,
		CompletedTasks:  map[int]bool{1: true},
		Withdrawals: []model.WithdrawalRequest{
			{ID: "w1", Amount: 100, PayoutIdentifier: "bn-1", Status: model.WithdrawalStatusPending, CreatedAt: last},
		},
		PayoutDraft: "bn-1",
		JoinDate:    "2026-10-01",
	}

	values, err := EncodeState(s)
	require.NoError(t, err)

	assert.Equal(t, "400", values["userBalance"])
	assert.Equal(t, "500", values["totalEarned"])
	assert.Equal(t, "3", values["adsWatched"])
	assert.Equal(t, "2026-10-19T08:01:02.345Z", values["lastAdWatch"])
	assert.Equal(t, "2026-10-19", values["lastDailyClaim"])
	assert.Equal(t, "2", values["dailyStreak"])
	assert.Equal(t, "1", values["tasksCompleted"])
	assert.Equal(t, "true", values["task_1_completed"])
	assert.Equal(t, "bn-1", values["binanceId"])
	assert.Equal(t, "2026-10-01", values["joinDate"])
	assert.JSONEq(t,
		`[{"id":"w1","amount":100,"binanceId":"bn-1","status":"pending","date":"2026-10-19T08:01:02.345Z"}]`,
		values["withdrawals"])

	decoded, err := DecodeState(values)
	require.NoError(t, err)
	assert.Equal(t, s.Account, decoded.Account)
	assert.True(t, decoded.LastAdWatch.Equal(last))
	assert.Equal(t, s.DailyClaimState, decoded.DailyClaimState)
	assert.Equal(t, "w1", decoded.Withdrawals[0].ID)
}

func TestDiff(t *testing.T) {
	before := map[string]string{"a": "1", "b": "2", "gone": "x"}
	after := map[string]string{"a": "1", "b": "3", "new": "y"}

	assert.Equal(t, map[string]string{"b": "3", "new": "y", "gone": ""}, Diff(before, after))
	assert.Empty(t, Diff(before, before))
}
