package repository

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mmeshcher/coin-rewards/internal/model"
)

// Ключи постоянного хранилища.
const (
	KeyBalance        = "userBalance"
	KeyTotalEarned    = "totalEarned"
	KeyAdsWatched     = "adsWatched"
	KeyLastAdWatch    = "lastAdWatch"
	KeyLastDailyClaim = "lastDailyClaim"
	KeyDailyStreak    = "dailyStreak"
	KeyTasksCompleted = "tasksCompleted"
	KeyWithdrawals    = "withdrawals"
	KeyPayoutDraft    = "binanceId"
	KeyJoinDate       = "joinDate"
)

// isoLayout совпадает с форматом Date.prototype.toISOString.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// TaskCompletedKey возвращает ключ флага выполнения задания.
func TaskCompletedKey(id int) string {
	return "task_" + strconv.Itoa(id) + "_completed"
}

func parseTaskCompletedKey(key string) (int, bool) {
	if !strings.HasPrefix(key, "task_") || !strings.HasSuffix(key, "_completed") {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(key, "task_"), "_completed"))
	if err != nil {
		return 0, false
	}
	return id, true
}

// parseCount разбирает целое значение; отсутствующее или испорченное значение считается нулём.
func parseCount(v string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// DecodeState собирает состояние пользователя из сохранённых значений.
func DecodeState(values map[string]string) (*model.UserState, error) {
	s := &model.UserState{
		Account: model.Account{
			Balance:     parseCount(values[KeyBalance]),
			TotalEarned: parseCount(values[KeyTotalEarned]),
		},
		AdRewardState: model.AdRewardState{
			AdsWatched: parseCount(values[KeyAdsWatched]),
		},
		DailyClaimState: model.DailyClaimState{
			LastClaimDate: values[KeyLastDailyClaim],
			Streak:        parseCount(values[KeyDailyStreak]),
		},
		TasksCompleted: parseCount(values[KeyTasksCompleted]),
		CompletedTasks: make(map[int]bool),
		PayoutDraft:    values[KeyPayoutDraft],
		JoinDate:       values[KeyJoinDate],
	}

	if v := values[KeyLastAdWatch]; v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err == nil {
			s.LastAdWatch = &t
		}
	}

	for k, v := range values {
		if id, ok := parseTaskCompletedKey(k); ok && v == "true" {
			s.CompletedTasks[id] = true
		}
	}

	if v := values[KeyWithdrawals]; v != "" {
		if err := json.Unmarshal([]byte(v), &s.Withdrawals); err != nil {
			return nil, fmt.Errorf("decode withdrawals: %w", err)
		}
	}

	return s, nil
}

// EncodeState раскладывает состояние по ключам хранилища.
func EncodeState(s *model.UserState) (map[string]string, error) {
	values := map[string]string{
		KeyBalance:        strconv.FormatInt(s.Balance, 10),
		KeyTotalEarned:    strconv.FormatInt(s.TotalEarned, 10),
		KeyAdsWatched:     strconv.FormatInt(s.AdsWatched, 10),
		KeyDailyStreak:    strconv.FormatInt(s.Streak, 10),
		KeyTasksCompleted: strconv.FormatInt(s.TasksCompleted, 10),
	}

	if s.LastAdWatch != nil {
		values[KeyLastAdWatch] = s.LastAdWatch.UTC().Format(isoLayout)
	}
	if s.LastClaimDate != "" {
		values[KeyLastDailyClaim] = s.LastClaimDate
	}
	if s.PayoutDraft != "" {
		values[KeyPayoutDraft] = s.PayoutDraft
	}
	if s.JoinDate != "" {
		values[KeyJoinDate] = s.JoinDate
	}

	for id, done := range s.CompletedTasks {
		if done {
			values[TaskCompletedKey(id)] = "true"
		}
	}

	if len(s.Withdrawals) > 0 {
		data, err := json.Marshal(s.Withdrawals)
		if err != nil {
			return nil, fmt.Errorf("encode withdrawals: %w", err)
		}
		values[KeyWithdrawals] = string(data)
	}

	return values, nil
}

// Diff возвращает значения, которые нужно записать, чтобы перейти от before к after.
// Исчезнувшие ключи записываются пустой строкой.
func Diff(before, after map[string]string) map[string]string {
	changes := make(map[string]string)
	for k, v := range after {
		if old, ok := before[k]; !ok || old != v {
			changes[k] = v
		}
	}
	for k := range before {
		if _, ok := after[k]; !ok {
			changes[k] = ""
		}
	}
	return changes
}
