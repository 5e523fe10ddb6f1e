// Package model содержит доменные сущности сервиса наград мини-приложения.
package model

import "time"

// TelegramUser описывает пользователя, переданного хост-платформой в initData.
type TelegramUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	PhotoURL     string `json:"photo_url,omitempty"`

	// IsFallback помечает тестовую личность, подставленную при отсутствии initData.
	IsFallback bool `json:"is_fallback,omitempty"`
}

// FallbackUser возвращает тестового пользователя для запуска вне Telegram.
func FallbackUser() TelegramUser {
	return TelegramUser{
		ID:           123456,
		FirstName:    "Test",
		LastName:     "User",
		Username:     "testuser",
		LanguageCode: "en",
		IsFallback:   true,
	}
}

// Account содержит баланс монет и сумму всех начислений за всё время.
type Account struct {
	Balance     int64 `json:"balance"`
	TotalEarned int64 `json:"total_earned"`
}

// AdRewardState хранит счётчик просмотров рекламы и время последнего просмотра.
type AdRewardState struct {
	AdsWatched  int64      `json:"ads_watched"`
	LastAdWatch *time.Time `json:"last_ad_watch,omitempty"`
}

// DailyClaimState хранит дату последнего ежедневного бонуса и длину серии.
type DailyClaimState struct {
	// LastClaimDate хранится в формате time.DateOnly и пуста до первого получения.
	LastClaimDate string `json:"last_claim_date,omitempty"`
	Streak        int64  `json:"streak"`
}

// TaskKind описывает тип задания.
type TaskKind string

const (
	TaskKindChannelJoin  TaskKind = "channel_join"
	TaskKindSocialFollow TaskKind = "social_follow"
)

// Task описывает неизменяемую запись каталога заданий.
type Task struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Reward      int64    `json:"reward"`
	Kind        TaskKind `json:"kind"`
	Target      string   `json:"target"`
}

// WithdrawalStatus описывает статус заявки на вывод.
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

// WithdrawalRequest описывает заявку на вывод монет на внешний платёжный идентификатор.
type WithdrawalRequest struct {
	ID               string           `json:"id"`
	Amount           int64            `json:"amount"`
	PayoutIdentifier string           `json:"binanceId"`
	Status           WithdrawalStatus `json:"status"`
	CreatedAt        time.Time        `json:"date"`
}

// UserState содержит полное сохранённое состояние пользователя.
type UserState struct {
	Account
	AdRewardState
	DailyClaimState

	TasksCompleted int64        `json:"tasks_completed"`
	CompletedTasks map[int]bool `json:"completed_tasks"`

	// Withdrawals упорядочены от новых к старым.
	Withdrawals []WithdrawalRequest `json:"withdrawals"`

	PayoutDraft string `json:"payout_draft"`
	JoinDate    string `json:"join_date"`
}

// Clone возвращает глубокую копию состояния.
func (s *UserState) Clone() *UserState {
	c := *s
	if s.LastAdWatch != nil {
		t := *s.LastAdWatch
		c.LastAdWatch = &t
	}
	c.CompletedTasks = make(map[int]bool, len(s.CompletedTasks))
	for id, done := range s.CompletedTasks {
		c.CompletedTasks[id] = done
	}
	c.Withdrawals = append([]WithdrawalRequest(nil), s.Withdrawals...)
	return &c
}

// AdState описывает состояние ворот рекламной награды.
type AdState string

const (
	AdStateReady    AdState = "ready"
	AdStateCooldown AdState = "cooldown"
)

// AdStatus описывает состояние ворот на конкретный момент времени.
type AdStatus struct {
	State     AdState       `json:"state"`
	Remaining time.Duration `json:"-"`
	// RemainingSeconds округляется вверх, чтобы интерфейс не показывал 0 до окончания паузы.
	RemainingSeconds int64 `json:"remaining_seconds"`
	ServiceReady     bool  `json:"service_ready"`
}

// TaskView объединяет задание каталога с отметкой о выполнении.
type TaskView struct {
	Task
	Completed bool   `json:"completed"`
	Link      string `json:"link"`
}

// Dashboard содержит снимок состояния для отображения в интерфейсе.
type Dashboard struct {
	User           TelegramUser        `json:"user"`
	Balance        int64               `json:"balance"`
	TotalEarned    int64               `json:"total_earned"`
	AdsWatched     int64               `json:"ads_watched"`
	TasksCompleted int64               `json:"tasks_completed"`
	DailyStreak    int64               `json:"daily_streak"`
	CanClaimDaily  bool                `json:"can_claim_daily"`
	Ad             AdStatus            `json:"ad"`
	Tasks          []TaskView          `json:"tasks"`
	Withdrawals    []WithdrawalRequest `json:"withdrawals"`
	PayoutDraft    string              `json:"payout_draft"`
	JoinDate       string              `json:"join_date"`
}

// ClaimResult описывает результат получения ежедневного бонуса.
type ClaimResult struct {
	Streak  int64 `json:"streak"`
	Bonus   int64 `json:"bonus"`
	Balance int64 `json:"balance"`
}

// AdReward описывает результат успешного просмотра рекламы.
type AdReward struct {
	Reward     int64 `json:"reward"`
	AdsWatched int64 `json:"ads_watched"`
	Balance    int64 `json:"balance"`
}

// TaskResult описывает результат выполнения задания.
type TaskResult struct {
	TaskID         int   `json:"task_id"`
	Reward         int64 `json:"reward"`
	Credited       bool  `json:"credited"`
	TasksCompleted int64 `json:"tasks_completed"`
	Balance        int64 `json:"balance"`
}
