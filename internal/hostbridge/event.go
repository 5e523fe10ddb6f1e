// Package hostbridge доставляет уведомления о событиях наград хост-процессу
// (боту чат-платформы). Доставка однонаправленная: ответ не читается,
// а ошибка отправки не влияет на уже выполненную операцию.
package hostbridge

import (
	"context"
	"time"
)

// Действия, о которых сообщается хосту.
const (
	ActionAdWatched         = "ad_watched"
	ActionTaskCompleted     = "task_completed"
	ActionDailyClaim        = "daily_claim"
	ActionWithdrawalRequest = "withdrawal_request"
)

// Event описывает структурированное сообщение для хоста.
type Event struct {
	Action    string    `json:"action"`
	UserID    int64     `json:"userId"`
	Amount    int64     `json:"amount,omitempty"`
	Streak    int64     `json:"streak,omitempty"`
	Bonus     int64     `json:"bonus,omitempty"`
	TaskID    int       `json:"taskId,omitempty"`
	PayoutID  string    `json:"bId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier отправляет событие одному получателю.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}
