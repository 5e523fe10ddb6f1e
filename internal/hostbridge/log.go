package hostbridge

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier записывает события в журнал сервиса.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier создаёт уведомитель, пишущий в журнал.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, ev Event) error {
	n.logger.Info("host event",
		zap.String("action", ev.Action),
		zap.Int64("userID", ev.UserID),
		zap.Int64("amount", ev.Amount),
		zap.Int("taskID", ev.TaskID),
		zap.Time("timestamp", ev.Timestamp),
	)
	return nil
}
