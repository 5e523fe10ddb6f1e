package adnetwork

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/mmeshcher/coin-rewards/internal/rewards"
)

// DefaultPollInterval задаёт интервал между проверками готовности рекламной сети.
const DefaultPollInterval = time.Second

type provider struct {
	client *Client
	ready  atomic.Bool
}

// Bridge превращает вызов рекламной сети в сигнал успеха или неудачи
// и отличает «сервис ещё не готов» от «показ не удался».
//
// Поставщики перечисляются в порядке приоритета: если готовый поставщик
// не смог начать показ (ErrNoFill), ролик запрашивается у следующего.
type Bridge struct {
	providers  []*provider
	logger     *zap.Logger
	interval   time.Duration
	maxRetries int
}

// NewBridge создаёт мост над поставщиками рекламы. maxRetries == 0 означает
// бесконечный опрос готовности. Клиенты без адреса пропускаются.
func NewBridge(logger *zap.Logger, interval time.Duration, maxRetries int, clients ...*Client) *Bridge {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	var providers []*provider
	for _, c := range clients {
		if c == nil || c.baseURL == "" {
			continue
		}
		providers = append(providers, &provider{client: c})
	}

	return &Bridge{
		providers:  providers,
		logger:     logger,
		interval:   interval,
		maxRetries: maxRetries,
	}
}

// Ready сообщает, подтвердил ли готовность хотя бы один поставщик.
func (b *Bridge) Ready() bool {
	for _, p := range b.providers {
		if p.ready.Load() {
			return true
		}
	}
	return false
}

// Run опрашивает поставщиков с постоянным интервалом, пока хотя бы один
// не станет готов, не будет исчерпан лимит попыток или не отменён контекст.
// Поставщики, ответившие на той же попытке, тоже помечаются готовыми.
func (b *Bridge) Run(ctx context.Context) {
	if len(b.providers) == 0 {
		b.logger.Warn("ad network address not configured, rewarded ads disabled")
		return
	}

	var backoff retry.Backoff = retry.NewConstant(b.interval)
	if b.maxRetries > 0 {
		backoff = retry.WithMaxRetries(uint64(b.maxRetries), backoff)
	}

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		var lastErr error
		for _, p := range b.providers {
			if err := p.client.Ping(ctx); err != nil {
				lastErr = err
				b.logger.Debug("ad provider not ready",
					zap.String("provider", p.client.baseURL),
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
				continue
			}
			p.ready.Store(true)
		}

		if b.Ready() {
			return nil
		}
		return retry.RetryableError(lastErr)
	})
	if err != nil {
		b.logger.Warn("ad network did not become ready", zap.Int("attempts", attempt), zap.Error(err))
		return
	}

	b.logger.Info("ad network ready", zap.Int("attempts", attempt))
}

// Show показывает ролик пользователю. До готовности сети возвращает ErrAdServiceUnavailable.
func (b *Bridge) Show(ctx context.Context, userID int64) error {
	err := rewards.ErrAdServiceUnavailable

	for _, p := range b.providers {
		if !p.ready.Load() {
			continue
		}

		err = p.client.ShowRewarded(ctx, userID)
		if err == nil || !errors.Is(err, ErrNoFill) {
			return err
		}

		b.logger.Info("ad provider had no ad, trying next",
			zap.String("provider", p.client.baseURL),
			zap.Error(err),
		)
	}

	return err
}
