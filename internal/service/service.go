// Package service реализует управление состоянием пользователей сервиса наград:
// каждая операция читает состояние, применяет правило из пакета rewards
// к копии и сохраняет только изменившиеся ключи.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/mmeshcher/coin-rewards/internal/hostbridge"
	"github.com/mmeshcher/coin-rewards/internal/metrics"
	"github.com/mmeshcher/coin-rewards/internal/model"
	"github.com/mmeshcher/coin-rewards/internal/repository"
	"github.com/mmeshcher/coin-rewards/internal/rewards"
)

const (
	// TaskConfirmDelay задаёт задержку между переходом по ссылке задания и его зачислением.
	TaskConfirmDelay = 3 * time.Second

	maxConflictRetries = 3
	conflictBackoff    = 50 * time.Millisecond
	scheduledTimeout   = 10 * time.Second
)

// ErrClosed возвращается при планировании задания после остановки сервиса.
var ErrClosed = errors.New("service closed")

// Repository описывает контракт доступа к состоянию пользователей, используемый сервисом.
type Repository interface {
	Load(ctx context.Context, userID int64) (*model.UserState, int64, error)
	Save(ctx context.Context, userID, version int64, before, after *model.UserState) error
	Close() error
}

// AdShower показывает рекламный ролик и сообщает о готовности рекламной сети.
type AdShower interface {
	Ready() bool
	Show(ctx context.Context, userID int64) error
}

// Publisher принимает события для хоста без блокировки.
type Publisher interface {
	Publish(ev hostbridge.Event)
}

// Option настраивает Service.
type Option func(*Service)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation задаёт часовой пояс календарных дат.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithTaskConfirmDelay задаёт задержку зачисления задания после перехода по ссылке.
func WithTaskConfirmDelay(d time.Duration) Option {
	return func(s *Service) { s.confirmDelay = d }
}

type timerKey struct {
	userID int64
	taskID int
}

type pendingTask struct {
	timer *time.Timer
}

// Service содержит бизнес-логику сервиса наград.
type Service struct {
	repo    Repository
	ads     AdShower
	host    Publisher
	metrics *metrics.Metrics
	logger  *zap.Logger

	now          func() time.Time
	loc          *time.Location
	confirmDelay time.Duration

	locks userLocks

	mu       sync.Mutex
	inFlight map[int64]struct{}
	timers   map[timerKey]*pendingTask
	closed   bool
	wg       sync.WaitGroup
}

// NewService создаёт сервис поверх репозитория, рекламной сети и канала уведомлений хоста.
func NewService(repo Repository, ads AdShower, host Publisher, m *metrics.Metrics, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		ads:          ads,
		host:         host,
		metrics:      m,
		logger:       logger,
		now:          time.Now,
		loc:          time.Local,
		confirmDelay: TaskConfirmDelay,
		locks:        userLocks{m: make(map[int64]*userLock)},
		inFlight:     make(map[int64]struct{}),
		timers:       make(map[timerKey]*pendingTask),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close отменяет запланированные зачисления заданий, дожидается уже
// запущенных и закрывает репозиторий.
func (s *Service) Close() error {
	s.mu.Lock()
	s.closed = true
	for key, p := range s.timers {
		p.timer.Stop()
		delete(s.timers, key)
	}
	s.mu.Unlock()

	s.wg.Wait()

	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// update выполняет read-modify-write под блокировкой пользователя.
// Ошибка fn прерывает операцию без записи; конфликт версий повторяется со свежим состоянием.
func (s *Service) update(ctx context.Context, userID int64, fn func(st *model.UserState) error) (*model.UserState, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	var result *model.UserState
	backoff := retry.WithMaxRetries(maxConflictRetries, retry.NewConstant(conflictBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		before, version, err := s.repo.Load(ctx, userID)
		if err != nil {
			return err
		}

		after := before.Clone()
		if err := fn(after); err != nil {
			return err
		}

		if err := s.repo.Save(ctx, userID, version, before, after); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				s.logger.Debug("user state changed concurrently, retrying", zap.Int64("userID", userID))
				return retry.RetryableError(err)
			}
			return err
		}

		result = after
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) load(ctx context.Context, userID int64) (*model.UserState, error) {
	st, _, err := s.repo.Load(ctx, userID)
	return st, err
}

func (s *Service) today() time.Time {
	return s.now().In(s.loc)
}

// Dashboard возвращает снимок состояния пользователя и при первом визите запоминает дату регистрации.
func (s *Service) Dashboard(ctx context.Context, user model.TelegramUser) (*model.Dashboard, error) {
	today := s.today()

	st, err := s.update(ctx, user.ID, func(st *model.UserState) error {
		if st.JoinDate == "" {
			st.JoinDate = rewards.DateKey(today)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.dashboard(user, st), nil
}

func (s *Service) dashboard(user model.TelegramUser, st *model.UserState) *model.Dashboard {
	now := s.now()
	withdrawals := st.Withdrawals
	if withdrawals == nil {
		withdrawals = []model.WithdrawalRequest{}
	}

	return &model.Dashboard{
		User:           user,
		Balance:        st.Balance,
		TotalEarned:    st.TotalEarned,
		AdsWatched:     st.AdsWatched,
		TasksCompleted: st.TasksCompleted,
		DailyStreak:    st.Streak,
		CanClaimDaily:  rewards.CanClaimDaily(st, now.In(s.loc)),
		Ad:             s.adStatus(st, now),
		Tasks:          rewards.TaskViews(st),
		Withdrawals:    withdrawals,
		PayoutDraft:    st.PayoutDraft,
		JoinDate:       st.JoinDate,
	}
}

func (s *Service) adStatus(st *model.UserState, now time.Time) model.AdStatus {
	status := rewards.AdStatusAt(st, now)
	status.ServiceReady = s.ads.Ready()
	return status
}

// AdStatus возвращает состояние ворот рекламной награды.
func (s *Service) AdStatus(ctx context.Context, userID int64) (model.AdStatus, error) {
	st, err := s.load(ctx, userID)
	if err != nil {
		return model.AdStatus{}, err
	}
	return s.adStatus(st, s.now()), nil
}

func (s *Service) acquireAd(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inFlight[userID]; busy {
		return false
	}
	s.inFlight[userID] = struct{}{}
	return true
}

func (s *Service) releaseAd(userID int64) {
	s.mu.Lock()
	delete(s.inFlight, userID)
	s.mu.Unlock()
}

// WatchAd показывает рекламный ролик и начисляет награду после досмотра.
// Пока ролик показывается, повторный вызов для того же пользователя отклоняется.
func (s *Service) WatchAd(ctx context.Context, userID int64) (model.AdReward, error) {
	const op = "watch_ad"

	if !s.ads.Ready() {
		return model.AdReward{}, s.fail(op, rewards.ErrAdServiceUnavailable)
	}

	if !s.acquireAd(userID) {
		return model.AdReward{}, s.fail(op, rewards.ErrAdInFlight)
	}
	defer s.releaseAd(userID)

	st, err := s.load(ctx, userID)
	if err != nil {
		return model.AdReward{}, err
	}
	if err := rewards.CheckAdReady(st, s.now()); err != nil {
		return model.AdReward{}, s.fail(op, err)
	}

	s.metrics.AdsInFlight.Inc()
	err = s.ads.Show(ctx, userID)
	s.metrics.AdsInFlight.Dec()
	if err != nil {
		if !errors.Is(err, rewards.ErrAdServiceUnavailable) && !errors.Is(err, rewards.ErrAdPlaybackFailed) {
			err = fmt.Errorf("%w: %w", rewards.ErrAdPlaybackFailed, err)
		}
		s.logger.Info("ad not rewarded", zap.Int64("userID", userID), zap.Error(err))
		return model.AdReward{}, s.fail(op, err)
	}

	// Ролик уже досмотрен: обрыв запроса клиентом не должен отменять начисление.
	var reward model.AdReward
	watchedAt := s.now()
	_, err = s.update(context.WithoutCancel(ctx), userID, func(st *model.UserState) error {
		var err error
		reward, err = rewards.RewardAd(st, watchedAt)
		return err
	})
	if err != nil {
		return model.AdReward{}, s.fail(op, err)
	}

	s.metrics.AdsWatched.Inc()
	s.metrics.CoinsCredited.WithLabelValues(metrics.SourceAd).Add(float64(reward.Reward))
	s.host.Publish(hostbridge.Event{
		Action:    hostbridge.ActionAdWatched,
		UserID:    userID,
		Amount:    reward.Reward,
		Timestamp: watchedAt,
	})

	return reward, nil
}

// ClaimDaily начисляет ежедневный бонус за текущую календарную дату.
func (s *Service) ClaimDaily(ctx context.Context, userID int64) (model.ClaimResult, error) {
	const op = "claim_daily"

	now := s.now()
	var res model.ClaimResult
	_, err := s.update(ctx, userID, func(st *model.UserState) error {
		var err error
		res, err = rewards.ClaimDaily(st, now.In(s.loc))
		return err
	})
	if err != nil {
		return model.ClaimResult{}, s.fail(op, err)
	}

	s.metrics.DailyClaims.Inc()
	s.metrics.CoinsCredited.WithLabelValues(metrics.SourceDaily).Add(float64(res.Bonus))
	s.host.Publish(hostbridge.Event{
		Action:    hostbridge.ActionDailyClaim,
		UserID:    userID,
		Amount:    res.Bonus,
		Streak:    res.Streak,
		Bonus:     res.Bonus,
		Timestamp: now,
	})

	return res, nil
}

// ListTasks возвращает каталог заданий с отметками о выполнении.
func (s *Service) ListTasks(ctx context.Context, userID int64) ([]model.TaskView, error) {
	st, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return rewards.TaskViews(st), nil
}

// CompleteTask сразу отмечает задание выполненным. Повторное выполнение ничего не начисляет.
func (s *Service) CompleteTask(ctx context.Context, userID int64, taskID int) (model.TaskResult, error) {
	const op = "complete_task"

	var res model.TaskResult
	_, err := s.update(ctx, userID, func(st *model.UserState) error {
		var err error
		res, err = rewards.CompleteTask(st, taskID)
		return err
	})
	if err != nil {
		return model.TaskResult{}, s.fail(op, err)
	}

	if !res.Credited {
		return res, nil
	}

	s.metrics.TasksCompleted.WithLabelValues(strconv.Itoa(taskID)).Inc()
	s.metrics.CoinsCredited.WithLabelValues(metrics.SourceTask).Add(float64(res.Reward))
	s.host.Publish(hostbridge.Event{
		Action:    hostbridge.ActionTaskCompleted,
		UserID:    userID,
		Amount:    res.Reward,
		TaskID:    taskID,
		Timestamp: s.now(),
	})

	return res, nil
}

// ScheduleTaskCompletion возвращает ссылку задания и планирует его зачисление
// через задержку подтверждения. Повторный вызов для той же пары пользователь/задание
// заменяет ранее запланированное зачисление.
func (s *Service) ScheduleTaskCompletion(ctx context.Context, userID int64, taskID int) (string, error) {
	task, ok := rewards.LookupTask(taskID)
	if !ok {
		return "", s.fail("start_task", rewards.ErrUnknownTask)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrClosed
	}

	key := timerKey{userID: userID, taskID: taskID}
	if prev, ok := s.timers[key]; ok {
		prev.timer.Stop()
	}

	p := &pendingTask{}
	s.timers[key] = p
	p.timer = time.AfterFunc(s.confirmDelay, func() {
		s.runScheduled(key, p)
	})

	return rewards.TaskLink(task), nil
}

// CancelTaskCompletion отменяет запланированное зачисление задания.
func (s *Service) CancelTaskCompletion(userID int64, taskID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := timerKey{userID: userID, taskID: taskID}
	p, ok := s.timers[key]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(s.timers, key)
	return true
}

func (s *Service) runScheduled(key timerKey, p *pendingTask) {
	s.mu.Lock()
	if s.closed || s.timers[key] != p {
		s.mu.Unlock()
		return
	}
	delete(s.timers, key)
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), scheduledTimeout)
	defer cancel()

	if _, err := s.CompleteTask(ctx, key.userID, key.taskID); err != nil {
		s.logger.Error("scheduled task completion failed",
			zap.Int64("userID", key.userID),
			zap.Int("taskID", key.taskID),
			zap.Error(err),
		)
	}
}

func (s *Service) pendingTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// ListWithdrawals возвращает заявки на вывод от новых к старым.
func (s *Service) ListWithdrawals(ctx context.Context, userID int64) ([]model.WithdrawalRequest, error) {
	st, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if st.Withdrawals == nil {
		return []model.WithdrawalRequest{}, nil
	}
	return st.Withdrawals, nil
}

// RequestWithdrawal создаёт заявку на вывод и списывает сумму с баланса.
func (s *Service) RequestWithdrawal(ctx context.Context, userID, amount int64, payoutID string) (model.WithdrawalRequest, error) {
	const op = "request_withdrawal"

	id, err := uuid.NewV7()
	if err != nil {
		return model.WithdrawalRequest{}, fmt.Errorf("generate withdrawal id: %w", err)
	}

	now := s.now()
	var req model.WithdrawalRequest
	_, err = s.update(ctx, userID, func(st *model.UserState) error {
		var err error
		req, err = rewards.RequestWithdrawal(st, amount, payoutID, id.String(), now)
		return err
	})
	if err != nil {
		return model.WithdrawalRequest{}, s.fail(op, err)
	}

	s.metrics.Withdrawals.Inc()
	s.metrics.CoinsWithdrawn.Add(float64(req.Amount))
	s.host.Publish(hostbridge.Event{
		Action:    hostbridge.ActionWithdrawalRequest,
		UserID:    userID,
		Amount:    req.Amount,
		PayoutID:  req.PayoutIdentifier,
		Timestamp: now,
	})

	return req, nil
}

// SavePayoutDraft сохраняет черновик платёжного идентификатора без проверки.
func (s *Service) SavePayoutDraft(ctx context.Context, userID int64, draft string) error {
	_, err := s.update(ctx, userID, func(st *model.UserState) error {
		st.PayoutDraft = draft
		return nil
	})
	return err
}

// fail учитывает отказ операции в метриках и возвращает ошибку без изменений.
func (s *Service) fail(op string, err error) error {
	s.metrics.OperationErrors.WithLabelValues(op, reason(err)).Inc()
	return err
}

func reason(err error) string {
	switch {
	case errors.Is(err, rewards.ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, rewards.ErrUnknownTask):
		return "unknown_task"
	case errors.Is(err, rewards.ErrMissingIdentifier):
		return "missing_identifier"
	case errors.Is(err, rewards.ErrBelowMinimum):
		return "below_minimum"
	case errors.Is(err, rewards.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, rewards.ErrCooldownActive):
		return "cooldown"
	case errors.Is(err, rewards.ErrAdInFlight):
		return "in_flight"
	case errors.Is(err, rewards.ErrAdServiceUnavailable):
		return "ad_unavailable"
	case errors.Is(err, rewards.ErrAdPlaybackFailed):
		return "ad_failed"
	case errors.Is(err, repository.ErrVersionConflict):
		return "version_conflict"
	default:
		return "internal"
	}
}
