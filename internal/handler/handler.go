// Package handler содержит HTTP-обработчики API сервиса наград.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/coin-rewards/internal/middleware"
	"github.com/mmeshcher/coin-rewards/internal/model"
	"github.com/mmeshcher/coin-rewards/internal/rewards"
	"github.com/mmeshcher/coin-rewards/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Dashboard(ctx context.Context, user model.TelegramUser) (*model.Dashboard, error)
	AdStatus(ctx context.Context, userID int64) (model.AdStatus, error)
	WatchAd(ctx context.Context, userID int64) (model.AdReward, error)
	ClaimDaily(ctx context.Context, userID int64) (model.ClaimResult, error)
	ListTasks(ctx context.Context, userID int64) ([]model.TaskView, error)
	ScheduleTaskCompletion(ctx context.Context, userID int64, taskID int) (string, error)
	CompleteTask(ctx context.Context, userID int64, taskID int) (model.TaskResult, error)
	ListWithdrawals(ctx context.Context, userID int64) ([]model.WithdrawalRequest, error)
	RequestWithdrawal(ctx context.Context, userID, amount int64, payoutID string) (model.WithdrawalRequest, error)
	SavePayoutDraft(ctx context.Context, userID int64, draft string) error
}

// Handler реализует HTTP-обработчики API сервиса наград.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	metrics        http.Handler
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// metrics может быть nil, тогда /metrics не публикуется.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, metrics http.Handler) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		metrics:        metrics,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encode response error", zap.Error(err))
	}
}

// writeError переводит ошибки правил начисления в HTTP-статусы.
// Всё, что не является отказом по правилам, логируется и возвращается как 500.
func (h *Handler) writeError(w http.ResponseWriter, op string, userID int64, err error) {
	var cooldown *rewards.CooldownError

	switch {
	case errors.As(err, &cooldown):
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(cooldown.Remaining.Seconds()))))
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	case errors.Is(err, rewards.ErrAdInFlight):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	case errors.Is(err, rewards.ErrAlreadyClaimed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, rewards.ErrUnknownTask):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, rewards.ErrMissingIdentifier):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, rewards.ErrBelowMinimum):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, rewards.ErrInsufficientBalance):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, rewards.ErrAdServiceUnavailable):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, rewards.ErrAdPlaybackFailed):
		http.Error(w, rewards.ErrAdPlaybackFailed.Error(), http.StatusBadGateway)
	default:
		h.logger.Error(op+" error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func currentUser(w http.ResponseWriter, r *http.Request) (model.TelegramUser, bool) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	}
	return user, ok
}

// Ping отвечает на проверку живости.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// GetDashboard возвращает снимок состояния текущего пользователя.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	d, err := h.service.Dashboard(r.Context(), user)
	if err != nil {
		h.writeError(w, "dashboard", user.ID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, d)
}

// GetAdStatus возвращает состояние паузы между рекламными наградами.
func (h *Handler) GetAdStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	status, err := h.service.AdStatus(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, "ad status", user.ID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, status)
}

// WatchAd показывает рекламный ролик и начисляет награду.
func (h *Handler) WatchAd(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	res, err := h.service.WatchAd(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, "watch ad", user.ID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// ClaimDaily начисляет ежедневный бонус.
func (h *Handler) ClaimDaily(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	res, err := h.service.ClaimDaily(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, "claim daily", user.ID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// GetTasks возвращает каталог заданий с отметками о выполнении.
func (h *Handler) GetTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	tasks, err := h.service.ListTasks(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, "list tasks", user.ID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, tasks)
}

func taskIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, rewards.ErrUnknownTask.Error(), http.StatusNotFound)
		return 0, false
	}
	return id, true
}

type startTaskResponse struct {
	TaskID int    `json:"task_id"`
	Link   string `json:"link"`
}

// StartTask возвращает ссылку задания и планирует его зачисление.
func (h *Handler) StartTask(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	link, err := h.service.ScheduleTaskCompletion(r.Context(), user.ID, taskID)
	if err != nil {
		h.writeError(w, "start task", user.ID, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, startTaskResponse{TaskID: taskID, Link: link})
}

// CompleteTask сразу отмечает задание выполненным.
func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	res, err := h.service.CompleteTask(r.Context(), user.ID, taskID)
	if err != nil {
		h.writeError(w, "complete task", user.ID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// GetWithdrawals возвращает заявки на вывод текущего пользователя.
func (h *Handler) GetWithdrawals(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	withdrawals, err := h.service.ListWithdrawals(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, "list withdrawals", user.ID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, withdrawals)
}

type withdrawRequest struct {
	Amount   json.RawMessage `json:"amount"`
	PayoutID string          `json:"payout_id"`
}

// Withdraw создаёт заявку на вывод монет.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	// Нечисловая сумма приравнивается к нулю, чтобы проверки шли в обычном порядке.
	amount, err := validation.ParseJSONAmount(req.Amount)
	if err != nil {
		amount = 0
	}

	wr, err := h.service.RequestWithdrawal(r.Context(), user.ID, amount, req.PayoutID)
	if err != nil {
		h.writeError(w, "withdraw", user.ID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, wr)
}

type payoutDraftRequest struct {
	PayoutID string `json:"payout_id"`
}

// SavePayoutDraft сохраняет черновик платёжного идентификатора.
func (h *Handler) SavePayoutDraft(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req payoutDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.SavePayoutDraft(r.Context(), user.ID, req.PayoutID); err != nil {
		h.writeError(w, "save payout draft", user.ID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
