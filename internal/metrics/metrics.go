// Package metrics содержит метрики Prometheus сервиса наград.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Источники начислений.
const (
	SourceAd    = "ad"
	SourceDaily = "daily"
	SourceTask  = "task"
)

// Metrics объединяет счётчики операций с монетами.
type Metrics struct {
	registry *prometheus.Registry

	CoinsCredited   *prometheus.CounterVec
	CoinsWithdrawn  prometheus.Counter
	AdsWatched      prometheus.Counter
	DailyClaims     prometheus.Counter
	TasksCompleted  *prometheus.CounterVec
	Withdrawals     prometheus.Counter
	OperationErrors *prometheus.CounterVec
	HostEventsDrop  *prometheus.CounterVec
	AdsInFlight     prometheus.Gauge
}

// New регистрирует метрики в отдельном реестре.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		CoinsCredited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rewards_coins_credited_total",
			Help: "Coins credited to balances, by source.",
		}, []string{"source"}),
		CoinsWithdrawn: f.NewCounter(prometheus.CounterOpts{
			Name: "rewards_coins_withdrawn_total",
			Help: "Coins debited by withdrawal requests.",
		}),
		AdsWatched: f.NewCounter(prometheus.CounterOpts{
			Name: "rewards_ads_watched_total",
			Help: "Rewarded ads watched to completion.",
		}),
		DailyClaims: f.NewCounter(prometheus.CounterOpts{
			Name: "rewards_daily_claims_total",
			Help: "Successful daily bonus claims.",
		}),
		TasksCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rewards_tasks_completed_total",
			Help: "First-time task completions, by task id.",
		}, []string{"task"}),
		Withdrawals: f.NewCounter(prometheus.CounterOpts{
			Name: "rewards_withdrawal_requests_total",
			Help: "Accepted withdrawal requests.",
		}),
		OperationErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rewards_operation_errors_total",
			Help: "Rejected or failed operations, by operation and reason.",
		}, []string{"operation", "reason"}),
		HostEventsDrop: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rewards_host_events_dropped_total",
			Help: "Host notifications dropped because the queue was full.",
		}, []string{"action"}),
		AdsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "rewards_ads_in_flight",
			Help: "Ad views currently awaiting the ad network.",
		}),
	}
}

// Handler возвращает HTTP-обработчик для /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
