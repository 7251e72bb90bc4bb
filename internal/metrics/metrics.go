package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	syncUsersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatherly_sync_users_total",
		Help: "Total number of user sync passes.",
	}, []string{"result"})

	syncWeeksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatherly_sync_weeks_total",
		Help: "Total number of (user, week) reconciliation units processed.",
	}, []string{"result"})

	sourceLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gatherly_source_fetch_duration_seconds",
		Help:    "Histogram of busy-interval fetch latencies per provider.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	reconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gatherly_reconcile_duration_seconds",
		Help:    "Histogram of per-week reconciliation latencies.",
		Buckets: prometheus.DefBuckets,
	})

	defaultApplyWeeksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatherly_default_apply_weeks_total",
		Help: "Total number of weeks touched by default schedule application.",
	}, []string{"result"})
)

// IncUserSynced учитывает итог синхронизации одного пользователя
func IncUserSynced(result string) {
	syncUsersTotal.WithLabelValues(result).Inc()
}

// IncWeekSynced учитывает итог сверки одной недели
func IncWeekSynced(result string) {
	syncWeeksTotal.WithLabelValues(result).Inc()
}

// ObserveSourceFetch записывает длительность запроса к источнику
func ObserveSourceFetch(provider string, start time.Time) {
	sourceLatency.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}

// ObserveReconcile записывает длительность сверки недели
func ObserveReconcile(start time.Time) {
	reconcileDuration.Observe(time.Since(start).Seconds())
}

// IncDefaultApplyWeek учитывает итог применения шаблона к одной неделе
func IncDefaultApplyWeek(result string) {
	defaultApplyWeeksTotal.WithLabelValues(result).Inc()
}

// Handler отдаёт endpoint метрик Prometheus
func Handler() http.Handler {
	return promhttp.Handler()
}
