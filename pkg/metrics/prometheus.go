package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OpProvision    = "provision"
	OpAuthenticate = "authenticate"
	OpWithdraw     = "withdraw"
	OpDeposit      = "deposit"
	OpTransfer     = "transfer"

	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
)

type MetricsCollector struct {
	registry          *prometheus.Registry
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	movedAmount       *prometheus.CounterVec
	accountBalance    *prometheus.GaugeVec
	accounts          prometheus.Gauge
	logger            *slog.Logger
}

func NewMetricsCollector(logger *slog.Logger) *MetricsCollector {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()

	collector := &MetricsCollector{
		registry: registry,
		operations: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Total number of ledger operations by kind and outcome",
		}, []string{"operation", "outcome"}),
		operationDuration: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_operation_duration_seconds",
			Help:    "Time taken to apply a ledger operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		movedAmount: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_moved_minor_units_total",
			Help: "Sum of successfully applied amounts in minor units",
		}, []string{"operation"}),
		accountBalance: promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
			Name: "ledger_account_balance_minor_units",
			Help: "Current account balance in minor units",
		}, []string{"account_id"}),
		accounts: promauto.With(registry).NewGauge(prometheus.GaugeOpts{
			Name: "ledger_accounts",
			Help: "Number of provisioned accounts",
		}),
		logger: logger,
	}

	return collector
}

// RecordOperation counts one call. amount is added to the moved total only on success.
func (m *MetricsCollector) RecordOperation(op string, duration time.Duration, amount int64, success bool) {
	outcome := OutcomeRejected
	if success {
		outcome = OutcomeSuccess
		if amount > 0 {
			m.movedAmount.WithLabelValues(op).Add(float64(amount))
		}
	}

	m.operations.WithLabelValues(op, outcome).Inc()
	m.operationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func (m *MetricsCollector) UpdateAccountBalance(accountID int64, balance int64) {
	m.accountBalance.WithLabelValues(strconv.FormatInt(accountID, 10)).Set(float64(balance))
}

func (m *MetricsCollector) SetAccounts(n int) {
	m.accounts.Set(float64(n))
}

func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

func (m *MetricsCollector) GetHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *MetricsCollector) StartMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.GetHandler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		m.logger.Info("Starting metrics server", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("Metrics server failed", slog.String("error", err.Error()))
		}
	}()

	return server
}

func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	m.logger.Info("Metrics collector shutdown complete")
	return nil
}
