// Package metrics exposes Prometheus collectors for the API and the worker.
// All recording methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kasir"

type Metrics struct {
	Registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	cashPosts       *prometheus.CounterVec
	cashBalance     prometheus.Gauge
	checkouts       *prometheus.CounterVec
	transactions    *prometheus.CounterVec
	eventsPublished *prometheus.CounterVec
	mirroredRows    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"}),
		cashPosts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cash_posts_total",
			Help:      "Cash ledger posts by category and result",
		}, []string{"category", "result"}),
		cashBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cash_balance_rupiah",
			Help:      "Cash on hand after the last post seen by this process",
		}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkouts by payment method and result",
		}, []string{"payment_method", "result"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_recorded_total",
			Help:      "Transactions written, by category",
		}, []string{"category"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "AMQP events published, by kind and result",
		}, []string{"kind", "result"}),
		mirroredRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheet_rows_mirrored_total",
			Help:      "Rows appended to the spreadsheet mirror, by kind and result",
		}, []string{"kind", "result"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.cashPosts, m.cashBalance,
		m.checkouts, m.transactions, m.eventsPublished, m.mirroredRows,
	)
	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(path).Observe(d.Seconds())
}

// ObserveCashPost counts a ledger post; on success it also moves the balance
// gauge.
func (m *Metrics) ObserveCashPost(category string, balance int64, err error) {
	if m == nil {
		return
	}
	m.cashPosts.WithLabelValues(category, result(err)).Inc()
	if err == nil {
		m.cashBalance.Set(float64(balance))
	}
}

func (m *Metrics) ObserveCheckout(paymentMethod string, err error) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(paymentMethod, result(err)).Inc()
}

func (m *Metrics) ObserveTransaction(category string) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(category).Inc()
}

func (m *Metrics) ObservePublish(kind string, err error) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(kind, result(err)).Inc()
}

func (m *Metrics) ObserveMirror(kind string, err error) {
	if m == nil {
		return
	}
	m.mirroredRows.WithLabelValues(kind, result(err)).Inc()
}
