package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// Cache / mail / sweeper
	CacheLookups *prometheus.CounterVec
	MailSends    *prometheus.CounterVec
	SweepRuns    *prometheus.CounterVec
	SweepCleared prometheus.Counter
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blog",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "blog",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				// Sane initial defaults
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "blog",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "blog",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blog",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),

		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blog",
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "List cache lookups by collection and result.",
			},
			[]string{"collection", "result"}, // result=hit|miss
		),
		MailSends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blog",
				Subsystem: "mail",
				Name:      "sends_total",
				Help:      "Outgoing mail by kind and result.",
			},
			[]string{"kind", "result"}, // result=sent|failed
		),
		SweepRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blog",
				Subsystem: "sweeper",
				Name:      "runs_total",
				Help:      "Reset-token sweeps by result.",
			},
			[]string{"result"}, // result=ok|error
		),
		SweepCleared: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "blog",
				Subsystem: "sweeper",
				Name:      "cleared_total",
				Help:      "Expired password reset tokens cleared.",
			},
		),
	}
	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal,
		p.CacheLookups, p.MailSends, p.SweepRuns, p.SweepCleared,
	)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}

func (p *Prom) ObserveCache(collection string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.CacheLookups.WithLabelValues(collection, result).Inc()
}

func (p *Prom) ObserveMail(kind string, err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	p.MailSends.WithLabelValues(kind, result).Inc()
}

func (p *Prom) ObserveSweep(cleared int64, err error) {
	if err != nil {
		p.SweepRuns.WithLabelValues("error").Inc()
		return
	}
	p.SweepRuns.WithLabelValues("ok").Inc()
	p.SweepCleared.Add(float64(cleared))
}
