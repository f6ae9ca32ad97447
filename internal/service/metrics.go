package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы редиректа для метрики redirects_total
const (
	outcomeRedirect   = "redirect"
	outcomePreview    = "preview"
	outcomeNotFound   = "not_found"
	outcomeGone       = "gone"
	outcomeBadRequest = "bad_request"
	outcomeError      = "error"
)

// Metrics счётчики сервиса. Нулевой указатель допустим, метрики тогда не пишутся.
type Metrics struct {
	redirects    *prometheus.CounterVec
	cacheErrors  *prometheus.CounterVec
	clickUpdates *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		redirects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shortlink",
			Name:      "redirects_total",
			Help:      "Resolved short links by outcome.",
		}, []string{"outcome"}),
		cacheErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shortlink",
			Name:      "cache_errors_total",
			Help:      "Cache layer failures by operation.",
		}, []string{"op"}),
		clickUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shortlink",
			Name:      "click_updates_total",
			Help:      "Asynchronous click counter updates by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) redirect(outcome string) {
	if m == nil {
		return
	}
	m.redirects.WithLabelValues(outcome).Inc()
}

func (m *Metrics) cacheError(op string) {
	if m == nil {
		return
	}
	m.cacheErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) clickUpdate(result string) {
	if m == nil {
		return
	}
	m.clickUpdates.WithLabelValues(result).Inc()
}
