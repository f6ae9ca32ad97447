package service

import (
	"time"

	"github.com/SergeiKhy/shortlink/internal/config"
)

type options struct {
	now             func() time.Time
	metrics         *Metrics
	reservedKeys    []string
	metadataTimeout time.Duration
	evictDelay      time.Duration
}

// Option настройка сервисов пакета
type Option func(*options)

// WithClock подменяет источник текущего времени (для тестов)
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithReservedKeys(keys []string) Option {
	return func(o *options) { o.reservedKeys = keys }
}

func WithMetadataTimeout(d time.Duration) Option {
	return func(o *options) { o.metadataTimeout = d }
}

// WithEvictDelay задержка повторного удаления из кэша после архивации.
// Ноль отключает повторное удаление.
func WithEvictDelay(d time.Duration) Option {
	return func(o *options) { o.evictDelay = d }
}

func buildOptions(opts []Option) options {
	o := options{
		now:             time.Now,
		reservedKeys:    config.DefaultReservedKeys,
		metadataTimeout: 5 * time.Second,
		evictDelay:      time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
