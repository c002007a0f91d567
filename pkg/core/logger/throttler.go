package logger

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultThrottleInterval = time.Minute

// LogThrottler logs a key at WARN at most once per interval and at DEBUG
// otherwise. The consumer reader uses it for broker errors that repeat on
// every poll while Kafka is unreachable.
type LogThrottler struct {
	log      *zap.Logger
	limiters sync.Map
	interval time.Duration
}

func NewLogThrottler(log *zap.Logger, interval time.Duration) *LogThrottler {
	if interval <= 0 {
		interval = defaultThrottleInterval
	}
	return &LogThrottler{log: log, interval: interval}
}

func (t *LogThrottler) Warn(key string, msg string, fields ...zap.Field) {
	if t.limiter(key).Allow() {
		t.log.Warn(msg, fields...)
		return
	}
	t.log.Debug(msg, fields...)
}

func (t *LogThrottler) limiter(key string) *rate.Limiter {
	if l, ok := t.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}
	actual, _ := t.limiters.LoadOrStore(key, rate.NewLimiter(rate.Every(t.interval), 1))
	return actual.(*rate.Limiter)
}
