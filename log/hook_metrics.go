package log

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// LevelCounterHook counts events of one level.
type LevelCounterHook struct {
	level  zerolog.Level
	metric prometheus.Counter
}

func NewMetricErrorHook(metric prometheus.Counter) *LevelCounterHook {
	return &LevelCounterHook{level: zerolog.ErrorLevel, metric: metric}
}

func NewMetricWarnHook(metric prometheus.Counter) *LevelCounterHook {
	return &LevelCounterHook{level: zerolog.WarnLevel, metric: metric}
}

func (h *LevelCounterHook) Run(_ *zerolog.Event, level zerolog.Level, _ string) {
	if level != h.level {
		return
	}

	h.metric.Inc()
}
