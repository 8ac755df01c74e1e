package base

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/soldatov-s/go-dbpool/x/stringsx"
)

type MetricGateway interface {
	prometheus.Collector
}

// MetricFunc refreshes a metric right before it is scraped. Metrics that are
// updated in place (counters, histograms) have no MetricFunc.
type MetricFunc func(ctx context.Context, metric MetricGateway) error

type GaugeFunc func(ctx context.Context) (float64, error)

type MetricOptions struct {
	Name   string
	Metric MetricGateway
	Func   MetricFunc
}

// metricName builds "<full name>_<postfix>" with spaces turned to underscores.
func metricName(fullName, postfix string) string {
	return stringsx.MetricName(fullName + "_" + strings.ReplaceAll(postfix, " ", "_"))
}

func gaugeOptions(fullName, postfix, help string, f GaugeFunc) *MetricOptions {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: metricName(fullName, postfix),
		Help: stringsx.JoinStrings(" ", fullName, help),
	})

	return &MetricOptions{
		Name:   metricName(fullName, postfix),
		Metric: gauge,
		Func: func(ctx context.Context, m MetricGateway) error {
			g, ok := m.(prometheus.Gauge)
			if !ok {
				return ErrFailedTypecastMetric
			}
			v, err := f(ctx)
			if err != nil {
				return errors.Wrap(err, "metric handler")
			}
			g.Set(v)
			return nil
		},
	}
}

// MapMetricsOptions is the set of metrics of one enity keyed by metric name.
type MapMetricsOptions struct {
	mu      sync.Mutex
	options map[string]*MetricOptions
}

func NewMapMetricsOptions() *MapMetricsOptions {
	return &MapMetricsOptions{
		options: make(map[string]*MetricOptions),
	}
}

func (mmo *MapMetricsOptions) Append(src *MapMetricsOptions) error {
	src.mu.Lock()
	defer src.mu.Unlock()
	mmo.mu.Lock()
	defer mmo.mu.Unlock()

	for k, m := range src.options {
		if _, ok := mmo.options[k]; ok {
			return errors.Wrapf(ErrConflictName, "name: %s", k)
		}

		mmo.options[k] = m
	}

	return nil
}

func (mmo *MapMetricsOptions) Add(options *MetricOptions) error {
	if options == nil {
		return ErrOptionsIsNil
	}

	if options.Name == "" {
		return ErrEmptyMetricName
	}

	if options.Metric == nil {
		return ErrIsNotPrometheusCollector
	}

	mmo.mu.Lock()
	defer mmo.mu.Unlock()

	if _, ok := mmo.options[options.Name]; ok {
		return errors.Wrapf(ErrConflictName, "name: %s", options.Name)
	}

	mmo.options[options.Name] = options

	return nil
}

// addTyped adds the metric and hands it back as its concrete type.
func addTyped[T MetricGateway](mmo *MapMetricsOptions, options *MetricOptions) (T, error) {
	var zero T
	if err := mmo.Add(options); err != nil {
		return zero, errors.Wrap(err, "add to metrics map")
	}

	m, ok := options.Metric.(T)
	if !ok {
		return zero, ErrFailedTypecastMetric
	}

	return m, nil
}

func (mmo *MapMetricsOptions) AddMetricGauge(fullName, postfix, help string, f GaugeFunc) (prometheus.Gauge, error) {
	return addTyped[prometheus.Gauge](mmo, gaugeOptions(fullName, postfix, help, f))
}

func (mmo *MapMetricsOptions) AddCounter(fullName, postfix, help string) (prometheus.Counter, error) {
	name := metricName(fullName, postfix)
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: name,
		Help: stringsx.JoinStrings(" ", fullName, help),
	})

	return addTyped[prometheus.Counter](mmo, &MetricOptions{Name: name, Metric: counter})
}

func (mmo *MapMetricsOptions) AddHistogram(fullName, postfix, help string) (prometheus.Histogram, error) {
	name := metricName(fullName, postfix)
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    name,
		Help:    stringsx.JoinStrings(" ", fullName, help),
		Buckets: prometheus.DefBuckets,
	})

	return addTyped[prometheus.Histogram](mmo, &MetricOptions{Name: name, Metric: histogram})
}

func (mmo *MapMetricsOptions) AddHistogramVec(fullName, postfix, help string, labels []string) (*prometheus.HistogramVec, error) {
	name := metricName(fullName, postfix)
	histogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name,
		Help:    stringsx.JoinStrings(" ", fullName, help),
		Buckets: prometheus.DefBuckets,
	}, labels)

	return addTyped[*prometheus.HistogramVec](mmo, &MetricOptions{Name: name, Metric: histogram})
}

func (mmo *MapMetricsOptions) AddCounterVec(fullName, postfix, help string, labels []string) (*prometheus.CounterVec, error) {
	name := metricName(fullName, postfix)
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: stringsx.JoinStrings(" ", fullName, help),
	}, labels)

	return addTyped[*prometheus.CounterVec](mmo, &MetricOptions{Name: name, Metric: counter})
}

// Update runs every MetricFunc.
func (mmo *MapMetricsOptions) Update(ctx context.Context) error {
	mmo.mu.Lock()
	opts := make([]*MetricOptions, 0, len(mmo.options))
	for _, v := range mmo.options {
		opts = append(opts, v)
	}
	mmo.mu.Unlock()

	for _, v := range opts {
		if v.Func == nil {
			continue
		}
		if err := v.Func(ctx, v.Metric); err != nil {
			return errors.Wrapf(err, "update metric %q", v.Name)
		}
	}

	return nil
}

func (mmo *MapMetricsOptions) Registrate(register prometheus.Registerer) error {
	mmo.mu.Lock()
	defer mmo.mu.Unlock()

	for _, v := range mmo.options {
		if err := register.Register(v.Metric); err != nil {
			return errors.Wrapf(err, "registrate metric %q", v.Name)
		}
	}

	return nil
}

// Unregistrate removes every metric from register. Metrics that were never
// registered are skipped.
func (mmo *MapMetricsOptions) Unregistrate(register prometheus.Registerer) {
	mmo.mu.Lock()
	defer mmo.mu.Unlock()

	for _, v := range mmo.options {
		register.Unregister(v.Metric)
	}
}
