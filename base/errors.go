package base

import "github.com/pkg/errors"

var (
	ErrInvalidEnityOptions      = errors.New("invalid passed enity options pointer")
	ErrConflictName             = errors.New("conflict name")
	ErrEmptyOptionsName         = errors.New("empty options name")
	ErrOptionsIsNil             = errors.New("pointer to options is nil")
	ErrFuncIsNil                = errors.New("pointer to function is nil")
	ErrEmptyMetricName          = errors.New("empty metric name")
	ErrFailedTypecastMetric     = errors.New("failed typecast metric")
	ErrIsNotPrometheusCollector = errors.New("it is not a prometheus collector")
)
