// Package stmmetrics provides OpenTelemetry integration for the
// transaction engine, LOTable, and HOPTable in this module.
//
// This package implements a Collector that records commit/abort/retry
// outcomes and collision events as OpenTelemetry counters, compatible with
// any OTEL backend (Prometheus, Jaeger, DataDog, Grafana).
//
// # Usage
//
//	exporter, _ := prometheus.New()
//	provider := metric.NewMeterProvider(metric.WithReader(exporter))
//	collector, _ := stmmetrics.New(provider)
//
// A Collector built with NewNoop records nothing and is the safe default
// for callers who have not wired up an OTEL provider.
//
// # Metrics Exposed
//
//   - stm_commits_total: commits, labeled by isolation level
//   - stm_aborts_total: fatal aborts, labeled by isolation level
//   - stm_retries_total: transient-conflict retries, labeled by isolation level
//   - stm_hoptable_capacity_failures_total: HOPTable inserts that ran out of ADD_RANGE
//   - stm_lotable_conflicts_total: LOTable shard commit conflicts
//
// Grounded on agilira-balios/otel/collector.go's functional-options
// collector construction and per-operation counter/histogram wiring.
package stmmetrics

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Collector records transaction-engine events to OpenTelemetry instruments.
//
// Thread-safety: safe for concurrent use by multiple goroutines; the
// underlying OTEL instruments are themselves thread-safe.
type Collector struct {
	commits    metric.Int64Counter
	aborts     metric.Int64Counter
	retries    metric.Int64Counter
	hopCapFail metric.Int64Counter
	loConflict metric.Int64Counter
}

// Options configures a Collector.
type Options struct {
	// MeterName is the name of the OpenTelemetry meter.
	// Default: "github.com/lever-go/stm".
	MeterName string
}

// Option is a functional option for configuring a Collector.
type Option func(*Options)

// WithMeterName sets a custom meter name, useful for distinguishing metrics
// from multiple engine instances.
func WithMeterName(name string) Option {
	return func(o *Options) { o.MeterName = name }
}

// New creates a Collector backed by provider. provider must not be nil; use
// NewNoop for a Collector that discards everything.
func New(provider metric.MeterProvider, opts ...Option) (*Collector, error) {
	if provider == nil {
		return nil, errors.New("stmmetrics: meter provider cannot be nil")
	}

	options := Options{MeterName: "github.com/lever-go/stm"}
	for _, opt := range opts {
		opt(&options)
	}

	meter := provider.Meter(options.MeterName)
	c := &Collector{}

	var err error
	c.commits, err = meter.Int64Counter(
		"stm_commits_total",
		metric.WithDescription("Total number of committed transactions"),
	)
	if err != nil {
		return nil, err
	}
	c.aborts, err = meter.Int64Counter(
		"stm_aborts_total",
		metric.WithDescription("Total number of fatally aborted transactions"),
	)
	if err != nil {
		return nil, err
	}
	c.retries, err = meter.Int64Counter(
		"stm_retries_total",
		metric.WithDescription("Total number of transient-conflict retries"),
	)
	if err != nil {
		return nil, err
	}
	c.hopCapFail, err = meter.Int64Counter(
		"stm_hoptable_capacity_failures_total",
		metric.WithDescription("Total number of HOPTable inserts that exhausted ADD_RANGE"),
	)
	if err != nil {
		return nil, err
	}
	c.loConflict, err = meter.Int64Counter(
		"stm_lotable_conflicts_total",
		metric.WithDescription("Total number of LOTable shard commit conflicts"),
	)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// NewNoop returns a Collector whose instruments discard every recording,
// for callers that have not configured an OTEL MeterProvider.
func NewNoop() *Collector {
	c, err := New(noop.NewMeterProvider())
	if err != nil {
		// noop.NewMeterProvider's instruments never fail to register.
		panic(err)
	}
	return c
}

// RecordCommit records a successful commit under the given isolation level.
func (c *Collector) RecordCommit(isolation string) {
	c.commits.Add(context.Background(), 1, metric.WithAttributes(attribute.String("isolation", isolation)))
}

// RecordAbort records a fatal (caller-initiated, non-retried) abort under
// the given isolation level.
func (c *Collector) RecordAbort(isolation string) {
	c.aborts.Add(context.Background(), 1, metric.WithAttributes(attribute.String("isolation", isolation)))
}

// RecordRetry records a transient-conflict retry under the given isolation
// level.
func (c *Collector) RecordRetry(isolation string) {
	c.retries.Add(context.Background(), 1, metric.WithAttributes(attribute.String("isolation", isolation)))
}

// RecordHOPCapacityFailure records an Insert that could not find or
// displace a free slot within ADD_RANGE.
func (c *Collector) RecordHOPCapacityFailure() {
	c.hopCapFail.Add(context.Background(), 1)
}

// RecordLOTableConflict records a shard transaction that lost the commit
// race and had to be retried.
func (c *Collector) RecordLOTableConflict() {
	c.loConflict.Add(context.Background(), 1)
}
