package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/metrics/export/internaldefs"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source supplies snapshots to the exporter. *authgate.Gateway implements it.
type Source interface {
	MetricsSnapshot() authgate.MetricsSnapshot
	AuditDropped() uint64
}

type eventSeries struct {
	id    authgate.MetricID
	attrs metric.ObserveOption
}

type latencySeries struct {
	id      authgate.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// Exporter publishes gateway counters as one authgate.events counter keyed by
// the "event" attribute, and each latency histogram as cumulative bucket
// gauges keyed by "le".
type Exporter struct {
	source       Source
	registration metric.Registration

	events  metric.Int64ObservableCounter
	series  []eventSeries
	latency []latencySeries
	leAttrs [8]metric.ObserveOption
	dropped metric.Int64ObservableCounter
}

// New registers instruments on meter that read gw on every collection.
func New(meter metric.Meter, gw *authgate.Gateway) (*Exporter, error) {
	if gw == nil {
		return nil, ErrNilSource
	}
	return NewFromSource(meter, gw)
}

func NewFromSource(meter metric.Meter, source Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}
	for i, le := range internaldefs.HistogramBounds {
		e.leAttrs[i] = metric.WithAttributeSet(attribute.NewSet(attribute.String("le", le)))
	}

	var err error
	e.events, err = meter.Int64ObservableCounter("authgate.events",
		metric.WithDescription("Gateway authentication events by outcome."),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create events counter: %w", err)
	}
	for _, def := range internaldefs.CounterDefs {
		e.series = append(e.series, eventSeries{
			id:    def.ID,
			attrs: metric.WithAttributeSet(attribute.NewSet(attribute.String("event", def.Event()))),
		})
	}

	observables := []metric.Observable{e.events}
	for _, def := range internaldefs.HistogramDefs {
		s := latencySeries{id: def.ID}
		s.buckets, err = meter.Int64ObservableGauge(def.Name+"_bucket",
			metric.WithDescription(def.Help+" Cumulative count per upper bound."),
		)
		if err != nil {
			return nil, fmt.Errorf("create bucket gauge %s: %w", def.Name, err)
		}
		s.count, err = meter.Int64ObservableGauge(def.Name+"_count",
			metric.WithDescription(def.Help+" Total samples."),
		)
		if err != nil {
			return nil, fmt.Errorf("create count gauge %s: %w", def.Name, err)
		}
		e.latency = append(e.latency, s)
		observables = append(observables, s.buckets, s.count)
	}

	e.dropped, err = meter.Int64ObservableCounter("authgate.audit.dropped",
		metric.WithDescription("Audit events dropped on a full dispatcher queue."),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	observables = append(observables, e.dropped)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()

	for _, s := range e.series {
		o.ObserveInt64(e.events, int64(snap.Counters[s.id]), s.attrs)
	}
	for _, s := range e.latency {
		raw, ok := snap.Histograms[s.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, v := range cumulative {
			o.ObserveInt64(s.buckets, int64(v), e.leAttrs[i])
		}
		o.ObserveInt64(s.count, int64(cumulative[len(cumulative)-1]))
	}
	o.ObserveInt64(e.dropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
