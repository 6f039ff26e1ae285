package otel

import (
	"context"
	"errors"
	"fmt"

	goCred "github.com/MrEthical07/goCred"
	"github.com/MrEthical07/goCred/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goCred.MetricsSnapshot
	AuditDropped() uint64
}

// series is one counter slot observed on a shared instrument.
type series struct {
	id         goCred.MetricID
	instrument metric.Int64ObservableCounter
	attrs      metric.ObserveOption
}

type latency struct {
	id      goCred.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
	bounds  [internaldefs.BucketCount]metric.ObserveOption
}

// OTelExporter keeps the callback registration alive until Close.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	series       []series
	latencies    []latency
	auditDropped metric.Int64ObservableCounter
}

func NewOTelExporter(meter metric.Meter, engine *goCred.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource registers one observable counter per instrument
// named in internaldefs and one bucket gauge per histogram, labelled by le.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &OTelExporter{
		source: source,
		series: make([]series, 0, len(internaldefs.CounterDefs)),
	}

	instruments := make(map[string]metric.Int64ObservableCounter)
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		ins, ok := instruments[def.Instrument]
		if !ok {
			var err error
			ins, err = meter.Int64ObservableCounter(def.Instrument, metric.WithDescription(internaldefs.InstrumentHelp[def.Instrument]))
			if err != nil {
				return nil, fmt.Errorf("create observable counter %s: %w", def.Instrument, err)
			}
			instruments[def.Instrument] = ins
			observables = append(observables, ins)
		}

		kvs := make([]attribute.KeyValue, 0, len(def.Attrs))
		for _, a := range def.Attrs {
			kvs = append(kvs, attribute.String(a.Key, a.Value))
		}
		exporter.series = append(exporter.series, series{
			id:         def.ID,
			instrument: ins,
			attrs:      metric.WithAttributeSet(attribute.NewSet(kvs...)),
		})
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets, err := meter.Int64ObservableGauge(def.Instrument+".bucket", metric.WithDescription("Cumulative sample count at or below le seconds."))
		if err != nil {
			return nil, fmt.Errorf("create histogram bucket gauge %s: %w", def.Instrument, err)
		}
		count, err := meter.Int64ObservableGauge(def.Instrument+".count", metric.WithDescription("Total sample count."))
		if err != nil {
			return nil, fmt.Errorf("create histogram count gauge %s: %w", def.Instrument, err)
		}

		l := latency{id: def.ID, buckets: buckets, count: count}
		for i, le := range internaldefs.HistogramBounds {
			l.bounds[i] = metric.WithAttributes(attribute.String("le", le))
		}
		exporter.latencies = append(exporter.latencies, l)
		observables = append(observables, buckets, count)
	}

	auditDropped, err := meter.Int64ObservableCounter(
		internaldefs.AuditDroppedInstrument,
		metric.WithDescription("Audit events dropped because the dispatcher buffer was full."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	registration, err := meter.RegisterCallback(exporter.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

func (e *OTelExporter) observe(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, s := range e.series {
		observer.ObserveInt64(s.instrument, int64(snapshot.Counters[s.id]), s.attrs)
	}
	for _, l := range e.latencies {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[l.id]))
		for i, n := range cumulative {
			observer.ObserveInt64(l.buckets, int64(n), l.bounds[i])
		}
		observer.ObserveInt64(l.count, int64(cumulative[len(cumulative)-1]))
	}
	observer.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the callback. The instruments stay with the Meter.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
