package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

// reading is the data for one collection cycle. Histogram buckets are made cumulative
// on first use and cached for the rest of the cycle.
type reading struct {
	snapshot   goSession.MetricsSnapshot
	dropped    uint64
	cumulative map[goSession.MetricID][8]uint64
}

func (r *reading) buckets(id goSession.MetricID) [8]uint64 {
	if b, ok := r.cumulative[id]; ok {
		return b
	}
	b := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(r.snapshot.Histograms[id]))
	r.cumulative[id] = b
	return b
}

type observeFunc func(metric.Observer, *reading)

// OTelExporter publishes controller metrics through observable instruments. Counters
// map to Int64ObservableCounter; each histogram becomes one cumulative gauge per bucket
// plus a _count gauge, because the metric API has no observable histogram.
type OTelExporter struct {
	source       metricsSource
	meter        metric.Meter
	registration metric.Registration
	instruments  []metric.Observable
	observers    []observeFunc
}

// NewOTelExporter registers instruments on meter that read from c.
func NewOTelExporter(meter metric.Meter, c *goSession.Controller) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, c)
}

// NewOTelExporterFromSource registers instruments on meter that read from source.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source, meter: meter}

	for _, def := range internaldefs.CounterDefs {
		id := def.ID
		if err := e.counter(def.Name, def.Help, func(r *reading) uint64 { return r.snapshot.Counters[id] }); err != nil {
			return nil, err
		}
	}

	for _, def := range internaldefs.HistogramDefs {
		id := def.ID
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			name := def.Name + "_bucket_le_" + suffix
			if err := e.gauge(name, "Cumulative histogram bucket count.", func(r *reading) uint64 { return r.buckets(id)[i] }); err != nil {
				return nil, err
			}
		}
		last := len(internaldefs.HistogramBoundSuffix) - 1
		if err := e.gauge(def.Name+"_count", "Histogram total sample count.", func(r *reading) uint64 { return r.buckets(id)[last] }); err != nil {
			return nil, err
		}
	}

	if err := e.counter(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, func(r *reading) uint64 { return r.dropped }); err != nil {
		return nil, err
	}

	registration, err := meter.RegisterCallback(e.collect, e.instruments...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = registration
	return e, nil
}

func (e *OTelExporter) counter(name, help string, value func(*reading) uint64) error {
	ins, err := e.meter.Int64ObservableCounter(name, metric.WithDescription(help))
	if err != nil {
		return fmt.Errorf("create observable counter %s: %w", name, err)
	}
	e.instruments = append(e.instruments, ins)
	e.observers = append(e.observers, func(o metric.Observer, r *reading) {
		o.ObserveInt64(ins, int64(value(r)))
	})
	return nil
}

func (e *OTelExporter) gauge(name, help string, value func(*reading) uint64) error {
	ins, err := e.meter.Int64ObservableGauge(name, metric.WithDescription(help))
	if err != nil {
		return fmt.Errorf("create observable gauge %s: %w", name, err)
	}
	e.instruments = append(e.instruments, ins)
	e.observers = append(e.observers, func(o metric.Observer, r *reading) {
		o.ObserveInt64(ins, int64(value(r)))
	})
	return nil
}

func (e *OTelExporter) collect(_ context.Context, o metric.Observer) error {
	r := &reading{
		snapshot:   e.source.MetricsSnapshot(),
		dropped:    e.source.AuditDropped(),
		cumulative: make(map[goSession.MetricID][8]uint64, len(internaldefs.HistogramDefs)),
	}
	for _, observe := range e.observers {
		observe(o, r)
	}
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
