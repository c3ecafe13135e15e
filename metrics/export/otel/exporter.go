package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/metrics/export/internaldefs"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() tokenguard.MetricsSnapshot
}

// OTelExporter keeps the callback registration so Close can drop the instruments.
type OTelExporter struct {
	registration metric.Registration
}

func NewOTelExporter(meter metric.Meter, engine *tokenguard.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource registers an observable counter per engine counter, and a gauge
// per latency bucket plus a count gauge. All of them are fed by one snapshot per collection.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil || source == (*tokenguard.Engine)(nil) {
		return nil, ErrNilSource
	}

	counters := make([]metric.Int64ObservableCounter, len(internaldefs.CounterDefs))
	observables := make([]metric.Observable, 0, len(counters)+len(internaldefs.Buckets)+1)
	for i, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", def.Name, err)
		}
		counters[i] = ins
		observables = append(observables, ins)
	}

	buckets := make([]metric.Int64ObservableGauge, len(internaldefs.Buckets))
	for i, bucket := range internaldefs.Buckets {
		name := internaldefs.Latency.Name + "_bucket_le_" + bucket.Suffix
		ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Authorize calls at or under "+bucket.Label+"s."))
		if err != nil {
			return nil, fmt.Errorf("create gauge %s: %w", name, err)
		}
		buckets[i] = ins
		observables = append(observables, ins)
	}
	count, err := meter.Int64ObservableGauge(internaldefs.Latency.Name+"_count", metric.WithDescription("Authorize calls timed."))
	if err != nil {
		return nil, fmt.Errorf("create latency count gauge: %w", err)
	}
	observables = append(observables, count)

	registration, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		snapshot := source.MetricsSnapshot()
		for i, def := range internaldefs.CounterDefs {
			o.ObserveInt64(counters[i], int64(snapshot.Counters[def.ID]))
		}
		raw, ok := snapshot.Histograms[internaldefs.Latency.ID]
		if !ok {
			return nil
		}
		cumulative := internaldefs.Cumulative(raw)
		for i := range buckets {
			o.ObserveInt64(buckets[i], int64(cumulative[i]))
		}
		o.ObserveInt64(count, int64(cumulative[len(cumulative)-1]))
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return &OTelExporter{registration: registration}, nil
}

func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
