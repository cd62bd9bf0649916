package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Instrument names.
const (
	AuthOperationsName   = "gosession.auth.operations"
	RefreshOutcomesName  = "gosession.refresh.outcomes"
	InterceptionsName    = "gosession.gateway.interceptions"
	RefreshLatencyName   = "gosession.refresh.latency.buckets"
	RefreshLatencyCount  = "gosession.refresh.latency.count"
	AuditDroppedName     = "gosession.audit.dropped"
	attrOperation        = "operation"
	attrOutcome          = "outcome"
	attrInterceptionKind = "kind"
	attrUpperBound       = "le"
)

type instrumentKind int

const (
	authOperations instrumentKind = iota
	refreshOutcomes
	interceptions
)

// series places one goSession counter on an instrument with fixed attributes.
type series struct {
	kind  instrumentKind
	attrs metric.ObserveOption
}

func authSeries(op, outcome string) series {
	return series{authOperations, metric.WithAttributes(
		attribute.String(attrOperation, op),
		attribute.String(attrOutcome, outcome),
	)}
}

var counterSeries = map[goSession.MetricID]series{
	goSession.MetricLoginSuccess:         authSeries("login", "success"),
	goSession.MetricLoginFailure:         authSeries("login", "failure"),
	goSession.MetricSignupSuccess:        authSeries("signup", "success"),
	goSession.MetricSignupFailure:        authSeries("signup", "failure"),
	goSession.MetricLogout:               authSeries("logout", "cleared"),
	goSession.MetricLogoutRemoteFailure:  authSeries("logout", "remote_failure"),
	goSession.MetricPasswordResetRequest: authSeries("password_reset_request", "success"),
	goSession.MetricPasswordResetConfirm: authSeries("password_reset_confirm", "success"),
	goSession.MetricPasswordResetFailure: authSeries("password_reset", "failure"),

	goSession.MetricRefreshSuccess: {refreshOutcomes, metric.WithAttributes(attribute.String(attrOutcome, "success"))},
	goSession.MetricRefreshFailure: {refreshOutcomes, metric.WithAttributes(attribute.String(attrOutcome, "failure"))},

	goSession.MetricRefreshQueued:       {interceptions, metric.WithAttributes(attribute.String(attrInterceptionKind, "queued"))},
	goSession.MetricRequestRetried:      {interceptions, metric.WithAttributes(attribute.String(attrInterceptionKind, "retried"))},
	goSession.MetricStaleTokenReplay:    {interceptions, metric.WithAttributes(attribute.String(attrInterceptionKind, "stale_replay"))},
	goSession.MetricRequestUnauthorized: {interceptions, metric.WithAttributes(attribute.String(attrInterceptionKind, "unauthorized"))},
}

type metricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

// OTelExporter publishes session activity as three attribute-keyed counters
// (auth operations, refresh outcomes, gateway interceptions), the refresh
// latency distribution as cumulative bucket gauges labelled by upper bound,
// and the audit drop count.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration

	counters      map[instrumentKind]metric.Int64ObservableCounter
	latency       metric.Int64ObservableGauge
	latencyCount  metric.Int64ObservableGauge
	auditDropped  metric.Int64ObservableCounter
	latencyBounds []metric.ObserveOption
}

func NewOTelExporter(meter metric.Meter, client *goSession.Client) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, client)
}

func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{
		source:        source,
		counters:      make(map[instrumentKind]metric.Int64ObservableCounter, 3),
		latencyBounds: boundAttributes(),
	}

	counterDefs := []struct {
		kind instrumentKind
		name string
		desc string
	}{
		{authOperations, AuthOperationsName, "Login, signup, logout and password reset calls by outcome."},
		{refreshOutcomes, RefreshOutcomesName, "Shared access token refreshes by outcome."},
		{interceptions, InterceptionsName, "401 handling steps taken by the request gateway."},
	}
	observables := make([]metric.Observable, 0, len(counterDefs)+3)
	for _, def := range counterDefs {
		ins, err := meter.Int64ObservableCounter(def.name, metric.WithDescription(def.desc))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", def.name, err)
		}
		e.counters[def.kind] = ins
		observables = append(observables, ins)
	}

	var err error
	if e.latency, err = meter.Int64ObservableGauge(RefreshLatencyName,
		metric.WithDescription("Cumulative refresh latency bucket counts; le is the upper bound in seconds."),
	); err != nil {
		return nil, fmt.Errorf("create latency gauge: %w", err)
	}
	if e.latencyCount, err = meter.Int64ObservableGauge(RefreshLatencyCount,
		metric.WithDescription("Timed refresh calls."),
	); err != nil {
		return nil, fmt.Errorf("create latency count gauge: %w", err)
	}
	if e.auditDropped, err = meter.Int64ObservableCounter(AuditDroppedName,
		metric.WithDescription("Audit events dropped on a full dispatcher buffer."),
	); err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	observables = append(observables, e.latency, e.latencyCount, e.auditDropped)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))

	snap := e.source.MetricsSnapshot()
	// An empty snapshot means metrics are off; report nothing rather than zeros.
	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 {
		return nil
	}

	for id, s := range counterSeries {
		o.ObserveInt64(e.counters[s.kind], int64(snap.Counters[id]), s.attrs)
	}

	raw, ok := snap.Histograms[goSession.MetricRefreshLatency]
	if !ok {
		return nil
	}
	cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
	for i, bound := range e.latencyBounds {
		o.ObserveInt64(e.latency, int64(cumulative[i]), bound)
	}
	o.ObserveInt64(e.latencyCount, int64(cumulative[len(cumulative)-1]))
	return nil
}

func boundAttributes() []metric.ObserveOption {
	out := make([]metric.ObserveOption, 0, len(internaldefs.HistogramBounds)+1)
	for _, b := range internaldefs.HistogramBounds {
		out = append(out, metric.WithAttributes(attribute.String(attrUpperBound, strconv.FormatFloat(b, 'g', -1, 64))))
	}
	return append(out, metric.WithAttributes(attribute.String(attrUpperBound, "+Inf")))
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
