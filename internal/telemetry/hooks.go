package telemetry

import (
	"context"

	"github.com/AnyUserName/photorend/internal/render"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names.
const (
	OpDuration = "photorend.op.duration"
	OpFired    = "photorend.op.fired"
	OpErrors   = "photorend.op.errors"
)

// LogHook logs every pipeline step at debug level.
type LogHook struct {
	log logrus.FieldLogger
}

func NewLogHook(log logrus.FieldLogger) *LogHook {
	return &LogHook{log: log}
}

func (h *LogHook) Start(render.Event) {}

func (h *LogHook) Stop(ev render.Event) {
	entry := h.log.WithFields(logrus.Fields{
		"pass":    ev.Pass,
		"op":      ev.Kind,
		"index":   ev.Index,
		"fired":   ev.Fired,
		"elapsed": ev.Elapsed,
	})
	if ev.Pass == render.PassFingerprint {
		entry = entry.WithField("fingerprint", ev.Fingerprint)
	}
	switch {
	case ev.Err != nil:
		entry.WithError(ev.Err).Warn("step failed")
	case !ev.Continue:
		entry.Debug("step halted pipeline")
	default:
		entry.Debug("step done")
	}
}

// MetricsHook records step durations and outcomes as OpenTelemetry metrics.
type MetricsHook struct {
	duration metric.Float64Histogram
	fired    metric.Int64Counter
	errors   metric.Int64Counter
}

func NewMetricsHook(meter metric.Meter) (*MetricsHook, error) {
	duration, err := meter.Float64Histogram(
		OpDuration,
		metric.WithDescription("Time spent in one pipeline operation"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	fired, err := meter.Int64Counter(
		OpFired,
		metric.WithDescription("Operations that replaced, or predicted replacing, the image"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}
	errs, err := meter.Int64Counter(
		OpErrors,
		metric.WithDescription("Operations that failed"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}
	return &MetricsHook{duration: duration, fired: fired, errors: errs}, nil
}

func (h *MetricsHook) Start(render.Event) {}

func (h *MetricsHook) Stop(ev render.Event) {
	ctx := context.Background()
	attrs := metric.WithAttributeSet(attribute.NewSet(
		attribute.String("pass", string(ev.Pass)),
		attribute.String("op", ev.Kind),
	))
	h.duration.Record(ctx, ev.Elapsed.Seconds(), attrs)
	if ev.Fired {
		h.fired.Add(ctx, 1, attrs)
	}
	if ev.Err != nil {
		h.errors.Add(ctx, 1, attrs)
	}
}

// Multi fans events out to several hooks in order.
type Multi []render.Hook

func (m Multi) Start(ev render.Event) {
	for _, h := range m {
		h.Start(ev)
	}
}

func (m Multi) Stop(ev render.Event) {
	for _, h := range m {
		h.Stop(ev)
	}
}
