package agent

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/CaptainRL/captain/internal/agent"

type metrics struct {
	tick  metric.Float64Histogram
	plays metric.Int64Counter
}

// newMetrics uses the global meter provider. An instrument that cannot be created
// is replaced by a no-op.
func newMetrics() *metrics {
	m := otel.Meter(instrumentationName)
	out := &metrics{}
	var err error
	out.tick, err = m.Float64Histogram("captain.tick.duration",
		metric.WithDescription("Decision and control time per car tick"),
		metric.WithUnit("ms"))
	if err != nil {
		out.tick = noop.Float64Histogram{}
	}
	out.plays, err = m.Int64Counter("captain.plays.started",
		metric.WithDescription("Plays started, by kind"))
	if err != nil {
		out.plays = noop.Int64Counter{}
	}
	return out
}
