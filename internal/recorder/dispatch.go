package recorder

import (
	"errors"
	"fmt"

	"github.com/CaptainRL/captain/internal/dispatcher"
	"github.com/CaptainRL/captain/pkg/core"
)

// RegisterHandlers registers the telemetry handlers with the dispatcher.
// Every record type is buffered so the tick never waits on storage.
func (r *Recorder) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(CmdDecision, r.handled(r.handleDecision), dispatcher.Buffered(1000), dispatcher.Logged())
	d.Register(CmdStanceChange, r.handled(r.handleStanceChange), dispatcher.Buffered(500), dispatcher.Logged())
	d.Register(CmdTrajectory, r.handled(r.handleTrajectory), dispatcher.Buffered(200), dispatcher.Logged())
	// high volume: one per car per tick
	d.Register(CmdTick, r.handled(r.handleTick), dispatcher.Buffered(10000))
}

// handled settles the pending count once the handler returns.
func (r *Recorder) handled(h dispatcher.HandlerFunc) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		defer r.pending.Add(-1)
		result, err := h(e)
		if err == nil {
			r.written.Add(1)
		}
		return result, err
	}
}

func payload[T any](e dispatcher.Event) (T, error) {
	v, ok := e.Payload.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: unexpected payload %T", e.Command, e.Payload)
	}
	return v, nil
}

func (r *Recorder) handleDecision(e dispatcher.Event) (any, error) {
	d, err := payload[core.Decision](e)
	if err != nil {
		return nil, err
	}
	var pointErr error
	if r.deps.Points != nil {
		pointErr = r.deps.Points.WriteDecision(d)
	}
	return nil, errors.Join(r.deps.Backend.RecordDecision(&d), pointErr)
}

func (r *Recorder) handleStanceChange(e dispatcher.Event) (any, error) {
	c, err := payload[core.StanceChange](e)
	if err != nil {
		return nil, err
	}
	return nil, r.deps.Backend.RecordStanceChange(&c)
}

func (r *Recorder) handleTrajectory(e dispatcher.Event) (any, error) {
	t, err := payload[core.TrajectoryRecord](e)
	if err != nil {
		return nil, err
	}
	return nil, r.deps.Backend.RecordTrajectory(&t)
}

func (r *Recorder) handleTick(e dispatcher.Event) (any, error) {
	p, err := payload[core.TickPerformance](e)
	if err != nil {
		return nil, err
	}
	var pointErr error
	if r.deps.Points != nil {
		pointErr = r.deps.Points.WriteTick(p)
	}
	return nil, errors.Join(r.deps.Backend.RecordTickPerformance(&p), pointErr)
}
