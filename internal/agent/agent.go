// Package agent runs the per-car decision loop: coordinate, choose a play when
// none is running, step it, and report the controls.
package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/CaptainRL/captain/internal/comms"
	"github.com/CaptainRL/captain/internal/game"
	"github.com/CaptainRL/captain/internal/intercept"
	"github.com/CaptainRL/captain/internal/plays"
	"github.com/CaptainRL/captain/internal/strategy"
	"github.com/CaptainRL/captain/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// defaultDt is used on the first tick and whenever the host clock jumps.
const (
	defaultDt = 1.0 / 120
	maxDt     = 0.1

	// trajectorySamples bounds the points stored per strike trajectory.
	trajectorySamples = 60
)

// Recorder receives telemetry. Calls must not block the tick.
type Recorder interface {
	RecordDecision(d core.Decision)
	RecordStanceChange(c core.StanceChange)
	RecordTrajectory(t core.TrajectoryRecord)
	RecordTick(p core.TickPerformance)
}

type nopRecorder struct{}

func (nopRecorder) RecordDecision(core.Decision)           {}
func (nopRecorder) RecordStanceChange(core.StanceChange)   {}
func (nopRecorder) RecordTrajectory(core.TrajectoryRecord) {}
func (nopRecorder) RecordTick(core.TickPerformance)        {}

// Recorders fans telemetry out to several recorders in order.
type Recorders []Recorder

func (rs Recorders) RecordDecision(d core.Decision) {
	for _, r := range rs {
		r.RecordDecision(d)
	}
}

func (rs Recorders) RecordStanceChange(c core.StanceChange) {
	for _, r := range rs {
		r.RecordStanceChange(c)
	}
}

func (rs Recorders) RecordTrajectory(t core.TrajectoryRecord) {
	for _, r := range rs {
		r.RecordTrajectory(t)
	}
}

func (rs Recorders) RecordTick(p core.TickPerformance) {
	for _, r := range rs {
		r.RecordTick(p)
	}
}

// Agent controls one car. Tick must be called from a single goroutine.
type Agent struct {
	id    int
	team  int
	sel   *strategy.Selector
	coord *comms.Coordinator
	rec   Recorder
	log   *slog.Logger

	play      plays.Play
	reason    string
	lastTime  float64
	lastTouch float64
	stance    strategy.Stance
	claim     int
	gameTime  float64

	metrics *metrics
}

// New creates the agent for car id on team. rec may be nil.
func New(id, team int, sel *strategy.Selector, coord *comms.Coordinator, rec Recorder, log *slog.Logger) *Agent {
	if rec == nil {
		rec = nopRecorder{}
	}
	if log == nil {
		log = slog.Default()
	}
	a := &Agent{
		id:      id,
		team:    team,
		sel:     sel,
		coord:   coord,
		rec:     rec,
		log:     log.With("car", id),
		claim:   -1,
		metrics: newMetrics(),
	}
	coord.OnStance = a.stanceChanged
	return a
}

// ID is the controlled car index.
func (a *Agent) ID() int { return a.id }

// Play is the running play, or nil between plays.
func (a *Agent) Play() plays.Play { return a.play }

// Coordinator exposes the car's protocol state.
func (a *Agent) Coordinator() *comms.Coordinator { return a.coord }

// Tick runs one decision-and-control cycle against s.
func (a *Agent) Tick(ctx context.Context, s *game.Snapshot) core.Controls {
	start := time.Now()
	a.gameTime = s.Time

	car, err := s.Car(a.id)
	if err != nil || car.Demolished {
		a.stop(ctx, "car unavailable")
		a.lastTime = s.Time
		return core.Controls{}
	}

	dt := s.Time - a.lastTime
	if a.lastTime == 0 || dt <= 0 || dt > maxDt {
		dt = defaultDt
	}
	a.lastTime = s.Time

	a.coord.Update(ctx, s)
	a.interrupt(ctx, s)
	a.lastTouch = s.LatestTouch.Time

	if a.play == nil || a.play.Interruptible() {
		a.preempt(ctx, s, car)
	}
	if a.play == nil {
		if a.coord.Captain() {
			a.coord.Assign(ctx, a.sel.ChooseStances(s, a.team))
		}
		a.start(ctx, s, a.sel.Choose(s, car, a.coord.Stance(), a.coord.Claimed()))
	}

	a.play.Step(s, dt)
	controls := a.play.Controls().Clamped()
	name := a.play.Name()
	if a.play.Finished() {
		a.stop(ctx, "finished")
	}

	elapsed := time.Since(start)
	a.metrics.tick.Record(ctx, float64(elapsed.Microseconds())/1000)
	a.rec.RecordTick(core.TickPerformance{
		GameTime:    s.Time,
		Time:        start,
		CarID:       a.id,
		Duration:    elapsed,
		Play:        name,
		Predictions: len(a.sel.Env().Forecast(s)),
	})
	return controls
}

// interrupt drops an interruptible play whose premise no longer holds: a kickoff
// pause began, another car touched the ball, or the captain assigned a different stance.
func (a *Agent) interrupt(ctx context.Context, s *game.Snapshot) {
	stance := a.coord.Stance()
	changed := stance != a.stance
	a.stance = stance
	if a.play == nil || !a.play.Interruptible() {
		return
	}
	switch {
	case s.KickoffPause && !a.play.Kind().IsKickoff():
		a.stop(ctx, "kickoff")
	case s.LatestTouch.Time > a.lastTouch && s.LatestTouch.CarID != a.id:
		a.stop(ctx, "ball touched")
	case changed && stance != strategy.StanceUndefined:
		a.stop(ctx, "stance changed")
	}
}

// preempt replaces an interruptible play with collision avoidance or a danger
// response. Strikes and kickoffs are never replaced by a danger response.
func (a *Agent) preempt(ctx context.Context, s *game.Snapshot, car core.Car) {
	if a.play != nil && (a.play.Kind() == plays.KindYield || a.play.Kind() == plays.KindEvade) {
		return
	}
	if d, ok := a.sel.Avoid(s, car); ok {
		a.stop(ctx, "avoid")
		a.start(ctx, s, d)
		return
	}
	if a.play == nil || a.play.Kind().IsStrike() || a.play.Kind().IsKickoff() || s.KickoffPause {
		return
	}
	stance, ok := a.sel.Danger(s, car)
	if !ok {
		return
	}
	d := a.sel.ForStance(s, car, stance, a.coord.Claimed())
	if !d.Play.Kind().IsStrike() {
		return
	}
	a.stop(ctx, "danger")
	d.Reason = "danger: " + d.Reason
	a.start(ctx, s, d)
}

func (a *Agent) start(ctx context.Context, s *game.Snapshot, d strategy.Decision) {
	a.play, a.reason = d.Play, d.Reason
	a.stance = a.coord.Stance()
	kind := d.Play.Kind()
	a.metrics.plays.Add(ctx, 1, metric.WithAttributes(attribute.String("play", kind.String())))
	a.log.Debug("play started", "play", d.Play.Name(), "reason", d.Reason, "stance", a.coord.Stance().String())

	a.rec.RecordDecision(core.Decision{
		GameTime: s.Time,
		Time:     time.Now(),
		CarID:    a.id,
		Team:     a.team,
		Play:     d.Play.Name(),
		Reason:   d.Reason,
		Stance:   a.coord.Stance().String(),
		Captain:  a.coord.Captain(),
		Context:  map[string]any{"kind": kind.String(), "interruptible": d.Play.Interruptible()},
	})

	if r, ok := d.Play.(*plays.Refuel); ok {
		if pad, ok := r.Pad(); ok && pad.ID != a.claim {
			a.claim = pad.ID
			a.coord.ClaimPad(ctx, pad.ID)
		}
	}
	if st, ok := d.Play.(interface{ Intercept() intercept.Solution }); ok {
		a.rec.RecordTrajectory(a.trajectory(s, d.Play.Name(), st.Intercept()))
	}
}

func (a *Agent) stop(ctx context.Context, why string) {
	if a.play == nil {
		return
	}
	a.log.Debug("play ended", "play", a.play.Name(), "why", why)
	a.play = nil
	a.reason = ""
	if a.claim >= 0 {
		a.claim = -1
		a.coord.ClaimPad(ctx, -1)
	}
}

// trajectory samples the forecast up to the planned intercept.
func (a *Agent) trajectory(s *game.Snapshot, play string, sol intercept.Solution) core.TrajectoryRecord {
	rec := core.TrajectoryRecord{
		GameTime:      s.Time,
		CarID:         a.id,
		Play:          play,
		InterceptTime: sol.Time,
		Feasible:      sol.Feasible,
	}
	forecast := a.sel.Env().Forecast(s)
	n := len(forecast)
	if sol.Feasible && sol.Index < n {
		n = sol.Index + 1
	}
	stride := max(1, n/trajectorySamples)
	for i := 0; i < n; i += stride {
		rec.Points = append(rec.Points, forecast[i].Position)
		rec.Times = append(rec.Times, forecast[i].Time)
	}
	return rec
}

func (a *Agent) stanceChanged(from, to strategy.Stance, source string) {
	if source != "reset" {
		a.log.Info("stance changed", "from", from.String(), "to", to.String(), "source", source)
	}
	a.rec.RecordStanceChange(core.StanceChange{
		GameTime: a.gameTime,
		Time:     time.Now(),
		CarID:    a.id,
		From:     from.String(),
		To:       to.String(),
		Source:   source,
	})
}
