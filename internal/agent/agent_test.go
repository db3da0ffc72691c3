package agent

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/CaptainRL/captain/internal/comms"
	"github.com/CaptainRL/captain/internal/config"
	"github.com/CaptainRL/captain/internal/game/gametest"
	"github.com/CaptainRL/captain/internal/plays"
	"github.com/CaptainRL/captain/internal/strategy"
	"github.com/CaptainRL/captain/pkg/core"
	"github.com/CaptainRL/captain/pkg/hostproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spyRecorder struct {
	mu           sync.Mutex
	decisions    []core.Decision
	stances      []core.StanceChange
	trajectories []core.TrajectoryRecord
	ticks        []core.TickPerformance
}

func (r *spyRecorder) RecordDecision(d core.Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, d)
}

func (r *spyRecorder) RecordStanceChange(c core.StanceChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stances = append(r.stances, c)
}

func (r *spyRecorder) RecordTrajectory(t core.TrajectoryRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trajectories = append(r.trajectories, t)
}

func (r *spyRecorder) RecordTick(p core.TickPerformance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks = append(r.ticks, p)
}

func newSelector() *strategy.Selector {
	return strategy.NewSelector(plays.NewEnv(config.DefaultTuning()))
}

func newAgent(id int, sel *strategy.Selector, ch comms.Channel, rec Recorder) *Agent {
	return New(id, 0, sel, comms.NewCoordinator(0, id, ch, nil), rec, nil)
}

func restingBall(y float64) core.Ball {
	return gametest.Ball(core.Vec(0, y, core.BallRadius), core.Vec3{})
}

func TestAgent_MissingCarIsNeutral(t *testing.T) {
	a := newAgent(3, newSelector(), comms.Discard{}, nil)
	s := gametest.Snapshot(1, restingBall(0), gametest.Car(0, 0, core.Vec(0, -2000, 17), core.Vec(0, 1, 0), 0))

	assert.Equal(t, core.Controls{}, a.Tick(context.Background(), s))
	assert.Nil(t, a.Play())
}

func TestAgent_LoneCarKickoff(t *testing.T) {
	rec := &spyRecorder{}
	a := newAgent(0, newSelector(), comms.Discard{}, rec)
	car := gametest.Car(0, 0, core.Vec(0, -2000, 17), core.Vec(0, 1, 0), 0)
	s := gametest.Snapshot(1, restingBall(0), car)

	a.Tick(context.Background(), s)

	require.NotNil(t, a.Play())
	assert.Equal(t, plays.KindSimpleKickoff, a.Play().Kind())
	assert.True(t, a.Coordinator().Captain())
	assert.Equal(t, strategy.StanceKickoff, a.Coordinator().Stance())

	require.Len(t, rec.decisions, 1)
	assert.Equal(t, "KICKOFF", rec.decisions[0].Stance)
	assert.True(t, rec.decisions[0].Captain)
	require.Len(t, rec.stances, 1)
	assert.Equal(t, "captain", rec.stances[0].Source)
	require.Len(t, rec.ticks, 1)
	assert.Equal(t, a.Play().Name(), rec.ticks[0].Play)

	// the stance set while choosing does not interrupt the play on the next tick
	first := a.Play()
	a.Tick(context.Background(), gametest.Snapshot(1+1.0/120, restingBall(0), car))
	assert.Same(t, first, a.Play())
}

func TestAgent_TouchInterruptsStrike(t *testing.T) {
	rec := &spyRecorder{}
	a := newAgent(0, newSelector(), comms.Discard{}, rec)
	car := gametest.Car(0, 0, core.Vec(0, -500, 17), core.Vec(0, 1, 0), 0)

	a.Tick(context.Background(), gametest.Snapshot(1, restingBall(1000), car))
	require.NotNil(t, a.Play())
	require.True(t, a.Play().Kind().IsStrike(), a.Play().Name())
	require.True(t, a.Play().Interruptible())
	require.Len(t, rec.decisions, 1)
	require.NotEmpty(t, rec.trajectories)
	assert.NotEmpty(t, rec.trajectories[0].Points)
	assert.Len(t, rec.trajectories[0].Times, len(rec.trajectories[0].Points))

	s := gametest.Snapshot(1+1.0/120, restingBall(1000), car)
	s.LatestTouch = core.Touch{CarID: 5, Team: 1, Time: 1}
	a.Tick(context.Background(), s)
	assert.Len(t, rec.decisions, 2)
}

func TestAgent_OwnTouchKeepsStrike(t *testing.T) {
	rec := &spyRecorder{}
	a := newAgent(0, newSelector(), comms.Discard{}, rec)
	car := gametest.Car(0, 0, core.Vec(0, -500, 17), core.Vec(0, 1, 0), 0)

	a.Tick(context.Background(), gametest.Snapshot(1, restingBall(1000), car))
	first := a.Play()
	require.NotNil(t, first)
	require.True(t, first.Interruptible())

	s := gametest.Snapshot(1+1.0/120, restingBall(1000), car)
	s.LatestTouch = core.Touch{CarID: 0, Team: 0, Time: 1}
	a.Tick(context.Background(), s)
	assert.Len(t, rec.decisions, 1)
	assert.Same(t, first, a.Play())
}

func TestAgent_ControlsClamped(t *testing.T) {
	a := newAgent(0, newSelector(), comms.Discard{}, nil)
	car := gametest.Car(0, 0, core.Vec(0, -500, 17), core.Vec(0, 1, 0), 0)
	c := a.Tick(context.Background(), gametest.Snapshot(1, restingBall(1000), car))
	for _, v := range []float64{c.Throttle, c.Steer, c.Pitch, c.Yaw, c.Roll} {
		assert.LessOrEqual(t, math.Abs(v), 1.0)
	}
}

func TestAgent_CaptainAssignsStances(t *testing.T) {
	ctx := context.Background()
	sel := newSelector()
	bus := comms.NewBus(16)
	a := newAgent(0, sel, bus.Join(0), nil)
	b := newAgent(1, sel, bus.Join(1), nil)

	s := gametest.Snapshot(1, restingBall(1000),
		gametest.Car(0, 0, core.Vec(0, -500, 17), core.Vec(0, 1, 0), 0),
		gametest.Car(1, 0, core.Vec(0, -2500, 17), core.Vec(0, 1, 0), 0),
	)
	a.Tick(ctx, s)
	b.Tick(ctx, s)

	assert.True(t, a.Coordinator().Captain())
	assert.False(t, b.Coordinator().Captain())
	assert.Equal(t, strategy.StanceAttack, a.Coordinator().Stance())
	assert.Equal(t, strategy.StanceDefense, b.Coordinator().Stance())
	require.NotNil(t, b.Play())
	assert.False(t, b.Play().Kind().IsStrike(), b.Play().Name())
}

func TestAgent_RefuelClaimsPad(t *testing.T) {
	ctx := context.Background()
	sel := newSelector()
	bus := comms.NewBus(16)
	a := newAgent(0, sel, bus.Join(0), nil)
	b := newAgent(1, sel, bus.Join(1), nil)

	low := gametest.Car(1, 0, core.Vec(0, -2500, 17), core.Vec(0, 1, 0), 0)
	low.Boost = 10
	s := gametest.Snapshot(1, restingBall(1000),
		gametest.Car(0, 0, core.Vec(0, -500, 17), core.Vec(0, 1, 0), 0), low)

	a.Tick(ctx, s)
	b.Tick(ctx, s)
	require.Equal(t, strategy.StanceBoost, b.Coordinator().Stance())
	refuel, ok := b.Play().(*plays.Refuel)
	require.True(t, ok, "got %T", b.Play())
	pad, ok := refuel.Pad()
	require.True(t, ok)

	a.Tick(ctx, gametest.Snapshot(1+1.0/120, restingBall(1000), s.Cars...))
	assert.Equal(t, map[int]bool{pad.ID: true}, a.Coordinator().Claimed())
}

func TestTeam_Tick(t *testing.T) {
	info := hostproto.FieldInfo{Controlled: []int{1, 0}, Team: 0}
	team := NewTeam(config.DefaultTuning(), info, config.CommsConfig{Enabled: true, InboxSize: 16}, nil, nil)
	t.Cleanup(team.Close)

	car := func(idx int, y float64) hostproto.CarInfo {
		return hostproto.CarInfo{
			Index:           idx,
			Physics:         hostproto.Physics{Location: hostproto.Vector{Y: y, Z: 17}, Rotation: hostproto.Rotator{Yaw: math.Pi / 2}},
			Boost:           50,
			HasWheelContact: true,
		}
	}
	pkt := hostproto.Packet{
		Game: hostproto.GameInfo{SecondsElapsed: 10, IsRoundActive: true},
		Ball: hostproto.BallInfo{Physics: hostproto.Physics{Location: hostproto.Vector{Y: 1000, Z: core.BallRadius}}},
		Cars: []hostproto.CarInfo{car(0, -500), car(1, -2500)},
	}

	reply := team.Tick(context.Background(), pkt)
	assert.Len(t, reply, 2)
	assert.Contains(t, reply, 0)
	assert.Contains(t, reply, 1)

	st := team.Status()
	assert.Equal(t, uint64(1), st.Ticks)
	assert.Equal(t, 0, st.Captain)
	assert.Equal(t, "ATTACK", st.Stances[0])
	assert.Equal(t, "DEFENSE", st.Stances[1])
}

func TestTeam_CommsDisabled(t *testing.T) {
	info := hostproto.FieldInfo{Controlled: []int{0}, Team: 1}
	team := NewTeam(config.DefaultTuning(), info, config.CommsConfig{}, nil, nil)
	t.Cleanup(team.Close)

	reply := team.Tick(context.Background(), hostproto.Packet{})
	assert.Equal(t, hostproto.ControllerState{}, reply[0], "car missing from the packet")
}

var _ Recorder = (*spyRecorder)(nil)

func TestRecorders_FanOut(t *testing.T) {
	a, b := &spyRecorder{}, &spyRecorder{}
	rs := Recorders{a, b}

	rs.RecordDecision(core.Decision{Play: "Strike"})
	rs.RecordStanceChange(core.StanceChange{To: "ATTACK"})
	rs.RecordTrajectory(core.TrajectoryRecord{})
	rs.RecordTick(core.TickPerformance{})

	for _, r := range []*spyRecorder{a, b} {
		assert.Len(t, r.decisions, 1)
		assert.Len(t, r.stances, 1)
		assert.Len(t, r.trajectories, 1)
		assert.Len(t, r.ticks, 1)
	}
}
