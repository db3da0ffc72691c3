package strategy

import (
	"testing"

	"github.com/CaptainRL/captain/internal/config"
	"github.com/CaptainRL/captain/internal/game/gametest"
	"github.com/CaptainRL/captain/internal/intercept"
	"github.com/CaptainRL/captain/internal/plays"
	"github.com/CaptainRL/captain/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSelector() *Selector {
	return NewSelector(plays.NewEnv(config.DefaultTuning()))
}

func centerBall() core.Ball {
	return gametest.Ball(core.Vec(0, 0, core.BallRadius), core.Vec3{})
}

func TestStance_String(t *testing.T) {
	assert.Equal(t, "KICKOFF", StanceKickoff.String())
	assert.Equal(t, "PREEMPTIVE_DEFENSE", StancePreemptiveDefense.String())
	assert.Equal(t, "UNKNOWN", Stance(99).String())
	assert.True(t, StanceDefense.Defensive())
	assert.False(t, StanceAttack.Defensive())
}

func TestChoose_KickoffForLoneCar(t *testing.T) {
	sel := newSelector()
	car := gametest.Car(0, 0, core.Vec(0, -2000, 17), core.Vec(0, 1, 0), 0)
	s := gametest.Snapshot(0, centerBall(), car)

	d := sel.Choose(s, car, StanceUndefined, nil)
	require.NotNil(t, d.Play)
	assert.True(t, d.Play.Kind().IsKickoff(), d.Play.Name())
	assert.Equal(t, plays.KindSimpleKickoff, d.Play.Kind())
}

func TestChoose_AirborneRecovers(t *testing.T) {
	sel := newSelector()
	car := gametest.Car(0, 0, core.Vec(0, -2000, 600), core.Vec(0, 1, 0), 500)
	car.OnGround = false
	s := gametest.Snapshot(0, centerBall(), car)

	d := sel.Choose(s, car, StanceAttack, nil)
	assert.Equal(t, plays.KindRecovery, d.Play.Kind())
	assert.Equal(t, "airborne", d.Reason)
}

func TestKickoffRoles(t *testing.T) {
	left := gametest.Car(3, 0, core.Vec(-2048, -2560, 17), core.Vec(1, 1, 0), 0)
	right := gametest.Car(1, 0, core.Vec(2048, -2560, 17), core.Vec(-1, 1, 0), 0)
	back := gametest.Car(2, 0, core.Vec(0, -4608, 17), core.Vec(0, 1, 0), 0)
	s := gametest.Snapshot(0, centerBall(), left, right, back)

	roles := KickoffRoles(s, 0, 1)
	assert.Equal(t, StanceKickoff, roles[1])
	assert.Equal(t, StanceBoost, roles[3])
	assert.Equal(t, StanceDefense, roles[2])

	diagonal := gametest.Snapshot(0, centerBall(), left, right, back)
	sel := newSelector()
	d := sel.Choose(diagonal, right, StanceUndefined, nil)
	assert.Equal(t, plays.KindSpeedFlipKickoff, d.Play.Kind())
}

func TestKickoffRoles_RunnerUpIsNextNearest(t *testing.T) {
	// 3 and 5 are both within tolerance of the taker, 5 is nearer
	taker := gametest.Car(4, 0, core.Vec(0, -2000, 0), core.Vec(0, 1, 0), 0)
	far := gametest.Car(3, 0, core.Vec(0, -2000.8, 0), core.Vec(0, 1, 0), 0)
	near := gametest.Car(5, 0, core.Vec(0, -2000.4, 0), core.Vec(0, 1, 0), 0)
	ball := gametest.Ball(core.Vec3{}, core.Vec3{})
	s := gametest.Snapshot(0, ball, far, taker, near)

	roles := KickoffRoles(s, 0, 1)
	assert.Equal(t, StanceKickoff, roles[4])
	assert.Equal(t, StanceBoost, roles[5])
	assert.Equal(t, StanceDefense, roles[3])

	// an exact tie goes to the lower id for both roles
	twin := gametest.Car(1, 0, core.Vec(0, -2000, 0), core.Vec(0, 1, 0), 0)
	roles = KickoffRoles(gametest.Snapshot(0, ball, far, taker, near, twin), 0, 1)
	assert.Equal(t, StanceKickoff, roles[1])
	assert.Equal(t, StanceBoost, roles[4])
	assert.Equal(t, StanceDefense, roles[5])
	assert.Equal(t, StanceDefense, roles[3])

	assert.Empty(t, KickoffRoles(s, 1, 1))
}

func TestAttack_UsesTunedAlignThreshold(t *testing.T) {
	ball := gametest.Ball(core.Vec(0, -2000, core.BallRadius), core.Vec3{})
	car := gametest.Car(0, 0, core.Vec(0, -3500, 17), core.Vec(0, 1, 0), 0)
	s := gametest.Snapshot(0, ball, car)

	sel := newSelector()
	mine := sel.Intercept(s, car)
	require.True(t, mine.Solution.Feasible)
	require.Greater(t, mine.Align, 0.5)
	d, ok := sel.attack(s, car, mine)
	require.True(t, ok)
	assert.Equal(t, "best intercept", d.Reason)

	tuning := config.DefaultTuning()
	tuning.Stance.AttackAlign = 1.5
	strict := NewSelector(plays.NewEnv(tuning))
	d, ok = strict.attack(s, car, strict.Intercept(s, car))
	if ok {
		assert.Equal(t, "out of position", d.Reason)
		assert.True(t, d.Play.Kind().IsClear(), d.Play.Name())
	}
}

func TestBestIntercept(t *testing.T) {
	mk := func(id int, y, time, align float64) Intercept {
		return Intercept{
			Car:      gametest.Car(id, 0, core.Vec(0, y, 17), core.Vec(0, 1, 0), 0),
			Solution: intercept.Solution{Time: time, Feasible: true},
			Align:    align,
		}
	}

	a, b, c := mk(0, -1000, 1.5, 0.5), mk(1, -2000, 1.0, 0.8), mk(2, -4000, 0.5, -0.9)
	assert.Equal(t, 1, BestIntercept([]Intercept{a, b, c}, a, 0, 2000).Car.ID)

	// nobody lined up: the car nearest its own goal takes it
	a.Align, b.Align = -0.2, -0.5
	assert.Equal(t, 2, BestIntercept([]Intercept{a, b, c}, a, 0, 2000).Car.ID)

	// unless the asking car is right at its goal
	mine := mk(3, -4900, 2.0, -1)
	assert.Equal(t, 3, BestIntercept([]Intercept{a, b, c, mine}, mine, 0, 2000).Car.ID)
}

func TestChoose_EarlierGoodInterceptStrikes(t *testing.T) {
	sel := newSelector()
	ball := gametest.Ball(core.Vec(0, 1000, core.BallRadius), core.Vec3{})
	a := gametest.Car(0, 0, core.Vec(0, -500, 17), core.Vec(0, 1, 0), 0)
	b := gametest.Car(1, 0, core.Vec(0, -2500, 17), core.Vec(0, 1, 0), 0)
	s := gametest.Snapshot(0, ball, a, b)

	ia, ib := sel.Intercept(s, a), sel.Intercept(s, b)
	require.True(t, ia.Solution.Feasible)
	require.True(t, ib.Solution.Feasible)
	require.Less(t, ia.Solution.Time, ib.Solution.Time)
	require.Greater(t, ia.Align, 0.0)
	require.Greater(t, ib.Align, 0.0)

	da := sel.Choose(s, a, StanceUndefined, nil)
	assert.True(t, da.Play.Kind().IsStrike(), da.Play.Name())
	assert.Equal(t, "best intercept", da.Reason)

	db := sel.Choose(s, b, StanceUndefined, nil)
	assert.False(t, db.Play.Kind().IsStrike(), db.Play.Name())

	stances := sel.ChooseStances(s, 0)
	assert.Equal(t, StanceAttack, stances[0])
	assert.Equal(t, StanceDefense, stances[1])
}

func TestChooseStances_LowBoostRefuels(t *testing.T) {
	sel := newSelector()
	ball := gametest.Ball(core.Vec(0, 1000, core.BallRadius), core.Vec3{})
	a := gametest.Car(0, 0, core.Vec(0, -500, 17), core.Vec(0, 1, 0), 0)
	b := gametest.Car(1, 0, core.Vec(0, -2500, 17), core.Vec(0, 1, 0), 0)
	b.Boost = 10
	c := gametest.Car(2, 0, core.Vec(0, -3000, 300), core.Vec(0, 1, 0), 0)
	c.OnGround = false
	s := gametest.Snapshot(0, ball, a, b, c)

	stances := sel.ChooseStances(s, 0)
	assert.Equal(t, StanceAttack, stances[0])
	assert.Equal(t, StanceBoost, stances[1])
	assert.Equal(t, StanceRecovery, stances[2])
}

func TestAvoid(t *testing.T) {
	sel := newSelector()
	a := gametest.Car(0, 0, core.Vec(0, 0, 17), core.Vec(1, 0, 0), 1000)
	b := gametest.Car(1, 0, core.Vec(400, 0, 17), core.Vec(-1, 0, 0), 1000)
	s := gametest.Snapshot(0, centerBall(), a, b)

	_, ok := sel.Avoid(s, a)
	assert.False(t, ok)
	d, ok := sel.Avoid(s, b)
	require.True(t, ok)
	assert.Equal(t, plays.KindYield, d.Play.Kind())

	enemy := gametest.Car(5, 1, core.Vec(600, 0, 17), core.Vec(-1, 0, 0), 1600)
	s = gametest.Snapshot(0, centerBall(), a, enemy)
	d, ok = sel.Avoid(s, a)
	require.True(t, ok)
	assert.Equal(t, plays.KindEvade, d.Play.Kind())
}

func TestAvoid_Disabled(t *testing.T) {
	tuning := config.DefaultTuning()
	tuning.Collision.Enabled = false
	sel := NewSelector(plays.NewEnv(tuning))
	a := gametest.Car(0, 0, core.Vec(0, 0, 17), core.Vec(1, 0, 0), 1000)
	enemy := gametest.Car(5, 1, core.Vec(600, 0, 17), core.Vec(-1, 0, 0), 1600)

	_, ok := sel.Avoid(gametest.Snapshot(0, centerBall(), a, enemy), a)
	assert.False(t, ok)
}

func TestDanger(t *testing.T) {
	sel := newSelector()
	ball := gametest.Ball(core.Vec(0, -4000, core.BallRadius), core.Vec3{})
	lined := gametest.Car(0, 0, core.Vec(0, -4800, 17), core.Vec(0, 1, 0), 0)
	st, ok := sel.Danger(gametest.Snapshot(0, ball, lined), lined)
	require.True(t, ok)
	assert.Equal(t, StanceAttack, st)

	wrong := gametest.Car(0, 0, core.Vec(0, -2500, 17), core.Vec(0, -1, 0), 0)
	st, ok = sel.Danger(gametest.Snapshot(0, ball, wrong), wrong)
	require.True(t, ok)
	assert.Equal(t, StanceClear, st)

	far := gametest.Ball(core.Vec(0, 2000, core.BallRadius), core.Vec3{})
	_, ok = sel.Danger(gametest.Snapshot(0, far, lined), lined)
	assert.False(t, ok)
}
