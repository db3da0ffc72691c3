package comms

import (
	"context"
	"errors"
	"testing"

	"github.com/CaptainRL/captain/internal/game"
	"github.com/CaptainRL/captain/internal/game/gametest"
	"github.com/CaptainRL/captain/internal/strategy"
	"github.com/CaptainRL/captain/pkg/core"
	"github.com/CaptainRL/captain/pkg/tmcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teamSnapshot(pause bool, ids ...int) *game.Snapshot {
	var cars []core.Car
	for _, id := range ids {
		cars = append(cars, gametest.Car(id, 0, core.Vec(float64(id)*500, -3000, 17), core.Vec(0, 1, 0), 0))
	}
	s := gametest.Snapshot(10, gametest.Ball(core.Vec(0, 0, 93), core.Vec3{}), cars...)
	s.KickoffPause = pause
	return s
}

type failingChannel struct {
	fail bool
	sent []tmcp.Message
}

func (f *failingChannel) Send(m tmcp.Message) error {
	if f.fail {
		return errors.New("link down")
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *failingChannel) Recv() []tmcp.Message { return nil }

func TestBus_DeliversToOthersOnly(t *testing.T) {
	bus := NewBus(8)
	a, b, c := bus.Join(0), bus.Join(1), bus.Join(2)

	require.NoError(t, a.Send(tmcp.New(0, 0, tmcp.Action{Type: tmcp.ActionReady, Target: tmcp.Broadcast})))

	assert.Empty(t, a.Recv())
	got := b.Recv()
	require.Len(t, got, 1)
	assert.Equal(t, tmcp.ActionReady, got[0].Action.Type)
	assert.Len(t, c.Recv(), 1)
	assert.Empty(t, b.Recv(), "recv drains the inbox")
}

func TestBus_OverflowDropsOldest(t *testing.T) {
	bus := NewBus(2)
	a, b := bus.Join(0), bus.Join(1)
	for i := 0; i < 3; i++ {
		require.NoError(t, a.Send(tmcp.New(0, 0, tmcp.Action{Type: tmcp.ActionBall, Payload: i})))
	}
	got := b.Recv()
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Action.Payload)
	assert.Equal(t, 2, got[1].Action.Payload)
	assert.Equal(t, uint64(1), b.Dropped())
}

func TestBus_Closed(t *testing.T) {
	bus := NewBus(2)
	a := bus.Join(0)
	bus.Close()
	err := a.Send(tmcp.New(0, 0, tmcp.Action{Type: tmcp.ActionReady}))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCoordinator_Captaincy(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(16)
	low := NewCoordinator(0, 1, bus.Join(1), nil)
	high := NewCoordinator(0, 2, bus.Join(2), nil)

	s := teamSnapshot(false, 1, 2)
	high.Update(ctx, s)
	low.Update(ctx, s)
	assert.True(t, low.Captain())
	assert.False(t, high.Captain())

	// car 1 demolished: car 2 takes over
	s = teamSnapshot(false, 2)
	high.Update(ctx, s)
	assert.True(t, high.Captain())
}

func TestCoordinator_StanceDelivery(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(16)
	captain := NewCoordinator(0, 0, bus.Join(0), nil)
	mate := NewCoordinator(0, 1, bus.Join(1), nil)

	var changes []strategy.Stance
	mate.OnStance = func(_, to strategy.Stance, source string) {
		assert.Equal(t, "message", source)
		changes = append(changes, to)
	}

	s := teamSnapshot(false, 0, 1)
	captain.Update(ctx, s)
	mate.Update(ctx, s)
	captain.Assign(ctx, map[int]strategy.Stance{0: strategy.StanceAttack, 1: strategy.StanceDefense})
	assert.Equal(t, strategy.StanceAttack, captain.Stance())

	mate.Update(ctx, s)
	assert.Equal(t, strategy.StanceDefense, mate.Stance())

	// unchanged stances are not re-sent
	captain.Assign(ctx, map[int]strategy.Stance{0: strategy.StanceAttack, 1: strategy.StanceDefense})
	mate.Update(ctx, s)
	assert.Equal(t, []strategy.Stance{strategy.StanceDefense}, changes)
}

func TestCoordinator_KickoffPauseFilter(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(16)
	captain := NewCoordinator(0, 0, bus.Join(0), nil)
	mate := NewCoordinator(0, 1, bus.Join(1), nil)

	paused := teamSnapshot(true, 0, 1)
	captain.Update(ctx, paused)
	mate.Update(ctx, paused)

	captain.Assign(ctx, map[int]strategy.Stance{1: strategy.StanceAttack})
	mate.Update(ctx, paused)
	assert.Equal(t, strategy.StanceUndefined, mate.Stance(), "attack refused during a kickoff pause")

	captain.Assign(ctx, map[int]strategy.Stance{1: strategy.StanceKickoff})
	mate.Update(ctx, paused)
	assert.Equal(t, strategy.StanceKickoff, mate.Stance())

	assert.True(t, mate.Accept(true, strategy.StancePreemptiveDefense))
	assert.False(t, mate.Accept(true, strategy.StanceBoost))
	assert.True(t, mate.Accept(false, strategy.StanceBoost))
}

func TestCoordinator_ResetOnKickoff(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(16)
	captain := NewCoordinator(0, 0, bus.Join(0), nil)
	mate := NewCoordinator(0, 1, bus.Join(1), nil)

	live := teamSnapshot(false, 0, 1)
	captain.Update(ctx, live)
	mate.Update(ctx, live)
	captain.Assign(ctx, map[int]strategy.Stance{1: strategy.StanceAttack})
	mate.Update(ctx, live)
	require.Equal(t, strategy.StanceAttack, mate.Stance())

	mate.Update(ctx, teamSnapshot(true, 0, 1))
	assert.Equal(t, strategy.StanceUndefined, mate.Stance())
}

func TestCoordinator_KickoffAlwaysResent(t *testing.T) {
	ctx := context.Background()
	ch := &failingChannel{}
	captain := NewCoordinator(0, 0, ch, nil)
	captain.Update(ctx, teamSnapshot(true, 0, 1))

	captain.Assign(ctx, map[int]strategy.Stance{1: strategy.StanceKickoff})
	captain.Assign(ctx, map[int]strategy.Stance{1: strategy.StanceKickoff})
	assert.Len(t, ch.sent, 2)
}

func TestCoordinator_FailedSendRetried(t *testing.T) {
	ctx := context.Background()
	ch := &failingChannel{fail: true}
	captain := NewCoordinator(0, 0, ch, nil)
	captain.Update(ctx, teamSnapshot(false, 0, 1))

	captain.Assign(ctx, map[int]strategy.Stance{1: strategy.StanceDefense})
	assert.Empty(t, ch.sent)

	ch.fail = false
	captain.Assign(ctx, map[int]strategy.Stance{1: strategy.StanceDefense})
	require.Len(t, ch.sent, 1)
	assert.Equal(t, int(strategy.StanceDefense), ch.sent[0].Action.Payload)
}

func TestCoordinator_PadClaims(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(16)
	a := NewCoordinator(0, 0, bus.Join(0), nil)
	b := NewCoordinator(0, 1, bus.Join(1), nil)
	s := teamSnapshot(false, 0, 1)

	b.ClaimPad(ctx, 4)
	a.Update(ctx, s)
	assert.Equal(t, map[int]bool{4: true}, a.Claimed())

	b.ClaimPad(ctx, 7)
	a.Update(ctx, s)
	assert.Equal(t, map[int]bool{7: true}, a.Claimed(), "a new claim replaces the old one")

	b.ClaimPad(ctx, -1)
	a.Update(ctx, s)
	assert.Empty(t, a.Claimed())
}

func TestCoordinator_IgnoresOtherTeam(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(16)
	mate := NewCoordinator(0, 1, bus.Join(1), nil)
	enemy := bus.Join(5)
	require.NoError(t, enemy.Send(tmcp.New(1, 5, tmcp.Action{Type: tmcp.ActionStance, Target: 1, Payload: int(strategy.StanceAttack)})))
	mate.Update(ctx, teamSnapshot(false, 0, 1))
	assert.Equal(t, strategy.StanceUndefined, mate.Stance())
}
