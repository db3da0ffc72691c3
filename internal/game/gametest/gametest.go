// Package gametest builds snapshots for tests.
package gametest

import (
	"github.com/CaptainRL/captain/internal/game"
	"github.com/CaptainRL/captain/pkg/core"
	"github.com/CaptainRL/captain/pkg/hostproto"
)

// Car returns a grounded car facing along heading.
func Car(id, team int, pos, heading core.Vec3, speed float64) core.Car {
	dir := core.Normalize(heading)
	if core.Norm(dir) == 0 {
		dir = core.Vec(1, 0, 0)
	}
	return core.Car{
		KinematicState: core.KinematicState{
			Position:    pos,
			Velocity:    core.Scale(dir, speed),
			Orientation: core.LookAt(dir, core.Up),
		},
		ID:       id,
		Team:     team,
		Boost:    50,
		OnGround: true,
	}
}

// Ball returns a ball state.
func Ball(pos, vel core.Vec3) core.Ball {
	return core.Ball{KinematicState: core.KinematicState{Position: pos, Velocity: vel, Orientation: core.Identity}}
}

// Snapshot assembles a snapshot at time t with the standard pads all active. The
// time stamp is copied into the ball and every car.
func Snapshot(t float64, ball core.Ball, cars ...core.Car) *game.Snapshot {
	ball.Time = t
	out := make([]core.Car, len(cars))
	for i, c := range cars {
		c.Time = t
		out[i] = c
	}
	pkt := hostproto.Packet{}
	s := game.FromPacket(pkt, game.StandardField())
	s.Time = t
	s.Ball = ball
	s.Cars = out
	s.LatestTouch = core.Touch{CarID: -1}
	return s
}
