package game

import (
	"github.com/CaptainRL/captain/pkg/core"
	"github.com/CaptainRL/captain/pkg/hostproto"
)

func vec(v hostproto.Vector) core.Vec3 { return core.Vec(v.X, v.Y, v.Z) }

func state(p hostproto.Physics, t float64) core.KinematicState {
	return core.KinematicState{
		Position:        vec(p.Location),
		Velocity:        vec(p.Velocity),
		AngularVelocity: vec(p.AngularVelocity),
		Orientation:     core.FromRotator(p.Rotation.Pitch, p.Rotation.Yaw, p.Rotation.Roll),
		Time:            t,
	}
}

// Field holds the static arena description received before the first tick.
type Field struct {
	Pads []hostproto.PadInfo
}

// NewField copies the pad layout from a FieldInfo frame.
func NewField(info hostproto.FieldInfo) Field {
	pads := make([]hostproto.PadInfo, len(info.BoostPads))
	copy(pads, info.BoostPads)
	return Field{Pads: pads}
}

// FromPacket builds the snapshot for one tick.
func FromPacket(pkt hostproto.Packet, field Field) *Snapshot {
	t := pkt.Game.SecondsElapsed
	s := &Snapshot{
		Time:         t,
		Ball:         core.Ball{KinematicState: state(pkt.Ball.Physics, t)},
		KickoffPause: pkt.Game.IsKickoffPause,
		RoundActive:  pkt.Game.IsRoundActive,
		MatchEnded:   pkt.Game.IsMatchEnded,
		LatestTouch: core.Touch{
			CarID: pkt.Ball.LatestTouch.PlayerIndex,
			Team:  pkt.Ball.LatestTouch.Team,
			Time:  pkt.Ball.LatestTouch.TimeSeconds,
		},
	}

	s.Cars = make([]core.Car, 0, len(pkt.Cars))
	for _, c := range pkt.Cars {
		s.Cars = append(s.Cars, core.Car{
			KinematicState: state(c.Physics, t),
			ID:             c.Index,
			Team:           c.Team,
			Name:           c.Name,
			Boost:          c.Boost,
			OnGround:       c.HasWheelContact,
			Jumped:         c.Jumped,
			DoubleJumped:   c.DoubleJumped,
			Demolished:     c.IsDemolished,
		})
	}

	s.Pads = make([]core.BoostPad, 0, len(field.Pads))
	for i, info := range field.Pads {
		pad := core.BoostPad{ID: i, Position: vec(info.Location), Large: info.IsFullBoost, Active: true}
		if i < len(pkt.BoostPads) {
			pad.Active = pkt.BoostPads[i].IsActive
			pad.Timer = pkt.BoostPads[i].Timer
		}
		s.Pads = append(s.Pads, pad)
	}
	return s
}
