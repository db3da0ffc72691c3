// Package comms implements the team coordination protocol: the lowest-id car on a
// team is captain and assigns stances; everyone else adopts the latest valid one.
package comms

import (
	"context"
	"log/slog"

	"github.com/CaptainRL/captain/internal/game"
	"github.com/CaptainRL/captain/internal/strategy"
	"github.com/CaptainRL/captain/pkg/tmcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/CaptainRL/captain/internal/comms"

// StanceFunc observes stance changes. source is "captain", "message" or "reset".
type StanceFunc func(from, to strategy.Stance, source string)

// Coordinator runs the protocol for one car. It is driven from that car's decision
// loop only and is not safe for concurrent use.
type Coordinator struct {
	team    int
	index   int
	ch      Channel
	log     *slog.Logger
	captain bool
	stance  strategy.Stance
	sent    map[int]strategy.Stance
	claims  map[int]int // pad id -> claiming car
	paused  bool

	// OnStance, when set, is called on every stance change.
	OnStance StanceFunc

	sentCounter metric.Int64Counter
	recvCounter metric.Int64Counter
}

// NewCoordinator starts car index of team as captain; the first Update demotes it
// if a lower id is on the team.
func NewCoordinator(team, index int, ch Channel, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	c := &Coordinator{
		team:    team,
		index:   index,
		ch:      ch,
		log:     log.With("car", index),
		captain: true,
		sent:    make(map[int]strategy.Stance),
		claims:  make(map[int]int),
	}
	m := otel.Meter(instrumentationName)
	var err error
	if c.sentCounter, err = m.Int64Counter("captain.comms.sent",
		metric.WithDescription("Team messages sent")); err != nil {
		c.sentCounter = noop.Int64Counter{}
	}
	if c.recvCounter, err = m.Int64Counter("captain.comms.received",
		metric.WithDescription("Team messages received")); err != nil {
		c.recvCounter = noop.Int64Counter{}
	}
	return c
}

// Captain reports whether this car currently assigns stances.
func (c *Coordinator) Captain() bool { return c.captain }

// Stance is the stance in force for this car.
func (c *Coordinator) Stance() strategy.Stance { return c.stance }

// Claimed returns the pads teammates have announced they are heading for.
func (c *Coordinator) Claimed() map[int]bool {
	out := make(map[int]bool, len(c.claims))
	for pad := range c.claims {
		out[pad] = true
	}
	return out
}

// Update re-derives captaincy, applies pending messages and handles the start of a
// kickoff pause. Call once per tick before choosing a play.
func (c *Coordinator) Update(ctx context.Context, s *game.Snapshot) {
	c.updateCaptain(ctx, s)

	fresh := false
	for _, m := range c.ch.Recv() {
		if m.Team != c.team || m.Index == c.index {
			continue
		}
		c.recvCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("action", string(m.Action.Type))))
		switch m.Action.Type {
		case tmcp.ActionStance:
			if !m.For(c.index) {
				continue
			}
			stance := strategy.Stance(m.Action.Payload)
			if !stance.Valid() {
				c.log.Warn("ignoring invalid stance", "from", m.Index, "stance", m.Action.Payload)
				continue
			}
			if c.Accept(s.KickoffPause, stance) {
				c.set(stance, "message")
				fresh = true
			}
		case tmcp.ActionBoost:
			c.releaseClaims(m.Index)
			if m.Action.Target >= 0 {
				c.claims[m.Action.Target] = m.Index
			}
		case tmcp.ActionAck:
			c.log.Info("teammate stepped down as captain", "from", m.Index, "captain", m.Action.Target)
		}
	}

	starting := s.KickoffPause && !c.paused
	c.paused = s.KickoffPause
	if starting && !fresh && !c.captain {
		c.set(strategy.StanceUndefined, "reset")
	}
}

// Accept reports whether an incoming stance may replace the current one. During a
// kickoff pause only kickoff and defensive stances are taken.
func (c *Coordinator) Accept(kickoffPause bool, stance strategy.Stance) bool {
	if !kickoffPause {
		return true
	}
	return stance == strategy.StanceKickoff || stance.Defensive()
}

func (c *Coordinator) updateCaptain(ctx context.Context, s *game.Snapshot) {
	lowest := c.index
	for _, car := range s.Team(c.team) {
		if car.ID < lowest {
			lowest = car.ID
		}
	}
	switch {
	case c.captain && lowest < c.index:
		c.captain = false
		c.sent = make(map[int]strategy.Stance)
		c.log.Info("demoted", "captain", lowest)
		c.send(ctx, tmcp.Action{Type: tmcp.ActionAck, Target: lowest})
	case !c.captain && lowest == c.index:
		c.captain = true
		c.log.Info("promoted to captain")
	}
}

// Assign is the captain's side: stances holds one stance per car. A message goes to
// every teammate whose stance changed since the last successful send; kickoff
// stances are always re-sent. The captain adopts its own entry directly.
func (c *Coordinator) Assign(ctx context.Context, stances map[int]strategy.Stance) {
	if !c.captain {
		return
	}
	for id, stance := range stances {
		if id == c.index {
			if stance != c.stance {
				c.set(stance, "captain")
			}
			continue
		}
		if prev, ok := c.sent[id]; ok && prev == stance && stance != strategy.StanceKickoff {
			continue
		}
		if c.send(ctx, tmcp.Action{Type: tmcp.ActionStance, Target: id, Payload: int(stance)}) {
			c.sent[id] = stance
		}
	}
}

// ClaimPad tells teammates this car is heading for pad id. A negative id withdraws
// the claim.
func (c *Coordinator) ClaimPad(ctx context.Context, id int) {
	c.send(ctx, tmcp.Action{Type: tmcp.ActionBoost, Target: id})
}

func (c *Coordinator) releaseClaims(index int) {
	for pad, owner := range c.claims {
		if owner == index {
			delete(c.claims, pad)
		}
	}
}

func (c *Coordinator) send(ctx context.Context, a tmcp.Action) bool {
	if err := c.ch.Send(tmcp.New(c.team, c.index, a)); err != nil {
		c.log.Warn("team message not sent", "action", a.Type, "error", err)
		return false
	}
	c.sentCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("action", string(a.Type))))
	return true
}

func (c *Coordinator) set(stance strategy.Stance, source string) {
	from := c.stance
	c.stance = stance
	if from != stance && c.OnStance != nil {
		c.OnStance(from, stance, source)
	}
}
