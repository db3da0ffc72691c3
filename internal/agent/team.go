package agent

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/CaptainRL/captain/internal/comms"
	"github.com/CaptainRL/captain/internal/config"
	"github.com/CaptainRL/captain/internal/game"
	"github.com/CaptainRL/captain/internal/plays"
	"github.com/CaptainRL/captain/internal/strategy"
	"github.com/CaptainRL/captain/pkg/core"
	"github.com/CaptainRL/captain/pkg/hostproto"
)

// Team holds the agents of every car this process controls. The agents share one
// play environment, so the ball forecast is computed once per tick.
type Team struct {
	mu     sync.Mutex
	field  game.Field
	agents []*Agent
	bus    *comms.Bus
	ticks  uint64
	log    *slog.Logger
}

// NewTeam creates one agent per controlled car in info.
func NewTeam(tuning config.Tuning, info hostproto.FieldInfo, cc config.CommsConfig, rec Recorder, log *slog.Logger) *Team {
	if log == nil {
		log = slog.Default()
	}
	t := &Team{field: game.NewField(info), log: log}
	if cc.Enabled {
		t.bus = comms.NewBus(max(cc.InboxSize, 1))
	}

	sel := strategy.NewSelector(plays.NewEnv(tuning))
	ids := append([]int(nil), info.Controlled...)
	sort.Ints(ids)
	for _, id := range ids {
		var ch comms.Channel = comms.Discard{}
		if t.bus != nil {
			ch = t.bus.Join(id)
		}
		coord := comms.NewCoordinator(info.Team, id, ch, log)
		t.agents = append(t.agents, New(id, info.Team, sel, coord, rec, log))
	}
	log.Info("team ready", "team", info.Team, "cars", ids, "comms", cc.Enabled)
	return t
}

// Agents returns the agents ordered by car index.
func (t *Team) Agents() []*Agent { return t.agents }

// Tick builds the snapshot for pkt and runs every agent in car order.
func (t *Team) Tick(ctx context.Context, pkt hostproto.Packet) hostproto.ControlsReply {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ticks++

	s := game.FromPacket(pkt, t.field)
	reply := make(hostproto.ControlsReply, len(t.agents))
	for _, a := range t.agents {
		reply[a.ID()] = wire(a.Tick(ctx, s))
	}
	return reply
}

// Status is a point-in-time summary for the status command and the monitor.
type Status struct {
	Ticks   uint64         `json:"ticks"`
	Plays   map[int]string `json:"plays"`
	Stances map[int]string `json:"stances"`
	Captain int            `json:"captain"`
}

// Status reports tick count, current plays and stances.
func (t *Team) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := Status{
		Ticks:   t.ticks,
		Plays:   make(map[int]string, len(t.agents)),
		Stances: make(map[int]string, len(t.agents)),
		Captain: -1,
	}
	for _, a := range t.agents {
		name := ""
		if p := a.Play(); p != nil {
			name = p.Name()
		}
		st.Plays[a.ID()] = name
		st.Stances[a.ID()] = a.Coordinator().Stance().String()
		if a.Coordinator().Captain() && st.Captain < 0 {
			st.Captain = a.ID()
		}
	}
	return st
}

// Close stops team messaging.
func (t *Team) Close() {
	if t.bus != nil {
		t.bus.Close()
	}
}

func wire(c core.Controls) hostproto.ControllerState {
	return hostproto.ControllerState{
		Throttle:  c.Throttle,
		Steer:     c.Steer,
		Pitch:     c.Pitch,
		Yaw:       c.Yaw,
		Roll:      c.Roll,
		Jump:      c.Jump,
		Boost:     c.Boost,
		Handbrake: c.Handbrake,
	}
}
