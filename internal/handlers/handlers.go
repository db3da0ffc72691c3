// Package handlers answers the host commands: a field description starts a match
// and builds the team, each tick packet is turned into controls.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/CaptainRL/captain/internal/agent"
	"github.com/CaptainRL/captain/internal/config"
	"github.com/CaptainRL/captain/internal/dispatcher"
	"github.com/CaptainRL/captain/internal/logging"
	"github.com/CaptainRL/captain/pkg/core"
	"github.com/CaptainRL/captain/pkg/hostproto"

	"github.com/google/uuid"
)

// ErrNoField is returned for ticks received before the field description.
var ErrNoField = errors.New("no field info received")

// MatchRecorder opens and closes telemetry matches.
type MatchRecorder interface {
	StartMatch(m *core.Match) error
	EndMatch() error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Tuning   config.Tuning
	Comms    config.CommsConfig
	Recorder agent.Recorder
	Matches  MatchRecorder // optional
	Context  *logging.MatchContext
	Logger   *slog.Logger
	// NewSession returns the id of a new match session.
	NewSession func() string
}

// Service provides handler methods for the host commands.
type Service struct {
	deps Dependencies

	mu    sync.Mutex
	team  *agent.Team
	match *core.Match
	ended bool
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.NewSession == nil {
		deps.NewSession = uuid.NewString
	}
	if deps.Context == nil {
		deps.Context = &logging.MatchContext{}
	}
	return &Service{deps: deps}
}

// RegisterHandlers registers the host command handlers with the dispatcher.
// Replies carry the result, so none of them is buffered.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(hostproto.CommandField, s.handleField, dispatcher.Logged())
	d.Register(hostproto.CommandTick, s.handleTick)
	d.Register(hostproto.CommandMatchEnd, s.handleMatchEnd, dispatcher.Logged())
	d.Register(hostproto.CommandStatus, s.handleStatus)
}

// Team returns the current team, or nil before the field description.
func (s *Service) Team() *agent.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.team
}

// Status reports the team status, or false when no team is running.
func (s *Service) Status() (agent.Status, bool) {
	team := s.Team()
	if team == nil {
		return agent.Status{}, false
	}
	return team.Status(), true
}

func (s *Service) handleField(e dispatcher.Event) (any, error) {
	var info hostproto.FieldInfo
	if err := hostproto.DecodePayload(e, &info); err != nil {
		return nil, err
	}
	return s.StartMatch(info)
}

// StartMatch replaces any running team with one built for info and opens a new
// telemetry match. It returns the session id.
func (s *Service) StartMatch(info hostproto.FieldInfo) (string, error) {
	if len(info.Controlled) == 0 {
		return "", fmt.Errorf("%s: no controlled cars", hostproto.CommandField)
	}
	s.EndMatch()

	team := agent.NewTeam(s.deps.Tuning, info, s.deps.Comms, s.deps.Recorder, s.deps.Logger)
	m := &core.Match{
		SessionID: s.deps.NewSession(),
		StartedAt: time.Now(),
		Team:      info.Team,
		CarIDs:    append([]int(nil), info.Controlled...),
		Tags:      map[string]any{"pads": len(info.BoostPads), "comms": s.deps.Comms.Enabled},
	}
	s.deps.Context.SetSession(m.SessionID)
	s.deps.Context.SetTick(0)

	if s.deps.Matches != nil {
		if err := s.deps.Matches.StartMatch(m); err != nil {
			s.deps.Logger.Error("Failed to start match recording", "error", err)
		}
	}

	s.mu.Lock()
	s.team, s.match, s.ended = team, m, false
	s.mu.Unlock()

	s.deps.Logger.Info("Match started", "session", m.SessionID, "team", m.Team, "cars", m.CarIDs)
	return m.SessionID, nil
}

func (s *Service) handleTick(e dispatcher.Event) (any, error) {
	var pkt hostproto.Packet
	if err := hostproto.DecodePayload(e, &pkt); err != nil {
		return nil, err
	}
	return s.Tick(context.Background(), pkt)
}

// Tick runs the team for one packet. A packet flagged as match ended also closes
// the telemetry match, once.
func (s *Service) Tick(ctx context.Context, pkt hostproto.Packet) (hostproto.ControlsReply, error) {
	team := s.Team()
	if team == nil {
		return nil, ErrNoField
	}
	reply := team.Tick(ctx, pkt)
	s.deps.Context.SetTick(team.Status().Ticks)

	if pkt.Game.IsMatchEnded {
		s.mu.Lock()
		first := !s.ended
		s.ended = true
		s.mu.Unlock()
		if first {
			s.endRecording()
		}
	}
	return reply, nil
}

func (s *Service) handleMatchEnd(dispatcher.Event) (any, error) {
	if s.Team() == nil {
		return "no match", nil
	}
	s.EndMatch()
	return "ok", nil
}

// EndMatch closes the telemetry match and stops the team.
func (s *Service) EndMatch() {
	s.mu.Lock()
	team, ended := s.team, s.ended
	s.team, s.ended = nil, true
	s.mu.Unlock()
	if team == nil {
		return
	}
	if !ended {
		s.endRecording()
	}
	team.Close()
	s.deps.Logger.Info("Match ended", "ticks", team.Status().Ticks)
}

func (s *Service) endRecording() {
	if s.deps.Matches == nil {
		return
	}
	if err := s.deps.Matches.EndMatch(); err != nil {
		s.deps.Logger.Error("Failed to end match recording", "error", err)
	}
}

// StatusReply is the :STATUS: result.
type StatusReply struct {
	Session string        `json:"session,omitempty"`
	Running bool          `json:"running"`
	Team    *agent.Status `json:"team,omitempty"`
}

func (s *Service) handleStatus(dispatcher.Event) (any, error) {
	s.mu.Lock()
	team, m := s.team, s.match
	s.mu.Unlock()

	reply := StatusReply{Running: team != nil}
	if m != nil {
		reply.Session = m.SessionID
	}
	if team != nil {
		st := team.Status()
		reply.Team = &st
	}
	return reply, nil
}
