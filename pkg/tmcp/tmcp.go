// Package tmcp holds the team match communication messages exchanged between
// teammates: a versioned envelope around one typed action.
package tmcp

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the protocol version written into every message.
var Version = [2]int{1, 0}

var (
	// ErrVersion is returned for messages from an incompatible protocol major version.
	ErrVersion = errors.New("unsupported tmcp version")
	// ErrUnknownAction is returned for an action type outside the protocol.
	ErrUnknownAction = errors.New("unknown tmcp action")
)

// ActionType tags the action carried by a message.
type ActionType string

const (
	ActionBall   ActionType = "BALL"   // going for the ball at Time
	ActionBoost  ActionType = "BOOST"  // heading for pad Target
	ActionDemo   ActionType = "DEMO"   // going to demolish car Target
	ActionReady  ActionType = "READY"  // waiting, Time is when the car can act
	ActionDefend ActionType = "DEFEND" // staying in net
	ActionStance ActionType = "STANCE" // captain assigns stance Payload to car Target
	ActionAck    ActionType = "ACK"    // sender stepped down as captain in favour of Target
)

// Broadcast is the Target of actions meant for every teammate.
const Broadcast = -1

func (a ActionType) valid() bool {
	switch a {
	case ActionBall, ActionBoost, ActionDemo, ActionReady, ActionDefend, ActionStance, ActionAck:
		return true
	}
	return false
}

// Action is what the sender is doing or asking for.
type Action struct {
	Type    ActionType `json:"type"`
	Target  int        `json:"target"`
	Payload int        `json:"payload,omitempty"`
	Time    float64    `json:"time,omitempty"`
}

// Message is one team message.
type Message struct {
	Version [2]int `json:"tmcp_version"`
	Team    int    `json:"team"`
	Index   int    `json:"index"`
	Action  Action `json:"action"`
}

// New stamps an action from car index of team with the current version.
func New(team, index int, action Action) Message {
	return Message{Version: Version, Team: team, Index: index, Action: action}
}

// For reports whether m is addressed to car index, directly or by broadcast.
func (m Message) For(index int) bool {
	return m.Action.Target == Broadcast || m.Action.Target == index
}

// Validate checks the version and action type.
func (m Message) Validate() error {
	if m.Version[0] != Version[0] {
		return fmt.Errorf("%w: %d.%d", ErrVersion, m.Version[0], m.Version[1])
	}
	if !m.Action.Type.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownAction, m.Action.Type)
	}
	return nil
}

// Encode serializes m.
func Encode(m Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// Decode parses and validates one message.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decoding tmcp message: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}
