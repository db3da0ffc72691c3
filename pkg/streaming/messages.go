// Package streaming defines the envelopes exchanged with a live telemetry server.
package streaming

import (
	"encoding/json"

	"github.com/CaptainRL/captain/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartMatch    = "start_match"
	TypeEndMatch      = "end_match"
	TypeDecision      = "decision"
	TypeStanceChange  = "stance_change"
	TypeTrajectory    = "trajectory"
	TypeTick          = "tick"
	TypeAck           = "ack"
	QuerySecret       = "secret"
	DefaultIngestPath = "/ingest"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartMatchPayload carries the match being recorded.
type StartMatchPayload struct {
	Match *core.Match `json:"match"`
}

// TickPayload is a tick sample with its duration in milliseconds, which
// time.Duration would otherwise encode as nanoseconds.
type TickPayload struct {
	GameTime    float64 `json:"gameTime"`
	CarID       int     `json:"carId"`
	DurationMs  float64 `json:"durationMs"`
	Play        string  `json:"play"`
	Predictions int     `json:"predictions"`
}

// NewTickPayload converts a core tick sample.
func NewTickPayload(p *core.TickPerformance) TickPayload {
	return TickPayload{
		GameTime:    p.GameTime,
		CarID:       p.CarID,
		DurationMs:  float64(p.Duration.Microseconds()) / 1000,
		Play:        p.Play,
		Predictions: p.Predictions,
	}
}
