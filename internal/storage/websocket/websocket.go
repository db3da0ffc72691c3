package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/CaptainRL/captain/pkg/core"
	"github.com/CaptainRL/captain/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams match telemetry to a live server.
// It implements storage.Backend but not storage.Exportable.
type Backend struct {
	conn *connection
	cfg  Config
	seq  uint
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("component", "websocket")),
		cfg:  cfg,
	}
}

// HTTPToWS converts an HTTP(S) URL to a WebSocket URL. Other schemes pass through.
func HTTPToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(HTTPToWS(b.cfg.URL), b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Dropped is the number of frames discarded because the outbox was full.
func (b *Backend) Dropped() uint64 {
	return b.conn.dropped.Load()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope pushes the message to the write loop without waiting.
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartMatch numbers the match locally, announces it and waits for the ack.
func (b *Backend) StartMatch(m *core.Match) error {
	b.seq++
	m.ID = b.seq
	data, err := marshalEnvelope(streaming.TypeStartMatch, streaming.StartMatchPayload{Match: m})
	if err != nil {
		return err
	}
	b.conn.setReplay(data)
	return b.conn.sendAndWait(data, streaming.TypeStartMatch, ackTimeout)
}

// EndMatch sends end_match and waits for the ack.
func (b *Backend) EndMatch() error {
	data, err := marshalEnvelope(streaming.TypeEndMatch, nil)
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndMatch, ackTimeout)
	b.conn.setReplay(nil)
	return err
}

func (b *Backend) RecordDecision(d *core.Decision) error {
	return b.sendEnvelope(streaming.TypeDecision, d)
}

func (b *Backend) RecordStanceChange(c *core.StanceChange) error {
	return b.sendEnvelope(streaming.TypeStanceChange, c)
}

func (b *Backend) RecordTrajectory(t *core.TrajectoryRecord) error {
	return b.sendEnvelope(streaming.TypeTrajectory, t)
}

func (b *Backend) RecordTickPerformance(p *core.TickPerformance) error {
	return b.sendEnvelope(streaming.TypeTick, streaming.NewTickPayload(p))
}
