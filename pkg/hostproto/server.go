// Package hostproto speaks the line-oriented JSON protocol between the game host
// and the bot process. Every request line is answered by exactly one reply line
// before the next request is read.
package hostproto

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/CaptainRL/captain/internal/dispatcher"
)

// Commands understood by the bot process.
const (
	CommandVersion   = ":VERSION:"
	CommandTimestamp = ":TIMESTAMP:"
	CommandField     = ":FIELD:"
	CommandTick      = ":TICK:"
	CommandMatchEnd  = ":MATCH:END:"
	CommandStatus    = ":STATUS:"
)

// ErrUnknownCommand is returned for requests without a registered handler.
var ErrUnknownCommand = errors.New("no handler registered")

// maxFrame bounds a single request line.
const maxFrame = 4 << 20

// Frame is one request line.
type Frame struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Reply is one response line.
type Reply struct {
	Command string `json:"command"`
	OK      bool   `json:"ok"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Server routes host requests to dispatcher handlers.
type Server struct {
	dispatcher *dispatcher.Dispatcher
	version    string
}

// NewServer creates a server answering CommandVersion with version.
func NewServer(d *dispatcher.Dispatcher, version string) *Server {
	return &Server{dispatcher: d, version: version}
}

// Serve reads frames from r until EOF or ctx is cancelled, writing one reply per
// frame to w.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxFrame)
	out := bufio.NewWriter(w)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := enc.Encode(s.Handle(line)); err != nil {
			return fmt.Errorf("writing reply: %w", err)
		}
		if err := out.Flush(); err != nil {
			return fmt.Errorf("flushing reply: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading frames: %w", err)
	}
	return nil
}

// Handle answers a single raw frame.
func (s *Server) Handle(line []byte) Reply {
	var f Frame
	if err := json.Unmarshal(line, &f); err != nil {
		return Reply{OK: false, Error: fmt.Sprintf("malformed frame: %v", err)}
	}

	switch f.Command {
	case CommandVersion:
		return Reply{Command: f.Command, OK: true, Result: s.version}
	case CommandTimestamp:
		return Reply{Command: f.Command, OK: true, Result: strconv.FormatInt(time.Now().UTC().UnixNano(), 10)}
	}

	if s.dispatcher == nil || !s.dispatcher.HasHandler(f.Command) {
		return Reply{Command: f.Command, OK: false, Error: ErrUnknownCommand.Error()}
	}

	result, err := s.dispatcher.Dispatch(dispatcher.Event{
		Command:   f.Command,
		Args:      []string{string(f.Payload)},
		Timestamp: time.Now(),
	})
	if err != nil {
		return Reply{Command: f.Command, OK: false, Error: err.Error()}
	}
	return Reply{Command: f.Command, OK: true, Result: result}
}

// DecodePayload unmarshals the first event argument into v.
func DecodePayload(e dispatcher.Event, v any) error {
	if len(e.Args) == 0 || e.Args[0] == "" {
		return fmt.Errorf("%s: empty payload", e.Command)
	}
	if err := json.Unmarshal([]byte(e.Args[0]), v); err != nil {
		return fmt.Errorf("%s: decoding payload: %w", e.Command, err)
	}
	return nil
}
