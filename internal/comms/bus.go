package comms

import (
	"errors"
	"sync"

	"github.com/CaptainRL/captain/internal/queue"
	"github.com/CaptainRL/captain/pkg/tmcp"
)

// ErrClosed is returned when sending on a closed bus.
var ErrClosed = errors.New("comms bus closed")

// Channel is one car's view of the team message transport. Send may fail; Recv
// returns the messages that arrived since the last call, in arrival order.
type Channel interface {
	Send(m tmcp.Message) error
	Recv() []tmcp.Message
}

// Bus is an in-process broadcast transport for the cars one host process drives.
// Each endpoint's inbox is bounded and drops its oldest frames on overflow.
type Bus struct {
	mu      sync.RWMutex
	inboxes map[int]*queue.Queue[[]byte]
	size    int
	closed  bool
}

func NewBus(inboxSize int) *Bus {
	return &Bus{inboxes: make(map[int]*queue.Queue[[]byte]), size: inboxSize}
}

// Join registers car index and returns its endpoint. Joining twice returns an
// endpoint on the same inbox.
func (b *Bus) Join(index int) *Endpoint {
	b.mu.Lock()
	defer b.mu.Unlock()
	inbox, ok := b.inboxes[index]
	if !ok {
		inbox = queue.NewBounded[[]byte](b.size)
		b.inboxes[index] = inbox
	}
	return &Endpoint{bus: b, index: index, inbox: inbox}
}

// Close stops delivery. Later sends fail with ErrClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

func (b *Bus) publish(from int, frame []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	for index, inbox := range b.inboxes {
		if index != from {
			inbox.Push(frame)
		}
	}
	return nil
}

// Endpoint is a Channel on a Bus.
type Endpoint struct {
	bus     *Bus
	index   int
	inbox   *queue.Queue[[]byte]
	invalid uint64
}

func (e *Endpoint) Send(m tmcp.Message) error {
	frame, err := tmcp.Encode(m)
	if err != nil {
		return err
	}
	return e.bus.publish(e.index, frame)
}

// Recv decodes every pending frame. Frames that fail to decode are dropped and
// counted in Invalid.
func (e *Endpoint) Recv() []tmcp.Message {
	frames := e.inbox.Drain()
	out := make([]tmcp.Message, 0, len(frames))
	for _, f := range frames {
		m, err := tmcp.Decode(f)
		if err != nil {
			e.invalid++
			continue
		}
		out = append(out, m)
	}
	return out
}

// Dropped is the number of frames lost to inbox overflow.
func (e *Endpoint) Dropped() uint64 { return e.inbox.Dropped() }

// Invalid is the number of frames that failed to decode.
func (e *Endpoint) Invalid() uint64 { return e.invalid }

var _ Channel = (*Endpoint)(nil)

// Discard is a Channel for cars running without team messaging: sends succeed and
// nothing is ever received.
type Discard struct{}

func (Discard) Send(tmcp.Message) error { return nil }
func (Discard) Recv() []tmcp.Message    { return nil }
