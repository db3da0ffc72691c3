package dispatcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/CaptainRL/captain/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingLogger keeps every line so tests can check what a wrapper logged.
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) add(level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf("%s %s %v", level, msg, kv))
}

func (l *recordingLogger) Debug(msg string, kv ...any) { l.add("DEBUG", msg, kv) }
func (l *recordingLogger) Info(msg string, kv ...any)  { l.add("INFO", msg, kv) }
func (l *recordingLogger) Error(msg string, kv ...any) { l.add("ERROR", msg, kv) }

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, line := range l.lines {
		if strings.HasPrefix(line, level+" ") {
			n++
		}
	}
	return n
}

func newDispatcher(t *testing.T) (*Dispatcher, *recordingLogger) {
	t.Helper()
	log := &recordingLogger{}
	d, err := New(log)
	require.NoError(t, err)
	return d, log
}

// tickFrame is the part of a host tick this file cares about.
type tickFrame struct {
	Tick int     `json:"tick"`
	Time float64 `json:"time"`
}

func TestDispatch_TickRepliesSynchronously(t *testing.T) {
	d, _ := newDispatcher(t)
	d.Register(":TICK:", func(e Event) (any, error) {
		var f tickFrame
		if err := json.Unmarshal([]byte(e.Args[0]), &f); err != nil {
			return nil, err
		}
		return map[int]core.Controls{0: {Throttle: 1, Steer: f.Time}}, nil
	})

	got, err := d.Dispatch(Event{Command: ":TICK:", Args: []string{`{"tick":3,"time":0.5}`}})
	require.NoError(t, err)
	assert.Equal(t, map[int]core.Controls{0: {Throttle: 1, Steer: 0.5}}, got)

	_, err = d.Dispatch(Event{Command: ":TICK:", Args: []string{`{"tick":`}})
	assert.Error(t, err)
}

func TestDispatch_UnknownCommand(t *testing.T) {
	d, _ := newDispatcher(t)
	_, err := d.Dispatch(Event{Command: ":KICKOFF:"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ":KICKOFF:")
}

func TestDispatch_StampsTimestamp(t *testing.T) {
	d, _ := newDispatcher(t)
	var got Event
	d.Register(":RECORD:DECISION:", func(e Event) (any, error) {
		got = e
		return nil, nil
	})

	decision := core.Decision{CarID: 1, Play: "DodgeStrike", Reason: "attack"}
	_, err := d.Dispatch(Event{Command: ":RECORD:DECISION:", Payload: decision})
	require.NoError(t, err)
	assert.Equal(t, decision, got.Payload)
	assert.False(t, got.Timestamp.IsZero())

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, err = d.Dispatch(Event{Command: ":RECORD:DECISION:", Timestamp: at})
	require.NoError(t, err)
	assert.Equal(t, at, got.Timestamp)
}

func TestBuffered_TickSamplesProcessedInOrder(t *testing.T) {
	d, _ := newDispatcher(t)
	var (
		mu   sync.Mutex
		seen []int
		wg   sync.WaitGroup
	)
	wg.Add(5)
	d.Register(":RECORD:TICK:", func(e Event) (any, error) {
		defer wg.Done()
		mu.Lock()
		seen = append(seen, e.Payload.(core.TickPerformance).CarID)
		mu.Unlock()
		return nil, nil
	}, Buffered(16))

	for i := range 5 {
		got, err := d.Dispatch(Event{Command: ":RECORD:TICK:", Payload: core.TickPerformance{CarID: i}})
		require.NoError(t, err)
		assert.Equal(t, "queued", got)
	}
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, seen)
}

func TestBuffered_FullQueueDropsTrajectory(t *testing.T) {
	d, _ := newDispatcher(t)
	release := make(chan struct{})
	defer close(release)
	d.Register(":RECORD:TRAJECTORY:", func(Event) (any, error) {
		<-release
		return nil, nil
	}, Buffered(2))

	// the worker holds at most one, the queue takes two
	for range 3 {
		d.Dispatch(Event{Command: ":RECORD:TRAJECTORY:"})
	}
	_, err := d.Dispatch(Event{Command: ":RECORD:TRAJECTORY:"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue full")
}

func TestBuffered_BlockingWaitsForRoom(t *testing.T) {
	d, _ := newDispatcher(t)
	release := make(chan struct{})
	d.Register(":RECORD:STANCE:", func(Event) (any, error) {
		<-release
		return nil, nil
	}, Buffered(1), Blocking())

	d.Dispatch(Event{Command: ":RECORD:STANCE:"})
	d.Dispatch(Event{Command: ":RECORD:STANCE:"})

	done := make(chan struct{})
	go func() {
		d.Dispatch(Event{Command: ":RECORD:STANCE:"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("dispatch returned while the queue was full")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	assert.Eventually(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestLogged_FieldAndMatchEnd(t *testing.T) {
	d, log := newDispatcher(t)
	d.Register(":FIELD:", func(Event) (any, error) { return "match-1", nil }, Logged())
	d.Register(":MATCH:END:", func(Event) (any, error) {
		return nil, errors.New("no match in progress")
	}, Logged())

	got, err := d.Dispatch(Event{Command: ":FIELD:", Args: []string{`{"pads":[]}`}})
	require.NoError(t, err)
	assert.Equal(t, "match-1", got)
	assert.Equal(t, 2, log.count("DEBUG"))
	assert.Zero(t, log.count("ERROR"))

	_, err = d.Dispatch(Event{Command: ":MATCH:END:"})
	assert.EqualError(t, err, "no match in progress")
	assert.Equal(t, 1, log.count("ERROR"))
}

func TestLogged_WrapsBufferedRecorder(t *testing.T) {
	d, log := newDispatcher(t)
	var written atomic.Int32
	done := make(chan struct{})
	d.Register(":RECORD:DECISION:", func(Event) (any, error) {
		written.Add(1)
		close(done)
		return nil, nil
	}, Buffered(8), Logged())

	got, err := d.Dispatch(Event{Command: ":RECORD:DECISION:", Payload: core.Decision{Play: "Refuel"}})
	require.NoError(t, err)
	assert.Equal(t, "queued", got)

	<-done
	assert.Equal(t, int32(1), written.Load())
	// logging sees the enqueue, not the write
	assert.Equal(t, 2, log.count("DEBUG"))
}

func TestRegistry(t *testing.T) {
	d, _ := newDispatcher(t)
	noop := func(Event) (any, error) { return nil, nil }
	d.Register(":TICK:", noop)
	d.Register(":FIELD:", noop)
	d.Register(":RECORD:TICK:", noop, Buffered(4))

	assert.True(t, d.HasHandler(":TICK:"))
	assert.False(t, d.HasHandler(":VERSION:"))
	assert.Equal(t, []string{":FIELD:", ":RECORD:TICK:", ":TICK:"}, d.Commands())
}

func TestQueueDepth(t *testing.T) {
	d, _ := newDispatcher(t)
	release := make(chan struct{})
	defer close(release)
	d.Register(":RECORD:TICK:", func(Event) (any, error) {
		<-release
		return nil, nil
	}, Buffered(10))

	for range 4 {
		d.Dispatch(Event{Command: ":RECORD:TICK:"})
	}
	assert.Eventually(t, func() bool { return d.QueueDepth(":RECORD:TICK:") == 3 },
		time.Second, 5*time.Millisecond, "one event is held by the worker")
	assert.Zero(t, d.QueueDepth(":TICK:"))
}
