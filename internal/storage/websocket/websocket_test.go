package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/CaptainRL/captain/pkg/core"
	"github.com/CaptainRL/captain/pkg/streaming"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testServer upgrades to WebSocket, records received envelopes and acks
// start_match/end_match.
func testServer(t *testing.T) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setSecret(r.URL.Query().Get(streaming.QuerySecret))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if env.Type == streaming.TypeStartMatch || env.Type == streaming.TypeEndMatch {
				data, _ := json.Marshal(streaming.AckMessage{Type: streaming.TypeAck, For: env.Type})
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	messages []streaming.Envelope
	secret   string
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) setSecret(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = s
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func (m *messageLog) types() map[string]int {
	counts := make(map[string]int)
	for _, env := range m.all() {
		counts[env.Type]++
	}
	return counts
}

func TestHTTPToWS(t *testing.T) {
	assert.Equal(t, "ws://host:5000/ingest", HTTPToWS("http://host:5000/ingest/"))
	assert.Equal(t, "wss://host/ingest", HTTPToWS("https://host/ingest"))
	assert.Equal(t, "ws://already", HTTPToWS("ws://already"))
}

func TestStartAndEndMatch(t *testing.T) {
	srv, ml := testServer(t)

	b := New(Config{URL: srv.URL, Secret: "test"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	m := &core.Match{SessionID: "ws-match", CarIDs: []int{0, 1}}
	require.NoError(t, b.StartMatch(m))
	assert.Equal(t, uint(1), m.ID)
	require.NoError(t, b.EndMatch())

	msgs := ml.all()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, streaming.TypeStartMatch, msgs[0].Type)
	assert.Equal(t, streaming.TypeEndMatch, msgs[len(msgs)-1].Type)

	var start streaming.StartMatchPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &start))
	assert.Equal(t, "ws-match", start.Match.SessionID)

	ml.mu.Lock()
	assert.Equal(t, "test", ml.secret)
	ml.mu.Unlock()
}

func TestFireAndForgetMessages(t *testing.T) {
	srv, ml := testServer(t)

	b := New(Config{URL: "ws" + strings.TrimPrefix(srv.URL, "http")}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartMatch(&core.Match{SessionID: "m"}))
	require.NoError(t, b.RecordDecision(&core.Decision{CarID: 0, Play: "Defense"}))
	require.NoError(t, b.RecordStanceChange(&core.StanceChange{CarID: 1, To: "ATTACK"}))
	require.NoError(t, b.RecordTrajectory(&core.TrajectoryRecord{CarID: 0, Points: []core.Vec3{core.Vec(1, 2, 3)}}))
	require.NoError(t, b.RecordTickPerformance(&core.TickPerformance{CarID: 0, Duration: 1500 * time.Microsecond}))
	// end_match is acked only after every earlier frame was read, since the
	// server handles frames in order
	require.NoError(t, b.EndMatch())

	counts := ml.types()
	assert.Equal(t, 1, counts[streaming.TypeStartMatch])
	assert.Equal(t, 1, counts[streaming.TypeDecision])
	assert.Equal(t, 1, counts[streaming.TypeStanceChange])
	assert.Equal(t, 1, counts[streaming.TypeTrajectory])
	assert.Equal(t, 1, counts[streaming.TypeTick])
	assert.Equal(t, 1, counts[streaming.TypeEndMatch])

	for _, env := range ml.all() {
		if env.Type != streaming.TypeTick {
			continue
		}
		var tick streaming.TickPayload
		require.NoError(t, json.Unmarshal(env.Payload, &tick))
		assert.InDelta(t, 1.5, tick.DurationMs, 1e-9)
	}
	assert.Zero(t, b.Dropped())
}

func TestInit_DialFailure(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1/ingest"}, nil)
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestEnvelopeSerialization(t *testing.T) {
	data, err := marshalEnvelope(streaming.TypeStanceChange, core.StanceChange{CarID: 2, To: "DEFENSE"})
	require.NoError(t, err)

	var decoded streaming.Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, streaming.TypeStanceChange, decoded.Type)

	var sc core.StanceChange
	require.NoError(t, json.Unmarshal(decoded.Payload, &sc))
	assert.Equal(t, 2, sc.CarID)
	assert.Equal(t, "DEFENSE", sc.To)
}
