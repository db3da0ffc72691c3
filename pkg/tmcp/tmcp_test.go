package tmcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_WireFormat(t *testing.T) {
	m := New(1, 4, Action{Type: ActionStance, Target: 5, Payload: 2})
	data, err := Encode(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tmcp_version":[1,0],"team":1,"index":4,"action":{"type":"STANCE","target":5,"payload":2}}`, string(data))

	back, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, m, back)
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"future major version", `{"tmcp_version":[2,0],"team":0,"index":1,"action":{"type":"BALL","target":-1}}`, ErrVersion},
		{"unknown action", `{"tmcp_version":[1,0],"team":0,"index":1,"action":{"type":"WAVE","target":-1}}`, ErrUnknownAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := Decode([]byte(`{not json`))
	assert.Error(t, err)
}

func TestMessage_For(t *testing.T) {
	assert.True(t, New(0, 0, Action{Type: ActionBall, Target: Broadcast}).For(3))
	assert.True(t, New(0, 0, Action{Type: ActionStance, Target: 3}).For(3))
	assert.False(t, New(0, 0, Action{Type: ActionStance, Target: 2}).For(3))
}

func TestEncode_InvalidMessage(t *testing.T) {
	_, err := Encode(Message{Version: Version, Action: Action{Type: "NOPE"}})
	assert.ErrorIs(t, err, ErrUnknownAction)
}
