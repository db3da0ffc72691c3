package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestSetup_FileOnly_NoConsole(t *testing.T) {
	var consoleBuf bytes.Buffer
	swapConsole(t, &consoleBuf)

	var fileBuf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&fileBuf, "info", nil, nil)
	m.Logger().Info("hello file")

	assert.Contains(t, fileBuf.String(), "hello file")
	assert.Empty(t, consoleBuf.String())
}

func TestSetup_NoFile_WritesToConsole(t *testing.T) {
	var consoleBuf bytes.Buffer
	swapConsole(t, &consoleBuf)

	m := NewSlogManager()
	m.Setup(nil, "info", nil, nil)
	m.Logger().Info("hello console")

	assert.Contains(t, consoleBuf.String(), "hello console")
}

func TestSetup_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "debug", nil, nil)

	m.Logger().Debug("debug msg")
	m.Logger().Info("info msg")

	output := buf.String()
	assert.Contains(t, output, "debug msg")
	assert.Contains(t, output, "info msg")
}

func TestSetup_InfoLevel_FiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", nil, nil)

	m.Logger().Debug("should be filtered")
	m.Logger().Info("should appear")

	output := buf.String()
	assert.NotContains(t, output, "should be filtered")
	assert.Contains(t, output, "should appear")
}

func TestSetup_ExtraHandlers(t *testing.T) {
	var file, extra bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", nil, nil, slog.NewTextHandler(&extra, nil))
	m.Logger().Info("both")

	assert.Contains(t, file.String(), "both")
	assert.Contains(t, extra.String(), "both")
}

func TestSetup_MatchContext(t *testing.T) {
	var buf bytes.Buffer
	mc := &MatchContext{}
	m := NewSlogManager()
	m.Setup(&buf, "info", nil, mc)

	m.Logger().Info("before match")
	assert.NotContains(t, buf.String(), "match=")

	mc.SetSession("abc")
	mc.SetTick(120)
	m.Logger().Info("in match")
	assert.Contains(t, buf.String(), "match=abc")
	assert.Contains(t, buf.String(), "tick=120")
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.Equal(t, slog.Default(), m.Logger())
}

func TestFlush_NilProvider(t *testing.T) {
	m := NewSlogManager()
	assert.NoError(t, m.Flush(context.Background()))
}

func TestFlush_WithProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	m := NewSlogManager()

	var buf bytes.Buffer
	m.Setup(&buf, "info", provider, nil)
	m.Logger().Info("otel integrated")

	assert.Contains(t, buf.String(), "otel integrated")
	assert.NoError(t, m.Flush(context.Background()))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"invalid", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestFanout_CopiesToEverySink(t *testing.T) {
	var file, gelf bytes.Buffer
	f := NewFanout(
		slog.NewTextHandler(&file, nil),
		nil,
		slog.NewTextHandler(&gelf, nil),
	)
	require.Len(t, f.sinks, 2)

	slog.New(f).Info("kickoff", "car", 1)
	assert.Contains(t, file.String(), "car=1")
	assert.Contains(t, gelf.String(), "car=1")
}

func TestFanout_EnabledByAnySink(t *testing.T) {
	ctx := context.Background()
	info := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	debug := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug})

	assert.False(t, NewFanout().Enabled(ctx, slog.LevelError))
	assert.False(t, NewFanout(info).Enabled(ctx, slog.LevelDebug))
	assert.True(t, NewFanout(info, debug).Enabled(ctx, slog.LevelDebug))
}

func TestFanout_DebugOnlyReachesDebugSinks(t *testing.T) {
	var info, debug bytes.Buffer
	f := NewFanout(
		slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	slog.New(f).Debug("play started")

	assert.Empty(t, info.String())
	assert.Contains(t, debug.String(), "play started")
}

// failingSink refuses every record, like a Graylog writer with no route.
type failingSink struct{}

func (failingSink) Enabled(context.Context, slog.Level) bool { return true }
func (f failingSink) WithAttrs([]slog.Attr) slog.Handler     { return f }
func (f failingSink) WithGroup(string) slog.Handler          { return f }

func (failingSink) Handle(context.Context, slog.Record) error {
	return errors.New("sink down")
}

func TestFanout_CountsFailuresAndKeepsGoing(t *testing.T) {
	var buf bytes.Buffer
	f := NewFanout(failingSink{}, slog.NewTextHandler(&buf, nil))
	logger := slog.New(f)

	logger.Info("first")
	logger.With("car", 2).Info("second")

	assert.Contains(t, buf.String(), "first")
	assert.Contains(t, buf.String(), "car=2")
	assert.Equal(t, uint64(2), f.Failures(), "derived loggers share the counter")
}

func TestFanout_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	f := NewFanout(slog.NewTextHandler(&buf, nil))
	assert.Same(t, f, f.WithGroup(""))

	slog.New(f.WithGroup("ball")).Info("touched", "car", 3)
	assert.Contains(t, buf.String(), "ball.car=3")
}

func TestSetup_SinkFailures(t *testing.T) {
	m := NewSlogManager()
	assert.Zero(t, m.SinkFailures())

	m.Setup(&bytes.Buffer{}, "info", nil, nil, failingSink{})
	m.Logger().Info("tick")
	assert.Equal(t, uint64(2), m.SinkFailures(), "the setup line and the tick line")
}

func swapConsole(t *testing.T, w *bytes.Buffer) {
	t.Helper()
	orig := console
	console = w
	t.Cleanup(func() { console = orig })
}
