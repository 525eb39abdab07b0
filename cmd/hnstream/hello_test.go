package hnstream

import (
	"context"
	"testing"
	"time"

	"github.com/edgeflare/hnstream/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSendHello(t *testing.T) {
	sink, err := pipeline.NewConnector(pipeline.ConnectorDebug)
	require.NoError(t, err)
	core, logs := observer.New(zap.InfoLevel)
	require.NoError(t, sink.Connect(nil, zap.New(core)))

	now := func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	summary := sendHello(context.Background(), sink, "hello-world-topic", time.Millisecond, 3, now)

	assert.Equal(t, 3, summary.Attempted())
	assert.Equal(t, 3, summary.Delivered)

	entries := logs.FilterMessage("message").All()
	require.Len(t, entries, 3)
	assert.Equal(t, "hello-world-topic", entries[0].ContextMap()["topic"])
	assert.Equal(t, "", entries[0].ContextMap()["key"])
	assert.Equal(t, int64(len("2024-05-01T12:00:00Z: Hello World!")), entries[0].ContextMap()["bytes"])
}

func TestSendHelloStopsOnCancel(t *testing.T) {
	sink, err := pipeline.NewConnector(pipeline.ConnectorDebug)
	require.NoError(t, err)
	require.NoError(t, sink.Connect(nil, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary := sendHello(ctx, sink, "hello-world-topic", time.Hour, 0, time.Now)
	assert.Equal(t, 1, summary.Attempted())
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger("debug")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = newLogger("warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))

	l, err = newLogger("none")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.ErrorLevel))

	_, err = newLogger("loud")
	assert.Error(t, err)
}

func TestRunHelloRejectsInterval(t *testing.T) {
	saved := helloInterval
	t.Cleanup(func() { helloInterval = saved })

	for _, interval := range []time.Duration{0, -time.Second} {
		helloInterval = interval
		err := runHello(helloCmd, nil)
		assert.ErrorIs(t, err, errInvalidInterval, interval.String())
	}
}
