package debug

import (
	"testing"

	"github.com/edgeflare/hnstream/pkg/hackernews"
	"github.com/edgeflare/hnstream/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPeerDebug(t *testing.T) {
	c, err := pipeline.NewConnector(pipeline.ConnectorDebug)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StateDisconnected, c.State())

	core, logs := observer.New(zap.InfoLevel)
	require.NoError(t, c.Connect(map[string]any{"decode": true}, zap.New(core)))

	payload, err := hackernews.Encoder{}.Encode(hackernews.Row{ID: 9, Type: hackernews.Story, Title: "hi"})
	require.NoError(t, err)

	summary := pipeline.Publish(c, "hackernews-topic", pipeline.DefaultKey, [][]byte{payload, []byte("plain text")}, nil)
	assert.Equal(t, 2, summary.Delivered)
	assert.Equal(t, int64(1), summary.Statuses[1].Offset)

	entries := logs.FilterMessage("message").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "hackernews", entries[0].ContextMap()["key"])
	assert.Equal(t, hackernews.Row{ID: 9, Type: hackernews.Story, Title: "hi"}, entries[0].ContextMap()["row"])
	assert.Equal(t, "plain text", entries[1].ContextMap()["value"])

	require.NoError(t, c.Disconnect())
	assert.ErrorIs(t, c.Pub(pipeline.Message{}).Err, pipeline.ErrNotConnected)
}
