package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesPublishMetrics(t *testing.T) {
	MessagesPublished.WithLabelValues("metrics-test").Inc()
	PublishErrors.WithLabelValues("metrics-test").Inc()
	RowsEncoded.Add(2)

	ts := httptest.NewServer(NewServer("", nil).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `hnstream_messages_published_total{topic="metrics-test"} 1`)
	assert.Contains(t, string(body), `hnstream_publish_errors_total{topic="metrics-test"} 1`)
	assert.Contains(t, string(body), "hnstream_rows_encoded_total")
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer("127.0.0.1:0", nil).Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeAddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	err = NewServer(ln.Addr().String(), nil).Serve(context.Background())
	assert.Error(t, err)
}
