package metrics

import (
	"cmp"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	RowsEncoded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hnstream_rows_encoded_total",
			Help: "Total number of rows encoded into messages",
		},
	)

	MessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hnstream_messages_published_total",
			Help: "Total number of messages acknowledged by topic",
		},
		[]string{"topic"},
	)

	PublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hnstream_publish_errors_total",
			Help: "Total number of failed deliveries by topic",
		},
		[]string{"topic"},
	)

	PublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hnstream_publish_duration_seconds",
			Help:    "Time from send to acknowledgment or failure",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic"},
	)
)

// Server exposes the default prometheus registry.
type Server struct {
	Addr              string
	Path              string        // defaults to "/metrics"
	ShutdownTimeout   time.Duration // defaults to 5s
	ReadHeaderTimeout time.Duration // defaults to 3s

	logger *zap.Logger
}

func NewServer(addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Addr:   cmp.Or(addr, ":9100"),
		logger: logger,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(cmp.Or(s.Path, "/metrics"), promhttp.Handler())
	return mux
}

// Serve blocks until ctx is canceled, then shuts the server down. It returns
// early with an error when the address cannot be bound.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: cmp.Or(s.ReadHeaderTimeout, 3*time.Second),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cmp.Or(s.ShutdownTimeout, 5*time.Second))
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("metrics server shutdown", zap.Error(err))
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Debug("metrics server stopped")
	return nil
}
