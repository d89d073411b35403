package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"irondb/internal/api"
	"irondb/internal/config"
	"irondb/internal/metrics"
	"irondb/internal/storage"
)

// ServiceName is the name the health service reports for the Irondb service.
const ServiceName = "irondb.Irondb"

const shutdownTimeout = 5 * time.Second

// Option configures a Node.
type Option func(*Node)

// WithStore replaces the default in-memory store.
func WithStore(store storage.Store[string, []byte]) Option {
	return func(n *Node) {
		n.store = store
	}
}

// WithRegistry sets the registry the node's collectors are added to and
// served from.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(n *Node) {
		n.registry = reg
	}
}

// Node is a single irondb process: the store actor, the gRPC server, the
// health service and the optional metrics endpoint.
type Node struct {
	cfg        config.Config
	log        zerolog.Logger
	store      storage.Store[string, []byte]
	actor      *storage.Actor[string, []byte]
	grpcServer *grpc.Server
	health     *health.Server
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	metricsSrv *http.Server
	stopping   atomic.Bool
	stopOnce   sync.Once
	watchDone  chan struct{}
}

// NewNode creates a node and starts its store actor. Nothing listens until
// Start or Serve is called.
func NewNode(cfg config.Config, logger zerolog.Logger, opts ...Option) (*Node, error) {
	n := &Node{
		cfg:       cfg,
		log:       logger.With().Str("component", "node").Str("addr", cfg.ListenAddr).Logger(),
		metrics:   metrics.New(),
		watchDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.store == nil {
		n.store = storage.NewInMemoryStore[string, []byte](cloneBytes)
	}
	if n.registry == nil {
		n.registry = prometheus.NewRegistry()
		n.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	if err := n.metrics.Register(n.registry); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	n.actor = storage.NewActor(n.store,
		storage.WithLogger(logger),
		storage.WithKeyCountHook(func(keys int) {
			n.metrics.Keys.Set(float64(keys))
		}),
	)

	n.grpcServer = grpc.NewServer(
		grpc.ForceServerCodec(api.Codec()),
		grpc.ChainUnaryInterceptor(observe(n.metrics, logger)),
	)
	api.RegisterIrondbServer(n.grpcServer, NewServer(n.actor, n.metrics, logger))

	n.health = health.NewServer()
	n.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(n.grpcServer, n.health)

	go n.watchActor()
	return n, nil
}

// watchActor flips the health status once the store worker is gone.
func (n *Node) watchActor() {
	defer close(n.watchDone)
	<-n.actor.Done()
	if n.stopping.Load() {
		n.log.Debug().Msg("store actor closed")
	} else {
		n.log.Warn().Msg("store actor exited, reporting not serving")
	}
	n.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	n.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
}

// Start listens on the configured address, starts the metrics endpoint when
// configured and serves until Stop.
func (n *Node) Start() error {
	lis, err := net.Listen("tcp", n.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", n.cfg.ListenAddr, err)
	}

	if n.cfg.MetricsAddr != "" {
		if err := n.startMetrics(); err != nil {
			lis.Close()
			return err
		}
	}

	return n.Serve(lis)
}

// Serve serves gRPC on lis until Stop.
func (n *Node) Serve(lis net.Listener) error {
	n.log.Info().Str("listen", lis.Addr().String()).Msg("starting node")
	if err := n.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

func (n *Node) startMetrics() error {
	lis, err := net.Listen("tcp", n.cfg.MetricsAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", n.cfg.MetricsAddr, err)
	}
	n.ServeMetrics(lis)
	return nil
}

// ServeMetrics serves /metrics on lis in the background until Stop.
func (n *Node) ServeMetrics(lis net.Listener) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(n.registry))
	n.metricsSrv = &http.Server{Handler: mux, ReadHeaderTimeout: shutdownTimeout}

	go func() {
		if err := n.metricsSrv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			n.log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	n.log.Info().Str("metrics", lis.Addr().String()).Msg("serving metrics")
}

// Metrics returns the node's collectors.
func (n *Node) Metrics() *metrics.Metrics {
	return n.metrics
}

// Registry returns the registry holding the node's collectors.
func (n *Node) Registry() *prometheus.Registry {
	return n.registry
}

// Stop gracefully stops the node: in-flight RPCs complete, then the store
// actor is closed. Stop is idempotent.
func (n *Node) Stop() {
	n.stopOnce.Do(func() {
		n.log.Info().Msg("stopping node")
		n.stopping.Store(true)
		n.health.Shutdown()
		n.grpcServer.GracefulStop()
		n.actor.Close()
		<-n.watchDone

		if n.metricsSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := n.metricsSrv.Shutdown(ctx); err != nil {
				n.log.Warn().Err(err).Msg("metrics server shutdown")
			}
		}
	})
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
