package it

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"irondb/internal/client"
	"irondb/internal/config"
	"irondb/internal/node"
)

// Harness runs one node in-process on loopback TCP listeners.
type Harness struct {
	node        *node.Node
	addr        string
	metricsAddr string
	serveErr    chan error
	conn        *grpc.ClientConn
	health      healthpb.HealthClient
}

// Start starts a node on ephemeral loopback ports and waits for it to report
// SERVING.
func Start(ctx context.Context, logger zerolog.Logger) (*Harness, error) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	metricsLis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		lis.Close()
		return nil, fmt.Errorf("failed to listen for metrics: %w", err)
	}

	cfg := config.Default()
	cfg.ListenAddr = lis.Addr().String()
	cfg.MetricsAddr = metricsLis.Addr().String()

	n, err := node.NewNode(cfg, logger, node.WithRegistry(prometheus.NewRegistry()))
	if err != nil {
		lis.Close()
		metricsLis.Close()
		return nil, err
	}
	n.ServeMetrics(metricsLis)

	h := &Harness{
		node:        n,
		addr:        cfg.ListenAddr,
		metricsAddr: cfg.MetricsAddr,
		serveErr:    make(chan error, 1),
	}
	go func() {
		h.serveErr <- n.Serve(lis)
	}()

	conn, err := grpc.NewClient(h.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		h.Stop()
		return nil, fmt.Errorf("failed to dial %s: %w", h.addr, err)
	}
	h.conn = conn
	h.health = healthpb.NewHealthClient(conn)

	if err := h.waitForReady(ctx, 10*time.Second); err != nil {
		h.Stop()
		return nil, fmt.Errorf("node %s failed to become ready: %w", h.addr, err)
	}
	return h, nil
}

// waitForReady polls the health service until the node reports SERVING.
func (h *Harness) waitForReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if time.Now().After(deadline) {
				return fmt.Errorf("timeout waiting for node %s to be ready", h.addr)
			}

			healthCtx, cancel := context.WithTimeout(ctx, time.Second)
			resp, err := h.health.Check(healthCtx, &healthpb.HealthCheckRequest{Service: node.ServiceName})
			cancel()

			if err == nil && resp.Status == healthpb.HealthCheckResponse_SERVING {
				return nil
			}
		}
	}
}

// Addr returns the gRPC address of the node.
func (h *Harness) Addr() string {
	return h.addr
}

// MetricsURL returns the URL of the node's Prometheus endpoint.
func (h *Harness) MetricsURL() string {
	return "http://" + h.metricsAddr + "/metrics"
}

// Client dials a new client to the node.
func (h *Harness) Client() (*client.Client, error) {
	return client.Dial(h.addr)
}

// Stop stops the node and returns the error Serve exited with, if any.
func (h *Harness) Stop() error {
	if h.conn != nil {
		h.conn.Close()
	}
	h.node.Stop()
	select {
	case err := <-h.serveErr:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("node %s did not stop", h.addr)
	}
}
