// Package client is a Go client for an irondb node.
package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"irondb/internal/api"
	"irondb/internal/clock"
	"irondb/internal/reconcile"
)

// Client talks to a single irondb node.
type Client struct {
	conn *grpc.ClientConn
	rpc  api.IrondbClient
}

// Dial creates a client for addr. Extra dial options are appended after the
// default insecure transport credentials.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return &Client{conn: conn, rpc: api.NewIrondbClient(conn)}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Ping sends AreYouOkay and returns the node's answer.
func (c *Client) Ping(ctx context.Context, name string) (string, error) {
	reply, err := c.rpc.AreYouOkay(ctx, &api.AreYouOkayRequest{Name: name})
	if err != nil {
		return "", err
	}
	return reply.Message, nil
}

// Get returns the siblings stored for key, newest first.
func (c *Client) Get(ctx context.Context, key string) ([]clock.Versioned[[]byte], error) {
	reply, err := c.rpc.Get(ctx, &api.GetRequest{Key: key, RequestId: uuid.NewString()})
	if err != nil {
		return nil, err
	}
	return api.ToVersioned(reply.Results)
}

// Put writes value under key with version. A nil version lets the node use
// a fresh empty clock. It returns the siblings present before the write.
func (c *Client) Put(ctx context.Context, key string, value []byte, version *clock.VectorClock) ([]clock.Versioned[[]byte], error) {
	req := &api.PutRequest{Key: key, Value: value, RequestId: uuid.NewString()}
	if version != nil {
		req.Version = api.FromClock(*version)
	}
	reply, err := c.rpc.Put(ctx, req)
	if err != nil {
		return nil, err
	}
	return api.ToVersioned(reply.Previous)
}

// Reconcile reads key and splits its siblings into the maximal set of
// winners and the versions they dominate.
func (c *Client) Reconcile(ctx context.Context, key string) (reconcile.Result[[]byte], error) {
	siblings, err := c.Get(ctx, key)
	if err != nil {
		return reconcile.Result[[]byte]{}, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return reconcile.Reconcile(siblings), nil
}

// PutResolved reads key, then writes value with a clock that dominates every
// winner, replacing them all. writer identifies this client in the clock.
func (c *Client) PutResolved(ctx context.Context, key string, value []byte, writer uint16) ([]clock.Versioned[[]byte], error) {
	res, err := c.Reconcile(ctx, key)
	if err != nil {
		return nil, err
	}
	next := reconcile.Successor(writer, clock.NowMillis(), res.Winners)
	return c.Put(ctx, key, value, &next)
}
