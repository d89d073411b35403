package node

import (
	"bytes"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"irondb/internal/api"
	"irondb/internal/clock"
	"irondb/internal/config"
)

func startNode(t *testing.T, opts ...Option) (*Node, *grpc.ClientConn) {
	t.Helper()
	return startNodeWithLogger(t, zerolog.Nop(), opts...)
}

func startNodeWithLogger(t *testing.T, logger zerolog.Logger, opts ...Option) (*Node, *grpc.ClientConn) {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	opts = append([]Option{WithRegistry(prometheus.NewRegistry())}, opts...)
	n, err := NewNode(config.Default(), logger, opts...)
	require.NoError(t, err)

	go func() {
		_ = n.Serve(lis)
	}()
	t.Cleanup(n.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return n, conn
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestServer_AreYouOkay(t *testing.T) {
	_, conn := startNode(t)
	client := api.NewIrondbClient(conn)

	reply, err := client.AreYouOkay(testContext(t), &api.AreYouOkayRequest{Name: "Tonic"})
	require.NoError(t, err)
	assert.Equal(t, "AreYouOkay Tonic!", reply.Message)
}

func TestServer_PutGetStaleResolve(t *testing.T) {
	_, conn := startNode(t)
	client := api.NewIrondbClient(conn)
	ctx := testContext(t)

	// Unknown key reads as an empty result list.
	got, err := client.Get(ctx, &api.GetRequest{Key: "foo"})
	require.NoError(t, err)
	assert.Empty(t, got.Results)

	put, err := client.Put(ctx, &api.PutRequest{Key: "foo", Value: []byte("bar")})
	require.NoError(t, err)
	assert.Equal(t, "foo", put.Key)
	assert.Empty(t, put.Previous)

	got, err = client.Get(ctx, &api.GetRequest{Key: "foo"})
	require.NoError(t, err)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "bar", string(got.Results[0].Value))
	stored, err := api.ToClock(got.Results[0].Version)
	require.NoError(t, err)
	assert.True(t, stored.IsEmpty())

	// A second unversioned write carries an equal clock and is stale.
	_, err = client.Put(ctx, &api.PutRequest{Key: "foo", Value: []byte("quux")})
	require.Error(t, err)
	assert.Equal(t, codes.Aborted, status.Code(err))

	next := stored.Incremented(0, 1, clock.NowMillis())
	put, err = client.Put(ctx, &api.PutRequest{Key: "foo", Value: []byte("quux"), Version: api.FromClock(next)})
	require.NoError(t, err)
	require.Len(t, put.Previous, 1)
	assert.Equal(t, "bar", string(put.Previous[0].Value))

	got, err = client.Get(ctx, &api.GetRequest{Key: "foo"})
	require.NoError(t, err)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "quux", string(got.Results[0].Value))
}

func TestServer_ConcurrentWritesBecomeSiblings(t *testing.T) {
	_, conn := startNode(t)
	client := api.NewIrondbClient(conn)
	ctx := testContext(t)

	a := clock.FromEntries(map[uint16]uint64{1: 1}, 10)
	b := clock.FromEntries(map[uint16]uint64{2: 1}, 20)

	_, err := client.Put(ctx, &api.PutRequest{Key: "k", Value: []byte("a"), Version: api.FromClock(a)})
	require.NoError(t, err)
	_, err = client.Put(ctx, &api.PutRequest{Key: "k", Value: []byte("b"), Version: api.FromClock(b)})
	require.NoError(t, err)

	got, err := client.Get(ctx, &api.GetRequest{Key: "k"})
	require.NoError(t, err)
	require.Len(t, got.Results, 2)
	assert.Equal(t, "b", string(got.Results[0].Value))
	assert.Equal(t, "a", string(got.Results[1].Value))
}

func TestServer_InvalidArguments(t *testing.T) {
	_, conn := startNode(t)
	client := api.NewIrondbClient(conn)
	ctx := testContext(t)

	_, err := client.Get(ctx, &api.GetRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Put(ctx, &api.PutRequest{Value: []byte("v")})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	bad := &api.VectorClock{Entries: []*api.ClockEntry{{WriterId: 70000, Counter: 1}}}
	_, err = client.Put(ctx, &api.PutRequest{Key: "k", Value: []byte("v"), Version: bad})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestServer_StaleWriteMetric(t *testing.T) {
	n, conn := startNode(t)
	client := api.NewIrondbClient(conn)
	ctx := testContext(t)

	_, err := client.Put(ctx, &api.PutRequest{Key: "m", Value: []byte("1")})
	require.NoError(t, err)
	_, err = client.Put(ctx, &api.PutRequest{Key: "m", Value: []byte("2")})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(n.Metrics().StaleWrites))
	assert.Equal(t, 1.0, testutil.ToFloat64(n.Metrics().Keys))
}

// panicStore panics on every Put, killing the store worker.
type panicStore struct{}

func (panicStore) Get(key string) ([]clock.Versioned[[]byte], error) {
	return nil, nil
}

func (panicStore) Put(key string, v clock.Versioned[[]byte]) ([]clock.Versioned[[]byte], error) {
	panic("boom")
}

func TestNode_HealthFollowsActor(t *testing.T) {
	_, conn := startNode(t, WithStore(panicStore{}))
	client := api.NewIrondbClient(conn)
	healthClient := healthpb.NewHealthClient(conn)
	ctx := testContext(t)

	resp, err := healthClient.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	_, err = client.Put(ctx, &api.PutRequest{Key: "k", Value: []byte("v")})
	assert.Equal(t, codes.Unknown, status.Code(err))

	require.Eventually(t, func() bool {
		resp, err := healthClient.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
		return err == nil && resp.Status == healthpb.HealthCheckResponse_NOT_SERVING
	}, 2*time.Second, 10*time.Millisecond)

	_, err = client.Get(ctx, &api.GetRequest{Key: "k"})
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestNode_StopIdempotent(t *testing.T) {
	n, _ := startNode(t)
	n.Stop()
	n.Stop()
}

func TestNode_RegistryGathersIrondbMetrics(t *testing.T) {
	n, conn := startNode(t)
	client := api.NewIrondbClient(conn)

	_, err := client.AreYouOkay(testContext(t), &api.AreYouOkayRequest{Name: "monitor"})
	require.NoError(t, err)

	families, err := n.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["irondb_rpc_requests_total"])
	assert.True(t, names["irondb_rpc_duration_seconds"])
}

// Clients generated from irondb.proto call without the irondb
// content-subtype. StringValue shares the wire layout of AreYouOkayRequest,
// AreYouOkayReply (field 1) and of PutRequest.key / PutReply.key.
func TestServer_DefaultProtoSubtype(t *testing.T) {
	_, conn := startNode(t)
	ctx := testContext(t)

	reply := &wrapperspb.StringValue{}
	err := conn.Invoke(ctx, api.Irondb_AreYouOkay_FullMethodName, wrapperspb.String("Tonic"), reply)
	require.NoError(t, err)
	assert.Equal(t, "AreYouOkay Tonic!", reply.GetValue())

	putReply := &wrapperspb.StringValue{}
	err = conn.Invoke(ctx, api.Irondb_Put_FullMethodName, wrapperspb.String("plain"), putReply)
	require.NoError(t, err)
	assert.Equal(t, "plain", putReply.GetValue())

	got, err := api.NewIrondbClient(conn).Get(ctx, &api.GetRequest{Key: "plain"})
	require.NoError(t, err)
	assert.Len(t, got.Results, 1)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNode_StopDoesNotWarn(t *testing.T) {
	var logs syncBuffer
	n, _ := startNodeWithLogger(t, zerolog.New(&logs).Level(zerolog.DebugLevel))

	n.Stop()

	assert.Contains(t, logs.String(), "store actor closed")
	assert.NotContains(t, logs.String(), `"level":"warn"`)
}

func TestNode_ActorDeathWarns(t *testing.T) {
	var logs syncBuffer
	n, conn := startNodeWithLogger(t, zerolog.New(&logs).Level(zerolog.DebugLevel), WithStore(panicStore{}))

	_, err := api.NewIrondbClient(conn).Put(testContext(t), &api.PutRequest{Key: "k", Value: []byte("v")})
	require.Error(t, err)

	select {
	case <-n.watchDone:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not observe actor exit")
	}
	assert.Contains(t, logs.String(), "store actor exited, reporting not serving")
}
