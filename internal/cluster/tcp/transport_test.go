package tcp

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/webitel/actorcluster/internal/actorcore"
	"github.com/webitel/actorcluster/internal/cluster"
)

type stubLocal struct {
	handler func(ctx context.Context, env actorcore.Envelope) (any, error)
}

func (s *stubLocal) LocalDeliver(ctx context.Context, env actorcore.Envelope, promise *actorcore.ResponsePromise) error {
	out, err := s.handler(ctx, env)
	if err != nil {
		return err
	}
	if promise != nil {
		promise.Complete(out)
	}
	return nil
}

func TestTransport_CrossNodeCallRoundTrip(t *testing.T) {
	registryB := cluster.NewStaticRegistry("node-b")
	localB := &stubLocal{handler: func(ctx context.Context, env actorcore.Envelope) (any, error) {
		return fmt.Sprintf("echo:%v", env.Payload), nil
	}}

	tB, err := New(Options{
		LocalNodeID:   "node-b",
		LocalEndpoint: "127.0.0.1:0",
		Local:         localB,
		Registry:      registryB,
		ListenAddress: "127.0.0.1:0",
	})
	require.NoError(t, err)
	defer tB.Close()

	bAddr := tB.listener.Addr().String()

	target := actorcore.Handle(42)
	registryA := cluster.NewStaticRegistry("node-a",
		cluster.WithNode("node-b", bAddr),
		cluster.WithSeedLocation("target", actorcore.Location{NodeID: "node-b", Handle: target}),
	)

	localA := &stubLocal{handler: func(ctx context.Context, env actorcore.Envelope) (any, error) {
		return nil, actorcore.ErrNotFound
	}}
	tA, err := New(Options{
		LocalNodeID: "node-a",
		Local:       localA,
		Registry:    registryA,
	})
	require.NoError(t, err)
	defer tA.Close()

	promise := actorcore.NewResponsePromise()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = tA.Send(ctx, actorcore.Envelope{MessageID: 1, To: target, CallType: actorcore.Call, Payload: "hi"}, promise)
	require.NoError(t, err)

	out, ok := promise.Wait(ctx)
	require.True(t, ok)
	require.NoError(t, out.Err)
	require.Equal(t, "echo:hi", out.Value)
}

func TestTransport_RemoteHandlerFailureReturnsFault(t *testing.T) {
	registryB := cluster.NewStaticRegistry("node-b")
	localB := &stubLocal{handler: func(ctx context.Context, env actorcore.Envelope) (any, error) {
		return nil, fmt.Errorf("boom")
	}}

	tB, err := New(Options{
		LocalNodeID:   "node-b",
		Local:         localB,
		Registry:      registryB,
		ListenAddress: "127.0.0.1:0",
	})
	require.NoError(t, err)
	defer tB.Close()

	target := actorcore.Handle(7)
	registryA := cluster.NewStaticRegistry("node-a",
		cluster.WithNode("node-b", tB.listener.Addr().String()),
		cluster.WithSeedLocation("target", actorcore.Location{NodeID: "node-b", Handle: target}),
	)
	localA := &stubLocal{handler: func(ctx context.Context, env actorcore.Envelope) (any, error) {
		return nil, actorcore.ErrNotFound
	}}
	tA, err := New(Options{LocalNodeID: "node-a", Local: localA, Registry: registryA})
	require.NoError(t, err)
	defer tA.Close()

	promise := actorcore.NewResponsePromise()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, tA.Send(ctx, actorcore.Envelope{MessageID: 2, To: target, CallType: actorcore.Call, Payload: "x"}, promise))

	out, ok := promise.Wait(ctx)
	require.True(t, ok)
	require.Error(t, out.Err)
}
