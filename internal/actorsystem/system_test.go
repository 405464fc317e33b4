package actorsystem

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/webitel/actorcluster/internal/actorcore"
)

type echoActor struct {
	started int32
}

func (a *echoActor) Start(ctx context.Context) error {
	atomic.AddInt32(&a.started, 1)
	return nil
}
func (a *echoActor) Receive(ctx context.Context, env actorcore.Envelope) (any, error) {
	return env.Payload, nil
}
func (a *echoActor) Stop(ctx context.Context) error { return nil }

func newTestSystem() *System {
	return New(Options{NodeID: "node-a"})
}

func TestSystem_CreateAndCallRoundTrip(t *testing.T) {
	s := newTestSystem()
	defer s.Shutdown()

	h, err := s.Create(context.Background(), func() (actorcore.Actor, error) { return &echoActor{}, nil }, "", actorcore.NoHandle)
	require.NoError(t, err)

	out, err := s.Call(context.Background(), h, "hello", time.Second, actorcore.NoHandle)
	require.NoError(t, err)
	require.Equal(t, "hello", out)
}

func TestSystem_NamedCreateRejectsDuplicateName(t *testing.T) {
	s := newTestSystem()
	defer s.Shutdown()

	_, err := s.Create(context.Background(), func() (actorcore.Actor, error) { return &echoActor{}, nil }, "singleton", actorcore.NoHandle)
	require.NoError(t, err)

	_, err = s.Create(context.Background(), func() (actorcore.Actor, error) { return &echoActor{}, nil }, "singleton", actorcore.NoHandle)
	require.ErrorIs(t, err, actorcore.ErrNameTaken)
}

func TestSystem_GetOrCreateUniqueRaceCreatesExactlyOne(t *testing.T) {
	s := newTestSystem()
	defer s.Shutdown()

	var factoryCalls int32
	factory := func() (actorcore.Actor, error) {
		atomic.AddInt32(&factoryCalls, 1)
		return &echoActor{}, nil
	}

	const n = 32
	handles := make([]actorcore.Handle, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			h, err := s.GetOrCreateUnique(context.Background(), "contended", factory)
			require.NoError(t, err)
			handles[i] = h
		}()
	}
	wg.Wait()

	first := handles[0]
	for _, h := range handles {
		require.Equal(t, first, h)
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&factoryCalls))
}

func TestSystem_KillRemovesNameAndHandle(t *testing.T) {
	s := newTestSystem()
	defer s.Shutdown()

	h, err := s.Create(context.Background(), func() (actorcore.Actor, error) { return &echoActor{}, nil }, "temp", actorcore.NoHandle)
	require.NoError(t, err)

	require.True(t, s.Kill(h))
	_, ok := s.TryGetHandleByName("temp")
	require.False(t, ok)

	_, err = s.GetByHandle(h)
	require.ErrorIs(t, err, actorcore.ErrNotFound)
}

func TestSystem_CreateRollsBackNameOnStartFailure(t *testing.T) {
	s := newTestSystem()
	defer s.Shutdown()

	_, err := s.Create(context.Background(), func() (actorcore.Actor, error) {
		return &startFailsActor{}, nil
	}, "claimed", actorcore.NoHandle)
	require.Error(t, err)

	_, ok := s.TryGetHandleByName("claimed")
	require.False(t, ok)

	// The name must be free again for a subsequent, successful create.
	h, err := s.Create(context.Background(), func() (actorcore.Actor, error) { return &echoActor{}, nil }, "claimed", actorcore.NoHandle)
	require.NoError(t, err)
	require.True(t, h.Valid())
}

type startFailsActor struct{}

func (a *startFailsActor) Start(ctx context.Context) error { return context.DeadlineExceeded }
func (a *startFailsActor) Receive(ctx context.Context, env actorcore.Envelope) (any, error) {
	return nil, nil
}
func (a *startFailsActor) Stop(ctx context.Context) error { return nil }

func TestSystem_SendIsFireAndForget(t *testing.T) {
	s := newTestSystem()
	defer s.Shutdown()

	h, err := s.Create(context.Background(), func() (actorcore.Actor, error) { return &echoActor{}, nil }, "", actorcore.NoHandle)
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), h, "fire", actorcore.NoHandle))
}

func TestSystem_CallUnknownHandleFails(t *testing.T) {
	s := newTestSystem()
	defer s.Shutdown()

	_, err := s.Call(context.Background(), actorcore.Handle(99999), "x", time.Second, actorcore.NoHandle)
	require.Error(t, err)
}

func TestSystem_ListActorsReflectsLiveSet(t *testing.T) {
	s := newTestSystem()
	defer s.Shutdown()

	h1, err := s.Create(context.Background(), func() (actorcore.Actor, error) { return &echoActor{}, nil }, "one", actorcore.NoHandle)
	require.NoError(t, err)
	_, err = s.Create(context.Background(), func() (actorcore.Actor, error) { return &echoActor{}, nil }, "two", actorcore.NoHandle)
	require.NoError(t, err)

	require.Len(t, s.ListActors(), 2)
	s.Kill(h1)
	require.Len(t, s.ListActors(), 1)
}
