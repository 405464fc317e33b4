package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/webitel/actorcluster/internal/actorcore"
)

type recordingDeliverer struct {
	mu  sync.Mutex
	got []actorcore.Envelope
	err error
}

func (d *recordingDeliverer) LocalDeliver(ctx context.Context, env actorcore.Envelope, promise *actorcore.ResponsePromise) error {
	d.mu.Lock()
	d.got = append(d.got, env)
	d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	if promise != nil {
		promise.Complete("ok")
	}
	return nil
}

func (d *recordingDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.got)
}

func TestInProcess_ShortCircuitDeliversOnCallerGoroutine(t *testing.T) {
	d := &recordingDeliverer{}
	tr := NewInProcess(d, true)
	defer tr.Close()

	err := tr.Send(context.Background(), actorcore.Envelope{MessageID: 1}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, d.count())
}

func TestInProcess_QueuedModeDeliversAsynchronously(t *testing.T) {
	d := &recordingDeliverer{}
	tr := NewInProcess(d, false)
	defer tr.Close()

	promise := actorcore.NewResponsePromise()
	err := tr.Send(context.Background(), actorcore.Envelope{MessageID: 1}, promise)
	require.NoError(t, err)

	out, ok := promise.Wait(context.Background())
	require.True(t, ok)
	require.Equal(t, "ok", out.Value)
	require.Equal(t, 1, d.count())
}

func TestInProcess_QueuedModePropagatesDeliveryError(t *testing.T) {
	d := &recordingDeliverer{err: errors.New("no such actor")}
	tr := NewInProcess(d, false)
	defer tr.Close()

	promise := actorcore.NewResponsePromise()
	err := tr.Send(context.Background(), actorcore.Envelope{MessageID: 1}, promise)
	require.NoError(t, err)

	out, ok := promise.Wait(context.Background())
	require.True(t, ok)
	require.Error(t, out.Err)
}

func TestInProcess_CancellationBeforeDispatchCancelsPromise(t *testing.T) {
	d := &recordingDeliverer{}
	tr := NewInProcess(d, false)
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	promise := actorcore.NewResponsePromise()

	// Cancel before the background pump has a chance to run.
	cancel()
	err := tr.Send(ctx, actorcore.Envelope{MessageID: 1}, promise)
	require.NoError(t, err)

	out, ok := promise.Wait(context.Background())
	require.True(t, ok)
	require.True(t, out.Cancelled)
}

func TestInProcess_CloseDrainsPendingWithCancellation(t *testing.T) {
	d := &recordingDeliverer{}
	tr := NewInProcess(d, false)

	// Fill the queue without giving the pump a chance to drain it by
	// closing immediately after enqueuing.
	var promises []*actorcore.ResponsePromise
	for i := 0; i < 5; i++ {
		p := actorcore.NewResponsePromise()
		promises = append(promises, p)
		require.NoError(t, tr.Send(context.Background(), actorcore.Envelope{MessageID: int64(i)}, p))
	}
	require.NoError(t, tr.Close())

	// Every promise must have resolved one way or another (delivered or
	// cancelled by the drain-on-close path) — none left hanging.
	for _, p := range promises {
		select {
		case <-p.Done():
		case <-time.After(time.Second):
			t.Fatal("promise left unresolved after Close")
		}
	}
}
