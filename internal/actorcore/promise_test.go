package actorcore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResponsePromise_FirstCompletionWins(t *testing.T) {
	p := NewResponsePromise()
	require.True(t, p.Complete("first"))
	require.False(t, p.Cancel())
	require.False(t, p.Fail(nil))

	out, ok := p.Wait(context.Background())
	require.True(t, ok)
	require.Equal(t, "first", out.Value)
	require.False(t, out.Cancelled)
}

func TestResponsePromise_WaitObservesCtxCancellation(t *testing.T) {
	p := NewResponsePromise()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := p.Wait(ctx)
	require.False(t, ok)
}

func TestHandleAllocator_MonotonicFromOffset(t *testing.T) {
	a := NewHandleAllocator(0)
	require.Equal(t, Handle(1), a.Next())
	require.Equal(t, Handle(2), a.Next())
}

func TestHandleAllocator_ObserveAvoidsCollision(t *testing.T) {
	a := NewHandleAllocator(0)
	a.Observe(100)
	require.Equal(t, Handle(101), a.Next())
}

func TestEnvelope_WithResponseSwapIsInvolution(t *testing.T) {
	orig := Envelope{MessageID: 7, From: 1, To: 2, CallType: Send}
	resp := orig.WithResponse("payload")
	require.Equal(t, Handle(2), resp.From)
	require.Equal(t, Handle(1), resp.To)
	require.Equal(t, Call, resp.CallType)

	respAgain := resp.WithResponse("payload")
	require.Equal(t, orig.From, respAgain.From)
	require.Equal(t, orig.To, respAgain.To)
	require.Equal(t, int64(7), respAgain.MessageID)
}
