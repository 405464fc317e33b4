package tcp

import (
	"github.com/webitel/actorcluster/internal/actorcore"
)

// wireEnvelope is the shape an Envelope (or a reply to one) is flattened
// into before encoding with the transport's configured codec. Payload is
// carried as `any` so JSONCodec can self-describe it and GobCodec can
// round-trip it once the caller has registered the concrete type with
// cluster.RegisterGobType.
type wireEnvelope struct {
	MessageID  int64
	From       actorcore.Handle
	To         actorcore.Handle
	CallType   actorcore.CallType
	TraceID    string
	Version    int
	IsReply    bool
	ReplyFault *replyFault
	Payload    any
}

// replyFault carries a remote handler failure or cancellation back to the
// caller without requiring the payload codec to understand Go errors.
type replyFault struct {
	Cancelled bool
	Message   string
}

// handshakePayload is the first frame either side of a new connection
// sends: the outbound dialer sends first, the inbound accepter replies
// once it has read the dialer's handshake (spec.md §8's handshake-
// ordering clause).
type handshakePayload struct {
	NodeID   string
	Endpoint string
}

func fromEnvelope(env actorcore.Envelope) wireEnvelope {
	return wireEnvelope{
		MessageID: env.MessageID,
		From:      env.From,
		To:        env.To,
		CallType:  env.CallType,
		TraceID:   env.TraceID,
		Version:   env.Version,
		Payload:   env.Payload,
	}
}

func (w wireEnvelope) toEnvelope() actorcore.Envelope {
	return actorcore.Envelope{
		MessageID: w.MessageID,
		From:      w.From,
		To:        w.To,
		CallType:  w.CallType,
		TraceID:   w.TraceID,
		Version:   w.Version,
		Payload:   w.Payload,
	}
}
