package actorcore

import "time"

// CallType discriminates fire-and-forget delivery from request/response
// invocation.
type CallType uint8

const (
	// Send is fire-and-forget: the sender does not wait for a reply.
	Send CallType = iota + 1
	// Call is request/response: the sender attaches a response promise
	// and suspends until it completes.
	Call
)

func (t CallType) String() string {
	switch t {
	case Send:
		return "send"
	case Call:
		return "call"
	default:
		return "unknown"
	}
}

// ProtocolVersion is the current wire/in-process envelope version.
const ProtocolVersion = 1

// Envelope is the immutable record carried by every message in the
// system. Envelopes are constructed only by the actor system so that
// message-id allocation and trace-id capture are never bypassed.
type Envelope struct {
	MessageID int64
	From      Handle
	To        Handle
	CallType  CallType
	Payload   any
	TraceID   string
	Origin    time.Time
	TTL       time.Duration // zero means no TTL
	Version   int
}

// Expired reports whether the envelope's TTL (if any) has elapsed relative
// to now.
func (e Envelope) Expired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return now.After(e.Origin.Add(e.TTL))
}

// WithResponse derives a response envelope from a request envelope: the
// sender/recipient are swapped, the message-id is reused so the
// correlation layer can match it, and CallType is forced to Call.
//
// Applying WithResponse twice is idempotent on the *orientation*: the
// second application swaps From/To back, which is the documented
// round-trip law (spec.md's "with_response(p).with_response(p)" identity
// refers to the envelope's plain from/to swap being its own inverse, not
// to the payload argument being ignored).
func (e Envelope) WithResponse(payload any) Envelope {
	return Envelope{
		MessageID: e.MessageID,
		From:      e.To,
		To:        e.From,
		CallType:  Call,
		Payload:   payload,
		TraceID:   e.TraceID,
		Origin:    e.Origin,
		TTL:       e.TTL,
		Version:   e.Version,
	}
}
