package actorcore

import "errors"

// Sentinel errors shared by the actor system, transport, and cluster
// layers. Wrapped with fmt.Errorf("...: %w", err) at call sites, matching
// the teacher's own error-wrapping convention rather than a bespoke error
// code package.
var (
	ErrNameTaken      = errors.New("actorcore: name already registered")
	ErrHandleInUse    = errors.New("actorcore: handle already in use")
	ErrNotFound       = errors.New("actorcore: target not found")
	ErrTimeout        = errors.New("actorcore: call timed out")
	ErrCancelled      = errors.New("actorcore: call cancelled")
	ErrTypeMismatch   = errors.New("actorcore: response type mismatch")
	ErrInvalidConfig  = errors.New("actorcore: invalid configuration")
	ErrRemoteDispatch = errors.New("actorcore: remote dispatch fault")
)
