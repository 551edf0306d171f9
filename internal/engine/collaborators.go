package engine

import (
	"context"
)

// GenerateRequest is one call to the text-generation collaborator.
type GenerateRequest struct {
	Prompt      string
	Model       string
	Temperature float64
}

// TextGenerator streams text fragments for a prompt. Implementations must
// call onDelta in arrival order and stop when it returns an error.
type TextGenerator interface {
	Stream(ctx context.Context, req GenerateRequest, onDelta func(delta string) error) error
}

// Locker is the distributed per-learner mutual exclusion provider. ok=false
// means the lock could not be acquired within the bounded wait; the engine
// then degrades to an unlocked run rather than failing the request.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), ok bool, err error)
}
