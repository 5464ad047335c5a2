package provision

import (
	"sync"

	"github.com/viet-stackable/secret-operator/pkg/krb5"
)

// SharedContext couples a libkrb5 context with the single lock that
// serializes every native call made on it. A krb5 context is not safe for
// concurrent access, so all components holding the same context must route
// their native use through the same SharedContext rather than guarding it
// with locks of their own.
type SharedContext struct {
	mu  sync.Mutex
	raw *krb5.Context
}

// NewSharedContext wraps ctx. The context stays owned by the caller, but
// from this point on all native use of it must go through Acquire.
func NewSharedContext(ctx *krb5.Context) *SharedContext {
	return &SharedContext{raw: ctx}
}

// Acquire takes exclusive use of the context until Release is called.
func (s *SharedContext) Acquire() *krb5.Context {
	s.mu.Lock()
	return s.raw
}

// Release ends the exclusive use taken by Acquire.
func (s *SharedContext) Release() {
	s.mu.Unlock()
}
