// Package guard provides the single-slot mutual exclusion for the send path.
// Send has no natural "already consumed" flag to check, so a library calling
// back into the coordinator mid-send is blocked here explicitly.
package guard

import (
	"sync"

	id "lanegate/pkg/domain"
	derrors "lanegate/pkg/errors"
)

// ErrSendReentrancy rejects a send started while another send is in flight.
var ErrSendReentrancy = derrors.New(derrors.CodeConflict, "send reentrancy")

// SendGuard is the process-wide send context slot: either empty or an
// encoding of (destination domain, sender) for the in-flight send.
type SendGuard struct {
	mu        sync.Mutex
	active    bool
	dstDomain id.DomainID
	sender    id.AppID
}

// New creates an empty guard.
func New() *SendGuard {
	return &SendGuard{}
}

// Enter claims the slot for (dstDomain, sender) and returns the release
// closure. Callers must defer the release so every exit path, normal return
// or error, resets the slot.
func (g *SendGuard) Enter(dstDomain id.DomainID, sender id.AppID) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active {
		return nil, ErrSendReentrancy
	}
	g.active = true
	g.dstDomain = dstDomain
	g.sender = sender

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.active = false
		g.dstDomain = 0
		g.sender = id.None
	}, nil
}

// IsSending reports whether a send is in flight.
func (g *SendGuard) IsSending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// Context returns the in-flight send's (destination domain, sender), or
// (0, None) when no send is in flight. Libraries invoked synchronously during
// a send use this to confirm they are on a genuine send path.
func (g *SendGuard) Context() (id.DomainID, id.AppID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.active {
		return 0, id.None
	}
	return g.dstDomain, g.sender
}
