package ledger

import "sync/atomic"

// CallGuard prevents nested re-entry into a service's guarded operations.
// A callee that calls back into the same service mid-execution gets
// ErrReentrantCall instead of observing half-settled state.
type CallGuard struct {
	entered atomic.Bool
}

// Enter acquires the guard. The caller must invoke the returned release
// function on every path out of the guarded section.
func (g *CallGuard) Enter() (release func(), err error) {
	if !g.entered.CompareAndSwap(false, true) {
		return nil, ErrReentrantCall
	}
	return func() { g.entered.Store(false) }, nil
}
