package coro

import "fmt"

// TokenHandler is what a Dispatcher routes a coroutine token to: typically a
// thin host wrapper around one manager's ResumeCoroutine or CancelCoroutine.
type TokenHandler interface {
	HandleToken(handle Handle)
}

// TokenHandlerFunc adapts a function to TokenHandler.
type TokenHandlerFunc func(handle Handle)

// HandleToken implements TokenHandler.
func (f TokenHandlerFunc) HandleToken(handle Handle) { f(handle) }

// Dispatcher routes 64-bit kernel tokens back to the manager that minted
// them, by the handle's manager-index field. Tokens with bit 63 clear are
// pointers or other kernel values and are reported unhandled, so an event
// loop can share one user-data field between coroutine handles and everything
// else.
type Dispatcher struct {
	handlers [1 << managerIndexBits]TokenHandler
}

// Register binds a handler to a manager index. Registering an index twice is
// a programming error.
func (d *Dispatcher) Register(managerIndex uint8, handler TokenHandler) error {
	if handler == nil {
		return fmt.Errorf("handler must not be nil")
	}
	if d.handlers[managerIndex] != nil {
		return fmt.Errorf("manager index %d already registered", managerIndex)
	}
	d.handlers[managerIndex] = handler
	return nil
}

// Dispatch routes token to its manager's handler. It returns false, without
// side effects, when the token is not a coroutine handle or no handler is
// registered for its manager index.
func (d *Dispatcher) Dispatch(token uint64) bool {
	handle := HandleFromToken(token)
	if !handle.IsForACoroutine() {
		return false
	}
	handler := d.handlers[handle.ManagerIndex()]
	if handler == nil {
		return false
	}
	handler.HandleToken(handle)
	return true
}
