package coro

import "errors"

var (
	// ErrAllocationFailed is returned by StartCoroutine when the manager's
	// slab has no free slot. Nothing has happened; trying again after an
	// instance dies will succeed.
	ErrAllocationFailed = errors.New("coroutine allocation failed: no free slot")

	// ErrStaleHandle is returned when a handle's generation no longer matches
	// its slot: the instance it referred to has completed and the slot may
	// already host a new one. Kernel callbacks that raced a completion see
	// this; ignoring it is the correct response.
	ErrStaleHandle = errors.New("stale coroutine handle")

	// ErrWrongManager is returned when a handle is presented to a manager
	// whose index does not match the handle's manager-index field.
	ErrWrongManager = errors.New("handle belongs to a different manager")

	// ErrManagerClosed is returned by operations on a closed manager.
	ErrManagerClosed = errors.New("manager is closed")
)
