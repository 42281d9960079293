//go:build !(amd64 && linux)

package arch

import (
	"runtime"
	"unsafe"
)

func rawstackswitch(peer unsafe.Pointer, payload uintptr, out *transferPair, bounds *stackBounds) {
	panic(runtime.GOARCH + "/" + runtime.GOOS)
}

func rawstackswitchontop(peer unsafe.Pointer, payload uintptr, out *transferPair, bounds *stackBounds, fn unsafe.Pointer) {
	panic(runtime.GOARCH + "/" + runtime.GOOS)
}

// EntryPC returns the address of the shared coroutine entry point.
func EntryPC() uintptr {
	panic(runtime.GOARCH + "/" + runtime.GOOS)
}

// Initialize writes the initial SavedRegisters record below stackBottom.
func Initialize(stackBottom, stackLimit uintptr, entryPC uintptr) *SavedRegisters {
	panic(runtime.GOARCH + "/" + runtime.GOOS)
}
