// Package platform isolates the Linux memory-mapping details the runtime
// needs: anonymous mappings for stacks and heap arenas, guard-page
// protection, the page size and the resource-limit probe for the maximum
// stack size.
package platform

import "runtime"

// SwitchSupported returns true when the context-switch primitive is
// implemented for the current platform.
func SwitchSupported() bool {
	return runtime.GOOS == "linux" && runtime.GOARCH == "amd64"
}
