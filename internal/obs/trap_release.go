//go:build !fiberrt_debug

package obs

// Trap logs an Internal invariant violation and returns, letting the
// caller unwind it as a returned error instead of crashing the process.
func Trap(prefix string, err error) {
	Fatal(prefix, err)
}
