//go:build fiberrt_debug

package obs

// Trap panics on an Internal invariant violation. Built only under the
// fiberrt_debug tag; release builds use TrapRelease instead.
func Trap(prefix string, err error) {
	Fatal(prefix, err)
	panic(prefix + ": " + err.Error())
}
