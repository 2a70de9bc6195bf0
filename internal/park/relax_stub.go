//go:build (!amd64 && !arm64) || noasm

package park

// Relax is a no-op on targets without a cheap spin-wait hint.
func Relax() {}
