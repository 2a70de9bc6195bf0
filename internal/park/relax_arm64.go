//go:build arm64 && !noasm

package park

// Relax emits the arm64 YIELD hint instruction.
//
//go:noescape
func Relax()
