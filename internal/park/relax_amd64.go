//go:build amd64 && !noasm

package park

// Relax emits the x86-64 PAUSE instruction, so spin-wait loops back off
// politely instead of thrashing the load/store buffers while another
// hardware thread is retiring a store this loop is waiting on.
//
//go:noescape
func Relax()
