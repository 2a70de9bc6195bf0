//go:build linux

package park

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux futex op codes (FUTEX_PRIVATE_FLAG set: these words are only
// ever shared within this process, never across address spaces).
const (
	futexWaitPrivate = 0 | 128 // FUTEX_WAIT | FUTEX_PRIVATE_FLAG
	futexWakePrivate = 1 | 128 // FUTEX_WAKE | FUTEX_PRIVATE_FLAG
)

type timespec = unix.Timespec

func doWait(w *Word, expected uint32, timeout time.Duration) Result {
	addr := &w.v

	var ts *timespec
	if timeout > 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}

	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWaitPrivate),
		uintptr(expected),
		uintptr(unsafe.Pointer(ts)),
		0, 0,
	)
	switch errno {
	case 0:
		return Woke
	case unix.ETIMEDOUT:
		return TimedOut
	case unix.EAGAIN:
		// *addr != expected by the time the kernel looked: the store
		// that would have woken us already happened.
		return Mismatch
	case unix.EINTR:
		// treat a signal interruption as a spurious wake; the caller
		// loops on its own predicate regardless.
		return Woke
	default:
		return Mismatch
	}
}

func doWake(w *Word, maxWakers int) int {
	addr := &w.v
	n, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWakePrivate),
		uintptr(maxWakers),
		0, 0, 0,
	)
	if errno != 0 {
		return 0
	}
	return int(n)
}
