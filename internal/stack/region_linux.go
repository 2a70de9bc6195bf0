//go:build linux

package stack

import (
	"golang.org/x/sys/unix"
)

const pageSize = 4096

// newRegion maps size()+2*pageSize bytes and drops PROT_NONE guard
// pages at both ends, so a stray access past either end of the usable
// middle faults immediately instead of silently corrupting a neighbor.
func newRegion(class Class) (*region, error) {
	size := class.size()
	total := size + 2*pageSize
	full, err := unix.Mmap(-1, 0, total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, ErrExhausted
	}
	if err := unix.Mprotect(full[:pageSize], unix.PROT_NONE); err != nil {
		unix.Munmap(full)
		return nil, ErrExhausted
	}
	if err := unix.Mprotect(full[pageSize+size:], unix.PROT_NONE); err != nil {
		unix.Munmap(full)
		return nil, ErrExhausted
	}
	return &region{
		buf:     full[pageSize : pageSize+size],
		class:   class,
		guarded: true,
	}, nil
}
