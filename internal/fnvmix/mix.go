// Package fnvmix provides the avalanche mixer used to scatter rotating
// victim offsets (work-stealing, internal/squeue's Picker) across the
// full 64-bit range from a small monotonic counter. The portable
// parking-word emulation hashes its bucket indices with its own mixer.
package fnvmix

// Mix64 is the MurmurHash3 finalizer: cheap, branch-free, and good
// enough to turn a sequential counter into a well-distributed index.
//
//go:nosplit
//go:inline
func Mix64(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}
