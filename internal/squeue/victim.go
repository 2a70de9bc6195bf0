package squeue

import "github.com/coreflow/fiberrt/internal/fnvmix"

// Picker generates the rotating victim order a searching worker walks
// when its own queue is dry: a hashed starting offset per scan (so two
// workers beginning a scan in the same instant don't all pile onto
// worker 0 first) followed by a fixed stride around the ring of peers.
type Picker struct {
	self  int32
	peers int32
	epoch uint64
}

// NewPicker builds a Picker for a worker at index self among n peers.
func NewPicker(self, n int32) *Picker {
	return &Picker{self: self, peers: n}
}

// Next advances the scan epoch and returns the victim order to try,
// excluding self, as a slice of worker indices.
func (p *Picker) Next() []int32 {
	p.epoch++
	if p.peers <= 1 {
		return nil
	}
	start := int32(fnvmix.Mix64(uint64(p.self)<<32|p.epoch) % uint64(p.peers))
	order := make([]int32, 0, p.peers-1)
	for i := int32(0); i < p.peers; i++ {
		v := (start + i) % p.peers
		if v == p.self {
			continue
		}
		order = append(order, v)
	}
	return order
}
