// Package ecs provides generation-checked entity handles and typed component
// stores. It knows nothing about people; see package agents for that.
package ecs

// Entity encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on destroy to invalidate stale refs.
// Generations start at 1, so the zero Entity is never alive.
type Entity uint64

func NewEntity(index uint32, generation uint32) Entity {
	return Entity(uint64(generation)<<32 | uint64(index))
}

func (e Entity) Index() uint32      { return uint32(e) }
func (e Entity) Generation() uint32 { return uint32(e >> 32) }
func (e Entity) IsZero() bool       { return e == 0 }

// Pool manages entity allocation with generational indices and a free list.
type Pool struct {
	generations []uint32
	freeList    []uint32
	live        int
}

func NewPool() *Pool {
	return &Pool{
		generations: make([]uint32, 0, 1024),
		freeList:    make([]uint32, 0, 256),
	}
}

// Create returns a fresh handle, reusing a freed index when one is available.
func (p *Pool) Create() Entity {
	p.live++
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return NewEntity(idx, p.generations[idx])
	}
	idx := uint32(len(p.generations))
	p.generations = append(p.generations, 1)
	return NewEntity(idx, 1)
}

// Alive reports whether e refers to a live entity.
func (p *Pool) Alive(e Entity) bool {
	idx := e.Index()
	if int(idx) >= len(p.generations) {
		return false
	}
	return p.generations[idx] == e.Generation()
}

// Destroy frees e. Stale or unknown handles are ignored.
func (p *Pool) Destroy(e Entity) bool {
	if !p.Alive(e) {
		return false
	}
	idx := e.Index()
	p.generations[idx]++
	if p.generations[idx] == 0 {
		p.generations[idx] = 1 // wrapped; skip the reserved zero generation
	}
	p.freeList = append(p.freeList, idx)
	p.live--
	return true
}

// Len returns the number of live entities.
func (p *Pool) Len() int { return p.live }

// Reset forgets every entity. Handles issued before Reset may alias new ones.
func (p *Pool) Reset() {
	p.generations = p.generations[:0]
	p.freeList = p.freeList[:0]
	p.live = 0
}
