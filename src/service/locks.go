package service

import "sync"

// positionLocks serializes units of work per position. Concurrent
// transaction appends to the same position must not interleave, otherwise
// a summary could be computed from a partial transaction set. Different
// positions never contend with each other.
type positionLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func newPositionLocks() *positionLocks {
	return &positionLocks{locks: map[uint]*sync.Mutex{}}
}

// lock acquires the mutex for the given position ID and returns its unlock
// function. Mutexes are kept for the process lifetime; the set of positions
// a single journal instance touches stays small.
func (p *positionLocks) lock(positionID uint) func() {
	p.mu.Lock()
	m, ok := p.locks[positionID]
	if !ok {
		m = &sync.Mutex{}
		p.locks[positionID] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}
