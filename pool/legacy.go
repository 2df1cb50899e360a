package pool

import (
	"sync"

	"ironfrail/kerr"
	"ironfrail/kthread"
)

// Legacy reproduces the original's lazily-initialized default pool
// (t_malloc/t_free/t_get_free_mem_size backed by _t_default_pool). The C
// original keeps this state in file-scope statics; Legacy is an
// instantiable struct instead, so a board owns one per kernel rather than
// sharing a single process-wide global.
type Legacy struct {
	sched *kthread.Scheduler
	size  uint32

	once    sync.Once
	pool    *Pool
	mu      sync.Mutex
	handles map[*byte]*Block
}

// NewLegacy prepares a legacy allocator that lazily builds its default
// pool, sized size bytes, on first use.
func NewLegacy(sched *kthread.Scheduler, size uint32) *Legacy {
	return &Legacy{sched: sched, size: size}
}

func (lg *Legacy) ensure() *Pool {
	lg.once.Do(func() {
		buf := make([]byte, lg.size)
		p, r := New(lg.sched, buf, "default")
		if !r.Ok() {
			panic("legacy pool: default pool create failed: " + r.String())
		}
		lg.pool = p
		lg.handles = make(map[*byte]*Block)
	})
	return lg.pool
}

// Malloc is the legacy t_malloc equivalent: allocate from the default
// pool, initializing it on first call.
func (lg *Legacy) Malloc(size uint32) ([]byte, kerr.Result) {
	b, r := lg.ensure().Alloc(size)
	if !r.Ok() {
		return nil, r
	}
	lg.mu.Lock()
	lg.handles[&b.Data[0]] = b
	lg.mu.Unlock()
	return b.Data, kerr.OK
}

// Free is the legacy t_free equivalent. Unlike Pool.Free, it takes the
// raw slice returned by Malloc; Legacy tracks the *Block handle itself
// via a reverse lookup, since legacy callers have no handle to hold.
//
// Go cannot recover a block header from an arbitrary []byte the way the
// original steps back header_size bytes from a pointer, so Legacy keeps
// an explicit map from the first byte's address to its handle.
func (lg *Legacy) Free(data []byte) kerr.Result {
	if len(data) == 0 {
		return kerr.ErrInvalid
	}
	lg.mu.Lock()
	b, ok := lg.handles[&data[0]]
	if ok {
		delete(lg.handles, &data[0])
	}
	lg.mu.Unlock()
	if !ok {
		return kerr.ErrInvalid
	}
	return lg.pool.Free(b)
}

// GetFreeMemSize is the legacy t_get_free_mem_size equivalent.
func (lg *Legacy) GetFreeMemSize() uint32 {
	return lg.ensure().Available()
}
