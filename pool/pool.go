// Package pool implements the byte-pool dynamic allocator: an
// address-ordered circular block ring with a roving search pointer and
// lazy coalescing, grounded on
// _examples/original_source/mem_mang/Tomem1/mem1.c.
//
// The original recovers a block's header by stepping back a fixed number
// of bytes from the payload pointer. Go has no pointer arithmetic or
// offsetof, so each block's header lives in its own struct, linked into
// the address-ordered ring via klist the same way kthread links ready
// threads; Alloc hands back a *Block handle carrying both the payload
// slice and the header reference, and Free takes that handle back rather
// than a bare []byte.
package pool

import (
	"ironfrail/kerr"
	"ironfrail/klist"
	"ironfrail/kthread"
)

const (
	byteAlign = 8

	// headerSize is the notional per-block overhead the original charges
	// for its two-word header (next pointer + owner pointer on a 32-bit
	// target). Go blocks track this bookkeeping in a separate struct, not
	// inline in the backing buffer, but availability and split-threshold
	// accounting still charge it so the numbers match a faithful port.
	headerSize = 8

	minBlockSize = headerSize + byteAlign

	poolMagic = 0xDEADBEEF
)

func align(size uint32) uint32 {
	return (size + byteAlign - 1) &^ (byteAlign - 1)
}

// block is one node of the address-ordered ring: a free block or an
// allocated one. size includes headerSize.
type block struct {
	node   *klist.Node[*block]
	offset int
	size   int
	free   bool
}

func newBlock(offset, size int, free bool) *block {
	b := &block{offset: offset, size: size, free: free}
	b.node = &klist.Node[*block]{Owner: b}
	b.node.Init()
	return b
}

// Pool is a self-contained byte-pool allocator over a caller-supplied
// backing buffer.
type Pool struct {
	sched *kthread.Scheduler

	buf       []byte
	first     *klist.Node[*block]
	searchPtr *klist.Node[*block]
	available uint32
	fragments uint32
	size      uint32
	magic     uint32

	// Name is optional, diagnostic-only.
	Name string
}

// New creates a pool over buf, installing one free block spanning the
// whole region and a permanently-allocated sentinel closing the ring.
// Requires len(buf) to hold at least two minimum-sized blocks once
// trimmed down to an alignment boundary.
func New(sched *kthread.Scheduler, buf []byte, name string) (*Pool, kerr.Result) {
	if sched == nil || buf == nil {
		return nil, kerr.ErrNull
	}
	usable := len(buf) &^ (byteAlign - 1)
	if usable < minBlockSize*2 {
		return nil, kerr.ErrInvalid
	}

	first := newBlock(0, usable-headerSize, true)
	sentinel := newBlock(usable-headerSize, headerSize, false)
	first.node.InsertAfter(sentinel.node)

	return &Pool{
		sched:     sched,
		buf:       buf[:usable],
		first:     first.node,
		searchPtr: first.node,
		available: uint32(usable - 2*headerSize),
		fragments: 1,
		size:      uint32(usable),
		magic:     poolMagic,
		Name:      name,
	}, kerr.OK
}

// Block is a handle to one allocation, returned by Alloc and consumed by
// Free or Available-style inspection.
type Block struct {
	Data []byte
	hdr  *block
	pool *Pool
}

// Alloc reserves size bytes (rounded up to the alignment boundary) from
// the pool under a scheduler-suspend critical section, since the search
// may walk many blocks and must not be preempted mid-walk.
func (p *Pool) Alloc(size uint32) (*Block, kerr.Result) {
	if size == 0 || p.magic != poolMagic {
		return nil, kerr.ErrInvalid
	}
	size = align(size)

	p.sched.Suspend()
	defer p.sched.Resume()

	if size > p.available {
		return nil, kerr.ErrGeneric
	}

	hdr := p.search(size)
	if hdr == nil {
		return nil, kerr.ErrGeneric
	}

	start := hdr.offset + headerSize
	return &Block{Data: p.buf[start : start+int(size)], hdr: hdr, pool: p}, kerr.OK
}

// search performs the bounded first-fit walk with lazy coalescing,
// grounded on _t_byte_pool_search.
func (p *Pool) search(size uint32) *block {
	cur := p.searchPtr
	for examine := p.fragments + 1; examine > 0; examine-- {
		b := cur.Owner
		if b.free {
			for cur.Next().Owner.free {
				absorbed := cur.Next()
				b.size += absorbed.Owner.size
				absorbed.Remove()
				p.fragments--
			}

			payload := uint32(b.size - headerSize)
			if payload >= size {
				if payload-size >= minBlockSize {
					splitOffset := b.offset + headerSize + int(size)
					splitSize := b.size - headerSize - int(size)
					split := newBlock(splitOffset, splitSize, true)
					cur.InsertAfter(split.node)

					b.size = headerSize + int(size)
					p.fragments++
				}

				b.free = false
				p.available -= uint32(b.size)
				p.fragments--
				p.searchPtr = cur.Next()
				return b
			}
		}
		cur = cur.Next()
	}
	return nil
}

// Free returns b's memory to its pool. Freeing a handle from a different
// pool is rejected; freeing an already-freed handle is undefined, as in
// the original (detectable only if the owner field has been corrupted).
func (p *Pool) Free(b *Block) kerr.Result {
	if b == nil {
		return kerr.ErrNull
	}
	if b.pool != p || p.magic != poolMagic {
		return kerr.ErrInvalid
	}

	p.sched.Suspend()
	defer p.sched.Resume()

	p.available += uint32(b.hdr.size)
	p.fragments++
	b.hdr.free = true

	if b.hdr.offset < p.searchPtr.Owner.offset {
		p.searchPtr = b.hdr.node
	}
	return kerr.OK
}

// Available returns the pool's free payload byte count. Does not account
// for fragmentation: the largest single allocation may be smaller.
func (p *Pool) Available() uint32 {
	if p.magic != poolMagic {
		return 0
	}
	return p.available
}

// Fragments returns the number of free blocks, for diagnostics/tests.
func (p *Pool) Fragments() uint32 { return p.fragments }

// Delete invalidates the pool. The backing buffer is left to the garbage
// collector once the caller drops its reference; there is no explicit
// free step.
func (p *Pool) Delete() kerr.Result {
	p.magic = 0
	return kerr.OK
}
