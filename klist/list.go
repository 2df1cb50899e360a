// Package klist implements the intrusive doubly-linked circular list used
// by every kernel queue: ready lists, IPC waiter lists, timer lists, and the
// deferred-termination list.
//
// The C kernel recovers a queue member's owning struct from a bare list
// node via container_of-style pointer arithmetic. Go has no offsetof, so
// Node is generic over the owner type instead: each owner (thread, timer)
// holds a *Node[*Owner] that carries a back-pointer, and list operations
// hand back that owner directly instead of requiring a container-of cast.
package klist

// Node is one link in an intrusive doubly-linked circular list. T is the
// type of the struct that owns this node (e.g. *Thread).
type Node[T any] struct {
	next  *Node[T]
	prev  *Node[T]
	Owner T
}

// NewHead returns an empty head sentinel node. Head sentinels are never
// removed or reinserted; only member nodes move between InsertAfter,
// InsertBefore, and Remove.
func NewHead[T any]() *Node[T] {
	n := &Node[T]{}
	n.next = n
	n.prev = n
	return n
}

// Init makes n an empty head: a sentinel whose next and prev point to
// itself.
func (n *Node[T]) Init() {
	n.next = n
	n.prev = n
}

// Next returns the node following n.
func (n *Node[T]) Next() *Node[T] { return n.next }

// Prev returns the node preceding n.
func (n *Node[T]) Prev() *Node[T] { return n.prev }

// InsertAfter links n immediately after l.
func (l *Node[T]) InsertAfter(n *Node[T]) {
	l.next.prev = n
	n.next = l.next
	l.next = n
	n.prev = l
}

// InsertBefore links n immediately before l (i.e. at l's tail when l is a
// head sentinel).
func (l *Node[T]) InsertBefore(n *Node[T]) {
	l.prev.next = n
	n.prev = l.prev
	l.prev = n
	n.next = l
}

// Remove unlinks n from whatever list it is on and self-links it, so it is
// safe to re-insert or to query with Empty.
func (n *Node[T]) Remove() {
	n.next.prev = n.prev
	n.prev.next = n.next
	n.next = n
	n.prev = n
}

// Empty reports whether n (used as a head sentinel) has no members.
func (n *Node[T]) Empty() bool {
	return n.next == n
}

// Len walks the ring and counts members of n (used as a head sentinel).
// O(n); callers on a hot path should track counts separately.
func (n *Node[T]) Len() int {
	length := 0
	for p := n.next; p != n; p = p.next {
		length++
	}
	return length
}
