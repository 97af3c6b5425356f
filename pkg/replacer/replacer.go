// Package replacer implements the buffer pool's page replacement policies.
//
// It follows the same shape as a CLOCK replacer would (an object addressed
// by small integer frame indices, independent of the buffer pool's own
// bookkeeping) but implements the doubly linked MRU/LRU sweep the storage
// engine's buffer pool actually needs: frames are kept on one list ordered
// by recency, and a victim is chosen by walking from one end depending on
// policy.
package replacer

import (
	"container/list"
	"strings"
)

// Policy selects which end of the recency list victims are taken from.
type Policy int

const (
	// LRU evicts the least-recently-used unpinned frame (scan from the
	// tail, i.e. the oldest access, toward the head).
	LRU Policy = iota
	// MRU evicts the most-recently-used unpinned frame (scan from the
	// head, i.e. the newest access, toward the tail).
	MRU
)

func (p Policy) String() string {
	if p == MRU {
		return "mru"
	}
	return "lru"
}

// ParsePolicy accepts the PF_Init configuration values (0: LRU, 1: MRU) in
// addition to the case-insensitive names.
func ParsePolicy(s string) (Policy, bool) {
	switch strings.ToLower(s) {
	case "0", "lru":
		return LRU, true
	case "1", "mru":
		return MRU, true
	default:
		return 0, false
	}
}

// List is a recency-ordered doubly linked list over a fixed set of frame
// indices, with a Victim method implementing LRU/MRU eviction scans.
//
// Go is garbage collected, so unlike the spec's systems-language Design
// Notes there is no lifetime-cycle hazard in using container/list's
// pointer-based doubly linked list directly; we still address frames by
// their stable integer index (not by *Frame) so the buffer pool's frame
// arena and this list never need to agree on pointer identity.
type List struct {
	policy  Policy
	l       *list.List
	byFrame map[int]*list.Element
}

// New creates an empty recency list for the given policy.
func New(policy Policy) *List {
	return &List{
		policy:  policy,
		l:       list.New(),
		byFrame: make(map[int]*list.Element),
	}
}

// Policy returns the configured replacement policy.
func (r *List) Policy() Policy { return r.policy }

// Touch records (or re-records) frameID as just accessed, moving it to the
// MRU end of the list. Both Get and Alloc call this; Unfix also re-links
// on release per spec §4.1.
func (r *List) Touch(frameID int) {
	if e, ok := r.byFrame[frameID]; ok {
		r.l.MoveToFront(e)
		return
	}
	r.byFrame[frameID] = r.l.PushFront(frameID)
}

// Remove drops frameID from the list entirely (used when a frame is
// evicted or its file is released).
func (r *List) Remove(frameID int) {
	if e, ok := r.byFrame[frameID]; ok {
		r.l.Remove(e)
		delete(r.byFrame, frameID)
	}
}

// Len reports how many frames are currently tracked.
func (r *List) Len() int { return r.l.Len() }

// Victim walks the list from the policy's configured end and returns the
// first frameID for which unpinned returns true. It does not remove the
// frame from the list — the caller re-touches it once it has repurposed
// the frame for a new page.
func (r *List) Victim(unpinned func(frameID int) bool) (int, bool) {
	var e *list.Element
	var step func(*list.Element) *list.Element

	switch r.policy {
	case MRU:
		e = r.l.Front()
		step = func(e *list.Element) *list.Element { return e.Next() }
	default: // LRU
		e = r.l.Back()
		step = func(e *list.Element) *list.Element { return e.Prev() }
	}

	for e != nil {
		id := e.Value.(int)
		if unpinned(id) {
			return id, true
		}
		e = step(e)
	}
	return -1, false
}
