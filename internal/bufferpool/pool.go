// Package bufferpool implements the PF layer's pinning buffer pool: a
// fixed arena of frames shared across every open file, a hash from
// (fileId, pageNumber) to frame index, and a pluggable LRU/MRU
// replacement policy from pkg/replacer.
package bufferpool

import (
	"log/slog"
	"sync"

	"go.uber.org/multierr"

	"github.com/tuannm99/novasql-core/internal/dberr"
	"github.com/tuannm99/novasql-core/internal/storage"
	"github.com/tuannm99/novasql-core/pkg/replacer"
)

type pageKey struct {
	file storage.FileID
	num  storage.PageNum
}

// Frame is a single buffer slot: the page bytes plus the bookkeeping the
// pool needs to pin, dirty-flag and evict it.
type Frame struct {
	File  storage.FileID
	Num   storage.PageNum
	Page  storage.Page
	Pin   int
	Dirty bool
	valid bool
}

// Stats accumulates the counters spec.md's PrintStats reports.
type Stats struct {
	LogicalReads   int64
	PhysicalReads  int64
	LogicalWrites  int64
	PhysicalWrites int64
}

// HitRate reports the fraction of logical reads that did not require a
// physical read. It is 0 when no logical reads have happened yet.
func (s Stats) HitRate() float64 {
	if s.LogicalReads == 0 {
		return 0
	}
	return 1 - float64(s.PhysicalReads)/float64(s.LogicalReads)
}

// Pool is the fixed-capacity pinning buffer pool shared by every open
// file. It has no knowledge of heap or B+-tree page formats — it moves
// opaque 4 KiB pages in and out of disk on behalf of internal/pf.
type Pool struct {
	mu      sync.Mutex
	ft      *storage.FileTable
	frames  []Frame
	byKey   map[pageKey]int
	free    []int
	replace *replacer.List
	stats   Stats
}

// New creates a pool of capacity frames backed by ft, replacing pages
// according to policy.
func New(ft *storage.FileTable, capacity int, policy replacer.Policy) *Pool {
	free := make([]int, capacity)
	for i := range free {
		free[i] = capacity - 1 - i // pop from the end gives frame 0 first
	}
	return &Pool{
		ft:      ft,
		frames:  make([]Frame, capacity),
		byKey:   make(map[pageKey]int, capacity),
		free:    free,
		replace: replacer.New(policy),
	}
}

// Stats returns a snapshot of the pool's accounting counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// PrintStats logs the pool's accounting counters at info level, in the
// shape spec.md's PF_PrintStats reports.
func (p *Pool) PrintStats() {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.stats
	slog.Info("buffer pool stats",
		"logicalReads", s.LogicalReads,
		"physicalReads", s.PhysicalReads,
		"logicalWrites", s.LogicalWrites,
		"physicalWrites", s.PhysicalWrites,
		"hitRate", s.HitRate(),
	)
}

// Get pins the page (file, num), reading it from disk on a miss. If the
// page is resident but already pinned it returns the existing frame
// alongside a PAGE_FIXED error: callers must never hold two pins on the
// same page at once.
func (p *Pool) Get(file storage.FileID, num storage.PageNum) (*Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := pageKey{file, num}
	p.stats.LogicalReads++

	if idx, ok := p.byKey[key]; ok {
		f := &p.frames[idx]
		if f.Pin > 0 {
			return f, dberr.New(dberr.LayerPF, "Get", dberr.KindPageFixed, nil)
		}
		f.Pin++
		p.replace.Touch(idx)
		return f, nil
	}

	idx, err := p.acquireFrame()
	if err != nil {
		return nil, err
	}
	p.stats.PhysicalReads++
	f := &p.frames[idx]
	if err := p.ft.ReadPage(file, num, &f.Page); err != nil {
		p.free = append(p.free, idx)
		return nil, err
	}
	f.File, f.Num, f.Pin, f.Dirty, f.valid = file, num, 1, false, true
	p.byKey[key] = idx
	p.replace.Touch(idx)
	return f, nil
}

// Alloc installs a frame for (file, num) without reading from disk. It
// fails with PAGE_IN_BUF if the page is already resident. Contents are
// whatever the frame last held; the caller must overwrite them fully
// before unpinning.
func (p *Pool) Alloc(file storage.FileID, num storage.PageNum) (*Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := pageKey{file, num}
	if _, ok := p.byKey[key]; ok {
		return nil, dberr.New(dberr.LayerPF, "Alloc", dberr.KindPageInBuf, nil)
	}

	idx, err := p.acquireFrame()
	if err != nil {
		return nil, err
	}
	f := &p.frames[idx]
	f.File, f.Num, f.Pin, f.Dirty, f.valid = file, num, 1, false, true
	p.byKey[key] = idx
	p.replace.Touch(idx)
	return f, nil
}

// Unfix decrements the pin count on (file, num) and, if markDirty, sets
// its dirty bit. An already-dirty page stays dirty even when markDirty is
// false. The frame is relinked to the MRU end of the replacement list
// regardless of policy, matching the "every touch counts as an access"
// rule spec.md's PF_Buffer gives Unfix.
func (p *Pool) Unfix(file storage.FileID, num storage.PageNum, markDirty bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.byKey[pageKey{file, num}]
	if !ok {
		return dberr.New(dberr.LayerPF, "Unfix", dberr.KindNotInBuf, nil)
	}
	f := &p.frames[idx]
	if f.Pin <= 0 {
		return dberr.New(dberr.LayerPF, "Unfix", dberr.KindAlreadyUnfixed, nil)
	}
	f.Pin--
	if markDirty {
		f.Dirty = true
		p.stats.LogicalWrites++
	}
	p.replace.Touch(idx)
	return nil
}

// Used marks an already-pinned page dirty without counting it as a
// logical write, for in-place mutations where no fresh write intent is
// being expressed (e.g. relinking a sibling pointer while still
// descending).
func (p *Pool) Used(file storage.FileID, num storage.PageNum) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.byKey[pageKey{file, num}]
	if !ok {
		return dberr.New(dberr.LayerPF, "Used", dberr.KindNotInBuf, nil)
	}
	f := &p.frames[idx]
	f.Dirty = true
	p.replace.Touch(idx)
	return nil
}

// ReleaseFile flushes every dirty frame belonging to file and returns
// them to the free list. It fails with PAGE_FIXED if any frame of the
// file is still pinned; in that case no frame of the file is touched.
func (p *Pool) ReleaseFile(file storage.FileID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var victims []int
	for key, idx := range p.byKey {
		if key.file != file {
			continue
		}
		if p.frames[idx].Pin > 0 {
			return dberr.New(dberr.LayerPF, "ReleaseFile", dberr.KindPageFixed, nil)
		}
		victims = append(victims, idx)
	}

	var errs error
	for _, idx := range victims {
		f := &p.frames[idx]
		if f.Dirty {
			if err := p.ft.WritePage(f.File, f.Num, &f.Page); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			p.stats.PhysicalWrites++
		}
		delete(p.byKey, pageKey{f.File, f.Num})
		p.replace.Remove(idx)
		f.valid = false
		p.free = append(p.free, idx)
	}
	return errs
}

// Occupied reports how many frames are currently resident.
func (p *Pool) Occupied() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byKey)
}

// Capacity reports the pool's fixed frame count.
func (p *Pool) Capacity() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

// acquireFrame returns the index of a free frame, evicting an unpinned
// victim per the configured policy if the pool is at capacity.
func (p *Pool) acquireFrame() (int, error) {
	if n := len(p.free); n > 0 {
		idx := p.free[n-1]
		p.free = p.free[:n-1]
		return idx, nil
	}

	idx, ok := p.replace.Victim(func(id int) bool { return p.frames[id].Pin == 0 })
	if !ok {
		return 0, dberr.New(dberr.LayerPF, "acquireFrame", dberr.KindNoBuf, nil)
	}
	f := &p.frames[idx]
	if f.Dirty {
		if err := p.ft.WritePage(f.File, f.Num, &f.Page); err != nil {
			return 0, err
		}
		p.stats.PhysicalWrites++
	}
	delete(p.byKey, pageKey{f.File, f.Num})
	p.replace.Remove(idx)
	f.valid = false
	return idx, nil
}
