// Package heap implements the HF layer: a slotted-page record store on
// top of internal/pf, with tombstone deletion and a fixed-size scan
// table.
package heap

import (
	"log/slog"

	"github.com/tuannm99/novasql-core/internal/dberr"
	"github.com/tuannm99/novasql-core/internal/pf"
	"github.com/tuannm99/novasql-core/internal/storage"
)

const (
	headerSize = 12 // numSlots, freeSpaceOffset, nextPage: three little-endian i32
	slotSize   = 8  // recordOffset, recordLength: two little-endian i32

	offNumSlots   = 0
	offFreeSpace  = 4
	offNextPage   = 8
	slotDirStart  = headerSize

	// MaxScans bounds the number of concurrently open heap scans, matching
	// spec.md's fixed MAX_SCANS.
	MaxScans = storage.MaxScans
)

// RecId identifies a record by its slotted-page location. It is stable
// for the record's lifetime: deletion tombstones the slot but never
// reuses the index.
type RecId struct {
	PageNum pf.PageNum
	Slot    int32
}

// page is a view over a pf.Page as a slotted heap page.
type page struct{ p *pf.Page }

func (hp page) numSlots() int32       { return hp.p.I32(offNumSlots) }
func (hp page) setNumSlots(n int32)   { hp.p.PutI32(offNumSlots, n) }
func (hp page) freeSpace() int32      { return hp.p.I32(offFreeSpace) }
func (hp page) setFreeSpace(off int32) { hp.p.PutI32(offFreeSpace, off) }
func (hp page) nextPage() int32       { return hp.p.I32(offNextPage) }
func (hp page) setNextPage(n int32)   { hp.p.PutI32(offNextPage, n) }

func (hp page) slotOff(i int32) int { return slotDirStart + int(i)*slotSize }

func (hp page) recordOffset(i int32) int32 { return hp.p.I32(hp.slotOff(i)) }
func (hp page) recordLength(i int32) int32 { return hp.p.I32(hp.slotOff(i) + 4) }

func (hp page) setSlot(i, recOffset, recLength int32) {
	off := hp.slotOff(i)
	hp.p.PutI32(off, recOffset)
	hp.p.PutI32(off+4, recLength)
}

func (hp page) recordBytes(i int32) []byte {
	off := hp.recordOffset(i)
	n := hp.recordLength(i)
	return hp.p.Slice(int(off), int(n))
}

// freeBytes returns how many bytes remain between the slot directory and
// the record region.
func (hp page) freeBytes() int32 {
	used := int32(headerSize) + hp.numSlots()*int32(slotSize)
	return hp.freeSpace() - used
}

func (hp page) init() {
	hp.p.Reset()
	hp.setNumSlots(0)
	hp.setFreeSpace(int32(pf.PageSize))
	hp.setNextPage(0)
}

// scanState is one entry of the fixed-size scan table.
type scanState struct {
	open     bool
	lastPage pf.PageNum // last page number seen by GetNextPage, NoPage to start
	curPage  pf.PageNum // currently pinned page, NoPage if none
	curView  page
	nextSlot int32
}

// Heap is a slotted-page record store over a single PF file.
type Heap struct {
	pf    *pf.Manager
	file  pf.FileID
	scans [MaxScans]*scanState
}

// Open wraps an already-opened PF file as a heap.
func Open(mgr *pf.Manager, file pf.FileID) *Heap {
	return &Heap{pf: mgr, file: file}
}

// Insert appends rec to the first page with enough free space, allocating
// a new page if none fits, and returns its stable RecId.
func (h *Heap) Insert(rec []byte) (RecId, error) {
	length := int32(len(rec))
	if headerSize+slotSize+length > pf.PageSize {
		return RecId{}, dberr.New(dberr.LayerHF, "Insert", dberr.KindInvalidRec, nil)
	}

	target := pf.PageNum(-1)
	prev := pf.NoPage
	for {
		num, p, err := h.pf.GetNextPage(h.file, prev)
		if dberr.IsEOF(err) {
			break
		}
		if err != nil {
			return RecId{}, wrap(err)
		}
		hp := page{p}
		fits := hp.freeBytes() >= length+slotSize
		if err := h.pf.UnfixPage(h.file, num, false); err != nil {
			return RecId{}, wrap(err)
		}
		if fits {
			target = num
			break
		}
		prev = num
	}

	if target == -1 {
		num, p, err := h.pf.AllocPage(h.file)
		if err != nil {
			return RecId{}, wrap(err)
		}
		page{p}.init()
		if err := h.pf.UnfixPage(h.file, num, true); err != nil {
			return RecId{}, wrap(err)
		}
		target = num
	}

	p, err := h.pf.GetThisPage(h.file, target)
	if err != nil {
		return RecId{}, wrap(err)
	}
	hp := page{p}
	slot := hp.numSlots()
	off := hp.freeSpace() - length
	hp.setSlot(slot, off, length)
	copy(hp.recordBytes(slot), rec)
	hp.setFreeSpace(off)
	hp.setNumSlots(slot + 1)

	if err := h.pf.UnfixPage(h.file, target, true); err != nil {
		return RecId{}, wrap(err)
	}
	return RecId{PageNum: target, Slot: slot}, nil
}

// Delete tombstones id's slot. The slot index is never reused.
func (h *Heap) Delete(id RecId) error {
	p, err := h.pf.GetThisPage(h.file, id.PageNum)
	if err != nil {
		return wrap(err)
	}
	hp := page{p}
	if id.Slot < 0 || id.Slot >= hp.numSlots() {
		_ = h.pf.UnfixPage(h.file, id.PageNum, false)
		return dberr.New(dberr.LayerHF, "Delete", dberr.KindInvalidRec, nil)
	}
	off := hp.recordOffset(id.Slot)
	hp.setSlot(id.Slot, off, -1)
	return h.pf.UnfixPage(h.file, id.PageNum, true)
}

// Get reads the live record at id without a scan.
func (h *Heap) Get(id RecId) ([]byte, error) {
	p, err := h.pf.GetThisPage(h.file, id.PageNum)
	if err != nil {
		return nil, wrap(err)
	}
	hp := page{p}
	defer h.pf.UnfixPage(h.file, id.PageNum, false)

	if id.Slot < 0 || id.Slot >= hp.numSlots() {
		return nil, dberr.New(dberr.LayerHF, "Get", dberr.KindInvalidRec, nil)
	}
	if hp.recordLength(id.Slot) == -1 {
		return nil, dberr.New(dberr.LayerHF, "Get", dberr.KindNotFound, nil)
	}
	out := make([]byte, hp.recordLength(id.Slot))
	copy(out, hp.recordBytes(id.Slot))
	return out, nil
}

// OpenScan allocates a scan descriptor and returns its id.
func (h *Heap) OpenScan() (int, error) {
	for i, s := range h.scans {
		if s == nil {
			h.scans[i] = &scanState{open: true, lastPage: pf.NoPage, curPage: pf.NoPage}
			return i, nil
		}
	}
	return -1, dberr.New(dberr.LayerHF, "OpenScan", dberr.KindScanTabFull, nil)
}

// FindNext returns the next live record and its RecId, skipping
// tombstones, or EOF once the file is exhausted.
func (h *Heap) FindNext(scanID int) ([]byte, RecId, error) {
	s, err := h.scanAt(scanID)
	if err != nil {
		return nil, RecId{}, err
	}

	for {
		if s.curPage == pf.NoPage {
			num, p, err := h.pf.GetNextPage(h.file, s.lastPage)
			if err != nil {
				return nil, RecId{}, err
			}
			s.curPage = num
			s.lastPage = num
			s.curView = page{p}
			s.nextSlot = 0
		}

		numSlots := s.curView.numSlots()
		for s.nextSlot < numSlots {
			slot := s.nextSlot
			s.nextSlot++
			if s.curView.recordLength(slot) == -1 {
				continue
			}
			rec := make([]byte, s.curView.recordLength(slot))
			copy(rec, s.curView.recordBytes(slot))
			return rec, RecId{PageNum: s.curPage, Slot: slot}, nil
		}

		if err := h.pf.UnfixPage(h.file, s.curPage, false); err != nil {
			return nil, RecId{}, wrap(err)
		}
		s.curPage = pf.NoPage
	}
}

// CloseScan releases any pinned page and frees the descriptor slot.
func (h *Heap) CloseScan(scanID int) error {
	s, err := h.scanAt(scanID)
	if err != nil {
		return err
	}
	if s.curPage != pf.NoPage {
		if err := h.pf.UnfixPage(h.file, s.curPage, false); err != nil {
			return wrap(err)
		}
	}
	h.scans[scanID] = nil
	return nil
}

func (h *Heap) scanAt(scanID int) (*scanState, error) {
	if scanID < 0 || scanID >= MaxScans || h.scans[scanID] == nil {
		return nil, dberr.New(dberr.LayerHF, "scan", dberr.KindInvalidScan, nil)
	}
	return h.scans[scanID], nil
}

// wrap surfaces a lower-layer PF error as an HF-layer KindIO error
// wrapping it as its cause, except EOF which passes
// through unchanged since scans treat it as the normal terminator.
func wrap(err error) error {
	if err == nil || dberr.IsEOF(err) {
		return err
	}
	slog.Debug("heap: PF error", "err", err)
	return dberr.New(dberr.LayerHF, "pf", dberr.KindIO, err)
}
