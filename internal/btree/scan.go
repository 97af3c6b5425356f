package btree

import (
	"github.com/tuannm99/novasql-core/internal/dberr"
	"github.com/tuannm99/novasql-core/internal/heap"
	"github.com/tuannm99/novasql-core/internal/pf"
)

// Op is an index scan's comparison predicate against its reference value.
type Op int

const (
	OpAll Op = iota
	OpEQ
	OpLT
	OpGT
	OpLE
	OpGE
	OpNE
)

type indexScanState struct {
	op         Op
	value      []byte
	positioned bool
	done       bool
	curLeaf    pf.PageNum
	curIdx     int
}

// OpenIndexScan allocates a scan descriptor bound to op/value. Positioning
// is deferred to the first FindNextEntry call.
func (i *Index) OpenIndexScan(op Op, value []byte) (int, error) {
	for k, s := range i.scans {
		if s == nil {
			i.scans[k] = &indexScanState{op: op, value: append([]byte(nil), value...)}
			return k, nil
		}
	}
	return -1, dberr.New(dberr.LayerAM, "OpenIndexScan", dberr.KindScanTabFull, nil)
}

// CloseIndexScan frees the descriptor. AM scans hold no pin between calls,
// so there is nothing to unpin here.
func (i *Index) CloseIndexScan(scanID int) error {
	if scanID < 0 || scanID >= MaxScans || i.scans[scanID] == nil {
		return dberr.New(dberr.LayerAM, "CloseIndexScan", dberr.KindInvalidScan, nil)
	}
	i.scans[scanID] = nil
	return nil
}

// FindNextEntry advances the scan and returns the next matching RecId, or
// EOF once the predicate is exhausted.
func (i *Index) FindNextEntry(scanID int) (heap.RecId, error) {
	if scanID < 0 || scanID >= MaxScans || i.scans[scanID] == nil {
		return heap.RecId{}, dberr.New(dberr.LayerAM, "FindNextEntry", dberr.KindInvalidScan, nil)
	}
	s := i.scans[scanID]
	if s.done {
		return heap.RecId{}, dberr.New(dberr.LayerAM, "FindNextEntry", dberr.KindEOF, nil)
	}

	if !s.positioned {
		leaf, idx, err := i.startPosition(s.op, s.value)
		if dberr.IsEOF(err) {
			s.done = true
			return heap.RecId{}, err
		}
		if err != nil {
			return heap.RecId{}, err
		}
		s.curLeaf, s.curIdx, s.positioned = leaf, idx, true
	}

	for {
		p, err := i.mgr.GetThisPage(i.file, s.curLeaf)
		if err != nil {
			return heap.RecId{}, err
		}
		lp := leafPage{p: p, attrLength: i.attrLength}

		if s.curIdx >= lp.numKeys() {
			next := lp.nextLeaf()
			if err := i.mgr.UnfixPage(i.file, s.curLeaf, false); err != nil {
				return heap.RecId{}, err
			}
			if next == pf.NoPage {
				s.done = true
				return heap.RecId{}, dberr.New(dberr.LayerAM, "FindNextEntry", dberr.KindEOF, nil)
			}
			s.curLeaf, s.curIdx = next, 0
			continue
		}

		cmpv := i.cmp.Compare(lp.keyAt(s.curIdx), s.value)
		satisfied, stop := evalPredicate(s.op, cmpv)
		if stop {
			if err := i.mgr.UnfixPage(i.file, s.curLeaf, false); err != nil {
				return heap.RecId{}, err
			}
			s.done = true
			return heap.RecId{}, dberr.New(dberr.LayerAM, "FindNextEntry", dberr.KindEOF, nil)
		}
		if !satisfied {
			s.curIdx++
			if err := i.mgr.UnfixPage(i.file, s.curLeaf, false); err != nil {
				return heap.RecId{}, err
			}
			continue
		}

		id := lp.recIdAt(s.curIdx)
		s.curIdx++
		if err := i.mgr.UnfixPage(i.file, s.curLeaf, false); err != nil {
			return heap.RecId{}, err
		}
		return id, nil
	}
}

// startPosition finds the (leaf, index) at which iteration begins for op.
func (i *Index) startPosition(op Op, value []byte) (pf.PageNum, int, error) {
	switch op {
	case OpAll, OpNE, OpLT, OpLE:
		leaf, err := i.leftmostLeaf()
		return leaf, 0, err
	default: // EQ, GE, GT
		leaf, err := i.findLeafPage(value)
		if err != nil {
			return 0, 0, err
		}
		for {
			p, err := i.mgr.GetThisPage(i.file, leaf)
			if err != nil {
				return 0, 0, err
			}
			lp := leafPage{p: p, attrLength: i.attrLength}
			idx := 0
			for idx < lp.numKeys() {
				c := i.cmp.Compare(lp.keyAt(idx), value)
				if (op != OpGT && c >= 0) || (op == OpGT && c > 0) {
					break
				}
				idx++
			}
			if idx < lp.numKeys() {
				return leaf, idx, i.mgr.UnfixPage(i.file, leaf, false)
			}
			next := lp.nextLeaf()
			if err := i.mgr.UnfixPage(i.file, leaf, false); err != nil {
				return 0, 0, err
			}
			if next == pf.NoPage {
				return 0, 0, dberr.New(dberr.LayerAM, "startPosition", dberr.KindEOF, nil)
			}
			leaf = next
		}
	}
}

// evalPredicate interprets cmpv = Compare(key, value) under op, returning
// whether the current entry satisfies the predicate and whether the scan
// must terminate immediately (the predicate has provably gone false for
// every subsequent entry, since entries are visited in ascending order).
func evalPredicate(op Op, cmpv int) (satisfied, stop bool) {
	switch op {
	case OpAll:
		return true, false
	case OpEQ:
		if cmpv == 0 {
			return true, false
		}
		return false, true
	case OpLT:
		if cmpv < 0 {
			return true, false
		}
		return false, true
	case OpLE:
		if cmpv <= 0 {
			return true, false
		}
		return false, true
	case OpGE:
		return true, false
	case OpGT:
		return true, false
	case OpNE:
		return cmpv != 0, false
	default:
		return false, true
	}
}
