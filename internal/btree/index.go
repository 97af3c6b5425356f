package btree

import (
	"fmt"
	"log/slog"

	"github.com/tuannm99/novasql-core/internal/dberr"
	"github.com/tuannm99/novasql-core/internal/heap"
	"github.com/tuannm99/novasql-core/internal/pf"
	"github.com/tuannm99/novasql-core/internal/storage"
)

// indexFileName is the on-disk naming convention for a secondary index:
// "<dataFileName>.<indexNo>".
func indexFileName(dataFileName string, indexNo int) string {
	return fmt.Sprintf("%s.%d", dataFileName, indexNo)
}

// CreateIndex creates a new index file for dataFileName/indexNo: page 0
// holds the root descriptor, page 1 is allocated as an empty leaf that
// starts out as both the root and the leftmost leaf.
func CreateIndex(mgr *pf.Manager, dataFileName string, indexNo int, attrType AttrType, attrLength int) error {
	if _, err := NewComparator(attrType, attrLength); err != nil {
		return err
	}

	name := indexFileName(dataFileName, indexNo)
	if err := mgr.CreateFile(name); err != nil {
		return err
	}
	file, err := mgr.OpenFile(name)
	if err != nil {
		return err
	}

	descNum, descPage, err := mgr.AllocPage(file)
	if err != nil {
		return err
	}
	leafNum, leafPg, err := mgr.AllocPage(file)
	if err != nil {
		return err
	}

	leafPage{p: leafPg, attrLength: attrLength}.initEmpty(attrLength)
	if err := mgr.UnfixPage(file, leafNum, true); err != nil {
		return err
	}

	descPage.Reset()
	descPage.PutI32(offRootPage, int32(leafNum))
	descPage.PutI32(offLeftLeaf, int32(leafNum))
	descPage.SetByteAt(offRootType, byte(attrType))
	descPage.PutU16(offRootAttrLn, uint16(attrLength))
	if err := mgr.UnfixPage(file, descNum, true); err != nil {
		return err
	}

	return mgr.CloseFile(file)
}

// DestroyIndex removes an index's on-disk file.
func DestroyIndex(mgr *pf.Manager, dataFileName string, indexNo int) error {
	return mgr.DestroyFile(indexFileName(dataFileName, indexNo))
}

// Index is an open secondary B+-tree index.
type Index struct {
	mgr        *pf.Manager
	file       pf.FileID
	attrType   AttrType
	attrLength int
	cmp        Comparator
	scans      [MaxScans]*indexScanState
}

// MaxScans bounds the number of concurrently open index scans.
const MaxScans = storage.MaxScans

// OpenIndex opens an already-created index file and reads its attribute
// descriptor from page 0.
func OpenIndex(mgr *pf.Manager, dataFileName string, indexNo int) (*Index, error) {
	name := indexFileName(dataFileName, indexNo)
	file, err := mgr.OpenFile(name)
	if err != nil {
		return nil, err
	}
	p, err := mgr.GetThisPage(file, 0)
	if err != nil {
		return nil, err
	}
	attrType := AttrType(p.ByteAt(offRootType))
	attrLength := int(p.U16(offRootAttrLn))
	if err := mgr.UnfixPage(file, 0, false); err != nil {
		return nil, err
	}

	cmp, err := NewComparator(attrType, attrLength)
	if err != nil {
		return nil, err
	}
	return &Index{mgr: mgr, file: file, attrType: attrType, attrLength: attrLength, cmp: cmp}, nil
}

// Close closes the underlying PF file.
func (i *Index) Close() error { return i.mgr.CloseFile(i.file) }

func (i *Index) rootPageNum() (pf.PageNum, error) {
	p, err := i.mgr.GetThisPage(i.file, 0)
	if err != nil {
		return 0, err
	}
	root := pf.PageNum(p.I32(offRootPage))
	return root, i.mgr.UnfixPage(i.file, 0, false)
}

func (i *Index) leftmostLeaf() (pf.PageNum, error) {
	p, err := i.mgr.GetThisPage(i.file, 0)
	if err != nil {
		return 0, err
	}
	leaf := pf.PageNum(p.I32(offLeftLeaf))
	return leaf, i.mgr.UnfixPage(i.file, 0, false)
}

func (i *Index) setRootPageNum(pn pf.PageNum) error {
	p, err := i.mgr.GetThisPage(i.file, 0)
	if err != nil {
		return err
	}
	p.PutI32(offRootPage, int32(pn))
	return i.mgr.UnfixPage(i.file, 0, true)
}

// chooseChildIndex returns the index of the child whose separator range
// contains key: the first separator strictly greater than key terminates
// the search; if none, the last child is used.
func chooseChildIndex(ip internalPage, key []byte, cmp Comparator) int {
	num := ip.numKeys()
	for k := 0; k < num; k++ {
		if cmp.Compare(key, ip.keyAt(k)) < 0 {
			return k
		}
	}
	return num
}

// findLeafPage descends from root to the leaf that would contain key,
// releasing each internal page's pin before descending into its child.
func (i *Index) findLeafPage(key []byte) (pf.PageNum, error) {
	pn, err := i.rootPageNum()
	if err != nil {
		return 0, err
	}
	for {
		p, err := i.mgr.GetThisPage(i.file, pn)
		if err != nil {
			return 0, err
		}
		if p.ByteAt(0) == pageTypeLeaf {
			return pn, i.mgr.UnfixPage(i.file, pn, false)
		}
		ip := internalPage{p: p, attrLength: i.attrLength}
		idx := chooseChildIndex(ip, key, i.cmp)
		child := ip.childAt(idx)
		if err := i.mgr.UnfixPage(i.file, pn, false); err != nil {
			return 0, err
		}
		pn = child
	}
}

// InsertEntry inserts (key, id) at the position that keeps the leaf
// ordered by (key, RecId), splitting leaves and internal nodes as needed
// and growing a new root if the split propagates all the way up.
func (i *Index) InsertEntry(key []byte, id heap.RecId) error {
	if len(key) != i.attrLength {
		return dberr.New(dberr.LayerAM, "InsertEntry", dberr.KindInvalidAttrLength, nil)
	}
	root, err := i.rootPageNum()
	if err != nil {
		return err
	}
	split, sepKey, rightPn, err := i.insertAt(root, key, id)
	if err != nil {
		return err
	}
	if !split {
		return nil
	}

	newRootNum, newRootPg, err := i.mgr.AllocPage(i.file)
	if err != nil {
		return err
	}
	internalPage{p: newRootPg, attrLength: i.attrLength}.initEmpty(i.attrLength, root)
	internalPage{p: newRootPg, attrLength: i.attrLength}.insertSeparator(0, sepKey, rightPn)
	if err := i.mgr.UnfixPage(i.file, newRootNum, true); err != nil {
		return err
	}
	slog.Debug("btree: new root after split", "root", newRootNum)
	return i.setRootPageNum(newRootNum)
}

// insertAt inserts (key, id) into the subtree rooted at pn. It returns
// didSplit plus the separator key and new right-sibling page number if
// pn's node had to split. Internal descent unpins the parent before
// recursing into the child and re-pins it only to apply the split result,
// so a parent and its child are never pinned at the same time. A node
// that splits stays pinned while its new right sibling is allocated.
func (i *Index) insertAt(pn pf.PageNum, key []byte, id heap.RecId) (bool, []byte, pf.PageNum, error) {
	p, err := i.mgr.GetThisPage(i.file, pn)
	if err != nil {
		return false, nil, 0, err
	}

	if p.ByteAt(0) == pageTypeLeaf {
		return i.insertIntoLeaf(pn, p, key, id)
	}

	ip := internalPage{p: p, attrLength: i.attrLength}
	childIdx := chooseChildIndex(ip, key, i.cmp)
	child := ip.childAt(childIdx)
	if err := i.mgr.UnfixPage(i.file, pn, false); err != nil {
		return false, nil, 0, err
	}

	childSplit, childSepKey, childRightPn, err := i.insertAt(child, key, id)
	if err != nil {
		return false, nil, 0, err
	}
	if !childSplit {
		return false, nil, 0, nil
	}

	p, err = i.mgr.GetThisPage(i.file, pn)
	if err != nil {
		return false, nil, 0, err
	}
	ip = internalPage{p: p, attrLength: i.attrLength}
	return i.insertSeparatorWithSplit(pn, ip, childIdx, childSepKey, childRightPn)
}

// leafEntry is an in-memory (key, RecId) pair used while rebuilding a leaf
// across a split.
type leafEntry struct {
	key []byte
	id  heap.RecId
}

// splitIndex picks the split point within entries (sorted by (key,
// RecId)) closest to the midpoint such that entries[i-1].key !=
// entries[i].key: a run of equal keys must never straddle the two
// leaves that result from the split, since the promoted separator
// (entries[mid].key) routes searches for that value to the right leaf
// only, and any matching entries left behind on the left leaf would
// become unreachable by scan, EQ lookup, and delete alike. Any split
// point in [1, len(entries)-1] keeps both halves within capacity (the
// array holds exactly maxKeys+1 entries), so the search widens outward
// from the midpoint until it finds a safe boundary. Only a run of
// identical keys longer than a full leaf's capacity has no safe
// boundary at all; that single degenerate case falls back to the naive
// midpoint, which is an inherent page-capacity limit, not a routing bug.
func splitIndex(entries []leafEntry, cmp Comparator) int {
	mid := len(entries) / 2
	for d := 0; d < len(entries); d++ {
		for _, cand := range [2]int{mid - d, mid + d} {
			if cand <= 0 || cand >= len(entries) {
				continue
			}
			if cmp.Compare(entries[cand-1].key, entries[cand].key) != 0 {
				return cand
			}
		}
	}
	return mid
}

func (i *Index) insertIntoLeaf(pn pf.PageNum, p *pf.Page, key []byte, id heap.RecId) (bool, []byte, pf.PageNum, error) {
	lp := leafPage{p: p, attrLength: i.attrLength}
	idx := leafInsertPosition(lp, key, id, i.cmp)

	if lp.numKeys() < lp.maxKeys() {
		lp.insertAt(idx, key, id)
		return false, nil, 0, i.mgr.UnfixPage(i.file, pn, true)
	}

	entries := make([]leafEntry, 0, lp.numKeys()+1)
	for k := 0; k < lp.numKeys(); k++ {
		if k == idx {
			entries = append(entries, leafEntry{append([]byte(nil), key...), id})
		}
		entries = append(entries, leafEntry{append([]byte(nil), lp.keyAt(k)...), lp.recIdAt(k)})
	}
	if idx == lp.numKeys() {
		entries = append(entries, leafEntry{append([]byte(nil), key...), id})
	}

	oldNext := lp.nextLeaf()
	mid := splitIndex(entries, i.cmp)
	left, right := entries[:mid], entries[mid:]

	lp.initEmpty(i.attrLength)
	for k, e := range left {
		lp.insertAt(k, e.key, e.id)
	}

	rightNum, rightPg, err := i.mgr.AllocPage(i.file)
	if err != nil {
		return false, nil, 0, err
	}
	rlp := leafPage{p: rightPg, attrLength: i.attrLength}
	rlp.initEmpty(i.attrLength)
	for k, e := range right {
		rlp.insertAt(k, e.key, e.id)
	}
	rlp.setNextLeaf(oldNext)
	lp.setNextLeaf(rightNum)

	if err := i.mgr.UnfixPage(i.file, rightNum, true); err != nil {
		return false, nil, 0, err
	}
	if err := i.mgr.UnfixPage(i.file, pn, true); err != nil {
		return false, nil, 0, err
	}
	return true, right[0].key, rightNum, nil
}

// leafInsertPosition returns the index at which (key, id) must be
// inserted to keep the leaf ordered by (key, RecId).
func leafInsertPosition(lp leafPage, key []byte, id heap.RecId, cmp Comparator) int {
	num := lp.numKeys()
	for k := 0; k < num; k++ {
		c := cmp.Compare(key, lp.keyAt(k))
		if c < 0 || (c == 0 && compareRecId(id, lp.recIdAt(k)) < 0) {
			return k
		}
	}
	return num
}

func (i *Index) insertSeparatorWithSplit(pn pf.PageNum, ip internalPage, childIdx int, sepKey []byte, rightPn pf.PageNum) (bool, []byte, pf.PageNum, error) {
	if ip.numKeys() < ip.maxKeys() {
		ip.insertSeparator(childIdx, sepKey, rightPn)
		return false, nil, 0, i.mgr.UnfixPage(i.file, pn, true)
	}

	num := ip.numKeys()
	children := make([]pf.PageNum, 0, num+2)
	keys := make([][]byte, 0, num+1)
	for k := 0; k <= num; k++ {
		children = append(children, ip.childAt(k))
	}
	for k := 0; k < num; k++ {
		keys = append(keys, append([]byte(nil), ip.keyAt(k)...))
	}
	// splice (sepKey, rightPn) in after children[childIdx]
	newChildren := make([]pf.PageNum, 0, len(children)+1)
	newChildren = append(newChildren, children[:childIdx+1]...)
	newChildren = append(newChildren, rightPn)
	newChildren = append(newChildren, children[childIdx+1:]...)

	newKeys := make([][]byte, 0, len(keys)+1)
	newKeys = append(newKeys, keys[:childIdx]...)
	newKeys = append(newKeys, sepKey)
	newKeys = append(newKeys, keys[childIdx:]...)

	mid := len(newKeys) / 2
	midKey := newKeys[mid]
	leftKeys, rightKeys := newKeys[:mid], newKeys[mid+1:]
	leftChildren, rightChildren := newChildren[:mid+1], newChildren[mid+1:]

	ip.initEmpty(i.attrLength, leftChildren[0])
	for k := 1; k < len(leftChildren); k++ {
		ip.insertSeparator(k-1, leftKeys[k-1], leftChildren[k])
	}

	rightNum, rightPg, err := i.mgr.AllocPage(i.file)
	if err != nil {
		return false, nil, 0, err
	}
	rip := internalPage{p: rightPg, attrLength: i.attrLength}
	rip.initEmpty(i.attrLength, rightChildren[0])
	for k := 1; k < len(rightChildren); k++ {
		rip.insertSeparator(k-1, rightKeys[k-1], rightChildren[k])
	}

	if err := i.mgr.UnfixPage(i.file, rightNum, true); err != nil {
		return false, nil, 0, err
	}
	if err := i.mgr.UnfixPage(i.file, pn, true); err != nil {
		return false, nil, 0, err
	}
	return true, midKey, rightNum, nil
}

// DeleteEntry removes exactly the (key, id) pair from its leaf, failing
// with NOT_FOUND if no such entry exists. Leaves are never merged on
// underflow.
func (i *Index) DeleteEntry(key []byte, id heap.RecId) error {
	pn, err := i.findLeafPage(key)
	if err != nil {
		return err
	}
	p, err := i.mgr.GetThisPage(i.file, pn)
	if err != nil {
		return err
	}
	lp := leafPage{p: p, attrLength: i.attrLength}

	for k := 0; k < lp.numKeys(); k++ {
		if i.cmp.Compare(lp.keyAt(k), key) == 0 && compareRecId(lp.recIdAt(k), id) == 0 {
			lp.removeAt(k)
			return i.mgr.UnfixPage(i.file, pn, true)
		}
	}
	if err := i.mgr.UnfixPage(i.file, pn, false); err != nil {
		return err
	}
	return dberr.New(dberr.LayerAM, "DeleteEntry", dberr.KindNotFound, nil)
}
