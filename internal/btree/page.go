package btree

import (
	"github.com/tuannm99/novasql-core/internal/alias/bx"
	"github.com/tuannm99/novasql-core/internal/heap"
	"github.com/tuannm99/novasql-core/internal/pf"
)

const (
	pageTypeLeaf     = byte(0x01)
	pageTypeInternal = byte(0x02)

	// recIdSize is the fixed 8-byte (pageNumber:i32, slotNumber:i32)
	// encoding of a heap.RecId inside a leaf entry.
	recIdSize = 8

	leafHeaderSize = 16
	offLeafType    = 0
	offNextLeaf    = 4
	offAttrLength  = 8
	offNumKeys     = 10
	offMaxKeys     = 12

	internalHeaderSize = 16
	offIntType         = 0
	offIntNumKeys      = 4
	offIntMaxKeys      = 6
	offIntAttrLength   = 8

	// Offsets of page 0's root descriptor fields:
	// {rootPageNumber:i32, leftmostLeafPageNumber:i32, attrType:u8, attrLength:i16}.
	offRootPage   = 0
	offLeftLeaf   = 4
	offRootType   = 8
	offRootAttrLn = 9
)

func maxLeafEntries(attrLength int) int {
	free := pf.PageSize - leafHeaderSize
	return free / (attrLength + recIdSize)
}

func maxInternalEntries(attrLength int) int {
	free := pf.PageSize - internalHeaderSize - 4
	return free / (attrLength + 4)
}

func encodeRecId(id heap.RecId) [recIdSize]byte {
	var b [recIdSize]byte
	bx.PutU32(b[0:4], uint32(int32(id.PageNum)))
	bx.PutU32(b[4:8], uint32(id.Slot))
	return b
}

func decodeRecId(b []byte) heap.RecId {
	return heap.RecId{
		PageNum: pf.PageNum(int32(bx.U32(b[0:4]))),
		Slot:    int32(bx.U32(b[4:8])),
	}
}

func compareRecId(a, b heap.RecId) int {
	switch {
	case a.PageNum != b.PageNum:
		if a.PageNum < b.PageNum {
			return -1
		}
		return 1
	case a.Slot != b.Slot:
		if a.Slot < b.Slot {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// leafPage is a view over a pf.Page laid out as a leaf node: a small
// header followed by a contiguous, key-ordered array of fixed-size
// (key, RecId) entries.
type leafPage struct {
	p          *pf.Page
	attrLength int
}

func (n leafPage) entrySize() int     { return n.attrLength + recIdSize }
func (n leafPage) numKeys() int       { return int(n.p.U16(offNumKeys)) }
func (n leafPage) setNumKeys(k int)   { n.p.PutU16(offNumKeys, uint16(k)) }
func (n leafPage) maxKeys() int       { return int(n.p.U16(offMaxKeys)) }
func (n leafPage) nextLeaf() pf.PageNum { return pf.PageNum(n.p.I32(offNextLeaf)) }
func (n leafPage) setNextLeaf(pn pf.PageNum) { n.p.PutI32(offNextLeaf, int32(pn)) }

func (n leafPage) initEmpty(attrLength int) {
	n.p.Reset()
	n.p.SetByteAt(offLeafType, pageTypeLeaf)
	n.p.PutI32(offNextLeaf, int32(pf.NoPage))
	n.p.PutU16(offAttrLength, uint16(attrLength))
	n.setNumKeys(0)
	n.p.PutU16(offMaxKeys, uint16(maxLeafEntries(attrLength)))
}

func (n leafPage) entryOffset(i int) int { return leafHeaderSize + i*n.entrySize() }

func (n leafPage) keyAt(i int) []byte {
	off := n.entryOffset(i)
	return n.p.Slice(off, n.attrLength)
}

func (n leafPage) recIdAt(i int) heap.RecId {
	off := n.entryOffset(i) + n.attrLength
	return decodeRecId(n.p.Slice(off, recIdSize))
}

// insertAt shifts entries [i, numKeys) right by one slot and writes
// (key, id) at i. Caller must have checked capacity.
func (n leafPage) insertAt(i int, key []byte, id heap.RecId) {
	num := n.numKeys()
	sz := n.entrySize()
	for j := num; j > i; j-- {
		copy(n.p.Slice(n.entryOffset(j), sz), n.p.Slice(n.entryOffset(j-1), sz))
	}
	off := n.entryOffset(i)
	copy(n.p.Slice(off, n.attrLength), key)
	rid := encodeRecId(id)
	copy(n.p.Slice(off+n.attrLength, recIdSize), rid[:])
	n.setNumKeys(num + 1)
}

// removeAt shifts entries (i, numKeys) left by one slot, dropping entry i.
func (n leafPage) removeAt(i int) {
	num := n.numKeys()
	sz := n.entrySize()
	for j := i; j < num-1; j++ {
		copy(n.p.Slice(n.entryOffset(j), sz), n.p.Slice(n.entryOffset(j+1), sz))
	}
	n.setNumKeys(num - 1)
}

// internalPage is a view over a pf.Page laid out as an internal node:
// child_0, (key_0, child_1), (key_1, child_2), ..., (key_{n-1}, child_n).
type internalPage struct {
	p          *pf.Page
	attrLength int
}

func (n internalPage) entryStride() int { return n.attrLength + 4 }
func (n internalPage) numKeys() int     { return int(n.p.U16(offIntNumKeys)) }
func (n internalPage) setNumKeys(k int) { n.p.PutU16(offIntNumKeys, uint16(k)) }
func (n internalPage) maxKeys() int     { return int(n.p.U16(offIntMaxKeys)) }

func (n internalPage) initEmpty(attrLength int, onlyChild pf.PageNum) {
	n.p.Reset()
	n.p.SetByteAt(offIntType, pageTypeInternal)
	n.p.PutU16(offIntAttrLength, uint16(attrLength))
	n.setNumKeys(0)
	n.p.PutU16(offIntMaxKeys, uint16(maxInternalEntries(attrLength)))
	n.p.PutI32(internalHeaderSize, int32(onlyChild))
}

func (n internalPage) childOffset(i int) int { return internalHeaderSize + i*n.entryStride() }
func (n internalPage) keyOffset(i int) int   { return n.childOffset(i) + 4 }

func (n internalPage) childAt(i int) pf.PageNum {
	return pf.PageNum(n.p.I32(n.childOffset(i)))
}

func (n internalPage) keyAt(i int) []byte {
	return n.p.Slice(n.keyOffset(i), n.attrLength)
}

func (n internalPage) setChildAt(i int, pn pf.PageNum) {
	n.p.PutI32(n.childOffset(i), int32(pn))
}

// insertSeparator inserts key as keys[i] and child as children[i+1],
// shifting later (key, child) pairs right.
func (n internalPage) insertSeparator(i int, key []byte, child pf.PageNum) {
	num := n.numKeys()
	// shift children[num..i+1] and keys[num-1..i] up by one slot each
	for j := num; j > i; j-- {
		copy(n.p.Slice(n.childOffset(j+1), 4), n.p.Slice(n.childOffset(j), 4))
	}
	for j := num - 1; j >= i; j-- {
		copy(n.p.Slice(n.keyOffset(j+1), n.attrLength), n.p.Slice(n.keyOffset(j), n.attrLength))
	}
	copy(n.p.Slice(n.keyOffset(i), n.attrLength), key)
	n.setChildAt(i+1, child)
	n.setNumKeys(num + 1)
}
