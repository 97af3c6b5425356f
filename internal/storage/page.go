// Package storage implements the PF layer's disk and file bookkeeping: a
// fixed page size, raw page read/write against an *os.File, and per-file
// page-count tracking. It has no notion of pinning or replacement — that
// lives one layer up, in internal/bufferpool.
package storage

import "github.com/tuannm99/novasql-core/internal/alias/bx"

// PageSize is the fixed page size used throughout the engine, matching
// spec.md's on-disk format exactly (4096 bytes).
const PageSize = 4096

// PageNum identifies a page within a single file. Page numbers are dense
// and monotonic starting at 0. NoPage is the sentinel "start of file"
// value accepted by GetNextPage.
type PageNum int32

// NoPage is the sentinel previous-page value that begins a GetNextPage
// iteration.
const NoPage PageNum = -1

// FileID identifies an open file within the PF layer. It has no meaning
// once the file is closed.
type FileID int32

// Page is a fixed-size, fixed-layout byte buffer. Every on-disk structure
// (heap slotted page, B+-tree leaf/internal/root page) is a view over one
// of these, accessed through explicit offset+endian helpers rather than
// struct casts, per spec §9's guidance against relying on native
// alignment/padding.
type Page struct {
	buf [PageSize]byte
}

// Bytes returns the page's backing array as a slice. Mutating it mutates
// the page in place.
func (p *Page) Bytes() []byte { return p.buf[:] }

// Reset zeroes the page. Used both for brand-new allocated pages (PF.Alloc
// hands back uninitialized memory; callers that want a clean slate call
// this) and for rebuilding a page in place during a B+-tree split.
func (p *Page) Reset() {
	for i := range p.buf {
		p.buf[i] = 0
	}
}

// CopyFrom overwrites the page contents from src, which must be exactly
// PageSize bytes.
func (p *Page) CopyFrom(src []byte) {
	copy(p.buf[:], src)
}

// ---- typed field access (little-endian, explicit offsets) ----

func (p *Page) U16(off int) uint16 { return bx.U16At(p.buf[:], off) }
func (p *Page) U32(off int) uint32 { return bx.U32At(p.buf[:], off) }

func (p *Page) PutU16(off int, v uint16) { bx.PutU16At(p.buf[:], off, v) }
func (p *Page) PutU32(off int, v uint32) { bx.PutU32At(p.buf[:], off, v) }

// I32/PutI32 are convenience wrappers over U32/PutU32 for signed header
// fields (numSlots, freeSpaceOffset, record lengths, the -1 tombstone
// sentinel, page numbers).
func (p *Page) I32(off int) int32          { return int32(p.U32(off)) }
func (p *Page) PutI32(off int, v int32)    { p.PutU32(off, uint32(v)) }
func (p *Page) ByteAt(off int) byte        { return p.buf[off] }
func (p *Page) SetByteAt(off int, v byte)  { p.buf[off] = v }
func (p *Page) Slice(off, n int) []byte    { return p.buf[off : off+n] }
func (p *Page) CopyInto(off int, src []byte) {
	copy(p.buf[off:off+len(src)], src)
}
