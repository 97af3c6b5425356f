// Package btree implements the AM layer: a disk-resident B+-tree secondary
// index mapping attribute values to heap record identifiers, with
// duplicate keys ordered by RecId tie-break and linked-leaf range scans.
package btree

import (
	"bytes"
	"math"

	"github.com/tuannm99/novasql-core/internal/alias/bx"
	"github.com/tuannm99/novasql-core/internal/dberr"
	"github.com/tuannm99/novasql-core/internal/storage"
)

// AttrType identifies how key bytes are interpreted and compared.
type AttrType byte

const (
	AttrInt   AttrType = 'i'
	AttrFloat AttrType = 'f'
	AttrChar  AttrType = 'c'
)

// Comparator orders two key byte slices of a fixed, known length.
type Comparator interface {
	Compare(a, b []byte) int
}

type intComparator struct{}

func (intComparator) Compare(a, b []byte) int {
	av, bv := int32(bx.U32(a)), int32(bx.U32(b))
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

type floatComparator struct{}

func (floatComparator) Compare(a, b []byte) int {
	av := math.Float32frombits(bx.U32(a))
	bv := math.Float32frombits(bx.U32(b))
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

type charComparator struct{ length int }

func (c charComparator) Compare(a, b []byte) int {
	return bytes.Compare(a[:c.length], b[:c.length])
}

// NewComparator validates (attrType, attrLength) and returns the
// comparator for it, failing with INVALID_ATTR_TYPE / INVALID_ATTR_LENGTH
// on unsupported combinations.
func NewComparator(attrType AttrType, attrLength int) (Comparator, error) {
	switch attrType {
	case AttrInt:
		if attrLength != 4 {
			return nil, dberr.New(dberr.LayerAM, "NewComparator", dberr.KindInvalidAttrLength, nil)
		}
		return intComparator{}, nil
	case AttrFloat:
		if attrLength != 4 {
			return nil, dberr.New(dberr.LayerAM, "NewComparator", dberr.KindInvalidAttrLength, nil)
		}
		return floatComparator{}, nil
	case AttrChar:
		if attrLength < 1 || attrLength > storage.MaxAttrLength {
			return nil, dberr.New(dberr.LayerAM, "NewComparator", dberr.KindInvalidAttrLength, nil)
		}
		return charComparator{length: attrLength}, nil
	default:
		return nil, dberr.New(dberr.LayerAM, "NewComparator", dberr.KindInvalidAttrType, nil)
	}
}
