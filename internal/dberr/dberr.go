// Package dberr defines the error taxonomy shared by the PF, HF and AM
// layers. The original C sources mixed a process-wide errno-style global
// with overloaded return codes; here every operation returns a single
// *Error (or nil), carrying enough context to match against with
// errors.Is.
package dberr

import "fmt"

// Kind enumerates the cross-layer error categories. Each layer only ever
// produces a subset of these, but the vocabulary is shared.
type Kind int

const (
	KindOK Kind = iota
	KindIO
	KindNoMem
	KindNoBuf
	KindPageFixed
	KindPageInBuf
	KindNotInBuf
	KindAlreadyUnfixed
	KindEOF
	KindInvalidRec
	KindInvalidScan
	KindScanTabFull
	KindInvalidAttrType
	KindInvalidAttrLength
	KindNotFound
	KindClosed
	KindInvalidArg
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindIO:
		return "io"
	case KindNoMem:
		return "nomem"
	case KindNoBuf:
		return "nobuf"
	case KindPageFixed:
		return "page_fixed"
	case KindPageInBuf:
		return "page_in_buf"
	case KindNotInBuf:
		return "not_in_buf"
	case KindAlreadyUnfixed:
		return "already_unfixed"
	case KindEOF:
		return "eof"
	case KindInvalidRec:
		return "invalid_rec"
	case KindInvalidScan:
		return "invalid_scan"
	case KindScanTabFull:
		return "scan_tab_full"
	case KindInvalidAttrType:
		return "invalid_attr_type"
	case KindInvalidAttrLength:
		return "invalid_attr_length"
	case KindNotFound:
		return "not_found"
	case KindClosed:
		return "closed"
	case KindInvalidArg:
		return "invalid_arg"
	default:
		return "unknown"
	}
}

// Layer names the subsystem that raised the error.
type Layer string

const (
	LayerPF = Layer("pf")
	LayerHF = Layer("hf")
	LayerAM = Layer("am")
)

// Error is the single result type every PF/HF/AM operation returns on
// failure. Wrap a lower-layer error in Err to let callers unwrap down to
// the root cause while still switching on Kind at their own layer.
type Error struct {
	Layer Layer
	Kind  Kind
	Op    string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Layer, e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Layer, e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, dberr.KindEOF-shaped sentinel) work when the
// target is also an *Error: Kind must match, and Layer must match too when
// the target sets one. The target's wrapped cause is not compared.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	if t.Layer != "" && t.Layer != e.Layer {
		return false
	}
	return true
}

// New constructs an *Error for the given layer/op/kind, optionally
// wrapping a lower-layer cause.
func New(layer Layer, op string, kind Kind, cause error) *Error {
	return &Error{Layer: layer, Op: op, Kind: kind, Err: cause}
}

// Sentinel helpers so callers can write
// `errors.Is(err, dberr.Sentinel(dberr.LayerHF, dberr.KindEOF))`.
func Sentinel(layer Layer, kind Kind) *Error {
	return &Error{Layer: layer, Kind: kind}
}

// IsEOF reports whether err is an end-of-iteration signal from any layer.
// EOF is not a failure: callers use it as the normal scan terminator.
func IsEOF(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == KindEOF
}

// IsNotFound reports whether err is a "key/entry/slot not present" error.
func IsNotFound(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == KindNotFound
}

// KindOf extracts the Kind from err: KindOK if err is nil, the error's
// own Kind if it is an *Error, and KindIO for any other error.
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindIO
}
