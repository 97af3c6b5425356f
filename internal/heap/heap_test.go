package heap

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novasql-core/internal/dberr"
	"github.com/tuannm99/novasql-core/internal/pf"
	"github.com/tuannm99/novasql-core/pkg/replacer"
)

func newHeap(t *testing.T) (*Heap, *pf.Manager, pf.FileID) {
	t.Helper()
	mgr := pf.Init(t.TempDir(), 8, replacer.LRU)
	require.NoError(t, mgr.CreateFile("rel.db"))
	id, err := mgr.OpenFile("rel.db")
	require.NoError(t, err)
	return Open(mgr, id), mgr, id
}

func TestHeap_InsertGetDelete(t *testing.T) {
	h, _, _ := newHeap(t)

	id, err := h.Insert([]byte("hello world"))
	require.NoError(t, err)

	got, err := h.Get(id)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(got))

	require.NoError(t, h.Delete(id))
	_, err = h.Get(id)
	require.Error(t, err)
}

func TestHeap_RecIdStability(t *testing.T) {
	h, _, _ := newHeap(t)

	var ids []RecId
	for i := 0; i < 20; i++ {
		id, err := h.Insert([]byte(fmt.Sprintf("record-%02d", i)))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	// delete every other record
	for i := 0; i < len(ids); i += 2 {
		require.NoError(t, h.Delete(ids[i]))
	}

	// survivors still resolve to their original bytes
	for i := 1; i < len(ids); i += 2 {
		got, err := h.Get(ids[i])
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("record-%02d", i), string(got))
	}
}

func TestHeap_FillAndScan(t *testing.T) {
	h, _, _ := newHeap(t)

	var ids []RecId
	lengths := []int{10, 20, 30}
	for i := 0; i < 300; i++ {
		n := lengths[i%len(lengths)]
		buf := make([]byte, n)
		for j := range buf {
			buf[j] = byte('a' + i%26)
		}
		id, err := h.Insert(buf)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	scanID, err := h.OpenScan()
	require.NoError(t, err)

	var scanned []RecId
	for {
		_, id, err := h.FindNext(scanID)
		if dberr.IsEOF(err) {
			break
		}
		require.NoError(t, err)
		scanned = append(scanned, id)
	}
	require.NoError(t, h.CloseScan(scanID))
	require.Equal(t, ids, scanned)
}

func TestHeap_ScanSkipsTombstones(t *testing.T) {
	h, _, _ := newHeap(t)

	var ids []RecId
	for i := 0; i < 10; i++ {
		id, err := h.Insert([]byte(fmt.Sprintf("rec%d", i)))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	for i := 0; i < len(ids); i += 2 {
		require.NoError(t, h.Delete(ids[i]))
	}

	scanID, err := h.OpenScan()
	require.NoError(t, err)
	var got [][]byte
	for {
		rec, _, err := h.FindNext(scanID)
		if dberr.IsEOF(err) {
			break
		}
		require.NoError(t, err)
		got = append(got, rec)
	}
	require.NoError(t, h.CloseScan(scanID))
	require.Len(t, got, 5)
	for i, rec := range got {
		require.Equal(t, fmt.Sprintf("rec%d", i*2+1), string(rec))
	}
}

func TestHeap_OpenScanTableExhaustion(t *testing.T) {
	h, _, _ := newHeap(t)
	for i := 0; i < MaxScans; i++ {
		_, err := h.OpenScan()
		require.NoError(t, err)
	}
	_, err := h.OpenScan()
	require.Error(t, err)
}

func TestHeap_InvalidScanDescriptor(t *testing.T) {
	h, _, _ := newHeap(t)
	_, _, err := h.FindNext(0)
	require.Error(t, err)
}

func TestHeap_InsertRecordTooLargeFails(t *testing.T) {
	h, _, _ := newHeap(t)
	_, err := h.Insert(make([]byte, pf.PageSize))
	require.Error(t, err)
}
