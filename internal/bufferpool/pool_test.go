package bufferpool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novasql-core/internal/storage"
	"github.com/tuannm99/novasql-core/pkg/replacer"
)

func newTestFile(t *testing.T, pages int) (*storage.FileTable, storage.FileID) {
	t.Helper()
	ft := storage.NewFileTable(t.TempDir())
	require.NoError(t, ft.CreateFile("rel.db"))
	id, err := ft.OpenFile("rel.db")
	require.NoError(t, err)
	for i := 0; i < pages; i++ {
		pn, err := ft.ExtendOnePage(id)
		require.NoError(t, err)
		var p storage.Page
		require.NoError(t, ft.WritePage(id, pn, &p))
	}
	return ft, id
}

func TestPool_GetAllocUnfixRoundTrip(t *testing.T) {
	ft, id := newTestFile(t, 1)
	pool := New(ft, 3, replacer.LRU)

	f, err := pool.Get(id, 0)
	require.NoError(t, err)
	f.Page.PutU32(0, 7)
	require.NoError(t, pool.Unfix(id, 0, true))

	f2, err := pool.Get(id, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(7), f2.Page.U32(0))
	require.NoError(t, pool.Unfix(id, 0, false))
}

func TestPool_GetAlreadyPinnedFails(t *testing.T) {
	ft, id := newTestFile(t, 1)
	pool := New(ft, 3, replacer.LRU)

	_, err := pool.Get(id, 0)
	require.NoError(t, err)
	_, err = pool.Get(id, 0)
	require.Error(t, err)
}

func TestPool_AllocAlreadyResidentFails(t *testing.T) {
	ft, id := newTestFile(t, 1)
	pool := New(ft, 3, replacer.LRU)

	_, err := pool.Get(id, 0)
	require.NoError(t, err)
	_, err = pool.Alloc(id, 0)
	require.Error(t, err)
}

func TestPool_UnfixUnknownFails(t *testing.T) {
	ft, id := newTestFile(t, 1)
	pool := New(ft, 3, replacer.LRU)
	require.Error(t, pool.Unfix(id, 0, false))
}

func TestPool_UnfixAlreadyUnfixedFails(t *testing.T) {
	ft, id := newTestFile(t, 1)
	pool := New(ft, 3, replacer.LRU)
	_, err := pool.Get(id, 0)
	require.NoError(t, err)
	require.NoError(t, pool.Unfix(id, 0, false))
	require.Error(t, pool.Unfix(id, 0, false))
}

func TestPool_ReleaseFileFailsIfPinned(t *testing.T) {
	ft, id := newTestFile(t, 1)
	pool := New(ft, 3, replacer.LRU)
	_, err := pool.Get(id, 0)
	require.NoError(t, err)
	require.Error(t, pool.ReleaseFile(id))
}

func TestPool_ReleaseFileFlushesDirty(t *testing.T) {
	ft, id := newTestFile(t, 1)
	pool := New(ft, 3, replacer.LRU)
	f, err := pool.Get(id, 0)
	require.NoError(t, err)
	f.Page.PutU32(0, 99)
	require.NoError(t, pool.Unfix(id, 0, true))
	require.NoError(t, pool.ReleaseFile(id))
	require.Equal(t, 0, pool.Occupied())

	var got storage.Page
	require.NoError(t, ft.ReadPage(id, 0, &got))
	require.Equal(t, uint32(99), got.U32(0))
}

// TestPool_HitMissAccounting_LRU implements the spec's buffer hit/miss
// accounting scenario: capacity 3, a 5-page file, access sequence
// [0,1,2,0,1,2,3,0] unfixing clean after each. Under LRU this yields
// logicalReads=8, physicalReads=5.
func TestPool_HitMissAccounting_LRU(t *testing.T) {
	ft, id := newTestFile(t, 5)
	pool := New(ft, 3, replacer.LRU)

	seq := []storage.PageNum{0, 1, 2, 0, 1, 2, 3, 0}
	for _, pn := range seq {
		_, err := pool.Get(id, pn)
		require.NoError(t, err)
		require.NoError(t, pool.Unfix(id, pn, false))
	}

	s := pool.Stats()
	require.EqualValues(t, 8, s.LogicalReads)
	require.EqualValues(t, 5, s.PhysicalReads)
}

// TestPool_HitMissAccounting_MRU runs the same sequence under MRU. Unlike
// LRU, steady-state access to {0,1,2} always leaves page 2 as the most
// recently touched frame, so the single eviction triggered by page 3
// always takes page 2, and the final re-access to page 0 is a hit:
// physicalReads=4 (the three initial misses plus page 3).
func TestPool_HitMissAccounting_MRU(t *testing.T) {
	ft, id := newTestFile(t, 5)
	pool := New(ft, 3, replacer.MRU)

	seq := []storage.PageNum{0, 1, 2, 0, 1, 2, 3, 0}
	for _, pn := range seq {
		_, err := pool.Get(id, pn)
		require.NoError(t, err)
		require.NoError(t, pool.Unfix(id, pn, false))
	}

	s := pool.Stats()
	require.EqualValues(t, 8, s.LogicalReads)
	require.EqualValues(t, 4, s.PhysicalReads)
}

// TestPool_MRU_EvictsMostRecentlyTouched isolates the MRU eviction rule
// itself: with capacity 2 and pages 0 and 1 resident, touching 1 last and
// requesting a third page must evict 1, not 0.
func TestPool_MRU_EvictsMostRecentlyTouched(t *testing.T) {
	ft, id := newTestFile(t, 3)
	pool := New(ft, 2, replacer.MRU)

	_, err := pool.Get(id, 0)
	require.NoError(t, err)
	require.NoError(t, pool.Unfix(id, 0, false))
	_, err = pool.Get(id, 1)
	require.NoError(t, err)
	require.NoError(t, pool.Unfix(id, 1, false))

	_, err = pool.Get(id, 2)
	require.NoError(t, err)
	require.NoError(t, pool.Unfix(id, 2, false))

	// page 1 was evicted (most recently touched before the miss), page 0
	// must still be resident.
	f, err := pool.Get(id, 0)
	require.NoError(t, err)
	require.Equal(t, id, f.File)
	require.NoError(t, pool.Unfix(id, 0, false))
	require.Equal(t, int64(3), pool.Stats().PhysicalReads)
}

func TestPool_AcquireFrame_NoBufWhenAllPinned(t *testing.T) {
	ft, id := newTestFile(t, 4)
	pool := New(ft, 2, replacer.LRU)
	_, err := pool.Get(id, 0)
	require.NoError(t, err)
	_, err = pool.Get(id, 1)
	require.NoError(t, err)
	_, err = pool.Get(id, 2)
	require.Error(t, err)
}
