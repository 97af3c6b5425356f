package pf

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novasql-core/internal/dberr"
	"github.com/tuannm99/novasql-core/pkg/replacer"
)

func TestManager_CreateAllocCloseCycle(t *testing.T) {
	m := Init(t.TempDir(), 4, replacer.LRU)
	require.NoError(t, m.CreateFile("rel.db"))
	id, err := m.OpenFile("rel.db")
	require.NoError(t, err)

	pn, page, err := m.AllocPage(id)
	require.NoError(t, err)
	require.Equal(t, PageNum(0), pn)
	page.PutU32(0, 123)
	require.NoError(t, m.UnfixPage(id, pn, true))

	got, err := m.GetThisPage(id, pn)
	require.NoError(t, err)
	require.Equal(t, uint32(123), got.U32(0))
	require.NoError(t, m.UnfixPage(id, pn, false))

	require.NoError(t, m.CloseFile(id))
}

func TestManager_CloseFileFailsWhenPinned(t *testing.T) {
	m := Init(t.TempDir(), 4, replacer.LRU)
	require.NoError(t, m.CreateFile("rel.db"))
	id, err := m.OpenFile("rel.db")
	require.NoError(t, err)
	_, _, err = m.AllocPage(id)
	require.NoError(t, err)

	require.Error(t, m.CloseFile(id))
}

func TestManager_GetNextPageIteratesAndHitsEOF(t *testing.T) {
	m := Init(t.TempDir(), 4, replacer.LRU)
	require.NoError(t, m.CreateFile("rel.db"))
	id, err := m.OpenFile("rel.db")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		pn, _, err := m.AllocPage(id)
		require.NoError(t, err)
		require.NoError(t, m.UnfixPage(id, pn, true))
	}

	prev := NoPage
	var seen []PageNum
	for {
		next, _, err := m.GetNextPage(id, prev)
		if dberr.IsEOF(err) {
			break
		}
		require.NoError(t, err)
		seen = append(seen, next)
		require.NoError(t, m.UnfixPage(id, next, false))
		prev = next
	}
	require.Equal(t, []PageNum{0, 1, 2}, seen)
}

func TestManager_DestroyFile(t *testing.T) {
	m := Init(t.TempDir(), 4, replacer.LRU)
	require.NoError(t, m.CreateFile("rel.db"))
	require.NoError(t, m.DestroyFile("rel.db"))
	_, err := m.OpenFile("rel.db")
	require.Error(t, err)
}
