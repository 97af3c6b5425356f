package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileTable_CreateOpenReadWrite(t *testing.T) {
	dir := t.TempDir()
	ft := NewFileTable(dir)

	require.NoError(t, ft.CreateFile("rel.db"))
	id, err := ft.OpenFile("rel.db")
	require.NoError(t, err)

	count, err := ft.PageCount(id)
	require.NoError(t, err)
	require.Equal(t, PageNum(0), count)

	pn, err := ft.ExtendOnePage(id)
	require.NoError(t, err)
	require.Equal(t, PageNum(0), pn)

	var page Page
	page.PutU32(0, 42)
	require.NoError(t, ft.WritePage(id, pn, &page))

	var got Page
	require.NoError(t, ft.ReadPage(id, pn, &got))
	require.Equal(t, uint32(42), got.U32(0))
}

func TestFileTable_ReadUnwrittenPageIsZeroFilled(t *testing.T) {
	dir := t.TempDir()
	ft := NewFileTable(dir)
	require.NoError(t, ft.CreateFile("rel.db"))
	id, err := ft.OpenFile("rel.db")
	require.NoError(t, err)

	pn, err := ft.ExtendOnePage(id)
	require.NoError(t, err)

	var got Page
	require.NoError(t, ft.ReadPage(id, pn, &got))
	for _, b := range got.Bytes() {
		require.Zero(t, b)
	}
}

func TestFileTable_CreateExistingFails(t *testing.T) {
	dir := t.TempDir()
	ft := NewFileTable(dir)
	require.NoError(t, ft.CreateFile("rel.db"))
	require.Error(t, ft.CreateFile("rel.db"))
}

func TestFileTable_OpenReflectsExistingSize(t *testing.T) {
	dir := t.TempDir()
	ft := NewFileTable(dir)
	require.NoError(t, ft.CreateFile("rel.db"))
	id, err := ft.OpenFile("rel.db")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		pn, err := ft.ExtendOnePage(id)
		require.NoError(t, err)
		var p Page
		require.NoError(t, ft.WritePage(id, pn, &p))
	}
	require.NoError(t, ft.CloseFile(id))

	id2, err := ft.OpenFile("rel.db")
	require.NoError(t, err)
	count, err := ft.PageCount(id2)
	require.NoError(t, err)
	require.Equal(t, PageNum(3), count)
}

func TestFileTable_DestroyFile(t *testing.T) {
	dir := t.TempDir()
	ft := NewFileTable(dir)
	require.NoError(t, ft.CreateFile("rel.db"))
	require.NoError(t, ft.DestroyFile("rel.db"))
	_, err := ft.OpenFile("rel.db")
	require.Error(t, err)
}
