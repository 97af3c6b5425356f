// Package pf is the public Paged File layer: it ties internal/storage's
// file bookkeeping to internal/bufferpool's pinning pool and exposes the
// exact operation set HF and AM are built against.
package pf

import (
	"log/slog"

	"github.com/tuannm99/novasql-core/internal/bufferpool"
	"github.com/tuannm99/novasql-core/internal/dberr"
	"github.com/tuannm99/novasql-core/internal/storage"
	"github.com/tuannm99/novasql-core/pkg/replacer"
)

// Page re-exports storage.Page so callers only need to import this
// package for ordinary PF usage.
type Page = storage.Page

// FileID re-exports storage.FileID.
type FileID = storage.FileID

// PageNum re-exports storage.PageNum.
type PageNum = storage.PageNum

// NoPage is the sentinel previous-page value GetNextPage accepts to begin
// an iteration.
const NoPage = storage.NoPage

// PageSize is the fixed page size, re-exported for callers that need to
// size records or compute header budgets without importing storage
// directly.
const PageSize = storage.PageSize

// Manager is the engine-wide PF context: one buffer pool and one file
// table, constructed once by Init and threaded through every HF/AM
// operation via file handles.
type Manager struct {
	ft   *storage.FileTable
	pool *bufferpool.Pool
}

// Init constructs a Manager rooted at dir with the given buffer capacity
// and replacement policy. It must be called before any other PF
// operation, matching spec.md's PF_Init contract.
func Init(dir string, bufCap int, strategy replacer.Policy) *Manager {
	ft := storage.NewFileTable(dir)
	return &Manager{
		ft:   ft,
		pool: bufferpool.New(ft, bufCap, strategy),
	}
}

func (m *Manager) CreateFile(name string) error  { return m.ft.CreateFile(name) }
func (m *Manager) DestroyFile(name string) error { return m.ft.DestroyFile(name) }

func (m *Manager) OpenFile(name string) (FileID, error) {
	return m.ft.OpenFile(name)
}

// CloseFile releases all buffer frames belonging to id before closing the
// underlying OS file, failing with PAGE_FIXED if any page of the file is
// still pinned.
func (m *Manager) CloseFile(id FileID) error {
	if err := m.pool.ReleaseFile(id); err != nil {
		return err
	}
	return m.ft.CloseFile(id)
}

// AllocPage extends id by one page, pins the new page (dirty=false,
// contents uninitialized) and returns its page number.
func (m *Manager) AllocPage(id FileID) (PageNum, *Page, error) {
	pn, err := m.ft.ExtendOnePage(id)
	if err != nil {
		return 0, nil, err
	}
	f, err := m.pool.Alloc(id, pn)
	if err != nil {
		return 0, nil, err
	}
	return pn, &f.Page, nil
}

// GetThisPage pins and returns page num of file id.
func (m *Manager) GetThisPage(id FileID, num PageNum) (*Page, error) {
	f, err := m.pool.Get(id, num)
	if err != nil {
		return nil, err
	}
	return &f.Page, nil
}

// GetNextPage returns the page immediately after prev (NoPage to start
// from page 0), pinning it and returning its number. It fails with EOF
// once prev is the file's last page.
func (m *Manager) GetNextPage(id FileID, prev PageNum) (PageNum, *Page, error) {
	next := prev + 1 // NoPage is -1, so this naturally starts at page 0
	count, err := m.ft.PageCount(id)
	if err != nil {
		return 0, nil, err
	}
	if next >= count {
		return 0, nil, dberr.New(dberr.LayerPF, "GetNextPage", dberr.KindEOF, nil)
	}
	page, err := m.GetThisPage(id, next)
	if err != nil {
		return 0, nil, err
	}
	return next, page, nil
}

// UnfixPage releases the pin on (id, num), marking it dirty if requested.
func (m *Manager) UnfixPage(id FileID, num PageNum, dirty bool) error {
	return m.pool.Unfix(id, num, dirty)
}

// Used marks an already-pinned page dirty without counting a logical
// write.
func (m *Manager) Used(id FileID, num PageNum) error {
	return m.pool.Used(id, num)
}

// PrintStats logs the buffer pool's accounting counters.
func (m *Manager) PrintStats() { m.pool.PrintStats() }

// PrintError logs msg at error level alongside the last operation's
// context; callers pass the error they just received.
func (m *Manager) PrintError(msg string, err error) {
	slog.Error(msg, "err", err)
}

// Stats exposes the buffer pool's raw counters for tests and callers that
// want to assert on them directly.
func (m *Manager) Stats() bufferpool.Stats { return m.pool.Stats() }
