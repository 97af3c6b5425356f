package storage

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/tuannm99/novasql-core/internal/dberr"
)

// fileEntry tracks one open OS file and the page count the PF layer
// believes it has, which may run ahead of the file's actual on-disk size
// until the first write to a newly allocated page lands.
type fileEntry struct {
	f         *os.File
	path      string
	pageCount PageNum
}

// FileTable owns the open *os.File handles for every file the PF layer
// knows about and translates page-numbered reads/writes into ReadAt/
// WriteAt calls. It has no notion of buffering; internal/bufferpool sits
// above it.
type FileTable struct {
	dir     string
	next    FileID
	entries map[FileID]*fileEntry
}

// NewFileTable creates a file table rooted at dir. dir must already exist;
// NewFileTable does not create it.
func NewFileTable(dir string) *FileTable {
	return &FileTable{
		dir:     dir,
		entries: make(map[FileID]*fileEntry),
	}
}

func (t *FileTable) pathFor(name string) string {
	if t.dir == "" {
		return name
	}
	return t.dir + string(os.PathSeparator) + name
}

// CreateFile creates a new, empty file named name. It fails with an *Error
// wrapping os.ErrExist if the file is already present, matching PF_CreateFile's
// refusal to clobber an existing file.
func (t *FileTable) CreateFile(name string) error {
	if len(name) > MaxFileNameLength {
		return dberr.New(dberr.LayerPF, "CreateFile", dberr.KindInvalidArg, nil)
	}
	path := t.pathFor(name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		return dberr.New(dberr.LayerPF, "CreateFile", dberr.KindIO, err)
	}
	return f.Close()
}

// DestroyFile removes the named file from disk. The file must not be open.
func (t *FileTable) DestroyFile(name string) error {
	if err := os.Remove(t.pathFor(name)); err != nil {
		return dberr.New(dberr.LayerPF, "DestroyFile", dberr.KindIO, err)
	}
	return nil
}

// OpenFile opens name for reading and writing, computing its current page
// count from the file size, and returns a FileID for subsequent
// ReadPage/WritePage/ExtendOnePage calls.
func (t *FileTable) OpenFile(name string) (FileID, error) {
	if len(name) > MaxFileNameLength {
		return 0, dberr.New(dberr.LayerPF, "OpenFile", dberr.KindInvalidArg, nil)
	}
	path := t.pathFor(name)
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return 0, dberr.New(dberr.LayerPF, "OpenFile", dberr.KindIO, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return 0, dberr.New(dberr.LayerPF, "OpenFile", dberr.KindIO, err)
	}

	id := t.next
	t.next++
	t.entries[id] = &fileEntry{
		f:         f,
		path:      path,
		pageCount: PageNum(info.Size() / PageSize),
	}
	slog.Debug("storage: opened file", "file", name, "id", id, "pages", t.entries[id].pageCount)
	return id, nil
}

// CloseFile closes the underlying OS handle and forgets the FileID. The
// caller (internal/bufferpool via internal/pf) is responsible for having
// flushed any dirty pages first.
func (t *FileTable) CloseFile(id FileID) error {
	e, ok := t.entries[id]
	if !ok {
		return dberr.New(dberr.LayerPF, "CloseFile", dberr.KindInvalidArg, nil)
	}
	delete(t.entries, id)
	if err := e.f.Close(); err != nil {
		return dberr.New(dberr.LayerPF, "CloseFile", dberr.KindIO, err)
	}
	return nil
}

// PageCount reports how many pages id currently has, including pages that
// have been allocated but not yet physically written.
func (t *FileTable) PageCount(id FileID) (PageNum, error) {
	e, ok := t.entries[id]
	if !ok {
		return 0, dberr.New(dberr.LayerPF, "PageCount", dberr.KindInvalidArg, nil)
	}
	return e.pageCount, nil
}

// ExtendOnePage bumps id's logical page count by one and returns the
// number of the newly appended page. The page is not physically written
// until the caller's first WritePage call for it; a ReadPage of it before
// that returns a zero-filled page.
func (t *FileTable) ExtendOnePage(id FileID) (PageNum, error) {
	e, ok := t.entries[id]
	if !ok {
		return 0, dberr.New(dberr.LayerPF, "ExtendOnePage", dberr.KindInvalidArg, nil)
	}
	pn := e.pageCount
	e.pageCount++
	return pn, nil
}

// ReadPage fills dst with the contents of page num of file id. Reading a
// page within the file's logical page count but past the physical end of
// file (an allocated-but-never-written page) yields a zero-filled page
// rather than an error.
func (t *FileTable) ReadPage(id FileID, num PageNum, dst *Page) error {
	e, ok := t.entries[id]
	if !ok {
		return dberr.New(dberr.LayerPF, "ReadPage", dberr.KindInvalidArg, nil)
	}
	if num < 0 || num >= e.pageCount {
		return dberr.New(dberr.LayerPF, "ReadPage", dberr.KindInvalidArg, nil)
	}

	n, err := e.f.ReadAt(dst.buf[:], int64(num)*PageSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return dberr.New(dberr.LayerPF, "ReadPage", dberr.KindIO, err)
	}
	for i := n; i < PageSize; i++ {
		dst.buf[i] = 0
	}
	return nil
}

// WritePage writes src to page num of file id, extending the physical
// file if num is past the current end of file.
func (t *FileTable) WritePage(id FileID, num PageNum, src *Page) error {
	e, ok := t.entries[id]
	if !ok {
		return dberr.New(dberr.LayerPF, "WritePage", dberr.KindInvalidArg, nil)
	}
	if num < 0 || num >= e.pageCount {
		return dberr.New(dberr.LayerPF, "WritePage", dberr.KindInvalidArg, nil)
	}
	if _, err := e.f.WriteAt(src.buf[:], int64(num)*PageSize); err != nil {
		return dberr.New(dberr.LayerPF, "WritePage", dberr.KindIO, err)
	}
	return nil
}

// Sync flushes id's OS-level write buffer to stable storage.
func (t *FileTable) Sync(id FileID) error {
	e, ok := t.entries[id]
	if !ok {
		return dberr.New(dberr.LayerPF, "Sync", dberr.KindInvalidArg, nil)
	}
	if err := e.f.Sync(); err != nil {
		return dberr.New(dberr.LayerPF, "Sync", dberr.KindIO, err)
	}
	return nil
}
