// Command novacore is a thin demo driver over the PF/HF/AM layers: it
// opens (creating if needed) a heap file and a secondary index under a
// data directory, inserts a handful of records, and scans them back,
// exercising the public engine API end to end.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/tuannm99/novasql-core/internal/alias/bx"
	"github.com/tuannm99/novasql-core/internal/btree"
	"github.com/tuannm99/novasql-core/internal/config"
	"github.com/tuannm99/novasql-core/internal/dberr"
	"github.com/tuannm99/novasql-core/internal/heap"
	"github.com/tuannm99/novasql-core/internal/pf"
)

const relationFile = "novacore.rel"

func main() {
	var (
		cfgPath  string
		dataDir  string
		bufCap   int
		strategy string
	)
	pflag.StringVar(&cfgPath, "config", "", "path to a novacore YAML config file (optional)")
	pflag.StringVar(&dataDir, "data-dir", "", "override storage.dir")
	pflag.IntVar(&bufCap, "buffer-capacity", 0, "override buffer.capacity")
	pflag.StringVar(&strategy, "strategy", "", "override buffer.strategy (lru|mru)")
	pflag.Parse()

	cfg := &config.EngineConfig{}
	cfg.Buffer.Capacity = config.DefaultBufferCapacity
	cfg.Storage.Dir = config.DefaultDataDir
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			slog.Error("load config", "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if dataDir != "" {
		cfg.Storage.Dir = dataDir
	}
	if bufCap != 0 {
		cfg.Buffer.Capacity = bufCap
	}
	if strategy != "" {
		cfg.Buffer.Strategy = strategy
	}

	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		slog.Error("create data dir", "err", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("novacore run failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.EngineConfig) error {
	mgr := pf.Init(cfg.Storage.Dir, cfg.Buffer.Capacity, cfg.Policy())

	if _, err := os.Stat(filepath.Join(cfg.Storage.Dir, relationFile)); os.IsNotExist(err) {
		if err := mgr.CreateFile(relationFile); err != nil {
			return fmt.Errorf("create relation file: %w", err)
		}
		if err := btree.CreateIndex(mgr, relationFile, 0, btree.AttrInt, 4); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	file, err := mgr.OpenFile(relationFile)
	if err != nil {
		return fmt.Errorf("open relation file: %w", err)
	}
	defer func() {
		if cerr := mgr.CloseFile(file); cerr != nil {
			slog.Error("close relation file", "err", cerr)
		}
	}()

	hf := heap.Open(mgr, file)
	idx, err := btree.OpenIndex(mgr, relationFile, 0)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer func() {
		if cerr := idx.Close(); cerr != nil {
			slog.Error("close index", "err", cerr)
		}
	}()

	for n := int32(0); n < 10; n++ {
		rec := []byte(fmt.Sprintf("record-%03d", n))
		id, err := hf.Insert(rec)
		if err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		if err := idx.InsertEntry(intKey(n), id); err != nil {
			return fmt.Errorf("index insert: %w", err)
		}
	}

	scanID, err := idx.OpenIndexScan(btree.OpGE, intKey(5))
	if err != nil {
		return fmt.Errorf("open index scan: %w", err)
	}
	defer func() {
		if cerr := idx.CloseIndexScan(scanID); cerr != nil {
			slog.Error("close index scan", "err", cerr)
		}
	}()

	for {
		id, err := idx.FindNextEntry(scanID)
		if dberr.IsEOF(err) {
			break
		}
		if err != nil {
			return fmt.Errorf("scan entry: %w", err)
		}
		rec, err := hf.Get(id)
		if err != nil {
			return fmt.Errorf("fetch record: %w", err)
		}
		fmt.Printf("%+v -> %s\n", id, rec)
	}

	mgr.PrintStats()
	return nil
}

func intKey(v int32) []byte {
	b := make([]byte, 4)
	bx.PutU32(b, uint32(v))
	return b
}
