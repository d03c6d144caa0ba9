package render

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeptools/gw-impose/impose"
	"github.com/zeptools/gw-impose/pdfs"
)

const DefaultBatchSize = 20

// TempFilePrefix starts the name of every file a job writes into the temp dir
const TempFilePrefix = "impose-"

// BatchFile is one flushed partial output
type BatchFile struct {
	Path       string
	FirstSheet int // 0-based
	Sheets     int
	Bytes      int64
}

// BatchWriter writes sheets into a fresh pdfs.Writer per batch and flushes
// each full batch to its own temp file. The page import cache lives in the
// Writer, so it never outlives its batch.
type BatchWriter struct {
	newWriter pdfs.WriterFactory
	batchSize int
	dir       string
	stem      string // impose-<job>-<unixnano>

	cur       pdfs.Writer
	curFirst  int
	curSheets int
	batches   []BatchFile
}

func NewBatchWriter(newWriter pdfs.WriterFactory, dir string, jobID string, batchSize int) *BatchWriter {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if dir == "" {
		dir = os.TempDir()
	}
	return &BatchWriter{
		newWriter: newWriter,
		batchSize: batchSize,
		dir:       dir,
		stem:      fmt.Sprintf("%s%s-%d", TempFilePrefix, SafeName(jobID), time.Now().UnixNano()),
	}
}

// SafeName keeps a job id usable inside a file name
func SafeName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
	if s == "" {
		return "job"
	}
	return s
}

// writer returns the in-progress Writer, opening a new batch if needed
func (b *BatchWriter) writer(sheetIndex int) (pdfs.Writer, error) {
	if b.cur != nil {
		return b.cur, nil
	}
	w, err := b.newWriter()
	if err != nil {
		return nil, fmt.Errorf("open batch %d: %w", len(b.batches)+1, err)
	}
	b.cur, b.curFirst, b.curSheets = w, sheetIndex, 0
	return w, nil
}

// Flush writes the in-progress batch, if it holds any sheet, and drops it
func (b *BatchWriter) Flush() error {
	if b.cur == nil || b.curSheets == 0 {
		b.cur = nil
		return nil
	}
	path := filepath.Join(b.dir, fmt.Sprintf("%s-b%04d.pdf", b.stem, len(b.batches)+1))
	n, err := b.cur.WriteToFile(path)
	b.cur = nil
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Printf("[WARN][BATCH] remove partial %s: %v", path, rmErr)
		}
		return fmt.Errorf("flush batch %s: %w", path, err)
	}
	bf := BatchFile{Path: path, FirstSheet: b.curFirst, Sheets: b.curSheets, Bytes: n}
	b.batches = append(b.batches, bf)
	log.Printf("[INFO][BATCH] %s: sheets %d-%d, %d bytes", filepath.Base(path), bf.FirstSheet+1, bf.FirstSheet+bf.Sheets, n)
	return nil
}

// Batches lists the flushed batch files in write order
func (b *BatchWriter) Batches() []BatchFile {
	return b.batches
}

// Paths lists the flushed batch file paths in write order
func (b *BatchWriter) Paths() []string {
	paths := make([]string, len(b.batches))
	for i, bf := range b.batches {
		paths[i] = bf.Path
	}
	return paths
}

// WriteSheets renders every sheet of the plan in order, front before back,
// flushing every batchSize sheets. ctx is checked before each sheet.
// Files flushed before an error stay listed in Batches for the caller to remove.
func (b *BatchWriter) WriteSheets(ctx context.Context, plan *impose.Plan, dec *Decorator) ([]BatchFile, error) {
	for i := range plan.SheetCount {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sp, err := plan.SheetPlan(i)
		if err != nil {
			return nil, err
		}
		w, err := b.writer(i)
		if err != nil {
			return nil, err
		}
		if err = dec.DrawFace(w, i, Front, sp.Front); err != nil {
			return nil, err
		}
		if sp.Back != nil {
			if err = dec.DrawFace(w, i, Back, sp.Back); err != nil {
				return nil, err
			}
		}
		b.curSheets++
		if b.curSheets >= b.batchSize {
			if err = b.Flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := b.Flush(); err != nil {
		return nil, err
	}
	return b.batches, nil
}
