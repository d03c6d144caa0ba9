package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/zeptools/gw-impose/impose"
)

func runBatches(t *testing.T, s impose.Settings, numPages, batchSize int) (*fakeFactory, *BatchWriter, []BatchFile) {
	t.Helper()
	plan := squarePlan(t, s, numPages)
	dec, err := NewDecorator(plan, impose.JobInfo{ID: "J-1"}, DefaultMarks)
	if err != nil {
		t.Fatal(err)
	}
	f := &fakeFactory{}
	bw := NewBatchWriter(f.New, t.TempDir(), "J-1", batchSize)
	files, err := bw.WriteSheets(context.Background(), plan, dec)
	if err != nil {
		t.Fatalf("WriteSheets() error = %v", err)
	}
	return f, bw, files
}

func TestBatchWriterFlushesEveryBatchSize(t *testing.T) {
	s := impose.Settings{Scheme: impose.Stack, Columns: 1, Rows: 1}
	f, bw, files := runBatches(t, s, 45, DefaultBatchSize)

	want := []BatchFile{
		{FirstSheet: 0, Sheets: 20},
		{FirstSheet: 20, Sheets: 20},
		{FirstSheet: 40, Sheets: 5},
	}
	if d := cmp.Diff(want, files, cmpopts.IgnoreFields(BatchFile{}, "Path", "Bytes")); d != "" {
		t.Errorf("batches mismatch (-want +got):\n%s", d)
	}
	if len(f.writers) != 3 {
		t.Fatalf("opened %d writers, want 3", len(f.writers))
	}
	for i, w := range f.writers {
		if got := w.sheets[0].StoreLen; got != 0 {
			t.Errorf("batch %d starts with %d cached templates, want 0", i+1, got)
		}
		if got := w.SheetCount(); got != want[i].Sheets {
			t.Errorf("batch %d holds %d sheets, want %d", i+1, got, want[i].Sheets)
		}
	}
	for i, bf := range files {
		if _, err := os.Stat(bf.Path); err != nil {
			t.Errorf("batch %d: %v", i+1, err)
		}
		if bf.Bytes <= 0 {
			t.Errorf("batch %d: Bytes = %d", i+1, bf.Bytes)
		}
		name := filepath.Base(bf.Path)
		if !strings.HasPrefix(name, TempFilePrefix+"J-1-") || !strings.HasSuffix(name, []string{"-b0001.pdf", "-b0002.pdf", "-b0003.pdf"}[i]) {
			t.Errorf("batch %d: unexpected name %q", i+1, name)
		}
	}
	if d := cmp.Diff(bw.Paths(), []string{files[0].Path, files[1].Path, files[2].Path}); d != "" {
		t.Errorf("Paths() mismatch (-want +got):\n%s", d)
	}
}

func TestBatchWriterDuplexCountsSheetsNotFaces(t *testing.T) {
	s := impose.Settings{Scheme: impose.Stack, Columns: 1, Rows: 1, Duplex: true}
	f, _, files := runBatches(t, s, 10, 2)
	if len(files) != 3 {
		t.Fatalf("len(files) = %d, want 3", len(files))
	}
	if got := f.writers[0].SheetCount(); got != 4 {
		t.Errorf("first batch holds %d faces, want 4", got)
	}
}

func TestBatchWriterKeepsPageOrder(t *testing.T) {
	s := impose.Settings{Scheme: impose.Stack, Columns: 1, Rows: 1}
	f, _, files := runBatches(t, s, 4, 1)
	if len(files) != 4 {
		t.Fatalf("len(files) = %d, want 4", len(files))
	}
	var pages []int
	for _, w := range f.writers {
		for _, sheet := range w.sheets {
			pages = append(pages, sheet.Pages...)
		}
	}
	if d := cmp.Diff([]int{1, 2, 3, 4}, pages); d != "" {
		t.Errorf("page order mismatch (-want +got):\n%s", d)
	}
}

func TestBatchWriterReusesImportsWithinBatch(t *testing.T) {
	s := impose.Settings{Scheme: impose.Repeat, Columns: 2, Rows: 2}
	f, _, _ := runBatches(t, s, 3, 20)
	if got := f.writers[0].imports; got != 3 {
		t.Errorf("imports = %d, want 3", got)
	}
}

func TestBatchWriterCancelled(t *testing.T) {
	plan := squarePlan(t, impose.Settings{Scheme: impose.Stack, Columns: 1, Rows: 1}, 3)
	dec, err := NewDecorator(plan, impose.JobInfo{}, DefaultMarks)
	if err != nil {
		t.Fatal(err)
	}
	f := &fakeFactory{}
	bw := NewBatchWriter(f.New, t.TempDir(), "J-2", 20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := bw.WriteSheets(ctx, plan, dec); !errors.Is(err, context.Canceled) {
		t.Errorf("WriteSheets() error = %v, want context.Canceled", err)
	}
	if len(bw.Batches()) != 0 {
		t.Errorf("cancelled job flushed %d batches", len(bw.Batches()))
	}
}

func TestBatchWriterKeepsFlushedFilesOnError(t *testing.T) {
	plan := squarePlan(t, impose.Settings{Scheme: impose.Stack, Columns: 1, Rows: 1}, 5)
	dec, err := NewDecorator(plan, impose.JobInfo{}, DefaultMarks)
	if err != nil {
		t.Fatal(err)
	}
	f := &fakeFactory{failOn: 4}
	bw := NewBatchWriter(f.New, t.TempDir(), "J-3", 2)
	if _, err := bw.WriteSheets(context.Background(), plan, dec); err == nil {
		t.Fatal("WriteSheets() ignored an import failure")
	}
	if got := len(bw.Batches()); got != 1 {
		t.Errorf("len(Batches()) = %d, want 1", got)
	}
}

func TestSafeName(t *testing.T) {
	tests := map[string]string{
		"J-100":     "J-100",
		"../etc/pw": "___etc_pw",
		"":          "job",
		"a b":       "a_b",
	}
	for in, want := range tests {
		if got := SafeName(in); got != want {
			t.Errorf("SafeName(%q) = %q, want %q", in, got, want)
		}
	}
}
