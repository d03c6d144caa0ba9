package pdfs

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"codeberg.org/go-pdf/fpdf"
)

// writeTestPDF writes one page per size, each labelled with its page number
func writeTestPDF(t *testing.T, sizes ...[2]float64) string {
	t.Helper()
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetFont("Helvetica", "B", 48)
	for i, sz := range sizes {
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: sz[0], Ht: sz[1]})
		pdf.Text(36, 72, fmt.Sprintf("Page %d", i+1))
	}
	path := filepath.Join(t.TempDir(), "source.pdf")
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatalf("write test pdf: %v", err)
	}
	return path
}

func TestOpenSource(t *testing.T) {
	path := writeTestPDF(t, [2]float64{612, 792}, [2]float64{612, 792}, [2]float64{612.2, 791.8})
	src, err := OpenSource(path)
	if err != nil {
		t.Fatalf("OpenSource() error = %v", err)
	}
	if src.PageCount != 3 {
		t.Errorf("PageCount = %d, want 3", src.PageCount)
	}
	if src.Width != 612 || src.Height != 792 {
		t.Errorf("size = %vx%v, want 612x792", src.Width, src.Height)
	}
}

func TestOpenSourceMixedSizes(t *testing.T) {
	path := writeTestPDF(t, [2]float64{612, 792}, [2]float64{792, 1224})
	if _, err := OpenSource(path); !errors.Is(err, ErrMixedPageSizes) {
		t.Errorf("OpenSource() error = %v, want ErrMixedPageSizes", err)
	}
}

func TestOpenSourceMissingFile(t *testing.T) {
	if _, err := OpenSource(filepath.Join(t.TempDir(), "nope.pdf")); err == nil {
		t.Error("OpenSource() opened a missing file")
	}
}

func TestFpdfWriterImportsOncePerWriter(t *testing.T) {
	path := writeTestPDF(t, [2]float64{288, 432}, [2]float64{288, 432})
	w := NewFpdfWriter(path)
	w.AddSheet(864, 1296)
	first, err := w.ImportPageAsTemplate(1)
	if err != nil {
		t.Fatalf("ImportPageAsTemplate() error = %v", err)
	}
	again, err := w.ImportPageAsTemplate(1)
	if err != nil {
		t.Fatal(err)
	}
	if first != again {
		t.Errorf("re-import returned template %d, want cached %d", again, first)
	}
	if _, err := w.ImportPageAsTemplate(2); err != nil {
		t.Fatal(err)
	}
	if got := w.TemplateStore().Len(); got != 2 {
		t.Errorf("TemplateStore().Len() = %d, want 2", got)
	}
	w.UseTemplate(first, 0, 0, 288, 432)

	out := filepath.Join(t.TempDir(), "sheet.pdf")
	n, err := w.WriteToFile(out)
	if err != nil {
		t.Fatalf("WriteToFile() error = %v", err)
	}
	if n == 0 {
		t.Error("WriteToFile() wrote 0 bytes")
	}
	src, err := OpenSource(out)
	if err != nil {
		t.Fatalf("OpenSource(output) error = %v", err)
	}
	if src.PageCount != 1 || src.Width != 864 || src.Height != 1296 {
		t.Errorf("output = %d pages of %vx%v, want 1 of 864x1296", src.PageCount, src.Width, src.Height)
	}
	if NewFpdfWriter(path).TemplateStore().Len() != 0 {
		t.Error("a new writer starts with cached templates")
	}
}

func TestCatalogLookup(t *testing.T) {
	c := DefaultCatalog()
	p, ok := c.Lookup(" sra3 ")
	if !ok || p.Name != "SRA3" {
		t.Errorf("Lookup(sra3) = %v, %v", p, ok)
	}
	if _, ok := c.Lookup("A0"); ok {
		t.Error("Lookup(A0) found a sheet")
	}
	w, h := NewPaperSize("x", 8.5, 11).Points(Landscape)
	if w != 792 || h != 612 {
		t.Errorf("Points(Landscape) = %vx%v, want 792x612", w, h)
	}
}
