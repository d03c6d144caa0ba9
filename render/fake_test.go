package render

import (
	"fmt"
	"image/color"
	"io"
	"os"

	"github.com/zeptools/gw-impose/pdfs"
)

type fakeLine struct{ X1, Y1, X2, Y2 float64 }

type fakeRect struct {
	X, Y, W, H float64
	C          color.Color
}

type fakeSheet struct {
	W, H     float64
	StoreLen int // template cache size when the sheet was added
	Pages    []int
	Lines    []fakeLine
	Rects    []fakeRect
	Texts    []string
}

// fakeWriter records drawing calls per sheet
type fakeWriter struct {
	store   *pdfs.TemplateStore[int, pdfs.Template]
	sheets  []*fakeSheet
	imports int
	failOn  int // page number whose import fails
}

var _ pdfs.Writer = (*fakeWriter)(nil)

func newFakeWriter() *fakeWriter {
	return &fakeWriter{store: pdfs.NewTemplateStore[int, pdfs.Template]()}
}

func (w *fakeWriter) cur() *fakeSheet {
	return w.sheets[len(w.sheets)-1]
}

func (w *fakeWriter) TemplateStore() *pdfs.TemplateStore[int, pdfs.Template] { return w.store }

func (w *fakeWriter) ImportPageAsTemplate(pageNum int) (pdfs.Template, error) {
	if pageNum == w.failOn {
		return 0, fmt.Errorf("page %d unreadable", pageNum)
	}
	if t, ok := w.store.Get(pageNum); ok {
		return t, nil
	}
	w.imports++
	t := pdfs.Template(pageNum)
	w.store.Store(pageNum, t)
	return t, nil
}

func (w *fakeWriter) AddSheet(width, height float64) {
	w.sheets = append(w.sheets, &fakeSheet{W: width, H: height, StoreLen: w.store.Len()})
}

func (w *fakeWriter) SheetCount() int { return len(w.sheets) }

func (w *fakeWriter) UseTemplate(tpl pdfs.Template, x, y, width, height float64) {
	w.cur().Pages = append(w.cur().Pages, int(tpl))
}

func (w *fakeWriter) FillRect(x, y, width, height float64, c color.Color) {
	w.cur().Rects = append(w.cur().Rects, fakeRect{x, y, width, height, c})
}

func (w *fakeWriter) SetRegistrationStroke(lineWidth float64) {}

func (w *fakeWriter) Line(x1, y1, x2, y2 float64) {
	w.cur().Lines = append(w.cur().Lines, fakeLine{x1, y1, x2, y2})
}

func (w *fakeWriter) SetFont(family, style string, size float64) {}

func (w *fakeWriter) Text(x, y float64, text string) {
	w.cur().Texts = append(w.cur().Texts, text)
}

func (w *fakeWriter) TextWidth(text string) float64 {
	return float64(len(text)) * 3
}

func (w *fakeWriter) WriteTo(out io.Writer) (int64, error) {
	n, err := fmt.Fprintf(out, "%%FAKE %d sheets\n", len(w.sheets))
	return int64(n), err
}

func (w *fakeWriter) WriteToFile(path string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return w.WriteTo(f)
}

// fakeFactory hands out fakeWriters and keeps them for inspection
type fakeFactory struct {
	writers []*fakeWriter
	failOn  int
}

func (f *fakeFactory) New() (pdfs.Writer, error) {
	w := newFakeWriter()
	w.failOn = f.failOn
	f.writers = append(f.writers, w)
	return w, nil
}
