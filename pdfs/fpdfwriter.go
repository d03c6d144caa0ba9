package pdfs

import (
	"fmt"
	"image/color"
	"io"
	"os"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"

	"github.com/zeptools/gw-impose/rw"
)

// FpdfWriter implements Writer with fpdf, importing source pages through gofpdi.
// The importer and the TemplateStore live exactly as long as the FpdfWriter.
type FpdfWriter struct {
	pdf        *fpdf.Fpdf
	importer   *gofpdi.Importer
	store      *TemplateStore[int, Template]
	sourceFile string
	translate  func(string) string
	sheetH     float64
}

// Ensure FpdfWriter implements Writer
var _ Writer = (*FpdfWriter)(nil)

func NewFpdfWriter(sourceFile string) *FpdfWriter {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCompression(true)
	pdf.SetCreator("gw-impose", true)
	pdf.SetLineCapStyle("butt")
	pdf.AddSpotColor(RegistrationColorName, 100, 100, 100, 100)
	pdf.SetFont("Helvetica", "", 6)
	return &FpdfWriter{
		pdf:        pdf,
		importer:   gofpdi.NewImporter(),
		store:      NewTemplateStore[int, Template](),
		sourceFile: sourceFile,
		translate:  pdf.UnicodeTranslatorFromDescriptor(""), // UTF-8 -> cp1252 for core fonts
	}
}

// FpdfWriterFactory returns a WriterFactory bound to one source file
func FpdfWriterFactory(sourceFile string) WriterFactory {
	return func() (Writer, error) {
		return NewFpdfWriter(sourceFile), nil
	}
}

func (w *FpdfWriter) TemplateStore() *TemplateStore[int, Template] {
	return w.store
}

func (w *FpdfWriter) ImportPageAsTemplate(pageNum int) (tpl Template, err error) {
	if t, ok := w.store.Get(pageNum); ok {
		return t, nil
	}
	// gofpdi panics on unreadable input
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("import page %d of %s: %v", pageNum, w.sourceFile, r)
		}
	}()
	id := w.importer.ImportPage(w.pdf, w.sourceFile, pageNum, "/MediaBox")
	if w.pdf.Err() {
		return 0, fmt.Errorf("import page %d of %s: %w", pageNum, w.sourceFile, w.pdf.Error())
	}
	tpl = Template(id)
	w.store.Store(pageNum, tpl)
	return tpl, nil
}

func (w *FpdfWriter) AddSheet(width, height float64) {
	w.pdf.AddPageFormat("P", fpdf.SizeType{Wd: width, Ht: height})
	w.sheetH = height
}

func (w *FpdfWriter) SheetCount() int {
	return w.pdf.PageCount()
}

// top converts a lower-left based y and a height into fpdf's top-left based y
func (w *FpdfWriter) top(y, h float64) float64 {
	return w.sheetH - y - h
}

func (w *FpdfWriter) UseTemplate(tpl Template, x, y, width, height float64) {
	w.importer.UseImportedTemplate(w.pdf, int(tpl), x, w.top(y, height), width, height)
}

func (w *FpdfWriter) FillRect(x, y, width, height float64, c color.Color) {
	r, g, b, _ := c.RGBA()
	w.pdf.SetFillColor(int(r>>8), int(g>>8), int(b>>8))
	w.pdf.Rect(x, w.top(y, height), width, height, "F")
}

func (w *FpdfWriter) SetRegistrationStroke(lineWidth float64) {
	w.pdf.SetDrawSpotColor(RegistrationColorName, 100)
	w.pdf.SetLineWidth(lineWidth)
}

func (w *FpdfWriter) Line(x1, y1, x2, y2 float64) {
	w.pdf.Line(x1, w.sheetH-y1, x2, w.sheetH-y2)
}

func (w *FpdfWriter) SetFont(family, style string, size float64) {
	w.pdf.SetFont(family, style, size)
}

func (w *FpdfWriter) Text(x, y float64, text string) {
	w.pdf.SetTextColor(0, 0, 0)
	w.pdf.Text(x, w.sheetH-y, w.translate(text))
}

func (w *FpdfWriter) TextWidth(text string) float64 {
	return w.pdf.GetStringWidth(w.translate(text))
}

// WriteTo implements io.WriterTo. The document is closed afterward.
func (w *FpdfWriter) WriteTo(out io.Writer) (int64, error) {
	cw := rw.NewCountWriter(out)
	if err := w.pdf.Output(cw); err != nil {
		return cw.BytesWritten(), err
	}
	return cw.BytesWritten(), nil
}

func (w *FpdfWriter) WriteToFile(filepath string) (int64, error) {
	f, err := os.Create(filepath)
	if err != nil {
		return 0, err
	}
	n, err := w.WriteTo(f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return n, err
}
