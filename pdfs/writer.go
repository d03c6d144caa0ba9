package pdfs

import (
	"image/color"
	"io"
)

// Template identifies a source page imported into one Writer.
// It is only meaningful for the Writer that produced it.
type Template int

// RegistrationColorName is the spot colour used for crop and registration marks.
// It prints on every separation (C=M=Y=K=100%).
const RegistrationColorName = "All"

// Writer is a stream-style, append-only sheet writer. No page navigation
// Coordinates are `pt` with the origin at the lower-left corner of the current sheet.
// Each Writer owns its page-import cache; throw it away to release the cache.
type Writer interface {
	TemplateStore() *TemplateStore[int, Template]
	// ImportPageAsTemplate imports a 1-based source page, reusing a cached template if any
	ImportPageAsTemplate(pageNum int) (Template, error)

	AddSheet(width float64, height float64)
	SheetCount() int

	UseTemplate(tpl Template, x float64, y float64, w float64, h float64)
	FillRect(x float64, y float64, w float64, h float64, c color.Color)

	SetRegistrationStroke(lineWidth float64)
	Line(x1 float64, y1 float64, x2 float64, y2 float64)

	SetFont(family string, style string, size float64)
	Text(x float64, y float64, text string) // y is the baseline
	TextWidth(text string) float64

	WriteTo(w io.Writer) (int64, error)
	WriteToFile(filepath string) (int64, error)
}

// WriterFactory opens a fresh Writer for the next batch
type WriterFactory func() (Writer, error)
