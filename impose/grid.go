package impose

import (
	"github.com/zeptools/gw-impose/pdfs"
)

// GridSpec is the geometry input of PlanGrid. All lengths are `pt`.
type GridSpec struct {
	SheetWidth  float64
	SheetHeight float64
	PageWidth   float64 // content page including bleed
	PageHeight  float64
	Columns     int
	Rows        int
	HGutter     float64 // between columns
	VGutter     float64 // between rows
	RowOffset   RowOffset
}

// GridSpecFor builds a GridSpec from job settings, a resolved sheet and the source page size
func GridSpecFor(s Settings, sheet pdfs.PaperSize, pageW, pageH float64) GridSpec {
	W, H := sheet.Points(s.SheetOrientation)
	cols, rows := s.Grid()
	return GridSpec{
		SheetWidth:  W,
		SheetHeight: H,
		PageWidth:   pageW,
		PageHeight:  pageH,
		Columns:     cols,
		Rows:        rows,
		HGutter:     s.HorizontalGutterInches * pdfs.PointsPerInch,
		VGutter:     s.VerticalGutterInches * pdfs.PointsPerInch,
		RowOffset:   s.RowOffset,
	}
}

// Slot is the lower-left corner of one page placement on a sheet
type Slot struct {
	Row int // 0 is the bottom row
	Col int
	X   float64
	Y   float64
}

// Grid is the slot layout shared by every face of every sheet of a job
type Grid struct {
	Spec   GridSpec
	Slots  []Slot // row-major
	Width  float64
	Height float64
}

// PlanGrid centres the page block on the sheet. With a half row offset,
// odd rows shift right by half a page plus gutter.
func PlanGrid(spec GridSpec) Grid {
	cols, rows := spec.Columns, spec.Rows
	if cols < 1 || rows < 1 {
		return Grid{Spec: spec}
	}
	shift := 0.0
	if spec.RowOffset == HalfOffset && rows > 1 {
		shift = (spec.PageWidth + spec.HGutter) / 2
	}
	totalW := float64(cols)*spec.PageWidth + float64(cols-1)*spec.HGutter + shift
	totalH := float64(rows)*spec.PageHeight + float64(rows-1)*spec.VGutter
	startX := (spec.SheetWidth - totalW) / 2
	startY := (spec.SheetHeight - totalH) / 2

	slots := make([]Slot, 0, cols*rows)
	for r := range rows {
		rowX := startX
		if r%2 == 1 {
			rowX += shift
		}
		y := startY + float64(r)*(spec.PageHeight+spec.VGutter)
		for c := range cols {
			slots = append(slots, Slot{
				Row: r,
				Col: c,
				X:   rowX + float64(c)*(spec.PageWidth+spec.HGutter),
				Y:   y,
			})
		}
	}
	return Grid{Spec: spec, Slots: slots, Width: totalW, Height: totalH}
}

// Fits reports whether the page block stays on the sheet
func (g Grid) Fits() bool {
	return g.Width <= g.Spec.SheetWidth+fitEpsilon && g.Height <= g.Spec.SheetHeight+fitEpsilon
}

// Index returns the slot index at (row, col), or -1 outside the grid
func (g Grid) Index(row, col int) int {
	if row < 0 || col < 0 || row >= g.Spec.Rows || col >= g.Spec.Columns {
		return -1
	}
	return row*g.Spec.Columns + col
}
