package impose

import (
	"math"

	"github.com/zeptools/gw-impose/pdfs"
)

// Fit is an N-up grid of one page size on one sheet size
type Fit struct {
	Columns int
	Rows    int
	Rotated bool    // page turned 90 degrees on the sheet
	Waste   float64 // sheet area not covered by pages, pt^2
}

func (f Fit) Count() int {
	return f.Columns * f.Rows
}

// better reports whether a beats b: higher count, then lower waste, then unrotated
func (a Fit) better(b Fit) bool {
	if a.Count() != b.Count() {
		return a.Count() > b.Count()
	}
	if a.Waste != b.Waste {
		return a.Waste < b.Waste
	}
	return !a.Rotated && b.Rotated
}

// fitsIn absorbs float noise from inch/point conversion, e.g. 17in/8.5in
const fitEpsilon = 1e-9

func fitsIn(outer, inner float64) int {
	if inner <= 0 || outer <= 0 {
		return 0
	}
	return int(math.Floor(outer/inner + fitEpsilon))
}

// FitGrid computes the largest rectangular grid of w x h pages on a W x H sheet,
// trying the page unrotated and rotated. Zero-count grids are valid results.
func FitGrid(w, h, W, H float64) Fit {
	candidate := func(cols, rows int, rotated bool) Fit {
		if cols == 0 || rows == 0 {
			cols, rows = 0, 0
		}
		return Fit{
			Columns: cols,
			Rows:    rows,
			Rotated: rotated,
			Waste:   W*H - float64(cols*rows)*w*h,
		}
	}
	unrotated := candidate(fitsIn(W, w), fitsIn(H, h), false)
	rotated := candidate(fitsIn(W, h), fitsIn(H, w), true)
	if rotated.better(unrotated) {
		return rotated
	}
	return unrotated
}

// Layout is the result of AutoPlan
type Layout struct {
	Columns     int
	Rows        int
	Sheet       pdfs.PaperSize
	Orientation pdfs.Orientation
	Waste       float64
}

const (
	DefaultBleedInches  = 0.125
	DefaultGutterInches = 0.25
)

// AutoPlan searches every catalog sheet in both orientations for the best N-up fit
// of a w x h (`pt`) page. Pages are never rotated in the returned layout: a rotated
// fit on one orientation is the unrotated fit on the other, and ties prefer unrotated.
func AutoPlan(catalog pdfs.Catalog, w, h float64) (Layout, error) {
	var (
		best    Fit
		bestIdx = -1
		bestOri pdfs.Orientation
	)
	for i, sheet := range catalog {
		if !sheet.Valid() {
			continue
		}
		for _, o := range []pdfs.Orientation{pdfs.Portrait, pdfs.Landscape} {
			W, H := sheet.Points(o)
			fit := FitGrid(w, h, W, H)
			if fit.Count() == 0 {
				continue
			}
			if bestIdx < 0 || fit.better(best) {
				best, bestIdx, bestOri = fit, i, o
			}
		}
	}
	if bestIdx < 0 {
		return Layout{}, ErrDocumentTooLarge
	}
	l := Layout{
		Columns:     best.Columns,
		Rows:        best.Rows,
		Sheet:       catalog[bestIdx],
		Orientation: bestOri,
		Waste:       best.Waste,
	}
	if best.Rotated {
		// same grid on the turned sheet, page upright
		l.Columns, l.Rows = best.Rows, best.Columns
		if bestOri == pdfs.Portrait {
			l.Orientation = pdfs.Landscape
		} else {
			l.Orientation = pdfs.Portrait
		}
	}
	return l, nil
}

// Settings turns the layout into stack settings with the default bleed and gutters
func (l Layout) Settings() Settings {
	return Settings{
		Scheme:                 Stack,
		Columns:                l.Columns,
		Rows:                   l.Rows,
		SheetOrientation:       l.Orientation,
		BleedInches:            DefaultBleedInches,
		HorizontalGutterInches: DefaultGutterInches,
		VerticalGutterInches:   DefaultGutterInches,
		SheetName:              l.Sheet.Name,
	}
}
