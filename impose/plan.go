package impose

import (
	"fmt"

	"github.com/zeptools/gw-impose/pdfs"
)

// Plan is everything about a job that is fixed before the first sheet is drawn
type Plan struct {
	Settings   Settings
	Sheet      pdfs.PaperSize
	Grid       Grid
	NumPages   int
	SheetCount int
}

// Prepare validates the settings against the catalog and the source page geometry
func Prepare(s Settings, catalog pdfs.Catalog, pageW, pageH float64, numPages int) (*Plan, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if numPages < 1 {
		return nil, pdfs.ErrNoPages
	}
	if pageW <= 0 || pageH <= 0 {
		return nil, configErrorf("invalid page size %.2fx%.2fpt", pageW, pageH)
	}
	bleed := s.BleedInches * pdfs.PointsPerInch
	if 2*bleed >= pageW || 2*bleed >= pageH {
		return nil, configErrorf("bleed %.3fin leaves no trim area on a %.2fx%.2fpt page", s.BleedInches, pageW, pageH)
	}
	sheet, err := s.ResolveSheet(catalog)
	if err != nil {
		return nil, err
	}
	grid := PlanGrid(GridSpecFor(s, sheet, pageW, pageH))
	if !grid.Fits() {
		return nil, configErrorf("%.1fx%.1fpt page block does not fit the %.1fx%.1fpt %s sheet",
			grid.Width, grid.Height, grid.Spec.SheetWidth, grid.Spec.SheetHeight, sheet.Name)
	}
	return &Plan{
		Settings:   s,
		Sheet:      sheet,
		Grid:       grid,
		NumPages:   numPages,
		SheetCount: SheetCount(numPages, s),
	}, nil
}

// SheetSize returns the oriented sheet size in `pt`
func (p *Plan) SheetSize() (w float64, h float64) {
	return p.Sheet.Points(p.Settings.SheetOrientation)
}

// BleedPoints is the bleed in `pt`
func (p *Plan) BleedPoints() float64 {
	return p.Settings.BleedInches * pdfs.PointsPerInch
}

// SheetPlan returns the page sequence of sheet i
func (p *Plan) SheetPlan(i int) (SheetPlan, error) {
	if i >= p.SheetCount {
		return SheetPlan{}, fmt.Errorf("sheet %d out of range [0,%d)", i, p.SheetCount)
	}
	return Sequence(i, p.NumPages, p.Settings)
}

func (p *Plan) String() string {
	cols, rows := p.Settings.Grid()
	w, h := p.SheetSize()
	return fmt.Sprintf("%s %dx%d on %s %s (%.0fx%.0fpt), %d pages -> %d sheets",
		p.Settings.Scheme, cols, rows, p.Sheet.Name, p.Settings.SheetOrientation, w, h, p.NumPages, p.SheetCount)
}
