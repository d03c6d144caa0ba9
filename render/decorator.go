package render

import (
	"fmt"
	"image/color"
	"log"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/colornames"

	"github.com/zeptools/gw-impose/impose"
	"github.com/zeptools/gw-impose/pdfs"
)

type Face int

const (
	Front Face = iota
	Back
)

func (f Face) String() string {
	if f == Back {
		return "back"
	}
	return "front"
}

// Marks is the crop mark geometry in `pt`. Offset is measured from the outer (bleed) edge.
type Marks struct {
	Length    float64
	Offset    float64
	Thickness float64
}

var DefaultMarks = Marks{Length: 18, Offset: 6, Thickness: 0.25}

// Slug geometry in `pt`
const (
	SlugQRSize     = 36
	SlugMargin     = 9 // from the sheet edges
	SlugTextGap    = 6 // between QR and text
	SlugFontSize   = 6
	SlugNameMaxLen = 32
	SlugDueLayout  = "Jan 2, 2006"
)

// Decorator paints the faces of one job's sheets
type Decorator struct {
	plan  *impose.Plan
	job   impose.JobInfo
	marks Marks
	slip  color.Color // nil: no slip sheet
}

// NewDecorator resolves the slip sheet colour up front so that a bad name fails the job before any sheet is drawn
func NewDecorator(plan *impose.Plan, job impose.JobInfo, marks Marks) (*Decorator, error) {
	d := &Decorator{plan: plan, job: job, marks: marks}
	if name := plan.Settings.SlipSheetColor; name != "" {
		c, err := ParseColor(name)
		if err != nil {
			return nil, err
		}
		d.slip = c
	}
	return d, nil
}

// ParseColor accepts an SVG colour name ("gold", "lightpink") or #rrggbb
func ParseColor(s string) (color.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := colornames.Map[strings.ReplaceAll(s, " ", "")]; ok {
		return c, nil
	}
	if hex, ok := strings.CutPrefix(s, "#"); ok && len(hex) == 6 {
		if v, err := strconv.ParseUint(hex, 16, 32); err == nil {
			return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown slip sheet color %q", impose.ErrConfig, s)
}

// DrawFace adds one sheet face to w and paints it: slip sheet first, then pages, marks and slug
func (d *Decorator) DrawFace(w pdfs.Writer, sheetIndex int, face Face, refs []impose.PageRef) error {
	sheetW, sheetH := d.plan.SheetSize()
	w.AddSheet(sheetW, sheetH)

	if face == Front && sheetIndex == 0 && d.slip != nil {
		w.FillRect(0, 0, sheetW, sheetH, d.slip)
	}

	grid := d.plan.Grid
	pageW, pageH := grid.Spec.PageWidth, grid.Spec.PageHeight
	for k, ref := range refs {
		if ref.IsBlank() || k >= len(grid.Slots) {
			continue
		}
		tpl, err := w.ImportPageAsTemplate(int(ref))
		if err != nil {
			return fmt.Errorf("sheet %d %s slot %d: %w", sheetIndex+1, face, k, err)
		}
		slot := grid.Slots[k]
		w.UseTemplate(tpl, slot.X, slot.Y, pageW, pageH)
	}

	d.drawCropMarks(w, refs)

	if face == Front && d.plan.Settings.ShowQRCode {
		d.drawSlug(w, sheetIndex)
	}
	return nil
}

func occupied(grid impose.Grid, refs []impose.PageRef, row, col int) bool {
	i := grid.Index(row, col)
	return i >= 0 && i < len(refs) && !refs[i].IsBlank()
}

// drawCropMarks marks the trim corners of every placed page. The marks of an edge
// are left out when the neighbouring slot on that side holds a page too.
func (d *Decorator) drawCropMarks(w pdfs.Writer, refs []impose.PageRef) {
	grid := d.plan.Grid
	bleed := d.plan.BleedPoints()
	pageW, pageH := grid.Spec.PageWidth, grid.Spec.PageHeight
	reach := bleed + d.marks.Offset // from trim line to mark start

	w.SetRegistrationStroke(d.marks.Thickness)
	for k, ref := range refs {
		if ref.IsBlank() || k >= len(grid.Slots) {
			continue
		}
		slot := grid.Slots[k]
		x0, y0 := slot.X+bleed, slot.Y+bleed
		x1, y1 := slot.X+pageW-bleed, slot.Y+pageH-bleed

		if !occupied(grid, refs, slot.Row, slot.Col-1) { // left
			w.Line(x0-reach, y0, x0-reach-d.marks.Length, y0)
			w.Line(x0-reach, y1, x0-reach-d.marks.Length, y1)
		}
		if !occupied(grid, refs, slot.Row, slot.Col+1) { // right
			w.Line(x1+reach, y0, x1+reach+d.marks.Length, y0)
			w.Line(x1+reach, y1, x1+reach+d.marks.Length, y1)
		}
		if !occupied(grid, refs, slot.Row-1, slot.Col) { // bottom
			w.Line(x0, y0-reach, x0, y0-reach-d.marks.Length)
			w.Line(x1, y0-reach, x1, y0-reach-d.marks.Length)
		}
		if !occupied(grid, refs, slot.Row+1, slot.Col) { // top
			w.Line(x0, y1+reach, x0, y1+reach+d.marks.Length)
			w.Line(x1, y1+reach, x1, y1+reach+d.marks.Length)
		}
	}
}

// SlugPayload is the QR content of one sheet
func SlugPayload(job impose.JobInfo, sheetIndex, sheetCount int) string {
	qty := "-"
	if !job.Quantity.IsNil() {
		qty = strconv.FormatInt(job.Quantity.ForceValue(), 10)
	}
	return fmt.Sprintf("sheet=%d/%d;job=%s;qty=%s", sheetIndex+1, sheetCount, job.ID, qty)
}

// SlugText is the human-readable line next to the QR code
func SlugText(job impose.JobInfo, sheetIndex, sheetCount int) string {
	parts := []string{fmt.Sprintf("%d/%d", sheetIndex+1, sheetCount)}
	if name := strings.TrimSpace(job.Name); name != "" {
		if r := []rune(name); len(r) > SlugNameMaxLen {
			name = string(r[:SlugNameMaxLen])
		}
		parts = append(parts, name)
	}
	if !job.Quantity.IsNil() {
		parts = append(parts, fmt.Sprintf("Qty %d", job.Quantity.ForceValue()))
	}
	if !job.DueDate.IsNil() {
		parts = append(parts, "Due "+job.DueDate.ForceValue().Format(SlugDueLayout))
	}
	return strings.Join(parts, " | ")
}

// drawSlug paints the QR code and its text line at the configured corner.
// A QR failure skips the slug and never fails the sheet.
func (d *Decorator) drawSlug(w pdfs.Writer, sheetIndex int) {
	qr, err := qrcode.New(SlugPayload(d.job, sheetIndex, d.plan.SheetCount), qrcode.Medium)
	if err != nil {
		log.Printf("[WARN][SLUG] job %s sheet %d: %v", d.job.ID, sheetIndex+1, err)
		return
	}
	qr.DisableBorder = true

	sheetW, sheetH := d.plan.SheetSize()
	corner := d.plan.Settings.QRCodePosition
	qrX, qrY := float64(SlugMargin), float64(SlugMargin)
	if corner.IsRight() {
		qrX = sheetW - SlugMargin - SlugQRSize
	}
	if corner.IsTop() {
		qrY = sheetH - SlugMargin - SlugQRSize
	}
	drawBitmap(w, qr.Bitmap(), qrX, qrY, SlugQRSize)

	text := SlugText(d.job, sheetIndex, d.plan.SheetCount)
	w.SetFont("Helvetica", "", SlugFontSize)
	textX := qrX + SlugQRSize + SlugTextGap
	if corner.IsRight() {
		textX = qrX - SlugTextGap - w.TextWidth(text)
	}
	// cap height of Helvetica is about 0.7em
	baseline := qrY + SlugQRSize/2 - 0.35*SlugFontSize
	w.Text(textX, baseline, text)
}

// drawBitmap fills the dark modules of a QR bitmap as a size x size square.
// Runs of dark modules in a row become one rectangle.
func drawBitmap(w pdfs.Writer, bm [][]bool, x, y, size float64) {
	n := len(bm)
	if n == 0 {
		return
	}
	cell := size / float64(n)
	for r, row := range bm {
		rowY := y + float64(n-1-r)*cell // bitmap row 0 is the top
		for c := 0; c < len(row); {
			if !row[c] {
				c++
				continue
			}
			start := c
			for c < len(row) && row[c] {
				c++
			}
			w.FillRect(x+float64(start)*cell, rowY, float64(c-start)*cell, cell, color.Black)
		}
	}
}
