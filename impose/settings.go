package impose

import (
	"fmt"
	"strings"

	"github.com/zeptools/gw-impose/nullable"
	"github.com/zeptools/gw-impose/pdfs"
)

// Scheme is the closed set of imposition schemes.
// Adding a value requires a sequencing func in Sequence and a sheet count in SheetCount.
type Scheme int

const (
	Stack Scheme = iota
	Repeat
	Booklet
	CollateCut
)

var schemeNames = [...]string{
	Stack:      "stack",
	Repeat:     "repeat",
	Booklet:    "booklet",
	CollateCut: "collateCut",
}

func (s Scheme) String() string {
	if s < 0 || int(s) >= len(schemeNames) {
		return fmt.Sprintf("Scheme(%d)", int(s))
	}
	return schemeNames[s]
}

func (s Scheme) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Scheme) UnmarshalText(b []byte) error {
	norm := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(string(b)))
	for i, name := range schemeNames {
		if strings.ToLower(name) == norm {
			*s = Scheme(i)
			return nil
		}
	}
	return fmt.Errorf("unknown imposition type %q", b)
}

type RowOffset int

const (
	NoOffset RowOffset = iota
	HalfOffset
)

func (r RowOffset) MarshalText() ([]byte, error) {
	if r == HalfOffset {
		return []byte("half"), nil
	}
	return []byte("none"), nil
}

func (r *RowOffset) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "", "none":
		*r = NoOffset
	case "half":
		*r = HalfOffset
	default:
		return fmt.Errorf("unknown row offset type %q", b)
	}
	return nil
}

// Binding selects how booklet sheets are paired into signatures
type Binding int

const (
	SaddleStitch Binding = iota // all sheets nest into one signature
	PerfectBound                // every sheet is its own 4-page signature
)

func (b Binding) MarshalText() ([]byte, error) {
	if b == PerfectBound {
		return []byte("perfectBound"), nil
	}
	return []byte("saddleStitch"), nil
}

func (b *Binding) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(string(text))) {
	case "", "saddlestitch":
		*b = SaddleStitch
	case "perfectbound":
		*b = PerfectBound
	default:
		return fmt.Errorf("unknown booklet binding %q", text)
	}
	return nil
}

// Corner anchors the slug block
type Corner int

const (
	BottomLeft Corner = iota
	BottomRight
	TopLeft
	TopRight
)

var cornerNames = [...]string{
	BottomLeft:  "bottom-left",
	BottomRight: "bottom-right",
	TopLeft:     "top-left",
	TopRight:    "top-right",
}

func (c Corner) String() string {
	if c < 0 || int(c) >= len(cornerNames) {
		return fmt.Sprintf("Corner(%d)", int(c))
	}
	return cornerNames[c]
}

func (c Corner) IsTop() bool   { return c == TopLeft || c == TopRight }
func (c Corner) IsRight() bool { return c == TopRight || c == BottomRight }

func (c Corner) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Corner) UnmarshalText(b []byte) error {
	norm := strings.ToLower(strings.NewReplacer("_", "-", " ", "-").Replace(string(b)))
	if norm == "" {
		*c = BottomLeft
		return nil
	}
	for i, name := range cornerNames {
		if name == norm || strings.ReplaceAll(name, "-", "") == norm {
			*c = Corner(i)
			return nil
		}
	}
	return fmt.Errorf("unknown qr code position %q", b)
}

// Settings is the per-job imposition configuration. Treat it as immutable.
type Settings struct {
	Scheme                 Scheme           `json:"imposition_type"`
	Columns                int              `json:"columns"`
	Rows                   int              `json:"rows"`
	Duplex                 bool             `json:"is_duplex"`
	SheetOrientation       pdfs.Orientation `json:"sheet_orientation"`
	RowOffset              RowOffset        `json:"row_offset_type"`
	BleedInches            float64          `json:"bleed_inches"`
	HorizontalGutterInches float64          `json:"horizontal_gutter_inches"` // between columns
	VerticalGutterInches   float64          `json:"vertical_gutter_inches"`   // between rows
	SheetName              string           `json:"sheet_name,omitempty"`
	SheetLongInches        float64          `json:"sheet_long_side_inches,omitempty"`
	SheetShortInches       float64          `json:"sheet_short_side_inches,omitempty"`
	ShowQRCode             bool             `json:"show_qr_code"`
	QRCodePosition         Corner           `json:"qr_code_position"`
	SlipSheetColor         string           `json:"slip_sheet_color,omitempty"`
	BookletBinding         Binding          `json:"booklet_binding"`
}

// Grid returns the effective grid. Booklet is always a 2x1 pair of pages.
func (s Settings) Grid() (columns int, rows int) {
	if s.Scheme == Booklet {
		return 2, 1
	}
	return s.Columns, s.Rows
}

func (s Settings) SlotsPerSheet() int {
	c, r := s.Grid()
	return c * r
}

// Faces is the number of printed faces per sheet. Booklet sheets are always two-sided.
func (s Settings) Faces() int {
	if s.Duplex || s.Scheme == Booklet {
		return 2
	}
	return 1
}

// HasBack reports whether sheets carry a back face
func (s Settings) HasBack() bool {
	return s.Faces() == 2
}

// ResolveSheet picks the press sheet from explicit dimensions or from the catalog by name
func (s Settings) ResolveSheet(catalog pdfs.Catalog) (pdfs.PaperSize, error) {
	explicit := s.SheetLongInches != 0 || s.SheetShortInches != 0
	named := strings.TrimSpace(s.SheetName) != ""
	switch {
	case explicit && named:
		return pdfs.PaperSize{}, configErrorf("both sheet name %q and explicit sheet dimensions given", s.SheetName)
	case explicit:
		p := pdfs.NewPaperSize("custom", s.SheetLongInches, s.SheetShortInches)
		if !p.Valid() {
			return pdfs.PaperSize{}, configErrorf("invalid sheet dimensions %gx%gin", s.SheetLongInches, s.SheetShortInches)
		}
		p.Name = fmt.Sprintf("%gx%g", p.ShortSide, p.LongSide)
		return p, nil
	case named:
		p, ok := catalog.Lookup(s.SheetName)
		if !ok {
			return pdfs.PaperSize{}, configErrorf("unknown sheet size %q", s.SheetName)
		}
		return p, nil
	default:
		return pdfs.PaperSize{}, configErrorf("no sheet size given")
	}
}

// Validate checks the fields that do not depend on the source document
func (s Settings) Validate() error {
	if s.Scheme < Stack || s.Scheme > CollateCut {
		return configErrorf("unknown imposition type %d", int(s.Scheme))
	}
	if s.Scheme != Booklet && (s.Columns < 1 || s.Rows < 1) {
		return configErrorf("columns and rows must be at least 1, got %dx%d", s.Columns, s.Rows)
	}
	if s.BleedInches < 0 || s.HorizontalGutterInches < 0 || s.VerticalGutterInches < 0 {
		return configErrorf("bleed and gutters must not be negative")
	}
	return nil
}

// JobInfo is descriptive job metadata used for the slug only. It never affects layout.
type JobInfo struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Quantity nullable.Int  `json:"quantity"`
	DueDate  nullable.Time `json:"due_date"`
	TrimSize string        `json:"trim_size,omitempty"`
}
