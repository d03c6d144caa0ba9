package pdfs

import (
	"fmt"
	"strings"
)

const PointsPerInch = 72

// PaperSize is a physical press sheet. Sides are in inches.
type PaperSize struct {
	Name      string  `json:"name"`
	LongSide  float64 `json:"long_side"`
	ShortSide float64 `json:"short_side"`
}

// Points returns the sheet width and height in `pt` for the given orientation
func (p PaperSize) Points(o Orientation) (float64, float64) {
	if o == Landscape {
		return p.LongSide * PointsPerInch, p.ShortSide * PointsPerInch
	}
	return p.ShortSide * PointsPerInch, p.LongSide * PointsPerInch
}

func (p PaperSize) Valid() bool {
	return p.LongSide > 0 && p.ShortSide > 0 && p.LongSide >= p.ShortSide
}

func (p PaperSize) String() string {
	return fmt.Sprintf("%s (%gx%gin)", p.Name, p.ShortSide, p.LongSide)
}

// NewPaperSize normalizes the two sides so that LongSide >= ShortSide
func NewPaperSize(name string, a, b float64) PaperSize {
	if a < b {
		a, b = b, a
	}
	return PaperSize{Name: name, LongSide: a, ShortSide: b}
}

type Orientation int

const (
	Portrait Orientation = iota
	Landscape
)

func (o Orientation) String() string {
	if o == Landscape {
		return "landscape"
	}
	return "portrait"
}

func (o Orientation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Orientation) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "", "portrait":
		*o = Portrait
	case "landscape":
		*o = Landscape
	default:
		return fmt.Errorf("unknown sheet orientation %q", b)
	}
	return nil
}

// Catalog is an ordered, read-only list of known sheet sizes.
// Treat a Catalog as immutable once published; swap the whole value to change it.
type Catalog []PaperSize

// Lookup finds a sheet by name, case-insensitive
func (c Catalog) Lookup(name string) (PaperSize, bool) {
	name = strings.TrimSpace(name)
	for _, p := range c {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return PaperSize{}, false
}

// Catalog lets a fixed Catalog stand in wherever a hot-swappable source is expected
func (c Catalog) Catalog() Catalog {
	return c
}

func (c Catalog) Names() []string {
	names := make([]string, len(c))
	for i, p := range c {
		names[i] = p.Name
	}
	return names
}

// DefaultCatalog is the builtin list used when no catalog source is configured
func DefaultCatalog() Catalog {
	return Catalog{
		{Name: "Letter", LongSide: 11, ShortSide: 8.5},
		{Name: "Legal", LongSide: 14, ShortSide: 8.5},
		{Name: "Tabloid", LongSide: 17, ShortSide: 11},
		{Name: "12x18", LongSide: 18, ShortSide: 12},
		{Name: "13x19", LongSide: 19, ShortSide: 13},
		{Name: "SRA3", LongSide: 17.72, ShortSide: 12.6},
		{Name: "19x25", LongSide: 25, ShortSide: 19},
		{Name: "20x26", LongSide: 26, ShortSide: 20},
		{Name: "23x35", LongSide: 35, ShortSide: 23},
		{Name: "25x38", LongSide: 38, ShortSide: 25},
	}
}
