package impose

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zeptools/gw-impose/pdfs"
)

func TestFitGrid(t *testing.T) {
	tests := []struct {
		name       string
		w, h, W, H float64
		want       Fit
	}{
		{
			name: "letter on tabloid portrait goes rotated",
			w:    612, h: 792, W: 792, H: 1224,
			want: Fit{Columns: 1, Rows: 2, Rotated: true, Waste: 0},
		},
		{
			name: "business cards on 12x18 turn to fit more",
			w:    252, h: 144, W: 864, H: 1296,
			want: Fit{Columns: 6, Rows: 5, Rotated: true, Waste: 864*1296 - 30*252*144},
		},
		{
			name: "exact fit stays upright",
			w:    288, h: 432, W: 864, H: 1296,
			want: Fit{Columns: 3, Rows: 3, Rotated: false, Waste: 0},
		},
		{
			name: "page larger than sheet",
			w:    2000, h: 2000, W: 864, H: 1296,
			want: Fit{Columns: 0, Rows: 0, Rotated: false, Waste: 864 * 1296},
		},
		{
			name: "zero page size is an empty grid",
			w:    0, h: 100, W: 864, H: 1296,
			want: Fit{Columns: 0, Rows: 0, Rotated: false, Waste: 864 * 1296},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FitGrid(tc.w, tc.h, tc.W, tc.H)
			if d := cmp.Diff(tc.want, got); d != "" {
				t.Errorf("FitGrid() mismatch (-want +got):\n%s", d)
			}
		})
	}
}

func TestFitGridSquareTiePrefersUnrotated(t *testing.T) {
	sheets := []struct{ W, H float64 }{
		{792, 1224},
		{864, 1296},
		{612, 1008},
	}
	for _, sh := range sheets {
		side := min(sh.W, sh.H) / 2
		got := FitGrid(side, side, sh.W, sh.H)
		if got.Rotated {
			t.Errorf("%vx%v: square page chose the rotated grid", sh.W, sh.H)
		}
		if got.Columns != 2 || got.Rows != 3 {
			t.Errorf("%vx%v: grid = %dx%d, want 2x3", sh.W, sh.H, got.Columns, got.Rows)
		}
	}
}

func TestFitGridAbsorbsRoundingNoise(t *testing.T) {
	// SRA3 long side holds exactly two 8.86in pages
	w := 8.86 * pdfs.PointsPerInch
	W := 17.72 * pdfs.PointsPerInch
	if got := FitGrid(w, 100, W, 100); got.Columns != 2 {
		t.Errorf("columns = %d, want 2", got.Columns)
	}
}

func TestAutoPlan(t *testing.T) {
	catalog := pdfs.Catalog{
		pdfs.NewPaperSize("Letter", 11, 8.5),
		pdfs.NewPaperSize("Tabloid", 17, 11),
		pdfs.NewPaperSize("12x18", 18, 12),
	}
	tests := []struct {
		name string
		w, h float64
		want Layout
	}{
		{
			name: "letter pages pair up on tabloid",
			w:    612, h: 792,
			want: Layout{
				Columns:     2,
				Rows:        1,
				Sheet:       catalog[1],
				Orientation: pdfs.Landscape,
				Waste:       0,
			},
		},
		{
			name: "4x6 postcards",
			w:    288, h: 432,
			want: Layout{
				Columns:     3,
				Rows:        3,
				Sheet:       catalog[2],
				Orientation: pdfs.Portrait,
				Waste:       864*1296 - 9*288*432,
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := AutoPlan(catalog, tc.w, tc.h)
			if err != nil {
				t.Fatalf("AutoPlan() error = %v", err)
			}
			if d := cmp.Diff(tc.want, got); d != "" {
				t.Errorf("AutoPlan() mismatch (-want +got):\n%s", d)
			}
		})
	}
}

func TestAutoPlanTooLarge(t *testing.T) {
	_, err := AutoPlan(pdfs.DefaultCatalog(), 5000, 5000)
	if !errors.Is(err, ErrDocumentTooLarge) {
		t.Errorf("AutoPlan() error = %v, want %v", err, ErrDocumentTooLarge)
	}
	_, err = AutoPlan(nil, 100, 100)
	if !errors.Is(err, ErrDocumentTooLarge) {
		t.Errorf("AutoPlan(empty catalog) error = %v, want %v", err, ErrDocumentTooLarge)
	}
}

func TestAutoPlanIdempotent(t *testing.T) {
	catalog := pdfs.DefaultCatalog()
	sizes := [][2]float64{{612, 792}, {252, 144}, {396, 612}, {1000, 700}}
	for _, sz := range sizes {
		first, err1 := AutoPlan(catalog, sz[0], sz[1])
		second, err2 := AutoPlan(catalog, sz[0], sz[1])
		if !errors.Is(err2, err1) {
			t.Fatalf("%v: errors differ: %v vs %v", sz, err1, err2)
		}
		if d := cmp.Diff(first, second); d != "" {
			t.Errorf("%v: second AutoPlan() differs (-first +second):\n%s", sz, d)
		}
	}
}

func TestAutoPlanLayoutIsPlaceable(t *testing.T) {
	catalog := pdfs.DefaultCatalog()
	for _, sz := range [][2]float64{{612, 792}, {792, 612}, {252, 144}, {144, 252}} {
		l, err := AutoPlan(catalog, sz[0], sz[1])
		if err != nil {
			t.Fatalf("%v: %v", sz, err)
		}
		W, H := l.Sheet.Points(l.Orientation)
		if float64(l.Columns)*sz[0] > W+fitEpsilon || float64(l.Rows)*sz[1] > H+fitEpsilon {
			t.Errorf("%v: %dx%d upright pages overflow %vx%v", sz, l.Columns, l.Rows, W, H)
		}
	}
}

func TestLayoutSettings(t *testing.T) {
	l := Layout{Columns: 2, Rows: 3, Sheet: pdfs.NewPaperSize("12x18", 18, 12), Orientation: pdfs.Landscape}
	want := Settings{
		Scheme:                 Stack,
		Columns:                2,
		Rows:                   3,
		SheetOrientation:       pdfs.Landscape,
		BleedInches:            0.125,
		HorizontalGutterInches: 0.25,
		VerticalGutterInches:   0.25,
		SheetName:              "12x18",
	}
	if d := cmp.Diff(want, l.Settings()); d != "" {
		t.Errorf("Settings() mismatch (-want +got):\n%s", d)
	}
}
