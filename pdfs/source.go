package pdfs

import (
	"errors"
	"fmt"
	"math"
	"os"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	ErrNoPages        = errors.New("source document has no pages")
	ErrMixedPageSizes = errors.New("source document pages differ in size")
)

// PageSizeTolerance is the largest difference in `pt` still treated as the same page size
const PageSizeTolerance = 0.5

// Source describes a read-only input document.
// All pages share Width x Height (`pt`), which OpenSource enforces.
type Source struct {
	Path      string
	PageCount int
	Width     float64
	Height    float64
}

// OpenSource reads the page tree of a PDF and checks that every page has the same MediaBox size
func OpenSource(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := pdfapi.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err = ctx.EnsurePageCount(); err != nil {
		return nil, err
	}
	if ctx.PageCount == 0 {
		return nil, ErrNoPages
	}

	src := &Source{Path: path, PageCount: ctx.PageCount}
	for pageNum := 1; pageNum <= ctx.PageCount; pageNum++ {
		_, _, inh, err := ctx.PageDict(pageNum, false)
		if err != nil {
			return nil, err
		}
		if inh == nil || inh.MediaBox == nil {
			return nil, fmt.Errorf("page %d has no MediaBox", pageNum)
		}
		w, h := inh.MediaBox.Width(), inh.MediaBox.Height()
		if inh.Rotate%180 != 0 {
			w, h = h, w
		}
		if pageNum == 1 {
			src.Width, src.Height = w, h
			continue
		}
		if math.Abs(w-src.Width) > PageSizeTolerance || math.Abs(h-src.Height) > PageSizeTolerance {
			return nil, fmt.Errorf("%w: page 1 is %.2fx%.2fpt, page %d is %.2fx%.2fpt",
				ErrMixedPageSizes, src.Width, src.Height, pageNum, w, h)
		}
	}
	return src, nil
}
