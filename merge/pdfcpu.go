package merge

import (
	"context"
	"fmt"
	"log"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFCPU concatenates in-process. It does not re-encode images.
type PDFCPU struct {
	conf *model.Configuration
}

// Ensure PDFCPU implements Merger
var _ Merger = (*PDFCPU)(nil)

func NewPDFCPU() *PDFCPU {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFCPU{conf: conf}
}

func (p *PDFCPU) Name() string {
	return BackendPDFCPU
}

func (p *PDFCPU) Merge(ctx context.Context, out string, inputs []string) error {
	if len(inputs) == 0 {
		return ErrNoInputs
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := pdfapi.MergeCreateFile(inputs, out, false, p.conf); err != nil {
		return fmt.Errorf("pdfcpu merge: %w", err)
	}
	log.Printf("[INFO][MERGE] pdfcpu: %d files -> %s", len(inputs), out)
	return nil
}

// PageCount reads the page count of a finished PDF
func PageCount(path string) (int, error) {
	ctx, err := pdfapi.ReadContextFile(path)
	if err != nil {
		return 0, err
	}
	if err = ctx.EnsurePageCount(); err != nil {
		return 0, err
	}
	return ctx.PageCount, nil
}
