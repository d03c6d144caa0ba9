package merge

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Merger concatenates PDF files, in argument order, into one output file
type Merger interface {
	Merge(ctx context.Context, out string, inputs []string) error
	Name() string
}

var ErrNoInputs = errors.New("nothing to merge")

const (
	BackendGhostscript = "ghostscript"
	BackendPDFCPU      = "pdfcpu"
)

// Options selects and tunes a Merger backend
type Options struct {
	Backend  string `json:"backend"`     // "ghostscript" (default) or "pdfcpu"
	Binary   string `json:"gs_binary"`   // default "gs"
	Timeout  string `json:"gs_timeout"`  // time.ParseDuration format, default 10m
	Fallback bool   `json:"gs_fallback"` // use pdfcpu when Ghostscript is not installed
}

// New builds the configured Merger
func New(opts Options) (Merger, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendGhostscript:
		gs, err := NewGhostscript(opts.Binary, opts.Timeout)
		if err != nil {
			return nil, err
		}
		if opts.Fallback {
			return &fallback{primary: gs, secondary: NewPDFCPU()}, nil
		}
		return gs, nil
	case BackendPDFCPU:
		return NewPDFCPU(), nil
	default:
		return nil, fmt.Errorf("unknown merger backend %q", opts.Backend)
	}
}

// fallback switches to secondary only when the rasterizer binary is missing
type fallback struct {
	primary   Merger
	secondary Merger
}

func (f *fallback) Name() string {
	return f.primary.Name() + "+" + f.secondary.Name()
}

func (f *fallback) Merge(ctx context.Context, out string, inputs []string) error {
	err := f.primary.Merge(ctx, out, inputs)
	if errors.Is(err, ErrRasterizerNotFound) {
		return f.secondary.Merge(ctx, out, inputs)
	}
	return err
}
