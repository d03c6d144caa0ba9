package merge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os/exec"
	"strings"
	"time"
)

const (
	DefaultGhostscriptBinary  = "gs"
	DefaultGhostscriptTimeout = 10 * time.Minute
)

// ErrRasterizerNotFound is returned when the Ghostscript binary cannot be started
var ErrRasterizerNotFound = errors.New("ghostscript not found")

// ExitError is a Ghostscript run that started but exited non-zero
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	if msg == "" {
		return fmt.Sprintf("ghostscript exited with code %d", e.Code)
	}
	return fmt.Sprintf("ghostscript exited with code %d: %s", e.Code, msg)
}

// Ghostscript merges through the pdfwrite device with prepress settings,
// no image downsampling, lossless image filters and no page auto-rotation
type Ghostscript struct {
	Binary  string
	Timeout time.Duration
}

// Ensure Ghostscript implements Merger
var _ Merger = (*Ghostscript)(nil)

// NewGhostscript parses timeout with time.ParseDuration. Empty values take the defaults.
func NewGhostscript(binary string, timeout string) (*Ghostscript, error) {
	gs := &Ghostscript{Binary: binary, Timeout: DefaultGhostscriptTimeout}
	if gs.Binary == "" {
		gs.Binary = DefaultGhostscriptBinary
	}
	if timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, fmt.Errorf("gs_timeout: %w", err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("gs_timeout must be positive, got %s", d)
		}
		gs.Timeout = d
	}
	return gs, nil
}

func (g *Ghostscript) Name() string {
	return BackendGhostscript
}

// Args is the full argument list after the binary name
func (g *Ghostscript) Args(out string, inputs []string) []string {
	args := []string{
		"-dBATCH",
		"-dNOPAUSE",
		"-dQUIET",
		"-dSAFER",
		"-sDEVICE=pdfwrite",
		"-dPDFSETTINGS=/prepress",
		"-dDownsampleColorImages=false",
		"-dDownsampleGrayImages=false",
		"-dDownsampleMonoImages=false",
		"-dAutoFilterColorImages=false",
		"-dAutoFilterGrayImages=false",
		"-dColorImageFilter=/FlateEncode",
		"-dGrayImageFilter=/FlateEncode",
		"-dAutoRotatePages=/None",
		"-sOutputFile=" + out,
	}
	return append(args, inputs...)
}

func (g *Ghostscript) Merge(ctx context.Context, out string, inputs []string) error {
	if len(inputs) == 0 {
		return ErrNoInputs
	}
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultGhostscriptTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.Binary, g.Args(out, inputs)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ghostscript: %w", ctxErr)
		}
		if startFailedMissing(err) {
			return fmt.Errorf("%w: %s: %v", ErrRasterizerNotFound, g.Binary, err)
		}
		return fmt.Errorf("ghostscript: %w", err)
	}
	err := cmd.Wait()
	if err == nil {
		log.Printf("[INFO][MERGE] ghostscript: %d files -> %s in %s", len(inputs), out, time.Since(start).Round(time.Millisecond))
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("ghostscript: %w", ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitCode(), Stderr: stderr.String()}
	}
	return fmt.Errorf("ghostscript: %w", err)
}

// startFailedMissing covers a bare name missing from PATH and a configured
// path that does not exist or cannot be executed
func startFailedMissing(err error) bool {
	return errors.Is(err, exec.ErrNotFound) ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission)
}

// Available reports whether the binary can be run
func (g *Ghostscript) Available() bool {
	return exec.Command(g.Binary, "-v").Run() == nil
}
