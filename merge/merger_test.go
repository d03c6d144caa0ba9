package merge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestGhostscriptArgs(t *testing.T) {
	gs, err := NewGhostscript("", "")
	if err != nil {
		t.Fatal(err)
	}
	got := gs.Args("/tmp/out.pdf", []string{"/tmp/b1.pdf", "/tmp/b2.pdf", "/tmp/b3.pdf"})
	want := []string{
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
		"-sOutputFile=/tmp/out.pdf",
		"/tmp/b1.pdf",
		"/tmp/b2.pdf",
		"/tmp/b3.pdf",
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("Args() mismatch (-want +got):\n%s", d)
	}
}

func TestNewGhostscriptDefaults(t *testing.T) {
	gs, err := NewGhostscript("", "")
	if err != nil {
		t.Fatal(err)
	}
	if gs.Binary != "gs" || gs.Timeout != DefaultGhostscriptTimeout {
		t.Errorf("got %q %s, want gs %s", gs.Binary, gs.Timeout, DefaultGhostscriptTimeout)
	}
	gs, err = NewGhostscript("/opt/gs/bin/gs", "90s")
	if err != nil {
		t.Fatal(err)
	}
	if gs.Timeout != 90*time.Second {
		t.Errorf("Timeout = %s, want 1m30s", gs.Timeout)
	}
	for _, bad := range []string{"soon", "-1s"} {
		if _, err := NewGhostscript("", bad); err == nil {
			t.Errorf("NewGhostscript(%q) accepted a bad timeout", bad)
		}
	}
}

func TestGhostscriptMissingBinary(t *testing.T) {
	dir := t.TempDir()
	notExecutable := filepath.Join(dir, "gs-not-executable")
	if err := os.WriteFile(notExecutable, []byte("#!/bin/sh\nexit 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name   string
		binary string
	}{
		{"bare name not on PATH", "gw-impose-no-such-gs"},
		{"absolute path does not exist", filepath.Join(dir, "bin", "gs")},
		{"file without exec bit", notExecutable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.binary == notExecutable && runtime.GOOS == "windows" {
				t.Skip("exec bit is a POSIX permission")
			}
			gs := &Ghostscript{Binary: tc.binary}
			err := gs.Merge(context.Background(), filepath.Join(dir, "out.pdf"), []string{"in.pdf"})
			if !errors.Is(err, ErrRasterizerNotFound) {
				t.Errorf("Merge() error = %v, want ErrRasterizerNotFound", err)
			}
			var exitErr *ExitError
			if errors.As(err, &exitErr) {
				t.Errorf("missing binary reported as exit error %v", exitErr)
			}
		})
	}
}

func TestFallbackForAbsoluteMissingBinary(t *testing.T) {
	m, err := New(Options{Binary: filepath.Join(t.TempDir(), "no-such-gs"), Fallback: true})
	if err != nil {
		t.Fatal(err)
	}
	f, ok := m.(*fallback)
	if !ok {
		t.Fatalf("New() = %T, want *fallback", m)
	}
	secondary := &recordingMerger{name: "second"}
	f.secondary = secondary
	if err := f.Merge(context.Background(), filepath.Join(t.TempDir(), "out.pdf"), []string{"in.pdf"}); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if secondary.calls != 1 {
		t.Errorf("secondary calls = %d, want 1", secondary.calls)
	}
}

// fakeGS writes a shell script that prints to stderr and exits with code
func fakeGS(t *testing.T, code string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "fake-gs")
	script := "#!/bin/sh\necho 'Error: /undefined in --file--' >&2\nexit " + code + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGhostscriptExitError(t *testing.T) {
	gs := &Ghostscript{Binary: fakeGS(t, "3"), Timeout: 10 * time.Second}
	err := gs.Merge(context.Background(), filepath.Join(t.TempDir(), "out.pdf"), []string{"in.pdf"})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Merge() error = %v, want *ExitError", err)
	}
	if exitErr.Code != 3 {
		t.Errorf("Code = %d, want 3", exitErr.Code)
	}
	if want := "Error: /undefined in --file--\n"; exitErr.Stderr != want {
		t.Errorf("Stderr = %q, want %q", exitErr.Stderr, want)
	}
	if errors.Is(err, ErrRasterizerNotFound) {
		t.Error("exit error reported as missing binary")
	}
}

func TestMergeNoInputs(t *testing.T) {
	for _, m := range []Merger{&Ghostscript{Binary: "gs"}, NewPDFCPU()} {
		if err := m.Merge(context.Background(), "out.pdf", nil); !errors.Is(err, ErrNoInputs) {
			t.Errorf("%s: Merge() error = %v, want ErrNoInputs", m.Name(), err)
		}
	}
}

type recordingMerger struct {
	name  string
	err   error
	calls int
}

func (m *recordingMerger) Name() string { return m.name }

func (m *recordingMerger) Merge(ctx context.Context, out string, inputs []string) error {
	m.calls++
	return m.err
}

func TestFallbackOnlyOnMissingBinary(t *testing.T) {
	tests := []struct {
		name          string
		primaryErr    error
		wantSecondary int
		wantErr       bool
	}{
		{"primary ok", nil, 0, false},
		{"binary missing", ErrRasterizerNotFound, 1, false},
		{"exit error is final", &ExitError{Code: 1}, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			secondary := &recordingMerger{name: "second"}
			f := &fallback{primary: &recordingMerger{name: "first", err: tc.primaryErr}, secondary: secondary}
			err := f.Merge(context.Background(), "out.pdf", []string{"a.pdf"})
			if (err != nil) != tc.wantErr {
				t.Errorf("Merge() error = %v, wantErr %v", err, tc.wantErr)
			}
			if secondary.calls != tc.wantSecondary {
				t.Errorf("secondary calls = %d, want %d", secondary.calls, tc.wantSecondary)
			}
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		opts     Options
		wantName string
	}{
		{Options{}, BackendGhostscript},
		{Options{Backend: "PDFCPU"}, BackendPDFCPU},
		{Options{Fallback: true}, "ghostscript+pdfcpu"},
	}
	for _, tc := range tests {
		m, err := New(tc.opts)
		if err != nil {
			t.Errorf("New(%+v) error = %v", tc.opts, err)
			continue
		}
		if m.Name() != tc.wantName {
			t.Errorf("New(%+v).Name() = %q, want %q", tc.opts, m.Name(), tc.wantName)
		}
	}
	if _, err := New(Options{Backend: "acrobat"}); err == nil {
		t.Error("New() accepted an unknown backend")
	}
}
