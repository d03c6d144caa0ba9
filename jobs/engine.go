package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/zeptools/gw-impose/impose"
	"github.com/zeptools/gw-impose/locks/keyonlylocks"
	"github.com/zeptools/gw-impose/merge"
	"github.com/zeptools/gw-impose/pdfs"
	"github.com/zeptools/gw-impose/render"
)

var (
	ErrNoJobID    = errors.New("job id is required")
	ErrJobRunning = errors.New("job is already running")
	ErrOutputBusy = errors.New("output file is in use by another job")
	ErrJobIDTaken = errors.New("job id belongs to another client")
)

// CatalogSource yields the sheet catalog in effect right now.
// pdfs.Catalog implements it for a fixed list.
type CatalogSource interface {
	Catalog() pdfs.Catalog
}

// Notifier is told about every finished job, successful or not
type Notifier interface {
	JobFinished(ctx context.Context, st Status) error
}

// Request is one imposition run
type Request struct {
	SourcePath   string
	SourceIsTemp bool             // the engine removes SourcePath when the run ends
	Settings     *impose.Settings // nil = automatic layout
	Job          impose.JobInfo
	OutputPath   string // empty = <OutputDir>/<job id>.pdf
	ClientID     string // API client that submitted the job, if any
}

type Result struct {
	JobID      string          `json:"job_id"`
	OutputPath string          `json:"-"`
	Layout     string          `json:"layout"`
	SheetName  string          `json:"sheet_name"`
	Settings   impose.Settings `json:"settings"`
	Pages      int             `json:"pages"`
	Sheets     int             `json:"sheets"`
	Batches    int             `json:"batches"`
	Bytes      int64           `json:"bytes"`
	Duration   time.Duration   `json:"-"`
	DurationMS int64           `json:"duration_ms"`
}

// Engine runs imposition jobs. A job is sequential; separate jobs may run in parallel.
type Engine struct {
	Catalogs  CatalogSource
	Merger    merge.Merger
	Tracker   Tracker
	Notifiers []Notifier
	TempDir   string
	OutputDir string
	BatchSize int
	Marks     render.Marks
	NewWriter func(sourcePath string) pdfs.WriterFactory

	running keyonlylocks.Set // "job:<id>" and "out:<path>" of admitted jobs
	slots   chan struct{}    // nil = unbounded
	wg      sync.WaitGroup
}

func NewEngine(catalogs CatalogSource, merger merge.Merger, conf Conf) *Engine {
	e := &Engine{
		Catalogs:  catalogs,
		Merger:    merger,
		Tracker:   LogTracker{},
		TempDir:   conf.TempDir,
		OutputDir: conf.OutputDir,
		BatchSize: conf.BatchSize,
		Marks:     render.DefaultMarks,
		NewWriter: pdfs.FpdfWriterFactory,
	}
	if e.TempDir == "" {
		e.TempDir = os.TempDir()
	}
	if e.OutputDir == "" {
		e.OutputDir = e.TempDir
	}
	if conf.MaxConcurrentJobs > 0 {
		e.slots = make(chan struct{}, conf.MaxConcurrentJobs)
	}
	return e
}

// Running reports whether a job with this id is in progress
func (e *Engine) Running(jobID string) bool {
	return e.running.Held("job:" + jobID)
}

// OutputPathFor is where a job's output goes when the request names none
func (e *Engine) OutputPathFor(jobID string) string {
	return filepath.Join(e.OutputDir, render.SafeName(jobID)+".pdf")
}

// Run imposes, renders and merges one job. Temp files are removed on every path.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	req, release, err := e.admit(ctx, req)
	if err != nil {
		return nil, err
	}
	defer release()
	return e.execute(ctx, req)
}

// Submit admits the job and runs it in the background.
// Admission errors are returned at once; done, if not nil, gets the outcome.
func (e *Engine) Submit(ctx context.Context, req Request, done func(*Result, error)) error {
	req, release, err := e.admit(ctx, req)
	if err != nil {
		return err
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer release()
		res, err := e.execute(ctx, req)
		if done != nil {
			done(res, err)
		}
	}()
	return nil
}

// Wait blocks until every submitted job has ended
func (e *Engine) Wait() {
	e.wg.Wait()
}

// admit locks the job id and output path, checks the id is not another
// client's, and records the job as queued
func (e *Engine) admit(ctx context.Context, req Request) (Request, func(), error) {
	jobID := strings.TrimSpace(req.Job.ID)
	if jobID == "" {
		e.removeSource(req)
		return req, nil, ErrNoJobID
	}
	out := req.OutputPath
	if out == "" {
		out = e.OutputPathFor(jobID)
	}
	release, ok := e.running.TryAcquire("job:"+jobID, "out:"+filepath.Clean(out))
	if !ok {
		e.removeSource(req)
		if e.Running(jobID) {
			return req, nil, fmt.Errorf("%w: %s", ErrJobRunning, jobID)
		}
		return req, nil, fmt.Errorf("%w: %s", ErrOutputBusy, out)
	}
	if err := e.checkOwner(ctx, jobID, req.ClientID); err != nil {
		release()
		e.removeSource(req)
		return req, nil, err
	}
	req.Job.ID = jobID
	e.track(ctx, Status{JobID: jobID, ClientID: req.ClientID, State: StateQueued})
	return req, release, nil
}

// checkOwner refuses an id whose tracked status was submitted by another client.
// Called with the job id locked.
func (e *Engine) checkOwner(ctx context.Context, jobID, clientID string) error {
	if e.Tracker == nil {
		return nil
	}
	st, found, err := e.Tracker.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("look up job %s: %w", jobID, err)
	}
	if found && st.ClientID != clientID {
		return fmt.Errorf("%w: %s", ErrJobIDTaken, jobID)
	}
	return nil
}

func (e *Engine) execute(ctx context.Context, req Request) (*Result, error) {
	if err := e.acquireSlot(ctx); err != nil {
		e.removeSource(req)
		e.finish(ctx, req, nil, err)
		return nil, err
	}
	defer e.releaseSlot()

	e.track(ctx, Status{JobID: req.Job.ID, ClientID: req.ClientID, State: StateRunning})
	res, err := e.run(ctx, req)
	e.finish(ctx, req, res, err)
	return res, err
}

func (e *Engine) acquireSlot(ctx context.Context) error {
	if e.slots == nil {
		return nil
	}
	select {
	case e.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) releaseSlot() {
	if e.slots != nil {
		<-e.slots
	}
}

func (e *Engine) run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	var bw *render.BatchWriter
	defer func() {
		if bw != nil {
			removeFiles(bw.Paths())
		}
		e.removeSource(req)
	}()

	src, err := pdfs.OpenSource(req.SourcePath)
	if err != nil {
		return nil, err
	}
	catalog := e.Catalogs.Catalog()
	var settings impose.Settings
	if req.Settings != nil {
		settings = *req.Settings
	} else {
		layout, err := impose.AutoPlan(catalog, src.Width, src.Height)
		if err != nil {
			return nil, err
		}
		settings = layout.Settings()
		log.Printf("[INFO][IMPOSE] job %s: auto layout %dx%d on %s %s", req.Job.ID, layout.Columns, layout.Rows, layout.Sheet.Name, layout.Orientation)
	}
	plan, err := impose.Prepare(settings, catalog, src.Width, src.Height, src.PageCount)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO][IMPOSE] job %s: %s", req.Job.ID, plan)
	e.track(ctx, Status{JobID: req.Job.ID, ClientID: req.ClientID, State: StateRunning, Layout: plan.String(), Pages: plan.NumPages, Sheets: plan.SheetCount})

	dec, err := render.NewDecorator(plan, req.Job, e.Marks)
	if err != nil {
		return nil, err
	}
	bw = render.NewBatchWriter(e.NewWriter(src.Path), e.TempDir, req.Job.ID, e.BatchSize)
	batches, err := bw.WriteSheets(ctx, plan, dec)
	if err != nil {
		return nil, err
	}

	out := req.OutputPath
	if out == "" {
		out = e.OutputPathFor(req.Job.ID)
	}
	if err = os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, err
	}
	if err = e.Merger.Merge(ctx, out, bw.Paths()); err != nil {
		if rmErr := os.Remove(out); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Printf("[WARN][IMPOSE] remove partial output %s: %v", out, rmErr)
		}
		return nil, fmt.Errorf("merge %d batches with %s: %w", len(batches), e.Merger.Name(), err)
	}
	info, err := os.Stat(out)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	res := &Result{
		JobID:      req.Job.ID,
		OutputPath: out,
		Layout:     plan.String(),
		SheetName:  plan.Sheet.Name,
		Settings:   plan.Settings,
		Pages:      plan.NumPages,
		Sheets:     plan.SheetCount,
		Batches:    len(batches),
		Bytes:      info.Size(),
		Duration:   elapsed,
		DurationMS: elapsed.Milliseconds(),
	}
	log.Printf("[INFO][IMPOSE] job %s: %d sheets in %d batches -> %s (%d bytes) in %s",
		res.JobID, res.Sheets, res.Batches, out, res.Bytes, elapsed.Round(time.Millisecond))
	return res, nil
}

// finish records the final status and tells the notifiers. Their errors are only logged.
func (e *Engine) finish(ctx context.Context, req Request, res *Result, err error) {
	jobID := req.Job.ID
	st := Status{JobID: jobID, ClientID: req.ClientID, State: StateDone}
	if err != nil {
		st.State = StateFailed
		st.Error = err.Error()
		log.Printf("[ERROR][IMPOSE] job %s: %v", jobID, err)
	} else {
		st.Layout, st.Pages, st.Sheets, st.Bytes, st.Output = res.Layout, res.Pages, res.Sheets, res.Bytes, res.OutputPath
	}
	ctx = context.WithoutCancel(ctx)
	e.track(ctx, st)
	for _, n := range e.Notifiers {
		if nErr := n.JobFinished(ctx, st); nErr != nil {
			log.Printf("[WARN][IMPOSE] job %s: notify: %v", jobID, nErr)
		}
	}
}

func (e *Engine) track(ctx context.Context, st Status) {
	if e.Tracker == nil {
		return
	}
	if err := e.Tracker.Update(ctx, st); err != nil {
		log.Printf("[WARN][IMPOSE] job %s: status update: %v", st.JobID, err)
	}
}

func (e *Engine) removeSource(req Request) {
	if req.SourceIsTemp && req.SourcePath != "" {
		removeFiles([]string{req.SourcePath})
	}
}

func removeFiles(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Printf("[WARN][CLEANUP] remove %s: %v", p, err)
		}
	}
}
