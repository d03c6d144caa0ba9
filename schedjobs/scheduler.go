package schedjobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/zeptools/gw-impose/svc"
)

// Scheduler runs cron jobs and one-time jobs at minute resolution
type Scheduler struct {
	ctx         context.Context
	cancel      context.CancelFunc
	state       int
	done        chan error
	oneTimeJobs map[int64][]*OneTimeJob // key: unix minute
	cronJobs    []*CronJob
	mu          sync.Mutex
	wg          sync.WaitGroup
	now         func() time.Time
	// Default Callbacks
	OnOneTimeJobFinished func(job *OneTimeJob, err error)
	OnCronJobFinished    func(job *CronJob, err error)
}

// Ensure Scheduler implements svc.Service
var _ svc.Service = (*Scheduler)(nil)

func NewScheduler(parentCtx context.Context) *Scheduler {
	ctx, cancel := context.WithCancel(parentCtx)
	return &Scheduler{
		ctx:         ctx,
		cancel:      cancel,
		state:       svc.StateREADY,
		done:        make(chan error, 1),
		oneTimeJobs: make(map[int64][]*OneTimeJob),
		now:         time.Now,
	}
}

func (s *Scheduler) Name() string {
	return "JobScheduler"
}

func (s *Scheduler) Start() error {
	if s.state == svc.StateRUNNING {
		return fmt.Errorf("scheduler already started")
	}
	s.state = svc.StateRUNNING
	go s.loop()
	log.Println("[INFO][SCHED] job scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.state = svc.StateSTOPPED
}

func (s *Scheduler) Done() <-chan error {
	return s.done
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		now := s.now()
		s.runOneTimeJobs(now)
		s.runCronJobs(now)
		select {
		case <-ticker.C:
			// continue for-loop
		case <-s.ctx.Done():
			s.wg.Wait() // wait for running tasks
			log.Println("[INFO][SCHED] job scheduler stopped")
			s.done <- nil
			return
		}
	}
}

// runOneTimeJobs runs every job registered for now's minute or any missed minute before it
func (s *Scheduler) runOneTimeJobs(now time.Time) {
	key := now.Unix() / 60
	var due []*OneTimeJob
	s.mu.Lock()
	for k, jobs := range s.oneTimeJobs {
		if k <= key {
			due = append(due, jobs...)
			delete(s.oneTimeJobs, k)
		}
	}
	s.mu.Unlock()
	for _, job := range due {
		s.runOneTimeJob(job)
	}
}

func (s *Scheduler) runOneTimeJob(job *OneTimeJob) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := runTask(job.ID, job.Task)
		if job.OnFinished != nil {
			recoverCallback(job.ID, "OnFinished", func() { job.OnFinished(err) })
		}
		if s.OnOneTimeJobFinished != nil {
			s.OnOneTimeJobFinished(job, err)
		}
	}()
}

func (s *Scheduler) runCronJobs(now time.Time) {
	s.mu.Lock()
	jobs := append([]*CronJob(nil), s.cronJobs...) // copy jobs so unlocking early is possible
	s.mu.Unlock()
	for _, job := range jobs {
		if job.Matches(now) {
			s.runCronJob(job)
		}
	}
}

func (s *Scheduler) runCronJob(job *CronJob) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := runTask(job.ID, job.Task)
		if job.OnFinished != nil {
			recoverCallback(job.ID, "OnFinished", func() { job.OnFinished(err) })
		}
		if s.OnCronJobFinished != nil {
			s.OnCronJobFinished(job, err)
		}
	}()
}

// runTask turns a task panic into an error
func runTask(jobID string, task func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PANIC] Recovered in job %s: %v", jobID, r)
			err = fmt.Errorf("job %s panicked: %v", jobID, r)
		}
	}()
	return task()
}

func recoverCallback(jobID, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PANIC] Recovered in job %s %s: %v", jobID, name, r)
		}
	}()
	fn()
}

func (s *Scheduler) AddOneTimeJob(job *OneTimeJob) error {
	now := s.now()
	margin := 30 * time.Second
	if job.ExecTime.Before(now.Add(margin)) {
		return fmt.Errorf(
			"cannot schedule job %s too close or in the past (ExecTime: %s, now: %s)",
			job.ID, job.ExecTime, now,
		)
	}
	// Round up to the next minute if ExecTime has seconds/nanoseconds
	regTime := job.ExecTime
	if regTime.Second() > 0 || regTime.Nanosecond() > 0 {
		regTime = regTime.Truncate(time.Minute).Add(time.Minute)
	}
	key := regTime.Unix() / 60
	s.mu.Lock()
	s.oneTimeJobs[key] = append(s.oneTimeJobs[key], job)
	s.mu.Unlock()
	if job.OnAdded != nil {
		recoverCallback(job.ID, "OnAdded", job.OnAdded)
	}
	return nil
}

func (s *Scheduler) AddCronJob(job *CronJob) {
	s.mu.Lock()
	s.cronJobs = append(s.cronJobs, job)
	s.mu.Unlock()
	if job.OnAdded != nil {
		recoverCallback(job.ID, "OnAdded", job.OnAdded)
	}
}

// PendingOneTimeJobs returns a copy of all pending one-time jobs, ordered by nothing in particular
func (s *Scheduler) PendingOneTimeJobs() []*OneTimeJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	var jobs []*OneTimeJob
	for _, list := range s.oneTimeJobs {
		jobs = append(jobs, list...)
	}
	return jobs
}

// GetCronJobs returns a copy of all registered cron jobs
func (s *Scheduler) GetCronJobs() []*CronJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*CronJob(nil), s.cronJobs...)
}

// DeleteOneTimeJob removes every pending one-time job with jobID. Returns the number removed.
func (s *Scheduler) DeleteOneTimeJob(jobID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, jobs := range s.oneTimeJobs {
		filtered := jobs[:0]
		for _, job := range jobs {
			if job.ID == jobID {
				removed++
			} else {
				filtered = append(filtered, job)
			}
		}
		if len(filtered) == 0 {
			delete(s.oneTimeJobs, key)
		} else {
			s.oneTimeJobs[key] = filtered
		}
	}
	return removed
}
