package schedjobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestCronSpecMatches(t *testing.T) {
	// 2026-03-02 is a monday
	job := CronSpec{Minutes: []int{15}, Hours: []int{3}, Weekdays: []int{1}}.NewCronJob("sweep", nil)
	tests := []struct {
		at   time.Time
		want bool
	}{
		{time.Date(2026, 3, 2, 3, 15, 0, 0, time.UTC), true},
		{time.Date(2026, 3, 2, 3, 16, 0, 0, time.UTC), false},
		{time.Date(2026, 3, 2, 4, 15, 0, 0, time.UTC), false},
		{time.Date(2026, 3, 3, 3, 15, 0, 0, time.UTC), false},
		{time.Date(2026, 3, 9, 3, 15, 0, 0, time.UTC), true},
	}
	for _, tc := range tests {
		if got := job.Matches(tc.at); got != tc.want {
			t.Errorf("Matches(%s) = %v, want %v", tc.at, got, tc.want)
		}
	}
	every := CronSpec{}.NewCronJob("every", nil)
	if every.Minutes != AllMinutes || every.Hours != AllHours || every.DaysOfMonth != AllDaysOfMonth || every.Weekdays != AllWeekdays {
		t.Errorf("empty spec = %+v, want every minute", every)
	}
}

func TestBitsFromDaysOfMonth(t *testing.T) {
	if got := BitsFromDaysOfMonth([]int{1, 31, 0, 32}); got != 1|1<<30 {
		t.Errorf("BitsFromDaysOfMonth() = %b", got)
	}
}

func newTestScheduler(now time.Time) *Scheduler {
	s := NewScheduler(context.Background())
	s.now = func() time.Time { return now }
	return s
}

func TestAddOneTimeJobRejectsPast(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	s := newTestScheduler(now)
	for _, at := range []time.Time{now.Add(-time.Hour), now.Add(10 * time.Second)} {
		if err := s.AddOneTimeJob(&OneTimeJob{ID: "x", ExecTime: at, Task: func() error { return nil }}); err == nil {
			t.Errorf("AddOneTimeJob(%s) accepted", at)
		}
	}
}

func TestOneTimeJobRunsOnItsMinute(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	s := newTestScheduler(now)
	var ran atomic.Int32
	var finishedErr atomic.Value
	job := &OneTimeJob{
		ID:       "expire-J1",
		ExecTime: now.Add(5*time.Minute + 20*time.Second), // rounds up to 10:06
		Task: func() error {
			ran.Add(1)
			return errors.New("gone")
		},
		OnFinished: func(err error) { finishedErr.Store(err) },
	}
	if err := s.AddOneTimeJob(job); err != nil {
		t.Fatal(err)
	}
	if n := len(s.PendingOneTimeJobs()); n != 1 {
		t.Fatalf("pending = %d, want 1", n)
	}

	s.runOneTimeJobs(now.Add(5 * time.Minute))
	s.wg.Wait()
	if ran.Load() != 0 {
		t.Fatal("job ran a minute early")
	}

	// a missed tick still fires the job
	s.runOneTimeJobs(now.Add(8 * time.Minute))
	s.wg.Wait()
	if ran.Load() != 1 {
		t.Fatalf("job ran %d times, want 1", ran.Load())
	}
	if err, _ := finishedErr.Load().(error); err == nil || err.Error() != "gone" {
		t.Errorf("OnFinished got %v", err)
	}
	if n := len(s.PendingOneTimeJobs()); n != 0 {
		t.Errorf("pending after run = %d", n)
	}
}

func TestDeleteOneTimeJob(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	s := newTestScheduler(now)
	for i, id := range []string{"a", "b", "a"} {
		job := &OneTimeJob{ID: id, ExecTime: now.Add(time.Duration(i+2) * time.Minute), Task: func() error { return nil }}
		if err := s.AddOneTimeJob(job); err != nil {
			t.Fatal(err)
		}
	}
	if n := s.DeleteOneTimeJob("a"); n != 2 {
		t.Errorf("DeleteOneTimeJob() = %d, want 2", n)
	}
	pending := s.PendingOneTimeJobs()
	if len(pending) != 1 || pending[0].ID != "b" {
		t.Errorf("pending = %v", pending)
	}
}

func TestTaskPanicBecomesError(t *testing.T) {
	s := newTestScheduler(time.Now())
	var got atomic.Value
	s.OnCronJobFinished = func(job *CronJob, err error) { got.Store(err) }
	job := CronSpec{}.NewCronJob("panics", func() error { panic("boom") })
	s.runCronJob(job)
	s.wg.Wait()
	if err, _ := got.Load().(error); err == nil {
		t.Error("panicking task reported no error")
	}
}

func TestServiceStop(t *testing.T) {
	s := NewScheduler(context.Background())
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err == nil {
		t.Error("second Start() succeeded")
	}
	s.Stop()
	select {
	case err := <-s.Done():
		if err != nil {
			t.Errorf("Done() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
