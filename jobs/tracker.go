package jobs

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/zeptools/gw-impose/db/kvdb"
)

type State string

const (
	StateQueued  State = "queued"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

func (s State) Finished() bool {
	return s == StateDone || s == StateFailed
}

// Status is the externally visible progress record of one job
type Status struct {
	JobID    string    `json:"job_id"`
	ClientID string    `json:"client_id,omitempty"`
	State    State     `json:"state"`
	Layout   string    `json:"layout,omitempty"`
	Pages    int       `json:"pages,omitempty"`
	Sheets   int       `json:"sheets,omitempty"`
	Bytes    int64     `json:"bytes,omitempty"`
	Output   string    `json:"-"` // server-side path, never sent to clients
	Error    string    `json:"error,omitempty"`
	Updated  time.Time `json:"updated"`
}

type Tracker interface {
	Update(ctx context.Context, st Status) error
	Get(ctx context.Context, jobID string) (Status, bool, error) // status, found, err
	// Recent returns up to n statuses, newest first
	Recent(ctx context.Context, n int) ([]Status, error)
	Forget(ctx context.Context, jobID string) error
}

const (
	DefaultStatusTTL  = 7 * 24 * time.Hour
	DefaultRecentJobs = 100
)

// KVTracker keeps one hash per job plus a bounded list of recent job ids
type KVTracker struct {
	Client    kvdb.Client
	TTL       time.Duration
	MaxRecent int64
}

// Ensure KVTracker implements Tracker
var _ Tracker = (*KVTracker)(nil)

func NewKVTracker(client kvdb.Client, ttl time.Duration, maxRecent int) *KVTracker {
	if ttl <= 0 {
		ttl = DefaultStatusTTL
	}
	if maxRecent <= 0 {
		maxRecent = DefaultRecentJobs
	}
	return &KVTracker{Client: client, TTL: ttl, MaxRecent: int64(maxRecent)}
}

func (t *KVTracker) prefix() string {
	if conf := t.Client.GetConf(); conf != nil {
		return conf.KeyPrefix
	}
	return ""
}

func (t *KVTracker) jobKey(jobID string) string {
	return t.prefix() + "job:" + jobID
}

func (t *KVTracker) recentKey() string {
	return t.prefix() + "jobs:recent"
}

func (t *KVTracker) Update(ctx context.Context, st Status) error {
	if st.Updated.IsZero() {
		st.Updated = time.Now()
	}
	key := t.jobKey(st.JobID)
	fields := map[string]any{
		"client":  st.ClientID,
		"state":   string(st.State),
		"layout":  st.Layout,
		"pages":   st.Pages,
		"sheets":  st.Sheets,
		"bytes":   st.Bytes,
		"output":  st.Output,
		"error":   st.Error,
		"updated": st.Updated.UTC().Format(time.RFC3339Nano),
	}
	if err := t.Client.SetFields(ctx, key, fields); err != nil {
		return fmt.Errorf("track %s: %w", st.JobID, err)
	}
	if _, err := t.Client.Expire(ctx, key, t.TTL); err != nil {
		return fmt.Errorf("track %s: %w", st.JobID, err)
	}
	if st.State != StateQueued {
		return nil
	}
	if err := t.Client.Push(ctx, t.recentKey(), st.JobID); err != nil {
		return fmt.Errorf("track %s: %w", st.JobID, err)
	}
	return t.Client.Trim(ctx, t.recentKey(), -t.MaxRecent, -1)
}

func (t *KVTracker) Get(ctx context.Context, jobID string) (Status, bool, error) {
	fields, err := t.Client.GetAllFields(ctx, t.jobKey(jobID))
	if err != nil {
		return Status{}, false, err
	}
	if len(fields) == 0 {
		return Status{}, false, nil
	}
	return statusFromFields(jobID, fields), true, nil
}

func statusFromFields(jobID string, f map[string]string) Status {
	st := Status{
		JobID:    jobID,
		ClientID: f["client"],
		State:    State(f["state"]),
		Layout:   f["layout"],
		Output:   f["output"],
		Error:    f["error"],
	}
	st.Pages, _ = strconv.Atoi(f["pages"])
	st.Sheets, _ = strconv.Atoi(f["sheets"])
	st.Bytes, _ = strconv.ParseInt(f["bytes"], 10, 64)
	st.Updated, _ = time.Parse(time.RFC3339Nano, f["updated"])
	return st
}

func (t *KVTracker) Recent(ctx context.Context, n int) ([]Status, error) {
	if n <= 0 || int64(n) > t.MaxRecent {
		n = int(t.MaxRecent)
	}
	ids, err := t.Client.Range(ctx, t.recentKey(), -int64(n), -1)
	if err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(ids))
	seen := make(map[string]struct{}, len(ids)) // a re-run job id is pushed again
	for i := len(ids) - 1; i >= 0; i-- {
		if _, dup := seen[ids[i]]; dup {
			continue
		}
		seen[ids[i]] = struct{}{}
		st, found, err := t.Get(ctx, ids[i])
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, st)
		}
	}
	return out, nil
}

func (t *KVTracker) Forget(ctx context.Context, jobID string) error {
	_, err := t.Client.Delete(ctx, t.jobKey(jobID))
	return err
}

// LogTracker only logs. Used when no KV database is configured.
type LogTracker struct{}

func (LogTracker) Update(ctx context.Context, st Status) error {
	log.Printf("[INFO][JOBS] %s: %s %s", st.JobID, st.State, st.Error)
	return nil
}

func (LogTracker) Get(ctx context.Context, jobID string) (Status, bool, error) {
	return Status{}, false, nil
}

func (LogTracker) Recent(ctx context.Context, n int) ([]Status, error) {
	return nil, nil
}

func (LogTracker) Forget(ctx context.Context, jobID string) error {
	return nil
}
