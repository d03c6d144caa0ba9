package conf

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zeptools/gw-impose/db/kvdb/impls/memory"
	"github.com/zeptools/gw-impose/jobs"
	"github.com/zeptools/gw-impose/schedjobs"
	"github.com/zeptools/gw-impose/throttle"
)

func newTestCore(t *testing.T, files map[string]string) *Core[string] {
	t.Helper()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(root, "config", name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return &Core[string]{AppRoot: root, RootCtx: ctx, RootCancel: cancel}
}

func TestClientAppsHotReload(t *testing.T) {
	c := newTestCore(t, map[string]string{
		".clients.json": `{"shop": {"name": "Shop", "key_ids": ["k1"], "callback": true}}`,
	})
	if _, ok := c.GetClientAppConf("shop"); ok {
		t.Fatal("client found before loading")
	}
	if err := c.PrepareClientApps(); err != nil {
		t.Fatal(err)
	}
	app, ok := c.GetClientAppConf("shop")
	if !ok || app.ID != "shop" || !app.AllowsKey("k1") || !app.Callback {
		t.Fatalf("GetClientAppConf() = %+v, %v", app, ok)
	}

	path := filepath.Join(c.AppRoot, "config", ".clients.json")
	if err := os.WriteFile(path, []byte(`{"shop": {"name": "Shop", "disabled": true}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.PrepareClientApps(); err != nil {
		t.Fatal(err)
	}
	if app, _ = c.GetClientAppConf("shop"); !app.Disabled {
		t.Error("reload did not replace the client list")
	}

	// a broken file keeps the previous list
	if err := os.WriteFile(path, []byte(`{"shop": `), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.PrepareClientApps(); err == nil {
		t.Error("broken .clients.json accepted")
	}
	if _, ok = c.GetClientAppConf("shop"); !ok {
		t.Error("client list lost after a failed reload")
	}
}

func TestKVDatabaseDefaultsToMemory(t *testing.T) {
	c := newTestCore(t, nil)
	if err := c.PrepareKVDatabase(); err != nil {
		t.Fatal(err)
	}
	if c.KVDBConf.Type != memory.TypeName {
		t.Errorf("KVDBConf.Type = %q", c.KVDBConf.Type)
	}
	if err := c.BackendKVDBClient.Ping(context.Background()); err != nil {
		t.Errorf("Ping() = %v", err)
	}
}

func TestThrottleGroupsFromCoreConf(t *testing.T) {
	c := newTestCore(t, nil)
	c.Throttle = map[string]*throttle.BucketConf{
		"submit": {Burst: 2, Increment: 1, PeriodText: "1m"},
	}
	if err := c.PrepareThrottleBucketStore(time.Minute, time.Hour); err != nil {
		t.Fatal(err)
	}
	if !c.ThrottleGroup("submit") || c.ThrottleGroup("read") {
		t.Error("ThrottleGroup() does not follow .core.json")
	}
	now := time.Now()
	for i, want := range []bool{true, true, false} {
		if got := c.ThrottleBucketStore.Allow("submit", "client:shop", now); got != want {
			t.Errorf("request %d allowed = %v, want %v", i, got, want)
		}
	}

	bad := newTestCore(t, nil)
	bad.Throttle = map[string]*throttle.BucketConf{"read": {Burst: 5, Increment: 1, PeriodText: "soon"}}
	if err := bad.PrepareThrottleBucketStore(time.Minute, time.Hour); err == nil {
		t.Error("bad throttle period accepted")
	}
}

func TestOutputExpiry(t *testing.T) {
	s := schedjobs.NewScheduler(context.Background())
	x := &outputExpiry{scheduler: s, retention: time.Hour, now: time.Now}
	ctx := context.Background()

	if err := x.JobFinished(ctx, jobs.Status{JobID: "J1", State: jobs.StateFailed}); err != nil {
		t.Fatal(err)
	}
	if n := len(s.PendingOneTimeJobs()); n != 0 {
		t.Fatalf("failed job scheduled %d removals", n)
	}

	done := jobs.Status{JobID: "J1", State: jobs.StateDone, Output: filepath.Join(t.TempDir(), "J1.pdf")}
	for range 2 {
		if err := x.JobFinished(ctx, done); err != nil {
			t.Fatal(err)
		}
	}
	pending := s.PendingOneTimeJobs()
	if len(pending) != 1 || pending[0].ID != "expire-output:J1" {
		t.Fatalf("pending = %+v, want one expire-output:J1", pending)
	}
	if err := os.WriteFile(done.Output, []byte("%PDF-"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := pending[0].Task(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(done.Output); !os.IsNotExist(err) {
		t.Errorf("output still there: %v", err)
	}
	// already gone is fine
	if err := pending[0].Task(); err != nil {
		t.Errorf("second removal = %v", err)
	}
}
