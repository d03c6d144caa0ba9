package throttle

import (
	"context"
	"testing"
	"time"
)

func TestAllowRefills(t *testing.T) {
	s := NewBucketStore[string](context.Background(), time.Minute, time.Hour)
	conf := &BucketConf{Burst: 2, Increment: 1, PeriodText: "10s"}
	if err := conf.Prepare(); err != nil {
		t.Fatal(err)
	}
	s.SetBucketGroup("submit", conf)

	t0 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	steps := []struct {
		at   time.Duration
		key  string
		want bool
	}{
		{0, "shop-a", true},
		{time.Second, "shop-a", true},
		{2 * time.Second, "shop-a", false},
		{2 * time.Second, "shop-b", true},
		{10 * time.Second, "shop-a", true},
		{11 * time.Second, "shop-a", false},
		{60 * time.Second, "shop-a", true},
		{60 * time.Second, "shop-a", true},
		{60 * time.Second, "shop-a", false},
	}
	for i, st := range steps {
		if got := s.Allow("submit", st.key, t0.Add(st.at)); got != st.want {
			t.Errorf("step %d: Allow(%s at +%s) = %v, want %v", i, st.key, st.at, got, st.want)
		}
	}
	if s.Allow("unknown", "shop-a", t0) {
		t.Error("unknown group allowed")
	}
}

func TestCleanupDropsIdleBuckets(t *testing.T) {
	s := NewBucketStore[string](context.Background(), time.Minute, 30*time.Minute)
	s.SetBucketGroup("read", &BucketConf{Burst: 5, Increment: 5, Period: time.Minute})
	t0 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	s.Allow("read", "old", t0)
	s.Allow("read", "new", t0.Add(40*time.Minute))
	if n := s.Cleanup(t0.Add(45 * time.Minute)); n != 1 {
		t.Errorf("Cleanup() = %d, want 1", n)
	}
	g, _ := s.GetBucketGroup("read")
	if _, ok := g.GetBucket("old"); ok {
		t.Error("idle bucket kept")
	}
	if _, ok := g.GetBucket("new"); !ok {
		t.Error("active bucket dropped")
	}
}

func TestBucketConfPrepare(t *testing.T) {
	for _, c := range []BucketConf{
		{Burst: 1, Increment: 1, PeriodText: "soon"},
		{Burst: 0, Increment: 1, PeriodText: "1s"},
		{Burst: 1, Increment: 1},
	} {
		if err := c.Prepare(); err == nil {
			t.Errorf("Prepare(%+v) accepted", c)
		}
	}
}
