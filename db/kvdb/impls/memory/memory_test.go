package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestListRangeAndTrim(t *testing.T) {
	ctx := context.Background()
	c := New()
	for _, v := range []string{"a", "b", "c", "d", "e"} {
		if err := c.Push(ctx, "l", v); err != nil {
			t.Fatal(err)
		}
	}
	tests := []struct {
		start, stop int64
		want        []string
	}{
		{0, -1, []string{"a", "b", "c", "d", "e"}},
		{-2, -1, []string{"d", "e"}},
		{1, 2, []string{"b", "c"}},
		{3, 100, []string{"d", "e"}},
		{4, 1, []string{}},
		{-100, 0, []string{"a"}},
	}
	for _, tc := range tests {
		got, err := c.Range(ctx, "l", tc.start, tc.stop)
		if err != nil {
			t.Fatal(err)
		}
		if d := cmp.Diff(tc.want, got); d != "" {
			t.Errorf("Range(%d,%d) mismatch (-want +got):\n%s", tc.start, tc.stop, d)
		}
	}

	if err := c.Trim(ctx, "l", -3, -1); err != nil {
		t.Fatal(err)
	}
	got, _ := c.Range(ctx, "l", 0, -1)
	if d := cmp.Diff([]string{"c", "d", "e"}, got); d != "" {
		t.Errorf("after Trim (-want +got):\n%s", d)
	}
	if err := c.Trim(ctx, "l", 5, 1); err != nil {
		t.Fatal(err)
	}
	if n, _ := c.Delete(ctx, "l"); n != 0 {
		t.Error("empty trim kept the key")
	}
}

func TestHashAndExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New()
	c.now = func() time.Time { return now }

	if err := c.SetFields(ctx, "h", map[string]any{"status": "done", "sheets": 3}); err != nil {
		t.Fatal(err)
	}
	got, _ := c.GetAllFields(ctx, "h")
	if d := cmp.Diff(map[string]string{"status": "done", "sheets": "3"}, got); d != "" {
		t.Errorf("GetAllFields mismatch (-want +got):\n%s", d)
	}
	if ok, _ := c.Expire(ctx, "h", time.Minute); !ok {
		t.Fatal("Expire() on an existing key returned false")
	}
	if ok, _ := c.Expire(ctx, "missing", time.Minute); ok {
		t.Error("Expire() on a missing key returned true")
	}

	now = now.Add(2 * time.Minute)
	got, _ = c.GetAllFields(ctx, "h")
	if len(got) != 0 {
		t.Errorf("expired hash still readable: %v", got)
	}
	if err := c.Push(ctx, "h", "x"); err != nil {
		t.Errorf("Push() onto an expired hash key: %v", err)
	}
	if err := c.SetFields(ctx, "h", map[string]any{"a": 1}); err == nil {
		t.Error("SetFields() on a list key succeeded")
	}
}
