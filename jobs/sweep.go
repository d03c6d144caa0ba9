package jobs

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeptools/gw-impose/render"
)

// SweepTemp removes leftover job files (batches and uploaded sources) older than olderThan.
// They only survive a run when the process died mid-job.
func SweepTemp(dir string, olderThan time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasPrefix(ent.Name(), render.TempFilePrefix) {
			continue
		}
		info, err := ent.Info()
		if err != nil {
			continue // removed concurrently
		}
		if now.Sub(info.ModTime()) < olderThan {
			continue
		}
		path := filepath.Join(dir, ent.Name())
		if err = os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("[WARN][SWEEP] remove %s: %v", path, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		log.Printf("[INFO][SWEEP] removed %d stale files from %s", removed, dir)
	}
	return removed, nil
}

// UploadPattern is the os.CreateTemp pattern for uploaded sources, so SweepTemp sees them
const UploadPattern = render.TempFilePrefix + "upload-*.pdf"
