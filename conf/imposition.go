package conf

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/zeptools/gw-impose/jobs"
	"github.com/zeptools/gw-impose/schedjobs"
	"github.com/zeptools/gw-impose/sheetstore"
)

// ImpositionConf is config/.imposition.json
type ImpositionConf struct {
	jobs.Conf    `json:",inline"`
	SheetCatalog sheetstore.Conf `json:"sheet_catalog"` // empty db = static catalog
}

// outputExpiry schedules the removal of each finished output after the retention period
type outputExpiry struct {
	scheduler *schedjobs.Scheduler
	retention time.Duration
	now       func() time.Time
}

// Ensure outputExpiry implements jobs.Notifier
var _ jobs.Notifier = (*outputExpiry)(nil)

func (x *outputExpiry) JobFinished(ctx context.Context, st jobs.Status) error {
	if st.State != jobs.StateDone || st.Output == "" || x.retention <= 0 {
		return nil
	}
	path := st.Output
	job := &schedjobs.OneTimeJob{
		ID:       "expire-output:" + st.JobID,
		ExecTime: x.now().Add(x.retention),
		Task: func() error {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return err
			}
			log.Printf("[INFO][EXPIRY] removed output of job %s", st.JobID)
			return nil
		},
	}
	// a re-run replaces the pending removal
	x.scheduler.DeleteOneTimeJob(job.ID)
	if err := x.scheduler.AddOneTimeJob(job); err != nil {
		return fmt.Errorf("schedule output expiry: %w", err)
	}
	return nil
}
