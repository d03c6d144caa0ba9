package jobs

import (
	"fmt"
	"time"

	"github.com/zeptools/gw-impose/merge"
	"github.com/zeptools/gw-impose/pdfs"
)

// Conf is loaded from config/.imposition.json
type Conf struct {
	TempDir           string           `json:"temp_dir"`
	OutputDir         string           `json:"output_dir"`
	BatchSize         int              `json:"batch_size"`          // sheets per temp file, default 20
	MaxConcurrentJobs int              `json:"max_concurrent_jobs"` // 0 = unbounded
	MaxUploadMB       int64            `json:"max_upload_mb"`
	OutputRetention   string           `json:"output_retention"` // e.g. "72h", empty = keep
	SweepOlderThan    string           `json:"sweep_older_than"` // e.g. "6h"
	StatusTTL         string           `json:"status_ttl"`       // e.g. "168h"
	RecentJobs        int              `json:"recent_jobs"`
	Merger            merge.Options    `json:"merger"`
	Sheets            []pdfs.PaperSize `json:"sheets"` // used when no SQL catalog is configured; empty = builtin list
}

const (
	DefaultSweepOlderThan = 6 * time.Hour
	DefaultMaxUploadMB    = 512
)

func parseDuration(field, v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", field, d)
	}
	return d, nil
}

// Retention is how long a finished output is kept. 0 means forever.
func (c Conf) Retention() (time.Duration, error) {
	return parseDuration("output_retention", c.OutputRetention, 0)
}

func (c Conf) SweepAge() (time.Duration, error) {
	return parseDuration("sweep_older_than", c.SweepOlderThan, DefaultSweepOlderThan)
}

func (c Conf) StatusTTLDuration() (time.Duration, error) {
	return parseDuration("status_ttl", c.StatusTTL, DefaultStatusTTL)
}

// UploadLimit is the largest accepted source upload in bytes
func (c Conf) UploadLimit() int64 {
	if c.MaxUploadMB <= 0 {
		return DefaultMaxUploadMB << 20
	}
	return c.MaxUploadMB << 20
}

// Catalog returns the configured fallback sheet list
func (c Conf) Catalog() pdfs.Catalog {
	if len(c.Sheets) == 0 {
		return pdfs.DefaultCatalog()
	}
	catalog := make(pdfs.Catalog, 0, len(c.Sheets))
	for _, p := range c.Sheets {
		catalog = append(catalog, pdfs.NewPaperSize(p.Name, p.LongSide, p.ShortSide))
	}
	return catalog
}
