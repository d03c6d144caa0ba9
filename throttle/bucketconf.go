package throttle

import (
	"fmt"
	"time"
)

type BucketConf struct {
	Burst      int           `json:"burst"`     // maximum number of tokens in the bucket
	Increment  int           `json:"increment"` // how many tokens to add each period
	PeriodText string        `json:"period"`    // time.ParseDuration format
	Period     time.Duration `json:"-"`         // how often to add Increment. Filled by Prepare
}

// Prepare parses PeriodText and checks the numbers
func (c *BucketConf) Prepare() error {
	if c.PeriodText != "" {
		d, err := time.ParseDuration(c.PeriodText)
		if err != nil {
			return fmt.Errorf("throttle period: %w", err)
		}
		c.Period = d
	}
	if c.Burst < 1 || c.Increment < 1 || c.Period <= 0 {
		return fmt.Errorf("throttle needs burst, increment and period > 0, got %d, %d, %s", c.Burst, c.Increment, c.Period)
	}
	return nil
}
