package config

import (
	"fmt"
	"time"
)

type RefresherConfig struct {
	Enabled      bool
	Interval     time.Duration
	ExpiryMargin time.Duration
}

func (c *RefresherConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Interval <= 0 {
		return fmt.Errorf("refresher interval (%s) needs to be greater than 0", c.Interval)
	}
	if c.ExpiryMargin < c.Interval {
		return fmt.Errorf("refresher expiry margin (%s) cannot be less than the interval (%s)", c.ExpiryMargin, c.Interval)
	}
	return nil
}
