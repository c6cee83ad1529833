package ratelimit

import (
	"fmt"
	"time"
)

// Profile controls how a batch of outbound requests is paced.
type Profile struct {
	Name              string
	BatchSize         int
	InterBatchDelay   time.Duration
	InterRequestDelay time.Duration
}

// Named profiles. Conservative is meant for accounts that throttle
// aggressively; aggressive assumes generous quota.
var (
	Conservative = Profile{Name: "conservative", BatchSize: 3, InterBatchDelay: 5 * time.Second, InterRequestDelay: 500 * time.Millisecond}
	Normal       = Profile{Name: "normal", BatchSize: 5, InterBatchDelay: 2 * time.Second, InterRequestDelay: 200 * time.Millisecond}
	Aggressive   = Profile{Name: "aggressive", BatchSize: 10, InterBatchDelay: time.Second, InterRequestDelay: 50 * time.Millisecond}
)

// ProfileByName resolves a configured profile name.
func ProfileByName(name string) (Profile, error) {
	switch name {
	case "conservative":
		return Conservative, nil
	case "normal", "":
		return Normal, nil
	case "aggressive":
		return Aggressive, nil
	default:
		return Profile{}, fmt.Errorf("unknown rate-limit profile: %q", name)
	}
}
