package probe

import "time"

// Runner configuration constants.
const (
	WorkerChannelMultiplier = 2
	PushWait                = 2 * time.Second
	PercentageMultiplier    = 100
)
