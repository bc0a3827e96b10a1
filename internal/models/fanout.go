package models

import "time"

type FanOutOutcome string

const (
	FanOutComplete FanOutOutcome = "complete"
	FanOutPartial  FanOutOutcome = "partial"
	FanOutFailed   FanOutOutcome = "failed"
)

// FanOutReport describes a write issued to several targets at once
// (emergency shutdown, all-on/all-off). Only targets listed in Succeeded
// are known to have been switched.
type FanOutReport struct {
	Outcome    FanOutOutcome     `json:"outcome"`
	Succeeded  []string          `json:"succeeded"`
	Failed     map[string]string `json:"failed,omitempty"` // target -> error
	StartedAt  time.Time         `json:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt"`
}
