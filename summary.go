package fastlane

import "time"

// Summary records the timing of one session.
//
// Invariant: Triggered implies 0 <= TriggerElapsed <= Total, and
// AllComplete implies 0 <= AllCompleteElapsed <= Total.
type Summary struct {
	Snapshots          int
	Rejections         int
	Triggered          bool
	TriggerElapsed     time.Duration // since the session started; zero if not triggered
	AllComplete        bool
	AllCompleteElapsed time.Duration // since the session started; zero unless AllComplete
	Total              time.Duration // since the session started, until stream end or failure
}

// TimeSaved is how much earlier the downstream job started than it would
// have if it had waited for the full result.
func (s Summary) TimeSaved() time.Duration {
	if !s.Triggered {
		return 0
	}
	return s.Total - s.TriggerElapsed
}

// SavingsPercent expresses TimeSaved as a percentage of Total. It is zero
// when the trigger never fired or Total is zero.
func (s Summary) SavingsPercent() float64 {
	if !s.Triggered || s.Total <= 0 {
		return 0
	}
	return float64(s.TimeSaved()) / float64(s.Total) * 100
}
