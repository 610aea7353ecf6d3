package usage

import (
	"fmt"
	"time"
)

// Window durations are fixed by product policy: a per-minute and a
// per-hour tumbling window, each rolling exactly one duration after its
// own start, not at calendar boundaries.
const (
	MinuteWindow = time.Minute
	HourWindow   = time.Hour
)

type Tier string

const (
	TierMinute Tier = "minute"
	TierHour   Tier = "hour"
)

// Counter tracks AI-tool invocations for one principal across both
// windows. It is created lazily on first use and never deleted here.
type Counter struct {
	PrincipalID       string    `json:"principal_id"`
	CallsThisMinute   int       `json:"calls_this_minute"`
	CallsThisHour     int       `json:"calls_this_hour"`
	MinuteWindowStart time.Time `json:"minute_window_start"`
	HourWindowStart   time.Time `json:"hour_window_start"`
}

// NewCounter returns a zeroed counter with both window starts floored to
// their window boundary.
func NewCounter(principalID string, now time.Time) *Counter {
	return &Counter{
		PrincipalID:       principalID,
		MinuteWindowStart: now.Truncate(MinuteWindow),
		HourWindowStart:   now.Truncate(HourWindow),
	}
}

// advanceStart returns the window start that covers now. Starts advance
// in whole window multiples from their own origin, so a window that
// began at T rolls at exactly T+window, not at the next clock boundary.
// A start in the future (device clock skew) is re-based to now.
func advanceStart(start time.Time, window time.Duration, now time.Time) time.Time {
	if start.After(now) {
		return now
	}
	elapsed := now.Sub(start)
	if elapsed < window {
		return start
	}
	return start.Add(elapsed / window * window)
}

func minuteStale(c *Counter, now time.Time) bool {
	return c.MinuteWindowStart.After(now) || now.Sub(c.MinuteWindowStart) >= MinuteWindow
}

func hourStale(c *Counter, now time.Time) bool {
	return c.HourWindowStart.After(now) || now.Sub(c.HourWindowStart) >= HourWindow
}

// Rollover applies any pending window resets in place. It is called on
// the write path only; reads use the Effective* projections instead.
func (c *Counter) Rollover(now time.Time) {
	if minuteStale(c, now) {
		c.CallsThisMinute = 0
		c.MinuteWindowStart = advanceStart(c.MinuteWindowStart, MinuteWindow, now)
	}
	if hourStale(c, now) {
		c.CallsThisHour = 0
		c.HourWindowStart = advanceStart(c.HourWindowStart, HourWindow, now)
	}
}

// Increment counts one allowed invocation in both windows.
func (c *Counter) Increment() {
	c.CallsThisMinute++
	c.CallsThisHour++
}

// EffectiveMinuteCalls is the minute count after a conceptual rollover,
// without mutating the counter.
func (c *Counter) EffectiveMinuteCalls(now time.Time) int {
	if minuteStale(c, now) {
		return 0
	}
	return c.CallsThisMinute
}

// EffectiveHourCalls is the hour count after a conceptual rollover.
func (c *Counter) EffectiveHourCalls(now time.Time) int {
	if hourStale(c, now) {
		return 0
	}
	return c.CallsThisHour
}

// NextMinuteReset is when the minute window covering now will roll.
func (c *Counter) NextMinuteReset(now time.Time) time.Time {
	return advanceStart(c.MinuteWindowStart, MinuteWindow, now).Add(MinuteWindow)
}

// NextHourReset is when the hour window covering now will roll.
func (c *Counter) NextHourReset(now time.Time) time.Time {
	return advanceStart(c.HourWindowStart, HourWindow, now).Add(HourWindow)
}

// Policy is a pair of limits, one per tier. Window durations are fixed.
type Policy struct {
	Name        string `json:"name"`
	MinuteLimit int    `json:"minute_limit"`
	HourLimit   int    `json:"hour_limit"`
}

// The two product policies, mirroring the free and premium plans.
var (
	StandardPolicy = Policy{Name: "standard", MinuteLimit: 3, HourLimit: 20}
	UpgradedPolicy = Policy{Name: "upgraded", MinuteLimit: 10, HourLimit: 100}
)

// Decision is the outcome of a quota check. A denied decision is an
// expected, policy-driven state; the Reason is user-facing copy and must
// never read as an error.
type Decision struct {
	Allowed bool          `json:"allowed"`
	Tier    Tier          `json:"limit_type,omitempty"`
	Reason  string        `json:"reason,omitempty"`
	ResetIn time.Duration `json:"-"`
}

// Quota is the read-only projection shown in the usage bar.
type Quota struct {
	RemainingMinute int       `json:"remaining_minute"`
	RemainingHour   int       `json:"remaining_hour"`
	NextResetMinute time.Time `json:"next_reset_minute"`
	NextResetHour   time.Time `json:"next_reset_hour"`
}

// ceilSeconds rounds a wait up to whole seconds so the displayed time is
// never shorter than the real one. Negative waits clamp to zero.
func ceilSeconds(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return (d + time.Second - 1).Truncate(time.Second)
}

func untilReset(resetAt, now time.Time) time.Duration {
	return ceilSeconds(resetAt.Sub(now))
}

// Evaluate decides whether one more call is allowed under the policy at
// the given instant. It applies window rollover conceptually only and
// never mutates the counter. When both tiers are exhausted, the one with
// the longer wait is reported so the displayed wait is not misleading.
func Evaluate(c *Counter, p Policy, now time.Time) *Decision {
	minuteExhausted := c.EffectiveMinuteCalls(now) >= p.MinuteLimit
	hourExhausted := c.EffectiveHourCalls(now) >= p.HourLimit

	if !minuteExhausted && !hourExhausted {
		return &Decision{Allowed: true}
	}

	minuteWait := untilReset(c.NextMinuteReset(now), now)
	hourWait := untilReset(c.NextHourReset(now), now)

	if minuteExhausted && (!hourExhausted || minuteWait >= hourWait) {
		return &Decision{
			Tier:    TierMinute,
			Reason:  fmt.Sprintf("Has alcanzado el límite de %d llamadas por minuto. Espera %d segundos.", p.MinuteLimit, int(minuteWait.Seconds())),
			ResetIn: minuteWait,
		}
	}
	return &Decision{
		Tier:    TierHour,
		Reason:  fmt.Sprintf("Has alcanzado el límite de %d llamadas por hora. Espera %d minutos.", p.HourLimit, int((hourWait+time.Minute-1)/time.Minute)),
		ResetIn: hourWait,
	}
}

// Project computes the quota view under the same conceptual-rollover
// rules as Evaluate, without mutating the counter.
func Project(c *Counter, p Policy, now time.Time) *Quota {
	remainingMinute := p.MinuteLimit - c.EffectiveMinuteCalls(now)
	if remainingMinute < 0 {
		remainingMinute = 0
	}
	remainingHour := p.HourLimit - c.EffectiveHourCalls(now)
	if remainingHour < 0 {
		remainingHour = 0
	}
	return &Quota{
		RemainingMinute: remainingMinute,
		RemainingHour:   remainingHour,
		NextResetMinute: c.NextMinuteReset(now),
		NextResetHour:   c.NextHourReset(now),
	}
}
