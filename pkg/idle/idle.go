// Package idle computes how long a resource has been continuously idle from
// sparse CloudWatch-style datapoints.
package idle

import (
	"sort"
	"time"
)

// Sample is a single aggregated metric datapoint.
type Sample struct {
	Timestamp time.Time
	Value     float64
}

// Result is an idle duration in hours, or Unknown when the metric returned no
// data. Unknown is distinct from zero: zero means the resource was active for
// the whole window, Unknown means we cannot tell.
type Result struct {
	hours float64
	known bool
}

// Unknown reports a metric with no datapoints.
func Unknown() Result { return Result{} }

// Hours wraps a known idle duration.
func Hours(h float64) Result { return Result{hours: h, known: true} }

// Known reports whether the result carries data.
func (r Result) Known() bool { return r.known }

// Hours returns the idle duration. Only meaningful when Known.
func (r Result) Hours() float64 { return r.hours }

// Compute returns the duration of the most recent contiguous idle run ending
// at the latest sample. A sample is idle when its value is strictly below
// threshold. The run is walked newest-to-oldest and ends at the first gap
// strictly greater than one sampling period; a gap of exactly one period does
// not break the run.
//
// An empty series yields Unknown. A series with no idle samples yields 0.
// A single idle sample also yields 0: there is no earlier point to measure a
// run against.
func Compute(samples []Sample, threshold float64, period time.Duration) Result {
	if len(samples) == 0 {
		return Unknown()
	}

	var idleTimes []time.Time
	for _, s := range samples {
		if s.Value < threshold {
			idleTimes = append(idleTimes, s.Timestamp)
		}
	}
	if len(idleTimes) == 0 {
		return Hours(0)
	}

	// Newest first.
	sort.Slice(idleTimes, func(i, j int) bool {
		return idleTimes[i].After(idleTimes[j])
	})

	start := idleTimes[len(idleTimes)-1]
	for i := 0; i < len(idleTimes)-1; i++ {
		cur, prev := idleTimes[i], idleTimes[i+1]
		if cur.Sub(prev) > period {
			// First break in idleness: the most recent run started here.
			start = cur
			break
		}
	}

	return Hours(idleTimes[0].Sub(start).Hours())
}
