package idle

// Longest returns the longer of two directional results (packets in/out,
// read/write ops). A direction with no data does not shorten the combined
// window: Unknown loses to any known value, and two Unknowns stay Unknown.
func Longest(a, b Result) Result {
	switch {
	case !a.known && !b.known:
		return Unknown()
	case !a.known:
		return b
	case !b.known:
		return a
	case a.hours >= b.hours:
		return a
	default:
		return b
	}
}

// Categories holds the per-signal idle durations for one instance.
type Categories struct {
	CPU     Result
	Disk    Result
	Network Result
}

// Effective reduces the categories to a single idle duration: the minimum
// across signals that reported data. An instance is only idle for as long as
// every signal agrees. Categories with no data are excluded rather than
// treated as infinitely idle; if nothing reported, the result is Unknown and
// callers must not act on it.
func (c Categories) Effective() Result {
	out := Unknown()
	for _, r := range []Result{c.CPU, c.Disk, c.Network} {
		if !r.known {
			continue
		}
		if !out.known || r.hours < out.hours {
			out = r
		}
	}
	return out
}
