package reminder

import "time"

// first returns the first fire time of a new rule, never before created.
func (r Rule) first(created time.Time, loc *time.Location) time.Time {
	switch {
	case r.OneShot():
		if r.At.Before(created) {
			return created
		}
		return r.At
	case r.Anchor != nil:
		origin := created
		if !r.At.IsZero() && r.At.After(created) {
			origin = r.At
		}
		t := r.Anchor.on(origin, loc)
		for t.Before(origin) {
			t = r.step(t, loc)
		}
		return t
	case !r.At.IsZero():
		if !r.At.Before(created) {
			return r.At
		}
		// Stay on the grid that At defines.
		k := created.Sub(r.At) / r.Interval
		t := r.At.Add(k * r.Interval)
		if t.Before(created) {
			t = t.Add(r.Interval)
		}
		return t
	default:
		return created.Add(r.Interval)
	}
}

// catchUp counts the grid occurrences in [scheduled, now] and returns the
// first grid point strictly after now. scheduled must not be after now.
func (r Rule) catchUp(scheduled, now time.Time, loc *time.Location) (int, time.Time) {
	if r.Anchor == nil {
		k := now.Sub(scheduled)/r.Interval + 1
		return int(k), scheduled.Add(k * r.Interval)
	}
	n := 0
	t := scheduled
	for !t.After(now) {
		n++
		t = r.step(t, loc)
	}
	return n, t
}

// step advances an anchored grid point by the rule's whole-day interval,
// keeping the anchor's wall-clock time across daylight saving changes.
func (r Rule) step(t time.Time, loc *time.Location) time.Time {
	days := int(r.Interval / (24 * time.Hour))
	return r.Anchor.on(t.In(loc).AddDate(0, 0, days), loc)
}
