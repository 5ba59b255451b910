package dispatch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tnikhil-24/ElderCare/internal/reminder"
)

// SpokenTime renders a time of day the way people say it: "8 AM", "noon",
// "8:30 PM".
func SpokenTime(t reminder.TimeOfDay) string {
	switch {
	case t.Hour == 12 && t.Minute == 0:
		return "noon"
	case t.Hour == 0 && t.Minute == 0:
		return "midnight"
	}
	period := "AM"
	if t.Hour >= 12 {
		period = "PM"
	}
	h := t.Hour % 12
	if h == 0 {
		h = 12
	}
	if t.Minute == 0 {
		return fmt.Sprintf("%d %s", h, period)
	}
	return fmt.Sprintf("%d:%02d %s", h, t.Minute, period)
}

// joinSpoken joins items as "a, b and c".
func joinSpoken(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}

// number prints 145 as "145" and 6.5 as "6.5".
func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
