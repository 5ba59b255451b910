package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tnikhil-24/ElderCare/internal/intent"
)

const summaryWindow = 7 * 24 * time.Hour

// healthSummary describes the last week of records in a few sentences.
func (d *Dispatcher) healthSummary(ctx context.Context) (string, error) {
	if d.records == nil {
		return "I don't have enough health data yet to identify any trends.", nil
	}
	recs, err := d.records.Query(ctx, "", d.now().Add(-summaryWindow))
	if err != nil {
		slog.Error("failed to query health records", "error", err)
		return "I'm having trouble looking at your health data right now.", err
	}
	if len(recs) < 3 {
		return "I don't have enough health data yet to identify any trends.", nil
	}

	sums := make(map[intent.Metric]float64)
	counts := make(map[intent.Metric]int)
	for _, r := range recs {
		sums[r.Metric] += r.Value
		counts[r.Metric]++
	}
	avg := func(m intent.Metric) (float64, bool) {
		if counts[m] == 0 {
			return 0, false
		}
		return sums[m] / float64(counts[m]), true
	}

	var insights []string
	if g, ok := avg(intent.MetricGlucose); ok {
		switch {
		case g > 180:
			insights = append(insights, fmt.Sprintf("Your blood sugar has been running high at around %.0f on average.", g))
		case g < 70:
			insights = append(insights, fmt.Sprintf("Your blood sugar has been running low at around %.0f on average.", g))
		default:
			insights = append(insights, fmt.Sprintf("Your blood sugar has been in a good range at around %.0f on average.", g))
		}
	}
	if a, ok := avg(intent.MetricMedicationAdherence); ok {
		rate := a * 100
		if rate < 80 {
			insights = append(insights, fmt.Sprintf("You've been taking your medications about %.0f%% of the time. Let's work on improving that.", rate))
		} else {
			insights = append(insights, fmt.Sprintf("Great job taking your medications about %.0f%% of the time.", rate))
		}
	}
	if s, ok := avg(intent.MetricSleep); ok {
		if s < 6 {
			insights = append(insights, fmt.Sprintf("You've been getting about %.1f hours of sleep on average, which is less than recommended.", s))
		} else {
			insights = append(insights, fmt.Sprintf("You've been getting about %.1f hours of sleep on average, which is good.", s))
		}
	}
	if m, ok := avg(intent.MetricMood); ok {
		insights = append(insights, fmt.Sprintf("Your mood has averaged %.0f out of ten.", m))
	}

	if len(insights) == 0 {
		return "I don't have enough recent health data to give you a summary.", nil
	}
	return strings.Join(insights, " "), nil
}
