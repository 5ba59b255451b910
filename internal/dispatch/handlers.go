package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/tnikhil-24/ElderCare/internal/intent"
	"github.com/tnikhil-24/ElderCare/internal/profile"
	"github.com/tnikhil-24/ElderCare/internal/reminder"
	"github.com/tnikhil-24/ElderCare/internal/session"
	"github.com/tnikhil-24/ElderCare/internal/store"
)

// maxAttempts is how many out-of-range answers are re-asked before giving up.
const maxAttempts = 2

type valueRange struct {
	min, max float64
}

// contains is false for NaN.
func (r valueRange) contains(v float64) bool {
	return v >= r.min && v <= r.max
}

var ranges = map[intent.Metric]valueRange{
	intent.MetricGlucose: {20, 600},
	intent.MetricSleep:   {0, 24},
	intent.MetricMood:    {1, 10},
}

var prompts = map[intent.Metric]string{
	intent.MetricGlucose:             "Let's record your blood glucose reading. What was your blood glucose number?",
	intent.MetricSleep:               "Let's record your sleep. How many hours did you sleep last night?",
	intent.MetricMedicationAdherence: "Let's record your medication. Did you take all your medications today? Please say yes or no.",
	intent.MetricMood:                "On a scale from one to ten, how are you feeling today?",
}

var retryPrompts = map[intent.Metric]string{
	intent.MetricGlucose: "%s doesn't seem right for blood sugar. Please tell me the number again.",
	intent.MetricSleep:   "%s hours doesn't seem right. Please tell me again how many hours you slept.",
	intent.MetricMood:    "Please pick a number from one to ten. %s is outside that range.",
}

const helpText = "Here are some things you can ask me. " +
	"For health tracking, say: record glucose, record sleep, or record medication. " +
	"To check your information, say: how am I doing, list medications, or my reminders. " +
	"To change your details, say: update my profile. " +
	"In an emergency, simply say: help me or emergency. " +
	"To end our conversation, just say goodbye."

func (d *Dispatcher) recordMetric(in intent.Intent, s *session.Session, p *Plan) {
	m := in.Metric()
	v, ok := in.Value()
	if !ok {
		p.Response = prompts[m]
		p.Await = intent.RecordMetric(m)
		return
	}

	if r, bounded := ranges[m]; bounded && !r.contains(v) {
		if exhausted(s, intent.RecordMetric(m)) {
			p.Response = "I'm having trouble with that number. Let's try again later."
			return
		}
		p.Response = fmt.Sprintf(retryPrompts[m], number(v))
		p.Await = intent.RecordMetric(m)
		return
	}

	now := d.now()
	note := in.Note()
	if m == intent.MetricGlucose && note == "" {
		note = "morning"
		if now.Hour() >= 12 {
			note = "evening"
		}
	}
	p.Effects = append(p.Effects, Effect{
		Kind: EffectAppendRecord,
		Record: store.HealthRecord{
			Metric:    m,
			Value:     v,
			Timestamp: now,
			Source:    d.source,
			Note:      note,
		},
	})
	p.Response = confirmation(m, v, note)
}

// exhausted reports whether await has already been asked for again and the
// answer is still unusable.
func exhausted(s *session.Session, await intent.Intent) bool {
	return s.Context.Active() && s.Context.Pending.Equal(await) && s.Context.Attempts+1 >= maxAttempts
}

func confirmation(m intent.Metric, v float64, note string) string {
	switch m {
	case intent.MetricGlucose:
		msg := fmt.Sprintf("I've recorded your %s glucose as %s.", note, number(v))
		switch {
		case v > 180:
			msg += " That's on the high side. Please keep an eye on it."
		case v < 70:
			msg += " That's low. Please have a snack with some sugar and check again soon."
		}
		return msg
	case intent.MetricSleep:
		msg := fmt.Sprintf("I've recorded %s hours of sleep.", number(v))
		switch {
		case v < 6:
			return msg + " That's a bit low. Did you have trouble sleeping?"
		case v > 10:
			return msg + " That's quite a lot of sleep. Are you feeling well rested?"
		default:
			return msg + " That's a good amount of sleep."
		}
	case intent.MetricMedicationAdherence:
		if v >= 1 {
			return "Great job! I've recorded that you took all your medications today."
		}
		return "I've recorded your medication information. Would a reminder help you remember the rest?"
	case intent.MetricMood:
		return fmt.Sprintf("Thank you. I've noted your mood as %s out of ten.", number(v))
	}
	return "I've recorded that."
}

func (d *Dispatcher) medicationTaken(in intent.Intent, s *session.Session, p *Plan) {
	med, ok := s.Profile.Medication(in.MedicationID())
	if !ok {
		p.Response = "I don't have that medication on your list."
		return
	}
	p.Effects = append(p.Effects, Effect{
		Kind: EffectAppendRecord,
		Record: store.HealthRecord{
			Metric:    intent.MetricMedicationAdherence,
			Value:     1,
			Timestamp: d.now(),
			Source:    d.source,
			Note:      med.ID,
		},
	})
	p.Response = fmt.Sprintf("Got it. I've noted that you took your %s.", med.Name)
}

func listMedications(p *profile.Profile) string {
	if len(p.Medications) == 0 {
		return "You don't have any medications in your profile yet."
	}
	parts := make([]string, 0, len(p.Medications))
	for _, m := range p.Medications {
		line := m.Name
		for _, extra := range []string{m.Dosage, m.Frequency} {
			if extra != "" {
				line += ", " + extra
			}
		}
		if len(m.Times) > 0 {
			spoken := make([]string, 0, len(m.Times))
			for _, t := range m.Times {
				tod, err := reminder.ParseTimeOfDay(t)
				if err != nil {
					continue
				}
				spoken = append(spoken, SpokenTime(tod))
			}
			if len(spoken) > 0 {
				line += ", at " + joinSpoken(spoken)
			}
		}
		parts = append(parts, line+".")
	}
	return "Here are your current medications: " + strings.Join(parts, " ")
}

func (d *Dispatcher) emergency(s *session.Session, p *Plan) {
	contacts := s.Profile.ListContacts()
	p.Effects = append(p.Effects, Effect{
		Kind: EffectNotifyCaregivers,
		Alert: Alert{
			UserName: s.Profile.Name,
			Text:     "Emergency requested by " + s.Profile.Name,
			Contacts: contacts,
			At:       d.now(),
		},
	})

	var b strings.Builder
	b.WriteString("I'm alerting your emergency contacts now.")
	for _, c := range contacts {
		fmt.Fprintf(&b, " You can reach %s at %s.", c.Name, c.Phone)
	}
	b.WriteString(" If you are in danger, please call emergency services right away.")
	p.Response = b.String()
}

func listReminders(s *session.Session) string {
	if s.Reminders == nil {
		return "You don't have any reminders set."
	}
	loc := s.Reminders.Location()
	var parts []string
	for _, r := range s.Reminders.List() {
		if !r.Enabled {
			continue
		}
		when := "at " + SpokenTime(reminder.TimeOfDay{Hour: r.NextFire.In(loc).Hour(), Minute: r.NextFire.In(loc).Minute()})
		if r.Rule.Anchor != nil && r.Rule.Interval == 24*time.Hour {
			when = "every day at " + SpokenTime(*r.Rule.Anchor)
		}
		parts = append(parts, r.Subject+" "+when)
	}
	switch len(parts) {
	case 0:
		return "You don't have any reminders set."
	case 1:
		return "You have one reminder: " + parts[0] + "."
	}
	return fmt.Sprintf("You have %d reminders: %s.", len(parts), joinSpoken(parts))
}

func announce(s *session.Session, reminderID string) string {
	if s.Reminders == nil {
		return ""
	}
	r, ok := s.Reminders.Get(reminderID)
	if !ok {
		return ""
	}
	msg := r.Message
	if msg == "" {
		switch r.Kind {
		case reminder.KindMedication:
			msg = "Time to take your " + r.Subject + "."
		default:
			msg = "Reminder: " + r.Subject + "."
		}
	}
	if r.Missed > 1 {
		msg += fmt.Sprintf(" This reminder came up %d times while we weren't talking.", r.Missed)
	}
	return msg
}
