package parser

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tnikhil-24/ElderCare/internal/dialogue"
	"github.com/tnikhil-24/ElderCare/internal/intent"
	"github.com/tnikhil-24/ElderCare/internal/normalize"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newParser() *Parser {
	return New([]Medication{
		{ID: "metformin", Name: "Metformin"},
		{ID: "vitd", Name: "Vitamin D"},
		{ID: "lisinopril", Name: "Lisinopril"},
	})
}

func pending(m intent.Metric) dialogue.Context {
	return dialogue.NewManager(time.Minute).Update(dialogue.Context{}, intent.RecordMetric(m), now)
}

func parse(p *Parser, text string, c dialogue.Context) intent.Intent {
	return p.Parse(normalize.Tokens(text), text, c)
}

func TestParse_NoContext(t *testing.T) {
	p := newParser()
	cases := []struct {
		text string
		want intent.Intent
	}{
		{"", intent.Unknown()},
		{"um uh", intent.Unknown()},
		{"Record glucose", intent.RecordMetric(intent.MetricGlucose)},
		{"I want to check my blood sugar.", intent.RecordMetric(intent.MetricGlucose)},
		{"My blood sugar is 145 this morning", intent.RecordMetricValue(intent.MetricGlucose, 145, "morning")},
		{"I slept seven hours", intent.RecordMetricValue(intent.MetricSleep, 7, "")},
		{"record sleep", intent.RecordMetric(intent.MetricSleep)},
		{"I took my pills", intent.RecordMetric(intent.MetricMedicationAdherence)},
		{"I took my medication", intent.RecordMetric(intent.MetricMedicationAdherence)},
		{"record mood", intent.RecordMetric(intent.MetricMood)},
		{"What medications do I take?", intent.ListMedications()},
		{"show me my medication", intent.ListMedications()},
		{"How am I doing?", intent.HealthSummary()},
		{"what are my reminders", intent.ListReminders()},
		{"Goodbye!", intent.Goodbye()},
		{"I took my Metformin", intent.MedicationTaken("metformin")},
		{"just had my vitamin d", intent.MedicationTaken("vitd")},
		{"help", intent.Help()},
		{"What can you do?", intent.Help()},
		{"Help me!", intent.Emergency()},
		{"this is urgent", intent.Emergency()},
		{"Tell me a joke", intent.FreeForm("Tell me a joke")},
	}

	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			got := parse(p, tc.text, dialogue.Context{})
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tc.text, diff)
			}
		})
	}
}

func TestParse_SlotFill(t *testing.T) {
	p := newParser()
	cases := []struct {
		name string
		ctx  dialogue.Context
		text string
		want intent.Intent
	}{
		{"digits", pending(intent.MetricGlucose), "145", intent.RecordMetricValue(intent.MetricGlucose, 145, "")},
		{"spelled", pending(intent.MetricGlucose), "one hundred forty five", intent.RecordMetricValue(intent.MetricGlucose, 145, "")},
		{"spoken hundreds", pending(intent.MetricGlucose), "one forty five", intent.RecordMetricValue(intent.MetricGlucose, 145, "")},
		{"a hundred", pending(intent.MetricGlucose), "a hundred and twenty", intent.RecordMetricValue(intent.MetricGlucose, 120, "")},
		{"spelled with and", pending(intent.MetricGlucose), "one hundred and twenty in the evening", intent.RecordMetricValue(intent.MetricGlucose, 120, "evening")},
		{"half", pending(intent.MetricSleep), "about six and a half hours", intent.RecordMetricValue(intent.MetricSleep, 6.5, "")},
		{"decimal", pending(intent.MetricSleep), "6.5", intent.RecordMetricValue(intent.MetricSleep, 6.5, "")},
		{"yes", pending(intent.MetricMedicationAdherence), "Yes I did", intent.RecordMetricValue(intent.MetricMedicationAdherence, 1, "yes")},
		{"no", pending(intent.MetricMedicationAdherence), "no, I forgot one", intent.RecordMetricValue(intent.MetricMedicationAdherence, 0.5, "no")},
		{"wrong shape falls through", pending(intent.MetricGlucose), "what medications do I take", intent.ListMedications()},
		{"yes for a number slot", pending(intent.MetricGlucose), "yes", intent.FreeForm("yes")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parse(p, tc.text, tc.ctx)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tc.text, diff)
			}
		})
	}
}

func TestParse_SafetyBeatsPendingSlot(t *testing.T) {
	p := newParser()
	for _, m := range []intent.Metric{intent.MetricGlucose, intent.MetricMedicationAdherence} {
		c := pending(m)
		if got := parse(p, "emergency", c); got.Kind() != intent.KindEmergency {
			t.Errorf("pending %s: expected emergency, got %s", m, got)
		}
		if got := parse(p, "help", c); got.Kind() != intent.KindHelp {
			t.Errorf("pending %s: expected help, got %s", m, got)
		}
		// A number next to a safety phrase is still an emergency.
		if got := parse(p, "help me 145", c); got.Kind() != intent.KindEmergency {
			t.Errorf("pending %s: expected emergency, got %s", m, got)
		}
	}
}

func TestParse_ExpiredContextParsesFresh(t *testing.T) {
	p := newParser()
	m := dialogue.NewManager(time.Minute)
	c := m.Current(pending(intent.MetricGlucose), now.Add(2*time.Minute))

	got := parse(p, "145", c)
	if got.Kind() != intent.KindFreeForm {
		t.Errorf("expected free form after expiry, got %s", got)
	}
}

func TestParse_LongestMatchWins(t *testing.T) {
	p := newParser()
	// "my medication" lists, "took my medication" records adherence.
	got := parse(p, "took my medication", dialogue.Context{})
	if diff := cmp.Diff(intent.RecordMetric(intent.MetricMedicationAdherence), got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	// "help" is Help but "help me" is an emergency.
	if got := parse(p, "please help me now", dialogue.Context{}); got.Kind() != intent.KindEmergency {
		t.Errorf("expected emergency, got %s", got)
	}
}

func TestNumber(t *testing.T) {
	cases := map[string]float64{
		"145":                    145,
		"6.5":                    6.5,
		"7 and a half":           7.5,
		"seven":                  7,
		"twenty two":             22,
		"one hundred forty five": 145,
		"two hundred":            200,
		"five point five":        5.5,
		"about eight hours":      8,
		"one forty five":         145,
		"a hundred and twenty":   120,
		"hundred":                100,
		"one ten":                110,
		"ninety five":            95,
		"it was two twenty":      220,
	}
	for in, want := range cases {
		got, ok := number(normalize.Tokens(in))
		if !ok || got != want {
			t.Errorf("number(%q) = %v, %v; want %v", in, got, ok, want)
		}
	}

	for _, in := range []string{"no idea", "nan", "inf", "infinity", "1e9", "a lot"} {
		if v, ok := number(normalize.Tokens(in)); ok {
			t.Errorf("number(%q) = %v; expected no number", in, v)
		}
	}
}

func TestDigits(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"three one oh five five five one two three four", "3105551234"},
		{"310-555-1234", "3105551234"},
		{"my number is 555 0199", "5550199"},
		{"nothing here", ""},
	}
	for _, tc := range cases {
		if got := digits(normalize.Tokens(tc.in)); got != tc.want {
			t.Errorf("digits(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestParse_NanIsNotAReading(t *testing.T) {
	p := newParser()
	got := parse(p, "Nan", pending(intent.MetricGlucose))
	if got.Kind() != intent.KindFreeForm {
		t.Errorf("expected free form, got %s", got)
	}
}

func TestNew_SkipsBlankMedications(t *testing.T) {
	p := New([]Medication{{ID: "", Name: "x"}, {ID: "y", Name: "!!"}})
	if len(p.meds) != 0 {
		t.Errorf("expected no vocabulary, got %d", len(p.meds))
	}
}

func awaiting(in intent.Intent) dialogue.Context {
	return dialogue.NewManager(time.Minute).Update(dialogue.Context{}, in, now)
}

func TestParse_UpdateProfile(t *testing.T) {
	p := newParser()
	cases := []struct {
		name string
		ctx  dialogue.Context
		text string
		want intent.Intent
	}{
		{"trigger", dialogue.Context{}, "I want to update my profile", intent.UpdateProfile()},
		{"pick name", awaiting(intent.UpdateProfile()), "my name please", intent.UpdateProfileField(intent.FieldName, "")},
		{"pick contact", awaiting(intent.UpdateProfile()), "the contact person", intent.UpdateProfileField(intent.FieldContact, "")},
		{"pick medications", awaiting(intent.UpdateProfile()), "my medicines", intent.UpdateProfileField(intent.FieldMedications, "")},
		{"pick remove", awaiting(intent.UpdateProfileField(intent.FieldMedications, "")), "remove one", intent.UpdateProfileField(intent.FieldMedicationRemove, "")},
		{"age", awaiting(intent.UpdateProfileField(intent.FieldAge, "")), "I'm eighty two", intent.UpdateProfileField(intent.FieldAge, "").Fill(82, "")},
		{"name", awaiting(intent.UpdateProfileField(intent.FieldName, "")), "Rose Marie", intent.UpdateProfileField(intent.FieldName, "").FillText("Rose Marie")},
		{"phone", awaiting(intent.UpdateProfileField(intent.FieldContactPhone, "Anna")), "three one oh, 555, one two three four",
			intent.UpdateProfileField(intent.FieldContactPhone, "Anna").FillText("3105551234")},
		{"remove by name", awaiting(intent.UpdateProfileField(intent.FieldMedicationRemove, "")), "the vitamin d please",
			intent.UpdateProfileField(intent.FieldMedicationRemove, "").FillText("vitd")},
		{"remove by number", awaiting(intent.UpdateProfileField(intent.FieldMedicationRemove, "")), "number two",
			intent.UpdateProfileField(intent.FieldMedicationRemove, "").Fill(2, "")},
		{"commands escape a text slot", awaiting(intent.UpdateProfileField(intent.FieldName, "")), "goodbye", intent.Goodbye()},
		{"safety wins", awaiting(intent.UpdateProfileField(intent.FieldName, "")), "help me", intent.Emergency()},
		{"no field named", awaiting(intent.UpdateProfile()), "tell me a joke", intent.FreeForm("tell me a joke")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parse(p, tc.text, tc.ctx)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tc.text, diff)
			}
		})
	}
}
