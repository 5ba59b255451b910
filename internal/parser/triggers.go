package parser

import (
	"strings"

	"github.com/tnikhil-24/ElderCare/internal/intent"
)

type trigger struct {
	phrase []string
	build  func() intent.Intent
}

func phrases(build func() intent.Intent, ps ...string) []trigger {
	out := make([]trigger, 0, len(ps))
	for _, p := range ps {
		out = append(out, trigger{phrase: strings.Fields(p), build: build})
	}
	return out
}

func metric(m intent.Metric) func() intent.Intent {
	return func() intent.Intent { return intent.RecordMetric(m) }
}

// safetyTable is matched before anything else, regardless of dialogue state.
var safetyTable = concat(
	phrases(intent.Emergency, "emergency", "help me", "need help", "call for help", "urgent", "call an ambulance", "i fell", "i have fallen"),
	phrases(intent.Help, "help", "what can you do", "commands", "options", "features"),
)

// commandTable maps trigger phrases to canonical intents. Order breaks ties
// between phrases of equal length.
var commandTable = concat(
	phrases(metric(intent.MetricGlucose), "record glucose", "blood sugar", "glucose reading", "sugar level", "glucose", "check my sugar"),
	phrases(metric(intent.MetricSleep), "record sleep", "how i slept", "sleep hours", "hours of sleep", "i slept"),
	phrases(metric(intent.MetricMedicationAdherence),
		"record medication", "took my pills", "medication taken", "took my medication", "took my medicine", "took my medicines"),
	phrases(metric(intent.MetricMood), "record mood", "my mood", "mood"),
	phrases(intent.HealthSummary, "how am i doing", "my health data", "health report", "health summary", "progress"),
	phrases(intent.ListMedications,
		"list medication", "list medications", "my medication", "my medications", "what medications", "show medicines", "which pills"),
	phrases(intent.ListReminders, "list reminders", "my reminders", "what reminders"),
	phrases(intent.UpdateProfile, "update profile", "update my profile", "change my information", "update my details", "my profile"),
	phrases(intent.Goodbye, "exit", "quit", "goodbye", "bye", "stop listening", "shut down"),
)

// tookWords mark an utterance as a report that a named medication was taken.
var tookWords = map[string]bool{"took": true, "taken": true, "had": true}

// fieldWords pick the profile field to change. Contact comes first so that
// "contact name" is a contact.
var fieldWords = []struct {
	words []string
	field intent.Field
}{
	{[]string{"contact", "contacts", "caregiver"}, intent.FieldContact},
	{[]string{"name", "call"}, intent.FieldName},
	{[]string{"age", "old", "birthday"}, intent.FieldAge},
	{[]string{"medication", "medications", "medicine", "medicines", "pills"}, intent.FieldMedications},
}

var medicationActions = []struct {
	words []string
	field intent.Field
}{
	{[]string{"add", "new", "started", "start"}, intent.FieldMedicationAdd},
	{[]string{"remove", "delete", "stopped", "stop", "drop"}, intent.FieldMedicationRemove},
}

func concat(groups ...[]trigger) []trigger {
	var out []trigger
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// longestMatch returns the trigger with the longest contiguous phrase found in
// tokens. Equal lengths resolve to the earlier table entry.
func longestMatch(table []trigger, tokens []string) (trigger, bool) {
	var best trigger
	found := false
	for _, t := range table {
		if !containsPhrase(tokens, t.phrase) {
			continue
		}
		if !found || len(t.phrase) > len(best.phrase) {
			best, found = t, true
		}
	}
	return best, found
}

// containsPhrase reports whether phrase appears as a contiguous run in tokens.
func containsPhrase(tokens, phrase []string) bool {
	return indexPhrase(tokens, phrase) >= 0
}

func indexPhrase(tokens, phrase []string) int {
	if len(phrase) == 0 || len(phrase) > len(tokens) {
		return -1
	}
outer:
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		for j, w := range phrase {
			if tokens[i+j] != w {
				continue outer
			}
		}
		return i
	}
	return -1
}
