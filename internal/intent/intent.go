// Package intent defines the structured form of what the user asked for.
//
// An Intent is a tagged value: Kind says which variant it is and only the
// accessors that belong to that variant carry data. Intents are built through
// the constructors below and never change afterwards; Fill returns a copy.
package intent

import "fmt"

type Kind string

const (
	KindUnknown               Kind = "unknown"
	KindRecordMetric          Kind = "record_metric"
	KindListMedications       Kind = "list_medications"
	KindRecordMedicationTaken Kind = "record_medication_taken"
	KindHealthSummary         Kind = "health_summary"
	KindEmergency             Kind = "emergency"
	KindHelp                  Kind = "help"
	KindFreeForm              Kind = "free_form"
	KindGoodbye               Kind = "goodbye"
	KindListReminders         Kind = "list_reminders"
	KindUpdateProfile         Kind = "update_profile"

	// KindReminderDue is synthetic: the scheduler produces it, the parser never does.
	KindReminderDue Kind = "reminder_due"
)

// Metric is the kind of health measurement a RecordMetric intent carries.
type Metric string

const (
	MetricGlucose             Metric = "glucose"
	MetricSleep               Metric = "sleep"
	MetricMedicationAdherence Metric = "medication_adherence"
	MetricMood                Metric = "mood"
)

// Field is the part of the profile an UpdateProfile intent changes. Some
// fields are steps of a longer exchange: FieldMedications asks whether to add
// or remove, and FieldContactPhone follows FieldContact.
type Field string

const (
	FieldUnset            Field = ""
	FieldName             Field = "name"
	FieldAge              Field = "age"
	FieldMedications      Field = "medications"
	FieldMedicationAdd    Field = "medication_add"
	FieldMedicationRemove Field = "medication_remove"
	FieldContact          Field = "contact"
	FieldContactPhone     Field = "contact_phone"
)

// Slot describes the shape of the value a pending intent is waiting for.
type Slot int

const (
	SlotNone Slot = iota
	SlotNumber
	SlotYesNo
	// SlotField is a choice between profile fields.
	SlotField
	// SlotText takes the answer as said.
	SlotText
)

func (s Slot) String() string {
	switch s {
	case SlotNumber:
		return "number"
	case SlotYesNo:
		return "yes_no"
	case SlotField:
		return "field"
	case SlotText:
		return "text"
	default:
		return "none"
	}
}

// SlotFor returns the value shape a metric is recorded with.
func SlotFor(m Metric) Slot {
	if m == MetricMedicationAdherence {
		return SlotYesNo
	}
	return SlotNumber
}

type Intent struct {
	kind       Kind
	metric     Metric
	value      float64
	hasValue   bool
	note       string
	medication string
	text       string
	reminderID string
	field      Field
}

func Unknown() Intent         { return Intent{kind: KindUnknown} }
func ListMedications() Intent { return Intent{kind: KindListMedications} }
func HealthSummary() Intent   { return Intent{kind: KindHealthSummary} }
func Emergency() Intent       { return Intent{kind: KindEmergency} }
func Help() Intent            { return Intent{kind: KindHelp} }
func Goodbye() Intent         { return Intent{kind: KindGoodbye} }
func ListReminders() Intent   { return Intent{kind: KindListReminders} }

// RecordMetric is a metric recording that still needs its value.
func RecordMetric(m Metric) Intent {
	return Intent{kind: KindRecordMetric, metric: m}
}

// RecordMetricValue is a complete metric recording.
func RecordMetricValue(m Metric, v float64, note string) Intent {
	return Intent{kind: KindRecordMetric, metric: m, value: v, hasValue: true, note: note}
}

// MedicationTaken records that a single named medication was taken.
func MedicationTaken(medicationID string) Intent {
	return Intent{kind: KindRecordMedicationTaken, medication: medicationID}
}

// UpdateProfile starts a profile change by asking which field to change.
func UpdateProfile() Intent { return Intent{kind: KindUpdateProfile} }

// UpdateProfileField waits for the new value of f. note carries what earlier
// steps collected, such as the contact name while the phone is asked for.
func UpdateProfileField(f Field, note string) Intent {
	return Intent{kind: KindUpdateProfile, field: f, note: note}
}

func FreeForm(text string) Intent {
	return Intent{kind: KindFreeForm, text: text}
}

func ReminderDue(reminderID string) Intent {
	return Intent{kind: KindReminderDue, reminderID: reminderID}
}

func (i Intent) Kind() Kind             { return i.kind }
func (i Intent) Metric() Metric         { return i.metric }
func (i Intent) Note() string           { return i.note }
func (i Intent) MedicationID() string   { return i.medication }
func (i Intent) Text() string           { return i.text }
func (i Intent) ReminderID() string     { return i.reminderID }
func (i Intent) Value() (float64, bool) { return i.value, i.hasValue }
func (i Intent) Field() Field           { return i.field }

// Pending reports whether the intent is waiting for a slot value.
func (i Intent) Pending() bool {
	return (i.kind == KindRecordMetric || i.kind == KindUpdateProfile) && !i.hasValue
}

// ExpectedSlot is the shape of the value a pending intent needs, or SlotNone.
func (i Intent) ExpectedSlot() Slot {
	if !i.Pending() {
		return SlotNone
	}
	if i.kind == KindUpdateProfile {
		switch i.field {
		case FieldUnset, FieldMedications:
			return SlotField
		case FieldAge:
			return SlotNumber
		default:
			return SlotText
		}
	}
	return SlotFor(i.metric)
}

// SafetyCritical intents bypass any pending dialogue context.
func (i Intent) SafetyCritical() bool {
	return i.kind == KindEmergency || i.kind == KindHelp
}

// Fill completes a pending intent. It returns the receiver unchanged when the
// intent is not pending.
func (i Intent) Fill(v float64, note string) Intent {
	if !i.Pending() {
		return i
	}
	if i.kind == KindUpdateProfile {
		i.value, i.hasValue = v, true
		return i
	}
	return RecordMetricValue(i.metric, v, note)
}

// FillText completes a pending profile change with a spoken answer.
func (i Intent) FillText(s string) Intent {
	if !i.Pending() || i.kind != KindUpdateProfile {
		return i
	}
	i.text, i.hasValue = s, true
	return i
}

// Equal lets go-cmp and tests compare intents without exporting fields.
func (i Intent) Equal(o Intent) bool {
	return i == o
}

func (i Intent) String() string {
	switch i.kind {
	case KindRecordMetric:
		if i.hasValue {
			return fmt.Sprintf("%s(%s, %g)", i.kind, i.metric, i.value)
		}
		return fmt.Sprintf("%s(%s, pending)", i.kind, i.metric)
	case KindUpdateProfile:
		if !i.hasValue {
			return fmt.Sprintf("%s(%s, pending)", i.kind, i.field)
		}
		if i.text != "" {
			return fmt.Sprintf("%s(%s, %q)", i.kind, i.field, i.text)
		}
		return fmt.Sprintf("%s(%s, %g)", i.kind, i.field, i.value)
	case KindRecordMedicationTaken:
		return fmt.Sprintf("%s(%s)", i.kind, i.medication)
	case KindFreeForm:
		return fmt.Sprintf("%s(%q)", i.kind, i.text)
	case KindReminderDue:
		return fmt.Sprintf("%s(%s)", i.kind, i.reminderID)
	default:
		return string(i.kind)
	}
}
