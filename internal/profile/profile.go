// Package profile holds the user's personal details, medications and
// emergency contacts, stored as YAML.
package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tnikhil-24/ElderCare/internal/parser"
	"github.com/tnikhil-24/ElderCare/internal/reminder"
)

type Medication struct {
	ID        string   `yaml:"id" json:"id"`
	Name      string   `yaml:"name" json:"name"`
	Dosage    string   `yaml:"dosage" json:"dosage"`
	Frequency string   `yaml:"frequency" json:"frequency"`
	Times     []string `yaml:"times" json:"times"`
}

type Contact struct {
	Name     string `yaml:"name" json:"name"`
	Phone    string `yaml:"phone" json:"phone"`
	Relation string `yaml:"relation,omitempty" json:"relation,omitempty"`
}

type Profile struct {
	Name             string       `yaml:"name"`
	Age              int          `yaml:"age"`
	Conditions       []string     `yaml:"conditions"`
	Medications      []Medication `yaml:"medications"`
	Contacts         []Contact    `yaml:"emergency_contacts"`
	GeneralReminders bool         `yaml:"general_reminders"`
}

func Default() *Profile {
	return &Profile{
		Name:       "User",
		Age:        75,
		Conditions: []string{"diabetes", "hypertension"},
		Medications: []Medication{
			{ID: "metformin", Name: "Metformin", Dosage: "500mg", Frequency: "twice daily", Times: []string{"08:00", "20:00"}},
			{ID: "lisinopril", Name: "Lisinopril", Dosage: "10mg", Frequency: "once daily", Times: []string{"08:00"}},
		},
		Contacts:         []Contact{{Name: "Family Member", Phone: "123-456-7890"}},
		GeneralReminders: true,
	}
}

// Load reads the profile at path. A missing file yields the default profile.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if err := p.normalize(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return &p, nil
}

// Save writes the profile to path, replacing the file atomically.
func (p *Profile) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".profile-*.yaml")
	if err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write profile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// normalize fills medication ids and checks dose times.
func (p *Profile) normalize() error {
	for i := range p.Medications {
		m := &p.Medications[i]
		if m.ID == "" {
			m.ID = slug(m.Name)
		}
		for _, t := range m.Times {
			if _, err := reminder.ParseTimeOfDay(t); err != nil {
				return fmt.Errorf("medication %s: %w", m.Name, err)
			}
		}
	}
	return nil
}

func slug(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}

// Clone returns a deep copy that can be changed without touching p.
func (p *Profile) Clone() *Profile {
	c := *p
	c.Conditions = append([]string(nil), p.Conditions...)
	c.Contacts = append([]Contact(nil), p.Contacts...)
	c.Medications = make([]Medication, len(p.Medications))
	for i, m := range p.Medications {
		m.Times = append([]string(nil), m.Times...)
		c.Medications[i] = m
	}
	return &c
}

// AddMedication adds a daily morning medication called name. Adding a name
// that is already listed returns the existing entry.
func (p *Profile) AddMedication(name string) Medication {
	id := slug(name)
	if m, ok := p.Medication(id); ok {
		return m
	}
	m := Medication{ID: id, Name: name, Frequency: "daily", Times: []string{"08:00"}}
	p.Medications = append(p.Medications, m)
	return m
}

// RemoveMedication drops the medication with the given id.
func (p *Profile) RemoveMedication(id string) (Medication, bool) {
	for i, m := range p.Medications {
		if m.ID == id {
			p.Medications = append(p.Medications[:i:i], p.Medications[i+1:]...)
			return m, true
		}
	}
	return Medication{}, false
}

// SetPrimaryContact makes c the first emergency contact, replacing any
// contact with the same name.
func (p *Profile) SetPrimaryContact(c Contact) {
	out := []Contact{c}
	for _, old := range p.Contacts {
		if !strings.EqualFold(old.Name, c.Name) {
			out = append(out, old)
		}
	}
	p.Contacts = out
}

// ListContacts returns the emergency contacts.
func (p *Profile) ListContacts() []Contact {
	return append([]Contact(nil), p.Contacts...)
}

// Medication finds a medication by id.
func (p *Profile) Medication(id string) (Medication, bool) {
	for _, m := range p.Medications {
		if m.ID == id {
			return m, true
		}
	}
	return Medication{}, false
}

// Vocabulary lists the medication names the parser should recognise.
func (p *Profile) Vocabulary() []parser.Medication {
	out := make([]parser.Medication, 0, len(p.Medications))
	for _, m := range p.Medications {
		out = append(out, parser.Medication{ID: m.ID, Name: m.Name})
	}
	return out
}

// Summary is the short description given to the language model.
func (p *Profile) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", p.Name)
	if p.Age > 0 {
		fmt.Fprintf(&b, "Age: %d\n", p.Age)
	}
	if len(p.Conditions) > 0 {
		fmt.Fprintf(&b, "Health conditions: %s\n", strings.Join(p.Conditions, ", "))
	}
	if len(p.Medications) > 0 {
		meds := make([]string, 0, len(p.Medications))
		for _, m := range p.Medications {
			meds = append(meds, strings.TrimSpace(m.Name+" "+m.Dosage+" "+m.Frequency))
		}
		fmt.Fprintf(&b, "Medications: %s\n", strings.Join(meds, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// SeedReminders returns the daily reminders implied by the profile: one per
// medication dose time plus, when enabled, the general wellbeing reminders.
func (p *Profile) SeedReminders() ([]reminder.Draft, error) {
	var drafts []reminder.Draft
	for _, m := range p.Medications {
		for _, t := range m.Times {
			tod, err := reminder.ParseTimeOfDay(t)
			if err != nil {
				return nil, fmt.Errorf("medication %s: %w", m.Name, err)
			}
			msg := "Time to take your " + m.Name
			if m.Dosage != "" {
				msg += ", " + m.Dosage
			}
			drafts = append(drafts, reminder.Draft{
				Subject: m.Name,
				Kind:    reminder.KindMedication,
				Message: msg + ".",
				Rule:    reminder.Daily(tod),
			})
		}
	}
	if p.GeneralReminders {
		drafts = append(drafts,
			reminder.Draft{Subject: "water", Kind: reminder.KindGeneral,
				Message: "Remember to drink water throughout the day.", Rule: reminder.Daily(reminder.TimeOfDay{Hour: 10})},
			reminder.Draft{Subject: "walk", Kind: reminder.KindGeneral,
				Message: "It's a good time for a short walk if you're feeling up to it.", Rule: reminder.Daily(reminder.TimeOfDay{Hour: 14})},
			reminder.Draft{Subject: "health data", Kind: reminder.KindMetric,
				Message: "Would you like to record your health data for today?", Rule: reminder.Daily(reminder.TimeOfDay{Hour: 20})},
		)
	}
	return drafts, nil
}
