package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tnikhil-24/ElderCare/internal/reminder"
)

func TestLoad_MissingFileGivesDefault(t *testing.T) {
	p, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

func TestLoad_ParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: Margaret
age: 81
conditions: [diabetes]
medications:
  - name: Vitamin D
    dosage: 1000 IU
    frequency: once daily
    times: ["09:00"]
emergency_contacts:
  - name: Ann
    phone: "555-0101"
    relation: daughter
`), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Margaret", p.Name)
	require.Len(t, p.Medications, 1)
	assert.Equal(t, "vitamin-d", p.Medications[0].ID)
	assert.Equal(t, []Contact{{Name: "Ann", Phone: "555-0101", Relation: "daughter"}}, p.ListContacts())
	assert.False(t, p.GeneralReminders)

	vocab := p.Vocabulary()
	require.Len(t, vocab, 1)
	assert.Equal(t, "Vitamin D", vocab[0].Name)
}

func TestLoad_RejectsBadTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("medications:\n  - name: X\n    times: [\"8am\"]\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	want := Default()
	want.Name = "Walter"
	require.NoError(t, want.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSeedReminders(t *testing.T) {
	drafts, err := Default().SeedReminders()
	require.NoError(t, err)
	// Metformin twice, Lisinopril once, three general reminders.
	require.Len(t, drafts, 6)

	assert.Equal(t, "Metformin", drafts[0].Subject)
	assert.Equal(t, reminder.KindMedication, drafts[0].Kind)
	assert.Equal(t, "Time to take your Metformin, 500mg.", drafts[0].Message)
	require.NotNil(t, drafts[0].Rule.Anchor)
	assert.Equal(t, reminder.TimeOfDay{Hour: 8}, *drafts[0].Rule.Anchor)
	assert.Equal(t, reminder.TimeOfDay{Hour: 20}, *drafts[1].Rule.Anchor)

	assert.Equal(t, "water", drafts[3].Subject)
	assert.Equal(t, reminder.TimeOfDay{Hour: 14}, *drafts[4].Rule.Anchor)

	p := Default()
	p.GeneralReminders = false
	drafts, err = p.SeedReminders()
	require.NoError(t, err)
	assert.Len(t, drafts, 3)
}

func TestSummary(t *testing.T) {
	s := Default().Summary()
	assert.Contains(t, s, "Name: User")
	assert.Contains(t, s, "Metformin 500mg twice daily")
	assert.Contains(t, s, "Health conditions: diabetes, hypertension")
}

func TestClone_IsIndependent(t *testing.T) {
	p := Default()
	c := p.Clone()
	c.Name = "Rose"
	c.Medications[0].Times[0] = "07:00"
	c.Contacts[0].Phone = "000"

	assert.Equal(t, "User", p.Name)
	assert.Equal(t, "08:00", p.Medications[0].Times[0])
	assert.Equal(t, "123-456-7890", p.Contacts[0].Phone)
}

func TestAddAndRemoveMedication(t *testing.T) {
	p := Default()

	m := p.AddMedication("Vitamin D")
	assert.Equal(t, "vitamin-d", m.ID)
	assert.Equal(t, []string{"08:00"}, m.Times)
	assert.Len(t, p.Medications, 3)

	again := p.AddMedication("vitamin d")
	assert.Equal(t, "Vitamin D", again.Name)
	assert.Len(t, p.Medications, 3)

	removed, ok := p.RemoveMedication("metformin")
	require.True(t, ok)
	assert.Equal(t, "Metformin", removed.Name)
	_, ok = p.Medication("metformin")
	assert.False(t, ok)

	_, ok = p.RemoveMedication("metformin")
	assert.False(t, ok)
}

func TestSetPrimaryContact(t *testing.T) {
	p := Default()
	p.Contacts = append(p.Contacts, Contact{Name: "Anna", Phone: "111"})

	p.SetPrimaryContact(Contact{Name: "anna", Phone: "310-555-1234"})

	require.Len(t, p.Contacts, 2)
	assert.Equal(t, "310-555-1234", p.Contacts[0].Phone)
	assert.Equal(t, "Family Member", p.Contacts[1].Name)
}
