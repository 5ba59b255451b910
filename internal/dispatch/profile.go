package dispatch

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/tnikhil-24/ElderCare/internal/intent"
	"github.com/tnikhil-24/ElderCare/internal/normalize"
	"github.com/tnikhil-24/ElderCare/internal/profile"
	"github.com/tnikhil-24/ElderCare/internal/session"
)

const (
	minAge = 50
	maxAge = 110
)

// leadIns are dropped from the front of a spoken name.
var leadIns = [][]string{
	{"my", "name", "is"},
	{"the", "name", "is"},
	{"their", "name", "is"},
	{"her", "name", "is"},
	{"his", "name", "is"},
	{"it", "is"},
	{"its"},
	{"call", "me"},
	{"i", "am"},
	{"im"},
	{"add"},
	{"i", "take"},
}

func (d *Dispatcher) updateProfile(in intent.Intent, s *session.Session, p *Plan) {
	if in.Pending() {
		profilePrompt(in, s.Profile, p)
		return
	}

	next := s.Profile.Clone()
	switch in.Field() {
	case intent.FieldName:
		name := spokenName(in.Text(), false)
		if name == "" {
			retryProfile(in, s, p, "I didn't catch your name. Please say your name clearly.")
			return
		}
		next.Name = name
		p.Response = fmt.Sprintf("Thank you. I'll call you %s from now on.", name)

	case intent.FieldAge:
		v, _ := in.Value()
		age := int(v)
		if float64(age) != v || age < minAge || age > maxAge {
			retryProfile(in, s, p, fmt.Sprintf("The age %s doesn't seem right. Please tell me your age as a number.", number(v)))
			return
		}
		next.Age = age
		p.Response = fmt.Sprintf("Thank you. I've updated your age to %d.", age)

	case intent.FieldMedicationAdd:
		name := spokenName(in.Text(), true)
		if name == "" {
			retryProfile(in, s, p, "I need the name of the medication. Please say it again.")
			return
		}
		m := next.AddMedication(name)
		p.Response = fmt.Sprintf("I've added %s to your medications. I'll remind you to take it every morning at 8 AM.", m.Name)

	case intent.FieldMedicationRemove:
		id := in.Text()
		if v, ok := in.Value(); ok && id == "" {
			if i := int(v) - 1; float64(i+1) == v && i >= 0 && i < len(next.Medications) {
				id = next.Medications[i].ID
			}
		}
		m, ok := next.RemoveMedication(id)
		if !ok {
			retryProfile(in, s, p, "I couldn't find that medication in your list. Please say the number or the name.")
			return
		}
		p.Response = fmt.Sprintf("I've removed %s from your medications.", m.Name)

	case intent.FieldContact:
		name := spokenName(in.Text(), false)
		if name == "" {
			retryProfile(in, s, p, "I need a name for your contact person. Who should I call in an emergency?")
			return
		}
		// The contact is saved once the phone number is known.
		p.Response = fmt.Sprintf("Thank you. Now please say %s's phone number digit by digit.", name)
		p.Await = intent.UpdateProfileField(intent.FieldContactPhone, name)
		return

	case intent.FieldContactPhone:
		digits := in.Text()
		if len(digits) < 10 {
			retryProfile(in, s, p, "I couldn't recognize a valid phone number. Please say all ten digits, one at a time.")
			return
		}
		phone := digits[:3] + "-" + digits[3:6] + "-" + digits[6:10]
		next.SetPrimaryContact(profile.Contact{Name: in.Note(), Phone: phone})
		p.Response = fmt.Sprintf("Thank you. I've updated your emergency contact to %s with phone number %s.", in.Note(), phone)

	default:
		p.Response = "I'm sorry, I didn't understand what you'd like to update. You can change your name, age, medications, or contact person."
		return
	}
	p.Effects = append(p.Effects, Effect{Kind: EffectSaveProfile, Profile: next})
}

func profilePrompt(in intent.Intent, pr *profile.Profile, p *Plan) {
	p.Await = in
	switch in.Field() {
	case intent.FieldName:
		p.Response = fmt.Sprintf("Your current name is %s. What would you like me to call you instead?", pr.Name)
	case intent.FieldAge:
		p.Response = fmt.Sprintf("Your current age is %d. What is your correct age?", pr.Age)
	case intent.FieldMedications:
		p.Response = "Would you like to add a new medication or remove an existing one? Please say add or remove."
	case intent.FieldMedicationAdd:
		p.Response = "Let's add your new medication. What is the name of the medication?"
	case intent.FieldMedicationRemove:
		if len(pr.Medications) == 0 {
			p.Response = "You don't have any medications in your profile."
			p.Await = intent.Intent{}
			return
		}
		var b strings.Builder
		b.WriteString("Here are your current medications.")
		for i, m := range pr.Medications {
			fmt.Fprintf(&b, " Number %d: %s.", i+1, m.Name)
		}
		b.WriteString(" Which one would you like to remove? Please say the number or the name.")
		p.Response = b.String()
	case intent.FieldContact:
		p.Response = "Let's update your emergency contact. Please tell me the name of your contact person."
	case intent.FieldContactPhone:
		p.Response = fmt.Sprintf("Please say %s's phone number digit by digit.", in.Note())
	default:
		p.Response = "I can help you update your profile. What would you like to update: your name, your age, your medications, or your contact person?"
	}
}

func retryProfile(in intent.Intent, s *session.Session, p *Plan, msg string) {
	await := intent.UpdateProfileField(in.Field(), in.Note())
	if exhausted(s, await) {
		p.Response = "I'm having trouble understanding. Let's try updating your profile later."
		return
	}
	p.Response = msg
	p.Await = await
}

// spokenName turns an answer such as "my name is rose marie" into "Rose
// Marie". Digits are only kept for medication names like "Vitamin B12".
func spokenName(text string, digits bool) string {
	tokens := normalize.Tokens(text)
	for _, lead := range leadIns {
		if len(tokens) > len(lead) && hasPrefix(tokens, lead) {
			tokens = tokens[len(lead):]
			break
		}
	}
	words := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !digits && strings.IndexFunc(tok, unicode.IsDigit) >= 0 {
			continue
		}
		r := []rune(tok)
		r[0] = unicode.ToUpper(r[0])
		words = append(words, string(r))
	}
	return strings.Join(words, " ")
}

func hasPrefix(tokens, prefix []string) bool {
	for i, w := range prefix {
		if tokens[i] != w {
			return false
		}
	}
	return true
}
