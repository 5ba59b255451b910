// Package parser turns normalized tokens into an Intent.
//
// Resolution order is fixed: safety phrases, then a pending slot from the
// dialogue context, then medication reports and the trigger table, and
// finally free form text for the LLM gateway.
package parser

import (
	"strings"

	"github.com/tnikhil-24/ElderCare/internal/dialogue"
	"github.com/tnikhil-24/ElderCare/internal/intent"
	"github.com/tnikhil-24/ElderCare/internal/normalize"
)

// Medication is a name the parser should recognise in "I took my ..." reports.
type Medication struct {
	ID   string
	Name string
}

type Parser struct {
	meds []vocab
}

type vocab struct {
	id     string
	tokens []string
}

func New(meds []Medication) *Parser {
	p := &Parser{}
	for _, m := range meds {
		toks := normalize.Tokens(m.Name)
		if len(toks) == 0 || m.ID == "" {
			continue
		}
		p.meds = append(p.meds, vocab{id: m.ID, tokens: toks})
	}
	return p
}

// Parse resolves tokens to an Intent. text is the original utterance and is
// kept verbatim for free form requests. c must already be checked for
// expiry; an expired context is passed as the zero Context.
func (p *Parser) Parse(tokens []string, text string, c dialogue.Context) intent.Intent {
	if len(tokens) == 0 {
		return intent.Unknown()
	}

	if t, ok := longestMatch(safetyTable, tokens); ok {
		return t.build()
	}

	if c.Active() {
		if in, ok := p.fillSlot(c, tokens, text); ok {
			return in
		}
	}

	if id, ok := p.medicationTaken(tokens); ok {
		return intent.MedicationTaken(id)
	}

	if t, ok := longestMatch(commandTable, tokens); ok {
		in := t.build()
		// "my blood sugar is 145" completes in one turn.
		if in.ExpectedSlot() == intent.SlotNumber {
			if v, ok := number(tokens); ok {
				return in.Fill(v, timing(tokens))
			}
		}
		return in
	}

	return intent.FreeForm(text)
}

func (p *Parser) fillSlot(c dialogue.Context, tokens []string, text string) (intent.Intent, bool) {
	switch c.Expect {
	case intent.SlotField:
		f, ok := chooseField(c.Pending.Field(), tokens)
		if !ok {
			return intent.Intent{}, false
		}
		return intent.UpdateProfileField(f, ""), true
	case intent.SlotText:
		// Commands still work while a free text answer is awaited.
		if _, ok := longestMatch(commandTable, tokens); ok {
			return intent.Intent{}, false
		}
		switch c.Pending.Field() {
		case intent.FieldContactPhone:
			return c.Pending.FillText(digits(tokens)), true
		case intent.FieldMedicationRemove:
			if id, ok := p.medicationNamed(tokens); ok {
				return c.Pending.FillText(id), true
			}
			if v, ok := number(tokens); ok {
				return c.Pending.Fill(v, ""), true
			}
			return c.Pending.FillText(strings.TrimSpace(text)), true
		}
		return c.Pending.FillText(strings.TrimSpace(text)), true
	case intent.SlotNumber:
		v, ok := number(tokens)
		if !ok {
			return intent.Intent{}, false
		}
		return c.Pending.Fill(v, timing(tokens)), true
	case intent.SlotYesNo:
		yes, ok := yesNo(tokens)
		if !ok {
			return intent.Intent{}, false
		}
		if yes {
			return c.Pending.Fill(1, "yes"), true
		}
		// A "no" usually means some doses were missed, not all of them.
		return c.Pending.Fill(0.5, "no"), true
	}
	return intent.Intent{}, false
}

func (p *Parser) medicationTaken(tokens []string) (string, bool) {
	took := false
	for _, tok := range tokens {
		if tookWords[tok] {
			took = true
			break
		}
	}
	if !took {
		return "", false
	}
	return p.medicationNamed(tokens)
}

// medicationNamed finds the longest known medication name in tokens.
func (p *Parser) medicationNamed(tokens []string) (string, bool) {
	best, bestLen := "", 0
	for _, m := range p.meds {
		if len(m.tokens) > bestLen && containsPhrase(tokens, m.tokens) {
			best, bestLen = m.id, len(m.tokens)
		}
	}
	return best, bestLen > 0
}

// chooseField reads which profile field the user wants to change. While the
// medications field is pending it reads add or remove instead.
func chooseField(current intent.Field, tokens []string) (intent.Field, bool) {
	table := fieldWords
	if current == intent.FieldMedications {
		table = medicationActions
	}
	for _, row := range table {
		for _, w := range row.words {
			for _, tok := range tokens {
				if tok == w {
					return row.field, true
				}
			}
		}
	}
	return intent.FieldUnset, false
}

// timing picks up "morning" or "evening" in a reading.
func timing(tokens []string) string {
	for _, tok := range tokens {
		switch tok {
		case "morning", "breakfast", "fasting":
			return "morning"
		case "evening", "night", "tonight", "dinner", "bedtime":
			return "evening"
		}
	}
	return ""
}
