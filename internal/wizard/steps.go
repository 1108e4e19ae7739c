// Package wizard implements the ordered multi-step intake flow: the step
// definitions with their per-step validity predicates, and the state machine
// that gates movement between them.
package wizard

import "github.com/atlasvisa/go-visa-backend/internal/domain"

// Step describes one wizard step: its position, a stable name, and the draft
// fields it owns. A step's validity predicate is a pure function of the draft
// restricted to the step's own fields; it never references fields owned by
// later steps, so validity is stable regardless of what the applicant has or
// hasn't filled in further down the form.
type Step struct {
	Index    int
	Name     string
	Required []string
}

// Steps is the ordered flow. The review step owns only the optional
// additional-needs set, so it is always valid.
var Steps = []Step{
	{Index: 0, Name: "destination", Required: []string{"destination_country", "visa_category"}},
	{Index: 1, Name: "travel", Required: []string{"travel_date", "departure_city"}},
	{Index: 2, Name: "nationality", Required: []string{"nationality"}},
	{Index: 3, Name: "contact", Required: []string{"applicant_name", "email", "phone"}},
	{Index: 4, Name: "review", Required: nil},
}

// StepCount is the number of wizard steps.
func StepCount() int { return len(Steps) }

// IsStepValid reports whether every field required by step is non-empty in
// the draft. Out-of-range steps are invalid.
func IsStepValid(step int, d domain.ApplicationDraft) bool {
	if step < 0 || step >= len(Steps) {
		return false
	}
	for _, f := range Steps[step].Required {
		if d.Field(f) == "" {
			return false
		}
	}
	return true
}

// FirstInvalid walks the steps in order and returns the first required field
// that is empty, together with the step that owns it. ok is false when every
// step is valid.
func FirstInvalid(d domain.ApplicationDraft) (field string, step int, ok bool) {
	for _, s := range Steps {
		for _, f := range s.Required {
			if d.Field(f) == "" {
				return f, s.Index, true
			}
		}
	}
	return "", 0, false
}
