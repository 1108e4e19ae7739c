// Package notify implements the best-effort confirmation dispatcher. The
// submission pipeline treats this collaborator as expendable: a send failure
// or timeout is logged and downgrades the outcome, it never blocks or fails
// a submission whose critical write already landed.
package notify

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Confirmation is the request carried to the notification collaborator.
type Confirmation struct {
	Name        string
	Email       string
	FormType    string // "short_stay" | "long_stay"
	Destination string
	TravelNeeds []string
}

// Notifier sends a confirmation message. Implementations must honor the
// context deadline; the pipeline bounds every send with its own timeout.
type Notifier interface {
	Send(ctx context.Context, c Confirmation) error
}

// supportedLocales are the languages we have confirmation copy for. The
// first entry is the fallback.
var supportedLocales = []language.Tag{
	language.English,
	language.French,
}

var localeMatcher = language.NewMatcher(supportedLocales)

// Subject composes the localized confirmation subject line. The locale is
// passed explicitly by the caller; nothing here reads ambient state.
func Subject(loc language.Tag, destination string) string {
	tag, _, _ := localeMatcher.Match(loc)
	switch tag {
	case language.French:
		return fmt.Sprintf("Votre demande de visa pour %s a bien été reçue", destination)
	default:
		return fmt.Sprintf("We received your visa application for %s", destination)
	}
}

// Body composes the localized plain-text confirmation body.
func Body(loc language.Tag, c Confirmation) string {
	tag, _, _ := localeMatcher.Match(loc)
	needs := "-"
	if len(c.TravelNeeds) > 0 {
		needs = strings.Join(c.TravelNeeds, ", ")
	}
	switch tag {
	case language.French:
		return fmt.Sprintf(
			"Bonjour %s,\n\nNous avons bien reçu votre demande (%s) pour %s.\n"+
				"Besoins complémentaires : %s\n\nNotre équipe vous contactera sous peu.\n",
			c.Name, formLabelFR(c.FormType), c.Destination, needs)
	default:
		return fmt.Sprintf(
			"Hello %s,\n\nWe received your %s application for %s.\n"+
				"Additional needs: %s\n\nOur team will contact you shortly.\n",
			c.Name, formLabelEN(c.FormType), c.Destination, needs)
	}
}

func formLabelEN(formType string) string {
	if formType == "long_stay" {
		return "long-stay visa"
	}
	return "short-stay visa"
}

func formLabelFR(formType string) string {
	if formType == "long_stay" {
		return "visa long séjour"
	}
	return "visa court séjour"
}
