// Package domain – sanitized submission record.
package domain

// FormKind tags a SubmissionRecord with the store shape it maps to. The two
// shapes are logically equivalent rows; only the column carrying the declared
// reason for travel differs (purpose vs visa_category). The repo layer maps
// the tag to the correct table, so callers never branch on category strings.
type FormKind string

const (
	// FormShortStay routes to the short_stay_applications table.
	FormShortStay FormKind = "short_stay"
	// FormLongStay routes to the long_stay_applications table.
	FormLongStay FormKind = "long_stay"
)

// longStayCategories are the declared travel reasons that require a long-stay
// application. Everything else (tourism, business, transit, family visit, or
// a free-form purpose) is treated as short-stay.
var longStayCategories = map[string]struct{}{
	"work":                 {},
	"study":                {},
	"family-reunification": {},
	"long-stay":            {},
}

// KindForCategory maps a visa category/purpose value to the store shape it
// belongs to.
func KindForCategory(category string) FormKind {
	if _, ok := longStayCategories[category]; ok {
		return FormLongStay
	}
	return FormShortStay
}

// SubmissionRecord is the sanitized, validated projection of an
// ApplicationDraft. It is created once at submit time by the sanitizer and is
// immutable thereafter; every field has been trimmed, length-bounded, and
// format-checked. ID is assigned by the store on a successful write.
type SubmissionRecord struct {
	Kind               FormKind `json:"kind"`
	CategoryOrPurpose  string   `json:"category_or_purpose"`
	DepartureCity      string   `json:"departure_city"`
	Nationality        string   `json:"nationality"`
	DestinationCountry string   `json:"destination_country"`
	Name               string   `json:"name"`
	Email              string   `json:"email"`
	Phone              string   `json:"phone"`
	TravelNeeds        []string `json:"travel_needs,omitempty"`
}
