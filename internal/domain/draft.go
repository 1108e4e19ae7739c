// Package domain – working draft record.
//
// ApplicationDraft is the in-flight record the wizard mutates step by step.
// It is distinct from the persisted Draft row (which stores it as an opaque
// JSON snapshot) and from the SubmissionRecord (which is the sanitized
// projection created once at submit time).
package domain

import "encoding/json"

// ApplicationDraft holds every field the wizard collects. All fields are raw
// user input until they pass the sanitizer; per-step validity is judged on
// this type by the wizard package.
type ApplicationDraft struct {
	DestinationCountry string   `json:"destination_country"`
	VisaCategory       string   `json:"visa_category"`
	TravelDate         string   `json:"travel_date"`
	DepartureCity      string   `json:"departure_city"`
	Nationality        string   `json:"nationality"`
	ApplicantName      string   `json:"applicant_name"`
	Email              string   `json:"email"`
	Phone              string   `json:"phone"`
	AdditionalNeeds    []string `json:"additional_needs,omitempty"`
}

// Field returns the value of a named scalar draft field. Unknown names return
// the empty string; AdditionalNeeds is not addressable this way because it is
// never a required field.
func (d ApplicationDraft) Field(name string) string {
	switch name {
	case "destination_country":
		return d.DestinationCountry
	case "visa_category":
		return d.VisaCategory
	case "travel_date":
		return d.TravelDate
	case "departure_city":
		return d.DepartureCity
	case "nationality":
		return d.Nationality
	case "applicant_name":
		return d.ApplicantName
	case "email":
		return d.Email
	case "phone":
		return d.Phone
	}
	return ""
}

// EncodeDraft serializes a working draft to the opaque JSON payload stored in
// the application_drafts table.
func EncodeDraft(d ApplicationDraft) (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeDraft parses a stored payload back into a working draft. An empty
// payload decodes to the zero draft so that freshly created rows resume
// cleanly at step zero.
func DecodeDraft(payload string) (ApplicationDraft, error) {
	var d ApplicationDraft
	if payload == "" {
		return d, nil
	}
	err := json.Unmarshal([]byte(payload), &d)
	return d, err
}
