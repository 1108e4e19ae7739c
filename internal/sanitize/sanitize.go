// Package sanitize normalizes and bounds-checks a completed draft before it
// leaves for the store, producing the immutable SubmissionRecord. It never
// touches the store and has no side effects: a total function except for the
// explicit structural-email error.
//
// Policy notes:
//   - Overlength fields are truncated, never rejected. Truncation is a
//     deliberate product decision (never block a submission over length),
//     distinct from validation rejection.
//   - All text fields are trimmed and internally whitespace-collapsed before
//     length bounding, which also makes sanitization idempotent.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/atlasvisa/go-visa-backend/internal/domain"
)

// Per-field rune caps. Email's cap matches the practical RFC 5321 limit.
const (
	MaxDestinationRunes = 80
	MaxCategoryRunes    = 64
	MaxTravelDateRunes  = 32
	MaxCityRunes        = 120
	MaxNationalityRunes = 80
	MaxNameRunes        = 120
	MaxEmailRunes       = 254
	MaxPhoneRunes       = 32
	MaxNeedRunes        = 160
	MaxNeeds            = 20
)

// Error reports a field whose shape the sanitizer rejected. Currently only
// the email field can produce one.
type Error struct {
	Field string
}

// Error implements the error interface.
func (e *Error) Error() string { return fmt.Sprintf("invalid %s format", e.Field) }

// emailRE is a structural check, not full RFC 5322 validation: one @, a
// non-empty local part, and a dotted domain.
var emailRE = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]{2,}$`)

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)

// Sanitize transforms a working draft into its sanitized, store-ready
// projection. Every text field is trimmed, whitespace-collapsed, and
// truncated to its cap; the email is structurally checked after cleaning.
// On a malformed email it returns (*Error)(nil record).
func Sanitize(d domain.ApplicationDraft) (domain.SubmissionRecord, error) {
	// Categories come from a fixed selector; lowercasing keeps form-kind
	// routing stable if a client ever sends display casing.
	category := strings.ToLower(clean(d.VisaCategory, MaxCategoryRunes))

	email := strings.ToLower(clean(d.Email, MaxEmailRunes))
	if !emailRE.MatchString(email) {
		return domain.SubmissionRecord{}, &Error{Field: "email"}
	}

	rec := domain.SubmissionRecord{
		Kind:               domain.KindForCategory(category),
		CategoryOrPurpose:  category,
		DepartureCity:      clean(d.DepartureCity, MaxCityRunes),
		Nationality:        clean(d.Nationality, MaxNationalityRunes),
		DestinationCountry: clean(d.DestinationCountry, MaxDestinationRunes),
		Name:               clean(d.ApplicantName, MaxNameRunes),
		Email:              email,
		Phone:              clean(d.Phone, MaxPhoneRunes),
		TravelNeeds:        cleanNeeds(d.AdditionalNeeds),
	}
	return rec, nil
}

// clean trims, collapses internal whitespace, and truncates by rune count.
func clean(s string, max int) string {
	s = whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
	if max > 0 && utf8.RuneCountInString(s) > max {
		s = string([]rune(s)[:max])
		// A truncation can leave a trailing space behind.
		s = strings.TrimRight(s, " ")
	}
	return s
}

// cleanNeeds sanitizes the additional-needs set: each entry cleaned, empties
// dropped, duplicates removed, and the set capped.
func cleanNeeds(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = clean(v, MaxNeedRunes)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
		if len(out) >= MaxNeeds {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
