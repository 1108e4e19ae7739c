// Package eligibility – derived choice-set filter.
//
// FilterNationalities is the single code path that narrows the nationality
// choice set, and Revalidate is the single code path that clears a selection
// which has fallen out of that set. Every mutation point for destination,
// category, or the nationality itself calls Revalidate synchronously, so the
// invariant "a selected
// nationality is always valid for the current destination and category" holds
// by construction rather than by hoping a reactive recompute fires in time.
package eligibility

import "github.com/atlasvisa/go-visa-backend/internal/domain"

// FilterNationalities returns the ordered nationality choice set for the
// given destination and category. It is pure: identical inputs always yield
// an identical, identically ordered result, independent of prior calls.
//
// Policy:
//   - destination or category not chosen yet → the full universe
//   - destination with no registered rule    → the full universe
//     (absence of data must not look like "everyone excluded")
//   - otherwise → the restricted list for the most specific rule
func FilterNationalities(idx Index, destination, category string) []string {
	if destination == "" || category == "" {
		return idx.Universe()
	}
	if list, ok := idx.Restricted(destination, category); ok {
		return list
	}
	return idx.Universe()
}

// Contains reports whether nationality is a member of the current choice set
// for (destination, category).
func Contains(idx Index, destination, category, nationality string) bool {
	if nationality == "" {
		return false
	}
	for _, n := range FilterNationalities(idx, destination, category) {
		if n == nationality {
			return true
		}
	}
	return false
}

// Revalidate clears draft.Nationality when it is no longer a member of the
// choice set for the draft's current destination and category, and reports
// whether it did so. Callers must invoke this synchronously with every
// mutation of the destination, category, or nationality itself; all trigger
// paths share this one implementation, so a category change resets the
// selection exactly like a destination change does, and an ineligible value
// is rejected at the moment it is set.
func Revalidate(idx Index, draft *domain.ApplicationDraft) bool {
	if draft.Nationality == "" {
		return false
	}
	if Contains(idx, draft.DestinationCountry, draft.VisaCategory, draft.Nationality) {
		return false
	}
	draft.Nationality = ""
	return true
}
