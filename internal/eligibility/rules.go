// Package eligibility – compiled-in defaults.
//
// The default rule set mirrors the content team's export at the time of
// writing. Deployments override it with RULES_PATH; the defaults keep dev
// setups and tests self-contained.
package eligibility

// DefaultUniverse returns the full nationality choice set offered by the
// intake form when no restriction applies.
func DefaultUniverse() []string {
	return []string{
		"Algeria", "Argentina", "Australia", "Bangladesh", "Brazil",
		"Cameroon", "Canada", "China", "Colombia", "Egypt", "Ethiopia",
		"Ghana", "India", "Indonesia", "Iran", "Iraq", "Japan", "Kenya",
		"Lebanon", "Mexico", "Morocco", "Nepal", "New Zealand", "Nigeria",
		"Pakistan", "Philippines", "Russia", "Senegal", "South Africa",
		"South Korea", "Sri Lanka", "Thailand", "Tunisia", "Turkey",
		"Ukraine", "United Arab Emirates", "United Kingdom", "United States",
		"Vietnam",
	}
}

// DefaultRules returns the compiled-in visa-requirement table. Each entry
// lists the nationalities that DO need a visa for the destination; everyone
// else in the universe is exempt. Category-specific entries take precedence
// over destination-wide ones.
func DefaultRules() []Rule {
	schengenShortStay := []string{
		"Algeria", "Bangladesh", "Cameroon", "China", "Egypt", "Ethiopia",
		"Ghana", "India", "Indonesia", "Iran", "Iraq", "Kenya", "Lebanon",
		"Morocco", "Nepal", "Nigeria", "Pakistan", "Philippines", "Russia",
		"Senegal", "South Africa", "Sri Lanka", "Thailand", "Tunisia",
		"Turkey", "Vietnam",
	}
	// Long-stay applications are nationality-restricted for everyone except
	// settled exemption agreements, so the long-stay lists are wider.
	schengenLongStay := append(append([]string(nil), schengenShortStay...),
		"Argentina", "Brazil", "Colombia", "Mexico", "Ukraine",
	)

	return []Rule{
		{DestinationCountry: "Schengen Area", VisaCategory: "tourism", Nationalities: schengenShortStay},
		{DestinationCountry: "Schengen Area", VisaCategory: "business", Nationalities: schengenShortStay},
		{DestinationCountry: "Schengen Area", VisaCategory: "work", Nationalities: schengenLongStay},
		{DestinationCountry: "Schengen Area", VisaCategory: "study", Nationalities: schengenLongStay},
		{DestinationCountry: "Schengen Area", Nationalities: schengenShortStay},
		{DestinationCountry: "United Kingdom", Nationalities: []string{
			"Algeria", "Bangladesh", "Cameroon", "China", "Egypt", "Ethiopia",
			"Ghana", "India", "Indonesia", "Iran", "Iraq", "Kenya", "Lebanon",
			"Morocco", "Nepal", "Nigeria", "Pakistan", "Philippines", "Russia",
			"Senegal", "South Africa", "Sri Lanka", "Thailand", "Tunisia",
			"Turkey", "Ukraine", "Vietnam",
		}},
		{DestinationCountry: "United States", Nationalities: []string{
			"Algeria", "Argentina", "Bangladesh", "Brazil", "Cameroon", "China",
			"Colombia", "Egypt", "Ethiopia", "Ghana", "India", "Indonesia",
			"Iran", "Iraq", "Kenya", "Lebanon", "Mexico", "Morocco", "Nepal",
			"Nigeria", "Pakistan", "Philippines", "Russia", "Senegal",
			"South Africa", "Sri Lanka", "Thailand", "Tunisia", "Turkey",
			"Ukraine", "Vietnam",
		}},
		{DestinationCountry: "Canada", Nationalities: []string{
			"Algeria", "Bangladesh", "Cameroon", "China", "Colombia", "Egypt",
			"Ethiopia", "Ghana", "India", "Indonesia", "Iran", "Iraq", "Kenya",
			"Lebanon", "Morocco", "Nepal", "Nigeria", "Pakistan", "Philippines",
			"Russia", "Senegal", "South Africa", "Sri Lanka", "Thailand",
			"Tunisia", "Turkey", "Vietnam",
		}},
		{DestinationCountry: "United Arab Emirates", Nationalities: []string{
			"Afghanistan", "Bangladesh", "Cameroon", "Ethiopia", "Ghana",
			"Iran", "Iraq", "Kenya", "Nepal", "Nigeria", "Pakistan",
			"Senegal", "Sri Lanka", "Vietnam",
		}},
	}
}
