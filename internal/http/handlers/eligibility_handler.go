// Eligibility HTTP handlers.
//
// This file exposes the nationality choice-set endpoint backing the wizard's
// nationality selector:
//   - GET /eligibility/nationalities
//
// The endpoint is deterministic for a given (destination, category) pair, so
// responses carry a short Cache-Control header.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// EligibilityIndex is the read-only rule lookup consumed by HTTP handlers.
//
// Implementations must be immutable after construction and safe for
// unsynchronized concurrent reads.
type EligibilityIndex interface {
	// Restricted returns the allowed nationalities for the pair, and whether
	// any rule matched. Category-specific rules win over destination-wide ones.
	Restricted(destination, category string) ([]string, bool)
	// Universe returns the full supported nationality list.
	Universe() []string
}

// NationalitiesResponse is the choice set for the nationality selector.
type NationalitiesResponse struct {
	DestinationCountry string   `json:"destination_country,omitempty"`
	VisaCategory       string   `json:"visa_category,omitempty"`
	// Restricted is true when a rule narrowed the list below the universe.
	Restricted    bool     `json:"restricted"`
	Nationalities []string `json:"nationalities"`
}

// ListNationalities godoc
// @ID          listNationalities
// @Summary     Nationality choice set
// @Description Returns the nationalities an applicant may select for the given destination and visa category. Without a destination the full supported list is returned.
// @Tags        Eligibility
// @Produce     json
//
// @Param       destination_country  query  string  false "Destination country"  example(Schengen Area)
// @Param       visa_category        query  string  false "Visa category"        example(work)
//
// @Success     200  {object}  handlers.NationalitiesResponse
// @Router      /eligibility/nationalities [get]
func (h *Handlers) ListNationalities(c *gin.Context) {
	dest := strings.TrimSpace(c.Query("destination_country"))
	cat := strings.TrimSpace(c.Query("visa_category"))

	resp := NationalitiesResponse{
		DestinationCountry: dest,
		VisaCategory:       cat,
		Nationalities:      h.elig.Universe(),
	}
	// The choice set narrows only once both halves of the pair are chosen,
	// matching the revalidation policy: an unchosen field means the full
	// universe, never an implicit restriction.
	if dest != "" && cat != "" {
		if nats, found := h.elig.Restricted(dest, cat); found {
			resp.Restricted = true
			resp.Nationalities = nats
		}
	}

	c.Header("Cache-Control", "public, max-age=300")
	ok(c, http.StatusOK, resp)
}
