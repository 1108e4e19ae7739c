// Submission HTTP handler.
//
// This file exposes the endpoint that turns a completed draft into a stored
// application:
//   - POST /applications/drafts/{id}/submit
//
// The response body is always a SubmissionOutcome envelope: success and
// degraded success use 201, while validation and store failures map to 422
// and 502 respectively. Infrastructure-level refusals (unknown draft, a
// submit already running, a draft that was already submitted) use the
// standard error envelope instead, because no pipeline run produced an
// outcome for them.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/atlasvisa/go-visa-backend/internal/domain"
	"github.com/atlasvisa/go-visa-backend/internal/http/middleware"
	"github.com/atlasvisa/go-visa-backend/internal/services"
)

// SubmitApplication godoc
// @ID          submitApplication
// @Summary     Submit a completed draft
// @Description Runs the submission pipeline: eligibility revalidation, completeness check, sanitization, durable store, best-effort confirmation email. Safe to retry with an Idempotency-Key header.
// @Tags        Applications
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"            example(user123)
// @Param       Idempotency-Key  header  string  false "Dedupe key for safe retries"      example(b0d214a2-try1)
// @Param       id               path    string  true  "Draft ID (UUID)"                  format(uuid)
//
// @Success     201  {object} domain.SubmissionOutcome "Stored (possibly without confirmation email)"
// @Success     200  {object} domain.SubmissionOutcome "Replayed prior result"
// @Failure     400  {object} handlers.ErrorResponse   "Bad request"
// @Failure     404  {object} handlers.ErrorResponse   "Draft not found"
// @Failure     409  {object} handlers.ErrorResponse   "Already submitted or submit in flight"
// @Failure     422  {object} domain.SubmissionOutcome "Missing or malformed field"
// @Failure     502  {object} domain.SubmissionOutcome "Store write failed"
// @Router      /applications/drafts/{id}/submit [post]
func (h *Handlers) SubmitApplication(c *gin.Context) {
	draftID := c.Param("id")
	if _, err := uuid.Parse(draftID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "draft id must be a UUID")
		return
	}

	ctx := c.Request.Context()
	uid := userID(c)

	// Replay: a prior run already stored this application under the same key.
	key, hasKey := middleware.GetIdempotencyKey(c)
	if hasKey && middleware.IsReplay(c) {
		if out, found := h.subSvc.ReplayResult(ctx, uid, draftID, key); found {
			ok(c, http.StatusOK, out)
			return
		}
	}

	out, err := h.subSvc.Submit(ctx, uid, draftID)
	switch {
	case errors.Is(err, services.ErrDraftNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "draft not found")
		return
	case errors.Is(err, services.ErrAlreadySubmitted):
		fail(c, http.StatusConflict, ErrCodeConflict, "draft already submitted")
		return
	case errors.Is(err, services.ErrSubmitInFlight):
		fail(c, http.StatusConflict, ErrCodeSubmitInFlight, "a submission for this draft is already in progress")
		return
	case errors.Is(err, services.ErrCorruptDraft):
		fail(c, http.StatusUnprocessableEntity, ErrCodeCorruptDraft, "stored draft could not be decoded")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	switch out.Status {
	case domain.OutcomeSuccess, domain.OutcomeDegraded:
		if hasKey {
			h.subSvc.RecordResult(ctx, uid, draftID, key, out.ApplicationID)
		}
		ok(c, http.StatusCreated, out)
	case domain.OutcomeFailure:
		if out.FailureKind == domain.FailureStore {
			ok(c, http.StatusBadGateway, out)
			return
		}
		ok(c, http.StatusUnprocessableEntity, out)
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "unexpected submission outcome")
	}
}
