// Draft HTTP handlers.
//
// This file exposes REST endpoints for application draft resources:
//   - POST   /applications/drafts                  (create)
//   - GET    /applications/drafts/{id}             (fetch for resume)
//   - PUT    /applications/drafts/{id}             (autosave snapshot)
//   - POST   /applications/drafts/{id}/steps/{step} (apply step input)
//   - GET    /applications                         (dashboard list, ETag support)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atlasvisa/go-visa-backend/internal/domain"
	"github.com/atlasvisa/go-visa-backend/internal/eligibility"
	"github.com/atlasvisa/go-visa-backend/internal/repo"
	"github.com/atlasvisa/go-visa-backend/internal/services"
	"github.com/atlasvisa/go-visa-backend/internal/utils"
	"github.com/atlasvisa/go-visa-backend/internal/wizard"
)

//
// Service contracts (context-aware)
//

// DraftService defines draft lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type DraftService interface {
	// Create starts a new draft for userID, optionally seeded with a destination.
	Create(ctx context.Context, userID, destination string) (*domain.Draft, error)
	// Get returns the stored row and the decoded working draft.
	Get(ctx context.Context, userID, draftID string) (*domain.Draft, domain.ApplicationDraft, error)
	// ApplyStep merges step-owned fields into the draft and optionally advances.
	ApplyStep(ctx context.Context, userID, draftID string, step int, patch domain.ApplicationDraft, advance bool) (*services.StepResult, error)
	// Autosave schedules a debounced, coalesced persistence of the snapshot.
	Autosave(userID, draftID, payload string, step int)
	// ListPage returns a page of the user's drafts and the total count.
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Draft, int64, error)
}

// SubmissionService defines the submit pipeline consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type SubmissionService interface {
	// Submit runs the full pipeline and returns the outcome envelope.
	Submit(ctx context.Context, userID, draftID string) (domain.SubmissionOutcome, error)
	// RecordResult stores a successful outcome under an idempotency key.
	RecordResult(ctx context.Context, userID, draftID, key, applicationID string)
	// ReplayResult returns a previously recorded outcome for the key, if any.
	ReplayResult(ctx context.Context, userID, draftID, key string) (domain.SubmissionOutcome, bool)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for drafts, submissions, and eligibility.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	draftSvc DraftService
	subSvc   SubmissionService
	elig     EligibilityIndex
}

// New constructs and returns a Handlers instance bound to the given services.
func New(draftSvc DraftService, subSvc SubmissionService, elig EligibilityIndex) *Handlers {
	return &Handlers{draftSvc: draftSvc, subSvc: subSvc, elig: elig}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// CreateDraftRequest is the JSON payload for starting a new draft.
type CreateDraftRequest struct {
	// DestinationCountry optionally seeds the first wizard step.
	DestinationCountry string `json:"destination_country" example:"Schengen Area"`
}

// AutosaveRequest is the JSON payload for the autosave endpoint. The snapshot
// is kept opaque on the wire so a half-typed form round-trips unchanged.
type AutosaveRequest struct {
	// ApplicationData is the working draft snapshot.
	ApplicationData json.RawMessage `json:"application_data" binding:"required"`
	// StepIndex is the step the applicant is currently on.
	StepIndex int `json:"step_index" example:"2"`
}

// StepRequest is the JSON payload for a step update. Only the fields owned by
// the targeted step are applied; everything else is ignored.
type StepRequest struct {
	// Fields carries the step's field values keyed by field name.
	Fields domain.ApplicationDraft `json:"fields"`
	// Advance requests moving to the next step after a successful merge.
	Advance bool `json:"advance" example:"true"`
}

// DraftResponse wraps a stored draft row together with its decoded snapshot
// and the nationality choice set for the draft's current destination, so a
// resuming client can render the wizard without extra round trips.
type DraftResponse struct {
	Draft         domain.Draft            `json:"draft"`
	Data          domain.ApplicationDraft `json:"data"`
	Nationalities []string                `json:"nationalities"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListDraftsResponse wraps a page of drafts and pagination information.
type ListDraftsResponse struct {
	Drafts     []domain.Draft `json:"drafts"`
	Pagination Pagination     `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

//
// Handlers
//

// CreateDraft godoc
// @ID          createDraft
// @Summary     Start a new application draft
// @Description Creates a draft for the current user, optionally seeded with a destination, and returns the draft resource.
// @Tags        Drafts
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.CreateDraftRequest  true  "Create draft payload"
//
// @Success     201  {object}  domain.Draft
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /applications/drafts [post]
func (h *Handlers) CreateDraft(c *gin.Context) {
	var req CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	dest := strings.TrimSpace(req.DestinationCountry)

	d, err := h.draftSvc.Create(c.Request.Context(), userID(c), dest)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, d)
}

// GetDraft godoc
// @ID          getDraft
// @Summary     Fetch a draft for resume
// @Description Returns the stored draft, its decoded snapshot, and the nationality choice set for its destination.
// @Tags        Drafts
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Draft ID (UUID)"        format(uuid)
//
// @Success     200  {object}  handlers.DraftResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Draft not found"
// @Failure     422  {object}  handlers.ErrorResponse  "Stored draft corrupt"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /applications/drafts/{id} [get]
func (h *Handlers) GetDraft(c *gin.Context) {
	draftID := c.Param("id")
	if _, err := uuid.Parse(draftID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "draft id must be a UUID")
		return
	}

	row, data, err := h.draftSvc.Get(c.Request.Context(), userID(c), draftID)
	switch {
	case errors.Is(err, services.ErrDraftNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "draft not found")
		return
	case errors.Is(err, services.ErrCorruptDraft):
		fail(c, http.StatusUnprocessableEntity, ErrCodeCorruptDraft, "stored draft could not be decoded")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	nats := eligibility.FilterNationalities(h.elig, data.DestinationCountry, data.VisaCategory)
	ok(c, http.StatusOK, DraftResponse{Draft: *row, Data: data, Nationalities: nats})
}

// AutosaveDraft godoc
// @ID          autosaveDraft
// @Summary     Autosave a draft snapshot
// @Description Schedules a debounced persistence of the working draft. Rapid calls for the same draft coalesce; the latest snapshot wins.
// @Tags        Drafts
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Draft ID (UUID)"        format(uuid)
// @Param       body       body    handlers.AutosaveRequest  true  "Snapshot payload"
//
// @Success     202  {string} string "Accepted"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Draft not found"
// @Router      /applications/drafts/{id} [put]
func (h *Handlers) AutosaveDraft(c *gin.Context) {
	draftID := c.Param("id")
	if _, err := uuid.Parse(draftID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "draft id must be a UUID")
		return
	}

	var req AutosaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if req.StepIndex < 0 || req.StepIndex >= wizard.StepCount() {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest,
			fmt.Sprintf("step_index must be between 0 and %d", wizard.StepCount()-1))
		return
	}

	// Ownership check up front; the flush itself is fire-and-forget.
	uid := userID(c)
	if _, _, err := h.draftSvc.Get(c.Request.Context(), uid, draftID); err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "draft not found")
		return
	}

	h.draftSvc.Autosave(uid, draftID, string(req.ApplicationData), req.StepIndex)
	c.Status(http.StatusAccepted)
}

// ApplyStep godoc
// @ID          applyStep
// @Summary     Apply a wizard step update
// @Description Merges the step's field values into the draft, revalidates nationality eligibility whenever the destination, category, or nationality changed, and optionally advances the wizard.
// @Tags        Drafts
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Draft ID (UUID)"        format(uuid)
// @Param       step       path    int     true  "Step index"             minimum(0) maximum(4)
// @Param       body       body    handlers.StepRequest  true  "Step payload"
//
// @Success     200  {object} services.StepResult
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Draft not found"
// @Failure     409  {object} handlers.ErrorResponse "Draft already submitted"
// @Failure     422  {object} handlers.ErrorResponse "Step not yet reachable"
// @Router      /applications/drafts/{id}/steps/{step} [post]
func (h *Handlers) ApplyStep(c *gin.Context) {
	draftID := c.Param("id")
	if _, err := uuid.Parse(draftID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "draft id must be a UUID")
		return
	}
	step := utils.AtoiDefault(c.Param("step"), -1)
	if step < 0 || step >= wizard.StepCount() {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest,
			fmt.Sprintf("step must be between 0 and %d", wizard.StepCount()-1))
		return
	}

	var req StepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	res, err := h.draftSvc.ApplyStep(c.Request.Context(), userID(c), draftID, step, req.Fields, req.Advance)
	switch {
	case err == nil:
		ok(c, http.StatusOK, res)
	case errors.Is(err, services.ErrDraftNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "draft not found")
	case errors.Is(err, services.ErrAlreadySubmitted):
		fail(c, http.StatusConflict, ErrCodeConflict, "draft already submitted")
	case errors.Is(err, services.ErrStepOutOfRange):
		fail(c, http.StatusUnprocessableEntity, ErrCodeStepOutOfRange, "earlier steps must be completed first")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeStepFailed, err.Error())
	}
}

// ListApplications godoc
// @ID          listApplications
// @Summary     List the user's applications (paginated)
// @Description Returns a page of the user's drafts and submitted applications. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Applications
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListDraftsResponse
// @Header      200  {string} ETag           "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /applications [get]
func (h *Handlers) ListApplications(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.draftSvc.(*services.DraftService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.DraftsStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"applications:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	// Fetch page.
	items, total, err := h.draftSvc.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	resp := ListDraftsResponse{
		Drafts: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	}
	ok(c, http.StatusOK, resp)
}
