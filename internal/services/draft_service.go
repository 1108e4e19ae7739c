// Package services – DraftService
//
// This file implements the draft lifecycle around the wizard: creating a
// draft (optionally pre-seeded with a destination), resuming it at the step
// the applicant last reached, applying a step's fields with the eligibility
// revalidation run synchronously at every destination, category, or
// nationality change,
// and the debounced autosave.
//
// Autosave semantics: last write wins on whole-snapshot granularity. Two
// autosaves inside one debounce window coalesce; only the later payload is
// persisted, stamped with the later call's timestamp. A failed flush is
// logged and never blocks the applicant, who keeps typing against the
// in-memory state regardless.
package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/atlasvisa/go-visa-backend/internal/domain"
	"github.com/atlasvisa/go-visa-backend/internal/eligibility"
	"github.com/atlasvisa/go-visa-backend/internal/repo"
	"github.com/atlasvisa/go-visa-backend/internal/wizard"
)

// StepResult reports what a step update did: the resulting draft, where the
// wizard now stands, and whether the eligibility revalidation cleared a
// stale nationality. Nationalities carries the current choice set so the
// client can re-render the selector without a second round trip.
type StepResult struct {
	Draft            domain.ApplicationDraft `json:"draft"`
	StepIndex        int                     `json:"step_index"`
	StepValid        bool                    `json:"step_valid"`
	Advanced         bool                    `json:"advanced"`
	NationalityReset bool                    `json:"nationality_reset"`
	Nationalities    []string                `json:"nationalities"`
}

// pendingSave is a coalesced autosave awaiting its debounce timer.
type pendingSave struct {
	timer   *time.Timer
	userID  string
	payload string
	step    int
	at      time.Time
}

// DraftService owns draft persistence and wizard step progression.
type DraftService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Index is the eligibility rule table used for revalidation.
	Index eligibility.Index
	// Debounce is the autosave coalescing window; zero means 2s.
	Debounce time.Duration

	mu      sync.Mutex
	pending map[string]*pendingSave
}

// NewDraftService constructs a DraftService with the default debounce.
func NewDraftService(db *gorm.DB, idx eligibility.Index) *DraftService {
	return &DraftService{
		DB:       db,
		Index:    idx,
		Debounce: 2 * time.Second,
		pending:  make(map[string]*pendingSave),
	}
}

// Create starts a new draft for userID, optionally pre-seeded with a
// destination country (the marketing pages deep-link into the wizard with
// one already chosen).
func (s *DraftService) Create(ctx context.Context, userID, destination string) (*domain.Draft, error) {
	seed := domain.ApplicationDraft{DestinationCountry: destination}
	payload, err := domain.EncodeDraft(seed)
	if err != nil {
		return nil, err
	}
	return repo.CreateDraft(ctx, s.DB, userID, payload)
}

// Get fetches a draft row and its decoded working record for resumption.
func (s *DraftService) Get(ctx context.Context, userID, draftID string) (*domain.Draft, domain.ApplicationDraft, error) {
	row, err := repo.GetDraft(ctx, s.DB, draftID, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, domain.ApplicationDraft{}, ErrDraftNotFound
		}
		return nil, domain.ApplicationDraft{}, err
	}
	draft, err := domain.DecodeDraft(row.ApplicationData)
	if err != nil {
		return nil, domain.ApplicationDraft{}, ErrCorruptDraft
	}
	return row, draft, nil
}

// ApplyStep applies a step's fields to the draft and optionally advances.
//
// Only the fields owned by the targeted step are applied; anything else in
// the patch is ignored, which keeps each step's validity a function of its
// own fields. Whenever the destination, category, or nationality changes,
// the eligibility filter is re-run synchronously and an ineligible
// nationality selection is cleared before anything is persisted; the final
// observed state always reflects the filter computed from the final
// destination, and a value outside the choice set can never be stored.
//
// The applicant may target any step at or below the one they have reached
// (going back is always legal); targeting a later step would skip
// validation gates and is refused.
func (s *DraftService) ApplyStep(ctx context.Context, userID, draftID string, step int, patch domain.ApplicationDraft, advance bool) (*StepResult, error) {
	tr := otel.Tracer("services/DraftService")
	ctx, span := tr.Start(ctx, "ApplyStep",
		trace.WithAttributes(
			attribute.String("draft.id", draftID),
			attribute.Int("step", step),
		),
	)
	defer span.End()

	if step < 0 || step >= wizard.StepCount() {
		return nil, ErrStepOutOfRange
	}

	row, draft, err := s.Get(ctx, userID, draftID)
	if err != nil {
		return nil, err
	}
	if row.Status != domain.StatusDraft {
		return nil, ErrAlreadySubmitted
	}

	machine := wizard.ResumeAt(row.StepIndex)
	if step > machine.Current() {
		return nil, ErrStepOutOfRange
	}
	// Going back to revise an earlier answer is always legal.
	for machine.Current() > step {
		machine.Retreat()
	}

	destBefore, catBefore, natBefore := draft.DestinationCountry, draft.VisaCategory, draft.Nationality
	applyStepFields(&draft, step, patch)

	reset := false
	if draft.DestinationCountry != destBefore || draft.VisaCategory != catBefore || draft.Nationality != natBefore {
		// Synchronous with the change that triggered it, never queued. A
		// nationality from outside the current choice set is cleared here, so
		// the step stays invalid and the wizard cannot advance past it.
		reset = eligibility.Revalidate(s.Index, &draft)
	}

	valid := wizard.IsStepValid(step, draft)
	advanced := false
	if advance && valid {
		advanced = machine.Advance(draft)
	}

	payload, err := domain.EncodeDraft(draft)
	if err != nil {
		return nil, err
	}
	// Step submission is a flush point: persist immediately, bypassing the
	// autosave debounce, and drop any stale pending autosave for this draft.
	s.dropPending(draftID)
	if err := repo.SaveDraftPayload(ctx, s.DB, draftID, userID, payload, machine.Current(), time.Now().UTC()); err != nil {
		return nil, err
	}

	return &StepResult{
		Draft:            draft,
		StepIndex:        machine.Current(),
		StepValid:        valid,
		Advanced:         advanced,
		NationalityReset: reset,
		Nationalities:    eligibility.FilterNationalities(s.Index, draft.DestinationCountry, draft.VisaCategory),
	}, nil
}

// Autosave schedules a debounced snapshot write. Calls inside one debounce
// window coalesce to the latest payload and timestamp. The flush runs in
// the background; its failure is logged and surfaced nowhere else.
func (s *DraftService) Autosave(userID, draftID, payload string, step int) {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		s.pending = make(map[string]*pendingSave)
	}
	if p, ok := s.pending[draftID]; ok {
		p.payload = payload
		p.step = step
		p.at = now
		return
	}
	p := &pendingSave{userID: userID, payload: payload, step: step, at: now}
	p.timer = time.AfterFunc(s.debounce(), func() { s.flush(draftID) })
	s.pending[draftID] = p
}

// flush persists the coalesced snapshot for draftID.
func (s *DraftService) flush(draftID string) {
	s.mu.Lock()
	p, ok := s.pending[draftID]
	if ok {
		delete(s.pending, draftID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	err := repo.SaveDraftPayload(context.Background(), s.DB, draftID, p.userID, p.payload, p.step, p.at)
	if err != nil {
		// Non-fatal: the applicant keeps typing; at most a passive status
		// indicator reflects the failed save.
		log.Warn().Err(err).Str("draft_id", draftID).Msg("draft autosave flush failed")
	}
}

// dropPending cancels a scheduled autosave, if any.
func (s *DraftService) dropPending(draftID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pending[draftID]; ok {
		p.timer.Stop()
		delete(s.pending, draftID)
	}
}

// ListPage returns a page of the user's drafts and applications for the
// dashboard, most recently saved first, with the total count.
func (s *DraftService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Draft, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountDrafts(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Draft{}, 0, nil
	}

	items, err := repo.ListDraftsPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

func (s *DraftService) debounce() time.Duration {
	if s.Debounce > 0 {
		return s.Debounce
	}
	return 2 * time.Second
}

// applyStepFields copies only the fields owned by step from patch into dst.
func applyStepFields(dst *domain.ApplicationDraft, step int, patch domain.ApplicationDraft) {
	switch step {
	case 0:
		dst.DestinationCountry = patch.DestinationCountry
		dst.VisaCategory = patch.VisaCategory
	case 1:
		dst.TravelDate = patch.TravelDate
		dst.DepartureCity = patch.DepartureCity
	case 2:
		dst.Nationality = patch.Nationality
	case 3:
		dst.ApplicantName = patch.ApplicantName
		dst.Email = patch.Email
		dst.Phone = patch.Phone
	case 4:
		dst.AdditionalNeeds = patch.AdditionalNeeds
	}
}
