package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atlasvisa/go-visa-backend/internal/domain"
	"github.com/atlasvisa/go-visa-backend/internal/repo"
)

func newDraftSvc(t *testing.T) *DraftService {
	t.Helper()
	db := newSvcDB(t, allModels()...)
	s := NewDraftService(db, testIndex())
	s.Debounce = 25 * time.Millisecond
	return s
}

func TestCreate_SeedsDestination(t *testing.T) {
	s := newDraftSvc(t)
	ctx := context.Background()

	row, err := s.Create(ctx, "u1", "Schengen Area")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if row.StepIndex != 0 || row.Status != domain.StatusDraft {
		t.Fatalf("new draft row = %+v", row)
	}

	_, draft, err := s.Get(ctx, "u1", row.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if draft.DestinationCountry != "Schengen Area" {
		t.Fatalf("destination = %q, want pre-seeded value", draft.DestinationCountry)
	}
	if draft.VisaCategory != "" {
		t.Fatalf("category must start empty, got %q", draft.VisaCategory)
	}
}

func TestGet_UnknownDraft(t *testing.T) {
	s := newDraftSvc(t)
	_, _, err := s.Get(context.Background(), "u1", "no-such-id")
	if !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("err = %v, want ErrDraftNotFound", err)
	}
}

func TestApplyStep_AdvancesWhenValid(t *testing.T) {
	s := newDraftSvc(t)
	ctx := context.Background()
	row, _ := s.Create(ctx, "u1", "")

	res, err := s.ApplyStep(ctx, "u1", row.ID, 0,
		domain.ApplicationDraft{DestinationCountry: "Schengen Area", VisaCategory: "tourism"}, true)
	if err != nil {
		t.Fatalf("ApplyStep: %v", err)
	}
	if !res.StepValid || !res.Advanced || res.StepIndex != 1 {
		t.Fatalf("result = %+v, want advanced to step 1", res)
	}
	if res.Draft.DestinationCountry != "Schengen Area" {
		t.Fatalf("draft = %+v", res.Draft)
	}

	// The advance was persisted, not just returned.
	got, err := repo.GetDraft(ctx, s.DB, row.ID, "u1")
	if err != nil {
		t.Fatalf("GetDraft: %v", err)
	}
	if got.StepIndex != 1 {
		t.Fatalf("persisted step = %d, want 1", got.StepIndex)
	}
}

func TestApplyStep_IncompleteStepDoesNotAdvance(t *testing.T) {
	s := newDraftSvc(t)
	ctx := context.Background()
	row, _ := s.Create(ctx, "u1", "")

	res, err := s.ApplyStep(ctx, "u1", row.ID, 0,
		domain.ApplicationDraft{DestinationCountry: "Schengen Area"}, true)
	if err != nil {
		t.Fatalf("ApplyStep: %v", err)
	}
	if res.StepValid || res.Advanced || res.StepIndex != 0 {
		t.Fatalf("result = %+v, want stay at step 0", res)
	}
}

func TestApplyStep_RefusesFutureStep(t *testing.T) {
	s := newDraftSvc(t)
	ctx := context.Background()
	row, _ := s.Create(ctx, "u1", "")

	// The wizard is at step 0; targeting step 2 would skip the gates.
	_, err := s.ApplyStep(ctx, "u1", row.ID, 2,
		domain.ApplicationDraft{Nationality: "Turkey"}, false)
	if !errors.Is(err, ErrStepOutOfRange) {
		t.Fatalf("err = %v, want ErrStepOutOfRange", err)
	}
	if _, err := s.ApplyStep(ctx, "u1", row.ID, -1, domain.ApplicationDraft{}, false); !errors.Is(err, ErrStepOutOfRange) {
		t.Fatalf("negative step: err = %v, want ErrStepOutOfRange", err)
	}
}

func TestApplyStep_OnlyOwnedFieldsApply(t *testing.T) {
	s := newDraftSvc(t)
	ctx := context.Background()
	row, _ := s.Create(ctx, "u1", "")

	// A patch for step 0 that also smuggles later-step fields; only the
	// destination pair may land.
	res, err := s.ApplyStep(ctx, "u1", row.ID, 0, domain.ApplicationDraft{
		DestinationCountry: "Japan",
		VisaCategory:       "tourism",
		Nationality:        "Turkey",
		Email:              "smuggled@example.com",
	}, false)
	if err != nil {
		t.Fatalf("ApplyStep: %v", err)
	}
	if res.Draft.Nationality != "" || res.Draft.Email != "" {
		t.Fatalf("fields outside the step leaked in: %+v", res.Draft)
	}
}

func TestApplyStep_RetreatAndRevise(t *testing.T) {
	s := newDraftSvc(t)
	ctx := context.Background()
	row, _ := s.Create(ctx, "u1", "")

	if _, err := s.ApplyStep(ctx, "u1", row.ID, 0,
		domain.ApplicationDraft{DestinationCountry: "Japan", VisaCategory: "tourism"}, true); err != nil {
		t.Fatalf("step 0: %v", err)
	}
	if _, err := s.ApplyStep(ctx, "u1", row.ID, 1,
		domain.ApplicationDraft{TravelDate: "2026-10-01", DepartureCity: "Ankara"}, true); err != nil {
		t.Fatalf("step 1: %v", err)
	}

	// Going back to step 0 from step 2 is always legal.
	res, err := s.ApplyStep(ctx, "u1", row.ID, 0,
		domain.ApplicationDraft{DestinationCountry: "Japan", VisaCategory: "business"}, false)
	if err != nil {
		t.Fatalf("revise step 0: %v", err)
	}
	if res.StepIndex != 0 {
		t.Fatalf("step index = %d, want 0 after retreat", res.StepIndex)
	}
}

func TestApplyStep_DestinationChangeResetsNationality(t *testing.T) {
	s := newDraftSvc(t)
	ctx := context.Background()
	row, _ := s.Create(ctx, "u1", "")

	// Walk to the nationality step and pick a value valid for Schengen.
	steps := []struct {
		step  int
		patch domain.ApplicationDraft
	}{
		{0, domain.ApplicationDraft{DestinationCountry: "Schengen Area", VisaCategory: "tourism"}},
		{1, domain.ApplicationDraft{TravelDate: "2026-10-01", DepartureCity: "Istanbul"}},
		{2, domain.ApplicationDraft{Nationality: "Turkey"}},
	}
	for _, st := range steps {
		if _, err := s.ApplyStep(ctx, "u1", row.ID, st.step, st.patch, true); err != nil {
			t.Fatalf("step %d: %v", st.step, err)
		}
	}

	// Change the destination from the review path. Turkey is still in the
	// unrestricted universe for Japan, so no reset yet.
	res, err := s.ApplyStep(ctx, "u1", row.ID, 0,
		domain.ApplicationDraft{DestinationCountry: "Japan", VisaCategory: "tourism"}, false)
	if err != nil {
		t.Fatalf("revise destination: %v", err)
	}
	if res.NationalityReset || res.Draft.Nationality != "Turkey" {
		t.Fatalf("eligible selection must survive: %+v", res)
	}

	// Revising step 0 retreated the wizard there, so walk forward again,
	// pick Brazil, then flip to the restricted destination. Brazil is not
	// in the Schengen set and must be cleared before anything is persisted.
	if _, err := s.ApplyStep(ctx, "u1", row.ID, 0,
		domain.ApplicationDraft{DestinationCountry: "Japan", VisaCategory: "tourism"}, true); err != nil {
		t.Fatalf("step 0 again: %v", err)
	}
	if _, err := s.ApplyStep(ctx, "u1", row.ID, 1,
		domain.ApplicationDraft{TravelDate: "2026-10-01", DepartureCity: "Istanbul"}, true); err != nil {
		t.Fatalf("step 1 again: %v", err)
	}
	if _, err := s.ApplyStep(ctx, "u1", row.ID, 2,
		domain.ApplicationDraft{Nationality: "Brazil"}, true); err != nil {
		t.Fatalf("step 2 again: %v", err)
	}
	res, err = s.ApplyStep(ctx, "u1", row.ID, 0,
		domain.ApplicationDraft{DestinationCountry: "Schengen Area", VisaCategory: "tourism"}, false)
	if err != nil {
		t.Fatalf("flip to restricted destination: %v", err)
	}
	if !res.NationalityReset || res.Draft.Nationality != "" {
		t.Fatalf("stale selection must be cleared: %+v", res)
	}
	if len(res.Nationalities) != 2 { // Turkey, India
		t.Fatalf("choice set = %v", res.Nationalities)
	}

	// The cleared state is what was persisted.
	_, draft, err := s.Get(ctx, "u1", row.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if draft.Nationality != "" {
		t.Fatalf("persisted nationality = %q, want cleared", draft.Nationality)
	}
}

func TestApplyStep_IneligibleNationalityRejectedAtMutation(t *testing.T) {
	s := newDraftSvc(t)
	ctx := context.Background()
	row, _ := s.Create(ctx, "u1", "")

	// Walk to the nationality step under the restricted destination.
	if _, err := s.ApplyStep(ctx, "u1", row.ID, 0,
		domain.ApplicationDraft{DestinationCountry: "Schengen Area", VisaCategory: "tourism"}, true); err != nil {
		t.Fatalf("step 0: %v", err)
	}
	if _, err := s.ApplyStep(ctx, "u1", row.ID, 1,
		domain.ApplicationDraft{TravelDate: "2026-10-01", DepartureCity: "Istanbul"}, true); err != nil {
		t.Fatalf("step 1: %v", err)
	}

	// Japan is in the universe but not in the Schengen choice set. Setting
	// it must be rejected at the mutation, not first noticed at submit.
	res, err := s.ApplyStep(ctx, "u1", row.ID, 2,
		domain.ApplicationDraft{Nationality: "Japan"}, true)
	if err != nil {
		t.Fatalf("step 2: %v", err)
	}
	if !res.NationalityReset || res.Draft.Nationality != "" {
		t.Fatalf("ineligible value must be cleared: %+v", res)
	}
	if res.StepValid || res.Advanced || res.StepIndex != 2 {
		t.Fatalf("wizard must not advance past the cleared step: %+v", res)
	}

	// The cleared state, not the ineligible value, is what was persisted.
	_, draft, err := s.Get(ctx, "u1", row.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if draft.Nationality != "" {
		t.Fatalf("persisted nationality = %q, want cleared", draft.Nationality)
	}

	// A member of the choice set passes the same path untouched.
	res, err = s.ApplyStep(ctx, "u1", row.ID, 2,
		domain.ApplicationDraft{Nationality: "Turkey"}, true)
	if err != nil {
		t.Fatalf("eligible step 2: %v", err)
	}
	if res.NationalityReset || res.Draft.Nationality != "Turkey" || !res.Advanced {
		t.Fatalf("eligible selection mishandled: %+v", res)
	}
}

func TestApplyStep_RefusedAfterSubmit(t *testing.T) {
	s := newDraftSvc(t)
	ctx := context.Background()
	row := seedDraft(t, s.DB, "u1", completeDraft(), 4)
	if err := repo.MarkDraftSubmitted(ctx, s.DB, row.ID, "u1"); err != nil {
		t.Fatalf("mark submitted: %v", err)
	}

	_, err := s.ApplyStep(ctx, "u1", row.ID, 0,
		domain.ApplicationDraft{DestinationCountry: "Japan", VisaCategory: "tourism"}, false)
	if !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("err = %v, want ErrAlreadySubmitted", err)
	}
}

func TestAutosave_DebounceCoalesces(t *testing.T) {
	s := newDraftSvc(t)
	ctx := context.Background()
	row, _ := s.Create(ctx, "u1", "")

	first, _ := domain.EncodeDraft(domain.ApplicationDraft{DestinationCountry: "Japan"})
	second, _ := domain.EncodeDraft(domain.ApplicationDraft{DestinationCountry: "Japan", VisaCategory: "tourism"})

	s.Autosave("u1", row.ID, first, 0)
	s.Autosave("u1", row.ID, second, 0)
	time.Sleep(5 * s.Debounce)

	got, err := repo.GetDraft(ctx, s.DB, row.ID, "u1")
	if err != nil {
		t.Fatalf("GetDraft: %v", err)
	}
	if got.ApplicationData != second {
		t.Fatalf("persisted payload = %q, want the later snapshot", got.ApplicationData)
	}
	if got.AutoSavedAt.IsZero() {
		t.Fatalf("autosave timestamp not stamped")
	}
}

func TestAutosave_DroppedByStepFlush(t *testing.T) {
	s := newDraftSvc(t)
	s.Debounce = 150 * time.Millisecond
	ctx := context.Background()
	row, _ := s.Create(ctx, "u1", "")

	stale, _ := domain.EncodeDraft(domain.ApplicationDraft{DestinationCountry: "Brazil"})
	s.Autosave("u1", row.ID, stale, 0)

	// The step submission flushes immediately and cancels the pending
	// autosave; the stale snapshot must never land afterwards.
	if _, err := s.ApplyStep(ctx, "u1", row.ID, 0,
		domain.ApplicationDraft{DestinationCountry: "Japan", VisaCategory: "tourism"}, true); err != nil {
		t.Fatalf("ApplyStep: %v", err)
	}
	time.Sleep(2 * s.Debounce)

	_, draft, err := s.Get(ctx, "u1", row.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if draft.DestinationCountry != "Japan" {
		t.Fatalf("destination = %q, stale autosave overwrote the step flush", draft.DestinationCountry)
	}
}

func TestAutosave_FlushFailureIsSilent(t *testing.T) {
	// No tables at all: the flush has nowhere to write and must only log.
	db := newSvcDB(t)
	s := NewDraftService(db, testIndex())
	s.Debounce = 20 * time.Millisecond

	s.Autosave("u1", "d1", `{"destination_country":"Japan"}`, 0)
	time.Sleep(5 * s.Debounce) // must not panic
}

func TestListPage(t *testing.T) {
	s := newDraftSvc(t)
	ctx := context.Background()

	items, total, err := s.ListPage(ctx, "u1", 1, 10)
	if err != nil || total != 0 || len(items) != 0 {
		t.Fatalf("empty list: %v items=%d total=%d", err, len(items), total)
	}

	for i := 0; i < 3; i++ {
		if _, err := s.Create(ctx, "u1", "Japan"); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	if _, err := s.Create(ctx, "someone-else", "Japan"); err != nil {
		t.Fatalf("create other user: %v", err)
	}

	items, total, err = s.ListPage(ctx, "u1", 1, 2)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("total=%d len=%d, want 3 and 2", total, len(items))
	}
	items, _, err = s.ListPage(ctx, "u1", 2, 2)
	if err != nil || len(items) != 1 {
		t.Fatalf("second page: %v len=%d", err, len(items))
	}
	// Out-of-range arguments normalize instead of erroring.
	if _, _, err := s.ListPage(ctx, "u1", 0, -1); err != nil {
		t.Fatalf("normalized args: %v", err)
	}
}
