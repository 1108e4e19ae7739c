package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/atlasvisa/go-visa-backend/internal/domain"
	"github.com/atlasvisa/go-visa-backend/internal/eligibility"
	"github.com/atlasvisa/go-visa-backend/internal/notify"
	"github.com/atlasvisa/go-visa-backend/internal/repo"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:subsvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func allModels() []any {
	return []any{
		&domain.Draft{},
		&domain.ShortStayApplication{},
		&domain.LongStayApplication{},
		&domain.Idempotency{},
	}
}

// testIndex restricts (Schengen Area, *) to Turkey/India and leaves every
// other destination unrestricted.
func testIndex() eligibility.Index {
	return eligibility.NewIndex(
		[]eligibility.Rule{
			{DestinationCountry: "Schengen Area", Nationalities: []string{"Turkey", "India"}},
		},
		eligibility.WithUniverse([]string{"Brazil", "India", "Japan", "Turkey"}),
	)
}

// stubNotifier counts sends, optionally failing or blocking until released.
type stubNotifier struct {
	mu      sync.Mutex
	calls   int
	err     error
	release chan struct{} // when non-nil, Send blocks until closed or ctx ends
}

func (n *stubNotifier) Send(ctx context.Context, _ notify.Confirmation) error {
	n.mu.Lock()
	n.calls++
	release := n.release
	n.mu.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return n.err
}

func (n *stubNotifier) sends() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

func completeDraft() domain.ApplicationDraft {
	return domain.ApplicationDraft{
		DestinationCountry: "Schengen Area",
		VisaCategory:       "tourism",
		TravelDate:         "2026-10-01",
		DepartureCity:      "Istanbul",
		Nationality:        "Turkey",
		ApplicantName:      "Ada Yilmaz",
		Email:              "ada@example.com",
		Phone:              "+90 555 000 0000",
	}
}

func seedDraft(t *testing.T, db *gorm.DB, userID string, d domain.ApplicationDraft, step int) *domain.Draft {
	t.Helper()
	payload, err := domain.EncodeDraft(d)
	if err != nil {
		t.Fatalf("encode draft: %v", err)
	}
	row, err := repo.CreateDraft(context.Background(), db, userID, payload)
	if err != nil {
		t.Fatalf("seed draft: %v", err)
	}
	if step != 0 {
		if err := repo.SaveDraftPayload(context.Background(), db, row.ID, userID, payload, step, time.Now().UTC()); err != nil {
			t.Fatalf("seed step: %v", err)
		}
		row.StepIndex = step
	}
	return row
}

// ---------- Submit() ----------

func TestSubmit_Success(t *testing.T) {
	db := newSvcDB(t, allModels()...)
	n := &stubNotifier{}
	s := NewSubmissionService(db, testIndex(), n)
	row := seedDraft(t, db, "u1", completeDraft(), 4)

	out, err := s.Submit(context.Background(), "u1", row.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Status != domain.OutcomeSuccess {
		t.Fatalf("status = %q (%+v)", out.Status, out)
	}
	if out.ApplicationID == "" || !out.NotificationSent {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if n.sends() != 1 {
		t.Fatalf("notifier sends = %d, want 1", n.sends())
	}

	var app domain.ShortStayApplication
	if err := db.First(&app, "id = ?", out.ApplicationID).Error; err != nil {
		t.Fatalf("stored row: %v", err)
	}
	if app.Purpose != "tourism" || app.Nationality != "Turkey" {
		t.Fatalf("row = %+v", app)
	}

	got, _ := repo.GetDraft(context.Background(), db, row.ID, "u1")
	if got.Status != domain.StatusSubmitted {
		t.Fatalf("draft status = %q, want submitted", got.Status)
	}
}

func TestSubmit_LongStayRouting(t *testing.T) {
	db := newSvcDB(t, allModels()...)
	s := NewSubmissionService(db, testIndex(), &stubNotifier{})

	d := completeDraft()
	d.VisaCategory = "work"
	row := seedDraft(t, db, "u1", d, 4)

	out, err := s.Submit(context.Background(), "u1", row.ID)
	if err != nil || out.Status != domain.OutcomeSuccess {
		t.Fatalf("Submit: %v, %+v", err, out)
	}
	var app domain.LongStayApplication
	if err := db.First(&app, "id = ?", out.ApplicationID).Error; err != nil {
		t.Fatalf("long-stay row: %v", err)
	}
	if app.VisaCategory != "work" {
		t.Fatalf("visa_category = %q", app.VisaCategory)
	}
	var n int64
	db.Model(&domain.ShortStayApplication{}).Count(&n)
	if n != 0 {
		t.Fatalf("long-stay submission leaked into short-stay table")
	}
}

func TestSubmit_DegradedWhenNotifierFails(t *testing.T) {
	db := newSvcDB(t, allModels()...)
	n := &stubNotifier{err: errors.New("smtp down")}
	s := NewSubmissionService(db, testIndex(), n)
	row := seedDraft(t, db, "u1", completeDraft(), 4)

	out, err := s.Submit(context.Background(), "u1", row.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Status != domain.OutcomeDegraded || out.NotificationSent {
		t.Fatalf("outcome = %+v, want degraded without notification", out)
	}
	// The critical write still landed.
	var count int64
	db.Model(&domain.ShortStayApplication{}).Count(&count)
	if count != 1 {
		t.Fatalf("stored rows = %d, want 1", count)
	}
	got, _ := repo.GetDraft(context.Background(), db, row.ID, "u1")
	if got.Status != domain.StatusSubmitted {
		t.Fatalf("draft status = %q", got.Status)
	}
}

func TestSubmit_MissingFieldInStepOrder(t *testing.T) {
	db := newSvcDB(t, allModels()...)
	n := &stubNotifier{}
	s := NewSubmissionService(db, testIndex(), n)

	d := completeDraft()
	d.Nationality = "" // step 2
	d.Phone = ""       // step 3; the earlier gap must be reported
	row := seedDraft(t, db, "u1", d, 4)

	out, err := s.Submit(context.Background(), "u1", row.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Status != domain.OutcomeFailure || out.FailureKind != domain.FailureMissingField {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Field != "nationality" {
		t.Fatalf("field = %q, want nationality", out.Field)
	}
	if n.sends() != 0 {
		t.Fatalf("validation failure must never notify")
	}
	var count int64
	db.Model(&domain.ShortStayApplication{}).Count(&count)
	if count != 0 {
		t.Fatalf("validation failure must never write")
	}
	got, _ := repo.GetDraft(context.Background(), db, row.ID, "u1")
	if got.Status != domain.StatusDraft {
		t.Fatalf("draft left the editable status on failure")
	}
}

func TestSubmit_IneligibleNationalityCleared(t *testing.T) {
	db := newSvcDB(t, allModels()...)
	s := NewSubmissionService(db, testIndex(), &stubNotifier{})

	d := completeDraft()
	d.Nationality = "Brazil" // in the universe, not in the Schengen set
	row := seedDraft(t, db, "u1", d, 4)

	out, err := s.Submit(context.Background(), "u1", row.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	// The stale selection is cleared defensively, then reported missing.
	if out.Status != domain.OutcomeFailure || out.FailureKind != domain.FailureMissingField || out.Field != "nationality" {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestSubmit_InvalidEmail(t *testing.T) {
	db := newSvcDB(t, allModels()...)
	n := &stubNotifier{}
	s := NewSubmissionService(db, testIndex(), n)

	d := completeDraft()
	d.Email = "not-an-email"
	row := seedDraft(t, db, "u1", d, 4)

	out, err := s.Submit(context.Background(), "u1", row.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Status != domain.OutcomeFailure || out.FailureKind != domain.FailureInvalidFormat || out.Field != "email" {
		t.Fatalf("outcome = %+v", out)
	}
	var count int64
	db.Model(&domain.ShortStayApplication{}).Count(&count)
	if count != 0 || n.sends() != 0 {
		t.Fatalf("invalid format must neither write nor notify")
	}
}

func TestSubmit_StoreFailure(t *testing.T) {
	// Drafts table only: the critical write has nowhere to land.
	db := newSvcDB(t, &domain.Draft{})
	n := &stubNotifier{}
	s := NewSubmissionService(db, testIndex(), n)
	row := seedDraft(t, db, "u1", completeDraft(), 4)

	out, err := s.Submit(context.Background(), "u1", row.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Status != domain.OutcomeFailure || out.FailureKind != domain.FailureStore {
		t.Fatalf("outcome = %+v", out)
	}
	if out.ApplicationID != "" {
		t.Fatalf("store failure must not carry an application id")
	}
	if n.sends() != 0 {
		t.Fatalf("store failure must never attempt the notification")
	}
	got, _ := repo.GetDraft(context.Background(), db, row.ID, "u1")
	if got.Status != domain.StatusDraft {
		t.Fatalf("draft must stay editable after a store failure")
	}
}

func TestSubmit_UnknownDraft(t *testing.T) {
	db := newSvcDB(t, allModels()...)
	s := NewSubmissionService(db, testIndex(), &stubNotifier{})
	_, err := s.Submit(context.Background(), "u1", uuid.NewString())
	if !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("err = %v, want ErrDraftNotFound", err)
	}
}

func TestSubmit_AlreadySubmitted(t *testing.T) {
	db := newSvcDB(t, allModels()...)
	s := NewSubmissionService(db, testIndex(), &stubNotifier{})
	row := seedDraft(t, db, "u1", completeDraft(), 4)

	if _, err := s.Submit(context.Background(), "u1", row.ID); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := s.Submit(context.Background(), "u1", row.ID)
	if !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("err = %v, want ErrAlreadySubmitted", err)
	}
	var count int64
	db.Model(&domain.ShortStayApplication{}).Count(&count)
	if count != 1 {
		t.Fatalf("stored rows = %d, want exactly 1", count)
	}
}

func TestSubmit_OverlappingAttemptsWriteOnce(t *testing.T) {
	db := newSvcDB(t, allModels()...)
	release := make(chan struct{})
	n := &stubNotifier{release: release}
	s := NewSubmissionService(db, testIndex(), n)
	row := seedDraft(t, db, "u1", completeDraft(), 4)

	firstDone := make(chan domain.SubmissionOutcome, 1)
	go func() {
		out, _ := s.Submit(context.Background(), "u1", row.ID)
		firstDone <- out
	}()

	// Wait until the first attempt is parked inside the notifier, which is
	// after its critical write.
	deadline := time.After(2 * time.Second)
	for n.sends() == 0 {
		select {
		case <-deadline:
			t.Fatalf("first attempt never reached the notifier")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// The overlapping second attempt is refused before the critical write.
	if _, err := s.Submit(context.Background(), "u1", row.ID); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("err = %v, want ErrSubmitInFlight", err)
	}

	close(release)
	out := <-firstDone
	if out.Status != domain.OutcomeSuccess {
		t.Fatalf("first attempt outcome = %+v", out)
	}
	var count int64
	db.Model(&domain.ShortStayApplication{}).Count(&count)
	if count != 1 {
		t.Fatalf("stored rows = %d, want exactly 1", count)
	}
}

// ---------- idempotent replay ----------

func TestRecordAndReplayResult(t *testing.T) {
	db := newSvcDB(t, allModels()...)
	s := NewSubmissionService(db, testIndex(), &stubNotifier{})
	ctx := context.Background()

	if _, found := s.ReplayResult(ctx, "u1", "d1", "k1"); found {
		t.Fatalf("replay before record must miss")
	}

	s.RecordResult(ctx, "u1", "d1", "k1", "app-7")
	out, found := s.ReplayResult(ctx, "u1", "d1", "k1")
	if !found {
		t.Fatalf("recorded result not replayable")
	}
	if out.Status != domain.OutcomeSuccess || out.ApplicationID != "app-7" {
		t.Fatalf("replayed outcome = %+v", out)
	}

	// Re-recording the same tuple is a silent no-op.
	s.RecordResult(ctx, "u1", "d1", "k1", "app-8")
	out, _ = s.ReplayResult(ctx, "u1", "d1", "k1")
	if out.ApplicationID != "app-7" {
		t.Fatalf("original record must win: %+v", out)
	}

	// Empty key records nothing.
	s.RecordResult(ctx, "u1", "d2", "", "app-9")
	if _, found := s.ReplayResult(ctx, "u1", "d2", ""); found {
		t.Fatalf("empty key must never replay")
	}
}
