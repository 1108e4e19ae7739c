// Package services – SubmissionService
//
// This file implements the submission pipeline, the one place where a draft
// becomes a persisted application. The order of stages is deliberate and
// each stage short-circuits on failure:
//
//	full validation → sanitize → critical write → best-effort notification
//
// The critical write is the authority on success. The confirmation email is
// expendable: the record of intent must survive even when the notification
// channel is down, so a notification failure only downgrades the outcome,
// it never flips it to a failure, and it is never attempted when the write
// already failed.
//
// Observability: public methods are OpenTelemetry-instrumented; outcome
// counts feed a Prometheus counter; store failures are logged with full
// diagnostic detail while the applicant only ever sees the taxonomy message.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/atlasvisa/go-visa-backend/internal/domain"
	"github.com/atlasvisa/go-visa-backend/internal/eligibility"
	"github.com/atlasvisa/go-visa-backend/internal/notify"
	"github.com/atlasvisa/go-visa-backend/internal/repo"
	"github.com/atlasvisa/go-visa-backend/internal/sanitize"
	"github.com/atlasvisa/go-visa-backend/internal/wizard"
)

// submissionOutcomes counts pipeline results by outcome status. Validation
// refusals and store failures land here too, so the ratio of degraded to
// clean successes is visible on dashboards.
var submissionOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "visa_submission_outcomes_total",
		Help: "Total submission pipeline outcomes by status.",
	},
	[]string{"status"},
)

func init() {
	prometheus.MustRegister(submissionOutcomes)
}

// SubmissionService runs the submission pipeline for completed drafts.
type SubmissionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Index is the eligibility rule table consulted for the defensive
	// revalidation before the full validation pass.
	Index eligibility.Index
	// Notifier dispatches the best-effort confirmation.
	Notifier notify.Notifier

	// WriteTimeout bounds the critical write; zero means 5s.
	WriteTimeout time.Duration
	// NotifyTimeout bounds the confirmation send; zero means 5s. A timeout
	// follows the same degrade-don't-fail rule as any other notify error.
	NotifyTimeout time.Duration
	// IdempotencyTTL is how long a recorded submit result can be replayed.
	IdempotencyTTL time.Duration

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewSubmissionService constructs a SubmissionService with sane defaults.
func NewSubmissionService(db *gorm.DB, idx eligibility.Index, n notify.Notifier) *SubmissionService {
	return &SubmissionService{
		DB:             db,
		Index:          idx,
		Notifier:       n,
		WriteTimeout:   5 * time.Second,
		NotifyTimeout:  5 * time.Second,
		IdempotencyTTL: 24 * time.Hour,
		inflight:       make(map[string]struct{}),
	}
}

// Submit runs the pipeline for the given draft and returns exactly one
// outcome envelope. Service-level refusals (missing draft, overlapping
// submit, already submitted) are returned as errors; pipeline failures are
// data inside the envelope.
func (s *SubmissionService) Submit(ctx context.Context, userID, draftID string) (domain.SubmissionOutcome, error) {
	tr := otel.Tracer("services/SubmissionService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("draft.id", draftID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	// Double-submit guard: one pipeline run per draft at a time. The second
	// of two overlapping attempts never reaches the critical write.
	if !s.begin(draftID) {
		return domain.SubmissionOutcome{}, ErrSubmitInFlight
	}
	defer s.end(draftID)

	row, err := repo.GetDraft(ctx, s.DB, draftID, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.SubmissionOutcome{}, ErrDraftNotFound
		}
		return domain.SubmissionOutcome{}, err
	}
	if row.Status != domain.StatusDraft {
		return domain.SubmissionOutcome{}, ErrAlreadySubmitted
	}

	draft, err := domain.DecodeDraft(row.ApplicationData)
	if err != nil {
		return domain.SubmissionOutcome{}, ErrCorruptDraft
	}

	// Defensive revalidation: a nationality that fell out of the current
	// choice set is cleared here, so the step validation below reports it
	// as missing. An ineligible selection can never reach the store.
	eligibility.Revalidate(s.Index, &draft)

	// Stage 1: every step's validity predicate, in step order, not just the
	// last step's. Programmatic navigation could have left an earlier step
	// inconsistent.
	if field, step, invalid := wizard.FirstInvalid(draft); invalid {
		return s.fail(domain.FailureMissingField, field,
			fmt.Sprintf("Please complete the %s field (step %d) before submitting.", field, step+1)), nil
	}

	// Stage 2: sanitize. The only rejection here is a structurally invalid
	// email; overlength fields were truncated, not rejected.
	rec, err := sanitize.Sanitize(draft)
	if err != nil {
		var serr *sanitize.Error
		field := "email"
		if errors.As(err, &serr) {
			field = serr.Field
		}
		return s.fail(domain.FailureInvalidFormat, field,
			fmt.Sprintf("Please provide a valid %s before submitting.", field)), nil
	}

	// Stage 3: critical write, independently bounded. On failure the whole
	// attempt fails and the notification is never attempted. The applicant
	// gets the generic retry message; operators get the cause.
	wctx, wcancel := context.WithTimeout(ctx, s.writeTimeout())
	appID, err := repo.InsertSubmission(wctx, s.DB, rec)
	wcancel()
	if err != nil {
		log.Error().
			Err(err).
			Str("draft_id", draftID).
			Str("form_kind", string(rec.Kind)).
			Str("destination", rec.DestinationCountry).
			Msg("critical write failed")
		return s.fail(domain.FailureStore, "",
			"We could not save your application. Please try again."), nil
	}

	// The write landed: from here on the submission is a success and cannot
	// be cancelled. Detach from the request context so a client disconnect
	// does not abort the remaining best-effort work.
	bg := context.WithoutCancel(ctx)

	// Stage 4: best-effort notification, independently bounded.
	sent := s.notifyBestEffort(bg, rec, draftID)

	// Flip the draft out of the editable status. A failure here is logged
	// and otherwise ignored; the lead row is already the source of truth.
	if err := repo.MarkDraftSubmitted(bg, s.DB, draftID, userID); err != nil {
		log.Warn().Err(err).Str("draft_id", draftID).Msg("mark draft submitted failed")
	}

	outcome := domain.SubmissionOutcome{
		Status:           domain.OutcomeSuccess,
		ApplicationID:    appID,
		NotificationSent: sent,
		Message:          "Your application was submitted successfully. A confirmation email is on its way.",
	}
	if !sent {
		outcome.Status = domain.OutcomeDegraded
		outcome.Message = "Your application was submitted successfully. We could not send a confirmation email, so our team will contact you directly."
	}
	submissionOutcomes.WithLabelValues(string(outcome.Status)).Inc()
	return outcome, nil
}

// RecordResult stores the submit result for an Idempotency-Key so a retried
// request replays the original outcome. Best effort: a failure to record is
// logged, never surfaced.
func (s *SubmissionService) RecordResult(ctx context.Context, userID, draftID, key, applicationID string) {
	if key == "" {
		return
	}
	ttl := s.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if _, err := repo.CreateIdempotency(ctx, s.DB, userID, draftID, key, applicationID, http.StatusOK, ttl); err != nil && !errors.Is(err, repo.ErrDuplicate) {
		log.Warn().Err(err).Str("draft_id", draftID).Msg("record idempotency failed")
	}
}

// ReplayResult returns the previously recorded outcome for an
// Idempotency-Key, if one exists and has not expired.
func (s *SubmissionService) ReplayResult(ctx context.Context, userID, draftID, key string) (domain.SubmissionOutcome, bool) {
	if key == "" {
		return domain.SubmissionOutcome{}, false
	}
	rec, err := repo.GetIdempotency(ctx, s.DB, userID, draftID, key, time.Now().UTC())
	if err != nil || rec == nil {
		return domain.SubmissionOutcome{}, false
	}
	return domain.SubmissionOutcome{
		Status:           domain.OutcomeSuccess,
		ApplicationID:    rec.ApplicationID,
		NotificationSent: true,
		Message:          "Your application was already submitted successfully.",
	}, true
}

// notifyBestEffort attempts the confirmation send within its own deadline.
// Every failure path is swallowed after logging; the return value only
// feeds the success/degraded distinction.
func (s *SubmissionService) notifyBestEffort(ctx context.Context, rec domain.SubmissionRecord, draftID string) bool {
	if s.Notifier == nil {
		return false
	}
	nctx, cancel := context.WithTimeout(ctx, s.notifyTimeout())
	defer cancel()

	err := s.Notifier.Send(nctx, notify.Confirmation{
		Name:        rec.Name,
		Email:       rec.Email,
		FormType:    string(rec.Kind),
		Destination: rec.DestinationCountry,
		TravelNeeds: rec.TravelNeeds,
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("draft_id", draftID).
			Msg("confirmation notification failed; submission outcome unaffected")
		return false
	}
	return true
}

// fail builds a failure envelope and counts it.
func (s *SubmissionService) fail(kind domain.FailureKind, field, msg string) domain.SubmissionOutcome {
	submissionOutcomes.WithLabelValues(string(domain.OutcomeFailure)).Inc()
	return domain.SubmissionOutcome{
		Status:      domain.OutcomeFailure,
		FailureKind: kind,
		Field:       field,
		Message:     msg,
	}
}

func (s *SubmissionService) begin(draftID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight == nil {
		s.inflight = make(map[string]struct{})
	}
	if _, busy := s.inflight[draftID]; busy {
		return false
	}
	s.inflight[draftID] = struct{}{}
	return true
}

func (s *SubmissionService) end(draftID string) {
	s.mu.Lock()
	delete(s.inflight, draftID)
	s.mu.Unlock()
}

func (s *SubmissionService) writeTimeout() time.Duration {
	if s.WriteTimeout > 0 {
		return s.WriteTimeout
	}
	return 5 * time.Second
}

func (s *SubmissionService) notifyTimeout() time.Duration {
	if s.NotifyTimeout > 0 {
		return s.NotifyTimeout
	}
	return 5 * time.Second
}
