package emergency

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/carecover/carecover/internal/models"
)

// Step boundaries of the assistance flow.
const (
	StepAssessment   = 1
	StepCareOptions  = 2
	StepTreatment    = 3
	StepClaims       = 4
	totalSteps       = 4
	maxPainLevel     = 10
	defaultFollowUpDelay = 120 * time.Minute
)

// ContextStore persists per-session emergency contexts. store.Store
// satisfies it.
type ContextStore interface {
	SaveEmergencyContext(ctx models.EmergencyContext) error
	GetEmergencyContext(sessionID string) (models.EmergencyContext, error)
	DeleteEmergencyContext(sessionID string) error
}

// Scheduler books a delayed follow-up message for a session.
type Scheduler interface {
	Schedule(ctx context.Context, sessionID string, delay time.Duration, message string) (string, error)
}

// Opts holds the dependencies and knobs for a Flow.
type Opts struct {
	Scheduler       Scheduler
	DerivedSeverity bool
	Now             func() time.Time
}

// Option configures a Flow.
type Option func(*Opts)

// WithScheduler wires a follow-up scheduler into the flow. Without one,
// treatment start still records its timestamp but books no follow-up.
func WithScheduler(s Scheduler) Option {
	return func(o *Opts) { o.Scheduler = s }
}

// WithDerivedSeverity makes Initialize classify severity from the supplied
// symptoms and pain level instead of defaulting to moderate.
func WithDerivedSeverity() Option {
	return func(o *Opts) { o.DerivedSeverity = true }
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(o *Opts) { o.Now = now }
}

// Flow manages the four-step emergency flow for all sessions, persisting
// each session's context through the store.
type Flow struct {
	store ContextStore
	opts  Opts
}

// NewFlow returns a flow manager over the given context store.
func NewFlow(store ContextStore, opts ...Option) *Flow {
	o := Opts{Now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return &Flow{store: store, opts: o}
}

// Initialize opens an emergency context at step 1 for the session. Severity
// defaults to moderate unless the flow was built with WithDerivedSeverity.
func (f *Flow) Initialize(sessionID string, symptoms []string, location string, painLevel *int) (models.EmergencyContext, error) {
	slog.Debug("Flow Initialize", "sessionID", sessionID, "symptoms", len(symptoms), "location", location)
	if sessionID == "" {
		return models.EmergencyContext{}, models.ErrEmptySessionID
	}

	severity := models.SeverityModerate
	if f.opts.DerivedSeverity {
		severity = Classify(symptoms, painLevel)
	}

	now := f.opts.Now()
	ctx := models.EmergencyContext{
		SessionID:     sessionID,
		CurrentStep:   StepAssessment,
		SeverityLevel: severity,
		Symptoms:      append([]string(nil), symptoms...),
		Location:      location,
		PainLevel:     painLevel,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := f.store.SaveEmergencyContext(ctx); err != nil {
		return models.EmergencyContext{}, fmt.Errorf("failed to save emergency context: %w", err)
	}
	return ctx, nil
}

// Context returns the session's emergency context.
func (f *Flow) Context(sessionID string) (models.EmergencyContext, error) {
	return f.store.GetEmergencyContext(sessionID)
}

// End removes the session's emergency context.
func (f *Flow) End(sessionID string) error {
	slog.Debug("Flow End", "sessionID", sessionID)
	return f.store.DeleteEmergencyContext(sessionID)
}

// UpdateSeverity replaces the session's severity level.
func (f *Flow) UpdateSeverity(sessionID string, severity models.SeverityLevel) (models.EmergencyContext, error) {
	if !models.IsValidSeverity(severity) {
		return models.EmergencyContext{}, models.ErrInvalidSeverity
	}
	return f.update(sessionID, func(ctx *models.EmergencyContext) {
		ctx.SeverityLevel = severity
	})
}

// SelectCareOption records the chosen care option.
func (f *Flow) SelectCareOption(sessionID, optionID string) (models.EmergencyContext, error) {
	return f.update(sessionID, func(ctx *models.EmergencyContext) {
		ctx.SelectedCareOption = optionID
	})
}

// StartTreatment stamps the treatment start time and books a follow-up when
// the pre-update state allows one: not yet at the claims step, no prior
// treatment start, no follow-up already on the books.
func (f *Flow) StartTreatment(ctx context.Context, sessionID string) (models.EmergencyContext, error) {
	slog.Debug("Flow StartTreatment", "sessionID", sessionID)
	ec, err := f.store.GetEmergencyContext(sessionID)
	if err != nil {
		return models.EmergencyContext{}, err
	}

	schedulable := shouldScheduleFollowUp(ec)

	now := f.opts.Now()
	ec.TreatmentStartTime = &now
	ec.UpdatedAt = now

	if schedulable && f.opts.Scheduler != nil {
		delay := FollowUpDelay(ec.SeverityLevel)
		message := FollowUpMessage(ec.SeverityLevel)
		if _, err := f.opts.Scheduler.Schedule(ctx, sessionID, delay, message); err != nil {
			slog.Error("Flow StartTreatment failed to schedule follow-up", "sessionID", sessionID, "error", err)
		} else {
			due := now.Add(delay)
			ec.FollowUpScheduled = &due
		}
	}

	if err := f.store.SaveEmergencyContext(ec); err != nil {
		return models.EmergencyContext{}, fmt.Errorf("failed to save emergency context: %w", err)
	}
	return ec, nil
}

// CompleteTreatment advances the session to the claims step.
func (f *Flow) CompleteTreatment(sessionID string) (models.EmergencyContext, error) {
	return f.update(sessionID, func(ctx *models.EmergencyContext) {
		ctx.CurrentStep = StepClaims
	})
}

// MoveToStep jumps to the given step without checking readiness. Use
// CanProceedToStep for the advisory check.
func (f *Flow) MoveToStep(sessionID string, step int) (models.EmergencyContext, error) {
	if step < StepAssessment || step > StepClaims {
		return models.EmergencyContext{}, models.ErrInvalidStep
	}
	return f.update(sessionID, func(ctx *models.EmergencyContext) {
		ctx.CurrentStep = step
	})
}

// AddSymptom appends a symptom unless it is already recorded.
func (f *Flow) AddSymptom(sessionID, symptom string) (models.EmergencyContext, error) {
	return f.update(sessionID, func(ctx *models.EmergencyContext) {
		if !containsString(ctx.Symptoms, symptom) {
			ctx.Symptoms = append(ctx.Symptoms, symptom)
		}
	})
}

// UpdateLocation replaces the recorded location.
func (f *Flow) UpdateLocation(sessionID, location string) (models.EmergencyContext, error) {
	return f.update(sessionID, func(ctx *models.EmergencyContext) {
		ctx.Location = location
	})
}

// UpdatePainLevel replaces the recorded pain level (0 to 10).
func (f *Flow) UpdatePainLevel(sessionID string, level int) (models.EmergencyContext, error) {
	if level < 0 || level > maxPainLevel {
		return models.EmergencyContext{}, models.ErrInvalidPainLevel
	}
	return f.update(sessionID, func(ctx *models.EmergencyContext) {
		ctx.PainLevel = &level
	})
}

// CanProceedToStep reports whether the session looks ready for the given
// step. Advisory only: MoveToStep does not consult it.
func (f *Flow) CanProceedToStep(sessionID string, step int) bool {
	ctx, err := f.store.GetEmergencyContext(sessionID)
	if err != nil {
		return false
	}
	switch step {
	case StepAssessment:
		return true
	case StepCareOptions:
		return len(ctx.Symptoms) > 0 && ctx.SeverityLevel != ""
	case StepTreatment:
		return ctx.SelectedCareOption != ""
	case StepClaims:
		return ctx.TreatmentStartTime != nil
	default:
		return false
	}
}

// StepProgress describes how far the session is through the flow.
type StepProgress struct {
	Current    int     `json:"current"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// Progress returns the session's position in the flow. A session without an
// emergency context reports step 0.
func (f *Flow) Progress(sessionID string) StepProgress {
	ctx, err := f.store.GetEmergencyContext(sessionID)
	if err != nil {
		return StepProgress{Current: 0, Total: totalSteps, Percentage: 0}
	}
	return StepProgress{
		Current:    ctx.CurrentStep,
		Total:      totalSteps,
		Percentage: float64(ctx.CurrentStep) / float64(totalSteps) * 100,
	}
}

func (f *Flow) update(sessionID string, mutate func(*models.EmergencyContext)) (models.EmergencyContext, error) {
	ctx, err := f.store.GetEmergencyContext(sessionID)
	if err != nil {
		return models.EmergencyContext{}, err
	}
	mutate(&ctx)
	ctx.UpdatedAt = f.opts.Now()
	if err := f.store.SaveEmergencyContext(ctx); err != nil {
		return models.EmergencyContext{}, fmt.Errorf("failed to save emergency context: %w", err)
	}
	return ctx, nil
}

// shouldScheduleFollowUp gates follow-up booking on the state before the
// treatment start is recorded.
func shouldScheduleFollowUp(ctx models.EmergencyContext) bool {
	if ctx.CurrentStep == StepClaims {
		return false
	}
	if ctx.TreatmentStartTime != nil {
		return false
	}
	if ctx.FollowUpScheduled != nil {
		return false
	}
	return true
}

// FollowUpDelay maps a severity level to the wait before checking in.
func FollowUpDelay(severity models.SeverityLevel) time.Duration {
	switch severity {
	case models.SeverityCritical:
		return 30 * time.Minute
	case models.SeveritySevere:
		return 60 * time.Minute
	case models.SeverityModerate:
		return 120 * time.Minute
	case models.SeverityMinor:
		return 240 * time.Minute
	default:
		return defaultFollowUpDelay
	}
}

// FollowUpMessage renders the check-in text for a severity level.
func FollowUpMessage(severity models.SeverityLevel) string {
	const base = "How are you feeling now? Have you received treatment?"
	switch severity {
	case models.SeverityCritical:
		return "🚨 " + base + " Please let me know if you need any help with your insurance claims or have any questions about your treatment."
	case models.SeveritySevere:
		return "⚠️ " + base + " I'm here to help with any insurance questions or next steps you might need."
	case models.SeverityModerate:
		return "📋 " + base + " If you've seen a doctor, I can help you understand your insurance coverage and next steps."
	case models.SeverityMinor:
		return "💡 " + base + " If you've received treatment, I can help you with insurance claims or any follow-up questions."
	default:
		return base
	}
}

// StepDescription names what the assistant is doing at each step.
func StepDescription(step int) string {
	switch step {
	case StepAssessment:
		return "Assessing your symptoms and severity"
	case StepCareOptions:
		return "Finding the best care options for you"
	case StepTreatment:
		return "Preparing for your treatment"
	case StepClaims:
		return "Helping with insurance claims"
	default:
		return "Emergency assistance"
	}
}
