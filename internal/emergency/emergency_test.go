package emergency

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/carecover/carecover/internal/models"
)

// memStore is a minimal in-memory ContextStore for tests.
type memStore struct {
	contexts map[string]models.EmergencyContext
}

func newMemStore() *memStore {
	return &memStore{contexts: make(map[string]models.EmergencyContext)}
}

func (m *memStore) SaveEmergencyContext(ctx models.EmergencyContext) error {
	m.contexts[ctx.SessionID] = ctx
	return nil
}

func (m *memStore) GetEmergencyContext(sessionID string) (models.EmergencyContext, error) {
	ctx, ok := m.contexts[sessionID]
	if !ok {
		return models.EmergencyContext{}, models.ErrNoEmergencyContext
	}
	return ctx, nil
}

func (m *memStore) DeleteEmergencyContext(sessionID string) error {
	delete(m.contexts, sessionID)
	return nil
}

// recordingScheduler captures Schedule calls.
type recordingScheduler struct {
	calls []scheduledCall
	err   error
}

type scheduledCall struct {
	sessionID string
	delay     time.Duration
	message   string
}

func (r *recordingScheduler) Schedule(_ context.Context, sessionID string, delay time.Duration, message string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.calls = append(r.calls, scheduledCall{sessionID, delay, message})
	return "followup-test", nil
}

func intPtr(n int) *int { return &n }

func TestDetectEmergencyKeywords(t *testing.T) {
	d := NewDetector([]string{"bedok", "tampines"})

	tests := []struct {
		name        string
		message     string
		isEmergency bool
	}{
		{"accident", "I had an accident at the park", true},
		{"chest pain", "experiencing chest pain right now", true},
		{"ambulance", "do I need to call an ambulance?", true},
		{"benign", "what does my policy cover for dental?", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Detect(tt.message); got.IsEmergency != tt.isEmergency {
				t.Errorf("Detect(%q).IsEmergency = %v, want %v", tt.message, got.IsEmergency, tt.isEmergency)
			}
		})
	}
}

func TestDetectExtractsSymptomsWithoutEmergency(t *testing.T) {
	d := NewDetector(nil)

	got := d.Detect("I have a mild headache and a cough since yesterday")

	if got.IsEmergency {
		t.Error("expected non-emergency")
	}
	// Substring scan: "ache" matches inside "headache" as well.
	want := []string{"ache", "headache", "cough"}
	if len(got.Symptoms) != len(want) {
		t.Fatalf("Symptoms = %v, want %v", got.Symptoms, want)
	}
	for i, symptom := range want {
		if got.Symptoms[i] != symptom {
			t.Errorf("Symptoms = %v, want %v", got.Symptoms, want)
			break
		}
	}
}

func TestDetectPainLevelAndLocation(t *testing.T) {
	d := NewDetector([]string{"bedok", "tampines"})

	got := d.Detect("I fell in bedok, pain level 7, my ankle is swelling")

	if !got.IsEmergency {
		t.Error("expected emergency for fall")
	}
	if got.PainLevel == nil || *got.PainLevel != 7 {
		t.Errorf("PainLevel = %v, want 7", got.PainLevel)
	}
	if got.Location != "bedok" {
		t.Errorf("Location = %q, want bedok", got.Location)
	}
	if !containsString(got.Symptoms, "swelling") {
		t.Errorf("Symptoms = %v, want swelling included", got.Symptoms)
	}
}

func TestDetectContextualPlaces(t *testing.T) {
	d := NewDetector([]string{"bedok"})

	if got := d.Detect("I slipped at home and hurt my wrist"); got.Location != "home" {
		t.Errorf("Location = %q, want home", got.Location)
	}
}

func TestDetectDeduplicatesSymptoms(t *testing.T) {
	d := NewDetector(nil)

	got := d.Detect("pain, so much pain, the pain is bad")

	count := 0
	for _, s := range got.Symptoms {
		if s == "pain" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("pain appears %d times, want 1", count)
	}
}

func TestClassifyPriorityRules(t *testing.T) {
	tests := []struct {
		name      string
		symptoms  []string
		painLevel *int
		want      models.SeverityLevel
	}{
		{"critical symptom", []string{"fracture"}, nil, models.SeverityCritical},
		{"critical beats high pain", []string{"chest pain"}, intPtr(3), models.SeverityCritical},
		{"severe symptom", []string{"swelling"}, nil, models.SeveritySevere},
		{"pain 9 no symptoms", nil, intPtr(9), models.SeveritySevere},
		{"pain 8 boundary", nil, intPtr(8), models.SeveritySevere},
		{"pain 6 no symptoms", nil, intPtr(6), models.SeverityModerate},
		{"pain 5 boundary", nil, intPtr(5), models.SeverityModerate},
		{"pain 2 no symptoms", nil, intPtr(2), models.SeverityMinor},
		{"nothing", nil, nil, models.SeverityMinor},
		{"unlisted symptom", []string{"cough"}, nil, models.SeverityMinor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.symptoms, tt.painLevel); got != tt.want {
				t.Errorf("Classify(%v, %v) = %v, want %v", tt.symptoms, tt.painLevel, got, tt.want)
			}
		})
	}
}

func TestClassifyAfterDetectUsesSymptomTable(t *testing.T) {
	d := NewDetector(nil)

	got := d.Detect("I have severe chest pain and difficulty breathing")

	if !got.IsEmergency {
		t.Error("expected emergency detection")
	}
	// "chest pain" and "difficulty breathing" live in the emergency keyword
	// table, not the symptom table, so only "pain" survives extraction and
	// classification stays minor.
	if len(got.Symptoms) != 1 || got.Symptoms[0] != "pain" {
		t.Fatalf("Symptoms = %v, want [pain]", got.Symptoms)
	}
	if sev := Classify(got.Symptoms, got.PainLevel); sev != models.SeverityMinor {
		t.Errorf("Classify = %v, want minor", sev)
	}
}

func TestInitializeDefaultsToModerate(t *testing.T) {
	// Hardcoded moderate regardless of how alarming the inputs are.
	flow := NewFlow(newMemStore())

	ctx, err := flow.Initialize("s1", []string{"fracture", "bleeding"}, "bedok", intPtr(10))
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if ctx.SeverityLevel != models.SeverityModerate {
		t.Errorf("SeverityLevel = %v, want moderate", ctx.SeverityLevel)
	}
	if ctx.CurrentStep != StepAssessment {
		t.Errorf("CurrentStep = %d, want %d", ctx.CurrentStep, StepAssessment)
	}
}

func TestInitializeDerivedSeverity(t *testing.T) {
	flow := NewFlow(newMemStore(), WithDerivedSeverity())

	ctx, err := flow.Initialize("s1", []string{"fracture"}, "", nil)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if ctx.SeverityLevel != models.SeverityCritical {
		t.Errorf("SeverityLevel = %v, want critical", ctx.SeverityLevel)
	}
}

func TestInitializeEmptySessionID(t *testing.T) {
	flow := NewFlow(newMemStore())

	if _, err := flow.Initialize("", nil, "", nil); !errors.Is(err, models.ErrEmptySessionID) {
		t.Errorf("err = %v, want ErrEmptySessionID", err)
	}
}

func TestStartTreatmentSchedulesFollowUp(t *testing.T) {
	sched := &recordingScheduler{}
	flow := NewFlow(newMemStore(), WithScheduler(sched))

	if _, err := flow.Initialize("s1", []string{"sprain"}, "", nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := flow.UpdateSeverity("s1", models.SeverityCritical); err != nil {
		t.Fatalf("UpdateSeverity: %v", err)
	}

	ctx, err := flow.StartTreatment(context.Background(), "s1")
	if err != nil {
		t.Fatalf("StartTreatment: %v", err)
	}

	if ctx.TreatmentStartTime == nil {
		t.Fatal("TreatmentStartTime not set")
	}
	if ctx.FollowUpScheduled == nil {
		t.Fatal("FollowUpScheduled not set")
	}
	if len(sched.calls) != 1 {
		t.Fatalf("Schedule calls = %d, want 1", len(sched.calls))
	}
	if sched.calls[0].delay != 30*time.Minute {
		t.Errorf("delay = %v, want 30m for critical", sched.calls[0].delay)
	}
}

func TestStartTreatmentSkipsDuplicateFollowUp(t *testing.T) {
	sched := &recordingScheduler{}
	flow := NewFlow(newMemStore(), WithScheduler(sched))

	if _, err := flow.Initialize("s1", []string{"sprain"}, "", nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := flow.StartTreatment(context.Background(), "s1"); err != nil {
		t.Fatalf("first StartTreatment: %v", err)
	}
	if _, err := flow.StartTreatment(context.Background(), "s1"); err != nil {
		t.Fatalf("second StartTreatment: %v", err)
	}

	if len(sched.calls) != 1 {
		t.Errorf("Schedule calls = %d, want 1", len(sched.calls))
	}
}

func TestStartTreatmentSchedulerErrorStillRecordsStart(t *testing.T) {
	sched := &recordingScheduler{err: errors.New("queue full")}
	flow := NewFlow(newMemStore(), WithScheduler(sched))

	if _, err := flow.Initialize("s1", nil, "", nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	ctx, err := flow.StartTreatment(context.Background(), "s1")
	if err != nil {
		t.Fatalf("StartTreatment: %v", err)
	}
	if ctx.TreatmentStartTime == nil {
		t.Error("TreatmentStartTime not set after scheduler error")
	}
	if ctx.FollowUpScheduled != nil {
		t.Error("FollowUpScheduled set despite scheduler error")
	}
}

func TestMoveToStepUnchecked(t *testing.T) {
	flow := NewFlow(newMemStore())

	if _, err := flow.Initialize("s1", nil, "", nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	// Jump to claims without symptoms, care option, or treatment.
	ctx, err := flow.MoveToStep("s1", StepClaims)
	if err != nil {
		t.Fatalf("MoveToStep: %v", err)
	}
	if ctx.CurrentStep != StepClaims {
		t.Errorf("CurrentStep = %d, want %d", ctx.CurrentStep, StepClaims)
	}

	if _, err := flow.MoveToStep("s1", 5); !errors.Is(err, models.ErrInvalidStep) {
		t.Errorf("err = %v, want ErrInvalidStep", err)
	}
}

func TestCanProceedToStep(t *testing.T) {
	flow := NewFlow(newMemStore())

	if flow.CanProceedToStep("missing", StepAssessment) {
		t.Error("expected false without a context")
	}

	if _, err := flow.Initialize("s1", nil, "", nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if !flow.CanProceedToStep("s1", StepAssessment) {
		t.Error("step 1 should always be reachable")
	}
	if flow.CanProceedToStep("s1", StepCareOptions) {
		t.Error("step 2 needs symptoms")
	}

	if _, err := flow.AddSymptom("s1", "sprain"); err != nil {
		t.Fatalf("AddSymptom: %v", err)
	}
	if !flow.CanProceedToStep("s1", StepCareOptions) {
		t.Error("step 2 should be reachable with a symptom and severity")
	}
	if flow.CanProceedToStep("s1", StepTreatment) {
		t.Error("step 3 needs a care option")
	}

	if _, err := flow.SelectCareOption("s1", "ng-teng-fong"); err != nil {
		t.Fatalf("SelectCareOption: %v", err)
	}
	if !flow.CanProceedToStep("s1", StepTreatment) {
		t.Error("step 3 should be reachable with a care option")
	}
	if flow.CanProceedToStep("s1", StepClaims) {
		t.Error("step 4 needs a treatment start")
	}

	if _, err := flow.StartTreatment(context.Background(), "s1"); err != nil {
		t.Fatalf("StartTreatment: %v", err)
	}
	if !flow.CanProceedToStep("s1", StepClaims) {
		t.Error("step 4 should be reachable after treatment start")
	}
}

func TestAddSymptomDeduplicates(t *testing.T) {
	flow := NewFlow(newMemStore())

	if _, err := flow.Initialize("s1", []string{"sprain"}, "", nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	ctx, err := flow.AddSymptom("s1", "sprain")
	if err != nil {
		t.Fatalf("AddSymptom: %v", err)
	}

	if len(ctx.Symptoms) != 1 {
		t.Errorf("Symptoms = %v, want single entry", ctx.Symptoms)
	}
}

func TestUpdatePainLevelValidation(t *testing.T) {
	flow := NewFlow(newMemStore())

	if _, err := flow.Initialize("s1", nil, "", nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if _, err := flow.UpdatePainLevel("s1", 11); !errors.Is(err, models.ErrInvalidPainLevel) {
		t.Errorf("err = %v, want ErrInvalidPainLevel", err)
	}
	ctx, err := flow.UpdatePainLevel("s1", 6)
	if err != nil {
		t.Fatalf("UpdatePainLevel: %v", err)
	}
	if ctx.PainLevel == nil || *ctx.PainLevel != 6 {
		t.Errorf("PainLevel = %v, want 6", ctx.PainLevel)
	}
}

func TestProgress(t *testing.T) {
	flow := NewFlow(newMemStore())

	if got := flow.Progress("missing"); got.Current != 0 || got.Percentage != 0 {
		t.Errorf("Progress without context = %+v, want zeroes", got)
	}

	if _, err := flow.Initialize("s1", nil, "", nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := flow.CompleteTreatment("s1"); err != nil {
		t.Fatalf("CompleteTreatment: %v", err)
	}

	got := flow.Progress("s1")
	if got.Current != 4 || got.Percentage != 100 {
		t.Errorf("Progress = %+v, want step 4 at 100%%", got)
	}
}

func TestFollowUpDelays(t *testing.T) {
	tests := []struct {
		severity models.SeverityLevel
		want     time.Duration
	}{
		{models.SeverityCritical, 30 * time.Minute},
		{models.SeveritySevere, 60 * time.Minute},
		{models.SeverityModerate, 120 * time.Minute},
		{models.SeverityMinor, 240 * time.Minute},
		{models.SeverityLevel("unknown"), 120 * time.Minute},
	}

	for _, tt := range tests {
		if got := FollowUpDelay(tt.severity); got != tt.want {
			t.Errorf("FollowUpDelay(%v) = %v, want %v", tt.severity, got, tt.want)
		}
	}
}

func TestFollowUpMessagePerSeverity(t *testing.T) {
	prefixes := map[models.SeverityLevel]string{
		models.SeverityCritical: "🚨 ",
		models.SeveritySevere:   "⚠️ ",
		models.SeverityModerate: "📋 ",
		models.SeverityMinor:    "💡 ",
	}

	seen := map[string]bool{}
	for severity, prefix := range prefixes {
		msg := FollowUpMessage(severity)
		if !strings.HasPrefix(msg, prefix) {
			t.Errorf("message for %v = %q, want prefix %q", severity, msg, prefix)
		}
		if !strings.Contains(msg, "How are you feeling now? Have you received treatment?") {
			t.Errorf("message for %v missing base text: %q", severity, msg)
		}
		if seen[msg] {
			t.Errorf("duplicate message for %v", severity)
		}
		seen[msg] = true
	}
}

func TestEndRemovesContext(t *testing.T) {
	flow := NewFlow(newMemStore())

	if _, err := flow.Initialize("s1", nil, "", nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := flow.End("s1"); err != nil {
		t.Fatalf("End: %v", err)
	}
	if _, err := flow.Context("s1"); !errors.Is(err, models.ErrNoEmergencyContext) {
		t.Errorf("err = %v, want ErrNoEmergencyContext", err)
	}
}
