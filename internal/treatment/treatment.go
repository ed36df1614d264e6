// Package treatment prepares patients for a facility visit: a clinical
// summary of the conversation, a document checklist, questions for the
// doctor, and pre-visit instructions.
package treatment

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/carecover/carecover/internal/emergency"
	"github.com/carecover/carecover/internal/models"
)

// durationKeywords are scanned in order; the first match wins.
var durationKeywords = []string{
	"minutes ago", "hours ago", "days ago", "weeks ago",
	"just happened", "recently", "yesterday", "today",
}

// criticalOverrides force the summary severity to critical regardless of the
// reported pain level.
var criticalOverrides = []string{"bleeding", "fracture", "break", "unconscious", "difficulty breathing"}

// relevantConditions are mined from medical documents for the history section.
var relevantConditions = []string{
	"diabetes", "hypertension", "heart condition", "asthma", "allergy",
	"medication", "surgery", "fracture", "injury",
}

// Pain bands for the summary severity. These are stricter than the live
// emergency classifier because the summary is written for clinical handoff.
const (
	criticalPainThreshold = 8
	severePainThreshold   = 6
	moderatePainThreshold = 4
)

// Summary condenses the conversation into the facts a clinician needs.
type Summary struct {
	Symptoms        []string             `json:"symptoms"`
	PainLevel       *int                 `json:"pain_level,omitempty"`
	Duration        string               `json:"duration"`
	Location        string               `json:"location"`
	Severity        models.SeverityLevel `json:"severity"`
	RelevantHistory []string             `json:"relevant_history"`
	Text            string               `json:"text"`
}

// Checklist lists the paperwork for a visit.
type Checklist struct {
	Required    []string `json:"required"`
	Recommended []string `json:"recommended"`
	Notes       []string `json:"notes"`
}

// Preparation bundles everything the patient needs before arriving.
type Preparation struct {
	Summary      Summary   `json:"summary"`
	Documents    Checklist `json:"documents"`
	Questions    []string  `json:"questions"`
	Instructions []string  `json:"instructions"`
}

// Preparer builds treatment preparations. It shares the emergency detector
// so symptom and location vocabulary stays consistent across the app.
type Preparer struct {
	detector *emergency.Detector
}

// NewPreparer returns a preparer using the given detector.
func NewPreparer(detector *emergency.Detector) *Preparer {
	return &Preparer{detector: detector}
}

// Summarize extracts symptoms, pain level, duration, location, severity, and
// relevant history from the user's messages and medical documents.
func (p *Preparer) Summarize(userMessages []string, documents []models.ExtractedDocument) Summary {
	slog.Debug("Preparer Summarize", "messages", len(userMessages), "documents", len(documents))

	s := Summary{Duration: "Unknown", Location: "Unknown", Severity: models.SeverityModerate}

	for _, msg := range userMessages {
		detection := p.detector.Detect(msg)
		for _, symptom := range detection.Symptoms {
			if !containsString(s.Symptoms, symptom) {
				s.Symptoms = append(s.Symptoms, symptom)
			}
		}
		if detection.PainLevel != nil {
			s.PainLevel = detection.PainLevel
		}
		if detection.Location != "" && s.Location == "Unknown" {
			s.Location = detection.Location
		}

		text := strings.ToLower(msg)
		if s.Duration == "Unknown" {
			for _, keyword := range durationKeywords {
				if strings.Contains(text, keyword) {
					s.Duration = keyword
					break
				}
			}
		}
	}

	if s.PainLevel != nil {
		switch {
		case *s.PainLevel >= criticalPainThreshold:
			s.Severity = models.SeverityCritical
		case *s.PainLevel >= severePainThreshold:
			s.Severity = models.SeveritySevere
		case *s.PainLevel >= moderatePainThreshold:
			s.Severity = models.SeverityModerate
		default:
			s.Severity = models.SeverityMinor
		}
	}
	for _, symptom := range criticalOverrides {
		if containsString(s.Symptoms, symptom) {
			s.Severity = models.SeverityCritical
			break
		}
	}

	for _, doc := range documents {
		if doc.Category != models.DocumentMedical {
			continue
		}
		text := strings.ToLower(doc.ExtractedText)
		for _, condition := range relevantConditions {
			if strings.Contains(text, condition) && !containsString(s.RelevantHistory, condition) {
				s.RelevantHistory = append(s.RelevantHistory, condition)
			}
		}
	}

	s.Text = summaryText(s)
	return s
}

func summaryText(s Summary) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Patient experienced %s %s at %s.", strings.Join(s.Symptoms, ", "), s.Duration, s.Location))
	if s.PainLevel != nil {
		parts = append(parts, fmt.Sprintf("Pain level reported as %d/10.", *s.PainLevel))
	}
	parts = append(parts, fmt.Sprintf("Severity assessed as %s.", s.Severity))
	if len(s.RelevantHistory) > 0 {
		parts = append(parts, fmt.Sprintf("Relevant medical history includes: %s.", strings.Join(s.RelevantHistory, ", ")))
	}

	return strings.Join(parts, " ")
}

// DocumentChecklist returns the paperwork for the given treatment type.
func DocumentChecklist(treatmentType models.TreatmentType, hasInsurance bool) Checklist {
	c := Checklist{
		Required: []string{"NRIC/Identity Card", "Insurance card (if applicable)"},
	}

	switch treatmentType {
	case models.TreatmentEmergency:
		c.Required = append(c.Required, "Emergency contact information")
		c.Recommended = append(c.Recommended, "List of current medications", "Allergy information")
		c.Notes = append(c.Notes, "Emergency treatment can proceed without all documents")
	case models.TreatmentConsultation:
		c.Required = append(c.Required, "Referral letter (if from polyclinic)")
		c.Recommended = append(c.Recommended, "Previous medical records", "List of current medications", "Allergy information")
	case models.TreatmentSpecialist:
		c.Required = append(c.Required, "Referral letter from GP", "Previous medical records")
		c.Recommended = append(c.Recommended, "Recent test results", "List of current medications", "Allergy information")
	}

	if hasInsurance {
		c.Recommended = append(c.Recommended, "Insurance policy documents", "Pre-authorization letter (if required)")
		c.Notes = append(c.Notes, "Check with your insurance provider for specific requirements")
	}

	return c
}

// QuestionsForDoctor suggests what to ask, tuned to symptoms and severity.
func QuestionsForDoctor(symptoms []string, severity models.SeverityLevel) []string {
	questions := []string{
		"What is the diagnosis?",
		"What treatment options are available?",
		"What is the expected recovery time?",
		"Are there any restrictions or precautions?",
	}

	if containsString(symptoms, "pain") {
		questions = append(questions,
			"What pain management options are available?",
			"Are there any side effects to the pain medication?")
	}

	questions = append(questions,
		"Do I need a follow-up appointment?",
		"When should I seek immediate medical attention?",
		"What are the estimated costs?",
		"Will this be covered by my insurance?")

	if severity == models.SeveritySevere || severity == models.SeverityCritical {
		questions = append(questions,
			"Do I need to be admitted to the hospital?",
			"Are there any immediate risks or complications?")
	}

	return questions
}

// Instructions returns pre-visit guidance keyed by severity and symptoms.
func Instructions(severity models.SeverityLevel, symptoms []string) []string {
	instructions := []string{
		"Bring all required documents",
		"Arrive 15 minutes early for registration",
		"Inform staff of any allergies or medical conditions",
	}

	switch severity {
	case models.SeverityCritical:
		instructions = append(instructions,
			"Go to emergency department immediately",
			"Call ambulance if unable to travel safely",
			"Do not delay seeking treatment")
	case models.SeveritySevere:
		instructions = append(instructions,
			"Seek medical attention as soon as possible",
			"Avoid putting weight on injured area",
			"Apply ice if safe to do so")
	case models.SeverityModerate:
		instructions = append(instructions,
			"Seek medical attention within 24 hours",
			"Rest the affected area",
			"Monitor for worsening symptoms")
	default:
		instructions = append(instructions,
			"Monitor symptoms closely",
			"Seek medical attention if symptoms worsen",
			"Consider self-care measures")
	}

	if containsString(symptoms, "bleeding") {
		instructions = append(instructions,
			"Apply direct pressure to stop bleeding",
			"Elevate the injured area if possible")
	}
	if containsString(symptoms, "swelling") {
		instructions = append(instructions,
			"Apply ice for 15-20 minutes every hour",
			"Elevate the affected area")
	}
	if containsString(symptoms, "pain") {
		instructions = append(instructions,
			"Avoid activities that worsen pain",
			"Consider over-the-counter pain relief if appropriate")
	}

	return instructions
}

// Prepare assembles the full preparation package for a visit.
func (p *Preparer) Prepare(userMessages []string, documents []models.ExtractedDocument, treatmentType models.TreatmentType, hasInsurance bool) Preparation {
	summary := p.Summarize(userMessages, documents)
	return Preparation{
		Summary:      summary,
		Documents:    DocumentChecklist(treatmentType, hasInsurance),
		Questions:    QuestionsForDoctor(summary.Symptoms, summary.Severity),
		Instructions: Instructions(summary.Severity, summary.Symptoms),
	}
}

// Format renders the preparation as Markdown for chat delivery.
func Format(prep Preparation) string {
	var b strings.Builder

	b.WriteString("## Treatment Summary\n")
	b.WriteString(prep.Summary.Text)
	b.WriteString("\n\n## Required Documents\n**Required:**\n")
	for _, doc := range prep.Documents.Required {
		fmt.Fprintf(&b, "- %s\n", doc)
	}
	if len(prep.Documents.Recommended) > 0 {
		b.WriteString("\n**Recommended:**\n")
		for _, doc := range prep.Documents.Recommended {
			fmt.Fprintf(&b, "- %s\n", doc)
		}
	}
	if len(prep.Documents.Notes) > 0 {
		b.WriteString("\n**Notes:**\n")
		for _, note := range prep.Documents.Notes {
			fmt.Fprintf(&b, "- %s\n", note)
		}
	}

	b.WriteString("\n## Questions to Ask Your Doctor\n")
	for _, q := range prep.Questions {
		fmt.Fprintf(&b, "- %s\n", q)
	}

	b.WriteString("\n## Important Instructions\n")
	for _, instruction := range prep.Instructions {
		fmt.Fprintf(&b, "- %s\n", instruction)
	}

	return strings.TrimRight(b.String(), "\n")
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
