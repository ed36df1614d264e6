package emergency

import "github.com/carecover/carecover/internal/models"

// Symptoms that escalate straight to the top two severity bands. Matching is
// by whole list entry, not substring, so "severe bleeding" must have been
// extracted as such to count as critical.
var (
	criticalSymptoms = []string{
		"unconscious", "difficulty breathing", "chest pain", "severe bleeding",
		"broken", "fracture", "head injury",
	}
	severeSymptoms = []string{
		"bleeding", "severe pain", "cannot walk", "cannot move", "swelling",
	}
)

// Pain level thresholds for severity when symptoms alone decide nothing.
const (
	severePainThreshold   = 8
	moderatePainThreshold = 5
)

// Classify derives a severity level from extracted symptoms and an optional
// self-reported pain level. Rules apply in priority order: critical symptoms
// first, then severe symptoms or high pain, then moderate pain, then minor.
func Classify(symptoms []string, painLevel *int) models.SeverityLevel {
	for _, s := range criticalSymptoms {
		if containsString(symptoms, s) {
			return models.SeverityCritical
		}
	}

	for _, s := range severeSymptoms {
		if containsString(symptoms, s) {
			return models.SeveritySevere
		}
	}
	if painLevel != nil && *painLevel >= severePainThreshold {
		return models.SeveritySevere
	}

	if painLevel != nil && *painLevel >= moderatePainThreshold {
		return models.SeverityModerate
	}

	return models.SeverityMinor
}
