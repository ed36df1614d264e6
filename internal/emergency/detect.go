// Package emergency detects emergencies in chat text, classifies their
// severity, and drives the four-step assistance flow for a session.
package emergency

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/carecover/carecover/internal/models"
)

// emergencyKeywords flag a message as an emergency when any appears.
var emergencyKeywords = []string{
	"emergency", "urgent", "accident", "injury", "fall", "trip", "hurt", "pain",
	"bleeding", "broken", "fracture", "unconscious", "difficulty breathing",
	"chest pain", "severe", "critical", "ambulance", "hospital", "a&e",
}

// symptomKeywords are scanned in order; matches are collected without
// duplicates so downstream classification sees a stable list.
var symptomKeywords = []string{
	"pain", "hurt", "ache", "swelling", "bleeding", "bruise", "cut", "wound",
	"fall", "trip", "injury", "sprain", "strain", "fracture", "break",
	"nausea", "dizziness", "fever", "headache", "cough", "shortness of breath",
}

// contextualPlaces are non-geographic locations the detector recognizes in
// addition to the injected area names.
var contextualPlaces = []string{"home", "work", "school"}

var painLevelRe = regexp.MustCompile(`pain\s*level?\s*(\d+)`)

// Detector scans free-form chat text for emergency signals. The location
// vocabulary is injected so the detector and the area resolver share one
// dictionary.
type Detector struct {
	locations []string
}

// NewDetector returns a detector recognizing the given location names plus a
// small set of contextual places (home, work, school).
func NewDetector(locations []string) *Detector {
	combined := make([]string, 0, len(locations)+len(contextualPlaces))
	combined = append(combined, locations...)
	combined = append(combined, contextualPlaces...)
	return &Detector{locations: combined}
}

// Detect scans the message for emergency keywords, symptoms, a stated pain
// level, and a location mention. Symptoms and the pain level are extracted
// whether or not the message counts as an emergency, so callers can reuse
// them for non-urgent triage.
func (d *Detector) Detect(content string) models.Detection {
	text := strings.ToLower(content)

	var detection models.Detection
	for _, keyword := range emergencyKeywords {
		if strings.Contains(text, keyword) {
			detection.IsEmergency = true
			break
		}
	}

	for _, keyword := range symptomKeywords {
		if strings.Contains(text, keyword) && !containsString(detection.Symptoms, keyword) {
			detection.Symptoms = append(detection.Symptoms, keyword)
		}
	}

	if m := painLevelRe.FindStringSubmatch(text); m != nil {
		if level, err := strconv.Atoi(m[1]); err == nil {
			detection.PainLevel = &level
		}
	}

	for _, loc := range d.locations {
		if strings.Contains(text, loc) {
			detection.Location = loc
			break
		}
	}

	slog.Debug("Detector Detect result", "isEmergency", detection.IsEmergency, "symptoms", len(detection.Symptoms), "location", detection.Location)
	return detection
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
