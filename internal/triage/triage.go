// Package triage turns a single chat message plus the session's documents
// and claim history into a ranked list of care options.
package triage

import (
	"log/slog"

	"github.com/carecover/carecover/internal/cost"
	"github.com/carecover/carecover/internal/coverage"
	"github.com/carecover/carecover/internal/emergency"
	"github.com/carecover/carecover/internal/facility"
	"github.com/carecover/carecover/internal/location"
	"github.com/carecover/carecover/internal/models"
)

// defaultMaxOptions caps how many care options a single assessment returns.
const defaultMaxOptions = 5

// Assessment is the full result of triaging one message.
type Assessment struct {
	Detection models.Detection          `json:"detection"`
	Severity  models.SeverityLevel      `json:"severity"`
	Treatment models.TreatmentType      `json:"treatment_type"`
	Area      string                    `json:"area,omitempty"`
	Region    models.Region             `json:"region,omitempty"`
	Options   []models.HealthcareOption `json:"options"`
}

// Opts holds the knobs for a Triage.
type Opts struct {
	MaxOptions int
}

// Option configures a Triage.
type Option func(*Opts)

// WithMaxOptions caps the number of returned care options.
func WithMaxOptions(n int) Option {
	return func(o *Opts) { o.MaxOptions = n }
}

// Triage orchestrates detection, classification, facility lookup, and the
// cost and coverage estimators.
type Triage struct {
	detector *emergency.Detector
	opts     Opts
}

// New returns a triage orchestrator using the given detector.
func New(detector *emergency.Detector, opts ...Option) *Triage {
	o := Opts{MaxOptions: defaultMaxOptions}
	for _, opt := range opts {
		opt(&o)
	}
	if o.MaxOptions <= 0 {
		o.MaxOptions = defaultMaxOptions
	}
	return &Triage{detector: detector, opts: o}
}

// Assess triages one message. Facilities are drawn from the resolved
// region's catalog (central when nothing resolves), restricted to emergency
// departments for critical cases, and each option carries the session's cost
// and coverage estimates for that facility.
func (t *Triage) Assess(message string, documents []models.ExtractedDocument, claims []models.ClaimRecord) Assessment {
	slog.Debug("Triage Assess", "messageLength", len(message), "documents", len(documents), "claims", len(claims))

	detection := t.detector.Detect(message)
	severity := emergency.Classify(detection.Symptoms, detection.PainLevel)

	treatmentType := models.TreatmentConsultation
	if detection.IsEmergency {
		treatmentType = models.TreatmentEmergency
	}

	assessment := Assessment{
		Detection: detection,
		Severity:  severity,
		Treatment: treatmentType,
		Region:    models.RegionCentral,
	}
	if info, ok := location.Resolve(message); ok {
		assessment.Area = info.Area
		assessment.Region = info.Region
	}

	emergencyOnly := severity == models.SeverityCritical
	candidates := facility.Nearest(assessment.Region, emergencyOnly)

	procedure := "gp consultation"
	if treatmentType == models.TreatmentEmergency {
		procedure = "emergency visit"
	}

	for _, f := range candidates {
		if len(assessment.Options) >= t.opts.MaxOptions {
			break
		}
		assessment.Options = append(assessment.Options, buildOption(f, procedure, treatmentType, message, documents, claims))
	}

	slog.Debug("Triage Assess result", "severity", severity, "options", len(assessment.Options), "region", assessment.Region)
	return assessment
}

// buildOption assembles one care option for a facility.
func buildOption(f models.Facility, procedure string, treatmentType models.TreatmentType, message string, documents []models.ExtractedDocument, claims []models.ClaimRecord) models.HealthcareOption {
	estimate := coverage.Calculate(f, documents, claims, treatmentType)

	waitTime := f.WaitTimes.Consultation
	if treatmentType == models.TreatmentEmergency && f.HasEmergency {
		waitTime = f.WaitTimes.Emergency
	}

	return models.HealthcareOption{
		FacilityID:   f.ID,
		FacilityName: f.Name,
		Type:         f.Type,
		Address:      f.Address,
		Phone:        f.Phone,
		CostEstimate: cost.EstimateForFacility(f, procedure),
		WaitTime:     waitTime,
		Coverage: models.OptionCoverage{
			Percentage:      estimate.Percentage,
			Deductible:      estimate.Deductible,
			CoPay:           estimate.CoPay,
			IsPanelProvider: estimate.IsPanelProvider,
		},
		Distance:     location.DistanceEstimate(message, f),
		HasEmergency: f.HasEmergency,
	}
}
