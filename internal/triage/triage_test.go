package triage

import (
	"testing"
	"time"

	"github.com/carecover/carecover/internal/emergency"
	"github.com/carecover/carecover/internal/location"
	"github.com/carecover/carecover/internal/models"
)

func testTriage(opts ...Option) *Triage {
	return New(emergency.NewDetector(location.AreaNames()), opts...)
}

func TestAssessEmergencyInEast(t *testing.T) {
	tr := testTriage()

	a := tr.Assess("I had an accident in bedok, my wrist hurts", nil, nil)

	if !a.Detection.IsEmergency {
		t.Error("expected emergency detection")
	}
	if a.Region != models.RegionEast {
		t.Errorf("Region = %v, want east", a.Region)
	}
	// Area carries the resolver's display form, not the raw token.
	if a.Area != "Bedok" {
		t.Errorf("Area = %q, want Bedok", a.Area)
	}
	if a.Treatment != models.TreatmentEmergency {
		t.Errorf("Treatment = %v, want emergency", a.Treatment)
	}
	if len(a.Options) == 0 {
		t.Fatal("expected care options")
	}
	// Hospitals rank before polyclinics and GPs.
	if a.Options[0].Type != models.FacilityHospital {
		t.Errorf("first option type = %v, want hospital", a.Options[0].Type)
	}
	for _, opt := range a.Options {
		if opt.FacilityID == "" || opt.CostEstimate.Procedure == "" || opt.WaitTime == "" {
			t.Errorf("incomplete option: %+v", opt)
		}
	}
}

func TestAssessCriticalRestrictsToEmergencyFacilities(t *testing.T) {
	tr := testTriage()

	a := tr.Assess("I think my leg has a fracture, I am in woodlands", nil, nil)

	if a.Severity != models.SeverityCritical {
		t.Fatalf("Severity = %v, want critical", a.Severity)
	}
	if len(a.Options) == 0 {
		t.Fatal("expected care options")
	}
	for _, opt := range a.Options {
		if !opt.HasEmergency {
			t.Errorf("option %s lacks emergency services", opt.FacilityID)
		}
	}
}

func TestAssessNonEmergencyDefaultsToConsultation(t *testing.T) {
	tr := testTriage()

	a := tr.Assess("I have a mild cough since yesterday", nil, nil)

	if a.Detection.IsEmergency {
		t.Error("cough alone should not flag an emergency")
	}
	if a.Treatment != models.TreatmentConsultation {
		t.Errorf("Treatment = %v, want consultation", a.Treatment)
	}
	if a.Region != models.RegionCentral {
		t.Errorf("Region = %v, want central fallback", a.Region)
	}
	// Symptom still extracted for downstream use.
	if len(a.Detection.Symptoms) == 0 {
		t.Error("expected extracted symptoms")
	}
}

func TestAssessCoverageFlowsIntoOptions(t *testing.T) {
	tr := testTriage()

	docs := []models.ExtractedDocument{{
		ID:            "doc-1",
		Category:      models.DocumentInsurance,
		ExtractedText: "90% coverage. Waiting period: 45 days.",
		ExtractedAt:   time.Now(),
	}}

	a := tr.Assess("I hurt my ankle in jurong", docs, nil)

	if len(a.Options) == 0 {
		t.Fatal("expected care options")
	}
	for _, opt := range a.Options {
		if opt.Type == models.FacilityPolyclinic {
			if opt.Coverage.Percentage != 100 {
				t.Errorf("polyclinic coverage = %d, want 100", opt.Coverage.Percentage)
			}
			continue
		}
		if opt.Coverage.Percentage != 0 {
			t.Errorf("option %s coverage = %d, want 0 during waiting period", opt.FacilityID, opt.Coverage.Percentage)
		}
	}
}

func TestAssessMaxOptions(t *testing.T) {
	tr := testTriage(WithMaxOptions(2))

	a := tr.Assess("I need a doctor near orchard", nil, nil)

	if len(a.Options) > 2 {
		t.Errorf("options = %d, want at most 2", len(a.Options))
	}
}
