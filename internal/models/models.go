// Package models defines the core data structures for CareCover.
//
// It includes facility reference data, insurance document and claim types,
// coverage estimates, and the emergency flow context shared across modules.
package models

import (
	"errors"
	"time"
)

// FacilityType tags a healthcare facility by the kind of care it provides.
type FacilityType string

const (
	FacilityHospital   FacilityType = "hospital"
	FacilityPolyclinic FacilityType = "polyclinic"
	FacilityGP         FacilityType = "gp"
	FacilitySpecialist FacilityType = "specialist"
)

// IsValidFacilityType checks if the given facility type is supported.
func IsValidFacilityType(t FacilityType) bool {
	switch t {
	case FacilityHospital, FacilityPolyclinic, FacilityGP, FacilitySpecialist:
		return true
	default:
		return false
	}
}

// Region is one of the five coarse Singapore regions used for facility lookup.
type Region string

const (
	RegionEast    Region = "east"
	RegionWest    Region = "west"
	RegionNorth   Region = "north"
	RegionSouth   Region = "south"
	RegionCentral Region = "central"
)

// IsValidRegion checks if the given region tag is supported.
func IsValidRegion(r Region) bool {
	switch r {
	case RegionEast, RegionWest, RegionNorth, RegionSouth, RegionCentral:
		return true
	default:
		return false
	}
}

// SeverityLevel drives both messaging tone and follow-up timing.
type SeverityLevel string

const (
	SeverityMinor    SeverityLevel = "minor"
	SeverityModerate SeverityLevel = "moderate"
	SeveritySevere   SeverityLevel = "severe"
	SeverityCritical SeverityLevel = "critical"
)

// IsValidSeverity checks if the given severity level is supported.
func IsValidSeverity(s SeverityLevel) bool {
	switch s {
	case SeverityMinor, SeverityModerate, SeveritySevere, SeverityCritical:
		return true
	default:
		return false
	}
}

// TreatmentType selects which cost bucket and checklist a visit falls under.
type TreatmentType string

const (
	TreatmentEmergency    TreatmentType = "emergency"
	TreatmentConsultation TreatmentType = "consultation"
	TreatmentSpecialist   TreatmentType = "specialist"
)

// ClaimType tags a historical insurance claim.
type ClaimType string

const (
	ClaimEmergency  ClaimType = "emergency"
	ClaimOutpatient ClaimType = "outpatient"
	ClaimInpatient  ClaimType = "inpatient"
	ClaimSpecialist ClaimType = "specialist"
)

// ClaimStatus tracks where a claim sits in the insurer's pipeline.
type ClaimStatus string

const (
	ClaimSubmitted ClaimStatus = "submitted"
	ClaimApproved  ClaimStatus = "approved"
	ClaimRejected  ClaimStatus = "rejected"
	ClaimPending   ClaimStatus = "pending"
)

// DocumentCategory separates insurance policies from medical records.
type DocumentCategory string

const (
	DocumentInsurance DocumentCategory = "insurance"
	DocumentMedical   DocumentCategory = "medical"
)

// Error variables for request validation and store lookups
var (
	ErrEmptySessionID     = errors.New("session id cannot be empty")
	ErrEmptyMessage       = errors.New("message cannot be empty")
	ErrInvalidStep        = errors.New("step must be between 1 and 4")
	ErrInvalidSeverity    = errors.New("invalid severity level")
	ErrInvalidPainLevel   = errors.New("pain level must be between 0 and 10")
	ErrInvalidDelay       = errors.New("delay must be positive")
	ErrUnknownFacility    = errors.New("unknown facility")
	ErrFollowUpNotFound   = errors.New("follow-up not found")
	ErrNoEmergencyContext = errors.New("no active emergency context for session")
)

// CostRange is an inclusive SGD price band.
type CostRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FacilityCostRanges holds per-visit-type price bands published by a facility.
type FacilityCostRanges struct {
	Consultation CostRange `json:"consultation"`
	Emergency    CostRange `json:"emergency"`
	Specialist   CostRange `json:"specialist"`
}

// OperatingHours holds the display strings for a facility's opening times.
type OperatingHours struct {
	Weekdays  string `json:"weekdays"`
	Weekends  string `json:"weekends"`
	Emergency string `json:"emergency"`
}

// WaitTimes holds display strings for expected waits.
type WaitTimes struct {
	Emergency    string `json:"emergency"`
	Consultation string `json:"consultation"`
}

// Facility is an immutable healthcare provider record from the static catalog.
type Facility struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Type            FacilityType       `json:"type"`
	Region          Region             `json:"region"`
	Address         string             `json:"address"`
	Phone           string             `json:"phone"`
	OperatingHours  OperatingHours     `json:"operating_hours"`
	HasAandE        bool               `json:"has_a_and_e"`
	HasEmergency    bool               `json:"has_emergency"`
	CostRanges      FacilityCostRanges `json:"cost_ranges"`
	WaitTimes       WaitTimes          `json:"wait_times"`
	InsurancePanels []string           `json:"insurance_panels"`
	Services        []string           `json:"services"`
}

// ExtractedDocument is the already-extracted text of one uploaded policy or
// medical document. The core only reads ExtractedText; the rest is metadata
// owned by the session's document store.
type ExtractedDocument struct {
	ID            string           `json:"id"`
	SessionID     string           `json:"session_id"`
	FileName      string           `json:"file_name"`
	ExtractedText string           `json:"extracted_text"`
	Category      DocumentCategory `json:"category"`
	ParentTitle   string           `json:"parent_title"`
	ExtractedAt   time.Time        `json:"extracted_at"`
	Summary       string           `json:"summary,omitempty"`
	KeyPoints     []string         `json:"key_points,omitempty"`
}

// ClaimRecord is one historical insurance claim, read-only to the core.
type ClaimRecord struct {
	ID          string      `json:"id"`
	SessionID   string      `json:"session_id"`
	Date        time.Time   `json:"date"`
	Amount      float64     `json:"amount"`
	Provider    string      `json:"provider"`
	Type        ClaimType   `json:"type"`
	Status      ClaimStatus `json:"status"`
	Description string      `json:"description"`
}

// CoverageEstimate is the structured output of the coverage calculator.
// RemainingLimit is never negative and Percentage is clamped to [0,100].
type CoverageEstimate struct {
	Percentage      int      `json:"percentage"`
	Deductible      float64  `json:"deductible"`
	CoPay           float64  `json:"co_pay"`
	IsPanelProvider bool     `json:"is_panel_provider"`
	AnnualLimit     float64  `json:"annual_limit"`
	RemainingLimit  float64  `json:"remaining_limit"`
	WaitingPeriod   int      `json:"waiting_period"`
	Conditions      []string `json:"conditions"`
	Explanation     string   `json:"explanation"`
}

// CoverageConditions holds flags and magnitudes extracted from document
// excerpts and claim history. Computed fresh on every calculation.
type CoverageConditions struct {
	HasWaitingPeriod  bool    `json:"has_waiting_period"`
	WaitingPeriodDays int     `json:"waiting_period_days"`
	HasRecentClaims   bool    `json:"has_recent_claims"`
	RecentClaimCount  int     `json:"recent_claim_count"`
	IsPanelProvider   bool    `json:"is_panel_provider"`
	HasSubLimits      bool    `json:"has_sub_limits"`
	SubLimitAmount    float64 `json:"sub_limit_amount,omitempty"`
	RequiresPreAuth   bool    `json:"requires_pre_auth"`
	HasDeductible     bool    `json:"has_deductible"`
	DeductibleAmount  float64 `json:"deductible_amount"`
}

// CostEstimate is a researched or derived price band for one procedure.
type CostEstimate struct {
	Procedure   string    `json:"procedure"`
	Range       CostRange `json:"cost_range"`
	Currency    string    `json:"currency"`
	Source      string    `json:"source"`
	LastUpdated time.Time `json:"last_updated"`
	Notes       string    `json:"notes,omitempty"`
}

// EmergencyContext tracks one session's progress through the four emergency
// steps. Created on the first emergency-indicating message and owned by the
// session for its lifetime.
type EmergencyContext struct {
	SessionID          string        `json:"session_id"`
	CurrentStep        int           `json:"current_step"`
	SeverityLevel      SeverityLevel `json:"severity_level"`
	SelectedCareOption string        `json:"selected_care_option,omitempty"`
	TreatmentStartTime *time.Time    `json:"treatment_start_time,omitempty"`
	FollowUpScheduled  *time.Time    `json:"follow_up_scheduled,omitempty"`
	Symptoms           []string      `json:"symptoms"`
	Location           string        `json:"location,omitempty"`
	PainLevel          *int          `json:"pain_level,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// FollowUpSchedule is one append-only follow-up reminder. It transitions once
// from untriggered to triggered and is never mutated thereafter.
type FollowUpSchedule struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	ScheduledTime time.Time `json:"scheduled_time"`
	Message       string    `json:"message"`
	Triggered     bool      `json:"triggered"`
	CreatedAt     time.Time `json:"created_at"`
}

// Detection is the result of scanning one chat message for emergency signals.
// Symptoms can be non-empty even when IsEmergency is false.
type Detection struct {
	IsEmergency bool     `json:"is_emergency"`
	Symptoms    []string `json:"symptoms"`
	Location    string   `json:"location,omitempty"`
	PainLevel   *int     `json:"pain_level,omitempty"`
}

// OptionCoverage is the coverage slice of a healthcare option card.
type OptionCoverage struct {
	Percentage      int     `json:"percentage"`
	Deductible      float64 `json:"deductible"`
	CoPay           float64 `json:"co_pay"`
	IsPanelProvider bool    `json:"is_panel_provider"`
}

// HealthcareOption is one ranked care choice presented to the chat layer.
type HealthcareOption struct {
	FacilityID   string         `json:"facility_id"`
	FacilityName string         `json:"facility_name"`
	Type         FacilityType   `json:"type"`
	Address      string         `json:"address"`
	Phone        string         `json:"phone"`
	CostEstimate CostEstimate   `json:"cost_estimate"`
	WaitTime     string         `json:"wait_time"`
	Coverage     OptionCoverage `json:"coverage"`
	Distance     string         `json:"distance,omitempty"`
	HasEmergency bool           `json:"has_emergency"`
}
