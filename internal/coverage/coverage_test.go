package coverage

import (
	"strings"
	"testing"
	"time"

	"github.com/carecover/carecover/internal/models"
)

func hospitalFacility(panels ...string) models.Facility {
	return models.Facility{
		ID:              "test-hospital",
		Name:            "Test General Hospital",
		Type:            models.FacilityHospital,
		Region:          models.RegionEast,
		InsurancePanels: panels,
		CostRanges: models.FacilityCostRanges{
			Consultation: models.CostRange{Min: 50, Max: 150},
			Emergency:    models.CostRange{Min: 120, Max: 400},
		},
	}
}

func policyDoc(text string) models.ExtractedDocument {
	return models.ExtractedDocument{
		ID:            "doc-1",
		FileName:      "policy.pdf",
		Category:      models.DocumentInsurance,
		ExtractedText: text,
		ExtractedAt:   time.Now(),
	}
}

func TestCalculatePolyclinicShortcut(t *testing.T) {
	facility := models.Facility{
		ID:     "test-polyclinic",
		Name:   "Test Polyclinic",
		Type:   models.FacilityPolyclinic,
		Region: models.RegionEast,
	}
	docs := []models.ExtractedDocument{policyDoc("Deductible: $500. Waiting period: 90 days.")}
	claims := []models.ClaimRecord{{ID: "c1", Amount: 9999, Date: time.Now()}}

	estimate := Calculate(facility, docs, claims, models.TreatmentEmergency)

	if estimate.Percentage != 100 {
		t.Errorf("Percentage = %d, want 100", estimate.Percentage)
	}
	if estimate.Deductible != 0 || estimate.CoPay != 0 {
		t.Errorf("Deductible/CoPay = %v/%v, want 0/0", estimate.Deductible, estimate.CoPay)
	}
	if !estimate.IsPanelProvider {
		t.Error("expected polyclinic to count as panel provider")
	}
	if !strings.Contains(estimate.Explanation, "Fully subsidized") {
		t.Errorf("Explanation = %q, want subsidized note", estimate.Explanation)
	}
}

func TestCalculateDefaultsWithoutDocuments(t *testing.T) {
	estimate := Calculate(hospitalFacility(), nil, nil, models.TreatmentConsultation)

	if estimate.Percentage != defaultNonPanelCoverage {
		t.Errorf("Percentage = %d, want %d", estimate.Percentage, defaultNonPanelCoverage)
	}
	if want := defaultDeductible * nonPanelDeductibleFactor; estimate.Deductible != want {
		t.Errorf("Deductible = %v, want %v", estimate.Deductible, want)
	}
	if want := defaultCoPay * nonPanelCoPayFactor; estimate.CoPay != want {
		t.Errorf("CoPay = %v, want %v", estimate.CoPay, want)
	}
	if estimate.IsPanelProvider {
		t.Error("expected non-panel without parsed providers")
	}
	if estimate.AnnualLimit != defaultAnnualLimit {
		t.Errorf("AnnualLimit = %v, want %v", estimate.AnnualLimit, defaultAnnualLimit)
	}
}

func TestCalculateMaxPercentageAcrossExcerpts(t *testing.T) {
	docs := []models.ExtractedDocument{
		policyDoc("Outpatient plan: 70% coverage for consultations."),
		policyDoc("Hospitalization rider: 90% coverage for inpatient stays."),
	}

	estimate := Calculate(hospitalFacility(), docs, nil, models.TreatmentConsultation)

	// Non-panel, so the parsed maximum less the non-panel penalty applies.
	if estimate.Percentage != 70 {
		t.Errorf("non-panel Percentage = %d, want 70", estimate.Percentage)
	}

	docs = append(docs, policyDoc("Panel providers: test general hospital."))
	panelFacility := hospitalFacility("test general hospital")
	estimate = Calculate(panelFacility, docs, nil, models.TreatmentConsultation)
	if !estimate.IsPanelProvider {
		t.Fatal("expected panel match")
	}
	if estimate.Percentage != 90 {
		t.Errorf("panel Percentage = %d, want 90", estimate.Percentage)
	}
}

func TestCalculatePanelMatchCase(t *testing.T) {
	docs := []models.ExtractedDocument{
		policyDoc("80% coverage. Panel providers: Test General Hospital."),
	}
	f := hospitalFacility("Test General Hospital")

	// Parsing lowercases the excerpt, so the default match ignores case.
	estimate := Calculate(f, docs, nil, models.TreatmentConsultation)
	if !estimate.IsPanelProvider {
		t.Error("expected case-insensitive panel match by default")
	}

	// Exact comparison never sees the original casing again.
	estimate = Calculate(f, docs, nil, models.TreatmentConsultation, WithExactPanelMatch())
	if estimate.IsPanelProvider {
		t.Error("expected no panel match under exact comparison")
	}

	lowered := hospitalFacility("test general hospital")
	estimate = Calculate(lowered, docs, nil, models.TreatmentConsultation, WithExactPanelMatch())
	if !estimate.IsPanelProvider {
		t.Error("expected exact match against lowercase panel name")
	}
}

func TestCalculateLastDeductibleWins(t *testing.T) {
	docs := []models.ExtractedDocument{
		policyDoc("Base plan deductible: $100 per year. Panel providers: test general hospital."),
		policyDoc("Updated rider deductible: $250 per year."),
	}

	estimate := Calculate(hospitalFacility("test general hospital"), docs, nil, models.TreatmentConsultation)

	if estimate.Deductible != 250 {
		t.Errorf("Deductible = %v, want 250", estimate.Deductible)
	}
}

func TestCalculateExtendedWaitingPeriodVoidsCoverage(t *testing.T) {
	docs := []models.ExtractedDocument{
		policyDoc("90% coverage. Waiting period: 45 days."),
	}

	estimate := Calculate(hospitalFacility(), docs, nil, models.TreatmentConsultation)

	if estimate.Percentage != 0 {
		t.Errorf("Percentage = %d, want 0 during extended waiting period", estimate.Percentage)
	}
	if !containsCondition(estimate.Conditions, "Waiting period: 45 days") {
		t.Errorf("Conditions = %v, want waiting period note", estimate.Conditions)
	}
	if !strings.Contains(estimate.Explanation, "No coverage available") {
		t.Errorf("Explanation = %q, want no-coverage note", estimate.Explanation)
	}
}

func TestCalculateShortWaitingPeriodKeepsCoverage(t *testing.T) {
	docs := []models.ExtractedDocument{
		policyDoc("80% coverage. Waiting period: 14 days."),
	}

	estimate := Calculate(hospitalFacility(), docs, nil, models.TreatmentConsultation)

	if estimate.Percentage != 60 {
		t.Errorf("Percentage = %d, want 60", estimate.Percentage)
	}
	if estimate.WaitingPeriod != 14 {
		t.Errorf("WaitingPeriod = %d, want 14", estimate.WaitingPeriod)
	}
}

func TestCalculateRecentClaimsReduction(t *testing.T) {
	docs := []models.ExtractedDocument{policyDoc("80% coverage. Panel providers: test general hospital.")}
	now := time.Now()
	var claims []models.ClaimRecord
	for i := 0; i < 4; i++ {
		claims = append(claims, models.ClaimRecord{
			ID:     "c" + string(rune('1'+i)),
			Amount: 100,
			Date:   now.Add(-time.Duration(i+1) * 24 * time.Hour),
			Status: models.ClaimApproved,
		})
	}

	estimate := Calculate(hospitalFacility("test general hospital"), docs, claims, models.TreatmentConsultation)

	if estimate.Percentage != 70 {
		t.Errorf("Percentage = %d, want 70 after frequency reduction", estimate.Percentage)
	}
	if !containsCondition(estimate.Conditions, "Multiple recent claims - may affect coverage") {
		t.Errorf("Conditions = %v, want recent-claims note", estimate.Conditions)
	}
}

func TestCalculateRemainingLimitNeverNegative(t *testing.T) {
	docs := []models.ExtractedDocument{policyDoc("Annual limit: $1000.")}
	claims := []models.ClaimRecord{
		{ID: "c1", Amount: 800, Date: time.Now()},
		{ID: "c2", Amount: 600, Date: time.Now()},
	}

	estimate := Calculate(hospitalFacility(), docs, claims, models.TreatmentConsultation)

	if estimate.AnnualLimit != 1000 {
		t.Errorf("AnnualLimit = %v, want 1000", estimate.AnnualLimit)
	}
	if estimate.RemainingLimit != 0 {
		t.Errorf("RemainingLimit = %v, want 0", estimate.RemainingLimit)
	}
}

func TestCalculateIgnoresPriorYearClaims(t *testing.T) {
	docs := []models.ExtractedDocument{policyDoc("Annual limit: $5000.")}
	claims := []models.ClaimRecord{
		{ID: "c1", Amount: 2000, Date: time.Now().AddDate(-1, 0, 0)},
		{ID: "c2", Amount: 500, Date: time.Now()},
	}

	estimate := Calculate(hospitalFacility(), docs, claims, models.TreatmentConsultation)

	if estimate.RemainingLimit != 4500 {
		t.Errorf("RemainingLimit = %v, want 4500", estimate.RemainingLimit)
	}
}

func TestCalculateNonPanelPenaltyFloorsAtZero(t *testing.T) {
	docs := []models.ExtractedDocument{policyDoc("10% coverage for outpatient visits.")}

	estimate := Calculate(hospitalFacility(), docs, nil, models.TreatmentConsultation)

	if estimate.Percentage != 0 {
		t.Errorf("Percentage = %d, want 0", estimate.Percentage)
	}
}

func TestCalculateSubLimitAndPreAuthNotes(t *testing.T) {
	docs := []models.ExtractedDocument{
		policyDoc("80% coverage. Sub-limit: $2000 for specialist visits. Pre-authorization required for MRI."),
	}

	estimate := Calculate(hospitalFacility(), docs, nil, models.TreatmentSpecialist)

	if !containsCondition(estimate.Conditions, "Sub-limit applies: $2000") {
		t.Errorf("Conditions = %v, want sub-limit note", estimate.Conditions)
	}
	if !containsCondition(estimate.Conditions, "Pre-authorization required") {
		t.Errorf("Conditions = %v, want pre-auth note", estimate.Conditions)
	}
	if !strings.Contains(estimate.Explanation, "Pre-authorization required") {
		t.Errorf("Explanation = %q, want pre-auth note", estimate.Explanation)
	}
}

func TestCheckConditionsDeductibleFlag(t *testing.T) {
	docs := []models.ExtractedDocument{policyDoc("Plan deductible: $300 applies annually.")}

	conditions := CheckConditions(docs, nil)

	if !conditions.HasDeductible {
		t.Error("expected HasDeductible")
	}
	if conditions.DeductibleAmount != 300 {
		t.Errorf("DeductibleAmount = %v, want 300", conditions.DeductibleAmount)
	}
}

func TestSummaryOutOfPocket(t *testing.T) {
	docs := []models.ExtractedDocument{
		policyDoc("80% coverage. Deductible: $100. Co-pay: $20. Panel providers: test general hospital."),
	}

	summary := Summary(hospitalFacility("test general hospital"), docs, nil, models.TreatmentEmergency)

	// Midpoint of the 120-400 emergency range is 260; 80% of (260-100)
	// covered leaves 260-128+20 = 152.
	if summary != "Estimated out-of-pocket: $152 (80% coverage)" {
		t.Errorf("Summary = %q", summary)
	}
}

func TestSummaryFallsBackToConsultationRange(t *testing.T) {
	facility := hospitalFacility("test general hospital")
	facility.CostRanges.Emergency = models.CostRange{}
	docs := []models.ExtractedDocument{
		policyDoc("80% coverage. Deductible: $0. Co-pay: $0. Panel providers: test general hospital."),
	}

	summary := Summary(facility, docs, nil, models.TreatmentConsultation)

	// Consultation midpoint is 100, fully subject to 80% coverage.
	if summary != "Estimated out-of-pocket: $20 (80% coverage)" {
		t.Errorf("Summary = %q", summary)
	}
}

func TestSummaryNoCoverage(t *testing.T) {
	docs := []models.ExtractedDocument{policyDoc("80% coverage. Waiting period: 60 days.")}

	if got := Summary(hospitalFacility(), docs, nil, models.TreatmentConsultation); got != "No coverage available" {
		t.Errorf("Summary = %q, want no-coverage message", got)
	}
}

func containsCondition(conditions []string, want string) bool {
	for _, c := range conditions {
		if c == want {
			return true
		}
	}
	return false
}
