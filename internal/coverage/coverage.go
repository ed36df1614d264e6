// Package coverage turns insurance-policy excerpts and claim history into a
// structured coverage estimate for one facility visit.
//
// Every function here is total: malformed or absent text degrades to
// conservative defaults, never to an error. The tool is advisory, not
// authoritative.
package coverage

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/carecover/carecover/internal/models"
)

// Default coverage terms used when the policy text yields nothing.
const (
	defaultPanelCoverage    = 80
	defaultNonPanelCoverage = 60
	defaultDeductible       = 100
	defaultCoPay            = 20
	defaultAnnualLimit      = 10000

	// nonPanelPenalty is subtracted from the parsed panel percentage to
	// derive the non-panel percentage.
	nonPanelPenalty = 20

	// Multipliers applied when the facility is not a panel provider.
	nonPanelDeductibleFactor = 1.5
	nonPanelCoPayFactor      = 2.0

	// recentClaimWindow bounds the trailing window for claim frequency.
	recentClaimWindow = 30 * 24 * time.Hour
	// recentClaimThreshold is the count above which coverage is reduced.
	recentClaimThreshold = 3
	// recentClaimReduction is the percentage-point reduction applied.
	recentClaimReduction = 10

	// extendedWaitingPeriodDays voids coverage entirely when exceeded.
	extendedWaitingPeriodDays = 30
)

// Excerpt texts are lowercased before scanning, so the patterns match
// lowercase only.
var (
	coverageRe      = regexp.MustCompile(`(\d+)%?\s*(?:coverage|reimbursement)`)
	deductibleRe    = regexp.MustCompile(`deductible[:\s]*\$?(\d+)`)
	coPayRe         = regexp.MustCompile(`co-?pay[:\s]*\$?(\d+)`)
	annualLimitRe   = regexp.MustCompile(`annual\s*limit[:\s]*\$?(\d+)`)
	waitingPeriodRe = regexp.MustCompile(`waiting\s*period[:\s]*(\d+)\s*days?`)
	panelRe         = regexp.MustCompile(`panel\s*providers?[:\s]*([^.]+)`)
	subLimitRe      = regexp.MustCompile(`sub-?limit[:\s]*\$?(\d+)`)
	panelSplitRe    = regexp.MustCompile(`[,;]`)
)

// Opts holds calculation knobs.
type Opts struct {
	ExactPanelMatch bool
}

// Option configures a calculation.
type Option func(*Opts)

// WithExactPanelMatch restores case-sensitive panel-name comparison. The
// default ignores case, since excerpt text is lowercased during parsing and
// catalog panel names are mixed-case.
func WithExactPanelMatch() Option {
	return func(o *Opts) { o.ExactPanelMatch = true }
}

// parsedTerms holds the coverage terms mined from the document excerpts.
type parsedTerms struct {
	panelCoverage    int
	nonPanelCoverage int
	deductible       float64
	coPay            float64
	annualLimit      float64
	waitingPeriod    int
	panelProviders   []string
}

// Calculate combines a facility, the session's insurance excerpts, and its
// claim history into a coverage estimate for the given treatment type.
// Excerpts are scanned in the given order; last match wins for deductible,
// co-pay, annual limit, and waiting period, while the coverage percentage
// takes the maximum across all matches.
func Calculate(facility models.Facility, documents []models.ExtractedDocument, claims []models.ClaimRecord, treatmentType models.TreatmentType, opts ...Option) models.CoverageEstimate {
	slog.Debug("Coverage Calculate", "facility", facility.ID, "documents", len(documents), "claims", len(claims), "treatmentType", treatmentType)

	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}

	// Polyclinics are government-subsidized; insurance math does not apply.
	if facility.Type == models.FacilityPolyclinic {
		return models.CoverageEstimate{
			Percentage:      100,
			IsPanelProvider: true,
			Conditions:      []string{},
			Explanation:     "Fully subsidized at polyclinics with Medisave/Medishield Life",
		}
	}

	terms := parseTerms(documents)
	conditions := checkConditions(documents, claims)

	isPanel := hasPanelOverlap(facility.InsurancePanels, terms.panelProviders, cfg.ExactPanelMatch)

	percentage := terms.nonPanelCoverage
	deductible := terms.deductible * nonPanelDeductibleFactor
	coPay := terms.coPay * nonPanelCoPayFactor
	var conditionList []string
	if isPanel {
		percentage = terms.panelCoverage
		deductible = terms.deductible
		coPay = terms.coPay
	} else {
		conditionList = append(conditionList, "Non-panel provider - reduced coverage")
	}
	annualLimit := terms.annualLimit
	remainingLimit := math.Max(0, annualLimit-usedLimit(claims, time.Now()))
	waitingPeriod := terms.waitingPeriod

	// Condition overlays, in fixed order.
	if conditions.HasWaitingPeriod && conditions.WaitingPeriodDays > 0 {
		conditionList = append(conditionList, fmt.Sprintf("Waiting period: %d days", conditions.WaitingPeriodDays))
		if conditions.WaitingPeriodDays > extendedWaitingPeriodDays {
			// Coverage is voided outright during an extended waiting period.
			percentage = 0
		}
	}

	if conditions.HasRecentClaims && conditions.RecentClaimCount > recentClaimThreshold {
		conditionList = append(conditionList, "Multiple recent claims - may affect coverage")
		percentage = max(0, percentage-recentClaimReduction)
	}

	if conditions.HasSubLimits && conditions.SubLimitAmount > 0 {
		conditionList = append(conditionList, fmt.Sprintf("Sub-limit applies: $%.0f", conditions.SubLimitAmount))
	}

	if conditions.RequiresPreAuth {
		conditionList = append(conditionList, "Pre-authorization required")
	}

	percentage = clampPercentage(percentage)

	return models.CoverageEstimate{
		Percentage:      percentage,
		Deductible:      deductible,
		CoPay:           coPay,
		IsPanelProvider: isPanel,
		AnnualLimit:     annualLimit,
		RemainingLimit:  remainingLimit,
		WaitingPeriod:   waitingPeriod,
		Conditions:      conditionList,
		Explanation:     buildExplanation(percentage, deductible, coPay, isPanel, conditions),
	}
}

// parseTerms scans the excerpts in order and extracts coverage terms.
func parseTerms(documents []models.ExtractedDocument) parsedTerms {
	terms := parsedTerms{
		panelCoverage:    defaultPanelCoverage,
		nonPanelCoverage: defaultNonPanelCoverage,
		deductible:       defaultDeductible,
		coPay:            defaultCoPay,
		annualLimit:      defaultAnnualLimit,
	}

	maxPercentage := -1
	for _, doc := range documents {
		text := strings.ToLower(doc.ExtractedText)

		for _, m := range coverageRe.FindAllStringSubmatch(text, -1) {
			if pct := parseInt(m[1]); pct > maxPercentage {
				maxPercentage = pct
			}
		}

		if m := deductibleRe.FindStringSubmatch(text); m != nil {
			terms.deductible = float64(parseInt(m[1]))
		}
		if m := coPayRe.FindStringSubmatch(text); m != nil {
			terms.coPay = float64(parseInt(m[1]))
		}
		if m := annualLimitRe.FindStringSubmatch(text); m != nil {
			terms.annualLimit = float64(parseInt(m[1]))
		}
		if m := waitingPeriodRe.FindStringSubmatch(text); m != nil {
			terms.waitingPeriod = parseInt(m[1])
		}

		// Panel provider names accumulate across excerpts.
		if m := panelRe.FindStringSubmatch(text); m != nil {
			for _, p := range panelSplitRe.Split(m[1], -1) {
				if p = strings.TrimSpace(p); p != "" {
					terms.panelProviders = append(terms.panelProviders, p)
				}
			}
		}
	}

	if maxPercentage >= 0 {
		terms.panelCoverage = maxPercentage
		terms.nonPanelCoverage = max(0, maxPercentage-nonPanelPenalty)
	}
	return terms
}

// CheckConditions computes the condition flags from the same excerpts plus
// claim history. Exposed for the chat layer's coverage tooltip.
func CheckConditions(documents []models.ExtractedDocument, claims []models.ClaimRecord) models.CoverageConditions {
	return checkConditions(documents, claims)
}

func checkConditions(documents []models.ExtractedDocument, claims []models.ClaimRecord) models.CoverageConditions {
	var conditions models.CoverageConditions

	now := time.Now()
	for _, claim := range claims {
		if now.Sub(claim.Date) < recentClaimWindow {
			conditions.RecentClaimCount++
		}
	}
	conditions.HasRecentClaims = conditions.RecentClaimCount > 0

	for _, doc := range documents {
		text := strings.ToLower(doc.ExtractedText)

		if strings.Contains(text, "waiting period") {
			conditions.HasWaitingPeriod = true
			if m := waitingPeriodRe.FindStringSubmatch(text); m != nil {
				conditions.WaitingPeriodDays = parseInt(m[1])
			}
		}
		if strings.Contains(text, "sub-limit") || strings.Contains(text, "sublimit") {
			conditions.HasSubLimits = true
			if m := subLimitRe.FindStringSubmatch(text); m != nil {
				conditions.SubLimitAmount = float64(parseInt(m[1]))
			}
		}
		if strings.Contains(text, "pre-authorization") || strings.Contains(text, "preauth") {
			conditions.RequiresPreAuth = true
		}
		if strings.Contains(text, "deductible") {
			conditions.HasDeductible = true
			if m := deductibleRe.FindStringSubmatch(text); m != nil {
				conditions.DeductibleAmount = float64(parseInt(m[1]))
			}
		}
	}

	return conditions
}

// hasPanelOverlap reports whether any facility panel name appears in the
// parsed provider list. Excerpt text is lowercased during parsing, so
// matching ignores case unless exact comparison is requested.
func hasPanelOverlap(facilityPanels, parsedProviders []string, exact bool) bool {
	for _, panel := range facilityPanels {
		for _, provider := range parsedProviders {
			if panel == provider || (!exact && strings.EqualFold(panel, provider)) {
				return true
			}
		}
	}
	return false
}

// usedLimit sums claim amounts in the current calendar year.
func usedLimit(claims []models.ClaimRecord, now time.Time) float64 {
	var total float64
	for _, claim := range claims {
		if claim.Date.Year() == now.Year() {
			total += claim.Amount
		}
	}
	return total
}

// buildExplanation joins the estimate's salient parts in a fixed order.
func buildExplanation(percentage int, deductible, coPay float64, isPanel bool, conditions models.CoverageConditions) string {
	var parts []string

	if percentage == 0 {
		parts = append(parts, "No coverage available")
	} else {
		parts = append(parts, fmt.Sprintf("%d%% coverage", percentage))
	}
	if deductible > 0 {
		parts = append(parts, fmt.Sprintf("$%.0f deductible", deductible))
	}
	if coPay > 0 {
		parts = append(parts, fmt.Sprintf("$%.0f co-pay", coPay))
	}
	if isPanel {
		parts = append(parts, "Panel provider")
	} else {
		parts = append(parts, "Non-panel provider")
	}
	if conditions.HasWaitingPeriod && conditions.WaitingPeriodDays > 0 {
		parts = append(parts, fmt.Sprintf("%d-day waiting period", conditions.WaitingPeriodDays))
	}
	if conditions.RequiresPreAuth {
		parts = append(parts, "Pre-authorization required")
	}

	return strings.Join(parts, ", ")
}

// Summary renders a one-line out-of-pocket estimate using the midpoint of
// the facility's emergency range (consultation when no emergency range is
// published).
func Summary(facility models.Facility, documents []models.ExtractedDocument, claims []models.ClaimRecord, treatmentType models.TreatmentType, opts ...Option) string {
	estimate := Calculate(facility, documents, claims, treatmentType, opts...)

	if estimate.Percentage == 0 {
		return "No coverage available"
	}

	costRange := facility.CostRanges.Emergency
	if costRange.Max == 0 {
		costRange = facility.CostRanges.Consultation
	}
	estimatedCost := (costRange.Min + costRange.Max) / 2
	coveredAmount := (estimatedCost - estimate.Deductible) * (float64(estimate.Percentage) / 100)
	outOfPocket := estimatedCost - coveredAmount + estimate.CoPay

	return fmt.Sprintf("Estimated out-of-pocket: $%.0f (%d%% coverage)", math.Round(outOfPocket), estimate.Percentage)
}

func clampPercentage(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// parseInt converts matched digits, degrading to 0 on overflow or garbage.
func parseInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
