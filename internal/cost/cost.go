// Package cost estimates procedure costs from a predefined Singapore price
// table with keyword-based fuzzy matching and a short-lived per-estimator
// cache.
package cost

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/carecover/carecover/internal/models"
)

// cacheTTL is how long a cached estimate stays servable.
const cacheTTL = 7 * 24 * time.Hour

// currencySGD is the only currency the catalog quotes in.
const currencySGD = "SGD"

// predefinedSince is the revision date of the predefined cost table.
var predefinedSince = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// predefinedCosts maps canonical procedure keys to published cost ranges.
var predefinedCosts = map[string]models.CostEstimate{
	"emergency_visit": {
		Procedure:   "Emergency Department Visit",
		Range:       models.CostRange{Min: 50, Max: 500},
		Currency:    currencySGD,
		Source:      "Singapore Ministry of Health",
		LastUpdated: predefinedSince,
		Notes:       "Varies by hospital type and severity",
	},
	"gp_consultation": {
		Procedure:   "General Practitioner Consultation",
		Range:       models.CostRange{Min: 20, Max: 120},
		Currency:    currencySGD,
		Source:      "Singapore Medical Association",
		LastUpdated: predefinedSince,
		Notes:       "Private GP rates",
	},
	"specialist_consultation": {
		Procedure:   "Specialist Consultation",
		Range:       models.CostRange{Min: 100, Max: 300},
		Currency:    currencySGD,
		Source:      "Singapore Medical Association",
		LastUpdated: predefinedSince,
		Notes:       "First consultation rates",
	},
	"x_ray": {
		Procedure:   "X-Ray",
		Range:       models.CostRange{Min: 50, Max: 150},
		Currency:    currencySGD,
		Source:      "Singapore Ministry of Health",
		LastUpdated: predefinedSince,
		Notes:       "Per body part",
	},
	"mri": {
		Procedure:   "MRI Scan",
		Range:       models.CostRange{Min: 400, Max: 1200},
		Currency:    currencySGD,
		Source:      "Singapore Ministry of Health",
		LastUpdated: predefinedSince,
		Notes:       "Per body part",
	},
	"ct_scan": {
		Procedure:   "CT Scan",
		Range:       models.CostRange{Min: 200, Max: 800},
		Currency:    currencySGD,
		Source:      "Singapore Ministry of Health",
		LastUpdated: predefinedSince,
		Notes:       "Per body part",
	},
	"blood_test": {
		Procedure:   "Blood Test",
		Range:       models.CostRange{Min: 20, Max: 100},
		Currency:    currencySGD,
		Source:      "Singapore Ministry of Health",
		LastUpdated: predefinedSince,
		Notes:       "Basic panel",
	},
	"ultrasound": {
		Procedure:   "Ultrasound",
		Range:       models.CostRange{Min: 80, Max: 200},
		Currency:    currencySGD,
		Source:      "Singapore Ministry of Health",
		LastUpdated: predefinedSince,
		Notes:       "Per body part",
	},
}

// keywordMapping pairs a procedure keyword with its canonical table key.
type keywordMapping struct {
	keyword string
	key     string
}

// keywordMappings is scanned top-down; the first substring hit wins. The
// order is frozen: "scan" precedes "mri", so "MRI scan" resolves to ct_scan.
var keywordMappings = []keywordMapping{
	{"emergency", "emergency_visit"},
	{"a&e", "emergency_visit"},
	{"accident", "emergency_visit"},
	{"trauma", "emergency_visit"},
	{"consultation", "gp_consultation"},
	{"doctor", "gp_consultation"},
	{"gp", "gp_consultation"},
	{"specialist", "specialist_consultation"},
	{"scan", "ct_scan"},
	{"imaging", "ct_scan"},
	{"xray", "x_ray"},
	{"x-ray", "x_ray"},
	{"mri", "mri"},
	{"ultrasound", "ultrasound"},
	{"blood", "blood_test"},
	{"lab", "blood_test"},
	{"test", "blood_test"},
}

// genericBase holds facility-type-keyed fallback ranges for procedures the
// table does not know.
var genericBase = map[models.FacilityType]models.CostRange{
	models.FacilityHospital:   {Min: 100, Max: 500},
	models.FacilityPolyclinic: {Min: 15, Max: 50},
	models.FacilityGP:         {Min: 30, Max: 120},
	models.FacilitySpecialist: {Min: 150, Max: 400},
}

type cacheEntry struct {
	result   models.CostEstimate
	storedAt time.Time
}

// Estimator resolves procedure descriptions to cost ranges. Each instance
// owns its cache; callers share one estimator per process.
type Estimator struct {
	mu    sync.RWMutex
	cache map[string]cacheEntry
	now   func() time.Time
}

// CacheStats reports the current cache contents for operational inspection.
type CacheStats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

// NewEstimator creates a cost estimator with an empty cache.
func NewEstimator() *Estimator {
	slog.Debug("Creating cost estimator")
	return &Estimator{
		cache: make(map[string]cacheEntry),
		now:   time.Now,
	}
}

// Estimate resolves a procedure description and optional facility type to a
// cost range. Resolution order: fresh cache hit, exact table match, keyword
// fuzzy match, generic facility-type estimate. Every result is cached under
// its lookup key before returning. Total over its inputs: unknown procedures
// degrade to the generic estimate, never fail.
func (e *Estimator) Estimate(procedure string, facilityType models.FacilityType) models.CostEstimate {
	typeKey := string(facilityType)
	if typeKey == "" {
		typeKey = "general"
	}
	cacheKey := strings.ToLower(procedure + "_" + typeKey)

	e.mu.RLock()
	entry, hit := e.cache[cacheKey]
	e.mu.RUnlock()
	if hit && e.now().Sub(entry.storedAt) < cacheTTL {
		slog.Debug("Cost estimator cache hit", "key", cacheKey)
		return entry.result
	}

	result, path := e.lookup(procedure, facilityType)
	slog.Debug("Cost estimator resolved", "key", cacheKey, "path", path, "procedure", result.Procedure)

	e.mu.Lock()
	e.cache[cacheKey] = cacheEntry{result: result, storedAt: e.now()}
	e.mu.Unlock()
	return result
}

func (e *Estimator) lookup(procedure string, facilityType models.FacilityType) (models.CostEstimate, string) {
	// Exact match against the canonical procedure table.
	tableKey := strings.Join(strings.Fields(strings.ToLower(procedure)), "_")
	if est, ok := predefinedCosts[tableKey]; ok {
		return est, "exact"
	}

	// Keyword fuzzy match, first hit wins.
	lower := strings.ToLower(procedure)
	for _, m := range keywordMappings {
		if strings.Contains(lower, m.keyword) {
			return predefinedCosts[m.key], "keyword:" + m.keyword
		}
	}

	return e.genericEstimate(procedure, facilityType), "generic"
}

// genericEstimate builds a facility-type-keyed fallback wrapped as a
// CareCover estimate. Unknown facility types get the hospital range.
func (e *Estimator) genericEstimate(procedure string, facilityType models.FacilityType) models.CostEstimate {
	base, ok := genericBase[facilityType]
	if !ok {
		base = genericBase[models.FacilityHospital]
	}
	return models.CostEstimate{
		Procedure:   procedure,
		Range:       base,
		Currency:    currencySGD,
		Source:      "CareCover Estimate",
		LastUpdated: e.now(),
		Notes:       "Estimated based on facility type and procedure category",
	}
}

// Clear empties the cache.
func (e *Estimator) Clear() {
	e.mu.Lock()
	e.cache = make(map[string]cacheEntry)
	e.mu.Unlock()
	slog.Debug("Cost estimator cache cleared")
}

// Stats returns the cache size and keys.
func (e *Estimator) Stats() CacheStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	keys := make([]string, 0, len(e.cache))
	for k := range e.cache {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return CacheStats{Size: len(e.cache), Keys: keys}
}

// EstimateForFacility reads a cost range directly from the facility's own
// published ranges, bypassing the table and cache. The procedure text picks
// the bucket by substring; consultation is the default.
func EstimateForFacility(f models.Facility, procedure string) models.CostEstimate {
	lower := strings.ToLower(procedure)
	now := time.Now()

	switch {
	case strings.Contains(lower, "emergency") || strings.Contains(lower, "a&e"):
		return models.CostEstimate{
			Procedure:   "Emergency Visit",
			Range:       f.CostRanges.Emergency,
			Currency:    currencySGD,
			Source:      f.Name,
			LastUpdated: now,
			Notes:       fmt.Sprintf("Emergency visit at %s", f.Name),
		}
	case strings.Contains(lower, "consultation") || strings.Contains(lower, "gp"):
		return models.CostEstimate{
			Procedure:   "Consultation",
			Range:       f.CostRanges.Consultation,
			Currency:    currencySGD,
			Source:      f.Name,
			LastUpdated: now,
			Notes:       fmt.Sprintf("Consultation at %s", f.Name),
		}
	case strings.Contains(lower, "specialist"):
		return models.CostEstimate{
			Procedure:   "Specialist Consultation",
			Range:       f.CostRanges.Specialist,
			Currency:    currencySGD,
			Source:      f.Name,
			LastUpdated: now,
			Notes:       fmt.Sprintf("Specialist consultation at %s", f.Name),
		}
	default:
		return models.CostEstimate{
			Procedure:   "Medical Consultation",
			Range:       f.CostRanges.Consultation,
			Currency:    currencySGD,
			Source:      f.Name,
			LastUpdated: now,
			Notes:       fmt.Sprintf("Medical consultation at %s", f.Name),
		}
	}
}

// FormatRange renders a cost range for display, collapsing equal bounds.
func FormatRange(est models.CostEstimate) string {
	if est.Range.Min == est.Range.Max {
		return fmt.Sprintf("%s %.0f", est.Currency, est.Range.Min)
	}
	return fmt.Sprintf("%s %.0f - %.0f", est.Currency, est.Range.Min, est.Range.Max)
}

// FacilityCost pairs a facility with its cost estimate for one procedure.
type FacilityCost struct {
	Facility      models.Facility     `json:"facility"`
	Cost          models.CostEstimate `json:"cost"`
	FormattedCost string              `json:"formatted_cost"`
}

// Comparison estimates the procedure at each facility and returns the list
// sorted cheapest-first by range minimum.
func Comparison(facilities []models.Facility, procedure string) []FacilityCost {
	out := make([]FacilityCost, 0, len(facilities))
	for _, f := range facilities {
		est := EstimateForFacility(f, procedure)
		out = append(out, FacilityCost{
			Facility:      f,
			Cost:          est,
			FormattedCost: FormatRange(est),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Cost.Range.Min < out[j].Cost.Range.Min
	})
	return out
}
