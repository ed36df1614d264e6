// Package facility holds the static Singapore healthcare facility catalog.
//
// The catalog is immutable reference data loaded at process start; all
// lookups return copies of the slice header so callers can re-sort freely.
package facility

import (
	"sort"

	"github.com/carecover/carecover/internal/models"
)

// catalog is the full facility table. Never mutated after init.
var catalog = []models.Facility{
	// East Region
	{
		ID:      "parkway-east",
		Name:    "Parkway East Hospital",
		Type:    models.FacilityHospital,
		Region:  models.RegionEast,
		Address: "321 Joo Chiat Place, Singapore 427990",
		Phone:   "+65 6340 8666",
		OperatingHours: models.OperatingHours{
			Weekdays: "24/7", Weekends: "24/7", Emergency: "24/7",
		},
		HasAandE:     true,
		HasEmergency: true,
		CostRanges: models.FacilityCostRanges{
			Consultation: models.CostRange{Min: 150, Max: 300},
			Emergency:    models.CostRange{Min: 200, Max: 500},
			Specialist:   models.CostRange{Min: 200, Max: 400},
		},
		WaitTimes:       models.WaitTimes{Emergency: "1-3 hours", Consultation: "30-60 minutes"},
		InsurancePanels: []string{"AIA", "Prudential", "Great Eastern", "NTUC Income"},
		Services:        []string{"Emergency", "General Surgery", "Orthopedics", "Radiology"},
	},
	{
		ID:      "bedok-polyclinic",
		Name:    "Bedok Polyclinic",
		Type:    models.FacilityPolyclinic,
		Region:  models.RegionEast,
		Address: "11 Bedok North Street 1, Singapore 469662",
		Phone:   "+65 6243 6688",
		OperatingHours: models.OperatingHours{
			Weekdays: "8:00 AM - 5:30 PM", Weekends: "8:00 AM - 1:00 PM", Emergency: "Closed",
		},
		CostRanges: models.FacilityCostRanges{
			Consultation: models.CostRange{Min: 15, Max: 30},
			Specialist:   models.CostRange{Min: 25, Max: 50},
		},
		WaitTimes:       models.WaitTimes{Emergency: "N/A", Consultation: "1-3 hours"},
		InsurancePanels: []string{"Medisave", "Medishield Life"},
		Services:        []string{"General Consultation", "Chronic Disease Management", "Vaccination"},
	},
	{
		ID:      "east-shore",
		Name:    "East Shore Hospital",
		Type:    models.FacilityHospital,
		Region:  models.RegionEast,
		Address: "319 Joo Chiat Place, Singapore 427989",
		Phone:   "+65 6344 7588",
		OperatingHours: models.OperatingHours{
			Weekdays: "24/7", Weekends: "24/7", Emergency: "24/7",
		},
		HasAandE:     true,
		HasEmergency: true,
		CostRanges: models.FacilityCostRanges{
			Consultation: models.CostRange{Min: 120, Max: 250},
			Emergency:    models.CostRange{Min: 180, Max: 400},
			Specialist:   models.CostRange{Min: 180, Max: 350},
		},
		WaitTimes:       models.WaitTimes{Emergency: "1-2 hours", Consultation: "20-45 minutes"},
		InsurancePanels: []string{"AIA", "Prudential", "Great Eastern", "NTUC Income", "Aviva"},
		Services:        []string{"Emergency", "General Medicine", "Orthopedics", "Cardiology"},
	},

	// West Region
	{
		ID:      "jurong-east-polyclinic",
		Name:    "Jurong East Polyclinic",
		Type:    models.FacilityPolyclinic,
		Region:  models.RegionWest,
		Address: "50 Jurong Gateway Road, Singapore 608549",
		Phone:   "+65 6355 3000",
		OperatingHours: models.OperatingHours{
			Weekdays: "8:00 AM - 5:30 PM", Weekends: "8:00 AM - 1:00 PM", Emergency: "Closed",
		},
		CostRanges: models.FacilityCostRanges{
			Consultation: models.CostRange{Min: 15, Max: 30},
			Specialist:   models.CostRange{Min: 25, Max: 50},
		},
		WaitTimes:       models.WaitTimes{Emergency: "N/A", Consultation: "1-3 hours"},
		InsurancePanels: []string{"Medisave", "Medishield Life"},
		Services:        []string{"General Consultation", "Chronic Disease Management", "Vaccination"},
	},
	{
		ID:      "ng-teng-fong",
		Name:    "Ng Teng Fong General Hospital",
		Type:    models.FacilityHospital,
		Region:  models.RegionWest,
		Address: "1 Jurong East Street 21, Singapore 609606",
		Phone:   "+65 6716 2000",
		OperatingHours: models.OperatingHours{
			Weekdays: "24/7", Weekends: "24/7", Emergency: "24/7",
		},
		HasAandE:     true,
		HasEmergency: true,
		CostRanges: models.FacilityCostRanges{
			Consultation: models.CostRange{Min: 20, Max: 50},
			Emergency:    models.CostRange{Min: 50, Max: 150},
			Specialist:   models.CostRange{Min: 30, Max: 80},
		},
		WaitTimes:       models.WaitTimes{Emergency: "2-4 hours", Consultation: "1-2 hours"},
		InsurancePanels: []string{"Medisave", "Medishield Life", "AIA", "Prudential"},
		Services:        []string{"Emergency", "General Medicine", "Surgery", "Orthopedics", "Cardiology"},
	},

	// Central Region
	{
		ID:      "singapore-general",
		Name:    "Singapore General Hospital",
		Type:    models.FacilityHospital,
		Region:  models.RegionCentral,
		Address: "Outram Road, Singapore 169608",
		Phone:   "+65 6222 3322",
		OperatingHours: models.OperatingHours{
			Weekdays: "24/7", Weekends: "24/7", Emergency: "24/7",
		},
		HasAandE:     true,
		HasEmergency: true,
		CostRanges: models.FacilityCostRanges{
			Consultation: models.CostRange{Min: 20, Max: 50},
			Emergency:    models.CostRange{Min: 50, Max: 150},
			Specialist:   models.CostRange{Min: 30, Max: 80},
		},
		WaitTimes:       models.WaitTimes{Emergency: "2-4 hours", Consultation: "1-2 hours"},
		InsurancePanels: []string{"Medisave", "Medishield Life", "AIA", "Prudential", "Great Eastern"},
		Services:        []string{"Emergency", "Trauma", "General Medicine", "Surgery", "Specialist Care"},
	},
	{
		ID:      "national-university",
		Name:    "National University Hospital",
		Type:    models.FacilityHospital,
		Region:  models.RegionCentral,
		Address: "5 Lower Kent Ridge Road, Singapore 119074",
		Phone:   "+65 6779 5555",
		OperatingHours: models.OperatingHours{
			Weekdays: "24/7", Weekends: "24/7", Emergency: "24/7",
		},
		HasAandE:     true,
		HasEmergency: true,
		CostRanges: models.FacilityCostRanges{
			Consultation: models.CostRange{Min: 20, Max: 50},
			Emergency:    models.CostRange{Min: 50, Max: 150},
			Specialist:   models.CostRange{Min: 30, Max: 80},
		},
		WaitTimes:       models.WaitTimes{Emergency: "2-4 hours", Consultation: "1-2 hours"},
		InsurancePanels: []string{"Medisave", "Medishield Life", "AIA", "Prudential", "Great Eastern"},
		Services:        []string{"Emergency", "General Medicine", "Surgery", "Pediatrics", "Specialist Care"},
	},
	{
		ID:      "outram-polyclinic",
		Name:    "Outram Polyclinic",
		Type:    models.FacilityPolyclinic,
		Region:  models.RegionCentral,
		Address: "3 Second Hospital Avenue, Singapore 168937",
		Phone:   "+65 6435 3000",
		OperatingHours: models.OperatingHours{
			Weekdays: "8:00 AM - 5:30 PM", Weekends: "8:00 AM - 1:00 PM", Emergency: "Closed",
		},
		CostRanges: models.FacilityCostRanges{
			Consultation: models.CostRange{Min: 15, Max: 30},
			Specialist:   models.CostRange{Min: 25, Max: 50},
		},
		WaitTimes:       models.WaitTimes{Emergency: "N/A", Consultation: "1-3 hours"},
		InsurancePanels: []string{"Medisave", "Medishield Life"},
		Services:        []string{"General Consultation", "Chronic Disease Management", "Vaccination"},
	},

	// North Region
	{
		ID:      "woodlands-polyclinic",
		Name:    "Woodlands Polyclinic",
		Type:    models.FacilityPolyclinic,
		Region:  models.RegionNorth,
		Address: "10 Woodlands Street 31, Singapore 738579",
		Phone:   "+65 6253 4455",
		OperatingHours: models.OperatingHours{
			Weekdays: "8:00 AM - 5:30 PM", Weekends: "8:00 AM - 1:00 PM", Emergency: "Closed",
		},
		CostRanges: models.FacilityCostRanges{
			Consultation: models.CostRange{Min: 15, Max: 30},
			Specialist:   models.CostRange{Min: 25, Max: 50},
		},
		WaitTimes:       models.WaitTimes{Emergency: "N/A", Consultation: "1-3 hours"},
		InsurancePanels: []string{"Medisave", "Medishield Life"},
		Services:        []string{"General Consultation", "Chronic Disease Management", "Vaccination"},
	},
	{
		ID:      "khoo-teck-puat",
		Name:    "Khoo Teck Puat Hospital",
		Type:    models.FacilityHospital,
		Region:  models.RegionNorth,
		Address: "90 Yishun Central, Singapore 768828",
		Phone:   "+65 6602 2000",
		OperatingHours: models.OperatingHours{
			Weekdays: "24/7", Weekends: "24/7", Emergency: "24/7",
		},
		HasAandE:     true,
		HasEmergency: true,
		CostRanges: models.FacilityCostRanges{
			Consultation: models.CostRange{Min: 20, Max: 50},
			Emergency:    models.CostRange{Min: 50, Max: 150},
			Specialist:   models.CostRange{Min: 30, Max: 80},
		},
		WaitTimes:       models.WaitTimes{Emergency: "2-4 hours", Consultation: "1-2 hours"},
		InsurancePanels: []string{"Medisave", "Medishield Life", "AIA", "Prudential", "Great Eastern"},
		Services:        []string{"Emergency", "General Medicine", "Surgery", "Orthopedics", "Cardiology"},
	},

	// South Region
	{
		ID:      "alexandra",
		Name:    "Alexandra Hospital",
		Type:    models.FacilityHospital,
		Region:  models.RegionSouth,
		Address: "378 Alexandra Road, Singapore 159964",
		Phone:   "+65 6472 2000",
		OperatingHours: models.OperatingHours{
			Weekdays: "24/7", Weekends: "24/7", Emergency: "24/7",
		},
		HasAandE:     true,
		HasEmergency: true,
		CostRanges: models.FacilityCostRanges{
			Consultation: models.CostRange{Min: 20, Max: 50},
			Emergency:    models.CostRange{Min: 50, Max: 150},
			Specialist:   models.CostRange{Min: 30, Max: 80},
		},
		WaitTimes:       models.WaitTimes{Emergency: "2-4 hours", Consultation: "1-2 hours"},
		InsurancePanels: []string{"Medisave", "Medishield Life", "AIA", "Prudential", "Great Eastern"},
		Services:        []string{"Emergency", "General Medicine", "Surgery", "Orthopedics", "Rehabilitation"},
	},

	// Private GP clinics (sample)
	{
		ID:      "raffles-medical-east",
		Name:    "Raffles Medical - East Coast",
		Type:    models.FacilityGP,
		Region:  models.RegionEast,
		Address: "1 Marine Parade Central, Singapore 449408",
		Phone:   "+65 6311 1111",
		OperatingHours: models.OperatingHours{
			Weekdays: "8:00 AM - 9:00 PM", Weekends: "8:00 AM - 5:00 PM", Emergency: "Closed",
		},
		CostRanges: models.FacilityCostRanges{
			Consultation: models.CostRange{Min: 50, Max: 120},
		},
		WaitTimes:       models.WaitTimes{Emergency: "N/A", Consultation: "15-30 minutes"},
		InsurancePanels: []string{"AIA", "Prudential", "Great Eastern", "NTUC Income", "Aviva"},
		Services:        []string{"General Consultation", "Vaccination", "Health Screening"},
	},
	{
		ID:      "mount-elizabeth-orchard",
		Name:    "Mount Elizabeth Hospital (Orchard)",
		Type:    models.FacilityHospital,
		Region:  models.RegionCentral,
		Address: "3 Mount Elizabeth, Singapore 228510",
		Phone:   "+65 6737 2666",
		OperatingHours: models.OperatingHours{
			Weekdays: "24/7", Weekends: "24/7", Emergency: "24/7",
		},
		HasAandE:     true,
		HasEmergency: true,
		CostRanges: models.FacilityCostRanges{
			Consultation: models.CostRange{Min: 200, Max: 400},
			Emergency:    models.CostRange{Min: 300, Max: 600},
			Specialist:   models.CostRange{Min: 250, Max: 500},
		},
		WaitTimes:       models.WaitTimes{Emergency: "30-60 minutes", Consultation: "15-30 minutes"},
		InsurancePanels: []string{"AIA", "Prudential", "Great Eastern", "NTUC Income", "Aviva"},
		Services:        []string{"Emergency", "General Medicine", "Surgery", "Specialist Care", "Cardiology"},
	},
}

// typePriority orders facility types for nearest-first ranking: hospitals
// with A&E first, then other hospitals, polyclinics, GPs, specialists.
var typePriority = map[models.FacilityType]int{
	models.FacilityHospital:   0,
	models.FacilityPolyclinic: 1,
	models.FacilityGP:         2,
	models.FacilitySpecialist: 3,
}

// All returns every facility in the catalog.
func All() []models.Facility {
	out := make([]models.Facility, len(catalog))
	copy(out, catalog)
	return out
}

// ByID returns the facility with the given id, or false if unknown.
func ByID(id string) (models.Facility, bool) {
	for _, f := range catalog {
		if f.ID == id {
			return f, true
		}
	}
	return models.Facility{}, false
}

// ByRegion returns facilities in the given region.
func ByRegion(region models.Region) []models.Facility {
	var out []models.Facility
	for _, f := range catalog {
		if f.Region == region {
			out = append(out, f)
		}
	}
	return out
}

// ByType returns facilities of the given type.
func ByType(t models.FacilityType) []models.Facility {
	var out []models.Facility
	for _, f := range catalog {
		if f.Type == t {
			out = append(out, f)
		}
	}
	return out
}

// Emergency returns facilities with an A&E department or emergency services.
func Emergency() []models.Facility {
	var out []models.Facility
	for _, f := range catalog {
		if f.HasAandE || f.HasEmergency {
			out = append(out, f)
		}
	}
	return out
}

// ByInsurance returns facilities on the given insurance panel.
func ByInsurance(provider string) []models.Facility {
	var out []models.Facility
	for _, f := range catalog {
		for _, panel := range f.InsurancePanels {
			if panel == provider {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// Nearest returns the region's facilities in care-priority order. When
// emergencyOnly is set, facilities without emergency services are dropped.
func Nearest(region models.Region, emergencyOnly bool) []models.Facility {
	facilities := ByRegion(region)

	if emergencyOnly {
		filtered := facilities[:0]
		for _, f := range facilities {
			if f.HasAandE || f.HasEmergency {
				filtered = append(filtered, f)
			}
		}
		facilities = filtered
	}

	sort.SliceStable(facilities, func(i, j int) bool {
		a, b := facilities[i], facilities[j]
		if typePriority[a.Type] != typePriority[b.Type] {
			return typePriority[a.Type] < typePriority[b.Type]
		}
		// Within a type, A&E availability wins.
		return a.HasAandE && !b.HasAandE
	})
	return facilities
}
