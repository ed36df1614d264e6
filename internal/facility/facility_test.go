package facility

import (
	"testing"

	"github.com/carecover/carecover/internal/models"
)

func TestByID(t *testing.T) {
	f, ok := ByID("singapore-general")
	if !ok {
		t.Fatal("expected singapore-general in catalog")
	}
	if f.Name != "Singapore General Hospital" || f.Type != models.FacilityHospital {
		t.Errorf("unexpected facility: %+v", f)
	}

	if _, ok := ByID("no-such-facility"); ok {
		t.Error("expected lookup miss for unknown id")
	}
}

func TestByRegion(t *testing.T) {
	east := ByRegion(models.RegionEast)
	if len(east) == 0 {
		t.Fatal("expected east region facilities")
	}
	for _, f := range east {
		if f.Region != models.RegionEast {
			t.Errorf("facility %s in wrong region %s", f.ID, f.Region)
		}
	}
}

func TestEmergency(t *testing.T) {
	for _, f := range Emergency() {
		if !f.HasAandE && !f.HasEmergency {
			t.Errorf("facility %s has no emergency services", f.ID)
		}
	}
}

func TestByInsurance(t *testing.T) {
	for _, f := range ByInsurance("Aviva") {
		found := false
		for _, p := range f.InsurancePanels {
			if p == "Aviva" {
				found = true
			}
		}
		if !found {
			t.Errorf("facility %s not on Aviva panel", f.ID)
		}
	}
}

func TestNearest_PriorityOrder(t *testing.T) {
	facilities := Nearest(models.RegionEast, false)
	if len(facilities) < 3 {
		t.Fatalf("expected at least 3 east facilities, got %d", len(facilities))
	}

	// Hospitals must come before polyclinics, polyclinics before GPs.
	lastPriority := -1
	for _, f := range facilities {
		p := typePriority[f.Type]
		if p < lastPriority {
			t.Fatalf("facility %s (%s) out of priority order", f.ID, f.Type)
		}
		lastPriority = p
	}
}

func TestNearest_EmergencyOnly(t *testing.T) {
	facilities := Nearest(models.RegionEast, true)
	if len(facilities) == 0 {
		t.Fatal("expected emergency facilities in east region")
	}
	for _, f := range facilities {
		if !f.HasAandE && !f.HasEmergency {
			t.Errorf("non-emergency facility %s returned", f.ID)
		}
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	a := All()
	a[0].ID = "mutated"
	b := All()
	if b[0].ID == "mutated" {
		t.Error("All returned a view into the catalog")
	}
}
