package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/carecover/carecover/internal/models"
)

// storeUnderTest runs the shared behavior suite against any Store.
func storeUnderTest(t *testing.T, s Store) {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)

	fu := models.FollowUpSchedule{
		ID:            "followup-1",
		SessionID:     "s1",
		ScheduledTime: now.Add(30 * time.Minute),
		Message:       "How are you feeling now?",
		CreatedAt:     now,
	}
	if err := s.AddFollowUp(fu); err != nil {
		t.Fatalf("AddFollowUp: %v", err)
	}

	got, err := s.GetFollowUp("followup-1")
	if err != nil {
		t.Fatalf("GetFollowUp: %v", err)
	}
	if got.SessionID != "s1" || got.Triggered {
		t.Errorf("GetFollowUp = %+v, want untriggered s1", got)
	}

	if _, err := s.GetFollowUp("missing"); !errors.Is(err, models.ErrFollowUpNotFound) {
		t.Errorf("GetFollowUp(missing) err = %v, want ErrFollowUpNotFound", err)
	}

	if err := s.MarkFollowUpTriggered("followup-1"); err != nil {
		t.Fatalf("MarkFollowUpTriggered: %v", err)
	}
	got, err = s.GetFollowUp("followup-1")
	if err != nil {
		t.Fatalf("GetFollowUp after trigger: %v", err)
	}
	if !got.Triggered {
		t.Error("follow-up not marked triggered")
	}

	if err := s.MarkFollowUpTriggered("missing"); !errors.Is(err, models.ErrFollowUpNotFound) {
		t.Errorf("MarkFollowUpTriggered(missing) err = %v, want ErrFollowUpNotFound", err)
	}

	other := fu
	other.ID = "followup-2"
	other.SessionID = "s2"
	if err := s.AddFollowUp(other); err != nil {
		t.Fatalf("AddFollowUp second: %v", err)
	}
	bySession, err := s.ListFollowUps("s1")
	if err != nil {
		t.Fatalf("ListFollowUps(s1): %v", err)
	}
	if len(bySession) != 1 || bySession[0].ID != "followup-1" {
		t.Errorf("ListFollowUps(s1) = %+v, want only followup-1", bySession)
	}
	all, err := s.ListFollowUps("")
	if err != nil {
		t.Fatalf("ListFollowUps(all): %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListFollowUps(all) = %d entries, want 2", len(all))
	}

	if err := s.DeleteFollowUp("followup-2"); err != nil {
		t.Fatalf("DeleteFollowUp: %v", err)
	}
	if _, err := s.GetFollowUp("followup-2"); !errors.Is(err, models.ErrFollowUpNotFound) {
		t.Errorf("deleted follow-up still present, err = %v", err)
	}

	claim := models.ClaimRecord{
		ID:        "claim-1",
		SessionID: "s1",
		Date:      now.AddDate(0, 0, -10),
		Amount:    250,
		Provider:  "Parkway East Hospital",
		Type:      models.ClaimOutpatient,
		Status:    models.ClaimApproved,
	}
	if err := s.AddClaim(claim); err != nil {
		t.Fatalf("AddClaim: %v", err)
	}
	claims, err := s.ListClaims("s1")
	if err != nil {
		t.Fatalf("ListClaims: %v", err)
	}
	if len(claims) != 1 || claims[0].Amount != 250 || claims[0].Status != models.ClaimApproved {
		t.Errorf("ListClaims = %+v", claims)
	}

	doc := models.ExtractedDocument{
		ID:            "doc-1",
		SessionID:     "s1",
		FileName:      "policy.pdf",
		ExtractedText: "80% coverage. Deductible: $100.",
		Category:      models.DocumentInsurance,
		ExtractedAt:   now,
		KeyPoints:     []string{"80% coverage", "$100 deductible"},
	}
	if err := s.AddDocument(doc); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	docs, err := s.ListDocuments("s1")
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 1 || docs[0].Category != models.DocumentInsurance {
		t.Fatalf("ListDocuments = %+v", docs)
	}
	if len(docs[0].KeyPoints) != 2 || docs[0].KeyPoints[0] != "80% coverage" {
		t.Errorf("KeyPoints = %v, want round-trip", docs[0].KeyPoints)
	}

	pain := 7
	ctx := models.EmergencyContext{
		SessionID:     "s1",
		CurrentStep:   2,
		SeverityLevel: models.SeveritySevere,
		Symptoms:      []string{"sprain", "swelling"},
		Location:      "bedok",
		PainLevel:     &pain,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.SaveEmergencyContext(ctx); err != nil {
		t.Fatalf("SaveEmergencyContext: %v", err)
	}
	loaded, err := s.GetEmergencyContext("s1")
	if err != nil {
		t.Fatalf("GetEmergencyContext: %v", err)
	}
	if loaded.CurrentStep != 2 || loaded.SeverityLevel != models.SeveritySevere {
		t.Errorf("GetEmergencyContext = %+v", loaded)
	}
	if len(loaded.Symptoms) != 2 || loaded.PainLevel == nil || *loaded.PainLevel != 7 {
		t.Errorf("context round-trip lost fields: %+v", loaded)
	}

	ctx.CurrentStep = 3
	ctx.SelectedCareOption = "parkway-east"
	if err := s.SaveEmergencyContext(ctx); err != nil {
		t.Fatalf("SaveEmergencyContext update: %v", err)
	}
	loaded, err = s.GetEmergencyContext("s1")
	if err != nil {
		t.Fatalf("GetEmergencyContext after update: %v", err)
	}
	if loaded.CurrentStep != 3 || loaded.SelectedCareOption != "parkway-east" {
		t.Errorf("upsert did not update: %+v", loaded)
	}

	if err := s.DeleteEmergencyContext("s1"); err != nil {
		t.Fatalf("DeleteEmergencyContext: %v", err)
	}
	if _, err := s.GetEmergencyContext("s1"); !errors.Is(err, models.ErrNoEmergencyContext) {
		t.Errorf("deleted context still present, err = %v", err)
	}
}

func TestInMemoryStore(t *testing.T) {
	storeUnderTest(t, NewInMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "carecover.db")
	s, err := NewSQLiteStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	storeUnderTest(t, s)
}

func TestSQLiteStoreRequiresDSN(t *testing.T) {
	if _, err := NewSQLiteStore(); err == nil {
		t.Error("expected error without DSN")
	}
}
