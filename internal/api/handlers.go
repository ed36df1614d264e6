package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carecover/carecover/internal/cost"
	"github.com/carecover/carecover/internal/coverage"
	"github.com/carecover/carecover/internal/emergency"
	"github.com/carecover/carecover/internal/facility"
	"github.com/carecover/carecover/internal/models"
	"github.com/carecover/carecover/internal/treatment"
	"github.com/carecover/carecover/internal/triage"
)

type triageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type coverageRequest struct {
	SessionID     string               `json:"session_id"`
	FacilityID    string               `json:"facility_id"`
	TreatmentType models.TreatmentType `json:"treatment_type"`
}

type claimRequest struct {
	SessionID   string             `json:"session_id"`
	Date        time.Time          `json:"date"`
	Amount      float64            `json:"amount"`
	Provider    string             `json:"provider"`
	Type        models.ClaimType   `json:"type"`
	Status      models.ClaimStatus `json:"status"`
	Description string             `json:"description"`
}

type documentRequest struct {
	SessionID     string                  `json:"session_id"`
	FileName      string                  `json:"file_name"`
	ExtractedText string                  `json:"extracted_text"`
	Category      models.DocumentCategory `json:"category"`
	ParentTitle   string                  `json:"parent_title"`
	Summary       string                  `json:"summary"`
	KeyPoints     []string                `json:"key_points"`
}

type followUpRequest struct {
	SessionID    string `json:"session_id"`
	DelayMinutes int    `json:"delay_minutes"`
	Message      string `json:"message"`
}

type emergencyInitRequest struct {
	SessionID string   `json:"session_id"`
	Symptoms  []string `json:"symptoms"`
	Location  string   `json:"location"`
	PainLevel *int     `json:"pain_level"`
}

type emergencyActionRequest struct {
	SessionID string               `json:"session_id"`
	Action    string               `json:"action"`
	OptionID  string               `json:"option_id"`
	Step      int                  `json:"step"`
	Symptom   string               `json:"symptom"`
	Location  string               `json:"location"`
	PainLevel int                  `json:"pain_level"`
	Severity  models.SeverityLevel `json:"severity"`
}

type treatmentPrepareRequest struct {
	SessionID     string               `json:"session_id"`
	Messages      []string             `json:"messages"`
	TreatmentType models.TreatmentType `json:"treatment_type"`
	HasInsurance  bool                 `json:"has_insurance"`
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	Reply      string                   `json:"reply"`
	Assessment *triage.Assessment       `json:"assessment,omitempty"`
	Context    *models.EmergencyContext `json:"emergency_context,omitempty"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "ok"}))
}

func (s *Server) triageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("triageHandler invoked", "method", r.Method, "path", r.URL.Path)

	if r.Method != http.MethodPost {
		slog.Warn("Method not allowed on triage endpoint", "method", r.Method)
		w.Header().Set("Allow", http.MethodPost)
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		return
	}

	var req triageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid JSON in triage request", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.SessionID == "" || req.Message == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("session_id and message are required"))
		return
	}

	documents, err := s.store.ListDocuments(req.SessionID)
	if err != nil {
		slog.Error("Failed to load session documents", "error", err, "sessionID", req.SessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session data"))
		return
	}
	claims, err := s.store.ListClaims(req.SessionID)
	if err != nil {
		slog.Error("Failed to load session claims", "error", err, "sessionID", req.SessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session data"))
		return
	}

	assessment := s.triage.Assess(req.Message, documents, claims)
	slog.Debug("Triage assessment complete", "sessionID", req.SessionID,
		"emergency", assessment.Detection.IsEmergency, "severity", assessment.Severity,
		"options", len(assessment.Options))
	writeJSONResponse(w, http.StatusOK, models.Success(assessment))
}

func (s *Server) facilitiesHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("facilitiesHandler invoked", "method", r.Method, "query", r.URL.RawQuery)

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		return
	}

	facilities := facility.All()

	if region := r.URL.Query().Get("region"); region != "" {
		if !models.IsValidRegion(models.Region(region)) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid region"))
			return
		}
		facilities = filterFacilities(facilities, func(f models.Facility) bool {
			return f.Region == models.Region(region)
		})
	}
	if typ := r.URL.Query().Get("type"); typ != "" {
		if !models.IsValidFacilityType(models.FacilityType(typ)) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid facility type"))
			return
		}
		facilities = filterFacilities(facilities, func(f models.Facility) bool {
			return f.Type == models.FacilityType(typ)
		})
	}
	if r.URL.Query().Get("emergency") == "true" {
		facilities = filterFacilities(facilities, func(f models.Facility) bool {
			return f.HasEmergency
		})
	}
	if provider := r.URL.Query().Get("insurance"); provider != "" {
		facilities = filterFacilities(facilities, func(f models.Facility) bool {
			for _, p := range f.InsurancePanels {
				if strings.EqualFold(p, provider) {
					return true
				}
			}
			return false
		})
	}

	writeJSONResponse(w, http.StatusOK, models.Success(facilities))
}

func (s *Server) facilityHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("facilityHandler invoked", "method", r.Method, "path", r.URL.Path)

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/facilities/")
	if id == "" || strings.Contains(id, "/") {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid facility ID"))
		return
	}

	f, ok := facility.ByID(id)
	if !ok {
		slog.Warn("Unknown facility requested", "facilityID", id)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Facility not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(f))
}

func (s *Server) coverageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("coverageHandler invoked", "method", r.Method)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		return
	}

	var req coverageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid JSON in coverage request", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.SessionID == "" || req.FacilityID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("session_id and facility_id are required"))
		return
	}
	if req.TreatmentType == "" {
		req.TreatmentType = models.TreatmentConsultation
	}

	f, ok := facility.ByID(req.FacilityID)
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Facility not found"))
		return
	}

	documents, err := s.store.ListDocuments(req.SessionID)
	if err != nil {
		slog.Error("Failed to load session documents", "error", err, "sessionID", req.SessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session data"))
		return
	}
	claims, err := s.store.ListClaims(req.SessionID)
	if err != nil {
		slog.Error("Failed to load session claims", "error", err, "sessionID", req.SessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session data"))
		return
	}

	estimate := coverage.Calculate(f, documents, claims, req.TreatmentType)
	summary := coverage.Summary(f, documents, claims, req.TreatmentType)
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]any{
		"estimate": estimate,
		"summary":  summary,
	}))
}

func (s *Server) costsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("costsHandler invoked", "method", r.Method, "query", r.URL.RawQuery)

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		return
	}

	procedure := r.URL.Query().Get("procedure")
	if procedure == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("procedure is required"))
		return
	}

	if facilityID := r.URL.Query().Get("facility_id"); facilityID != "" {
		f, ok := facility.ByID(facilityID)
		if !ok {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Facility not found"))
			return
		}
		est := cost.EstimateForFacility(f, procedure)
		writeJSONResponse(w, http.StatusOK, models.Success(map[string]any{
			"estimate":  est,
			"formatted": cost.FormatRange(est),
		}))
		return
	}

	if region := r.URL.Query().Get("region"); region != "" {
		if !models.IsValidRegion(models.Region(region)) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid region"))
			return
		}
		comparison := cost.Comparison(facility.ByRegion(models.Region(region)), procedure)
		writeJSONResponse(w, http.StatusOK, models.Success(comparison))
		return
	}

	facilityType := models.FacilityType(r.URL.Query().Get("facility_type"))
	if facilityType == "" {
		facilityType = models.FacilityGP
	}
	if !models.IsValidFacilityType(facilityType) {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid facility type"))
		return
	}
	est := s.costs.Estimate(procedure, facilityType)
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]any{
		"estimate":  est,
		"formatted": cost.FormatRange(est),
	}))
}

func (s *Server) claimsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("claimsHandler invoked", "method", r.Method)

	switch r.Method {
	case http.MethodGet:
		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("session_id is required"))
			return
		}
		claims, err := s.store.ListClaims(sessionID)
		if err != nil {
			slog.Error("Failed to list claims", "error", err, "sessionID", sessionID)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list claims"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(claims))

	case http.MethodPost:
		var req claimRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("Invalid JSON in claim request", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		if req.SessionID == "" {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("session_id is required"))
			return
		}
		if req.Amount < 0 {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("amount cannot be negative"))
			return
		}
		if req.Date.IsZero() {
			req.Date = time.Now()
		}
		if req.Status == "" {
			req.Status = models.ClaimSubmitted
		}

		claim := models.ClaimRecord{
			ID:          uuid.NewString(),
			SessionID:   req.SessionID,
			Date:        req.Date,
			Amount:      req.Amount,
			Provider:    req.Provider,
			Type:        req.Type,
			Status:      req.Status,
			Description: req.Description,
		}
		if err := s.store.AddClaim(claim); err != nil {
			slog.Error("Failed to add claim", "error", err, "sessionID", req.SessionID)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to add claim"))
			return
		}
		writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Claim recorded", claim))

	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
	}
}

func (s *Server) documentsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("documentsHandler invoked", "method", r.Method)

	switch r.Method {
	case http.MethodGet:
		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("session_id is required"))
			return
		}
		documents, err := s.store.ListDocuments(sessionID)
		if err != nil {
			slog.Error("Failed to list documents", "error", err, "sessionID", sessionID)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list documents"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(documents))

	case http.MethodPost:
		var req documentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("Invalid JSON in document request", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		if req.SessionID == "" || req.ExtractedText == "" {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("session_id and extracted_text are required"))
			return
		}
		if req.Category == "" {
			req.Category = models.DocumentInsurance
		}

		doc := models.ExtractedDocument{
			ID:            uuid.NewString(),
			SessionID:     req.SessionID,
			FileName:      req.FileName,
			ExtractedText: req.ExtractedText,
			Category:      req.Category,
			ParentTitle:   req.ParentTitle,
			ExtractedAt:   time.Now(),
			Summary:       req.Summary,
			KeyPoints:     req.KeyPoints,
		}
		if err := s.store.AddDocument(doc); err != nil {
			slog.Error("Failed to add document", "error", err, "sessionID", req.SessionID)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to add document"))
			return
		}
		writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Document recorded", doc))

	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
	}
}

func (s *Server) followUpsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("followUpsHandler invoked", "method", r.Method)

	switch r.Method {
	case http.MethodGet:
		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("session_id is required"))
			return
		}
		pending, err := s.followUps.Pending(sessionID)
		if err != nil {
			slog.Error("Failed to list follow-ups", "error", err, "sessionID", sessionID)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list follow-ups"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(pending))

	case http.MethodPost:
		var req followUpRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("Invalid JSON in follow-up request", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		if req.Message == "" {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("message is required"))
			return
		}
		id, err := s.followUps.Schedule(r.Context(), req.SessionID,
			time.Duration(req.DelayMinutes)*time.Minute, req.Message)
		if err != nil {
			if errors.Is(err, models.ErrEmptySessionID) || errors.Is(err, models.ErrInvalidDelay) {
				writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
				return
			}
			slog.Error("Failed to schedule follow-up", "error", err, "sessionID", req.SessionID)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to schedule follow-up"))
			return
		}
		writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Follow-up scheduled", map[string]string{"id": id}))

	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
	}
}

func (s *Server) followUpHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("followUpHandler invoked", "method", r.Method, "path", r.URL.Path)

	rest := strings.TrimPrefix(r.URL.Path, "/followups/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid follow-up ID"))
		return
	}

	switch {
	case r.Method == http.MethodDelete && action == "":
		if err := s.followUps.Cancel(id); err != nil {
			if errors.Is(err, models.ErrFollowUpNotFound) {
				writeJSONResponse(w, http.StatusNotFound, models.Error("Follow-up not found"))
				return
			}
			slog.Error("Failed to cancel follow-up", "error", err, "id", id)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to cancel follow-up"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Follow-up canceled", nil))

	case r.Method == http.MethodPost && action == "trigger":
		if err := s.followUps.Trigger(r.Context(), id); err != nil {
			if errors.Is(err, models.ErrFollowUpNotFound) {
				writeJSONResponse(w, http.StatusNotFound, models.Error("Follow-up not found"))
				return
			}
			slog.Error("Failed to trigger follow-up", "error", err, "id", id)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to trigger follow-up"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Follow-up triggered", nil))

	default:
		w.Header().Set("Allow", "POST, DELETE")
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
	}
}

func (s *Server) emergencyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("emergencyHandler invoked", "method", r.Method)

	switch r.Method {
	case http.MethodGet:
		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("session_id is required"))
			return
		}
		ec, err := s.flow.Context(sessionID)
		if err != nil {
			s.writeFlowError(w, err, sessionID)
			return
		}
		progress := s.flow.Progress(sessionID)
		writeJSONResponse(w, http.StatusOK, models.Success(map[string]any{
			"context":  ec,
			"progress": progress,
		}))

	case http.MethodPost:
		var req emergencyInitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("Invalid JSON in emergency init request", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		ec, err := s.flow.Initialize(req.SessionID, req.Symptoms, req.Location, req.PainLevel)
		if err != nil {
			s.writeFlowError(w, err, req.SessionID)
			return
		}
		writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Emergency flow started", ec))

	case http.MethodDelete:
		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("session_id is required"))
			return
		}
		if err := s.flow.End(sessionID); err != nil {
			s.writeFlowError(w, err, sessionID)
			return
		}
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Emergency flow ended", nil))

	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
	}
}

func (s *Server) emergencyActionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("emergencyActionHandler invoked", "method", r.Method)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		return
	}

	var req emergencyActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid JSON in emergency action request", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.SessionID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("session_id is required"))
		return
	}

	var (
		ec  models.EmergencyContext
		err error
	)
	switch req.Action {
	case "select_care_option":
		ec, err = s.flow.SelectCareOption(req.SessionID, req.OptionID)
	case "start_treatment":
		ec, err = s.flow.StartTreatment(r.Context(), req.SessionID)
	case "complete_treatment":
		ec, err = s.flow.CompleteTreatment(req.SessionID)
	case "move_to_step":
		ec, err = s.flow.MoveToStep(req.SessionID, req.Step)
	case "add_symptom":
		ec, err = s.flow.AddSymptom(req.SessionID, req.Symptom)
	case "update_location":
		ec, err = s.flow.UpdateLocation(req.SessionID, req.Location)
	case "update_pain_level":
		ec, err = s.flow.UpdatePainLevel(req.SessionID, req.PainLevel)
	case "update_severity":
		ec, err = s.flow.UpdateSeverity(req.SessionID, req.Severity)
	default:
		writeJSONResponse(w, http.StatusBadRequest, models.Error(fmt.Sprintf("Unknown action: %s", req.Action)))
		return
	}
	if err != nil {
		s.writeFlowError(w, err, req.SessionID)
		return
	}

	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage(
		"Step "+strconv.Itoa(ec.CurrentStep)+": "+emergency.StepDescription(ec.CurrentStep), ec))
}

func (s *Server) treatmentPrepareHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("treatmentPrepareHandler invoked", "method", r.Method)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		return
	}

	var req treatmentPrepareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid JSON in treatment prepare request", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.SessionID == "" || len(req.Messages) == 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("session_id and messages are required"))
		return
	}
	if req.TreatmentType == "" {
		req.TreatmentType = models.TreatmentConsultation
	}

	documents, err := s.store.ListDocuments(req.SessionID)
	if err != nil {
		slog.Error("Failed to load session documents", "error", err, "sessionID", req.SessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session data"))
		return
	}

	prep := s.preparer.Prepare(req.Messages, documents, req.TreatmentType, req.HasInsurance)
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]any{
		"preparation": prep,
		"formatted":   treatment.Format(prep),
	}))
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("chatHandler invoked", "method", r.Method)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid JSON in chat request", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.SessionID == "" || req.Message == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("session_id and message are required"))
		return
	}

	documents, err := s.store.ListDocuments(req.SessionID)
	if err != nil {
		slog.Error("Failed to load session documents", "error", err, "sessionID", req.SessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session data"))
		return
	}
	claims, err := s.store.ListClaims(req.SessionID)
	if err != nil {
		slog.Error("Failed to load session claims", "error", err, "sessionID", req.SessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session data"))
		return
	}

	assessment := s.triage.Assess(req.Message, documents, claims)
	resp := chatResponse{Assessment: &assessment}

	// An emergency-indicating message starts the four-step flow for the
	// session if one is not already active.
	if assessment.Detection.IsEmergency {
		if _, err := s.flow.Context(req.SessionID); errors.Is(err, models.ErrNoEmergencyContext) {
			ec, initErr := s.flow.Initialize(req.SessionID, assessment.Detection.Symptoms,
				assessment.Detection.Location, assessment.Detection.PainLevel)
			if initErr != nil {
				slog.Error("Failed to initialize emergency flow", "error", initErr, "sessionID", req.SessionID)
			} else {
				resp.Context = &ec
			}
		} else if err == nil {
			ec, _ := s.flow.Context(req.SessionID)
			resp.Context = &ec
		}
	}

	if s.genai != nil {
		reply, genErr := s.genai.GenerateReply(r.Context(), req.Message, documents)
		if genErr != nil {
			slog.Error("Failed to generate chat reply", "error", genErr, "sessionID", req.SessionID)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to generate reply"))
			return
		}
		resp.Reply = reply
	} else {
		resp.Reply = fallbackReply(assessment)
	}

	writeJSONResponse(w, http.StatusOK, models.Success(resp))
}

// fallbackReply builds a rule-based answer when no chat model is configured.
func fallbackReply(a triage.Assessment) string {
	var b strings.Builder
	if a.Detection.IsEmergency {
		b.WriteString("This sounds urgent. ")
		if a.Severity == models.SeverityCritical {
			b.WriteString("Please call 995 or go to the nearest A&E immediately. ")
		}
	}
	if len(a.Options) > 0 {
		top := a.Options[0]
		fmt.Fprintf(&b, "Nearest option: %s (%s), expected wait %s, %s.",
			top.FacilityName, top.Address, top.WaitTime, cost.FormatRange(top.CostEstimate))
	} else {
		b.WriteString("I could not find a facility for your area. Please share your location.")
	}
	return b.String()
}

// writeFlowError maps emergency flow errors onto HTTP status codes.
func (s *Server) writeFlowError(w http.ResponseWriter, err error, sessionID string) {
	switch {
	case errors.Is(err, models.ErrNoEmergencyContext):
		writeJSONResponse(w, http.StatusNotFound, models.Error("No active emergency for session"))
	case errors.Is(err, models.ErrEmptySessionID),
		errors.Is(err, models.ErrInvalidStep),
		errors.Is(err, models.ErrInvalidSeverity),
		errors.Is(err, models.ErrInvalidPainLevel):
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
	default:
		slog.Error("Emergency flow operation failed", "error", err, "sessionID", sessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Emergency flow operation failed"))
	}
}

func filterFacilities(in []models.Facility, keep func(models.Facility) bool) []models.Facility {
	out := make([]models.Facility, 0, len(in))
	for _, f := range in {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}
