package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/carecover/carecover/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// marshalStringList encodes a string slice as JSON text for storage, or nil
// when the slice is empty.
func marshalStringList(list []string) (interface{}, error) {
	if len(list) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal string list: %w", err)
	}
	return string(b), nil
}

// unmarshalStringList decodes JSON text back into a string slice. Empty or
// malformed text yields nil rather than an error.
func unmarshalStringList(text sql.NullString) []string {
	if !text.Valid || text.String == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(text.String), &list); err != nil {
		return nil
	}
	return list
}

// scanFollowUp scans a FollowUpSchedule from sql.Rows.
func scanFollowUp(rows *sql.Rows) (models.FollowUpSchedule, error) {
	var fu models.FollowUpSchedule
	err := rows.Scan(&fu.ID, &fu.SessionID, &fu.ScheduledTime, &fu.Message, &fu.Triggered, &fu.CreatedAt)
	if err != nil {
		return fu, fmt.Errorf("scan follow-up failed: %w", err)
	}
	return fu, nil
}

// scanFollowUpRow scans a FollowUpSchedule from a single sql.Row.
func scanFollowUpRow(row *sql.Row) (models.FollowUpSchedule, error) {
	var fu models.FollowUpSchedule
	err := row.Scan(&fu.ID, &fu.SessionID, &fu.ScheduledTime, &fu.Message, &fu.Triggered, &fu.CreatedAt)
	return fu, err
}

// scanClaim scans a ClaimRecord from sql.Rows.
func scanClaim(rows *sql.Rows) (models.ClaimRecord, error) {
	var c models.ClaimRecord
	var provider, description sql.NullString
	var claimType, status string
	err := rows.Scan(&c.ID, &c.SessionID, &c.Date, &c.Amount, &provider, &claimType, &status, &description)
	if err != nil {
		return c, fmt.Errorf("scan claim failed: %w", err)
	}
	c.Provider = provider.String
	c.Description = description.String
	c.Type = models.ClaimType(claimType)
	c.Status = models.ClaimStatus(status)
	return c, nil
}

// scanDocument scans an ExtractedDocument from sql.Rows.
func scanDocument(rows *sql.Rows) (models.ExtractedDocument, error) {
	var d models.ExtractedDocument
	var parentTitle, summary, keyPoints sql.NullString
	var category string
	err := rows.Scan(&d.ID, &d.SessionID, &d.FileName, &d.ExtractedText, &category, &parentTitle, &d.ExtractedAt, &summary, &keyPoints)
	if err != nil {
		return d, fmt.Errorf("scan document failed: %w", err)
	}
	d.Category = models.DocumentCategory(category)
	d.ParentTitle = parentTitle.String
	d.Summary = summary.String
	d.KeyPoints = unmarshalStringList(keyPoints)
	return d, nil
}

// scanEmergencyContextRow scans an EmergencyContext from a single sql.Row.
func scanEmergencyContextRow(row *sql.Row) (models.EmergencyContext, error) {
	var ctx models.EmergencyContext
	var severity string
	var careOption, symptoms, location sql.NullString
	var treatmentStart, followUp sql.NullTime
	var painLevel sql.NullInt64
	err := row.Scan(
		&ctx.SessionID, &ctx.CurrentStep, &severity, &careOption,
		&treatmentStart, &followUp, &symptoms, &location, &painLevel,
		&ctx.CreatedAt, &ctx.UpdatedAt)
	if err != nil {
		return ctx, err
	}
	ctx.SeverityLevel = models.SeverityLevel(severity)
	ctx.SelectedCareOption = careOption.String
	ctx.Location = location.String
	ctx.Symptoms = unmarshalStringList(symptoms)
	if treatmentStart.Valid {
		ctx.TreatmentStartTime = &treatmentStart.Time
	}
	if followUp.Valid {
		ctx.FollowUpScheduled = &followUp.Time
	}
	if painLevel.Valid {
		level := int(painLevel.Int64)
		ctx.PainLevel = &level
	}
	return ctx, nil
}
