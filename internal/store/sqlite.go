// Package store provides storage backends for CareCover.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/carecover/carecover/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AddFollowUp(fu models.FollowUpSchedule) error {
	_, err := s.db.Exec(
		`INSERT INTO follow_ups (id, session_id, scheduled_time, message, triggered, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		fu.ID, fu.SessionID, fu.ScheduledTime, fu.Message, fu.Triggered, fu.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore AddFollowUp failed", "error", err, "id", fu.ID)
		return fmt.Errorf("failed to insert follow-up %s: %w", fu.ID, err)
	}
	slog.Debug("SQLiteStore AddFollowUp succeeded", "id", fu.ID, "sessionID", fu.SessionID)
	return nil
}

func (s *SQLiteStore) GetFollowUp(id string) (*models.FollowUpSchedule, error) {
	row := s.db.QueryRow(
		`SELECT id, session_id, scheduled_time, message, triggered, created_at FROM follow_ups WHERE id = ?`, id)
	fu, err := scanFollowUpRow(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrFollowUpNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetFollowUp failed", "error", err, "id", id)
		return nil, err
	}
	return &fu, nil
}

func (s *SQLiteStore) ListFollowUps(sessionID string) ([]models.FollowUpSchedule, error) {
	query := `SELECT id, session_id, scheduled_time, message, triggered, created_at FROM follow_ups`
	var args []interface{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("SQLiteStore ListFollowUps query failed", "error", err)
		return nil, fmt.Errorf("failed to query follow-ups: %w", err)
	}
	defer rows.Close()

	var followUps []models.FollowUpSchedule
	for rows.Next() {
		fu, err := scanFollowUp(rows)
		if err != nil {
			slog.Error("SQLiteStore ListFollowUps scan failed", "error", err)
			return nil, err
		}
		followUps = append(followUps, fu)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate follow-up rows: %w", err)
	}
	slog.Debug("SQLiteStore ListFollowUps succeeded", "count", len(followUps))
	return followUps, nil
}

func (s *SQLiteStore) MarkFollowUpTriggered(id string) error {
	res, err := s.db.Exec(`UPDATE follow_ups SET triggered = 1 WHERE id = ?`, id)
	if err != nil {
		slog.Error("SQLiteStore MarkFollowUpTriggered failed", "error", err, "id", id)
		return fmt.Errorf("failed to mark follow-up %s triggered: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrFollowUpNotFound
	}
	slog.Debug("SQLiteStore MarkFollowUpTriggered succeeded", "id", id)
	return nil
}

func (s *SQLiteStore) DeleteFollowUp(id string) error {
	_, err := s.db.Exec(`DELETE FROM follow_ups WHERE id = ?`, id)
	if err != nil {
		slog.Error("SQLiteStore DeleteFollowUp failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete follow-up %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) AddClaim(c models.ClaimRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO claims (id, session_id, claim_date, amount, provider, claim_type, status, description) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.SessionID, c.Date, c.Amount, nilIfEmpty(c.Provider), string(c.Type), string(c.Status), nilIfEmpty(c.Description))
	if err != nil {
		slog.Error("SQLiteStore AddClaim failed", "error", err, "id", c.ID)
		return fmt.Errorf("failed to insert claim %s: %w", c.ID, err)
	}
	slog.Debug("SQLiteStore AddClaim succeeded", "id", c.ID, "sessionID", c.SessionID)
	return nil
}

func (s *SQLiteStore) ListClaims(sessionID string) ([]models.ClaimRecord, error) {
	query := `SELECT id, session_id, claim_date, amount, provider, claim_type, status, description FROM claims`
	var args []interface{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY claim_date`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("SQLiteStore ListClaims query failed", "error", err)
		return nil, fmt.Errorf("failed to query claims: %w", err)
	}
	defer rows.Close()

	var claims []models.ClaimRecord
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			slog.Error("SQLiteStore ListClaims scan failed", "error", err)
			return nil, err
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate claim rows: %w", err)
	}
	return claims, nil
}

func (s *SQLiteStore) AddDocument(d models.ExtractedDocument) error {
	keyPoints, err := marshalStringList(d.KeyPoints)
	if err != nil {
		slog.Error("SQLiteStore AddDocument key points marshal failed", "error", err, "id", d.ID)
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO documents (id, session_id, file_name, extracted_text, category, parent_title, extracted_at, summary, key_points) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.SessionID, d.FileName, d.ExtractedText, string(d.Category), nilIfEmpty(d.ParentTitle), d.ExtractedAt, nilIfEmpty(d.Summary), keyPoints)
	if err != nil {
		slog.Error("SQLiteStore AddDocument failed", "error", err, "id", d.ID)
		return fmt.Errorf("failed to insert document %s: %w", d.ID, err)
	}
	slog.Debug("SQLiteStore AddDocument succeeded", "id", d.ID, "sessionID", d.SessionID)
	return nil
}

func (s *SQLiteStore) ListDocuments(sessionID string) ([]models.ExtractedDocument, error) {
	query := `SELECT id, session_id, file_name, extracted_text, category, parent_title, extracted_at, summary, key_points FROM documents`
	var args []interface{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY extracted_at`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("SQLiteStore ListDocuments query failed", "error", err)
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var documents []models.ExtractedDocument
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			slog.Error("SQLiteStore ListDocuments scan failed", "error", err)
			return nil, err
		}
		documents = append(documents, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate document rows: %w", err)
	}
	return documents, nil
}

// SaveEmergencyContext stores or updates the emergency context for a session.
func (s *SQLiteStore) SaveEmergencyContext(ctx models.EmergencyContext) error {
	symptoms, err := marshalStringList(ctx.Symptoms)
	if err != nil {
		slog.Error("SQLiteStore SaveEmergencyContext symptoms marshal failed", "error", err, "sessionID", ctx.SessionID)
		return err
	}
	query := `
		INSERT OR REPLACE INTO emergency_contexts
		(session_id, current_step, severity_level, selected_care_option, treatment_start_time, follow_up_scheduled, symptoms, location, pain_level, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.Exec(query,
		ctx.SessionID, ctx.CurrentStep, string(ctx.SeverityLevel), nilIfEmpty(ctx.SelectedCareOption),
		ctx.TreatmentStartTime, ctx.FollowUpScheduled, symptoms, nilIfEmpty(ctx.Location), ctx.PainLevel,
		ctx.CreatedAt, ctx.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveEmergencyContext failed", "error", err, "sessionID", ctx.SessionID)
		return err
	}
	slog.Debug("SQLiteStore SaveEmergencyContext succeeded", "sessionID", ctx.SessionID, "step", ctx.CurrentStep)
	return nil
}

// GetEmergencyContext retrieves the emergency context for a session.
func (s *SQLiteStore) GetEmergencyContext(sessionID string) (models.EmergencyContext, error) {
	row := s.db.QueryRow(
		`SELECT session_id, current_step, severity_level, selected_care_option, treatment_start_time, follow_up_scheduled, symptoms, location, pain_level, created_at, updated_at
		 FROM emergency_contexts WHERE session_id = ?`, sessionID)
	ctx, err := scanEmergencyContextRow(row)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetEmergencyContext not found", "sessionID", sessionID)
		return models.EmergencyContext{}, models.ErrNoEmergencyContext
	}
	if err != nil {
		slog.Error("SQLiteStore GetEmergencyContext failed", "error", err, "sessionID", sessionID)
		return models.EmergencyContext{}, err
	}
	return ctx, nil
}

// DeleteEmergencyContext removes the emergency context for a session.
func (s *SQLiteStore) DeleteEmergencyContext(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM emergency_contexts WHERE session_id = ?`, sessionID)
	if err != nil {
		slog.Error("SQLiteStore DeleteEmergencyContext failed", "error", err, "sessionID", sessionID)
		return err
	}
	slog.Debug("SQLiteStore DeleteEmergencyContext succeeded", "sessionID", sessionID)
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
