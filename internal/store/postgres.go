// Package store provides storage backends for CareCover.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/carecover/carecover/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) AddFollowUp(fu models.FollowUpSchedule) error {
	_, err := s.db.Exec(
		`INSERT INTO follow_ups (id, session_id, scheduled_time, message, triggered, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		fu.ID, fu.SessionID, fu.ScheduledTime, fu.Message, fu.Triggered, fu.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore AddFollowUp failed", "error", err, "id", fu.ID)
		return fmt.Errorf("failed to insert follow-up %s: %w", fu.ID, err)
	}
	slog.Debug("PostgresStore AddFollowUp succeeded", "id", fu.ID, "sessionID", fu.SessionID)
	return nil
}

func (s *PostgresStore) GetFollowUp(id string) (*models.FollowUpSchedule, error) {
	row := s.db.QueryRow(
		`SELECT id, session_id, scheduled_time, message, triggered, created_at FROM follow_ups WHERE id = $1`, id)
	fu, err := scanFollowUpRow(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrFollowUpNotFound
	}
	if err != nil {
		slog.Error("PostgresStore GetFollowUp failed", "error", err, "id", id)
		return nil, err
	}
	return &fu, nil
}

func (s *PostgresStore) ListFollowUps(sessionID string) ([]models.FollowUpSchedule, error) {
	query := `SELECT id, session_id, scheduled_time, message, triggered, created_at FROM follow_ups`
	var args []interface{}
	if sessionID != "" {
		query += ` WHERE session_id = $1`
		args = append(args, sessionID)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore ListFollowUps query failed", "error", err)
		return nil, fmt.Errorf("failed to query follow-ups: %w", err)
	}
	defer rows.Close()

	var followUps []models.FollowUpSchedule
	for rows.Next() {
		fu, err := scanFollowUp(rows)
		if err != nil {
			slog.Error("PostgresStore ListFollowUps scan failed", "error", err)
			return nil, err
		}
		followUps = append(followUps, fu)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate follow-up rows: %w", err)
	}
	return followUps, nil
}

func (s *PostgresStore) MarkFollowUpTriggered(id string) error {
	res, err := s.db.Exec(`UPDATE follow_ups SET triggered = TRUE WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore MarkFollowUpTriggered failed", "error", err, "id", id)
		return fmt.Errorf("failed to mark follow-up %s triggered: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrFollowUpNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteFollowUp(id string) error {
	_, err := s.db.Exec(`DELETE FROM follow_ups WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore DeleteFollowUp failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete follow-up %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) AddClaim(c models.ClaimRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO claims (id, session_id, claim_date, amount, provider, claim_type, status, description) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.SessionID, c.Date, c.Amount, nilIfEmpty(c.Provider), string(c.Type), string(c.Status), nilIfEmpty(c.Description))
	if err != nil {
		slog.Error("PostgresStore AddClaim failed", "error", err, "id", c.ID)
		return fmt.Errorf("failed to insert claim %s: %w", c.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListClaims(sessionID string) ([]models.ClaimRecord, error) {
	query := `SELECT id, session_id, claim_date, amount, provider, claim_type, status, description FROM claims`
	var args []interface{}
	if sessionID != "" {
		query += ` WHERE session_id = $1`
		args = append(args, sessionID)
	}
	query += ` ORDER BY claim_date`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore ListClaims query failed", "error", err)
		return nil, fmt.Errorf("failed to query claims: %w", err)
	}
	defer rows.Close()

	var claims []models.ClaimRecord
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			slog.Error("PostgresStore ListClaims scan failed", "error", err)
			return nil, err
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate claim rows: %w", err)
	}
	return claims, nil
}

func (s *PostgresStore) AddDocument(d models.ExtractedDocument) error {
	keyPoints, err := marshalStringList(d.KeyPoints)
	if err != nil {
		slog.Error("PostgresStore AddDocument key points marshal failed", "error", err, "id", d.ID)
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO documents (id, session_id, file_name, extracted_text, category, parent_title, extracted_at, summary, key_points) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.SessionID, d.FileName, d.ExtractedText, string(d.Category), nilIfEmpty(d.ParentTitle), d.ExtractedAt, nilIfEmpty(d.Summary), keyPoints)
	if err != nil {
		slog.Error("PostgresStore AddDocument failed", "error", err, "id", d.ID)
		return fmt.Errorf("failed to insert document %s: %w", d.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListDocuments(sessionID string) ([]models.ExtractedDocument, error) {
	query := `SELECT id, session_id, file_name, extracted_text, category, parent_title, extracted_at, summary, key_points FROM documents`
	var args []interface{}
	if sessionID != "" {
		query += ` WHERE session_id = $1`
		args = append(args, sessionID)
	}
	query += ` ORDER BY extracted_at`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore ListDocuments query failed", "error", err)
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var documents []models.ExtractedDocument
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			slog.Error("PostgresStore ListDocuments scan failed", "error", err)
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
func (s *PostgresStore) SaveEmergencyContext(ctx models.EmergencyContext) error {
	symptoms, err := marshalStringList(ctx.Symptoms)
	if err != nil {
		slog.Error("PostgresStore SaveEmergencyContext symptoms marshal failed", "error", err, "sessionID", ctx.SessionID)
		return err
	}
	query := `
		INSERT INTO emergency_contexts
		(session_id, current_step, severity_level, selected_care_option, treatment_start_time, follow_up_scheduled, symptoms, location, pain_level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (session_id) DO UPDATE SET
			current_step = EXCLUDED.current_step,
			severity_level = EXCLUDED.severity_level,
			selected_care_option = EXCLUDED.selected_care_option,
			treatment_start_time = EXCLUDED.treatment_start_time,
			follow_up_scheduled = EXCLUDED.follow_up_scheduled,
			symptoms = EXCLUDED.symptoms,
			location = EXCLUDED.location,
			pain_level = EXCLUDED.pain_level,
			updated_at = EXCLUDED.updated_at`
	_, err = s.db.Exec(query,
		ctx.SessionID, ctx.CurrentStep, string(ctx.SeverityLevel), nilIfEmpty(ctx.SelectedCareOption),
		ctx.TreatmentStartTime, ctx.FollowUpScheduled, symptoms, nilIfEmpty(ctx.Location), ctx.PainLevel,
		ctx.CreatedAt, ctx.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveEmergencyContext failed", "error", err, "sessionID", ctx.SessionID)
		return err
	}
	slog.Debug("PostgresStore SaveEmergencyContext succeeded", "sessionID", ctx.SessionID, "step", ctx.CurrentStep)
	return nil
}

// GetEmergencyContext retrieves the emergency context for a session.
func (s *PostgresStore) GetEmergencyContext(sessionID string) (models.EmergencyContext, error) {
	row := s.db.QueryRow(
		`SELECT session_id, current_step, severity_level, selected_care_option, treatment_start_time, follow_up_scheduled, symptoms, location, pain_level, created_at, updated_at
		 FROM emergency_contexts WHERE session_id = $1`, sessionID)
	ctx, err := scanEmergencyContextRow(row)
	if err == sql.ErrNoRows {
		return models.EmergencyContext{}, models.ErrNoEmergencyContext
	}
	if err != nil {
		slog.Error("PostgresStore GetEmergencyContext failed", "error", err, "sessionID", sessionID)
		return models.EmergencyContext{}, err
	}
	return ctx, nil
}

// DeleteEmergencyContext removes the emergency context for a session.
func (s *PostgresStore) DeleteEmergencyContext(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM emergency_contexts WHERE session_id = $1`, sessionID)
	if err != nil {
		slog.Error("PostgresStore DeleteEmergencyContext failed", "error", err, "sessionID", sessionID)
		return err
	}
	return nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
