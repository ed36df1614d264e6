// Package store provides storage backends for CareCover.
//
// It includes an in-memory store for tests and single-process use, plus
// SQLite and PostgreSQL backends for persistent deployments.
package store

import (
	"sort"
	"strings"
	"sync"

	"github.com/carecover/carecover/internal/models"
)

// Opts holds configuration for store backends.
type Opts struct {
	DSN string
}

// Option configures store creation.
type Option func(*Opts)

// WithDSN sets the database connection string (file path for SQLite).
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite". PostgreSQL DSNs
// use URL or key=value form; anything else is treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.Contains(dsn, "postgres://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// Store is the persistence surface the rest of the application depends on.
// Follow-ups are append-only apart from the one-way triggered flag; claims
// and documents are read-only to the estimators that consume them.
type Store interface {
	AddFollowUp(fu models.FollowUpSchedule) error
	GetFollowUp(id string) (*models.FollowUpSchedule, error)
	// ListFollowUps returns follow-ups for one session, or all sessions
	// when sessionID is empty.
	ListFollowUps(sessionID string) ([]models.FollowUpSchedule, error)
	MarkFollowUpTriggered(id string) error
	DeleteFollowUp(id string) error

	AddClaim(c models.ClaimRecord) error
	ListClaims(sessionID string) ([]models.ClaimRecord, error)

	AddDocument(d models.ExtractedDocument) error
	ListDocuments(sessionID string) ([]models.ExtractedDocument, error)

	SaveEmergencyContext(ctx models.EmergencyContext) error
	GetEmergencyContext(sessionID string) (models.EmergencyContext, error)
	DeleteEmergencyContext(sessionID string) error

	Close() error
}

// InMemoryStore keeps everything in process memory, guarded by a RWMutex.
type InMemoryStore struct {
	mu        sync.RWMutex
	followUps map[string]models.FollowUpSchedule
	claims    []models.ClaimRecord
	documents []models.ExtractedDocument
	contexts  map[string]models.EmergencyContext
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		followUps: make(map[string]models.FollowUpSchedule),
		contexts:  make(map[string]models.EmergencyContext),
	}
}

func (s *InMemoryStore) AddFollowUp(fu models.FollowUpSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.followUps[fu.ID] = fu
	return nil
}

func (s *InMemoryStore) GetFollowUp(id string) (*models.FollowUpSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fu, ok := s.followUps[id]
	if !ok {
		return nil, models.ErrFollowUpNotFound
	}
	return &fu, nil
}

func (s *InMemoryStore) ListFollowUps(sessionID string) ([]models.FollowUpSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.FollowUpSchedule
	for _, fu := range s.followUps {
		if sessionID == "" || fu.SessionID == sessionID {
			out = append(out, fu)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) MarkFollowUpTriggered(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fu, ok := s.followUps[id]
	if !ok {
		return models.ErrFollowUpNotFound
	}
	fu.Triggered = true
	s.followUps[id] = fu
	return nil
}

func (s *InMemoryStore) DeleteFollowUp(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.followUps, id)
	return nil
}

func (s *InMemoryStore) AddClaim(c models.ClaimRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims = append(s.claims, c)
	return nil
}

func (s *InMemoryStore) ListClaims(sessionID string) ([]models.ClaimRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ClaimRecord
	for _, c := range s.claims {
		if sessionID == "" || c.SessionID == sessionID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *InMemoryStore) AddDocument(d models.ExtractedDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = append(s.documents, d)
	return nil
}

func (s *InMemoryStore) ListDocuments(sessionID string) ([]models.ExtractedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ExtractedDocument
	for _, d := range s.documents {
		if sessionID == "" || d.SessionID == sessionID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *InMemoryStore) SaveEmergencyContext(ctx models.EmergencyContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[ctx.SessionID] = ctx
	return nil
}

func (s *InMemoryStore) GetEmergencyContext(sessionID string) (models.EmergencyContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctx, ok := s.contexts[sessionID]
	if !ok {
		return models.EmergencyContext{}, models.ErrNoEmergencyContext
	}
	return ctx, nil
}

func (s *InMemoryStore) DeleteEmergencyContext(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, sessionID)
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
