package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/storefront-api/internal/domain"
)

// OTPStore is an in-process OTP record store for local development and tests.
// Records are copied in and out so callers never share state with the store.
type OTPStore struct {
	mu      sync.Mutex
	records map[string]domain.OTPRecord
}

func NewOTPStore() *OTPStore {
	return &OTPStore{records: make(map[string]domain.OTPRecord)}
}

func (s *OTPStore) Create(_ context.Context, r *domain.OTPRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[r.SessionID]; ok {
		return fmt.Errorf("otp session %s exists: %w", r.SessionID, domain.ErrConflict)
	}
	s.records[r.SessionID] = *r
	return nil
}

func (s *OTPStore) Get(_ context.Context, sessionID string) (*domain.OTPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[sessionID]
	if !ok {
		return nil, fmt.Errorf("otp session not found: %w", domain.ErrNotFound)
	}
	return &r, nil
}

func (s *OTPStore) DeleteByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.records {
		if r.UserID == userID {
			delete(s.records, id)
		}
	}
	return nil
}

func (s *OTPStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sessionID)
	return nil
}

func (s *OTPStore) IncrementAttempts(_ context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[sessionID]
	if !ok {
		return 0, fmt.Errorf("otp session not found: %w", domain.ErrNotFound)
	}
	r.Attempts++
	s.records[sessionID] = r
	return r.Attempts, nil
}

func (s *OTPStore) MarkVerified(_ context.Context, sessionID string, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[sessionID]
	if !ok {
		return fmt.Errorf("otp session not found: %w", domain.ErrNotFound)
	}
	if r.Verified {
		return fmt.Errorf("otp session already verified: %w", domain.ErrConflict)
	}
	r.Verified = true
	r.VerifiedAt = at
	s.records[sessionID] = r
	return nil
}

// Len reports the number of stored records.
func (s *OTPStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
