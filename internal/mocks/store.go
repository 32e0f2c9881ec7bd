// Package mocks contains hand-written in-memory doubles for the engine's
// collaborators. They are safe for concurrent use and need no codegen.
package mocks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/FilipeAphrody/sentinel-trust/internal/domain"
	"github.com/FilipeAphrody/sentinel-trust/internal/usecase"
)

var (
	_ domain.PrincipalStore   = (*Store)(nil)
	_ domain.CredentialStore  = (*Store)(nil)
	_ domain.Registry         = (*Store)(nil)
	_ domain.AuditLogger      = (*Store)(nil)
	_ domain.OneTimeCodeStore = (*CodeStore)(nil)
	_ usecase.CodeSender      = (*RecordingSender)(nil)
)

// AuditEvent is one recorded LogSecurityEvent call.
type AuditEvent struct {
	PrincipalID string
	Type        string
	Metadata    map[string]interface{}
}

// Store keeps principals, credentials and audit events in memory.
// One-time code lookups consult Codes first when it is set.
type Store struct {
	Codes *CodeStore

	// Err, when set, is returned by every lookup to simulate an outage.
	Err error

	mu          sync.RWMutex
	principals  map[string]*domain.Principal
	credentials map[string]map[domain.CredentialType]domain.Credential
	events      []AuditEvent
}

func NewStore() *Store {
	return &Store{
		principals:  make(map[string]*domain.Principal),
		credentials: make(map[string]map[domain.CredentialType]domain.Credential),
	}
}

// Add seeds a principal with the given credentials.
func (s *Store) Add(p *domain.Principal, creds ...domain.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.principals[p.ID] = &cp
	for _, c := range creds {
		s.putCredential(p.ID, c)
	}
}

func (s *Store) FindByIdentifier(_ context.Context, identifier string) (*domain.Principal, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.principals {
		if p.Identifier == identifier {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) FindByID(_ context.Context, id string) (*domain.Principal, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.principals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) FindByPrincipalAndType(ctx context.Context, principalID string, t domain.CredentialType) (domain.Credential, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if t == domain.CredentialOneTimeCode && s.Codes != nil {
		if code, ok := s.Codes.Pending(principalID); ok {
			return code, nil
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credentials[principalID][t]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (s *Store) CreatePrincipal(_ context.Context, p *domain.Principal, initial domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.principals {
		if existing.Identifier == p.Identifier {
			return domain.ErrAlreadyExists
		}
	}
	cp := *p
	s.principals[p.ID] = &cp
	if initial != nil {
		s.putCredential(p.ID, initial)
	}
	return nil
}

func (s *Store) SaveCredential(_ context.Context, principalID string, c domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.principals[principalID]; !ok {
		return domain.ErrNotFound
	}
	s.putCredential(principalID, c)
	return nil
}

func (s *Store) SetMFAEnabled(_ context.Context, principalID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.principals[principalID]
	if !ok {
		return domain.ErrNotFound
	}
	p.MFAEnabled = enabled
	p.UpdatedAt = time.Now()
	return nil
}

// SetActive flips the active flag of a seeded principal.
func (s *Store) SetActive(principalID string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.principals[principalID]; ok {
		p.Active = active
	}
}

func (s *Store) LogSecurityEvent(_ context.Context, principalID, eventType string, metadata map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, AuditEvent{PrincipalID: principalID, Type: eventType, Metadata: metadata})
	return nil
}

// Events returns the recorded audit events in order.
func (s *Store) Events() []AuditEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AuditEvent(nil), s.events...)
}

// EventTypes returns just the event type of every recorded event.
func (s *Store) EventTypes() []string {
	events := s.Events()
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

func (s *Store) putCredential(principalID string, c domain.Credential) {
	if s.credentials[principalID] == nil {
		s.credentials[principalID] = make(map[domain.CredentialType]domain.Credential)
	}
	s.credentials[principalID][c.Type()] = c
}

// CodeStore keeps delivered codes with their expiry.
type CodeStore struct {
	Now func() time.Time

	mu    sync.Mutex
	codes map[string]pendingCode
}

type pendingCode struct {
	cred      domain.OneTimeCodeCredential
	expiresAt time.Time
}

func NewCodeStore() *CodeStore {
	return &CodeStore{Now: time.Now, codes: make(map[string]pendingCode)}
}

func (c *CodeStore) Issue(_ context.Context, principalID string, code domain.OneTimeCodeCredential, ttl time.Duration) error {
	if code.Code == "" {
		return errors.New("empty code")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[principalID] = pendingCode{cred: code, expiresAt: c.Now().Add(ttl)}
	return nil
}

func (c *CodeStore) Consume(_ context.Context, principalID, code string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.codes[principalID]
	if !ok || c.Now().After(p.expiresAt) {
		return false, nil
	}
	delete(c.codes, principalID)
	return p.cred.Code == code, nil
}

// Pending returns the unexpired code for principalID.
func (c *CodeStore) Pending(principalID string) (domain.OneTimeCodeCredential, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.codes[principalID]
	if !ok || c.Now().After(p.expiresAt) {
		return domain.OneTimeCodeCredential{}, false
	}
	return p.cred, true
}

// SentCode is one recorded delivery.
type SentCode struct {
	PrincipalID string
	Channel     domain.DeliveryChannel
	Code        string
}

// RecordingSender captures codes instead of delivering them.
type RecordingSender struct {
	Err error

	mu   sync.Mutex
	sent []SentCode
}

func (r *RecordingSender) Send(_ context.Context, principal *domain.Principal, channel domain.DeliveryChannel, code string) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, SentCode{PrincipalID: principal.ID, Channel: channel, Code: code})
	return nil
}

// Last returns the most recent delivery.
func (r *RecordingSender) Last() (SentCode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return SentCode{}, false
	}
	return r.sent[len(r.sent)-1], true
}
