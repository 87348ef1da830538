// Package auth contains simple hand-written test doubles for identity ports.
// These are lightweight and suitable for unit tests without codegen.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domainauth "github.com/target/convenios-ui/internal/domain/auth"
	"github.com/target/convenios-ui/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider = (*MemoryProvider)(nil)
	_ ports.UserRecordStore  = (*MemoryUserRecords)(nil)
	_ ports.RoleMapper       = (*StaticRoleMapper)(nil)
)

type memoryUser struct {
	id       string
	password string
}

// MemoryProvider is an in-memory identity provider with deterministic tokens.
type MemoryProvider struct {
	// TTL sets session expiry relative to Now. Zero means sessions never expire.
	TTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
	// Err, when set, is returned by every call that talks to the provider.
	Err error
	// Records, when set, makes SignUp write the user record together with the credential.
	Records *MemoryUserRecords

	mu          sync.Mutex
	users       map[string]memoryUser
	sessions    map[string]domainauth.ProviderSession
	subscribers map[int]func(domainauth.ProviderEvent)
	nextSub     int
	seq         int
}

// NewMemoryProvider creates an empty MemoryProvider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		users:       make(map[string]memoryUser),
		sessions:    make(map[string]domainauth.ProviderSession),
		subscribers: make(map[int]func(domainauth.ProviderEvent)),
	}
}

// AddUser registers a credential without opening a session.
func (p *MemoryProvider) AddUser(id, email, password string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[strings.ToLower(email)] = memoryUser{id: id, password: password}
}

// Sessions returns the number of live sessions.
func (p *MemoryProvider) Sessions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

func (p *MemoryProvider) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *MemoryProvider) GetSession(_ context.Context, token string) (domainauth.ProviderSession, error) {
	if p.Err != nil {
		return domainauth.ProviderSession{}, p.Err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	sess, ok := p.sessions[token]
	if !ok {
		return domainauth.ProviderSession{}, ports.ErrSessionNotFound
	}
	return sess, nil
}

func (p *MemoryProvider) SignInWithPassword(_ context.Context, email, password string) (domainauth.ProviderSession, error) {
	if p.Err != nil {
		return domainauth.ProviderSession{}, p.Err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[strings.ToLower(email)]
	if !ok || u.password != password {
		return domainauth.ProviderSession{}, ports.ErrInvalidCredentials
	}
	return p.openLocked(u.id, email), nil
}

func (p *MemoryProvider) SignUp(_ context.Context, in ports.SignUpInput) (domainauth.ProviderSession, error) {
	if p.Err != nil {
		return domainauth.ProviderSession{}, p.Err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	key := strings.ToLower(in.Email)
	if _, exists := p.users[key]; exists {
		return domainauth.ProviderSession{}, ports.ErrDuplicateEmail
	}
	p.seq++
	id := fmt.Sprintf("user-%d", p.seq)
	if p.Records != nil {
		rec := domainauth.UserRecord{ID: id, Name: in.Metadata.Name, Email: key, RoleString: in.RoleString}
		if err := p.Records.put(rec); err != nil {
			return domainauth.ProviderSession{}, err
		}
	}
	p.users[key] = memoryUser{id: id, password: in.Password}
	return p.openLocked(id, in.Email), nil
}

func (p *MemoryProvider) openLocked(userID, email string) domainauth.ProviderSession {
	p.seq++
	sess := domainauth.ProviderSession{
		Token:  fmt.Sprintf("token-%d", p.seq),
		UserID: userID,
		Email:  email,
	}
	if p.TTL > 0 {
		sess.ExpiresAt = p.now().Add(p.TTL)
	}
	p.sessions[sess.Token] = sess
	return sess
}

// SignOut drops the session and emits SIGNED_OUT for it.
func (p *MemoryProvider) SignOut(_ context.Context, token string) error {
	if p.Err != nil {
		return p.Err
	}
	p.mu.Lock()
	sess, ok := p.sessions[token]
	delete(p.sessions, token)
	p.mu.Unlock()

	if ok {
		p.Emit(domainauth.ProviderEvent{Kind: domainauth.EventSignedOut, Session: sess})
	}
	return nil
}

func (p *MemoryProvider) OnAuthStateChange(_ context.Context, fn func(domainauth.ProviderEvent)) (func(), error) {
	if p.Err != nil {
		return nil, p.Err
	}
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subscribers[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subscribers, id)
		p.mu.Unlock()
	}, nil
}

// Subscribers returns the number of active subscriptions.
func (p *MemoryProvider) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subscribers)
}

// Emit delivers ev synchronously to every subscriber.
func (p *MemoryProvider) Emit(ev domainauth.ProviderEvent) {
	p.mu.Lock()
	fns := make([]func(domainauth.ProviderEvent), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// MemoryUserRecords is an in-memory user record store for unit tests.
type MemoryUserRecords struct {
	// GetErr, when set, is returned by GetUserRecord.
	GetErr error
	// CreateErr, when set, is returned by CreateUserRecord.
	CreateErr error

	mu      sync.Mutex
	records map[string]domainauth.UserRecord
}

// NewMemoryUserRecords creates a store seeded with recs.
func NewMemoryUserRecords(recs ...domainauth.UserRecord) *MemoryUserRecords {
	m := &MemoryUserRecords{records: make(map[string]domainauth.UserRecord)}
	for _, r := range recs {
		m.records[r.ID] = r
	}
	return m
}

func (m *MemoryUserRecords) GetUserRecord(_ context.Context, id string) (domainauth.UserRecord, error) {
	if m.GetErr != nil {
		return domainauth.UserRecord{}, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return domainauth.UserRecord{}, ports.ErrRecordNotFound
	}
	return rec, nil
}

func (m *MemoryUserRecords) CreateUserRecord(_ context.Context, rec domainauth.UserRecord) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	return m.put(rec)
}

func (m *MemoryUserRecords) put(rec domainauth.UserRecord) error {
	if rec.ID == "" {
		return errors.New("user record ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if strings.EqualFold(r.Email, rec.Email) {
			return ports.ErrDuplicateEmail
		}
	}
	m.records[rec.ID] = rec
	return nil
}

// StaticRoleMapper maps role strings by exact match. Unmatched strings map to standard.
type StaticRoleMapper struct {
	AdminRole      string
	ManagerialRole string
	StandardRole   string
}

// DefaultRoleMapper uses the back-office role vocabulary.
func DefaultRoleMapper() StaticRoleMapper {
	return StaticRoleMapper{AdminRole: "admin", ManagerialRole: "gerente", StandardRole: "padrao"}
}

func (m StaticRoleMapper) Map(roleString string) domainauth.Role {
	switch {
	case m.AdminRole != "" && roleString == m.AdminRole:
		return domainauth.RoleAdmin
	case m.ManagerialRole != "" && roleString == m.ManagerialRole:
		return domainauth.RoleManagerial
	default:
		return domainauth.RoleStandard
	}
}

func (m StaticRoleMapper) RoleString(role domainauth.Role) string {
	switch role {
	case domainauth.RoleAdmin:
		return m.AdminRole
	case domainauth.RoleManagerial:
		return m.ManagerialRole
	default:
		return m.StandardRole
	}
}
