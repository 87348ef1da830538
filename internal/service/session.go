package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	domainauth "github.com/target/convenios-ui/internal/domain/auth"
	"github.com/target/convenios-ui/internal/ports"
)

// SessionMachine owns the session state of one client.
//
// State moves Resolving -> {Authenticated, Anonymous}; Resolving is never re-entered.
// Logout and an effective SIGNED_OUT advance the generation so that results of calls
// started earlier are discarded instead of overwriting the newer state.
type SessionMachine struct {
	svc *AuthService

	mu          sync.Mutex
	state       domainauth.SessionState
	token       string
	userID      string
	generation  uint64
	watchers    map[int]func(domainauth.SessionState)
	nextWatcher int
	unsubscribe func()
}

func newSessionMachine(svc *AuthService, token string) *SessionMachine {
	return &SessionMachine{
		svc:      svc,
		state:    domainauth.SessionState{Resolving: true},
		token:    token,
		watchers: make(map[int]func(domainauth.SessionState)),
	}
}

// Init subscribes to provider events and runs the initial session check.
// The check runs even when the subscription fails so the machine always leaves Resolving.
func (m *SessionMachine) Init(ctx context.Context) error {
	unsubscribe, err := m.svc.provider.OnAuthStateChange(ctx, func(ev domainauth.ProviderEvent) {
		m.OnProviderEvent(ctx, ev)
	})
	if err == nil {
		m.mu.Lock()
		m.unsubscribe = unsubscribe
		m.mu.Unlock()
	}
	m.CheckExistingSession(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to auth state changes: %w", err)
	}
	return nil
}

// Dispose stops event delivery and drops all watchers. It is safe to call more than once.
func (m *SessionMachine) Dispose() {
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	clear(m.watchers)
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// State returns a snapshot of the current session.
func (m *SessionMachine) State() domainauth.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneState(m.state)
}

// Token returns the provider session token currently held, or "" when anonymous.
func (m *SessionMachine) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// IsAuthorized reports whether the current identity passes a check for any of required.
func (m *SessionMachine) IsAuthorized(required ...domainauth.Role) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domainauth.Authorize(m.state, required...)
}

// Watch registers fn to be called after every state change. The returned func removes it.
func (m *SessionMachine) Watch(fn func(domainauth.SessionState)) (cancel func()) {
	m.mu.Lock()
	id := m.nextWatcher
	m.nextWatcher++
	m.watchers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}
}

// CheckExistingSession resolves the held token against the provider.
// Every failure degrades to Anonymous; Resolving is cleared whatever the outcome.
func (m *SessionMachine) CheckExistingSession(ctx context.Context) domainauth.SessionState {
	gen, token := m.begin()
	if token == "" {
		m.settleAnonymous(gen)
		return m.State()
	}

	sess, err := m.svc.provider.GetSession(ctx, token)
	if err != nil {
		if !errors.Is(err, ports.ErrSessionNotFound) {
			m.svc.logger.WarnContext(ctx, "session check failed", "error", err)
		}
		m.settleAnonymous(gen)
		return m.State()
	}
	if sess.Expired(m.svc.timeProvider.Now()) {
		m.settleAnonymous(gen)
		return m.State()
	}

	m.resolveAndSettle(ctx, gen, sess)
	return m.State()
}

// Login verifies credentials and, once the identity record is resolved, authenticates the session.
// Failures return a *domainauth.AuthError and leave the state untouched.
func (m *SessionMachine) Login(ctx context.Context, email, password string) (domainauth.Identity, error) {
	gen, _ := m.begin()

	sess, err := m.svc.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		if errors.Is(err, ports.ErrInvalidCredentials) {
			return domainauth.Identity{}, domainauth.Fail(domainauth.ReasonInvalidCredentials, err)
		}
		return domainauth.Identity{}, domainauth.Fail(domainauth.ReasonProviderUnavailable, err)
	}

	id, err := m.svc.resolveIdentity(ctx, sess.UserID)
	if err != nil {
		m.discardProviderSession(ctx, sess.Token)
		return domainauth.Identity{}, domainauth.Fail(domainauth.ReasonLookupFailed, err)
	}

	if !m.settleAuthenticated(gen, settlement{sess: sess, identity: id, supersede: true}) {
		m.discardProviderSession(ctx, sess.Token)
		return domainauth.Identity{}, domainauth.ErrSuperseded
	}
	return id, nil
}

// Register creates a provider credential and a standard-role identity record, then authenticates.
// Providers that own the user record write both in one step; for the rest the record is written here.
func (m *SessionMachine) Register(ctx context.Context, in RegisterInput) (domainauth.Identity, error) {
	gen, _ := m.begin()
	email := domainauth.NormalizeEmail(in.Email)
	role := m.svc.roles.RoleString(domainauth.RoleStandard)

	sess, err := m.svc.provider.SignUp(ctx, ports.SignUpInput{
		Email:      email,
		Password:   in.Password,
		Metadata:   ports.SignUpMetadata{Name: in.Name},
		RoleString: role,
	})
	if errors.Is(err, ports.ErrDuplicateEmail) {
		sess, err = m.reclaimSignUp(ctx, email, in.Password, err)
	}
	if err != nil {
		if errors.Is(err, ports.ErrDuplicateEmail) {
			return domainauth.Identity{}, domainauth.Fail(domainauth.ReasonDuplicateEmail, err)
		}
		return domainauth.Identity{}, domainauth.Fail(domainauth.ReasonProviderUnavailable, err)
	}

	rec, err := m.svc.records.GetUserRecord(ctx, sess.UserID)
	switch {
	case err == nil:
	case errors.Is(err, ports.ErrRecordNotFound):
		rec = domainauth.UserRecord{ID: sess.UserID, Name: in.Name, Email: email, RoleString: role}
		if err := m.svc.records.CreateUserRecord(ctx, rec); err != nil {
			m.discardProviderSession(ctx, sess.Token)
			if errors.Is(err, ports.ErrDuplicateEmail) {
				return domainauth.Identity{}, domainauth.Fail(domainauth.ReasonDuplicateEmail, err)
			}
			return domainauth.Identity{}, domainauth.Fail(domainauth.ReasonLookupFailed, fmt.Errorf("create user record: %w", err))
		}
	default:
		m.discardProviderSession(ctx, sess.Token)
		return domainauth.Identity{}, domainauth.Fail(domainauth.ReasonLookupFailed, fmt.Errorf("get user record: %w", err))
	}

	id := m.svc.identityFromRecord(rec)
	if !m.settleAuthenticated(gen, settlement{sess: sess, identity: id, supersede: true}) {
		m.discardProviderSession(ctx, sess.Token)
		return domainauth.Identity{}, domainauth.ErrSuperseded
	}
	return id, nil
}

// reclaimSignUp resumes a registration whose credential exists without a user record.
// It needs the original password; an email that already has a record stays a duplicate.
func (m *SessionMachine) reclaimSignUp(ctx context.Context, email, password string, dup error) (domainauth.ProviderSession, error) {
	sess, err := m.svc.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return domainauth.ProviderSession{}, dup
	}
	if _, err := m.svc.records.GetUserRecord(ctx, sess.UserID); err == nil {
		m.discardProviderSession(ctx, sess.Token)
		return domainauth.ProviderSession{}, dup
	}
	return sess, nil
}

// RegisterInput groups parameters for Register.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Logout clears the identity immediately and then asks the provider to end its session.
// The local state is Anonymous even when the provider call fails.
func (m *SessionMachine) Logout(ctx context.Context) error {
	m.mu.Lock()
	token := m.token
	m.generation++
	m.token = ""
	m.userID = ""
	m.state = domainauth.SessionState{}
	notify := m.snapshotLocked()
	m.mu.Unlock()
	notify()

	if token == "" {
		return nil
	}
	if err := m.svc.provider.SignOut(ctx, token); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// OnProviderEvent applies an asynchronous provider notification addressed to this session.
// Events for other sessions are ignored, and repeated SIGNED_OUT events are a no-op.
func (m *SessionMachine) OnProviderEvent(ctx context.Context, ev domainauth.ProviderEvent) {
	switch ev.Kind {
	case domainauth.EventSignedOut:
		m.signedOut(ev.Session)
	case domainauth.EventSignedIn:
		m.mu.Lock()
		if ev.Session.Token == "" || ev.Session.Token != m.token {
			m.mu.Unlock()
			return
		}
		gen := m.generation
		m.mu.Unlock()
		m.resolveAndSettle(ctx, gen, ev.Session)
	default:
		m.svc.logger.DebugContext(ctx, "ignoring provider event", "event", string(ev.Kind))
	}
}

func (m *SessionMachine) signedOut(sess domainauth.ProviderSession) {
	m.mu.Lock()
	if !m.addressedLocked(sess) || (!m.state.Authenticated && !m.state.Resolving) {
		m.mu.Unlock()
		return
	}
	m.generation++
	m.token = ""
	m.userID = ""
	m.state = domainauth.SessionState{}
	notify := m.snapshotLocked()
	m.mu.Unlock()
	notify()
}

// addressedLocked reports whether a provider session refers to this machine.
// A session with no token addresses every session of its user.
func (m *SessionMachine) addressedLocked(sess domainauth.ProviderSession) bool {
	if sess.Token != "" {
		return sess.Token == m.token
	}
	return sess.UserID != "" && sess.UserID == m.userID
}

func (m *SessionMachine) resolveAndSettle(ctx context.Context, gen uint64, sess domainauth.ProviderSession) {
	id, err := m.svc.resolveIdentity(ctx, sess.UserID)
	if err != nil {
		m.svc.logger.WarnContext(ctx, "identity lookup failed", "user_id", sess.UserID, "error", err)
		m.settleAnonymous(gen)
		return
	}
	m.settleAuthenticated(gen, settlement{sess: sess, identity: id})
}

// begin captures the generation an operation starts under, along with the held token.
func (m *SessionMachine) begin() (uint64, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation, m.token
}

func (m *SessionMachine) settleAnonymous(gen uint64) bool {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return false
	}
	m.token = ""
	m.userID = ""
	m.state = domainauth.SessionState{}
	notify := m.snapshotLocked()
	m.mu.Unlock()
	notify()
	return true
}

// settlement is a resolved authenticated outcome. Explicit logins supersede
// checks that are still in flight.
type settlement struct {
	sess      domainauth.ProviderSession
	identity  domainauth.Identity
	supersede bool
}

func (m *SessionMachine) settleAuthenticated(gen uint64, s settlement) bool {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return false
	}
	if s.supersede {
		m.generation++
	}
	id := s.identity
	m.token = s.sess.Token
	m.userID = s.sess.UserID
	m.state = domainauth.SessionState{Authenticated: true, Identity: &id}
	notify := m.snapshotLocked()
	m.mu.Unlock()
	notify()
	return true
}

// snapshotLocked returns a func that delivers the current state to the watchers.
// It must be called with mu held and the returned func invoked after unlocking.
func (m *SessionMachine) snapshotLocked() func() {
	st := cloneState(m.state)
	fns := make([]func(domainauth.SessionState), 0, len(m.watchers))
	for _, fn := range m.watchers {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(st)
		}
	}
}

func (m *SessionMachine) discardProviderSession(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := m.svc.provider.SignOut(ctx, token); err != nil {
		m.svc.logger.WarnContext(ctx, "discard provider session", "error", err)
	}
}

func cloneState(s domainauth.SessionState) domainauth.SessionState {
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}
	return s
}
