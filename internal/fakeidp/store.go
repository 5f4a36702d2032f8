package fakeidp

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	autherrors "github.com/logineko/wms-e2e-auth/internal/errors"
)

// authSession is the server side of one login attempt, keyed by the
// AUTH_SESSION_ID cookie.
type authSession struct {
	ID          string
	ClientID    string
	RedirectURI string
	State       string
	Nonce       string
	SessionCode string
	Execution   string
	TabID       string
	ClientData  string
	CreatedAt   time.Time
}

// codeGrant is an issued authorization code.
type codeGrant struct {
	Code         string
	UserID       string
	ClientID     string
	RedirectURI  string
	Nonce        string
	SessionState string
	IssuedAt     time.Time
	Used         bool
}

// refreshGrant is an issued refresh token, keyed by its jti.
type refreshGrant struct {
	UserID       string
	ClientID     string
	SessionState string
	Scope        string
}

// store is a thread-safe in-memory realm state.
type store struct {
	mu           sync.RWMutex
	users        map[string]*User // username -> user
	authSessions map[string]*authSession
	codes        map[string]*codeGrant
	refresh      map[string]refreshGrant
}

func newStore() *store {
	return &store{
		users:        make(map[string]*User),
		authSessions: make(map[string]*authSession),
		codes:        make(map[string]*codeGrant),
		refresh:      make(map[string]refreshGrant),
	}
}

func (s *store) upsertUser(user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	s.users[strings.ToLower(user.Username)] = user
}

func (s *store) userByName(username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[strings.ToLower(username)]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	return user, nil
}

func (s *store) userByID(id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, autherrors.ErrNotFound
}

func (s *store) upsertAuthSession(as *authSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *as
	s.authSessions[as.ID] = &copied
}

func (s *store) authSession(id string) (*authSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	as, ok := s.authSessions[id]
	if !ok {
		return nil, autherrors.ErrSessionNotFound
	}
	copied := *as
	return &copied, nil
}

func (s *store) deleteAuthSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.authSessions, id)
}

func (s *store) addCode(grant *codeGrant) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *grant
	s.codes[grant.Code] = &copied
}

// redeemCode marks code as used and returns its grant. A code can be
// redeemed once; later attempts get ErrCodeAlreadyExchanged.
func (s *store) redeemCode(code string) (codeGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	grant, ok := s.codes[code]
	if !ok {
		return codeGrant{}, autherrors.ErrInvalidGrant
	}
	if grant.Used {
		return codeGrant{}, autherrors.ErrCodeAlreadyExchanged
	}
	grant.Used = true
	return *grant, nil
}

func (s *store) addRefresh(id string, grant refreshGrant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[id] = grant
}

func (s *store) refreshGrant(id string) (refreshGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	grant, ok := s.refresh[id]
	if !ok {
		return refreshGrant{}, autherrors.ErrInvalidToken
	}
	return grant, nil
}

func (s *store) revokeRefresh(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refresh, id)
}
