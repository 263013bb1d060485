// internal/backend/context.go
package backend

import (
	stderrors "errors"
	"sync"

	"agency-workspace/internal/common/errors"
)

// RequestContext carries the session credentials threaded into every backend
// call. It is populated at session start and cleared at logout; there is no
// ambient global to consult.
type RequestContext struct {
	Token        string `json:"-"`
	Organization string `json:"organization"`
	Branch       string `json:"branch"`
}

// RequireToken fails a mutation locally, before any network I/O, when the
// session has no token.
func (rc RequestContext) RequireToken() error {
	if rc.Token == "" {
		return errors.NewMissingTokenError()
	}
	return nil
}

var errSessionClosed = stderrors.New("session cleared")

// Session owns the request context for the lifetime of a login.
type Session struct {
	mu sync.RWMutex
	rc RequestContext
	ok bool
}

// NewSession opens a session with the given credentials.
func NewSession(token, organization, branch string) *Session {
	return &Session{
		rc: RequestContext{Token: token, Organization: organization, Branch: branch},
		ok: true,
	}
}

// Context returns the current request context.
func (s *Session) Context() (RequestContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ok {
		return RequestContext{}, errSessionClosed
	}
	return s.rc, nil
}

// Clear wipes the credentials at logout.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rc = RequestContext{}
	s.ok = false
}
