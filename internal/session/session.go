// Package session holds the per-user client state: the bearer token, the
// open notification stream and the status log kept for them.
package session

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

var (
	ErrAlreadyAuthenticated = errors.New("session already authenticated")
	ErrNotAuthenticated     = errors.New("session not authenticated")
	ErrStreamAttached       = errors.New("notification stream already attached")
)

// State is the controller lifecycle: Anonymous, then Authenticated after a
// successful login, then Streaming once the notification socket is open.
// There is no way back to Anonymous.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticated
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Session is one isolated login. All methods are safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.RWMutex
	clientID string
	token    *oauth2.Token
	stream   io.Closer
}

func New() *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}
}

// SetToken stores the credential issued by a successful login. A session is
// authenticated at most once.
func (s *Session) SetToken(clientID string, tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" {
		return ErrNotAuthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != nil {
		return ErrAlreadyAuthenticated
	}
	s.clientID = clientID
	s.token = tok
	return nil
}

// Token returns the bearer token, or nil before login.
func (s *Session) Token() *oauth2.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) ClientID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientID
}

func (s *Session) Authenticated() bool {
	return s.Token() != nil
}

// AttachStream records the open notification stream.
func (s *Session) AttachStream(c io.Closer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return ErrNotAuthenticated
	}
	if s.stream != nil {
		return ErrStreamAttached
	}
	s.stream = c
	return nil
}

// DetachStream forgets c if it is the attached stream, returning the session
// to Authenticated. It does not close c.
func (s *Session) DetachStream(c io.Closer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil || s.stream != c {
		return false
	}
	s.stream = nil
	return true
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.stream != nil:
		return StateStreaming
	case s.token != nil:
		return StateAuthenticated
	default:
		return StateAnonymous
	}
}

// Close closes the attached stream, if any. The token is kept.
func (s *Session) Close() error {
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	if stream != nil {
		return stream.Close()
	}
	return nil
}
