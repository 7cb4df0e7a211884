package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/yaseenp24/Healthcare-Agent/pkg/logging"
)

// Auditor records health-intent outcomes.
type Auditor interface {
	LogHealthAnswered(ctx context.Context, sessionID, question, answer string, terms, sourceURLs []string) error
	LogHealthDeclined(ctx context.Context, sessionID, question string, terms []string, reason string) error
}

// Service binds the router to a session store. Messages for one session are
// handled one at a time; different sessions proceed in parallel.
type Service struct {
	router  *Router
	store   SessionStore
	auditor Auditor
	logger  *logging.Logger
	locks   *sessionLocks
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithAuditor records health answers and declines.
func WithAuditor(a Auditor) ServiceOption {
	return func(s *Service) {
		s.auditor = a
	}
}

func NewService(router *Router, store SessionStore, logger *logging.Logger, opts ...ServiceOption) *Service {
	if router == nil {
		panic("conversation: router cannot be nil")
	}
	if store == nil {
		store = NewMemorySessionStore()
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		router: router,
		store:  store,
		logger: logger,
		locks:  newSessionLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Chat routes one message for sessionID and returns the reply. State is saved
// only when routing succeeds.
func (s *Service) Chat(ctx context.Context, sessionID, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	if sessionID == "" {
		return "", ErrSessionIDRequired
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return "", err
	}

	res, err := s.router.HandleMessage(ctx, state, message)
	if err != nil {
		return "", err
	}

	if err := s.store.Save(ctx, sessionID, res.State); err != nil {
		return "", fmt.Errorf("conversation: persist session: %w", err)
	}
	s.audit(ctx, sessionID, message, res)

	s.logger.Debug("message handled",
		"session_id", sessionID,
		"route", string(res.Route),
		"mode", string(res.State.Mode),
		"turns", len(res.State.Transcript),
	)
	return res.Reply, nil
}

// Reset drops the stored session, which loads back as the zero state.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	unlock := s.locks.lock(sessionID)
	defer unlock()

	if err := s.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.logger.Debug("session reset", "session_id", sessionID)
	return nil
}

// History returns the stored transcript for sessionID.
func (s *Service) History(ctx context.Context, sessionID string) ([]Turn, error) {
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}
	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return state.Transcript, nil
}

func (s *Service) audit(ctx context.Context, sessionID, question string, res Result) {
	if s.auditor == nil || res.Health == nil {
		return
	}
	var err error
	if res.Health.Answered {
		err = s.auditor.LogHealthAnswered(ctx, sessionID, question, res.Reply, res.Health.Terms, res.Health.SourceURLs)
	} else {
		err = s.auditor.LogHealthDeclined(ctx, sessionID, question, res.Health.Terms, "no_grounded_answer")
	}
	if err != nil {
		s.logger.Warn("health audit failed", "session_id", sessionID, "error", err)
	}
}

// sessionLocks is a keyed mutex whose entries are dropped once unused.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu      sync.Mutex
	waiters int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

func (l *sessionLocks) lock(key string) func() {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &sessionLock{}
		l.locks[key] = entry
	}
	entry.waiters++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.waiters--
		if entry.waiters == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

func (l *sessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
