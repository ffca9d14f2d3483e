package services

import (
	"context"
	"sync"

	"rillcast/internal/core/domain"
	"rillcast/internal/core/ports"

	"go.uber.org/zap"
)

// AuthState is a snapshot of the auth store.
type AuthState struct {
	User            *domain.User `json:"user"`
	IsAuthenticated bool         `json:"is_authenticated"`
	IsLoading       bool         `json:"is_loading"`
	Error           string       `json:"error,omitempty"`
}

// AuthStore tracks the signed-in user. SignIn and SignOut may overlap; only
// the most recently issued call commits its result, so a sign-out issued
// after a sign-in always wins regardless of which completes first.
type AuthStore struct {
	identity ports.IdentityProvider
	logger   *zap.SugaredLogger

	mu      sync.RWMutex
	state   AuthState
	issued  uint64
	pending int
}

func NewAuthStore(identity ports.IdentityProvider, logger *zap.SugaredLogger) *AuthStore {
	return &AuthStore{
		identity: identity,
		logger:   logger,
	}
}

func (s *AuthStore) Snapshot() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// CurrentUser returns the signed-in user or nil.
func (s *AuthStore) CurrentUser() *domain.User {
	return s.Snapshot().User
}

func (s *AuthStore) SignIn(ctx context.Context) error {
	ticket := s.begin()

	user, err := s.identity.SignIn(ctx)
	if err != nil {
		s.logger.Errorw("sign in failed", "error", err)
		s.commit(ticket, func(st *AuthState) {
			st.User = nil
			st.IsAuthenticated = false
			st.Error = err.Error()
		})
		return err
	}

	s.commit(ticket, func(st *AuthState) {
		st.User = user
		st.IsAuthenticated = true
		st.Error = ""
	})
	s.logger.Infow("signed in", "user_id", user.ID, "username", user.Username)
	return nil
}

// SignOut always clears the local user, even if the provider reports an error.
func (s *AuthStore) SignOut(ctx context.Context) error {
	ticket := s.begin()

	err := s.identity.SignOut(ctx)
	if err != nil {
		s.logger.Warnw("sign out reported an error", "error", err)
	}

	s.commit(ticket, func(st *AuthState) {
		st.User = nil
		st.IsAuthenticated = false
		st.Error = ""
	})
	return err
}

func (s *AuthStore) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	s.pending++
	s.state.IsLoading = true
	return s.issued
}

func (s *AuthStore) commit(ticket uint64, apply func(*AuthState)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending--
	if ticket == s.issued {
		apply(&s.state)
	} else {
		s.logger.Debugw("discarding superseded auth result", "ticket", ticket, "latest", s.issued)
	}
	s.state.IsLoading = s.pending > 0
}
