// Package session is the client's identity provider: it signs users up, in
// and out, remembers the token between runs, and tells interested components
// whenever the signed-in user changes.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/packsync/packsync/internal/client/remote"
	"github.com/packsync/packsync/internal/domain"
)

// Authenticator is the account half of the backend.
type Authenticator interface {
	SignUp(ctx context.Context, email, password, displayName string) (remote.Credentials, error)
	Login(ctx context.Context, email, password string) (remote.Credentials, error)
	Me(ctx context.Context, token string) (domain.User, error)
}

// Session holds the signed-in user, if any. It is safe for concurrent use.
type Session struct {
	auth  Authenticator
	store TokenStore
	log   *slog.Logger

	mu    sync.RWMutex
	token string
	user  *domain.User

	// emitMu serializes notifications so listeners see changes in order.
	emitMu    sync.Mutex
	lmu       sync.Mutex
	listeners map[int]func(*domain.User)
	nextID    int
}

// New returns a signed-out session. store may be nil, in which case nothing
// is persisted.
func New(auth Authenticator, store TokenStore, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		auth:      auth,
		store:     store,
		log:       log,
		listeners: make(map[int]func(*domain.User)),
	}
}

// SignUp creates an account and signs in as it.
func (s *Session) SignUp(ctx context.Context, email, password, displayName string) (domain.User, error) {
	creds, err := s.auth.SignUp(ctx, email, password, displayName)
	if err != nil {
		return domain.User{}, fmt.Errorf("session.Session.SignUp: %w", err)
	}
	if err := s.signIn(ctx, creds); err != nil {
		return domain.User{}, fmt.Errorf("session.Session.SignUp: %w", err)
	}
	return creds.User, nil
}

// SignIn logs in with an email and password.
func (s *Session) SignIn(ctx context.Context, email, password string) (domain.User, error) {
	creds, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return domain.User{}, fmt.Errorf("session.Session.SignIn: %w", err)
	}
	if err := s.signIn(ctx, creds); err != nil {
		return domain.User{}, fmt.Errorf("session.Session.SignIn: %w", err)
	}
	return creds.User, nil
}

func (s *Session) signIn(ctx context.Context, creds remote.Credentials) error {
	if s.store != nil {
		if err := s.store.Save(ctx, Saved{Token: creds.Token, User: creds.User}); err != nil {
			return err
		}
	}
	s.set(creds.Token, &creds.User)
	return nil
}

// SignOut forgets the user locally and in the token store. Listeners are
// notified even if clearing the store fails.
func (s *Session) SignOut(ctx context.Context) error {
	var err error
	if s.store != nil {
		err = s.store.Clear(ctx)
	}
	s.set("", nil)
	if err != nil {
		return fmt.Errorf("session.Session.SignOut: %w", err)
	}
	return nil
}

// Restore signs in with the saved token, if there is one and the backend
// still accepts it. A rejected token is removed from the store. ok reports
// whether a user is now signed in.
func (s *Session) Restore(ctx context.Context) (user domain.User, ok bool, err error) {
	if s.store == nil {
		return domain.User{}, false, nil
	}
	saved, found, err := s.store.Load(ctx)
	if err != nil {
		return domain.User{}, false, fmt.Errorf("session.Session.Restore: %w", err)
	}
	if !found {
		return domain.User{}, false, nil
	}

	user, err = s.auth.Me(ctx, saved.Token)
	if errors.Is(err, domain.ErrAuthRequired) {
		s.log.Info("saved session expired", "user_id", saved.User.ID)
		if err := s.store.Clear(ctx); err != nil {
			return domain.User{}, false, fmt.Errorf("session.Session.Restore: %w", err)
		}
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, fmt.Errorf("session.Session.Restore: %w", err)
	}

	if user != saved.User {
		if err := s.store.Save(ctx, Saved{Token: saved.Token, User: user}); err != nil {
			return domain.User{}, false, fmt.Errorf("session.Session.Restore: %w", err)
		}
	}
	s.set(saved.Token, &user)
	return user, true, nil
}

// Refresh re-reads the signed-in user from the backend, picking up a changed
// display name. Listeners are notified only if something changed.
func (s *Session) Refresh(ctx context.Context) error {
	token := s.Token()
	if token == "" {
		return fmt.Errorf("session.Session.Refresh: %w", domain.ErrAuthRequired)
	}
	user, err := s.auth.Me(ctx, token)
	if err != nil {
		return fmt.Errorf("session.Session.Refresh: %w", err)
	}
	if cur, ok := s.CurrentUser(); ok && cur == user {
		return nil
	}
	if s.store != nil {
		if err := s.store.Save(ctx, Saved{Token: token, User: user}); err != nil {
			return fmt.Errorf("session.Session.Refresh: %w", err)
		}
	}
	s.set(token, &user)
	return nil
}

// CurrentUser returns the signed-in user.
func (s *Session) CurrentUser() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

// CurrentUserID returns the signed-in user's ID, or "" when signed out.
func (s *Session) CurrentUserID() string {
	u, _ := s.CurrentUser()
	return u.ID
}

// CurrentDisplayName returns the signed-in user's display name, or "" when
// signed out or unnamed.
func (s *Session) CurrentDisplayName() string {
	u, _ := s.CurrentUser()
	return u.DisplayName
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// OnAuthStateChanged calls fn right away with the current user (nil when
// signed out) and again after every sign-in, sign-out or profile refresh.
// The returned func removes fn; calling it more than once is harmless.
func (s *Session) OnAuthStateChanged(fn func(user *domain.User)) (unsubscribe func()) {
	s.emitMu.Lock()
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.lmu.Unlock()
	fn(s.currentCopy())
	s.emitMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lmu.Lock()
			delete(s.listeners, id)
			s.lmu.Unlock()
		})
	}
}

func (s *Session) set(token string, user *domain.User) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	s.token = token
	s.user = user
	s.mu.Unlock()

	s.lmu.Lock()
	fns := make([]func(*domain.User), 0, len(s.listeners))
	for i := 0; i < s.nextID; i++ {
		if fn, ok := s.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.lmu.Unlock()

	for _, fn := range fns {
		fn(s.currentCopy())
	}
}

func (s *Session) currentCopy() *domain.User {
	u, ok := s.CurrentUser()
	if !ok {
		return nil
	}
	return &u
}
