// Package service contains the business logic for the Packsync API.
// Services validate inputs, enforce ownership rules, and orchestrate repo and
// store calls. No SQL lives here; services depend on interfaces only.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/packsync/packsync/internal/auth"
	"github.com/packsync/packsync/internal/docstore"
	"github.com/packsync/packsync/internal/domain"
	"github.com/packsync/packsync/internal/repo"
)

// AuthResult is returned by sign-up and login.
type AuthResult struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// AccountService implements sign-up, login and token checks.
type AccountService struct {
	accounts repo.AccountRepo
	docs     docstore.Store
	secret   string
	ttl      time.Duration
}

// NewAccountService constructs an AccountService. docs receives the profile
// document created for each new account.
func NewAccountService(accounts repo.AccountRepo, docs docstore.Store, secret string, ttl time.Duration) *AccountService {
	if ttl <= 0 {
		ttl = auth.DefaultTokenTTL
	}
	return &AccountService{accounts: accounts, docs: docs, secret: secret, ttl: ttl}
}

// SignUp creates an account and its users/{id} profile document, then issues
// a token. Returns domain.ErrValidation for bad input and domain.ErrConflict if
// the email is taken.
func (s *AccountService) SignUp(ctx context.Context, email, password, displayName string) (AuthResult, error) {
	email = normalizeEmail(email)
	displayName = strings.TrimSpace(displayName)
	if err := validateSignUp(email, password, displayName); err != nil {
		return AuthResult{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("service.AccountService.SignUp: %w", err)
	}
	acct, err := s.accounts.Create(ctx, domain.Account{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
	})
	if err != nil {
		return AuthResult{}, fmt.Errorf("service.AccountService.SignUp: %w", err)
	}

	profile := map[string]any{"displayName": acct.DisplayName, "email": acct.Email}
	if err := s.docs.SetFields(ctx, domain.UsersCollection, acct.ID, profile, true); err != nil {
		return AuthResult{}, fmt.Errorf("service.AccountService.SignUp: writing profile: %w", err)
	}

	return s.issue(acct)
}

// Login exchanges an email and password for a token.
// Unknown emails and wrong passwords both return domain.ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	acct, err := s.accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return AuthResult{}, fmt.Errorf("service.AccountService.Login: %w", domain.ErrInvalidCredentials)
		}
		return AuthResult{}, fmt.Errorf("service.AccountService.Login: %w", err)
	}

	ok, err := auth.CheckPassword(acct.PasswordHash, password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("service.AccountService.Login: %w", err)
	}
	if !ok {
		return AuthResult{}, fmt.Errorf("service.AccountService.Login: %w", domain.ErrInvalidCredentials)
	}
	return s.issue(acct)
}

// Me returns the current state of the caller's account.
func (s *AccountService) Me(ctx context.Context, caller auth.Identity) (domain.User, error) {
	acct, err := s.accounts.GetByID(ctx, caller.UserID)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.AccountService.Me: %w", err)
	}
	return userOf(acct), nil
}

// Authenticate validates a bearer token.
// Any invalid token returns domain.ErrAuthRequired.
func (s *AccountService) Authenticate(_ context.Context, token string) (auth.Identity, error) {
	id, err := auth.ValidateToken(s.secret, token)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("service.AccountService.Authenticate: %w: %v", domain.ErrAuthRequired, err)
	}
	return id, nil
}

func (s *AccountService) issue(acct domain.Account) (AuthResult, error) {
	user := userOf(acct)
	token, err := auth.GenerateToken(s.secret, s.ttl, auth.Identity{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	})
	if err != nil {
		return AuthResult{}, fmt.Errorf("service.AccountService: issuing token: %w", err)
	}
	return AuthResult{Token: token, User: user}, nil
}

func userOf(acct domain.Account) domain.User {
	return domain.User{ID: acct.ID, Email: acct.Email, DisplayName: acct.DisplayName}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateSignUp(email, password, displayName string) error {
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: a valid email is required", domain.ErrValidation)
	}
	if len(password) < auth.MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, auth.MinPasswordLength)
	}
	if displayName == "" {
		return fmt.Errorf("%w: display name is required", domain.ErrValidation)
	}
	return nil
}
