// Package clienttest runs a complete Packsync backend in-process, on
// in-memory stores, for client package tests.
package clienttest

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/packsync/packsync/internal/blob"
	"github.com/packsync/packsync/internal/docstore"
	"github.com/packsync/packsync/internal/domain"
	"github.com/packsync/packsync/internal/handler"
	"github.com/packsync/packsync/internal/repo"
	"github.com/packsync/packsync/internal/service"
)

// Secret signs the backend's tokens.
const Secret = "clienttest-secret"

// Backend is a running test server.
type Backend struct {
	URL      string
	Docs     *docstore.MemoryStore
	Live     *docstore.Live
	Blobs    *blob.MemoryStore
	Accounts *service.AccountService

	srv *httptest.Server
}

// NewBackend starts a server that is shut down when t finishes.
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{
		Docs:  docstore.NewMemoryStore(),
		Blobs: blob.NewMemoryStore("http://blobs.test"),
	}
	b.Live = docstore.NewLive(b.Docs, nil)
	accounts := newAccountRepo()
	b.Accounts = service.NewAccountService(accounts, b.Live, Secret, time.Hour)

	srv := handler.NewServer(b.Accounts, service.NewDocumentService(b.Live, accounts), service.NewBlobService(b.Blobs), nil)
	b.srv = httptest.NewServer(srv.Handler())
	b.URL = b.srv.URL
	t.Cleanup(b.srv.Close)
	return b
}

// SignUp creates an account directly and returns its token and user.
func (b *Backend) SignUp(t *testing.T, email, displayName string) service.AuthResult {
	t.Helper()
	res, err := b.Accounts.SignUp(context.Background(), email, "password1", displayName)
	if err != nil {
		t.Fatalf("clienttest.SignUp: %v", err)
	}
	return res
}

// accountRepo is an in-memory repo.AccountRepo.
type accountRepo struct {
	mu   sync.Mutex
	byID map[string]domain.Account
}

var _ repo.AccountRepo = (*accountRepo)(nil)

func newAccountRepo() *accountRepo {
	return &accountRepo{byID: make(map[string]domain.Account)}
}

func (r *accountRepo) Create(_ context.Context, a domain.Account) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.byID {
		if strings.EqualFold(other.Email, a.Email) {
			return domain.Account{}, domain.ErrConflict
		}
	}
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.byID[a.ID] = a
	return a, nil
}

func (r *accountRepo) GetByEmail(_ context.Context, email string) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Email == email {
			return a, nil
		}
	}
	return domain.Account{}, domain.ErrNotFound
}

func (r *accountRepo) GetByID(_ context.Context, id string) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return a, nil
}

func (r *accountRepo) UpdateDisplayName(_ context.Context, id, name string) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	a.DisplayName = name
	a.UpdatedAt = time.Now()
	r.byID[id] = a
	return a, nil
}
