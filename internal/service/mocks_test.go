package service_test

import (
	"context"

	"github.com/packsync/packsync/internal/domain"
	"github.com/packsync/packsync/internal/repo"
)

// mockAccountRepo is a hand-written test double for repo.AccountRepo.
// Each method is a function field; set only the ones your test needs.
type mockAccountRepo struct {
	create            func(ctx context.Context, acct domain.Account) (domain.Account, error)
	getByEmail        func(ctx context.Context, email string) (domain.Account, error)
	getByID           func(ctx context.Context, id string) (domain.Account, error)
	updateDisplayName func(ctx context.Context, id, displayName string) (domain.Account, error)
}

func (m *mockAccountRepo) Create(ctx context.Context, acct domain.Account) (domain.Account, error) {
	return m.create(ctx, acct)
}
func (m *mockAccountRepo) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	return m.getByEmail(ctx, email)
}
func (m *mockAccountRepo) GetByID(ctx context.Context, id string) (domain.Account, error) {
	return m.getByID(ctx, id)
}
func (m *mockAccountRepo) UpdateDisplayName(ctx context.Context, id, displayName string) (domain.Account, error) {
	return m.updateDisplayName(ctx, id, displayName)
}

// compile-time check: mockAccountRepo must satisfy repo.AccountRepo.
var _ repo.AccountRepo = (*mockAccountRepo)(nil)
