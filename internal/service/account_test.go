package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packsync/packsync/internal/auth"
	"github.com/packsync/packsync/internal/docstore"
	"github.com/packsync/packsync/internal/domain"
	"github.com/packsync/packsync/internal/service"
)

const testSecret = "test-secret"

// memAccounts returns a mock repo backed by a map, good enough for
// round-trip sign-up/login tests.
func memAccounts() *mockAccountRepo {
	byEmail := map[string]domain.Account{}
	return &mockAccountRepo{
		create: func(_ context.Context, a domain.Account) (domain.Account, error) {
			if _, ok := byEmail[a.Email]; ok {
				return domain.Account{}, domain.ErrConflict
			}
			a.ID = "11111111-1111-1111-1111-111111111111"
			byEmail[a.Email] = a
			return a, nil
		},
		getByEmail: func(_ context.Context, email string) (domain.Account, error) {
			a, ok := byEmail[email]
			if !ok {
				return domain.Account{}, domain.ErrNotFound
			}
			return a, nil
		},
		getByID: func(_ context.Context, id string) (domain.Account, error) {
			for _, a := range byEmail {
				if a.ID == id {
					return a, nil
				}
			}
			return domain.Account{}, domain.ErrNotFound
		},
	}
}

func TestAccountService_SignUp(t *testing.T) {
	docs := docstore.NewMemoryStore()
	svc := service.NewAccountService(memAccounts(), docs, testSecret, time.Hour)

	res, err := svc.SignUp(context.Background(), "  Alice@Example.com ", "hunter22", " Alice ")

	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.Equal(t, "Alice", res.User.DisplayName)

	id, err := auth.ValidateToken(testSecret, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id.UserID)
	assert.Equal(t, "Alice", id.DisplayName)

	profile, err := docs.Get(context.Background(), domain.UsersCollection, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.Fields["displayName"])
	assert.Equal(t, "alice@example.com", profile.Fields["email"])
}

func TestAccountService_SignUp_Validation(t *testing.T) {
	svc := service.NewAccountService(memAccounts(), docstore.NewMemoryStore(), testSecret, time.Hour)

	cases := map[string][3]string{
		"bad email":      {"not-an-email", "hunter22", "Alice"},
		"short password": {"a@example.com", "123", "Alice"},
		"blank name":     {"a@example.com", "hunter22", "   "},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.SignUp(context.Background(), c[0], c[1], c[2])
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestAccountService_SignUp_DuplicateEmail(t *testing.T) {
	svc := service.NewAccountService(memAccounts(), docstore.NewMemoryStore(), testSecret, time.Hour)
	_, err := svc.SignUp(context.Background(), "a@example.com", "hunter22", "A")
	require.NoError(t, err)

	_, err = svc.SignUp(context.Background(), "A@example.com", "hunter22", "A")

	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestAccountService_Login(t *testing.T) {
	svc := service.NewAccountService(memAccounts(), docstore.NewMemoryStore(), testSecret, time.Hour)
	_, err := svc.SignUp(context.Background(), "bob@example.com", "hunter22", "Bob")
	require.NoError(t, err)

	res, err := svc.Login(context.Background(), "BOB@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "Bob", res.User.DisplayName)

	_, err = svc.Login(context.Background(), "bob@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAccountService_Login_RepoError(t *testing.T) {
	boom := errors.New("db down")
	repo := &mockAccountRepo{getByEmail: func(context.Context, string) (domain.Account, error) {
		return domain.Account{}, boom
	}}
	svc := service.NewAccountService(repo, docstore.NewMemoryStore(), testSecret, time.Hour)

	_, err := svc.Login(context.Background(), "a@example.com", "x")

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAccountService_MeAndAuthenticate(t *testing.T) {
	svc := service.NewAccountService(memAccounts(), docstore.NewMemoryStore(), testSecret, time.Hour)
	res, err := svc.SignUp(context.Background(), "c@example.com", "hunter22", "Carol")
	require.NoError(t, err)

	id, err := svc.Authenticate(context.Background(), res.Token)
	require.NoError(t, err)

	me, err := svc.Me(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, res.User, me)

	_, err = svc.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
}
