package session_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packsync/packsync/internal/client/clienttest"
	"github.com/packsync/packsync/internal/client/remote"
	"github.com/packsync/packsync/internal/client/session"
	"github.com/packsync/packsync/internal/domain"
)

func openStore(t *testing.T, dir string) *session.SQLiteStore {
	t.Helper()
	store, err := session.OpenSQLite(context.Background(), filepath.Join(dir, "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, t.TempDir())

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	saved := session.Saved{Token: "t1", User: domain.User{ID: "u1", Email: "a@example.com", DisplayName: "Alice"}}
	require.NoError(t, store.Save(ctx, saved))
	saved.Token = "t2"
	require.NoError(t, store.Save(ctx, saved))

	got, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, saved, got)

	require.NoError(t, store.Clear(ctx))
	_, ok, err = store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSession_SignUpNotifiesAndPersists(t *testing.T) {
	ctx := context.Background()
	b := clienttest.NewBackend(t)
	dir := t.TempDir()
	s := session.New(remote.New(b.URL), openStore(t, dir), nil)

	var seen []*domain.User
	unsub := s.OnAuthStateChanged(func(u *domain.User) { seen = append(seen, u) })
	defer unsub()
	require.Len(t, seen, 1)
	assert.Nil(t, seen[0], "fires immediately with the signed-out state")

	user, err := s.SignUp(ctx, "alice@example.com", "password1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", s.CurrentDisplayName())
	assert.Equal(t, user.ID, s.CurrentUserID())
	assert.NotEmpty(t, s.Token())
	require.Len(t, seen, 2)
	require.NotNil(t, seen[1])
	assert.Equal(t, user.ID, seen[1].ID)

	// A new session over the same file picks the user back up.
	restored := session.New(remote.New(b.URL), openStore(t, dir), nil)
	got, ok, err := restored.Restore(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, user, got)
	assert.Equal(t, s.Token(), restored.Token())
}

func TestSession_SignInSignOut(t *testing.T) {
	ctx := context.Background()
	b := clienttest.NewBackend(t)
	b.SignUp(t, "bob@example.com", "Bob")
	store := openStore(t, t.TempDir())
	s := session.New(remote.New(b.URL), store, nil)

	_, err := s.SignIn(ctx, "bob@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Empty(t, s.CurrentUserID())

	_, err = s.SignIn(ctx, "bob@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, "Bob", s.CurrentDisplayName())

	var last *domain.User
	calls := 0
	unsub := s.OnAuthStateChanged(func(u *domain.User) { last = u; calls++ })
	require.NotNil(t, last)

	require.NoError(t, s.SignOut(ctx))
	assert.Nil(t, last)
	assert.Equal(t, 2, calls)
	assert.Empty(t, s.Token())

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	unsub()
	unsub()
	_, err = s.SignIn(ctx, "bob@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "removed listener is not called")
}

func TestSession_RestoreDropsRejectedToken(t *testing.T) {
	ctx := context.Background()
	b := clienttest.NewBackend(t)
	store := openStore(t, t.TempDir())
	require.NoError(t, store.Save(ctx, session.Saved{Token: "stale", User: domain.User{ID: "u1"}}))

	s := session.New(remote.New(b.URL), store, nil)
	_, ok, err := s.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, s.CurrentUserID())

	_, found, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSession_RefreshPicksUpDisplayName(t *testing.T) {
	ctx := context.Background()
	b := clienttest.NewBackend(t)
	res := b.SignUp(t, "carol@example.com", "Carol")

	c := remote.New(b.URL, remote.WithTokenSource(func() string { return res.Token }))
	s := session.New(c, nil, nil)
	_, err := s.SignIn(ctx, "carol@example.com", "password1")
	require.NoError(t, err)

	require.NoError(t, c.SetFields(ctx, domain.UsersCollection, res.User.ID, map[string]any{"displayName": "Caz"}, true))
	require.NoError(t, s.Refresh(ctx))
	assert.Equal(t, "Caz", s.CurrentDisplayName())

	require.NoError(t, s.SignOut(ctx))
	assert.ErrorIs(t, s.Refresh(ctx), domain.ErrAuthRequired)
}
