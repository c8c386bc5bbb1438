package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/packsync/packsync/internal/auth"
	"github.com/packsync/packsync/internal/blob"
	"github.com/packsync/packsync/internal/docstore"
	"github.com/packsync/packsync/internal/domain"
	"github.com/packsync/packsync/internal/handler"
	"github.com/packsync/packsync/internal/service"
)

// mockAccountServicer is a test double for handler.AccountServicer.
// Set only the method fields your test needs; Authenticate defaults to the
// fixed tokens in testTokens.
type mockAccountServicer struct {
	signUp func(ctx context.Context, email, password, displayName string) (service.AuthResult, error)
	login  func(ctx context.Context, email, password string) (service.AuthResult, error)
	me     func(ctx context.Context, caller auth.Identity) (domain.User, error)
}

func (m *mockAccountServicer) SignUp(ctx context.Context, email, password, displayName string) (service.AuthResult, error) {
	return m.signUp(ctx, email, password, displayName)
}
func (m *mockAccountServicer) Login(ctx context.Context, email, password string) (service.AuthResult, error) {
	return m.login(ctx, email, password)
}
func (m *mockAccountServicer) Me(ctx context.Context, caller auth.Identity) (domain.User, error) {
	return m.me(ctx, caller)
}
func (m *mockAccountServicer) Authenticate(_ context.Context, token string) (auth.Identity, error) {
	if id, ok := testTokens[token]; ok {
		return id, nil
	}
	return auth.Identity{}, domain.ErrAuthRequired
}

// compile-time check: mockAccountServicer must satisfy handler.AccountServicer.
var _ handler.AccountServicer = (*mockAccountServicer)(nil)

var (
	alice = auth.Identity{UserID: "alice", Email: "alice@example.com", DisplayName: "Alice"}
	bob   = auth.Identity{UserID: "bob", Email: "bob@example.com", DisplayName: "Bob"}

	testTokens = map[string]auth.Identity{"tok-alice": alice, "tok-bob": bob}
)

// testEnv is a Server wired to real document and blob services over
// in-memory stores.
type testEnv struct {
	handler  http.Handler
	accounts *mockAccountServicer
	mem      *docstore.MemoryStore
	blobs    *blob.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		accounts: &mockAccountServicer{},
		mem:      docstore.NewMemoryStore(),
		blobs:    blob.NewMemoryStore("http://blobs.test"),
	}
	docs := service.NewDocumentService(docstore.NewLive(env.mem, nil), nil)
	srv := handler.NewServer(env.accounts, docs, service.NewBlobService(env.blobs), nil)
	env.handler = srv.Handler()
	return env
}

// do sends a request as the holder of token ("" for anonymous).
func (e *testEnv) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		rdr = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rdr)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[handler.ErrorResponse](t, rec).Error.Code
}

var errBoom = errors.New("boom")

func jsonMarshal(v any) ([]byte, error) { return json.Marshal(v) }
