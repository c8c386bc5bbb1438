// Package handler implements the HTTP and websocket handlers for the Packsync
// API. All handlers are methods on Server; they are split into files by
// resource but share the same dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/packsync/packsync/internal/auth"
	"github.com/packsync/packsync/internal/docstore"
	"github.com/packsync/packsync/internal/domain"
	"github.com/packsync/packsync/internal/middleware"
	"github.com/packsync/packsync/internal/service"
	"github.com/packsync/packsync/openapi"
)

// AccountServicer defines the account operations the auth handlers depend on.
// Defining the interface here, in the consumer package, lets handler tests
// inject a mock without touching the database.
type AccountServicer interface {
	SignUp(ctx context.Context, email, password, displayName string) (service.AuthResult, error)
	Login(ctx context.Context, email, password string) (service.AuthResult, error)
	Me(ctx context.Context, caller auth.Identity) (domain.User, error)
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
}

// DocumentServicer defines the document operations, each checked against the
// caller's identity.
type DocumentServicer interface {
	Query(ctx context.Context, caller auth.Identity, collection string, filters docstore.Filters) ([]docstore.Document, error)
	Get(ctx context.Context, caller auth.Identity, collection, id string) (docstore.Document, error)
	Create(ctx context.Context, caller auth.Identity, collection string, fields map[string]any) (docstore.Document, error)
	SetFields(ctx context.Context, caller auth.Identity, collection, id string, fields map[string]any, merge bool) error
	Delete(ctx context.Context, caller auth.Identity, collection, id string) error
	Subscribe(caller auth.Identity, collection string, filters docstore.Filters, onUpdate func([]docstore.Document), onError func(error)) (docstore.Subscription, error)
}

// BlobServicer defines the blob operations.
type BlobServicer interface {
	Upload(ctx context.Context, caller auth.Identity, path string, data []byte, contentType string) error
	DownloadURL(ctx context.Context, path string) (string, error)
}

// Server holds the dependencies shared by every handler.
type Server struct {
	accounts AccountServicer
	docs     DocumentServicer
	blobs    BlobServicer
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewServer constructs the Server with all its dependencies.
// A nil logger falls back to slog.Default().
func NewServer(accounts AccountServicer, docs DocumentServicer, blobs BlobServicer, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		accounts: accounts,
		docs:     docs,
		blobs:    blobs,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Clients authenticate with a bearer token, not cookies, so a
			// cross-origin page gains nothing by opening the socket.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler builds the chi router. Middlewares in mw wrap every route, in the
// order given; the bearer middleware is added for everything under /v1 except
// sign-up and login.
func (s *Server) Handler(mw ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(mw...)

	r.Get("/healthz", s.GetHealth)
	r.Method(http.MethodGet, "/openapi.yaml", openapi.Handler())
	r.Method(http.MethodHead, "/openapi.yaml", openapi.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/signup", s.SignUp)
		r.Post("/auth/login", s.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.NewBearerAuth(s.accounts))

			r.Get("/auth/me", s.GetMe)

			r.Route("/collections/{collection}", func(r chi.Router) {
				r.Get("/documents", s.QueryDocuments)
				r.Post("/documents", s.CreateDocument)
				r.Get("/documents/{id}", s.GetDocument)
				r.Patch("/documents/{id}", s.SetDocumentFields)
				r.Delete("/documents/{id}", s.DeleteDocument)
				r.Get("/subscribe", s.Subscribe)
			})

			r.Put("/blobs/*", s.UploadBlob)
			r.Get("/blobs/*", s.GetBlobURL)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody("not_found", "no such route"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method_not_allowed", "method not allowed"))
	})
	return r
}

// caller returns the identity placed in the context by the bearer middleware.
func caller(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}
