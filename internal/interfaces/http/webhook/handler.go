package webhook

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/sngm3741/formsg-intake/api/internal/infrastructure/formsg"
	"github.com/sngm3741/formsg-intake/api/internal/submission/application"
	"github.com/sngm3741/formsg-intake/api/internal/submission/domain"
)

// Authenticator verifies the FormSG signature header.
type Authenticator interface {
	Authenticate(header, uri string) (formsg.SignatureHeader, error)
}

// Decryptor opens an encrypted webhook payload.
type Decryptor interface {
	Decrypt(payload formsg.EncryptedPayload) (*domain.DecryptedSubmission, error)
}

// Handler wires webhook HTTP endpoints to application services.
type Handler struct {
	logger        *logrus.Logger
	authenticator Authenticator
	decryptor     Decryptor
	commands      application.SubmissionCommandService
	queries       application.ResponseQueryService
	postURI       string
}

// Config defines dependencies required by Handler.
type Config struct {
	Logger        *logrus.Logger
	Authenticator Authenticator
	Decryptor     Decryptor
	Commands      application.SubmissionCommandService
	Queries       application.ResponseQueryService
	PostURI       string
}

// NewHandler constructs the webhook handler set.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		logger:        cfg.Logger,
		authenticator: cfg.Authenticator,
		decryptor:     cfg.Decryptor,
		commands:      cfg.Commands,
		queries:       cfg.Queries,
		postURI:       cfg.PostURI,
	}
}

// Register mounts the webhook routes. readMiddleware guards the listing endpoint.
func (h *Handler) Register(r chi.Router, readMiddleware func(http.Handler) http.Handler) {
	if readMiddleware == nil {
		readMiddleware = func(next http.Handler) http.Handler { return next }
	}
	r.Get("/", h.greetingHandler())
	r.Post("/submit", h.submitHandler())
	r.With(readMiddleware).Get("/responses", h.responseListHandler())
}
