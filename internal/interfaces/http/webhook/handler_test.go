package webhook

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sngm3741/formsg-intake/api/internal/infrastructure/formsg"
	"github.com/sngm3741/formsg-intake/api/internal/interfaces/http/common"
	"github.com/sngm3741/formsg-intake/api/internal/submission/application"
	"github.com/sngm3741/formsg-intake/api/internal/submission/domain"
)

const testPostURI = "https://intake.example.com/submit"

var testFields = domain.FieldIDs{
	FirstName:  "632949d73a132e0012c629fe",
	LastName:   "632949de184d400012e3f9ff",
	PostalCode: "632949eb79c05e001238386b",
}

// memoryRepository is an in-memory application.ResponseRepository.
type memoryRepository struct {
	mu        sync.Mutex
	records   []domain.Record
	createErr error
	findErr   error
}

func (m *memoryRepository) Create(_ context.Context, record *domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	record.ID = record.SubmissionID + "-" + record.FirstName
	m.records = append(m.records, *record)
	return nil
}

func (m *memoryRepository) FindAll(context.Context) ([]domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	return append([]domain.Record{}, m.records...), nil
}

type fixture struct {
	router        chi.Router
	repo          *memoryRepository
	signingKey    ed25519.PrivateKey
	formPublicKey string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	signingPublic, signingPrivate, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	formPublic, formSecret, err := formsg.GenerateKeyPair()
	require.NoError(t, err)
	decryptor, err := formsg.NewCrypto(formSecret)
	require.NoError(t, err)

	logger := logrus.New()
	logger.Out = io.Discard

	repo := &memoryRepository{}
	handler := NewHandler(Config{
		Logger:        logger,
		Authenticator: formsg.NewWebhooks(signingPublic, time.Minute),
		Decryptor:     decryptor,
		Commands:      application.NewSubmissionCommandService(repo, testFields),
		Queries:       application.NewResponseQueryService(repo),
		PostURI:       testPostURI,
	})
	router := chi.NewRouter()
	handler.Register(router, nil)

	return &fixture{router: router, repo: repo, signingKey: signingPrivate, formPublicKey: formPublic}
}

type answer struct {
	ID     string `json:"_id"`
	Answer string `json:"answer"`
}

func (f *fixture) body(t *testing.T, submissionID string, answers []answer) string {
	t.Helper()
	return f.bodyForForm(t, "form-1", submissionID, answers)
}

func (f *fixture) bodyForForm(t *testing.T, formID, submissionID string, answers []answer) string {
	t.Helper()
	plaintext, err := json.Marshal(answers)
	require.NoError(t, err)
	content, err := formsg.Encrypt(plaintext, f.formPublicKey)
	require.NoError(t, err)

	body, err := json.Marshal(formsg.Envelope{Data: formsg.EncryptedPayload{
		FormID:           formID,
		SubmissionID:     submissionID,
		EncryptedContent: content,
		Version:          1,
	}})
	require.NoError(t, err)
	return string(body)
}

func (f *fixture) signature(submissionID string) string {
	return formsg.Sign(f.signingKey, testPostURI, submissionID, "form-1", time.Now()).String()
}

func (f *fixture) post(body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(formsg.SignatureHeaderName, signature)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) list(t *testing.T) []responseItem {
	t.Helper()
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/responses", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var items []responseItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	return items
}

func janeDoe() []answer {
	return []answer{
		{ID: testFields.FirstName, Answer: "Jane"},
		{ID: testFields.LastName, Answer: "Doe"},
		{ID: testFields.PostalCode, Answer: "123456"},
	}
}

func TestSubmitStoresRecord(t *testing.T) {
	f := newFixture(t)

	w := f.post(f.body(t, "sub-1", janeDoe()), f.signature("sub-1"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, messageSubmitSuccess, w.Body.String())

	require.Len(t, f.repo.records, 1)
	record := f.repo.records[0]
	assert.Equal(t, "Jane", record.FirstName)
	assert.Equal(t, "Doe", record.LastName)
	assert.Equal(t, "123456", record.PostalCode)
	assert.Equal(t, "form-1", record.FormID)
	assert.Equal(t, "sub-1", record.SubmissionID)
	assert.WithinDuration(t, time.Now(), record.SubmissionDate, time.Minute)
}

func TestSubmitUnsignedIsUnauthorized(t *testing.T) {
	f := newFixture(t)

	for name, signature := range map[string]string{
		"missing":          "",
		"forged":           "t=1,s=sub-1,f=form-1,v1=AAAA",
		"other submission": f.signature("sub-2"),
	} {
		t.Run(name, func(t *testing.T) {
			w := f.post(f.body(t, "sub-1", janeDoe()), signature)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"message":"Unauthorized"}`, w.Body.String())
		})
	}
	assert.Empty(t, f.repo.records)
}

func TestSubmitUndecryptable(t *testing.T) {
	f := newFixture(t)
	other := newFixture(t)

	w := f.post(other.body(t, "sub-1", janeDoe()), f.signature("sub-1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"Unable to decrypt submission"}`, w.Body.String())
	assert.Empty(t, f.repo.records)
}

func TestSubmitInvalidBody(t *testing.T) {
	f := newFixture(t)

	w := f.post("{not json", f.signature("sub-1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.repo.records)
}

func TestSubmitMissingField(t *testing.T) {
	f := newFixture(t)

	w := f.post(f.body(t, "sub-1", janeDoe()[:2]), f.signature("sub-1"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"message":"Missing answer for field 632949eb79c05e001238386b"}`, w.Body.String())
	assert.Empty(t, f.repo.records)
}

func TestSubmitPersistFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.createErr = errors.New("no primary")

	w := f.post(f.body(t, "sub-1", janeDoe()), f.signature("sub-1"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, messageSubmitFailure, w.Body.String())
}

func TestResponsesListsEverySubmission(t *testing.T) {
	f := newFixture(t)
	assert.Empty(t, f.list(t))

	names := []string{"Jane", "John", "Jane"}
	for i, name := range names {
		answers := janeDoe()
		answers[0].Answer = name
		submissionID := "sub-" + string(rune('a'+i))
		w := f.post(f.body(t, submissionID, answers), f.signature(submissionID))
		require.Equal(t, http.StatusOK, w.Code)
	}

	items := f.list(t)
	require.Len(t, items, len(names))
	for i, name := range names {
		assert.Equal(t, name, items[i].FirstName)
		assert.Equal(t, "Doe", items[i].LastName)
		assert.Equal(t, "123456", items[i].PostalCode)
	}
}

func TestResubmissionIsNotDeduplicated(t *testing.T) {
	f := newFixture(t)
	body := f.body(t, "sub-1", janeDoe())
	signature := f.signature("sub-1")

	require.Equal(t, http.StatusOK, f.post(body, signature).Code)
	require.Equal(t, http.StatusOK, f.post(body, signature).Code)

	assert.Len(t, f.list(t), 2)
}

func TestResponsesListFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.findErr = errors.New("cursor killed")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/responses", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGreeting(t *testing.T) {
	f := newFixture(t)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello world", w.Body.String())
}

func TestRegisterAppliesReadMiddleware(t *testing.T) {
	handler := NewHandler(Config{Logger: logrus.New()})
	router := chi.NewRouter()
	handler.Register(router, func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/responses", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSubmitBodyMustMatchSignedIDs(t *testing.T) {
	f := newFixture(t)

	for name, body := range map[string]string{
		"other form":       f.bodyForForm(t, "other-form", "sub-1", janeDoe()),
		"other submission": f.bodyForForm(t, "form-1", "sub-2", janeDoe()),
	} {
		t.Run(name, func(t *testing.T) {
			w := f.post(body, f.signature("sub-1"))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"message":"Unauthorized"}`, w.Body.String())
		})
	}
	assert.Empty(t, f.repo.records)

	w := f.post(f.bodyForForm(t, "", "", janeDoe()), f.signature("sub-1"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, f.repo.records, 1)
	assert.Equal(t, "form-1", f.repo.records[0].FormID)
	assert.Equal(t, "sub-1", f.repo.records[0].SubmissionID)
}

func TestSubmitOversizedBody(t *testing.T) {
	f := newFixture(t)

	body := `{"data":{"formId":"form-1","submissionId":"sub-1","encryptedContent":"` +
		strings.Repeat("A", common.MaxWebhookRequestBody+1) + `"}}`
	w := f.post(body, f.signature("sub-1"))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.JSONEq(t, `{"message":"Request body too large"}`, w.Body.String())
	assert.Empty(t, f.repo.records)
}

func TestSubmitOversizedBodyWithoutSignature(t *testing.T) {
	f := newFixture(t)

	w := f.post(strings.Repeat("A", common.MaxWebhookRequestBody+1), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, f.repo.records)
}
