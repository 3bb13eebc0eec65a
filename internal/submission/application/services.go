package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sngm3741/formsg-intake/api/internal/submission/domain"
)

// ErrPersist wraps failures of the response store.
var ErrPersist = errors.New("persist submission")

// ResponseRepository abstracts storage of form responses.
// ResponseRepository はフォーム回答の永続化ポート。
type ResponseRepository interface {
	Create(ctx context.Context, record *domain.Record) error
	FindAll(ctx context.Context) ([]domain.Record, error)
}

// SubmissionCommandService handles the write use-case of the webhook.
type SubmissionCommandService interface {
	Submit(ctx context.Context, cmd SubmitCommand) (*domain.Record, error)
}

// ResponseQueryService lists stored responses.
type ResponseQueryService interface {
	List(ctx context.Context) ([]domain.Record, error)
}

// SubmitCommand carries one decrypted webhook delivery.
type SubmitCommand struct {
	Submission   *domain.DecryptedSubmission
	FormID       string
	SubmissionID string
}

// NewSubmissionCommandService creates a command service extracting fields.
func NewSubmissionCommandService(repo ResponseRepository, fields domain.FieldIDs) SubmissionCommandService {
	return &submissionCommandService{repo: repo, fields: fields, now: time.Now}
}

type submissionCommandService struct {
	repo   ResponseRepository
	fields domain.FieldIDs
	now    func() time.Time
}

func (s *submissionCommandService) Submit(ctx context.Context, cmd SubmitCommand) (*domain.Record, error) {
	record, err := domain.NewRecord(cmd.Submission, s.fields, s.now().UTC())
	if err != nil {
		return nil, err
	}
	record.FormID = cmd.FormID
	record.SubmissionID = cmd.SubmissionID

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return record, nil
}

// NewResponseQueryService creates a read service over the repository.
func NewResponseQueryService(repo ResponseRepository) ResponseQueryService {
	return &responseQueryService{repo: repo}
}

type responseQueryService struct {
	repo ResponseRepository
}

func (s *responseQueryService) List(ctx context.Context) ([]domain.Record, error) {
	return s.repo.FindAll(ctx)
}
