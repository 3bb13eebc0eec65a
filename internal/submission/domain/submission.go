package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrFieldNotFound reports that a decrypted submission has no answer for a field.
var ErrFieldNotFound = errors.New("field not found in submission")

// MissingFieldError names the field identifier that could not be resolved.
type MissingFieldError struct {
	FieldID string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrFieldNotFound, e.FieldID)
}

// Is lets errors.Is match MissingFieldError against ErrFieldNotFound.
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrFieldNotFound
}

// Answer is a single decrypted form response.
type Answer struct {
	ID        string
	Question  string
	FieldType string
	Value     string
}

// DecryptedSubmission holds the plaintext answers of one webhook delivery.
type DecryptedSubmission struct {
	Responses []Answer
}

// Answer returns the value of the first response whose identifier matches id.
func (s *DecryptedSubmission) Answer(id string) (string, error) {
	if s != nil {
		for _, response := range s.Responses {
			if response.ID == id {
				return response.Value, nil
			}
		}
	}
	return "", &MissingFieldError{FieldID: id}
}

// NewRecord resolves every configured field and stamps the record with now.
// No partial record is returned when a field is missing.
func NewRecord(submission *DecryptedSubmission, fields FieldIDs, now time.Time) (*Record, error) {
	firstName, err := submission.Answer(fields.FirstName)
	if err != nil {
		return nil, err
	}
	lastName, err := submission.Answer(fields.LastName)
	if err != nil {
		return nil, err
	}
	postalCode, err := submission.Answer(fields.PostalCode)
	if err != nil {
		return nil, err
	}

	return &Record{
		SubmissionDate: now,
		FirstName:      firstName,
		LastName:       lastName,
		PostalCode:     postalCode,
	}, nil
}
