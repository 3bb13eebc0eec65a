package domain

import "time"

// Record is one persisted form response.
type Record struct {
	ID             string
	SubmissionDate time.Time
	FirstName      string
	LastName       string
	PostalCode     string
	FormID         string
	SubmissionID   string
}

// FieldIDs identifies the form questions that make up a Record.
type FieldIDs struct {
	FirstName  string
	LastName   string
	PostalCode string
}
