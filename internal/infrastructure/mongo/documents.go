package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ResponseDocument は MongoDB 上でのフォーム回答スキーマを Go 構造体として表現したもの。
type ResponseDocument struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	SubmissionDate time.Time          `bson:"submissionDate"`
	FirstName      string             `bson:"firstName"`
	LastName       string             `bson:"lastName"`
	PostalCode     string             `bson:"postalCode"`
	FormID         string             `bson:"formId,omitempty"`
	SubmissionID   string             `bson:"submissionId,omitempty"`
}
