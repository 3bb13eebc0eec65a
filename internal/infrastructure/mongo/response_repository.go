package mongo

import (
	"context"
	"fmt"

	"github.com/sngm3741/formsg-intake/api/internal/submission/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ResponseRepository implements application.ResponseRepository using MongoDB.
type ResponseRepository struct {
	collection *mongo.Collection
}

// NewResponseRepository creates a new Mongo-backed response repository.
func NewResponseRepository(db *mongo.Database, collectionName string) *ResponseRepository {
	return &ResponseRepository{collection: db.Collection(collectionName)}
}

// Create inserts record and fills in its generated ID.
func (r *ResponseRepository) Create(ctx context.Context, record *domain.Record) error {
	doc := ResponseDocument{
		SubmissionDate: record.SubmissionDate,
		FirstName:      record.FirstName,
		LastName:       record.LastName,
		PostalCode:     record.PostalCode,
		FormID:         record.FormID,
		SubmissionID:   record.SubmissionID,
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return err
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		record.ID = id.Hex()
	}
	return nil
}

// FindAll returns every stored response in natural order.
func (r *ResponseRepository) FindAll(ctx context.Context) ([]domain.Record, error) {
	cursor, err := r.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := make([]domain.Record, 0)
	for cursor.Next(ctx) {
		var doc ResponseDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		records = append(records, mapResponseDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func mapResponseDocument(doc ResponseDocument) domain.Record {
	return domain.Record{
		ID:             doc.ID.Hex(),
		SubmissionDate: doc.SubmissionDate,
		FirstName:      doc.FirstName,
		LastName:       doc.LastName,
		PostalCode:     doc.PostalCode,
		FormID:         doc.FormID,
		SubmissionID:   doc.SubmissionID,
	}
}
