// Package history persists a record of completed translation jobs to
// MongoDB, grounded on the teacher's repository/mongo package
// (Connect/EnsureIndexes/upsert-by-id shape) and the
// session/repository/mongo watch-history collection (id-keyed
// upsert + ListRecent).
package history

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"subtrans/internal/domain"
)

// Record is one completed job's durable history entry.
type Record struct {
	JobID          string    `bson:"_id" json:"jobId"`
	SourceURI      string    `bson:"sourceUri" json:"sourceUri"`
	TargetLanguage string    `bson:"targetLanguage" json:"targetLanguage"`
	Outcome        string    `bson:"outcome" json:"outcome"`
	EntriesTotal   int       `bson:"entriesTotal" json:"entriesTotal"`
	BatchesOK      int       `bson:"batchesOk" json:"batchesOk"`
	BatchesFailed  int       `bson:"batchesFailed" json:"batchesFailed"`
	ErrorMessage   string    `bson:"errorMessage,omitempty" json:"errorMessage,omitempty"`
	FinishedAt     time.Time `bson:"finishedAt" json:"finishedAt"`
}

// Store is a Mongo-backed job history repository.
type Store struct {
	collection *mongo.Collection
}

// Connect opens a mongo.Client against uri, mirroring the teacher's
// repository.Connect helper.
func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// NewStore returns a Store backed by client.Database(dbName).Collection(collectionName).
func NewStore(client *mongo.Client, dbName, collectionName string) *Store {
	return &Store{collection: client.Database(dbName).Collection(collectionName)}
}

// EnsureIndexes creates the indexes the history query patterns need.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if s == nil || s.collection == nil {
		return nil
	}
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "finishedAt", Value: -1}}},
		{Keys: bson.D{{Key: "outcome", Value: 1}}},
		{Keys: bson.D{{Key: "targetLanguage", Value: 1}}},
	}
	_, err := s.collection.Indexes().CreateMany(ctx, models)
	return err
}

// Record upserts one job's terminal history entry, built from the
// orchestrator's finished domain.Job.
func (s *Store) Record(ctx context.Context, job *domain.Job) error {
	rec := Record{
		JobID:          string(job.ID),
		SourceURI:      job.Selection.SourceURI,
		TargetLanguage: job.Selection.TargetLanguage,
		Outcome:        string(job.Outcome),
		EntriesTotal:   job.Counters.EntriesTotal,
		BatchesOK:      job.Counters.BatchesOK,
		BatchesFailed:  job.Counters.BatchesFailed,
		FinishedAt:     time.Now(),
	}
	if job.Err != nil {
		rec.ErrorMessage = job.Err.Error()
	}

	_, err := s.collection.UpdateOne(
		ctx,
		bson.M{"_id": rec.JobID},
		bson.M{"$set": rec},
		options.Update().SetUpsert(true),
	)
	return err
}

// ListRecent returns the most recently finished jobs, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "finishedAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []Record
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Get fetches one job's history entry by ID.
func (s *Store) Get(ctx context.Context, jobID string) (Record, bool, error) {
	var doc Record
	err := s.collection.FindOne(ctx, bson.M{"_id": jobID}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	return doc, true, nil
}
