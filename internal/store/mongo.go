package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matome-io/matome/internal/models"
)

// MongoStore implements PaperStore on a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	papers *mongo.Collection
}

// NewMongoStore connects to MongoDB at uri and binds to the papers
// collection. The connection is verified with a ping before returning.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return &MongoStore{
		client: client,
		papers: client.Database(database).Collection(collection),
	}, nil
}

func (s *MongoStore) find(ctx context.Context, filter, projection bson.M, limit int) ([]models.Paper, error) {
	opts := options.Find().SetProjection(projection)
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cursor, err := s.papers.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find papers: %w", err)
	}
	defer cursor.Close(ctx)

	var papers []models.Paper
	if err := cursor.All(ctx, &papers); err != nil {
		return nil, fmt.Errorf("decode papers: %w", err)
	}
	return papers, nil
}

// FindPendingExtraction returns papers with a stored PDF but no extracted text.
func (s *MongoStore) FindPendingExtraction(ctx context.Context, limit int) ([]models.Paper, error) {
	return s.find(ctx,
		bson.M{
			"gcs_url":        bson.M{"$exists": true},
			"extracted_text": bson.M{"$exists": false},
		},
		bson.M{"paper_id": 1, "title": 1, "gcs_url": 1},
		limit,
	)
}

// FindPendingSummary returns papers with extracted text but no summary.
func (s *MongoStore) FindPendingSummary(ctx context.Context, limit int) ([]models.Paper, error) {
	return s.find(ctx,
		bson.M{
			"extracted_text": bson.M{"$exists": true},
			"summary":        bson.M{"$exists": false},
		},
		bson.M{"paper_id": 1, "title": 1, "extracted_text": 1},
		limit,
	)
}

// FindExtracted returns papers with extracted text regardless of summary state.
func (s *MongoStore) FindExtracted(ctx context.Context, limit int) ([]models.Paper, error) {
	return s.find(ctx,
		bson.M{"extracted_text": bson.M{"$exists": true}},
		bson.M{"paper_id": 1, "title": 1, "extracted_text": 1},
		limit,
	)
}

// FindSummarized returns papers that have a summary.
func (s *MongoStore) FindSummarized(ctx context.Context, limit int) ([]models.Paper, error) {
	return s.find(ctx,
		bson.M{"summary": bson.M{"$exists": true}},
		bson.M{"paper_id": 1, "title": 1, "summary": 1},
		limit,
	)
}

// FindByPaperIDs fetches full records for the given IDs.
func (s *MongoStore) FindByPaperIDs(ctx context.Context, ids []string) ([]models.Paper, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"paper_id": bson.M{"$in": ids}}, bson.M{"_id": 0}, 0)
}

func (s *MongoStore) setFields(ctx context.Context, paperID string, fields bson.M) error {
	res, err := s.papers.UpdateOne(ctx, bson.M{"paper_id": paperID}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update paper %s: %w", paperID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetExtractedText persists the extraction stage output in a single write.
func (s *MongoStore) SetExtractedText(ctx context.Context, paperID string, update ExtractionUpdate) error {
	fields := bson.M{"extracted_text": update.Text}
	if update.DOI != "" {
		fields["doi"] = update.DOI
	}
	if update.Keywords != "" {
		fields["keywords"] = update.Keywords
	}
	return s.setFields(ctx, paperID, fields)
}

// SetSummary persists the summarization stage output.
func (s *MongoStore) SetSummary(ctx context.Context, paperID, summary string) error {
	return s.setFields(ctx, paperID, bson.M{"summary": summary})
}

// UpsertMetadata inserts or refreshes ingestion metadata, keyed by paper ID.
func (s *MongoStore) UpsertMetadata(ctx context.Context, paper models.Paper) error {
	fields := bson.M{
		"paper_id": paper.PaperID,
		"title":    paper.Title,
		"gcs_url":  paper.GCSURL,
	}
	if !paper.PublishedAt.IsZero() {
		fields["published_at"] = paper.PublishedAt
	}
	_, err := s.papers.UpdateOne(ctx,
		bson.M{"paper_id": paper.PaperID},
		bson.M{"$set": fields},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert paper %s: %w", paper.PaperID, err)
	}
	return nil
}

// CountPapers returns the total number of records.
func (s *MongoStore) CountPapers(ctx context.Context) (int64, error) {
	return s.papers.CountDocuments(ctx, bson.M{})
}

// CountSummarized returns the number of records with a summary.
func (s *MongoStore) CountSummarized(ctx context.Context) (int64, error) {
	return s.papers.CountDocuments(ctx, bson.M{"summary": bson.M{"$exists": true}})
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
