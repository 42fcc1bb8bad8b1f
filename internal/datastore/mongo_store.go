package datastore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore keeps one document per entry with the recording inline as
// base64 text. No separate blob storage is involved, so each insert is a
// single atomic document write and needs no application-level lock.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore connects to MongoDB and pings the primary before returning.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("MongoDB ping failed: %w", err)
	}

	return &MongoStore{coll: client.Database(database).Collection(collection)}, nil
}

func (s *MongoStore) Name() string { return "mongo" }

func (s *MongoStore) Insert(ctx context.Context, e *Entry) (string, error) {
	e.Filename = NewAudioFilename()
	e.Timestamp = time.Now().UTC()

	if _, err := s.coll.InsertOne(ctx, e); err != nil {
		return "", fmt.Errorf("%w: insert document for %s: %w", ErrStorageWrite, e.Filename, err)
	}
	return e.Filename, nil
}

func (s *MongoStore) Count(ctx context.Context, f Filter) (int, error) {
	query := bson.M{}
	if f.Language != "" {
		query["language"] = f.Language
	}
	if f.Environment != "" {
		query["environment"] = f.Environment
	}
	if f.Intent != "" {
		query["intent"] = f.Intent
	}

	n, err := s.coll.CountDocuments(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return int(n), nil
}

func (s *MongoStore) List(ctx context.Context, includeAudio bool) ([]*Entry, error) {
	opts := options.Find().SetLimit(MaxListEntries).SetSort(bson.M{"timestamp": 1})
	if !includeAudio {
		opts.SetProjection(bson.M{"audio_base64": 0})
	}

	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer cur.Close(ctx)

	entries := []*Entry{}
	if err := cur.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}

	if includeAudio {
		for _, e := range entries {
			if err := e.decodeStoredAudio(); err != nil {
				return nil, err
			}
		}
	}
	return entries, nil
}

func (s *MongoStore) GetByFilename(ctx context.Context, filename string) (*Entry, error) {
	e := &Entry{}
	err := s.coll.FindOne(ctx, bson.M{"filename": filename}).Decode(e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document for %s: %w", filename, err)
	}
	if err := e.decodeStoredAudio(); err != nil {
		return nil, err
	}
	return e, nil
}

// decodeStoredAudio turns the persisted base64 text back into raw bytes.
// Entries without a payload are left as-is; export tolerates them.
func (e *Entry) decodeStoredAudio() error {
	if e.AudioBase64 == "" {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(e.AudioBase64)
	if err != nil {
		return fmt.Errorf("failed to decode stored audio for %s: %w", e.Filename, err)
	}
	e.Audio = data
	return nil
}
