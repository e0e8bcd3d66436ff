package storage

import (
	"context"
	"errors"
	"fmt"

	"socialfeed/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func MongoDBClient(ctx context.Context, address string, port int) (*mongo.Client, error) {
	uri := fmt.Sprintf("mongodb://%s:%d/?directConnection=true", address, port)
	clientOptions := options.Client().ApplyURI(uri)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("error connecting to mongodb: %w", err)
	}
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mongodb cannot be reached after connecting: %w", err)
	}
	return client, nil
}

// mongoDocument is the single record holding the feed inside the collection.
type mongoDocument struct {
	Key   string              `bson:"_id"`
	Users model.UserDirectory `bson:"users"`
	Posts []model.Post        `bson:"posts"`
}

// MongoDocumentStore keeps the feed as one document of the "feed" collection.
type MongoDocumentStore struct {
	collection *mongo.Collection
	key        string
}

var _ DocumentStore = (*MongoDocumentStore)(nil)

func NewMongoDocumentStore(client *mongo.Client, database, key string) *MongoDocumentStore {
	if key == "" {
		key = DefaultDocumentKey
	}
	return &MongoDocumentStore{
		collection: client.Database(database).Collection("feed"),
		key:        key,
	}
}

func (s *MongoDocumentStore) Load(ctx context.Context) (model.Document, error) {
	var record mongoDocument
	filter := bson.D{{Key: "_id", Value: s.key}}
	err := s.collection.FindOne(ctx, filter).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.NewDocument(), nil
	}
	if err != nil {
		return model.Document{}, model.NewStorageError("load", err)
	}
	return normalize(model.Document{Users: record.Users, Posts: record.Posts}), nil
}

func (s *MongoDocumentStore) Save(ctx context.Context, doc model.Document) error {
	record := mongoDocument{Key: s.key, Users: doc.Users, Posts: doc.Posts}
	filter := bson.D{{Key: "_id", Value: s.key}}
	_, err := s.collection.ReplaceOne(ctx, filter, record, options.Replace().SetUpsert(true))
	if err != nil {
		return model.NewStorageError("save", err)
	}
	return nil
}
