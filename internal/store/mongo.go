package store

import (
	"context"

	"github.com/rotisserie/eris"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/bloodbuddy/donor-cli/internal/model"
)

// Default Mongo database and collection names.
const (
	DefaultMongoDatabase   = "bloodbuddy"
	DefaultMongoCollection = "donors"
)

// donorDocument is the stored shape: the donor fields plus Mongo's _id.
type donorDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	model.Donor `bson:",inline"`
}

// MongoStore implements Store on a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongo connects to uri and pings the primary.
func NewMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if database == "" {
		database = DefaultMongoDatabase
	}
	if collection == "" {
		collection = DefaultMongoCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, eris.Wrap(err, "mongo: connect")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, eris.Wrap(err, "mongo: ping")
	}
	return &MongoStore{client: client, coll: client.Database(database).Collection(collection)}, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.client.Ping(ctx, readpref.Primary()), "mongo: ping")
}

// Migrate creates the unique index on contact.
func (s *MongoStore) Migrate(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "contact", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("contact_unique"),
	})
	return eris.Wrap(err, "mongo: migrate")
}

func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

func (s *MongoStore) InsertDonor(ctx context.Context, d model.Donor) (string, error) {
	res, err := s.coll.InsertOne(ctx, donorDocument{Donor: d})
	if mongo.IsDuplicateKeyError(err) {
		return "", ErrDuplicateContact
	}
	if err != nil {
		return "", eris.Wrap(err, "mongo: insert donor")
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return "", nil
}

// ListDonors returns donors sorted by _id, which follows insertion order for
// driver-generated ObjectIDs.
func (s *MongoStore) ListDonors(ctx context.Context) ([]model.Donor, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, eris.Wrap(err, "mongo: list donors")
	}

	var docs []donorDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, eris.Wrap(err, "mongo: decode donors")
	}

	donors := make([]model.Donor, 0, len(docs))
	for _, doc := range docs {
		d := doc.Donor
		d.ID = doc.ID.Hex()
		donors = append(donors, d)
	}
	return donors, nil
}
