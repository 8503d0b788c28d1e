package storage

import (
	"context"
	"errors"
	neturl "net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	taskerr "github.com/matzehuels/taskmap/pkg/errors"
)

// Mongo defaults.
const (
	MongoDefaultDatabase = "taskmap"
	MongoCollection      = "snapshots"
)

// Mongo stores one document per snapshot, keyed by name.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoDoc struct {
	Name      string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongo connects using a mongodb:// URL. The URL path names the
// database; it defaults to MongoDefaultDatabase.
func NewMongo(ctx context.Context, url string) (*Mongo, error) {
	u, err := neturl.Parse(url)
	if err != nil {
		return nil, taskerr.Wrap(taskerr.ErrCodeInvalidConfig, err, "parse mongo URL")
	}
	db := strings.Trim(u.Path, "/")
	if db == "" {
		db = MongoDefaultDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, storageErr(err, "connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, storageErr(err, "ping mongo")
	}
	return &Mongo{client: client, coll: client.Database(db).Collection(MongoCollection)}, nil
}

func (m *Mongo) Read(ctx context.Context, name string) ([]byte, error) {
	if err := taskerr.ValidateSnapshotName(name); err != nil {
		return nil, err
	}
	var doc mongoDoc
	err := m.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, storageErr(err, "read snapshot %q", name)
	}
	return doc.Data, nil
}

func (m *Mongo) Write(ctx context.Context, name string, data []byte) error {
	if err := taskerr.ValidateSnapshotName(name); err != nil {
		return err
	}
	doc := mongoDoc{Name: name, Data: data, UpdatedAt: time.Now().UTC()}
	_, err := m.coll.ReplaceOne(ctx, bson.M{"_id": name}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return storageErr(err, "write snapshot %q", name)
	}
	return nil
}

func (m *Mongo) List(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.M{"_id": 1})
	cur, err := m.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, storageErr(err, "list snapshots")
	}
	var docs []struct {
		Name string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storageErr(err, "list snapshots")
	}
	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	return names, nil
}

func (m *Mongo) Delete(ctx context.Context, name string) error {
	if err := taskerr.ValidateSnapshotName(name); err != nil {
		return err
	}
	res, err := m.coll.DeleteOne(ctx, bson.M{"_id": name})
	if err != nil {
		return storageErr(err, "delete snapshot %q", name)
	}
	if res.DeletedCount == 0 {
		return notFound(name)
	}
	return nil
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

var _ Backend = (*Mongo)(nil)
