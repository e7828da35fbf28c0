package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/ecsgraph/pkg/ecs"
)

// BatchDocument is the archived form of a committed batch.
type BatchDocument struct {
	ScopeID     string                `bson:"scope_id"`
	CommittedAt time.Time             `bson:"committed_at"`
	Count       int                   `bson:"count"`
	Summary     map[string]ecs.Counts `bson:"summary"`
	Events      []Record              `bson:"events"`
}

// NewBatchDocument builds the archive document for b.
func NewBatchDocument(b ecs.Batch, at time.Time) BatchDocument {
	return BatchDocument{
		ScopeID:     b.ScopeID.String(),
		CommittedAt: at.UTC(),
		Count:       len(b.Events),
		Summary:     Summary(b),
		Events:      Records(b),
	}
}

// inserter is the part of *mongo.Collection the archive needs.
type inserter interface {
	InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// MongoArchive stores one document per committed batch.
type MongoArchive struct {
	client *mongo.Client
	coll   inserter
	logger *log.Logger
	now    func() time.Time
}

// ConnectMongo connects to uri, verifies the server is reachable and
// returns an archive writing to database.collection.
func ConnectMongo(ctx context.Context, uri, database, collection string, logger *log.Logger) (*MongoArchive, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	a := newMongoArchive(client.Database(database).Collection(collection), logger)
	a.client = client
	return a, nil
}

func newMongoArchive(coll inserter, logger *log.Logger) *MongoArchive {
	if logger == nil {
		logger = log.Default()
	}
	return &MongoArchive{coll: coll, logger: logger, now: time.Now}
}

// Notify implements [ecs.Listener].
func (a *MongoArchive) Notify(ctx context.Context, b ecs.Batch) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DeliveryTimeout)
	defer cancel()

	if err := a.Archive(ctx, b); err != nil {
		a.logger.Error("archive batch", "scope", b.ScopeID, "err", err)
	}
}

// Archive inserts the document for b.
func (a *MongoArchive) Archive(ctx context.Context, b ecs.Batch) error {
	if _, err := a.coll.InsertOne(ctx, NewBatchDocument(b, a.now())); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// Close disconnects the client opened by [ConnectMongo].
func (a *MongoArchive) Close(ctx context.Context) error {
	if a.client == nil {
		return nil
	}
	return a.client.Disconnect(ctx)
}

var _ ecs.Listener = (*MongoArchive)(nil)
