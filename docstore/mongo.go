package docstore

import (
	"context"
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/emberhall/fieldvault/fverrors"
	"github.com/emberhall/fieldvault/fvlog"
	"github.com/emberhall/fieldvault/ident"
)

// Mongo implements [Store] on a MongoDB database via mongo-driver v2. The
// wrapped client is safe for concurrent use, so one Mongo value serves the
// whole process.
//
// # Typical usage
//
// ```go
// client := docstore.NewMongoClient("mongodb://127.0.0.1:27017", log)
// store := docstore.NewMongo(client, "fieldvault", log)
// doc, ok, _ := store.FindOne(ctx, "user", docstore.Doc{"_id": id}, []string{"mail"})
// ```
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	log    fvlog.Logger
}

// NewMongo wraps an already-connected *mongo.Client. Use it when the
// application manages the low-level client itself (DI containers, tests
// against a shared server).
func NewMongo(client *mongo.Client, database string, log fvlog.Logger) *Mongo {
	if log == nil {
		log = fvlog.New(nil)
	}

	return &Mongo{
		client: client,
		db:     client.Database(database),
		log:    log,
	}
}

// NewMongoClient dials a MongoDB deployment and performs an initial ping.
//
// It logs both the connection attempt and the final status via the supplied
// fvlog.Logger. On failure the logger's Fatalf terminates the process,
// mirroring the standard library's log.Fatalf semantics.
//
// Example:
//
//	client := docstore.NewMongoClient("mongodb://127.0.0.1:27017", log)
func NewMongoClient(uri string, log fvlog.Logger) *mongo.Client {
	if log == nil {
		log = fvlog.New(nil)
	}

	log.Infof("Mongo connecting to %s", uri)

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		log.Fatalf("Failed to configure mongo client: %v", err)
	}

	if err := client.Ping(context.Background(), readpref.Primary()); err != nil {
		log.Fatalf("Failed to connect mongo: %v", err)
	}

	log.Infof("Mongo connected to %s", uri)

	return client
}

// Raw exposes the underlying *mongo.Client for operations outside the
// high-level API, e.g. index management at startup.
func (m *Mongo) Raw() *mongo.Client {
	return m.client
}

// FindOne implements [Store.FindOne] for the Mongo back-end.
func (m *Mongo) FindOne(
	ctx context.Context,
	collection string,
	filter Doc,
	projection []string,
) (Doc, bool, fverrors.Error) {
	var doc Doc

	err := m.db.Collection(collection).
		FindOne(ctx, bson.M(filter), options.FindOne().SetProjection(buildProjection(projection))).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fverrors.FromError(
			http.StatusInternalServerError,
			errors.Join(ErrFailedToFind, err),
			"mongo: find one in "+collection,
		)
	}

	return doc, true, nil
}

// FindMany implements [Store.FindMany] for the Mongo back-end.
func (m *Mongo) FindMany(
	ctx context.Context,
	collection string,
	filter Doc,
	projection []string,
	opts FindOptions,
) ([]Doc, fverrors.Error) {
	findOpts := options.Find().SetProjection(buildProjection(projection))

	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(opts.Limit)
	}

	if opts.SortField != "" {
		direction := -1
		if opts.SortAscending {
			direction = 1
		}

		findOpts = findOpts.SetSort(bson.D{{Key: opts.SortField, Value: direction}})
	}

	cursor, err := m.db.Collection(collection).Find(ctx, bson.M(filter), findOpts)
	if err != nil {
		return nil, fverrors.FromError(
			http.StatusInternalServerError,
			errors.Join(ErrFailedToFind, err),
			"mongo: find many in "+collection,
		)
	}

	var docs []Doc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fverrors.FromError(
			http.StatusInternalServerError,
			errors.Join(ErrFailedToFind, err),
			"mongo: drain cursor of "+collection,
		)
	}

	return docs, nil
}

// InsertOne implements [Store.InsertOne] for the Mongo back-end.
func (m *Mongo) InsertOne(
	ctx context.Context,
	collection string,
	doc Doc,
) (ident.ID, fverrors.Error) {
	result, err := m.db.Collection(collection).InsertOne(ctx, bson.M(doc))
	if err != nil {
		return ident.Nil, fverrors.FromError(
			http.StatusInternalServerError,
			errors.Join(ErrFailedToInsert, err),
			"mongo: insert one into "+collection,
		)
	}

	id, ok := result.InsertedID.(ident.ID)
	if !ok {
		return ident.Nil, fverrors.FromError(
			http.StatusInternalServerError,
			ErrBadInsertedID,
			"mongo: insert one into "+collection,
		)
	}

	return id, nil
}

// UpdateOne implements [Store.UpdateOne] for the Mongo back-end.
func (m *Mongo) UpdateOne(
	ctx context.Context,
	collection string,
	filter Doc,
	update Update,
) (int64, fverrors.Error) {
	operation, fvErr := buildUpdate(update)
	if fvErr != nil {
		return 0, fvErr.Wrap("mongo: update one in " + collection)
	}

	result, err := m.db.Collection(collection).UpdateOne(ctx, bson.M(filter), operation)
	if err != nil {
		return 0, fverrors.FromError(
			http.StatusInternalServerError,
			errors.Join(ErrFailedToUpdate, err),
			"mongo: update one in "+collection,
		)
	}

	return result.MatchedCount, nil
}

// DeleteOne implements [Store.DeleteOne] for the Mongo back-end.
func (m *Mongo) DeleteOne(
	ctx context.Context,
	collection string,
	filter Doc,
) (int64, fverrors.Error) {
	result, err := m.db.Collection(collection).DeleteOne(ctx, bson.M(filter))
	if err != nil {
		return 0, fverrors.FromError(
			http.StatusInternalServerError,
			errors.Join(ErrFailedToDelete, err),
			"mongo: delete one in "+collection,
		)
	}

	return result.DeletedCount, nil
}

// Ping implements [Store.Ping] for the Mongo back-end.
func (m *Mongo) Ping(ctx context.Context) fverrors.Error {
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return fverrors.FromError(
			http.StatusInternalServerError,
			errors.Join(ErrFailedToPing, err),
			"mongo: ping",
		)
	}

	return nil
}

// Close implements [Store.Close] for the Mongo back-end.
func (m *Mongo) Close(ctx context.Context) fverrors.Error {
	if err := m.client.Disconnect(ctx); err != nil {
		return fverrors.FromError(
			http.StatusInternalServerError,
			errors.Join(ErrFailedToClose, err),
			"mongo: disconnect",
		)
	}

	return nil
}

// buildProjection renders a store-level field list as a Mongo projection.
// The identity field is always included.
func buildProjection(fields []string) bson.M {
	projection := bson.M{IDField: 1}

	for _, field := range fields {
		projection[field] = 1
	}

	return projection
}

// buildUpdate renders an [Update] as a Mongo update document.
func buildUpdate(update Update) (bson.M, fverrors.Error) {
	operation := bson.M{}

	if len(update.Set) > 0 {
		operation["$set"] = bson.M(update.Set)
	}

	if len(update.Unset) > 0 {
		unset := bson.M{}
		for _, field := range update.Unset {
			unset[field] = ""
		}

		operation["$unset"] = unset
	}

	if len(operation) == 0 {
		return nil, fverrors.FromError(
			http.StatusBadRequest,
			ErrEmptyUpdate,
			"build update document",
		)
	}

	return operation, nil
}
