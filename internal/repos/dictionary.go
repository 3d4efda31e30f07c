package repos

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fuckdb/fuckdb-backend/internal/apierr"
	"github.com/fuckdb/fuckdb-backend/internal/logger"
	"github.com/fuckdb/fuckdb-backend/internal/types"
)

// DictionaryRepo is the document store holding one dictionary payload per
// version, keyed by an opaque id the version row carries as mongo_id.
type DictionaryRepo interface {
	Insert(ctx context.Context, d *types.Dictionary) (string, error)
	GetByID(ctx context.Context, id string) (*types.Dictionary, error)
	// Replace writes the full document back. The write is conditional on
	// d.Revision matching the stored revision; on success the stored
	// revision is d.Revision+1. A stale revision yields a Conflict error.
	Replace(ctx context.Context, id string, d *types.Dictionary) error
	Delete(ctx context.Context, id string) error
	DeleteByIDs(ctx context.Context, ids []string) error
}

type dictionaryDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	types.Dictionary `bson:",inline"`
}

type dictionaryRepo struct {
	coll *mongo.Collection
	log  *logger.Logger
}

func NewDictionaryRepo(coll *mongo.Collection, baseLog *logger.Logger) DictionaryRepo {
	return &dictionaryRepo{coll: coll, log: baseLog.With("repo", "DictionaryRepo")}
}

func (dr *dictionaryRepo) Insert(ctx context.Context, d *types.Dictionary) (string, error) {
	doc := dictionaryDoc{ID: primitive.NewObjectID(), Dictionary: *d}
	doc.UpdatedAt = time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.UpdatedAt
	}
	if _, err := dr.coll.InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return doc.ID.Hex(), nil
}

func (dr *dictionaryRepo) GetByID(ctx context.Context, id string) (*types.Dictionary, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apierr.NotFound("dictionary %q not found", id)
	}
	var doc dictionaryDoc
	if err := dr.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apierr.NotFound("dictionary %q not found", id)
		}
		return nil, err
	}
	out := doc.Dictionary
	out.ID = doc.ID.Hex()
	return &out, nil
}

func (dr *dictionaryRepo) Replace(ctx context.Context, id string, d *types.Dictionary) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apierr.NotFound("dictionary %q not found", id)
	}
	replacement := dictionaryDoc{ID: oid, Dictionary: *d}
	replacement.Revision = d.Revision + 1
	replacement.UpdatedAt = time.Now().UTC()

	res, err := dr.coll.ReplaceOne(ctx, bson.M{"_id": oid, "revision": d.Revision}, replacement)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		count, cErr := dr.coll.CountDocuments(ctx, bson.M{"_id": oid})
		if cErr != nil {
			return cErr
		}
		if count == 0 {
			return apierr.NotFound("dictionary %q not found", id)
		}
		return apierr.Conflict("dictionary %q was modified concurrently", id)
	}
	d.Revision = replacement.Revision
	d.UpdatedAt = replacement.UpdatedAt
	return nil
}

func (dr *dictionaryRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apierr.NotFound("dictionary %q not found", id)
	}
	_, err = dr.coll.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

func (dr *dictionaryRepo) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			dr.log.Warn("Skipping malformed dictionary id", "id", id)
			continue
		}
		oids = append(oids, oid)
	}
	if len(oids) == 0 {
		return nil
	}
	_, err := dr.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": oids}})
	return err
}
