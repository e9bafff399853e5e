package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jlmsdev/webCarros/internal/listing/domain"
	"github.com/jlmsdev/webCarros/internal/platform/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// prefixUpperBound closes the name range for prefix search.
const prefixUpperBound = "\uf8ff"

type ListingRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
	now        func() time.Time
}

// NewListingRepository binds the repository to the listings collection ("cars" by default).
func NewListingRepository(db *mongo.Database, collection string, log *logger.Logger) *ListingRepository {
	return &ListingRepository{
		collection: db.Collection(collection),
		logger:     log.Named("ListingRepository"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// EnsureIndexes creates the indexes the feed, dashboard and search queries rely on.
func (r *ListingRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "uid", Value: 1}, {Key: "created", Value: -1}}},
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "created", Value: -1}}},
	}
	names, err := r.collection.Indexes().CreateMany(ctx, models)
	if err != nil {
		r.logger.Error("EnsureIndexes: CreateMany failed", zap.Error(err))
		return fmt.Errorf("create listing indexes: %w", err)
	}
	r.logger.Info("listing indexes ensured", zap.Strings("indexes", names))
	return nil
}

func (r *ListingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	listing.Created = r.now()

	doc, err := toListingDocument(listing)
	if err != nil {
		r.logger.Error("Create: failed to convert domain to document", zap.Error(err))
		return fmt.Errorf("failed to prepare listing for database: %w", err)
	}

	res, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		r.logger.Error("Create: InsertOne failed", zap.String("uid", listing.UID), zap.Error(err))
		return err
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		r.logger.Error("Create: InsertOne returned unexpected ID type", zap.String("type", fmt.Sprintf("%T", res.InsertedID)))
		return errors.New("failed to retrieve generated listing ID")
	}
	listing.ID = oid.Hex()
	r.logger.Debug("listing inserted", zap.String("id", listing.ID), zap.String("uid", listing.UID))
	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrListingNotFound
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		r.logger.Error("Delete: DeleteOne failed", zap.String("id", id), zap.Error(err))
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func (r *ListingRepository) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrListingNotFound
	}
	var doc listingDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrListingNotFound
		}
		r.logger.Error("FindByID: FindOne failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toDomainListing(&doc), nil
}

// Find selects listings newest first. A non-empty term is matched as a name
// prefix; OwnerID restricts to one owner.
func (r *ListingRepository) Find(ctx context.Context, q domain.SearchQuery) ([]*domain.Listing, error) {
	filter := buildFilter(q)
	opts := options.Find().SetSort(bson.D{{Key: "created", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Find: query failed", zap.Any("filter", filter), zap.Error(err))
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []*listingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("Find: cursor decode failed", zap.Error(err))
		return nil, err
	}
	return toDomainListings(docs), nil
}

// buildFilter translates a SearchQuery into a Mongo filter.
func buildFilter(q domain.SearchQuery) bson.M {
	filter := bson.M{}
	if q.Term != "" {
		// Names are stored upper-cased, so the prefix match is the half-open
		// range [TERM, TERM+"\uf8ff").
		filter["name"] = bson.M{"$gte": q.Term, "$lt": q.Term + prefixUpperBound}
	}
	// Dashboard query: equality on the owner id.
	if q.OwnerID != "" {
		filter["uid"] = q.OwnerID
	}
	return filter
}
