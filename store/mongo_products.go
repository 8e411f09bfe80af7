package store

import (
	"context"
	"errors"

	"eshop/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoProductStore stores products in the products collection.
type MongoProductStore struct {
	Collection *mongo.Collection
}

func NewMongoProductStore(db *mongo.Database) *MongoProductStore {
	return &MongoProductStore{Collection: db.Collection(ProductsCollection)}
}

func (s *MongoProductStore) List(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	query := bson.M{}
	if len(filter.CategoryIDs) > 0 {
		query["categoryID"] = bson.M{"$in": filter.CategoryIDs}
	}
	if filter.FeaturedOnly {
		query["isFeatured"] = true
	}
	opts := options.Find()
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}
	return findAll[models.Product](ctx, s.Collection, query, opts)
}

func (s *MongoProductStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	return findOne[models.Product](ctx, s.Collection, bson.M{"_id": id})
}

func (s *MongoProductStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	return findAll[models.Product](ctx, s.Collection, idsFilter(ids))
}

func (s *MongoProductStore) Insert(ctx context.Context, product *models.Product) error {
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	_, err := s.Collection.InsertOne(ctx, product)
	return err
}

func (s *MongoProductStore) Replace(ctx context.Context, product *models.Product) error {
	return replaceByID(ctx, s.Collection, product.ID, product)
}

func (s *MongoProductStore) SetImages(ctx context.Context, id primitive.ObjectID, images []string) (*models.Product, error) {
	var product models.Product
	err := s.Collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"images": images}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *MongoProductStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, s.Collection, id)
}

func (s *MongoProductStore) Count(ctx context.Context) (int64, error) {
	return s.Collection.CountDocuments(ctx, bson.M{})
}
