package store

import (
	"context"

	"eshop/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoCategoryStore stores categories in the categories collection.
type MongoCategoryStore struct {
	Collection *mongo.Collection
}

func NewMongoCategoryStore(db *mongo.Database) *MongoCategoryStore {
	return &MongoCategoryStore{Collection: db.Collection(CategoriesCollection)}
}

func (s *MongoCategoryStore) List(ctx context.Context) ([]models.Category, error) {
	return findAll[models.Category](ctx, s.Collection, bson.M{})
}

func (s *MongoCategoryStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	return findOne[models.Category](ctx, s.Collection, bson.M{"_id": id})
}

func (s *MongoCategoryStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Category, error) {
	return findAll[models.Category](ctx, s.Collection, idsFilter(ids))
}

func (s *MongoCategoryStore) Insert(ctx context.Context, category *models.Category) error {
	if category.ID.IsZero() {
		category.ID = primitive.NewObjectID()
	}
	_, err := s.Collection.InsertOne(ctx, category)
	return err
}

func (s *MongoCategoryStore) Replace(ctx context.Context, category *models.Category) error {
	return replaceByID(ctx, s.Collection, category.ID, category)
}

func (s *MongoCategoryStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, s.Collection, id)
}

func (s *MongoCategoryStore) Count(ctx context.Context) (int64, error) {
	return s.Collection.CountDocuments(ctx, bson.M{})
}
