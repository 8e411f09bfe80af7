package store

import (
	"context"

	"eshop/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoUserStore stores users in the users collection.
type MongoUserStore struct {
	Collection *mongo.Collection
}

func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{Collection: db.Collection(UsersCollection)}
}

func (s *MongoUserStore) List(ctx context.Context) ([]models.User, error) {
	return findAll[models.User](ctx, s.Collection, bson.M{})
}

func (s *MongoUserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return findOne[models.User](ctx, s.Collection, bson.M{"_id": id})
}

func (s *MongoUserStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	return findAll[models.User](ctx, s.Collection, idsFilter(ids))
}

func (s *MongoUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne[models.User](ctx, s.Collection, bson.M{"email": email})
}

func (s *MongoUserStore) Insert(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	_, err := s.Collection.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (s *MongoUserStore) Replace(ctx context.Context, user *models.User) error {
	err := replaceByID(ctx, s.Collection, user.ID, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (s *MongoUserStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, s.Collection, id)
}

func (s *MongoUserStore) Count(ctx context.Context) (int64, error) {
	return s.Collection.CountDocuments(ctx, bson.M{})
}
