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

// MongoOrderStore stores orders and their line items in two collections.
// No transaction spans the two.
type MongoOrderStore struct {
	Orders *mongo.Collection
	Items  *mongo.Collection
}

func NewMongoOrderStore(db *mongo.Database) *MongoOrderStore {
	return &MongoOrderStore{
		Orders: db.Collection(OrdersCollection),
		Items:  db.Collection(OrderItemsCollection),
	}
}

func (s *MongoOrderStore) InsertItem(ctx context.Context, item *models.OrderItem) error {
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	_, err := s.Items.InsertOne(ctx, item)
	return err
}

func (s *MongoOrderStore) FindItem(ctx context.Context, id primitive.ObjectID) (*models.OrderItem, error) {
	return findOne[models.OrderItem](ctx, s.Items, bson.M{"_id": id})
}

func (s *MongoOrderStore) FindItems(ctx context.Context, ids []primitive.ObjectID) ([]models.OrderItem, error) {
	return findAll[models.OrderItem](ctx, s.Items, idsFilter(ids))
}

func (s *MongoOrderStore) DeleteItem(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, s.Items, id)
}

func (s *MongoOrderStore) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	query := bson.M{}
	if filter.UserID != nil {
		query["user"] = *filter.UserID
	}
	opts := options.Find().SetSort(bson.D{{Key: "dateOrdered", Value: -1}})
	return findAll[models.Order](ctx, s.Orders, query, opts)
}

func (s *MongoOrderStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return findOne[models.Order](ctx, s.Orders, bson.M{"_id": id})
}

func (s *MongoOrderStore) Insert(ctx context.Context, order *models.Order) error {
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	_, err := s.Orders.InsertOne(ctx, order)
	return err
}

func (s *MongoOrderStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) (*models.Order, error) {
	var order models.Order
	err := s.Orders.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *MongoOrderStore) Delete(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	err := s.Orders.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *MongoOrderStore) Count(ctx context.Context) (int64, error) {
	return s.Orders.CountDocuments(ctx, bson.M{})
}

// TotalSales sums totalPrice over every order.
func (s *MongoOrderStore) TotalSales(ctx context.Context) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalsales", Value: bson.D{{Key: "$sum", Value: "$totalPrice"}}},
		}}},
	}
	cursor, err := s.Orders.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		TotalSales float64 `bson:"totalsales"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].TotalSales, nil
}
