// Package store holds the persistence interfaces of the shop and their
// MongoDB and in-memory implementations.
package store

import (
	"context"
	"errors"
	"fmt"

	"eshop/models"
	"eshop/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when an identifier does not resolve.
	ErrNotFound = fmt.Errorf("document %w", utils.ErrNotFound)
	// ErrDuplicate is returned when a unique field is already taken.
	ErrDuplicate = fmt.Errorf("%w: duplicate key", utils.ErrValidation)
)

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// UserStore persists user accounts.
type UserStore interface {
	List(ctx context.Context) ([]models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) error
	Replace(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
}

// CategoryStore persists categories.
type CategoryStore interface {
	List(ctx context.Context) ([]models.Category, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Category, error)
	Insert(ctx context.Context, category *models.Category) error
	Replace(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
}

// ProductFilter narrows a product listing. Zero values mean "no constraint".
type ProductFilter struct {
	CategoryIDs  []primitive.ObjectID
	FeaturedOnly bool
	Limit        int64
}

// ProductStore persists products.
type ProductStore interface {
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error)
	Insert(ctx context.Context, product *models.Product) error
	Replace(ctx context.Context, product *models.Product) error
	SetImages(ctx context.Context, id primitive.ObjectID, images []string) (*models.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
}

// OrderItemStore persists order line items.
type OrderItemStore interface {
	InsertItem(ctx context.Context, item *models.OrderItem) error
	FindItem(ctx context.Context, id primitive.ObjectID) (*models.OrderItem, error)
	FindItems(ctx context.Context, ids []primitive.ObjectID) ([]models.OrderItem, error)
	DeleteItem(ctx context.Context, id primitive.ObjectID) error
}

// OrderFilter narrows an order listing.
type OrderFilter struct {
	UserID *primitive.ObjectID
}

// OrderStore persists orders. Listings are sorted newest first.
type OrderStore interface {
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	Insert(ctx context.Context, order *models.Order) error
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) (*models.Order, error)
	// Delete removes the order and returns the removed document.
	Delete(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	Count(ctx context.Context) (int64, error)
	TotalSales(ctx context.Context) (float64, error)
}

// Stores bundles every collection the server uses.
type Stores struct {
	Users      UserStore
	Categories CategoryStore
	Products   ProductStore
	Orders     OrderStore
	OrderItems OrderItemStore
}
