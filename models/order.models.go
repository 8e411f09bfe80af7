package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StatusPending is the status every new order starts in.
const StatusPending = "Pending"

// OrderItem is a line item owned by exactly one order.
type OrderItem struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	ProductID primitive.ObjectID `bson:"product" json:"product"`
}

// Order references its user and line items by identifier.
type Order struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	OrderItems       []primitive.ObjectID `bson:"orderItems" json:"orderItems"`
	ShippingAddress1 string               `bson:"shippingAddress1" json:"shippingAddress1"`
	ShippingAddress2 string               `bson:"shippingAddress2" json:"shippingAddress2"`
	City             string               `bson:"city" json:"city"`
	Zip              string               `bson:"zip" json:"zip"`
	Country          string               `bson:"country" json:"country"`
	Phone            string               `bson:"phone" json:"phone"`
	Status           string               `bson:"status" json:"status"`
	TotalPrice       float64              `bson:"totalPrice" json:"totalPrice"`
	UserID           primitive.ObjectID   `bson:"user,omitempty" json:"user,omitempty"`
	DateOrdered      time.Time            `bson:"dateOrdered" json:"dateOrdered"`
}

// OrderItemView is a line item with its product (and the product's category) populated.
type OrderItemView struct {
	ID       primitive.ObjectID `json:"id"`
	Quantity int                `json:"quantity"`
	Product  any                `json:"product"`
}

// OrderView is the populated response shape of an order.
type OrderView struct {
	Order
	OrderItems any `json:"orderItems"`
	User       any `json:"user,omitempty"`
}
