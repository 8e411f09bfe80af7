package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxStock is the upper bound of Product.CountInStock.
const MaxStock = 255

// Product is a catalog entry referencing one Category.
type Product struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name            string             `bson:"name" json:"name"`
	Description     string             `bson:"description" json:"description"`
	RichDescription string             `bson:"richDescription" json:"richDescription"`
	Image           string             `bson:"image" json:"image"`
	Images          []string           `bson:"images" json:"images"`
	Brand           string             `bson:"brand" json:"brand"`
	Price           float64            `bson:"price" json:"price"`
	CategoryID      primitive.ObjectID `bson:"categoryID" json:"-"`
	CountInStock    int                `bson:"countInStock" json:"countInStock"`
	Rating          float64            `bson:"rating" json:"rating"`
	NumReviews      int                `bson:"numReviews" json:"numReviews"`
	IsFeatured      bool               `bson:"isFeatured" json:"isFeatured"`
	DateCreated     time.Time          `bson:"dateCreated" json:"dateCreated"`
}

// ProductView is the response shape of a product: the category reference is
// either the bare identifier or, when populated, the full category.
type ProductView struct {
	Product
	CategoryID any `json:"categoryID"`
}

// View renders p with its category populated when cat is non-nil.
func (p Product) View(cat *Category) ProductView {
	v := ProductView{Product: p, CategoryID: p.CategoryID}
	if cat != nil {
		v.CategoryID = cat
	}
	if v.Images == nil {
		v.Images = []string{}
	}
	return v
}
