package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Review struct {
	Name      string    `bson:"name" json:"name"`
	Comment   string    `bson:"comment" json:"comment"`
	Rating    float64   `bson:"rating" json:"rating"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

type Product struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name         string             `bson:"name" json:"name"`
	Slug         string             `bson:"slug" json:"slug"`
	Image        string             `bson:"image" json:"image"`
	Images       []string           `bson:"images" json:"images"`
	Brand        string             `bson:"brand" json:"brand"`
	Category     string             `bson:"category" json:"category"`
	Description  string             `bson:"description" json:"description"`
	Price        float64            `bson:"price" json:"price"`
	CountInStock int                `bson:"countInStock" json:"countInStock"`
	Rating       float64            `bson:"rating" json:"rating"`
	NumReviews   int                `bson:"numReviews" json:"numReviews"`
	Reviews      []Review           `bson:"reviews" json:"reviews"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Snapshot freezes the product into an order line.
func (p *Product) Snapshot(quantity int) OrderItem {
	return OrderItem{
		Product:  p.ID,
		Name:     p.Name,
		Slug:     p.Slug,
		Image:    p.Image,
		Price:    p.Price,
		Quantity: quantity,
	}
}
