package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderItem is a frozen copy of a catalog product taken when the order is
// placed. It is never joined back to the live catalog.
type OrderItem struct {
	Product  primitive.ObjectID `bson:"product" json:"product"`
	Name     string             `bson:"name" json:"name"`
	Slug     string             `bson:"slug" json:"slug"`
	Image    string             `bson:"image" json:"image"`
	Price    float64            `bson:"price" json:"price"`
	Quantity int                `bson:"quantity" json:"quantity"`
}

type Location struct {
	Lat             float64 `bson:"lat" json:"lat"`
	Lng             float64 `bson:"lng" json:"lng"`
	Address         string  `bson:"address,omitempty" json:"address,omitempty"`
	Name            string  `bson:"name,omitempty" json:"name,omitempty"`
	Vicinity        string  `bson:"vicinity,omitempty" json:"vicinity,omitempty"`
	GoogleAddressID string  `bson:"googleAddressId,omitempty" json:"googleAddressId,omitempty"`
}

type ShippingAddress struct {
	FullName   string    `bson:"fullName" json:"fullName"`
	Address    string    `bson:"address" json:"address"`
	City       string    `bson:"city" json:"city"`
	PostalCode string    `bson:"postalCode" json:"postalCode"`
	Country    string    `bson:"country" json:"country"`
	Location   *Location `bson:"location,omitempty" json:"location,omitempty"`
}

// Complete reports whether every required address line is present.
func (a ShippingAddress) Complete() bool {
	return a.FullName != "" && a.Address != "" && a.City != "" && a.PostalCode != "" && a.Country != ""
}

// PaymentResult is the processor confirmation stored verbatim once paid.
type PaymentResult struct {
	ID           string `bson:"id" json:"id"`
	Status       string `bson:"status" json:"status"`
	UpdateTime   string `bson:"update_time" json:"update_time"`
	EmailAddress string `bson:"email_address" json:"email_address"`
}

type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	OrderItems      []OrderItem        `bson:"orderItems" json:"orderItems"`
	ShippingAddress ShippingAddress    `bson:"shippingAddress" json:"shippingAddress"`
	PaymentMethod   string             `bson:"paymentMethod" json:"paymentMethod"`
	PaymentResult   *PaymentResult     `bson:"paymentResult,omitempty" json:"paymentResult,omitempty"`
	ItemsPrice      float64            `bson:"itemsPrice" json:"itemsPrice"`
	ShippingPrice   float64            `bson:"shippingPrice" json:"shippingPrice"`
	TaxPrice        float64            `bson:"taxPrice" json:"taxPrice"`
	TotalPrice      float64            `bson:"totalPrice" json:"totalPrice"`
	User            string             `bson:"user" json:"user"`
	IsPaid          bool               `bson:"isPaid" json:"isPaid"`
	PaidAt          *time.Time         `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	IsDelivered     bool               `bson:"isDelivered" json:"isDelivered"`
	DeliveredAt     *time.Time         `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// UserRef is the owner projection returned by the admin order listing.
type UserRef struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// OrderWithUser shadows Order.User with the resolved owner.
type OrderWithUser struct {
	Order
	User *UserRef `json:"user"`
}

type UserStat struct {
	NumUsers int64 `json:"numUsers"`
}

type OrderStat struct {
	NumOrders  int64   `bson:"numOrders" json:"numOrders"`
	TotalSales float64 `bson:"totalSales" json:"totalSales"`
}

type DailyStat struct {
	Date   string  `bson:"_id" json:"_id"`
	Orders int64   `bson:"orders" json:"orders"`
	Sales  float64 `bson:"sales" json:"sales"`
}

type CategoryCount struct {
	Category string `bson:"_id" json:"_id"`
	Count    int64  `bson:"count" json:"count"`
}

type Summary struct {
	Users             []UserStat      `json:"users"`
	Orders            []OrderStat     `json:"orders"`
	DailyOrders       []DailyStat     `json:"dailyOrders"`
	ProductCategories []CategoryCount `json:"productCategories"`
}
