package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"   // Order placed
	OrderStatusShipped   OrderStatus = "shipped"   // Out for delivery
	OrderStatusDelivered OrderStatus = "delivered" // Customer received the items
	OrderStatusCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UserID     uint            `gorm:"index;not null" json:"-"`
	User       User            `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UserName   string          `gorm:"-" json:"user"`
	FirstName  string          `gorm:"size:50;not null" json:"first_name"`
	LastName   string          `gorm:"size:50;not null" json:"last_name"`
	Email      string          `gorm:"size:254;not null" json:"email"`
	Address    string          `gorm:"size:250;not null" json:"address"`
	PostalCode string          `gorm:"size:20;not null" json:"postal_code"`
	City       string          `gorm:"size:100;not null" json:"city"`
	CreatedAt  time.Time       `json:"created_at"`
	Paid       bool            `gorm:"not null;default:false" json:"paid"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_price"`
	Status     OrderStatus     `gorm:"type:VARCHAR(20);default:'pending'" json:"status"`
	Items      []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"index;not null" json:"-"`
	ProductID uint            `gorm:"index;not null" json:"-"`
	Product   Product         `json:"product"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"` // unit price at purchase time
	Quantity  int             `gorm:"not null" json:"quantity"`
}

func (o *Order) AfterFind(tx *gorm.DB) error {
	if o.User.ID != 0 {
		o.UserName = o.User.Username
	}
	return nil
}

func (o Order) MarshalJSON() ([]byte, error) {
	type order Order
	return json.Marshal(struct {
		order
		TotalPrice string `json:"total_price"`
	}{order(o), o.TotalPrice.StringFixed(2)})
}

func (i OrderItem) MarshalJSON() ([]byte, error) {
	type orderItem OrderItem
	return json.Marshal(struct {
		orderItem
		Price string `json:"price"`
	}{orderItem(i), i.Price.StringFixed(2)})
}
