package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Cart struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UserID     uint            `gorm:"uniqueIndex;not null" json:"-"` // Enforces ONE cart per user
	User       User            `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UserName   string          `gorm:"-" json:"user"`
	Items      []CartItem      `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"` // Cascade delete items if cart is deleted
	TotalPrice decimal.Decimal `gorm:"-" json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CartID    uint      `gorm:"uniqueIndex:idx_cart_product;not null" json:"-"`
	ProductID uint      `gorm:"uniqueIndex:idx_cart_product;not null" json:"-"`
	Product   Product   `json:"product"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	AddedAt   time.Time `gorm:"autoCreateTime" json:"added_at"`
}

func (c *Cart) AfterFind(tx *gorm.DB) error {
	if c.User.ID != 0 {
		c.UserName = c.User.Username
	}
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Product.Subtotal(item.Quantity))
	}
	c.TotalPrice = total
	return nil
}

func (c Cart) MarshalJSON() ([]byte, error) {
	type cart Cart
	return json.Marshal(struct {
		cart
		TotalPrice string `json:"total_price"`
	}{cart(c), c.TotalPrice.StringFixed(2)})
}
