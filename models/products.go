package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID           uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string          `gorm:"size:200;not null" json:"name"`
	Slug         string          `gorm:"size:200;uniqueIndex;not null" json:"slug"`
	Description  string          `gorm:"type:text" json:"description"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Stock        int             `gorm:"not null;default:0" json:"stock"`
	Image        string          `json:"image"`
	IsAvailable  bool            `gorm:"not null" json:"is_available"`
	CategoryID   uint            `gorm:"index;not null" json:"-"`
	Category     Category        `json:"-"`
	CategoryName string          `gorm:"-" json:"category_name"` // filled from the preloaded Category
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"-"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (p *Product) AfterFind(tx *gorm.DB) error {
	if p.Category.ID != 0 {
		p.CategoryName = p.Category.Name
	}
	return nil
}

// Subtotal is price times quantity.
func (p Product) Subtotal(quantity int) decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(quantity)))
}

// MarshalJSON writes the price with two decimal places, like the decimal(10,2) column.
func (p Product) MarshalJSON() ([]byte, error) {
	type product Product
	return json.Marshal(struct {
		product
		Price string `json:"price"`
	}{product(p), p.Price.StringFixed(2)})
}
