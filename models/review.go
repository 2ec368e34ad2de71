package models

import (
	"time"

	"gorm.io/gorm"
)

type ProductReview struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_review_user_product;not null" json:"-"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UserName  string    `gorm:"-" json:"user"`
	ProductID uint      `gorm:"uniqueIndex:idx_review_user_product;not null" json:"product"`
	Product   Product   `json:"-"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_favorite_user_product;not null" json:"-"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UserName  string    `gorm:"-" json:"user"`
	ProductID uint      `gorm:"uniqueIndex:idx_favorite_user_product;not null" json:"product"`
	Product   Product   `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *ProductReview) AfterFind(tx *gorm.DB) error {
	if r.User.ID != 0 {
		r.UserName = r.User.Username
	}
	return nil
}

func (f *Favorite) AfterFind(tx *gorm.DB) error {
	if f.User.ID != 0 {
		f.UserName = f.User.Username
	}
	return nil
}

// All lists every model for migrations.
func All() []interface{} {
	return []interface{}{
		&User{},
		&AuthToken{},
		&Category{},
		&Product{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&ProductReview{},
		&Favorite{},
	}
}
