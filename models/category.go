package models

type Category struct {
	ID       uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string    `gorm:"size:100;unique;not null" json:"name"`
	Slug     string    `gorm:"size:100;unique;not null" json:"slug"`
	Products []Product `json:"-"`
}
