package productcontroller

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/NguyenNhuTu09/TIT-Shop/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	maxPrice    = decimal.RequireFromString("99999999.99")
)

// ProductInput serves create, full update and partial update. Nil fields are
// left untouched on PATCH and are required on POST/PUT where noted.
type ProductInput struct {
	Name        *string          `json:"name"`
	Slug        *string          `json:"slug"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Image       *string          `json:"image"`
	IsAvailable *bool            `json:"is_available"`
	Category    *uint            `json:"category"` // write-only category id
}

// validate checks the provided fields; full requires name, slug, price and category.
func (in ProductInput) validate(full bool) error {
	if full {
		switch {
		case in.Name == nil:
			return errors.New("name is required")
		case in.Slug == nil:
			return errors.New("slug is required")
		case in.Price == nil:
			return errors.New("price is required")
		case in.Category == nil:
			return errors.New("category is required")
		}
	}
	if in.Name != nil && (strings.TrimSpace(*in.Name) == "" || len(*in.Name) > 200) {
		return errors.New("name must be 1-200 characters")
	}
	if in.Slug != nil && (!slugPattern.MatchString(*in.Slug) || len(*in.Slug) > 200) {
		return errors.New("slug may contain only letters, numbers, hyphens and underscores")
	}
	if in.Price != nil && (in.Price.IsNegative() || in.Price.GreaterThan(maxPrice)) {
		return errors.New("price must be between 0 and 99999999.99")
	}
	if in.Stock != nil && *in.Stock < 0 {
		return errors.New("stock must not be negative")
	}
	return nil
}

// apply copies the provided fields onto product after checking the category
// exists and the slug is free.
func (in ProductInput) apply(db *gorm.DB, product *models.Product) error {
	if in.Category != nil {
		var category models.Category
		if err := db.First(&category, *in.Category).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("category does not exist")
			}
			return err
		}
		product.CategoryID = category.ID
		product.Category = category
	}
	if in.Slug != nil {
		var count int64
		if err := db.Unscoped().Model(&models.Product{}).
			Where("slug = ? AND id <> ?", *in.Slug, product.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errors.New("product with this slug already exists")
		}
		product.Slug = *in.Slug
	}
	if in.Name != nil {
		product.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		product.Description = *in.Description
	}
	if in.Price != nil {
		product.Price = in.Price.Round(2)
	}
	if in.Stock != nil {
		product.Stock = *in.Stock
	}
	if in.Image != nil {
		product.Image = *in.Image
	}
	if in.IsAvailable != nil {
		product.IsAvailable = *in.IsAvailable
	}
	return nil
}

// POST /api/products/
func CreateProduct(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input ProductInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		if err := input.validate(true); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		product := models.Product{IsAvailable: true}
		if err := input.apply(db, &product); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := db.Omit("Category").Create(&product).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
			return
		}

		product.CategoryName = product.Category.Name
		c.JSON(http.StatusCreated, product)
	}
}
