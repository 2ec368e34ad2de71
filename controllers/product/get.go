package productcontroller

import (
	"errors"
	"net/http"

	"github.com/NguyenNhuTu09/TIT-Shop/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// findAvailableProduct looks a product up by slug among available products.
func findAvailableProduct(db *gorm.DB, slug string) (models.Product, error) {
	var product models.Product
	err := db.Preload("Category").
		Where("slug = ? AND is_available = ?", slug, true).
		First(&product).Error
	return product, err
}

// respondLookupError writes 404 for a missing product and 500 otherwise.
func respondLookupError(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve product"})
}

// GET /api/products/:slug/
func GetProductBySlug(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := findAvailableProduct(db, c.Param("slug"))
		if err != nil {
			respondLookupError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}
