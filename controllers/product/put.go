package productcontroller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UpdateProduct handles PUT (partial=false, all required fields) and PATCH
// (partial=true) on /api/products/:slug/.
func UpdateProduct(db *gorm.DB, partial bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := findAvailableProduct(db, c.Param("slug"))
		if err != nil {
			respondLookupError(c, err)
			return
		}

		var input ProductInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		if err := input.validate(!partial); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := input.apply(db, &product); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := db.Omit("Category").Save(&product).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
			return
		}

		product.CategoryName = product.Category.Name
		c.JSON(http.StatusOK, product)
	}
}
