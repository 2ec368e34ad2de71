package productcontroller

import (
	"errors"
	"net/http"

	"github.com/NguyenNhuTu09/TIT-Shop/database"
	"github.com/NguyenNhuTu09/TIT-Shop/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// DELETE /api/products/:slug/
func DeleteProduct(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := findAvailableProduct(db, c.Param("slug"))
		if err != nil {
			respondLookupError(c, err)
			return
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			// product before cart items, the same order the cart actions lock in
			if err := database.ForUpdate(tx).First(&models.Product{}, product.ID).Error; err != nil {
				return err
			}
			// Drop it from carts; order items keep pointing at the soft-deleted row
			if err := tx.Where("product_id = ?", product.ID).Delete(&models.CartItem{}).Error; err != nil {
				return err
			}
			return tx.Delete(&product).Error
		})
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondLookupError(c, err)
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
			return
		}

		c.Status(http.StatusNoContent)
	}
}
