package productcontroller

import (
	"log"
	"net/http"

	"github.com/NguyenNhuTu09/TIT-Shop/storage"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// POST /api/products/:slug/image/ (multipart field "image")
func UploadProductImage(db *gorm.DB, store storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := findAvailableProduct(db, c.Param("slug"))
		if err != nil {
			respondLookupError(c, err)
			return
		}

		fileHeader, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Image file is required"})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open image"})
			return
		}
		defer file.Close()

		contentType := fileHeader.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		url, err := store.Save(c.Request.Context(), storage.ObjectKey("products", fileHeader.Filename), file, contentType)
		if err != nil {
			log.Printf("❌ Failed to store image for %s: %v", product.Slug, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save image"})
			return
		}

		if err := db.Model(&product).Update("image", url).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
			return
		}
		product.Image = url

		c.JSON(http.StatusOK, product)
	}
}
