package routes

import (
	productcontroller "github.com/NguyenNhuTu09/TIT-Shop/controllers/product"
	reviewControllers "github.com/NguyenNhuTu09/TIT-Shop/controllers/review"
	"github.com/NguyenNhuTu09/TIT-Shop/middleware"
	"github.com/NguyenNhuTu09/TIT-Shop/storage"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupCatalogRoutes registers categories and products. Reads are public,
// product writes need a staff user.
func SetupCatalogRoutes(api *gin.RouterGroup, db *gorm.DB, requireUser gin.HandlerFunc, store storage.Store) {
	// ──────────────── Categories ────────────────
	api.GET("/categories/", productcontroller.GetAllCategories(db))
	api.GET("/categories/:id/", productcontroller.GetCategoryByID(db))

	// ──────────────── Products ────────────────
	api.GET("/products/", productcontroller.GetProducts(db))
	api.GET("/products/:slug/", productcontroller.GetProductBySlug(db))
	api.GET("/products/:slug/reviews/", reviewControllers.ListProductReviews(db))

	staff := []gin.HandlerFunc{requireUser, middleware.RequireStaff}
	api.POST("/products/", append(staff, productcontroller.CreateProduct(db))...)
	api.PUT("/products/:slug/", append(staff, productcontroller.UpdateProduct(db, false))...)
	api.PATCH("/products/:slug/", append(staff, productcontroller.UpdateProduct(db, true))...)
	api.DELETE("/products/:slug/", append(staff, productcontroller.DeleteProduct(db))...)
	if store != nil {
		api.POST("/products/:slug/image/", append(staff, productcontroller.UploadProductImage(db, store))...)
	}
}
