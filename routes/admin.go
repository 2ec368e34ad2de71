package routes

import (
	adminController "github.com/NguyenNhuTu09/TIT-Shop/controllers/admin"
	cartControllers "github.com/NguyenNhuTu09/TIT-Shop/controllers/cart"
	orderControllers "github.com/NguyenNhuTu09/TIT-Shop/controllers/order"
	productcontroller "github.com/NguyenNhuTu09/TIT-Shop/controllers/product"
	userControllers "github.com/NguyenNhuTu09/TIT-Shop/controllers/user"
	"github.com/NguyenNhuTu09/TIT-Shop/middleware"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupAdminRoutes registers all "/api/admin/*" endpoints. Requires API‐Key middleware.
func SetupAdminRoutes(api *gin.RouterGroup, db *gorm.DB, apiKey string, hub *orderControllers.Hub) {
	adminGroup := api.Group("/admin")
	adminGroup.Use(middleware.ValidateAPIKey(apiKey))
	{
		// ─────────── User Management ───────────
		adminGroup.GET("/users", userControllers.GetAllUsers(db))
		staffAdmin := adminGroup.Group("/staff")
		{
			staffAdmin.GET("", adminController.ListStaff(db))
			staffAdmin.POST("/approve", adminController.UpdateStaff(db, true))
			staffAdmin.POST("/revoke", adminController.UpdateStaff(db, false))
		}

		// ─────────── Product Management ───────────
		productAdmin := adminGroup.Group("/products")
		{
			productAdmin.POST("/import-excel", productcontroller.ImportProductsFromExcel(db))
			productAdmin.GET("/export-excel", productcontroller.ExportProductsToExcel(db))
		}

		// ─────────── Category Management ───────────
		categoryAdmin := adminGroup.Group("/categories")
		{
			categoryAdmin.POST("", productcontroller.CreateCategory(db))
			categoryAdmin.PUT("/:id", productcontroller.UpdateCategory(db))
			categoryAdmin.GET("", productcontroller.GetAllCategories(db))
			categoryAdmin.DELETE("/:id", productcontroller.DeleteCategory(db))
		}

		// ─────────── Order Management ───────────
		orderAdmin := adminGroup.Group("/orders")
		{
			orderAdmin.GET("", orderControllers.GetAllOrdersHandler(db))
			orderAdmin.DELETE("/:id", orderControllers.DeleteOrderHandler(db))
		}
		if hub != nil {
			// websocket endpoint for real-time order events
			adminGroup.GET("/ws/orders", hub.Handler)
		}

		cartMgmt := adminGroup.Group("/user-cart")
		{
			cartMgmt.GET("/:user_id", cartControllers.GetAdminUserCart(db))
		}
	}
}
