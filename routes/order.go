package routes

import (
	orderControllers "github.com/NguyenNhuTu09/TIT-Shop/controllers/order"
	"github.com/NguyenNhuTu09/TIT-Shop/events"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func SetupOrderRoutes(api *gin.RouterGroup, db *gorm.DB, requireUser gin.HandlerFunc, publisher events.Publisher) {
	orders := api.Group("/orders")
	orders.Use(requireUser)
	{
		// The requester's own orders
		orders.GET("/", orderControllers.ListOrders(db))
		orders.GET("/:id/", orderControllers.GetOrder(db))
	}

	order := api.Group("/order")
	order.Use(requireUser)
	{
		// Create a new order
		order.POST("/create/", orderControllers.CreateOrderHandler(db, publisher))

		// Update order status (e.g., shipped, cancelled)
		order.PATCH("/:id/status/", orderControllers.UpdateOrderStatusHandler(db, publisher))
	}
}
