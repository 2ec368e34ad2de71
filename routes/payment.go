package routes

import (
	orderControllers "github.com/NguyenNhuTu09/TIT-Shop/controllers/order"
	"github.com/NguyenNhuTu09/TIT-Shop/events"
	"github.com/NguyenNhuTu09/TIT-Shop/middleware"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func SetupPaymentRoutes(api *gin.RouterGroup, db *gorm.DB, secret string, publisher events.Publisher) {
	payments := api.Group("/payments")
	{
		// Webhook endpoint: middleware verifies the body signature
		payments.POST("/webhook/",
			middleware.PaymentWebhookAuth(secret),
			orderControllers.PaymentWebhookHandler(db, publisher),
		)
	}
}
