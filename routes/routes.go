package routes

import (
	"github.com/NguyenNhuTu09/TIT-Shop/auth"
	"github.com/NguyenNhuTu09/TIT-Shop/config"
	orderControllers "github.com/NguyenNhuTu09/TIT-Shop/controllers/order"
	"github.com/NguyenNhuTu09/TIT-Shop/events"
	"github.com/NguyenNhuTu09/TIT-Shop/middleware"
	"github.com/NguyenNhuTu09/TIT-Shop/storage"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Options carries the collaborators the handlers need besides the database.
type Options struct {
	Config    *config.Config
	Tokens    *auth.TokenManager
	Publisher events.Publisher
	Hub       *orderControllers.Hub // optional admin websocket feed
	Store     storage.Store
}

// SetupRoutes is the single entry‐point that wires every "/api" route group.
func SetupRoutes(r *gin.Engine, db *gorm.DB, opts Options) {
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}

	api := r.Group("/api")
	requireUser := middleware.ValidateToken(db, opts.Tokens)

	// 1️⃣ Public auth routes (register, login, JWT pair)
	SetupAuthRoutes(api, db, opts.Tokens)

	// 2️⃣ Catalog: public reads, staff writes
	SetupCatalogRoutes(api, db, requireUser, opts.Store)

	// 3️⃣ Account routes (token protected)
	SetupAccountRoutes(api, db, requireUser)

	// 4️⃣ Orders
	SetupOrderRoutes(api, db, requireUser, opts.Publisher)

	// 5️⃣ Payment provider webhook (HMAC protected)
	SetupPaymentRoutes(api, db, opts.Config.PaymentWebhookSecret, opts.Publisher)

	// 6️⃣ Admin routes (API‐Key‐protected)
	SetupAdminRoutes(api, db, opts.Config.AdminAPIKey, opts.Hub)
}
