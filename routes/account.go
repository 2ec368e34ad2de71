package routes

import (
	cartControllers "github.com/NguyenNhuTu09/TIT-Shop/controllers/cart"
	favoriteControllers "github.com/NguyenNhuTu09/TIT-Shop/controllers/favorite"
	reviewControllers "github.com/NguyenNhuTu09/TIT-Shop/controllers/review"
	userControllers "github.com/NguyenNhuTu09/TIT-Shop/controllers/user"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupAccountRoutes registers everything scoped to the authenticated user.
func SetupAccountRoutes(api *gin.RouterGroup, db *gorm.DB, requireUser gin.HandlerFunc) {
	account := api.Group("")
	account.Use(requireUser)
	{
		// ──────────────── Profile ────────────────
		account.GET("/profile/", userControllers.GetProfile(db))
		account.PUT("/profile/", userControllers.UpdateProfile(db))
		account.PATCH("/profile/", userControllers.UpdateProfile(db))

		// ──────────────── Shopping Cart ────────────────
		carts := account.Group("/carts")
		{
			carts.GET("/", cartControllers.ListCarts(db))
			carts.POST("/", cartControllers.CreateCart(db))
			carts.GET("/:id/", cartControllers.GetCart(db))
			carts.DELETE("/:id/", cartControllers.DeleteCartHandler(db))
			carts.POST("/:id/add_item/", cartControllers.AddItemHandler(db))
			carts.POST("/:id/update_item/", cartControllers.UpdateItemHandler(db))
			carts.DELETE("/:id/remove_item/", cartControllers.RemoveItemHandler(db))
		}

		// ──────────────── Reviews ────────────────
		reviews := account.Group("/reviews")
		{
			reviews.GET("/", reviewControllers.ListReviews(db))
			reviews.POST("/", reviewControllers.CreateReviewHandler(db))
			reviews.GET("/:id/", reviewControllers.GetReview(db))
			reviews.PUT("/:id/", reviewControllers.UpdateReview(db, false))
			reviews.PATCH("/:id/", reviewControllers.UpdateReview(db, true))
			reviews.DELETE("/:id/", reviewControllers.DeleteReview(db))
		}

		// ──────────────── Favorites ────────────────
		favorites := account.Group("/favorites")
		{
			favorites.GET("/", favoriteControllers.ListFavorites(db))
			favorites.POST("/", favoriteControllers.CreateFavorite(db))
			favorites.GET("/:id/", favoriteControllers.GetFavorite(db))
			favorites.DELETE("/:id/", favoriteControllers.DeleteFavorite(db))
		}
	}
}
