package routes

import (
	"github.com/NguyenNhuTu09/TIT-Shop/auth"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupAuthRoutes registers the public account endpoints.
func SetupAuthRoutes(api *gin.RouterGroup, db *gorm.DB, tokens *auth.TokenManager) {
	api.POST("/register/", auth.Register(db))
	api.POST("/login/", auth.Login(db))
	api.POST("/token/", auth.ObtainTokenPair(db, tokens))
	api.POST("/token/refresh/", auth.RefreshToken(tokens))
}
