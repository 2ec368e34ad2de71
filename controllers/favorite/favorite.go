package favoriteControllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/NguyenNhuTu09/TIT-Shop/middleware"
	"github.com/NguyenNhuTu09/TIT-Shop/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound  = errors.New("product does not exist")
	ErrAlreadyFavorited = errors.New("product is already in favorites")
)

type FavoriteInput struct {
	Product uint `json:"product" binding:"required"`
}

// AddFavorite marks the product as a favorite of the user.
func AddFavorite(db *gorm.DB, userID, productID uint) (models.Favorite, error) {
	favorite := models.Favorite{UserID: userID, ProductID: productID}
	err := db.Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Select("id").First(&product, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.Favorite{}).
			Where("user_id = ? AND product_id = ?", userID, productID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyFavorited
		}
		if err := tx.Omit("User", "Product").Create(&favorite).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyFavorited
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.Favorite{}, err
	}
	return loadFavorite(db, userID, favorite.ID)
}

func loadFavorite(db *gorm.DB, userID, favoriteID uint) (models.Favorite, error) {
	var favorite models.Favorite
	err := db.Preload("User").
		Where("id = ? AND user_id = ?", favoriteID, userID).
		First(&favorite).Error
	return favorite, err
}

func respondFavoriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Favorite not found"})
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrAlreadyFavorited):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process favorite"})
	}
}

func favoriteForRequest(c *gin.Context, db *gorm.DB) (models.Favorite, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return models.Favorite{}, false
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Favorite not found"})
		return models.Favorite{}, false
	}

	favorite, err := loadFavorite(db, user.ID, uint(id))
	if err != nil {
		respondFavoriteError(c, err)
		return models.Favorite{}, false
	}
	return favorite, true
}

// GET /api/favorites/
func ListFavorites(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		favorites := []models.Favorite{}
		if err := db.Preload("User").
			Where("user_id = ?", user.ID).
			Order("created_at DESC").Order("id DESC").
			Find(&favorites).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch favorites"})
			return
		}
		c.JSON(http.StatusOK, favorites)
	}
}

// POST /api/favorites/
func CreateFavorite(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var input FavoriteInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		favorite, err := AddFavorite(db, user.ID, input.Product)
		if err != nil {
			respondFavoriteError(c, err)
			return
		}
		c.JSON(http.StatusCreated, favorite)
	}
}

// GET /api/favorites/:id/
func GetFavorite(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		favorite, ok := favoriteForRequest(c, db)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, favorite)
	}
}

// DELETE /api/favorites/:id/
func DeleteFavorite(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		favorite, ok := favoriteForRequest(c, db)
		if !ok {
			return
		}
		if err := db.Delete(&favorite).Error; err != nil {
			respondFavoriteError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
