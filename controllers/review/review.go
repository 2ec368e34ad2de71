package reviewControllers

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
	ErrProductNotFound = errors.New("product does not exist")
	ErrAlreadyReviewed = errors.New("you have already reviewed this product")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
)

type CreateReviewInput struct {
	Product uint   `json:"product" binding:"required"`
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

// ReviewInput carries PUT and PATCH bodies; PUT requires rating.
type ReviewInput struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

// -------- Core Logic --------

func validRating(rating int) bool {
	return rating >= 1 && rating <= 5
}

// CreateReview stores the user's one review of a product.
func CreateReview(db *gorm.DB, userID uint, input CreateReviewInput) (models.ProductReview, error) {
	if !validRating(input.Rating) {
		return models.ProductReview{}, ErrInvalidRating
	}

	review := models.ProductReview{
		UserID:    userID,
		ProductID: input.Product,
		Rating:    input.Rating,
		Comment:   input.Comment,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Select("id").First(&product, input.Product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.ProductReview{}).
			Where("user_id = ? AND product_id = ?", userID, input.Product).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyReviewed
		}

		if err := tx.Omit("User", "Product").Create(&review).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyReviewed
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.ProductReview{}, err
	}
	return loadReview(db, userID, review.ID)
}

func loadReview(db *gorm.DB, userID, reviewID uint) (models.ProductReview, error) {
	var review models.ProductReview
	err := db.Preload("User").
		Where("id = ? AND user_id = ?", reviewID, userID).
		First(&review).Error
	return review, err
}

// -------- Handlers --------

func respondReviewError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrAlreadyReviewed), errors.Is(err, ErrInvalidRating):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process review"})
	}
}

// reviewForRequest resolves :id to one of the caller's reviews.
func reviewForRequest(c *gin.Context, db *gorm.DB) (models.ProductReview, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return models.ProductReview{}, false
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
		return models.ProductReview{}, false
	}

	review, err := loadReview(db, user.ID, uint(id))
	if err != nil {
		respondReviewError(c, err)
		return models.ProductReview{}, false
	}
	return review, true
}

// GET /api/reviews/
func ListReviews(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		reviews := []models.ProductReview{}
		if err := db.Preload("User").
			Where("user_id = ?", user.ID).
			Order("created_at DESC").Order("id DESC").
			Find(&reviews).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reviews"})
			return
		}
		c.JSON(http.StatusOK, reviews)
	}
}

// POST /api/reviews/
func CreateReviewHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var input CreateReviewInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		review, err := CreateReview(db, user.ID, input)
		if err != nil {
			respondReviewError(c, err)
			return
		}
		c.JSON(http.StatusCreated, review)
	}
}

// GET /api/reviews/:id/
func GetReview(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		review, ok := reviewForRequest(c, db)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, review)
	}
}

// PUT, PATCH /api/reviews/:id/
func UpdateReview(db *gorm.DB, partial bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		review, ok := reviewForRequest(c, db)
		if !ok {
			return
		}

		var input ReviewInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		if !partial && input.Rating == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rating is required"})
			return
		}

		updates := make(map[string]interface{})
		if input.Rating != nil {
			if !validRating(*input.Rating) {
				respondReviewError(c, ErrInvalidRating)
				return
			}
			updates["rating"] = *input.Rating
		}
		if input.Comment != nil {
			updates["comment"] = *input.Comment
		} else if !partial {
			updates["comment"] = ""
		}

		if len(updates) > 0 {
			if err := db.Model(&review).Updates(updates).Error; err != nil {
				respondReviewError(c, err)
				return
			}
		}

		updated, err := loadReview(db, review.UserID, review.ID)
		if err != nil {
			respondReviewError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// DELETE /api/reviews/:id/
func DeleteReview(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		review, ok := reviewForRequest(c, db)
		if !ok {
			return
		}
		if err := db.Delete(&review).Error; err != nil {
			respondReviewError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// GET /api/products/:slug/reviews/
func ListProductReviews(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var product models.Product
		if err := db.Select("id").
			Where("slug = ? AND is_available = ?", c.Param("slug"), true).
			First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve product"})
			return
		}

		reviews := []models.ProductReview{}
		if err := db.Preload("User").
			Where("product_id = ?", product.ID).
			Order("created_at DESC").Order("id DESC").
			Find(&reviews).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reviews"})
			return
		}
		c.JSON(http.StatusOK, reviews)
	}
}
