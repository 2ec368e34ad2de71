package adminController

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/NguyenNhuTu09/TIT-Shop/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type StaffRequest struct {
	Username string `json:"username" binding:"required"`
}

// SetStaff flips the staff flag of the named user.
func SetStaff(db *gorm.DB, username string, staff bool) (models.User, error) {
	var user models.User
	if err := db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		return models.User{}, err
	}
	if err := db.Model(&user).Update("is_staff", staff).Error; err != nil {
		return models.User{}, err
	}
	user.IsStaff = staff
	return user, nil
}

// GET /api/admin/staff
func ListStaff(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		staff := []models.User{}
		if err := db.Where("is_staff = ?", true).Order("username").Find(&staff).Error; err != nil {
			log.Println("❌ Failed to fetch staff:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch staff"})
			return
		}
		c.JSON(http.StatusOK, staff)
	}
}

// POST /api/admin/staff/approve and /api/admin/staff/revoke
func UpdateStaff(db *gorm.DB, staff bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req StaffRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		user, err := SetStaff(db, req.Username, staff)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}

		if staff {
			log.Printf("✅ %s granted staff access", user.Username)
		} else {
			log.Printf("🚫 %s staff access revoked", user.Username)
		}
		c.JSON(http.StatusOK, user)
	}
}
