package productcontroller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/NguyenNhuTu09/TIT-Shop/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var productOrderings = map[string]string{
	"price":      "price",
	"created_at": "created_at",
}

// GET /api/products/
func GetProducts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.Model(&models.Product{}).Preload("Category").Where("is_available = ?", true)

		// Exact filters
		if v := c.Query("category"); v != "" {
			cid, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
				return
			}
			query = query.Where("category_id = ?", uint(cid))
		}
		if v := c.Query("price"); v != "" {
			price, err := decimal.NewFromString(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid price"})
				return
			}
			query = query.Where("price = ?", price)
		}
		if v := c.Query("stock"); v != "" {
			stock, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid stock"})
				return
			}
			query = query.Where("stock = ?", stock)
		}

		// Price range
		if v := c.Query("min_price"); v != "" {
			mp, err := decimal.NewFromString(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid min_price"})
				return
			}
			query = query.Where("price >= ?", mp)
		}
		if v := c.Query("max_price"); v != "" {
			mp, err := decimal.NewFromString(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid max_price"})
				return
			}
			query = query.Where("price <= ?", mp)
		}

		if search := strings.TrimSpace(c.Query("search")); search != "" {
			likePattern := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
			query = query.Where("LOWER(name) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!'", likePattern, likePattern)
		}

		for _, clause := range OrderClauses(c.Query("ordering"), productOrderings) {
			query = query.Order(clause)
		}
		query = query.Order("id ASC")

		var products []models.Product
		if err := query.Find(&products).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

// likeEscaper makes %, _ and the escape character itself match literally.
// The escape character is '!' since MySQL string literals treat backslashes as escapes.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// OrderClauses turns "?ordering=-price,created_at" into ORDER BY clauses,
// ignoring any field not in allowed.
func OrderClauses(ordering string, allowed map[string]string) []string {
	var clauses []string
	for _, field := range strings.Split(ordering, ",") {
		field = strings.TrimSpace(field)
		direction := "ASC"
		if strings.HasPrefix(field, "-") {
			direction = "DESC"
			field = strings.TrimPrefix(field, "-")
		}
		column, ok := allowed[field]
		if !ok {
			continue
		}
		clauses = append(clauses, column+" "+direction)
	}
	return clauses
}
