package productcontroller

import (
	"net/http"
	"strconv"

	"github.com/NguyenNhuTu09/TIT-Shop/models"
	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"
)

var excelHeaders = []string{
	"ID", "Name", "Slug", "Description", "Price",
	"Stock", "Image", "IsAvailable", "CategoryID", "CreatedAt",
}

// GET /api/admin/products/export-excel
func ExportProductsToExcel(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var products []models.Product
		if err := db.Order("id ASC").Find(&products).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
			return
		}

		file := xlsx.NewFile()
		sheet, err := file.AddSheet("Products")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel sheet"})
			return
		}

		headerRow := sheet.AddRow()
		for _, h := range excelHeaders {
			headerRow.AddCell().SetString(h)
		}

		for _, p := range products {
			row := sheet.AddRow()

			row.AddCell().SetString(strconv.FormatUint(uint64(p.ID), 10))
			row.AddCell().SetString(p.Name)
			row.AddCell().SetString(p.Slug)
			row.AddCell().SetString(p.Description)
			row.AddCell().SetString(p.Price.StringFixed(2))
			row.AddCell().SetString(strconv.Itoa(p.Stock))
			row.AddCell().SetString(p.Image)
			row.AddCell().SetString(strconv.FormatBool(p.IsAvailable))
			row.AddCell().SetString(strconv.FormatUint(uint64(p.CategoryID), 10))
			row.AddCell().SetString(p.CreatedAt.Format("2006-01-02 15:04:05"))
		}

		// Set response headers for download
		c.Header("Content-Disposition", "attachment; filename=products.xlsx")
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Transfer-Encoding", "binary")
		c.Header("Expires", "0")

		if err := file.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write Excel file"})
			return
		}
	}
}
