package productcontroller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/NguyenNhuTu09/TIT-Shop/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"
)

// POST /api/admin/products/import-excel (multipart field "file")
// Rows carrying an existing ID update that product; other rows create one.
func ImportProductsFromExcel(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		excelFileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Excel file is required"})
			return
		}

		file, err := excelFileHeader.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open Excel file"})
			return
		}
		defer file.Close()

		xlFile, err := xlsx.OpenReaderAt(file, excelFileHeader.Size)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse Excel file"})
			return
		}

		if len(xlFile.Sheets) == 0 || len(xlFile.Sheets[0].Rows) < 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Excel file is empty or missing header row"})
			return
		}

		sheet := xlFile.Sheets[0]
		createdCount, updatedCount, skippedCount := 0, 0, 0

		for _, row := range sheet.Rows[1:] {
			if row == nil {
				skippedCount++
				continue
			}

			get := func(index int) string {
				if index < len(row.Cells) {
					return strings.TrimSpace(row.Cells[index].String())
				}
				return ""
			}

			input, ok := rowToInput(get)
			if !ok || input.validate(true) != nil {
				skippedCount++
				continue
			}

			product := models.Product{IsAvailable: true}
			isUpdate := false
			if id, err := strconv.ParseUint(get(0), 10, 64); err == nil && id > 0 {
				if err := db.First(&product, id).Error; err == nil {
					isUpdate = true
				}
			}

			if err := input.apply(db, &product); err != nil {
				skippedCount++
				continue
			}

			if isUpdate {
				if err := db.Omit("Category").Save(&product).Error; err != nil {
					skippedCount++
					continue
				}
				updatedCount++
				continue
			}

			if err := db.Omit("Category").Create(&product).Error; err != nil {
				skippedCount++
				continue
			}
			createdCount++
		}

		c.JSON(http.StatusOK, gin.H{
			"message":       "Import completed",
			"created_count": createdCount,
			"updated_count": updatedCount,
			"skipped_count": skippedCount,
		})
	}
}

// rowToInput maps the export column layout back into a ProductInput.
func rowToInput(get func(int) string) (ProductInput, bool) {
	name, slug, description, image := get(1), get(2), get(3), get(6)

	price, err := decimal.NewFromString(get(4))
	if err != nil {
		return ProductInput{}, false
	}
	stock, err := strconv.Atoi(get(5))
	if err != nil {
		return ProductInput{}, false
	}
	available := true
	if v := get(7); v != "" {
		if available, err = strconv.ParseBool(v); err != nil {
			return ProductInput{}, false
		}
	}
	categoryID, err := strconv.ParseUint(get(8), 10, 64)
	if err != nil {
		return ProductInput{}, false
	}
	category := uint(categoryID)

	return ProductInput{
		Name:        &name,
		Slug:        &slug,
		Description: &description,
		Price:       &price,
		Stock:       &stock,
		Image:       &image,
		IsAvailable: &available,
		Category:    &category,
	}, true
}
