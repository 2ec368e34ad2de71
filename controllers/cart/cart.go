package cartControllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/NguyenNhuTu09/TIT-Shop/database"
	"github.com/NguyenNhuTu09/TIT-Shop/middleware"
	"github.com/NguyenNhuTu09/TIT-Shop/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available")
	ErrItemNotFound       = errors.New("item not found in cart")
	ErrCartNotFound       = errors.New("cart not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
)

type AddItemInput struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  *int `json:"quantity"` // defaults to 1
}

type UpdateItemInput struct {
	ItemID   uint `json:"item_id" binding:"required"`
	Quantity *int `json:"quantity"` // defaults to 1
}

type RemoveItemInput struct {
	ItemID uint `json:"item_id" binding:"required"`
}

// -------- Core Logic --------

// LockCart takes the cart row lock. Every change to a cart's items holds it
// for the whole transaction.
func LockCart(tx *gorm.DB, cartID uint) error {
	var cart models.Cart
	err := database.ForUpdate(tx).Select("id").First(&cart, cartID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCartNotFound
	}
	return err
}

// lockItem locks the item's product, then re-reads the item itself under lock.
// Product delete takes the same two locks in the same order.
func lockItem(tx *gorm.DB, cartID, itemID uint) (models.CartItem, models.Product, error) {
	var item models.CartItem
	if err := tx.Where("id = ? AND cart_id = ?", itemID, cartID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CartItem{}, models.Product{}, ErrItemNotFound
		}
		return models.CartItem{}, models.Product{}, err
	}

	var product models.Product
	if err := database.ForUpdate(tx).Unscoped().First(&product, item.ProductID).Error; err != nil {
		return models.CartItem{}, models.Product{}, err
	}

	var locked models.CartItem
	if err := database.ForUpdate(tx).Where("id = ? AND cart_id = ?", itemID, cartID).First(&locked).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CartItem{}, models.Product{}, ErrItemNotFound
		}
		return models.CartItem{}, models.Product{}, err
	}
	return locked, product, nil
}

// LockCartItems locks the products of a cart in id order and then its items,
// returning the items with their locked products. The caller must hold the
// cart lock.
func LockCartItems(tx *gorm.DB, cartID uint) ([]models.CartItem, error) {
	var productIDs []uint
	if err := tx.Model(&models.CartItem{}).
		Where("cart_id = ?", cartID).
		Order("product_id ASC").
		Pluck("product_id", &productIDs).Error; err != nil {
		return nil, err
	}

	products := make(map[uint]models.Product, len(productIDs))
	for _, id := range productIDs {
		var product models.Product
		if err := database.ForUpdate(tx).Unscoped().First(&product, id).Error; err != nil {
			return nil, err
		}
		products[id] = product
	}

	var items []models.CartItem
	if err := database.ForUpdate(tx).Where("cart_id = ?", cartID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	for i := range items {
		product, ok := products[items[i].ProductID]
		if !ok {
			return nil, ErrItemNotFound
		}
		items[i].Product = product
	}
	return items, nil
}

// AddItem reserves quantity units of the product in the cart.
func AddItem(db *gorm.DB, cartID, productID uint, quantity int) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := LockCart(tx, cartID); err != nil {
			return err
		}

		var product models.Product
		if err := database.ForUpdate(tx).First(&product, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		if !product.IsAvailable {
			return ErrProductUnavailable
		}
		if product.Stock < quantity {
			return ErrInsufficientStock
		}

		var item models.CartItem
		err := database.ForUpdate(tx).Where("cart_id = ? AND product_id = ?", cartID, productID).First(&item).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = models.CartItem{CartID: cartID, ProductID: productID, Quantity: quantity}
			if err := tx.Omit("Product").Create(&item).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&item).Update("quantity", item.Quantity+quantity).Error; err != nil {
				return err
			}
		}

		return tx.Model(&product).Update("stock", product.Stock-quantity).Error
	})
}

// UpdateItem sets the item's quantity, first returning its old reservation to stock.
func UpdateItem(db *gorm.DB, cartID, itemID uint, quantity int) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := LockCart(tx, cartID); err != nil {
			return err
		}
		item, product, err := lockItem(tx, cartID, itemID)
		if err != nil {
			return err
		}
		if product.Stock+item.Quantity < quantity {
			return ErrInsufficientStock
		}

		if err := tx.Model(&product).Update("stock", product.Stock+item.Quantity-quantity).Error; err != nil {
			return err
		}
		return tx.Model(&item).Update("quantity", quantity).Error
	})
}

// RemoveItem deletes the item and returns its quantity to stock.
func RemoveItem(db *gorm.DB, cartID, itemID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := LockCart(tx, cartID); err != nil {
			return err
		}
		item, product, err := lockItem(tx, cartID, itemID)
		if err != nil {
			return err
		}
		if err := restoreStock(tx, product, item.Quantity); err != nil {
			return err
		}
		return tx.Delete(&item).Error
	})
}

// DeleteCart removes the cart and releases every reservation it holds.
func DeleteCart(db *gorm.DB, cartID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := LockCart(tx, cartID); err != nil {
			return err
		}
		items, err := LockCartItems(tx, cartID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := restoreStock(tx, item.Product, item.Quantity); err != nil {
				return err
			}
		}
		if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Cart{}, cartID).Error
	})
}

// restoreStock expects product to be locked already.
func restoreStock(tx *gorm.DB, product models.Product, quantity int) error {
	return tx.Unscoped().Model(&product).Update("stock", product.Stock+quantity).Error
}

// LoadCart fetches a cart with its items and products, scoped to its owner.
func LoadCart(db *gorm.DB, userID, cartID uint) (models.Cart, error) {
	var cart models.Cart
	err := db.Preload("User").
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("cart_items.id ASC") }).
		Preload("Items.Product.Category").
		Where("id = ? AND user_id = ?", cartID, userID).
		First(&cart).Error
	return cart, err
}

// -------- Handlers --------

// cartForRequest resolves the authenticated user's cart from :id, writing the
// error response itself when it cannot.
func cartForRequest(c *gin.Context, db *gorm.DB) (models.Cart, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return models.Cart{}, false
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cart not found"})
		return models.Cart{}, false
	}

	cart, err := LoadCart(db, user.ID, uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cart not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
		}
		return models.Cart{}, false
	}
	return cart, true
}

func respondCartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrItemNotFound), errors.Is(err, ErrCartNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrProductUnavailable):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
	}
}

// respondWithCart reloads the cart after a mutation so totals are fresh.
func respondWithCart(c *gin.Context, db *gorm.DB, cart models.Cart) {
	fresh, err := LoadCart(db, cart.UserID, cart.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
		return
	}
	c.JSON(http.StatusOK, fresh)
}

func quantityOrDefault(q *int) int {
	if q == nil {
		return 1
	}
	return *q
}

// GET /api/carts/
func ListCarts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		carts := []models.Cart{}
		if err := db.Preload("User").
			Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("cart_items.id ASC") }).
			Preload("Items.Product.Category").
			Where("user_id = ?", user.ID).
			Find(&carts).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch carts"})
			return
		}
		c.JSON(http.StatusOK, carts)
	}
}

// POST /api/carts/ returns the user's cart, creating it if needed.
func CreateCart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		cart := models.Cart{UserID: user.ID}
		if err := db.Omit("User").Where(models.Cart{UserID: user.ID}).FirstOrCreate(&cart).Error; err != nil {
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create cart"})
				return
			}
			// lost a create race on the unique user_id index; the row exists now
			if err := db.Where("user_id = ?", user.ID).First(&cart).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create cart"})
				return
			}
		}

		respondWithCart(c, db, cart)
	}
}

// GET /api/carts/:id/
func GetCart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, ok := cartForRequest(c, db)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

// DELETE /api/carts/:id/
func DeleteCartHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, ok := cartForRequest(c, db)
		if !ok {
			return
		}
		if err := DeleteCart(db, cart.ID); err != nil {
			if errors.Is(err, ErrCartNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Cart not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete cart"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// POST /api/carts/:id/add_item/
func AddItemHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, ok := cartForRequest(c, db)
		if !ok {
			return
		}

		var input AddItemInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		quantity := quantityOrDefault(input.Quantity)
		if quantity < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be at least 1"})
			return
		}

		if err := AddItem(db, cart.ID, input.ProductID, quantity); err != nil {
			respondCartError(c, err)
			return
		}
		respondWithCart(c, db, cart)
	}
}

// POST /api/carts/:id/update_item/
func UpdateItemHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, ok := cartForRequest(c, db)
		if !ok {
			return
		}

		var input UpdateItemInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		quantity := quantityOrDefault(input.Quantity)
		if quantity < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be at least 1"})
			return
		}

		if err := UpdateItem(db, cart.ID, input.ItemID, quantity); err != nil {
			respondCartError(c, err)
			return
		}
		respondWithCart(c, db, cart)
	}
}

// DELETE /api/carts/:id/remove_item/
func RemoveItemHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, ok := cartForRequest(c, db)
		if !ok {
			return
		}

		var input RemoveItemInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		if err := RemoveItem(db, cart.ID, input.ItemID); err != nil {
			respondCartError(c, err)
			return
		}
		respondWithCart(c, db, cart)
	}
}

// GET /api/admin/user-cart/:user_id
func GetAdminUserCart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}

		var cart models.Cart
		if err := db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Cart not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}
		respondWithCart(c, db, cart)
	}
}
