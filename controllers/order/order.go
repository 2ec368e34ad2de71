package orderControllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	cartControllers "github.com/NguyenNhuTu09/TIT-Shop/controllers/cart"
	productcontroller "github.com/NguyenNhuTu09/TIT-Shop/controllers/product"
	"github.com/NguyenNhuTu09/TIT-Shop/database"
	"github.com/NguyenNhuTu09/TIT-Shop/events"
	"github.com/NguyenNhuTu09/TIT-Shop/middleware"
	"github.com/NguyenNhuTu09/TIT-Shop/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNoItems            = errors.New("order must contain at least one item")
	ErrItemsAndCart       = errors.New("send either items or from_cart, not both")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidStatus      = errors.New("Invalid status")
	ErrInvalidPayment     = errors.New("invalid payment status")
)

// StockError names the product that ran short.
type StockError struct {
	Slug string
}

func (e *StockError) Error() string { return "insufficient stock for product " + e.Slug }
func (e *StockError) Is(target error) bool { return target == ErrInsufficientStock }

// -------- Request Structs --------

type OrderItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

type CreateOrderRequest struct {
	FirstName  string             `json:"first_name" binding:"required,max=50"`
	LastName   string             `json:"last_name" binding:"required,max=50"`
	Email      string             `json:"email" binding:"required,email"`
	Address    string             `json:"address" binding:"required,max=250"`
	PostalCode string             `json:"postal_code" binding:"required,max=20"`
	City       string             `json:"city" binding:"required,max=100"`
	Items      []OrderItemRequest `json:"items" binding:"omitempty,dive"`
	FromCart   bool               `json:"from_cart"` // check out the user's cart instead of items
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

// -------- Helpers --------

// Map string to OrderStatus
func mapOrderStatus(status string) (models.OrderStatus, error) {
	switch status {
	case string(models.OrderStatusPending):
		return models.OrderStatusPending, nil
	case string(models.OrderStatusShipped):
		return models.OrderStatusShipped, nil
	case string(models.OrderStatusDelivered):
		return models.OrderStatusDelivered, nil
	case string(models.OrderStatusCancelled):
		return models.OrderStatusCancelled, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Map a payment provider status to the order's paid flag
func mapPaymentStatus(status string) (bool, error) {
	switch status {
	case "paid", "success":
		return true, nil
	case "failed", "refunded":
		return false, nil
	default:
		return false, ErrInvalidPayment
	}
}

var orderOrderings = map[string]string{
	"created_at":  "created_at",
	"total_price": "total_price",
}

func preloadOrder(db *gorm.DB) *gorm.DB {
	return db.Preload("User").
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("order_items.id ASC") }).
		Preload("Items.Product", func(tx *gorm.DB) *gorm.DB { return tx.Unscoped() }).
		Preload("Items.Product.Category")
}

// LoadOrder fetches one of the user's orders with items and products.
func LoadOrder(db *gorm.DB, userID, orderID uint) (models.Order, error) {
	var order models.Order
	err := preloadOrder(db).Where("id = ? AND user_id = ?", orderID, userID).First(&order).Error
	return order, err
}

// -------- Core Logic --------

// CreateOrder prices the requested items, takes them out of stock and stores
// the order in one transaction. With FromCart the cart's reserved items are
// converted instead and the cart is emptied.
func CreateOrder(db *gorm.DB, user models.User, req CreateOrderRequest) (models.Order, error) {
	if req.FromCart && len(req.Items) > 0 {
		return models.Order{}, ErrItemsAndCart
	}
	if !req.FromCart && len(req.Items) == 0 {
		return models.Order{}, ErrNoItems
	}

	order := models.Order{
		UserID:     user.ID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Address:    req.Address,
		PostalCode: req.PostalCode,
		City:       req.City,
		Status:     models.OrderStatusPending,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var items []models.OrderItem
		var err error
		if req.FromCart {
			items, err = itemsFromCart(tx, user.ID)
		} else {
			items, err = itemsFromRequest(tx, req.Items)
		}
		if err != nil {
			return err
		}

		total := decimal.Zero
		for _, item := range items {
			total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		order.TotalPrice = total

		if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
			if err := tx.Omit("Product").Create(&items[i]).Error; err != nil {
				return err
			}
		}
		order.Items = items
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func itemsFromRequest(tx *gorm.DB, requested []OrderItemRequest) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(requested))
	for _, r := range requested {
		var product models.Product
		if err := database.ForUpdate(tx).First(&product, r.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %d", ErrProductNotFound, r.ProductID)
			}
			return nil, err
		}
		if !product.IsAvailable {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, product.Slug)
		}
		if product.Stock < r.Quantity {
			return nil, &StockError{Slug: product.Slug}
		}

		// Deduct stock
		if err := tx.Model(&product).Update("stock", product.Stock-r.Quantity).Error; err != nil {
			return nil, err
		}

		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Product:   product,
			Price:     product.Price,
			Quantity:  r.Quantity,
		})
	}
	return items, nil
}

// itemsFromCart converts cart items, whose stock is already reserved, into
// order items priced at the current product price.
func itemsFromCart(tx *gorm.DB, userID uint) ([]models.OrderItem, error) {
	var cart models.Cart
	if err := database.ForUpdate(tx).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, err
	}

	cartItems, err := cartControllers.LockCartItems(tx, cart.ID)
	if err != nil {
		return nil, err
	}
	if len(cartItems) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]models.OrderItem, 0, len(cartItems))
	for _, ci := range cartItems {
		if ci.Product.DeletedAt.Valid {
			return nil, fmt.Errorf("%w: %d", ErrProductNotFound, ci.ProductID)
		}
		if !ci.Product.IsAvailable {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, ci.Product.Slug)
		}
		items = append(items, models.OrderItem{
			ProductID: ci.ProductID,
			Product:   ci.Product,
			Price:     ci.Product.Price,
			Quantity:  ci.Quantity,
		})
	}

	// Clear cart items
	if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateOrderStatus sets the status of one of the user's orders.
func UpdateOrderStatus(db *gorm.DB, userID, orderID uint, status string) (models.Order, error) {
	newStatus, err := mapOrderStatus(status)
	if err != nil {
		return models.Order{}, err
	}

	result := db.Model(&models.Order{}).
		Where("id = ? AND user_id = ?", orderID, userID).
		Update("status", newStatus)
	if result.Error != nil {
		return models.Order{}, result.Error
	}
	if result.RowsAffected == 0 {
		// same status on some drivers also reports 0 rows, so look it up
		if _, err := LoadOrder(db, userID, orderID); err != nil {
			return models.Order{}, err
		}
	}
	return LoadOrder(db, userID, orderID)
}

// MarkPaid applies a payment provider status to an order.
func MarkPaid(db *gorm.DB, orderID uint, paymentStatus string) (models.Order, error) {
	paid, err := mapPaymentStatus(paymentStatus)
	if err != nil {
		return models.Order{}, err
	}

	var order models.Order
	if err := db.First(&order, orderID).Error; err != nil {
		return models.Order{}, err
	}
	if err := db.Model(&order).Update("paid", paid).Error; err != nil {
		return models.Order{}, err
	}
	order.Paid = paid
	return order, nil
}

// PaymentConsumer adapts MarkPaid to the broker's payment updates. Unknown
// orders and statuses are rejected; other failures are retried.
func PaymentConsumer(db *gorm.DB, publisher events.Publisher) events.PaymentHandler {
	return func(ctx context.Context, update events.PaymentUpdate) error {
		order, err := MarkPaid(db.WithContext(ctx), update.OrderID, update.PaymentStatus)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrInvalidPayment) {
				return fmt.Errorf("%w: %w", events.ErrRejected, err)
			}
			return err
		}
		events.PublishAsync(publisher, events.NewOrderEvent(events.TypeOrderPaid, order))
		return nil
	}
}

// -------- Handlers --------

func currentUser(c *gin.Context) (models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return user, ok
}

func orderIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return 0, false
	}
	return uint(id), true
}

func respondOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, ErrProductNotFound):
		msg := "order not found"
		if errors.Is(err, ErrProductNotFound) {
			msg = err.Error()
		}
		c.JSON(http.StatusNotFound, gin.H{"error": msg})
	case errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrProductUnavailable),
		errors.Is(err, ErrNoItems),
		errors.Is(err, ErrItemsAndCart),
		errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidPayment):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process order"})
	}
}

// POST /api/order/create/
func CreateOrderHandler(db *gorm.DB, publisher events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		var req CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		order, err := CreateOrder(db, user, req)
		if err != nil {
			respondOrderError(c, err)
			return
		}

		created, err := LoadOrder(db, user.ID, order.ID)
		if err != nil {
			respondOrderError(c, err)
			return
		}

		events.PublishAsync(publisher, events.NewOrderEvent(events.TypeOrderCreated, created))
		c.JSON(http.StatusCreated, created)
	}
}

// GET /api/orders/
func ListOrders(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		query := preloadOrder(db).Where("user_id = ?", user.ID)
		clauses := productcontroller.OrderClauses(c.Query("ordering"), orderOrderings)
		if len(clauses) == 0 {
			clauses = []string{"created_at DESC"}
		}
		for _, clause := range clauses {
			query = query.Order(clause)
		}

		orders := []models.Order{}
		if err := query.Order("id DESC").Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch orders"})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// GET /api/orders/:id/
func GetOrder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}

		order, err := LoadOrder(db, user.ID, orderID)
		if err != nil {
			respondOrderError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// PATCH /api/order/:id/status/
func UpdateOrderStatusHandler(db *gorm.DB, publisher events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}

		var req UpdateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return
		}

		// the order must be the caller's before the status is looked at
		if _, err := LoadOrder(db, user.ID, orderID); err != nil {
			respondOrderError(c, err)
			return
		}

		order, err := UpdateOrderStatus(db, user.ID, orderID, req.Status)
		if err != nil {
			respondOrderError(c, err)
			return
		}

		events.PublishAsync(publisher, events.NewOrderEvent(events.TypeOrderStatusChanged, order))
		c.JSON(http.StatusOK, order)
	}
}

// POST /api/payments/webhook/
func PaymentWebhookHandler(db *gorm.DB, publisher events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var update events.PaymentUpdate
		if err := c.ShouldBindJSON(&update); err != nil || update.OrderID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "order_id and payment_status are required"})
			return
		}

		order, err := MarkPaid(db, update.OrderID, update.PaymentStatus)
		if err != nil {
			respondOrderError(c, err)
			return
		}

		events.PublishAsync(publisher, events.NewOrderEvent(events.TypeOrderPaid, order))

		var updated models.Order
		if err := preloadOrder(db).First(&updated, order.ID).Error; err != nil {
			respondOrderError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// GET /api/admin/orders
func GetAllOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orders := []models.Order{}
		if err := preloadOrder(db).Order("created_at DESC").Order("id DESC").Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// DELETE /api/admin/orders/:id
func DeleteOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}

		var deleted int64
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("order_id = ?", orderID).
				Delete(&models.OrderItem{}).Error; err != nil {
				return err
			}
			result := tx.Where("id = ?", orderID).Delete(&models.Order{})
			deleted = result.RowsAffected
			return result.Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete order"})
			return
		}
		if deleted == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order deleted successfully"})
	}
}
