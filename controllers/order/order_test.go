package orderControllers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	cartControllers "github.com/NguyenNhuTu09/TIT-Shop/controllers/cart"
	orderControllers "github.com/NguyenNhuTu09/TIT-Shop/controllers/order"
	"github.com/NguyenNhuTu09/TIT-Shop/events"
	"github.com/NguyenNhuTu09/TIT-Shop/middleware"
	"github.com/NguyenNhuTu09/TIT-Shop/models"
	"github.com/NguyenNhuTu09/TIT-Shop/routes"
	"github.com/NguyenNhuTu09/TIT-Shop/testutil"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	router    *gin.Engine
	recorder  *testutil.Recorder
	alice     models.User
	bob       models.User
	book      models.Product
	game      models.Product
	aliceAuth map[string]string
}

func setup(t *testing.T) fixture {
	db := testutil.NewDB(t)
	recorder := &testutil.Recorder{}
	alice := testutil.CreateUser(t, db, "alice", false)
	category := testutil.CreateCategory(t, db, "Books", "books")
	return fixture{
		db:        db,
		router:    testutil.Router(db, routes.Options{Publisher: recorder}),
		recorder:  recorder,
		alice:     alice,
		bob:       testutil.CreateUser(t, db, "bob", false),
		book:      testutil.CreateProduct(t, db, category, "go-book", "30.00", 5),
		game:      testutil.CreateProduct(t, db, category, "chess", "12.50", 2),
		aliceAuth: testutil.Auth(t, alice),
	}
}

func shipping(extra gin.H) gin.H {
	body := gin.H{
		"first_name":  "Alice",
		"last_name":   "Liddell",
		"email":       "alice@example.com",
		"address":     "1 Rabbit Hole",
		"postal_code": "12345",
		"city":        "Oxford",
	}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

func (f fixture) placeOrder(t *testing.T, items ...gin.H) models.Order {
	t.Helper()
	w := testutil.PerformRequest(f.router, http.MethodPost, "/api/order/create/",
		shipping(gin.H{"items": items}), f.aliceAuth)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order models.Order
	testutil.DecodeJSON(t, w, &order)
	return order
}

func id(v uint) string { return strconv.FormatUint(uint64(v), 10) }

func TestCreateOrder(t *testing.T) {
	f := setup(t)

	order := f.placeOrder(t,
		gin.H{"product_id": f.book.ID, "quantity": 2},
		gin.H{"product_id": f.game.ID, "quantity": 1},
	)

	assert.Equal(t, "alice", order.UserName)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.False(t, order.Paid)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("72.5")), order.TotalPrice.String())
	require.Len(t, order.Items, 2)
	assert.Equal(t, "go-book", order.Items[0].Product.Slug)
	assert.True(t, order.Items[0].Price.Equal(decimal.RequireFromString("30")))

	assert.Equal(t, 3, testutil.Stock(t, f.db, f.book.ID))
	assert.Equal(t, 1, testutil.Stock(t, f.db, f.game.ID))

	require.Eventually(t, func() bool { return len(f.recorder.Events()) == 1 }, time.Second, 10*time.Millisecond)
	event := f.recorder.Events()[0]
	assert.Equal(t, events.TypeOrderCreated, event.Type)
	assert.Equal(t, order.ID, event.OrderID)
	assert.Equal(t, f.alice.ID, event.UserID)
}

func TestCreateOrderErrors(t *testing.T) {
	f := setup(t)

	t.Run("insufficient stock rolls everything back", func(t *testing.T) {
		w := testutil.PerformRequest(f.router, http.MethodPost, "/api/order/create/", shipping(gin.H{"items": []gin.H{
			{"product_id": f.game.ID, "quantity": 1},
			{"product_id": f.book.ID, "quantity": 6},
		}}), f.aliceAuth)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "insufficient stock for product go-book")
		assert.Equal(t, 2, testutil.Stock(t, f.db, f.game.ID))

		var orders int64
		require.NoError(t, f.db.Model(&models.Order{}).Count(&orders).Error)
		assert.Zero(t, orders)
	})

	t.Run("unknown product", func(t *testing.T) {
		w := testutil.PerformRequest(f.router, http.MethodPost, "/api/order/create/",
			shipping(gin.H{"items": []gin.H{{"product_id": 999, "quantity": 1}}}), f.aliceAuth)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("no items", func(t *testing.T) {
		w := testutil.PerformRequest(f.router, http.MethodPost, "/api/order/create/", shipping(nil), f.aliceAuth)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad quantity", func(t *testing.T) {
		w := testutil.PerformRequest(f.router, http.MethodPost, "/api/order/create/",
			shipping(gin.H{"items": []gin.H{{"product_id": f.book.ID, "quantity": 0}}}), f.aliceAuth)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing shipping field", func(t *testing.T) {
		body := shipping(gin.H{"items": []gin.H{{"product_id": f.book.ID, "quantity": 1}}})
		delete(body, "city")
		w := testutil.PerformRequest(f.router, http.MethodPost, "/api/order/create/", body, f.aliceAuth)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("items and cart together", func(t *testing.T) {
		w := testutil.PerformRequest(f.router, http.MethodPost, "/api/order/create/", shipping(gin.H{
			"from_cart": true,
			"items":     []gin.H{{"product_id": f.book.ID, "quantity": 1}},
		}), f.aliceAuth)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("empty cart", func(t *testing.T) {
		w := testutil.PerformRequest(f.router, http.MethodPost, "/api/order/create/",
			shipping(gin.H{"from_cart": true}), f.aliceAuth)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		w := testutil.PerformRequest(f.router, http.MethodPost, "/api/order/create/", shipping(nil), nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestCreateOrderFromCart(t *testing.T) {
	f := setup(t)
	cart := models.Cart{UserID: f.alice.ID}
	require.NoError(t, f.db.Omit("User").Create(&cart).Error)
	require.NoError(t, cartControllers.AddItem(f.db, cart.ID, f.book.ID, 2))
	require.Equal(t, 3, testutil.Stock(t, f.db, f.book.ID))

	w := testutil.PerformRequest(f.router, http.MethodPost, "/api/order/create/",
		shipping(gin.H{"from_cart": true}), f.aliceAuth)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var order models.Order
	testutil.DecodeJSON(t, w, &order)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("60")))

	// the reservation becomes the sale; stock is not taken twice
	assert.Equal(t, 3, testutil.Stock(t, f.db, f.book.ID))

	var items int64
	require.NoError(t, f.db.Model(&models.CartItem{}).Where("cart_id = ?", cart.ID).Count(&items).Error)
	assert.Zero(t, items)
}

func TestCreateOrderFromCartRejectsHiddenProduct(t *testing.T) {
	f := setup(t)
	cart := models.Cart{UserID: f.alice.ID}
	require.NoError(t, f.db.Omit("User").Create(&cart).Error)
	require.NoError(t, cartControllers.AddItem(f.db, cart.ID, f.book.ID, 2))
	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", f.book.ID).Update("is_available", false).Error)

	w := testutil.PerformRequest(f.router, http.MethodPost, "/api/order/create/",
		shipping(gin.H{"from_cart": true}), f.aliceAuth)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "go-book")

	assert.Equal(t, 3, testutil.Stock(t, f.db, f.book.ID))
	var items int64
	require.NoError(t, f.db.Model(&models.CartItem{}).Where("cart_id = ?", cart.ID).Count(&items).Error)
	assert.Equal(t, int64(1), items)
	var orders int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
}

func TestListAndGetOrders(t *testing.T) {
	f := setup(t)
	first := f.placeOrder(t, gin.H{"product_id": f.book.ID, "quantity": 1})
	second := f.placeOrder(t, gin.H{"product_id": f.game.ID, "quantity": 1})

	w := testutil.PerformRequest(f.router, http.MethodGet, "/api/orders/", nil, f.aliceAuth)
	require.Equal(t, http.StatusOK, w.Code)
	var orders []models.Order
	testutil.DecodeJSON(t, w, &orders)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Len(t, orders[0].Items, 1)

	w = testutil.PerformRequest(f.router, http.MethodGet, "/api/orders/?ordering=total_price", nil, f.aliceAuth)
	require.Equal(t, http.StatusOK, w.Code)
	testutil.DecodeJSON(t, w, &orders)
	assert.Equal(t, []uint{second.ID, first.ID}, []uint{orders[0].ID, orders[1].ID})

	w = testutil.PerformRequest(f.router, http.MethodGet, "/api/orders/"+id(first.ID)+"/", nil, f.aliceAuth)
	assert.Equal(t, http.StatusOK, w.Code)

	bob := testutil.Auth(t, f.bob)
	w = testutil.PerformRequest(f.router, http.MethodGet, "/api/orders/"+id(first.ID)+"/", nil, bob)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testutil.PerformRequest(f.router, http.MethodGet, "/api/orders/", nil, bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestOrderItemsSurviveProductDeletion(t *testing.T) {
	f := setup(t)
	order := f.placeOrder(t, gin.H{"product_id": f.book.ID, "quantity": 1})
	require.NoError(t, f.db.Delete(&models.Product{}, f.book.ID).Error)

	got, err := orderControllers.LoadOrder(f.db, f.alice.ID, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "go-book", got.Items[0].Product.Slug)
}

func TestUpdateOrderStatus(t *testing.T) {
	f := setup(t)
	order := f.placeOrder(t, gin.H{"product_id": f.book.ID, "quantity": 1})
	path := "/api/order/" + id(order.ID) + "/status/"

	w := testutil.PerformRequest(f.router, http.MethodPatch, path, gin.H{"status": "shipped"}, f.aliceAuth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got models.Order
	testutil.DecodeJSON(t, w, &got)
	assert.Equal(t, models.OrderStatusShipped, got.Status)

	w = testutil.PerformRequest(f.router, http.MethodPatch, path, gin.H{"status": "lost"}, f.aliceAuth)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid status"}`, w.Body.String())

	for _, status := range []string{"SHIPPED", " shipped "} {
		w = testutil.PerformRequest(f.router, http.MethodPatch, path, gin.H{"status": status}, f.aliceAuth)
		assert.Equal(t, http.StatusBadRequest, w.Code, status)
	}

	w = testutil.PerformRequest(f.router, http.MethodPatch, path, gin.H{}, f.aliceAuth)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.PerformRequest(f.router, http.MethodPatch, path, gin.H{"status": "cancelled"}, testutil.Auth(t, f.bob))
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.Eventually(t, func() bool { return len(f.recorder.Types()) == 2 }, time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{events.TypeOrderCreated, events.TypeOrderStatusChanged}, f.recorder.Types())
}

func TestPaymentWebhook(t *testing.T) {
	f := setup(t)
	order := f.placeOrder(t, gin.H{"product_id": f.book.ID, "quantity": 1})
	secret := testutil.Config().PaymentWebhookSecret

	send := func(body string, sig string) *httptest.ResponseRecorder {
		return testutil.PerformRequest(f.router, http.MethodPost, "/api/payments/webhook/", body,
			map[string]string{middleware.SignatureHeader: sig})
	}

	body := `{"order_id":` + id(order.ID) + `,"payment_status":"success"}`
	w := send(body, middleware.SignPayload(secret, []byte(body)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"total_price":"30.00"`)
	assert.Contains(t, w.Body.String(), `"price":"30.00"`)

	var updated models.Order
	testutil.DecodeJSON(t, w, &updated)
	assert.Equal(t, order.ID, updated.ID)
	assert.True(t, updated.Paid)
	assert.Equal(t, "alice", updated.UserName)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, "go-book", updated.Items[0].Product.Slug)

	var stored models.Order
	require.NoError(t, f.db.First(&stored, order.ID).Error)
	assert.True(t, stored.Paid)

	w = send(body, middleware.SignPayload("wrong", []byte(body)))
	assert.Equal(t, http.StatusForbidden, w.Code)

	for _, status := range []string{"maybe", "pending", "succeeded", "PAID", " paid"} {
		bad := `{"order_id":` + id(order.ID) + `,"payment_status":"` + status + `"}`
		w = send(bad, middleware.SignPayload(secret, []byte(bad)))
		assert.Equal(t, http.StatusBadRequest, w.Code, status)
	}

	missing := `{"order_id":999,"payment_status":"paid"}`
	w = send(missing, middleware.SignPayload(secret, []byte(missing)))
	assert.Equal(t, http.StatusNotFound, w.Code)

	refund := `{"order_id":` + id(order.ID) + `,"payment_status":"refunded"}`
	w = send(refund, middleware.SignPayload(secret, []byte(refund)))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, f.db.First(&stored, order.ID).Error)
	assert.False(t, stored.Paid)
}

func TestPaymentConsumer(t *testing.T) {
	f := setup(t)
	order := f.placeOrder(t, gin.H{"product_id": f.book.ID, "quantity": 1})

	handle := orderControllers.PaymentConsumer(f.db, f.recorder)
	require.NoError(t, handle(context.Background(), events.PaymentUpdate{OrderID: order.ID, PaymentStatus: "paid"}))

	err := handle(context.Background(), events.PaymentUpdate{OrderID: order.ID, PaymentStatus: "???"})
	assert.ErrorIs(t, err, events.ErrRejected)
	assert.ErrorIs(t, err, orderControllers.ErrInvalidPayment)
	err = handle(context.Background(), events.PaymentUpdate{OrderID: order.ID, PaymentStatus: "pending"})
	assert.ErrorIs(t, err, events.ErrRejected)
	err = handle(context.Background(), events.PaymentUpdate{OrderID: 999, PaymentStatus: "paid"})
	assert.ErrorIs(t, err, events.ErrRejected)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var stored models.Order
	require.NoError(t, f.db.First(&stored, order.ID).Error)
	assert.True(t, stored.Paid)

	require.Eventually(t, func() bool {
		for _, e := range f.recorder.Events() {
			if e.Type == events.TypeOrderPaid && e.Paid {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestPaymentConsumerRequeuesDatabaseFailures(t *testing.T) {
	f := setup(t)
	order := f.placeOrder(t, gin.H{"product_id": f.book.ID, "quantity": 1})
	handle := orderControllers.PaymentConsumer(f.db, f.recorder)

	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	err = handle(context.Background(), events.PaymentUpdate{OrderID: order.ID, PaymentStatus: "paid"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, events.ErrRejected)
}

func TestAdminOrders(t *testing.T) {
	f := setup(t)
	order := f.placeOrder(t, gin.H{"product_id": f.book.ID, "quantity": 1})
	admin := map[string]string{"X-API-KEY": testutil.AdminAPIKey}

	w := testutil.PerformRequest(f.router, http.MethodGet, "/api/admin/orders", nil, f.aliceAuth)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = testutil.PerformRequest(f.router, http.MethodGet, "/api/admin/orders", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	var orders []models.Order
	testutil.DecodeJSON(t, w, &orders)
	assert.Len(t, orders, 1)

	w = testutil.PerformRequest(f.router, http.MethodDelete, "/api/admin/orders/"+id(order.ID), nil, admin)
	require.Equal(t, http.StatusOK, w.Code)

	var items int64
	require.NoError(t, f.db.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&items).Error)
	assert.Zero(t, items)

	w = testutil.PerformRequest(f.router, http.MethodDelete, "/api/admin/orders/"+id(order.ID), nil, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHubBroadcastsOrderEvents(t *testing.T) {
	db := testutil.NewDB(t)
	hub := orderControllers.NewHub()
	server := httptest.NewServer(testutil.Router(db, routes.Options{Hub: hub}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/admin/ws/orders"
	header := http.Header{"X-API-KEY": []string{testutil.AdminAPIKey}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	event := events.Event{Type: events.TypeOrderCreated, OrderID: 7, Status: "pending"}
	require.NoError(t, hub.Publish(context.Background(), event))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got events.Event
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, events.TypeOrderCreated, got.Type)
	assert.EqualValues(t, 7, got.OrderID)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubRejectsMissingAPIKey(t *testing.T) {
	db := testutil.NewDB(t)
	server := httptest.NewServer(testutil.Router(db, routes.Options{Hub: orderControllers.NewHub()}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/admin/ws/orders"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
