package productcontroller_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	cartControllers "github.com/NguyenNhuTu09/TIT-Shop/controllers/cart"
	"github.com/NguyenNhuTu09/TIT-Shop/models"
	"github.com/NguyenNhuTu09/TIT-Shop/routes"
	"github.com/NguyenNhuTu09/TIT-Shop/storage"
	"github.com/NguyenNhuTu09/TIT-Shop/testutil"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type catalog struct {
	db       *gorm.DB
	router   *gin.Engine
	staff    models.User
	customer models.User
	books    models.Category
	games    models.Category
}

func newCatalog(t *testing.T) catalog {
	db := testutil.NewDB(t)
	store := storage.NewLocal(t.TempDir(), "http://cdn.test")
	return catalog{
		db:       db,
		router:   testutil.Router(db, routes.Options{Store: store}),
		staff:    testutil.CreateUser(t, db, "staff", true),
		customer: testutil.CreateUser(t, db, "customer", false),
		books:    testutil.CreateCategory(t, db, "Books", "books"),
		games:    testutil.CreateCategory(t, db, "Games", "games"),
	}
}

func slugs(products []models.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Slug)
	}
	return out
}

func TestGetProducts(t *testing.T) {
	c := newCatalog(t)
	testutil.CreateProduct(t, c.db, c.books, "go-book", "30.00", 5)
	testutil.CreateProduct(t, c.db, c.books, "rust-book", "45.50", 0)
	testutil.CreateProduct(t, c.db, c.games, "chess", "12.99", 3)
	hidden := testutil.CreateProduct(t, c.db, c.games, "hidden", "1.00", 1)
	require.NoError(t, c.db.Model(&hidden).Update("is_available", false).Error)

	list := func(t *testing.T, query string) []models.Product {
		w := testutil.PerformRequest(c.router, http.MethodGet, "/api/products/"+query, nil, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var products []models.Product
		testutil.DecodeJSON(t, w, &products)
		return products
	}

	t.Run("only available products", func(t *testing.T) {
		products := list(t, "")
		assert.Equal(t, []string{"go-book", "rust-book", "chess"}, slugs(products))
		assert.Equal(t, "Books", products[0].CategoryName)
		assert.True(t, products[0].Price.Equal(decimal.RequireFromString("30")))
	})

	t.Run("filters", func(t *testing.T) {
		assert.Equal(t, []string{"chess"}, slugs(list(t, "?category="+itoa(c.games.ID))))
		assert.Equal(t, []string{"rust-book"}, slugs(list(t, "?stock=0")))
		assert.Equal(t, []string{"go-book", "chess"}, slugs(list(t, "?max_price=30")))
		assert.Equal(t, []string{"go-book", "rust-book"}, slugs(list(t, "?min_price=20")))
		assert.Equal(t, []string{"rust-book"}, slugs(list(t, "?search=RUST")))
		assert.Equal(t, []string{"go-book"}, slugs(list(t, "?search=about+go")))
	})

	t.Run("ordering", func(t *testing.T) {
		assert.Equal(t, []string{"rust-book", "go-book", "chess"}, slugs(list(t, "?ordering=-price")))
		assert.Equal(t, []string{"chess", "go-book", "rust-book"}, slugs(list(t, "?ordering=price,bogus")))
	})

	t.Run("bad filter", func(t *testing.T) {
		w := testutil.PerformRequest(c.router, http.MethodGet, "/api/products/?min_price=cheap", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	c := newCatalog(t)
	testutil.CreateProduct(t, c.db, c.books, "go-book", "30.00", 5)
	testutil.CreateProduct(t, c.db, c.games, "chess", "12.99", 3)
	testutil.CreateProduct(t, c.db, c.games, "sale_100%", "5.00", 1)

	search := func(t *testing.T, term string) []string {
		w := testutil.PerformRequest(c.router, http.MethodGet, "/api/products/?search="+url.QueryEscape(term), nil, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var products []models.Product
		testutil.DecodeJSON(t, w, &products)
		return slugs(products)
	}

	assert.Equal(t, []string{"sale_100%"}, search(t, "%"))
	assert.Equal(t, []string{"sale_100%"}, search(t, "_"))
	assert.Equal(t, []string{"sale_100%"}, search(t, "e_1"))
	assert.Empty(t, search(t, "o_b"))
	assert.Empty(t, search(t, "!"))
}

func TestGetProductBySlug(t *testing.T) {
	c := newCatalog(t)
	testutil.CreateProduct(t, c.db, c.books, "go-book", "30.00", 5)
	hidden := testutil.CreateProduct(t, c.db, c.books, "hidden", "1.00", 1)
	require.NoError(t, c.db.Model(&hidden).Update("is_available", false).Error)

	w := testutil.PerformRequest(c.router, http.MethodGet, "/api/products/go-book/", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"price":"30.00"`)
	var product models.Product
	testutil.DecodeJSON(t, w, &product)
	assert.Equal(t, "go-book", product.Slug)
	assert.Equal(t, "Books", product.CategoryName)

	w = testutil.PerformRequest(c.router, http.MethodGet, "/api/products/hidden/", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testutil.PerformRequest(c.router, http.MethodGet, "/api/products/missing/", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateProduct(t *testing.T) {
	c := newCatalog(t)
	body := gin.H{
		"name":     "Go Book",
		"slug":     "go-book",
		"price":    "30.00",
		"stock":    5,
		"category": c.books.ID,
	}

	t.Run("requires authentication", func(t *testing.T) {
		w := testutil.PerformRequest(c.router, http.MethodPost, "/api/products/", body, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("requires staff", func(t *testing.T) {
		w := testutil.PerformRequest(c.router, http.MethodPost, "/api/products/", body, testutil.Auth(t, c.customer))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("staff creates", func(t *testing.T) {
		w := testutil.PerformRequest(c.router, http.MethodPost, "/api/products/", body, testutil.Auth(t, c.staff))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var product models.Product
		testutil.DecodeJSON(t, w, &product)
		assert.Equal(t, "Books", product.CategoryName)
		assert.True(t, product.IsAvailable)
		assert.Equal(t, 5, product.Stock)
	})

	invalid := map[string]gin.H{
		"duplicate slug":   {"name": "Again", "slug": "go-book", "price": "1", "category": c.books.ID},
		"unknown category": {"name": "X", "slug": "x", "price": "1", "category": 999},
		"bad slug":         {"name": "X", "slug": "not a slug", "price": "1", "category": c.books.ID},
		"negative price":   {"name": "X", "slug": "x", "price": "-1", "category": c.books.ID},
		"huge price":       {"name": "X", "slug": "x", "price": "100000000", "category": c.books.ID},
		"missing name":     {"slug": "x", "price": "1", "category": c.books.ID},
		"negative stock":   {"name": "X", "slug": "x", "price": "1", "stock": -1, "category": c.books.ID},
	}
	for name, body := range invalid {
		t.Run(name, func(t *testing.T) {
			w := testutil.PerformRequest(c.router, http.MethodPost, "/api/products/", body, testutil.Auth(t, c.staff))
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestUpdateProduct(t *testing.T) {
	c := newCatalog(t)
	testutil.CreateProduct(t, c.db, c.books, "go-book", "30.00", 5)
	staff := testutil.Auth(t, c.staff)

	t.Run("patch changes only given fields", func(t *testing.T) {
		w := testutil.PerformRequest(c.router, http.MethodPatch, "/api/products/go-book/",
			gin.H{"price": "25.50", "category": c.games.ID}, staff)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var product models.Product
		testutil.DecodeJSON(t, w, &product)
		assert.True(t, product.Price.Equal(decimal.RequireFromString("25.5")))
		assert.Equal(t, "Games", product.CategoryName)
		assert.Equal(t, 5, product.Stock)
	})

	t.Run("put needs the full body", func(t *testing.T) {
		w := testutil.PerformRequest(c.router, http.MethodPut, "/api/products/go-book/", gin.H{"price": "1"}, staff)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("put renames the slug", func(t *testing.T) {
		w := testutil.PerformRequest(c.router, http.MethodPut, "/api/products/go-book/", gin.H{
			"name": "Go Book 2e", "slug": "go-book-2e", "price": "35", "category": c.books.ID,
		}, staff)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = testutil.PerformRequest(c.router, http.MethodGet, "/api/products/go-book-2e/", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing product", func(t *testing.T) {
		w := testutil.PerformRequest(c.router, http.MethodPatch, "/api/products/nope/", gin.H{"stock": 1}, staff)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDeleteProduct(t *testing.T) {
	c := newCatalog(t)
	product := testutil.CreateProduct(t, c.db, c.books, "go-book", "30.00", 5)

	var cart models.Cart
	require.NoError(t, c.db.Omit("User").Create(&models.Cart{UserID: c.customer.ID}).Error)
	require.NoError(t, c.db.Where("user_id = ?", c.customer.ID).First(&cart).Error)
	require.NoError(t, cartControllers.AddItem(c.db, cart.ID, product.ID, 2))

	w := testutil.PerformRequest(c.router, http.MethodDelete, "/api/products/go-book/", nil, testutil.Auth(t, c.customer))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutil.PerformRequest(c.router, http.MethodDelete, "/api/products/go-book/", nil, testutil.Auth(t, c.staff))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = testutil.PerformRequest(c.router, http.MethodGet, "/api/products/go-book/", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var items int64
	require.NoError(t, c.db.Model(&models.CartItem{}).Where("cart_id = ?", cart.ID).Count(&items).Error)
	assert.Zero(t, items)

	// the slug stays reserved by the soft-deleted row
	w = testutil.PerformRequest(c.router, http.MethodPost, "/api/products/", gin.H{
		"name": "Go", "slug": "go-book", "price": "1", "category": c.books.ID,
	}, testutil.Auth(t, c.staff))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadProductImage(t *testing.T) {
	db := testutil.NewDB(t)
	dir := t.TempDir()
	router := testutil.Router(db, routes.Options{Store: storage.NewLocal(dir, "http://cdn.test")})
	staff := testutil.CreateUser(t, db, "staff", true)
	books := testutil.CreateCategory(t, db, "Books", "books")
	testutil.CreateProduct(t, db, books, "go-book", "30.00", 5)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "cover.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	headers := testutil.Auth(t, staff)
	headers["Content-Type"] = mw.FormDataContentType()
	w := testutil.PerformRequest(router, http.MethodPost, "/api/products/go-book/image/", &buf, headers)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var product models.Product
	testutil.DecodeJSON(t, w, &product)
	require.True(t, strings.HasPrefix(product.Image, "http://cdn.test/uploads/products/"), product.Image)

	key := strings.TrimPrefix(product.Image, "http://cdn.test/uploads/")
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	w = testutil.PerformRequest(router, http.MethodPost, "/api/products/go-book/image/", nil, testutil.Auth(t, staff))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
