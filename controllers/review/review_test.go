package reviewControllers_test

import (
	"net/http"
	"strconv"
	"testing"

	reviewControllers "github.com/NguyenNhuTu09/TIT-Shop/controllers/review"
	"github.com/NguyenNhuTu09/TIT-Shop/models"
	"github.com/NguyenNhuTu09/TIT-Shop/routes"
	"github.com/NguyenNhuTu09/TIT-Shop/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func reviewPath(id uint) string {
	return "/api/reviews/" + strconv.FormatUint(uint64(id), 10) + "/"
}

func TestCreateReview(t *testing.T) {
	db := testutil.NewDB(t)
	r := testutil.Router(db, routes.Options{})
	alice := testutil.CreateUser(t, db, "alice", false)
	book := testutil.CreateProduct(t, db, testutil.CreateCategory(t, db, "Books", "books"), "go-book", "30.00", 5)
	headers := testutil.Auth(t, alice)

	w := testutil.PerformRequest(r, http.MethodPost, "/api/reviews/",
		gin.H{"product": book.ID, "rating": 4, "comment": "solid"}, headers)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var review models.ProductReview
	testutil.DecodeJSON(t, w, &review)
	assert.Equal(t, "alice", review.UserName)
	assert.Equal(t, book.ID, review.ProductID)
	assert.Equal(t, 4, review.Rating)

	cases := []struct {
		name string
		body gin.H
	}{
		{"duplicate", gin.H{"product": book.ID, "rating": 5}},
		{"rating too high", gin.H{"product": book.ID, "rating": 6}},
		{"missing rating", gin.H{"product": book.ID}},
		{"unknown product", gin.H{"product": 999, "rating": 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := testutil.PerformRequest(r, http.MethodPost, "/api/reviews/", tc.body, headers)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}

	_, err := reviewControllers.CreateReview(db, alice.ID, reviewControllers.CreateReviewInput{Product: book.ID, Rating: 2})
	assert.ErrorIs(t, err, reviewControllers.ErrAlreadyReviewed)

	w = testutil.PerformRequest(r, http.MethodPost, "/api/reviews/", gin.H{"product": book.ID, "rating": 3}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateAndDeleteReview(t *testing.T) {
	db := testutil.NewDB(t)
	r := testutil.Router(db, routes.Options{})
	alice := testutil.CreateUser(t, db, "alice", false)
	bob := testutil.CreateUser(t, db, "bob", false)
	book := testutil.CreateProduct(t, db, testutil.CreateCategory(t, db, "Books", "books"), "go-book", "30.00", 5)
	headers := testutil.Auth(t, alice)

	review, err := reviewControllers.CreateReview(db, alice.ID, reviewControllers.CreateReviewInput{Product: book.ID, Rating: 3, Comment: "ok"})
	require.NoError(t, err)

	t.Run("other users cannot see it", func(t *testing.T) {
		w := testutil.PerformRequest(r, http.MethodGet, reviewPath(review.ID), nil, testutil.Auth(t, bob))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("patch keeps the comment", func(t *testing.T) {
		w := testutil.PerformRequest(r, http.MethodPatch, reviewPath(review.ID), gin.H{"rating": 5}, headers)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var got models.ProductReview
		testutil.DecodeJSON(t, w, &got)
		assert.Equal(t, 5, got.Rating)
		assert.Equal(t, "ok", got.Comment)
	})

	t.Run("put requires a rating", func(t *testing.T) {
		w := testutil.PerformRequest(r, http.MethodPut, reviewPath(review.ID), gin.H{"comment": "x"}, headers)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("put replaces the comment", func(t *testing.T) {
		w := testutil.PerformRequest(r, http.MethodPut, reviewPath(review.ID), gin.H{"rating": 2}, headers)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var got models.ProductReview
		testutil.DecodeJSON(t, w, &got)
		assert.Equal(t, 2, got.Rating)
		assert.Empty(t, got.Comment)
	})

	t.Run("invalid rating", func(t *testing.T) {
		w := testutil.PerformRequest(r, http.MethodPatch, reviewPath(review.ID), gin.H{"rating": 0}, headers)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	w := testutil.PerformRequest(r, http.MethodDelete, reviewPath(review.ID), nil, headers)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = testutil.PerformRequest(r, http.MethodGet, reviewPath(review.ID), nil, headers)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListReviews(t *testing.T) {
	db := testutil.NewDB(t)
	r := testutil.Router(db, routes.Options{})
	alice := testutil.CreateUser(t, db, "alice", false)
	bob := testutil.CreateUser(t, db, "bob", false)
	category := testutil.CreateCategory(t, db, "Books", "books")
	book := testutil.CreateProduct(t, db, category, "go-book", "30.00", 5)
	hidden := testutil.CreateProduct(t, db, category, "draft", "10.00", 1)
	require.NoError(t, db.Model(&hidden).Update("is_available", false).Error)

	for _, u := range []models.User{alice, bob} {
		_, err := reviewControllers.CreateReview(db, u.ID, reviewControllers.CreateReviewInput{Product: book.ID, Rating: 4})
		require.NoError(t, err)
	}

	w := testutil.PerformRequest(r, http.MethodGet, "/api/reviews/", nil, testutil.Auth(t, alice))
	require.Equal(t, http.StatusOK, w.Code)
	var mine []models.ProductReview
	testutil.DecodeJSON(t, w, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, "alice", mine[0].UserName)

	w = testutil.PerformRequest(r, http.MethodGet, "/api/products/go-book/reviews/", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []models.ProductReview
	testutil.DecodeJSON(t, w, &all)
	assert.Len(t, all, 2)

	w = testutil.PerformRequest(r, http.MethodGet, "/api/products/draft/reviews/", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testutil.PerformRequest(r, http.MethodGet, "/api/products/missing/reviews/", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateReviewLosingRace(t *testing.T) {
	db := testutil.NewDB(t)
	r := testutil.Router(db, routes.Options{})
	alice := testutil.CreateUser(t, db, "alice", false)
	book := testutil.CreateProduct(t, db, testutil.CreateCategory(t, db, "Books", "books"), "go-book", "30.00", 5)

	testutil.PreemptCreate(t, db, "product_reviews", func(tx *gorm.DB) error {
		return tx.Omit("User", "Product").Create(&models.ProductReview{UserID: alice.ID, ProductID: book.ID, Rating: 4}).Error
	})

	w := testutil.PerformRequest(r, http.MethodPost, "/api/reviews/", gin.H{"product": book.ID, "rating": 5}, testutil.Auth(t, alice))
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), reviewControllers.ErrAlreadyReviewed.Error())
}
