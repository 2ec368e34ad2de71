// Package testutil holds fixtures shared by the handler tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/NguyenNhuTu09/TIT-Shop/auth"
	"github.com/NguyenNhuTu09/TIT-Shop/config"
	"github.com/NguyenNhuTu09/TIT-Shop/database"
	"github.com/NguyenNhuTu09/TIT-Shop/events"
	"github.com/NguyenNhuTu09/TIT-Shop/models"
	"github.com/NguyenNhuTu09/TIT-Shop/routes"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	Password    = "password123"
	AdminAPIKey = "test-api-key"
	JWTSecret   = "test-secret"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Config returns a configuration pointing at an in-memory sqlite database.
func Config() *config.Config {
	return &config.Config{
		Port:                 "0",
		GinMode:              gin.TestMode,
		DBDriver:             "sqlite",
		JWTSecret:            JWTSecret,
		AccessTokenTTL:       5 * time.Minute,
		RefreshTokenTTL:      24 * time.Hour,
		AdminAPIKey:          AdminAPIKey,
		CORSOrigins:          []string{"*"},
		StorageBackend:       "local",
		EventsBackend:        "none",
		PaymentWebhookSecret: "webhook-secret",
	}
}

// NewDB opens a fresh migrated in-memory database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(Config())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// PreemptCreate runs insert once, right before the next insert into table,
// the way a concurrent request that committed first would.
func PreemptCreate(t *testing.T, db *gorm.DB, table string, insert func(tx *gorm.DB) error) {
	t.Helper()
	fired := false
	err := db.Callback().Create().Before("gorm:begin_transaction").Register("testutil:preempt_create", func(tx *gorm.DB) {
		if fired || tx.Statement.Table != table {
			return
		}
		fired = true
		if err := insert(tx.Session(&gorm.Session{NewDB: true})); err != nil {
			tx.AddError(err)
		}
	})
	require.NoError(t, err)
}

func Tokens() *auth.TokenManager {
	cfg := Config()
	return auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
}

// CreateUser stores a user whose password is Password.
func CreateUser(t *testing.T, db *gorm.DB, username string, staff bool) models.User {
	t.Helper()
	hash, err := auth.HashPassword(Password)
	require.NoError(t, err)

	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hash,
		IsStaff:  staff,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func CreateCategory(t *testing.T, db *gorm.DB, name, slug string) models.Category {
	t.Helper()
	category := models.Category{Name: name, Slug: slug}
	require.NoError(t, db.Create(&category).Error)
	return category
}

// CreateProduct stores an available product.
func CreateProduct(t *testing.T, db *gorm.DB, category models.Category, slug, price string, stock int) models.Product {
	t.Helper()
	product := models.Product{
		Name:        slug,
		Slug:        slug,
		Description: "about " + slug,
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		IsAvailable: true,
		CategoryID:  category.ID,
	}
	require.NoError(t, db.Omit("Category").Create(&product).Error)
	return product
}

// Stock reads the current stock of a product.
func Stock(t *testing.T, db *gorm.DB, productID uint) int {
	t.Helper()
	var product models.Product
	require.NoError(t, db.Unscoped().First(&product, productID).Error)
	return product.Stock
}

// BearerHeader returns an Authorization value carrying a fresh access token.
func BearerHeader(t *testing.T, user models.User) string {
	t.Helper()
	pair, err := Tokens().IssuePair(user)
	require.NoError(t, err)
	return "Bearer " + pair.Access
}

// PerformRequest sends body (JSON encoded unless it is nil, a string or an
// io.Reader) and records the response.
func PerformRequest(h http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case io.Reader:
		reader = b
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			panic(fmt.Sprintf("encode body: %v", err))
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// Auth is shorthand for the headers of an authenticated request.
func Auth(t *testing.T, user models.User) map[string]string {
	return map[string]string{"Authorization": BearerHeader(t, user)}
}

// DecodeJSON unmarshals the recorded body into v.
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

// Router builds the full API with test defaults for anything opts leaves unset.
func Router(db *gorm.DB, opts routes.Options) *gin.Engine {
	if opts.Config == nil {
		opts.Config = Config()
	}
	if opts.Tokens == nil {
		opts.Tokens = Tokens()
	}
	r := gin.New()
	routes.SetupRoutes(r, db, opts)
	return r
}

// Recorder is a publisher that keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *Recorder) Publish(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

// Types lists the recorded event types in arrival order.
func (r *Recorder) Types() []string {
	var types []string
	for _, e := range r.Events() {
		types = append(types, e.Type)
	}
	return types
}
