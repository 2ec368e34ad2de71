package database

import (
	"errors"
	"fmt"
	"log"
	"net"

	"github.com/NguyenNhuTu09/TIT-Shop/auth"
	"github.com/NguyenNhuTu09/TIT-Shop/config"
	"github.com/NguyenNhuTu09/TIT-Shop/models"
	"github.com/glebarez/sqlite"
	mysqlcfg "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open sets up the GORM DB connection for the configured driver.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres", "":
		dialector = postgres.Open(cfg.PostgresDSN())
	case "mysql":
		dialector = mysql.Open(MySQLDSN(cfg))
	case "sqlite":
		dialector = sqlite.Open(sqlitePath(cfg))
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if cfg.DBDriver == "sqlite" {
		// in-memory databases live on a single connection
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// MySQLDSN builds the DSN through the driver's own config type.
func MySQLDSN(cfg *config.Config) string {
	if cfg.DatabaseURL != "" {
		return cfg.DatabaseURL
	}
	port := cfg.DBPort
	if port == "" {
		port = "3306"
	}
	c := mysqlcfg.NewConfig()
	c.User = cfg.DBUser
	c.Passwd = cfg.DBPassword
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.DBHost, port)
	c.DBName = cfg.DBName
	c.ParseTime = true
	c.Params = map[string]string{"charset": "utf8mb4"}
	return c.FormatDSN()
}

func sqlitePath(cfg *config.Config) string {
	if cfg.DatabaseURL != "" {
		return cfg.DatabaseURL
	}
	return ":memory:"
}

// Migrate auto-migrates all tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}

// EnsureAdmin creates the bootstrap staff account when it does not exist yet.
func EnsureAdmin(db *gorm.DB, username, email, password string) error {
	if username == "" || password == "" {
		return nil
	}

	var existing models.User
	err := db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		if !existing.IsStaff {
			return db.Model(&existing).Update("is_staff", true).Error
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	admin := models.User{
		Username: username,
		Email:    email,
		Password: hash,
		IsStaff:  true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	log.Printf("✅ Created admin user %q", username)
	return nil
}
