package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/NguyenNhuTu09/TIT-Shop/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrInvalidCredentials = errors.New("unable to log in with provided credentials")

type RegisterInput struct {
	Username  string `json:"username" binding:"required,max=150"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"max=150"`
	LastName  string `json:"last_name" binding:"max=150"`
}

type CredentialsInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshInput struct {
	Refresh string `json:"refresh" binding:"required"`
}

// Authenticate checks a username/password pair against the stored hash.
func Authenticate(db *gorm.DB, username, password string) (models.User, error) {
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	if !CheckPassword(user.Password, password) {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// POST /api/register/
func Register(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input RegisterInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		input.Username = strings.TrimSpace(input.Username)
		if input.Username == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: username may not be blank"})
			return
		}
		if len(input.Password) > MaxPasswordBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: password may not be longer than 72 bytes"})
			return
		}

		var count int64
		if err := db.Model(&models.User{}).Where("username = ?", input.Username).Count(&count).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check username"})
			return
		}
		if count > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A user with that username already exists"})
			return
		}

		hash, err := HashPassword(input.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}

		user := models.User{
			Username:  input.Username,
			Email:     input.Email,
			FirstName: input.FirstName,
			LastName:  input.LastName,
			Password:  hash,
		}
		if err := db.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "A user with that username already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}

		c.JSON(http.StatusCreated, user)
	}
}

// POST /api/login/ returns the user's opaque token, creating it on first login.
func Login(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input CredentialsInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		user, err := Authenticate(db, input.Username, input.Password)
		if err != nil {
			if errors.Is(err, ErrInvalidCredentials) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to log in with provided credentials"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to authenticate"})
			return
		}

		token := models.AuthToken{Key: uuid.NewString(), UserID: user.ID}
		if err := db.Where(models.AuthToken{UserID: user.ID}).FirstOrCreate(&token).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token.Key})
	}
}

// POST /api/token/
func ObtainTokenPair(db *gorm.DB, tokens *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input CredentialsInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		user, err := Authenticate(db, input.Username, input.Password)
		if err != nil {
			if errors.Is(err, ErrInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "No active account found with the given credentials"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to authenticate"})
			return
		}

		pair, err := tokens.IssuePair(user)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Token generation failed"})
			return
		}
		c.JSON(http.StatusOK, pair)
	}
}

// POST /api/token/refresh/
func RefreshToken(tokens *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input RefreshInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		access, err := tokens.Refresh(input.Refresh)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is invalid or expired"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"access": access})
	}
}
