package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/NguyenNhuTu09/TIT-Shop/auth"
	"github.com/NguyenNhuTu09/TIT-Shop/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	userKey   = "user"
	userIDKey = "user_id"
)

// ValidateToken accepts either "Bearer <access jwt>" or "Token <key>" and
// stores the authenticated user on the context.
func ValidateToken(db *gorm.DB, tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is missing"})
			return
		}

		scheme, credential, ok := strings.Cut(header, " ")
		credential = strings.TrimSpace(credential)
		if !ok || credential == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid Authorization header"})
			return
		}

		var user models.User
		var err error
		switch strings.ToLower(scheme) {
		case "bearer":
			user, err = userFromJWT(db, tokens, credential)
		case "token":
			user, err = userFromKey(db, credential)
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unsupported authorization scheme"})
			return
		}
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) || !isDBError(err) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
			return
		}

		c.Set(userKey, user)
		c.Set(userIDKey, user.ID)
		c.Next()
	}
}

// RequireStaff must run after ValidateToken.
func RequireStaff(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication credentials were not provided"})
		return
	}
	if !user.IsStaff {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to perform this action"})
		return
	}
	c.Next()
}

// CurrentUser returns the user stored by ValidateToken.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, exists := c.Get(userKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

type dbError struct{ err error }

func (e dbError) Error() string { return e.err.Error() }
func (e dbError) Unwrap() error { return e.err }

func isDBError(err error) bool {
	var dbErr dbError
	return errors.As(err, &dbErr)
}

func userFromJWT(db *gorm.DB, tokens *auth.TokenManager, raw string) (models.User, error) {
	claims, err := tokens.Parse(raw, auth.TokenTypeAccess)
	if err != nil {
		return models.User{}, err
	}
	var user models.User
	if err := db.First(&user, claims.UserID).Error; err != nil {
		return models.User{}, dbError{err}
	}
	return user, nil
}

func userFromKey(db *gorm.DB, key string) (models.User, error) {
	var token models.AuthToken
	if err := db.Preload("User").Where(&models.AuthToken{Key: key}).First(&token).Error; err != nil {
		return models.User{}, dbError{err}
	}
	return token.User, nil
}
