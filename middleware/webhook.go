package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const SignatureHeader = "X-Signature"

// PaymentWebhookAuth verifies the hex HMAC-SHA256 of the raw body sent by the
// payment provider. The body is restored for the next handler.
func PaymentWebhookAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "payment webhook is not configured"})
			c.Abort()
			return
		}

		provided := strings.ToLower(c.GetHeader(SignatureHeader))
		if provided == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "missing webhook signature"})
			c.Abort()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read webhook body"})
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		expected := SignPayload(secret, body)
		if !hmac.Equal([]byte(expected), []byte(provided)) {
			log.Printf("❌ Rejected payment webhook with bad signature")
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid webhook signature"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
