package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go-storefront/internal/pkg/apperror"
	"go-storefront/internal/pkg/response"
	"go-storefront/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ContextUserID      = "user_id_validated"
	ContextAccessToken = "access_token"
)

var (
	ErrUnauthorized = apperror.New(apperror.CodeUnauthorized, "User not authenticated", http.StatusUnauthorized)
	ErrInvalidToken = apperror.New("INVALID_TOKEN", "Invalid token", http.StatusUnauthorized)
	ErrTokenExpired = apperror.New("TOKEN_EXPIRED", "Token expired", http.StatusUnauthorized)
)

func abort(c *gin.Context, e *apperror.AppError) {
	response.Error(c, e.HTTPStatus, e.Code, e.Message, nil)
	c.Abort()
}

// AuthMiddleware validates the access token from cookieName, or from an
// Authorization bearer header when the cookie is absent. The raw token is
// kept on the context so it can be forwarded to the marketplace.
func AuthMiddleware(secret, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Get token
		tokenString, err := c.Cookie(cookieName)
		if err != nil || tokenString == "" {
			tokenString = bearerToken(c.GetHeader("Authorization"))
		}
		if tokenString == "" {
			abort(c, ErrUnauthorized)
			return
		}

		// 2. Parse & Validate
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			errObj := ErrInvalidToken
			if errors.Is(err, jwt.ErrTokenExpired) {
				errObj = ErrTokenExpired
			}
			abort(c, errObj)
			return
		}

		// 3. Extract claims
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abort(c, ErrInvalidToken)
			return
		}

		userID, ok := claims["user_id"].(string)
		if !ok || userID == "" {
			abort(c, apperror.New("INVALID_TOKEN", "User ID not found in token", http.StatusUnauthorized))
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextAccessToken, tokenString)

		c.Next()
	}
}

// CurrentIdentity reads what AuthMiddleware stored on the context.
func CurrentIdentity(c *gin.Context) session.Identity {
	return session.Identity{
		UserID:      c.GetString(ContextUserID),
		AccessToken: c.GetString(ContextAccessToken),
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
