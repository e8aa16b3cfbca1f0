package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/flicky/go-storefront/internal/dto"
	"github.com/flicky/go-storefront/internal/model"
	"github.com/flicky/go-storefront/internal/service"
)

var errNoToken = errors.New("missing bearer token")

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, dto.Response{Success: false, Message: message})
}

// parseToken validates the bearer token and returns the user id and role it carries.
func parseToken(header, secret string) (uuid.UUID, string, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return uuid.Nil, "", errNoToken
	}

	token, err := jwt.Parse(header[7:], func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, "", errors.New("invalid claims")
	}
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, "", errors.New("invalid user id")
	}
	role, _ := claims["role"].(string)
	return userID, role, nil
}

func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role, err := parseToken(c.GetHeader("Authorization"), secret)
		if err != nil {
			if errors.Is(err, errNoToken) {
				abort(c, http.StatusUnauthorized, "unauthorized")
				return
			}
			abort(c, http.StatusUnauthorized, err.Error())
			return
		}
		c.Set("userID", userID)
		c.Set("userRole", role)
		c.Next()
	}
}

// OptionalAuth identifies the user when a valid token is sent and lets
// anonymous requests through otherwise. Guests still shop with a cart.
func OptionalAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, role, err := parseToken(c.GetHeader("Authorization"), secret); err == nil {
			c.Set("userID", userID)
			c.Set("userRole", role)
		}
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserRole(c) != model.RoleAdmin {
			abort(c, http.StatusForbidden, "admin only")
			return
		}
		c.Next()
	}
}

func GetUserID(c *gin.Context) uuid.UUID {
	id, _ := c.Get("userID")
	uid, _ := id.(uuid.UUID)
	return uid
}

func GetUserRole(c *gin.Context) string {
	role, _ := c.Get("userRole")
	r, _ := role.(string)
	return r
}

func GetActor(c *gin.Context) service.Actor {
	return service.Actor{UserID: GetUserID(c), Role: GetUserRole(c)}
}
