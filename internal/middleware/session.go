package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flicky/go-storefront/internal/config"
	"github.com/flicky/go-storefront/internal/model"
)

const sessionKey = "sessionCartID"

// SessionCart makes sure every visitor carries an opaque guest cart id. The
// cookie is issued on the first request and reused afterwards.
func SessionCart(cfg config.SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(cfg.CookieName)
		if err != nil || id == "" {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cfg.CookieName, id, int(cfg.MaxAge.Seconds()), "/", "", cfg.Secure, true)
		}
		c.Set(sessionKey, id)
		c.Next()
	}
}

func GetSessionID(c *gin.Context) string {
	id, _ := c.Get(sessionKey)
	s, _ := id.(string)
	return s
}

// CartOwner keys the request's cart by user when signed in, by guest session otherwise.
func CartOwner(c *gin.Context) model.CartOwner {
	return model.CartOwner{UserID: GetUserID(c), SessionID: GetSessionID(c)}
}
