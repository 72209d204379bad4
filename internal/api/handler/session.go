package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	SessionCookie = "oracle_session"
	sessionKey    = "session_id"
)

// SessionMiddleware attaches a session id to every request, issuing a new
// cookie when the browser has none or sends garbage.
func SessionMiddleware(maxAge int) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(cookieValue(c))
		if err != nil {
			id = uuid.New()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, id.String(), maxAge, "/", "", false, true)
		}
		c.Set(sessionKey, id)
		c.Next()
	}
}

func cookieValue(c *gin.Context) string {
	v, err := c.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return v
}

// SessionID returns the id set by SessionMiddleware.
func SessionID(c *gin.Context) uuid.UUID {
	return c.MustGet(sessionKey).(uuid.UUID)
}
