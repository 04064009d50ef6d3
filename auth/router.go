package auth

import (
	"gallery/models"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandlerFunc is called for authenticated users only
type HandlerFunc func(c *gin.Context, user *models.User)

// Router is a wrapper that adds the auth check + User pre-loading
type Router struct {
	Base gin.IRoutes
}

func (cr *Router) baseExec(c *gin.Context, handler HandlerFunc) {
	session := LoadSession(c)
	user := session.User()
	if user.ID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
		return
	}
	handler(c, &user)
}

func (cr *Router) wrap(handler HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		cr.baseExec(c, handler)
	}
}

func (cr *Router) POST(path string, handler HandlerFunc) {
	cr.Base.POST(path, cr.wrap(handler))
}

func (cr *Router) GET(path string, handler HandlerFunc) {
	cr.Base.GET(path, cr.wrap(handler))
}

func (cr *Router) PUT(path string, handler HandlerFunc) {
	cr.Base.PUT(path, cr.wrap(handler))
}

func (cr *Router) DELETE(path string, handler HandlerFunc) {
	cr.Base.DELETE(path, cr.wrap(handler))
}
