package handlers

import (
	"gallery/auth"
	"gallery/utils"

	"github.com/gin-gonic/gin"
)

// Register adds all API end-points and the uploaded files to the router.
// Session handling must already be installed on it.
func Register(router *gin.Engine) {
	api := router.Group("/api")
	authRouter := &auth.Router{Base: api}

	// Auth
	api.POST("/auth/register", UserRegister)
	api.POST("/auth/login", UserLogin)
	api.POST("/auth/logout", UserLogout)
	authRouter.GET("/auth/verify", UserGetStatus)
	// Profile
	authRouter.GET("/users/me", UserGetStatus)
	authRouter.PUT("/users/me", UserUpdate)
	authRouter.POST("/users/me/avatar", UserAvatarUpload)
	authRouter.DELETE("/users/me/avatar", UserAvatarDelete)
	// Images
	authRouter.GET("/images", ImageList)
	authRouter.POST("/images", ImageUpload)
	authRouter.GET("/images/tags/all", ImageTags)
	authRouter.POST("/images/bulk/move", ImagesMove)
	authRouter.GET("/images/:id", ImageGet)
	authRouter.PUT("/images/:id", ImageUpdate)
	authRouter.DELETE("/images/:id", ImageDelete)
	// Albums
	authRouter.GET("/albums", AlbumList)
	authRouter.POST("/albums", AlbumCreate)
	authRouter.GET("/albums/:id", AlbumGet)
	authRouter.PUT("/albums/:id", AlbumUpdate)
	authRouter.DELETE("/albums/:id", AlbumDelete)
	authRouter.GET("/albums/:id/images", AlbumImages)
	authRouter.POST("/albums/:id/cover", AlbumSetCover)
	// Notifications
	authRouter.GET("/events", Events)

	files := router.Group("/uploads")
	files.Use((&utils.CacheRouter{CacheTime: utils.CacheWeek}).Handler())
	files.GET("/:name", FileServe)
}
