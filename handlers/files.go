package handlers

import (
	"gallery/models"
	"gallery/storage"
	"log"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// storageFor returns the bucket an image file was stored in, other files (avatars) live in the default one
func storageFor(name string) storage.StorageAPI {
	bucketID, found, err := models.ImageBucketFor(storage.PublicURL(name))
	if err != nil {
		log.Printf("File: %s, bucket lookup error: %v", name, err)
	}
	if found {
		return storage.StorageFrom(bucketID)
	}
	return storage.GetDefaultStorage()
}

// FileServe serves /uploads/:name. Disk buckets handle byte ranges, S3 buckets redirect.
func FileServe(c *gin.Context) {
	name, ok := storage.ResolvePublicURL(storage.PublicURL(c.Param("name")))
	if !ok {
		c.JSON(http.StatusNotFound, Response{"file not found"})
		return
	}
	s := storageFor(name)
	if s == nil {
		c.JSON(http.StatusNotFound, Response{"file not found"})
		return
	}
	if contentType := mime.TypeByExtension(filepath.Ext(name)); contentType != "" {
		c.Header("content-type", contentType)
	}
	s.Serve(name, c.Request, c.Writer)
}
