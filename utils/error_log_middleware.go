package utils

import (
	"bytes"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

const errorBodyLogLimit = 500

type errorLogWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *errorLogWriter) Write(b []byte) (int, error) {
	if w.Status() >= http.StatusBadRequest && w.body.Len() < errorBodyLogLimit {
		w.body.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

// ErrorLogMiddleware logs the error responses of a request once it is done.
// Missing sessions are expected and skipped. Doesn't work with GZIP.
func ErrorLogMiddleware(c *gin.Context) {
	w := &errorLogWriter{ResponseWriter: c.Writer}
	c.Writer = w
	c.Next()

	status := w.Status()
	if status < http.StatusBadRequest || status == http.StatusUnauthorized {
		return
	}
	body := w.body.Bytes()
	if len(body) > errorBodyLogLimit {
		body = body[:errorBodyLogLimit]
	}
	log.Printf("[DEBUG ERROR]: %s %s, Status %d, Body: %s", c.Request.Method, c.Request.URL.Path, status, body)
}
