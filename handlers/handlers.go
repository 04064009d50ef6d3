package handlers

import (
	"errors"
	"gallery/models"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Error string `json:"error"`
}

type CountResponse struct {
	Error string `json:"error"`
	Count int64  `json:"count"`
}

type Pagination struct {
	Current int   `json:"current"`
	Pages   int64 `json:"pages"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
}

var (
	// Predefined errors
	OKResponse           = Response{}
	InvalidIDResponse    = Response{"invalid id"}
	DBErrorResponse      = Response{"internal server error"}
	StorageErrorResponse = Response{"storage unavailable"}
)

func newPagination(page models.Page, total int64) Pagination {
	return Pagination{
		Current: page.Page,
		Pages:   page.Pages(total),
		Total:   total,
		Limit:   page.Limit,
	}
}

// idParam parses a positive numeric path parameter, responding with 400 otherwise
func idParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, InvalidIDResponse)
		return 0, false
	}
	return id, true
}

// respondError maps model errors to status codes. Anything unexpected is logged and hidden from the user.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, Response{models.ErrorMessage(err)})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{models.ErrorMessage(err)})
	case errors.Is(err, models.ErrConflict):
		c.JSON(http.StatusConflict, Response{models.ErrorMessage(err)})
	default:
		log.Printf("%s %s, error: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, DBErrorResponse)
	}
}
