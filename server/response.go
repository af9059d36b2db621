package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flowrun/errors"
)

// ListResponse is the envelope for collection endpoints.
type ListResponse struct {
	Data any   `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta describes a collection.
type Meta struct {
	Total int `json:"total"`
}

// RespondWithError writes err as the structured error body. Errors that are
// not an *errors.AppError become a 500 INTERNAL_ERROR.
func RespondWithError(c *gin.Context, err error) {
	appErr := errors.From(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(appErr.HTTPStatus, appErr.ToResponse())
}

// RespondList writes items with their count.
func RespondList[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, ListResponse{Data: items, Meta: &Meta{Total: len(items)}})
}
