package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/ameena/internal/utils"
)

type APIError struct {
	Code  utils.Code `json:"code"`
	Error string     `json:"error"`
	Hint  string     `json:"hint,omitempty"`
}

// writeError renders err with the status of its code. Wrapped causes are
// attached to the gin context for the request logger and never sent out.
func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)
	_ = c.Error(err)

	var ae *utils.AppError
	if errors.As(err, &ae) {
		c.AbortWithStatusJSON(status, APIError{
			Code:  ae.Code,
			Error: ae.Message,
			Hint:  ae.Hint,
		})
		return
	}

	c.AbortWithStatusJSON(status, APIError{
		Code:  utils.CodeInternal,
		Error: http.StatusText(status),
	})
}
