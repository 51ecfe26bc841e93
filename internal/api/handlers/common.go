package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/audition/internal/utils"
)

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)
	_ = c.Error(err)

	var ae *utils.AppError
	if errors.As(err, &ae) {
		c.JSON(status, APIError{
			Code:    ae.Code,
			Message: ae.Message,
		})
		return
	}

	c.JSON(status, APIError{
		Code:    utils.CodeInternal,
		Message: http.StatusText(status),
	})
}

// tokenUser returns the verified token subject, if the request carried one.
func tokenUser(c *gin.Context) (string, bool) {
	if v, ok := c.Get("user_id"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// resolveUserID settles who is calling. With a verified token the subject
// wins and a conflicting supplied id is rejected; in open mode the supplied
// id is trusted.
func resolveUserID(c *gin.Context, op, supplied string) (string, bool) {
	if sub, ok := tokenUser(c); ok {
		if supplied != "" && supplied != sub {
			writeError(c, utils.E(utils.CodeForbidden, op, "user_id does not match the signed-in user", nil))
			return "", false
		}
		return sub, true
	}
	if supplied == "" {
		writeError(c, utils.E(utils.CodeUnauthorized, op, "user_id is required", nil))
		return "", false
	}
	return supplied, true
}
