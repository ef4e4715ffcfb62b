package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"omip-benchmark/internal/api/models"
	"omip-benchmark/internal/apperr"
)

// respondError writes the error envelope with the status for err's kind.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(models.StatusFor(apperr.KindOf(err)), models.NewErrorResponse(err))
}

// bindJSON decodes the request body or answers 400.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apperr.Malformed("INVALID_REQUEST", "%v", err))
		return false
	}
	return true
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
