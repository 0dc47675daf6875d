package api

import (
	"errors"
	"net/http"

	"github.com/danmuck/klarity/internal/auth"
	"github.com/danmuck/klarity/internal/catalog"
	"github.com/danmuck/klarity/internal/quote"
	"github.com/danmuck/klarity/internal/store"
	"github.com/danmuck/klarity/internal/vision"
	"github.com/gin-gonic/gin"
)

var errBadRequest = errors.New("invalid request body")

func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, quote.ErrLinkExpired):
		return http.StatusGone
	case errors.Is(err, store.ErrNotFound), errors.Is(err, catalog.ErrActNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, quote.ErrIndexOutOfRange),
		errors.Is(err, quote.ErrMissingPatient),
		errors.Is(err, quote.ErrNoChannel),
		errors.Is(err, quote.ErrNoActs),
		errors.Is(err, quote.ErrUnknownChannel),
		errors.Is(err, quote.ErrIncompleteLogin),
		errors.Is(err, quote.ErrUnknownRole),
		errors.Is(err, vision.ErrImageRequired),
		errors.Is(err, vision.ErrInvalidImage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail records err on the context for the request logger and writes {"error": msg}.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}
