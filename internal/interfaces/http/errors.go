package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/purchase-approval/internal/application/service"
	domainwf "github.com/garyjia/purchase-approval/internal/domain/workflow"
)

// statusFor maps an application error to its HTTP status code
func statusFor(err error) int {
	switch {
	case errors.Is(err, domainwf.ErrForbidden),
		errors.Is(err, domainwf.ErrRequestTerminal),
		errors.Is(err, domainwf.ErrValidation),
		errors.Is(err, domainwf.ErrFieldAlreadySet):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, domainwf.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainwf.ErrConcurrentModification):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error envelope. Internal failures are logged and
// their details withheld from the client.
func (h *Handlers) respondError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "op", op, "path", c.Request.URL.Path, "error", err)
		message = "internal error"
	}

	resp := Response{Success: false, Error: message}
	var ve *domainwf.ValidationError
	var fe *domainwf.FieldAlreadySetError
	switch {
	case errors.As(err, &ve):
		resp.Field = ve.Field
	case errors.As(err, &fe):
		resp.Field = fe.Field
	}
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: message})
}
