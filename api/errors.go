package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error     string   `json:"error"`
	Code      string   `json:"code"`
	RequestID string   `json:"request_id,omitempty"`
	Seats     []string `json:"seats,omitempty"`
}

// writeError is the single place where domain errors become HTTP statuses.
func writeError(c *gin.Context, err error) {
	resp := errorResponse{Error: err.Error(), RequestID: RequestIDFrom(c)}
	status := http.StatusInternalServerError
	resp.Code = "internal"

	var conflict domain.ConflictError
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		status, resp.Code = http.StatusUnauthorized, "unauthorized"
	case domain.IsValidation(err):
		status, resp.Code = http.StatusBadRequest, "validation"
	case domain.IsForbidden(err):
		status, resp.Code = http.StatusForbidden, "forbidden"
	case domain.IsNotFound(err):
		status, resp.Code = http.StatusNotFound, "not_found"
	case errors.As(err, &conflict):
		status, resp.Code = http.StatusConflict, "conflict"
		resp.Seats = conflict.Seats
	}
	if status == http.StatusInternalServerError {
		resp.Error = "internal error"
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

func badRequest(c *gin.Context, field string, err error) {
	writeError(c, domain.ValidationError{Field: field, Msg: err.Error()})
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, domain.ValidationError{Field: name, Msg: "must be a positive integer"})
		return 0, false
	}
	return id, true
}
