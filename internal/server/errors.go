package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"marketpay-backend/internal/domain"
	"marketpay-backend/internal/usecase"
)

func (s *Server) err(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   msg,
			"requestId": c.GetString(requestIDHeader),
		},
	})
}

// fail maps a service error onto the error envelope. Only messages from
// typed usecase errors reach the client; everything else is logged.
func (s *Server) fail(c *gin.Context, err error) {
	var (
		notFound  usecase.ErrNotFound
		conflict  usecase.ErrConflict
		badReq    usecase.ErrBadRequest
		duplicate usecase.ErrDuplicate
		up        *usecase.UpstreamError
	)
	switch {
	case errors.As(err, &badReq):
		s.err(c, http.StatusBadRequest, "BadRequest", badReq.Error())
	case errors.As(err, &notFound):
		s.err(c, http.StatusNotFound, "NotFound", notFound.Error())
	case errors.As(err, &conflict):
		s.err(c, http.StatusBadRequest, "Conflict", conflict.Error())
	case errors.As(err, &duplicate):
		s.err(c, http.StatusConflict, "Duplicate", duplicate.Error())
	case errors.Is(err, domain.ErrInvalidSignature):
		s.log.Warn("webhook signature rejected", "error", err, "request_id", c.GetString(requestIDHeader))
		s.err(c, http.StatusBadRequest, "InvalidSignature", "invalid signature")
	case errors.As(err, &up):
		s.log.Error("payment provider call failed", "op", up.Op, "error", up.Err, "request_id", c.GetString(requestIDHeader))
		s.err(c, http.StatusInternalServerError, "UpstreamError", "Failed to "+up.Op)
	default:
		s.log.Error("request failed", "path", c.FullPath(), "error", err, "request_id", c.GetString(requestIDHeader))
		s.err(c, http.StatusInternalServerError, "ServerError", "internal server error")
	}
}

// bindFailed reports a request body or parameter that did not validate.
func (s *Server) bindFailed(c *gin.Context, err error) {
	s.err(c, http.StatusBadRequest, "BadRequest", describeBindError(err))
}

func describeBindError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describeField(fe))
		}
		return strings.Join(msgs, "; ")
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "json: unknown field") {
		return strings.TrimPrefix(msg, "json: ")
	}
	return "invalid json"
}

func describeField(fe validator.FieldError) string {
	field := fieldPath(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be an email address"
	case "uuid":
		return field + " must be a uuid"
	case "url":
		return field + " must be an absolute url"
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	}
	return field + " is invalid"
}

// fieldPath turns "createOrderReq.Items[0].Quantity" into "items[0].quantity".
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToLower(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, ".")
}
