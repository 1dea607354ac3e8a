package response

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/huangang/projecthub/pkg/logger"
)

// Response is the unified API response format.
type Response struct {
	Code    int                 `json:"code"`
	Message string              `json:"message"`
	Data    interface{}         `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// Kind classifies an expected failure.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindInvalidOperation Kind = "invalid_operation"
	KindValidation       Kind = "validation"
	KindUnauthorized     Kind = "unauthorized"
	KindForbidden        Kind = "forbidden"
	KindUnexpected       Kind = "unexpected"
)

// AppError is an expected failure that carries its own HTTP mapping.
type AppError struct {
	HTTPStatus int
	Code       int
	Kind       Kind
	Message    string
	Errors     map[string][]string
}

func (e *AppError) Error() string {
	return e.Message
}

func newAppError(status int, kind Kind, msg string) *AppError {
	return &AppError{HTTPStatus: status, Code: status, Kind: kind, Message: msg}
}

func NewValidation(msg string, fields map[string][]string) *AppError {
	e := newAppError(http.StatusBadRequest, KindValidation, msg)
	e.Errors = fields
	return e
}

// NewInvalidOperation is a request that is well formed but breaks a business rule.
func NewInvalidOperation(msg string) *AppError {
	return newAppError(http.StatusBadRequest, KindInvalidOperation, msg)
}

func NewUnauthorized(msg string) *AppError {
	return newAppError(http.StatusUnauthorized, KindUnauthorized, msg)
}

func NewForbidden(msg string) *AppError {
	return newAppError(http.StatusForbidden, KindForbidden, msg)
}

func NewNotFound(msg string) *AppError {
	return newAppError(http.StatusNotFound, KindNotFound, msg)
}

func NewConflict(msg string) *AppError {
	return newAppError(http.StatusConflict, KindConflict, msg)
}

func NewServerError(msg string) *AppError {
	return newAppError(http.StatusInternalServerError, KindUnexpected, msg)
}

// IsKind reports whether err is an *AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// --- Gin response helpers ---

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "ok",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "created",
		Data:    data,
	})
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error writes err as an envelope. *AppError values keep their status and
// message; anything else is logged and reported as a bare 500.
func Error(c *gin.Context, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Kind != KindUnexpected {
		c.JSON(appErr.HTTPStatus, Response{
			Code:    appErr.Code,
			Message: appErr.Message,
			Errors:  appErr.Errors,
		})
		return
	}
	logger.Error().
		Err(err).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Msg("unhandled error")
	ServerError(c)
}

// Field errors are reported under the request's json names.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// BindError turns a gin binding failure into a validation envelope.
func BindError(c *gin.Context, err error) {
	Error(c, FromBindError(err))
}

// FromBindError converts validator errors to a per-field map keyed by the
// lowerCamel field name. Decoding errors become a single body entry.
func FromBindError(err error) *AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewValidation("invalid request body", map[string][]string{
			"body": {err.Error()},
		})
	}
	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		name := lowerFirst(fe.Field())
		fields[name] = append(fields[name], describe(fe))
	}
	return NewValidation("one or more validation errors occurred", fields)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "uuid":
		return "must be a valid id"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if strings.ToUpper(s) == s {
		return strings.ToLower(s)
	}
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, Response{Code: 401, Message: msg})
}

func Forbidden(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, Response{Code: 403, Message: msg})
}

func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, Response{Code: 404, Message: msg})
}

// ServerError never includes internal detail.
func ServerError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, Response{Code: 500, Message: "internal server error"})
}
