package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const (
	errInternalServer     = "Internal server error"
	errInvalidCredentials = "Invalid email or password"
	errDuplicateEmail     = "User with that email already exists"
	errPasswordMismatch   = "Passwords do not match"
	errInvalidPassword    = "Password must be between 6 and 64 bytes"
	errUnauthenticated    = "You are not logged in, please provide token"
	errPageOutOfRange     = "Page is out of range"
	errInvalidBody        = "Invalid request body"
	errInvalidQuery       = "Invalid query parameters"
)

func fail(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"status": "fail", "message": message})
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": errInternalServer})
}

// bindFailed answers 400 for a request gin could not bind. The client gets
// the offending field and rule, never the validator's raw text.
func bindFailed(c *gin.Context, logger *slog.Logger, fallback string, err error) {
	logger.DebugContext(c.Request.Context(), "bind request", "error", err)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fail(c, http.StatusBadRequest, fieldMessage(verrs[0]))
		return
	}
	fail(c, http.StatusBadRequest, fallback)
}

func fieldMessage(fe validator.FieldError) string {
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
