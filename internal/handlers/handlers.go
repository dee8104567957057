// Package handlers translates HTTP requests into service calls.
package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/middleware"
)

// FieldError describes one failed binding rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// respondError writes the response matching err. Internal causes are
// attached to the context for the request logger and never sent.
func respondError(c *gin.Context, err error) {
	if apierrors.KindOf(err) == apierrors.KindInternal {
		_ = c.Error(err)
	}
	apierrors.Respond(c, err)
}

// bindJSON decodes the body into req, writing a 400 on failure.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make([]FieldError, len(verrs))
			for i, fe := range verrs {
				details[i] = FieldError{Field: fe.Field(), Rule: fe.Tag()}
			}
			apierrors.BadRequestWithDetails(c, "Invalid request body", details)
			return false
		}
		apierrors.BadRequest(c, "Invalid request body")
		return false
	}
	return true
}

// currentUser returns the authenticated user ID, writing a 401 when absent.
func currentUser(c *gin.Context) (uint64, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return 0, false
	}
	return userID, true
}

// idParam parses a numeric route parameter, writing a 400 when malformed.
func idParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}
